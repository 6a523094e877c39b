package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storefront/internal/notify"
)

const defaultAPIBase = "https://api.telegram.org"

// Notifier posts alerts to one Telegram chat through the Bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

type Option func(*Notifier)

// WithAPIBase points the notifier at another Bot API host.
func WithAPIBase(base string) Option {
	return func(n *Notifier) { n.apiBase = strings.TrimRight(base, "/") }
}

func WithHTTPClient(c *http.Client) Option {
	return func(n *Notifier) { n.client = c }
}

// New returns notify.Noop when token or chat id is missing.
func New(botToken, chatID string, opts ...Option) notify.Alerter {
	botToken, chatID = strings.TrimSpace(botToken), strings.TrimSpace(chatID)
	if botToken == "" || chatID == "" {
		return notify.Noop{}
	}
	n := &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  defaultAPIBase,
		client:   defaultHTTPClient,
	}
	for _, o := range opts {
		o(n)
	}
	return n
}

func (n *Notifier) Alert(ctx context.Context, msg string) {
	if n == nil {
		return
	}
	if err := n.sendMessage(ctx, msg); err != nil {
		slog.Warn("telegram.send", "err", err)
	}
}

var defaultHTTPClient = &http.Client{
	Timeout: 5 * time.Second,
}

func (n *Notifier) sendMessage(ctx context.Context, msg string) error {
	body, err := json.Marshal(map[string]string{
		"chat_id": n.chatID,
		"text":    msg,
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("status %s", resp.Status)
	}
	return nil
}
