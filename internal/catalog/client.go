package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/internal/logging"
)

const userAgent = "storefront/1.0"

// Client fetches section pages from the catalog API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a client for baseURL (e.g. "https://shop.example/api/catalog/").
// A nil httpClient gets one with the given timeout.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

// SectionURL returns <base>/section/<code>/?PAGEN_1=<page>. The page value
// is forwarded as given.
func (c *Client) SectionURL(sectionCode, page string) string {
	return c.baseURL + "/section/" + url.PathEscape(sectionCode) + "/?PAGEN_1=" + url.QueryEscape(page)
}

// FetchSection issues exactly one GET for the page. Non-2xx responses
// return *APIError; bodies without section or items return
// ErrMalformedPayload.
func (c *Client) FetchSection(ctx context.Context, sectionCode, page string) (*Payload, error) {
	log := logging.From(ctx)
	target := c.SectionURL(sectionCode, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	res, err := c.httpClient.Do(req)
	requestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		log.Warn("catalog.fetch", "url", target, "err", err)
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer res.Body.Close()
	requestsTotal.WithLabelValues(strconv.Itoa(res.StatusCode)).Inc()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 2048))
		apiErr := &APIError{
			StatusCode: res.StatusCode,
			Class:      classifyStatus(res.StatusCode),
			URL:        target,
			Body:       strings.TrimSpace(string(body)),
		}
		errorsTotal.WithLabelValues(string(apiErr.Class)).Inc()
		log.Warn("catalog.fetch", "url", target, "status", res.StatusCode)
		return nil, apiErr
	}

	var p Payload
	if err := json.NewDecoder(res.Body).Decode(&p); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if err := p.Validate(); err != nil {
		errorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, err
	}
	log.Debug("catalog.fetch", "url", target, "status", res.StatusCode, "items", len(p.Items),
		"duration_ms", time.Since(start).Milliseconds())
	return &p, nil
}
