package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"storefront/internal/http/middleware"
	"storefront/internal/logging"
	"storefront/internal/page"
	"storefront/internal/transfer"
	"storefront/internal/web"
)

const (
	wsWriteWait  = 5 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 16
)

// HydrateHandler serves GET /ws/{sectionCode}?ticket=...&search=... and
// runs a client-mode page controller for the lifetime of the connection.
// The first load consumes what the server render left in the transfer
// store under the ticket's render id.
type HydrateHandler struct {
	Catalog    page.Fetcher
	Transfer   transfer.Store
	TPL        *web.Renderer
	AssetsBase string
	Upgrader   websocket.Upgrader
}

type clientMessage struct {
	Type   string `json:"type"`
	Path   string `json:"path"`
	Search string `json:"search"`
}

type serverMessage struct {
	Type    string `json:"type"`
	Loading bool   `json:"loading"`
	Title   string `json:"title,omitempty"`
	HTML    string `json:"html,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *HydrateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ticket, ok := middleware.TicketFrom(r)
	if !ok {
		http.Error(w, "invalid ticket", http.StatusUnauthorized)
		return
	}
	code := r.PathValue("sectionCode")
	routePath := "/" + code
	start := page.Location{Path: routePath, RawQuery: strings.TrimPrefix(r.URL.Query().Get("search"), "?")}

	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied.
		logging.From(r.Context()).Debug("ws.upgrade", "err", err)
		return
	}

	ctx := logging.With(r.Context(), "render_id", ticket.RenderID, "section", code)
	s := &session{
		conn:       conn,
		send:       make(chan []byte, wsSendBuffer),
		done:       make(chan struct{}),
		tpl:        h.TPL,
		assetsBase: h.AssetsBase,
		routePath:  routePath,
		history:    page.NewMemoryHistory(start),
		log:        logging.From(ctx),
	}
	s.ctl = page.New(page.Options{
		Mode:        page.ModeClient,
		SectionCode: code,
		RoutePath:   routePath,
		Fetcher:     h.Catalog,
		Transfer:    transfer.Scope(h.Transfer, ticket.RenderID),
	})
	s.run(ctx)
}

type session struct {
	conn       *websocket.Conn
	send       chan []byte
	done       chan struct{}
	closeOnce  sync.Once
	ctl        *page.Controller
	history    *page.MemoryHistory
	tpl        *web.Renderer
	assetsBase string
	routePath  string
	log        *slog.Logger
}

func (s *session) run(ctx context.Context) {
	wsSessions.Inc()
	defer wsSessions.Dec()
	s.log.Info("ws.session", "event", "open")
	defer s.log.Info("ws.session", "event", "close")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.ctl.Subscribe(s.push)
	go s.writePump()

	if err := s.ctl.Mount(ctx, s.history); err != nil {
		s.log.Debug("ws.mount", "err", err)
	}
	s.readPump()
	s.ctl.Unmount()
	s.close()
}

func (s *session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
	})
}

// push renders st and queues it. A client that cannot keep up is dropped.
func (s *session) push(st page.State) {
	view := web.NewCatalogView(st, s.routePath, s.assetsBase)
	var buf bytes.Buffer
	if err := s.tpl.RenderFragment(&buf, "catalog_body", view); err != nil {
		s.log.Error("web.render", "err", err)
		return
	}
	msg, err := json.Marshal(serverMessage{
		Type:    "state",
		Loading: st.Loading,
		Title:   st.Title(),
		HTML:    buf.String(),
		Error:   view.Error,
	})
	if err != nil {
		s.log.Error("json.marshal", "err", err)
		return
	}
	s.enqueue(msg)
}

func (s *session) enqueue(msg []byte) {
	select {
	case <-s.done:
	case s.send <- msg:
	default:
		s.log.Warn("ws.slow_client")
		s.close()
	}
}

func (s *session) writePump() {
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.log.Debug("ws.write", "err", err)
				s.close()
				return
			}
		case <-ping.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				s.log.Debug("ws.ping", "err", err)
				s.close()
				return
			}
		}
	}
}

func (s *session) readPump() {
	s.conn.SetReadLimit(1 << 12)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		var msg clientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("ws.read", "err", err)
			}
			return
		}
		_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		s.handle(msg)
	}
}

func (s *session) handle(msg clientMessage) {
	switch msg.Type {
	case "navigate":
		wsNavigations.Inc()
		s.history.Push(page.Location{Path: msg.Path, RawQuery: strings.TrimPrefix(msg.Search, "?")})
	case "ping":
		s.enqueue([]byte(`{"type":"pong"}`))
	default:
		s.log.Debug("ws.unknown_message", "type", msg.Type)
	}
}
