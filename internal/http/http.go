// Package http serves the catalog page, its JSON state, the hydration
// websocket and the operational endpoints.
package http

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront/internal/http/middleware"
	"storefront/internal/logging"
	"storefront/internal/notify"
	"storefront/internal/page"
	"storefront/internal/transfer"
	"storefront/internal/web"
	"storefront/resources"
)

// Deps are the collaborators shared by all handlers.
type Deps struct {
	Catalog    page.Fetcher
	Transfer   transfer.Store
	TPL        *web.Renderer
	BaseURL    string
	AssetsBase string
	TicketTTL  time.Duration
	Alerts     *notify.Throttled
	Limiter    *middleware.RateLimiter
	// Ready reports backend readiness for /readyz; nil means always ready.
	Ready func(ctx context.Context) error
}

func NewMux(d Deps) (*http.ServeMux, error) {
	if d.Catalog == nil {
		return nil, errors.New("http: catalog fetcher is required")
	}
	if d.TPL == nil {
		rend, err := web.NewRenderer()
		if err != nil {
			return nil, err
		}
		d.TPL = rend
	}
	up := &upstream{alerts: d.Alerts, baseURL: d.BaseURL}

	mux := http.NewServeMux()

	mux.Handle("GET /{sectionCode}", &CatalogHandler{
		Catalog:    d.Catalog,
		Transfer:   d.Transfer,
		TPL:        d.TPL,
		AssetsBase: d.AssetsBase,
		TicketTTL:  d.TicketTTL,
		upstream:   up,
	})
	mux.Handle("GET /api/section/{sectionCode}", middleware.Limit(d.Limiter, &StateHandler{
		Catalog:    d.Catalog,
		AssetsBase: d.AssetsBase,
		upstream:   up,
	}))
	mux.Handle("GET /ws/{sectionCode}", middleware.Limit(d.Limiter, middleware.RequireTicket(&HydrateHandler{
		Catalog:    d.Catalog,
		Transfer:   d.Transfer,
		TPL:        d.TPL,
		AssetsBase: d.AssetsBase,
	})))

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(resources.FS)))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := d.Ready(ctx); err != nil {
				logging.From(r.Context()).Warn("http.readyz", "err", err)
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	return mux, nil
}

func WithStandardMiddleware(next http.Handler) http.Handler {
	return requestLogger(securityHeaders(next))
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &wrapWriter{ResponseWriter: w, status: 200}
		log := logging.From(r.Context()).With("method", r.Method, "path", r.URL.Path)
		r = r.WithContext(logging.WithLogger(r.Context(), log))
		next.ServeHTTP(ww, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, strconv.Itoa(ww.status)).Inc()
		httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		log.Info("http.request",
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

type wrapWriter struct {
	http.ResponseWriter
	status int
}

func (w *wrapWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrader take over the connection.
func (w *wrapWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("http: response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *wrapWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }
