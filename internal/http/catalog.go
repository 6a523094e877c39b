package http

import (
	"bytes"
	"net/http"
	"time"

	"github.com/google/uuid"

	"storefront/internal/auth"
	"storefront/internal/logging"
	"storefront/internal/page"
	"storefront/internal/transfer"
	"storefront/internal/web"
)

// CatalogHandler renders GET /{sectionCode} on the server. Each request is
// one render transaction: payloads it fetches are handed to the hydration
// session through the transfer store, scoped by a fresh render id.
type CatalogHandler struct {
	Catalog    page.Fetcher
	Transfer   transfer.Store
	TPL        *web.Renderer
	AssetsBase string
	TicketTTL  time.Duration

	upstream *upstream
}

func (h *CatalogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("sectionCode")
	renderID := uuid.NewString()
	ctx := logging.With(r.Context(), "render_id", renderID, "section", code)
	log := logging.From(ctx)

	head := &web.HeadData{}
	ctl := page.New(page.Options{
		Mode:        page.ModeServer,
		SectionCode: code,
		RoutePath:   r.URL.Path,
		Fetcher:     h.Catalog,
		Transfer:    transfer.Scope(h.Transfer, renderID),
		Title:       head,
	})
	st, err := ctl.RenderForRequest(ctx, page.Location{Path: r.URL.Path, RawQuery: r.URL.RawQuery})

	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		h.upstream.failed(ctx, code, err)
	}

	ticket, terr := auth.IssueTicket(auth.Ticket{RenderID: renderID, Section: code}, h.TicketTTL)
	if terr != nil {
		log.Warn("auth.ticket", "err", terr)
	} else {
		head.Hydrate = &web.HydrateData{Section: code, Ticket: ticket, SocketURL: socketPath(code)}
	}

	data := web.Page[web.CatalogView]{
		Head:    *head,
		Content: web.NewCatalogView(st, r.URL.Path, h.AssetsBase),
	}
	var buf bytes.Buffer
	if err := h.TPL.Render(&buf, "catalog", data); err != nil {
		log.Error("web.render", "err", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}
