package http

import (
	"encoding/hex"
	"encoding/json"
	"net/http"

	"golang.org/x/crypto/blake2b"

	"storefront/internal/catalog"
	"storefront/internal/logging"
	"storefront/internal/page"
	"storefront/internal/web"
)

// StateHandler serves GET /api/section/{sectionCode}?page=N as JSON. It
// never touches the transfer store.
type StateHandler struct {
	Catalog    page.Fetcher
	AssetsBase string

	upstream *upstream
}

type stateBody struct {
	Section   *catalog.Section   `json:"section"`
	Items     []catalog.Item     `json:"items"`
	NavParams *catalog.NavParams `json:"navParams"`
	Loading   bool               `json:"loading"`
	Title     string             `json:"title"`
	Error     string             `json:"error,omitempty"`
}

func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("sectionCode")
	ctx := logging.With(r.Context(), "section", code)

	ctl := page.New(page.Options{
		Mode:        page.ModeClient,
		SectionCode: code,
		Fetcher:     h.Catalog,
	})
	st, err := ctl.RenderForRequest(ctx, page.Location{Path: "/" + code, RawQuery: r.URL.RawQuery})
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
		h.upstream.failed(ctx, code, err)
	}

	body, merr := json.Marshal(stateBody{
		Section:   st.Section,
		Items:     st.Items,
		NavParams: st.NavParams,
		Loading:   st.Loading,
		Title:     st.Title(),
		Error:     web.NewCatalogView(st, "/"+code, h.AssetsBase).Error,
	})
	if merr != nil {
		logging.From(ctx).Error("json.marshal", "err", merr)
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}

	sum := blake2b.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	if status == http.StatusOK && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
