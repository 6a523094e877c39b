package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"storefront/internal/auth"
	"storefront/internal/catalog"
	"storefront/internal/notify"
	"storefront/internal/transfer"
)

type catalogAPI struct {
	srv    *httptest.Server
	hits   atomic.Int32
	status atomic.Int32
}

func newCatalogAPI(t *testing.T) *catalogAPI {
	t.Helper()
	a := &catalogAPI{}
	a.status.Store(http.StatusOK)
	a.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.hits.Add(1)
		status := int(a.status.Load())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":"nope"}`))
			return
		}
		page := r.URL.Query().Get("PAGEN_1")
		fmt.Fprintf(w, `{"section":{"CODE":"shoes","NAME":"Shoes"},"items":[{"CODE":"item-%s","NAME":"Item %s","PREVIEW_PICTURE_RESIZE":"/i.jpg","PROPERTIES":{"RATING_REVIEW":{"VALUE":"3"}},"PRICE":{"price":"<b>10</b>"}}],"navParams":{"totalCount":60,"size":20,"page":%s}}`, page, page, page)
	}))
	t.Cleanup(a.srv.Close)
	return a
}

type alertSink struct{ msgs chan string }

func (s *alertSink) Alert(_ context.Context, msg string) { s.msgs <- msg }

type fixture struct {
	api    *catalogAPI
	store  *transfer.Memory
	alerts *alertSink
	srv    *httptest.Server
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	auth.SetSecret("test-secret")
	f := &fixture{
		api:    newCatalogAPI(t),
		store:  transfer.NewMemory(time.Minute),
		alerts: &alertSink{msgs: make(chan string, 4)},
	}
	mux, err := NewMux(Deps{
		Catalog:   catalog.NewClient(f.api.srv.URL+"/api/catalog/", 2*time.Second, nil),
		Transfer:  f.store,
		BaseURL:   "https://shop.example",
		TicketTTL: time.Minute,
		Alerts:    notify.NewThrottled(f.alerts, time.Minute),
	})
	if err != nil {
		t.Fatalf("NewMux: %v", err)
	}
	f.srv = httptest.NewServer(WithStandardMiddleware(mux))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) get(t *testing.T, path string, hdr http.Header) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, f.srv.URL+path, nil)
	for k, v := range hdr {
		req.Header[k] = v
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res, string(b)
}

var ticketRE = regexp.MustCompile(`data-ticket="([^"]+)"`)

func TestCatalogPage_RendersAndStoresHandOff(t *testing.T) {
	f := newFixture(t)
	res, body := f.get(t, "/shoes?page=2", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	for _, want := range []string{"<title>Shoes</title>", "<h1>Shoes</h1>", `href="/shoes/item-2"`, "<b>10</b>", `href="/shoes?page=3"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}
	if !ticketRE.MatchString(body) {
		t.Fatal("page has no hydration ticket")
	}
	if f.store.Len() != 1 {
		t.Fatalf("expected one transfer entry, got %d", f.store.Len())
	}
	if res.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}
}

func TestCatalogPage_UpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.api.status.Store(http.StatusServiceUnavailable)

	res, body := f.get(t, "/shoes", nil)
	if res.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.StatusCode)
	}
	if !strings.Contains(body, "notice-error") || !strings.Contains(body, "ajax-area active") {
		t.Fatal("expected error notice with active loader")
	}
	if f.store.Len() != 0 {
		t.Fatalf("failed render wrote %d transfer entries", f.store.Len())
	}
	select {
	case msg := <-f.alerts.msgs:
		if !strings.Contains(msg, "https://shop.example/shoes") {
			t.Fatalf("alert should link the section, got %q", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected an upstream alert")
	}
}

func TestCatalogPage_NotFound(t *testing.T) {
	f := newFixture(t)
	f.api.status.Store(http.StatusNotFound)
	res, _ := f.get(t, "/missing", nil)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
	select {
	case msg := <-f.alerts.msgs:
		t.Fatalf("404 should not alert, got %q", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStateEndpoint_ETag(t *testing.T) {
	f := newFixture(t)
	res, body := f.get(t, "/api/section/shoes?page=2", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	var st stateBody
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Loading || st.Title != "Shoes" || len(st.Items) != 1 || st.NavParams.Page != 2 {
		t.Fatalf("unexpected state %+v", st)
	}
	etag := res.Header.Get("ETag")
	if len(etag) != 66 {
		t.Fatalf("expected quoted blake2b-256 etag, got %q", etag)
	}

	res, _ = f.get(t, "/api/section/shoes?page=2", http.Header{"If-None-Match": {etag}})
	if res.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", res.StatusCode)
	}
	if f.store.Len() != 0 {
		t.Fatal("state endpoint must not write transfer entries")
	}
}

func readState(t *testing.T, c *websocket.Conn) serverMessage {
	t.Helper()
	_ = c.SetReadDeadline(time.Now().Add(3 * time.Second))
	var m serverMessage
	if err := c.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func TestHydrate_ConsumesHandOffThenNavigates(t *testing.T) {
	f := newFixture(t)
	_, body := f.get(t, "/shoes?page=2", nil)
	m := ticketRE.FindStringSubmatch(body)
	if m == nil {
		t.Fatal("no ticket in page")
	}

	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/shoes?ticket=" + url.QueryEscape(m[1]) + "&search=" + url.QueryEscape("?page=2")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readState(t, conn)
	if first.Type != "state" || first.Loading || !strings.Contains(first.HTML, "/shoes/item-2") {
		t.Fatalf("unexpected hydrated state %+v", first)
	}
	if f.api.hits.Load() != 1 {
		t.Fatalf("hydration refetched: %d requests", f.api.hits.Load())
	}
	if f.store.Len() != 0 {
		t.Fatal("hand-off entry should be consumed")
	}

	if err := conn.WriteJSON(clientMessage{Type: "navigate", Path: "/shoes", Search: "?page=3"}); err != nil {
		t.Fatal(err)
	}
	reset := readState(t, conn)
	if !reset.Loading || strings.Contains(reset.HTML, "catalog-block") {
		t.Fatalf("expected reset state, got %+v", reset)
	}
	loaded := readState(t, conn)
	if loaded.Loading || !strings.Contains(loaded.HTML, "/shoes/item-3") {
		t.Fatalf("expected page 3, got %+v", loaded)
	}
	if f.api.hits.Load() != 2 {
		t.Fatalf("expected one more request, got %d", f.api.hits.Load())
	}

	if err := conn.WriteJSON(clientMessage{Type: "ping"}); err != nil {
		t.Fatal(err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var pong map[string]any
	if err := conn.ReadJSON(&pong); err != nil || pong["type"] != "pong" {
		t.Fatalf("expected pong, got %v (%v)", pong, err)
	}
}

func TestHydrate_RejectsBadTicket(t *testing.T) {
	f := newFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws/shoes?ticket=garbage"
	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if res == nil || res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", res)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	f := newFixture(t)
	cases := []struct {
		path   string
		status int
		want   string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/readyz", http.StatusOK, "ready"},
		{"/static/catalog.js", http.StatusOK, "WebSocket"},
		{"/metrics", http.StatusOK, "storefront_http_requests_total"},
	}
	f.get(t, "/healthz", nil)
	for _, c := range cases {
		res, body := f.get(t, c.path, nil)
		if res.StatusCode != c.status || !strings.Contains(body, c.want) {
			t.Fatalf("%s: expected %d containing %q, got %d", c.path, c.status, c.want, res.StatusCode)
		}
	}
}

func TestReadyz_BackendDown(t *testing.T) {
	mux, err := NewMux(Deps{
		Catalog: catalog.NewClient("http://127.0.0.1:1/", time.Second, nil),
		Ready:   func(context.Context) error { return fmt.Errorf("redis: connection refused") },
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestSectionLink(t *testing.T) {
	if got := sectionLink("https://shop.example/", "shoes"); got != "https://shop.example/shoes" {
		t.Fatalf("unexpected link %s", got)
	}
	if got := sectionLink("", "shoes"); got != "/shoes" {
		t.Fatalf("unexpected relative link %s", got)
	}
}
