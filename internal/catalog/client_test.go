package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const shoesPage2 = `{"section":{"CODE":"shoes","NAME":"Shoes"},"items":[],"navParams":{"totalCount":0,"size":20,"page":2}}`

func newAPI(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32, *atomic.Value) {
	t.Helper()
	var hits atomic.Int32
	var lastURL atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		lastURL.Store(r.URL.String())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits, &lastURL
}

func TestSectionURL_PassesPageThrough(t *testing.T) {
	c := NewClient("https://shop.example/api/catalog/", time.Second, nil)
	if got, want := c.SectionURL("shoes", "3"), "https://shop.example/api/catalog/section/shoes/?PAGEN_1=3"; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if got, want := c.SectionURL("shoes", "-1"), "https://shop.example/api/catalog/section/shoes/?PAGEN_1=-1"; got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestFetchSection_Success(t *testing.T) {
	srv, hits, lastURL := newAPI(t, http.StatusOK, shoesPage2)
	c := NewClient(srv.URL+"/api/catalog/", time.Second, nil)

	p, err := c.FetchSection(context.Background(), "shoes", "2")
	if err != nil {
		t.Fatalf("FetchSection: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one request, got %d", hits.Load())
	}
	if got := lastURL.Load().(string); got != "/api/catalog/section/shoes/?PAGEN_1=2" {
		t.Fatalf("unexpected request url %s", got)
	}
	if p.Section.Name != "Shoes" {
		t.Fatalf("expected section name Shoes, got %q", p.Section.Name)
	}
	if p.Items == nil || len(p.Items) != 0 {
		t.Fatalf("expected empty non-nil items, got %#v", p.Items)
	}
	if p.NavParams == nil || p.NavParams.Page != 2 || p.NavParams.Size != 20 {
		t.Fatalf("unexpected nav params %#v", p.NavParams)
	}
}

func TestFetchSection_NonSuccessStatus(t *testing.T) {
	srv, _, _ := newAPI(t, http.StatusServiceUnavailable, "maintenance")
	c := NewClient(srv.URL, time.Second, nil)

	_, err := c.FetchSection(context.Background(), "shoes", "2")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable || apiErr.Class != ErrorClassServer {
		t.Fatalf("unexpected api error %#v", apiErr)
	}
	if apiErr.Body != "maintenance" {
		t.Fatalf("expected truncated body, got %q", apiErr.Body)
	}
	if Classify(err) != ErrorClassServer {
		t.Fatalf("expected server class, got %s", Classify(err))
	}
}

func TestFetchSection_NotFound(t *testing.T) {
	srv, _, _ := newAPI(t, http.StatusNotFound, "")
	c := NewClient(srv.URL, time.Second, nil)

	_, err := c.FetchSection(context.Background(), "nope", "1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFetchSection_Malformed(t *testing.T) {
	for name, body := range map[string]string{
		"not json":        "<html>",
		"missing section": `{"items":[]}`,
		"null section":    `{"section":null,"items":null}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv, _, _ := newAPI(t, http.StatusOK, body)
			c := NewClient(srv.URL, time.Second, nil)
			_, err := c.FetchSection(context.Background(), "shoes", "1")
			if !errors.Is(err, ErrMalformedPayload) {
				t.Fatalf("expected ErrMalformedPayload, got %v", err)
			}
			if Classify(err) != ErrorClassDecode {
				t.Fatalf("expected decode class, got %s", Classify(err))
			}
		})
	}
}

func TestFetchSection_NullItemsAccepted(t *testing.T) {
	srv, _, _ := newAPI(t, http.StatusOK, `{"section":{"CODE":"shoes","NAME":"Shoes"},"items":null,"navParams":{"totalCount":0,"size":20,"page":1}}`)
	p, err := NewClient(srv.URL, time.Second, nil).FetchSection(context.Background(), "shoes", "1")
	if err != nil {
		t.Fatalf("FetchSection: %v", err)
	}
	if p.Items != nil || p.Section.Name != "Shoes" || p.NavParams == nil {
		t.Fatalf("unexpected payload %#v", p)
	}
}

func TestFetchSection_NetworkError(t *testing.T) {
	srv, _, _ := newAPI(t, http.StatusOK, shoesPage2)
	base := srv.URL
	srv.Close()

	_, err := NewClient(base, time.Second, nil).FetchSection(context.Background(), "shoes", "1")
	if err == nil {
		t.Fatal("expected transport error")
	}
	if Classify(err) != ErrorClassNetwork {
		t.Fatalf("expected network class, got %s", Classify(err))
	}
}
