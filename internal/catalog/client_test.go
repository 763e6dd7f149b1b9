package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rogerio-castellano/inventory-audit/internal/catalog"
	"github.com/rogerio-castellano/inventory-audit/internal/models"
	"github.com/rogerio-castellano/inventory-audit/internal/sandbox"
)

var products = []models.Product{
	{ID: 1, Title: "Widget", Price: 10.00},
	{ID: 2, Title: "Gadget", Price: 20.00},
}

func newClient(t *testing.T, h http.Handler, opts catalog.Options) *catalog.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL + "/products"
	if opts.Timeout == 0 {
		opts.Timeout = 2 * time.Second
	}
	return catalog.NewClient(opts)
}

func TestFetchAll_WrappedAndBare(t *testing.T) {
	for name, c := range map[string]*sandbox.Catalog{
		"wrapped": sandbox.NewCatalog(products...),
		"bare":    sandbox.NewCatalog(products...).BareArray(),
	} {
		client := newClient(t, c.Handler(), catalog.Options{})
		got, err := client.FetchAll(context.Background())
		if err != nil {
			t.Fatalf("%s: fetch: %v", name, err)
		}
		if diff := cmp.Diff(products, got); diff != "" {
			t.Errorf("%s: products mismatch (-want +got):\n%s", name, diff)
		}
	}
}

func TestFetchAll_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"server error", http.StatusInternalServerError, `{}`, func(err error) bool {
			var se *catalog.StatusError
			return errors.As(err, &se) && se.StatusCode == http.StatusInternalServerError
		}},
		{"no products field", http.StatusOK, `{"items": []}`, func(err error) bool { return errors.Is(err, catalog.ErrUnexpectedShape) }},
		{"not json", http.StatusOK, `<html></html>`, func(err error) bool { return errors.Is(err, catalog.ErrUnexpectedShape) }},
		{"wrong element type", http.StatusOK, `{"products": "nope"}`, func(err error) bool { return errors.Is(err, catalog.ErrUnexpectedShape) }},
		{"empty body", http.StatusOK, ``, func(err error) bool { return errors.Is(err, catalog.ErrUnexpectedShape) }},
	}
	for _, tt := range tests {
		h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			w.Write([]byte(tt.body))
		})
		client := newClient(t, h, catalog.Options{})
		_, err := client.FetchAll(context.Background())
		if err == nil || !tt.check(err) {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
	}
}

func TestFetchAll_SendsHeaders(t *testing.T) {
	var ua, key string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua = r.Header.Get("User-Agent")
		key = r.Header.Get("X-Api-Key")
		w.Write([]byte(`[]`))
	})
	client := newClient(t, h, catalog.Options{UserAgent: "audit-bot", Headers: map[string]string{"x-api-key": "abc"}})
	if _, err := client.FetchAll(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if ua != "audit-bot" || key != "abc" {
		t.Errorf("expected custom headers, got ua=%q key=%q", ua, key)
	}
}

func TestFetchPrice(t *testing.T) {
	c := sandbox.NewCatalog(products...)
	c.FailItem(2, http.StatusServiceUnavailable)
	client := newClient(t, c.Handler(), catalog.Options{})

	price, err := client.FetchPrice(context.Background(), 1)
	if err != nil {
		t.Fatalf("fetch price: %v", err)
	}
	if price != 10.00 {
		t.Errorf("expected 10.00, got %v", price)
	}

	_, err = client.FetchPrice(context.Background(), 2)
	var se *catalog.StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected StatusError 503, got %v", err)
	}
}

func TestFetchPrice_MissingField(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 1, "title": "Widget"}`))
	})
	client := newClient(t, h, catalog.Options{})
	if _, err := client.FetchPrice(context.Background(), 1); !errors.Is(err, catalog.ErrPriceMissing) {
		t.Errorf("expected ErrPriceMissing, got %v", err)
	}
}

func TestTimeout(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})
	client := newClient(t, h, catalog.Options{Timeout: 50 * time.Millisecond})
	if _, err := client.FetchAll(context.Background()); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestRateLimitHonoursContext(t *testing.T) {
	client := newClient(t, sandbox.NewCatalog(products...).Handler(), catalog.Options{RPS: 0.001})
	ctx := context.Background()
	if _, err := client.FetchPrice(ctx, 1); err != nil {
		t.Fatalf("first call should pass the burst: %v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err := client.FetchPrice(ctx, 2); err == nil {
		t.Fatal("expected limiter wait to fail once the context expires")
	}
}
