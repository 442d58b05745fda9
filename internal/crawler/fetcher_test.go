package crawler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	t.Run("fetches and decodes utf-8", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("User-Agent"); got != "test-agent" {
				t.Errorf("expected user agent 'test-agent', got %q", got)
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = w.Write([]byte("<html><body>héllo</body></html>"))
		}))
		defer server.Close()

		page, err := NewHTTPFetcher(server.Client(), WithUserAgent("test-agent")).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("failed to fetch: %v", err)
		}
		if !strings.Contains(page.Body, "héllo") {
			t.Errorf("expected decoded body, got %q", page.Body)
		}
		if page.StatusCode != http.StatusOK {
			t.Errorf("expected status 200, got %d", page.StatusCode)
		}
		if page.Charset != "utf-8" {
			t.Errorf("expected charset utf-8, got %q", page.Charset)
		}
	})

	t.Run("decodes declared legacy charset", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
			// "café" in Latin-1
			_, _ = w.Write([]byte{'c', 'a', 'f', 0xe9})
		}))
		defer server.Close()

		page, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("failed to fetch: %v", err)
		}
		if page.Body != "café" {
			t.Errorf("expected 'café', got %q", page.Body)
		}
	})

	t.Run("falls back when no charset is declared", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte{'c', 'a', 'f', 0xe9})
		}))
		defer server.Close()

		page, err := NewHTTPFetcher(server.Client(), WithFallbackCharset("latin1")).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("failed to fetch: %v", err)
		}
		if page.Body != "café" {
			t.Errorf("expected 'café', got %q", page.Body)
		}
	})

	t.Run("rejects unknown charset", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=no-such-charset")
			_, _ = w.Write([]byte("x"))
		}))
		defer server.Close()

		_, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
	})

	t.Run("rejects non-text content", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
		}))
		defer server.Close()

		_, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
	})

	t.Run("rejects error status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		_, err := NewHTTPFetcher(server.Client()).Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
	})

	t.Run("times out slow servers", func(t *testing.T) {
		t.Parallel()

		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		start := time.Now()
		_, err := NewHTTPFetcher(server.Client(), WithFetchTimeout(50*time.Millisecond)).Fetch(context.Background(), server.URL)
		if !errors.Is(err, ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
		if time.Since(start) > 2*time.Second {
			t.Errorf("fetch did not honor the timeout")
		}
	})

	t.Run("limits body size", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(strings.Repeat("a", 1000)))
		}))
		defer server.Close()

		page, err := NewHTTPFetcher(server.Client(), WithMaxBodySize(10)).Fetch(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("failed to fetch: %v", err)
		}
		if len(page.Body) != 10 {
			t.Errorf("expected 10 bytes, got %d", len(page.Body))
		}
	})

	t.Run("unreachable host", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := NewHTTPFetcher(nil).Fetch(context.Background(), url)
		if !errors.Is(err, ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
	})
}
