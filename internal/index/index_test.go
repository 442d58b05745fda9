package index

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// setupTestIndex creates a temporary index for testing.
func setupTestIndex(t *testing.T) *SQLite {
	t.Helper()

	idx, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested", "index")
		idx, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open index: %v", err)
		}
		defer idx.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("expected database file to exist: %v", err)
		}
		if idx.Path() != filepath.Join(dir, FileName) {
			t.Errorf("unexpected path %q", idx.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails on missing index", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{})
		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("reopens existing index read-write", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		idx, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open index: %v", err)
		}
		if err := idx.AddDocument(context.Background(), "http://a.test", DefaultField, "hello world"); err != nil {
			t.Fatalf("failed to add document: %v", err)
		}
		if err := idx.Close(); err != nil {
			t.Fatalf("failed to close: %v", err)
		}

		reader, err := Open(dir, Options{})
		if err != nil {
			t.Fatalf("failed to reopen index: %v", err)
		}
		defer reader.Close()

		hits, err := reader.Search(context.Background(), DefaultField, "hello")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(hits) != 1 || hits[0].URL != "http://a.test" {
			t.Errorf("expected one hit for http://a.test, got %+v", hits)
		}
	})
}

func TestSQLiteAddAndSearch(t *testing.T) {
	t.Parallel()

	t.Run("ranks matching documents", func(t *testing.T) {
		t.Parallel()

		idx := setupTestIndex(t)
		ctx := context.Background()

		docs := map[string]string{
			"http://a.test":   "<p>gopher gopher gopher crawls the web</p>",
			"http://a.test/b": "<p>a gopher appears once among many other words here</p>",
			"http://a.test/c": "<p>nothing relevant</p>",
		}
		for url, body := range docs {
			if err := idx.AddDocument(ctx, url, DefaultField, body); err != nil {
				t.Fatalf("failed to add %s: %v", url, err)
			}
		}

		hits, err := idx.Search(ctx, DefaultField, "gopher")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(hits) != 2 {
			t.Fatalf("expected 2 hits, got %d: %+v", len(hits), hits)
		}
		if hits[0].URL != "http://a.test" {
			t.Errorf("expected best hit http://a.test, got %q", hits[0].URL)
		}
		if hits[0].Score < hits[1].Score {
			t.Errorf("expected descending scores, got %f then %f", hits[0].Score, hits[1].Score)
		}
		if hits[0].Snippet == "" {
			t.Error("expected a snippet")
		}
	})

	t.Run("field scopes the search", func(t *testing.T) {
		t.Parallel()

		idx := setupTestIndex(t)
		ctx := context.Background()

		if err := idx.AddDocument(ctx, "http://a.test", "title", "gopher"); err != nil {
			t.Fatalf("failed to add: %v", err)
		}

		hits, err := idx.Search(ctx, DefaultField, "gopher")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("expected no hits in %q field, got %+v", DefaultField, hits)
		}
	})

	t.Run("re-adding replaces content", func(t *testing.T) {
		t.Parallel()

		idx := setupTestIndex(t)
		ctx := context.Background()

		if err := idx.AddDocument(ctx, "http://a.test", DefaultField, "old words"); err != nil {
			t.Fatalf("failed to add: %v", err)
		}
		if err := idx.AddDocument(ctx, "http://a.test", DefaultField, "new words"); err != nil {
			t.Fatalf("failed to re-add: %v", err)
		}
		if err := idx.AddDocument(ctx, "http://a.test", DefaultField, "new words"); err != nil {
			t.Fatalf("failed to re-add unchanged: %v", err)
		}

		n, err := idx.Count(ctx, DefaultField)
		if err != nil {
			t.Fatalf("count failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 document, got %d", n)
		}

		hits, err := idx.Search(ctx, DefaultField, "old")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(hits) != 0 {
			t.Errorf("expected stale content to be gone, got %+v", hits)
		}

		hits, err = idx.Search(ctx, DefaultField, "new")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(hits) != 1 {
			t.Errorf("expected 1 hit, got %d", len(hits))
		}
	})

	t.Run("query syntax is treated literally", func(t *testing.T) {
		t.Parallel()

		idx := setupTestIndex(t)
		ctx := context.Background()

		if err := idx.AddDocument(ctx, "http://a.test", DefaultField, `say "hi" AND bye`); err != nil {
			t.Fatalf("failed to add: %v", err)
		}
		if _, err := idx.Search(ctx, DefaultField, `"hi AND (`); err != nil {
			t.Errorf("expected query to be escaped, got %v", err)
		}
	})

	t.Run("empty query", func(t *testing.T) {
		t.Parallel()

		idx := setupTestIndex(t)
		if _, err := idx.Search(context.Background(), DefaultField, "   "); !errors.Is(err, ErrEmptyQuery) {
			t.Errorf("expected ErrEmptyQuery, got %v", err)
		}
	})

	t.Run("closed index", func(t *testing.T) {
		t.Parallel()

		idx := setupTestIndex(t)
		if err := idx.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if err := idx.Close(); err != nil {
			t.Errorf("second close should succeed, got %v", err)
		}
		if err := idx.AddDocument(context.Background(), "http://a.test", DefaultField, "x"); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
		if _, err := idx.Search(context.Background(), DefaultField, "x"); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})
}

func TestSynchronized(t *testing.T) {
	t.Parallel()

	t.Run("concurrent writers", func(t *testing.T) {
		t.Parallel()

		idx := Synchronize(setupTestIndex(t))
		ctx := context.Background()

		var wg sync.WaitGroup
		for i := range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				url := "http://a.test/" + string(rune('a'+i))
				if err := idx.AddDocument(ctx, url, DefaultField, "shared term"); err != nil {
					t.Errorf("failed to add %s: %v", url, err)
				}
			}()
		}
		wg.Wait()

		hits, err := idx.Search(ctx, DefaultField, "shared")
		if err != nil {
			t.Fatalf("search failed: %v", err)
		}
		if len(hits) != 20 {
			t.Errorf("expected 20 hits, got %d", len(hits))
		}
	})

	t.Run("does not double wrap", func(t *testing.T) {
		t.Parallel()

		s := Synchronize(Nop{})
		if Synchronize(s) != s {
			t.Error("expected the same wrapper back")
		}
	})
}

func TestNop(t *testing.T) {
	t.Parallel()

	var p Port = Nop{}
	if err := p.AddDocument(context.Background(), "http://a.test", DefaultField, "x"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	hits, err := p.Search(context.Background(), DefaultField, "x")
	if err != nil || len(hits) != 0 {
		t.Errorf("expected no hits, got %v (err=%v)", hits, err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestMatchExpression(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		term string
		want string
	}{
		{name: "single word", term: "gopher", want: `"gopher"`},
		{name: "several words", term: " go  lang ", want: `"go" "lang"`},
		{name: "quotes doubled", term: `a"b`, want: `"a""b"`},
		{name: "blank", term: " ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := matchExpression(tt.term); got != tt.want {
				t.Errorf("matchExpression(%q) = %q, want %q", tt.term, got, tt.want)
			}
		})
	}
}
