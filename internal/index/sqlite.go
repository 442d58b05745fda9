package index

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the name of the database file inside the index directory.
const FileName = "index.db"

// SQLite is a Port backed by an SQLite FTS5 table.
// It is safe for concurrent use; writes are serialized by the single
// database connection.
type SQLite struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// path is the path to the database file.
	path string

	// limit caps the number of hits returned by Search.
	limit int

	mu     sync.Mutex
	closed bool
}

var _ Port = (*SQLite)(nil)

// Options configures SQLite behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	// Readers such as the search command leave it false.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool

	// SearchLimit caps the number of hits returned by Search.
	SearchLimit int
}

// DefaultOptions returns the options used by a crawl.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
		SearchLimit:       DefaultSearchLimit,
	}
}

// Open opens or creates the index stored in dir.
// Every error wraps ErrUnavailable.
func Open(dir string, opts Options) (*SQLite, error) {
	path := filepath.Join(dir, FileName)

	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("%w: failed to create index directory: %w", ErrUnavailable, err)
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: no index at %s: %w", ErrUnavailable, path, err)
	}

	dsn := path + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = path + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrUnavailable, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: failed to enable WAL mode: %w", ErrUnavailable, err)
		}
	}

	limit := opts.SearchLimit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	s := &SQLite{db: db, path: path, limit: limit}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to create tables: %w", ErrUnavailable, err)
	}
	return s, nil
}

// Path returns the location of the database file.
func (s *SQLite) Path() string {
	return s.path
}

// Close releases the database. Calling Close more than once is allowed.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

func (s *SQLite) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// createTables creates the schema if it doesn't exist.
func (s *SQLite) createTables() error {
	schema := `
	-- One row per (url, field); digest detects unchanged content
	CREATE TABLE IF NOT EXISTS documents (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		field TEXT NOT NULL,
		digest TEXT NOT NULL,
		indexed_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(url, field)
	);

	-- Full-text content; rowid matches documents.id
	CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
		url UNINDEXED,
		field UNINDEXED,
		body
	);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// AddDocument stores text for url under field, replacing an earlier
// version. Unchanged text is not rewritten.
func (s *SQLite) AddDocument(ctx context.Context, url, field, text string) error {
	if s.isClosed() {
		return ErrClosed
	}

	digest := contentDigest(text)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id       int64
		existing string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT id, digest FROM documents WHERE url = ? AND field = ?`, url, field,
	).Scan(&id, &existing)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx,
			`INSERT INTO documents (url, field, digest) VALUES (?, ?, ?)`, url, field, digest)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to get document id: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to look up document: %w", err)
	case existing == digest:
		return nil
	default:
		if _, err := tx.ExecContext(ctx,
			`UPDATE documents SET digest = ?, indexed_at = CURRENT_TIMESTAMP WHERE id = ?`, digest, id); err != nil {
			return fmt.Errorf("failed to update document: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents_fts WHERE rowid = ?`, id); err != nil {
			return fmt.Errorf("failed to remove stale content: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents_fts (rowid, url, field, body) VALUES (?, ?, ?, ?)`, id, url, field, text); err != nil {
		return fmt.Errorf("failed to index content: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit document: %w", err)
	}
	return nil
}

// Search returns the documents whose field matches every word of term,
// ranked by bm25. Score is the negated bm25 value so higher is better.
func (s *SQLite) Search(ctx context.Context, field, term string) ([]Hit, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	query := matchExpression(term)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT url, bm25(documents_fts) AS score,
			snippet(documents_fts, 2, '', '', '...', 16)
		FROM documents_fts
		WHERE documents_fts MATCH ? AND field = ?
		ORDER BY score
		LIMIT ?`, query, field, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}
	defer rows.Close()

	hits := make([]Hit, 0)
	for rows.Next() {
		var h Hit
		if err := rows.Scan(&h.URL, &h.Score, &h.Snippet); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		h.Score = -h.Score
		hits = append(hits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate hits: %w", err)
	}
	return hits, nil
}

// Count returns the number of documents stored under field.
func (s *SQLite) Count(ctx context.Context, field string) (int, error) {
	if s.isClosed() {
		return 0, ErrClosed
	}

	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE field = ?`, field).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// matchExpression turns free text into an FTS5 query that matches all
// words literally. Quotes inside a word are doubled.
func matchExpression(term string) string {
	words := strings.Fields(term)
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
	}
	return strings.Join(words, " ")
}

// contentDigest returns the hex SHA3-256 of text.
func contentDigest(text string) string {
	sum := sha3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
