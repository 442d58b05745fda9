package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/crawl/internal/index"
)

// snippetLength is the number of snippet characters printed per hit.
const snippetLength = 100

// runInteractive reads search terms from term.in until "exit" or EOF and
// prints the matching pages. The crawl closes its own handle when it
// finishes, so the index is reopened here without creating it.
func runInteractive(ctx context.Context, dir, field string, term streams) error {
	idx, err := index.Open(dir, index.Options{EnableWAL: true})
	if err != nil {
		return err
	}
	defer idx.Close()

	scanner := bufio.NewScanner(term.in)
	for {
		fmt.Fprint(term.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(term.out)
			return scanner.Err()
		}

		query := scanner.Text()
		if query == "exit" {
			return nil
		}
		if query == "" {
			continue
		}

		if _, err := search(ctx, idx, field, query, term); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(term.errOut, "search failed: %v\n", err)
		}
	}
}

// search runs one query, prints its hits and returns how many there were.
// A query without searchable words prints nothing.
func search(ctx context.Context, idx index.Port, field, query string, term streams) (int, error) {
	hits, err := idx.Search(ctx, field, query)
	if errors.Is(err, index.ErrEmptyQuery) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	for _, h := range hits {
		fmt.Fprintf(term.out, "\t-> (%f) %s\n\t%q\n", h.Score, h.URL, truncate(h.Snippet, snippetLength))
	}
	return len(hits), nil
}

// truncate returns the first n characters of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

