// Package index stores crawled page text for full-text search.
//
// The crawler talks to the index through the Port interface. SQLite is the
// on-disk implementation: documents live in an FTS5 virtual table and are
// ranked with bm25. Nop is used when indexing is disabled or the database
// cannot be opened, and Synchronized lets many workers share one Port.
//
// A document is keyed by URL and field. Adding the same URL again replaces
// the stored text, unless the SHA3-256 digest of the text is unchanged, in
// which case the write is skipped.
package index
