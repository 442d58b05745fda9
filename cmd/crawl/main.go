// Package main provides the entry point for the crawl CLI.
//
// crawl visits the pages reachable from a seed URL up to a link depth and
// prints the normalized URLs it found.
//
// Usage:
//
//	crawl <url> [--depth N] [--threads N] [-i]
//	crawl search <term>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
