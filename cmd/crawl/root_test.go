package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/crawl/internal/config"
)

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "crawl <url>" {
			t.Errorf("expected use 'crawl <url>', got %q", cmd.Use)
		}
	})

	t.Run("has version", func(t *testing.T) {
		t.Parallel()
		if cmd.Version == "" {
			t.Error("expected non-empty version")
		}
	})

	t.Run("has verbose flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.PersistentFlags().Lookup("verbose")
		if flag == nil {
			t.Fatal("expected verbose flag")
		}
		if flag.Shorthand != "v" {
			t.Errorf("expected shorthand 'v', got %q", flag.Shorthand)
		}
	})

	t.Run("crawl flag defaults", func(t *testing.T) {
		t.Parallel()

		tests := []struct {
			name      string
			shorthand string
			def       string
		}{
			{name: "depth", shorthand: "d", def: "1"},
			{name: "threads", shorthand: "t", def: "10"},
			{name: "interactive", shorthand: "i", def: "false"},
			{name: "timeout", def: "5s"},
			{name: "json", shorthand: "j", def: "false"},
			{name: "markdown", shorthand: "m", def: "false"},
			{name: "no-index", def: "false"},
			{name: "max-token-size", def: "0"},
		}
		for _, tt := range tests {
			flag := cmd.Flags().Lookup(tt.name)
			if flag == nil {
				t.Errorf("expected %s flag", tt.name)
				continue
			}
			if flag.Shorthand != tt.shorthand {
				t.Errorf("%s: expected shorthand %q, got %q", tt.name, tt.shorthand, flag.Shorthand)
			}
			if flag.DefValue != tt.def {
				t.Errorf("%s: expected default %q, got %q", tt.name, tt.def, flag.DefValue)
			}
		}
	})

	t.Run("has subcommands", func(t *testing.T) {
		t.Parallel()

		want := map[string]bool{"search <term>...": false, "init": false, "version": false}
		for _, sub := range cmd.Commands() {
			if _, ok := want[sub.Use]; ok {
				want[sub.Use] = true
			}
		}
		for use, found := range want {
			if !found {
				t.Errorf("expected %q subcommand", use)
			}
		}
	})
}

// TestBuildConfig tests how defaults, the configuration file and flags combine.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), ".crawl.yaml")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write config: %v", err)
		}
		return path
	}

	t.Run("file values apply and set flags win", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "depth: 3\nthreads: 2\ntimeout: 1s\n")
		cmd := NewRootCmd()
		if err := cmd.ParseFlags([]string{"-c", path, "--threads", "5", "-v", "http://example.com"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}

		cfg, err := buildConfig(cmd, cmd.Flags().Args())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Depth != 3 {
			t.Errorf("expected depth from file (3), got %d", cfg.Depth)
		}
		if cfg.Threads != 5 {
			t.Errorf("expected threads from flag (5), got %d", cfg.Threads)
		}
		if cfg.Timeout != time.Second {
			t.Errorf("expected timeout from file (1s), got %v", cfg.Timeout)
		}
		if !cfg.Verbose {
			t.Error("expected verbose to be set")
		}
		if cfg.Target != "http://example.com" {
			t.Errorf("expected target, got %q", cfg.Target)
		}
	})

	t.Run("last argument is the target", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "")
		cmd := NewRootCmd()
		if err := cmd.ParseFlags([]string{"-c", path, "first.com", " second.com "}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		cfg, err := buildConfig(cmd, cmd.Flags().Args())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Target != "second.com" {
			t.Errorf("expected trimmed last argument, got %q", cfg.Target)
		}
	})

	t.Run("token limit and log format", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "maxTokenSize: 512\nlogFormat: json\n")

		cmd := NewRootCmd()
		if err := cmd.ParseFlags([]string{"-c", path, "example.com"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		cfg, err := buildConfig(cmd, cmd.Flags().Args())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxTokenSize != 512 {
			t.Errorf("expected max token size from file (512), got %d", cfg.MaxTokenSize)
		}
		if cfg.LogFormat != config.LogFormatJSON {
			t.Errorf("expected log format from file (json), got %q", cfg.LogFormat)
		}

		cmd = NewRootCmd()
		if err := cmd.ParseFlags([]string{"-c", path, "--max-token-size", "64", "--log-format", "text", "example.com"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		cfg, err = buildConfig(cmd, cmd.Flags().Args())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.MaxTokenSize != 64 {
			t.Errorf("expected max token size from flag (64), got %d", cfg.MaxTokenSize)
		}
		if cfg.LogFormat != config.LogFormatText {
			t.Errorf("expected log format from flag (text), got %q", cfg.LogFormat)
		}
	})

	t.Run("no-index and headers", func(t *testing.T) {
		t.Parallel()

		path := writeConfig(t, "headers:\n  - \"X-From-File: 1\"\n")
		cmd := NewRootCmd()
		if err := cmd.ParseFlags([]string{"-c", path, "--no-index", "-H", "X-Flag: 2", "example.com"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		cfg, err := buildConfig(cmd, cmd.Flags().Args())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.IndexEnabled {
			t.Error("expected indexing to be disabled")
		}
		if len(cfg.Headers) != 2 {
			t.Errorf("expected headers from file and flag, got %v", cfg.Headers)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		cmd := NewRootCmd()
		if err := cmd.ParseFlags([]string{"-c", "/nonexistent/.crawl.yaml", "example.com"}); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		if _, err := buildConfig(cmd, cmd.Flags().Args()); !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}
