package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the configuration file name searched for in the
// current and home directories.
const DefaultConfigFile = ".crawl.yaml"

// xdgConfigFile is the configuration file name inside XDGConfigDir.
const xdgConfigFile = "config.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File is the structure of the YAML configuration file. Every field is
// optional; nil fields leave the current value untouched.
type File struct {
	Depth           *int     `yaml:"depth,omitempty"`
	Threads         *int     `yaml:"threads,omitempty"`
	Timeout         *string  `yaml:"timeout,omitempty"`
	FallbackCharset *string  `yaml:"fallbackCharset,omitempty"`
	UserAgent       *string  `yaml:"userAgent,omitempty"`
	MaxBodySize     *int64   `yaml:"maxBodySize,omitempty"`
	MaxTokenSize    *int     `yaml:"maxTokenSize,omitempty"`
	Proxy           *string  `yaml:"proxy,omitempty"`
	Headers         []string `yaml:"headers,omitempty"`
	Index           *Index   `yaml:"index,omitempty"`
	Metrics         *string  `yaml:"metrics,omitempty"`
	LogFormat       *string  `yaml:"logFormat,omitempty"`
}

// Index is the index section of the configuration file.
type Index struct {
	Enabled *bool   `yaml:"enabled,omitempty"`
	Dir     *string `yaml:"dir,omitempty"`
	Field   *string `yaml:"field,omitempty"`
}

// LoadConfigFile reads a configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &cf, nil
}

// Apply copies the values set in the file onto cfg.
func (cf *File) Apply(cfg *Config) error {
	if cf.Depth != nil {
		cfg.Depth = *cf.Depth
	}
	if cf.Threads != nil {
		cfg.Threads = *cf.Threads
	}
	if cf.Timeout != nil {
		d, err := time.ParseDuration(*cf.Timeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", *cf.Timeout, err)
		}
		cfg.Timeout = d
	}
	if cf.FallbackCharset != nil {
		cfg.FallbackCharset = *cf.FallbackCharset
	}
	if cf.UserAgent != nil {
		cfg.UserAgent = *cf.UserAgent
	}
	if cf.MaxBodySize != nil {
		cfg.MaxBodySize = *cf.MaxBodySize
	}
	if cf.MaxTokenSize != nil {
		cfg.MaxTokenSize = *cf.MaxTokenSize
	}
	if cf.Proxy != nil {
		cfg.ProxyAddress = *cf.Proxy
	}
	if len(cf.Headers) > 0 {
		cfg.Headers = append(cfg.Headers, cf.Headers...)
	}
	if cf.Index != nil {
		if cf.Index.Enabled != nil {
			cfg.IndexEnabled = *cf.Index.Enabled
		}
		if cf.Index.Dir != nil {
			cfg.IndexDir = *cf.Index.Dir
		}
		if cf.Index.Field != nil {
			cfg.IndexField = *cf.Index.Field
		}
	}
	if cf.Metrics != nil {
		cfg.MetricsAddress = *cf.Metrics
	}
	if cf.LogFormat != nil {
		cfg.LogFormat = *cf.LogFormat
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. configPath, if specified
// 2. .crawl.yaml in the current directory
// 3. .crawl.yaml in the user's home directory
// 4. config.yaml in XDGConfigDir
//
// It returns an empty string when no file is found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), xdgConfigFile))

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
