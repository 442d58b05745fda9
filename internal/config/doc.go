// Package config holds the crawl configuration: defaults, validation and
// the optional YAML configuration file.
//
// Values are applied in increasing priority: defaults from NewConfig, the
// configuration file, then command line flags the user set explicitly.
package config
