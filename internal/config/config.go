// Package config provides the tablegrid configuration file: defaults, YAML
// loading and fail-fast validation.
package config

import (
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/roach88/tablegrid/internal/engine"
	"github.com/roach88/tablegrid/internal/remote"
	"github.com/roach88/tablegrid/internal/search"
	"github.com/roach88/tablegrid/internal/table"
	"github.com/roach88/tablegrid/internal/virtual"
)

// Config holds all tablegrid configuration.
type Config struct {
	Logging LoggingConfig `yaml:"logging"`
	Filter  FilterConfig  `yaml:"filter"`
	Search  SearchConfig  `yaml:"search"`
	Virtual VirtualConfig `yaml:"virtual"`
	Resize  ResizeConfig  `yaml:"resize"`
	Server  ServerConfig  `yaml:"server"`

	// Locale is the BCP-47 tag used for sort collation (default: en)
	Locale string `yaml:"locale"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `yaml:"level"`

	// Format is the log format: text or json (default: text)
	Format string `yaml:"format"`
}

// FilterConfig holds filter input settings.
type FilterConfig struct {
	// Debounce is the delay before a typed term is committed (default: 300ms)
	Debounce time.Duration `yaml:"debounce"`
}

// SearchConfig holds fuzzy search settings.
type SearchConfig struct {
	// Enabled delegates filtering to the fuzzy index (default: false)
	Enabled bool `yaml:"enabled"`

	// Threshold is the match looseness in [0, 1] (default: 0.3)
	Threshold float64 `yaml:"threshold"`

	// Keys restricts the indexed columns; empty indexes every column
	Keys []string `yaml:"keys"`
}

// VirtualConfig holds windowing settings.
type VirtualConfig struct {
	// Enabled turns on row windowing (default: false)
	Enabled bool `yaml:"enabled"`

	// RowHeight is the uniform row height in pixels (default: 48)
	RowHeight float64 `yaml:"row_height"`

	// Overscan is the number of extra rows rendered on each side (default: 5)
	Overscan int `yaml:"overscan"`

	// ContainerHeight is the initial viewport height; 0 means unmeasured
	ContainerHeight float64 `yaml:"container_height"`

	// ScrollingDelay coalesces scroll events to one recompute per delay (default: 0)
	ScrollingDelay time.Duration `yaml:"scrolling_delay"`
}

// ResizeConfig holds column resize settings.
type ResizeConfig struct {
	// Mode is onChange or onResize (default: onChange)
	Mode table.ResizeMode `yaml:"mode"`
}

// ServerConfig holds remote paging and the HTTP row service settings.
type ServerConfig struct {
	// Enabled makes the remote source the ordering authority (default: false)
	Enabled bool `yaml:"enabled"`

	// PageSize is the rows requested per page (default: 50)
	PageSize int `yaml:"page_size"`

	// HTTPAddr is the listen address for `tablegrid serve` (default: :8080)
	HTTPAddr string `yaml:"http_addr"`

	// Database is a SQLite path or a postgres:// URL (default: tablegrid.db)
	Database string `yaml:"database"`

	// MaxConns caps the postgres pool (default: 0, pgx default)
	MaxConns int32 `yaml:"max_conns"`

	// ShutdownTimeout bounds graceful HTTP shutdown (default: 10s)
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Filter:  FilterConfig{Debounce: engine.DefaultDebounce},
		Search:  SearchConfig{Threshold: search.DefaultThreshold},
		Virtual: VirtualConfig{RowHeight: engine.DefaultRowHeight, Overscan: engine.DefaultOverscan},
		Resize:  ResizeConfig{Mode: table.ResizeOnChange},
		Server: ServerConfig{
			PageSize:        remote.DefaultPageSize,
			HTTPAddr:        ":8080",
			Database:        "tablegrid.db",
			ShutdownTimeout: 10 * time.Second,
		},
		Locale: "en",
	}
}

// LocaleTag parses Locale, falling back to English.
func (c *Config) LocaleTag() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}

// IsPostgres reports whether Server.Database names a postgres database.
func (c *ServerConfig) IsPostgres() bool {
	return strings.HasPrefix(c.Database, "postgres://") || strings.HasPrefix(c.Database, "postgresql://")
}

// EngineOptions derives table options from c. Server paging needs a
// fetcher, so callers add engine.WithServer themselves when
// Server.Enabled is set.
func EngineOptions[R any](c *Config) []engine.Option[R] {
	opts := []engine.Option[R]{
		engine.WithDebounce[R](c.Filter.Debounce),
		engine.WithLocale[R](c.LocaleTag()),
		engine.WithState(table.WithResizeMode[R](c.Resize.Mode)),
	}
	if c.Search.Enabled {
		opts = append(opts, engine.WithFuzzy[R](c.Search.Keys, c.Search.Threshold))
	}
	if c.Virtual.Enabled {
		opts = append(opts,
			engine.WithVirtual[R](virtual.Model{RowHeight: c.Virtual.RowHeight}, c.Virtual.Overscan, c.Virtual.ContainerHeight),
			engine.WithScrollingDelay[R](c.Virtual.ScrollingDelay),
		)
	}
	return opts
}
