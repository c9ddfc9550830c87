package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/roach88/tablegrid/internal/logging"
	"github.com/roach88/tablegrid/internal/remote"
)

// Load reads the YAML file at path over the defaults and validates the
// result. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("config load %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(data); err != nil {
		return nil, fmt.Errorf("config parse: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// decode rejects unknown keys so a misspelled option is not silently
// ignored.
func (c *Config) decode(data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	if !logging.ValidLevel(c.Logging.Level) {
		errs = append(errs, fmt.Sprintf("logging.level (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format (%q) must be one of: text, json", c.Logging.Format))
	}

	if c.Filter.Debounce < 0 {
		errs = append(errs, "filter.debounce must be non-negative")
	}

	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		errs = append(errs, fmt.Sprintf("search.threshold (%g) must be within [0, 1]", c.Search.Threshold))
	}

	if c.Virtual.RowHeight <= 0 {
		errs = append(errs, "virtual.row_height must be positive")
	}
	if c.Virtual.Overscan < 0 {
		errs = append(errs, "virtual.overscan must be non-negative")
	}
	if c.Virtual.ContainerHeight < 0 {
		errs = append(errs, "virtual.container_height must be non-negative")
	}
	if c.Virtual.ScrollingDelay < 0 {
		errs = append(errs, "virtual.scrolling_delay must be non-negative")
	}

	if !c.Resize.Mode.Valid() {
		errs = append(errs, fmt.Sprintf("resize.mode (%q) must be one of: onChange, onResize", c.Resize.Mode))
	}

	if c.Server.PageSize <= 0 || c.Server.PageSize > remote.MaxPageSize {
		errs = append(errs, fmt.Sprintf("server.page_size (%d) must be 1-%d", c.Server.PageSize, remote.MaxPageSize))
	}
	if c.Server.Database == "" {
		errs = append(errs, "server.database is required")
	}
	if c.Server.MaxConns < 0 {
		errs = append(errs, "server.max_conns must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "server.shutdown_timeout must be positive")
	}

	if _, err := language.Parse(c.Locale); err != nil {
		errs = append(errs, fmt.Sprintf("locale (%q) is not a valid BCP-47 tag", c.Locale))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// String returns a safe string representation of the config for logging.
// The database location is masked when it is a URL.
func (c *Config) String() string {
	db := c.Server.Database
	if c.Server.IsPostgres() {
		db = "[MASKED]"
	}
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}, ", c.Logging.Level, c.Logging.Format)
	fmt.Fprintf(&b, "Filter: {Debounce: %s}, ", c.Filter.Debounce)
	fmt.Fprintf(&b, "Search: {Enabled: %v, Threshold: %g}, ", c.Search.Enabled, c.Search.Threshold)
	fmt.Fprintf(&b, "Virtual: {Enabled: %v, RowHeight: %g, Overscan: %d}, ",
		c.Virtual.Enabled, c.Virtual.RowHeight, c.Virtual.Overscan)
	fmt.Fprintf(&b, "Resize: {Mode: %s}, ", c.Resize.Mode)
	fmt.Fprintf(&b, "Server: {Enabled: %v, PageSize: %d, HTTPAddr: %q, Database: %s}, ",
		c.Server.Enabled, c.Server.PageSize, c.Server.HTTPAddr, db)
	fmt.Fprintf(&b, "Locale: %q", c.Locale)
	b.WriteString("}")
	return b.String()
}
