// Loads and validates jsonlens configuration stored as YAML.

// Package config holds the tunables shared by the command line tool and the
// session layer.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/maruel/jsonlens/internal/records"
)

// Config stores all tunables. Loaded from a YAML file; absent keys keep
// their default value.
type Config struct {
	// CacheCapacity is the number of parsed records a session keeps.
	CacheCapacity int `yaml:"cache_capacity,omitempty" jsonschema:"description=Number of parsed records kept in memory per open file,minimum=1,default=256"`

	// Workers is the number of search goroutines. 0 means one per CPU.
	Workers int `yaml:"workers,omitempty" jsonschema:"description=Number of parallel search workers; 0 uses one per CPU,minimum=0"`

	// SniffBytes is the prefix size used to detect the file format.
	SniffBytes int `yaml:"sniff_bytes,omitempty" jsonschema:"description=Bytes read from the start of a file to detect its format,minimum=64,default=8192"`

	// SniffLines is the number of lines tried as standalone JSON.
	SniffLines int `yaml:"sniff_lines,omitempty" jsonschema:"description=Maximum non-empty lines parsed to detect NDJSON,minimum=2,default=8"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level,omitempty" jsonschema:"description=Minimum log level,enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// ProgressInterval throttles search progress logs.
	ProgressInterval time.Duration `yaml:"progress_interval,omitempty" jsonschema:"description=Minimum delay between search progress log lines (Go duration),type=string,example=2s"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		CacheCapacity:    256,
		Workers:          0,
		SniffBytes:       records.DefaultSniffBytes,
		SniffLines:       records.DefaultSniffLines,
		LogLevel:         "info",
		ProgressInterval: 2 * time.Second,
	}
}

// Validate checks that all values are in range.
func (c *Config) Validate() error {
	if c.CacheCapacity < 1 {
		return errors.New("cache_capacity must be at least 1")
	}
	if c.Workers < 0 {
		return errors.New("workers must be non-negative")
	}
	if c.SniffBytes < 64 {
		return errors.New("sniff_bytes must be at least 64")
	}
	if c.SniffLines < 2 {
		return errors.New("sniff_lines must be at least 2")
	}
	if _, err := c.Level(); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	if c.ProgressInterval < 0 {
		return errors.New("progress_interval must be non-negative")
	}
	return nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return 0, err
	}
	return l, nil
}

// RecordOptions returns the options passed to records.Open.
func (c *Config) RecordOptions() records.Options {
	return records.Options{SniffBytes: c.SniffBytes, SniffLines: c.SniffLines}
}

// Load reads the YAML file at path on top of Default.
//
// An empty path or a missing file yields the defaults. Unknown keys are
// rejected.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	f, err := os.Open(path) //nolint:gosec // G304: path is provided by the user
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Config file not found, using defaults", "path", path)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	if err := cfg.Decode(f); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// Decode overlays the YAML document read from r onto c. An empty document
// leaves c unchanged.
func (c *Config) Decode(r io.Reader) error {
	d := yaml.NewDecoder(r)
	d.KnownFields(true)
	if err := d.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Encode writes c as YAML.
func (c *Config) Encode(w io.Writer) error {
	e := yaml.NewEncoder(w)
	e.SetIndent(2)
	if err := e.Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return e.Close()
}

// Save validates c and writes it to path.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	var sb strings.Builder
	if err := c.Encode(&sb); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Schema returns the JSON Schema describing the configuration file.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{Anonymous: true, DoNotReference: true, FieldNameTag: "yaml"}
	s := r.Reflect(&Config{})
	s.Title = "jsonlens configuration"
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}
