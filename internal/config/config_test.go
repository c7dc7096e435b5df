package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("Default is valid", func(t *testing.T) {
		if err := Default().Validate(); err != nil {
			t.Errorf("Default().Validate() = %v", err)
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name    string
			modify  func(c *Config)
			wantErr string
		}{
			{"zero cache", func(c *Config) { c.CacheCapacity = 0 }, "cache_capacity"},
			{"negative workers", func(c *Config) { c.Workers = -1 }, "workers"},
			{"small sniff", func(c *Config) { c.SniffBytes = 10 }, "sniff_bytes"},
			{"one sniff line", func(c *Config) { c.SniffLines = 1 }, "sniff_lines"},
			{"bad level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
			{"negative interval", func(c *Config) { c.ProgressInterval = -time.Second }, "progress_interval"},
			{"many workers", func(c *Config) { c.Workers = 64 }, ""},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c := Default()
				tt.modify(c)
				err := c.Validate()
				if tt.wantErr == "" {
					if err != nil {
						t.Errorf("Validate() = %v, want nil", err)
					}
					return
				}
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("Level", func(t *testing.T) {
		tests := []struct {
			in   string
			want slog.Level
		}{
			{"debug", slog.LevelDebug},
			{"INFO", slog.LevelInfo},
			{" warn ", slog.LevelWarn},
			{"error", slog.LevelError},
		}
		for _, tt := range tests {
			c := &Config{LogLevel: tt.in}
			got, err := c.Level()
			if err != nil || got != tt.want {
				t.Errorf("Level(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
			}
		}
	})

	t.Run("Load", func(t *testing.T) {
		dir := t.TempDir()
		write := func(name, content string) string {
			p := filepath.Join(dir, name)
			if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
				t.Fatal(err)
			}
			return p
		}

		t.Run("empty path", func(t *testing.T) {
			c, err := Load("")
			if err != nil || *c != *Default() {
				t.Errorf("Load(\"\") = %+v, %v", c, err)
			}
		})
		t.Run("missing file", func(t *testing.T) {
			c, err := Load(filepath.Join(dir, "nope.yaml"))
			if err != nil || *c != *Default() {
				t.Errorf("Load() = %+v, %v", c, err)
			}
		})
		t.Run("empty file", func(t *testing.T) {
			c, err := Load(write("empty.yaml", ""))
			if err != nil || *c != *Default() {
				t.Errorf("Load() = %+v, %v", c, err)
			}
		})
		t.Run("partial overlay", func(t *testing.T) {
			c, err := Load(write("partial.yaml", "cache_capacity: 10\nprogress_interval: 500ms\nlog_level: debug\n"))
			if err != nil {
				t.Fatal(err)
			}
			want := Default()
			want.CacheCapacity = 10
			want.ProgressInterval = 500 * time.Millisecond
			want.LogLevel = "debug"
			if *c != *want {
				t.Errorf("Load() = %+v, want %+v", c, want)
			}
		})
		t.Run("unknown key", func(t *testing.T) {
			if _, err := Load(write("unknown.yaml", "cache_size: 10\n")); err == nil {
				t.Error("Load() expected error for unknown key")
			}
		})
		t.Run("invalid value", func(t *testing.T) {
			_, err := Load(write("invalid.yaml", "sniff_lines: 1\n"))
			if err == nil || !strings.Contains(err.Error(), "sniff_lines") {
				t.Errorf("Load() = %v, want sniff_lines error", err)
			}
		})
		t.Run("malformed", func(t *testing.T) {
			if _, err := Load(write("bad.yaml", "cache_capacity: [\n")); err == nil {
				t.Error("Load() expected parse error")
			}
		})
	})

	t.Run("Save round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "c.yaml")
		c := Default()
		c.Workers = 3
		c.ProgressInterval = 1500 * time.Millisecond
		if err := c.Save(path); err != nil {
			t.Fatalf("Save() = %v", err)
		}
		got, err := Load(path)
		if err != nil {
			t.Fatal(err)
		}
		if *got != *c {
			t.Errorf("Load() = %+v, want %+v", got, c)
		}
	})

	t.Run("Save rejects invalid", func(t *testing.T) {
		c := Default()
		c.CacheCapacity = -1
		if err := c.Save(filepath.Join(t.TempDir(), "c.yaml")); err == nil {
			t.Error("Save() expected error")
		}
	})

	t.Run("RecordOptions", func(t *testing.T) {
		c := Default()
		c.SniffBytes, c.SniffLines = 128, 3
		if o := c.RecordOptions(); o.SniffBytes != 128 || o.SniffLines != 3 {
			t.Errorf("RecordOptions() = %+v", o)
		}
	})
}

func TestSchema(t *testing.T) {
	data, err := Schema()
	if err != nil {
		t.Fatal(err)
	}
	var s struct {
		Title      string                    `json:"title"`
		Properties map[string]map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	for _, key := range []string{"cache_capacity", "workers", "sniff_bytes", "sniff_lines", "log_level", "progress_interval"} {
		p, ok := s.Properties[key]
		if !ok {
			t.Errorf("schema missing property %q", key)
			continue
		}
		if d, _ := p["description"].(string); d == "" {
			t.Errorf("property %q has no description", key)
		}
	}
	if got := s.Properties["progress_interval"]["type"]; got != "string" {
		t.Errorf("progress_interval type = %v, want string", got)
	}
}
