package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Server.Port != 5000 {
		t.Errorf("expected default port 5000, got %d", cfg.Server.Port)
	}
	if cfg.UI.MinQueryLength != 2 {
		t.Errorf("expected default min_query_length 2, got %d", cfg.UI.MinQueryLength)
	}
	if cfg.UI.SearchDebounceMS != 300 {
		t.Errorf("expected default search_debounce_ms 300, got %d", cfg.UI.SearchDebounceMS)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "test.prompted.yml")

	original := DefaultConfig()
	original.Server.Port = 8080
	original.Server.MirrorDir = "mirror"
	original.Client.BaseURL = "http://localhost:8080"
	original.Export.Formats = []string{"md", "html"}
	original.Export.Include = []string{"Work/**"}
	original.Log.Level = "debug"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(original, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yml")
	if err := os.WriteFile(path, []byte("server:\n  port: 7000\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("port: got %d, want 7000", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.UI.MinQueryLength != 2 {
		t.Errorf("defaults lost: %+v", cfg)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("PROMPTED_SERVER__PORT", "9001")
	t.Setenv("PROMPTED_LOG__LEVEL", "warn")

	cfg, err := Load(filepath.Join(t.TempDir(), "none.yml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("port: got %d, want 9001", cfg.Server.Port)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level: got %q, want warn", cfg.Log.Level)
	}
}

func TestEnvKey(t *testing.T) {
	if got := envKey("PROMPTED_UI__MIN_QUERY_LENGTH"); got != "ui.min_query_length" {
		t.Errorf("envKey = %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"no database", func(c *Config) { c.Server.Database = "" }},
		{"bad base url", func(c *Config) { c.Client.BaseURL = "ftp://x" }},
		{"zero timeout", func(c *Config) { c.Client.TimeoutSeconds = 0 }},
		{"min query zero", func(c *Config) { c.UI.MinQueryLength = 0 }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad export format", func(c *Config) { c.Export.Formats = []string{"pdf"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" md, txt ,,html ")
	if diff := cmp.Diff([]string{"md", "txt", "html"}, got); diff != "" {
		t.Errorf("SplitList (-want +got):\n%s", diff)
	}
}
