package config

import (
	"os"
	"path/filepath"
)

// DefaultPath is the config file read when --config is not given.
const DefaultPath = ".prompted.yml"

// DefaultDataDir is where the database, preferences and logs live unless
// configured otherwise.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "prompted")
	}
	return ".prompted"
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	data := DefaultDataDir()
	return &Config{
		Server: ServerConfig{
			Host:     "127.0.0.1",
			Port:     5000,
			Database: filepath.Join(data, "prompted.db"),
			Seed:     true,
		},
		Client: ClientConfig{
			BaseURL:        "http://127.0.0.1:5000",
			TimeoutSeconds: 10,
			RetryGet:       true,
		},
		UI: UIConfig{
			SearchDebounceMS: 300,
			MinQueryLength:   2,
			PrefsPath:        filepath.Join(data, "prefs.db"),
			LogFile:          filepath.Join(data, "tui.log"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Export: ExportConfig{
			Dir:     ".",
			Formats: []string{"md"},
		},
	}
}
