package config

// Config is the top-level prompted configuration, corresponding to .prompted.yml.
type Config struct {
	Server ServerConfig `yaml:"server" koanf:"server"`
	Client ClientConfig `yaml:"client" koanf:"client"`
	UI     UIConfig     `yaml:"ui" koanf:"ui"`
	Log    LogConfig    `yaml:"log" koanf:"log"`
	Export ExportConfig `yaml:"export" koanf:"export"`
}

// ServerConfig configures `prompted serve`.
type ServerConfig struct {
	Host            string `yaml:"host" koanf:"host"`
	Port            int    `yaml:"port" koanf:"port"`
	Database        string `yaml:"database" koanf:"database"`
	MirrorDir       string `yaml:"mirror_dir" koanf:"mirror_dir"` // empty disables the mirror
	AllowAllOrigins bool   `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	Seed            bool   `yaml:"seed" koanf:"seed"`
}

// ClientConfig configures how the TUI and CLI reach the server.
type ClientConfig struct {
	BaseURL        string `yaml:"base_url" koanf:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	RetryGet       bool   `yaml:"retry_get" koanf:"retry_get"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	SearchDebounceMS int    `yaml:"search_debounce_ms" koanf:"search_debounce_ms"`
	MinQueryLength   int    `yaml:"min_query_length" koanf:"min_query_length"`
	PrefsPath        string `yaml:"prefs_path" koanf:"prefs_path"`
	LogFile          string `yaml:"log_file" koanf:"log_file"`
}

// LogConfig selects log verbosity and encoding.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`
	Format string `yaml:"format" koanf:"format"`
}

// ExportConfig holds defaults for `prompted export`.
type ExportConfig struct {
	Dir     string   `yaml:"dir" koanf:"dir"`
	Formats []string `yaml:"formats" koanf:"formats"`
	Include []string `yaml:"include" koanf:"include"`
}
