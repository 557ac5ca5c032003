package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and saves the result
// to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to prompted! Let's configure your workspace.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Server port.
	portPrompt := promptui.Prompt{
		Label:    "Server port",
		Default:  strconv.Itoa(cfg.Server.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("server port: %w", err)
	}
	cfg.Server.Port, _ = strconv.Atoi(strings.TrimSpace(portStr))
	cfg.Client.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)

	// 2. Database location.
	dbPrompt := promptui.Prompt{
		Label:   "Database file",
		Default: cfg.Server.Database,
	}
	if cfg.Server.Database, err = dbPrompt.Run(); err != nil {
		return nil, fmt.Errorf("database path: %w", err)
	}

	// 3. Optional markdown mirror.
	mirrorPrompt := promptui.Prompt{
		Label:   "Mirror templates as .md files into (leave blank to disable)",
		Default: "",
	}
	if cfg.Server.MirrorDir, err = mirrorPrompt.Run(); err != nil {
		return nil, fmt.Errorf("mirror dir: %w", err)
	}

	// 4. Export formats.
	formatPrompt := promptui.Select{
		Label: "Default export formats",
		Items: []string{
			"md        - markdown with metadata header",
			"md,txt    - markdown and plain text",
			"md,txt,html - everything",
		},
	}
	idx, _, err := formatPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("export formats: %w", err)
	}
	cfg.Export.Formats = [][]string{{"md"}, {"md", "txt"}, {"md", "txt", "html"}}[idx]

	// 5. Log level.
	levelPrompt := promptui.Select{
		Label: "Log level",
		Items: []string{"info", "debug", "warn", "error"},
	}
	if _, cfg.Log.Level, err = levelPrompt.Run(); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("enter a port between 1 and 65535")
	}
	return nil
}

// SplitList splits a comma-separated string and trims whitespace.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
