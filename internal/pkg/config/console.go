// internal/pkg/config/console.go
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

const (
	DefaultConsoleFileName = "console.toml"
	DefaultConsoleDBName   = "finops.db"
)

// Keymap binds console actions to keys
type Keymap struct {
	Quit       string `toml:"quit"`
	Up         string `toml:"up"`
	Down       string `toml:"down"`
	NextPage   string `toml:"next_page"`
	PrevPage   string `toml:"prev_page"`
	Search     string `toml:"search"`
	SortMenu   string `toml:"sort_menu"`
	FilterMenu string `toml:"filter_menu"`
	Copy       string `toml:"copy"`
	Resolve    string `toml:"resolve"`
	Dismiss    string `toml:"dismiss"`
	Clear      string `toml:"clear"`
	Cancel     string `toml:"cancel"`
}

// ConsoleConfig is the local settings file of finopsctl
type ConsoleConfig struct {
	DBPath      string `toml:"db_path"`
	PageSize    int    `toml:"page_size"`
	DefaultView string `toml:"default_view"`
	// AnalyzeDelay is how long the spinner shows before a resolution is applied
	AnalyzeDelay string `toml:"analyze_delay"`
	Keys         Keymap `toml:"keys"`
}

// DefaultConsolePath returns the settings path under the user config directory
func DefaultConsolePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return DefaultConsoleFileName
	}
	return filepath.Join(dir, "finops-console", DefaultConsoleFileName)
}

// LoadOrCreateConsole reads path, writing the defaults first when it does not exist
func LoadOrCreateConsole(path string) (ConsoleConfig, error) {
	cfg := DefaultConsoleConfig()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := writeConsole(path, cfg); err != nil {
			return cfg, err
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read console config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse console config: %w", err)
	}
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(path), DefaultConsoleDBName)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	return cfg, nil
}

func writeConsole(path string, cfg ConsoleConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// DefaultConsoleConfig returns the settings written on first launch
func DefaultConsoleConfig() ConsoleConfig {
	return ConsoleConfig{
		DBPath:       DefaultConsoleDBName,
		PageSize:     10,
		DefaultView:  "recommendations",
		AnalyzeDelay: "1500ms",
		Keys: Keymap{
			Quit:       "q",
			Up:         "k",
			Down:       "j",
			NextPage:   "l",
			PrevPage:   "h",
			Search:     "/",
			SortMenu:   "s",
			FilterMenu: "f",
			Copy:       "y",
			Resolve:    "r",
			Dismiss:    "d",
			Clear:      "c",
			Cancel:     "esc",
		},
	}
}
