package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the paths wpm uses when the config file does not say
// otherwise.
type Defaults struct {
	ConfigPath string // WPM_CONFIG_PATH, else ~/.config/wpm.toml
	BaseDir    string // WPM_HOME, else ~/.local/share/wpm
	LogDir     string
}

// GetDefaults returns application default paths, checking environment
// variables first.
func GetDefaults() (*Defaults, error) {
	return defaultsFrom(os.Getenv, os.UserHomeDir)
}

func defaultsFrom(getenv func(string) string, homeDir func() (string, error)) (*Defaults, error) {
	configPath := getenv("WPM_CONFIG_PATH")
	baseDir := getenv("WPM_HOME")

	if configPath == "" || baseDir == "" {
		home, err := homeDir()
		if err != nil {
			return nil, fmt.Errorf("cannot determine home directory: %w", err)
		}
		if configPath == "" {
			configPath = filepath.Join(home, ".config", "wpm.toml")
		}
		if baseDir == "" {
			baseDir = filepath.Join(home, ".local", "share", "wpm")
		}
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}
