package app

import (
	"errors"
	"path/filepath"
	"testing"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func home(dir string) func() (string, error) {
	return func() (string, error) { return dir, nil }
}

func TestDefaultsFrom(t *testing.T) {
	t.Run("uses env vars when set", func(t *testing.T) {
		d, err := defaultsFrom(env(map[string]string{
			"WPM_CONFIG_PATH": "/custom/config.toml",
			"WPM_HOME":        "/custom/wpm",
		}), func() (string, error) { return "", errors.New("no home") })
		if err != nil {
			t.Fatalf("defaultsFrom() error = %v", err)
		}

		if d.ConfigPath != "/custom/config.toml" {
			t.Errorf("ConfigPath = %q, want %q", d.ConfigPath, "/custom/config.toml")
		}
		if d.BaseDir != "/custom/wpm" {
			t.Errorf("BaseDir = %q, want %q", d.BaseDir, "/custom/wpm")
		}
		if d.LogDir != "/custom/wpm/log" {
			t.Errorf("LogDir = %q, want %q", d.LogDir, "/custom/wpm/log")
		}
	})

	t.Run("falls back to home dir defaults", func(t *testing.T) {
		d, err := defaultsFrom(env(nil), home("/home/ana"))
		if err != nil {
			t.Fatalf("defaultsFrom() error = %v", err)
		}

		if want := filepath.Join("/home/ana", ".config", "wpm.toml"); d.ConfigPath != want {
			t.Errorf("ConfigPath = %q, want %q", d.ConfigPath, want)
		}
		wantBase := filepath.Join("/home/ana", ".local", "share", "wpm")
		if d.BaseDir != wantBase {
			t.Errorf("BaseDir = %q, want %q", d.BaseDir, wantBase)
		}
		if want := filepath.Join(wantBase, "log"); d.LogDir != want {
			t.Errorf("LogDir = %q, want %q", d.LogDir, want)
		}
	})

	t.Run("mixes env and home", func(t *testing.T) {
		d, err := defaultsFrom(env(map[string]string{"WPM_HOME": "/data"}), home("/home/ana"))
		if err != nil {
			t.Fatalf("defaultsFrom() error = %v", err)
		}
		if d.BaseDir != "/data" {
			t.Errorf("BaseDir = %q, want %q", d.BaseDir, "/data")
		}
		if want := filepath.Join("/home/ana", ".config", "wpm.toml"); d.ConfigPath != want {
			t.Errorf("ConfigPath = %q, want %q", d.ConfigPath, want)
		}
	})

	t.Run("home dir unknown", func(t *testing.T) {
		_, err := defaultsFrom(env(nil), func() (string, error) { return "", errors.New("no home") })
		if err == nil {
			t.Error("defaultsFrom() expected error, got nil")
		}
	})
}

func TestGetDefaults(t *testing.T) {
	t.Setenv("WPM_CONFIG_PATH", "/custom/config.toml")
	t.Setenv("WPM_HOME", "/custom/wpm")

	d, err := GetDefaults()
	if err != nil {
		t.Fatalf("GetDefaults() error = %v", err)
	}
	if d.ConfigPath != "/custom/config.toml" || d.BaseDir != "/custom/wpm" {
		t.Errorf("GetDefaults() = %+v", d)
	}
}
