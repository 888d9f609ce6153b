package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveDataPath(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	t.Setenv(DataPathEnv, "")

	got, err := ResolveDataPath("")
	if err != nil {
		t.Fatal(err)
	}
	if want := "/xdg/data/paper_tools"; got != want {
		t.Errorf("default = %q, want %q", got, want)
	}

	writeConfig(t, configHome, "data_path: /from/config\n")
	ResetGlobalConfigCache()
	if got, _ := ResolveDataPath(""); got != "/from/config" {
		t.Errorf("config = %q, want /from/config", got)
	}

	t.Setenv(DataPathEnv, "/from/env")
	if got, _ := ResolveDataPath(""); got != "/from/env" {
		t.Errorf("env = %q, want /from/env", got)
	}

	if got, _ := ResolveDataPath("/from/flag"); got != "/from/flag" {
		t.Errorf("flag = %q, want /from/flag", got)
	}
}

func TestDefaultDataPath_NoXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got, want := DefaultDataPath(), filepath.Join(home, ".local", "share", "paper_tools"); got != want {
		t.Errorf("DefaultDataPath() = %q, want %q", got, want)
	}
}

func TestEnsureDataPath_Creates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	got, err := EnsureDataPath(dir)
	if err != nil {
		t.Fatalf("EnsureDataPath() error = %v", err)
	}
	if got != dir {
		t.Errorf("EnsureDataPath() = %q, want %q", got, dir)
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		t.Errorf("data directory not created: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}

	tests := []struct {
		input string
		want  string
	}{
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"~/Documents", filepath.Join(home, "Documents")},
		{"~", home},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.input); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
