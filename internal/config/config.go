package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DataPathEnv overrides every other data directory setting.
	DataPathEnv = "PAPER_TOOLS_DATA_PATH"

	// DataDirName is the directory created under XDG_DATA_HOME.
	DataDirName = "paper_tools"
)

// DefaultDataPath returns $XDG_DATA_HOME/paper_tools, falling back to
// ~/.local/share/paper_tools.
func DefaultDataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return DataDirName
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, DataDirName)
}

// ResolveDataPath picks the data directory. In order of precedence: the
// explicit flag value, PAPER_TOOLS_DATA_PATH, data_path from the global
// config, then DefaultDataPath.
func ResolveDataPath(flag string) (string, error) {
	if flag != "" {
		return ExpandPath(flag), nil
	}
	if env := os.Getenv(DataPathEnv); env != "" {
		return ExpandPath(env), nil
	}
	cfg, err := LoadGlobalConfig()
	if err != nil {
		return "", err
	}
	if cfg.DataPath != "" {
		return cfg.DataPath, nil
	}
	return DefaultDataPath(), nil
}

// EnsureDataPath resolves the data directory and creates it if missing.
func EnsureDataPath(flag string) (string, error) {
	path, err := ResolveDataPath(flag)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return path, nil
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
