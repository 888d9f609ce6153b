package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, configHome, body string) {
	t.Helper()
	dir := filepath.Join(configHome, GlobalConfigDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, GlobalConfigFile), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestGlobalConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	if got, want := GlobalConfigPath(), "/custom/config/papertools/config.yml"; got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot get home directory")
	}
	if got, want := GlobalConfigPath(), filepath.Join(home, ".config", "papertools", "config.yml"); got != want {
		t.Errorf("GlobalConfigPath() = %q, want %q", got, want)
	}
}

func TestLoadGlobalConfig_NotFound(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}
	if cfg == nil {
		t.Fatal("LoadGlobalConfig() returned nil")
	}
	if cfg.DataPath != "" || cfg.BatchSize != 0 {
		t.Errorf("LoadGlobalConfig() = %+v, want empty", cfg)
	}
}

func TestLoadGlobalConfig_Valid(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)
	writeConfig(t, tmpDir, `
data_path: ~/inspire
map_size: 1073741824
base_url: http://localhost:5000/api
min_interval: 1s
page_size: 25
batch_size: 100
vector_width: 4
embedding:
  provider: openai
  model: BAAI/bge-large-en-v1.5
  base_url: http://localhost:8080/v1
  dimensions: 1024
  query_instruction: "Represent this sentence for searching relevant passages: "
`)

	cfg, err := LoadGlobalConfig()
	if err != nil {
		t.Fatalf("LoadGlobalConfig() error = %v", err)
	}

	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "inspire"); cfg.DataPath != want {
		t.Errorf("DataPath = %q, want %q", cfg.DataPath, want)
	}
	if cfg.MapSize != 1<<30 {
		t.Errorf("MapSize = %d, want %d", cfg.MapSize, 1<<30)
	}
	if cfg.MinInterval != time.Second {
		t.Errorf("MinInterval = %v, want 1s", cfg.MinInterval)
	}
	if cfg.PageSize != 25 || cfg.BatchSize != 100 || cfg.VectorWidth != 4 {
		t.Errorf("sizes = %d/%d/%d", cfg.PageSize, cfg.BatchSize, cfg.VectorWidth)
	}
	if cfg.Embedding.Provider != "openai" || cfg.Embedding.Dimensions != 1024 {
		t.Errorf("Embedding = %+v", cfg.Embedding)
	}
	if cfg.Embedding.QueryInstruction == "" {
		t.Error("QueryInstruction not loaded")
	}

	// Cached until reset.
	writeConfig(t, tmpDir, "batch_size: 7\n")
	again, err := LoadGlobalConfig()
	if err != nil {
		t.Fatal(err)
	}
	if again.BatchSize != 100 {
		t.Errorf("cached BatchSize = %d, want 100", again.BatchSize)
	}
	ResetGlobalConfigCache()
	again, err = LoadGlobalConfig()
	if err != nil {
		t.Fatal(err)
	}
	if again.BatchSize != 7 {
		t.Errorf("reloaded BatchSize = %d, want 7", again.BatchSize)
	}
}

func TestLoadGlobalConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not yaml", "data_path: [unterminated"},
		{"bad duration", "min_interval: soon"},
		{"negative batch", "batch_size: -1"},
		{"bad vector width", "vector_width: 3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ResetGlobalConfigCache()
			defer ResetGlobalConfigCache()
			tmpDir := t.TempDir()
			t.Setenv("XDG_CONFIG_HOME", tmpDir)
			writeConfig(t, tmpDir, tt.body)

			if _, err := LoadGlobalConfig(); err == nil {
				t.Error("LoadGlobalConfig() should return an error")
			}
		})
	}
}

func TestGlobalConfig_Save(t *testing.T) {
	ResetGlobalConfigCache()
	defer ResetGlobalConfigCache()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := &GlobalConfig{BatchSize: 20, MinInterval: 250 * time.Millisecond}
	cfg.Embedding.Model = "bge-large"
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := LoadGlobalConfig()
	if err != nil {
		t.Fatal(err)
	}
	if got.BatchSize != 20 || got.MinInterval != 250*time.Millisecond || got.Embedding.Model != "bge-large" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestEmbeddingConfig_APIKeyFromEnv(t *testing.T) {
	t.Setenv(APIKeyEnv, "sk-env")

	cfg := &GlobalConfig{}
	if got := cfg.EmbeddingConfig().APIKey; got != "sk-env" {
		t.Errorf("APIKey = %q, want sk-env", got)
	}

	cfg.Embedding.APIKey = "sk-file"
	if got := cfg.EmbeddingConfig().APIKey; got != "sk-file" {
		t.Errorf("APIKey = %q, want sk-file", got)
	}
}
