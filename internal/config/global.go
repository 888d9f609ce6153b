// Package config handles the global papertools configuration and the
// location of the data directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matsen/papertools/internal/embedding"
)

// GlobalConfig represents configuration stored in
// ~/.config/papertools/config.yml. Zero values mean "use the default".
type GlobalConfig struct {
	DataPath       string           `yaml:"data_path,omitempty" json:"data_path,omitempty"`
	MapSize        int64            `yaml:"map_size,omitempty" json:"map_size,omitempty"` // bytes per collection
	BaseURL        string           `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	MinInterval    time.Duration    `yaml:"min_interval,omitempty" json:"min_interval,omitempty"`
	PageSize       int              `yaml:"page_size,omitempty" json:"page_size,omitempty"`
	BatchSize      int              `yaml:"batch_size,omitempty" json:"batch_size,omitempty"` // ids per batched crawl step
	EmbedBatchSize int              `yaml:"embed_batch_size,omitempty" json:"embed_batch_size,omitempty"`
	VectorWidth    int              `yaml:"vector_width,omitempty" json:"vector_width,omitempty"` // bytes per component, 2 or 4
	Embedding      embedding.Config `yaml:"embedding,omitempty" json:"embedding,omitempty"`
}

const (
	// GlobalConfigDir is the directory name under XDG_CONFIG_HOME.
	GlobalConfigDir = "papertools"
	// GlobalConfigFile is the config file name.
	GlobalConfigFile = "config.yml"

	// APIKeyEnv names the variable consulted when embedding.api_key is unset.
	APIKeyEnv = "OPENAI_API_KEY"
)

// globalConfigCache caches the loaded global config.
var globalConfigCache *GlobalConfig

// GlobalConfigPath returns the path to the global config file.
// Respects XDG_CONFIG_HOME, defaults to ~/.config/papertools/config.yml.
func GlobalConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, GlobalConfigDir, GlobalConfigFile)
}

// LoadGlobalConfig loads the global configuration file.
// Returns an empty config (not an error) if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	if globalConfigCache != nil {
		return globalConfigCache, nil
	}

	path := GlobalConfigPath()
	if path == "" {
		return &GlobalConfig{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &GlobalConfig{}, nil
		}
		return nil, fmt.Errorf("reading global config: %w", err)
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing global config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid global config %s: %w", path, err)
	}

	if cfg.DataPath != "" {
		cfg.DataPath = ExpandPath(cfg.DataPath)
	}

	globalConfigCache = &cfg
	return &cfg, nil
}

// ResetGlobalConfigCache clears the cached global config.
// Useful for testing.
func ResetGlobalConfigCache() {
	globalConfigCache = nil
}

// Save writes cfg to the global config file, creating its directory.
func (c *GlobalConfig) Save() error {
	path := GlobalConfigPath()
	if path == "" {
		return fmt.Errorf("cannot locate config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	globalConfigCache = nil
	return nil
}

// Validate rejects values no component can work with.
func (c *GlobalConfig) Validate() error {
	switch {
	case c.MapSize < 0:
		return fmt.Errorf("map_size must not be negative")
	case c.MinInterval < 0:
		return fmt.Errorf("min_interval must not be negative")
	case c.PageSize < 0:
		return fmt.Errorf("page_size must not be negative")
	case c.BatchSize < 0:
		return fmt.Errorf("batch_size must not be negative")
	case c.EmbedBatchSize < 0:
		return fmt.Errorf("embed_batch_size must not be negative")
	case c.VectorWidth != 0 && c.VectorWidth != 2 && c.VectorWidth != 4:
		return fmt.Errorf("vector_width must be 2 or 4, got %d", c.VectorWidth)
	}
	return nil
}

// EmbeddingConfig returns the embedding settings with the API key filled
// from the environment when the file leaves it blank.
func (c *GlobalConfig) EmbeddingConfig() embedding.Config {
	cfg := c.Embedding
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(APIKeyEnv)
	}
	return cfg
}
