package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/matsen/papertools/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configSetCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the global configuration",
	RunE:  runConfigShow,
}

// ConfigResponse is the response for the config command.
type ConfigResponse struct {
	Path     string               `json:"path"`
	DataPath string               `json:"data_path"`
	Config   *config.GlobalConfig `json:"config"`
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	dataPath, err := config.ResolveDataPath(dataFlag)
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	shown := *cfg
	if shown.Embedding.APIKey != "" {
		shown.Embedding.APIKey = "********"
	}

	if humanOutput {
		data, err := yaml.Marshal(&shown)
		if err != nil {
			exitWithError(ExitError, "encoding config: %v", err)
		}
		fmt.Printf("# %s\n# data directory: %s\n%s", config.GlobalConfigPath(), dataPath, data)
		return nil
	}
	outputJSON(ConfigResponse{Path: config.GlobalConfigPath(), DataPath: dataPath, Config: &shown})
	return nil
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.GlobalConfigPath())
	},
}

// UpdateResponse is the response for config set.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value",
	Long: `Set a value in the global config file.

Keys: data_path, map_size, base_url, min_interval, page_size, batch_size,
embed_batch_size, vector_width, embedding.provider, embedding.model,
embedding.base_url, embedding.dimensions, embedding.query_instruction,
embedding.request_dimensions`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], args[1]
	cfg := *mustLoadConfig()

	if err := setConfigValue(&cfg, key, value); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Validate(); err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	if err := cfg.Save(); err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		fmt.Printf("Set %s = %s\n", key, value)
		return nil
	}
	outputJSON(UpdateResponse{Status: "updated", Key: key, Value: value})
	return nil
}

func setConfigValue(cfg *config.GlobalConfig, key, value string) error {
	atoi := func(dst *int) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
		return nil
	}

	switch key {
	case "data_path":
		cfg.DataPath = value
	case "map_size":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		cfg.MapSize = n
	case "base_url":
		cfg.BaseURL = value
	case "min_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		cfg.MinInterval = d
	case "page_size":
		return atoi(&cfg.PageSize)
	case "batch_size":
		return atoi(&cfg.BatchSize)
	case "embed_batch_size":
		return atoi(&cfg.EmbedBatchSize)
	case "vector_width":
		return atoi(&cfg.VectorWidth)
	case "embedding.provider":
		cfg.Embedding.Provider = value
	case "embedding.model":
		cfg.Embedding.Model = value
	case "embedding.base_url":
		cfg.Embedding.BaseURL = value
	case "embedding.dimensions":
		return atoi(&cfg.Embedding.Dimensions)
	case "embedding.query_instruction":
		cfg.Embedding.QueryInstruction = value
	case "embedding.request_dimensions":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		cfg.Embedding.RequestDimensions = b
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
