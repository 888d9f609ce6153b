package embedding

import (
	"context"
	"fmt"
	"net/http"
)

// Provider generates embeddings from text.
type Provider interface {
	// EmbedBatch returns one vector per text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Dimensions returns the expected vector dimensions.
	Dimensions() int
}

// Provider names accepted by NewProvider.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Config selects and configures a provider.
type Config struct {
	Provider   string `yaml:"provider" json:"provider,omitempty"`
	Model      string `yaml:"model" json:"model,omitempty"`
	BaseURL    string `yaml:"base_url" json:"base_url,omitempty"`
	Dimensions int    `yaml:"dimensions" json:"dimensions,omitempty"`
	APIKey     string `yaml:"api_key" json:"api_key,omitempty"`

	// QueryInstruction is prepended to search queries but not to indexed
	// documents, as bge models expect.
	QueryInstruction string `yaml:"query_instruction" json:"query_instruction,omitempty"`

	// RequestDimensions sends Dimensions with OpenAI requests. Only
	// matryoshka-capable models accept it.
	RequestDimensions bool `yaml:"request_dimensions,omitempty" json:"request_dimensions,omitempty"`

	HTTPClient *http.Client `yaml:"-" json:"-"`
}

// NewProvider builds the provider named by cfg.Provider. Empty fields fall
// back to each provider's defaults.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "", ProviderOllama:
		var opts []OllamaOption
		if cfg.BaseURL != "" {
			opts = append(opts, WithBaseURL(cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, WithModel(cfg.Model))
		}
		if cfg.Dimensions > 0 {
			opts = append(opts, WithDimensions(cfg.Dimensions))
		}
		if cfg.HTTPClient != nil {
			opts = append(opts, WithHTTPClient(cfg.HTTPClient))
		}
		return NewOllamaProvider(opts...), nil

	case ProviderOpenAI:
		var opts []OpenAIOption
		if cfg.BaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.BaseURL))
		}
		if cfg.Model != "" {
			opts = append(opts, WithOpenAIModel(cfg.Model))
		}
		if cfg.Dimensions > 0 {
			opts = append(opts, WithOpenAIDimensions(cfg.Dimensions))
		}
		if cfg.RequestDimensions {
			opts = append(opts, WithOpenAIRequestDimensions())
		}
		if cfg.HTTPClient != nil {
			opts = append(opts, WithOpenAIHTTPClient(cfg.HTTPClient))
		}
		return NewOpenAIProvider(cfg.APIKey, opts...), nil
	}
	return nil, fmt.Errorf("unknown embedding provider %q (want %s or %s)", cfg.Provider, ProviderOllama, ProviderOpenAI)
}
