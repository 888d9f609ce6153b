package embedding

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	// DefaultOpenAIModel is the model name served by OpenAI-compatible
	// embedding servers hosting bge-large.
	DefaultOpenAIModel = "BAAI/bge-large-en-v1.5"

	openAIMaxBatch = 2048
)

// OpenAIProvider generates embeddings through an OpenAI-compatible
// embeddings endpoint, such as a text-embeddings-inference or vLLM server.
type OpenAIProvider struct {
	client         *openai.Client
	model          string
	dimensions     int
	sendDimensions bool
}

var _ Provider = (*OpenAIProvider)(nil)

type openAIConfig struct {
	baseURL        string
	model          string
	dimensions     int
	sendDimensions bool
	httpClient     *http.Client
}

// OpenAIOption configures an OpenAIProvider.
type OpenAIOption func(*openAIConfig)

// WithOpenAIBaseURL points the client at a compatible server.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(c *openAIConfig) { c.baseURL = url }
}

// WithOpenAIModel sets the model identifier.
func WithOpenAIModel(model string) OpenAIOption {
	return func(c *openAIConfig) { c.model = model }
}

// WithOpenAIDimensions sets the expected vector dimensions.
func WithOpenAIDimensions(dims int) OpenAIOption {
	return func(c *openAIConfig) { c.dimensions = dims }
}

// WithOpenAIRequestDimensions asks the server to truncate vectors to the
// configured dimensions. Only OpenAI's text-embedding-3 models honor it.
func WithOpenAIRequestDimensions() OpenAIOption {
	return func(c *openAIConfig) { c.sendDimensions = true }
}

// WithOpenAIHTTPClient replaces the HTTP client.
func WithOpenAIHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *openAIConfig) { c.httpClient = hc }
}

// NewOpenAIProvider creates an OpenAI-compatible provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	cfg := openAIConfig{
		model:      DefaultOpenAIModel,
		dimensions: DefaultDimensions,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(&cfg)
	}

	clientOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(cfg.httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(cfg.baseURL))
	}
	client := openai.NewClient(clientOpts...)

	return &OpenAIProvider{
		client:         &client,
		model:          cfg.model,
		dimensions:     cfg.dimensions,
		sendDimensions: cfg.sendDimensions,
	}
}

// EmbedBatch returns embeddings for texts. Batches larger than the API
// limit are split into several calls.
func (o *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	result := make([][]float32, len(texts))
	for i := 0; i < len(texts); i += openAIMaxBatch {
		end := min(i+openAIMaxBatch, len(texts))
		vecs, err := o.callAPI(ctx, texts[i:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", i, end, err)
		}
		copy(result[i:], vecs)
	}
	if err := checkDimensions(result, o.dimensions); err != nil {
		return nil, err
	}
	return result, nil
}

// ModelName returns the model identifier.
func (o *OpenAIProvider) ModelName() string {
	return o.model
}

// Dimensions returns the expected vector dimensions.
func (o *OpenAIProvider) Dimensions() int {
	return o.dimensions
}

func (o *OpenAIProvider) callAPI(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model:          o.model,
		Input:          openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	}
	if o.sendDimensions {
		params.Dimensions = openai.Int(int64(o.dimensions))
	}

	resp, err := o.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}

	vecs := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := item.Index
		if idx < 0 || idx >= int64(len(texts)) {
			return nil, fmt.Errorf("unexpected embedding index %d for batch size %d", idx, len(texts))
		}
		vecs[idx] = float64sToFloat32s(item.Embedding)
	}

	for i, v := range vecs {
		if v == nil {
			return nil, fmt.Errorf("missing embedding for index %d", i)
		}
	}
	return vecs, nil
}

func float64sToFloat32s(in []float64) []float32 {
	out := make([]float32, len(in))
	for i, v := range in {
		out[i] = float32(v)
	}
	return out
}
