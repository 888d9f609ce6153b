package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewOllamaProvider_Defaults(t *testing.T) {
	provider := NewOllamaProvider()

	if provider.baseURL != DefaultOllamaURL {
		t.Errorf("baseURL = %s, want %s", provider.baseURL, DefaultOllamaURL)
	}
	if provider.model != DefaultModel {
		t.Errorf("model = %s, want %s", provider.model, DefaultModel)
	}
	if provider.dimensions != DefaultDimensions {
		t.Errorf("dimensions = %d, want %d", provider.dimensions, DefaultDimensions)
	}
	if provider.client == nil {
		t.Error("client should not be nil")
	}
}

func TestNewOllamaProvider_WithOptions(t *testing.T) {
	customURL := "http://custom:8080"
	customModel := "custom-model"
	customDimensions := 768
	customTimeout := 60 * time.Second

	provider := NewOllamaProvider(
		WithBaseURL(customURL),
		WithModel(customModel),
		WithDimensions(customDimensions),
		WithTimeout(customTimeout),
	)

	if provider.baseURL != customURL {
		t.Errorf("baseURL = %s, want %s", provider.baseURL, customURL)
	}
	if provider.model != customModel {
		t.Errorf("model = %s, want %s", provider.model, customModel)
	}
	if provider.dimensions != customDimensions {
		t.Errorf("dimensions = %d, want %d", provider.dimensions, customDimensions)
	}
	if provider.client.Timeout != customTimeout {
		t.Errorf("timeout = %v, want %v", provider.client.Timeout, customTimeout)
	}
}

func newOllamaServer(t *testing.T, dims int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case apiPathTags:
			fmt.Fprint(w, `{"models": [{"name": "bge-large:latest"}]}`)
		case apiPathEmbed:
			var req ollamaEmbedRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			resp := ollamaEmbedResponse{Model: req.Model}
			for i := range req.Input {
				v := make([]float32, dims)
				v[0] = float32(i + 1)
				resp.Embeddings = append(resp.Embeddings, v)
			}
			json.NewEncoder(w).Encode(resp)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOllamaProvider_EmbedBatch(t *testing.T) {
	srv := newOllamaServer(t, 4)
	p := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(4))

	vecs, err := p.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch() error = %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors, want 3", len(vecs))
	}
	for i, v := range vecs {
		if v[0] != float32(i+1) {
			t.Errorf("vector %d out of order: %v", i, v)
		}
	}
}

func TestOllamaProvider_DimensionMismatch(t *testing.T) {
	srv := newOllamaServer(t, 3)
	p := NewOllamaProvider(WithBaseURL(srv.URL), WithDimensions(4))

	if _, err := p.EmbedBatch(context.Background(), []string{"a"}); err == nil {
		t.Error("EmbedBatch() should reject wrong dimensions")
	}
}

func TestOllamaProvider_HasModel(t *testing.T) {
	srv := newOllamaServer(t, 4)

	ok, err := NewOllamaProvider(WithBaseURL(srv.URL)).HasModel(context.Background())
	if err != nil || !ok {
		t.Errorf("HasModel() = %v, %v; want true", ok, err)
	}
	ok, err = NewOllamaProvider(WithBaseURL(srv.URL), WithModel("other")).HasModel(context.Background())
	if err != nil || ok {
		t.Errorf("HasModel(other) = %v, %v; want false", ok, err)
	}
	if err := NewOllamaProvider(WithBaseURL(srv.URL)).IsAvailable(context.Background()); err != nil {
		t.Errorf("IsAvailable() error = %v", err)
	}
}

func TestOllamaProvider_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "model not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(WithBaseURL(srv.URL)).EmbedBatch(context.Background(), []string{"x"})
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Errorf("EmbedBatch() error = %v, want body in message", err)
	}
}

func TestFormatErrorBody(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "simple error message",
			input:    "error occurred",
			expected: "error occurred",
		},
		{
			name:     "empty body",
			input:    "",
			expected: "",
		},
		{
			name:     "json error",
			input:    `{"error": "not found"}`,
			expected: `{"error": "not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := formatErrorBody(strings.NewReader(tt.input))
			if result != tt.expected {
				t.Errorf("formatErrorBody() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestOllamaProvider_ImplementsProvider(t *testing.T) {
	// Compile-time check that OllamaProvider implements Provider interface
	var _ Provider = (*OllamaProvider)(nil)
}
