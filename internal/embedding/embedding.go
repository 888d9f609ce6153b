// Package embedding provides vector embedding generation for text.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrEmptyInput is returned when asked to embed nothing.
var ErrEmptyInput = errors.New("embedding: empty input")

// Embedding represents a vector embedding of text.
type Embedding struct {
	Vector []float32 // The embedding vector (1024 dimensions for bge-large)
}

// Dimensions returns the dimensionality of the embedding.
func (e Embedding) Dimensions() int {
	return len(e.Vector)
}

// Embed embeds a single text with p.
func Embed(ctx context.Context, p Provider, text string) (Embedding, error) {
	if text == "" {
		return Embedding{}, ErrEmptyInput
	}
	vecs, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Embedding{}, err
	}
	if len(vecs) != 1 {
		return Embedding{}, fmt.Errorf("embedding: got %d vectors for 1 input", len(vecs))
	}
	return Embedding{Vector: vecs[0]}, nil
}

// Normalize scales v in place to unit L2 norm. A zero vector is left as is.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
	return v
}

func checkDimensions(vecs [][]float32, want int) error {
	for i, v := range vecs {
		if want > 0 && len(v) != want {
			return fmt.Errorf("unexpected embedding dimensions for input %d: got %d, want %d", i, len(v), want)
		}
	}
	return nil
}
