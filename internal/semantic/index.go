package semantic

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"sync"

	"github.com/matsen/papertools/internal/embedding"
	"github.com/matsen/papertools/internal/reference"
	"github.com/matsen/papertools/internal/storage"
)

const (
	// DefaultBatchSize is the number of abstracts sent per model call.
	DefaultBatchSize = 32

	// MaxAbstractLength is the maximum abstract length (in characters) to embed.
	// bge-large reads 512 tokens; the server truncates further.
	MaxAbstractLength = 8000
)

// RecordSource is the read side of a record collection.
type RecordSource interface {
	Items() iter.Seq2[storage.Item[*reference.Record], error]
	Len() (int, error)
}

// VectorStore is an embedding collection.
type VectorStore interface {
	Items() iter.Seq2[storage.Item[[]float32], error]
	Keys() iter.Seq2[string, error]
	Contains(key string) (bool, error)
	SetMany(entries map[string][]float32) error
	ReadOnly() bool
}

// Index answers nearest-neighbour queries over the embedding collection.
// Vectors are loaded into memory on first use and stay there until Rebuild.
type Index struct {
	records    RecordSource
	embeddings VectorStore
	provider   embedding.Provider
	journal    *storage.Journal
	batchSize  int
	instr      string
	logger     *slog.Logger
	progress   ProgressReporter

	mu    sync.Mutex
	state State
	flat  *FlatIP
}

// Option configures an Index.
type Option func(*Index)

// WithJournal records embedding metadata in j during Refresh and enables
// staleness checks.
func WithJournal(j *storage.Journal) Option {
	return func(idx *Index) {
		idx.journal = j
	}
}

// WithBatchSize sets how many abstracts are embedded per model call.
func WithBatchSize(n int) Option {
	return func(idx *Index) {
		if n > 0 {
			idx.batchSize = n
		}
	}
}

// WithQueryInstruction sets a prefix added to search queries before they
// are embedded.
func WithQueryInstruction(s string) Option {
	return func(idx *Index) {
		idx.instr = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(idx *Index) {
		idx.logger = l
	}
}

// WithProgress sets the reporter notified during Refresh.
func WithProgress(p ProgressReporter) Option {
	return func(idx *Index) {
		idx.progress = p
	}
}

// New creates an Index in the Uninitialized state.
func New(records RecordSource, embeddings VectorStore, provider embedding.Provider, opts ...Option) *Index {
	idx := &Index{
		records:    records,
		embeddings: embeddings,
		provider:   provider,
		batchSize:  DefaultBatchSize,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// State reports the lifecycle stage.
func (idx *Index) State() State {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.state
}

// Len returns the number of loaded vectors, or 0 before Build.
func (idx *Index) Len() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.flat == nil {
		return 0
	}
	return idx.flat.Len()
}

// Build loads every stored vector. It does nothing when the index is
// already Ready.
func (idx *Index) Build(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.ensureReady(ctx)
}

// Rebuild discards the loaded vectors and reads them again.
func (idx *Index) Rebuild(ctx context.Context) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.state = Uninitialized
	idx.flat = nil
	return idx.ensureReady(ctx)
}

// ensureReady must be called with mu held.
func (idx *Index) ensureReady(ctx context.Context) error {
	if idx.state == Ready {
		return nil
	}

	var (
		ids  []string
		vecs [][]float32
	)
	for item, err := range idx.embeddings.Items() {
		if err != nil {
			return fmt.Errorf("loading embeddings: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		ids = append(ids, item.Key)
		vecs = append(vecs, item.Value)
	}

	dim := idx.provider.Dimensions()
	if len(vecs) > 0 {
		dim = len(vecs[0])
	}
	flat := NewFlatIP(dim)
	if err := flat.Add(ids, vecs); err != nil {
		return fmt.Errorf("loading embeddings: %w", err)
	}

	idx.flat = flat
	idx.state = Ready
	idx.logger.Debug("semantic index ready", "vectors", flat.Len(), "dim", dim)
	return nil
}

// Search embeds all queries in one model call and returns the k nearest
// records for each, best first. Fewer than k hits come back when the index
// holds fewer than k vectors; an empty index yields an empty list per query
// without calling the model.
func (idx *Index) Search(ctx context.Context, queries []string, k int) ([][]Hit, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(queries) == 0 {
		return [][]Hit{}, nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.ensureReady(ctx); err != nil {
		return nil, err
	}
	if idx.flat.Len() == 0 {
		results := make([][]Hit, len(queries))
		for i := range results {
			results[i] = []Hit{}
		}
		return results, nil
	}

	texts := make([]string, len(queries))
	for i, q := range queries {
		texts[i] = idx.instr + q
	}
	vecs, err := idx.provider.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding queries: %w", err)
	}
	if len(vecs) != len(queries) {
		return nil, fmt.Errorf("embedding queries: got %d vectors for %d queries", len(vecs), len(queries))
	}

	results := make([][]Hit, len(vecs))
	for i, v := range vecs {
		hits, err := idx.flat.Search(embedding.Normalize(v), k)
		if err != nil {
			return nil, fmt.Errorf("query %d: %w", i, err)
		}
		results[i] = hits
	}
	return results, nil
}

// Similar returns the k records nearest to the stored vector of id,
// excluding id itself.
func (idx *Index) Similar(ctx context.Context, id string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if err := idx.ensureReady(ctx); err != nil {
		return nil, err
	}
	v, ok := idx.flat.Vector(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, id)
	}

	hits, err := idx.flat.Search(v, k+1)
	if err != nil {
		return nil, err
	}
	out := make([]Hit, 0, k)
	for _, h := range hits {
		if h.ID != id && len(out) < k {
			out = append(out, h)
		}
	}
	return out, nil
}
