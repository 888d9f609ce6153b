// Package semantic provides nearest-neighbour search over abstract
// embeddings.
package semantic

import (
	"errors"
	"fmt"
	"time"

	"github.com/matsen/papertools/internal/storage"
)

// Errors returned by semantic index operations.
var (
	// ErrReadOnly is returned by Refresh when the embedding collection
	// rejects writes. It matches storage.ErrReadOnly.
	ErrReadOnly = fmt.Errorf("embedding index: %w", storage.ErrReadOnly)

	ErrInvalidK       = errors.New("k must be positive")
	ErrRecordNotFound = errors.New("record not in semantic index")
)

// State is the lifecycle stage of an Index.
type State int

const (
	// Uninitialized means no vectors have been loaded yet.
	Uninitialized State = iota
	// Ready means the in-memory index reflects the embedding collection as
	// of the last Build or Rebuild.
	Ready
)

func (s State) String() string {
	if s == Ready {
		return "ready"
	}
	return "uninitialized"
}

// Hit is one search result.
type Hit struct {
	ID    string  `json:"id"`
	Score float32 `json:"score"`
}

// RefreshStats contains statistics from an embedding refresh.
type RefreshStats struct {
	RecordsEmbedded int           `json:"records_embedded"`
	RecordsSkipped  int           `json:"records_skipped"` // up to date
	RecordsNoText   int           `json:"records_no_text"` // no abstract
	Batches         int           `json:"batches"`
	Duration        time.Duration `json:"duration"`
}

// CheckStats compares the record and embedding collections.
type CheckStats struct {
	Records      int      `json:"records"`
	WithAbstract int      `json:"with_abstract"`
	Indexed      int      `json:"indexed"`
	Missing      []string `json:"missing"` // records with an abstract but no vector
	Stale        []string `json:"stale"`   // vectors computed from an older abstract or model
	Orphaned     []string `json:"orphaned"`
}
