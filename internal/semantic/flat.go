package semantic

import (
	"cmp"
	"fmt"
	"slices"
)

// FlatIP is an exhaustive inner-product index. Rows are stored in one
// contiguous slice in insertion order; a query scores every row.
type FlatIP struct {
	dim  int
	ids  []string
	rows map[string]int
	data []float32
}

// NewFlatIP creates an empty index for vectors of dim dimensions.
func NewFlatIP(dim int) *FlatIP {
	return &FlatIP{dim: dim, rows: make(map[string]int)}
}

// Dim returns the vector dimension.
func (f *FlatIP) Dim() int {
	return f.dim
}

// Len returns the number of rows.
func (f *FlatIP) Len() int {
	return len(f.ids)
}

// Add appends one row per id. An id already present is replaced in place.
func (f *FlatIP) Add(ids []string, vecs [][]float32) error {
	if len(ids) != len(vecs) {
		return fmt.Errorf("got %d ids for %d vectors", len(ids), len(vecs))
	}
	for i, v := range vecs {
		if len(v) != f.dim {
			return fmt.Errorf("vector %s: dimension mismatch: got %d, want %d", ids[i], len(v), f.dim)
		}
	}
	for i, id := range ids {
		if row, ok := f.rows[id]; ok {
			copy(f.data[row*f.dim:], vecs[i])
			continue
		}
		f.rows[id] = len(f.ids)
		f.ids = append(f.ids, id)
		f.data = append(f.data, vecs[i]...)
	}
	return nil
}

// Vector returns the stored row for id.
func (f *FlatIP) Vector(id string) ([]float32, bool) {
	row, ok := f.rows[id]
	if !ok {
		return nil, false
	}
	return f.data[row*f.dim : (row+1)*f.dim], true
}

// Search returns the k rows with the largest inner product with query,
// best first. Equal scores keep row order. When k exceeds the number of
// rows every row is returned.
func (f *FlatIP) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, ErrInvalidK
	}
	if len(query) != f.dim {
		return nil, fmt.Errorf("query dimension mismatch: got %d, want %d", len(query), f.dim)
	}

	hits := make([]Hit, len(f.ids))
	for row, id := range f.ids {
		hits[row] = Hit{ID: id, Score: dot(query, f.data[row*f.dim:(row+1)*f.dim])}
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return hits[:min(k, len(hits))], nil
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
