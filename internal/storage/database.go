package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/matsen/papertools/internal/reference"
)

// Collection directory and file names under a database root.
const (
	RecordDir    = "record.db"
	BibTeXDir    = "bibtex.db"
	EmbeddingDir = "embedding.db"
	JournalFile  = "journal.sqlite"
)

// DefaultVectors is the embedding layout used when none is configured:
// half precision, 1024 dimensions.
var DefaultVectors = VectorCodec{Width: WidthFloat16, Dim: 1024}

// Database groups the three independent collections of one data directory.
// No operation spans collections atomically.
type Database struct {
	Records    *Collection[*reference.Record]
	BibTeX     *Collection[string]
	Embeddings *Collection[[]float32]

	root string
	opts Options
}

// OpenDatabase opens the record, BibTeX and embedding collections under root.
// Writable databases create root if needed.
func OpenDatabase(root string, opts Options, vectors VectorCodec) (*Database, error) {
	if !opts.ReadOnly && !opts.InMemory {
		if err := os.MkdirAll(root, 0755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	d := &Database{root: root, opts: opts}
	var err error
	if d.Records, err = Open[*reference.Record](filepath.Join(root, RecordDir), RecordCodec{}, opts); err != nil {
		return nil, fmt.Errorf("opening records: %w", err)
	}
	if d.BibTeX, err = Open[string](filepath.Join(root, BibTeXDir), TextCodec{}, opts); err != nil {
		d.Close()
		return nil, fmt.Errorf("opening bibtex: %w", err)
	}
	if d.Embeddings, err = Open[[]float32](filepath.Join(root, EmbeddingDir), vectors, opts); err != nil {
		d.Close()
		return nil, fmt.Errorf("opening embeddings: %w", err)
	}
	return d, nil
}

// Root returns the data directory.
func (d *Database) Root() string {
	return d.root
}

// ReadOnly reports whether the database rejects writes.
func (d *Database) ReadOnly() bool {
	return d.opts.ReadOnly
}

// JournalPath returns the location of the sqlite journal.
func (d *Database) JournalPath() string {
	return filepath.Join(d.root, JournalFile)
}

// CollectionStats summarizes one collection.
type CollectionStats struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Bytes int64  `json:"bytes"`
}

// Stats counts entries and reports sizes for every collection.
func (d *Database) Stats() ([]CollectionStats, error) {
	type sized interface {
		Len() (int, error)
		Size() int64
	}
	named := []struct {
		name string
		c    sized
	}{
		{"record", d.Records},
		{"bibtex", d.BibTeX},
		{"embedding", d.Embeddings},
	}

	stats := make([]CollectionStats, 0, len(named))
	for _, n := range named {
		count, err := n.c.Len()
		if err != nil {
			return nil, fmt.Errorf("counting %s: %w", n.name, err)
		}
		stats = append(stats, CollectionStats{Name: n.name, Count: count, Bytes: n.c.Size()})
	}
	return stats, nil
}

// Close closes every opened collection.
func (d *Database) Close() error {
	var errs []error
	if d.Records != nil {
		errs = append(errs, d.Records.Close())
	}
	if d.BibTeX != nil {
		errs = append(errs, d.BibTeX.Close())
	}
	if d.Embeddings != nil {
		errs = append(errs, d.Embeddings.Close())
	}
	return errors.Join(errs...)
}
