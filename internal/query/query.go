// Package query filters and orders cached literature records.
package query

import (
	"cmp"
	"iter"
	"slices"
	"strings"
	"time"

	"github.com/matsen/papertools/internal/reference"
)

// Predicate reports whether a record is kept.
type Predicate func(*reference.Record) bool

// ByYear keeps records created in year. Records without a parseable
// creation date are dropped.
func ByYear(year int) Predicate {
	return func(r *reference.Record) bool {
		t, err := r.CreatedTime()
		return err == nil && t.Year() == year
	}
}

// After keeps records created at or after t.
func After(t time.Time) Predicate {
	return func(r *reference.Record) bool {
		c, err := r.CreatedTime()
		return err == nil && !c.Before(t)
	}
}

// Before keeps records created at or before t.
func Before(t time.Time) Predicate {
	return func(r *reference.Record) bool {
		c, err := r.CreatedTime()
		return err == nil && !c.After(t)
	}
}

// ByAuthor keeps records with an author whose full name contains name,
// ignoring case.
func ByAuthor(name string) Predicate {
	needle := strings.ToLower(name)
	return func(r *reference.Record) bool {
		for _, a := range r.Metadata.Authors {
			if strings.Contains(strings.ToLower(a.FullName), needle) {
				return true
			}
		}
		return false
	}
}

// ByTitle keeps records with a title containing keyword, ignoring case.
func ByTitle(keyword string) Predicate {
	needle := strings.ToLower(keyword)
	return func(r *reference.Record) bool {
		for _, t := range r.Metadata.Titles {
			if strings.Contains(strings.ToLower(t.Title), needle) {
				return true
			}
		}
		return false
	}
}

// ByAbstract keeps records with an abstract containing keyword, ignoring case.
func ByAbstract(keyword string) Predicate {
	needle := strings.ToLower(keyword)
	return func(r *reference.Record) bool {
		for _, a := range r.Metadata.Abstracts {
			if strings.Contains(strings.ToLower(a.Value), needle) {
				return true
			}
		}
		return false
	}
}

// ByDocumentType keeps records tagged with docType.
func ByDocumentType(docType string) Predicate {
	return func(r *reference.Record) bool {
		return slices.Contains(r.Metadata.DocumentType, docType)
	}
}

// HasAbstract keeps records with a non-empty abstract.
func HasAbstract() Predicate {
	return func(r *reference.Record) bool {
		return strings.TrimSpace(r.Abstract()) != ""
	}
}

func keep(r *reference.Record, preds []Predicate) bool {
	for _, p := range preds {
		if !p(r) {
			return false
		}
	}
	return true
}

// Filter returns the records matching every predicate, in order.
func Filter(recs []*reference.Record, preds ...Predicate) []*reference.Record {
	out := make([]*reference.Record, 0, len(recs))
	for _, r := range recs {
		if keep(r, preds) {
			out = append(out, r)
		}
	}
	return out
}

// Collect drains seq and returns the records matching every predicate. It
// stops at the first error.
func Collect(seq iter.Seq2[*reference.Record, error], preds ...Predicate) ([]*reference.Record, error) {
	out := []*reference.Record{}
	for r, err := range seq {
		if err != nil {
			return out, err
		}
		if keep(r, preds) {
			out = append(out, r)
		}
	}
	return out, nil
}

// SortByCitations sorts recs in place by citation count. Equal counts keep
// their relative order.
func SortByCitations(recs []*reference.Record, descending bool) {
	slices.SortStableFunc(recs, func(a, b *reference.Record) int {
		c := cmp.Compare(a.Metadata.CitationCount, b.Metadata.CitationCount)
		if descending {
			return -c
		}
		return c
	})
}

// Take returns at most the first n records. A negative n returns all.
func Take(recs []*reference.Record, n int) []*reference.Record {
	if n < 0 || n >= len(recs) {
		return recs
	}
	return recs[:n]
}
