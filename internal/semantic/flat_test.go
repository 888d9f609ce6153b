package semantic

import (
	"errors"
	"reflect"
	"testing"
)

func hitIDs(hits []Hit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.ID
	}
	return ids
}

func TestFlatIP_Search(t *testing.T) {
	f := NewFlatIP(2)
	err := f.Add(
		[]string{"a", "b", "c", "d"},
		[][]float32{{1, 0}, {0, 1}, {0.6, 0.8}, {1, 0}},
	)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	tests := []struct {
		name  string
		query []float32
		k     int
		want  []string
	}{
		{"best first", []float32{0, 1}, 2, []string{"b", "c"}},
		{"ties keep row order", []float32{1, 0}, 2, []string{"a", "d"}},
		{"k larger than rows", []float32{1, 0}, 10, []string{"a", "d", "c", "b"}},
		{"k of one", []float32{0.6, 0.8}, 1, []string{"c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits, err := f.Search(tt.query, tt.k)
			if err != nil {
				t.Fatalf("Search() error = %v", err)
			}
			if got := hitIDs(hits); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Search() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFlatIP_Scores(t *testing.T) {
	f := NewFlatIP(3)
	if err := f.Add([]string{"x"}, [][]float32{{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	hits, err := f.Search([]float32{1, 1, 1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].Score != 6 {
		t.Errorf("Score = %v, want 6", hits[0].Score)
	}
}

func TestFlatIP_Errors(t *testing.T) {
	f := NewFlatIP(2)
	if err := f.Add([]string{"a"}, [][]float32{{1, 0}}); err != nil {
		t.Fatal(err)
	}

	for _, k := range []int{0, -1} {
		if _, err := f.Search([]float32{1, 0}, k); !errors.Is(err, ErrInvalidK) {
			t.Errorf("Search(k=%d) error = %v, want ErrInvalidK", k, err)
		}
	}
	if _, err := f.Search([]float32{1, 0, 0}, 1); err == nil {
		t.Error("Search() with wrong dimension succeeded")
	}
	if err := f.Add([]string{"b"}, [][]float32{{1}}); err == nil {
		t.Error("Add() with wrong dimension succeeded")
	}
	if err := f.Add([]string{"b", "c"}, [][]float32{{1, 0}}); err == nil {
		t.Error("Add() with mismatched lengths succeeded")
	}
	if f.Len() != 1 {
		t.Errorf("Len() = %d after rejected adds, want 1", f.Len())
	}
}

func TestFlatIP_AddReplaces(t *testing.T) {
	f := NewFlatIP(2)
	if err := f.Add([]string{"a", "b"}, [][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatal(err)
	}
	if err := f.Add([]string{"a"}, [][]float32{{0, 1}}); err != nil {
		t.Fatal(err)
	}
	if f.Len() != 2 {
		t.Errorf("Len() = %d, want 2", f.Len())
	}
	v, ok := f.Vector("a")
	if !ok || !reflect.DeepEqual(v, []float32{0, 1}) {
		t.Errorf("Vector(a) = %v, %v", v, ok)
	}
	if _, ok := f.Vector("zzz"); ok {
		t.Error("Vector(zzz) found")
	}
}
