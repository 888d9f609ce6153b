package query

import (
	"errors"
	"iter"
	"reflect"
	"testing"
	"time"

	"github.com/matsen/papertools/internal/reference"
)

func rec(id, created string, citations int) *reference.Record {
	return &reference.Record{
		ID:      id,
		Created: created,
		Metadata: reference.Metadata{
			Titles:        []reference.Title{{Title: "Quasinormal modes of paper " + id}},
			CitationCount: citations,
		},
	}
}

func ids(recs []*reference.Record) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func corpus() []*reference.Record {
	a := rec("1", "2014-06-01T00:00:00+00:00", 10)
	a.Metadata.Authors = []reference.Author{{FullName: "Berti, Emanuele"}, {FullName: "Cardoso, Vitor"}}
	a.Metadata.Abstracts = []reference.Abstract{{Value: "Ringdown of black holes"}}
	a.Metadata.DocumentType = []string{"article"}

	b := rec("2", "2015-01-01", 50)
	b.Metadata.Authors = []reference.Author{{FullName: "Cardoso, V."}}
	b.Metadata.Abstracts = []reference.Abstract{{Value: "Quasinormal MODE spectroscopy and ringdown tests"}}
	b.Metadata.DocumentType = []string{"article", "conference paper"}

	c := rec("3", "2019-12-31T23:59:59.5", 50)
	c.Metadata.Authors = []reference.Author{{FullName: "Maldacena, Juan Martin"}}
	c.Metadata.Titles = []reference.Title{{Title: "Wormholes"}}

	d := rec("4", "", 1)
	return []*reference.Record{a, b, c, d}
}

func TestPredicates(t *testing.T) {
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name  string
		preds []Predicate
		want  []string
	}{
		{"no predicates", nil, []string{"1", "2", "3", "4"}},
		{"by year", []Predicate{ByYear(2015)}, []string{"2"}},
		{"after is inclusive", []Predicate{After(date(2015, 1, 1))}, []string{"2", "3"}},
		{"before is inclusive", []Predicate{Before(date(2015, 1, 1))}, []string{"1", "2"}},
		{"date window", []Predicate{After(date(2015, 1, 2)), Before(date(2020, 1, 1))}, []string{"3"}},
		{"author substring ignores case", []Predicate{ByAuthor("cardoso")}, []string{"1", "2"}},
		{"title keyword", []Predicate{ByTitle("WORMHOLE")}, []string{"3"}},
		{"abstract keywords compose", []Predicate{ByAbstract("quasinormal mode"), ByAbstract("ringdown")}, []string{"2"}},
		{"document type", []Predicate{ByDocumentType("conference paper")}, []string{"2"}},
		{"has abstract", []Predicate{HasAbstract()}, []string{"1", "2"}},
		{"structured author name", []Predicate{ByAuthorName("Juan Maldacena")}, []string{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(corpus(), tt.preds...))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortByCitations(t *testing.T) {
	recs := corpus()
	SortByCitations(recs, true)
	if got, want := ids(recs), []string{"2", "3", "1", "4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("descending = %v, want %v", got, want)
	}
	SortByCitations(recs, false)
	if got, want := ids(recs), []string{"4", "1", "2", "3"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ascending = %v, want %v", got, want)
	}
}

func TestTake(t *testing.T) {
	recs := corpus()
	tests := []struct {
		n    int
		want int
	}{
		{0, 0}, {2, 2}, {10, 4}, {-1, 4},
	}
	for _, tt := range tests {
		if got := len(Take(recs, tt.n)); got != tt.want {
			t.Errorf("Take(%d) returned %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestCollect(t *testing.T) {
	boom := errors.New("boom")
	seq := func(fail bool) iter.Seq2[*reference.Record, error] {
		return func(yield func(*reference.Record, error) bool) {
			for i, r := range corpus() {
				if fail && i == 2 {
					yield(nil, boom)
					return
				}
				if !yield(r, nil) {
					return
				}
			}
		}
	}

	got, err := Collect(seq(false), ByAuthor("cardoso"))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ids(got), []string{"1", "2"}) {
		t.Errorf("Collect() = %v", ids(got))
	}

	got, err = Collect(seq(true))
	if !errors.Is(err, boom) {
		t.Errorf("Collect() error = %v, want boom", err)
	}
	if len(got) != 2 {
		t.Errorf("Collect() kept %d records before the error, want 2", len(got))
	}
}
