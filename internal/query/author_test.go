package query

import (
	"testing"

	"github.com/matsen/papertools/internal/reference"
)

func TestParseAuthor(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  AuthorQuery
	}{
		{"single word is last name", "Yu", AuthorQuery{Last: "Yu"}},
		{"two words is First Last", "Timothy Yu", AuthorQuery{First: "Timothy", Last: "Yu"}},
		{"three words: first two are first name", "Timothy C Yu", AuthorQuery{First: "Timothy C", Last: "Yu"}},
		{"comma format: Last, First", "Yu, Timothy", AuthorQuery{First: "Timothy", Last: "Yu"}},
		{"comma format with spaces", "Yu,  Timothy C", AuthorQuery{First: "Timothy C", Last: "Yu"}},
		{"empty", "   ", AuthorQuery{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseAuthor(tt.input); got != tt.want {
				t.Errorf("ParseAuthor(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestAuthorQuery_Matches(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		author string
		want   bool
	}{
		{"last name only", "Yu", "Yu, Timothy C", true},
		{"last name is not a prefix", "Yu", "Yujia, Li", false},
		{"first name prefix", "Tim Yu", "Yu, Timothy C", true},
		{"case insensitive", "tim yu", "YU, TIMOTHY", true},
		{"first name mismatch", "Tom Yu", "Yu, Timothy", false},
		{"collaboration name without comma", "ATLAS", "ATLAS", true},
		{"empty query matches nothing", "", "Yu, Timothy", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseAuthor(tt.query).Matches(reference.Author{FullName: tt.author})
			if got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.query, tt.author, got, tt.want)
			}
		})
	}
}
