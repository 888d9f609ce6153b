package pdf

import (
	"path/filepath"
	"testing"
)

func TestFromText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Identifiers
	}{
		{
			name: "old style arXiv stamp",
			text: "arXiv:hep-th/9711200v3  22 Jan 1998\nThe Large N Limit of Superconformal Field Theories",
			want: Identifiers{ArXiv: "hep-th/9711200"},
		},
		{
			name: "new style arXiv with DOI",
			text: "arXiv:1711.00001v2 [gr-qc]\nPublished as doi:10.1103/PhysRevD.97.024001.",
			want: Identifiers{DOI: "10.1103/PhysRevD.97.024001", ArXiv: "1711.00001"},
		},
		{
			name: "five digit arXiv number",
			text: "Preprint ARXIV: 2301.12345",
			want: Identifiers{ArXiv: "2301.12345"},
		},
		{
			name: "DOI trailing punctuation trimmed",
			text: "(https://doi.org/10.1023/A:1026654312961)",
			want: Identifiers{DOI: "10.1023/A:1026654312961"},
		},
		{
			name: "nothing found",
			text: "A paper about strings, version 10.2 of the notes",
			want: Identifiers{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromText(tt.text); got != tt.want {
				t.Errorf("FromText() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsValidDOI(t *testing.T) {
	tests := []struct {
		doi  string
		want bool
	}{
		{"10.1103/PhysRevD.97.024001", true},
		{"10.1234/", false},
		{"11.1234/abc", false},
		{"10.12/a", false},
	}
	for _, tt := range tests {
		if got := isValidDOI(tt.doi); got != tt.want {
			t.Errorf("isValidDOI(%q) = %v, want %v", tt.doi, got, tt.want)
		}
	}
}

func TestIdentifiersEmpty(t *testing.T) {
	if !(Identifiers{}).Empty() {
		t.Error("zero Identifiers should be empty")
	}
	if (Identifiers{ArXiv: "1711.00001"}).Empty() {
		t.Error("Identifiers with arXiv should not be empty")
	}
}

func TestExtract_MissingFile(t *testing.T) {
	if _, err := Extract(filepath.Join(t.TempDir(), "nope.pdf"), DefaultMaxPages); err == nil {
		t.Error("expected error for missing file")
	}
}
