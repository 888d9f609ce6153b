// Package pdf extracts paper identifiers from PDF files so a local copy can
// be matched to its INSPIRE record.
package pdf

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// DefaultMaxPages is how many leading pages are scanned for identifiers.
// The arXiv stamp and the DOI are almost always on the first page.
const DefaultMaxPages = 3

// DOI pattern: 10.XXXX/... where XXXX is 4 to 9 digits.
var doiPattern = regexp.MustCompile(`10\.\d{4,9}/[^\s<>"{}|\\^~\[\]` + "`" + `]+`)

// arXiv stamps: "arXiv:1711.00001v2" and "arXiv:hep-th/9711200v3".
var arxivPattern = regexp.MustCompile(`(?i)arXiv:\s*([0-9]{4}\.[0-9]{4,5}|[a-z][a-z.-]*(?:\.[A-Z]{2})?/[0-9]{7})(?:v[0-9]+)?`)

// Identifiers are the persistent ids found in a paper.
type Identifiers struct {
	DOI   string `json:"doi,omitempty"`
	ArXiv string `json:"arxiv,omitempty"`
}

// Empty reports whether no identifier was found.
func (ids Identifiers) Empty() bool {
	return ids.DOI == "" && ids.ArXiv == ""
}

// Extract scans the first maxPages pages of the PDF at path for a DOI and an
// arXiv eprint number. Finding neither is not an error.
func Extract(path string, maxPages int) (Identifiers, error) {
	text, err := ExtractText(path, maxPages)
	if err != nil {
		return Identifiers{}, err
	}
	return FromText(text), nil
}

// FromText finds the first DOI and arXiv eprint in text.
func FromText(text string) Identifiers {
	return Identifiers{DOI: findDOI(text), ArXiv: findArXiv(text)}
}

// ExtractText extracts the plain text of the first maxPages pages.
// maxPages <= 0 reads the whole document. Pages that fail to decode are
// skipped.
func ExtractText(path string, maxPages int) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	if maxPages <= 0 || maxPages > r.NumPage() {
		maxPages = r.NumPage()
	}

	var b strings.Builder
	for i := 1; i <= maxPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return b.String(), nil
}

// findDOI returns the first plausible DOI in text.
func findDOI(text string) string {
	for _, match := range doiPattern.FindAllString(text, -1) {
		match = strings.TrimRight(match, ".,;:)")
		if isValidDOI(match) {
			return match
		}
	}
	return ""
}

// isValidDOI performs basic validation on a DOI.
func isValidDOI(doi string) bool {
	if len(doi) < 10 || !strings.HasPrefix(doi, "10.") {
		return false
	}
	slash := strings.Index(doi, "/")
	return slash != -1 && slash < len(doi)-1
}

// findArXiv returns the first arXiv eprint number in text, without version.
func findArXiv(text string) string {
	m := arxivPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return m[1]
}
