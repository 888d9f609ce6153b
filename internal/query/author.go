package query

import (
	"strings"

	"github.com/matsen/papertools/internal/reference"
)

// AuthorQuery is a parsed author name.
type AuthorQuery struct {
	First string // may be empty for last-name-only queries
	Last  string
}

// ParseAuthor parses an author search string.
//
// Supported formats:
//   - "Yu"           → last="Yu" (single word = last name only)
//   - "Timothy Yu"   → first="Timothy", last="Yu" (space-separated = First Last)
//   - "Yu, Timothy"  → first="Timothy", last="Yu" (comma = Last, First)
//
// Names are trimmed but case is preserved (matching is case-insensitive).
func ParseAuthor(input string) AuthorQuery {
	input = strings.TrimSpace(input)
	if input == "" {
		return AuthorQuery{}
	}

	if idx := strings.Index(input, ","); idx > 0 {
		return AuthorQuery{
			First: strings.TrimSpace(input[idx+1:]),
			Last:  strings.TrimSpace(input[:idx]),
		}
	}

	parts := strings.Fields(input)
	if len(parts) == 1 {
		return AuthorQuery{Last: parts[0]}
	}
	// "Timothy C Yu" → first="Timothy C", last="Yu"
	return AuthorQuery{
		First: strings.Join(parts[:len(parts)-1], " "),
		Last:  parts[len(parts)-1],
	}
}

// splitFullName splits an INSPIRE "Last, First" name. A name without a
// comma is all last name.
func splitFullName(full string) (first, last string) {
	if idx := strings.Index(full, ","); idx >= 0 {
		return strings.TrimSpace(full[idx+1:]), strings.TrimSpace(full[:idx])
	}
	return "", strings.TrimSpace(full)
}

// Matches checks if the query matches a given author.
//
// The last name must match exactly and the first name by prefix, both
// ignoring case. "Tim Yu" matches "Yu, Timothy C" while "Yu" does not
// match "Yujia, Li".
func (q AuthorQuery) Matches(a reference.Author) bool {
	if q.Last == "" {
		return false
	}
	first, last := splitFullName(a.FullName)
	if !strings.EqualFold(q.Last, last) {
		return false
	}
	if q.First == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(first), strings.ToLower(q.First))
}

// MatchesAny checks if the query matches any author in the list.
func (q AuthorQuery) MatchesAny(authors []reference.Author) bool {
	for _, a := range authors {
		if q.Matches(a) {
			return true
		}
	}
	return false
}

// ByAuthorName keeps records with an author matching the parsed name.
func ByAuthorName(name string) Predicate {
	q := ParseAuthor(name)
	return func(r *reference.Record) bool {
		return q.MatchesAny(r.Metadata.Authors)
	}
}
