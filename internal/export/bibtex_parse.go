package export

import (
	"bufio"
	"os"
	"regexp"
	"strings"
)

// blankLineRegex matches one or more blank lines, tolerating CRLF and
// whitespace-only lines.
var blankLineRegex = regexp.MustCompile(`\r?\n(?:[ \t]*\r?\n)+`)

// entryStartRegex matches the head of an entry: @type{key,
var entryStartRegex = regexp.MustCompile(`@\w+\s*\{\s*([^,\s]+)\s*,`)

// doiFieldRegex matches a DOI field: doi = {value} or doi = "value"
var doiFieldRegex = regexp.MustCompile(`(?i)^\s*doi\s*=\s*[\{"]([^\}"]+)[\}"]`)

// SplitEntries splits a multi-entry BibTeX blob on blank-line boundaries.
// Entries are trimmed and empty fragments dropped. Entries whose body
// contains a blank line are split with it; INSPIRE does not emit those.
func SplitEntries(blob string) []string {
	parts := blankLineRegex.Split(blob, -1)
	entries := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			entries = append(entries, p)
		}
	}
	return entries
}

// EntryKey returns the citation key of a single entry.
func EntryKey(entry string) (string, bool) {
	m := entryStartRegex.FindStringSubmatch(entry)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// MapEntriesToIDs assigns entries to record ids by their citation key.
// INSPIRE uses the record's texkey as the key. Entries whose key is not in
// texkeyToID are returned separately.
func MapEntriesToIDs(entries []string, texkeyToID map[string]string) (byID map[string]string, unmatched []string) {
	byID = make(map[string]string, len(entries))
	for _, e := range entries {
		key, ok := EntryKey(e)
		if !ok {
			unmatched = append(unmatched, e)
			continue
		}
		id, ok := texkeyToID[key]
		if !ok {
			unmatched = append(unmatched, e)
			continue
		}
		byID[id] = e
	}
	return byID, unmatched
}

// BibTeXIndex indexes existing BibTeX entries for deduplication.
type BibTeXIndex struct {
	// Keys maps citation keys to true for existence check
	Keys map[string]bool
	// DOIs maps DOI values to citation keys
	DOIs map[string]string
}

// NewBibTeXIndex creates an empty BibTeX index.
func NewBibTeXIndex() *BibTeXIndex {
	return &BibTeXIndex{
		Keys: make(map[string]bool),
		DOIs: make(map[string]string),
	}
}

// Add indexes one entry.
func (idx *BibTeXIndex) Add(entry string) {
	var currentKey string
	for _, line := range strings.Split(entry, "\n") {
		currentKey = idx.scanLine(line, currentKey)
	}
}

// HasEntry returns true if the entry already exists (by DOI or key).
// DOI is the primary match; citation key is the fallback if no DOI.
func (idx *BibTeXIndex) HasEntry(key, doi string) bool {
	if doi != "" {
		if _, exists := idx.DOIs[normalizeDOI(doi)]; exists {
			return true
		}
	}
	return idx.Keys[key]
}

// Contains reports whether entry is already indexed.
func (idx *BibTeXIndex) Contains(entry string) bool {
	key, _ := EntryKey(entry)
	return idx.HasEntry(key, EntryDOI(entry))
}

func (idx *BibTeXIndex) scanLine(line, currentKey string) string {
	if matches := entryStartRegex.FindStringSubmatch(line); len(matches) > 1 {
		currentKey = matches[1]
		idx.Keys[currentKey] = true
	}
	if matches := doiFieldRegex.FindStringSubmatch(line); len(matches) > 1 {
		doi := normalizeDOI(matches[1])
		if doi != "" && currentKey != "" {
			idx.DOIs[doi] = currentKey
		}
	}
	return currentKey
}

// EntryDOI returns the DOI field of an entry, or "".
func EntryDOI(entry string) string {
	for _, line := range strings.Split(entry, "\n") {
		if m := doiFieldRegex.FindStringSubmatch(line); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// ParseBibTeXFile builds an index from an existing .bib file.
// Returns an empty index if the file doesn't exist or is empty.
func ParseBibTeXFile(path string) (*BibTeXIndex, error) {
	idx := NewBibTeXIndex()

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var currentKey string
	for scanner.Scan() {
		currentKey = idx.scanLine(scanner.Text(), currentKey)
	}

	return idx, scanner.Err()
}

// normalizeDOI normalizes a DOI for comparison.
// Removes common prefixes like "https://doi.org/" and lowercases.
func normalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	doi = strings.TrimPrefix(doi, "https://doi.org/")
	doi = strings.TrimPrefix(doi, "http://doi.org/")
	doi = strings.TrimPrefix(doi, "doi.org/")
	doi = strings.TrimPrefix(doi, "DOI:")
	doi = strings.TrimPrefix(doi, "doi:")
	return strings.ToLower(doi)
}

// AppendToBibFile appends BibTeX content to a file.
func AppendToBibFile(path, content string) error {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return err
	}
	defer file.Close()

	// Ensure we start on a new line
	_, err = file.WriteString("\n" + content)
	return err
}
