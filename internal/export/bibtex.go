// Package export converts literature records to and from BibTeX.
package export

import (
	"fmt"
	"strings"

	"github.com/matsen/papertools/internal/reference"
)

// ToBibTeX renders a minimal BibTeX entry from a stored record. It is the
// offline fallback when INSPIRE's own BibTeX has not been cached.
func ToBibTeX(rec *reference.Record) string {
	entryType := determineEntryType(rec)
	var b strings.Builder

	fmt.Fprintf(&b, "@%s{%s,\n", entryType, citationKey(rec))

	if len(rec.Metadata.Authors) > 0 {
		fmt.Fprintf(&b, "    author = \"%s\",\n", escapeLatex(strings.Join(rec.AuthorNames(), " and ")))
	}

	fmt.Fprintf(&b, "    title = \"{%s}\",\n", escapeLatex(rec.Title()))

	if t, err := rec.CreatedTime(); err == nil {
		fmt.Fprintf(&b, "    year = \"%d\",\n", t.Year())
	}

	if rec.ID != "" {
		fmt.Fprintf(&b, "    note = \"INSPIRE %s\",\n", rec.ID)
	}

	b.WriteString("}\n")

	return b.String()
}

// ToBibTeXList converts multiple records to BibTeX format.
func ToBibTeXList(recs []*reference.Record) string {
	var entries []string
	for _, rec := range recs {
		entries = append(entries, ToBibTeX(rec))
	}
	return strings.Join(entries, "\n")
}

// citationKey prefers INSPIRE's texkey and falls back to the record id.
func citationKey(rec *reference.Record) string {
	if len(rec.Metadata.TexKeys) > 0 {
		return rec.Metadata.TexKeys[0]
	}
	return "inspire:" + rec.ID
}

// determineEntryType maps INSPIRE document types to BibTeX entry types.
func determineEntryType(rec *reference.Record) string {
	for _, dt := range rec.Metadata.DocumentType {
		switch strings.ToLower(dt) {
		case "conference paper", "proceedings":
			return "inproceedings"
		case "thesis":
			return "phdthesis"
		case "book":
			return "book"
		case "book chapter":
			return "incollection"
		case "report", "note":
			return "techreport"
		}
	}
	return "article"
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
