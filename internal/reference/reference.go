// Package reference defines the core domain types for INSPIRE literature records.
package reference

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Record is one literature entry as returned by the INSPIRE-HEP API.
//
// Only the fields the crawler and index consume are modeled. Optional nested
// fields are slices; an absent field decodes to nil. Raw keeps the whole
// decoded document so fields that are not modeled (dois, arxiv_eprints,
// publication_info, ...) survive storage and export.
type Record struct {
	// Identity
	ID      string `json:"id" msgpack:"id"`           // INSPIRE record id (control number)
	Created string `json:"created" msgpack:"created"` // ISO-8601 creation timestamp

	Metadata Metadata `json:"metadata" msgpack:"metadata"`

	Raw json.RawMessage `json:"-" msgpack:"raw,omitempty"`
}

// metadataKeys are the metadata members Metadata models. On encode they are
// always taken from the struct, never from Raw.
var metadataKeys = []string{
	"titles", "authors", "abstracts", "keywords", "citation_count",
	"document_type", "references", "texkeys", "control_number",
}

// Metadata holds the bibliographic payload of a record.
type Metadata struct {
	Titles        []Title     `json:"titles,omitempty" msgpack:"titles,omitempty"`
	Authors       []Author    `json:"authors,omitempty" msgpack:"authors,omitempty"`
	Abstracts     []Abstract  `json:"abstracts,omitempty" msgpack:"abstracts,omitempty"`
	Keywords      []Keyword   `json:"keywords,omitempty" msgpack:"keywords,omitempty"`
	CitationCount int         `json:"citation_count" msgpack:"citation_count"`
	DocumentType  []string    `json:"document_type,omitempty" msgpack:"document_type,omitempty"`
	References    []Reference `json:"references,omitempty" msgpack:"references,omitempty"`
	TexKeys       []string    `json:"texkeys,omitempty" msgpack:"texkeys,omitempty"`
	ControlNumber int         `json:"control_number,omitempty" msgpack:"control_number,omitempty"`
}

// Title is one of possibly several titles of a record.
type Title struct {
	Title string `json:"title" msgpack:"title"`
}

// Abstract is one abstract of a record, tagged with its source.
type Abstract struct {
	Value  string `json:"value" msgpack:"value"`
	Source string `json:"source,omitempty" msgpack:"source,omitempty"`
}

// Keyword is a free-form keyword attached to a record.
type Keyword struct {
	Value string `json:"value" msgpack:"value"`
}

// Reference is one entry of a record's bibliography. Record is nil when
// INSPIRE could not resolve the mention to another literature record.
type Reference struct {
	Record *Ref `json:"record,omitempty" msgpack:"record,omitempty"`
}

// Ref is an INSPIRE cross-reference link.
type Ref struct {
	Ref string `json:"$ref" msgpack:"$ref"`
}

// UnmarshalJSON accepts the record id either as a JSON string or a number.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var aux struct {
		plain
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Record(aux.plain)
	r.Raw = append(json.RawMessage(nil), bytes.TrimSpace(data)...)

	raw := bytes.TrimSpace(aux.ID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		r.ID = ""
		return nil
	}
	if raw[0] == '"' {
		return json.Unmarshal(raw, &r.ID)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("decoding record id: %w", err)
	}
	r.ID = n.String()
	return nil
}

// MarshalJSON encodes the modeled fields merged over Raw, so unmodeled
// members of the original document are written back unchanged.
func (r Record) MarshalJSON() ([]byte, error) {
	type plain Record
	typed, err := json.Marshal(plain(r))
	if err != nil || len(r.Raw) == 0 {
		return typed, err
	}

	var doc, fields map[string]json.RawMessage
	if err := json.Unmarshal(r.Raw, &doc); err != nil || doc == nil {
		return typed, nil
	}
	if err := json.Unmarshal(typed, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		if k != "metadata" {
			doc[k] = v
		}
	}

	var meta, typedMeta map[string]json.RawMessage
	if err := json.Unmarshal(doc["metadata"], &meta); err != nil || meta == nil {
		meta = map[string]json.RawMessage{}
	}
	if err := json.Unmarshal(fields["metadata"], &typedMeta); err != nil {
		return nil, err
	}
	for _, k := range metadataKeys {
		delete(meta, k)
	}
	for k, v := range typedMeta {
		meta[k] = v
	}
	if doc["metadata"], err = json.Marshal(meta); err != nil {
		return nil, err
	}
	return json.Marshal(doc)
}

// Title returns the first title, or "" if the record has none.
func (r *Record) Title() string {
	if len(r.Metadata.Titles) == 0 {
		return ""
	}
	return r.Metadata.Titles[0].Title
}

// Abstract returns the first abstract text, or "" if the record has none.
func (r *Record) Abstract() string {
	if len(r.Metadata.Abstracts) == 0 {
		return ""
	}
	return r.Metadata.Abstracts[0].Value
}

// AuthorNames returns the full names of all authors in order.
func (r *Record) AuthorNames() []string {
	names := make([]string, 0, len(r.Metadata.Authors))
	for _, a := range r.Metadata.Authors {
		names = append(names, a.FullName)
	}
	return names
}

// KeywordValues returns the keyword strings in order.
func (r *Record) KeywordValues() []string {
	values := make([]string, 0, len(r.Metadata.Keywords))
	for _, k := range r.Metadata.Keywords {
		values = append(values, k.Value)
	}
	return values
}

// createdLayouts are the timestamp shapes INSPIRE uses for the created field.
var createdLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02",
}

// CreatedTime parses the created timestamp. Timestamps without a zone are UTC.
func (r *Record) CreatedTime() (time.Time, error) {
	s := strings.TrimSpace(r.Created)
	if s == "" {
		return time.Time{}, fmt.Errorf("record %s has no created timestamp", r.ID)
	}
	for _, layout := range createdLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("record %s: unrecognized created timestamp %q", r.ID, s)
}

// refIDPattern extracts the trailing record id from a $ref URL.
var refIDPattern = regexp.MustCompile(`/([0-9]+)$`)

// ReferenceIDs returns the ids of the literature records this record cites.
//
// A record without references yields an empty slice. Entries without a
// resolved cross-reference, or whose $ref does not end in a numeric id, are
// skipped. Order and duplicates are preserved.
func ReferenceIDs(rec *Record) []string {
	if rec == nil {
		return []string{}
	}
	ids := make([]string, 0, len(rec.Metadata.References))
	for _, ref := range rec.Metadata.References {
		if ref.Record == nil {
			continue
		}
		m := refIDPattern.FindStringSubmatch(ref.Record.Ref)
		if m == nil {
			continue
		}
		ids = append(ids, m[1])
	}
	return ids
}

// Edge is a directed citation from one record to another.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Edges derives the outbound citation edges of a record.
func Edges(rec *Record) []Edge {
	ids := ReferenceIDs(rec)
	edges := make([]Edge, len(ids))
	for i, id := range ids {
		edges[i] = Edge{From: rec.ID, To: id}
	}
	return edges
}
