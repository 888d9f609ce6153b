package reference

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestReferenceIDs(t *testing.T) {
	tests := []struct {
		name string
		rec  *Record
		want []string
	}{
		{
			name: "nil record",
			rec:  nil,
			want: []string{},
		},
		{
			name: "no references field",
			rec:  &Record{ID: "1"},
			want: []string{},
		},
		{
			name: "reference without record link is skipped",
			rec: &Record{ID: "1", Metadata: Metadata{References: []Reference{
				{},
				{Record: &Ref{Ref: "https://inspirehep.net/api/literature/42"}},
			}}},
			want: []string{"42"},
		},
		{
			name: "non-numeric ref is skipped",
			rec: &Record{ID: "1", Metadata: Metadata{References: []Reference{
				{Record: &Ref{Ref: "https://inspirehep.net/api/journals/abc"}},
				{Record: &Ref{Ref: ""}},
				{Record: &Ref{Ref: "https://inspirehep.net/api/literature/7"}},
			}}},
			want: []string{"7"},
		},
		{
			name: "order and duplicates preserved",
			rec: &Record{ID: "1", Metadata: Metadata{References: []Reference{
				{Record: &Ref{Ref: "https://inspirehep.net/api/literature/3"}},
				{Record: &Ref{Ref: "https://inspirehep.net/api/literature/2"}},
				{Record: &Ref{Ref: "https://inspirehep.net/api/literature/3"}},
			}}},
			want: []string{"3", "2", "3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReferenceIDs(tt.rec)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReferenceIDs() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEdges(t *testing.T) {
	rec := &Record{ID: "10", Metadata: Metadata{References: []Reference{
		{Record: &Ref{Ref: "https://inspirehep.net/api/literature/11"}},
		{Record: &Ref{Ref: "https://inspirehep.net/api/literature/12"}},
	}}}

	want := []Edge{{From: "10", To: "11"}, {From: "10", To: "12"}}
	if got := Edges(rec); !reflect.DeepEqual(got, want) {
		t.Errorf("Edges() = %v, want %v", got, want)
	}
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantID string
	}{
		{"string id", `{"id": "1234", "metadata": {}}`, "1234"},
		{"numeric id", `{"id": 1234, "metadata": {}}`, "1234"},
		{"missing id", `{"metadata": {}}`, ""},
		{"null id", `{"id": null}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec Record
			if err := json.Unmarshal([]byte(tt.input), &rec); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			if rec.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", rec.ID, tt.wantID)
			}
		})
	}
}

func TestRecord_UnmarshalJSON_Metadata(t *testing.T) {
	input := `{
		"id": "451647",
		"created": "1997-11-28T00:00:00+00:00",
		"metadata": {
			"titles": [{"title": "The Large N limit of superconformal field theories and supergravity"}],
			"authors": [{"full_name": "Maldacena, Juan Martin"}],
			"abstracts": [{"value": "We show that the large N limit...", "source": "arXiv"}],
			"keywords": [{"value": "AdS/CFT"}],
			"citation_count": 20000,
			"document_type": ["article"],
			"texkeys": ["Maldacena:1997re"],
			"references": [{"record": {"$ref": "https://inspirehep.net/api/literature/100"}}, {"reference": {}}]
		}
	}`

	var rec Record
	if err := json.Unmarshal([]byte(input), &rec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if rec.Title() != "The Large N limit of superconformal field theories and supergravity" {
		t.Errorf("Title() = %q", rec.Title())
	}
	if rec.Abstract() != "We show that the large N limit..." {
		t.Errorf("Abstract() = %q", rec.Abstract())
	}
	if got := rec.AuthorNames(); !reflect.DeepEqual(got, []string{"Maldacena, Juan Martin"}) {
		t.Errorf("AuthorNames() = %v", got)
	}
	if got := rec.KeywordValues(); !reflect.DeepEqual(got, []string{"AdS/CFT"}) {
		t.Errorf("KeywordValues() = %v", got)
	}
	if rec.Metadata.CitationCount != 20000 {
		t.Errorf("CitationCount = %d, want 20000", rec.Metadata.CitationCount)
	}
	if got := ReferenceIDs(&rec); !reflect.DeepEqual(got, []string{"100"}) {
		t.Errorf("ReferenceIDs() = %v, want [100]", got)
	}
}

func TestRecord_EmptyAccessors(t *testing.T) {
	rec := &Record{ID: "1"}
	if rec.Title() != "" {
		t.Errorf("Title() = %q, want empty", rec.Title())
	}
	if rec.Abstract() != "" {
		t.Errorf("Abstract() = %q, want empty", rec.Abstract())
	}
	if len(rec.AuthorNames()) != 0 {
		t.Errorf("AuthorNames() = %v, want empty", rec.AuthorNames())
	}
}

func TestRecord_CreatedTime(t *testing.T) {
	tests := []struct {
		name    string
		created string
		want    time.Time
		wantErr bool
	}{
		{"rfc3339 with offset", "2019-03-14T10:00:00+00:00", time.Date(2019, 3, 14, 10, 0, 0, 0, time.UTC), false},
		{"naive microseconds", "2019-03-14T10:00:00.123456", time.Date(2019, 3, 14, 10, 0, 0, 123456000, time.UTC), false},
		{"date only", "2019-03-14", time.Date(2019, 3, 14, 0, 0, 0, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
		{"garbage", "yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &Record{ID: "1", Created: tt.created}
			got, err := rec.CreatedTime()
			if (err != nil) != tt.wantErr {
				t.Fatalf("CreatedTime() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("CreatedTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_MarshalJSONKeepsUnmodeledFields(t *testing.T) {
	input := `{
		"id": 451647,
		"links": {"json": "https://inspirehep.net/api/literature/451647?format=json"},
		"metadata": {
			"titles": [{"title": "Old title"}],
			"references": [{"record": {"$ref": "https://inspirehep.net/api/literature/100"}}],
			"dois": [{"value": "10.1023/A:1026654312961"}],
			"arxiv_eprints": [{"value": "hep-th/9711200", "categories": ["hep-th"]}],
			"publication_info": [{"journal_title": "Int.J.Theor.Phys.", "journal_volume": "38"}],
			"citation_count": 1
		}
	}`

	var rec Record
	if err := json.Unmarshal([]byte(input), &rec); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	rec.Metadata.Titles = []Title{{Title: "New title"}}
	rec.Metadata.References = nil
	rec.Metadata.CitationCount = 2

	out, err := json.Marshal(&rec)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var doc struct {
		ID       string                     `json:"id"`
		Links    map[string]string          `json:"links"`
		Metadata map[string]json.RawMessage `json:"metadata"`
	}
	if err := json.Unmarshal(out, &doc); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}

	if doc.ID != "451647" {
		t.Errorf("id = %q, want 451647", doc.ID)
	}
	if doc.Links["json"] == "" {
		t.Error("top-level links dropped")
	}
	for _, key := range []string{"dois", "arxiv_eprints", "publication_info"} {
		if _, ok := doc.Metadata[key]; !ok {
			t.Errorf("metadata.%s dropped", key)
		}
	}
	if _, ok := doc.Metadata["references"]; ok {
		t.Error("cleared references written from the original document")
	}
	if got := string(doc.Metadata["citation_count"]); got != "2" {
		t.Errorf("citation_count = %s, want 2", got)
	}

	var again Record
	if err := json.Unmarshal(out, &again); err != nil {
		t.Fatal(err)
	}
	if again.Title() != "New title" {
		t.Errorf("Title() = %q, want New title", again.Title())
	}
}

func TestRecord_MarshalJSONWithoutRaw(t *testing.T) {
	rec := Record{ID: "1", Metadata: Metadata{Titles: []Title{{Title: "T"}}}}
	out, err := json.Marshal(rec)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"id":"1","created":"","metadata":{"titles":[{"title":"T"}],"citation_count":0}}`
	if string(out) != want {
		t.Errorf("Marshal = %s, want %s", out, want)
	}
}
