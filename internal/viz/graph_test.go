package viz

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/matsen/papertools/internal/reference"
)

func record(id, created string, authors []string, refs ...string) *reference.Record {
	rec := &reference.Record{ID: id, Created: created}
	for _, a := range authors {
		rec.Metadata.Authors = append(rec.Metadata.Authors, reference.Author{FullName: a})
	}
	for _, r := range refs {
		rec.Metadata.References = append(rec.Metadata.References, reference.Reference{
			Record: &reference.Ref{Ref: "https://inspirehep.net/api/literature/" + r},
		})
	}
	return rec
}

func TestBuildGraph(t *testing.T) {
	recs := []*reference.Record{
		record("1", "1997-11-28", []string{"Maldacena, Juan Martin"}, "2", "3", "2", "99"),
		record("2", "1998-02-02", []string{"Witten, Edward", "Gubser, S.S."}, "3", "2"),
		record("3", "", nil),
	}

	tests := []struct {
		name            string
		includeExternal bool
		wantNodes       int
		wantEdges       int
		wantInDegree    map[string]int
	}{
		{
			name:         "internal edges only",
			wantNodes:    3,
			wantEdges:    3,
			wantInDegree: map[string]int{"1": 0, "2": 1, "3": 2},
		},
		{
			name:            "external targets become nodes",
			includeExternal: true,
			wantNodes:       4,
			wantEdges:       4,
			wantInDegree:    map[string]int{"3": 2, "99": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := BuildGraph(recs, tt.includeExternal)
			if len(g.Nodes) != tt.wantNodes {
				t.Errorf("got %d nodes, want %d", len(g.Nodes), tt.wantNodes)
			}
			if len(g.Edges) != tt.wantEdges {
				t.Errorf("got %d edges, want %d: %v", len(g.Edges), tt.wantEdges, g.Edges)
			}
			byID := make(map[string]Node, len(g.Nodes))
			for _, n := range g.Nodes {
				byID[n.ID] = n
			}
			for id, want := range tt.wantInDegree {
				if got := byID[id].InDegree; got != want {
					t.Errorf("InDegree(%s) = %d, want %d", id, got, want)
				}
			}
			for _, e := range g.Edges {
				if e.Source == e.Target {
					t.Errorf("self-citation %v kept", e)
				}
			}
		})
	}
}

func TestBuildGraph_ExternalNodeType(t *testing.T) {
	g := BuildGraph([]*reference.Record{record("1", "", nil, "5")}, true)
	if len(g.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(g.Nodes))
	}
	if g.Nodes[1].Type != NodeTypeExternal || g.Nodes[1].ID != "5" {
		t.Errorf("Nodes[1] = %+v, want external node 5", g.Nodes[1])
	}
}

func TestBuildGraph_Empty(t *testing.T) {
	g := BuildGraph(nil, true)
	if !g.IsEmpty() {
		t.Errorf("IsEmpty() = false for no records")
	}
	if g.Edges == nil {
		t.Error("Edges is nil, want empty slice")
	}
}

func TestRecordLabel(t *testing.T) {
	tests := []struct {
		name string
		rec  *reference.Record
		want string
	}{
		{"single author with year", record("1", "1997-11-28", []string{"Maldacena, Juan Martin"}), "Maldacena 1997"},
		{"several authors", record("2", "1998-02-02", []string{"Witten, Edward", "Gubser, S.S."}), "Witten et al. 1998"},
		{"no date", record("3", "", []string{"Polyakov, A.M."}), "Polyakov"},
		{"no authors", record("4", "2001-01-01", nil), "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newRecordNode(tt.rec).Label; got != tt.want {
				t.Errorf("Label = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestToCytoscapeJSON(t *testing.T) {
	g := BuildGraph([]*reference.Record{
		record("1", "", nil, "2"),
		record("2", "", nil),
	}, false)

	out, err := g.ToCytoscapeJSON()
	if err != nil {
		t.Fatalf("ToCytoscapeJSON: %v", err)
	}
	var elements CytoscapeElements
	if err := json.Unmarshal([]byte(out), &elements); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(elements.Edges) != 1 || elements.Edges[0].Data.ID != "1->2" {
		t.Errorf("edges = %+v, want one edge 1->2", elements.Edges)
	}
}

func TestGenerateHTML(t *testing.T) {
	g := BuildGraph([]*reference.Record{record("1", "", nil, "2"), record("2", "", nil)}, false)

	tests := []struct {
		name     string
		layout   string
		wantErr  bool
		contains string
	}{
		{"default layout", "", false, `name: "cose"`},
		{"tree layout", "tree", false, `name: "breadthfirst"`},
		{"circle layout", "circle", false, `name: "circle"`},
		{"invalid layout", "spiral", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := GenerateHTML(g, HTMLOptions{Layout: tt.layout})
			if (err != nil) != tt.wantErr {
				t.Fatalf("GenerateHTML() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !strings.Contains(page, tt.contains) {
				t.Errorf("page does not contain %q", tt.contains)
			}
			if !strings.Contains(page, "2 records, 1 citations") {
				t.Error("page header missing graph counts")
			}
		})
	}
}

func TestGenerateHTML_Nil(t *testing.T) {
	if _, err := GenerateHTML(nil, DefaultOptions()); err == nil {
		t.Error("expected error for nil graph")
	}
}
