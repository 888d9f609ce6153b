package viz

import (
	"strconv"
	"strings"

	"github.com/matsen/papertools/internal/reference"
)

// maxLabelAuthors is how many author surnames a node label shows.
const maxLabelAuthors = 1

// BuildGraph derives the citation graph among recs.
//
// Every record becomes a node. References to records outside recs are
// dropped unless includeExternal is set, in which case each distinct missing
// target becomes an external node. Repeated references from one record to the
// same target collapse to one edge.
func BuildGraph(recs []*reference.Record, includeExternal bool) *GraphData {
	g := &GraphData{
		Nodes: make([]Node, 0, len(recs)),
		Edges: []Edge{},
	}

	index := make(map[string]int, len(recs))
	for _, rec := range recs {
		if rec == nil || rec.ID == "" {
			continue
		}
		if _, dup := index[rec.ID]; dup {
			continue
		}
		index[rec.ID] = len(g.Nodes)
		g.Nodes = append(g.Nodes, newRecordNode(rec))
	}

	seen := make(map[reference.Edge]bool)
	for _, rec := range recs {
		if rec == nil || rec.ID == "" {
			continue
		}
		for _, e := range reference.Edges(rec) {
			if e.From == e.To || seen[e] {
				continue
			}
			if _, ok := index[e.To]; !ok {
				if !includeExternal {
					continue
				}
				index[e.To] = len(g.Nodes)
				g.Nodes = append(g.Nodes, Node{ID: e.To, Type: NodeTypeExternal, Label: e.To})
			}
			seen[e] = true
			g.Nodes[index[e.To]].InDegree++
			g.Edges = append(g.Edges, Edge{Source: e.From, Target: e.To})
		}
	}

	return g
}

// newRecordNode creates a visualization node from a stored record.
func newRecordNode(rec *reference.Record) Node {
	n := Node{
		ID:        rec.ID,
		Type:      NodeTypeRecord,
		Title:     rec.Title(),
		Authors:   strings.Join(rec.AuthorNames(), "; "),
		Citations: rec.Metadata.CitationCount,
	}
	if t, err := rec.CreatedTime(); err == nil {
		n.Year = t.Year()
	}
	n.Label = recordLabel(rec, n.Year)
	return n
}

// recordLabel renders "Surname et al. 1997", falling back to the id.
func recordLabel(rec *reference.Record, year int) string {
	names := rec.AuthorNames()
	if len(names) == 0 {
		return rec.ID
	}
	surname, _, _ := strings.Cut(names[0], ",")
	label := strings.TrimSpace(surname)
	if label == "" {
		return rec.ID
	}
	if len(names) > maxLabelAuthors {
		label += " et al."
	}
	if year > 0 {
		label += " " + strconv.Itoa(year)
	}
	return label
}
