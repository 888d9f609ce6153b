// Package viz renders the cached citation graph as an interactive HTML page.
package viz

// Node types.
const (
	NodeTypeRecord   = "record"
	NodeTypeExternal = "external"
)

// GraphData contains all data needed to render the visualization.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node is a literature record in the graph. External nodes are cited ids
// that are not in the store; only their id is known.
type Node struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`

	Title     string `json:"title,omitempty"`
	Authors   string `json:"authors,omitempty"` // "Last, First; Last, First"
	Year      int    `json:"year,omitempty"`
	Citations int    `json:"citations"`

	// InDegree counts edges pointing at the node within this graph.
	InDegree int `json:"inDegree"`
}

// Edge is a citation from Source to Target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// IsEmpty returns true if the graph has no nodes.
func (g *GraphData) IsEmpty() bool {
	return len(g.Nodes) == 0
}
