package inspire

import "github.com/matsen/papertools/internal/reference"

// SearchResponse is one page of a literature search.
type SearchResponse struct {
	Total int                `json:"total"`
	Hits  []reference.Record `json:"hits"`
}

// searchEnvelope mirrors the top level of a /literature response body.
type searchEnvelope struct {
	Hits *SearchResponse `json:"hits"`
}
