package viz

import (
	"bytes"
	"fmt"
	"html/template"
)

// cytoscapeURL is the script the generated page loads Cytoscape.js from.
const cytoscapeURL = "https://unpkg.com/cytoscape@3/dist/cytoscape.min.js"

// compiledTemplate is parsed at init time to fail fast on template errors.
var compiledTemplate = template.Must(template.New("viz").Parse(htmlTemplate))

// HTMLOptions configures HTML generation.
type HTMLOptions struct {
	Layout string // "force", "circle", "grid" or "tree"
	Title  string
}

// DefaultOptions returns default HTML generation options.
func DefaultOptions() HTMLOptions {
	return HTMLOptions{Layout: "force", Title: "Citation graph"}
}

// ValidLayouts lists the supported layout names.
var ValidLayouts = []string{"force", "circle", "grid", "tree"}

// templateData holds data for the HTML template.
type templateData struct {
	Title     string
	ScriptURL string
	GraphJSON template.JS
	Layout    string
	Nodes     int
	Edges     int
}

// GenerateHTML renders a standalone HTML page for graph.
func GenerateHTML(graph *GraphData, opts HTMLOptions) (string, error) {
	if graph == nil {
		return "", fmt.Errorf("graph cannot be nil")
	}
	layout, err := layoutToCytoscape(opts.Layout)
	if err != nil {
		return "", err
	}
	if opts.Title == "" {
		opts.Title = DefaultOptions().Title
	}

	graphJSON, err := graph.ToCytoscapeJSON()
	if err != nil {
		return "", err
	}

	data := templateData{
		Title:     opts.Title,
		ScriptURL: cytoscapeURL,
		GraphJSON: template.JS(graphJSON),
		Layout:    layout,
		Nodes:     len(graph.Nodes),
		Edges:     len(graph.Edges),
	}

	var buf bytes.Buffer
	if err := compiledTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("rendering graph page: %w", err)
	}
	return buf.String(), nil
}

// layoutToCytoscape maps layout names to Cytoscape.js layout algorithms.
func layoutToCytoscape(layout string) (string, error) {
	switch layout {
	case "", "force":
		return "cose", nil
	case "circle", "grid":
		return layout, nil
	case "tree":
		return "breadthfirst", nil
	default:
		return "", fmt.Errorf("invalid layout %q: must be force, circle, grid, or tree", layout)
	}
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
  <script src="{{.ScriptURL}}"></script>
  <style>
    body { font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; margin: 0; background: #f5f5f5; }
    #cy { width: 100%; height: 100vh; background: white; }
    #header { position: absolute; top: 8px; left: 12px; z-index: 10; font-size: 13px; color: #555; }
    #empty { display: none; text-align: center; margin-top: 40vh; color: #666; }
    #tooltip {
      position: absolute; display: none; background: white; border: 1px solid #ccc;
      border-radius: 4px; padding: 8px 12px; box-shadow: 0 2px 8px rgba(0,0,0,0.15);
      max-width: 360px; font-size: 13px; z-index: 1000; pointer-events: none;
    }
    #tooltip .title { font-weight: bold; margin-bottom: 4px; }
    #tooltip .detail { color: #555; margin: 2px 0; }
  </style>
</head>
<body>
  <div id="header">{{.Title}}: {{.Nodes}} records, {{.Edges}} citations</div>
  <div id="empty">No records in the store yet. Run <code>pt crawl</code> first.</div>
  <div id="cy"></div>
  <div id="tooltip"></div>
  <script>
    (function() {
      const graphData = {{.GraphJSON}};
      if (graphData.nodes.length === 0) {
        document.getElementById('empty').style.display = 'block';
        document.getElementById('cy').style.display = 'none';
        return;
      }

      const cy = cytoscape({
        container: document.getElementById('cy'),
        elements: graphData,
        style: [
          {
            selector: 'node[type="record"]',
            style: {
              'background-color': '#4A90D9',
              'label': 'data(label)',
              'font-size': '9px',
              'text-valign': 'bottom',
              'text-margin-y': '4px',
              'width': 'mapData(inDegree, 0, 20, 16, 48)',
              'height': 'mapData(inDegree, 0, 20, 16, 48)'
            }
          },
          {
            selector: 'node[type="external"]',
            style: {
              'background-color': '#BDC3C7',
              'shape': 'rectangle',
              'width': '10px',
              'height': '10px'
            }
          },
          {
            selector: 'edge',
            style: {
              'line-color': '#B0BEC5',
              'target-arrow-color': '#B0BEC5',
              'target-arrow-shape': 'triangle',
              'curve-style': 'bezier',
              'width': 1
            }
          },
          { selector: 'node.highlighted', style: { 'border-width': 3, 'border-color': '#ff6b6b' } },
          { selector: '.dimmed', style: { 'opacity': 0.2 } }
        ],
        layout: { name: "{{.Layout}}", animate: false, directed: true }
      });

      const tooltip = document.getElementById('tooltip');

      function escapeHtml(str) {
        if (!str) return '';
        return String(str).replace(/&/g, '&amp;').replace(/</g, '&lt;')
                          .replace(/>/g, '&gt;').replace(/"/g, '&quot;');
      }

      function nodeTooltip(data) {
        if (data.type === 'external') {
          return '<div class="title">' + escapeHtml(data.id) + '</div><div class="detail">not cached</div>';
        }
        let html = '<div class="title">' + escapeHtml(data.title || data.id) + '</div>';
        if (data.authors) html += '<div class="detail">' + escapeHtml(data.authors) + '</div>';
        if (data.year) html += '<div class="detail">' + data.year + '</div>';
        html += '<div class="detail">INSPIRE ' + escapeHtml(data.id) + ', ' + data.citations + ' citations</div>';
        return html;
      }

      cy.on('mouseover', 'node', function(evt) {
        tooltip.innerHTML = nodeTooltip(evt.target.data());
        tooltip.style.display = 'block';
        const pos = evt.renderedPosition || evt.position;
        tooltip.style.left = (pos.x + 15) + 'px';
        tooltip.style.top = (pos.y + 15) + 'px';
      });
      cy.on('mouseout', 'node', function() { tooltip.style.display = 'none'; });

      cy.on('tap', 'node', function(evt) {
        cy.elements().removeClass('highlighted dimmed');
        const neighborhood = evt.target.closedNeighborhood();
        neighborhood.nodes().addClass('highlighted');
        cy.elements().not(neighborhood).addClass('dimmed');
      });
      cy.on('tap', function(evt) {
        if (evt.target === cy) cy.elements().removeClass('highlighted dimmed');
      });
      cy.on('dbltap', 'node[type="record"]', function(evt) {
        window.open('https://inspirehep.net/literature/' + evt.target.id(), '_blank');
      });
    })();
  </script>
</body>
</html>`
