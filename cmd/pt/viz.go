package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/papertools/internal/query"
	"github.com/matsen/papertools/internal/viz"
)

var (
	vizOutput   string
	vizLayout   string
	vizLimit    int
	vizExternal bool
	vizAuthor   string
	vizAfter    string
	vizBefore   string
)

func init() {
	rootCmd.AddCommand(vizCmd)

	f := vizCmd.Flags()
	f.StringVarP(&vizOutput, "output", "o", "", "Write HTML to this file instead of stdout")
	f.StringVar(&vizLayout, "layout", "force", "Layout algorithm: "+strings.Join(viz.ValidLayouts, ", "))
	f.IntVarP(&vizLimit, "limit", "l", DefaultVizLimit, "Draw only the N most cited records (-1 for all)")
	f.BoolVar(&vizExternal, "external", false, "Include cited records that are not stored")
	f.StringVar(&vizAuthor, "author", "", "An author full name contains this text")
	f.StringVar(&vizAfter, "after", "", "Created on or after this date (YYYY-MM-DD)")
	f.StringVar(&vizBefore, "before", "", "Created on or before this date (YYYY-MM-DD)")
}

var vizCmd = &cobra.Command{
	Use:   "viz",
	Short: "Render the stored citation graph as HTML",
	Long: `Generate a standalone HTML page drawing the citations among stored
records. Node size follows how often a record is cited within the graph.
Double-click a node to open it on INSPIRE.`,
	Example: `  pt viz -o graph.html
  pt viz --author Maldacena --layout tree -l 100 -o maldacena.html`,
	RunE: runViz,
}

func runViz(cmd *cobra.Command, args []string) error {
	var preds []query.Predicate
	if vizAuthor != "" {
		preds = append(preds, query.ByAuthor(vizAuthor))
	}
	if vizAfter != "" {
		preds = append(preds, query.After(mustParseDate(vizAfter)))
	}
	if vizBefore != "" {
		preds = append(preds, query.Before(mustParseDate(vizBefore)))
	}

	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	recs, err := query.Collect(db.Records.Values(), preds...)
	exitOnError(err, "loading records")
	query.SortByCitations(recs, true)
	recs = query.Take(recs, vizLimit)

	graph := viz.BuildGraph(recs, vizExternal)
	page, err := viz.GenerateHTML(graph, viz.HTMLOptions{Layout: vizLayout})
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if vizOutput == "" {
		fmt.Print(page)
		return nil
	}
	if err := os.WriteFile(vizOutput, []byte(page), 0o644); err != nil {
		exitWithError(ExitError, "writing %s: %v", vizOutput, err)
	}
	if humanOutput {
		fmt.Printf("Wrote %d nodes and %d edges to %s\n", len(graph.Nodes), len(graph.Edges), vizOutput)
	} else {
		outputJSON(StatusResponse{Status: "written", Path: vizOutput, Count: len(graph.Nodes)})
	}
	return nil
}
