package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/matsen/papertools/internal/storage"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

// StatsResponse is the response for the stats command.
type StatsResponse struct {
	Path        string                    `json:"path"`
	ReadOnly    bool                      `json:"read_only"`
	Collections []storage.CollectionStats `json:"collections"`
	FullText    int                       `json:"full_text_indexed"`
	Journaled   int                       `json:"embeddings_journaled"`
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show collection sizes",
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	collections, err := db.Stats()
	exitOnError(err, "reading stats")
	resp := StatsResponse{Path: db.Root(), ReadOnly: db.ReadOnly(), Collections: collections}

	if journal := openJournal(db); journal != nil {
		defer journal.Close()
		resp.FullText, err = journal.CountSearchIndex()
		exitOnError(err, "counting full-text index")
		resp.Journaled, err = journal.CountEmbeddingMetadata()
		exitOnError(err, "counting embedding journal")
	}

	if !humanOutput {
		outputJSON(resp)
		return nil
	}
	fmt.Printf("Store: %s\n\n", resp.Path)
	for _, c := range collections {
		fmt.Printf("  %-10s %12s entries %10s\n", c.Name, humanize.Comma(int64(c.Count)), humanize.IBytes(uint64(c.Bytes)))
	}
	fmt.Printf("\n  Full-text indexed: %s\n", humanize.Comma(int64(resp.FullText)))
	fmt.Printf("  Embeddings journaled: %s\n", humanize.Comma(int64(resp.Journaled)))
	return nil
}
