package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/papertools/internal/semantic"
	"github.com/matsen/papertools/internal/storage"
)

var (
	searchK        int
	searchAbstract bool
	similarK       int
)

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)

	searchCmd.Flags().IntVarP(&searchK, "k", "k", 10, "Number of results per query")
	searchCmd.Flags().BoolVar(&searchAbstract, "abstract", false, "Include abstracts in the output")
	similarCmd.Flags().IntVarP(&similarK, "k", "k", 10, "Number of results")
}

// SearchResult is the result list of one query.
type SearchResult struct {
	Query   string          `json:"query"`
	Results []RecordSummary `json:"results"`
}

var searchCmd = &cobra.Command{
	Use:   "search <query...>",
	Short: "Semantic search over stored abstracts",
	Long: `Embed each query and return the k records whose abstract vectors
have the largest inner product with it. Several queries are embedded in a
single model call.

Requires vectors written by 'pt index refresh'.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	idx := newIndex(cfg, db, nil, mustNewProvider(cfg))
	hits, err := idx.Search(ctx, args, searchK)
	exitOnError(err, "searching")
	if idx.Len() == 0 {
		exitWithError(ExitDataError, "Semantic index is empty\n\nRun 'pt index refresh -w' to embed stored abstracts.")
	}

	results := make([]SearchResult, len(args))
	for i, q := range args {
		results[i] = SearchResult{Query: q, Results: hitSummaries(db, hits[i], searchAbstract)}
	}

	if humanOutput {
		for _, r := range results {
			if len(args) > 1 {
				fmt.Printf("== %s\n\n", r.Query)
			}
			printSummariesHuman(r.Results)
		}
		return nil
	}
	outputJSON(results)
	return nil
}

// SimilarResponse is the response for the similar command.
type SimilarResponse struct {
	Source  RecordSummary   `json:"source"`
	Similar []RecordSummary `json:"similar"`
	Total   int             `json:"total"`
}

var similarCmd = &cobra.Command{
	Use:   "similar <id>",
	Short: "Find records with abstracts similar to a stored record",
	Long: `Find the records nearest to a record's stored abstract vector.
The source record is excluded from results.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimilar,
}

func runSimilar(cmd *cobra.Command, args []string) error {
	id := args[0]
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	source, err := db.Records.Get(id)
	exitOnError(err, "reading record "+id)

	idx := newIndex(cfg, db, nil, mustNewProvider(cfg))
	hits, err := idx.Similar(context.Background(), id, similarK)
	if errors.Is(err, semantic.ErrRecordNotFound) {
		exitWithError(ExitNotFound, "Record '%s' has no stored vector\n\nIt may have no abstract. Run 'pt index refresh -w' if it was added recently.", id)
	}
	exitOnError(err, "finding similar records")

	similar := hitSummaries(db, hits, false)
	if humanOutput {
		fmt.Printf("Records similar to: %s\n", id)
		fmt.Printf("\"%s\"\n\n", truncateString(source.Title(), DetailTitleMaxLen))
		printSummariesHuman(similar)
		return nil
	}
	outputJSON(SimilarResponse{Source: summarize(source), Similar: similar, Total: len(similar)})
	return nil
}

// hitSummaries joins hits with their records. Vectors whose record is gone
// are skipped.
func hitSummaries(db *storage.Database, hits []semantic.Hit, withAbstract bool) []RecordSummary {
	out := make([]RecordSummary, 0, len(hits))
	for _, h := range hits {
		rec, err := db.Records.Get(h.ID)
		if err != nil {
			continue
		}
		s := summarize(rec)
		score := h.Score
		s.Score = &score
		if withAbstract {
			s.Abstract = rec.Abstract()
		}
		out = append(out, s)
	}
	return out
}
