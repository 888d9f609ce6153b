package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/papertools/internal/reference"
	"github.com/matsen/papertools/internal/storage"
)

var (
	findTitle   string
	findAuthor  []string
	findKeyword string
	findLimit   int
)

func init() {
	rootCmd.AddCommand(findCmd)

	findCmd.Flags().StringVar(&findTitle, "title", "", "Match words in the title")
	findCmd.Flags().StringSliceVar(&findAuthor, "author", nil, "Match an author name prefix (repeatable, all must match)")
	findCmd.Flags().StringVar(&findKeyword, "keyword", "", "Match words anywhere")
	findCmd.Flags().IntVarP(&findLimit, "limit", "l", DefaultListLimit, "Maximum number of results")
}

var findCmd = &cobra.Command{
	Use:   "find [words...]",
	Short: "Full-text search over titles, abstracts and authors",
	Long: `Search the sqlite full-text index built by 'pt index text'.
Positional words are matched anywhere, like --keyword.`,
	RunE: runFind,
}

func runFind(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()
	journal := openJournal(db)
	if journal == nil {
		exitWithError(ExitConfigError, "no full-text index\n\nRun 'pt index text -w' to build it.")
	}
	defer journal.Close()

	filters := storage.TextFilters{
		Keyword: strings.TrimSpace(strings.Join(args, " ") + " " + findKeyword),
		Title:   findTitle,
		Authors: findAuthor,
	}
	ids, err := journal.SearchWithFilters(filters, findLimit)
	exitOnError(err, "searching")

	results := make([]RecordSummary, 0, len(ids))
	for _, id := range ids {
		rec, err := db.Records.Get(id)
		if err != nil {
			continue
		}
		results = append(results, summarize(rec))
	}
	printRecordList(results)
	return nil
}

// ListResponse is the response for list-style commands.
type ListResponse struct {
	Records []RecordSummary `json:"records"`
	Total   int             `json:"total"`
}

func printRecordList(results []RecordSummary) {
	if humanOutput {
		printSummariesHuman(results)
		return
	}
	outputJSON(ListResponse{Records: results, Total: len(results)})
}

func summarizeAll(recs []*reference.Record) []RecordSummary {
	out := make([]RecordSummary, len(recs))
	for i, r := range recs {
		out[i] = summarize(r)
	}
	return out
}
