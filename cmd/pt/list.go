package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/matsen/papertools/internal/query"
)

var (
	listYear     int
	listAfter    string
	listBefore   string
	listAuthor   string
	listName     string
	listTitle    string
	listAbstract []string
	listType     string
	listHasAbs   bool
	listSort     bool
	listAsc      bool
	listLimit    int
)

func init() {
	rootCmd.AddCommand(listCmd)

	f := listCmd.Flags()
	f.IntVar(&listYear, "year", 0, "Created in this year")
	f.StringVar(&listAfter, "after", "", "Created on or after this date (YYYY-MM-DD)")
	f.StringVar(&listBefore, "before", "", "Created on or before this date (YYYY-MM-DD)")
	f.StringVar(&listAuthor, "author", "", "An author full name contains this text")
	f.StringVar(&listName, "name", "", "An author matches this name (\"Last\", \"First Last\" or \"Last, First\")")
	f.StringVar(&listTitle, "title", "", "Title contains this text")
	f.StringSliceVar(&listAbstract, "abstract", nil, "Abstract contains this text (repeatable, all must match)")
	f.StringVar(&listType, "type", "", "Document type (article, thesis, ...)")
	f.BoolVar(&listHasAbs, "has-abstract", false, "Only records with an abstract")
	f.BoolVar(&listSort, "sort-citations", false, "Most cited first")
	f.BoolVar(&listAsc, "ascending", false, "With --sort-citations, least cited first")
	f.IntVarP(&listLimit, "limit", "l", DefaultListLimit, "Maximum number of results (-1 for all)")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Filter stored records",
	Long: `Scan the record collection and list records matching every given
filter. Text filters ignore case.`,
	Example: `  pt list --abstract "quasinormal mode" --abstract ringdown --sort-citations -l 5
  pt list --after 2015-01-01 --before 2020-01-01 --name "Maldacena"`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	preds := listPredicates()

	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	recs, err := query.Collect(db.Records.Values(), preds...)
	exitOnError(err, "listing records")
	if listSort {
		query.SortByCitations(recs, !listAsc)
	}
	printRecordList(summarizeAll(query.Take(recs, listLimit)))
	return nil
}

func listPredicates() []query.Predicate {
	var preds []query.Predicate
	if listYear != 0 {
		preds = append(preds, query.ByYear(listYear))
	}
	if listAfter != "" {
		preds = append(preds, query.After(mustParseDate(listAfter)))
	}
	if listBefore != "" {
		preds = append(preds, query.Before(mustParseDate(listBefore)))
	}
	if listAuthor != "" {
		preds = append(preds, query.ByAuthor(listAuthor))
	}
	if listName != "" {
		preds = append(preds, query.ByAuthorName(listName))
	}
	if listTitle != "" {
		preds = append(preds, query.ByTitle(listTitle))
	}
	for _, a := range listAbstract {
		preds = append(preds, query.ByAbstract(a))
	}
	if listType != "" {
		preds = append(preds, query.ByDocumentType(listType))
	}
	if listHasAbs {
		preds = append(preds, query.HasAbstract())
	}
	return preds
}

func mustParseDate(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		exitWithError(ExitError, "invalid date %q (want YYYY-MM-DD)", s)
	}
	return t
}
