package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/papertools/internal/config"
	"github.com/matsen/papertools/internal/export"
	"github.com/matsen/papertools/internal/inspire"
	"github.com/matsen/papertools/internal/storage"
)

var (
	bibAll     bool
	bibRefresh bool
	bibAppend  string
)

func init() {
	rootCmd.AddCommand(bibtexCmd)
	bibtexCmd.AddCommand(bibtexFetchCmd)
	bibtexCmd.AddCommand(bibtexGetCmd)
	bibtexCmd.AddCommand(bibtexRenderCmd)

	bibtexFetchCmd.Flags().BoolVar(&bibAll, "all", false, "Fetch for every stored record without an entry")
	bibtexFetchCmd.Flags().BoolVar(&bibRefresh, "refresh", false, "Fetch again even when an entry is stored")
	for _, c := range []*cobra.Command{bibtexFetchCmd, bibtexGetCmd, bibtexRenderCmd} {
		c.Flags().StringVarP(&bibAppend, "append", "a", "", "Append entries not already present to this .bib file")
	}
}

var bibtexCmd = &cobra.Command{
	Use:   "bibtex",
	Short: "Fetch and render BibTeX entries",
}

// BibTeXResponse is the response for the bibtex commands.
type BibTeXResponse struct {
	Entries   map[string]string `json:"entries"`
	Fetched   int               `json:"fetched"`
	Cached    int               `json:"cached"`
	Unmatched []string          `json:"unmatched,omitempty"`
	Appended  int               `json:"appended,omitempty"`
}

var bibtexFetchCmd = &cobra.Command{
	Use:   "fetch [id...]",
	Short: "Fetch BibTeX for many records in batched requests",
	Long: `Fetch BibTeX entries from INSPIRE for the given record ids, 100 ids
per request. Entries are matched back to ids through their texkeys and
stored in the bibtex collection when --writable.`,
	RunE: runBibTeXFetch,
}

func runBibTeXFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	ids := args
	if bibAll {
		for key, err := range db.Records.Keys() {
			exitOnError(err, "listing records")
			ids = append(ids, key)
		}
	}
	if len(ids) == 0 {
		exitWithError(ExitError, "give record ids or --all")
	}

	resp := BibTeXResponse{Entries: make(map[string]string)}
	var pending []string
	for _, id := range ids {
		if !bibRefresh {
			if entry, err := db.BibTeX.Get(id); err == nil {
				if !bibAll {
					resp.Entries[id] = entry
				}
				resp.Cached++
				continue
			}
		}
		pending = append(pending, id)
	}

	if len(pending) > 0 {
		fetched, unmatched, err := fetchBibTeX(ctx, cfg, db, pending)
		exitOnError(err, "fetching bibtex")
		for id, entry := range fetched {
			resp.Entries[id] = entry
		}
		resp.Fetched = len(fetched)
		resp.Unmatched = unmatched

		if !db.ReadOnly() {
			exitOnError(db.BibTeX.SetMany(fetched), "storing bibtex")
		} else {
			slog.Warn("store is read-only, fetched entries were not saved")
		}
	}

	resp.Appended = mustAppendBib(resp.Entries)
	printBibTeX(resp)
	return nil
}

// fetchBibTeX downloads entries for ids and assigns them to ids through
// texkeys, asking INSPIRE for keys the store does not know.
func fetchBibTeX(ctx context.Context, cfg *config.GlobalConfig, db *storage.Database, ids []string) (map[string]string, []string, error) {
	client := newClient(cfg)
	entries, err := client.GetBibTeXMany(ctx, ids, pageSize(cfg, inspire.DefaultBibTeXPageSize))
	if err != nil {
		return nil, nil, err
	}

	texkeys := make(map[string]string)
	for _, id := range ids {
		rec, err := db.Records.Get(id)
		if err != nil {
			continue
		}
		for _, k := range rec.Metadata.TexKeys {
			texkeys[k] = id
		}
	}
	byID, unmatched := export.MapEntriesToIDs(entries, texkeys)
	if len(unmatched) == 0 {
		return byID, nil, nil
	}

	var keys []string
	for _, e := range unmatched {
		if k, ok := export.EntryKey(e); ok {
			keys = append(keys, k)
		}
	}
	remote, err := client.GetIDsByTexKey(ctx, keys, pageSize(cfg, inspire.DefaultTexKeyPageSize))
	if err != nil {
		return byID, nil, err
	}
	more, still := export.MapEntriesToIDs(unmatched, remote)
	for id, e := range more {
		if slices.Contains(ids, id) {
			byID[id] = e
		}
	}

	var leftover []string
	for _, e := range still {
		k, _ := export.EntryKey(e)
		leftover = append(leftover, k)
	}
	return byID, leftover, nil
}

var bibtexGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show the BibTeX entry of one record",
	Args:  cobra.ExactArgs(1),
	RunE:  runBibTeXGet,
}

func runBibTeXGet(cmd *cobra.Command, args []string) error {
	id := args[0]
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	resp := BibTeXResponse{Entries: make(map[string]string)}
	entry, err := db.BibTeX.Get(id)
	if err == nil {
		resp.Cached = 1
	} else {
		entry, err = newClient(cfg).GetBibTeX(context.Background(), id)
		exitOnError(err, "fetching bibtex for "+id)
		entry = strings.TrimSpace(entry)
		resp.Fetched = 1
		if !db.ReadOnly() {
			exitOnError(db.BibTeX.Set(id, entry), "storing bibtex")
		}
	}
	resp.Entries[id] = entry

	resp.Appended = mustAppendBib(resp.Entries)
	printBibTeX(resp)
	return nil
}

var bibtexRenderCmd = &cobra.Command{
	Use:   "render <id...>",
	Short: "Render BibTeX locally from stored records",
	Long: `Render BibTeX entries from the stored record metadata without
contacting INSPIRE. The entries are simpler than INSPIRE's own.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBibTeXRender,
}

func runBibTeXRender(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	resp := BibTeXResponse{Entries: make(map[string]string)}
	for _, id := range args {
		rec, err := db.Records.Get(id)
		exitOnError(err, "reading record "+id)
		resp.Entries[id] = strings.TrimSpace(export.ToBibTeX(rec))
	}

	resp.Appended = mustAppendBib(resp.Entries)
	printBibTeX(resp)
	return nil
}

// mustAppendBib appends the entries missing from --append, if given.
func mustAppendBib(entries map[string]string) int {
	if bibAppend == "" {
		return 0
	}
	existing, err := export.ParseBibTeXFile(bibAppend)
	if err != nil {
		exitWithError(ExitError, "reading %s: %v", bibAppend, err)
	}

	var fresh []string
	for _, id := range sortedKeys(entries) {
		e := entries[id]
		if existing.Contains(e) {
			continue
		}
		existing.Add(e)
		fresh = append(fresh, e)
	}
	if len(fresh) == 0 {
		return 0
	}
	if err := export.AppendToBibFile(bibAppend, strings.Join(fresh, "\n\n")+"\n"); err != nil {
		exitWithError(ExitError, "appending to %s: %v", bibAppend, err)
	}
	return len(fresh)
}

func printBibTeX(resp BibTeXResponse) {
	if !humanOutput {
		outputJSON(resp)
		return
	}
	for _, id := range sortedKeys(resp.Entries) {
		fmt.Printf("%s\n\n", resp.Entries[id])
	}
	if len(resp.Unmatched) > 0 {
		fmt.Printf("Unmatched entries: %s\n", strings.Join(resp.Unmatched, ", "))
	}
	if bibAppend != "" {
		fmt.Printf("Appended %d entries to %s\n", resp.Appended, bibAppend)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
