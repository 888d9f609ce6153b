package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/matsen/papertools/internal/embedding"
	"github.com/matsen/papertools/internal/semantic"
	"github.com/matsen/papertools/internal/storage"
)

var (
	noProgress   bool
	refreshForce bool
)

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexRefreshCmd)
	indexCmd.AddCommand(indexBuildCmd)
	indexCmd.AddCommand(indexCheckCmd)
	indexCmd.AddCommand(indexTextCmd)

	indexRefreshCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Suppress progress output")
	indexRefreshCmd.Flags().BoolVar(&refreshForce, "force", false, "Re-embed records whose vector is up to date")
}

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the semantic and full-text indexes",
}

// IndexRefreshResult is the response for index refresh.
type IndexRefreshResult struct {
	Status string `json:"status"`
	Model  string `json:"model"`
	*semantic.RefreshStats
}

var indexRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Embed abstracts into the embedding collection",
	Long: `Embed the abstract of every stored record that lacks an up-to-date
vector and write the vectors to the embedding collection.

Requires --writable and a reachable embedding server.`,
	RunE: runIndexRefresh,
}

func runIndexRefresh(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()
	journal := openJournal(db)
	if journal != nil {
		defer journal.Close()
	}

	var opts []semantic.Option
	showProgress := humanOutput && !noProgress
	if showProgress {
		opts = append(opts, semantic.WithProgress(semantic.ProgressFunc(printProgress)))
	}
	provider := mustNewProvider(cfg)
	idx := newIndex(cfg, db, journal, provider, opts...)
	if !db.ReadOnly() {
		mustCheckOllama(ctx, provider)
	}

	stats, err := idx.Refresh(ctx, refreshForce)
	if showProgress {
		clearProgress()
	}
	exitOnError(err, "refreshing embeddings")

	model := provider.ModelName()
	if humanOutput {
		fmt.Printf("Refresh complete:\n")
		fmt.Printf("  Records embedded: %d\n", stats.RecordsEmbedded)
		fmt.Printf("  Already up to date: %d\n", stats.RecordsSkipped)
		fmt.Printf("  Without abstract: %d\n", stats.RecordsNoText)
		fmt.Printf("  Time elapsed: %s\n", formatDuration(stats.Duration))
		fmt.Printf("  Model: %s\n", model)
		return nil
	}
	outputJSON(IndexRefreshResult{Status: "complete", Model: model, RefreshStats: stats})
	return nil
}

// mustCheckOllama verifies the server and model before a long refresh.
// Other providers are checked by their first request.
func mustCheckOllama(ctx context.Context, provider embedding.Provider) {
	p, ok := provider.(*embedding.OllamaProvider)
	if !ok {
		return
	}
	if err := p.IsAvailable(ctx); err != nil {
		exitWithError(ExitDataError, "Ollama is not running\n\nStart Ollama with 'ollama serve' or install from https://ollama.ai")
	}
	hasModel, err := p.HasModel(ctx)
	if err != nil {
		exitWithError(ExitError, "checking model availability: %v", err)
	}
	if !hasModel {
		exitWithError(ExitDataError, "Embedding model '%s' not found\n\nRun 'ollama pull %s' to download it.", p.ModelName(), p.ModelName())
	}
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Load the embedding collection and report its size",
	Long: `Load every stored vector into the in-memory inner-product index,
the same step search and similar perform on first use.`,
	RunE: runIndexBuild,
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	idx := newIndex(cfg, db, nil, mustNewProvider(cfg))
	exitOnError(idx.Build(context.Background()), "building index")

	if humanOutput {
		fmt.Printf("Semantic index %s: %d vectors\n", idx.State(), idx.Len())
		return nil
	}
	outputJSON(StatusResponse{Status: idx.State().String(), Count: idx.Len()})
	return nil
}

// IndexCheckResult is the response for index check.
type IndexCheckResult struct {
	Status         string `json:"status"`
	Recommendation string `json:"recommendation,omitempty"`
	*semantic.CheckStats
}

var indexCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check semantic index health",
	Long: `Compare the record and embedding collections. Records with an
abstract but no vector are missing; vectors computed from an older abstract
or another model are stale (needs the journal written by refresh).`,
	RunE: runIndexCheck,
}

func runIndexCheck(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()
	journal := openJournal(db)
	if journal != nil {
		defer journal.Close()
	}

	stats, err := newIndex(cfg, db, journal, mustNewProvider(cfg)).Check(context.Background())
	exitOnError(err, "checking index")

	result := IndexCheckResult{Status: "healthy", CheckStats: stats}
	exitCode := ExitSuccess
	if len(stats.Missing) > 0 || len(stats.Stale) > 0 {
		result.Status = "stale"
		result.Recommendation = "Run 'pt index refresh -w' to update the index"
		exitCode = ExitIndexStale
	}

	if humanOutput {
		fmt.Printf("Semantic Index Status: %s\n\n", result.Status)
		fmt.Printf("Records:\n")
		fmt.Printf("  Total in store: %d\n", stats.Records)
		fmt.Printf("  With abstracts: %d\n", stats.WithAbstract)
		fmt.Printf("  Vectors stored: %d\n", stats.Indexed)
		fmt.Printf("  Missing vectors: %d\n", len(stats.Missing))
		fmt.Printf("  Stale vectors: %d\n", len(stats.Stale))
		fmt.Printf("  Orphaned vectors: %d\n", len(stats.Orphaned))
		if journal == nil {
			fmt.Printf("\nNo journal found; staleness was not checked.\n")
		}
		if result.Recommendation != "" {
			fmt.Printf("\n%s\n", result.Recommendation)
		}
	} else {
		outputJSON(result)
	}

	if exitCode != ExitSuccess {
		exit(exitCode)
	}
	return nil
}

var indexTextCmd = &cobra.Command{
	Use:   "text",
	Short: "Rebuild the full-text index used by find",
	Long:  `Rebuild the sqlite full-text index over titles, abstracts, authors and keywords. Requires --writable.`,
	RunE:  runIndexText,
}

func runIndexText(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()
	if db.ReadOnly() {
		exitOnError(storage.ErrReadOnly, "rebuilding full-text index")
	}
	journal := openJournal(db)
	defer journal.Close()

	n, err := journal.RebuildSearchIndex(db.Records.Values())
	exitOnError(err, "rebuilding full-text index")

	if humanOutput {
		fmt.Printf("Indexed %d records for full-text search\n", n)
		return nil
	}
	outputJSON(StatusResponse{Status: "complete", Path: db.JournalPath(), Count: n})
	return nil
}
