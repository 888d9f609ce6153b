package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/matsen/papertools/internal/crawl"
	"github.com/matsen/papertools/internal/inspire"
	"github.com/matsen/papertools/internal/storage"
)

var (
	crawlSize     int
	crawlMode     string
	crawlBatch    int
	crawlSingle   bool
	crawlTexKeys  []string
	crawlAuthor   string
	crawlProgress bool
)

func init() {
	rootCmd.AddCommand(crawlCmd)

	crawlCmd.Flags().IntVarP(&crawlSize, "size", "n", 1000, "Stop once the record collection holds this many records")
	crawlCmd.Flags().StringVarP(&crawlMode, "mode", "m", string(crawl.ModeRefs), "Neighbours to follow: refs, cites or both")
	crawlCmd.Flags().IntVarP(&crawlBatch, "batch", "b", 0, "Ids per batched step (default from config, else 50)")
	crawlCmd.Flags().BoolVar(&crawlSingle, "single", false, "Fetch one record per request (refs mode only)")
	crawlCmd.Flags().StringSliceVar(&crawlTexKeys, "texkey", nil, "Seed with the records behind these texkeys")
	crawlCmd.Flags().StringVar(&crawlAuthor, "author", "", "Seed with every record by this author")
	crawlCmd.Flags().BoolVar(&crawlProgress, "progress", false, "Print a status line after every step")
}

var crawlCmd = &cobra.Command{
	Use:   "crawl [id...]",
	Short: "Expand the citation graph into the local store",
	Long: `Crawl the INSPIRE-HEP citation graph breadth-first from the given
record ids, storing every record reached until the store holds --size
records or nothing is left to expand.

Records already in the store are reused without a request. Requires
--writable.`,
	RunE: runCrawl,
}

func runCrawl(cmd *cobra.Command, args []string) error {
	mode, err := crawl.ParseMode(crawlMode)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if crawlSingle && mode != crawl.ModeRefs {
		exitWithError(ExitError, "--single only follows references; drop --mode or --single")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()
	if db.ReadOnly() {
		exitOnError(storage.ErrReadOnly, "crawling")
	}

	client := newClient(cfg)
	roots, err := crawlRoots(ctx, client, pageSize(cfg, inspire.DefaultAuthorPageSize), args)
	exitOnError(err, "resolving roots")
	if len(roots) == 0 {
		exitWithError(ExitError, "nothing to crawl: give record ids, --texkey or --author")
	}

	batch := crawlBatch
	if batch <= 0 {
		batch = cfg.BatchSize
	}
	opts := []crawl.Option{
		crawl.WithBatch(batch),
		crawl.WithPageSize(pageSize(cfg, crawl.DefaultPageSize)),
	}
	if crawlProgress && humanOutput {
		opts = append(opts, crawl.WithProgress(func(s crawl.Stats) {
			fmt.Fprintf(os.Stderr, "\rstep %d: %d records, %d queued", s.Steps, s.FinalSize, s.Remaining)
		}))
	}
	crawler := crawl.New(client, db.Records, opts...)

	var stats *crawl.Stats
	if crawlSingle {
		stats, err = crawler.Crawl(ctx, roots, crawlSize)
	} else {
		stats, err = crawler.CrawlBatched(ctx, roots, crawlSize, mode)
	}
	if crawlProgress && humanOutput {
		clearProgress()
	}
	if stats != nil {
		printCrawlStats(stats)
	}
	exitOnError(err, "crawling")
	return nil
}

// crawlRoots merges explicit ids with texkey and author lookups.
func crawlRoots(ctx context.Context, client *inspire.Client, size int, ids []string) ([]string, error) {
	roots := append([]string{}, ids...)
	if len(crawlTexKeys) > 0 {
		byKey, err := client.GetIDsByTexKey(ctx, crawlTexKeys, size)
		if err != nil {
			return nil, err
		}
		for _, k := range crawlTexKeys {
			if id, ok := byKey[k]; ok {
				roots = append(roots, id)
			}
		}
	}
	if crawlAuthor != "" {
		byAuthor, err := client.GetIDsByAuthor(ctx, crawlAuthor, size)
		if err != nil {
			return nil, err
		}
		roots = append(roots, byAuthor...)
	}
	return roots, nil
}

func printCrawlStats(s *crawl.Stats) {
	if !humanOutput {
		outputJSON(s)
		return
	}
	fmt.Printf("Crawl %s:\n", s.RunID)
	fmt.Printf("  Fetched: %d\n", s.Fetched)
	fmt.Printf("  Reused from store: %d\n", s.Reused)
	fmt.Printf("  Missing upstream: %d\n", s.Missing)
	fmt.Printf("  Store size: %d\n", s.FinalSize)
	fmt.Printf("  Still queued: %d\n", s.Remaining)
	fmt.Printf("  Time elapsed: %s\n", formatDuration(s.Duration))
}
