package main

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"

	"github.com/matsen/papertools/internal/config"
	"github.com/matsen/papertools/internal/embedding"
	"github.com/matsen/papertools/internal/inspire"
	"github.com/matsen/papertools/internal/semantic"
	"github.com/matsen/papertools/internal/storage"
)

// mustLoadConfig loads the global config or exits.
func mustLoadConfig() *config.GlobalConfig {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return cfg
}

// vectorCodec returns the embedding layout from the config.
func vectorCodec(cfg *config.GlobalConfig) storage.VectorCodec {
	v := storage.DefaultVectors
	if cfg.VectorWidth != 0 {
		v.Width = cfg.VectorWidth
	}
	if cfg.Embedding.Dimensions > 0 {
		v.Dim = cfg.Embedding.Dimensions
	}
	return v
}

// mustOpenDatabase opens the data directory, read-only unless --writable.
func mustOpenDatabase(cfg *config.GlobalConfig) *storage.Database {
	var (
		root string
		err  error
	)
	if writable {
		root, err = config.EnsureDataPath(dataFlag)
	} else {
		root, err = config.ResolveDataPath(dataFlag)
	}
	if err != nil {
		exitWithError(ExitConfigError, "resolving data directory: %v", err)
	}

	opts := storage.Options{
		ReadOnly: !writable,
		MaxSize:  storage.DefaultMaxSize,
		Logger:   slog.Default(),
	}
	if cfg.MapSize > 0 {
		opts.MaxSize = cfg.MapSize
	}

	db, err := storage.OpenDatabase(root, opts, vectorCodec(cfg))
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			exitWithError(ExitConfigError, "no store at %s\n\nRun a command with --writable (e.g. 'pt crawl -w <id>') to create it.", root)
		case errors.Is(err, storage.ErrLocked):
			exitWithError(ExitStoreBusy, "store at %s is in use by another process\n\nA writer such as 'pt crawl -w' locks out every reader; wait for it to finish.", root)
		}
		exitWithError(ExitDataError, "opening store: %v", err)
	}
	closeOnExit(db)
	return db
}

// openJournal opens the sqlite journal next to the collections. A
// read-only store without a journal yields nil.
func openJournal(db *storage.Database) *storage.Journal {
	path := db.JournalPath()
	if db.ReadOnly() {
		if _, err := os.Stat(path); err != nil {
			return nil
		}
	}
	j, err := storage.OpenJournal(path, db.ReadOnly())
	if err != nil {
		exitWithError(ExitDataError, "opening journal: %v", err)
	}
	closeOnExit(j)
	return j
}

// newClient builds the INSPIRE client from the config.
func newClient(cfg *config.GlobalConfig) *inspire.Client {
	opts := []inspire.ClientOption{
		inspire.WithLogger(slog.Default()),
		inspire.WithRateLimiter(inspire.NewRateLimiter(cfg.MinInterval, 0)),
		inspire.WithHTTPClient(&http.Client{Timeout: inspire.DefaultTimeout}),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, inspire.WithBaseURL(cfg.BaseURL))
	}
	return inspire.NewClient(opts...)
}

// pageSize returns the configured page size, or def.
func pageSize(cfg *config.GlobalConfig, def int) int {
	if cfg.PageSize > 0 {
		return cfg.PageSize
	}
	return def
}

// mustNewProvider builds the embedding provider from the config.
func mustNewProvider(cfg *config.GlobalConfig) embedding.Provider {
	p, err := embedding.NewProvider(cfg.EmbeddingConfig())
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}
	return p
}

// newIndex wires the semantic index over the store.
func newIndex(cfg *config.GlobalConfig, db *storage.Database, journal *storage.Journal, provider embedding.Provider, opts ...semantic.Option) *semantic.Index {
	base := []semantic.Option{
		semantic.WithLogger(slog.Default()),
		semantic.WithQueryInstruction(cfg.Embedding.QueryInstruction),
	}
	if journal != nil {
		base = append(base, semantic.WithJournal(journal))
	}
	if cfg.EmbedBatchSize > 0 {
		base = append(base, semantic.WithBatchSize(cfg.EmbedBatchSize))
	}
	return semantic.New(db.Records, db.Embeddings, provider, append(base, opts...)...)
}
