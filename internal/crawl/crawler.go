package crawl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/matsen/papertools/internal/inspire"
	"github.com/matsen/papertools/internal/reference"
	"github.com/matsen/papertools/internal/storage"
)

// Defaults for batched crawls.
const (
	DefaultBatch    = 50
	DefaultPageSize = 50
)

// Fetcher retrieves records from the remote catalogue.
type Fetcher interface {
	GetOne(ctx context.Context, id string) (*reference.Record, error)
	GetMany(ctx context.Context, ids []string, pageSize int) (map[string]*reference.Record, error)
	GetCitersOf(ctx context.Context, ids []string, pageSize int) ([]string, error)
}

// RecordStore is the collection a crawl fills. It doubles as the fetch
// cache and as the size oracle that stops the crawl.
type RecordStore interface {
	Get(key string) (*reference.Record, error)
	Set(key string, rec *reference.Record) error
	SetMany(entries map[string]*reference.Record) error
	Contains(key string) (bool, error)
	Len() (int, error)
}

// Mode selects which neighbours a batched crawl follows.
type Mode string

const (
	ModeRefs  Mode = "refs"  // records cited by the batch
	ModeCites Mode = "cites" // records citing the batch
	ModeBoth  Mode = "both"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeRefs, ModeCites, ModeBoth:
		return m, nil
	}
	return "", fmt.Errorf("unknown crawl mode %q (want refs, cites or both)", s)
}

// Stats summarizes one crawl run.
type Stats struct {
	RunID     string        `json:"run_id"`
	Fetched   int           `json:"fetched"` // records downloaded and stored
	Reused    int           `json:"reused"`  // records served from the collection
	Missing   int           `json:"missing"` // ids the server no longer has
	Steps     int           `json:"steps"`   // loop iterations
	FinalSize int           `json:"final_size"`
	Remaining int           `json:"remaining"` // ids still queued at exit
	Duration  time.Duration `json:"duration"`
}

// ProgressFunc is called after every crawl step.
type ProgressFunc func(Stats)

// Crawler expands the citation graph into a RecordStore.
type Crawler struct {
	fetcher  Fetcher
	store    RecordStore
	logger   *slog.Logger
	batch    int
	pageSize int
	progress ProgressFunc
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger for step logging.
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) { c.logger = l }
}

// WithBatch sets how many ids a batched step pops.
func WithBatch(n int) Option {
	return func(c *Crawler) { c.batch = n }
}

// WithPageSize sets the page size of remote lookups.
func WithPageSize(n int) Option {
	return func(c *Crawler) { c.pageSize = n }
}

// WithProgress registers a per-step callback.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Crawler) { c.progress = fn }
}

// New creates a crawler writing into store.
func New(fetcher Fetcher, store RecordStore, opts ...Option) *Crawler {
	c := &Crawler{
		fetcher:  fetcher,
		store:    store,
		logger:   slog.Default(),
		batch:    DefaultBatch,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.batch <= 0 {
		c.batch = DefaultBatch
	}
	if c.pageSize <= 0 {
		c.pageSize = DefaultPageSize
	}
	return c
}

// run holds the mutable state of one crawl.
type run struct {
	stats    Stats
	size     int
	target   int
	frontier *Frontier
	start    time.Time
	log      *slog.Logger
}

func (c *Crawler) begin(roots []string, target int) (*run, error) {
	size, err := c.store.Len()
	if err != nil {
		return nil, fmt.Errorf("counting collection: %w", err)
	}
	id := uuid.NewString()
	r := &run{
		stats:    Stats{RunID: id},
		size:     size,
		target:   target,
		frontier: NewFrontier(roots...),
		start:    time.Now(),
		log:      c.logger.With("run_id", id),
	}
	r.log.Info("crawl started", "roots", len(roots), "size", size, "target", target)
	return r, nil
}

func (r *run) done() bool {
	return r.size >= r.target || r.frontier.Len() == 0
}

func (c *Crawler) finish(r *run) *Stats {
	r.stats.FinalSize = r.size
	r.stats.Remaining = r.frontier.Len()
	r.stats.Duration = time.Since(r.start)
	r.log.Info("crawl finished",
		"fetched", r.stats.Fetched,
		"reused", r.stats.Reused,
		"steps", r.stats.Steps,
		"size", r.size,
		"remaining", r.stats.Remaining)
	return &r.stats
}

func (c *Crawler) step(r *run) {
	r.stats.Steps++
	r.stats.FinalSize = r.size
	r.stats.Remaining = r.frontier.Len()
	if c.progress != nil {
		c.progress(r.stats)
	}
}

// Crawl expands one id at a time, following references, until the
// collection holds target records or the frontier is empty.
//
// On error or cancellation the records stored so far remain and the
// returned Stats describe the partial run.
func (c *Crawler) Crawl(ctx context.Context, roots []string, target int) (*Stats, error) {
	r, err := c.begin(roots, target)
	if err != nil {
		return nil, err
	}

	for !r.done() {
		if err := ctx.Err(); err != nil {
			return c.finish(r), err
		}

		id, _ := r.frontier.Pop()
		rec, err := c.lookup(ctx, r, id)
		if err != nil {
			return c.finish(r), err
		}
		if rec != nil {
			r.frontier.PushAll(reference.ReferenceIDs(rec))
		}
		c.step(r)
	}
	return c.finish(r), nil
}

// lookup returns the cached record for id or fetches and stores it. A nil
// record with nil error means the id no longer exists upstream.
func (c *Crawler) lookup(ctx context.Context, r *run, id string) (*reference.Record, error) {
	rec, err := c.store.Get(id)
	if err == nil {
		r.stats.Reused++
		return rec, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("reading %s: %w", id, err)
	}

	rec, err = c.fetcher.GetOne(ctx, id)
	if inspire.IsNotFound(err) {
		r.stats.Missing++
		r.log.Warn("record missing upstream", "id", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", id, err)
	}
	if err := c.store.Set(id, rec); err != nil {
		return nil, fmt.Errorf("storing %s: %w", id, err)
	}
	r.size++
	r.stats.Fetched++
	r.log.Debug("fetched record", "id", id, "title", rec.Title())
	return rec, nil
}

// CrawlBatched expands batches of ids at a time, following references,
// citers or both according to mode.
//
// A step never pops more ids than the collection has room for, so the
// collection does not overshoot target unless the server answers with
// records under ids that were not asked for.
func (c *Crawler) CrawlBatched(ctx context.Context, roots []string, target int, mode Mode) (*Stats, error) {
	if _, err := ParseMode(string(mode)); err != nil {
		return nil, err
	}
	r, err := c.begin(roots, target)
	if err != nil {
		return nil, err
	}

	for !r.done() {
		if err := ctx.Err(); err != nil {
			return c.finish(r), err
		}

		ids := r.frontier.PopN(min(c.batch, r.target-r.size))
		records, err := c.collect(ctx, r, ids)
		if err != nil {
			return c.finish(r), err
		}

		branch, err := c.branch(ctx, records, mode)
		if err != nil {
			return c.finish(r), err
		}
		added := r.frontier.PushAll(branch)

		c.step(r)
		r.log.Info("crawl step",
			"step", r.stats.Steps,
			"batch", len(ids),
			"records", len(records),
			"queued", added,
			"queue", r.frontier.Len(),
			"size", r.size)
	}
	return c.finish(r), nil
}

// collect resolves ids against the collection, fetches the rest in one
// batched lookup and stores what came back. Records are returned in id
// order; ids unknown to both sides are dropped.
func (c *Crawler) collect(ctx context.Context, r *run, ids []string) ([]*reference.Record, error) {
	cached := make(map[string]*reference.Record, len(ids))
	var missing []string
	for _, id := range ids {
		rec, err := c.store.Get(id)
		switch {
		case err == nil:
			cached[id] = rec
			r.stats.Reused++
		case errors.Is(err, storage.ErrNotFound):
			missing = append(missing, id)
		default:
			return nil, fmt.Errorf("reading %s: %w", id, err)
		}
	}

	var grabbed map[string]*reference.Record
	if len(missing) > 0 {
		var err error
		grabbed, err = c.fetcher.GetMany(ctx, missing, c.pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetching batch: %w", err)
		}
	}

	fresh := make(map[string]*reference.Record, len(grabbed))
	for id, rec := range grabbed {
		if _, ok := cached[id]; ok {
			continue
		}
		ok, err := c.store.Contains(id)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", id, err)
		}
		if !ok {
			fresh[id] = rec
		}
	}
	if len(fresh) > 0 {
		if err := c.store.SetMany(fresh); err != nil {
			return nil, fmt.Errorf("storing batch: %w", err)
		}
		r.size += len(fresh)
		r.stats.Fetched += len(fresh)
	}

	records := make([]*reference.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := cached[id]; ok {
			records = append(records, rec)
		} else if rec, ok := grabbed[id]; ok {
			records = append(records, rec)
		} else {
			r.stats.Missing++
			r.log.Warn("record missing upstream", "id", id)
		}
	}
	return records, nil
}

// branch computes the candidate next-frontier ids of a batch, deduplicated
// in first-seen order.
func (c *Crawler) branch(ctx context.Context, records []*reference.Record, mode Mode) ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	add := func(ids []string) {
		for _, id := range ids {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}

	if mode == ModeRefs || mode == ModeBoth {
		for _, rec := range records {
			add(reference.ReferenceIDs(rec))
		}
	}
	if (mode == ModeCites || mode == ModeBoth) && len(records) > 0 {
		ids := make([]string, len(records))
		for i, rec := range records {
			ids[i] = rec.ID
		}
		citers, err := c.fetcher.GetCitersOf(ctx, ids, c.pageSize)
		if err != nil {
			return nil, fmt.Errorf("fetching citers: %w", err)
		}
		add(citers)
	}
	return out, nil
}
