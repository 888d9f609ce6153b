package semantic

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/matsen/papertools/internal/embedding"
	"github.com/matsen/papertools/internal/storage"
)

// ProgressReporter receives progress updates during a refresh.
type ProgressReporter interface {
	// OnProgress is called with the current progress.
	OnProgress(current, total int)
}

// ProgressFunc is a function adapter for ProgressReporter.
type ProgressFunc func(current, total int)

// OnProgress implements ProgressReporter.
func (f ProgressFunc) OnProgress(current, total int) {
	f(current, total)
}

type pending struct {
	ids    []string
	texts  []string
	hashes []string
}

func (p *pending) reset() {
	p.ids, p.texts, p.hashes = p.ids[:0], p.texts[:0], p.hashes[:0]
}

// Refresh embeds the abstract of every record that has one and writes the
// vectors to the embedding collection in batches, overwriting prior vectors.
// With a journal and without force, records whose journal entry matches the
// current abstract hash and model are skipped. Without a journal every
// vector is recomputed.
//
// A read-only embedding collection fails with ErrReadOnly before the model
// is called. The in-memory index is not reloaded; call Rebuild for that.
func (idx *Index) Refresh(ctx context.Context, force bool) (*RefreshStats, error) {
	if idx.embeddings.ReadOnly() {
		return nil, ErrReadOnly
	}

	start := time.Now()
	runID := uuid.NewString()
	log := idx.logger.With("run_id", runID)
	stats := &RefreshStats{}

	total, err := idx.records.Len()
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	log.Info("refreshing embeddings", "records", total, "model", idx.provider.ModelName(), "force", force)

	var batch pending
	processed := 0
	for item, err := range idx.records.Items() {
		if err != nil {
			return stats, fmt.Errorf("reading records: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		processed++
		if idx.progress != nil {
			idx.progress.OnProgress(processed, total)
		}

		abstract := strings.TrimSpace(item.Value.Abstract())
		if abstract == "" {
			stats.RecordsNoText++
			continue
		}
		hash := hashAbstract(abstract)
		if !force {
			fresh, err := idx.upToDate(item.Key, hash)
			if err != nil {
				return stats, err
			}
			if fresh {
				stats.RecordsSkipped++
				continue
			}
		}

		batch.ids = append(batch.ids, item.Key)
		batch.texts = append(batch.texts, truncate(abstract, MaxAbstractLength))
		batch.hashes = append(batch.hashes, hash)
		if len(batch.ids) >= idx.batchSize {
			if err := idx.flush(ctx, &batch, stats); err != nil {
				return stats, err
			}
			log.Debug("embedded batch", "batch", stats.Batches, "embedded", stats.RecordsEmbedded)
		}
	}
	if len(batch.ids) > 0 {
		if err := idx.flush(ctx, &batch, stats); err != nil {
			return stats, err
		}
	}

	stats.Duration = time.Since(start)
	log.Info("refreshed embeddings",
		"embedded", stats.RecordsEmbedded,
		"skipped", stats.RecordsSkipped,
		"no_text", stats.RecordsNoText,
		"duration", stats.Duration)
	return stats, nil
}

// upToDate reports whether id already has a vector built from an abstract
// with the given hash by the current model. Without a journal nothing is.
func (idx *Index) upToDate(id, hash string) (bool, error) {
	if idx.journal == nil {
		return false, nil
	}
	ok, err := idx.embeddings.Contains(id)
	if err != nil || !ok {
		return false, err
	}
	meta, err := idx.journal.GetEmbeddingMetadata(id)
	if err != nil {
		return false, fmt.Errorf("reading embedding metadata for %s: %w", id, err)
	}
	return meta != nil && meta.AbstractHash == hash && meta.ModelName == idx.provider.ModelName(), nil
}

func (idx *Index) flush(ctx context.Context, batch *pending, stats *RefreshStats) error {
	defer batch.reset()

	vecs, err := idx.provider.EmbedBatch(ctx, batch.texts)
	if err != nil {
		return fmt.Errorf("embedding batch starting at %s: %w", batch.ids[0], err)
	}
	if len(vecs) != len(batch.ids) {
		return fmt.Errorf("embedding batch: got %d vectors for %d abstracts", len(vecs), len(batch.ids))
	}

	entries := make(map[string][]float32, len(vecs))
	for i, v := range vecs {
		entries[batch.ids[i]] = embedding.Normalize(v)
	}
	if err := idx.embeddings.SetMany(entries); err != nil {
		return fmt.Errorf("writing embeddings: %w", err)
	}

	if idx.journal != nil {
		now := time.Now().Unix()
		metas := make([]storage.EmbeddingMetadata, len(batch.ids))
		for i, id := range batch.ids {
			metas[i] = storage.EmbeddingMetadata{
				RecordID:     id,
				ModelName:    idx.provider.ModelName(),
				IndexedAt:    now,
				AbstractHash: batch.hashes[i],
			}
		}
		if err := idx.journal.SaveEmbeddingMetadata(metas); err != nil {
			return fmt.Errorf("saving embedding metadata: %w", err)
		}
	}

	stats.Batches++
	stats.RecordsEmbedded += len(vecs)
	return nil
}

// Check compares the record collection with the embedding collection.
func (idx *Index) Check(ctx context.Context) (*CheckStats, error) {
	stats := &CheckStats{Missing: []string{}, Stale: []string{}, Orphaned: []string{}}

	hashes := make(map[string]string)
	known := make(map[string]bool)
	for item, err := range idx.records.Items() {
		if err != nil {
			return nil, fmt.Errorf("reading records: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		stats.Records++
		known[item.Key] = true
		abstract := strings.TrimSpace(item.Value.Abstract())
		if abstract == "" {
			continue
		}
		stats.WithAbstract++
		hashes[item.Key] = hashAbstract(abstract)
	}

	indexed := make(map[string]bool)
	for key, err := range idx.embeddings.Keys() {
		if err != nil {
			return nil, fmt.Errorf("reading embeddings: %w", err)
		}
		stats.Indexed++
		indexed[key] = true
		if !known[key] {
			stats.Orphaned = append(stats.Orphaned, key)
		}
	}

	for id := range hashes {
		if !indexed[id] {
			stats.Missing = append(stats.Missing, id)
		}
	}
	slices.Sort(stats.Missing)

	if idx.journal != nil {
		stale, err := idx.journal.StaleRecords(hashes, idx.provider.ModelName())
		if err != nil {
			return nil, fmt.Errorf("checking staleness: %w", err)
		}
		if stale != nil {
			stats.Stale = stale
		}
	}
	return stats, nil
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// hashAbstract computes a SHA256 hash of the abstract text.
func hashAbstract(abstract string) string {
	h := sha256.New()
	io.WriteString(h, abstract)
	return fmt.Sprintf("%x", h.Sum(nil))
}
