package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/matsen/papertools/internal/reference"
	_ "modernc.org/sqlite"
)

// Journal is a sqlite side table next to the collections. It holds a
// full-text index over cached records and the bookkeeping that tells which
// embeddings are stale. It is derived data: rebuilding it never touches the
// collections.
type Journal struct {
	db       *sql.DB
	readOnly bool

	closeOnce sync.Once
	closeErr  error
}

// OpenJournal opens or creates the journal at path. A read-only journal
// must already exist.
func OpenJournal(path string, readOnly bool) (*Journal, error) {
	dsn := path
	if readOnly {
		dsn = "file:" + path + "?mode=ro"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if readOnly {
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, fmt.Errorf("opening journal: %w", err)
		}
	} else if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Journal{db: db, readOnly: readOnly}, nil
}

// Close closes the database connection. Later calls return the result of
// the first.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() { j.closeErr = j.db.Close() })
	return j.closeErr
}

func createSchema(db *sql.DB) error {
	schema := `
		-- Full-text search over cached records
		CREATE VIRTUAL TABLE IF NOT EXISTS records_fts USING fts5(
			id UNINDEXED,
			title,
			abstract,
			authors_text,
			keywords
		);

		-- Embedding metadata for staleness detection
		CREATE TABLE IF NOT EXISTS embedding_metadata (
			record_id TEXT PRIMARY KEY,
			model_name TEXT NOT NULL,
			indexed_at INTEGER NOT NULL,
			abstract_hash TEXT NOT NULL
		);
	`

	_, err := db.Exec(schema)
	return err
}

// RebuildSearchIndex replaces the full-text index with the given records.
// It runs in one transaction; on error the previous index is kept.
func (j *Journal) RebuildSearchIndex(records iter.Seq2[*reference.Record, error]) (int, error) {
	if j.readOnly {
		return 0, ErrReadOnly
	}

	tx, err := j.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM records_fts"); err != nil {
		return 0, fmt.Errorf("clearing records_fts table: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO records_fts (id, title, abstract, authors_text, keywords)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("preparing fts insert: %w", err)
	}
	defer stmt.Close()

	n := 0
	for rec, err := range records {
		if err != nil {
			return 0, fmt.Errorf("reading records: %w", err)
		}
		_, err = stmt.Exec(rec.ID, rec.Title(), rec.Abstract(),
			strings.Join(rec.AuthorNames(), "; "), strings.Join(rec.KeywordValues(), "; "))
		if err != nil {
			return 0, fmt.Errorf("inserting fts for %s: %w", rec.ID, err)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// TextFilters narrows a full-text search. All set fields must match.
type TextFilters struct {
	Keyword string   // General keyword search across all fields
	Title   string   // Search in title only
	Authors []string // Author names (AND logic, prefix matching)
}

// SearchText returns the ids of records matching a keyword query, best
// match first.
func (j *Journal) SearchText(query string, limit int) ([]string, error) {
	return j.SearchWithFilters(TextFilters{Keyword: query}, limit)
}

// SearchWithFilters returns the ids of records matching every filter, best
// match first.
func (j *Journal) SearchWithFilters(filters TextFilters, limit int) ([]string, error) {
	var ftsTerms []string
	if filters.Keyword != "" {
		ftsTerms = append(ftsTerms, prepareFTSQuery(filters.Keyword))
	}
	if filters.Title != "" {
		ftsTerms = append(ftsTerms, "title:"+prepareFTSQuery(filters.Title))
	}
	for _, author := range filters.Authors {
		if author != "" {
			ftsTerms = append(ftsTerms, "authors_text:"+prepareAuthorQuery(author))
		}
	}
	if len(ftsTerms) == 0 {
		return nil, errors.New("empty search")
	}

	rows, err := j.db.Query(`
		SELECT id FROM records_fts
		WHERE records_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, strings.Join(ftsTerms, " AND "), limit)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}
	defer rows.Close()

	return scanIDs(rows)
}

// CountSearchIndex returns the number of records in the full-text index.
func (j *Journal) CountSearchIndex() (int, error) {
	var count int
	err := j.db.QueryRow("SELECT COUNT(*) FROM records_fts").Scan(&count)
	return count, err
}

func scanIDs(rows *sql.Rows) ([]string, error) {
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// prepareAuthorQuery prepares an author name for FTS5 search with prefix matching.
// It adds a wildcard (*) to enable fuzzy matching (e.g., "Ed" matches "Edward").
func prepareAuthorQuery(author string) string {
	author = strings.TrimSpace(author)
	if author == "" {
		return author
	}

	var terms []string
	for _, part := range strings.Fields(strings.ReplaceAll(author, ",", " ")) {
		escaped := strings.ReplaceAll(part, "\"", "\"\"")
		terms = append(terms, "\""+escaped+"\"*")
	}

	// Use OR for multi-word author queries (match any part)
	return "(" + strings.Join(terms, " OR ") + ")"
}

// prepareFTSQuery escapes special characters for FTS5 queries.
func prepareFTSQuery(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	// FTS5 uses double quotes for phrase matching
	if strings.ContainsAny(query, "\"*+-:(){}[]^~/") {
		query = strings.ReplaceAll(query, "\"", "\"\"")
		return "\"" + query + "\""
	}

	return query
}

// EmbeddingMetadata records when and from what text a vector was computed.
type EmbeddingMetadata struct {
	RecordID     string `json:"record_id"`
	ModelName    string `json:"model_name"`
	IndexedAt    int64  `json:"indexed_at"`    // Unix timestamp
	AbstractHash string `json:"abstract_hash"` // SHA256 of abstract
}

// SaveEmbeddingMetadata upserts metadata for a batch of records in one
// transaction.
func (j *Journal) SaveEmbeddingMetadata(metas []EmbeddingMetadata) error {
	if j.readOnly {
		return ErrReadOnly
	}

	tx, err := j.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO embedding_metadata (record_id, model_name, indexed_at, abstract_hash)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, m := range metas {
		if _, err := stmt.Exec(m.RecordID, m.ModelName, m.IndexedAt, m.AbstractHash); err != nil {
			return fmt.Errorf("saving metadata for %s: %w", m.RecordID, err)
		}
	}
	return tx.Commit()
}

// GetEmbeddingMetadata retrieves embedding metadata for a record. It returns
// nil without error when none is stored.
func (j *Journal) GetEmbeddingMetadata(recordID string) (*EmbeddingMetadata, error) {
	var meta EmbeddingMetadata
	err := j.db.QueryRow(`
		SELECT record_id, model_name, indexed_at, abstract_hash
		FROM embedding_metadata
		WHERE record_id = ?
	`, recordID).Scan(&meta.RecordID, &meta.ModelName, &meta.IndexedAt, &meta.AbstractHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &meta, nil
}

// ClearEmbeddingMetadata removes all embedding metadata.
func (j *Journal) ClearEmbeddingMetadata() error {
	if j.readOnly {
		return ErrReadOnly
	}
	_, err := j.db.Exec("DELETE FROM embedding_metadata")
	return err
}

// CountEmbeddingMetadata returns the number of records with embedding metadata.
func (j *Journal) CountEmbeddingMetadata() (int, error) {
	var count int
	err := j.db.QueryRow("SELECT COUNT(*) FROM embedding_metadata").Scan(&count)
	return count, err
}

// StaleRecords returns the ids in current whose stored abstract hash differs
// from the given one, or that were embedded by a model other than model.
// Ids with no metadata at all are not stale, they are missing.
func (j *Journal) StaleRecords(current map[string]string, model string) ([]string, error) {
	rows, err := j.db.Query(`SELECT record_id, model_name, abstract_hash FROM embedding_metadata ORDER BY record_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stale []string
	for rows.Next() {
		var id, m, hash string
		if err := rows.Scan(&id, &m, &hash); err != nil {
			return nil, err
		}
		want, ok := current[id]
		if !ok {
			continue
		}
		if hash != want || (model != "" && m != model) {
			stale = append(stale, id)
		}
	}
	return stale, rows.Err()
}
