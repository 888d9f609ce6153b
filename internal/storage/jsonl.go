package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"iter"

	"github.com/matsen/papertools/internal/reference"
)

// MaxJSONLLineCapacity is the maximum buffer size for reading JSONL lines.
// INSPIRE records with long reference lists run to several hundred KB.
const MaxJSONLLineCapacity = 16 * 1024 * 1024

// DefaultImportBatch is the number of records written per transaction when
// importing.
const DefaultImportBatch = 500

// WriteJSONL writes one JSON record per line and returns the count written.
func WriteJSONL(w io.Writer, records iter.Seq2[*reference.Record, error]) (int, error) {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	n := 0
	for rec, err := range records {
		if err != nil {
			return n, fmt.Errorf("reading records: %w", err)
		}
		if err := enc.Encode(rec); err != nil {
			return n, fmt.Errorf("encoding record %s: %w", rec.ID, err)
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, fmt.Errorf("writing records: %w", err)
	}
	return n, nil
}

// ReadJSONL yields the records of a JSONL stream. Empty lines are skipped.
func ReadJSONL(r io.Reader) iter.Seq2[*reference.Record, error] {
	return func(yield func(*reference.Record, error) bool) {
		scanner := bufio.NewScanner(r)
		buf := make([]byte, 0, 64*1024)
		scanner.Buffer(buf, MaxJSONLLineCapacity)

		lineNum := 0
		for scanner.Scan() {
			lineNum++
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var rec reference.Record
			if err := json.Unmarshal(line, &rec); err != nil {
				yield(nil, fmt.Errorf("parsing line %d: %w", lineNum, err))
				return
			}
			if rec.ID == "" {
				yield(nil, fmt.Errorf("line %d: record has no id", lineNum))
				return
			}
			if !yield(&rec, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(nil, fmt.Errorf("reading records: %w", err))
		}
	}
}

// ImportJSONL stores every record of a JSONL stream in c, batch records per
// transaction. Records already present are overwritten. On error, batches
// written before it remain.
func ImportJSONL(r io.Reader, c *Collection[*reference.Record], batch int) (int, error) {
	if batch <= 0 {
		batch = DefaultImportBatch
	}

	pending := make(map[string]*reference.Record, batch)
	n := 0
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		if err := c.SetMany(pending); err != nil {
			return err
		}
		n += len(pending)
		pending = make(map[string]*reference.Record, batch)
		return nil
	}

	for rec, err := range ReadJSONL(r) {
		if err != nil {
			return n, err
		}
		pending[rec.ID] = rec
		if len(pending) >= batch {
			if err := flush(); err != nil {
				return n, err
			}
		}
	}
	return n, flush()
}
