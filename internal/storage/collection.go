// Package storage provides the on-disk cache of records, BibTeX and
// embeddings, plus the sqlite journal used for text search and index
// bookkeeping.
package storage

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"strings"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
)

// DefaultMaxSize is the default size ceiling of one collection.
const DefaultMaxSize int64 = 10 << 30

// badgerLockMessage prefixes badger's directory lock failure. Badger
// formats the error without wrapping the underlying errno.
const badgerLockMessage = "Cannot acquire directory lock"

// Options configures how a collection is opened.
type Options struct {
	// ReadOnly rejects all writes. Read-only opens take a shared directory
	// lock: several readers can share a store, but not while a writer has
	// it open (ErrLocked).
	ReadOnly bool

	// MaxSize is the on-disk size at which writes start failing with
	// ErrStoreFull. Zero disables the check.
	MaxSize int64

	// InMemory runs badger without persistence. Dir is ignored.
	InMemory bool

	// Logger receives badger warnings and errors. Nil means slog.Default().
	Logger *slog.Logger
}

// DefaultOptions returns read-only options with the default size ceiling.
func DefaultOptions() Options {
	return Options{ReadOnly: true, MaxSize: DefaultMaxSize}
}

// Item is one key/value pair yielded by Collection.Items.
type Item[V any] struct {
	Key   string
	Value V
}

// Collection is a persistent string-keyed map of values of one kind.
type Collection[V any] struct {
	db    *badger.DB
	codec Codec[V]
	opts  Options
	dir   string

	closeOnce sync.Once
	closeErr  error
}

// Open opens (or, when writable, creates) the collection stored in dir.
func Open[V any](dir string, codec Codec[V], opts Options) (*Collection[V], error) {
	if !opts.InMemory && dir == "" {
		return nil, errors.New("storage: directory is required for on-disk mode")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	var dbOpts badger.Options
	if opts.InMemory {
		dbOpts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if opts.ReadOnly {
			if _, err := os.Stat(dir); err != nil {
				return nil, fmt.Errorf("opening %s read-only: %w", dir, err)
			}
		} else if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
		dbOpts = badger.DefaultOptions(dir).WithReadOnly(opts.ReadOnly)
	}
	dbOpts = dbOpts.WithLogger(badgerLogger{l: opts.Logger.With("component", "badger", "dir", dir)})

	db, err := badger.Open(dbOpts)
	if err != nil {
		if strings.Contains(err.Error(), badgerLockMessage) {
			return nil, fmt.Errorf("opening %s: %w", dir, ErrLocked)
		}
		return nil, fmt.Errorf("opening %s: %w", dir, err)
	}
	return &Collection[V]{db: db, codec: codec, opts: opts, dir: dir}, nil
}

// ReadOnly reports whether the collection rejects writes.
func (c *Collection[V]) ReadOnly() bool {
	return c.opts.ReadOnly
}

// Dir returns the directory backing the collection.
func (c *Collection[V]) Dir() string {
	return c.dir
}

// Size returns the on-disk size reported by badger. Badger refreshes this
// figure periodically, so it lags recent writes.
func (c *Collection[V]) Size() int64 {
	lsm, vlog := c.db.Size()
	return lsm + vlog
}

// checkWritable is called before every write.
func (c *Collection[V]) checkWritable() error {
	if c.opts.ReadOnly {
		return ErrReadOnly
	}
	if c.opts.MaxSize > 0 {
		if size := c.Size(); size >= c.opts.MaxSize {
			return fmt.Errorf("%w: %d of %d bytes", ErrStoreFull, size, c.opts.MaxSize)
		}
	}
	return nil
}

// Get returns the value stored under key, or ErrNotFound.
func (c *Collection[V]) Get(key string) (V, error) {
	var zero V
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return zero, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return zero, err
	}
	return c.codec.Decode(raw)
}

// Contains reports whether key is present.
func (c *Collection[V]) Contains(key string) (bool, error) {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Set stores v under key, replacing any previous value.
func (c *Collection[V]) Set(key string, v V) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	data, err := c.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// SetMany stores all entries in one transaction. Either every entry is
// written or none is; a batch too large for one badger transaction fails
// as a whole.
func (c *Collection[V]) SetMany(entries map[string]V) error {
	if err := c.checkWritable(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	encoded := make(map[string][]byte, len(entries))
	for k, v := range entries {
		data, err := c.codec.Encode(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", k, err)
		}
		encoded[k] = data
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		for k, data := range encoded {
			if err := txn.Set([]byte(k), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("writing %d entries: %w", len(entries), err)
	}
	return nil
}

// Len counts the keys in the collection. It walks the key index, so callers
// tracking size across many writes should count themselves.
func (c *Collection[V]) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Keys yields every key in byte order from a snapshot taken when iteration
// starts.
func (c *Collection[V]) Keys() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		err := c.db.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.PrefetchValues = false
			it := txn.NewIterator(opts)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				if !yield(string(it.Item().KeyCopy(nil)), nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield("", err)
		}
	}
}

// Items yields every key/value pair in key order from a snapshot taken when
// iteration starts. A value that fails to decode is yielded as an error and
// iteration continues.
func (c *Collection[V]) Items() iter.Seq2[Item[V], error] {
	return func(yield func(Item[V], error) bool) {
		err := c.db.View(func(txn *badger.Txn) error {
			it := txn.NewIterator(badger.DefaultIteratorOptions)
			defer it.Close()

			for it.Rewind(); it.Valid(); it.Next() {
				item := it.Item()
				key := string(item.KeyCopy(nil))

				raw, err := item.ValueCopy(nil)
				if err != nil {
					if !yield(Item[V]{Key: key}, err) {
						return nil
					}
					continue
				}
				v, err := c.codec.Decode(raw)
				if err != nil {
					if !yield(Item[V]{Key: key}, fmt.Errorf("decoding %s: %w", key, err)) {
						return nil
					}
					continue
				}
				if !yield(Item[V]{Key: key, Value: v}, nil) {
					return nil
				}
			}
			return nil
		})
		if err != nil {
			yield(Item[V]{}, err)
		}
	}
}

// Values yields every value in key order.
func (c *Collection[V]) Values() iter.Seq2[V, error] {
	return func(yield func(V, error) bool) {
		for item, err := range c.Items() {
			if !yield(item.Value, err) {
				return
			}
		}
	}
}

// Close releases the underlying database. Later calls return the result
// of the first.
func (c *Collection[V]) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.db.Close() })
	return c.closeErr
}

// badgerLogger forwards badger warnings and errors to slog and drops the
// rest.
type badgerLogger struct {
	l *slog.Logger
}

func (b badgerLogger) Errorf(f string, v ...any) {
	b.l.Error(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (b badgerLogger) Warningf(f string, v ...any) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintf(f, v...)))
}

func (badgerLogger) Infof(string, ...any)  {}
func (badgerLogger) Debugf(string, ...any) {}
