package storage

import "errors"

var (
	// ErrNotFound indicates the key is absent from the collection.
	ErrNotFound = errors.New("key not found")

	// ErrReadOnly indicates a write was attempted on a store opened read-only.
	ErrReadOnly = errors.New("store is read-only")

	// ErrStoreFull indicates the store reached its configured size ceiling.
	ErrStoreFull = errors.New("store size limit reached")

	// ErrLocked indicates another process holds the store's directory lock.
	// A writer excludes every other opener, readers included.
	ErrLocked = errors.New("store is in use by another process")

	// ErrCorruptValue indicates a stored value could not be decoded.
	ErrCorruptValue = errors.New("corrupt stored value")
)
