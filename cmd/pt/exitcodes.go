package main

// Process exit codes.
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (invalid arguments, runtime failure)
	ExitConfigError = 2 // Configuration error (unreadable config, bad data directory)
	ExitDataError   = 3 // Data error (malformed input, corrupt store, embedding server unavailable)
	ExitNotFound    = 4 // Record not found locally or upstream
	ExitReadOnly    = 5 // Write attempted on a store opened without --writable
	ExitIndexStale  = 6 // Semantic index is missing vectors or holds stale ones
	ExitRemoteError = 7 // INSPIRE request failed (transport, rate limit, pagination)
	ExitStoreBusy   = 8 // Store is held by another process, usually a writer
)
