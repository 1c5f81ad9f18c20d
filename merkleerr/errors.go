// Package merkleerr defines the sentinel error kinds shared by every
// subsystem of the tree: invalid arguments, empty input, on-disk format
// mismatches, I/O failures, cooperative cancellation, and inconsistent
// component state.
//
// Every error returned by the merkletree, streambuild, proof and treecache
// packages wraps exactly one of these with fmt.Errorf("%w: ...", kind);
// callers branch on kind with errors.Is. Leaf sources in leafsource return
// their own errors, which streambuild wraps as ErrIOFailure or
// ErrCancelled.
package merkleerr

import "errors"

var (
	// ErrInvalidArgument covers a nil producer, an out-of-range leaf index,
	// a non-positive leaf count, or a cache band outside [0, height].
	ErrInvalidArgument = errors.New("merkletree: invalid argument")

	// ErrEmptyInput is returned when a streaming build observes zero leaves.
	ErrEmptyInput = errors.New("merkletree: no leaves produced")

	// ErrFormatMismatch covers a bad magic, an unsupported version, a
	// truncated structure, a CRC mismatch, or a hash-name mismatch on cache
	// load.
	ErrFormatMismatch = errors.New("merkletree: format mismatch")

	// ErrIOFailure covers scratch creation, read, write, or delete
	// failures.
	ErrIOFailure = errors.New("merkletree: io failure")

	// ErrCancelled is returned when cooperative cancellation is observed at
	// a suspension point.
	ErrCancelled = errors.New("merkletree: build cancelled")

	// ErrInconsistentState covers saving a cache that does not exist, or
	// reading cache metadata while disabled.
	ErrInconsistentState = errors.New("merkletree: inconsistent state")
)
