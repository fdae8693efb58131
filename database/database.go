// Package database reads and writes the SQLite feature database of a
// reconstruction: cameras, images, keypoints, raw feature matches and the
// geometrically verified two-view geometries.
//
// Feature payloads are stored as little-endian binary blobs wrapped in a
// self-describing compression envelope, so databases written with different
// compression settings stay readable. *DB satisfies the cache loader's
// record-store contract.
package database

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrClosed is returned when using a closed database handle.
	ErrClosed = errors.New("database is closed")

	// ErrCorruptBlob is returned when a stored blob fails structural
	// validation during decoding.
	ErrCorruptBlob = errors.New("corrupt blob")
)

// OpError wraps errors with operation context.
type OpError struct {
	Op  string // Operation name
	Err error  // Underlying error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("database: %v", e.Err)
	}
	return fmt.Sprintf("database: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *OpError) Unwrap() error {
	return e.Err
}

// Is checks if the error matches the target.
func (e *OpError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// wrapError wraps an error with operation context.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

// Options configure a database handle.
type Options struct {
	// Compression selects the algorithm feature blobs are compressed with
	// on write. Reads detect the algorithm per blob, so the setting only
	// affects new data.
	Compression Compression
}

// DefaultOptions compresses feature blobs with zstd.
var DefaultOptions = Options{
	Compression: CompressionZstd,
}

// WithCompression sets the write-side blob compression.
func WithCompression(c Compression) func(*Options) {
	return func(o *Options) {
		o.Compression = c
	}
}
