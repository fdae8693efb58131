package colmap

import (
	"errors"
	"fmt"

	"github.com/mrliujie/ColmapForVisSat/corrgraph"
	"github.com/mrliujie/ColmapForVisSat/database"
)

var (
	// ErrDuplicateKey is returned when a camera or image is inserted under an
	// identifier that is already taken. Records are never overwritten.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNotFound is returned when a camera, image or image name cannot be
	// resolved.
	ErrNotFound = errors.New("not found")

	// ErrInvalidReference is returned when a correspondence names an unknown
	// image or a feature index outside the image's keypoint range. It
	// indicates corrupt data in the record store.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrEmptyCache is returned when statistics are requested on a cache
	// without images.
	ErrEmptyCache = errors.New("cache is empty")

	// ErrNegativeMinNumMatches is returned when Load is configured with a
	// negative match threshold.
	ErrNegativeMinNumMatches = errors.New("min num matches must be non-negative")
)

// translateError maps subsystem errors onto the public taxonomy so that
// callers can match with errors.Is regardless of which layer failed.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	// Not found unification.
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	// Graph registration failures.
	if errors.Is(err, corrgraph.ErrImageExists) {
		return fmt.Errorf("%w: %w", ErrDuplicateKey, err)
	}
	if errors.Is(err, corrgraph.ErrImageNotFound) || errors.Is(err, corrgraph.ErrSameImage) {
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	var oor *corrgraph.ErrPointOutOfRange
	if errors.As(err, &oor) {
		return fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}

	return err
}
