package colmap

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/mrliujie/ColmapForVisSat/model"
)

// Stats summarizes a populated cache: entity counts, the per-view
// observation distribution and the pair-wise match distribution.
type Stats struct {
	NumCameras    int
	NumImages     int
	NumImagePairs int

	// Per-view observations: features with at least one correspondence,
	// per image.
	MeanObservationsPerImage float64
	MinObservationsPerImage  int
	MaxObservationsPerImage  int

	// Pair-wise matches: correspondence edges per unordered image pair,
	// over all pairs of cached images including unconnected ones.
	MeanMatchesPerImagePair float64
	MinMatchesPerImagePair  int
	MaxMatchesPerImagePair  int
}

// Stats computes summary statistics over the cached images and the
// correspondence graph. It reads the graph directly, so it works on
// manually assembled caches as well as loaded ones.
//
// Per-image observation counts are emitted through the logger at debug
// level. An empty cache returns ErrEmptyCache. With fewer than two images
// there are no pairs and the pair-wise section is all zeros.
func (dc *DatabaseCache) Stats() (Stats, error) {
	start := time.Now()

	stats, err := dc.stats()

	dc.metrics.RecordStats(time.Since(start), err)

	return stats, err
}

func (dc *DatabaseCache) stats() (Stats, error) {
	if len(dc.images) == 0 {
		return Stats{}, ErrEmptyCache
	}

	ctx := context.Background()

	imageIDs := make([]model.ImageID, 0, len(dc.images))
	for imageID := range dc.images {
		imageIDs = append(imageIDs, imageID)
	}
	sort.Slice(imageIDs, func(i, j int) bool { return imageIDs[i] < imageIDs[j] })

	observations := make([]float64, 0, len(imageIDs))
	for _, imageID := range imageIDs {
		numObservations := dc.graph.NumObservationsForImage(imageID)
		dc.logger.LogImageObservations(ctx, imageID, dc.images[imageID].Name, numObservations)
		observations = append(observations, float64(numObservations))
	}

	matches := make([]float64, 0, len(imageIDs)*(len(imageIDs)-1)/2)
	for i := 0; i < len(imageIDs); i++ {
		for j := i + 1; j < len(imageIDs); j++ {
			matches = append(matches, float64(dc.graph.NumCorrespondencesBetweenImages(imageIDs[i], imageIDs[j])))
		}
	}

	stats := Stats{
		NumCameras:    dc.NumCameras(),
		NumImages:     dc.NumImages(),
		NumImagePairs: dc.graph.NumImagePairs(),

		MeanObservationsPerImage: stat.Mean(observations, nil),
		MinObservationsPerImage:  int(floats.Min(observations)),
		MaxObservationsPerImage:  int(floats.Max(observations)),
	}

	// floats.Min panics on an empty slice; a single image yields no pairs.
	if len(matches) > 0 {
		stats.MeanMatchesPerImagePair = stat.Mean(matches, nil)
		stats.MinMatchesPerImagePair = int(floats.Min(matches))
		stats.MaxMatchesPerImagePair = int(floats.Max(matches))
	}

	return stats, nil
}

// String renders the six summary lines of the classic reconstruction log.
func (s Stats) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Avg. Per-view Observations: %g\n", s.MeanObservationsPerImage)
	fmt.Fprintf(&b, "Min. Per-view Observations: %d\n", s.MinObservationsPerImage)
	fmt.Fprintf(&b, "Max. Per-view Observations: %d\n", s.MaxObservationsPerImage)
	fmt.Fprintf(&b, "Avg. Pair-wise Matches: %g\n", s.MeanMatchesPerImagePair)
	fmt.Fprintf(&b, "Min. Pair-wise Matches: %d\n", s.MinMatchesPerImagePair)
	fmt.Fprintf(&b, "Max. Pair-wise Matches: %d", s.MaxMatchesPerImagePair)

	return b.String()
}
