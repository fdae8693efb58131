package colmap

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mrliujie/ColmapForVisSat/model"
)

// RecordStore is the read surface Load consumes. *database.DB implements it;
// tests may substitute in-memory fakes. Implementations signal a missing
// record with an error satisfying errors.Is(err, database.ErrNotFound).
type RecordStore interface {
	// ReadAllImages returns every image record in the store.
	ReadAllImages(ctx context.Context) ([]model.Image, error)

	// ReadImageFromName resolves an image by its unique name.
	ReadImageFromName(ctx context.Context, name string) (model.Image, error)

	// ReadCamera returns the camera stored under the given id.
	ReadCamera(ctx context.Context, cameraID model.CameraID) (model.Camera, error)

	// ReadKeypoints returns the detected keypoints of an image.
	ReadKeypoints(ctx context.Context, imageID model.ImageID) ([]model.Keypoint, error)

	// ReadTwoViewGeometries returns every geometrically verified image pair.
	ReadTwoViewGeometries(ctx context.Context) ([]model.VerifiedPair, error)
}

// Load populates the cache from the record store in a single pass: images
// (optionally restricted via WithImageNames), the cameras they reference,
// their keypoints, and the verified two-view geometries that pass the
// filtering policy.
//
// A pair is admitted when its inlier count reaches MinNumMatches, it is not
// a watermark pair while IgnoreWatermarks is set, and both of its images are
// in the cache. Rejected pairs are counted and reported once at the end.
//
// Load returns ErrNotFound when a requested image name does not resolve and
// ErrInvalidReference when a pair carries feature indices outside its
// images' keypoint ranges. After a failed Load the cache is partially
// populated; discard it and load into a fresh one.
//
// Example:
//
//	cache := colmap.NewDatabaseCache()
//	err := cache.Load(ctx, db,
//		colmap.WithMinNumMatches(15),
//		colmap.WithIgnoreWatermarks(true),
//	)
func (dc *DatabaseCache) Load(ctx context.Context, store RecordStore, optFns ...func(*LoadOptions)) error {
	start := time.Now()

	err := dc.load(ctx, store, optFns)

	dc.metrics.RecordLoad(time.Since(start), err)

	return err
}

func (dc *DatabaseCache) load(ctx context.Context, store RecordStore, optFns []func(*LoadOptions)) error {
	opts := DefaultLoadOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	if opts.MinNumMatches < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeMinNumMatches, opts.MinNumMatches)
	}

	images, err := dc.resolveImages(ctx, store, opts.ImageNames)
	if err != nil {
		return err
	}

	if err := dc.loadCameras(ctx, store, images); err != nil {
		return err
	}

	if err := dc.loadImages(ctx, store, images); err != nil {
		return err
	}

	if err := dc.loadCorrespondences(ctx, store, opts); err != nil {
		return err
	}

	// Stamp per-image totals now that the graph is final.
	for imageID, image := range dc.images {
		image.NumObservations = dc.graph.NumObservationsForImage(imageID)
		image.NumCorrespondences = dc.graph.NumCorrespondencesForImage(imageID)
	}

	return nil
}

// resolveImages determines the set of images to load. An empty name list
// selects every image in the store. Names are deduplicated and resolved in
// sorted order; a name the store cannot resolve aborts the load.
func (dc *DatabaseCache) resolveImages(ctx context.Context, store RecordStore, names []string) ([]model.Image, error) {
	if len(names) == 0 {
		images, err := store.ReadAllImages(ctx)
		if err != nil {
			err = translateError(fmt.Errorf("read all images: %w", err))
			dc.logger.LogLoadFailed(ctx, PhaseResolveNames, err)
			return nil, err
		}
		return images, nil
	}

	start := time.Now()

	seen := make(map[string]struct{}, len(names))
	unique := make([]string, 0, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	sort.Strings(unique)

	images := make([]model.Image, 0, len(unique))
	for _, name := range unique {
		image, err := store.ReadImageFromName(ctx, name)
		if err != nil {
			err = translateError(fmt.Errorf("resolve image %q: %w", name, err))
			dc.logger.LogLoadFailed(ctx, PhaseResolveNames, err)
			return nil, err
		}
		images = append(images, image)
	}

	elapsed := time.Since(start)
	dc.logger.LogLoadPhase(ctx, PhaseResolveNames, len(images), elapsed)
	dc.metrics.RecordLoadPhase(PhaseResolveNames, len(images), elapsed)

	return images, nil
}

// loadCameras fetches the cameras referenced by the selected images. A
// camera shared by several images is fetched and inserted exactly once.
func (dc *DatabaseCache) loadCameras(ctx context.Context, store RecordStore, images []model.Image) error {
	start := time.Now()

	added := 0
	for _, image := range images {
		if dc.ExistsCamera(image.CameraID) {
			continue
		}

		camera, err := store.ReadCamera(ctx, image.CameraID)
		if err != nil {
			err = translateError(fmt.Errorf("read camera %d of image %d: %w", image.CameraID, image.ImageID, err))
			dc.logger.LogLoadFailed(ctx, PhaseCameras, err)
			return err
		}

		if err := dc.AddCamera(camera); err != nil {
			dc.logger.LogLoadFailed(ctx, PhaseCameras, err)
			return err
		}
		added++
	}

	elapsed := time.Since(start)
	dc.logger.LogLoadPhase(ctx, PhaseCameras, added, elapsed)
	dc.metrics.RecordLoadPhase(PhaseCameras, added, elapsed)

	return nil
}

// loadImages fetches each selected image's keypoints and registers the image
// with the cache and, via AddImage, with the correspondence graph.
func (dc *DatabaseCache) loadImages(ctx context.Context, store RecordStore, images []model.Image) error {
	start := time.Now()

	for _, image := range images {
		keypoints, err := store.ReadKeypoints(ctx, image.ImageID)
		if err != nil {
			err = translateError(fmt.Errorf("read keypoints of image %d: %w", image.ImageID, err))
			dc.logger.LogLoadFailed(ctx, PhaseImages, err)
			return err
		}

		image.Points2D = model.KeypointsToPoints2D(keypoints)

		if err := dc.AddImage(image); err != nil {
			dc.logger.LogLoadFailed(ctx, PhaseImages, err)
			return err
		}

		dc.logger.WithImage(image.ImageID).DebugContext(ctx, "image admitted",
			"name", image.Name,
			"keypoints", len(keypoints),
		)
	}

	elapsed := time.Since(start)
	dc.logger.LogLoadPhase(ctx, PhaseImages, len(images), elapsed)
	dc.metrics.RecordLoadPhase(PhaseImages, len(images), elapsed)

	return nil
}

// loadCorrespondences reads all verified pairs, applies the filtering
// policy and registers the survivors with the correspondence graph.
func (dc *DatabaseCache) loadCorrespondences(ctx context.Context, store RecordStore, opts LoadOptions) error {
	start := time.Now()

	pairs, err := store.ReadTwoViewGeometries(ctx)
	if err != nil {
		err = translateError(fmt.Errorf("read two-view geometries: %w", err))
		dc.logger.LogLoadFailed(ctx, PhaseCorrespondences, err)
		return err
	}

	added := 0
	ignored := 0
	for _, pair := range pairs {
		if pair.Geometry.NumInliers() < opts.MinNumMatches {
			ignored++
			continue
		}
		if opts.IgnoreWatermarks && pair.Geometry.Config == model.ConfigWatermark {
			ignored++
			continue
		}
		if !dc.ExistsImage(pair.ImageID1) || !dc.ExistsImage(pair.ImageID2) {
			ignored++
			continue
		}

		if err := dc.graph.AddCorrespondences(pair.ImageID1, pair.ImageID2, pair.Geometry.InlierMatches); err != nil {
			err = translateError(err)
			dc.logger.WithImagePair(pair.ImageID1, pair.ImageID2).LogLoadFailed(ctx, PhaseCorrespondences, err)
			return err
		}
		added++
	}

	elapsed := time.Since(start)
	dc.logger.LogLoadPhase(ctx, PhaseCorrespondences, added, elapsed)
	dc.metrics.RecordLoadPhase(PhaseCorrespondences, added, elapsed)

	dc.logger.LogIgnoredPairs(ctx, ignored)
	dc.metrics.RecordIgnoredPairs(ignored)

	return nil
}
