package colmap

import (
	"fmt"

	"github.com/mrliujie/ColmapForVisSat/corrgraph"
	"github.com/mrliujie/ColmapForVisSat/model"
)

// DatabaseCache is an in-memory snapshot of the cameras, images, and
// verified two-view geometries of a reconstruction database. Once loaded
// it answers all lookups without touching the backing store.
//
// The cache is not safe for concurrent mutation. Populate it first, via
// Load or the Add* methods, then share it freely across goroutines for
// reads.
type DatabaseCache struct {
	cameras map[model.CameraID]*model.Camera
	images  map[model.ImageID]*model.Image
	graph   *corrgraph.Graph

	logger  *Logger
	metrics MetricsCollector
}

// NewDatabaseCache creates an empty cache.
func NewDatabaseCache(optFns ...Option) *DatabaseCache {
	o := applyOptions(optFns)

	return &DatabaseCache{
		cameras: make(map[model.CameraID]*model.Camera),
		images:  make(map[model.ImageID]*model.Image),
		graph:   corrgraph.New(),
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// AddCamera registers a copy of the camera under its CameraID. Registering
// an ID twice returns ErrDuplicateKey and leaves the first entry untouched.
func (dc *DatabaseCache) AddCamera(camera model.Camera) error {
	if _, ok := dc.cameras[camera.CameraID]; ok {
		return fmt.Errorf("%w: camera %d", ErrDuplicateKey, camera.CameraID)
	}

	dc.cameras[camera.CameraID] = &camera

	return nil
}

// AddImage registers a copy of the image under its ImageID and creates the
// matching node in the correspondence graph, sized to the image's keypoint
// count. Registering an ID twice returns ErrDuplicateKey and leaves the
// first entry untouched.
func (dc *DatabaseCache) AddImage(image model.Image) error {
	if _, ok := dc.images[image.ImageID]; ok {
		return fmt.Errorf("%w: image %d", ErrDuplicateKey, image.ImageID)
	}

	if err := dc.graph.AddImage(image.ImageID, image.NumPoints2D()); err != nil {
		return translateError(err)
	}

	dc.images[image.ImageID] = &image

	return nil
}

// Camera returns the camera registered under the given ID, or ErrNotFound.
func (dc *DatabaseCache) Camera(cameraID model.CameraID) (*model.Camera, error) {
	camera, ok := dc.cameras[cameraID]
	if !ok {
		return nil, fmt.Errorf("%w: camera %d", ErrNotFound, cameraID)
	}

	return camera, nil
}

// Image returns the image registered under the given ID, or ErrNotFound.
func (dc *DatabaseCache) Image(imageID model.ImageID) (*model.Image, error) {
	image, ok := dc.images[imageID]
	if !ok {
		return nil, fmt.Errorf("%w: image %d", ErrNotFound, imageID)
	}

	return image, nil
}

// ExistsCamera reports whether a camera is registered under the given ID.
func (dc *DatabaseCache) ExistsCamera(cameraID model.CameraID) bool {
	_, ok := dc.cameras[cameraID]
	return ok
}

// ExistsImage reports whether an image is registered under the given ID.
func (dc *DatabaseCache) ExistsImage(imageID model.ImageID) bool {
	_, ok := dc.images[imageID]
	return ok
}

// NumCameras returns the number of registered cameras.
func (dc *DatabaseCache) NumCameras() int {
	return len(dc.cameras)
}

// NumImages returns the number of registered images.
func (dc *DatabaseCache) NumImages() int {
	return len(dc.images)
}

// Cameras exposes the full camera map for iteration. Callers must treat
// the returned map as read-only.
func (dc *DatabaseCache) Cameras() map[model.CameraID]*model.Camera {
	return dc.cameras
}

// Images exposes the full image map for iteration. Callers must treat the
// returned map as read-only.
func (dc *DatabaseCache) Images() map[model.ImageID]*model.Image {
	return dc.images
}

// CorrespondenceGraph exposes the feature correspondence graph built from
// the loaded two-view geometries.
func (dc *DatabaseCache) CorrespondenceGraph() *corrgraph.Graph {
	return dc.graph
}
