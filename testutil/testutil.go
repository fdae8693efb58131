package testutil

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/mrliujie/ColmapForVisSat/database"
	"github.com/mrliujie/ColmapForVisSat/model"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// UniformKeypoints generates n keypoints uniformly distributed over a
// width x height sensor. Locks only once per call (preferred over calling
// Float32 in a loop).
func (r *RNG) UniformKeypoints(n, width, height int) []model.Keypoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	keypoints := make([]model.Keypoint, n)
	for i := range keypoints {
		keypoints[i] = model.Keypoint{
			X:           r.rand.Float32() * float32(width),
			Y:           r.rand.Float32() * float32(height),
			Scale:       1 + 2*r.rand.Float32(),
			Orientation: (2*r.rand.Float32() - 1) * math.Pi,
		}
	}
	return keypoints
}

// Scene is a synthetic reconstruction scenario: cameras, images with
// detected keypoints and geometrically verified image pairs with known
// inlier counts.
type Scene struct {
	Cameras   []model.Camera
	Images    []model.Image
	Keypoints map[model.ImageID][]model.Keypoint
	Pairs     []model.VerifiedPair
}

const (
	// imagesPerCamera is how many consecutive images share one camera.
	imagesPerCamera = 8
	// pairOverlap pairs every image with this many successors.
	pairOverlap = 3
	// watermarkEvery flags every n-th generated pair as a watermark pair.
	watermarkEvery = 7

	sensorWidth  = 1920
	sensorHeight = 1080
)

// GenerateScene builds a deterministic synthetic scene of numImages images
// with numPoints keypoints each. Runs of eight consecutive images share a
// camera, every image is verified against its three successors with a
// varying inlier count, and every seventh pair is flagged as a watermark.
// The same arguments always yield the same scene.
func GenerateScene(numImages, numPoints int, seed int64) *Scene {
	rng := NewRNG(seed)

	scene := &Scene{
		Keypoints: make(map[model.ImageID][]model.Keypoint, numImages),
	}

	numCameras := (numImages + imagesPerCamera - 1) / imagesPerCamera
	for i := 0; i < numCameras; i++ {
		scene.Cameras = append(scene.Cameras, model.Camera{
			CameraID:         model.CameraID(i + 1),
			ModelID:          model.CameraModelPinhole,
			Width:            sensorWidth,
			Height:           sensorHeight,
			Params:           []float64{2100 + float64(i), 2100 + float64(i), sensorWidth / 2, sensorHeight / 2},
			PriorFocalLength: true,
		})
	}

	for i := 0; i < numImages; i++ {
		imageID := model.ImageID(i + 1)
		scene.Images = append(scene.Images, model.Image{
			ImageID:  imageID,
			Name:     fmt.Sprintf("view_%04d.jpg", i),
			CameraID: model.CameraID(i/imagesPerCamera + 1),
		})
		scene.Keypoints[imageID] = rng.UniformKeypoints(numPoints, sensorWidth, sensorHeight)
	}

	numPairs := 0
	for i := 1; i <= numImages; i++ {
		for j := i + 1; j <= numImages && j <= i+pairOverlap; j++ {
			numPairs++

			config := model.ConfigCalibrated
			if numPairs%watermarkEvery == 0 {
				config = model.ConfigWatermark
			}

			// Inlier counts vary across pairs so that match-count
			// filtering has something to bite on. Matches shift the
			// feature index by j, which keeps them distinct and reuses
			// features of image i across pairs, forming longer tracks.
			// Below four points per image the spread collapses and the
			// pairs carry no matches at all.
			span := numPoints / 2
			if span == 0 {
				span = 1
			}
			numMatches := numPoints/4 + (i*31+j*17)%span
			matches := make([]model.FeatureMatch, numMatches)
			for k := range matches {
				matches[k] = model.FeatureMatch{
					PointIdx1: model.Point2DIdx(k),
					PointIdx2: model.Point2DIdx((k + j) % numPoints),
				}
			}

			scene.Pairs = append(scene.Pairs, model.VerifiedPair{
				ImageID1: model.ImageID(i),
				ImageID2: model.ImageID(j),
				Geometry: model.TwoViewGeometry{
					Config:        config,
					InlierMatches: matches,
				},
			})
		}
	}

	return scene
}

// NumPoints returns the keypoint count of the scene's images.
func (s *Scene) NumPoints() int {
	if len(s.Images) == 0 {
		return 0
	}
	return len(s.Keypoints[s.Images[0].ImageID])
}

// ImageNames returns the names of the first n images.
func (s *Scene) ImageNames(n int) []string {
	if n > len(s.Images) {
		n = len(s.Images)
	}
	names := make([]string, n)
	for i := 0; i < n; i++ {
		names[i] = s.Images[i].Name
	}
	return names
}

// FilteredPairCounts returns the surviving inlier count per normalized pair
// id under the given load policy. This is the ground truth the cache
// loader's filtering is verified against.
func (s *Scene) FilteredPairCounts(minNumMatches int, ignoreWatermarks bool) map[model.ImagePairID]int {
	counts := make(map[model.ImagePairID]int)
	for _, pair := range s.Pairs {
		if pair.Geometry.NumInliers() < minNumMatches {
			continue
		}
		if ignoreWatermarks && pair.Geometry.Config == model.ConfigWatermark {
			continue
		}
		counts[model.ImagePairToPairID(pair.ImageID1, pair.ImageID2)] = pair.Geometry.NumInliers()
	}
	return counts
}

// WriteScene persists the scene into the database in referential order:
// cameras, then images with their keypoints, then two-view geometries.
func WriteScene(ctx context.Context, db *database.DB, scene *Scene) error {
	for _, camera := range scene.Cameras {
		if _, err := db.WriteCamera(ctx, camera); err != nil {
			return err
		}
	}

	for _, image := range scene.Images {
		if _, err := db.WriteImage(ctx, image); err != nil {
			return err
		}
		if err := db.WriteKeypoints(ctx, image.ImageID, scene.Keypoints[image.ImageID]); err != nil {
			return err
		}
	}

	for _, pair := range scene.Pairs {
		if err := db.WriteTwoViewGeometry(ctx, pair.ImageID1, pair.ImageID2, pair.Geometry); err != nil {
			return err
		}
	}

	return nil
}

// MemStore serves a scene through the cache loader's record-store contract
// without touching disk. Lookup misses report database.ErrNotFound exactly
// like the SQLite store.
type MemStore struct {
	scene *Scene
}

// NewMemStore creates a record store backed by the given scene.
func NewMemStore(scene *Scene) *MemStore {
	return &MemStore{scene: scene}
}

// ReadAllImages returns every image of the scene.
func (m *MemStore) ReadAllImages(_ context.Context) ([]model.Image, error) {
	return m.scene.Images, nil
}

// ReadImageFromName resolves an image by name.
func (m *MemStore) ReadImageFromName(_ context.Context, name string) (model.Image, error) {
	for _, image := range m.scene.Images {
		if image.Name == name {
			return image, nil
		}
	}
	return model.Image{}, fmt.Errorf("image %q: %w", name, database.ErrNotFound)
}

// ReadCamera returns the scene camera stored under the given id.
func (m *MemStore) ReadCamera(_ context.Context, cameraID model.CameraID) (model.Camera, error) {
	for _, camera := range m.scene.Cameras {
		if camera.CameraID == cameraID {
			return camera, nil
		}
	}
	return model.Camera{}, fmt.Errorf("camera %d: %w", cameraID, database.ErrNotFound)
}

// ReadKeypoints returns the keypoints of a scene image.
func (m *MemStore) ReadKeypoints(_ context.Context, imageID model.ImageID) ([]model.Keypoint, error) {
	return m.scene.Keypoints[imageID], nil
}

// ReadTwoViewGeometries returns every verified pair of the scene.
func (m *MemStore) ReadTwoViewGeometries(_ context.Context) ([]model.VerifiedPair, error) {
	return m.scene.Pairs, nil
}
