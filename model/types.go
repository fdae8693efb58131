package model

import (
	"fmt"
	"math"
)

// CameraID identifies a physical camera. Several images may share one camera.
type CameraID uint32

// ImageID identifies a single registered view.
type ImageID uint32

// Point2DIdx indexes a feature point within an image's keypoint list.
type Point2DIdx uint32

// ImagePairID is the order-normalized key for an unordered pair of images.
// Use ImagePairToPairID to construct one.
type ImagePairID uint64

const (
	// InvalidCameraID marks an unset camera reference.
	InvalidCameraID CameraID = math.MaxUint32
	// InvalidImageID marks an unset image reference.
	InvalidImageID ImageID = math.MaxUint32

	// MaxNumImages is the radix of the pair key encoding. Image identifiers
	// must stay below this bound for pair keys to be unique.
	MaxNumImages ImagePairID = 2147483647
)

// ImagePairToPairID encodes an unordered image pair into a single key.
// The pair (a, b) and the pair (b, a) map to the same key. Both identifiers
// must be smaller than MaxNumImages.
func ImagePairToPairID(imageID1, imageID2 ImageID) ImagePairID {
	if SwapImagePair(imageID1, imageID2) {
		imageID1, imageID2 = imageID2, imageID1
	}
	return MaxNumImages*ImagePairID(imageID1) + ImagePairID(imageID2)
}

// PairIDToImagePair decodes a pair key into its two image identifiers.
// The smaller identifier is returned first.
func PairIDToImagePair(pairID ImagePairID) (ImageID, ImageID) {
	imageID2 := pairID % MaxNumImages
	imageID1 := (pairID - imageID2) / MaxNumImages
	return ImageID(imageID1), ImageID(imageID2)
}

// SwapImagePair reports whether normalizing the pair (imageID1, imageID2)
// swaps the two identifiers.
func SwapImagePair(imageID1, imageID2 ImageID) bool {
	return imageID1 > imageID2
}

// FeatureMatch pairs a feature index in a first image with a feature index
// in a second image.
type FeatureMatch struct {
	PointIdx1 Point2DIdx
	PointIdx2 Point2DIdx
}

// SwapFeatureMatches flips the two index columns in place. Needed when an
// image pair is read in the opposite orientation to the stored one.
func SwapFeatureMatches(matches []FeatureMatch) {
	for i := range matches {
		matches[i].PointIdx1, matches[i].PointIdx2 = matches[i].PointIdx2, matches[i].PointIdx1
	}
}

// Keypoint is a detected 2D feature with its local scale and orientation.
type Keypoint struct {
	X           float32
	Y           float32
	Scale       float32
	Orientation float32
}

// KeypointFromAffine builds a keypoint from a full affine shape
// (x, y, a11, a12, a21, a22), recovering scale and orientation from the
// shape matrix.
func KeypointFromAffine(x, y, a11, a12, a21, a22 float32) Keypoint {
	scaleX := math.Sqrt(float64(a11)*float64(a11) + float64(a21)*float64(a21))
	scaleY := math.Sqrt(float64(a12)*float64(a12) + float64(a22)*float64(a22))

	return Keypoint{
		X:           x,
		Y:           y,
		Scale:       float32((scaleX + scaleY) / 2),
		Orientation: float32(math.Atan2(float64(a21), float64(a11))),
	}
}

// Point2D is the cache-side projection of a keypoint. Only the location
// survives; scale and orientation are not needed for correspondence
// bookkeeping.
type Point2D struct {
	X float64
	Y float64
}

// KeypointsToPoints2D converts detected keypoints to feature points.
func KeypointsToPoints2D(keypoints []Keypoint) []Point2D {
	points := make([]Point2D, len(keypoints))
	for i, keypoint := range keypoints {
		points[i] = Point2D{X: float64(keypoint.X), Y: float64(keypoint.Y)}
	}
	return points
}

// TwoViewConfig labels the geometric configuration a verified image pair
// was classified as.
type TwoViewConfig int

const (
	// ConfigUndefined marks a pair that was never verified.
	ConfigUndefined TwoViewConfig = iota
	// ConfigDegenerate marks a pair with insufficient geometric support.
	ConfigDegenerate
	// ConfigCalibrated marks a pair verified via the essential matrix.
	ConfigCalibrated
	// ConfigUncalibrated marks a pair verified via the fundamental matrix.
	ConfigUncalibrated
	// ConfigPlanar marks a pure planar scene.
	ConfigPlanar
	// ConfigPanoramic marks a pure rotation without translation.
	ConfigPanoramic
	// ConfigPlanarOrPanoramic marks a scene that is planar, panoramic or both.
	ConfigPlanarOrPanoramic
	// ConfigWatermark marks a pair whose matches stem from a shared overlay
	// at the image borders rather than from scene geometry.
	ConfigWatermark
	// ConfigMultiple marks a pair spanning multiple rigid configurations.
	ConfigMultiple
)

// String returns the configuration name.
func (c TwoViewConfig) String() string {
	switch c {
	case ConfigUndefined:
		return "UNDEFINED"
	case ConfigDegenerate:
		return "DEGENERATE"
	case ConfigCalibrated:
		return "CALIBRATED"
	case ConfigUncalibrated:
		return "UNCALIBRATED"
	case ConfigPlanar:
		return "PLANAR"
	case ConfigPanoramic:
		return "PANORAMIC"
	case ConfigPlanarOrPanoramic:
		return "PLANAR_OR_PANORAMIC"
	case ConfigWatermark:
		return "WATERMARK"
	case ConfigMultiple:
		return "MULTIPLE"
	default:
		return fmt.Sprintf("TwoViewConfig(%d)", int(c))
	}
}

// TwoViewGeometry is the surviving result of geometric verification between
// two images: the configuration label and the inlier feature matches.
type TwoViewGeometry struct {
	Config        TwoViewConfig
	InlierMatches []FeatureMatch
}

// NumInliers returns the number of verified inlier matches.
func (g TwoViewGeometry) NumInliers() int {
	return len(g.InlierMatches)
}

// VerifiedPair is one element of a bulk two-view geometry enumeration, with
// the pair key already decomposed into its image identifiers.
type VerifiedPair struct {
	ImageID1 ImageID
	ImageID2 ImageID
	Geometry TwoViewGeometry
}
