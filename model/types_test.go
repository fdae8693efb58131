package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImagePairID(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		pairID := ImagePairToPairID(3, 14)

		imageID1, imageID2 := PairIDToImagePair(pairID)
		assert.Equal(t, ImageID(3), imageID1)
		assert.Equal(t, ImageID(14), imageID2)
	})

	t.Run("OrderNormalized", func(t *testing.T) {
		assert.Equal(t, ImagePairToPairID(3, 14), ImagePairToPairID(14, 3))
		assert.False(t, SwapImagePair(3, 14))
		assert.True(t, SwapImagePair(14, 3))
	})

	t.Run("SelfPair", func(t *testing.T) {
		pairID := ImagePairToPairID(7, 7)

		imageID1, imageID2 := PairIDToImagePair(pairID)
		assert.Equal(t, ImageID(7), imageID1)
		assert.Equal(t, ImageID(7), imageID2)
	})

	t.Run("Boundary", func(t *testing.T) {
		maxID := ImageID(MaxNumImages - 1)
		pairID := ImagePairToPairID(0, maxID)

		imageID1, imageID2 := PairIDToImagePair(pairID)
		assert.Equal(t, ImageID(0), imageID1)
		assert.Equal(t, maxID, imageID2)

		pairID = ImagePairToPairID(maxID, maxID)
		imageID1, imageID2 = PairIDToImagePair(pairID)
		assert.Equal(t, maxID, imageID1)
		assert.Equal(t, maxID, imageID2)
	})

	t.Run("Distinct", func(t *testing.T) {
		seen := make(map[ImagePairID]struct{})
		for i := ImageID(0); i < 20; i++ {
			for j := i + 1; j < 20; j++ {
				pairID := ImagePairToPairID(i, j)
				_, ok := seen[pairID]
				require.False(t, ok, "pair (%d,%d) collides", i, j)
				seen[pairID] = struct{}{}
			}
		}
	})
}

func TestSwapFeatureMatches(t *testing.T) {
	matches := []FeatureMatch{
		{PointIdx1: 0, PointIdx2: 5},
		{PointIdx1: 1, PointIdx2: 4},
	}

	SwapFeatureMatches(matches)

	assert.Equal(t, []FeatureMatch{
		{PointIdx1: 5, PointIdx2: 0},
		{PointIdx1: 4, PointIdx2: 1},
	}, matches)
}

func TestKeypointFromAffine(t *testing.T) {
	scale := 2.0
	orientation := math.Pi / 6

	a11 := float32(scale * math.Cos(orientation))
	a12 := float32(-scale * math.Sin(orientation))
	a21 := float32(scale * math.Sin(orientation))
	a22 := float32(scale * math.Cos(orientation))

	keypoint := KeypointFromAffine(1.5, 2.5, a11, a12, a21, a22)

	assert.Equal(t, float32(1.5), keypoint.X)
	assert.Equal(t, float32(2.5), keypoint.Y)
	assert.InDelta(t, scale, float64(keypoint.Scale), 1e-6)
	assert.InDelta(t, orientation, float64(keypoint.Orientation), 1e-6)
}

func TestKeypointsToPoints2D(t *testing.T) {
	keypoints := []Keypoint{
		{X: 1, Y: 2, Scale: 3, Orientation: 0.5},
		{X: 4, Y: 5},
	}

	points := KeypointsToPoints2D(keypoints)

	require.Len(t, points, 2)
	assert.Equal(t, Point2D{X: 1, Y: 2}, points[0])
	assert.Equal(t, Point2D{X: 4, Y: 5}, points[1])
}

func TestTwoViewConfigString(t *testing.T) {
	assert.Equal(t, "CALIBRATED", ConfigCalibrated.String())
	assert.Equal(t, "WATERMARK", ConfigWatermark.String())
	assert.Equal(t, "TwoViewConfig(42)", TwoViewConfig(42).String())
}
