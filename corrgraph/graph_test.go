package corrgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrliujie/ColmapForVisSat/model"
)

func TestAddImage(t *testing.T) {
	g := New()

	require.NoError(t, g.AddImage(1, 10))
	assert.True(t, g.ExistsImage(1))
	assert.Equal(t, 1, g.NumImages())

	err := g.AddImage(1, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrImageExists)
}

func TestAddCorrespondences(t *testing.T) {
	t.Run("Symmetric", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddImage(1, 5))
		require.NoError(t, g.AddImage(2, 5))

		err := g.AddCorrespondences(1, 2, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 3}})
		require.NoError(t, err)

		assert.Equal(t, []Correspondence{{ImageID: 2, PointIdx: 3}}, g.FindCorrespondences(1, 0))
		assert.Equal(t, []Correspondence{{ImageID: 1, PointIdx: 0}}, g.FindCorrespondences(2, 3))
	})

	t.Run("Idempotent", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddImage(1, 5))
		require.NoError(t, g.AddImage(2, 5))

		matches := []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 0}, {PointIdx1: 1, PointIdx2: 1}}
		require.NoError(t, g.AddCorrespondences(1, 2, matches))
		require.NoError(t, g.AddCorrespondences(1, 2, matches))

		assert.Equal(t, 2, g.NumCorrespondencesBetweenImages(1, 2))
		assert.Equal(t, 2, g.NumCorrespondencesForImage(1))
		assert.Equal(t, 2, g.NumCorrespondencesForImage(2))
		assert.Len(t, g.FindCorrespondences(1, 0), 1)
	})

	t.Run("IdempotentReversedOrientation", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddImage(1, 5))
		require.NoError(t, g.AddImage(2, 5))

		require.NoError(t, g.AddCorrespondences(1, 2, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 3}}))
		require.NoError(t, g.AddCorrespondences(2, 1, []model.FeatureMatch{{PointIdx1: 3, PointIdx2: 0}}))

		assert.Equal(t, 1, g.NumCorrespondencesBetweenImages(1, 2))
	})

	t.Run("UnorderedPairCount", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddImage(1, 5))
		require.NoError(t, g.AddImage(2, 5))

		require.NoError(t, g.AddCorrespondences(2, 1, []model.FeatureMatch{{PointIdx1: 4, PointIdx2: 2}}))

		assert.Equal(t, 1, g.NumCorrespondencesBetweenImages(1, 2))
		assert.Equal(t, 1, g.NumCorrespondencesBetweenImages(2, 1))
		assert.Equal(t, []Correspondence{{ImageID: 1, PointIdx: 2}}, g.FindCorrespondences(2, 4))
	})

	t.Run("UnknownImage", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddImage(1, 5))

		err := g.AddCorrespondences(1, 9, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 0}})
		assert.ErrorIs(t, err, ErrImageNotFound)

		err = g.AddCorrespondences(9, 1, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 0}})
		assert.ErrorIs(t, err, ErrImageNotFound)
	})

	t.Run("SameImage", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddImage(1, 5))

		err := g.AddCorrespondences(1, 1, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 1}})
		assert.ErrorIs(t, err, ErrSameImage)
	})

	t.Run("PointOutOfRange", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddImage(1, 5))
		require.NoError(t, g.AddImage(2, 3))

		err := g.AddCorrespondences(1, 2, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 3}})
		require.Error(t, err)

		var oor *ErrPointOutOfRange
		require.ErrorAs(t, err, &oor)
		assert.Equal(t, model.ImageID(2), oor.ImageID)
		assert.Equal(t, model.Point2DIdx(3), oor.PointIdx)
		assert.Equal(t, 3, oor.NumPoints)
	})

	t.Run("EmptyMatchesCreateNoPair", func(t *testing.T) {
		g := New()
		require.NoError(t, g.AddImage(1, 5))
		require.NoError(t, g.AddImage(2, 5))

		require.NoError(t, g.AddCorrespondences(1, 2, nil))

		assert.Equal(t, 0, g.NumImagePairs())
		assert.Equal(t, 0, g.NumCorrespondencesBetweenImages(1, 2))
	})
}

func TestObservationCounting(t *testing.T) {
	g := New()
	require.NoError(t, g.AddImage(1, 5))
	require.NoError(t, g.AddImage(2, 5))
	require.NoError(t, g.AddImage(3, 5))

	// Feature (1,0) corresponds into two images: one observation, two edges.
	require.NoError(t, g.AddCorrespondences(1, 2, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 0}}))
	require.NoError(t, g.AddCorrespondences(1, 3, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 4}}))

	assert.Equal(t, 1, g.NumObservationsForImage(1))
	assert.Equal(t, 2, g.NumCorrespondencesForImage(1))
	assert.Equal(t, 1, g.NumObservationsForImage(2))
	assert.Equal(t, 1, g.NumObservationsForImage(3))
	assert.Equal(t, 2, g.NumImagePairs())

	require.NoError(t, g.AddCorrespondences(1, 2, []model.FeatureMatch{{PointIdx1: 1, PointIdx2: 1}}))

	assert.Equal(t, 2, g.NumObservationsForImage(1))
	assert.Equal(t, 3, g.NumCorrespondencesForImage(1))
}

func TestFindCorrespondencesBetweenImages(t *testing.T) {
	g := New()
	require.NoError(t, g.AddImage(1, 5))
	require.NoError(t, g.AddImage(2, 5))
	require.NoError(t, g.AddImage(3, 5))

	require.NoError(t, g.AddCorrespondences(1, 2, []model.FeatureMatch{
		{PointIdx1: 0, PointIdx2: 3},
		{PointIdx1: 2, PointIdx2: 1},
	}))
	require.NoError(t, g.AddCorrespondences(1, 3, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 0}}))

	matches := g.FindCorrespondencesBetweenImages(1, 2)
	assert.ElementsMatch(t, []model.FeatureMatch{
		{PointIdx1: 0, PointIdx2: 3},
		{PointIdx1: 2, PointIdx2: 1},
	}, matches)

	reversed := g.FindCorrespondencesBetweenImages(2, 1)
	assert.ElementsMatch(t, []model.FeatureMatch{
		{PointIdx1: 3, PointIdx2: 0},
		{PointIdx1: 1, PointIdx2: 2},
	}, reversed)

	assert.Nil(t, g.FindCorrespondencesBetweenImages(2, 3))
	assert.Nil(t, g.FindCorrespondencesBetweenImages(1, 9))
}

func TestFindTransitiveCorrespondences(t *testing.T) {
	g := New()
	require.NoError(t, g.AddImage(1, 5))
	require.NoError(t, g.AddImage(2, 5))
	require.NoError(t, g.AddImage(3, 5))

	// Chain (1,0) - (2,0) - (3,0).
	require.NoError(t, g.AddCorrespondences(1, 2, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 0}}))
	require.NoError(t, g.AddCorrespondences(2, 3, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 0}}))

	direct := g.FindTransitiveCorrespondences(1, 0, 1)
	assert.Equal(t, []Correspondence{{ImageID: 2, PointIdx: 0}}, direct)

	transitive := g.FindTransitiveCorrespondences(1, 0, 2)
	assert.ElementsMatch(t, []Correspondence{
		{ImageID: 2, PointIdx: 0},
		{ImageID: 3, PointIdx: 0},
	}, transitive)

	// Deeper search finds nothing new once the component is exhausted.
	exhausted := g.FindTransitiveCorrespondences(1, 0, 10)
	assert.Len(t, exhausted, 2)

	assert.Nil(t, g.FindTransitiveCorrespondences(1, 0, 0))
	assert.Nil(t, g.FindTransitiveCorrespondences(9, 0, 2))
}

func TestIsTwoViewObservation(t *testing.T) {
	g := New()
	require.NoError(t, g.AddImage(1, 5))
	require.NoError(t, g.AddImage(2, 5))
	require.NoError(t, g.AddImage(3, 5))

	require.NoError(t, g.AddCorrespondences(1, 2, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 0}}))

	assert.True(t, g.IsTwoViewObservation(1, 0))
	assert.True(t, g.IsTwoViewObservation(2, 0))

	// Extending the track through image 3 breaks the two-view property.
	require.NoError(t, g.AddCorrespondences(2, 3, []model.FeatureMatch{{PointIdx1: 0, PointIdx2: 0}}))

	assert.False(t, g.IsTwoViewObservation(1, 0))
	assert.False(t, g.IsTwoViewObservation(2, 0))
	assert.False(t, g.IsTwoViewObservation(3, 0))

	assert.False(t, g.IsTwoViewObservation(1, 4))
	assert.False(t, g.IsTwoViewObservation(9, 0))
}

func TestQueriesOnUnknownImage(t *testing.T) {
	g := New()

	assert.Equal(t, 0, g.NumObservationsForImage(1))
	assert.Equal(t, 0, g.NumCorrespondencesForImage(1))
	assert.Equal(t, 0, g.NumCorrespondencesBetweenImages(1, 2))
	assert.Nil(t, g.FindCorrespondences(1, 0))
	assert.False(t, g.HasCorrespondences(1, 0))
}

func TestPartialInsertOnRangeError(t *testing.T) {
	g := New()
	require.NoError(t, g.AddImage(1, 5))
	require.NoError(t, g.AddImage(2, 2))

	err := g.AddCorrespondences(1, 2, []model.FeatureMatch{
		{PointIdx1: 0, PointIdx2: 0},
		{PointIdx1: 1, PointIdx2: 7},
	})

	var oor *ErrPointOutOfRange
	require.ErrorAs(t, err, &oor)

	// The match preceding the corrupt one was applied; callers are expected
	// to discard the graph after a failed registration.
	assert.Equal(t, 1, g.NumCorrespondencesBetweenImages(1, 2))
}
