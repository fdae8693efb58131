package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCameraModelNumParams(t *testing.T) {
	tests := []struct {
		modelID   CameraModelID
		numParams int
	}{
		{CameraModelSimplePinhole, 3},
		{CameraModelPinhole, 4},
		{CameraModelSimpleRadial, 4},
		{CameraModelRadial, 5},
		{CameraModelOpenCV, 8},
		{CameraModelOpenCVFisheye, 8},
		{CameraModelFullOpenCV, 12},
		{CameraModelFOV, 5},
		{CameraModelSimpleRadialFisheye, 4},
		{CameraModelRadialFisheye, 5},
		{CameraModelThinPrismFisheye, 12},
		{CameraModelPerspective, 5},
	}

	for _, tt := range tests {
		t.Run(tt.modelID.String(), func(t *testing.T) {
			numParams, ok := CameraModelNumParams(tt.modelID)
			require.True(t, ok)
			assert.Equal(t, tt.numParams, numParams)
		})
	}

	_, ok := CameraModelNumParams(CameraModelInvalid)
	assert.False(t, ok)
}

func TestCameraModelIDs(t *testing.T) {
	// The identifiers are persisted in the record store and must not drift.
	assert.Equal(t, CameraModelID(0), CameraModelSimplePinhole)
	assert.Equal(t, CameraModelID(1), CameraModelPinhole)
	assert.Equal(t, CameraModelID(2), CameraModelSimpleRadial)
	assert.Equal(t, CameraModelID(3), CameraModelRadial)
	assert.Equal(t, CameraModelID(4), CameraModelOpenCV)
	assert.Equal(t, CameraModelID(5), CameraModelOpenCVFisheye)
	assert.Equal(t, CameraModelID(6), CameraModelFullOpenCV)
	assert.Equal(t, CameraModelID(7), CameraModelFOV)
	assert.Equal(t, CameraModelID(8), CameraModelSimpleRadialFisheye)
	assert.Equal(t, CameraModelID(9), CameraModelRadialFisheye)
	assert.Equal(t, CameraModelID(10), CameraModelThinPrismFisheye)
	assert.Equal(t, CameraModelID(11), CameraModelPerspective)
}

func TestCameraVerifyParams(t *testing.T) {
	camera := Camera{ModelID: CameraModelPinhole, Params: []float64{1000, 1000, 512, 384}}
	assert.True(t, camera.VerifyParams())

	camera.Params = camera.Params[:3]
	assert.False(t, camera.VerifyParams())

	camera.ModelID = CameraModelInvalid
	assert.False(t, camera.VerifyParams())
}

func TestCalibrationMatrix(t *testing.T) {
	t.Run("SimplePinhole", func(t *testing.T) {
		camera := Camera{ModelID: CameraModelSimplePinhole, Params: []float64{800, 320, 240}}

		k, err := camera.CalibrationMatrix()
		require.NoError(t, err)

		assert.Equal(t, 800.0, k.At(0, 0))
		assert.Equal(t, 800.0, k.At(1, 1))
		assert.Equal(t, 320.0, k.At(0, 2))
		assert.Equal(t, 240.0, k.At(1, 2))
		assert.Equal(t, 0.0, k.At(0, 1))
		assert.Equal(t, 1.0, k.At(2, 2))
	})

	t.Run("Pinhole", func(t *testing.T) {
		camera := Camera{ModelID: CameraModelPinhole, Params: []float64{800, 820, 320, 240}}

		k, err := camera.CalibrationMatrix()
		require.NoError(t, err)

		assert.Equal(t, 800.0, k.At(0, 0))
		assert.Equal(t, 820.0, k.At(1, 1))
	})

	t.Run("PerspectiveSkew", func(t *testing.T) {
		camera := Camera{ModelID: CameraModelPerspective, Params: []float64{800, 820, 320, 240, 1.5}}

		k, err := camera.CalibrationMatrix()
		require.NoError(t, err)

		assert.Equal(t, 1.5, k.At(0, 1))
		assert.Equal(t, 800.0, k.At(0, 0))
		assert.Equal(t, 820.0, k.At(1, 1))
	})

	t.Run("UnknownModel", func(t *testing.T) {
		camera := Camera{ModelID: CameraModelInvalid}

		_, err := camera.CalibrationMatrix()
		require.Error(t, err)
	})

	t.Run("WrongParamCount", func(t *testing.T) {
		camera := Camera{ModelID: CameraModelPinhole, Params: []float64{800}}

		_, err := camera.CalibrationMatrix()
		require.Error(t, err)
	})
}
