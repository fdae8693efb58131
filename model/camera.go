package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// CameraModelID enumerates the supported intrinsic camera models.
type CameraModelID int32

// CameraModelInvalid marks an unset camera model.
const CameraModelInvalid CameraModelID = -1

const (
	// CameraModelSimplePinhole has parameters f, cx, cy.
	CameraModelSimplePinhole CameraModelID = iota
	// CameraModelPinhole has parameters fx, fy, cx, cy.
	CameraModelPinhole
	// CameraModelSimpleRadial has parameters f, cx, cy, k.
	CameraModelSimpleRadial
	// CameraModelRadial has parameters f, cx, cy, k1, k2.
	CameraModelRadial
	// CameraModelOpenCV has parameters fx, fy, cx, cy, k1, k2, p1, p2.
	CameraModelOpenCV
	// CameraModelOpenCVFisheye has parameters fx, fy, cx, cy, k1, k2, k3, k4.
	CameraModelOpenCVFisheye
	// CameraModelFullOpenCV has parameters fx, fy, cx, cy, k1, k2, p1, p2,
	// k3, k4, k5, k6.
	CameraModelFullOpenCV
	// CameraModelFOV has parameters fx, fy, cx, cy, omega.
	CameraModelFOV
	// CameraModelSimpleRadialFisheye has parameters f, cx, cy, k.
	CameraModelSimpleRadialFisheye
	// CameraModelRadialFisheye has parameters f, cx, cy, k1, k2.
	CameraModelRadialFisheye
	// CameraModelThinPrismFisheye has parameters fx, fy, cx, cy, k1, k2,
	// p1, p2, k3, k4, sx1, sy1.
	CameraModelThinPrismFisheye
	// CameraModelPerspective has parameters fx, fy, cx, cy, s. The skew
	// term s absorbs the non-orthogonal pixel axes of pushbroom satellite
	// sensors approximated as perspective cameras.
	CameraModelPerspective
)

// cameraModelSpec describes the parameter layout of one intrinsic model.
// Index slices point into Camera.Params.
type cameraModelSpec struct {
	name          string
	numParams     int
	focalIdxs     []int
	principalIdxs []int
	skewIdx       int // -1 when the model has no skew parameter
}

var cameraModelSpecs = map[CameraModelID]cameraModelSpec{
	CameraModelSimplePinhole:       {name: "SIMPLE_PINHOLE", numParams: 3, focalIdxs: []int{0}, principalIdxs: []int{1, 2}, skewIdx: -1},
	CameraModelPinhole:             {name: "PINHOLE", numParams: 4, focalIdxs: []int{0, 1}, principalIdxs: []int{2, 3}, skewIdx: -1},
	CameraModelSimpleRadial:        {name: "SIMPLE_RADIAL", numParams: 4, focalIdxs: []int{0}, principalIdxs: []int{1, 2}, skewIdx: -1},
	CameraModelRadial:              {name: "RADIAL", numParams: 5, focalIdxs: []int{0}, principalIdxs: []int{1, 2}, skewIdx: -1},
	CameraModelOpenCV:              {name: "OPENCV", numParams: 8, focalIdxs: []int{0, 1}, principalIdxs: []int{2, 3}, skewIdx: -1},
	CameraModelOpenCVFisheye:       {name: "OPENCV_FISHEYE", numParams: 8, focalIdxs: []int{0, 1}, principalIdxs: []int{2, 3}, skewIdx: -1},
	CameraModelFullOpenCV:          {name: "FULL_OPENCV", numParams: 12, focalIdxs: []int{0, 1}, principalIdxs: []int{2, 3}, skewIdx: -1},
	CameraModelFOV:                 {name: "FOV", numParams: 5, focalIdxs: []int{0, 1}, principalIdxs: []int{2, 3}, skewIdx: -1},
	CameraModelSimpleRadialFisheye: {name: "SIMPLE_RADIAL_FISHEYE", numParams: 4, focalIdxs: []int{0}, principalIdxs: []int{1, 2}, skewIdx: -1},
	CameraModelRadialFisheye:       {name: "RADIAL_FISHEYE", numParams: 5, focalIdxs: []int{0}, principalIdxs: []int{1, 2}, skewIdx: -1},
	CameraModelThinPrismFisheye:    {name: "THIN_PRISM_FISHEYE", numParams: 12, focalIdxs: []int{0, 1}, principalIdxs: []int{2, 3}, skewIdx: -1},
	CameraModelPerspective:         {name: "PERSPECTIVE", numParams: 5, focalIdxs: []int{0, 1}, principalIdxs: []int{2, 3}, skewIdx: 4},
}

// ExistsCameraModel reports whether id names a supported intrinsic model.
func ExistsCameraModel(id CameraModelID) bool {
	_, ok := cameraModelSpecs[id]
	return ok
}

// CameraModelNumParams returns the parameter count of the given model.
func CameraModelNumParams(id CameraModelID) (int, bool) {
	spec, ok := cameraModelSpecs[id]
	if !ok {
		return 0, false
	}
	return spec.numParams, true
}

// String returns the upper-case model name.
func (id CameraModelID) String() string {
	if spec, ok := cameraModelSpecs[id]; ok {
		return spec.name
	}
	return fmt.Sprintf("CameraModelID(%d)", int32(id))
}

// Camera stores the intrinsic calibration of a physical camera. Several
// images may reference the same camera.
type Camera struct {
	CameraID CameraID
	ModelID  CameraModelID
	Width    int
	Height   int
	// Params is the model-specific parameter vector, ordered as documented
	// on the CameraModel constants.
	Params []float64
	// PriorFocalLength reports whether the focal length stems from a
	// trusted prior (for example EXIF metadata) rather than a guess.
	PriorFocalLength bool
}

// ModelName returns the name of the camera's intrinsic model.
func (c Camera) ModelName() string {
	return c.ModelID.String()
}

// VerifyParams reports whether the parameter vector has the length the
// intrinsic model requires.
func (c Camera) VerifyParams() bool {
	spec, ok := cameraModelSpecs[c.ModelID]
	if !ok {
		return false
	}
	return len(c.Params) == spec.numParams
}

// CalibrationMatrix assembles the 3x3 calibration matrix
//
//	| fx  s  cx |
//	|  0 fy  cy |
//	|  0  0   1 |
//
// from the camera's parameter vector. Models with a single focal length use
// it for both axes; models without a skew parameter leave s at zero.
func (c Camera) CalibrationMatrix() (*mat.Dense, error) {
	spec, ok := cameraModelSpecs[c.ModelID]
	if !ok {
		return nil, fmt.Errorf("unknown camera model %d", c.ModelID)
	}
	if len(c.Params) != spec.numParams {
		return nil, fmt.Errorf("camera model %s expects %d params, got %d", spec.name, spec.numParams, len(c.Params))
	}

	k := mat.NewDense(3, 3, nil)
	k.Set(2, 2, 1)

	if len(spec.focalIdxs) == 1 {
		focal := c.Params[spec.focalIdxs[0]]
		k.Set(0, 0, focal)
		k.Set(1, 1, focal)
	} else {
		k.Set(0, 0, c.Params[spec.focalIdxs[0]])
		k.Set(1, 1, c.Params[spec.focalIdxs[1]])
	}

	k.Set(0, 2, c.Params[spec.principalIdxs[0]])
	k.Set(1, 2, c.Params[spec.principalIdxs[1]])

	if spec.skewIdx >= 0 {
		k.Set(0, 1, c.Params[spec.skewIdx])
	}

	return k, nil
}
