package model

// Image is a single registered view: its name, the camera it was taken
// with and the detected feature points.
type Image struct {
	ImageID  ImageID
	Name     string
	CameraID CameraID
	// Points2D holds the feature locations, indexed by Point2DIdx.
	Points2D []Point2D

	// NumObservations is the number of features with at least one
	// correspondence. Stamped by the cache loader; derived from the
	// correspondence graph.
	NumObservations int
	// NumCorrespondences is the total number of correspondence edges
	// touching this image. Stamped by the cache loader.
	NumCorrespondences int
}

// NumPoints2D returns the number of detected feature points.
func (i Image) NumPoints2D() int {
	return len(i.Points2D)
}
