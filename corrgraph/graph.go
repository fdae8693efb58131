// Package corrgraph maintains the symmetric feature-correspondence relation
// between registered images.
//
// Nodes are (image, feature index) pairs. An edge asserts that two features
// in different images depict the same 3D point. Adjacency is stored per
// feature to support track building, while per-pair edge counters are kept
// redundantly so pairwise statistics never require an edge scan.
package corrgraph

import (
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/mrliujie/ColmapForVisSat/model"
)

var (
	// ErrImageExists is returned when an image is registered twice.
	ErrImageExists = errors.New("image already registered")

	// ErrImageNotFound is returned when correspondences reference an image
	// that was never registered.
	ErrImageNotFound = errors.New("image not registered")

	// ErrSameImage is returned when both endpoints of a correspondence name
	// the same image. Correspondences link features of different images.
	ErrSameImage = errors.New("correspondence endpoints must differ")
)

// ErrPointOutOfRange indicates a feature index beyond the number of
// keypoints an image was registered with. It signals corrupt upstream data.
type ErrPointOutOfRange struct {
	ImageID   model.ImageID
	PointIdx  model.Point2DIdx
	NumPoints int
}

func (e *ErrPointOutOfRange) Error() string {
	return fmt.Sprintf("point index %d out of range for image %d with %d points", e.PointIdx, e.ImageID, e.NumPoints)
}

// Correspondence points at a feature in another image.
type Correspondence struct {
	ImageID  model.ImageID
	PointIdx model.Point2DIdx
}

// imageNode holds the per-feature adjacency of one image. The observed
// bitmap tracks which features carry at least one correspondence.
type imageNode struct {
	corrs    [][]Correspondence
	observed *roaring.Bitmap
	numCorrs int
}

// Graph is the correspondence graph over all registered images.
//
// Graph is not safe for concurrent mutation. Build it fully before issuing
// concurrent reads; afterwards all query methods may be called from multiple
// goroutines.
type Graph struct {
	images map[model.ImageID]*imageNode
	pairs  map[model.ImagePairID]int
}

// New creates an empty correspondence graph.
func New() *Graph {
	return &Graph{
		images: make(map[model.ImageID]*imageNode),
		pairs:  make(map[model.ImagePairID]int),
	}
}

// NumImages returns the number of registered images.
func (g *Graph) NumImages() int {
	return len(g.images)
}

// NumImagePairs returns the number of image pairs connected by at least one
// correspondence.
func (g *Graph) NumImagePairs() int {
	return len(g.pairs)
}

// ExistsImage reports whether the image was registered.
func (g *Graph) ExistsImage(imageID model.ImageID) bool {
	_, ok := g.images[imageID]
	return ok
}

// AddImage registers an image and allocates one correspondence slot per
// feature. It must be called before correspondences referencing the image
// are added.
func (g *Graph) AddImage(imageID model.ImageID, numPoints int) error {
	if _, ok := g.images[imageID]; ok {
		return fmt.Errorf("%w: image %d", ErrImageExists, imageID)
	}

	g.images[imageID] = &imageNode{
		corrs:    make([][]Correspondence, numPoints),
		observed: roaring.New(),
	}

	return nil
}

// AddCorrespondences registers the given feature matches between two images.
// Every match is inserted into both endpoints' adjacency lists, so the
// relation stays symmetric by construction. Matches already present are
// skipped without affecting any counter, making registration idempotent.
//
// Both images must have been registered via AddImage, the two image ids must
// differ and every feature index must lie within its image's slot range.
// On a range violation the error is returned immediately and matches already
// processed remain registered.
func (g *Graph) AddCorrespondences(imageID1, imageID2 model.ImageID, matches []model.FeatureMatch) error {
	if imageID1 == imageID2 {
		return fmt.Errorf("%w: image %d", ErrSameImage, imageID1)
	}

	node1, ok := g.images[imageID1]
	if !ok {
		return fmt.Errorf("%w: image %d", ErrImageNotFound, imageID1)
	}
	node2, ok := g.images[imageID2]
	if !ok {
		return fmt.Errorf("%w: image %d", ErrImageNotFound, imageID2)
	}

	pairID := model.ImagePairToPairID(imageID1, imageID2)

	for _, match := range matches {
		if int(match.PointIdx1) >= len(node1.corrs) {
			return &ErrPointOutOfRange{ImageID: imageID1, PointIdx: match.PointIdx1, NumPoints: len(node1.corrs)}
		}
		if int(match.PointIdx2) >= len(node2.corrs) {
			return &ErrPointOutOfRange{ImageID: imageID2, PointIdx: match.PointIdx2, NumPoints: len(node2.corrs)}
		}

		// Symmetry invariant: one endpoint listing the edge implies the
		// other does too, so checking one side suffices.
		if hasCorrespondence(node1.corrs[match.PointIdx1], imageID2, match.PointIdx2) {
			continue
		}

		node1.corrs[match.PointIdx1] = append(node1.corrs[match.PointIdx1], Correspondence{ImageID: imageID2, PointIdx: match.PointIdx2})
		node2.corrs[match.PointIdx2] = append(node2.corrs[match.PointIdx2], Correspondence{ImageID: imageID1, PointIdx: match.PointIdx1})

		node1.observed.Add(uint32(match.PointIdx1))
		node2.observed.Add(uint32(match.PointIdx2))

		node1.numCorrs++
		node2.numCorrs++
		g.pairs[pairID]++
	}

	return nil
}

func hasCorrespondence(corrs []Correspondence, imageID model.ImageID, pointIdx model.Point2DIdx) bool {
	for _, corr := range corrs {
		if corr.ImageID == imageID && corr.PointIdx == pointIdx {
			return true
		}
	}
	return false
}

// FindCorrespondences returns the correspondences of one feature. The
// returned slice must be treated as read-only. It is nil when the image is
// unknown, the index out of range or the feature unmatched.
func (g *Graph) FindCorrespondences(imageID model.ImageID, pointIdx model.Point2DIdx) []Correspondence {
	node, ok := g.images[imageID]
	if !ok || int(pointIdx) >= len(node.corrs) {
		return nil
	}
	return node.corrs[pointIdx]
}

// HasCorrespondences reports whether the feature has at least one
// correspondence.
func (g *Graph) HasCorrespondences(imageID model.ImageID, pointIdx model.Point2DIdx) bool {
	return len(g.FindCorrespondences(imageID, pointIdx)) > 0
}

// FindCorrespondencesBetweenImages recovers the concrete feature matches
// between two images from the adjacency lists. The matches are oriented from
// imageID1 to imageID2.
func (g *Graph) FindCorrespondencesBetweenImages(imageID1, imageID2 model.ImageID) []model.FeatureMatch {
	node1, ok := g.images[imageID1]
	if !ok || !g.ExistsImage(imageID2) {
		return nil
	}

	numMatches := g.NumCorrespondencesBetweenImages(imageID1, imageID2)
	if numMatches == 0 {
		return nil
	}

	matches := make([]model.FeatureMatch, 0, numMatches)
	for pointIdx, corrs := range node1.corrs {
		for _, corr := range corrs {
			if corr.ImageID == imageID2 {
				matches = append(matches, model.FeatureMatch{
					PointIdx1: model.Point2DIdx(pointIdx),
					PointIdx2: corr.PointIdx,
				})
			}
		}
	}

	return matches
}

// FindTransitiveCorrespondences follows correspondence chains up to the
// given number of hops and returns every node reachable from the feature,
// excluding the feature itself. A transitivity of 1 is equivalent to
// FindCorrespondences.
func (g *Graph) FindTransitiveCorrespondences(imageID model.ImageID, pointIdx model.Point2DIdx, transitivity int) []Correspondence {
	if transitivity <= 0 {
		return nil
	}
	if transitivity == 1 {
		return g.FindCorrespondences(imageID, pointIdx)
	}

	node, ok := g.images[imageID]
	if !ok || int(pointIdx) >= len(node.corrs) {
		return nil
	}

	root := Correspondence{ImageID: imageID, PointIdx: pointIdx}
	visited := map[Correspondence]struct{}{root: {}}
	queue := []Correspondence{root}

	var found []Correspondence
	for hop := 0; hop < transitivity && len(queue) > 0; hop++ {
		var next []Correspondence
		for _, current := range queue {
			for _, corr := range g.images[current.ImageID].corrs[current.PointIdx] {
				if _, seen := visited[corr]; seen {
					continue
				}
				visited[corr] = struct{}{}
				found = append(found, corr)
				next = append(next, corr)
			}
		}
		queue = next
	}

	return found
}

// IsTwoViewObservation reports whether the feature forms a pure two-view
// track: it has exactly one correspondence and that correspondent in turn
// only corresponds back.
func (g *Graph) IsTwoViewObservation(imageID model.ImageID, pointIdx model.Point2DIdx) bool {
	corrs := g.FindCorrespondences(imageID, pointIdx)
	if len(corrs) != 1 {
		return false
	}
	return len(g.FindCorrespondences(corrs[0].ImageID, corrs[0].PointIdx)) == 1
}

// NumObservationsForImage returns the number of features of the image that
// carry at least one correspondence. This counts features, not edges.
func (g *Graph) NumObservationsForImage(imageID model.ImageID) int {
	node, ok := g.images[imageID]
	if !ok {
		return 0
	}
	return int(node.observed.GetCardinality())
}

// NumCorrespondencesForImage returns the total number of correspondence
// edges touching the image.
func (g *Graph) NumCorrespondencesForImage(imageID model.ImageID) int {
	node, ok := g.images[imageID]
	if !ok {
		return 0
	}
	return node.numCorrs
}

// NumCorrespondencesBetweenImages returns the number of correspondence
// edges between two images. The count is symmetric in its arguments and
// zero for pairs without registered correspondences.
func (g *Graph) NumCorrespondencesBetweenImages(imageID1, imageID2 model.ImageID) int {
	return g.pairs[model.ImagePairToPairID(imageID1, imageID2)]
}
