// Package model defines the core record types shared by the cache, the
// correspondence graph and the record store.
//
// # Identity Types
//
//   - CameraID: identifier of a physical camera (uint32)
//   - ImageID: identifier of a registered view (uint32)
//   - Point2DIdx: index of a feature within an image's keypoint list (uint32)
//   - ImagePairID: order-normalized key of an unordered image pair (uint64)
//
// # Record Types
//
//   - Camera: intrinsic model and parameter vector, shared by images
//   - Image: name, camera reference and detected feature points
//   - Keypoint / Point2D: detected feature and its cache-side projection
//   - FeatureMatch: a pair of feature indices asserted to match
//   - TwoViewGeometry / VerifiedPair: geometrically verified pair records
package model
