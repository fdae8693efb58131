// Package colmap caches the contents of a multi-view reconstruction database
// in memory, turning persisted cameras, images and pairwise verified feature
// matches into a queryable scene graph used to seed 3D reconstruction.
//
// The cache consists of three cooperating parts:
//
//   - Entity store: keyed containers for camera and image records with O(1)
//     lookup (DatabaseCache).
//   - Correspondence graph: a sparse, symmetric graph over (image, feature)
//     nodes recording which feature in one image depicts the same 3D point
//     as which feature in another (package corrgraph).
//   - Loader and diagnostics: Load reads a record store, applies the
//     filtering policy and populates the cache; Stats summarizes the result.
//
// # Quick Start
//
// Load a cache from a reconstruction database:
//
//	ctx := context.Background()
//	db, err := database.Open(ctx, "scene.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	cache := colmap.NewDatabaseCache()
//	err = cache.Load(ctx, db,
//	    colmap.WithMinNumMatches(15),   // drop weakly matched pairs
//	    colmap.WithIgnoreWatermarks(true),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	stats, _ := cache.Stats()
//	fmt.Println(stats)
//
// Restrict the load to a named subset of images:
//
//	err = cache.Load(ctx, db, colmap.WithImageNames([]string{
//	    "view_000.png", "view_001.png",
//	}))
//
// Query the correspondence topology:
//
//	graph := cache.CorrespondenceGraph()
//	n := graph.NumCorrespondencesBetweenImages(1, 2)
//	corrs := graph.FindCorrespondences(1, 42)
//
// # Filtering Policy
//
// Load admits an image pair only if its verified inlier count reaches
// MinNumMatches, it is not flagged as a watermark pair (when
// IgnoreWatermarks is set) and both endpoint images are part of the active
// image set. Rejected pairs are omitted silently; they are policy, not
// errors. An unresolvable image name or a feature index outside an image's
// keypoint range aborts the whole load and the cache must be discarded.
//
// # Concurrency
//
// A cache is built by a single writer. Once Load (or manual assembly via
// AddCamera/AddImage) has completed, all query methods may be used from
// multiple goroutines without locking. Mutating a published cache is not
// supported.
package colmap
