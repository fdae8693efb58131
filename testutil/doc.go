// Package testutil provides testing utilities for the scene-graph cache.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating deterministic synthetic scenes,
// persisting them into a feature database, and computing the ground-truth
// pair statistics a load is verified against.
//
// # Synthetic Scenes
//
//	scene := testutil.GenerateScene(64, 512, seed)
//	err := testutil.WriteScene(ctx, db, scene)
//
// # In-Memory Record Store
//
//	store := testutil.NewMemStore(scene)
//	err := cache.Load(ctx, store)
//
// # Ground Truth
//
//	counts := scene.FilteredPairCounts(minNumMatches, ignoreWatermarks)
package testutil
