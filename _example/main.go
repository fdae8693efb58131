package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	colmap "github.com/mrliujie/ColmapForVisSat"
	"github.com/mrliujie/ColmapForVisSat/database"
	"github.com/mrliujie/ColmapForVisSat/model"
	"github.com/mrliujie/ColmapForVisSat/testutil"
)

func main() {
	seed := int64(4711)
	numImages := 100
	numPoints := 2000
	minNumMatches := 600

	ctx := context.Background()

	dir, err := os.MkdirTemp("", "colmap-demo")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	db, err := database.Open(ctx, filepath.Join(dir, "scene.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	scene := testutil.GenerateScene(numImages, numPoints, seed)

	fmt.Println("--- Write ---")
	fmt.Println("Images:", numImages)
	fmt.Println("Keypoints per image:", numPoints)
	fmt.Println("Verified pairs:", len(scene.Pairs))

	start := time.Now()

	if err := testutil.WriteScene(ctx, db, scene); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Seconds: %.2f\n\n", time.Since(start).Seconds())

	fmt.Println("--- Load ---")

	cache := colmap.NewDatabaseCache(colmap.WithLogLevel(slog.LevelInfo))

	start = time.Now()

	err = cache.Load(ctx, db,
		colmap.WithMinNumMatches(minNumMatches),
		colmap.WithIgnoreWatermarks(true),
	)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Seconds: %.2f\n\n", time.Since(start).Seconds())

	stats, err := cache.Stats()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println(stats)
	fmt.Println()

	fmt.Println("--- Queries ---")

	graph := cache.CorrespondenceGraph()

	start = time.Now()

	observed := 0
	twoView := 0
	for imageID := model.ImageID(1); imageID <= model.ImageID(numImages); imageID++ {
		for pointIdx := model.Point2DIdx(0); pointIdx < model.Point2DIdx(numPoints); pointIdx++ {
			if graph.HasCorrespondences(imageID, pointIdx) {
				observed++
			}
			if graph.IsTwoViewObservation(imageID, pointIdx) {
				twoView++
			}
		}
	}

	fmt.Println("Observed features:", observed)
	fmt.Println("Two-view observations:", twoView)

	track := graph.FindTransitiveCorrespondences(1, 0, 3)
	fmt.Println("Track seeded at image 1, feature 0 spans", len(track), "features")

	fmt.Printf("Seconds: %.2f\n\n", time.Since(start).Seconds())
}
