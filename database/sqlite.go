package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/mrliujie/ColmapForVisSat/model"
)

// DB is a handle to a feature database stored in a single SQLite file.
// It is safe for concurrent use.
type DB struct {
	db     *sql.DB
	opts   Options
	mu     sync.RWMutex
	closed bool
}

// Open opens the feature database at path, creating the file and schema
// when missing.
func Open(ctx context.Context, path string, optFns ...func(*Options)) (*DB, error) {
	if path == "" {
		return nil, wrapError("open", fmt.Errorf("database path cannot be empty"))
	}

	opts := DefaultOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}

	// journal_mode(WAL): better concurrency
	// synchronous(NORMAL): good balance of safety and speed
	// busy_timeout(5000): wait up to 5s for a lock instead of failing
	// cache_size(-2000): 2MB of page cache (negative value = KB)
	// foreign_keys(1): set per connection, so it lives in the DSN
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=cache_size(-2000)&_pragma=foreign_keys(1)", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, wrapError("open", fmt.Errorf("failed to open database: %w", err))
	}

	// Configure connection pool with sensible defaults
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(2 * time.Hour)

	if _, err := sqlDB.ExecContext(ctx, schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, wrapError("open", fmt.Errorf("failed to create tables: %w", err))
	}

	return &DB{db: sqlDB, opts: opts}, nil
}

// Close closes the database handle. Closing twice is a no-op.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return nil
	}
	db.closed = true

	return wrapError("close", db.db.Close())
}

func (db *DB) conn() (*sql.DB, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}
	return db.db, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCamera(row rowScanner) (model.Camera, error) {
	var (
		cameraID   int64
		modelID    int64
		width      int64
		height     int64
		paramsBlob []byte
		priorFocal bool
	)
	if err := row.Scan(&cameraID, &modelID, &width, &height, &paramsBlob, &priorFocal); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Camera{}, ErrNotFound
		}
		return model.Camera{}, err
	}

	data, err := decompressBlob(paramsBlob)
	if err != nil {
		return model.Camera{}, err
	}
	params, err := decodeParams(data)
	if err != nil {
		return model.Camera{}, err
	}

	return model.Camera{
		CameraID:         model.CameraID(cameraID),
		ModelID:          model.CameraModelID(modelID),
		Width:            int(width),
		Height:           int(height),
		Params:           params,
		PriorFocalLength: priorFocal,
	}, nil
}

func scanImage(row rowScanner) (model.Image, error) {
	var (
		imageID  int64
		name     string
		cameraID int64
	)
	if err := row.Scan(&imageID, &name, &cameraID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Image{}, ErrNotFound
		}
		return model.Image{}, err
	}

	return model.Image{
		ImageID:  model.ImageID(imageID),
		Name:     name,
		CameraID: model.CameraID(cameraID),
	}, nil
}

// ReadCamera returns the camera stored under the given id.
func (db *DB) ReadCamera(ctx context.Context, cameraID model.CameraID) (model.Camera, error) {
	conn, err := db.conn()
	if err != nil {
		return model.Camera{}, wrapError("read camera", err)
	}

	row := conn.QueryRowContext(ctx,
		`SELECT camera_id, model, width, height, params, prior_focal_length FROM cameras WHERE camera_id = ?`,
		int64(cameraID))

	camera, err := scanCamera(row)
	if err != nil {
		return model.Camera{}, wrapError("read camera", err)
	}
	return camera, nil
}

// ReadAllCameras returns every camera, ordered by id.
func (db *DB) ReadAllCameras(ctx context.Context) ([]model.Camera, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, wrapError("read all cameras", err)
	}

	rows, err := conn.QueryContext(ctx,
		`SELECT camera_id, model, width, height, params, prior_focal_length FROM cameras ORDER BY camera_id`)
	if err != nil {
		return nil, wrapError("read all cameras", err)
	}
	defer func() { _ = rows.Close() }()

	var cameras []model.Camera
	for rows.Next() {
		camera, err := scanCamera(rows)
		if err != nil {
			return nil, wrapError("read all cameras", err)
		}
		cameras = append(cameras, camera)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("read all cameras", err)
	}

	return cameras, nil
}

// ReadImage returns the image stored under the given id.
func (db *DB) ReadImage(ctx context.Context, imageID model.ImageID) (model.Image, error) {
	conn, err := db.conn()
	if err != nil {
		return model.Image{}, wrapError("read image", err)
	}

	row := conn.QueryRowContext(ctx,
		`SELECT image_id, name, camera_id FROM images WHERE image_id = ?`,
		int64(imageID))

	image, err := scanImage(row)
	if err != nil {
		return model.Image{}, wrapError("read image", err)
	}
	return image, nil
}

// ReadImageFromName resolves an image by its unique name.
func (db *DB) ReadImageFromName(ctx context.Context, name string) (model.Image, error) {
	conn, err := db.conn()
	if err != nil {
		return model.Image{}, wrapError("read image from name", err)
	}

	row := conn.QueryRowContext(ctx,
		`SELECT image_id, name, camera_id FROM images WHERE name = ?`, name)

	image, err := scanImage(row)
	if err != nil {
		return model.Image{}, wrapError("read image from name", err)
	}
	return image, nil
}

// ReadAllImages returns every image, ordered by id.
func (db *DB) ReadAllImages(ctx context.Context) ([]model.Image, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, wrapError("read all images", err)
	}

	rows, err := conn.QueryContext(ctx,
		`SELECT image_id, name, camera_id FROM images ORDER BY image_id`)
	if err != nil {
		return nil, wrapError("read all images", err)
	}
	defer func() { _ = rows.Close() }()

	var images []model.Image
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, wrapError("read all images", err)
		}
		images = append(images, image)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("read all images", err)
	}

	return images, nil
}

// ExistsImageWithName reports whether an image with the given name exists.
func (db *DB) ExistsImageWithName(ctx context.Context, name string) (bool, error) {
	conn, err := db.conn()
	if err != nil {
		return false, wrapError("exists image with name", err)
	}

	var one int
	err = conn.QueryRowContext(ctx, `SELECT 1 FROM images WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, wrapError("exists image with name", err)
	}
	return true, nil
}

// ReadKeypoints returns the detected keypoints of an image. Images without
// a keypoint record yield an empty result.
func (db *DB) ReadKeypoints(ctx context.Context, imageID model.ImageID) ([]model.Keypoint, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, wrapError("read keypoints", err)
	}

	var (
		numRows int
		numCols int
		blob    []byte
	)
	err = conn.QueryRowContext(ctx,
		`SELECT rows, cols, data FROM keypoints WHERE image_id = ?`,
		int64(imageID)).Scan(&numRows, &numCols, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError("read keypoints", err)
	}

	data, err := decompressBlob(blob)
	if err != nil {
		return nil, wrapError("read keypoints", err)
	}
	keypoints, err := decodeKeypoints(data, numRows, numCols)
	if err != nil {
		return nil, wrapError("read keypoints", err)
	}
	return keypoints, nil
}

// ReadMatches returns the raw feature matches between two images, oriented
// from imageID1 to imageID2 regardless of the stored pair order. Pairs
// without a match record yield an empty result.
func (db *DB) ReadMatches(ctx context.Context, imageID1, imageID2 model.ImageID) ([]model.FeatureMatch, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, wrapError("read matches", err)
	}

	pairID := model.ImagePairToPairID(imageID1, imageID2)

	var (
		numRows int
		numCols int
		blob    []byte
	)
	err = conn.QueryRowContext(ctx,
		`SELECT rows, cols, data FROM matches WHERE pair_id = ?`,
		int64(pairID)).Scan(&numRows, &numCols, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapError("read matches", err)
	}

	data, err := decompressBlob(blob)
	if err != nil {
		return nil, wrapError("read matches", err)
	}
	matches, err := decodeMatches(data, numRows, numCols)
	if err != nil {
		return nil, wrapError("read matches", err)
	}

	if model.SwapImagePair(imageID1, imageID2) {
		model.SwapFeatureMatches(matches)
	}
	return matches, nil
}

// ReadTwoViewGeometry returns the verified two-view geometry between two
// images, oriented from imageID1 to imageID2. Unverified pairs yield a zero
// geometry with ConfigUndefined.
func (db *DB) ReadTwoViewGeometry(ctx context.Context, imageID1, imageID2 model.ImageID) (model.TwoViewGeometry, error) {
	conn, err := db.conn()
	if err != nil {
		return model.TwoViewGeometry{}, wrapError("read two-view geometry", err)
	}

	pairID := model.ImagePairToPairID(imageID1, imageID2)

	var (
		numRows int
		numCols int
		blob    []byte
		config  int64
	)
	err = conn.QueryRowContext(ctx,
		`SELECT rows, cols, data, config FROM two_view_geometries WHERE pair_id = ?`,
		int64(pairID)).Scan(&numRows, &numCols, &blob, &config)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TwoViewGeometry{}, nil
	}
	if err != nil {
		return model.TwoViewGeometry{}, wrapError("read two-view geometry", err)
	}

	data, err := decompressBlob(blob)
	if err != nil {
		return model.TwoViewGeometry{}, wrapError("read two-view geometry", err)
	}
	matches, err := decodeMatches(data, numRows, numCols)
	if err != nil {
		return model.TwoViewGeometry{}, wrapError("read two-view geometry", err)
	}

	if model.SwapImagePair(imageID1, imageID2) {
		model.SwapFeatureMatches(matches)
	}

	return model.TwoViewGeometry{
		Config:        model.TwoViewConfig(config),
		InlierMatches: matches,
	}, nil
}

// ReadTwoViewGeometries returns every verified image pair, ordered by pair
// id. Rows are scanned sequentially; blob decoding, which dominates on large
// databases, fans out with bounded concurrency.
func (db *DB) ReadTwoViewGeometries(ctx context.Context) ([]model.VerifiedPair, error) {
	conn, err := db.conn()
	if err != nil {
		return nil, wrapError("read two-view geometries", err)
	}

	rows, err := conn.QueryContext(ctx,
		`SELECT pair_id, rows, cols, data, config FROM two_view_geometries ORDER BY pair_id`)
	if err != nil {
		return nil, wrapError("read two-view geometries", err)
	}
	defer func() { _ = rows.Close() }()

	type rawGeometry struct {
		pairID  int64
		numRows int
		numCols int
		blob    []byte
		config  int64
	}

	var raw []rawGeometry
	for rows.Next() {
		var r rawGeometry
		if err := rows.Scan(&r.pairID, &r.numRows, &r.numCols, &r.blob, &r.config); err != nil {
			return nil, wrapError("read two-view geometries", err)
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapError("read two-view geometries", err)
	}

	pairs := make([]model.VerifiedPair, len(raw))

	g, _ := errgroup.WithContext(ctx)
	// Limit concurrency to keep memory bounded on huge databases
	g.SetLimit(16)

	for i, r := range raw {
		g.Go(func() error {
			data, err := decompressBlob(r.blob)
			if err != nil {
				return err
			}
			matches, err := decodeMatches(data, r.numRows, r.numCols)
			if err != nil {
				return err
			}

			imageID1, imageID2 := model.PairIDToImagePair(model.ImagePairID(r.pairID))
			pairs[i] = model.VerifiedPair{
				ImageID1: imageID1,
				ImageID2: imageID2,
				Geometry: model.TwoViewGeometry{
					Config:        model.TwoViewConfig(r.config),
					InlierMatches: matches,
				},
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, wrapError("read two-view geometries", err)
	}

	return pairs, nil
}

// WriteCamera stores a camera and returns its id. A zero or invalid
// CameraID lets the database assign the next free id; any other id is
// stored as given.
func (db *DB) WriteCamera(ctx context.Context, camera model.Camera) (model.CameraID, error) {
	conn, err := db.conn()
	if err != nil {
		return 0, wrapError("write camera", err)
	}

	paramsBlob, err := compressBlob(encodeParams(camera.Params), db.opts.Compression)
	if err != nil {
		return 0, wrapError("write camera", err)
	}

	if camera.CameraID != 0 && camera.CameraID != model.InvalidCameraID {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO cameras (camera_id, model, width, height, params, prior_focal_length) VALUES (?, ?, ?, ?, ?, ?)`,
			int64(camera.CameraID), int64(camera.ModelID), camera.Width, camera.Height, paramsBlob, camera.PriorFocalLength)
		if err != nil {
			return 0, wrapError("write camera", err)
		}
		return camera.CameraID, nil
	}

	res, err := conn.ExecContext(ctx,
		`INSERT INTO cameras (model, width, height, params, prior_focal_length) VALUES (?, ?, ?, ?, ?)`,
		int64(camera.ModelID), camera.Width, camera.Height, paramsBlob, camera.PriorFocalLength)
	if err != nil {
		return 0, wrapError("write camera", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapError("write camera", err)
	}
	return model.CameraID(id), nil
}

// WriteImage stores an image and returns its id. A zero or invalid ImageID
// lets the database assign the next free id; any other id is stored as
// given. The image name must be unique.
func (db *DB) WriteImage(ctx context.Context, image model.Image) (model.ImageID, error) {
	conn, err := db.conn()
	if err != nil {
		return 0, wrapError("write image", err)
	}

	if image.ImageID != 0 && image.ImageID != model.InvalidImageID {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO images (image_id, name, camera_id) VALUES (?, ?, ?)`,
			int64(image.ImageID), image.Name, int64(image.CameraID))
		if err != nil {
			return 0, wrapError("write image", err)
		}
		return image.ImageID, nil
	}

	res, err := conn.ExecContext(ctx,
		`INSERT INTO images (name, camera_id) VALUES (?, ?)`,
		image.Name, int64(image.CameraID))
	if err != nil {
		return 0, wrapError("write image", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, wrapError("write image", err)
	}
	return model.ImageID(id), nil
}

// WriteKeypoints stores the keypoints of an image.
func (db *DB) WriteKeypoints(ctx context.Context, imageID model.ImageID, keypoints []model.Keypoint) error {
	conn, err := db.conn()
	if err != nil {
		return wrapError("write keypoints", err)
	}

	blob, err := compressBlob(encodeKeypoints(keypoints), db.opts.Compression)
	if err != nil {
		return wrapError("write keypoints", err)
	}

	_, err = conn.ExecContext(ctx,
		`INSERT INTO keypoints (image_id, rows, cols, data) VALUES (?, ?, ?, ?)`,
		int64(imageID), len(keypoints), keypointCols, blob)
	if err != nil {
		return wrapError("write keypoints", err)
	}
	return nil
}

// WriteMatches stores the raw feature matches between two images under the
// normalized pair id. When normalization swaps the image order, the match
// columns are swapped to keep the stored orientation consistent.
func (db *DB) WriteMatches(ctx context.Context, imageID1, imageID2 model.ImageID, matches []model.FeatureMatch) error {
	conn, err := db.conn()
	if err != nil {
		return wrapError("write matches", err)
	}

	pairID := model.ImagePairToPairID(imageID1, imageID2)
	if model.SwapImagePair(imageID1, imageID2) {
		matches = swappedCopy(matches)
	}

	blob, err := compressBlob(encodeMatches(matches), db.opts.Compression)
	if err != nil {
		return wrapError("write matches", err)
	}

	_, err = conn.ExecContext(ctx,
		`INSERT INTO matches (pair_id, rows, cols, data) VALUES (?, ?, ?, ?)`,
		int64(pairID), len(matches), matchCols, blob)
	if err != nil {
		return wrapError("write matches", err)
	}
	return nil
}

// WriteTwoViewGeometry stores the verified two-view geometry between two
// images under the normalized pair id, swapping match columns like
// WriteMatches when needed.
func (db *DB) WriteTwoViewGeometry(ctx context.Context, imageID1, imageID2 model.ImageID, geometry model.TwoViewGeometry) error {
	conn, err := db.conn()
	if err != nil {
		return wrapError("write two-view geometry", err)
	}

	pairID := model.ImagePairToPairID(imageID1, imageID2)
	matches := geometry.InlierMatches
	if model.SwapImagePair(imageID1, imageID2) {
		matches = swappedCopy(matches)
	}

	blob, err := compressBlob(encodeMatches(matches), db.opts.Compression)
	if err != nil {
		return wrapError("write two-view geometry", err)
	}

	_, err = conn.ExecContext(ctx,
		`INSERT INTO two_view_geometries (pair_id, rows, cols, data, config) VALUES (?, ?, ?, ?, ?)`,
		int64(pairID), len(matches), matchCols, blob, int64(geometry.Config))
	if err != nil {
		return wrapError("write two-view geometry", err)
	}
	return nil
}

// swappedCopy flips match columns on a copy, leaving the caller's slice
// untouched.
func swappedCopy(matches []model.FeatureMatch) []model.FeatureMatch {
	swapped := make([]model.FeatureMatch, len(matches))
	copy(swapped, matches)
	model.SwapFeatureMatches(swapped)
	return swapped
}
