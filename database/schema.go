package database

// Schema of the feature database. Keypoint, match and geometry payloads are
// matrix blobs with explicit row/column counts; pair tables are keyed by the
// order-normalized pair id.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS cameras (
	camera_id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
	model INTEGER NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	params BLOB,
	prior_focal_length INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
	image_id INTEGER PRIMARY KEY AUTOINCREMENT NOT NULL,
	name TEXT NOT NULL,
	camera_id INTEGER NOT NULL,
	FOREIGN KEY(camera_id) REFERENCES cameras(camera_id)
);

CREATE UNIQUE INDEX IF NOT EXISTS index_images_name ON images(name);

CREATE TABLE IF NOT EXISTS keypoints (
	image_id INTEGER PRIMARY KEY NOT NULL,
	rows INTEGER NOT NULL,
	cols INTEGER NOT NULL,
	data BLOB,
	FOREIGN KEY(image_id) REFERENCES images(image_id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS matches (
	pair_id INTEGER PRIMARY KEY NOT NULL,
	rows INTEGER NOT NULL,
	cols INTEGER NOT NULL,
	data BLOB
);

CREATE TABLE IF NOT EXISTS two_view_geometries (
	pair_id INTEGER PRIMARY KEY NOT NULL,
	rows INTEGER NOT NULL,
	cols INTEGER NOT NULL,
	data BLOB,
	config INTEGER NOT NULL
);
`
