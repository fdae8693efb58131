package database

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/mrliujie/ColmapForVisSat/model"
)

// Compression defines the blob compression algorithm.
type Compression uint8

const (
	// CompressionNone stores blobs raw.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast, lower ratio).
	CompressionLZ4 Compression = 1
	// CompressionZstd uses zstd block compression (slower, better ratio).
	CompressionZstd Compression = 2
)

// zstd encoder/decoder pools for efficiency
var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

func putZstdDecoder(dec *zstd.Decoder) {
	zstdDecoderPool.Put(dec)
}

// Blob envelope format:
// [Type uint8][UncompressedSize uint32][CompressedSize uint32][Payload...]
// CompressedSize == 0 means the payload is stored raw. The type byte makes
// blobs self-describing, so reads never depend on handle options.
const blobHeaderSize = 9

// compressBlob wraps data in the blob envelope, compressing the payload
// with the given algorithm. Incompressible data is stored raw.
func compressBlob(data []byte, compression Compression) ([]byte, error) {
	if len(data) > math.MaxUint32 {
		return nil, fmt.Errorf("blob too large: %d bytes", len(data))
	}

	var compressed []byte
	var err error

	switch compression {
	case CompressionNone:
		// Stored raw below.
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZstd:
		compressed, err = compressZstd(data)
	default:
		return nil, fmt.Errorf("unknown compression type %d", compression)
	}

	if err != nil {
		return nil, err
	}

	// If compression doesn't help (ratio > 0.9), store raw.
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		blob := make([]byte, blobHeaderSize+len(data))
		blob[0] = byte(compression)
		binary.LittleEndian.PutUint32(blob[1:], uint32(len(data)))
		binary.LittleEndian.PutUint32(blob[5:], 0) // 0 = raw
		copy(blob[blobHeaderSize:], data)
		return blob, nil
	}

	blob := make([]byte, blobHeaderSize+len(compressed))
	blob[0] = byte(compression)
	binary.LittleEndian.PutUint32(blob[1:], uint32(len(data)))
	binary.LittleEndian.PutUint32(blob[5:], uint32(len(compressed)))
	copy(blob[blobHeaderSize:], compressed)
	return blob, nil
}

func compressLZ4(data []byte) ([]byte, error) {
	compressed := make([]byte, lz4.CompressBlockBound(len(data)))

	n, err := lz4.CompressBlock(data, compressed, nil)
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, nil // Incompressible
	}

	return compressed[:n], nil
}

func compressZstd(data []byte) ([]byte, error) {
	enc := getZstdEncoder()
	defer putZstdEncoder(enc)

	return enc.EncodeAll(data, nil), nil
}

// decompressBlob unwraps the blob envelope and returns the raw payload. Any
// structural inconsistency fails with ErrCorruptBlob.
func decompressBlob(blob []byte) ([]byte, error) {
	if len(blob) == 0 {
		return nil, nil
	}
	if len(blob) < blobHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is below header size", ErrCorruptBlob, len(blob))
	}

	compression := Compression(blob[0])
	uncompressedSize := binary.LittleEndian.Uint32(blob[1:])
	compressedSize := binary.LittleEndian.Uint32(blob[5:])

	if compressedSize == 0 {
		if uint64(len(blob)) < uint64(blobHeaderSize)+uint64(uncompressedSize) {
			return nil, fmt.Errorf("%w: raw payload truncated", ErrCorruptBlob)
		}
		return blob[blobHeaderSize : blobHeaderSize+int(uncompressedSize)], nil
	}

	if uint64(len(blob)) < uint64(blobHeaderSize)+uint64(compressedSize) {
		return nil, fmt.Errorf("%w: compressed payload truncated", ErrCorruptBlob)
	}
	payload := blob[blobHeaderSize : blobHeaderSize+int(compressedSize)]

	switch compression {
	case CompressionLZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
		}
		if uint32(n) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlob)
		}
		return out, nil

	case CompressionZstd:
		dec := getZstdDecoder()
		defer putZstdDecoder(dec)

		out, err := dec.DecodeAll(payload, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptBlob, err)
		}
		if uint32(len(out)) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorruptBlob)
		}
		return out, nil

	case CompressionNone:
		return nil, fmt.Errorf("%w: raw blob with nonzero compressed size", ErrCorruptBlob)

	default:
		return nil, fmt.Errorf("%w: unknown compression type %d", ErrCorruptBlob, compression)
	}
}

// encodeParams serializes camera parameters as little-endian float64.
func encodeParams(params []float64) []byte {
	data := make([]byte, 8*len(params))
	for i, p := range params {
		binary.LittleEndian.PutUint64(data[i*8:], math.Float64bits(p))
	}
	return data
}

func decodeParams(data []byte) ([]float64, error) {
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("%w: params blob length %d is not a multiple of 8", ErrCorruptBlob, len(data))
	}

	params := make([]float64, len(data)/8)
	for i := range params {
		params[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return params, nil
}

// keypointCols is the column count written for keypoint blobs:
// x, y, scale, orientation.
const keypointCols = 4

// encodeKeypoints serializes keypoints as a rows x 4 float32 matrix.
func encodeKeypoints(keypoints []model.Keypoint) []byte {
	data := make([]byte, 4*keypointCols*len(keypoints))
	for i, kp := range keypoints {
		offset := i * keypointCols * 4
		binary.LittleEndian.PutUint32(data[offset:], math.Float32bits(kp.X))
		binary.LittleEndian.PutUint32(data[offset+4:], math.Float32bits(kp.Y))
		binary.LittleEndian.PutUint32(data[offset+8:], math.Float32bits(kp.Scale))
		binary.LittleEndian.PutUint32(data[offset+12:], math.Float32bits(kp.Orientation))
	}
	return data
}

// decodeKeypoints deserializes a rows x cols float32 matrix. Two columns are
// plain locations, four add scale and orientation, six carry a full affine
// shape that is reduced to scale and orientation.
func decodeKeypoints(data []byte, rows, cols int) ([]model.Keypoint, error) {
	if cols != 2 && cols != 4 && cols != 6 {
		return nil, fmt.Errorf("%w: keypoint blob with %d columns", ErrCorruptBlob, cols)
	}
	if rows < 0 || len(data)%(cols*4) != 0 || rows != len(data)/(cols*4) {
		return nil, fmt.Errorf("%w: keypoint blob length %d does not match %dx%d float32", ErrCorruptBlob, len(data), rows, cols)
	}

	get := func(row, col int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[(row*cols+col)*4:]))
	}

	keypoints := make([]model.Keypoint, rows)
	for i := 0; i < rows; i++ {
		switch cols {
		case 2:
			keypoints[i] = model.Keypoint{X: get(i, 0), Y: get(i, 1), Scale: 1}
		case 4:
			keypoints[i] = model.Keypoint{X: get(i, 0), Y: get(i, 1), Scale: get(i, 2), Orientation: get(i, 3)}
		case 6:
			keypoints[i] = model.KeypointFromAffine(get(i, 0), get(i, 1), get(i, 2), get(i, 3), get(i, 4), get(i, 5))
		}
	}
	return keypoints, nil
}

// matchCols is the column count of match blobs: one feature index per image.
const matchCols = 2

// encodeMatches serializes feature matches as a rows x 2 uint32 matrix.
func encodeMatches(matches []model.FeatureMatch) []byte {
	data := make([]byte, 4*matchCols*len(matches))
	for i, m := range matches {
		binary.LittleEndian.PutUint32(data[i*8:], uint32(m.PointIdx1))
		binary.LittleEndian.PutUint32(data[i*8+4:], uint32(m.PointIdx2))
	}
	return data
}

func decodeMatches(data []byte, rows, cols int) ([]model.FeatureMatch, error) {
	if cols != matchCols {
		return nil, fmt.Errorf("%w: match blob with %d columns", ErrCorruptBlob, cols)
	}
	if rows < 0 || len(data)%(cols*4) != 0 || rows != len(data)/(cols*4) {
		return nil, fmt.Errorf("%w: match blob length %d does not match %dx%d uint32", ErrCorruptBlob, len(data), rows, cols)
	}

	matches := make([]model.FeatureMatch, rows)
	for i := range matches {
		matches[i] = model.FeatureMatch{
			PointIdx1: model.Point2DIdx(binary.LittleEndian.Uint32(data[i*8:])),
			PointIdx2: model.Point2DIdx(binary.LittleEndian.Uint32(data[i*8+4:])),
		}
	}
	return matches, nil
}
