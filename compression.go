package pmread

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Compression enumerates the codecs a PMTiles archive may use for its
// directories, metadata and tile payloads. The zero value is
// CompressionUnknown.
type Compression uint8

const (
	// CompressionUnknown indicates the codec is not recognized.
	CompressionUnknown Compression = iota
	// CompressionNone indicates the payload is uncompressed.
	CompressionNone
	// CompressionGZIP indicates the payload is gzip-compressed.
	CompressionGZIP
	// CompressionBrotli indicates the payload is Brotli-compressed.
	CompressionBrotli
	// CompressionZstd indicates the payload is Zstandard-compressed.
	CompressionZstd
)

var compressionNames = map[Compression]string{
	CompressionUnknown: "unknown",
	CompressionNone:    "none",
	CompressionGZIP:    "gzip",
	CompressionBrotli:  "brotli",
	CompressionZstd:    "zstd",
}

// String returns a human-readable name for the compression codec.
func (c Compression) String() string {
	return compressionNames[c]
}

// MarshalJSON marshals the Compression as a JSON string (e.g. "gzip").
// Unknown values marshal as "unknown".
func (c Compression) MarshalJSON() ([]byte, error) {
	str, ok := compressionNames[c]
	if !ok {
		str = compressionNames[CompressionUnknown]
	}
	return json.Marshal(str)
}

// DecompressFunc wraps r with the decompressor matching the given
// Compression. The returned ReadCloser must be closed by the caller.
type DecompressFunc = func(r io.Reader, compression Compression) (io.ReadCloser, error)

// gzPool stores reusable *gzip.Reader instances to reduce allocations.
// gzip.Reader is not safe for concurrent use, but sync.Pool access is
// concurrency-safe and returns a fresh instance per caller.
var gzPool = sync.Pool{New: func() any { return new(gzip.Reader) }}

// gzipReadCloser returns its reader to gzPool on Close.
type gzipReadCloser struct {
	zr *gzip.Reader
}

func (g gzipReadCloser) Read(p []byte) (int, error) { return g.zr.Read(p) }

func (g gzipReadCloser) Close() error {
	err := g.zr.Close()
	gzPool.Put(g.zr)
	return err
}

// Decompress is the default DecompressFunc.
//
// CompressionNone and CompressionUnknown return r unchanged behind a
// no-op Close. CompressionGZIP returns a pooled gzip reader. Brotli and
// Zstd archives are not produced by the pipelines this reader targets
// and fail with ErrUnsupportedCompression.
func Decompress(r io.Reader, compression Compression) (io.ReadCloser, error) {
	switch compression {
	case CompressionNone, CompressionUnknown:
		return io.NopCloser(r), nil

	case CompressionGZIP:
		zr, _ := gzPool.Get().(*gzip.Reader) //nolint:errcheck
		if err := zr.Reset(r); err != nil {
			gzPool.Put(zr)
			return nil, fmt.Errorf("resetting gzip reader: %w", err)
		}
		return gzipReadCloser{zr: zr}, nil

	default:
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedCompression, compression)
	}
}
