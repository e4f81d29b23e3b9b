package pmread

import (
	"context"
	"fmt"

	"github.com/dgraph-io/ristretto/v2"
)

// maxDirectoryDepth bounds the single-tile descent. Producing pipelines
// never nest leaf directories deeper than this; running out of depth is
// treated as tile-not-found, not as a malformed archive.
const maxDirectoryDepth = 4

// Option configures a Reader.
type Option = func(r *Reader) error

// WithDecompressFunc replaces the default decompressor, e.g. to add
// brotli or zstd support.
func WithDecompressFunc(decompress DecompressFunc) Option {
	return func(r *Reader) error {
		r.decompress = decompress
		return nil
	}
}

// WithDirectoryCache layers a ristretto directory cache over the
// descent and walk paths. Lookup results are unaffected; only the
// fetch-and-decode work per directory is saved.
func WithDirectoryCache() Option {
	return func(r *Reader) error {
		loader, err := newCachingLoader(&ristretto.Config[string, Entries]{
			NumCounters: DefaultCacheNumCounters,
			MaxCost:     DefaultCacheMaxCost,
			BufferItems: DefaultCacheBufferItems,
		})
		if err != nil {
			return err
		}
		r.dirs = loader
		return nil
	}
}

// Reader provides read-only access to a single PMTiles archive. It owns
// its RangeReader exclusively and closes it on Close. All methods are
// safe for concurrent use; reads are positional and the parsed header
// is immutable.
type Reader struct {
	source     RangeReader
	header     Header
	meta       Metadata
	decompress DecompressFunc
	dirs       directoryLoader
}

// Open resolves uri (a bare path, file:// or s3://bucket/key) and opens
// the archive behind it.
func Open(ctx context.Context, uri string, options ...Option) (*Reader, error) {
	source, err := NewRangeReader(ctx, uri)
	if err != nil {
		return nil, err
	}

	r, err := NewReader(ctx, source, options...)
	if err != nil {
		_ = source.Close() //nolint:errcheck
		return nil, err
	}
	return r, nil
}

// NewReader opens an archive over an existing byte source. The header
// is parsed and validated eagerly; a source that does not hold a
// well-formed archive fails here, not on first lookup.
func NewReader(ctx context.Context, source RangeReader, options ...Option) (*Reader, error) {
	r := &Reader{
		source:     source,
		decompress: Decompress,
		dirs:       directLoader{},
	}

	for _, o := range options {
		if err := o(r); err != nil {
			return nil, err
		}
	}

	header, err := ReadHeader(ctx, source)
	if err != nil {
		return nil, err
	}
	r.header = header

	meta, err := readMetadata(ctx, header, source, r.decompress)
	if err != nil {
		return nil, err
	}
	r.meta = meta

	return r, nil
}

// Header returns a copy of the parsed archive header.
func (r *Reader) Header() Header {
	return r.header
}

// Metadata returns a copy of the archive's JSON metadata.
func (r *Reader) Metadata() Metadata {
	return r.meta
}

// Tile returns the stored bytes for the tile at z/x/y, exactly as they
// sit in the tile data region (tile compression is not undone). A nil
// slice with a nil error means the archive holds no such tile; errors
// are reserved for invalid coordinates and source or codec failures.
// The in-flight call is fatal on error, the Reader stays usable.
func (r *Reader) Tile(ctx context.Context, z, x, y uint64) ([]byte, error) {
	if z < uint64(r.header.MinZoom) || z > uint64(r.header.MaxZoom) {
		return nil, fmt.Errorf(
			"zoom %d outside of archive range %d to %d: %w",
			z, r.header.MinZoom, r.header.MaxZoom, ErrInvalidTileID,
		)
	}

	tileID, err := TileCoord{Z: z, X: x, Y: y}.ToTileID()
	if err != nil {
		return nil, err
	}

	rng := Range{Offset: r.header.RootOffset, Length: r.header.RootLength}
	for range maxDirectoryDepth {
		entries, err := r.dirs.load(ctx, r.header, r.source, rng, r.decompress)
		if err != nil {
			return nil, err
		}

		entry, ok := entries.FindEntry(tileID)
		if !ok {
			return nil, nil
		}

		if entry.RunLength > 0 {
			return r.source.ReadRange(ctx, Range{
				Offset: r.header.TileDataOffset + entry.Offset,
				Length: entry.Length,
			})
		}

		rng = Range{
			Offset: r.header.LeafDirectoryOffset + entry.Offset,
			Length: entry.Length,
		}
	}

	// descended past every level a well-formed archive can have
	return nil, nil
}

// TileByCoord is Tile addressed by a TileCoord.
func (r *Reader) TileByCoord(ctx context.Context, c TileCoord) ([]byte, error) {
	return r.Tile(ctx, c.Z, c.X, c.Y)
}

// Close releases the byte source. It is safe to call more than once.
func (r *Reader) Close() error {
	r.dirs.close()
	return r.source.Close()
}
