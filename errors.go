package pmread

import "errors"

var (
	// ErrInvalidMagic is returned when the archive does not start with
	// the PMTiles magic bytes.
	ErrInvalidMagic = errors.New("magic number not detected; confirm this is a PMTiles archive")

	// ErrUnsupportedSpecVersion is returned for archives written against
	// a spec version other than 3.
	ErrUnsupportedSpecVersion = errors.New("unsupported spec version")

	// ErrInvalidTileID is returned when a coordinate lies outside the
	// supported zoom range or an id lies beyond the producible curve.
	ErrInvalidTileID = errors.New("invalid tile id")

	// ErrUnsupportedCompression is returned for compression codecs the
	// reader cannot unpack.
	ErrUnsupportedCompression = errors.New("unsupported compression")
)
