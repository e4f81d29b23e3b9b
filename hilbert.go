package pmread

import (
	"fmt"
	"math/bits"
)

const (
	// MaxZoom is the deepest zoom level for which tile ids are produced.
	MaxZoom = 26

	// invalidTileID is the first id that would require a curve deeper
	// than 32 levels and therefore overflow uint64 arithmetic.
	// https://github.com/protomaps/PMTiles/issues/393
	invalidTileID uint64 = 0x5555555555555555
)

// zoomOffset returns the id of the first tile on zoom level z. All ids
// of shallower levels fit below it, which is what makes the combined id
// space totally ordered across zoom levels.
func zoomOffset(z uint64) uint64 {
	return ((uint64(1) << (2 * z)) - 1) / 3
}

// ToTileID maps a tile coordinate onto the global Hilbert id space.
// The mapping is injective: no two coordinates within the supported
// zoom range share an id, and deeper zooms always produce larger ids.
func (c TileCoord) ToTileID() (uint64, error) {
	z, x, y := c.Z, c.X, c.Y
	if z > MaxZoom {
		return 0, fmt.Errorf("zoom %d exceeds limit of %d: %w", z, MaxZoom, ErrInvalidTileID)
	}
	if x >= 1<<z || y >= 1<<z {
		return 0, fmt.Errorf(
			"tile x/y (%d/%d) outside of bounds for zoom %d: %w",
			x, y, z, ErrInvalidTileID,
		)
	}

	const lutPos = 0x361E9CB4
	const lutState = 0x8FE65831

	var state, code uint64
	for i := z; i > 0; i-- {
		shift := i - 1
		// row index: 2 state bits, then the current x and y bits
		row := (state << 3) | ((x>>shift)&1)<<2 | ((y>>shift)&1)<<1
		code = (code << 2) | ((lutPos >> row) & 3)
		state = (lutState >> row) & 3
	}

	return zoomOffset(z) + code, nil
}

// FromTileID inverts ToTileID. Ids at or beyond the 32-level overflow
// bound fail with ErrInvalidTileID instead of decoding to a truncated
// coordinate.
func FromTileID(tileID uint64) (TileCoord, error) {
	if tileID >= invalidTileID {
		return TileCoord{}, fmt.Errorf(
			"tile id %d exceeds 64-bit curve limit: %w", tileID, ErrInvalidTileID,
		)
	}

	z := ZoomOf(tileID)
	if z > MaxZoom {
		return TileCoord{}, fmt.Errorf(
			"tile id %d decodes to zoom beyond %d: %w", tileID, MaxZoom, ErrInvalidTileID,
		)
	}
	code := tileID - zoomOffset(z)

	const lutX = 0x936C
	const lutY = 0x39C6
	const lutState = 0x3E6B94C1

	var state, x, y uint64
	for i := 2 * z; i > 0; i -= 2 {
		row := (state << 2) | ((code >> (i - 2)) & 3)
		x = (x << 1) | ((lutX >> row) & 1)
		y = (y << 1) | ((lutY >> row) & 1)
		state = (lutState >> (2 * row)) & 3
	}

	return TileCoord{Z: z, X: x, Y: y}, nil
}

// ZoomOf returns the zoom level a tile id belongs to.
func ZoomOf(tileID uint64) uint64 {
	return uint64(bits.Len64(3*tileID+1)-1) / 2 //nolint:gosec
}
