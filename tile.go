package pmread

import "fmt"

// TileCoord addresses a single tile by zoom level and x/y position
// within that level. It is the public addressing unit of the reader;
// tile ids are derived from it on demand and never stored.
type TileCoord struct {
	Z uint64 `json:"z"`
	X uint64 `json:"x"`
	Y uint64 `json:"y"`
}

func (c TileCoord) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}
