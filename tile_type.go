package pmread

import (
	"encoding/json"
	"fmt"
)

// TileType enumerates the payload formats an archive can carry.
type TileType uint8

const (
	TileTypeUnknown TileType = iota
	TileTypeMVT
	TileTypePNG
	TileTypeJPEG
	TileTypeWebp
	TileTypeAvif
)

var tileTypeNames = map[TileType]string{
	TileTypeUnknown: "unknown",
	TileTypeMVT:     "mvt",
	TileTypePNG:     "png",
	TileTypeJPEG:    "jpeg",
	TileTypeWebp:    "webp",
	TileTypeAvif:    "avif",
}

func (t TileType) String() string {
	return tileTypeNames[t]
}

func (t TileType) MarshalJSON() ([]byte, error) {
	str, ok := tileTypeNames[t]
	if !ok {
		str = tileTypeNames[TileTypeUnknown]
	}
	return json.Marshal(str)
}

// Ext returns the file extension for the tile type, dot included.
func (t TileType) Ext() string {
	return fmt.Sprintf(".%s", tileTypeNames[t])
}

// ContentType returns the MIME type served for the tile type.
func (t TileType) ContentType() string {
	switch t {
	case TileTypeMVT:
		return "application/x-protobuf"
	case TileTypePNG:
		return "image/png"
	case TileTypeJPEG:
		return "image/jpeg"
	case TileTypeWebp:
		return "image/webp"
	case TileTypeAvif:
		return "image/avif"
	default:
		return "application/octet-stream"
	}
}
