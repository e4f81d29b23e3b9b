package pmread

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/segmentio/ksuid"
)

const (
	headerOffset = 0
	// HeaderLength is the size of the fixed header region at the start
	// of every archive.
	HeaderLength = 127
)

// Header is the fixed-layout record at the start of an archive. It is
// parsed once at open time and held read-only for the reader's
// lifetime.
type Header struct {
	Etag                string      `json:"etag"`
	SpecVersion         uint8       `json:"spec_version"`
	RootOffset          uint64      `json:"root_offset"`
	RootLength          uint64      `json:"root_length"`
	MetadataOffset      uint64      `json:"metadata_offset"`
	MetadataLength      uint64      `json:"metadata_length"`
	LeafDirectoryOffset uint64      `json:"leaf_directory_offset"`
	LeafDirectoryLength uint64      `json:"leaf_directory_length"`
	TileDataOffset      uint64      `json:"tile_data_offset"`
	TileDataLength      uint64      `json:"tile_data_length"`
	AddressedTilesCount uint64      `json:"addressed_tiles_count"`
	TileEntriesCount    uint64      `json:"tile_entries_count"`
	TileContentsCount   uint64      `json:"tile_contents_count"`
	Clustered           bool        `json:"clustered"`
	InternalCompression Compression `json:"internal_compression"`
	TileCompression     Compression `json:"tile_compression"`
	TileType            TileType    `json:"tile_type"`
	MinZoom             uint8       `json:"min_zoom"`
	MaxZoom             uint8       `json:"max_zoom"`
	MinLonE7            int32       `json:"min_lon_e7"`
	MinLatE7            int32       `json:"min_lat_e7"`
	MaxLonE7            int32       `json:"max_lon_e7"`
	MaxLatE7            int32       `json:"max_lat_e7"`
	CenterZoom          uint8       `json:"center_zoom"`
	CenterLonE7         int32       `json:"center_lon_e7"`
	CenterLatE7         int32       `json:"center_lat_e7"`
}

// ReadHeader fetches and parses the fixed header region. Sources that
// carry an etag (e.g. S3) tag the header with it; otherwise a synthetic
// one is generated so cache keys stay scoped to this open.
func ReadHeader(ctx context.Context, r RangeReader) (Header, error) {
	b, err := r.ReadRange(ctx, Range{Offset: headerOffset, Length: HeaderLength})
	if err != nil {
		return Header{}, fmt.Errorf("reading header: %w", err)
	}

	var h Header
	if err := h.deserialize(b); err != nil {
		return Header{}, err
	}

	if e, ok := r.(etagger); ok {
		h.Etag = e.ETag()
	}
	if h.Etag == "" {
		h.Etag = ksuid.New().String()
	}

	return h, nil
}

func (h Header) String() string {
	jsonBytes, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return `{"error": "failed to marshal Header"}`
	}
	return string(jsonBytes)
}

func (h *Header) deserialize(d []byte) error {
	if len(d) < HeaderLength {
		return fmt.Errorf("header region truncated at %d bytes", len(d))
	}

	if string(d[0:7]) != "PMTiles" {
		return ErrInvalidMagic
	}

	switch d[7] {
	case 3:
		h.SpecVersion = 3
	case 1, 2:
		return fmt.Errorf("%w: spec version %d predates v3", ErrUnsupportedSpecVersion, d[7])
	default:
		return fmt.Errorf("%w: unknown version %d", ErrUnsupportedSpecVersion, d[7])
	}

	h.RootOffset = binary.LittleEndian.Uint64(d[8:16])
	h.RootLength = binary.LittleEndian.Uint64(d[16:24])
	h.MetadataOffset = binary.LittleEndian.Uint64(d[24:32])
	h.MetadataLength = binary.LittleEndian.Uint64(d[32:40])
	h.LeafDirectoryOffset = binary.LittleEndian.Uint64(d[40:48])
	h.LeafDirectoryLength = binary.LittleEndian.Uint64(d[48:56])
	h.TileDataOffset = binary.LittleEndian.Uint64(d[56:64])
	h.TileDataLength = binary.LittleEndian.Uint64(d[64:72])
	h.AddressedTilesCount = binary.LittleEndian.Uint64(d[72:80])
	h.TileEntriesCount = binary.LittleEndian.Uint64(d[80:88])
	h.TileContentsCount = binary.LittleEndian.Uint64(d[88:96])

	h.Clustered = d[96] == 0x1
	h.InternalCompression = Compression(d[97])
	h.TileCompression = Compression(d[98])
	h.TileType = TileType(d[99])

	h.MinZoom = d[100]
	h.MaxZoom = d[101]
	h.MinLonE7 = int32(binary.LittleEndian.Uint32(d[102:106])) //nolint:gosec
	h.MinLatE7 = int32(binary.LittleEndian.Uint32(d[106:110])) //nolint:gosec
	h.MaxLonE7 = int32(binary.LittleEndian.Uint32(d[110:114])) //nolint:gosec
	h.MaxLatE7 = int32(binary.LittleEndian.Uint32(d[114:118])) //nolint:gosec

	h.CenterZoom = d[118]
	h.CenterLonE7 = int32(binary.LittleEndian.Uint32(d[119:123])) //nolint:gosec
	h.CenterLatE7 = int32(binary.LittleEndian.Uint32(d[123:127])) //nolint:gosec

	return nil
}
