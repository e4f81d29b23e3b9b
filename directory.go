package pmread

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sort"
)

// Entry is one row of a directory. RunLength > 0 marks a data entry
// covering RunLength consecutive tile ids backed by one byte range in
// the tile data region; RunLength == 0 marks a pointer to a leaf
// directory covering every id from TileID up to the next sibling.
type Entry struct {
	TileID    uint64 `json:"tile_id"`
	Offset    uint64 `json:"offset"`
	Length    uint64 `json:"length"`
	RunLength uint32 `json:"run_length"`
}

func (e Entry) String() string {
	jsonBytes, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return `{"error": "failed to marshal entry"}`
	}
	return string(jsonBytes)
}

// Entries is a directory's rows, sorted ascending by TileID with no
// duplicates.
type Entries []Entry

// FindEntry locates the entry responsible for tileID. An exact TileID
// match wins. Otherwise the last entry at or below tileID matches when
// tileID falls inside its run, or unconditionally when it is a leaf
// pointer, since a leaf covers the whole id gap up to the next sibling.
// The second return is false when no entry is responsible, which is the
// regular tile-not-found outcome rather than an error.
func (e Entries) FindEntry(tileID uint64) (Entry, bool) {
	i := sort.Search(len(e), func(i int) bool {
		return e[i].TileID > tileID
	})
	if i == 0 {
		// every entry starts above tileID
		return Entry{}, false
	}

	candidate := e[i-1]
	if candidate.RunLength == 0 {
		return candidate, true
	}
	if tileID-candidate.TileID < uint64(candidate.RunLength) {
		return candidate, true
	}

	return Entry{}, false
}

// readEntries decodes the columnar uvarint layout of a directory:
// entry count, tile id deltas, run lengths, lengths, then offsets.
// A stored offset of 0 past the first entry means the entry starts
// right after the previous one; any other value is the offset plus one.
func readEntries(br *bufio.Reader) (Entries, error) {
	count, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, fmt.Errorf("reading directory entry count: %w", err)
	}

	entries := make(Entries, count)

	var lastID uint64
	for i := range entries {
		delta, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("reading tile id delta at %d: %w", i, err)
		}
		lastID += delta
		entries[i].TileID = lastID
	}

	for i := range entries {
		runLength, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("reading run length at %d: %w", i, err)
		}
		entries[i].RunLength = uint32(runLength) //nolint:gosec
	}

	for i := range entries {
		length, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("reading length at %d: %w", i, err)
		}
		entries[i].Length = length
	}

	for i := range entries {
		offset, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, fmt.Errorf("reading offset at %d: %w", i, err)
		}
		if offset == 0 && i > 0 {
			entries[i].Offset = entries[i-1].Offset + entries[i-1].Length
		} else {
			entries[i].Offset = offset - 1
		}
	}

	return entries, nil
}

// decodeDirectory unpacks a raw directory buffer, decompressing it
// first when the archive's internal compression asks for it.
func decodeDirectory(data []byte, compression Compression, decompress DecompressFunc) (entries Entries, err error) {
	dr, err := decompress(bytes.NewReader(data), compression)
	if err != nil {
		return nil, fmt.Errorf("decompressing directory: %w", err)
	}
	defer func() {
		if cerr := dr.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing decompressed reader: %w", cerr)
		}
	}()

	entries, err = readEntries(bufio.NewReader(dr))
	if err != nil {
		return nil, fmt.Errorf("deserializing directory: %w", err)
	}

	return entries, nil
}
