package pmread

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// Metadata is the JSON document stored alongside the directories.
type Metadata struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Attribution  string `json:"attribution"`
	Type         string `json:"type"`
	Version      string `json:"version"`
	VectorLayers []any  `json:"vector_layers"`
}

func readMetadata(
	ctx context.Context,
	header Header,
	r RangeReader,
	decompress DecompressFunc,
) (m Metadata, err error) {
	if header.MetadataLength == 0 {
		return m, nil
	}

	data, err := r.ReadRange(ctx, Range{Offset: header.MetadataOffset, Length: header.MetadataLength})
	if err != nil {
		return m, fmt.Errorf("reading metadata range: %w", err)
	}

	dr, err := decompress(bytes.NewReader(data), header.InternalCompression)
	if err != nil {
		return m, fmt.Errorf("decompressing metadata: %w", err)
	}
	defer func() {
		if cerr := dr.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing decompression reader: %w", cerr)
		}
	}()

	jsonData, err := io.ReadAll(dr)
	if err != nil {
		return m, fmt.Errorf("reading decompressed metadata: %w", err)
	}

	if err := json.Unmarshal(jsonData, &m); err != nil {
		return m, fmt.Errorf("unmarshalling metadata: %w", err)
	}

	return m, nil
}

func (m Metadata) String() string {
	jsonBytes, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return `{"error": "failed to marshal Metadata"}`
	}
	return string(jsonBytes)
}
