package pmread

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Range describes a byte range within the archive.
type Range struct {
	Offset uint64
	Length uint64
}

func (r Range) Validate() error {
	if r.Length == 0 {
		return errors.New("invalid range: length must be a positive integer")
	}
	return nil
}

// RangeReader is the random-access byte source an archive is read from.
// Reads are positional; implementations must not share a seek cursor,
// so a single instance can serve concurrent callers without locking.
// Close is idempotent.
type RangeReader interface {
	ReadRange(ctx context.Context, r Range) ([]byte, error)
	Close() error
}

// etagger is implemented by sources that know a version tag for their
// content. The tag scopes directory cache keys.
type etagger interface {
	ETag() string
}

// NewFileRangeReader opens a local archive file for positional reads.
func NewFileRangeReader(path string) (*FileRangeReader, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("opening file at path %s: %w", path, err)
	}
	return &FileRangeReader{file: f}, nil
}

// FileRangeReader reads ranges from a local file via ReadAt, which is
// safe for concurrent use and does not touch the file's seek offset.
type FileRangeReader struct {
	file *os.File
}

func (f *FileRangeReader) ReadRange(_ context.Context, r Range) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	buf := make([]byte, r.Length)
	if _, err := f.file.ReadAt(buf, int64(r.Offset)); err != nil { //nolint:gosec
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf(
				"short read of %d bytes at offset %d: %w", r.Length, r.Offset, err,
			)
		}
		return nil, err
	}

	return buf, nil
}

func (f *FileRangeReader) Close() error {
	err := f.file.Close()
	if errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}
