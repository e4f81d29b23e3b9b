package pmread

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Scheme identifies how an archive URI is accessed.
type Scheme uint8

const (
	UnknownScheme Scheme = iota
	FileScheme
	S3Scheme
)

var _ fmt.Stringer = UnknownScheme

var schemeNames = map[Scheme]string{
	UnknownScheme: "unknown",
	FileScheme:    "file",
	S3Scheme:      "s3",
}

func (s Scheme) String() string {
	return schemeNames[s]
}

// URI encapsulates parsed archive location components.
type URI struct {
	host     string
	path     string
	fullPath string
	scheme   Scheme
}

func (u *URI) Host() string {
	return u.host
}

func (u *URI) Path() string {
	return u.path
}

// FullPath joins host and path into a platform path, used for file URIs.
func (u *URI) FullPath() string {
	return u.fullPath
}

func (u *URI) Scheme() Scheme {
	return u.scheme
}

func newURI(u *url.URL, scheme Scheme) *URI {
	return &URI{
		host:     u.Host,
		path:     u.Path,
		fullPath: filepath.FromSlash(filepath.Join(u.Host, u.Path)),
		scheme:   scheme,
	}
}

// ParseURI parses a string into a URI, trimming whitespace. Bare paths
// and file:// URIs resolve to FileScheme, s3://bucket/key to S3Scheme.
func ParseURI(raw string) (*URI, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty archive URI")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing URI %q: %w", raw, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "", "file":
		return newURI(u, FileScheme), nil
	case "s3":
		return newURI(u, S3Scheme), nil
	default:
		return nil, fmt.Errorf("unsupported URI scheme %q", u.Scheme)
	}
}

// NewRangeReader builds a RangeReader for the archive at uri.
func NewRangeReader(ctx context.Context, uri string) (RangeReader, error) {
	u, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}

	switch u.Scheme() {
	case FileScheme:
		return NewFileRangeReader(u.FullPath())
	case S3Scheme:
		return NewS3RangeReader(ctx, u.Host(), strings.TrimPrefix(u.Path(), "/"))
	default:
		return nil, fmt.Errorf("unsupported URI scheme %q", u.Scheme())
	}
}
