package pmread

import (
	"fmt"
	"sync"
	"testing"
)

func TestCacheKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		etag     string
		rng      Range
		expected string
	}{
		{name: "basic", etag: "abc123", rng: Range{Offset: 512, Length: 1024}, expected: "abc123:512:1024"},
		{name: "zero values", etag: "test", rng: Range{}, expected: "test:0:0"},
		{name: "empty etag", etag: "", rng: Range{Offset: 5, Length: 10}, expected: ":5:10"},
		{
			name:     "etag with special chars",
			etag:     "etag-with-dashes_and_underscores.123",
			rng:      Range{Offset: 1000, Length: 2000},
			expected: "etag-with-dashes_and_underscores.123:1000:2000",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := cacheKey(tc.etag, tc.rng)
			want := fmt.Sprintf("%s:%d:%d", tc.etag, tc.rng.Offset, tc.rng.Length)

			if got != tc.expected {
				t.Errorf("cacheKey() = %q, expected %q", got, tc.expected)
			}
			if got != want {
				t.Errorf("cacheKey() = %q, fmt.Sprintf = %q, should be identical", got, want)
			}
		})
	}
}

func TestCachingLoaderConcurrent(t *testing.T) {
	t.Parallel()

	archive := buildArchive(t, archiveSpec{
		internal: CompressionNone,
		root:     Entries{{TileID: 0, RunLength: 1, Offset: 0, Length: 4}},
		tileData: []byte("data"),
		minZoom:  0,
		maxZoom:  0,
	})
	src := &countingRangeReader{byteRangeReader: byteRangeReader{data: archive, etag: "concurrent"}}

	r, err := NewReader(t.Context(), src, WithDirectoryCache())
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close() //nolint:errcheck

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			data, err := r.Tile(t.Context(), 0, 0, 0)
			if err != nil {
				t.Errorf("Tile: %v", err)
				return
			}
			if string(data) != "data" {
				t.Errorf("Tile = %q, expected %q", data, "data")
			}
		}()
	}
	wg.Wait()

	// singleflight collapses concurrent misses; once cached, the root
	// directory is never fetched again. A handful of goroutines can
	// slip between a cache miss and joining the flight, so allow a
	// small margin over the ideal single fetch.
	rootOffset := r.Header().RootOffset
	if got := src.readsAt(rootOffset); got < 1 || got > 4 {
		t.Errorf("root directory fetched %d times under concurrency, expected close to 1", got)
	}
}

func BenchmarkCacheKey(b *testing.B) {
	etag := "test-etag-12345"
	rng := Range{Offset: 512, Length: 1024}

	b.Run("sprintf", func(b *testing.B) {
		for b.Loop() {
			_ = fmt.Sprintf("%s:%d:%d", etag, rng.Offset, rng.Length)
		}
	})

	b.Run("pooled", func(b *testing.B) {
		for b.Loop() {
			_ = cacheKey(etag, rng)
		}
	})
}
