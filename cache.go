package pmread

import (
	"context"
	"strconv"
	"sync"

	"github.com/brunomvsouza/singleflight"
	"github.com/dgraph-io/ristretto/v2"
)

const (
	DefaultCacheNumCounters = 10 * 500 * 1024
	DefaultCacheMaxCost     = 50 * 1024
	DefaultCacheBufferItems = 64
)

// directoryLoader fetches and decodes a directory for the descent and
// walk paths. The direct loader re-reads and re-decompresses on every
// call, which is the reader's default contract; the caching loader
// layers on top without changing lookup semantics.
type directoryLoader interface {
	load(ctx context.Context, header Header, r RangeReader, rng Range, decompress DecompressFunc) (Entries, error)
	close()
}

type directLoader struct{}

func (directLoader) load(
	ctx context.Context,
	header Header,
	r RangeReader,
	rng Range,
	decompress DecompressFunc,
) (Entries, error) {
	data, err := r.ReadRange(ctx, rng)
	if err != nil {
		return nil, err
	}
	return decodeDirectory(data, header.InternalCompression, decompress)
}

func (directLoader) close() {}

// keyBufPool holds pre-sized buffers for cache key construction.
var keyBufPool = sync.Pool{
	New: func() any {
		buf := make([]byte, 0, 64)
		return &buf
	},
}

// cacheKey scopes a directory location to the archive version it was
// read from, so a replaced archive never serves stale directories.
func cacheKey(etag string, rng Range) string {
	bufPtr, _ := keyBufPool.Get().(*[]byte) //nolint:errcheck
	buf := (*bufPtr)[:0]
	defer keyBufPool.Put(bufPtr)

	buf = append(buf, etag...)
	buf = append(buf, ':')
	buf = strconv.AppendUint(buf, rng.Offset, 10)
	buf = append(buf, ':')
	buf = strconv.AppendUint(buf, rng.Length, 10)

	return string(buf)
}

func newCachingLoader(cfg *ristretto.Config[string, Entries]) (*cachingLoader, error) {
	cache, err := ristretto.NewCache(cfg)
	if err != nil {
		return nil, err
	}
	return &cachingLoader{cache: cache}, nil
}

// cachingLoader keeps decoded directories in a ristretto cache keyed by
// etag and location. Concurrent misses for the same directory collapse
// into a single fetch.
type cachingLoader struct {
	cache *ristretto.Cache[string, Entries]
	group singleflight.Group[string, Entries]
}

func (c *cachingLoader) load(
	ctx context.Context,
	header Header,
	r RangeReader,
	rng Range,
	decompress DecompressFunc,
) (Entries, error) {
	key := cacheKey(header.Etag, rng)
	if entries, ok := c.cache.Get(key); ok {
		return entries, nil
	}

	entries, err, _ := c.group.Do(key, func() (Entries, error) {
		entries, err := directLoader{}.load(ctx, header, r, rng, decompress)
		if err != nil {
			return nil, err
		}
		// ristretto admission is best effort; a rejected set only
		// costs a re-fetch later
		if c.cache.Set(key, entries, int64(len(entries))+1) {
			c.cache.Wait()
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (c *cachingLoader) close() {
	c.cache.Close()
}
