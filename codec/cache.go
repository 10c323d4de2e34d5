package codec

import (
	"context"
	"sync"

	"github.com/tuskan/zarrengine/store"
	"github.com/tuskan/zarrengine/zarrtypes"
)

// BytesCache wraps a source with a FullDecode method, performing one full decode on
// first access and serving subsequent partial requests from memory (§4.3.3,
// "a cache transparently implements the partial-decoder trait by doing one
// full decode on first access").
type BytesCache struct {
	inner interface {
		FullDecode(ctx context.Context) ([]byte, bool, error)
	}
	once sync.Once
	data []byte
	err  error
}

// NewBytesCache wraps a full-decode-capable source.
func NewBytesCache(inner interface {
	FullDecode(ctx context.Context) ([]byte, bool, error)
}) *BytesCache {
	return &BytesCache{inner: inner}
}

func (c *BytesCache) full(ctx context.Context) ([]byte, error) {
	c.once.Do(func() {
		data, ok, err := c.inner.FullDecode(ctx)
		if err != nil {
			c.err = err
			return
		}
		if !ok {
			c.err = zarrtypes.Newf(zarrtypes.StorageError, "bytes_cache", "underlying key not found")
			return
		}
		c.data = data
	})
	return c.data, c.err
}

func (c *BytesCache) PartialDecode(ctx context.Context, ranges []store.ByteRange) ([][]byte, error) {
	full, err := c.full(ctx)
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(ranges))
	for i, r := range ranges {
		start := int(r.Offset)
		end := len(full)
		if r.Length >= 0 {
			end = start + int(r.Length)
		}
		if start < 0 || end > len(full) || end < start {
			return nil, zarrtypes.Newf(zarrtypes.CodecError, "bytes_cache", "invalid byte range [%d,%d) for cached value of length %d", start, end, len(full))
		}
		out[i] = full[start:end]
	}
	return out, nil
}

var _ BytesPartialDecoder = (*BytesCache)(nil)

// ArrayBytesCache wraps an ArrayPartialDecoder, decoding the full chunk once
// and serving subsequent partial requests by in-memory extraction.
type ArrayBytesCache struct {
	inner     ArrayPartialDecoder
	chunkSub  zarrtypes.Subset
	chunkT    *zarrtypes.DataType
	once      sync.Once
	decoded   *zarrtypes.ArrayBytes
	err       error
}

// NewArrayBytesCache wraps inner; chunkSub names the full chunk extent used
// to trigger the one-time full decode.
func NewArrayBytesCache(inner ArrayPartialDecoder, chunkSub zarrtypes.Subset, chunkT *zarrtypes.DataType) *ArrayBytesCache {
	return &ArrayBytesCache{inner: inner, chunkSub: chunkSub, chunkT: chunkT}
}

func (c *ArrayBytesCache) full(ctx context.Context) (*zarrtypes.ArrayBytes, error) {
	c.once.Do(func() {
		c.decoded, c.err = c.inner.PartialDecode(ctx, c.chunkSub)
	})
	return c.decoded, c.err
}

func (c *ArrayBytesCache) PartialDecode(ctx context.Context, sub zarrtypes.Subset) (*zarrtypes.ArrayBytes, error) {
	full, err := c.full(ctx)
	if err != nil {
		return nil, err
	}
	idx := zarrtypes.NewIndexerForSubset(sub.RelativeToOrigin(c.chunkSub.Start), c.chunkSub.Shape)
	return full.ExtractArraySubset(idx, c.chunkT)
}

var _ ArrayPartialDecoder = (*ArrayBytesCache)(nil)
