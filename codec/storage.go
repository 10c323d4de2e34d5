package codec

import (
	"context"

	"github.com/tuskan/zarrengine/store"
)

// StoragePartialDecoder seeds the partial-decoder chain (§4.3.4 step 1): a
// bytes-partial-decoder that reads get_partial ranges from the store under
// a fixed chunk key.
type StoragePartialDecoder struct {
	Store store.Store
	Key   string
}

func (d *StoragePartialDecoder) PartialDecode(ctx context.Context, ranges []store.ByteRange) ([][]byte, error) {
	return d.Store.GetPartialMany(ctx, d.Key, ranges)
}

// FullDecode reads the whole chunk value, used when a codec stage has
// partial_read=false and must be fed in one shot.
func (d *StoragePartialDecoder) FullDecode(ctx context.Context) ([]byte, bool, error) {
	return d.Store.Get(ctx, d.Key)
}

// StoragePartialEncoder seeds the partial-encoder chain (§4.3.5): bytes in,
// bytes out, with erase support.
type StoragePartialEncoder struct {
	Store store.Store
	Key   string
}

func (e *StoragePartialEncoder) PartialEncode(ctx context.Context, writes []store.PartialWrite) error {
	return e.Store.SetPartialMany(ctx, e.Key, writes)
}

func (e *StoragePartialEncoder) Erase(ctx context.Context) error {
	return e.Store.Erase(ctx, e.Key)
}

func (e *StoragePartialEncoder) FullEncode(ctx context.Context, data []byte) error {
	return e.Store.Set(ctx, e.Key, data)
}

var _ BytesPartialDecoder = (*StoragePartialDecoder)(nil)
var _ BytesPartialEncoder = (*StoragePartialEncoder)(nil)
