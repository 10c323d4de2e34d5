// Package codec implements the codec trait hierarchy (§4.2), the composed
// codec chain with cache insertion (§4.3), and a handful of built-in
// array-to-array, array-to-bytes, and bytes-to-bytes codecs.
package codec

import (
	"context"

	"github.com/tuskan/zarrengine/store"
	"github.com/tuskan/zarrengine/zarrtypes"
)

// Capability reports what partial operations a codec can answer without
// materializing its whole input (§4.2).
type Capability struct {
	PartialRead   bool // false: must read all input before producing any output
	PartialDecode bool // false: must decode entire input to answer any partial request
	PartialEncode bool
}

// Traits is the common base every codec kind implements.
type Traits interface {
	// Identifier is the codec's name (and, per version, its default
	// registry name).
	Identifier() string
	// Configuration exports this codec's configuration for metadata
	// serialization. ok=false means "no metadata" (hidden codecs such as
	// caches).
	Configuration() (cfg map[string]any, ok bool)
	DecoderCapability() Capability
	EncoderCapability() Capability
	// RecommendedConcurrency reports the [lo, hi] concurrency range this
	// codec can usefully exploit internally for the given representation
	// (§4.2, §5).
	RecommendedConcurrency(rep BytesRepresentation) (lo, hi int)
}

// BytesRepresentation describes the byte length a codec stage produces:
// either exact, or an upper bound (§4.2).
type BytesRepresentation struct {
	Exact  bool
	Length int64
}

// ArrayToArrayCodec transforms ArrayBytes to ArrayBytes, optionally
// reshaping/retyping along the way (e.g. transpose). Per the chain's
// representation-propagation walk (§4.3.1), EncodedRepresentation reports
// the encoded (shape, dtype, fill) as a pure function of the decoded ones.
type ArrayToArrayCodec interface {
	Traits
	Encode(ctx context.Context, ab *zarrtypes.ArrayBytes, shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) (*zarrtypes.ArrayBytes, error)
	Decode(ctx context.Context, encAb *zarrtypes.ArrayBytes, encShape []int, encT *zarrtypes.DataType, encFill zarrtypes.FillValue) (*zarrtypes.ArrayBytes, error)
	EncodedRepresentation(shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) (encShape []int, encT *zarrtypes.DataType, encFill zarrtypes.FillValue, err error)
}

// ArrayToBytesCodec converts ArrayBytes to/from raw bytes. Exactly one must
// appear in a chain (I6).
type ArrayToBytesCodec interface {
	Traits
	Encode(ctx context.Context, ab *zarrtypes.ArrayBytes, shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) ([]byte, error)
	Decode(ctx context.Context, raw []byte, shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) (*zarrtypes.ArrayBytes, error)
	// DecodeInto writes directly into target, skipping an intermediate
	// allocation for fixed-length types (§4.2).
	DecodeInto(ctx context.Context, raw []byte, shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue, target *zarrtypes.DisjointView, dstOffset []int) error
	EncodedRepresentation(shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) (BytesRepresentation, error)
}

// BytesToBytesCodec transforms raw bytes to raw bytes (e.g. compression,
// checksums).
type BytesToBytesCodec interface {
	Traits
	Encode(ctx context.Context, raw []byte) ([]byte, error)
	Decode(ctx context.Context, raw []byte, rep BytesRepresentation) ([]byte, error)
	EncodedRepresentation(rep BytesRepresentation) (BytesRepresentation, error)
}

// BytesPartialDecoder answers sub-range reads of an encoded byte stream
// without necessarily decoding the whole thing (§4.3.4).
type BytesPartialDecoder interface {
	PartialDecode(ctx context.Context, ranges []store.ByteRange) ([][]byte, error)
}

// ArrayPartialDecoder answers sub-region reads of a chunk's ArrayBytes
// payload.
type ArrayPartialDecoder interface {
	PartialDecode(ctx context.Context, sub zarrtypes.Subset) (*zarrtypes.ArrayBytes, error)
}

// BytesPartialEncoder answers targeted sub-range writes and supports erase,
// mirroring the storage-side StoragePartialEncoder contract (§4.3.5).
type BytesPartialEncoder interface {
	PartialEncode(ctx context.Context, writes []store.PartialWrite) error
	Erase(ctx context.Context) error
}

// ArrayPartialEncoder answers targeted sub-region writes at the ArrayBytes
// level.
type ArrayPartialEncoder interface {
	PartialEncode(ctx context.Context, sub zarrtypes.Subset, ab *zarrtypes.ArrayBytes) error
}
