package codec

import (
	"context"

	"github.com/tuskan/zarrengine/zarrtypes"
)

// OptionalCodec is the array-to-bytes codec for nested-optional types
// (§3, §4.7, SPEC_FULL "optional_codec.rs"). It wraps any inner
// array-to-bytes codec (typically BytesCodec) and frames each optional
// layer as `mask ++ inner-bytes`, recursing through Inner/t.Inner exactly
// as ArrayBytes itself nests (§4.1) — so a single OptionalCodec instance
// handles Optional(T), Optional(Optional(T)), and any deeper nesting
// without needing one wrapper instance per level.
type OptionalCodec struct {
	Inner ArrayToBytesCodec
}

func (c OptionalCodec) Identifier() string { return "optional" }

func (c OptionalCodec) Configuration() (map[string]any, bool) {
	inner, ok := c.Inner.Configuration()
	if !ok {
		return map[string]any{"codec": c.Inner.Identifier()}, true
	}
	return map[string]any{"codec": c.Inner.Identifier(), "codec_configuration": inner}, true
}

func (c OptionalCodec) DecoderCapability() Capability {
	return Capability{PartialRead: false, PartialDecode: false}
}

func (c OptionalCodec) EncoderCapability() Capability { return Capability{PartialEncode: false} }

func (c OptionalCodec) RecommendedConcurrency(rep BytesRepresentation) (int, int) {
	return c.Inner.RecommendedConcurrency(rep)
}

func numElements(shape []int) int {
	n := 1
	for _, s := range shape {
		n *= s
	}
	return n
}

// innerFillValue strips fill's trailing suffix byte to get the fill value
// for t.Inner, per §3's "bytes [inner..] plus a final suffix byte"
// convention. The suffix byte itself only matters for fill-value
// *construction* (zarrtypes.NewFillValueArrayBytes); codec Encode/Decode
// never needs to inspect presence, only pass the inner fill through.
func innerFillValue(fill zarrtypes.FillValue) zarrtypes.FillValue {
	if len(fill) == 0 {
		return fill
	}
	return fill[:len(fill)-1]
}

func (c OptionalCodec) Encode(ctx context.Context, ab *zarrtypes.ArrayBytes, shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) ([]byte, error) {
	if t.Kind != zarrtypes.Optional {
		return c.Inner.Encode(ctx, ab, shape, t, fill)
	}
	if ab.Variant != zarrtypes.VariantOptional {
		return nil, zarrtypes.Newf(zarrtypes.VariantMismatch, "optional_encode", "expected Optional variant, got %v", ab.Variant)
	}
	innerBytes, err := c.Encode(ctx, ab.Inner, shape, t.Inner, innerFillValue(fill))
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(ab.Mask)+len(innerBytes))
	out = append(out, ab.Mask...)
	out = append(out, innerBytes...)
	return out, nil
}

func (c OptionalCodec) Decode(ctx context.Context, raw []byte, shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) (*zarrtypes.ArrayBytes, error) {
	if t.Kind != zarrtypes.Optional {
		return c.Inner.Decode(ctx, raw, shape, t, fill)
	}
	n := numElements(shape)
	if len(raw) < n {
		return nil, zarrtypes.Newf(zarrtypes.CodecError, "optional_decode", "truncated mask: need %d bytes, have %d", n, len(raw))
	}
	mask := append([]byte(nil), raw[:n]...)
	for _, b := range mask {
		if b != 0 && b != 1 {
			return nil, zarrtypes.Newf(zarrtypes.InvalidBytes, "optional_decode", "mask byte must be 0 or 1, got %d", b)
		}
	}
	inner, err := c.Decode(ctx, raw[n:], shape, t.Inner, innerFillValue(fill))
	if err != nil {
		return nil, err
	}
	return &zarrtypes.ArrayBytes{Variant: zarrtypes.VariantOptional, Inner: inner, Mask: mask}, nil
}

// DecodeInto only serves the non-Optional case: a single DisjointView has
// nowhere to put a validity mask, so silently dropping every Optional layer
// here would decode data while discarding presence information (P8). An
// Optional t returns UnsupportedConfiguration instead, so callers fall back
// to Decode plus a mask-aware write (zarrtypes.NestedOptionalTarget.WriteArrayBytes).
func (c OptionalCodec) DecodeInto(ctx context.Context, raw []byte, shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue, target *zarrtypes.DisjointView, dstOffset []int) error {
	if t.Kind == zarrtypes.Optional {
		return zarrtypes.Newf(zarrtypes.UnsupportedConfiguration, "optional_decode_into", "Optional data type cannot be decoded into a single fixed-width view; its validity mask has nowhere to land")
	}
	return c.Inner.DecodeInto(ctx, raw, shape, t, fill, target, dstOffset)
}

func (c OptionalCodec) EncodedRepresentation(shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) (BytesRepresentation, error) {
	if t.Kind != zarrtypes.Optional {
		return c.Inner.EncodedRepresentation(shape, t, fill)
	}
	n := numElements(shape)
	innerRep, err := c.EncodedRepresentation(shape, t.Inner, innerFillValue(fill))
	if err != nil {
		return BytesRepresentation{}, err
	}
	if innerRep.Exact {
		return BytesRepresentation{Exact: true, Length: int64(n) + innerRep.Length}, nil
	}
	return BytesRepresentation{Exact: false, Length: -1}, nil
}

var _ ArrayToBytesCodec = OptionalCodec{}
