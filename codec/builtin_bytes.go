package codec

import (
	"context"
	"encoding/binary"

	"github.com/tuskan/zarrengine/zarrtypes"
)

// BytesCodec is the default array-to-bytes codec (I6: every chain needs
// exactly one). For a fixed-width type it is a pure passthrough of the
// C-order payload buffer. For a variable-width type it self-describes the
// per-element offsets as a little-endian uint64 header ahead of the
// concatenated element buffer, so a chunk's encoded bytes alone are
// sufficient to recover element boundaries without consulting the array
// shape. Optional types are handled one layer up by OptionalCodec (§4.7)
// wrapping this codec as its inner serializer.
type BytesCodec struct{}

func (BytesCodec) Identifier() string { return "bytes" }

func (BytesCodec) Configuration() (map[string]any, bool) {
	return map[string]any{"endian": "little"}, true
}

func (BytesCodec) DecoderCapability() Capability {
	return Capability{PartialRead: true, PartialDecode: false}
}

func (BytesCodec) EncoderCapability() Capability {
	return Capability{PartialEncode: false}
}

func (BytesCodec) RecommendedConcurrency(BytesRepresentation) (int, int) { return 1, 1 }

func (BytesCodec) Encode(_ context.Context, ab *zarrtypes.ArrayBytes, shape []int, t *zarrtypes.DataType, _ zarrtypes.FillValue) ([]byte, error) {
	if _, fixed := t.FixedWidth(); fixed {
		buf, err := ab.IntoFixed()
		if err != nil {
			return nil, err
		}
		return buf, nil
	}
	buf, offsets, err := ab.IntoVariable()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(offsets)*8+len(buf))
	binary.LittleEndian.PutUint64(out[0:8], uint64(len(offsets)))
	for i, o := range offsets {
		binary.LittleEndian.PutUint64(out[8+i*8:16+i*8], uint64(o))
	}
	copy(out[8+len(offsets)*8:], buf)
	return out, nil
}

func (BytesCodec) Decode(_ context.Context, raw []byte, shape []int, t *zarrtypes.DataType, _ zarrtypes.FillValue) (*zarrtypes.ArrayBytes, error) {
	if _, fixed := t.FixedWidth(); fixed {
		return zarrtypes.NewFixed(raw), nil
	}
	if len(raw) < 8 {
		return nil, zarrtypes.Newf(zarrtypes.CodecError, "bytes_decode", "truncated vlen header")
	}
	numOffsets := int(binary.LittleEndian.Uint64(raw[0:8]))
	headerEnd := 8 + numOffsets*8
	if headerEnd > len(raw) {
		return nil, zarrtypes.Newf(zarrtypes.CodecError, "bytes_decode", "truncated vlen offsets header")
	}
	offsets := make([]int, numOffsets)
	for i := 0; i < numOffsets; i++ {
		offsets[i] = int(binary.LittleEndian.Uint64(raw[8+i*8 : 16+i*8]))
	}
	buf := raw[headerEnd:]
	return zarrtypes.NewVariable(buf, offsets)
}

func (c BytesCodec) DecodeInto(ctx context.Context, raw []byte, shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue, target *zarrtypes.DisjointView, dstOffset []int) error {
	ab, err := c.Decode(ctx, raw, shape, t, fill)
	if err != nil {
		return err
	}
	buf, err := ab.IntoFixed()
	if err != nil {
		return err
	}
	return target.WriteRegion(dstOffset, buf, shape)
}

func (BytesCodec) EncodedRepresentation(shape []int, t *zarrtypes.DataType, _ zarrtypes.FillValue) (BytesRepresentation, error) {
	if w, fixed := t.FixedWidth(); fixed {
		n := 1
		for _, s := range shape {
			n *= s
		}
		return BytesRepresentation{Exact: true, Length: int64(n * w)}, nil
	}
	// Variable-width length depends on element content, not just shape.
	return BytesRepresentation{Exact: false, Length: -1}, nil
}

var _ ArrayToBytesCodec = BytesCodec{}
