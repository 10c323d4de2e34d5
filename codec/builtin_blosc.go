package codec

import (
	"context"

	"github.com/mrjoshuak/go-blosc"

	"github.com/tuskan/zarrengine/zarrtypes"
)

// BloscCodec is a bytes-to-bytes codec backed by mrjoshuak/go-blosc,
// generalizing the decompression path from the teacher's reader.go
// (blosc.Decompress) to a full codec including the encode side. TypeSize is
// passed to blosc as its typesize hint (blosc's shuffle filter needs the
// element width to be effective); an unset TypeSize is sent as 1.
type BloscCodec struct {
	TypeSize int
	CLevel   int
	Shuffle  bool
}

func (c BloscCodec) Identifier() string { return "blosc" }

func (c BloscCodec) Configuration() (map[string]any, bool) {
	return map[string]any{"typesize": c.TypeSize, "clevel": c.CLevel, "shuffle": c.Shuffle}, true
}

func (BloscCodec) DecoderCapability() Capability {
	return Capability{PartialRead: false, PartialDecode: false}
}

func (BloscCodec) EncoderCapability() Capability { return Capability{PartialEncode: false} }

func (BloscCodec) RecommendedConcurrency(BytesRepresentation) (int, int) { return 1, 1 }

func (c BloscCodec) Encode(_ context.Context, raw []byte) ([]byte, error) {
	clevel := c.CLevel
	if clevel == 0 {
		clevel = 5
	}
	typeSize := c.TypeSize
	if typeSize == 0 {
		typeSize = 1
	}
	out, err := blosc.Compress(raw, typeSize, clevel, c.Shuffle)
	if err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "blosc_encode", err, "failed to compress blosc chunk")
	}
	return out, nil
}

func (BloscCodec) Decode(_ context.Context, raw []byte, _ BytesRepresentation) ([]byte, error) {
	out, err := blosc.Decompress(raw)
	if err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "blosc_decode", err, "failed to decompress blosc chunk")
	}
	return out, nil
}

func (BloscCodec) EncodedRepresentation(BytesRepresentation) (BytesRepresentation, error) {
	return BytesRepresentation{Exact: false, Length: -1}, nil
}

var _ BytesToBytesCodec = BloscCodec{}
