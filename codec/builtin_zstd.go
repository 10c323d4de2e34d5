package codec

import (
	"context"

	"github.com/klauspost/compress/zstd"

	"github.com/tuskan/zarrengine/zarrtypes"
)

// ZstdCodec is a bytes-to-bytes codec backed by klauspost/compress/zstd,
// matching the decompression path in the teacher's zarr/dataset.go.
type ZstdCodec struct {
	Level zstd.EncoderLevel
}

func (c ZstdCodec) Identifier() string { return "zstd" }

func (c ZstdCodec) Configuration() (map[string]any, bool) {
	return map[string]any{"level": int(c.Level)}, true
}

func (ZstdCodec) DecoderCapability() Capability {
	return Capability{PartialRead: false, PartialDecode: false}
}

func (ZstdCodec) EncoderCapability() Capability { return Capability{PartialEncode: false} }

// RecommendedConcurrency reports that zstd's internal block encoder can
// usefully exploit a handful of worker goroutines for larger inputs (§4.2,
// §5), modeled on zarrs_codec's RecommendedConcurrency ranges for block
// compressors.
func (ZstdCodec) RecommendedConcurrency(rep BytesRepresentation) (int, int) {
	if rep.Exact && rep.Length > 1<<20 {
		return 1, 4
	}
	return 1, 1
}

func (c ZstdCodec) Encode(_ context.Context, raw []byte) ([]byte, error) {
	level := c.Level
	if level == 0 {
		level = zstd.SpeedDefault
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
	if err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "zstd_encode", err, "failed to create zstd encoder")
	}
	defer enc.Close()
	return enc.EncodeAll(raw, nil), nil
}

func (ZstdCodec) Decode(_ context.Context, raw []byte, _ BytesRepresentation) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "zstd_decode", err, "failed to create zstd decoder")
	}
	defer dec.Close()
	out, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "zstd_decode", err, "failed to decompress zstd stream")
	}
	return out, nil
}

func (ZstdCodec) EncodedRepresentation(BytesRepresentation) (BytesRepresentation, error) {
	return BytesRepresentation{Exact: false, Length: -1}, nil
}

var _ BytesToBytesCodec = ZstdCodec{}
