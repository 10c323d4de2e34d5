package codec

import (
	"context"
	"encoding/binary"
	"hash/crc32"

	"github.com/tuskan/zarrengine/zarrtypes"
)

// Crc32cCodec is a bytes-to-bytes checksum codec matching zarr v3's
// "crc32c" codec: a little-endian CRC-32C (Castagnoli) trailer appended on
// encode and verified + stripped on decode.
type Crc32cCodec struct{}

var crc32cTable = crc32.MakeTable(crc32.Castagnoli)

func (Crc32cCodec) Identifier() string { return "crc32c" }

func (Crc32cCodec) Configuration() (map[string]any, bool) { return nil, false }

func (Crc32cCodec) DecoderCapability() Capability {
	return Capability{PartialRead: false, PartialDecode: true}
}

func (Crc32cCodec) EncoderCapability() Capability { return Capability{PartialEncode: false} }

func (Crc32cCodec) RecommendedConcurrency(BytesRepresentation) (int, int) { return 1, 1 }

func (Crc32cCodec) Encode(_ context.Context, raw []byte) ([]byte, error) {
	sum := crc32.Checksum(raw, crc32cTable)
	out := make([]byte, len(raw)+4)
	copy(out, raw)
	binary.LittleEndian.PutUint32(out[len(raw):], sum)
	return out, nil
}

func (Crc32cCodec) Decode(_ context.Context, raw []byte, _ BytesRepresentation) ([]byte, error) {
	if len(raw) < 4 {
		return nil, zarrtypes.Newf(zarrtypes.CodecError, "crc32c_decode", "input shorter than checksum trailer")
	}
	payload := raw[:len(raw)-4]
	want := binary.LittleEndian.Uint32(raw[len(raw)-4:])
	got := crc32.Checksum(payload, crc32cTable)
	if got != want {
		return nil, zarrtypes.Newf(zarrtypes.CodecError, "crc32c_decode", "checksum mismatch: got %x, want %x", got, want)
	}
	return payload, nil
}

func (Crc32cCodec) EncodedRepresentation(rep BytesRepresentation) (BytesRepresentation, error) {
	if rep.Exact {
		return BytesRepresentation{Exact: true, Length: rep.Length + 4}, nil
	}
	return BytesRepresentation{Exact: false, Length: -1}, nil
}

var _ BytesToBytesCodec = Crc32cCodec{}
