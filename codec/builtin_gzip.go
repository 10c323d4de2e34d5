package codec

import (
	"bytes"
	"context"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"github.com/tuskan/zarrengine/zarrtypes"
)

// GzipCodec is a bytes-to-bytes codec backed by klauspost/compress's gzip,
// matching the teacher's preference for the klauspost compress family over
// stdlib compress/gzip (reader.go's zlib path is generalized here to gzip
// framing per the zarr v3 "gzip" codec; zlib-framed chunks from the v2 path
// decode through ZlibCodec below instead).
type GzipCodec struct {
	Level int
}

func (c GzipCodec) Identifier() string { return "gzip" }

func (c GzipCodec) Configuration() (map[string]any, bool) {
	return map[string]any{"level": c.Level}, true
}

func (GzipCodec) DecoderCapability() Capability {
	return Capability{PartialRead: false, PartialDecode: false}
}

func (GzipCodec) EncoderCapability() Capability { return Capability{PartialEncode: false} }

func (GzipCodec) RecommendedConcurrency(BytesRepresentation) (int, int) { return 1, 1 }

func (c GzipCodec) Encode(_ context.Context, raw []byte) ([]byte, error) {
	level := c.Level
	if level == 0 {
		level = gzip.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "gzip_encode", err, "failed to create gzip writer")
	}
	if _, err := w.Write(raw); err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "gzip_encode", err, "failed to write gzip stream")
	}
	if err := w.Close(); err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "gzip_encode", err, "failed to close gzip stream")
	}
	return buf.Bytes(), nil
}

func (GzipCodec) Decode(_ context.Context, raw []byte, _ BytesRepresentation) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "gzip_decode", err, "failed to init gzip reader")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "gzip_decode", err, "failed to decompress gzip stream")
	}
	return out, nil
}

func (GzipCodec) EncodedRepresentation(BytesRepresentation) (BytesRepresentation, error) {
	return BytesRepresentation{Exact: false, Length: -1}, nil
}

var _ BytesToBytesCodec = GzipCodec{}

// ZlibCodec is a bytes-to-bytes codec decoding the zlib framing used by the
// teacher's v2 reader.go ("zlib"/"gzip" compressor id mapped to
// compress/zlib there); kept distinct from GzipCodec because the two
// framings are not interchangeable on the wire.
type ZlibCodec struct {
	Level int
}

func (c ZlibCodec) Identifier() string { return "zlib" }

func (c ZlibCodec) Configuration() (map[string]any, bool) {
	return map[string]any{"level": c.Level}, true
}

func (ZlibCodec) DecoderCapability() Capability {
	return Capability{PartialRead: false, PartialDecode: false}
}

func (ZlibCodec) EncoderCapability() Capability { return Capability{PartialEncode: false} }

func (ZlibCodec) RecommendedConcurrency(BytesRepresentation) (int, int) { return 1, 1 }

func (c ZlibCodec) Encode(_ context.Context, raw []byte) ([]byte, error) {
	level := c.Level
	if level == 0 {
		level = zlib.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "zlib_encode", err, "failed to create zlib writer")
	}
	if _, err := w.Write(raw); err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "zlib_encode", err, "failed to write zlib stream")
	}
	if err := w.Close(); err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "zlib_encode", err, "failed to close zlib stream")
	}
	return buf.Bytes(), nil
}

func (ZlibCodec) Decode(_ context.Context, raw []byte, _ BytesRepresentation) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "zlib_decode", err, "failed to init zlib reader")
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, zarrtypes.Wrap(zarrtypes.CodecError, "zlib_decode", err, "failed to decompress zlib stream")
	}
	return out, nil
}

func (ZlibCodec) EncodedRepresentation(BytesRepresentation) (BytesRepresentation, error) {
	return BytesRepresentation{Exact: false, Length: -1}, nil
}

var _ BytesToBytesCodec = ZlibCodec{}
