package codec

import (
	"bytes"
	"context"
	"testing"
)

func TestGzipCodec_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := GzipCodec{}
	payload := bytes.Repeat([]byte("the quick brown fox jumps over the lazy dog. "), 20)
	encoded, err := c.Encode(ctx, payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := c.Decode(ctx, encoded, BytesRepresentation{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("round trip mismatch")
	}
}

func TestZlibCodec_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := ZlibCodec{}
	payload := bytes.Repeat([]byte("zarr v3 chunk payload "), 20)
	encoded, err := c.Encode(ctx, payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := c.Decode(ctx, encoded, BytesRepresentation{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("round trip mismatch")
	}
}

func TestZstdCodec_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := ZstdCodec{}
	payload := bytes.Repeat([]byte("compressible payload data "), 50)
	encoded, err := c.Encode(ctx, payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := c.Decode(ctx, encoded, BytesRepresentation{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("round trip mismatch")
	}
}

func TestZstdCodec_RecommendedConcurrency(t *testing.T) {
	c := ZstdCodec{}
	if lo, hi := c.RecommendedConcurrency(BytesRepresentation{Exact: true, Length: 1 << 21}); lo != 1 || hi != 4 {
		t.Errorf("large input: (lo,hi) = (%d,%d), want (1,4)", lo, hi)
	}
	if lo, hi := c.RecommendedConcurrency(BytesRepresentation{Exact: true, Length: 100}); lo != 1 || hi != 1 {
		t.Errorf("small input: (lo,hi) = (%d,%d), want (1,1)", lo, hi)
	}
}

func TestBloscCodec_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := BloscCodec{TypeSize: 4, CLevel: 5, Shuffle: true}
	payload := make([]byte, 4*64)
	for i := range payload {
		payload[i] = byte(i)
	}
	encoded, err := c.Encode(ctx, payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := c.Decode(ctx, encoded, BytesRepresentation{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Error("round trip mismatch")
	}
}
