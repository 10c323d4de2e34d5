package codec

import (
	"bytes"
	"context"
	"testing"
)

func TestCrc32cCodec_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := Crc32cCodec{}
	payload := []byte("the quick brown fox")
	encoded, err := c.Encode(ctx, payload)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(encoded) != len(payload)+4 {
		t.Fatalf("encoded length = %d, want %d", len(encoded), len(payload)+4)
	}
	decoded, err := c.Decode(ctx, encoded, BytesRepresentation{})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(decoded, payload) {
		t.Errorf("decoded = %q, want %q", decoded, payload)
	}
}

func TestCrc32cCodec_DetectsCorruption(t *testing.T) {
	ctx := context.Background()
	c := Crc32cCodec{}
	encoded, err := c.Encode(ctx, []byte("hello"))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	encoded[0] ^= 0xFF
	if _, err := c.Decode(ctx, encoded, BytesRepresentation{}); err == nil {
		t.Fatal("expected a checksum-mismatch error")
	}
}

func TestCrc32cCodec_DecodeTooShort(t *testing.T) {
	c := Crc32cCodec{}
	if _, err := c.Decode(context.Background(), []byte{1, 2}, BytesRepresentation{}); err == nil {
		t.Fatal("expected an error for input shorter than the checksum trailer")
	}
}
