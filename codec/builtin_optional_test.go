package codec

import (
	"context"
	"reflect"
	"testing"

	"github.com/tuskan/zarrengine/zarrtypes"
)

func TestOptionalCodec_RoundTrip(t *testing.T) {
	ctx := context.Background()
	optT := zarrtypes.MakeOptional(zarrtypes.Fixed(zarrtypes.Uint8))
	shape := []int{4}
	c := OptionalCodec{Inner: BytesCodec{}}

	ab := &zarrtypes.ArrayBytes{
		Variant: zarrtypes.VariantOptional,
		Inner:   zarrtypes.NewFixed([]byte{1, 2, 5, 0}),
		Mask:    []byte{1, 1, 0, 1},
	}
	raw, err := c.Encode(ctx, ab, shape, optT, zarrtypes.FillValue{0})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := c.Decode(ctx, raw, shape, optT, zarrtypes.FillValue{0})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	inner, mask, err := decoded.IntoOptional()
	if err != nil {
		t.Fatalf("IntoOptional: %v", err)
	}
	if !reflect.DeepEqual(mask, []byte{1, 1, 0, 1}) {
		t.Errorf("mask = %v, want [1 1 0 1]", mask)
	}
	buf, err := inner.IntoFixed()
	if err != nil {
		t.Fatalf("IntoFixed: %v", err)
	}
	if !reflect.DeepEqual(buf, []byte{1, 2, 5, 0}) {
		t.Errorf("buf = %v, want [1 2 5 0]", buf)
	}
}

// Scenario 5 (§8): nested Option<Option<u8>> round trips bit-for-bit at
// every layer.
func TestOptionalCodec_NestedRoundTrip(t *testing.T) {
	ctx := context.Background()
	innerT := zarrtypes.MakeOptional(zarrtypes.Fixed(zarrtypes.Uint8))
	outerT := zarrtypes.MakeOptional(innerT)
	shape := []int{6}
	c := OptionalCodec{Inner: BytesCodec{}}

	outerMask := []byte{1, 1, 1, 0, 1, 1}
	innerMask := []byte{1, 0, 0, 0, 1, 1}
	data := []byte{10, 0, 0, 0, 6, 7}

	ab := &zarrtypes.ArrayBytes{
		Variant: zarrtypes.VariantOptional,
		Mask:    outerMask,
		Inner: &zarrtypes.ArrayBytes{
			Variant: zarrtypes.VariantOptional,
			Mask:    innerMask,
			Inner:   zarrtypes.NewFixed(data),
		},
	}
	fill := zarrtypes.FillValue{0, 0} // inner suffix 0 (null), outer suffix 0 (null)

	raw, err := c.Encode(ctx, ab, shape, outerT, fill)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := c.Decode(ctx, raw, shape, outerT, fill)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	gotInner, gotOuterMask, err := decoded.IntoOptional()
	if err != nil {
		t.Fatalf("IntoOptional (outer): %v", err)
	}
	if !reflect.DeepEqual(gotOuterMask, outerMask) {
		t.Errorf("outer mask = %v, want %v", gotOuterMask, outerMask)
	}
	gotData, gotInnerMask, err := gotInner.IntoOptional()
	if err != nil {
		t.Fatalf("IntoOptional (inner): %v", err)
	}
	if !reflect.DeepEqual(gotInnerMask, innerMask) {
		t.Errorf("inner mask = %v, want %v", gotInnerMask, innerMask)
	}
	gotBuf, err := gotData.IntoFixed()
	if err != nil {
		t.Fatalf("IntoFixed: %v", err)
	}
	if !reflect.DeepEqual(gotBuf, data) {
		t.Errorf("data = %v, want %v", gotBuf, data)
	}
}

func TestOptionalCodec_DecodeTruncatedMask(t *testing.T) {
	optT := zarrtypes.MakeOptional(zarrtypes.Fixed(zarrtypes.Uint8))
	c := OptionalCodec{Inner: BytesCodec{}}
	if _, err := c.Decode(context.Background(), []byte{1}, []int{4}, optT, zarrtypes.FillValue{0}); err == nil {
		t.Fatal("expected an error for a truncated mask")
	}
}
