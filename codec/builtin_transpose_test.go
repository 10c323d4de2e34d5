package codec

import (
	"context"
	"reflect"
	"testing"

	"github.com/tuskan/zarrengine/zarrtypes"
)

func TestTransposeCodec_EncodedRepresentation(t *testing.T) {
	tc := TransposeCodec{Order: []int{1, 0}}
	encShape, _, _, err := tc.EncodedRepresentation([]int{2, 3}, zarrtypes.Fixed(zarrtypes.Uint8), nil)
	if err != nil {
		t.Fatalf("EncodedRepresentation: %v", err)
	}
	if !reflect.DeepEqual(encShape, []int{3, 2}) {
		t.Errorf("encShape = %v, want [3 2]", encShape)
	}
}

func TestTransposeCodec_EncodeDecodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	t8 := zarrtypes.Fixed(zarrtypes.Uint8)
	tc := TransposeCodec{Order: []int{1, 0}}
	shape := []int{2, 3}
	// Row-major 2x3: [[1,2,3],[4,5,6]]
	data := []byte{1, 2, 3, 4, 5, 6}
	ab := zarrtypes.NewFixed(data)

	encAB, err := tc.Encode(ctx, ab, shape, t8, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	encBuf, err := encAB.IntoFixed()
	if err != nil {
		t.Fatalf("IntoFixed: %v", err)
	}
	// Transposed to 3x2: [[1,4],[2,5],[3,6]]
	want := []byte{1, 4, 2, 5, 3, 6}
	if !reflect.DeepEqual(encBuf, want) {
		t.Errorf("encoded = %v, want %v", encBuf, want)
	}

	encShape, _, _, err := tc.EncodedRepresentation(shape, t8, nil)
	if err != nil {
		t.Fatalf("EncodedRepresentation: %v", err)
	}
	decAB, err := tc.Decode(ctx, encAB, encShape, t8, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	decBuf, err := decAB.IntoFixed()
	if err != nil {
		t.Fatalf("IntoFixed: %v", err)
	}
	if !reflect.DeepEqual(decBuf, data) {
		t.Errorf("round trip = %v, want %v", decBuf, data)
	}
}

func TestTransposeCodec_RequiresFixedWidth(t *testing.T) {
	tc := TransposeCodec{Order: []int{0}}
	ab, err := zarrtypes.NewVariable([]byte("ab"), []int{0, 2})
	if err != nil {
		t.Fatalf("NewVariable: %v", err)
	}
	if _, err := tc.Encode(context.Background(), ab, []int{1}, zarrtypes.VariableString(), nil); err == nil {
		t.Fatal("expected an error for a variable-width type")
	}
}
