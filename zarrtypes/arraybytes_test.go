package zarrtypes

import (
	"reflect"
	"testing"
)

func TestNewVariable_RejectsOffsetsBeyondBuffer(t *testing.T) {
	if _, err := NewVariable([]byte("ab"), []int{0, 3}); err == nil {
		t.Fatal("expected an error when the last offset exceeds the buffer length")
	}
}

func TestNewVariable_RejectsNonMonotoneOffsets(t *testing.T) {
	if _, err := NewVariable([]byte("abcd"), []int{0, 3, 2}); err == nil {
		t.Fatal("expected an error for non-monotone offsets")
	}
}

func TestWithOptionalMask_LengthMismatch(t *testing.T) {
	inner := NewFixed([]byte{1, 2, 3})
	if _, err := WithOptionalMask(inner, []byte{1, 0}, Fixed(Uint8)); err == nil {
		t.Fatal("expected an error when mask length != element count")
	}
}

func TestExtractArraySubset_Fixed(t *testing.T) {
	t8 := Fixed(Uint8)
	ab := NewFixed([]byte{1, 2, 3, 4, 5, 6})
	idx := Indexer{Indices: []int{5, 3, 0}}
	got, err := ab.ExtractArraySubset(idx, t8)
	if err != nil {
		t.Fatalf("ExtractArraySubset: %v", err)
	}
	buf, err := got.IntoFixed()
	if err != nil {
		t.Fatalf("IntoFixed: %v", err)
	}
	if !reflect.DeepEqual(buf, []byte{6, 4, 1}) {
		t.Errorf("buf = %v, want [6 4 1]", buf)
	}
}

func TestExtractArraySubset_Variable(t *testing.T) {
	strT := VariableString()
	ab, err := NewVariable([]byte("S1S22S333S4444"), []int{0, 2, 5, 9, 14})
	if err != nil {
		t.Fatalf("NewVariable: %v", err)
	}
	idx := Indexer{Indices: []int{2, 0}}
	got, err := ab.ExtractArraySubset(idx, strT)
	if err != nil {
		t.Fatalf("ExtractArraySubset: %v", err)
	}
	buf, offsets, err := got.IntoVariable()
	if err != nil {
		t.Fatalf("IntoVariable: %v", err)
	}
	if string(buf) != "S333S1" {
		t.Errorf("buf = %q, want %q", buf, "S333S1")
	}
	if !reflect.DeepEqual(offsets, []int{0, 4, 6}) {
		t.Errorf("offsets = %v, want [0 4 6]", offsets)
	}
}

func TestExtractArraySubset_Optional(t *testing.T) {
	optT := MakeOptional(Fixed(Uint8))
	inner := NewFixed([]byte{10, 20, 30, 40})
	ab, err := WithOptionalMask(inner, []byte{1, 0, 1, 1}, optT.Inner)
	if err != nil {
		t.Fatalf("WithOptionalMask: %v", err)
	}
	idx := Indexer{Indices: []int{3, 1, 2}}
	got, err := ab.ExtractArraySubset(idx, optT)
	if err != nil {
		t.Fatalf("ExtractArraySubset: %v", err)
	}
	innerOut, mask, err := got.IntoOptional()
	if err != nil {
		t.Fatalf("IntoOptional: %v", err)
	}
	if !reflect.DeepEqual(mask, []byte{1, 0, 1}) {
		t.Errorf("mask = %v, want [1 0 1]", mask)
	}
	buf, err := innerOut.IntoFixed()
	if err != nil {
		t.Fatalf("IntoFixed: %v", err)
	}
	if !reflect.DeepEqual(buf, []byte{40, 20, 30}) {
		t.Errorf("buf = %v, want [40 20 30]", buf)
	}
}

func TestValidate_FixedLengthMismatch(t *testing.T) {
	t32 := Fixed(Uint32)
	ab := NewFixed([]byte{1, 2, 3})
	if err := ab.Validate(1, t32); err == nil {
		t.Fatal("expected a length-mismatch error")
	}
}

func TestValidate_VariantMismatch(t *testing.T) {
	t8 := Fixed(Uint8)
	ab, err := NewVariable([]byte("ab"), []int{0, 1, 2})
	if err != nil {
		t.Fatalf("NewVariable: %v", err)
	}
	if err := ab.Validate(2, t8); err == nil {
		t.Fatal("expected a VariantMismatch error")
	}
}

func TestValidate_OptionalMaskBadByte(t *testing.T) {
	optT := MakeOptional(Fixed(Uint8))
	ab := &ArrayBytes{Variant: VariantOptional, Inner: NewFixed([]byte{1, 2}), Mask: []byte{1, 2}}
	if err := ab.Validate(2, optT); err == nil {
		t.Fatal("expected an error for a non-0/1 mask byte")
	}
}

func TestIsFillValue_Fixed(t *testing.T) {
	t8 := Fixed(Uint8)
	fill := FillValue{0}
	ab, err := NewFillValueArrayBytes(t8, 4, fill)
	if err != nil {
		t.Fatalf("NewFillValueArrayBytes: %v", err)
	}
	ok, err := ab.IsFillValue(4, t8, fill)
	if err != nil {
		t.Fatalf("IsFillValue: %v", err)
	}
	if !ok {
		t.Error("expected an all-fill chunk to report IsFillValue = true")
	}

	nonFill := NewFixed([]byte{0, 0, 1, 0})
	ok, err = nonFill.IsFillValue(4, t8, fill)
	if err != nil {
		t.Fatalf("IsFillValue: %v", err)
	}
	if ok {
		t.Error("expected a chunk with a non-fill element to report IsFillValue = false")
	}
}

func TestIsFillValue_OptionalDistinguishesZeroFromNull(t *testing.T) {
	optT := MakeOptional(Fixed(Uint8))
	nullFill := FillValue{0} // suffix byte 0 => null
	allNull, err := NewFillValueArrayBytes(optT, 2, nullFill)
	if err != nil {
		t.Fatalf("NewFillValueArrayBytes: %v", err)
	}
	ok, err := allNull.IsFillValue(2, optT, nullFill)
	if err != nil {
		t.Fatalf("IsFillValue: %v", err)
	}
	if !ok {
		t.Error("expected the all-null construction to equal its own null fill value")
	}

	// Some(0) must not collapse into the null representation.
	someZero := &ArrayBytes{Variant: VariantOptional, Inner: NewFixed([]byte{0, 0}), Mask: []byte{1, 1}}
	ok, err = someZero.IsFillValue(2, optT, nullFill)
	if err != nil {
		t.Fatalf("IsFillValue: %v", err)
	}
	if ok {
		t.Error("Some(0) must not structurally equal an all-null fill value")
	}
}

func TestElementCount(t *testing.T) {
	t8 := Fixed(Uint8)
	if got := NewFixed([]byte{1, 2, 3}).ElementCount(t8); got != 3 {
		t.Errorf("ElementCount = %d, want 3", got)
	}
	ab, _ := NewVariable([]byte("abcd"), []int{0, 1, 4})
	if got := ab.ElementCount(nil); got != 2 {
		t.Errorf("ElementCount = %d, want 2", got)
	}
}

func TestSize_ExcludesMaskAndOffsets(t *testing.T) {
	inner := NewFixed([]byte{1, 2, 3, 4})
	ab := &ArrayBytes{Variant: VariantOptional, Inner: inner, Mask: []byte{1, 1, 1, 1}}
	if got := ab.Size(); got != 4 {
		t.Errorf("Size() = %d, want 4 (payload only, mask excluded)", got)
	}
}
