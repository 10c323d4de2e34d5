package zarrtypes

// Variant tags the three shapes an ArrayBytes payload can take (§3, §4.1).
type Variant int

const (
	VariantFixed Variant = iota
	VariantVariable
	VariantOptional
)

// ArrayBytes is the C1 sum-type container for a chunk's decoded payload.
//
//   - Fixed:    Buffer holds N*w bytes in C-order.
//   - Variable: Buffer is the concatenated element bytes; Offsets has N+1
//     monotone entries, Offsets[N] == len(Buffer).
//   - Optional: Inner holds the payload of T' at full density; Mask has one
//     byte per element (1 = present, 0 = null).
type ArrayBytes struct {
	Variant Variant
	Buffer  []byte
	Offsets []int
	Inner   *ArrayBytes
	Mask    []byte
}

// NewFixed wraps buf as a Fixed ArrayBytes.
func NewFixed(buf []byte) *ArrayBytes {
	return &ArrayBytes{Variant: VariantFixed, Buffer: buf}
}

// NewVariable validates offsets (I3) before wrapping buf+offsets as a
// Variable ArrayBytes.
func NewVariable(buf []byte, offsets []int) (*ArrayBytes, error) {
	if err := validateOffsets(offsets, len(buf)); err != nil {
		return nil, err
	}
	return NewVariableUnchecked(buf, offsets), nil
}

// NewVariableUnchecked skips offset validation for internally-verified
// construction paths (§4.1).
func NewVariableUnchecked(buf []byte, offsets []int) *ArrayBytes {
	return &ArrayBytes{Variant: VariantVariable, Buffer: buf, Offsets: offsets}
}

func validateOffsets(offsets []int, bufLen int) error {
	if len(offsets) == 0 {
		return Newf(InvalidBytes, "new_vlen", "offsets must have at least one entry")
	}
	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return Newf(InvalidBytes, "new_vlen", "offsets not monotone non-decreasing at index %d", i)
		}
	}
	if offsets[len(offsets)-1] > bufLen {
		return Newf(InvalidBytes, "new_vlen", "last offset %d exceeds buffer length %d", offsets[len(offsets)-1], bufLen)
	}
	return nil
}

// WithOptionalMask wraps inner with a validity mask; mask length must equal
// inner's element count (checked) (§4.1).
func WithOptionalMask(inner *ArrayBytes, mask []byte, t *DataType) (*ArrayBytes, error) {
	n := inner.ElementCount(t)
	if len(mask) != n {
		return nil, Newf(InvalidBytes, "with_optional_mask", "mask length %d != element count %d", len(mask), n)
	}
	return &ArrayBytes{Variant: VariantOptional, Inner: inner, Mask: mask}, nil
}

// ElementCount returns N for ab given t. t's variant-compatible layers must
// match ab's.
func (ab *ArrayBytes) ElementCount(t *DataType) int {
	switch ab.Variant {
	case VariantFixed:
		w, ok := t.FixedWidth()
		if !ok || w == 0 {
			return 0
		}
		return len(ab.Buffer) / w
	case VariantVariable:
		if len(ab.Offsets) == 0 {
			return 0
		}
		return len(ab.Offsets) - 1
	case VariantOptional:
		return len(ab.Mask)
	default:
		return 0
	}
}

// Size returns payload bytes only, excluding offsets/mask bookkeeping
// (§4.1).
func (ab *ArrayBytes) Size() int {
	switch ab.Variant {
	case VariantFixed, VariantVariable:
		return len(ab.Buffer)
	case VariantOptional:
		return ab.Inner.Size()
	default:
		return 0
	}
}

// Validate fails with a structured error if any of I2-I4 is violated for
// the given element count n and data type t (§4.1).
func (ab *ArrayBytes) Validate(n int, t *DataType) error {
	switch t.Kind {
	case Optional:
		if ab.Variant != VariantOptional {
			return Newf(VariantMismatch, "validate", "expected Optional variant, got %v", ab.Variant)
		}
		if len(ab.Mask) != n {
			return Newf(InvalidBytes, "validate", "mask length %d != element count %d", len(ab.Mask), n)
		}
		for _, b := range ab.Mask {
			if b != 0 && b != 1 {
				return Newf(InvalidBytes, "validate", "mask byte must be 0 or 1, got %d", b)
			}
		}
		return ab.Inner.Validate(n, t.Inner)
	default:
		w, fixed := t.FixedWidth()
		if fixed {
			if ab.Variant != VariantFixed {
				return Newf(VariantMismatch, "validate", "expected Fixed variant, got %v", ab.Variant)
			}
			if len(ab.Buffer) != n*w {
				return Newf(InvalidBytes, "validate", "buffer length %d != n*w (%d*%d)", len(ab.Buffer), n, w)
			}
			return nil
		}
		if ab.Variant != VariantVariable {
			return Newf(VariantMismatch, "validate", "expected Variable variant, got %v", ab.Variant)
		}
		if len(ab.Offsets) != n+1 {
			return Newf(InvalidBytes, "validate", "offsets length %d != n+1 (%d)", len(ab.Offsets), n+1)
		}
		return validateOffsets(ab.Offsets, len(ab.Buffer))
	}
}

// IntoFixed is a typed accessor failing with VariantMismatch if ab is not
// Fixed.
func (ab *ArrayBytes) IntoFixed() ([]byte, error) {
	if ab.Variant != VariantFixed {
		return nil, Newf(VariantMismatch, "into_fixed", "variant is %v, not Fixed", ab.Variant)
	}
	return ab.Buffer, nil
}

// IntoVariable is a typed accessor failing with VariantMismatch if ab is not
// Variable.
func (ab *ArrayBytes) IntoVariable() ([]byte, []int, error) {
	if ab.Variant != VariantVariable {
		return nil, nil, Newf(VariantMismatch, "into_variable", "variant is %v, not Variable", ab.Variant)
	}
	return ab.Buffer, ab.Offsets, nil
}

// IntoOptional is a typed accessor failing with VariantMismatch if ab is not
// Optional.
func (ab *ArrayBytes) IntoOptional() (*ArrayBytes, []byte, error) {
	if ab.Variant != VariantOptional {
		return nil, nil, Newf(VariantMismatch, "into_optional", "variant is %v, not Optional", ab.Variant)
	}
	return ab.Inner, ab.Mask, nil
}

// Indexer names, in emission order, the flat C-order element indices (into
// a source array of some shape) that a subset extraction should pull.
type Indexer struct {
	Indices []int
}

// NewIndexerForSubset builds the Indexer that emits, in C-order, the
// elements of sub relative to arrayShape.
func NewIndexerForSubset(sub Subset, arrayShape []int) Indexer {
	strides := Strides(arrayShape)
	d := sub.Dims()
	if d == 0 {
		return Indexer{Indices: []int{0}}
	}
	n := sub.NumElements()
	indices := make([]int, 0, n)
	coord := make([]int, d)
	copy(coord, sub.Start)
	var rec func(dim int, base int)
	rec = func(dim int, base int) {
		if dim == d {
			indices = append(indices, base)
			return
		}
		for i := 0; i < sub.Shape[dim]; i++ {
			rec(dim+1, base+(sub.Start[dim]+i)*strides[dim])
		}
	}
	rec(0, 0)
	return Indexer{Indices: indices}
}

// ExtractArraySubset returns a new ArrayBytes holding the elements selected
// by idx, in emission order. Variable-length output recomputes offsets;
// optional layers recurse (§4.1).
func (ab *ArrayBytes) ExtractArraySubset(idx Indexer, t *DataType) (*ArrayBytes, error) {
	switch t.Kind {
	case Optional:
		if ab.Variant != VariantOptional {
			return nil, Newf(VariantMismatch, "extract_array_subset", "expected Optional variant, got %v", ab.Variant)
		}
		innerOut, err := ab.Inner.ExtractArraySubset(idx, t.Inner)
		if err != nil {
			return nil, err
		}
		mask := make([]byte, len(idx.Indices))
		for i, e := range idx.Indices {
			if e < 0 || e >= len(ab.Mask) {
				return nil, Newf(InvalidIndexer, "extract_array_subset", "index %d out of range [0,%d)", e, len(ab.Mask))
			}
			mask[i] = ab.Mask[e]
		}
		return &ArrayBytes{Variant: VariantOptional, Inner: innerOut, Mask: mask}, nil
	default:
		if w, fixed := t.FixedWidth(); fixed {
			if ab.Variant != VariantFixed {
				return nil, Newf(VariantMismatch, "extract_array_subset", "expected Fixed variant, got %v", ab.Variant)
			}
			out := make([]byte, len(idx.Indices)*w)
			for i, e := range idx.Indices {
				srcStart := e * w
				if srcStart+w > len(ab.Buffer) {
					return nil, Newf(InvalidIndexer, "extract_array_subset", "element %d out of range", e)
				}
				copy(out[i*w:(i+1)*w], ab.Buffer[srcStart:srcStart+w])
			}
			return NewFixed(out), nil
		}
		if ab.Variant != VariantVariable {
			return nil, Newf(VariantMismatch, "extract_array_subset", "expected Variable variant, got %v", ab.Variant)
		}
		buf := make([]byte, 0)
		offsets := make([]int, 1, len(idx.Indices)+1)
		offsets[0] = 0
		for _, e := range idx.Indices {
			if e < 0 || e+1 >= len(ab.Offsets) {
				return nil, Newf(InvalidIndexer, "extract_array_subset", "element %d out of range", e)
			}
			buf = append(buf, ab.Buffer[ab.Offsets[e]:ab.Offsets[e+1]]...)
			offsets = append(offsets, len(buf))
		}
		return NewVariableUnchecked(buf, offsets), nil
	}
}

// IsFillValue reports whether ab is structurally equal to an all-fill chunk
// of n elements of type t and fill value f. For optional variants this
// compares mask uniformity and recurses on the payload (§4.1, §4.7).
func (ab *ArrayBytes) IsFillValue(n int, t *DataType, f FillValue) (bool, error) {
	fill, err := NewFillValueArrayBytes(t, n, f)
	if err != nil {
		return false, err
	}
	return ab.structurallyEqual(fill), nil
}

func (ab *ArrayBytes) structurallyEqual(other *ArrayBytes) bool {
	if ab.Variant != other.Variant {
		return false
	}
	switch ab.Variant {
	case VariantFixed:
		return bytesEqual(ab.Buffer, other.Buffer)
	case VariantVariable:
		return bytesEqual(ab.Buffer, other.Buffer) && intsEqual(ab.Offsets, other.Offsets)
	case VariantOptional:
		return bytesEqual(ab.Mask, other.Mask) && ab.Inner.structurallyEqual(other.Inner)
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func intsEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
