package zarrtypes

// FillValue is F ∈ T (§3). For nested-optional types it carries a
// trailing-byte convention: bytes [inner..] plus a final suffix byte, 0
// meaning "null at this level", nonzero meaning "present, with the
// preceding bytes being the fill for T'".
type FillValue []byte

// isNullSuffix reports whether f's trailing byte marks "null at this
// level"; f must be non-empty.
func isNullSuffix(f FillValue) (bool, error) {
	if len(f) == 0 {
		return false, Newf(InvalidFillValue, "fill_value_suffix", "optional fill value must carry a suffix byte")
	}
	return f[len(f)-1] == 0, nil
}

// zeroFillFor builds the canonical "zero" fill value used to pad the inner
// payload of a null optional slot: recursively an all-null fill through any
// further optional nesting, or the zero-width/zero-valued fill for a
// concrete type.
func zeroFillFor(t *DataType) (FillValue, error) {
	if t.Kind == Optional {
		inner, err := zeroFillFor(t.Inner)
		if err != nil {
			return nil, err
		}
		return append(append(FillValue{}, inner...), 0), nil
	}
	if w, fixed := t.FixedWidth(); fixed {
		return make(FillValue, w), nil
	}
	return FillValue{}, nil
}

// NewFillValueArrayBytes returns an ArrayBytes logically equal to n copies
// of f, per the recursive construction in §3/§4.1. For Optional t with a
// null f, the inner payload is filled with the inner type's zero-fill and
// the mask is all zeros; for a present f, the inner payload is filled with f
// stripped of its trailing suffix byte and the mask is all ones.
func NewFillValueArrayBytes(t *DataType, n int, f FillValue) (*ArrayBytes, error) {
	switch t.Kind {
	case Optional:
		null, err := isNullSuffix(f)
		if err != nil {
			return nil, err
		}
		mask := make([]byte, n)
		if null {
			zf, err := zeroFillFor(t.Inner)
			if err != nil {
				return nil, err
			}
			inner, err := NewFillValueArrayBytes(t.Inner, n, zf)
			if err != nil {
				return nil, err
			}
			return &ArrayBytes{Variant: VariantOptional, Inner: inner, Mask: mask}, nil
		}
		innerFill := f[:len(f)-1]
		inner, err := NewFillValueArrayBytes(t.Inner, n, innerFill)
		if err != nil {
			return nil, err
		}
		for i := range mask {
			mask[i] = 1
		}
		return &ArrayBytes{Variant: VariantOptional, Inner: inner, Mask: mask}, nil
	default:
		if w, fixed := t.FixedWidth(); fixed {
			if len(f) != w {
				return nil, Newf(InvalidFillValue, "new_fill_value", "fill value length %d != type width %d", len(f), w)
			}
			buf := make([]byte, n*w)
			for i := 0; i < n; i++ {
				copy(buf[i*w:(i+1)*w], f)
			}
			return NewFixed(buf), nil
		}
		buf := make([]byte, 0, n*len(f))
		offsets := make([]int, n+1)
		for i := 0; i < n; i++ {
			buf = append(buf, f...)
			offsets[i+1] = len(buf)
		}
		return NewVariableUnchecked(buf, offsets), nil
	}
}

// CopyFillValueInto writes n fill-value elements of type t directly into
// target, avoiding an intermediate ArrayBytes allocation when target
// supports it (§4.7). target is a decode-into sink: for Fixed payloads, a
// byte buffer of length n*w; callers working with DisjointView should use
// DisjointView.WriteRegion with the result of NewFillValueArrayBytes instead
// when a nested/optional target is involved.
func CopyFillValueInto(target []byte, t *DataType, n int, f FillValue) error {
	w, fixed := t.FixedWidth()
	if !fixed {
		return Newf(InvalidFillValue, "copy_fill_value_into", "target buffer fast path requires a fixed-width type")
	}
	if len(f) != w {
		return Newf(InvalidFillValue, "copy_fill_value_into", "fill value length %d != type width %d", len(f), w)
	}
	if len(target) != n*w {
		return Newf(InvalidBytes, "copy_fill_value_into", "target length %d != n*w (%d*%d)", len(target), n, w)
	}
	for i := 0; i < n; i++ {
		copy(target[i*w:(i+1)*w], f)
	}
	return nil
}
