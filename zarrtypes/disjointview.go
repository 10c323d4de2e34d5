package zarrtypes

// DisjointView is a borrowed, exclusive writable window into a shared output
// buffer (§4.5, GLOSSARY "Disjoint view"). Multiple workers each hold a View
// carved so that their windows never overlap; no locking is required on the
// shared Buffer as a result. Carving non-overlapping windows is the caller's
// obligation (§5 "Shared-resource policy").
type DisjointView struct {
	Buffer   []byte
	Shape    []int // shape of the full output buffer, in elements
	ElemSize int
}

// NewDisjointView wraps buffer as the full-extent view of an output with the
// given element shape and element byte size.
func NewDisjointView(buffer []byte, shape []int, elemSize int) *DisjointView {
	return &DisjointView{Buffer: buffer, Shape: shape, ElemSize: elemSize}
}

// WriteRegion copies a contiguous src buffer of shape srcShape into v at
// absolute offset dstOffset, honoring both buffers' strides. It is the
// N-dimensional strided blit used throughout the read path to assemble
// per-chunk results into a shared output (ported from the teacher's copyND
// and generalized to arbitrary rank and element size).
func (v *DisjointView) WriteRegion(dstOffset []int, src []byte, srcShape []int) error {
	if len(dstOffset) != len(v.Shape) || len(srcShape) != len(v.Shape) {
		return Newf(InvalidIndexer, "write_region", "rank mismatch")
	}
	dstStrides := Strides(v.Shape)
	srcStrides := Strides(srcShape)
	CopyND(v.Buffer, dstStrides, dstOffset, src, srcStrides, make([]int, len(srcShape)), srcShape, v.ElemSize)
	return nil
}

// CopyND recursively copies an N-dimensional region from src to dst, both
// described by element strides and per-axis offsets, bulk-copying the
// innermost contiguous dimension where possible.
func CopyND(dst []byte, dstStrides, dstOffset []int, src []byte, srcStrides, srcOffset, copyShape []int, itemSize int) {
	if len(copyShape) == 0 {
		copy(dst[:itemSize], src[:itemSize])
		return
	}

	startSrcIdx := 0
	startDstIdx := 0
	for i := range copyShape {
		startSrcIdx += srcOffset[i] * srcStrides[i]
		startDstIdx += dstOffset[i] * dstStrides[i]
	}

	var iterate func(dim int, curSrc, curDst int)
	iterate = func(dim int, curSrc, curDst int) {
		if dim == len(copyShape)-1 {
			n := copyShape[dim]
			if srcStrides[dim] == 1 && dstStrides[dim] == 1 {
				byteLen := n * itemSize
				srcStart := curSrc * itemSize
				dstStart := curDst * itemSize
				copy(dst[dstStart:dstStart+byteLen], src[srcStart:srcStart+byteLen])
				return
			}
			for i := 0; i < n; i++ {
				srcStart := (curSrc + i*srcStrides[dim]) * itemSize
				dstStart := (curDst + i*dstStrides[dim]) * itemSize
				copy(dst[dstStart:dstStart+itemSize], src[srcStart:srcStart+itemSize])
			}
			return
		}
		for i := 0; i < copyShape[dim]; i++ {
			iterate(dim+1, curSrc+i*srcStrides[dim], curDst+i*dstStrides[dim])
		}
	}
	iterate(0, startSrcIdx, startDstIdx)
}

// NestedOptionalTarget bundles a DisjointView for the innermost data payload
// with one mask byte-slice view per optional nesting level, so a single
// chunk-subset decode can write data and every mask level in place without
// an intermediate ArrayBytes allocation (§4.5.1 step 5b).
type NestedOptionalTarget struct {
	Data  *DisjointView
	Masks []*DisjointView // outermost first
}

// BuildNestedOptionalTarget assembles a NestedOptionalTarget from a data
// view and one mask view per optional level.
func BuildNestedOptionalTarget(data *DisjointView, maskViews []*DisjointView) *NestedOptionalTarget {
	return &NestedOptionalTarget{Data: data, Masks: maskViews}
}

// WriteArrayBytes writes a decoded chunk-subset ArrayBytes into the target,
// recursing through optional layers to populate each mask view and finally
// the data view. t describes ab's type.
func (nt *NestedOptionalTarget) WriteArrayBytes(dstOffset []int, ab *ArrayBytes, srcShape []int, t *DataType, level int) error {
	if t.Kind == Optional {
		if level >= len(nt.Masks) {
			return Newf(InvalidIndexer, "write_array_bytes", "target has fewer mask levels than type nesting depth")
		}
		if err := nt.Masks[level].WriteRegion(dstOffset, ab.Mask, srcShape); err != nil {
			return err
		}
		return nt.WriteArrayBytes(dstOffset, ab.Inner, srcShape, t.Inner, level+1)
	}
	if w, fixed := t.FixedWidth(); fixed {
		_ = w
		return nt.Data.WriteRegion(dstOffset, ab.Buffer, srcShape)
	}
	return Newf(InvalidIndexer, "write_array_bytes", "nested target write requires a fixed-width innermost type")
}
