package zarrtypes

// UpdateArrayBytes splices replacement element values into current at the
// flat positions named by idx, returning the updated container. It never
// mutates current or replacement in place. current and replacement must
// both validate against t; idx.Indices addresses current's element space
// and replacement supplies one element per entry of idx, in order.
//
// This is the identity when replacement equals current's existing values at
// those positions (P4), since it is a pure splice: unaddressed elements are
// copied through unchanged and addressed elements are overwritten with
// exactly the supplied replacement value.
func UpdateArrayBytes(current *ArrayBytes, idx Indexer, replacement *ArrayBytes, t *DataType) (*ArrayBytes, error) {
	switch t.Kind {
	case Optional:
		if current.Variant != VariantOptional || replacement.Variant != VariantOptional {
			return nil, Newf(VariantMismatch, "update_array_bytes", "expected Optional variant on both sides")
		}
		newInner, err := UpdateArrayBytes(current.Inner, idx, replacement.Inner, t.Inner)
		if err != nil {
			return nil, err
		}
		newMask := append([]byte(nil), current.Mask...)
		for i, e := range idx.Indices {
			if e < 0 || e >= len(newMask) {
				return nil, Newf(InvalidIndexer, "update_array_bytes", "index %d out of range", e)
			}
			newMask[e] = replacement.Mask[i]
		}
		return &ArrayBytes{Variant: VariantOptional, Inner: newInner, Mask: newMask}, nil
	default:
		if w, fixed := t.FixedWidth(); fixed {
			if current.Variant != VariantFixed || replacement.Variant != VariantFixed {
				return nil, Newf(VariantMismatch, "update_array_bytes", "expected Fixed variant on both sides")
			}
			buf := append([]byte(nil), current.Buffer...)
			for i, e := range idx.Indices {
				dst := e * w
				if dst+w > len(buf) {
					return nil, Newf(InvalidIndexer, "update_array_bytes", "index %d out of range", e)
				}
				copy(buf[dst:dst+w], replacement.Buffer[i*w:(i+1)*w])
			}
			return NewFixed(buf), nil
		}
		return updateBytesVlenIndexer(current, idx, replacement)
	}
}

// updateBytesVlenIndexer rebuilds the variable-length buffer and offsets
// with the replacement elements spliced in at their linearised positions
// (§4.5.3 "update_bytes_vlen_indexer").
func updateBytesVlenIndexer(current *ArrayBytes, idx Indexer, replacement *ArrayBytes) (*ArrayBytes, error) {
	if current.Variant != VariantVariable || replacement.Variant != VariantVariable {
		return nil, Newf(VariantMismatch, "update_bytes_vlen_indexer", "expected Variable variant on both sides")
	}
	n := len(current.Offsets) - 1
	replacementAt := make(map[int]int, len(idx.Indices))
	for i, e := range idx.Indices {
		replacementAt[e] = i
	}

	buf := make([]byte, 0, len(current.Buffer))
	offsets := make([]int, n+1)
	for e := 0; e < n; e++ {
		if ri, ok := replacementAt[e]; ok {
			buf = append(buf, replacement.Buffer[replacement.Offsets[ri]:replacement.Offsets[ri+1]]...)
		} else {
			buf = append(buf, current.Buffer[current.Offsets[e]:current.Offsets[e+1]]...)
		}
		offsets[e+1] = len(buf)
	}
	return NewVariableUnchecked(buf, offsets), nil
}

// UpdateBytesVlenArraySubset is the array-subset-shaped sibling of
// UpdateArrayBytes's variable-length path: replacement holds, in C-order,
// the elements of sub; current is the full chunk payload for a chunk of
// shape chunkShape.
func UpdateBytesVlenArraySubset(current *ArrayBytes, sub Subset, chunkShape []int, replacement *ArrayBytes) (*ArrayBytes, error) {
	idx := NewIndexerForSubset(sub, chunkShape)
	return updateBytesVlenIndexer(current, idx, replacement)
}
