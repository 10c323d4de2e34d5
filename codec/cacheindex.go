package codec

// stageCapability is the subset of a codec's decode-order capability the
// cache-insertion policy needs.
type stageCapability struct {
	PartialRead   bool
	PartialDecode bool
}

// decodeOrderCapabilities builds the capability sequence in *decode order*:
// bytes-to-bytes reversed, then array-to-bytes, then array-to-array
// reversed (§4.3.3).
func decodeOrderCapabilities(ata []ArrayToArrayCodec, a2b ArrayToBytesCodec, btb []BytesToBytesCodec) []stageCapability {
	seq := make([]stageCapability, 0, len(ata)+len(btb)+1)
	for i := len(btb) - 1; i >= 0; i-- {
		c := btb[i].DecoderCapability()
		seq = append(seq, stageCapability{PartialRead: c.PartialRead, PartialDecode: c.PartialDecode})
	}
	c := a2b.DecoderCapability()
	seq = append(seq, stageCapability{PartialRead: c.PartialRead, PartialDecode: c.PartialDecode})
	for i := len(ata) - 1; i >= 0; i-- {
		c := ata[i].DecoderCapability()
		seq = append(seq, stageCapability{PartialRead: c.PartialRead, PartialDecode: c.PartialDecode})
	}
	return seq
}

// computeCacheIndex implements §4.3.3's cache-insertion policy: tracking,
// across the decode-order sequence, "must" (one past the last codec whose
// PartialDecode=false) and "should" (the position of the last codec whose
// PartialRead=false), cacheIndex = max(must, should) when both are present,
// else whichever is present. Returns -1 when no codec requires a cache
// (every stage supports both partial_read and partial_decode).
func computeCacheIndex(seq []stageCapability) int {
	must := -1
	should := -1
	for i, s := range seq {
		if !s.PartialDecode {
			must = i + 1
		}
		if !s.PartialRead {
			should = i
		}
	}
	switch {
	case must >= 0 && should >= 0:
		if must > should {
			return must
		}
		return should
	case must >= 0:
		return must
	case should >= 0:
		return should
	default:
		return -1
	}
}
