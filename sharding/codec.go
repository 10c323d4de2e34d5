package sharding

import (
	"context"

	"github.com/tuskan/zarrengine/codec"
	"github.com/tuskan/zarrengine/zarrtypes"
)

// Codec is the array-to-bytes codec for a sharded chunk (§4.6): a shard's
// decoded ArrayBytes covers the shardShape passed to Encode/Decode, laid out
// as a regular grid of InnerChunkShape inner chunks, each independently
// encoded through InnerChain and packed one after another, followed by the
// trailing index (§4.6, "a shard stored under one key packs a grid of inner
// chunks ... followed by an index"). Encode writes no bytes for an inner
// chunk equal to the fill value and leaves its index entry absent.
type Codec struct {
	InnerChunkShape []int
	InnerChain      *codec.Chain
}

func (c Codec) Identifier() string { return "sharding_indexed" }

func (c Codec) Configuration() (map[string]any, bool) {
	return map[string]any{"chunk_shape": append([]int(nil), c.InnerChunkShape...)}, true
}

func (Codec) DecoderCapability() codec.Capability {
	return codec.Capability{PartialRead: true, PartialDecode: true}
}

func (Codec) EncoderCapability() codec.Capability { return codec.Capability{PartialEncode: false} }

func (Codec) RecommendedConcurrency(codec.BytesRepresentation) (int, int) { return 1, 4 }

// innerGridShape returns, per axis, how many inner chunks tile shardShape
// (I5: partial-decode granularity, here the inner chunk extent, must be a
// divisor of the chunk/shard extent along each axis).
func (c Codec) innerGridShape(shardShape []int) []int {
	g := make([]int, len(shardShape))
	for i := range shardShape {
		g[i] = (shardShape[i] + c.InnerChunkShape[i] - 1) / c.InnerChunkShape[i]
	}
	return g
}

func (c Codec) Encode(ctx context.Context, ab *zarrtypes.ArrayBytes, shardShape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) ([]byte, error) {
	innerGrid := c.innerGridShape(shardShape)
	n := 1
	for _, g := range innerGrid {
		n *= g
	}
	entries := make([]IndexEntry, n)
	var payload []byte

	err := eachGridIndex(innerGrid, func(inner []int) error {
		sub := innerSubset(inner, c.InnerChunkShape, shardShape)
		idx := zarrtypes.NewIndexerForSubset(sub, shardShape)
		elemAB, err := ab.ExtractArraySubset(idx, t)
		if err != nil {
			return err
		}
		if isFill, ferr := elemAB.IsFillValue(sub.NumElements(), t, fill); ferr == nil && isFill {
			return nil
		}
		encoded, err := c.InnerChain.EncodeChunk(ctx, elemAB, sub.Shape, t, fill)
		if err != nil {
			return err
		}
		flat := FlatInnerIndex(innerGrid, inner)
		entries[flat] = IndexEntry{Offset: uint64(len(payload)), Length: uint64(len(encoded)), Present: true}
		payload = append(payload, encoded...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	idx := &Index{InnerGridShape: innerGrid, Entries: entries}
	return append(payload, EncodeIndex(idx)...), nil
}

func (c Codec) Decode(ctx context.Context, raw []byte, shardShape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) (*zarrtypes.ArrayBytes, error) {
	innerGrid := c.innerGridShape(shardShape)
	n := 1
	for _, g := range innerGrid {
		n *= g
	}
	indexLen := n * 16
	if len(raw) < indexLen {
		return nil, zarrtypes.Newf(zarrtypes.CodecError, "sharding_decode", "shard shorter than its index block")
	}
	idx, err := DecodeIndex(raw[len(raw)-indexLen:], innerGrid)
	if err != nil {
		return nil, err
	}

	shardSub := zarrtypes.Subset{Start: make([]int, len(shardShape)), Shape: shardShape}
	full, err := zarrtypes.NewFillValueArrayBytes(t, shardSub.NumElements(), fill)
	if err != nil {
		return nil, err
	}

	err = eachGridIndex(innerGrid, func(inner []int) error {
		flat := FlatInnerIndex(innerGrid, inner)
		e := idx.Entries[flat]
		if !e.Present {
			return nil
		}
		sub := innerSubset(inner, c.InnerChunkShape, shardShape)
		encoded := raw[e.Offset : e.Offset+e.Length]
		decoded, err := c.InnerChain.DecodeChunk(ctx, encoded, sub.Shape, t, fill, sub.NumElements())
		if err != nil {
			return err
		}
		updIdx := zarrtypes.NewIndexerForSubset(sub, shardShape)
		full, err = zarrtypes.UpdateArrayBytes(full, updIdx, decoded, t)
		return err
	})
	if err != nil {
		return nil, err
	}
	return full, nil
}

func (c Codec) DecodeInto(ctx context.Context, raw []byte, shardShape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue, target *zarrtypes.DisjointView, dstOffset []int) error {
	ab, err := c.Decode(ctx, raw, shardShape, t, fill)
	if err != nil {
		return err
	}
	buf, err := ab.IntoFixed()
	if err != nil {
		return err
	}
	return target.WriteRegion(dstOffset, buf, shardShape)
}

func (c Codec) EncodedRepresentation(shardShape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) (codec.BytesRepresentation, error) {
	return codec.BytesRepresentation{Exact: false, Length: -1}, nil
}

func innerSubset(inner, innerShape, shardShape []int) zarrtypes.Subset {
	start := make([]int, len(inner))
	shape := make([]int, len(inner))
	for i := range inner {
		start[i] = inner[i] * innerShape[i]
		shape[i] = innerShape[i]
		if start[i]+shape[i] > shardShape[i] {
			shape[i] = shardShape[i] - start[i]
		}
	}
	return zarrtypes.Subset{Start: start, Shape: shape}
}

// eachGridIndex calls fn once per C-order index into a grid of the given
// shape.
func eachGridIndex(shape []int, fn func(idx []int) error) error {
	d := len(shape)
	if d == 0 {
		return fn(nil)
	}
	idx := make([]int, d)
	for {
		if err := fn(append([]int(nil), idx...)); err != nil {
			return err
		}
		axis := d - 1
		for ; axis >= 0; axis-- {
			idx[axis]++
			if idx[axis] < shape[axis] {
				break
			}
			idx[axis] = 0
		}
		if axis < 0 {
			return nil
		}
	}
}

var _ codec.ArrayToBytesCodec = Codec{}
