// Package sharding implements the sharded extension (C8, §4.6): a two-level
// chunk grid where a shard stored under one key packs a regular grid of
// inner chunks plus an index of (offset, length) pairs, with a shard-index
// cache keyed by shard store key behind a mutex (§5 "Shared-resource policy").
package sharding

import (
	"encoding/binary"
	"math"

	"github.com/tuskan/zarrengine/zarrtypes"
)

// absentSentinel marks an inner chunk that was never written (absence is a
// first-class value throughout the read path, §4.5.4); it round-trips as
// two all-ones uint64s, matching the zarr v3 sharding codec's convention.
const absentSentinel = math.MaxUint64

// Index is the decoded (offset, length) table for every inner chunk of one
// shard, addressed by the inner chunk's flat C-order position within the
// shard's inner grid.
type Index struct {
	InnerGridShape []int
	Entries        []IndexEntry // len == product(InnerGridShape)
}

// IndexEntry is one inner chunk's byte range within the shard; Present is
// false for an inner chunk that was never stored (§4.5.4 Absent state).
type IndexEntry struct {
	Offset  uint64
	Length  uint64
	Present bool
}

// NewAbsentIndex builds an Index with every inner chunk marked absent, used
// when a shard's grid shape is known but nothing has been written yet.
func NewAbsentIndex(innerGridShape []int) *Index {
	n := 1
	for _, s := range innerGridShape {
		n *= s
	}
	entries := make([]IndexEntry, n)
	return &Index{InnerGridShape: innerGridShape, Entries: entries}
}

// FlatInnerIndex computes the flat C-order position of intraShardIdx within
// InnerGridShape.
func FlatInnerIndex(innerGridShape, intraShardIdx []int) int {
	strides := zarrtypes.Strides(innerGridShape)
	flat := 0
	for i, idx := range intraShardIdx {
		flat += idx * strides[i]
	}
	return flat
}

// EncodeIndex serializes idx as a flat little-endian (offset,length) table,
// one entry per inner chunk in C-order, the shard's trailing index block
// (the zarr v3 default "end" index location).
func EncodeIndex(idx *Index) []byte {
	out := make([]byte, len(idx.Entries)*16)
	for i, e := range idx.Entries {
		off, length := e.Offset, e.Length
		if !e.Present {
			off, length = absentSentinel, absentSentinel
		}
		binary.LittleEndian.PutUint64(out[i*16:i*16+8], off)
		binary.LittleEndian.PutUint64(out[i*16+8:i*16+16], length)
	}
	return out
}

// DecodeIndex parses a trailing index block of the given inner grid shape.
func DecodeIndex(raw []byte, innerGridShape []int) (*Index, error) {
	n := 1
	for _, s := range innerGridShape {
		n *= s
	}
	if len(raw) != n*16 {
		return nil, zarrtypes.Newf(zarrtypes.CodecError, "decode_shard_index", "index block length %d != %d*16", len(raw), n)
	}
	entries := make([]IndexEntry, n)
	for i := range entries {
		off := binary.LittleEndian.Uint64(raw[i*16 : i*16+8])
		length := binary.LittleEndian.Uint64(raw[i*16+8 : i*16+16])
		if off == absentSentinel && length == absentSentinel {
			entries[i] = IndexEntry{Present: false}
			continue
		}
		entries[i] = IndexEntry{Offset: off, Length: length, Present: true}
	}
	return &Index{InnerGridShape: innerGridShape, Entries: entries}, nil
}
