package zarr

import (
	"context"
	"reflect"
	"testing"

	"github.com/tuskan/zarrengine/codec"
	"github.com/tuskan/zarrengine/sharding"
	"github.com/tuskan/zarrengine/store"
	"github.com/tuskan/zarrengine/zarrtypes"
)

func plainChain(t *testing.T) *codec.Chain {
	t.Helper()
	c, err := codec.NewChain(nil, codec.BytesCodec{}, nil)
	if err != nil {
		t.Fatalf("codec.NewChain: %v", err)
	}
	return c
}

// Scenario 1 (§8): a dense 4x4 uint8 array, chunks 2x2, fill 0. Writing only
// the region covered by chunk (0,0) must leave every other chunk, including
// (1,1), absent in the store — and the full-array read reflects the write
// exactly with fill elsewhere.
func TestScenario1_DenseUint8_PartialWrite(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	t8 := zarrtypes.Fixed(zarrtypes.Uint8)
	grid, err := NewRegularGrid([]int{4, 4}, []int{2, 2})
	if err != nil {
		t.Fatalf("NewRegularGrid: %v", err)
	}
	arr, err := NewArray(st, "arr", []int{4, 4}, grid, t8, zarrtypes.FillValue{0}, plainChain(t))
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}

	write := zarrtypes.NewFixed([]byte{9, 8, 7, 6})
	writeSub := zarrtypes.Subset{Start: []int{0, 0}, Shape: []int{2, 2}}
	if err := arr.StoreArraySubset(ctx, writeSub, write, CodecOptions{}); err != nil {
		t.Fatalf("StoreArraySubset: %v", err)
	}

	if _, ok, err := st.Get(ctx, arr.ChunkKey([]int{1, 1})); err != nil || ok {
		t.Fatalf("chunk (1,1) should be absent: ok=%v err=%v", ok, err)
	}

	full := zarrtypes.Subset{Start: []int{0, 0}, Shape: []int{4, 4}}
	got, err := arr.RetrieveArraySubset(ctx, full, CodecOptions{})
	if err != nil {
		t.Fatalf("RetrieveArraySubset: %v", err)
	}
	buf, err := got.IntoFixed()
	if err != nil {
		t.Fatalf("IntoFixed: %v", err)
	}
	want := []byte{
		9, 8, 0, 0,
		7, 6, 0, 0,
		0, 0, 0, 0,
		0, 0, 0, 0,
	}
	if !reflect.DeepEqual(buf, want) {
		t.Errorf("got %v, want %v", buf, want)
	}
}

// Scenario 2 (§8): variable-length strings, 4x4, chunks 2x2. A full-array
// write round-trips to the same strings in row-major order.
func TestScenario2_VariableLengthStrings(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	tstr := zarrtypes.VariableString()
	grid, err := NewRegularGrid([]int{4, 4}, []int{2, 2})
	if err != nil {
		t.Fatalf("NewRegularGrid: %v", err)
	}
	arr, err := NewArray(st, "arr", []int{4, 4}, grid, tstr, zarrtypes.FillValue{}, plainChain(t))
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}

	words := []string{
		"aa", "bbb", "c", "dddd",
		"ee", "f", "ggg", "h",
		"ii", "jj", "k", "llll",
		"m", "nn", "ooo", "p",
	}
	var buf []byte
	offsets := make([]int, 0, len(words)+1)
	offsets = append(offsets, 0)
	for _, w := range words {
		buf = append(buf, w...)
		offsets = append(offsets, len(buf))
	}
	ab, err := zarrtypes.NewVariable(buf, offsets)
	if err != nil {
		t.Fatalf("NewVariable: %v", err)
	}
	full := zarrtypes.Subset{Start: []int{0, 0}, Shape: []int{4, 4}}
	if err := arr.StoreArraySubset(ctx, full, ab, CodecOptions{}); err != nil {
		t.Fatalf("StoreArraySubset: %v", err)
	}

	got, err := arr.RetrieveArraySubset(ctx, full, CodecOptions{})
	if err != nil {
		t.Fatalf("RetrieveArraySubset: %v", err)
	}
	gotBuf, gotOffsets, err := got.IntoVariable()
	if err != nil {
		t.Fatalf("IntoVariable: %v", err)
	}
	for i := range words {
		if gotOffsets[i] > gotOffsets[i+1] {
			t.Fatalf("offsets not monotone at %d: %v", i, gotOffsets)
		}
		s := string(gotBuf[gotOffsets[i]:gotOffsets[i+1]])
		if s != words[i] {
			t.Errorf("word %d = %q, want %q", i, s, words[i])
		}
	}
}

// Scenario 3 (§8): Option<uint8>, 4x4, chunks 2x2, fill = null. A written
// Some(0) must read back present with data 0, distinguishable from an
// untouched chunk's null fill.
func TestScenario3_OptionalUint8_SomeZeroVsNull(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	inner := zarrtypes.Fixed(zarrtypes.Uint8)
	topt := zarrtypes.MakeOptional(inner)
	grid, err := NewRegularGrid([]int{4, 4}, []int{2, 2})
	if err != nil {
		t.Fatalf("NewRegularGrid: %v", err)
	}
	chain, err := codec.NewChain(nil, codec.OptionalCodec{Inner: codec.BytesCodec{}}, nil)
	if err != nil {
		t.Fatalf("codec.NewChain: %v", err)
	}
	fillNull := zarrtypes.FillValue{0} // suffix byte 0: null
	arr, err := NewArray(st, "arr", []int{4, 4}, grid, topt, fillNull, chain)
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}

	// Chunk (0,0): [Some(0), null, Some(5), null] in row-major order.
	innerAB := zarrtypes.NewFixed([]byte{0, 0, 5, 0})
	mask := []byte{1, 0, 1, 0}
	write, err := zarrtypes.WithOptionalMask(innerAB, mask, inner)
	if err != nil {
		t.Fatalf("WithOptionalMask: %v", err)
	}
	writeSub := zarrtypes.Subset{Start: []int{0, 0}, Shape: []int{2, 2}}
	if err := arr.StoreArraySubset(ctx, writeSub, write, CodecOptions{}); err != nil {
		t.Fatalf("StoreArraySubset: %v", err)
	}

	full := zarrtypes.Subset{Start: []int{0, 0}, Shape: []int{4, 4}}
	got, err := arr.RetrieveArraySubset(ctx, full, CodecOptions{})
	if err != nil {
		t.Fatalf("RetrieveArraySubset: %v", err)
	}
	gotInner, gotMask, err := got.IntoOptional()
	if err != nil {
		t.Fatalf("IntoOptional: %v", err)
	}
	gotBuf, err := gotInner.IntoFixed()
	if err != nil {
		t.Fatalf("IntoFixed: %v", err)
	}

	// Position (0,0): Some(0) -- present, data zero.
	if gotMask[0] != 1 || gotBuf[0] != 0 {
		t.Errorf("(0,0): mask=%d data=%d, want present with data 0", gotMask[0], gotBuf[0])
	}
	// Position (0,1): null.
	if gotMask[1] != 0 {
		t.Errorf("(0,1): mask=%d, want null", gotMask[1])
	}
	// Position (1,0): Some(5), at flat index 4 of the 4x4 result.
	if gotMask[4] != 1 || gotBuf[4] != 5 {
		t.Errorf("(1,0): mask=%d data=%d, want present with data 5", gotMask[4], gotBuf[4])
	}
	// Chunk (1,1), never written: entirely null.
	if gotMask[10] != 0 || gotMask[15] != 0 {
		t.Errorf("untouched chunk (1,1) not entirely null: mask=%v", gotMask[8:16])
	}
}

// Scenario 4 (§8): an 8x8 uint16 array sharded into 4x4 shards of 2x2 inner
// chunks. Reading a subchunk through sharding.RetrieveSubchunk must match
// the equivalent region read via the array's own scheduler, and the shard
// index cache grows by exactly one entry the first time a shard is touched
// and by zero on a repeat.
func TestScenario4_ShardedUint16_SubchunkAccessAndIndexCache(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	t16 := zarrtypes.Fixed(zarrtypes.Uint16)
	arrayShape := []int{8, 8}
	shardShape := []int{4, 4}
	innerChunkShape := []int{2, 2}

	grid, err := NewRegularGrid(arrayShape, shardShape)
	if err != nil {
		t.Fatalf("NewRegularGrid: %v", err)
	}
	innerChain := plainChain(t)
	cache, err := sharding.NewIndexCache(8)
	if err != nil {
		t.Fatalf("NewIndexCache: %v", err)
	}
	fill := zarrtypes.FillValue{0, 0}
	arr, err := NewArray(st, "arr", arrayShape, grid, t16, fill, innerChain)
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}
	arr.Shard = &ShardConfig{InnerChunkShape: innerChunkShape, InnerChain: innerChain, IndexCache: cache}

	n := arrayShape[0] * arrayShape[1]
	buf := make([]byte, n*2)
	for i := 0; i < n; i++ {
		buf[i*2] = byte(i)
		buf[i*2+1] = byte(i >> 8)
	}
	fullAB := zarrtypes.NewFixed(buf)
	full := zarrtypes.Subset{Start: []int{0, 0}, Shape: arrayShape}
	if err := arr.StoreArraySubset(ctx, full, fullAB, CodecOptions{}); err != nil {
		t.Fatalf("StoreArraySubset: %v", err)
	}

	// Region at rows[0:2] cols[2:4]: lies entirely within shard (0,0), inner
	// chunk index (0,1).
	region := zarrtypes.Subset{Start: []int{0, 2}, Shape: []int{2, 2}}
	viaArray, err := arr.RetrieveArraySubset(ctx, region, CodecOptions{})
	if err != nil {
		t.Fatalf("RetrieveArraySubset: %v", err)
	}
	viaArrayBuf, err := viaArray.IntoFixed()
	if err != nil {
		t.Fatalf("IntoFixed: %v", err)
	}

	if got := cache.Len(); got != 0 {
		t.Fatalf("cache.Len() before any RetrieveSubchunk call = %d, want 0", got)
	}

	shardKey := arr.ChunkKey([]int{0, 0})
	viaSubchunk, err := sharding.RetrieveSubchunk(ctx, st, cache, shardKey, shardShape, innerChunkShape, []int{0, 1}, t16, fill, innerChain)
	if err != nil {
		t.Fatalf("RetrieveSubchunk: %v", err)
	}
	if got := cache.Len(); got != 1 {
		t.Errorf("cache.Len() after first RetrieveSubchunk = %d, want 1", got)
	}

	if _, err := sharding.RetrieveSubchunk(ctx, st, cache, shardKey, shardShape, innerChunkShape, []int{0, 1}, t16, fill, innerChain); err != nil {
		t.Fatalf("RetrieveSubchunk (repeat): %v", err)
	}
	if got := cache.Len(); got != 1 {
		t.Errorf("cache.Len() after repeat RetrieveSubchunk = %d, want 1 (no growth)", got)
	}

	viaSubchunkBuf, err := viaSubchunk.IntoFixed()
	if err != nil {
		t.Fatalf("IntoFixed: %v", err)
	}
	if !reflect.DeepEqual(viaArrayBuf, viaSubchunkBuf) {
		t.Errorf("RetrieveArraySubset = %v, RetrieveSubchunk = %v, want equal", viaArrayBuf, viaSubchunkBuf)
	}
}

// Scenario 6 (§8): a partial write into an until-then-absent chunk performs
// a read-modify-write against the fill value, leaving every untouched
// element of that chunk at fill and only the written element changed.
func TestScenario6_PartialWriteReadModifyWrite(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	t8 := zarrtypes.Fixed(zarrtypes.Uint8)
	grid, err := NewRegularGrid([]int{4, 4}, []int{2, 2})
	if err != nil {
		t.Fatalf("NewRegularGrid: %v", err)
	}
	arr, err := NewArray(st, "arr", []int{4, 4}, grid, t8, zarrtypes.FillValue{99}, plainChain(t))
	if err != nil {
		t.Fatalf("NewArray: %v", err)
	}

	if _, ok, _ := st.Get(ctx, arr.ChunkKey([]int{0, 0})); ok {
		t.Fatal("chunk (0,0) should start absent")
	}

	write := zarrtypes.NewFixed([]byte{42})
	writeSub := zarrtypes.Subset{Start: []int{1, 1}, Shape: []int{1, 1}}
	if err := arr.StoreArraySubset(ctx, writeSub, write, CodecOptions{}); err != nil {
		t.Fatalf("StoreArraySubset: %v", err)
	}

	chunkSub := zarrtypes.Subset{Start: []int{0, 0}, Shape: []int{2, 2}}
	got, err := arr.RetrieveArraySubset(ctx, chunkSub, CodecOptions{})
	if err != nil {
		t.Fatalf("RetrieveArraySubset: %v", err)
	}
	buf, err := got.IntoFixed()
	if err != nil {
		t.Fatalf("IntoFixed: %v", err)
	}
	want := []byte{99, 99, 99, 42}
	if !reflect.DeepEqual(buf, want) {
		t.Errorf("got %v, want %v (fill 99 everywhere but the written element)", buf, want)
	}
}
