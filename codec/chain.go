package codec

import (
	"context"
	"sync"

	"github.com/tuskan/zarrengine/store"
	"github.com/tuskan/zarrengine/zarrtypes"
)

// Chain is the composed codec pipeline (C4, §4.3): zero or more
// array-to-array codecs, exactly one array-to-bytes codec (I6), and zero or
// more bytes-to-bytes codecs, plus a fixed cache-insertion point computed
// once at construction time (§4.3.3, "a compile-time property of the
// chain").
type Chain struct {
	ArrayToArray []ArrayToArrayCodec
	ArrayToBytes ArrayToBytesCodec
	BytesToBytes []BytesToBytesCodec

	cacheIndex int // position in the decode-order sequence; -1 if none needed
}

// NewChain validates I6 and computes the chain's cache-insertion point.
func NewChain(ata []ArrayToArrayCodec, a2b ArrayToBytesCodec, btb []BytesToBytesCodec) (*Chain, error) {
	if a2b == nil {
		return nil, zarrtypes.Newf(zarrtypes.UnsupportedConfiguration, "new_chain", "codec chain requires exactly one array-to-bytes codec")
	}
	seq := decodeOrderCapabilities(ata, a2b, btb)
	return &Chain{
		ArrayToArray: ata,
		ArrayToBytes: a2b,
		BytesToBytes: btb,
		cacheIndex:   computeCacheIndex(seq),
	}, nil
}

// representation is the per-stage (shape, type, fill) computed while
// propagating forward through the array-to-array codecs (§4.3.1).
type representation struct {
	shape []int
	t     *zarrtypes.DataType
	fill  zarrtypes.FillValue
}

// propagateForward walks the A→A codecs in order, then the A→B codec,
// returning the full per-stage representation list plus the final bytes
// representation reported by the A→B and B→B stages.
func (c *Chain) propagateForward(shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) ([]representation, BytesRepresentation, error) {
	reps := make([]representation, 0, len(c.ArrayToArray)+1)
	reps = append(reps, representation{shape: shape, t: t, fill: fill})
	cur := reps[0]
	for _, codec := range c.ArrayToArray {
		encShape, encT, encFill, err := codec.EncodedRepresentation(cur.shape, cur.t, cur.fill)
		if err != nil {
			return nil, BytesRepresentation{}, err
		}
		cur = representation{shape: encShape, t: encT, fill: encFill}
		reps = append(reps, cur)
	}
	bytesRep, err := c.ArrayToBytes.EncodedRepresentation(cur.shape, cur.t, cur.fill)
	if err != nil {
		return nil, BytesRepresentation{}, err
	}
	for _, codec := range c.BytesToBytes {
		bytesRep, err = codec.EncodedRepresentation(bytesRep)
		if err != nil {
			return nil, BytesRepresentation{}, err
		}
	}
	return reps, bytesRep, nil
}

// EncodeChunk runs the full pipeline forward: A→A codecs in order, then
// A→B, then B→B codecs in order (§4.3.2).
func (c *Chain) EncodeChunk(ctx context.Context, ab *zarrtypes.ArrayBytes, shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) ([]byte, error) {
	curAB, curShape, curT, curFill := ab, shape, t, fill
	for _, codec := range c.ArrayToArray {
		var err error
		curAB, err = codec.Encode(ctx, curAB, curShape, curT, curFill)
		if err != nil {
			return nil, err
		}
		curShape, curT, curFill, err = codec.EncodedRepresentation(curShape, curT, curFill)
		if err != nil {
			return nil, err
		}
	}
	raw, err := c.ArrayToBytes.Encode(ctx, curAB, curShape, curT, curFill)
	if err != nil {
		return nil, err
	}
	for _, codec := range c.BytesToBytes {
		raw, err = codec.Encode(ctx, raw)
		if err != nil {
			return nil, err
		}
	}
	return raw, nil
}

// DecodeChunk reverses each stage in reverse order, validating the final
// container against (n, T) (§4.3.2).
func (c *Chain) DecodeChunk(ctx context.Context, raw []byte, shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue, n int) (*zarrtypes.ArrayBytes, error) {
	reps, _, err := c.propagateForward(shape, t, fill)
	if err != nil {
		return nil, err
	}
	a2bRep := reps[len(reps)-1]

	// Reverse B→B codecs, tracking each stage's expected decoded-bytes
	// representation from the forward propagation.
	btbReps := make([]BytesRepresentation, len(c.BytesToBytes)+1)
	cur := a2bRep
	rep, err := c.ArrayToBytes.EncodedRepresentation(cur.shape, cur.t, cur.fill)
	if err != nil {
		return nil, err
	}
	btbReps[0] = rep
	for i, codec := range c.BytesToBytes {
		rep, err = codec.EncodedRepresentation(rep)
		if err != nil {
			return nil, err
		}
		btbReps[i+1] = rep
	}

	cursor := raw
	for i := len(c.BytesToBytes) - 1; i >= 0; i-- {
		cursor, err = c.BytesToBytes[i].Decode(ctx, cursor, btbReps[i])
		if err != nil {
			return nil, err
		}
	}

	resultAB, err := c.ArrayToBytes.Decode(ctx, cursor, a2bRep.shape, a2bRep.t, a2bRep.fill)
	if err != nil {
		return nil, err
	}

	for i := len(c.ArrayToArray) - 1; i >= 0; i-- {
		decShape, decT, decFill := reps[i].shape, reps[i].t, reps[i].fill
		resultAB, err = c.ArrayToArray[i].Decode(ctx, resultAB, reps[i+1].shape, reps[i+1].t, reps[i+1].fill)
		if err != nil {
			return nil, err
		}
		_ = decShape
		_ = decT
		_ = decFill
	}

	if err := resultAB.Validate(n, t); err != nil {
		return nil, err
	}
	return resultAB, nil
}

// IsExclusivelyBytesPassthrough reports whether the chain has no
// array-to-array and no bytes-to-bytes codecs, enabling the direct A→B
// decode_into fast path (§4.3.2).
func (c *Chain) IsExclusivelyBytesPassthrough() bool {
	return len(c.ArrayToArray) == 0 && len(c.BytesToBytes) == 0
}

// DecodeChunkInto uses the fast path when the chain is exclusively an A→B
// codec, otherwise materializes via DecodeChunk and copies into target.
func (c *Chain) DecodeChunkInto(ctx context.Context, raw []byte, shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue, n int, target *zarrtypes.DisjointView, dstOffset []int) error {
	if c.IsExclusivelyBytesPassthrough() {
		return c.ArrayToBytes.DecodeInto(ctx, raw, shape, t, fill, target, dstOffset)
	}
	ab, err := c.DecodeChunk(ctx, raw, shape, t, fill, n)
	if err != nil {
		return err
	}
	buf, err := ab.IntoFixed()
	if err != nil {
		return err
	}
	return target.WriteRegion(dstOffset, buf, shape)
}

// chainFullDecoder is the cache-and-materialize default partial decoder
// (§4.3.3, §4.3.4): it fully decodes the chunk once (honoring the
// cache-insertion point by construction — the decode itself already runs
// every required stage exactly once, memoized via sync.Once) and serves
// subsequent PartialDecode calls by in-memory extraction. This is the
// correct and (for every built-in bytes-to-bytes codec here, all of which
// require full materialization) optimal strategy; codecs that do support
// genuine partial reads are instead served by bytesPassthroughPartialDecoder
// below.
type chainFullDecoder struct {
	chain    *Chain
	storage  *StoragePartialDecoder
	shape    []int
	t        *zarrtypes.DataType
	fill     zarrtypes.FillValue
	n        int
	chunkSub zarrtypes.Subset

	once    sync.Once
	decoded *zarrtypes.ArrayBytes
	err     error
}

func (d *chainFullDecoder) full(ctx context.Context) (*zarrtypes.ArrayBytes, error) {
	d.once.Do(func() {
		raw, ok, err := d.storage.FullDecode(ctx)
		if err != nil {
			d.err = err
			return
		}
		if !ok {
			d.decoded, d.err = zarrtypes.NewFillValueArrayBytes(d.t, d.n, d.fill)
			return
		}
		d.decoded, d.err = d.chain.DecodeChunk(ctx, raw, d.shape, d.t, d.fill, d.n)
	})
	return d.decoded, d.err
}

func (d *chainFullDecoder) PartialDecode(ctx context.Context, sub zarrtypes.Subset) (*zarrtypes.ArrayBytes, error) {
	full, err := d.full(ctx)
	if err != nil {
		return nil, err
	}
	idx := zarrtypes.NewIndexerForSubset(sub, d.shape)
	return full.ExtractArraySubset(idx, d.t)
}

// bytesPassthroughPartialDecoder serves the exclusively-bytes-passthrough
// fast path (§4.3.2/§4.3.4): when the chain has no A→A and no B→B codecs
// and the A→B codec itself answers partial array reads, partial decode
// requests go straight to the store's get_partial without ever reading the
// whole chunk.
type bytesPassthroughPartialDecoder struct {
	inner ArrayPartialDecoder
}

func (d *bytesPassthroughPartialDecoder) PartialDecode(ctx context.Context, sub zarrtypes.Subset) (*zarrtypes.ArrayBytes, error) {
	return d.inner.PartialDecode(ctx, sub)
}

// BuildPartialDecoder constructs a chunk-bound ArrayPartialDecoder per
// §4.3.4. chunkSub names the chunk's full on-disk extent in its own
// coordinate frame (Start all zero, Shape = chunk extent).
func (c *Chain) BuildPartialDecoder(st store.Store, key string, chunkShape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) (ArrayPartialDecoder, error) {
	storage := &StoragePartialDecoder{Store: st, Key: key}
	chunkSub := zarrtypes.Subset{Start: make([]int, len(chunkShape)), Shape: chunkShape}
	n := chunkSub.NumElements()

	if c.IsExclusivelyBytesPassthrough() {
		if apd, ok := c.ArrayToBytes.(interface {
			PartialArrayDecoder(st store.Store, key string, shape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) ArrayPartialDecoder
		}); ok && c.ArrayToBytes.DecoderCapability().PartialDecode {
			return &bytesPassthroughPartialDecoder{inner: apd.PartialArrayDecoder(st, key, chunkShape, t, fill)}, nil
		}
	}

	return &chainFullDecoder{
		chain:    c,
		storage:  storage,
		shape:    chunkShape,
		t:        t,
		fill:     fill,
		n:        n,
		chunkSub: chunkSub,
	}, nil
}

// chainReencodePartialEncoder is the cache-and-reencode default partial
// encoder (§4.3.5): a whole chunk is read (or fill-constructed if absent),
// spliced via zarrtypes.UpdateArrayBytes, re-encoded, and written back. This
// is the only partial-encode strategy the chain builds: no built-in codec
// supplies its own partial encoder, and the codecs' EncoderCapability flags
// are not consulted.
type chainReencodePartialEncoder struct {
	chain   *Chain
	storage *StoragePartialEncoder
	decoder ArrayPartialDecoder
	shape   []int
	t       *zarrtypes.DataType
	fill    zarrtypes.FillValue
	n       int
}

func (e *chainReencodePartialEncoder) PartialEncode(ctx context.Context, sub zarrtypes.Subset, replacement *zarrtypes.ArrayBytes) error {
	full := zarrtypes.Subset{Start: make([]int, len(e.shape)), Shape: e.shape}
	current, err := e.decoder.PartialDecode(ctx, full)
	if err != nil {
		return err
	}
	idx := zarrtypes.NewIndexerForSubset(sub, e.shape)
	updated, err := zarrtypes.UpdateArrayBytes(current, idx, replacement, e.t)
	if err != nil {
		return err
	}
	raw, err := e.chain.EncodeChunk(ctx, updated, e.shape, e.t, e.fill)
	if err != nil {
		return err
	}
	return e.storage.FullEncode(ctx, raw)
}

// BuildPartialEncoder constructs a chunk-bound ArrayPartialEncoder per
// §4.3.5.
func (c *Chain) BuildPartialEncoder(st store.Store, key string, chunkShape []int, t *zarrtypes.DataType, fill zarrtypes.FillValue) (ArrayPartialEncoder, error) {
	decoder, err := c.BuildPartialDecoder(st, key, chunkShape, t, fill)
	if err != nil {
		return nil, err
	}
	n := (zarrtypes.Subset{Shape: chunkShape}).NumElements()
	return &chainReencodePartialEncoder{
		chain:   c,
		storage: &StoragePartialEncoder{Store: st, Key: key},
		decoder: decoder,
		shape:   chunkShape,
		t:       t,
		fill:    fill,
		n:       n,
	}, nil
}
