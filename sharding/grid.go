package sharding

// SubchunkGrid is the inner chunk grid spanning the whole array (§4.6
// "subchunk_grid"): ArrayShape / InnerChunkShape gives the subchunk grid
// shape, and ShardShape / InnerChunkShape gives how many inner chunks sit
// inside one shard along each axis.
type SubchunkGrid struct {
	ArrayShape      []int
	ShardShape      []int
	InnerChunkShape []int
}

// GridShape returns, per axis, the total number of subchunks tiling the
// array (§8 scenario 4: "subchunk_grid.grid_shape").
func (g SubchunkGrid) GridShape() []int {
	shape := make([]int, len(g.ArrayShape))
	for i := range shape {
		shape[i] = (g.ArrayShape[i] + g.InnerChunkShape[i] - 1) / g.InnerChunkShape[i]
	}
	return shape
}

// Resolve maps a global subchunk index to its (shard index, intra-shard
// inner-chunk index) pair.
func (g SubchunkGrid) Resolve(subchunkIdx []int) (shardIdx, intraShardIdx []int) {
	d := len(subchunkIdx)
	shardIdx = make([]int, d)
	intraShardIdx = make([]int, d)
	for axis := 0; axis < d; axis++ {
		innerPerShard := g.ShardShape[axis] / g.InnerChunkShape[axis]
		shardIdx[axis] = subchunkIdx[axis] / innerPerShard
		intraShardIdx[axis] = subchunkIdx[axis] % innerPerShard
	}
	return shardIdx, intraShardIdx
}

// ShardOrigin returns the absolute array-coordinate origin of shard index
// shardIdx.
func (g SubchunkGrid) ShardOrigin(shardIdx []int) []int {
	origin := make([]int, len(shardIdx))
	for axis, idx := range shardIdx {
		origin[axis] = idx * g.ShardShape[axis]
	}
	return origin
}
