package zarr

import (
	"github.com/tuskan/zarrengine/zarrtypes"
)

// ChunkGrid is the C6 partition of an array into chunks (GLOSSARY "Chunk
// grid"). A regular grid gives one extent per axis shared by every chunk
// index along that axis (edge chunks may overhang the array shape, I1); a
// rectilinear grid instead names the extent of each individual chunk along
// an axis, so chunk sizes vary.
type ChunkGrid struct {
	ArrayShape []int
	// Regular holds the per-axis chunk extent for a regular grid; nil for a
	// rectilinear grid.
	Regular []int
	// Rectilinear holds, per axis, the cumulative chunk boundaries
	// (Rectilinear[axis][0]==0, strictly increasing, last entry ==
	// ArrayShape[axis]); nil for a regular grid.
	Rectilinear [][]int
}

// NewRegularGrid builds a regular chunk grid; chunkShape entries must be
// positive.
func NewRegularGrid(arrayShape, chunkShape []int) (*ChunkGrid, error) {
	if len(arrayShape) != len(chunkShape) {
		return nil, zarrtypes.Newf(zarrtypes.InvalidIndexer, "new_regular_grid", "shape has %d dims, chunk shape has %d", len(arrayShape), len(chunkShape))
	}
	for i, c := range chunkShape {
		if c <= 0 {
			return nil, zarrtypes.Newf(zarrtypes.InvalidIndexer, "new_regular_grid", "chunk extent at dim %d must be positive, got %d", i, c)
		}
	}
	return &ChunkGrid{ArrayShape: append([]int(nil), arrayShape...), Regular: append([]int(nil), chunkShape...)}, nil
}

// NewRectilinearGrid builds a rectilinear grid from, per axis, the list of
// individual chunk extents (not cumulative boundaries); boundaries are
// derived and validated to sum to the array shape along that axis.
func NewRectilinearGrid(arrayShape []int, perAxisExtents [][]int) (*ChunkGrid, error) {
	if len(arrayShape) != len(perAxisExtents) {
		return nil, zarrtypes.Newf(zarrtypes.InvalidIndexer, "new_rectilinear_grid", "shape has %d dims, extents has %d", len(arrayShape), len(perAxisExtents))
	}
	bounds := make([][]int, len(arrayShape))
	for axis, extents := range perAxisExtents {
		b := make([]int, len(extents)+1)
		for i, e := range extents {
			if e <= 0 {
				return nil, zarrtypes.Newf(zarrtypes.InvalidIndexer, "new_rectilinear_grid", "chunk extent at dim %d, chunk %d must be positive", axis, i)
			}
			b[i+1] = b[i] + e
		}
		if b[len(b)-1] != arrayShape[axis] {
			return nil, zarrtypes.Newf(zarrtypes.InvalidIndexer, "new_rectilinear_grid", "dim %d chunk extents sum to %d, want %d (I1)", axis, b[len(b)-1], arrayShape[axis])
		}
		bounds[axis] = b
	}
	return &ChunkGrid{ArrayShape: append([]int(nil), arrayShape...), Rectilinear: bounds}, nil
}

// Dims reports the dimensionality of the grid.
func (g *ChunkGrid) Dims() int { return len(g.ArrayShape) }

// IsRegular reports whether g is a regular grid.
func (g *ChunkGrid) IsRegular() bool { return g.Regular != nil }

// GridShape returns, per axis, the number of chunks along that axis.
func (g *ChunkGrid) GridShape() []int {
	shape := make([]int, g.Dims())
	for axis := range shape {
		shape[axis] = g.axisChunkCount(axis)
	}
	return shape
}

func (g *ChunkGrid) axisChunkCount(axis int) int {
	if g.IsRegular() {
		extent := g.Regular[axis]
		total := g.ArrayShape[axis]
		return (total + extent - 1) / extent
	}
	return len(g.Rectilinear[axis]) - 1
}

// ChunkOrigin returns the absolute start coordinates of chunk index c.
func (g *ChunkGrid) ChunkOrigin(c []int) []int {
	origin := make([]int, g.Dims())
	for axis, idx := range c {
		if g.IsRegular() {
			origin[axis] = idx * g.Regular[axis]
		} else {
			origin[axis] = g.Rectilinear[axis][idx]
		}
	}
	return origin
}

// ChunkShape returns the on-disk extent of chunk index c (the grid-declared
// extent; callers needing the array-boundary-trimmed extent should
// intersect with the array shape themselves, per §3 "on-disk chunks always
// have the grid-declared extent").
func (g *ChunkGrid) ChunkShape(c []int) []int {
	shape := make([]int, g.Dims())
	for axis, idx := range c {
		if g.IsRegular() {
			shape[axis] = g.Regular[axis]
		} else {
			shape[axis] = g.Rectilinear[axis][idx+1] - g.Rectilinear[axis][idx]
		}
	}
	return shape
}

// ChunkExtentSubset returns the chunk's extent as an absolute Subset
// (origin + grid-declared shape, not trimmed to the array boundary).
func (g *ChunkGrid) ChunkExtentSubset(c []int) zarrtypes.Subset {
	return zarrtypes.Subset{Start: g.ChunkOrigin(c), Shape: g.ChunkShape(c)}
}

// ChunksInArraySubset implements chunks_in_array_subset (§4.4): the range of
// chunk indices whose extents intersect A. Returns the per-axis inclusive
// [lo,hi] chunk index bounds; an empty result (lo>hi on some axis) means no
// chunk intersects A.
func (g *ChunkGrid) ChunksInArraySubset(a zarrtypes.Subset) (lo, hi []int) {
	d := g.Dims()
	lo = make([]int, d)
	hi = make([]int, d)
	end := a.End()
	for axis := 0; axis < d; axis++ {
		if a.Shape[axis] == 0 {
			lo[axis], hi[axis] = 0, -1
			continue
		}
		lo[axis] = g.chunkIndexContaining(axis, a.Start[axis])
		hi[axis] = g.chunkIndexContaining(axis, end[axis]-1)
	}
	return lo, hi
}

func (g *ChunkGrid) chunkIndexContaining(axis, pos int) int {
	if g.IsRegular() {
		return pos / g.Regular[axis]
	}
	bounds := g.Rectilinear[axis]
	// bounds is small (chunk count along one axis); linear scan is fine and
	// keeps this dependency-free.
	for i := 0; i < len(bounds)-1; i++ {
		if pos >= bounds[i] && pos < bounds[i+1] {
			return i
		}
	}
	return len(bounds) - 2
}

// EachChunkInRange calls fn once per chunk index in the inclusive [lo,hi]
// range, in C-order, stopping at the first error.
func EachChunkInRange(lo, hi []int, fn func(c []int) error) error {
	d := len(lo)
	if d == 0 {
		return fn([]int{})
	}
	for i := range lo {
		if hi[i] < lo[i] {
			return nil
		}
	}
	idx := append([]int(nil), lo...)
	for {
		if err := fn(append([]int(nil), idx...)); err != nil {
			return err
		}
		axis := d - 1
		for ; axis >= 0; axis-- {
			idx[axis]++
			if idx[axis] <= hi[axis] {
				break
			}
			idx[axis] = lo[axis]
		}
		if axis < 0 {
			return nil
		}
	}
}

// ChunkSubsetInArraySubset returns, for chunk c, its absolute overlap with
// A (chunk_subset(c) ∩ A in absolute coordinates, §4.4). ok=false means no
// overlap (should not occur for a chunk returned by ChunksInArraySubset when
// A is fully in-bounds, but out-of-bounds regions of A are handled by the
// caller mapping them to fill-value writes, per §4.4).
func (g *ChunkGrid) ChunkSubsetInArraySubset(c []int, a zarrtypes.Subset) (zarrtypes.Subset, bool) {
	chunkExtent := g.ChunkExtentSubset(c)
	return chunkExtent.Intersect(a)
}
