package zarrtypes

// Subset is a hyper-rectangular region of an array, given by a per-dimension
// start and shape (§3, GLOSSARY).
type Subset struct {
	Start []int
	Shape []int
}

// NewSubset validates dims match and shape entries are non-negative.
func NewSubset(start, shape []int) (Subset, error) {
	if len(start) != len(shape) {
		return Subset{}, Newf(InvalidIndexer, "new_subset", "start has %d dims, shape has %d", len(start), len(shape))
	}
	for i, s := range shape {
		if s < 0 {
			return Subset{}, Newf(InvalidIndexer, "new_subset", "negative shape %d at dim %d", s, i)
		}
		_ = i
	}
	return Subset{Start: append([]int(nil), start...), Shape: append([]int(nil), shape...)}, nil
}

// Dims reports the dimensionality of s.
func (s Subset) Dims() int { return len(s.Shape) }

// End returns, per dimension, Start+Shape (exclusive upper bound).
func (s Subset) End() []int {
	end := make([]int, len(s.Shape))
	for i := range s.Shape {
		end[i] = s.Start[i] + s.Shape[i]
	}
	return end
}

// NumElements returns the product of Shape, i.e. |s|.
func (s Subset) NumElements() int {
	n := 1
	for _, d := range s.Shape {
		n *= d
	}
	return n
}

// Empty reports whether s spans zero elements.
func (s Subset) Empty() bool {
	if len(s.Shape) == 0 {
		return false
	}
	for _, d := range s.Shape {
		if d == 0 {
			return true
		}
	}
	return false
}

// Intersect returns the overlap of s and other in absolute coordinates, and
// whether that overlap is non-empty. Dimensionality of s and other must
// match.
func (s Subset) Intersect(other Subset) (Subset, bool) {
	if len(s.Shape) != len(other.Shape) {
		return Subset{}, false
	}
	d := len(s.Shape)
	start := make([]int, d)
	shape := make([]int, d)
	sEnd := s.End()
	oEnd := other.End()
	for i := 0; i < d; i++ {
		lo := max(s.Start[i], other.Start[i])
		hi := min(sEnd[i], oEnd[i])
		if hi <= lo {
			return Subset{}, false
		}
		start[i] = lo
		shape[i] = hi - lo
	}
	return Subset{Start: start, Shape: shape}, true
}

// RelativeTo recomputes s's start relative to origin's start (both in the
// same absolute coordinate frame); used to express an absolute overlap
// relative to a chunk or relative to the original requested subset.
func (s Subset) RelativeTo(origin Subset) Subset {
	rel := make([]int, len(s.Start))
	for i := range s.Start {
		rel[i] = s.Start[i] - origin.Start[i]
	}
	return Subset{Start: rel, Shape: append([]int(nil), s.Shape...)}
}

// RelativeToOrigin recomputes s's start relative to an absolute origin point
// (e.g. a chunk's absolute start coordinates), without needing a full Subset.
func (s Subset) RelativeToOrigin(origin []int) Subset {
	rel := make([]int, len(s.Start))
	for i := range s.Start {
		rel[i] = s.Start[i] - origin[i]
	}
	return Subset{Start: rel, Shape: append([]int(nil), s.Shape...)}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Strides computes C-order element strides for shape.
func Strides(shape []int) []int {
	if len(shape) == 0 {
		return []int{}
	}
	s := make([]int, len(shape))
	stride := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = stride
		stride *= shape[i]
	}
	return s
}
