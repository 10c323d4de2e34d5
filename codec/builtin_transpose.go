package codec

import (
	"context"

	"github.com/tuskan/zarrengine/zarrtypes"
)

// TransposeCodec is an array-to-array codec that permutes axes before the
// array-to-bytes stage, matching the zarr v3 "transpose" codec. Order names
// the decoded-axis index stored at each encoded-axis position (Order[i] =
// decoded axis appearing at encoded axis i); it must be a permutation of
// [0,d).
type TransposeCodec struct {
	Order []int
}

func (t TransposeCodec) Identifier() string { return "transpose" }

func (t TransposeCodec) Configuration() (map[string]any, bool) {
	return map[string]any{"order": append([]int(nil), t.Order...)}, true
}

func (TransposeCodec) DecoderCapability() Capability {
	return Capability{PartialRead: true, PartialDecode: true}
}

func (TransposeCodec) EncoderCapability() Capability {
	return Capability{PartialEncode: true}
}

func (TransposeCodec) RecommendedConcurrency(BytesRepresentation) (int, int) { return 1, 1 }

func (t TransposeCodec) EncodedRepresentation(shape []int, dt *zarrtypes.DataType, fill zarrtypes.FillValue) ([]int, *zarrtypes.DataType, zarrtypes.FillValue, error) {
	if len(t.Order) != len(shape) {
		return nil, nil, nil, zarrtypes.Newf(zarrtypes.UnsupportedConfiguration, "transpose", "order length %d != shape dims %d", len(t.Order), len(shape))
	}
	encShape := make([]int, len(shape))
	for i, axis := range t.Order {
		encShape[i] = shape[axis]
	}
	return encShape, dt, fill, nil
}

// permuteFixed reorders an ArrayBytes buffer of shape decShape (fixed-width w per
// element) according to Order, producing the buffer for encShape (or the
// inverse, when inverse=true, to go from encShape back to decShape).
func permuteFixed(buf []byte, fromShape []int, order []int, w int, inverse bool) []byte {
	d := len(fromShape)
	toShape := make([]int, d)
	for i, axis := range order {
		toShape[i] = fromShape[axis]
	}
	fromStrides := zarrtypes.Strides(fromShape)
	toStrides := zarrtypes.Strides(toShape)
	out := make([]byte, len(buf))

	coord := make([]int, d)
	var rec func(dim int)
	rec = func(dim int) {
		if dim == d {
			fromIdx := 0
			for i := range coord {
				fromIdx += coord[i] * fromStrides[i]
			}
			toIdx := 0
			for i, axis := range order {
				// coord is indexed in fromShape's axis space; toCoord[i] = coord[axis]
				toIdx += coord[axis] * toStrides[i]
			}
			if inverse {
				copy(out[fromIdx*w:(fromIdx+1)*w], buf[toIdx*w:(toIdx+1)*w])
			} else {
				copy(out[toIdx*w:(toIdx+1)*w], buf[fromIdx*w:(fromIdx+1)*w])
			}
			return
		}
		for i := 0; i < fromShape[dim]; i++ {
			coord[dim] = i
			rec(dim + 1)
		}
	}
	rec(0)
	return out
}

func (t TransposeCodec) Encode(_ context.Context, ab *zarrtypes.ArrayBytes, shape []int, dt *zarrtypes.DataType, _ zarrtypes.FillValue) (*zarrtypes.ArrayBytes, error) {
	w, fixed := dt.FixedWidth()
	if !fixed {
		return nil, zarrtypes.Newf(zarrtypes.UnsupportedConfiguration, "transpose", "transpose requires a fixed-width type")
	}
	buf, err := ab.IntoFixed()
	if err != nil {
		return nil, err
	}
	return zarrtypes.NewFixed(permuteFixed(buf, shape, t.Order, w, false)), nil
}

func (t TransposeCodec) Decode(_ context.Context, encAb *zarrtypes.ArrayBytes, encShape []int, dt *zarrtypes.DataType, _ zarrtypes.FillValue) (*zarrtypes.ArrayBytes, error) {
	w, fixed := dt.FixedWidth()
	if !fixed {
		return nil, zarrtypes.Newf(zarrtypes.UnsupportedConfiguration, "transpose", "transpose requires a fixed-width type")
	}
	buf, err := encAb.IntoFixed()
	if err != nil {
		return nil, err
	}
	decShape := make([]int, len(encShape))
	for i, axis := range t.Order {
		decShape[axis] = encShape[i]
	}
	return zarrtypes.NewFixed(permuteFixed(buf, decShape, t.Order, w, true)), nil
}

var _ ArrayToArrayCodec = TransposeCodec{}
