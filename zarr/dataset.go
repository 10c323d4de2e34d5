package zarr

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/tuskan/zarrengine/store"
	"github.com/tuskan/zarrengine/zarrtypes"
)

// Dataset adapts an Array's leading dimension into a sequence of batches
// (the teacher's original training-loop integration point, generalized from
// a v2-only, float/int-only NextBatch to the bool, integer and float dtypes
// served by the codec pipeline; complex and raw-byte dtypes report
// UnsupportedConfiguration).
type Dataset struct {
	Array        *Array
	CurrentIndex int
	Opts         CodecOptions
}

// NewDataset opens the array at path within bucketURL (a gocloud.dev/blob
// URL) and wraps it as a Dataset.
func NewDataset(ctx context.Context, bucketURL, path string) (*Dataset, error) {
	st, err := store.OpenBlobStore(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket: %w", err)
	}
	arr, err := OpenArray(ctx, st, path)
	if err != nil {
		return nil, err
	}
	return &Dataset{Array: arr}, nil
}

// NewDatasetFromArray wraps an already-open Array, useful for tests and for
// callers that build an Array programmatically.
func NewDatasetFromArray(arr *Array) *Dataset {
	return &Dataset{Array: arr}
}

// NextBatch reads the next batchSize elements along dimension 0 and
// converts them to a *tensors.Tensor. Returns io.EOF once the leading
// dimension is exhausted. Optional and variable-length dtypes have no
// tensor representation and report UnsupportedConfiguration.
func (d *Dataset) NextBatch(ctx context.Context, batchSize int) (*tensors.Tensor, error) {
	shape := d.Array.Shape()
	if len(shape) == 0 {
		return nil, zarrtypes.Newf(zarrtypes.UnsupportedConfiguration, "next_batch", "dataset requires a rank >= 1 array")
	}
	if d.CurrentIndex >= shape[0] {
		return nil, io.EOF
	}
	start := d.CurrentIndex
	end := start + batchSize
	if end > shape[0] {
		end = shape[0]
	}

	batchShape := append([]int(nil), shape...)
	batchShape[0] = end - start
	subStart := make([]int, len(shape))
	subStart[0] = start
	sub := zarrtypes.Subset{Start: subStart, Shape: batchShape}

	ab, err := d.Array.RetrieveArraySubset(ctx, sub, d.Opts)
	if err != nil {
		return nil, err
	}
	d.CurrentIndex = end

	tensor, err := arrayBytesToTensor(ab, d.Array.DType, batchShape)
	if err != nil {
		return nil, err
	}
	return tensor, nil
}

// arrayBytesToTensor decodes a Fixed ArrayBytes payload into a gomlx Tensor
// of the matching Go element type. Optional/variable-length data types have
// no direct tensor representation.
func arrayBytesToTensor(ab *zarrtypes.ArrayBytes, t *zarrtypes.DataType, shape []int) (*tensors.Tensor, error) {
	if t.Kind == zarrtypes.Optional {
		return nil, zarrtypes.Newf(zarrtypes.UnsupportedConfiguration, "arraybytes_to_tensor", "optional data types have no tensor representation")
	}
	if _, fixed := t.FixedWidth(); !fixed {
		return nil, zarrtypes.Newf(zarrtypes.UnsupportedConfiguration, "arraybytes_to_tensor", "variable-length data types have no tensor representation")
	}
	buf, err := ab.IntoFixed()
	if err != nil {
		return nil, err
	}
	switch t.Kind {
	case zarrtypes.Bool:
		return tensors.FromFlatDataAndDimensions(boolSlice(buf), shape...), nil
	case zarrtypes.Int8:
		return tensors.FromFlatDataAndDimensions(int8Slice(buf), shape...), nil
	case zarrtypes.Uint8:
		return tensors.FromFlatDataAndDimensions(append([]uint8(nil), buf...), shape...), nil
	case zarrtypes.Int16:
		return tensors.FromFlatDataAndDimensions(le16[int16](buf), shape...), nil
	case zarrtypes.Uint16:
		return tensors.FromFlatDataAndDimensions(le16[uint16](buf), shape...), nil
	case zarrtypes.Int32:
		return tensors.FromFlatDataAndDimensions(le32[int32](buf), shape...), nil
	case zarrtypes.Uint32:
		return tensors.FromFlatDataAndDimensions(le32[uint32](buf), shape...), nil
	case zarrtypes.Float32:
		return tensors.FromFlatDataAndDimensions(le32Float(buf), shape...), nil
	case zarrtypes.Int64:
		return tensors.FromFlatDataAndDimensions(le64[int64](buf), shape...), nil
	case zarrtypes.Uint64:
		return tensors.FromFlatDataAndDimensions(le64[uint64](buf), shape...), nil
	case zarrtypes.Float64:
		return tensors.FromFlatDataAndDimensions(le64Float(buf), shape...), nil
	default:
		return nil, zarrtypes.Newf(zarrtypes.UnsupportedConfiguration, "arraybytes_to_tensor", "data type kind %v has no tensor representation", t.Kind)
	}
}

func boolSlice(buf []byte) []bool {
	out := make([]bool, len(buf))
	for i, b := range buf {
		out[i] = b != 0
	}
	return out
}

func int8Slice(buf []byte) []int8 {
	out := make([]int8, len(buf))
	for i, b := range buf {
		out[i] = int8(b)
	}
	return out
}

type le16Kind interface{ ~int16 | ~uint16 }

func le16[T le16Kind](buf []byte) []T {
	n := len(buf) / 2
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = T(binary.LittleEndian.Uint16(buf[i*2:]))
	}
	return out
}

type le32Kind interface{ ~int32 | ~uint32 }

func le32[T le32Kind](buf []byte) []T {
	n := len(buf) / 4
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = T(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

func le32Float(buf []byte) []float32 {
	n := len(buf) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return out
}

type le64Kind interface{ ~int64 | ~uint64 }

func le64[T le64Kind](buf []byte) []T {
	n := len(buf) / 8
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = T(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out
}

func le64Float(buf []byte) []float64 {
	n := len(buf) / 8
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return out
}
