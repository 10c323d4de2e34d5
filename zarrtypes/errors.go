// Package zarrtypes holds the core, codec-agnostic data model shared by the
// engine: data types, the ArrayBytes container, fill values, subsets, and the
// structured error taxonomy.
package zarrtypes

import "fmt"

// Kind classifies an Error without requiring string matching.
type Kind int

const (
	// InvalidIndexer covers dimensionality mismatches, out-of-bounds
	// subsets, and subsets incompatible with a chunk grid.
	InvalidIndexer Kind = iota
	// InvalidBytes covers length mismatches, non-monotone or
	// out-of-bounds offsets, and mask-length mismatches.
	InvalidBytes
	// InvalidFillValue covers fill values incompatible with a data type
	// or mis-sized for the optional suffix-byte convention.
	InvalidFillValue
	// VariantMismatch covers an ArrayBytes accessor called against the
	// wrong variant (fixed/variable/optional).
	VariantMismatch
	// StorageError wraps an error from the underlying store, including
	// metadata JSON parse failures.
	StorageError
	// CodecError covers codec-internal failures: checksum mismatches,
	// decompression errors, unsupported data types, invalid byte ranges.
	CodecError
	// UnsupportedConfiguration covers a missing required codec/feature or
	// a must_understand extension encountered at open time.
	UnsupportedConfiguration
)

func (k Kind) String() string {
	switch k {
	case InvalidIndexer:
		return "InvalidIndexer"
	case InvalidBytes:
		return "InvalidBytes"
	case InvalidFillValue:
		return "InvalidFillValue"
	case VariantMismatch:
		return "VariantMismatch"
	case StorageError:
		return "StorageError"
	case CodecError:
		return "CodecError"
	case UnsupportedConfiguration:
		return "UnsupportedConfiguration"
	default:
		return "Unknown"
	}
}

// Error is the engine's structured error type. Op names the operation that
// failed (e.g. "retrieve_array_subset"); Err, when present, is the wrapped
// cause.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Op, e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so
// errors.Is(err, &zarrtypes.Error{Kind: zarrtypes.InvalidBytes}) matches any
// *Error of that Kind in err's chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Newf builds a structured Error without an underlying cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a structured Error around an underlying cause.
func Wrap(kind Kind, op string, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...), Err: err}
}
