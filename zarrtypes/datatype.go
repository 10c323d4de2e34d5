package zarrtypes

// Kind of element encoded by a DataType. Optional is a wrapper kind: its
// Inner field names the wrapped type, which may itself be Optional to an
// unbounded nesting depth (§3).
type ElementKind int

const (
	Bool ElementKind = iota
	Int8
	Int16
	Int32
	Int64
	Uint8
	Uint16
	Uint32
	Uint64
	Float32
	Float64
	Complex64
	Complex128
	// Raw is a fixed-width opaque element (e.g. a struct dtype); Width
	// gives its byte size.
	Raw
	// String is a variable-length UTF-8 element.
	String
	// Bytes is a variable-length opaque element.
	Bytes
	// Optional wraps another DataType, making it nullable.
	Optional
)

var fixedWidths = map[ElementKind]int{
	Bool: 1, Int8: 1, Uint8: 1,
	Int16: 2, Uint16: 2,
	Int32: 4, Uint32: 4, Float32: 4,
	Int64: 8, Uint64: 8, Float64: 8, Complex64: 8,
	Complex128: 16,
}

// DataType is the engine's representation of T (§3).
type DataType struct {
	Kind  ElementKind
	Width int       // meaningful for Raw; derived for the other fixed kinds
	Inner *DataType // meaningful for Optional
}

// Fixed constructs a fixed-size data type of the given element kind.
func Fixed(kind ElementKind) *DataType {
	w := fixedWidths[kind]
	return &DataType{Kind: kind, Width: w}
}

// RawFixed constructs a fixed-size opaque data type of the given byte width.
func RawFixed(width int) *DataType {
	return &DataType{Kind: Raw, Width: width}
}

// VariableString constructs a variable-length UTF-8 string data type.
func VariableString() *DataType { return &DataType{Kind: String} }

// VariableBytes constructs a variable-length opaque byte-string data type.
func VariableBytes() *DataType { return &DataType{Kind: Bytes} }

// MakeOptional wraps t, making it nullable. Nesting is unbounded: inner may
// itself be Optional.
func MakeOptional(inner *DataType) *DataType {
	return &DataType{Kind: Optional, Inner: inner}
}

// IsFixed reports whether t has a known byte width (possibly through nested
// optional layers, where width does not apply — optional layers are never
// "fixed" themselves since they carry an extra mask byte per element, but
// programmatically we report the underlying-fixedness of the unwrapped type
// since callers use this to decide whether DisjointView fast paths apply to
// the innermost payload).
func (t *DataType) IsFixed() bool {
	if t == nil {
		return false
	}
	if t.Kind == Optional {
		return t.Inner.IsFixed()
	}
	return t.Kind != String && t.Kind != Bytes
}

// IsVariable is the complement of IsFixed at the innermost (unwrapped)
// layer.
func (t *DataType) IsVariable() bool { return !t.IsFixed() }

// IsOptional reports whether t is an Optional wrapper.
func (t *DataType) IsOptional() bool { return t != nil && t.Kind == Optional }

// FixedWidth returns the byte width of t if t is fixed at this layer
// (Optional is never itself "fixed" — it adds a mask byte per element, which
// is accounted for separately by ArrayBytes, not folded into Width).
func (t *DataType) FixedWidth() (int, bool) {
	if t == nil || t.Kind == Optional || t.Kind == String || t.Kind == Bytes {
		return 0, false
	}
	if t.Kind == Raw {
		return t.Width, true
	}
	return fixedWidths[t.Kind], true
}

// Unwrap returns the directly wrapped type for a single Optional layer, or t
// itself if t is not Optional.
func (t *DataType) Unwrap() *DataType {
	if t.IsOptional() {
		return t.Inner
	}
	return t
}

// NestingDepth counts the number of Optional wrappers from t down to the
// innermost non-optional type.
func (t *DataType) NestingDepth() int {
	depth := 0
	for cur := t; cur != nil && cur.Kind == Optional; cur = cur.Inner {
		depth++
	}
	return depth
}
