package zarr

import (
	"encoding/json/v2"
	"fmt"
	"io"

	"github.com/tuskan/zarrengine/zarrtypes"
)

// MetadataV3 is the zarr.json document for a v3 array (§6 "Metadata"). Only
// the fields this engine's codec chain and chunk grid need are modeled;
// other top-level fields are dropped on decode, and Attributes is kept as an
// uninterpreted map.
type MetadataV3 struct {
	ZarrFormat    int             `json:"zarr_format"`
	NodeType      string          `json:"node_type"`
	Shape         []int           `json:"shape"`
	DataType      json.RawMessage `json:"data_type"`
	ChunkGrid     ChunkGridSpecV3 `json:"chunk_grid"`
	ChunkKeyEnc   ChunkKeyEncSpec `json:"chunk_key_encoding"`
	FillValue     json.RawMessage `json:"fill_value"`
	Codecs        []CodecSpec     `json:"codecs"`
	DimensionNames []string       `json:"dimension_names,omitempty"`
	Attributes    map[string]any  `json:"attributes,omitempty"`
}

// ChunkGridSpecV3 names the regular chunk grid configuration (rectilinear
// grids are a zarr v3 extension this engine does not parse from JSON; they
// remain constructible programmatically via NewRectilinearGrid).
type ChunkGridSpecV3 struct {
	Name          string `json:"name"`
	Configuration struct {
		ChunkShape []int `json:"chunk_shape"`
	} `json:"configuration"`
}

// ChunkKeyEncSpec names the chunk key encoder: "default" (v3, "/" separator,
// "c" prefix) or "v2" (".", no prefix).
type ChunkKeyEncSpec struct {
	Name          string `json:"name"`
	Configuration struct {
		Separator string `json:"separator"`
	} `json:"configuration"`
}

// CodecSpec is one entry of the v3 codecs array: a name plus an opaque
// configuration object, resolved against the engine's fixed built-in codec
// set by BuildChain (§6 consumes only codec *interfaces*; the plugin
// registry that resolves arbitrary third-party codec names is out of
// scope per spec.md §1).
type CodecSpec struct {
	Name          string          `json:"name"`
	Configuration json.RawMessage `json:"configuration"`
}

// LoadMetadataV3 reads and parses a zarr.json document.
func LoadMetadataV3(r io.Reader) (*MetadataV3, error) {
	var m MetadataV3
	if err := json.UnmarshalRead(r, &m); err != nil {
		return nil, fmt.Errorf("failed to decode zarr.json: %w", err)
	}
	if m.ZarrFormat != 3 {
		return nil, fmt.Errorf("unsupported zarr_format: %d, expected 3", m.ZarrFormat)
	}
	return &m, nil
}

// dataTypeSpec is the JSON shape accepted for MetadataV3.DataType: either a
// plain string ("int32", "float64", ...) or, for a nullable type, an object
// naming the "optional" wrapper around a nested data_type of the same shape
// (this engine's extension for representing §3's unbounded Optional
// nesting in JSON; core zarr v3 has no standardized encoding for this yet,
// per SPEC_FULL's data-type supplement).
type dataTypeSpec struct {
	Optional json.RawMessage `json:"optional"`
}

// ParseV3DataType decodes a data_type JSON value into the engine's
// zarrtypes.DataType, recursing through any "optional" wrapper.
func ParseV3DataType(raw json.RawMessage) (*zarrtypes.DataType, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return parseDataTypeName(name)
	}
	var wrapped dataTypeSpec
	if err := json.Unmarshal(raw, &wrapped); err != nil || wrapped.Optional == nil {
		return nil, fmt.Errorf("invalid data_type: %s", string(raw))
	}
	inner, err := ParseV3DataType(wrapped.Optional)
	if err != nil {
		return nil, err
	}
	return zarrtypes.MakeOptional(inner), nil
}

func parseDataTypeName(name string) (*zarrtypes.DataType, error) {
	switch name {
	case "bool":
		return zarrtypes.Fixed(zarrtypes.Bool), nil
	case "int8":
		return zarrtypes.Fixed(zarrtypes.Int8), nil
	case "int16":
		return zarrtypes.Fixed(zarrtypes.Int16), nil
	case "int32":
		return zarrtypes.Fixed(zarrtypes.Int32), nil
	case "int64":
		return zarrtypes.Fixed(zarrtypes.Int64), nil
	case "uint8":
		return zarrtypes.Fixed(zarrtypes.Uint8), nil
	case "uint16":
		return zarrtypes.Fixed(zarrtypes.Uint16), nil
	case "uint32":
		return zarrtypes.Fixed(zarrtypes.Uint32), nil
	case "uint64":
		return zarrtypes.Fixed(zarrtypes.Uint64), nil
	case "float32":
		return zarrtypes.Fixed(zarrtypes.Float32), nil
	case "float64":
		return zarrtypes.Fixed(zarrtypes.Float64), nil
	case "complex64":
		return zarrtypes.Fixed(zarrtypes.Complex64), nil
	case "complex128":
		return zarrtypes.Fixed(zarrtypes.Complex128), nil
	case "string":
		return zarrtypes.VariableString(), nil
	case "bytes":
		return zarrtypes.VariableBytes(), nil
	default:
		return nil, fmt.Errorf("unsupported data_type: %s", name)
	}
}

// ConvertV2ToV3 builds the in-memory v3-equivalent of a v2 .zarray document
// (§6 "the engine reads both, prefers v3, and converts v2 to an equivalent
// v3 in-memory representation"). The v2 compressor id is carried through
// unchecked as a codec name after "bytes"; BuildChain later reports an id
// outside its built-in codec set as UnsupportedConfiguration.
func ConvertV2ToV3(m *Metadata) (*MetadataV3, error) {
	_, itemSize, err := ParseDType(m.DType)
	if err != nil {
		return nil, fmt.Errorf("failed to convert v2 metadata: %w", err)
	}
	dtName, err := v2DTypeToV3Name(m.DType)
	if err != nil {
		return nil, err
	}
	dtRaw, _ := json.Marshal(dtName)

	fillRaw, _ := json.Marshal(m.FillValue)

	codecs := []CodecSpec{{Name: "bytes"}}
	if m.Compressor != nil {
		cfg, _ := json.Marshal(map[string]any{})
		codecs = append(codecs, CodecSpec{Name: m.Compressor.ID, Configuration: cfg})
	}

	v3 := &MetadataV3{
		ZarrFormat: 3,
		NodeType:   "array",
		Shape:      m.Shape,
		DataType:   dtRaw,
		FillValue:  fillRaw,
		Codecs:     codecs,
	}
	v3.ChunkGrid.Name = "regular"
	v3.ChunkGrid.Configuration.ChunkShape = m.Chunks
	v3.ChunkKeyEnc.Name = "v2"
	v3.ChunkKeyEnc.Configuration.Separator = "."
	_ = itemSize
	return v3, nil
}

func v2DTypeToV3Name(s string) (string, error) {
	kindName, _, err := ParseDType(s)
	if err != nil {
		return "", err
	}
	return kindName, nil
}
