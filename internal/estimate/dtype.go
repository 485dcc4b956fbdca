package estimate

import (
	"fmt"
	"strings"
)

// DType is a per-parameter numeric representation.
type DType struct {
	Name string `json:"name" yaml:"name"`
	Bits int    `json:"bits" yaml:"bits"`
}

var (
	Float32  = DType{"float32", 32}
	BFloat16 = DType{"bfloat16", 16}
	Float16  = DType{"float16", 16}
	Int8     = DType{"int8", 8}
	Int4     = DType{"int4", 4}
)

// DTypes lists the supported representations, widest first.
var DTypes = []DType{Float32, BFloat16, Float16, Int8, Int4}

var dtypeAliases = map[string]DType{
	"float32":  Float32,
	"fp32":     Float32,
	"f32":      Float32,
	"bfloat16": BFloat16,
	"bf16":     BFloat16,
	"float16":  Float16,
	"fp16":     Float16,
	"f16":      Float16,
	"half":     Float16,
	"int8":     Int8,
	"i8":       Int8,
	"int4":     Int4,
	"i4":       Int4,
}

// LookupDType resolves a dtype name as it appears in a model config.json.
// Only canonical names are accepted; torch prefixes such as "torch.float16" are stripped.
func LookupDType(name string) (DType, bool) {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "torch.")
	for _, d := range DTypes {
		if d.Name == name {
			return d, true
		}
	}
	return DType{}, false
}

// ParseDType resolves a user-supplied precision, accepting common aliases.
func ParseDType(s string) (DType, error) {
	if d, ok := dtypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return DType{}, fmt.Errorf("unknown precision %q (want one of float32, bfloat16, float16, int8, int4)", s)
}

// BytesFor returns the serialized size of params parameters at this width.
func (d DType) BytesFor(params uint64) uint64 {
	return params * uint64(d.Bits) / 8
}

func (d DType) String() string { return d.Name }

// DTypeInfo is what a repository's config.json declares about its numeric representation.
type DTypeInfo struct {
	Primary    string   `json:"primary" yaml:"primary"`
	Additional []string `json:"additional,omitempty" yaml:"additional,omitempty"`
}
