package tabcodec

import (
	"fmt"
)

// Kind enumerates the closed set of column types.
type Kind uint8

const (
	KindBoolean Kind = iota
	KindF32
	KindF64
	KindI16
	KindI32
	KindI64
	KindColourRGB
	KindStringU8
	KindStringU16
	KindOptionalI16
	KindOptionalI32
	KindOptionalI64
	KindOptionalStringU8
	KindOptionalStringU16
	KindSequenceU16
	KindSequenceU32

	kindCount
)

var kindNames = [kindCount]string{
	KindBoolean:           "Boolean",
	KindF32:               "F32",
	KindF64:               "F64",
	KindI16:               "I16",
	KindI32:               "I32",
	KindI64:               "I64",
	KindColourRGB:         "ColourRGB",
	KindStringU8:          "StringU8",
	KindStringU16:         "StringU16",
	KindOptionalI16:       "OptionalI16",
	KindOptionalI32:       "OptionalI32",
	KindOptionalI64:       "OptionalI64",
	KindOptionalStringU8:  "OptionalStringU8",
	KindOptionalStringU16: "OptionalStringU16",
	KindSequenceU16:       "SequenceU16",
	KindSequenceU32:       "SequenceU32",
}

func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown field type %q", s)
}

func (k Kind) IsValid() bool {
	return k < kindCount
}

// IsInteger reports whether k is I16, I32 or I64. Optional integers are not included.
func (k Kind) IsInteger() bool {
	return k == KindI16 || k == KindI32 || k == KindI64
}

// IsNumeric reports whether k can hold a colour channel.
func (k Kind) IsNumeric() bool {
	return k.IsInteger() || k == KindF32 || k == KindF64
}

func (k Kind) IsOptionalInteger() bool {
	return k == KindOptionalI16 || k == KindOptionalI32 || k == KindOptionalI64
}

func (k Kind) IsFloat() bool {
	return k == KindF32 || k == KindF64
}

// IsText reports whether cells of this kind carry a string payload.
func (k Kind) IsText() bool {
	switch k {
	case KindColourRGB, KindStringU8, KindStringU16, KindOptionalStringU8, KindOptionalStringU16:
		return true
	default:
		return false
	}
}

func (k Kind) IsSequence() bool {
	return k == KindSequenceU16 || k == KindSequenceU32
}

// countPrefixSize is the width of a sequence's row count prefix.
func (k Kind) countPrefixSize() int {
	switch k {
	case KindSequenceU16:
		return 2
	case KindSequenceU32:
		return 4
	default:
		return 0
	}
}

// FieldType is a Kind plus, for the two sequence kinds, the nested table definition.
type FieldType struct {
	Kind       Kind        `msgpack:"kind" json:"kind"`
	Definition *Definition `msgpack:"def,omitempty" json:"definition,omitempty"`
}

var (
	TypeBoolean           = FieldType{Kind: KindBoolean}
	TypeF32               = FieldType{Kind: KindF32}
	TypeF64               = FieldType{Kind: KindF64}
	TypeI16               = FieldType{Kind: KindI16}
	TypeI32               = FieldType{Kind: KindI32}
	TypeI64               = FieldType{Kind: KindI64}
	TypeColourRGB         = FieldType{Kind: KindColourRGB}
	TypeStringU8          = FieldType{Kind: KindStringU8}
	TypeStringU16         = FieldType{Kind: KindStringU16}
	TypeOptionalI16       = FieldType{Kind: KindOptionalI16}
	TypeOptionalI32       = FieldType{Kind: KindOptionalI32}
	TypeOptionalI64       = FieldType{Kind: KindOptionalI64}
	TypeOptionalStringU8  = FieldType{Kind: KindOptionalStringU8}
	TypeOptionalStringU16 = FieldType{Kind: KindOptionalStringU16}
)

func SequenceU16Of(def *Definition) FieldType {
	return FieldType{Kind: KindSequenceU16, Definition: def}
}

func SequenceU32Of(def *Definition) FieldType {
	return FieldType{Kind: KindSequenceU32, Definition: def}
}

func (ft FieldType) String() string {
	return ft.Kind.String()
}

func (ft FieldType) Equal(other FieldType) bool {
	if ft.Kind != other.Kind {
		return false
	}
	if !ft.Kind.IsSequence() {
		return true
	}
	return ft.Definition.Equal(other.Definition)
}

func (ft FieldType) clone() FieldType {
	if ft.Definition != nil {
		ft.Definition = ft.Definition.Clone()
	}
	return ft
}
