package tabcodec

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

const floatEpsilon = 0.0001

// DecodedData is one cell. The zero value is Boolean(false).
//
// Integers of every width live in i, both float widths in f, every text kind in s and
// sequence blobs (count prefix included) in raw.
type DecodedData struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	raw  []byte
}

// Row is one table row laid out per Definition.FieldsProcessed.
type Row []DecodedData

type Rows []Row

func Bool(v bool) DecodedData { return DecodedData{kind: KindBoolean, b: v} }
func F32(v float32) DecodedData { return DecodedData{kind: KindF32, f: float64(v)} }
func F64(v float64) DecodedData { return DecodedData{kind: KindF64, f: v} }
func I16(v int16) DecodedData { return DecodedData{kind: KindI16, i: int64(v)} }
func I32(v int32) DecodedData { return DecodedData{kind: KindI32, i: int64(v)} }
func I64(v int64) DecodedData { return DecodedData{kind: KindI64, i: v} }
func ColourRGB(hex string) DecodedData { return DecodedData{kind: KindColourRGB, s: hex} }
func StringU8(s string) DecodedData { return DecodedData{kind: KindStringU8, s: s} }
func StringU16(s string) DecodedData { return DecodedData{kind: KindStringU16, s: s} }
func OptionalI16(v int16) DecodedData { return DecodedData{kind: KindOptionalI16, i: int64(v)} }
func OptionalI32(v int32) DecodedData { return DecodedData{kind: KindOptionalI32, i: int64(v)} }
func OptionalI64(v int64) DecodedData { return DecodedData{kind: KindOptionalI64, i: v} }
func OptionalStringU8(s string) DecodedData { return DecodedData{kind: KindOptionalStringU8, s: s} }
func OptionalStringU16(s string) DecodedData { return DecodedData{kind: KindOptionalStringU16, s: s} }

// SequenceU16 wraps an encoded nested table whose first two bytes are its row count.
func SequenceU16(blob []byte) DecodedData { return DecodedData{kind: KindSequenceU16, raw: blob} }

// SequenceU32 wraps an encoded nested table whose first four bytes are its row count.
func SequenceU32(blob []byte) DecodedData { return DecodedData{kind: KindSequenceU32, raw: blob} }

// emptySequence holds a nested table with zero rows.
func emptySequence(k Kind) DecodedData {
	return DecodedData{kind: k, raw: make([]byte, k.countPrefixSize())}
}

func (d DecodedData) Kind() Kind { return d.kind }

func (d DecodedData) Bool() bool { return d.b }

// Int returns the value of any integer kind, optional ones included.
func (d DecodedData) Int() int64 { return d.i }

func (d DecodedData) Float() float64 { return d.f }

// Text returns the payload of the string kinds and ColourRGB.
func (d DecodedData) Text() string { return d.s }

// Blob returns the raw bytes of a sequence cell.
func (d DecodedData) Blob() []byte { return d.raw }

func (d DecodedData) isIntegerLike() bool {
	return d.kind.IsInteger() || d.kind.IsOptionalInteger()
}

// number returns the numeric payload of integer and float cells.
func (d DecodedData) number() float64 {
	if d.kind.IsFloat() {
		return d.f
	}
	return float64(d.i)
}

// Equal compares cells of the same kind. Floats match within 0.0001.
func (d DecodedData) Equal(o DecodedData) bool {
	if d.kind != o.kind {
		return false
	}
	switch {
	case d.kind == KindBoolean:
		return d.b == o.b
	case d.kind.IsFloat():
		return math.Abs(d.f-o.f) <= floatEpsilon
	case d.isIntegerLike():
		return d.i == o.i
	case d.kind.IsText():
		return d.s == o.s
	case d.kind.IsSequence():
		return bytes.Equal(d.raw, o.raw)
	default:
		return false
	}
}

func (r Row) Equal(o Row) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if !r[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

func (r Row) Clone() Row {
	out := make(Row, len(r))
	for i, c := range r {
		if c.raw != nil {
			c.raw = bytes.Clone(c.raw)
		}
		out[i] = c
	}
	return out
}

func (rows Rows) Equal(o Rows) bool {
	if len(rows) != len(o) {
		return false
	}
	for i := range rows {
		if !rows[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// DataToString renders a cell for display: floats with four decimals, sequences by kind name.
func (d DecodedData) DataToString() string {
	switch {
	case d.kind == KindBoolean:
		return strconv.FormatBool(d.b)
	case d.kind.IsFloat():
		return strconv.FormatFloat(d.f, 'f', 4, 64)
	case d.isIntegerLike():
		return strconv.FormatInt(d.i, 10)
	case d.kind.IsText():
		return d.s
	default:
		return d.kind.String()
	}
}

func (d DecodedData) String() string {
	return d.kind.String() + "(" + d.DataToString() + ")"
}

// IsFieldTypeCorrect reports whether the cell can be stored in a column of type ft.
func (d DecodedData) IsFieldTypeCorrect(ft FieldType) bool {
	return d.kind == ft.Kind
}

// SetData parses s into the cell, keeping its kind.
func (d *DecodedData) SetData(s string) error {
	switch k := d.kind; {
	case k == KindBoolean:
		v, err := parseBool(s)
		if err != nil {
			return err
		}
		d.b = v
	case k.IsFloat():
		v, err := strconv.ParseFloat(s, floatBits(k))
		if err != nil {
			return err
		}
		d.f = v
	case d.isIntegerLike():
		v, err := strconv.ParseInt(s, 10, intBits(k))
		if err != nil {
			return err
		}
		d.i = v
	case k == KindColourRGB:
		if !isHexColour(s) {
			return fmt.Errorf("invalid colour %q", s)
		}
		d.s = s
	case k.IsText():
		d.s = s
	default:
		return fmt.Errorf("cannot set %v from text", k)
	}
	return nil
}

// NewFromTypeAndValue builds a cell of type ft from a textual default. A missing or
// unparsable default yields the type's zero value.
func NewFromTypeAndValue(ft FieldType, def *string) DecodedData {
	var s string
	if def != nil {
		s = *def
	}
	k := ft.Kind
	d := DecodedData{kind: k}
	switch {
	case k == KindBoolean:
		d.b, _ = parseBool(s)
	case k.IsFloat():
		if v, err := strconv.ParseFloat(s, floatBits(k)); err == nil {
			d.f = v
		}
	case d.isIntegerLike():
		if v, err := strconv.ParseInt(s, 10, intBits(k)); err == nil {
			d.i = v
		}
	case k == KindColourRGB:
		if isHexColour(s) {
			d.s = s
		} else {
			d.s = "000000"
		}
	case k.IsText():
		d.s = s
	case k.IsSequence():
		return emptySequence(k)
	}
	return d
}

func isHexColour(s string) bool {
	if s == "" || len(s) > 8 {
		return false
	}
	_, err := strconv.ParseUint(s, 16, 32)
	return err == nil
}

func floatBits(k Kind) int {
	if k == KindF32 {
		return 32
	}
	return 64
}

func intBits(k Kind) int {
	switch k {
	case KindI16, KindOptionalI16:
		return 16
	case KindI32, KindOptionalI32:
		return 32
	default:
		return 64
	}
}

// intCell builds an integer cell of kind k, truncating v to the kind's width.
func intCell(k Kind, v int64) DecodedData {
	switch k {
	case KindI16, KindOptionalI16:
		v = int64(int16(v))
	case KindI32, KindOptionalI32:
		v = int64(int32(v))
	}
	return DecodedData{kind: k, i: v}
}

// formatNumber renders a number the way a plain to-string conversion does.
func (d DecodedData) formatNumber() string {
	if d.kind.IsFloat() {
		return strconv.FormatFloat(d.f, 'f', -1, floatBits(d.kind))
	}
	return strconv.FormatInt(d.i, 10)
}
