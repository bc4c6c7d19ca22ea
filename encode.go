package tabcodec

import (
	"fmt"
	"strconv"

	"github.com/andreyvit/tabcodec/binio"
)

// EncodeTable writes rows per def without a row count prefix.
//
// Every row must have exactly one cell per derived field, and plain cells must match their
// field's kind. Enum cells go through label lookup, then text conversion, then the field default.
func EncodeTable(w *binio.Writer, def *Definition, rows Rows) error {
	l := def.layout()
	width := len(l.processed)
	for ri, row := range rows {
		if len(row) != width {
			return &RowFieldCountError{Row: ri + 1, Expected: width, Actual: len(row)}
		}
		for fi := range def.Fields {
			f := &def.Fields[fi]
			plan := &l.plans[fi]
			switch plan.exp {
			case expandBitwise:
				var v int64
				for k := 0; k < plan.count; k++ {
					c := row[plan.column+k]
					if c.kind != KindBoolean {
						return &FieldEncodeError{Row: ri + 1, Column: plan.column + k + 1, Field: l.processed[plan.column+k].Name, Expected: TypeBoolean, Actual: c.kind}
					}
					if c.b {
						v |= 1 << k
					}
				}
				writeInteger(w, f.Type.Kind, v)

			case expandEnum:
				c := row[plan.column]
				if !c.kind.IsText() {
					return fieldEncodeErr(ri, plan.column, f, c.kind, nil)
				}
				v, err := enumValue(f, unescapeSpecialChars(c.s), def.Patches)
				if err != nil {
					return fieldEncodeErr(ri, plan.column, f, c.kind, err)
				}
				writeInteger(w, f.Type.Kind, v)

			case expandColour:
				c := row[plan.column]
				if !c.kind.IsText() {
					return fieldEncodeErr(ri, plan.column, f, c.kind, nil)
				}
				if plan.channel == channelNone {
					return fieldEncodeErr(ri, plan.column, f, c.kind, ErrColourChannel)
				}
				if len(c.s) != 6 || !isHexColour(c.s) {
					return fieldEncodeErr(ri, plan.column, f, c.kind, fmt.Errorf("invalid colour %q, wanted RRGGBB", c.s))
				}
				rgb := must(strconv.ParseUint(c.s, 16, 32))
				var ch uint8
				switch plan.channel {
				case channelR:
					ch = uint8(rgb >> 16)
				case channelG:
					ch = uint8(rgb >> 8)
				case channelB:
					ch = uint8(rgb)
				}
				if f.Type.Kind.IsFloat() {
					writeFloat(w, f.Type.Kind, float64(ch))
				} else {
					writeInteger(w, f.Type.Kind, int64(ch))
				}

			default:
				c := row[plan.column]
				if c.kind != f.Type.Kind {
					return fieldEncodeErr(ri, plan.column, f, c.kind, nil)
				}
				if err := encodeValue(w, c); err != nil {
					return fieldEncodeErr(ri, plan.column, f, c.kind, err)
				}
			}
		}
	}
	return nil
}

// enumValue resolves enum cell text to the raw integer.
func enumValue(f *Field, text string, p DefinitionPatch) (int64, error) {
	if k, ok := f.enumKey(text); ok {
		return int64(k), nil
	}
	if v, err := StringU8(text).ConvertBetweenTypes(f.Type); err == nil {
		return v.i, nil
	}
	v := NewFromTypeAndValue(f.Type, f.DefaultValue(p))
	if !v.isIntegerLike() {
		return 0, fmt.Errorf("no enum value for %q", text)
	}
	return v.i, nil
}

func writeInteger(w *binio.Writer, k Kind, v int64) {
	switch k {
	case KindI16:
		w.WriteI16(int16(v))
	case KindI32:
		w.WriteI32(int32(v))
	case KindI64:
		w.WriteI64(v)
	case KindOptionalI16:
		w.WriteOptionalI16(int16(v))
	case KindOptionalI32:
		w.WriteOptionalI32(int32(v))
	case KindOptionalI64:
		w.WriteOptionalI64(v)
	default:
		panic(fmt.Errorf("writeInteger: %v is not an integer kind", k))
	}
}

func writeFloat(w *binio.Writer, k Kind, v float64) {
	if k == KindF32 {
		w.WriteF32(float32(v))
	} else {
		w.WriteF64(v)
	}
}

func encodeValue(w *binio.Writer, c DecodedData) error {
	switch k := c.kind; k {
	case KindBoolean:
		w.WriteBool(c.b)
	case KindF32, KindF64:
		writeFloat(w, k, c.f)
	case KindI16, KindI32, KindI64, KindOptionalI16, KindOptionalI32, KindOptionalI64:
		writeInteger(w, k, c.i)
	case KindColourRGB:
		return w.WriteColourRGB(c.s)
	case KindStringU8:
		return w.WriteSizedStringU8(unescapeSpecialChars(c.s))
	case KindStringU16:
		return w.WriteSizedStringU16(unescapeSpecialChars(c.s))
	case KindOptionalStringU8:
		return w.WriteOptionalStringU8(unescapeSpecialChars(c.s))
	case KindOptionalStringU16:
		return w.WriteOptionalStringU16(unescapeSpecialChars(c.s))
	case KindSequenceU16, KindSequenceU32:
		if len(c.raw) < k.countPrefixSize() {
			w.WriteRaw(make([]byte, k.countPrefixSize()))
		} else {
			w.WriteRaw(c.raw)
		}
	default:
		return fmt.Errorf("unknown cell kind %v", k)
	}
	return nil
}
