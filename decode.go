package tabcodec

import (
	"strconv"

	"github.com/andreyvit/tabcodec/binio"
)

// DecodeStatus describes how much of a table DecodeTable produced.
type DecodeStatus struct {
	Declared uint32
	Decoded  uint32

	// Incomplete is set when a salvage decode stopped early. Partial holds the cells of the
	// row that failed, up to the first one that could not be filled.
	Incomplete bool
	Partial    Row
}

// DecodeTable reads rows laid out per def.
//
// If entryCount is nil, a u32 row count is read first. If returnIncomplete is set, a field
// that fails to decode ends the table without an error; the rows decoded so far are returned
// and status.Incomplete is set.
func DecodeTable(r *binio.Reader, def *Definition, entryCount *uint32, returnIncomplete bool) (Rows, DecodeStatus, error) {
	var status DecodeStatus
	if entryCount != nil {
		status.Declared = *entryCount
	} else {
		n, err := r.U32()
		if err != nil {
			return nil, status, err
		}
		status.Declared = n
	}

	l := def.layout()
	width := len(l.processed)
	firstColour := width - len(l.groups)

	// a corrupt count must not drive a huge allocation
	capHint := status.Declared
	if remaining := uint32(r.Remaining()); capHint > remaining {
		capHint = remaining
	}
	rows := make(Rows, 0, capHint)

	var colours [][4]uint8
	if len(l.groups) > 0 {
		colours = make([][4]uint8, len(l.groups))
	}

	for ri := uint32(0); ri < status.Declared; ri++ {
		row := make(Row, width)
		clear(colours)
		filled := 0
		for fi := range def.Fields {
			f := &def.Fields[fi]
			plan := &l.plans[fi]
			if plan.exp == expandColour && plan.channel == channelNone {
				return nil, status, &FieldDecodeError{Row: int(ri) + 1, Column: fi + 1, Field: f.Name, Expected: f.Type, Err: ErrColourChannel}
			}
			v, err := decodeValue(r, &f.Type)
			if err != nil {
				err = &FieldDecodeError{Row: int(ri) + 1, Column: fi + 1, Field: f.Name, Expected: f.Type, Err: err}
				if returnIncomplete {
					status.Incomplete = true
					status.Partial = row[:filled]
					return rows, status, nil
				}
				return nil, status, err
			}

			switch plan.exp {
			case expandBitwise:
				for k := 0; k < plan.count; k++ {
					row[plan.column+k] = Bool(v.i>>k&1 == 1)
				}
			case expandEnum:
				if label, ok := f.EnumValues[int32(v.i)]; ok {
					row[plan.column] = StringU8(label)
				} else {
					row[plan.column] = StringU8(strconv.FormatInt(v.i, 10))
				}
			case expandColour:
				colours[plan.column-firstColour][plan.channel] = channelByte(v)
			default:
				row[plan.column] = v
			}
			if plan.exp != expandColour {
				filled = plan.column + plan.count
			}
		}
		for gi, g := range l.groups {
			row[g.column] = ColourRGB(g.hex(colours[gi]))
		}
		rows = append(rows, row)
		status.Decoded++
	}
	return rows, status, nil
}

// channelByte truncates a raw colour channel value to a byte.
func channelByte(v DecodedData) uint8 {
	if v.kind.IsFloat() {
		return lossyCast[uint8](v.f)
	}
	return uint8(v.i)
}

func decodeValue(r *binio.Reader, ft *FieldType) (DecodedData, error) {
	switch ft.Kind {
	case KindBoolean:
		v, err := r.Bool()
		return Bool(v), err
	case KindF32:
		v, err := r.F32()
		return F32(v), err
	case KindF64:
		v, err := r.F64()
		return F64(v), err
	case KindI16:
		v, err := r.I16()
		return I16(v), err
	case KindI32:
		v, err := r.I32()
		return I32(v), err
	case KindI64:
		v, err := r.I64()
		return I64(v), err
	case KindOptionalI16:
		v, err := r.OptionalI16()
		return OptionalI16(v), err
	case KindOptionalI32:
		v, err := r.OptionalI32()
		return OptionalI32(v), err
	case KindOptionalI64:
		v, err := r.OptionalI64()
		return OptionalI64(v), err
	case KindColourRGB:
		v, err := r.ColourRGB()
		return ColourRGB(v), err
	case KindStringU8:
		v, err := r.SizedStringU8()
		return StringU8(escapeSpecialChars(v)), err
	case KindStringU16:
		v, err := r.SizedStringU16()
		return StringU16(escapeSpecialChars(v)), err
	case KindOptionalStringU8:
		v, err := r.OptionalStringU8()
		return OptionalStringU8(escapeSpecialChars(v)), err
	case KindOptionalStringU16:
		v, err := r.OptionalStringU16()
		return OptionalStringU16(escapeSpecialChars(v)), err
	case KindSequenceU16, KindSequenceU32:
		return decodeSequence(r, ft)
	default:
		return DecodedData{}, binio.Errorf(r.Orig, r.Off(), nil, "unknown field kind %v", ft.Kind)
	}
}

// decodeSequence decodes the nested table to validate its framing, then keeps its bytes.
func decodeSequence(r *binio.Reader, ft *FieldType) (DecodedData, error) {
	start := r.Off()
	var count uint32
	if ft.Kind == KindSequenceU16 {
		n, err := r.U16()
		if err != nil {
			return DecodedData{}, err
		}
		count = uint32(n)
	} else {
		n, err := r.U32()
		if err != nil {
			return DecodedData{}, err
		}
		count = n
	}
	def := ft.Definition
	if def == nil {
		if count > 0 {
			return DecodedData{}, binio.Errorf(r.Orig, start, ErrNoSequenceDef, "nested table of %d rows", count)
		}
		def = &Definition{}
	}
	if _, _, err := DecodeTable(r, def, &count, false); err != nil {
		return DecodedData{}, err
	}
	blob, err := r.Span(start, r.Off())
	if err != nil {
		return DecodedData{}, err
	}
	return DecodedData{kind: ft.Kind, raw: blob}, nil
}
