package tabcodec

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/andreyvit/tabcodec/binio"
)

// ConvertBetweenTypes converts the cell to another column type.
//
// Floats become integers saturated at the target width; narrower integers wrap. Only parsing
// text and reframing a sequence against a nested definition can fail. A sequence converts to
// a scalar as that scalar's zero value; a scalar converts to a sequence as an empty one.
func (d DecodedData) ConvertBetweenTypes(target FieldType) (DecodedData, error) {
	src, dst := d.kind, target.Kind
	if src == dst && !src.IsSequence() {
		return d, nil
	}

	switch {
	case src.IsSequence():
		if dst.IsSequence() {
			return reframeSequence(d.raw, src, target)
		}
		return NewFromTypeAndValue(target, nil), nil

	case dst.IsSequence():
		return emptySequence(dst), nil

	case src == KindBoolean:
		switch {
		case dst.IsFloat():
			return floatCell(dst, boolNumber(d.b)), nil
		case dst.IsInteger() || dst.IsOptionalInteger():
			return intCell(dst, int64(boolNumber(d.b))), nil
		case dst == KindColourRGB:
			if d.b {
				return ColourRGB("FFFFFF"), nil
			}
			return ColourRGB("000000"), nil
		case dst.IsText():
			return DecodedData{kind: dst, s: strconv.FormatBool(d.b)}, nil
		}

	case src.IsFloat() || d.isIntegerLike():
		switch {
		case dst == KindBoolean:
			return Bool(d.number() != 0), nil
		case dst.IsFloat():
			return floatCell(dst, d.number()), nil
		case dst.IsInteger() || dst.IsOptionalInteger():
			if src.IsFloat() {
				return intCell(dst, saturateInt(dst, d.f)), nil
			}
			return intCell(dst, d.i), nil
		case dst.IsText():
			return DecodedData{kind: dst, s: d.formatNumber()}, nil
		}

	case src.IsText():
		s := d.s
		switch {
		case dst == KindBoolean:
			v, err := parseBool(s)
			if err != nil {
				return DecodedData{}, err
			}
			return Bool(v), nil
		case dst.IsFloat():
			v, err := strconv.ParseFloat(strings.TrimSpace(s), floatBits(dst))
			if err != nil {
				return DecodedData{}, fmt.Errorf("cannot convert %q to %v: %w", s, dst, err)
			}
			return floatCell(dst, v), nil
		case dst.IsInteger() || dst.IsOptionalInteger():
			v, err := strconv.ParseInt(strings.TrimSpace(s), 10, intBits(dst))
			if err != nil {
				return DecodedData{}, fmt.Errorf("cannot convert %q to %v: %w", s, dst, err)
			}
			return intCell(dst, v), nil
		case dst.IsText():
			return DecodedData{kind: dst, s: s}, nil
		}
	}
	return DecodedData{}, fmt.Errorf("cannot convert %v to %v", src, dst)
}

// saturateInt truncates a float towards zero, clamping it to the width of k.
func saturateInt(k Kind, v float64) int64 {
	switch intBits(k) {
	case 16:
		return int64(lossyCast[int16](v))
	case 32:
		return int64(lossyCast[int32](v))
	default:
		return lossyCast[int64](v)
	}
}

func boolNumber(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func floatCell(k Kind, v float64) DecodedData {
	if k == KindF32 {
		return F32(float32(v))
	}
	return F64(v)
}

// reframeSequence rewrites the row count prefix of a nested table blob at the target width.
// When the target carries a nested definition, the new blob is decoded with it and must
// consume every byte.
func reframeSequence(blob []byte, from Kind, target FieldType) (DecodedData, error) {
	if len(blob) < from.countPrefixSize() {
		return emptySequence(target.Kind), nil
	}
	r := binio.NewReader(blob)
	var count uint64
	if from == KindSequenceU16 {
		count = uint64(must(r.U16()))
	} else {
		count = uint64(must(r.U32()))
	}
	body := r.Buf
	if count > 0 && target.Definition == nil {
		return DecodedData{}, fmt.Errorf("converting %v with %d rows to %v: %w", from, count, target.Kind, ErrNoSequenceDef)
	}

	w := binio.NewWriter(len(body) + target.Kind.countPrefixSize())
	if target.Kind == KindSequenceU16 {
		if count > math.MaxUint16 {
			return DecodedData{}, fmt.Errorf("cannot convert %v with %d rows to %v", from, count, target.Kind)
		}
		w.WriteU16(uint16(count))
	} else {
		w.WriteU32(uint32(count))
	}
	w.WriteRaw(body)
	out := DecodedData{kind: target.Kind, raw: w.Bytes()}

	if target.Definition != nil {
		if _, err := out.NestedRows(target.Definition); err != nil {
			return DecodedData{}, fmt.Errorf("converting %v to %v: %w", from, target.Kind, err)
		}
	}
	return out, nil
}

// NestedRows decodes the nested table held by a sequence cell. The blob must be consumed exactly.
func (d DecodedData) NestedRows(def *Definition) (Rows, error) {
	if !d.kind.IsSequence() {
		return nil, fmt.Errorf("%v cell has no nested rows", d.kind)
	}
	if len(d.raw) < d.kind.countPrefixSize() {
		return nil, nil
	}
	r := binio.NewReader(d.raw)
	var count uint32
	if d.kind == KindSequenceU16 {
		count = uint32(must(r.U16()))
	} else {
		count = must(r.U32())
	}
	rows, _, err := DecodeTable(r, def, &count, false)
	if err != nil {
		return nil, err
	}
	if err := binio.CheckSizeMismatch(r.Len(), r.Off()); err != nil {
		return nil, err
	}
	return rows, nil
}

// NewSequence encodes rows as a nested table blob with a count prefix of kind k.
func NewSequence(k Kind, def *Definition, rows Rows) (DecodedData, error) {
	if !k.IsSequence() {
		return DecodedData{}, fmt.Errorf("%v is not a sequence kind", k)
	}
	w := binio.NewWriter(64)
	if k == KindSequenceU16 {
		if len(rows) > math.MaxUint16 {
			return DecodedData{}, fmt.Errorf("%d rows do not fit %v", len(rows), k)
		}
		w.WriteU16(uint16(len(rows)))
	} else {
		w.WriteU32(uint32(len(rows)))
	}
	if err := EncodeTable(w, def, rows); err != nil {
		return DecodedData{}, err
	}
	return DecodedData{kind: k, raw: w.Bytes()}, nil
}
