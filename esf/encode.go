package esf

import (
	"fmt"
	"math"

	"github.com/andreyvit/tabcodec/binio"
)

// interner assigns indexes in first-seen order.
type interner struct {
	list []string
	idx  map[string]uint32
}

func (in *interner) add(s string) {
	if in.idx == nil {
		in.idx = make(map[string]uint32)
	}
	if _, ok := in.idx[s]; !ok {
		in.idx[s] = uint32(len(in.list))
		in.list = append(in.list, s)
	}
}

type encoder struct {
	names, utf8, utf16 interner
	path               []string
}

// Encode serializes f. Strings and record names are collected from the whole tree first,
// then the nodes are written followed by the string tables.
func (f *File) Encode() ([]byte, error) {
	if !f.Signature.supported() {
		return nil, &UnsupportedSignatureError{f.Signature}
	}
	if f.Root == nil {
		return nil, &EncodeError{Err: fmt.Errorf("%w: no root record", ErrInvalidNode)}
	}

	e := &encoder{}
	e.collect(f.Root)
	if len(e.names.list) > math.MaxUint16 {
		return nil, &EncodeError{Err: fmt.Errorf("%d record names do not fit a u16 count", len(e.names.list))}
	}

	var nodes binio.Writer
	if err := e.writeNode(&nodes, f.Root, true); err != nil {
		return nil, err
	}

	w := binio.NewWriter(headerSize + nodes.Len() + 64*len(e.names.list))
	w.WriteRaw(f.Signature[:])
	w.WriteU32(f.Unknown1)
	w.WriteU32(f.CreationDate)
	w.WriteU32(uint32(headerSize + nodes.Len()))
	w.WriteRaw(nodes.Bytes())
	if err := e.writeStringTables(w, f.Signature.wideStrings()); err != nil {
		return nil, &EncodeError{Err: err}
	}
	return w.Bytes(), nil
}

func (e *encoder) collect(n Node) {
	switch n := n.(type) {
	case UTF16:
		e.utf16.add(string(n))
	case ASCII:
		e.utf8.add(string(n))
	case UTF16Array:
		for _, s := range n {
			e.utf16.add(s)
		}
	case ASCIIArray:
		for _, s := range n {
			e.utf8.add(s)
		}
	case *Record:
		if n == nil {
			return
		}
		e.names.add(n.Name)
		for _, group := range n.Children {
			for _, c := range group {
				e.collect(c)
			}
		}
	}
}

func (e *encoder) writeStringTables(w *binio.Writer, wide bool) error {
	w.WriteU16(uint16(len(e.names.list)))
	for _, s := range e.names.list {
		if err := w.WriteSizedStringU8(s); err != nil {
			return fmt.Errorf("record name: %w", err)
		}
	}

	w.WriteU32(uint32(len(e.utf16.list)))
	for i, s := range e.utf16.list {
		var err error
		if wide {
			err = w.WriteSizedStringU16U32(s)
		} else {
			err = w.WriteSizedStringU16(s)
		}
		if err != nil {
			return fmt.Errorf("UTF-16 string %d: %w", i, err)
		}
		w.WriteU32(uint32(i))
	}

	w.WriteU32(uint32(len(e.utf8.list)))
	for i, s := range e.utf8.list {
		if wide {
			w.WriteSizedStringU8U32(s)
		} else if err := w.WriteSizedStringU8(s); err != nil {
			return fmt.Errorf("ASCII string %d: %w", i, err)
		}
		w.WriteU32(uint32(i))
	}
	return nil
}

func (e *encoder) fail(err error) error {
	return &EncodeError{Path: append([]string(nil), e.path...), Err: err}
}

func (e *encoder) writeNode(w *binio.Writer, n Node, root bool) error {
	switch n := n.(type) {
	case *Record:
		return e.writeRecord(w, n, root)

	case Bool:
		switch {
		case !n.Optimized:
			w.WriteU8(tagBool)
			w.WriteBool(n.Value)
		case n.Value:
			w.WriteU8(tagBoolTrue)
		default:
			w.WriteU8(tagBoolFalse)
		}
	case I8:
		w.WriteU8(tagI8)
		w.WriteI8(int8(n))
	case I16:
		w.WriteU8(tagI16)
		w.WriteI16(int16(n))
	case I32:
		writeI32(w, n)
	case I64:
		w.WriteU8(tagI64)
		w.WriteI64(int64(n))
	case U8:
		w.WriteU8(tagU8)
		w.WriteU8(uint8(n))
	case U16:
		w.WriteU8(tagU16)
		w.WriteU16(uint16(n))
	case U32:
		writeU32(w, n)
	case U64:
		w.WriteU8(tagU64)
		w.WriteU64(uint64(n))
	case F32:
		if n.Optimized && n.Value == 0 {
			w.WriteU8(tagF32Zero)
		} else {
			w.WriteU8(tagF32)
			w.WriteF32(n.Value)
		}
	case F64:
		w.WriteU8(tagF64)
		w.WriteF64(float64(n))
	case Coord2D:
		w.WriteU8(tagCoord2D)
		writeCoord2D(w, n)
	case Coord3D:
		w.WriteU8(tagCoord3D)
		writeCoord3D(w, n)
	case UTF16:
		w.WriteU8(tagUTF16)
		w.WriteU32(e.utf16.idx[string(n)])
	case ASCII:
		w.WriteU8(tagASCII)
		w.WriteU32(e.utf8.idx[string(n)])
	case Angle:
		w.WriteU8(tagAngle)
		w.WriteI16(int16(n))

	case Unknown21:
		w.WriteU8(tagUnknown21)
		w.WriteU32(uint32(n))
	case Unknown23:
		w.WriteU8(tagUnknown23)
		w.WriteU8(uint8(n))
	case Unknown24:
		w.WriteU8(tagUnknown24)
		w.WriteU16(uint16(n))
	case Unknown25:
		w.WriteU8(tagUnknown25)
		w.WriteU32(uint32(n))
	case Unknown26:
		w.WriteU8(tagUnknown26)
		w.WriteRaw(n.Data)
		if n.Sentinel {
			w.WriteU8(unknown26Sentinel)
		}

	case BoolArray:
		writeArray(w, tagBoolArray, n, (*binio.Writer).WriteBool)
	case I8Array:
		writeArray(w, tagI8Array, n, (*binio.Writer).WriteI8)
	case I16Array:
		writeArray(w, tagI16Array, n, (*binio.Writer).WriteI16)
	case I32Array:
		writeI32Array(w, n)
	case I64Array:
		writeArray(w, tagI64Array, n, (*binio.Writer).WriteI64)
	case U8Array:
		w.WriteU8(tagU8Array)
		w.WriteCAULEB128(uint32(len(n)), 0)
		w.WriteRaw(n)
	case U16Array:
		writeArray(w, tagU16Array, n, (*binio.Writer).WriteU16)
	case U32Array:
		writeU32Array(w, n)
	case U64Array:
		writeArray(w, tagU64Array, n, (*binio.Writer).WriteU64)
	case F32Array:
		writeArray(w, tagF32Array, n, (*binio.Writer).WriteF32)
	case F64Array:
		writeArray(w, tagF64Array, n, (*binio.Writer).WriteF64)
	case Coord2DArray:
		writeArray(w, tagCoord2DArray, n, writeCoord2D)
	case Coord3DArray:
		writeArray(w, tagCoord3DArray, n, writeCoord3D)
	case UTF16Array:
		writeArray(w, tagUTF16Array, n, func(w *binio.Writer, s string) { w.WriteU32(e.utf16.idx[s]) })
	case ASCIIArray:
		writeArray(w, tagASCIIArray, n, func(w *binio.Writer, s string) { w.WriteU32(e.utf8.idx[s]) })
	case AngleArray:
		writeArray(w, tagAngleArray, n, (*binio.Writer).WriteI16)

	case nil:
		return e.fail(ErrInvalidNode)
	default:
		return e.fail(fmt.Errorf("%w: %T", ErrInvalidNode, n))
	}
	return nil
}

func (e *encoder) writeRecord(w *binio.Writer, rec *Record, root bool) error {
	if rec == nil {
		return e.fail(ErrInvalidNode)
	}
	flags := rec.Flags&recordFlagsMask | IsRecordNode
	idx := e.names.idx[rec.Name]
	if root || flags.Has(HasNonOptimizedInfo) {
		w.WriteU8(uint8(flags))
		w.WriteU16(uint16(idx))
		w.WriteU8(rec.Version)
	} else {
		if rec.Version > 0x0F || idx > 0x1FF {
			return e.fail(fmt.Errorf("record %s: version %d and name index %d do not fit the packed header", rec.Name, rec.Version, idx))
		}
		info := uint16(flags)<<8 | uint16(rec.Version)<<9 | uint16(idx)
		w.WriteU8(uint8(info >> 8))
		w.WriteU8(uint8(info))
	}

	e.path = append(e.path, rec.Name)
	defer func() { e.path = e.path[:len(e.path)-1] }()

	var body binio.Writer
	if flags.Has(HasNestedBlocks) {
		for _, group := range rec.Children {
			var gw binio.Writer
			if err := e.writeGroup(&gw, group); err != nil {
				return err
			}
			body.WriteCAULEB128(uint32(gw.Len()), 0)
			body.WriteRaw(gw.Bytes())
		}
		w.WriteCAULEB128(uint32(body.Len()), 0)
		w.WriteCAULEB128(uint32(len(rec.Children)), 0)
	} else {
		if len(rec.Children) > 1 {
			return e.fail(fmt.Errorf("record %s has %d groups but no nested blocks flag", rec.Name, len(rec.Children)))
		}
		if len(rec.Children) == 1 {
			if err := e.writeGroup(&body, rec.Children[0]); err != nil {
				return err
			}
		}
		w.WriteCAULEB128(uint32(body.Len()), 0)
	}
	w.WriteRaw(body.Bytes())
	return nil
}

func (e *encoder) writeGroup(w *binio.Writer, group []Node) error {
	for _, n := range group {
		if err := e.writeNode(w, n, false); err != nil {
			return err
		}
	}
	return nil
}

func writeI32(w *binio.Writer, n I32) {
	v := n.Value
	switch {
	case !n.Optimized:
		w.WriteU8(tagI32)
		w.WriteI32(v)
	case v == 0:
		w.WriteU8(tagI32Zero)
	case v >= math.MinInt8 && v <= math.MaxInt8:
		w.WriteU8(tagI32Byte)
		w.WriteI8(int8(v))
	case v >= math.MinInt16 && v <= math.MaxInt16:
		w.WriteU8(tagI32Short)
		w.WriteI16(int16(v))
	case v >= minI24 && v <= maxI24:
		w.WriteU8(tagI32I24)
		w.WriteI24(v)
	default:
		w.WriteU8(tagI32)
		w.WriteI32(v)
	}
}

func writeU32(w *binio.Writer, n U32) {
	v := n.Value
	switch {
	case !n.Optimized:
		w.WriteU8(tagU32)
		w.WriteU32(v)
	case v == 0:
		w.WriteU8(tagU32Zero)
	case v == 1:
		w.WriteU8(tagU32One)
	case v <= math.MaxUint8:
		w.WriteU8(tagU32Byte)
		w.WriteU8(uint8(v))
	case v <= math.MaxUint16:
		w.WriteU8(tagU32Short)
		w.WriteU16(uint16(v))
	case v <= maxU24:
		w.WriteU8(tagU32U24)
		w.WriteU24(v)
	default:
		w.WriteU8(tagU32)
		w.WriteU32(v)
	}
}

const (
	minI24 = -1 << 23
	maxI24 = 1<<23 - 1
	maxU24 = 1<<24 - 1
)

// writeI32Array picks the element width from the largest magnitude, so -128 takes two bytes.
func writeI32Array(w *binio.Writer, n I32Array) {
	if !n.Optimized {
		writeArray(w, tagI32Array, n.Values, (*binio.Writer).WriteI32)
		return
	}
	var mag int64
	for _, v := range n.Values {
		mag = max(mag, abs(int64(v)))
	}
	switch {
	case mag <= math.MaxInt8:
		writeArray(w, tagI32ByteArray, n.Values, func(w *binio.Writer, v int32) { w.WriteI8(int8(v)) })
	case mag <= math.MaxInt16:
		writeArray(w, tagI32ShortArray, n.Values, func(w *binio.Writer, v int32) { w.WriteI16(int16(v)) })
	case mag <= maxI24:
		writeArray(w, tagI32I24Array, n.Values, (*binio.Writer).WriteI24)
	default:
		writeArray(w, tagI32Array, n.Values, (*binio.Writer).WriteI32)
	}
}

// writeU32Array uses a narrower width only when the maximum is strictly below its limit.
func writeU32Array(w *binio.Writer, n U32Array) {
	if !n.Optimized {
		writeArray(w, tagU32Array, n.Values, (*binio.Writer).WriteU32)
		return
	}
	var top uint32
	for _, v := range n.Values {
		top = max(top, v)
	}
	switch {
	case top < math.MaxUint8:
		writeArray(w, tagU32ByteArray, n.Values, func(w *binio.Writer, v uint32) { w.WriteU8(uint8(v)) })
	case top < math.MaxUint16:
		writeArray(w, tagU32ShortArray, n.Values, func(w *binio.Writer, v uint32) { w.WriteU16(uint16(v)) })
	case top < maxU24:
		writeArray(w, tagU32U24Array, n.Values, (*binio.Writer).WriteU24)
	default:
		writeArray(w, tagU32Array, n.Values, (*binio.Writer).WriteU32)
	}
}

func writeArray[S ~[]T, T any](w *binio.Writer, tag byte, values S, write func(*binio.Writer, T)) {
	var body binio.Writer
	for _, v := range values {
		write(&body, v)
	}
	w.WriteU8(tag)
	w.WriteCAULEB128(uint32(body.Len()), 0)
	w.WriteRaw(body.Bytes())
}

func writeCoord2D(w *binio.Writer, c Coord2D) {
	w.WriteF32(c.X)
	w.WriteF32(c.Y)
}

func writeCoord3D(w *binio.Writer, c Coord3D) {
	w.WriteF32(c.X)
	w.WriteF32(c.Y)
	w.WriteF32(c.Z)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
