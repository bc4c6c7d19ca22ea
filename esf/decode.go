package esf

import (
	"bytes"

	"github.com/andreyvit/tabcodec/binio"
)

type decoder struct {
	r     *binio.Reader
	names []string
	utf8  map[uint32]string
	utf16 map[uint32]string
}

// Decode parses a whole ESF file. Every record must end exactly where its size says it does,
// and the node tree must end exactly where the string tables begin.
func Decode(data []byte) (*File, error) {
	r := binio.NewReader(data)
	raw, err := r.Raw(4)
	if err != nil {
		return nil, err
	}
	f := &File{Signature: Signature(raw)}
	if !f.Signature.supported() {
		return nil, &UnsupportedSignatureError{f.Signature}
	}
	if f.Unknown1, err = r.U32(); err != nil {
		return nil, err
	}
	if f.CreationDate, err = r.U32(); err != nil {
		return nil, err
	}
	namesOff, err := r.U32()
	if err != nil {
		return nil, err
	}
	nodesOff := r.Off()

	d := &decoder{r: r}
	if err := r.Seek(int(namesOff)); err != nil {
		return nil, err
	}
	if err := d.readStringTables(f.Signature.wideStrings()); err != nil {
		return nil, err
	}
	if r.Remaining() != 0 {
		return nil, binio.Errorf(data, r.Off(), binio.CheckSizeMismatch(r.Len(), r.Off()), "trailing data after string tables")
	}

	ensure(r.Seek(nodesOff))
	root, err := d.readNode(true)
	if err != nil {
		return nil, err
	}
	if r.Off() != int(namesOff) {
		return nil, binio.Errorf(data, r.Off(), binio.CheckSizeMismatch(int(namesOff), r.Off()), "node tree does not end at the string tables")
	}
	rec, ok := root.(*Record)
	if !ok {
		return nil, binio.Errorf(data, nodesOff, nil, "root node is %T, not a record", root)
	}
	f.Root = rec
	return f, nil
}

func (d *decoder) readStringTables(wide bool) error {
	r := d.r
	n, err := r.U16()
	if err != nil {
		return err
	}
	d.names = make([]string, 0, n)
	for range n {
		s, err := r.SizedStringU8()
		if err != nil {
			return err
		}
		d.names = append(d.names, s)
	}

	readUTF16, readUTF8 := r.SizedStringU16, r.SizedStringU8
	if wide {
		readUTF16, readUTF8 = r.SizedStringU16U32, r.SizedStringU8U32
	}
	if d.utf16, err = readStringTable(r, readUTF16); err != nil {
		return err
	}
	if d.utf8, err = readStringTable(r, readUTF8); err != nil {
		return err
	}
	return nil
}

func readStringTable(r *binio.Reader, read func() (string, error)) (map[uint32]string, error) {
	n, err := r.U32()
	if err != nil {
		return nil, err
	}
	m := make(map[uint32]string, min(int(n), r.Remaining()/6))
	for range n {
		s, err := read()
		if err != nil {
			return nil, err
		}
		idx, err := r.U32()
		if err != nil {
			return nil, err
		}
		m[idx] = s
	}
	return m, nil
}

func (d *decoder) lookup(table map[uint32]string, kind string) (string, error) {
	off := d.r.Off()
	idx, err := d.r.U32()
	if err != nil {
		return "", err
	}
	s, ok := table[idx]
	if !ok {
		return "", binio.Errorf(d.r.Orig, off, nil, "%s string %d not found", kind, idx)
	}
	return s, nil
}

func (d *decoder) readNode(root bool) (Node, error) {
	r := d.r
	start := r.Off()
	tag, err := r.U8()
	if err != nil {
		return nil, err
	}
	if RecordFlags(tag).Has(IsRecordNode) {
		return d.readRecord(tag, root)
	}

	switch tag {
	case tagBool:
		v, err := r.Bool()
		return Bool{Value: v}, err
	case tagI8:
		v, err := r.I8()
		return I8(v), err
	case tagI16:
		v, err := r.I16()
		return I16(v), err
	case tagI32:
		v, err := r.I32()
		return I32{Value: v}, err
	case tagI64:
		v, err := r.I64()
		return I64(v), err
	case tagU8:
		v, err := r.U8()
		return U8(v), err
	case tagU16:
		v, err := r.U16()
		return U16(v), err
	case tagU32:
		v, err := r.U32()
		return U32{Value: v}, err
	case tagU64:
		v, err := r.U64()
		return U64(v), err
	case tagF32:
		v, err := r.F32()
		return F32{Value: v}, err
	case tagF64:
		v, err := r.F64()
		return F64(v), err
	case tagCoord2D:
		return readCoord2D(r)
	case tagCoord3D:
		return readCoord3D(r)
	case tagUTF16:
		s, err := d.lookup(d.utf16, "UTF-16")
		return UTF16(s), err
	case tagASCII:
		s, err := d.lookup(d.utf8, "ASCII")
		return ASCII(s), err
	case tagAngle:
		v, err := r.I16()
		return Angle(v), err

	case tagBoolTrue:
		return Bool{Value: true, Optimized: true}, nil
	case tagBoolFalse:
		return Bool{Value: false, Optimized: true}, nil
	case tagU32Zero:
		return U32{Value: 0, Optimized: true}, nil
	case tagU32One:
		return U32{Value: 1, Optimized: true}, nil
	case tagU32Byte:
		v, err := r.U8()
		return U32{Value: uint32(v), Optimized: true}, err
	case tagU32Short:
		v, err := r.U16()
		return U32{Value: uint32(v), Optimized: true}, err
	case tagU32U24:
		v, err := r.U24()
		return U32{Value: v, Optimized: true}, err
	case tagI32Zero:
		return I32{Value: 0, Optimized: true}, nil
	case tagI32Byte:
		v, err := r.I8()
		return I32{Value: int32(v), Optimized: true}, err
	case tagI32Short:
		v, err := r.I16()
		return I32{Value: int32(v), Optimized: true}, err
	case tagI32I24:
		v, err := r.I24()
		return I32{Value: v, Optimized: true}, err
	case tagF32Zero:
		return F32{Value: 0, Optimized: true}, nil

	case tagUnknown21:
		v, err := r.U32()
		return Unknown21(v), err
	case tagUnknown23:
		v, err := r.U8()
		return Unknown23(v), err
	case tagUnknown24:
		v, err := r.U16()
		return Unknown24(v), err
	case tagUnknown25:
		v, err := r.U32()
		return Unknown25(v), err
	case tagUnknown26:
		return readUnknown26(r)

	case tagBoolArray:
		v, err := readArray(r, r.Bool)
		return BoolArray(v), err
	case tagI8Array:
		b, err := readBytes(r)
		if err != nil || b == nil {
			return I8Array(nil), err
		}
		v := make(I8Array, len(b))
		for i, c := range b {
			v[i] = int8(c)
		}
		return v, nil
	case tagI16Array:
		v, err := readArray(r, r.I16)
		return I16Array(v), err
	case tagI32Array:
		v, err := readArray(r, r.I32)
		return I32Array{Values: v}, err
	case tagI64Array:
		v, err := readArray(r, r.I64)
		return I64Array(v), err
	case tagU8Array:
		v, err := readBytes(r)
		return U8Array(v), err
	case tagU16Array:
		v, err := readArray(r, r.U16)
		return U16Array(v), err
	case tagU32Array:
		v, err := readArray(r, r.U32)
		return U32Array{Values: v}, err
	case tagU64Array:
		v, err := readArray(r, r.U64)
		return U64Array(v), err
	case tagF32Array:
		v, err := readArray(r, r.F32)
		return F32Array(v), err
	case tagF64Array:
		v, err := readArray(r, r.F64)
		return F64Array(v), err
	case tagCoord2DArray:
		v, err := readArray(r, func() (Coord2D, error) { return readCoord2D(r) })
		return Coord2DArray(v), err
	case tagCoord3DArray:
		v, err := readArray(r, func() (Coord3D, error) { return readCoord3D(r) })
		return Coord3DArray(v), err
	case tagUTF16Array:
		v, err := readArray(r, func() (string, error) { return d.lookup(d.utf16, "UTF-16") })
		return UTF16Array(v), err
	case tagASCIIArray:
		v, err := readArray(r, func() (string, error) { return d.lookup(d.utf8, "ASCII") })
		return ASCIIArray(v), err
	case tagAngleArray:
		v, err := readArray(r, r.I16)
		return AngleArray(v), err

	case tagU32ByteArray:
		v, err := readArray(r, func() (uint32, error) {
			v, err := r.U8()
			return uint32(v), err
		})
		return U32Array{Values: v, Optimized: true}, err
	case tagU32ShortArray:
		v, err := readArray(r, func() (uint32, error) {
			v, err := r.U16()
			return uint32(v), err
		})
		return U32Array{Values: v, Optimized: true}, err
	case tagU32U24Array:
		v, err := readArray(r, r.U24)
		return U32Array{Values: v, Optimized: true}, err
	case tagI32ByteArray:
		v, err := readArray(r, func() (int32, error) {
			v, err := r.I8()
			return int32(v), err
		})
		return I32Array{Values: v, Optimized: true}, err
	case tagI32ShortArray:
		v, err := readArray(r, func() (int32, error) {
			v, err := r.I16()
			return int32(v), err
		})
		return I32Array{Values: v, Optimized: true}, err
	case tagI32I24Array:
		v, err := readArray(r, r.I24)
		return I32Array{Values: v, Optimized: true}, err

	default:
		return nil, binio.Errorf(r.Orig, start, nil, "unsupported node type 0x%02x", tag)
	}
}

func (d *decoder) readRecord(tag byte, root bool) (Node, error) {
	r := d.r
	start := r.Off() - 1
	rec := &Record{Flags: RecordFlags(tag) & recordFlagsMask}

	var nameIdx uint16
	var err error
	if root || rec.Flags.Has(HasNonOptimizedInfo) {
		if nameIdx, err = r.U16(); err != nil {
			return nil, err
		}
		if rec.Version, err = r.U8(); err != nil {
			return nil, err
		}
	} else {
		// packed: flags:3 version:4 name:9
		rec.Version = (tag & 0x1E) >> 1
		lo, err := r.U8()
		if err != nil {
			return nil, err
		}
		nameIdx = uint16(tag&1)<<8 | uint16(lo)
	}
	if int(nameIdx) >= len(d.names) {
		return nil, binio.Errorf(r.Orig, start, nil, "record name %d not found (%d names)", nameIdx, len(d.names))
	}
	rec.Name = d.names[nameIdx]

	size, err := r.CAULEB128()
	if err != nil {
		return nil, err
	}
	nested := rec.Flags.Has(HasNestedBlocks)
	groups := uint32(1)
	if nested {
		if groups, err = r.CAULEB128(); err != nil {
			return nil, err
		}
	}
	blockEnd := r.Off() + int(size)
	if blockEnd > r.Len() {
		return nil, binio.Errorf(r.Orig, start, binio.ErrUnexpectedEOF, "record %s of %d bytes exceeds the data", rec.Name, size)
	}

	rec.Children = make([][]Node, 0, min(int(groups), blockEnd-r.Off()+1))
	for i := range groups {
		entryEnd := blockEnd
		if nested {
			n, err := r.CAULEB128()
			if err != nil {
				return nil, err
			}
			entryEnd = r.Off() + int(n)
		}
		var group []Node
		for r.Off() < entryEnd {
			child, err := d.readNode(false)
			if err != nil {
				return nil, err
			}
			group = append(group, child)
		}
		if err := binio.CheckSizeMismatch(entryEnd, r.Off()); err != nil {
			return nil, binio.Errorf(r.Orig, r.Off(), err, "record %s group %d", rec.Name, i)
		}
		rec.Children = append(rec.Children, group)
	}
	if err := binio.CheckSizeMismatch(blockEnd, r.Off()); err != nil {
		return nil, binio.Errorf(r.Orig, r.Off(), err, "record %s", rec.Name)
	}
	return rec, nil
}

// readUnknown26 reproduces the framing inferred from sample saves: the first byte selects the
// length, and a following 0x9C is swallowed.
//
// TODO: confirm the 0x26 framing against saves that contain the tag with other first bytes.
func readUnknown26(r *binio.Reader) (Node, error) {
	first, err := r.U8()
	if err != nil {
		return nil, err
	}
	n := 7
	if first%8 == 0 && first != 0 {
		n = int(first)
	}
	rest, err := r.Raw(n)
	if err != nil {
		return nil, err
	}
	v := Unknown26{Data: append([]byte{first}, rest...)}
	if len(r.Buf) > 0 && r.Buf[0] == unknown26Sentinel {
		r.Buf = r.Buf[1:]
		v.Sentinel = true
	}
	return v, nil
}

func readCoord2D(r *binio.Reader) (Coord2D, error) {
	var c Coord2D
	var err error
	if c.X, err = r.F32(); err != nil {
		return c, err
	}
	c.Y, err = r.F32()
	return c, err
}

func readCoord3D(r *binio.Reader) (Coord3D, error) {
	var c Coord3D
	var err error
	if c.X, err = r.F32(); err != nil {
		return c, err
	}
	if c.Y, err = r.F32(); err != nil {
		return c, err
	}
	c.Z, err = r.F32()
	return c, err
}

// arrayEnd reads an array's cauleb128 byte size and returns where the array ends.
func arrayEnd(r *binio.Reader) (int, error) {
	start := r.Off()
	size, err := r.CAULEB128()
	if err != nil {
		return 0, err
	}
	end := r.Off() + int(size)
	if end > r.Len() {
		return 0, binio.Errorf(r.Orig, start, binio.ErrUnexpectedEOF, "array of %d bytes exceeds the data", size)
	}
	return end, nil
}

func readArray[T any](r *binio.Reader, read func() (T, error)) ([]T, error) {
	end, err := arrayEnd(r)
	if err != nil {
		return nil, err
	}
	var out []T
	for r.Off() < end {
		v, err := read()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := binio.CheckSizeMismatch(end, r.Off()); err != nil {
		return nil, binio.Errorf(r.Orig, r.Off(), err, "array elements overrun the array size")
	}
	return out, nil
}

func readBytes(r *binio.Reader) ([]byte, error) {
	end, err := arrayEnd(r)
	if err != nil {
		return nil, err
	}
	b, err := r.Raw(end - r.Off())
	if err != nil || len(b) == 0 {
		return nil, err
	}
	return bytes.Clone(b), nil
}

func ensure(err error) {
	if err != nil {
		panic(err)
	}
}
