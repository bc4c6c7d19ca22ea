package binio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Reader is a cursor over an in-memory byte slice. All multi-byte values are little-endian.
//
// Orig is the whole input, Buf is the unread tail; Off() is the absolute position.
type Reader struct {
	Orig []byte
	Buf  []byte
}

func NewReader(data []byte) *Reader {
	return &Reader{data, data}
}

func (r *Reader) Off() int {
	return len(r.Orig) - len(r.Buf)
}

func (r *Reader) Len() int {
	return len(r.Orig)
}

func (r *Reader) Remaining() int {
	return len(r.Buf)
}

// Seek moves the cursor to an absolute position. Seeking to Len() is allowed.
func (r *Reader) Seek(off int) error {
	if off < 0 || off > len(r.Orig) {
		return Errorf(r.Orig, r.Off(), nil, "seek to %d out of bounds (length %d)", off, len(r.Orig))
	}
	r.Buf = r.Orig[off:]
	return nil
}

func (r *Reader) SeekRel(delta int) error {
	return r.Seek(r.Off() + delta)
}

// Raw returns the next n bytes without copying.
func (r *Reader) Raw(n int) ([]byte, error) {
	if n < 0 || len(r.Buf) < n {
		return nil, Errorf(r.Orig, r.Off(), ErrUnexpectedEOF, "not enough data: %d bytes remaining, %d wanted", len(r.Buf), n)
	}
	v := r.Buf[:n]
	r.Buf = r.Buf[n:]
	return v, nil
}

// Span returns a copy of Orig[from:to].
func (r *Reader) Span(from, to int) ([]byte, error) {
	if from < 0 || to < from || to > len(r.Orig) {
		return nil, Errorf(r.Orig, r.Off(), nil, "span %d..%d out of bounds (length %d)", from, to, len(r.Orig))
	}
	return bytes.Clone(r.Orig[from:to]), nil
}

func (r *Reader) Bool() (bool, error) {
	off := r.Off()
	v, err := r.U8()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, Errorf(r.Orig, off, nil, "invalid bool byte %d", v)
	}
}

func (r *Reader) U8() (uint8, error) {
	b, err := r.Raw(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

func (r *Reader) U16() (uint16, error) {
	b, err := r.Raw(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

func (r *Reader) U24() (uint32, error) {
	b, err := r.Raw(3)
	if err != nil {
		return 0, err
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16, nil
}

func (r *Reader) I24() (int32, error) {
	v, err := r.U24()
	return int32(v<<8) >> 8, err
}

func (r *Reader) U32() (uint32, error) {
	b, err := r.Raw(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

func (r *Reader) U64() (uint64, error) {
	b, err := r.Raw(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) I64() (int64, error) {
	v, err := r.U64()
	return int64(v), err
}

func (r *Reader) F32() (float32, error) {
	v, err := r.U32()
	return math.Float32frombits(v), err
}

func (r *Reader) F64() (float64, error) {
	v, err := r.U64()
	return math.Float64frombits(v), err
}

// OptionalI16 reads a presence flag followed by the value. The value is always present on disk.
func (r *Reader) OptionalI16() (int16, error) {
	if _, err := r.Bool(); err != nil {
		return 0, err
	}
	return r.I16()
}

func (r *Reader) OptionalI32() (int32, error) {
	if _, err := r.Bool(); err != nil {
		return 0, err
	}
	return r.I32()
}

func (r *Reader) OptionalI64() (int64, error) {
	if _, err := r.Bool(); err != nil {
		return 0, err
	}
	return r.I64()
}

// CAULEB128 reads the variable-length unsigned integer used by ESF for sizes and counts.
// Groups of 7 bits are stored most significant first; every byte except the last has 0x80 set.
func (r *Reader) CAULEB128() (uint32, error) {
	start := r.Off()
	var v uint32
	for {
		b, err := r.U8()
		if err != nil {
			return 0, err
		}
		if v > math.MaxUint32>>7 {
			return 0, Errorf(r.Orig, start, nil, "cauleb128 value overflows u32")
		}
		v = v<<7 | uint32(b&0x7F)
		if b&0x80 == 0 {
			return v, nil
		}
	}
}

// StringU8 reads n bytes of UTF-8 text.
func (r *Reader) StringU8(n int) (string, error) {
	off := r.Off()
	b, err := r.Raw(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", Errorf(r.Orig, off, nil, "invalid UTF-8 string of %d bytes", n)
	}
	return string(b), nil
}

// SizedStringU8 reads a u16 byte count followed by UTF-8 text.
func (r *Reader) SizedStringU8() (string, error) {
	n, err := r.U16()
	if err != nil {
		return "", err
	}
	return r.StringU8(int(n))
}

// SizedStringU8U32 reads a u32 byte count followed by UTF-8 text.
func (r *Reader) SizedStringU8U32() (string, error) {
	n, err := r.U32()
	if err != nil {
		return "", err
	}
	return r.StringU8(int(n))
}

func (r *Reader) OptionalStringU8() (string, error) {
	present, err := r.Bool()
	if err != nil || !present {
		return "", err
	}
	return r.SizedStringU8()
}

// StringU16 reads n bytes of UTF-16LE text.
func (r *Reader) StringU16(n int) (string, error) {
	off := r.Off()
	if n%2 != 0 {
		return "", Errorf(r.Orig, off, nil, "odd UTF-16 byte length %d", n)
	}
	b, err := r.Raw(n)
	if err != nil {
		return "", err
	}
	s, err := utf16LE.NewDecoder().Bytes(b)
	if err != nil {
		return "", Errorf(r.Orig, off, err, "invalid UTF-16 string of %d bytes", n)
	}
	return string(s), nil
}

// SizedStringU16 reads a u16 count of UTF-16 code units followed by UTF-16LE text.
func (r *Reader) SizedStringU16() (string, error) {
	n, err := r.U16()
	if err != nil {
		return "", err
	}
	return r.StringU16(int(n) * 2)
}

// SizedStringU16U32 reads a u32 count of UTF-16 code units followed by UTF-16LE text.
func (r *Reader) SizedStringU16U32() (string, error) {
	n, err := r.U32()
	if err != nil {
		return "", err
	}
	if uint64(n)*2 > uint64(len(r.Buf)) {
		return "", Errorf(r.Orig, r.Off(), ErrUnexpectedEOF, "UTF-16 string of %d code units exceeds remaining %d bytes", n, len(r.Buf))
	}
	return r.StringU16(int(n) * 2)
}

func (r *Reader) OptionalStringU16() (string, error) {
	present, err := r.Bool()
	if err != nil || !present {
		return "", err
	}
	return r.SizedStringU16()
}

// StringU8ZeroTerminated reads up to and including the first 0x00. Invalid UTF-8 is replaced, not rejected.
func (r *Reader) StringU8ZeroTerminated() (string, error) {
	i := bytes.IndexByte(r.Buf, 0)
	if i < 0 {
		return "", Errorf(r.Orig, r.Off(), ErrUnexpectedEOF, "zero-terminated string has no terminator")
	}
	s := strings.ToValidUTF8(string(r.Buf[:i]), "�")
	r.Buf = r.Buf[i+1:]
	return s, nil
}

// StringU8ZeroPadded reads a fixed n-byte field and returns the text before the first 0x00.
func (r *Reader) StringU8ZeroPadded(n int) (string, error) {
	off := r.Off()
	b, err := r.Raw(n)
	if err != nil {
		return "", err
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	if !utf8.Valid(b) {
		return "", Errorf(r.Orig, off, nil, "invalid UTF-8 in zero-padded string")
	}
	return string(b), nil
}

// StringU8ISO8859_15 reads n bytes of ISO-8859-15 text.
func (r *Reader) StringU8ISO8859_15(n int) (string, error) {
	off := r.Off()
	b, err := r.Raw(n)
	if err != nil {
		return "", err
	}
	s, err := charmap.ISO8859_15.NewDecoder().Bytes(b)
	if err != nil {
		return "", Errorf(r.Orig, off, err, "invalid ISO-8859-15 string")
	}
	return string(s), nil
}

// ColourRGB reads a u32 and formats it as six uppercase hex digits.
func (r *Reader) ColourRGB() (string, error) {
	v, err := r.U32()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06X", v), nil
}
