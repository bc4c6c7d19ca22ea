package binio

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/encoding/charmap"
)

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

// Writer accumulates little-endian encoded values. The zero value is ready to use.
type Writer struct {
	Buf []byte
}

func NewWriter(capacity int) *Writer {
	return &Writer{Buf: make([]byte, 0, capacity)}
}

func (w *Writer) Len() int {
	return len(w.Buf)
}

func (w *Writer) Bytes() []byte {
	return w.Buf
}

func (w *Writer) EnsureExtra(n int) {
	w.Buf = ensureCapacity(w.Buf, len(w.Buf)+n)
}

func (w *Writer) Grow(n int) (off int) {
	off, w.Buf = grow(w.Buf, n)
	return
}

func (w *Writer) Trim(off int) {
	w.Buf = w.Buf[:off]
}

func (w *Writer) Write(b []byte) (int, error) {
	w.WriteRaw(b)
	return len(b), nil
}

func (w *Writer) WriteRaw(b []byte) {
	off := w.Grow(len(b))
	copy(w.Buf[off:], b)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteU8(1)
	} else {
		w.WriteU8(0)
	}
}

func (w *Writer) WriteU8(v uint8) {
	off := w.Grow(1)
	w.Buf[off] = v
}

func (w *Writer) WriteI8(v int8) {
	w.WriteU8(uint8(v))
}

func (w *Writer) WriteU16(v uint16) {
	off := w.Grow(2)
	binary.LittleEndian.PutUint16(w.Buf[off:], v)
}

func (w *Writer) WriteI16(v int16) {
	w.WriteU16(uint16(v))
}

func (w *Writer) WriteU24(v uint32) {
	off := w.Grow(3)
	w.Buf[off] = byte(v)
	w.Buf[off+1] = byte(v >> 8)
	w.Buf[off+2] = byte(v >> 16)
}

func (w *Writer) WriteI24(v int32) {
	w.WriteU24(uint32(v))
}

func (w *Writer) WriteU32(v uint32) {
	off := w.Grow(4)
	binary.LittleEndian.PutUint32(w.Buf[off:], v)
}

func (w *Writer) WriteI32(v int32) {
	w.WriteU32(uint32(v))
}

func (w *Writer) WriteU64(v uint64) {
	off := w.Grow(8)
	binary.LittleEndian.PutUint64(w.Buf[off:], v)
}

func (w *Writer) WriteI64(v int64) {
	w.WriteU64(uint64(v))
}

func (w *Writer) WriteF32(v float32) {
	w.WriteU32(math.Float32bits(v))
}

func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// WriteOptionalI16 always marks the value as present.
func (w *Writer) WriteOptionalI16(v int16) {
	w.WriteBool(true)
	w.WriteI16(v)
}

func (w *Writer) WriteOptionalI32(v int32) {
	w.WriteBool(true)
	w.WriteI32(v)
}

func (w *Writer) WriteOptionalI64(v int64) {
	w.WriteBool(true)
	w.WriteI64(v)
}

// WriteCAULEB128 writes v in the format read by Reader.CAULEB128. If padding is larger than
// the minimal encoding, the value is left-padded with empty continuation bytes up to padding bytes.
func (w *Writer) WriteCAULEB128(v uint32, padding int) {
	var tmp [16]byte
	n := 0
	for {
		tmp[n] = byte(v&0x7F) | 0x80
		n++
		v >>= 7
		if v == 0 {
			break
		}
	}
	for n < padding && n < len(tmp) {
		tmp[n] = 0x80
		n++
	}
	tmp[0] &= 0x7F
	for i := n - 1; i >= 0; i-- {
		w.WriteU8(tmp[i])
	}
}

func (w *Writer) WriteStringU8(s string) {
	off := w.Grow(len(s))
	copy(w.Buf[off:], s)
}

// WriteSizedStringU8 writes a u16 byte count followed by the UTF-8 text.
func (w *Writer) WriteSizedStringU8(s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("string of %d bytes does not fit a u16 length prefix", len(s))
	}
	w.WriteU16(uint16(len(s)))
	w.WriteStringU8(s)
	return nil
}

// WriteSizedStringU8U32 writes a u32 byte count followed by the UTF-8 text.
func (w *Writer) WriteSizedStringU8U32(s string) {
	w.WriteU32(uint32(len(s)))
	w.WriteStringU8(s)
}

// WriteOptionalStringU8 writes a lone false for an empty string.
func (w *Writer) WriteOptionalStringU8(s string) error {
	if s == "" {
		w.WriteBool(false)
		return nil
	}
	w.WriteBool(true)
	return w.WriteSizedStringU8(s)
}

func encodeUTF16(s string) ([]byte, error) {
	return utf16LE.NewEncoder().Bytes([]byte(s))
}

// WriteStringU16 writes UTF-16LE text without a prefix and returns the number of code units written.
func (w *Writer) WriteStringU16(s string) (int, error) {
	b, err := encodeUTF16(s)
	if err != nil {
		return 0, fmt.Errorf("cannot encode %q as UTF-16: %w", s, err)
	}
	w.WriteRaw(b)
	return len(b) / 2, nil
}

// WriteSizedStringU16 writes a u16 code unit count followed by UTF-16LE text.
func (w *Writer) WriteSizedStringU16(s string) error {
	b, err := encodeUTF16(s)
	if err != nil {
		return fmt.Errorf("cannot encode %q as UTF-16: %w", s, err)
	}
	if len(b)/2 > math.MaxUint16 {
		return fmt.Errorf("string of %d code units does not fit a u16 length prefix", len(b)/2)
	}
	w.WriteU16(uint16(len(b) / 2))
	w.WriteRaw(b)
	return nil
}

// WriteSizedStringU16U32 writes a u32 code unit count followed by UTF-16LE text.
func (w *Writer) WriteSizedStringU16U32(s string) error {
	b, err := encodeUTF16(s)
	if err != nil {
		return fmt.Errorf("cannot encode %q as UTF-16: %w", s, err)
	}
	w.WriteU32(uint32(len(b) / 2))
	w.WriteRaw(b)
	return nil
}

func (w *Writer) WriteOptionalStringU16(s string) error {
	if s == "" {
		w.WriteBool(false)
		return nil
	}
	w.WriteBool(true)
	return w.WriteSizedStringU16(s)
}

func (w *Writer) WriteStringU8ZeroTerminated(s string) {
	w.WriteStringU8(s)
	w.WriteU8(0)
}

// WriteStringU8ZeroPadded writes s into a fixed n-byte field, padding with zeros.
func (w *Writer) WriteStringU8ZeroPadded(s string, n int) error {
	if len(s) > n {
		return fmt.Errorf("string of %d bytes does not fit a %d-byte field", len(s), n)
	}
	off := w.Grow(n)
	copy(w.Buf[off:], s)
	for i := off + len(s); i < off+n; i++ {
		w.Buf[i] = 0
	}
	return nil
}

func (w *Writer) WriteStringU8ISO8859_15(s string) error {
	b, err := charmap.ISO8859_15.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return fmt.Errorf("cannot encode %q as ISO-8859-15: %w", s, err)
	}
	w.WriteRaw(b)
	return nil
}

// WriteColourRGB parses six hex digits and writes them as a u32.
func (w *Writer) WriteColourRGB(s string) error {
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("invalid colour %q: %w", s, err)
	}
	w.WriteU32(uint32(v))
	return nil
}
