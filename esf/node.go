package esf

import "fmt"

type Signature [4]byte

var (
	CAAB = Signature{0xCA, 0xAB, 0x00, 0x00}
	CBAB = Signature{0xCB, 0xAB, 0x00, 0x00}
	CEAB = Signature{0xCE, 0xAB, 0x00, 0x00}
	CFAB = Signature{0xCF, 0xAB, 0x00, 0x00}
)

func (s Signature) String() string {
	switch s {
	case CAAB:
		return "CAAB"
	case CBAB:
		return "CBAB"
	case CEAB:
		return "CEAB"
	case CFAB:
		return "CFAB"
	default:
		return fmt.Sprintf("%02X%02X%02X%02X", s[0], s[1], s[2], s[3])
	}
}

func (s Signature) known() bool {
	return s == CAAB || s == CBAB || s == CEAB || s == CFAB
}

// supported reports whether this package can decode and encode files with the signature.
func (s Signature) supported() bool {
	return s == CAAB || s == CBAB
}

// wideStrings reports whether the string tables use u32 length prefixes.
func (s Signature) wideStrings() bool {
	return s == CBAB
}

// File is a decoded ESF tree.
type File struct {
	Signature    Signature
	Unknown1     uint32
	CreationDate uint32
	Root         *Record
}

// Node is any value in the tree. Concrete types are the exported types of this package that
// implement it; a nil Node is invalid.
type Node interface {
	node()
}

type RecordFlags uint8

const (
	IsRecordNode        RecordFlags = 0x80
	HasNestedBlocks     RecordFlags = 0x40
	HasNonOptimizedInfo RecordFlags = 0x20

	recordFlagsMask = IsRecordNode | HasNestedBlocks | HasNonOptimizedInfo
)

func (f RecordFlags) Has(v RecordFlags) bool {
	return f&v == v
}

// Record is a named, versioned container. Without HasNestedBlocks it has exactly one group
// of children.
type Record struct {
	Flags    RecordFlags
	Version  uint8
	Name     string
	Children [][]Node
}

// NewRecord returns a record with a single empty group that encodes its name and version in
// the packed two-byte form.
func NewRecord(name string, version uint8, children ...Node) *Record {
	return &Record{
		Flags:    IsRecordNode,
		Version:  version,
		Name:     name,
		Children: [][]Node{children},
	}
}

// Find returns the first child record named name in any group.
func (r *Record) Find(name string) *Record {
	for _, group := range r.Children {
		for _, n := range group {
			if rec, ok := n.(*Record); ok && rec.Name == name {
				return rec
			}
		}
	}
	return nil
}

// CloneWithoutChildren returns a copy of r's header with one empty group.
func (r *Record) CloneWithoutChildren() *Record {
	return &Record{Flags: r.Flags, Version: r.Version, Name: r.Name, Children: [][]Node{{}}}
}

// Optimized scalars pick the shortest of several tags when encoded.
type (
	Bool struct {
		Value     bool
		Optimized bool
	}
	I32 struct {
		Value     int32
		Optimized bool
	}
	U32 struct {
		Value     uint32
		Optimized bool
	}
	F32 struct {
		Value     float32
		Optimized bool
	}
)

type (
	I8    int8
	I16   int16
	I64   int64
	U8    uint8
	U16   uint16
	U64   uint64
	F64   float64
	Angle int16

	// UTF16 and ASCII are stored as indexes into the file's string tables.
	UTF16 string
	ASCII string

	Coord2D struct{ X, Y float32 }
	Coord3D struct{ X, Y, Z float32 }
)

// Tags 0x21 to 0x26 appear in save files but their meaning is not known.
type (
	Unknown21 uint32
	Unknown23 uint8
	Unknown24 uint16
	Unknown25 uint32

	// Unknown26 holds the bytes following the tag. Sentinel records that the decoder consumed
	// a trailing 0x9C after them.
	Unknown26 struct {
		Data     []byte
		Sentinel bool
	}
)

type (
	BoolArray    []bool
	I8Array      []int8
	I16Array     []int16
	I64Array     []int64
	U8Array      []byte
	U16Array     []uint16
	U64Array     []uint64
	F32Array     []float32
	F64Array     []float64
	Coord2DArray []Coord2D
	Coord3DArray []Coord3D
	UTF16Array   []string
	ASCIIArray   []string
	AngleArray   []int16

	I32Array struct {
		Values    []int32
		Optimized bool
	}
	U32Array struct {
		Values    []uint32
		Optimized bool
	}
)

func (*Record) node() {}
func (Bool) node() {}
func (I8) node() {}
func (I16) node() {}
func (I32) node() {}
func (I64) node() {}
func (U8) node() {}
func (U16) node() {}
func (U32) node() {}
func (U64) node() {}
func (F32) node() {}
func (F64) node() {}
func (Coord2D) node() {}
func (Coord3D) node() {}
func (UTF16) node() {}
func (ASCII) node() {}
func (Angle) node() {}
func (Unknown21) node() {}
func (Unknown23) node() {}
func (Unknown24) node() {}
func (Unknown25) node() {}
func (Unknown26) node() {}
func (BoolArray) node() {}
func (I8Array) node() {}
func (I16Array) node() {}
func (I32Array) node() {}
func (I64Array) node() {}
func (U8Array) node() {}
func (U16Array) node() {}
func (U32Array) node() {}
func (U64Array) node() {}
func (F32Array) node() {}
func (F64Array) node() {}
func (Coord2DArray) node() {}
func (Coord3DArray) node() {}
func (UTF16Array) node() {}
func (ASCIIArray) node() {}
func (AngleArray) node() {}

const (
	tagInvalid   = 0x00
	tagBool      = 0x01
	tagI8        = 0x02
	tagI16       = 0x03
	tagI32       = 0x04
	tagI64       = 0x05
	tagU8        = 0x06
	tagU16       = 0x07
	tagU32       = 0x08
	tagU64       = 0x09
	tagF32       = 0x0a
	tagF64       = 0x0b
	tagCoord2D   = 0x0c
	tagCoord3D   = 0x0d
	tagUTF16     = 0x0e
	tagASCII     = 0x0f
	tagAngle     = 0x10
	tagBoolTrue  = 0x12
	tagBoolFalse = 0x13
	tagU32Zero   = 0x14
	tagU32One    = 0x15
	tagU32Byte   = 0x16
	tagU32Short  = 0x17
	tagU32U24    = 0x18
	tagI32Zero   = 0x19
	tagI32Byte   = 0x1a
	tagI32Short  = 0x1b
	tagI32I24    = 0x1c
	tagF32Zero   = 0x1d
	tagUnknown21 = 0x21
	tagUnknown23 = 0x23
	tagUnknown24 = 0x24
	tagUnknown25 = 0x25
	tagUnknown26 = 0x26

	tagBoolArray     = 0x41
	tagI8Array       = 0x42
	tagI16Array      = 0x43
	tagI32Array      = 0x44
	tagI64Array      = 0x45
	tagU8Array       = 0x46
	tagU16Array      = 0x47
	tagU32Array      = 0x48
	tagU64Array      = 0x49
	tagF32Array      = 0x4a
	tagF64Array      = 0x4b
	tagCoord2DArray  = 0x4c
	tagCoord3DArray  = 0x4d
	tagUTF16Array    = 0x4e
	tagASCIIArray    = 0x4f
	tagAngleArray    = 0x50
	tagU32ByteArray  = 0x56
	tagU32ShortArray = 0x57
	tagU32U24Array   = 0x58
	tagI32ByteArray  = 0x5a
	tagI32ShortArray = 0x5b
	tagI32I24Array   = 0x5c

	unknown26Sentinel = 0x9C

	// signature, unknown1, creation date, record names offset
	headerSize = 16
)
