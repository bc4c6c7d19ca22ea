package tabcodec

import (
	"fmt"

	"github.com/andreyvit/tabcodec/binio"
)

const (
	locByteOrderMark = 0xFEFF
	locFileType      = "LOC"
	locHeaderSize    = 14
	locVersion       = 1
	locTableName     = "Loc"
)

// Loc is a localisation table: key, text and tooltip flag per row.
type Loc struct {
	Table *Table

	// Status is how DecodeLoc filled Table.
	Status DecodeStatus
}

func LocDefinition() *Definition {
	placeholder := "PLACEHOLDER"
	key := NewField("key", TypeStringU16)
	key.IsKey = true
	key.Default = &placeholder
	text := NewField("text", TypeStringU16)
	text.Default = &placeholder
	tooltip := NewField("tooltip", TypeBoolean)
	tooltip.Default = &placeholder
	return NewDefinition(locVersion, key, text, tooltip)
}

func NewLoc() *Loc {
	return &Loc{Table: NewTable(locTableName, LocDefinition())}
}

// ReadLocHeader validates the magic and version and returns the version and row count.
func ReadLocHeader(r *binio.Reader) (version int32, entryCount uint32, err error) {
	if r.Remaining() < locHeaderSize {
		return 0, 0, ErrNotLocTable
	}
	if bom := must(r.U16()); bom != locByteOrderMark {
		return 0, 0, fmt.Errorf("%w: byte order mark %04X", ErrNotLocTable, bom)
	}
	if ft := must(r.Raw(len(locFileType))); string(ft) != locFileType {
		return 0, 0, fmt.Errorf("%w: file type %q", ErrNotLocTable, ft)
	}
	must(r.U8())
	version, entryCount = must(r.I32()), must(r.U32())
	if version != locVersion {
		return version, entryCount, &UnsupportedVersionError{Format: locTableName, Version: version}
	}
	return version, entryCount, nil
}

func DecodeLoc(data []byte, opt DecodeOptions) (*Loc, error) {
	r := binio.NewReader(data)
	_, count, err := ReadLocHeader(r)
	if err != nil {
		return nil, err
	}
	loc := NewLoc()
	loc.Status, err = loc.Table.Decode(r, &count, opt.ReturnIncomplete)
	if err != nil {
		return nil, err
	}
	if !loc.Status.Incomplete {
		if err := binio.CheckSizeMismatch(r.Len(), r.Off()); err != nil {
			return nil, tableErrf(locTableName, locVersion, err, "")
		}
	}
	return loc, nil
}

func (l *Loc) Encode() ([]byte, error) {
	w := binio.NewWriter(locHeaderSize + 64*l.Table.Len())
	w.WriteU16(locByteOrderMark)
	w.WriteStringU8(locFileType)
	w.WriteU8(0)
	w.WriteI32(l.Table.Definition.Version)
	if err := l.Table.Encode(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// MergeLocs concatenates the rows of several Loc tables, migrating each to the current definition.
func MergeLocs(sources ...*Loc) (*Loc, error) {
	out := NewLoc()
	var rows Rows
	for _, src := range sources {
		t := &Table{Name: src.Table.Name, Definition: src.Table.Definition, rows: cloneRows(src.Table.rows)}
		t.SetDefinition(out.Table.Definition)
		rows = append(rows, t.rows...)
	}
	if err := out.Table.SetRows(rows); err != nil {
		return nil, err
	}
	return out, nil
}

func cloneRows(rows Rows) Rows {
	out := make(Rows, len(rows))
	for i, row := range rows {
		out[i] = row.Clone()
	}
	return out
}
