package tabcodec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotLocTable   = errors.New("not a Loc table")
	ErrNoDefinition  = errors.New("no definitions found")
	ErrNoSequenceDef = errors.New("sequence field has no nested definition")
	ErrColourChannel = errors.New("colour field name has no _r, _g or _b channel suffix")
)

type UnsupportedVersionError struct {
	Format  string
	Version int32
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("%s: unsupported version %d", e.Format, e.Version)
}

// FieldDecodeError reports a raw field that could not be read. Row and Column are 1-based.
type FieldDecodeError struct {
	Row      int
	Column   int
	Field    string
	Expected FieldType
	Err      error
}

func (e *FieldDecodeError) Unwrap() error {
	return e.Err
}

func (e *FieldDecodeError) Error() string {
	return fmt.Sprintf("row %d column %d expected %v (%s): %v", e.Row, e.Column, e.Expected, e.Field, e.Err)
}

// FieldEncodeError reports a cell that cannot be written to its raw field. Column is the
// 1-based derived column.
type FieldEncodeError struct {
	Row      int
	Column   int
	Field    string
	Expected FieldType
	Actual   Kind
	Err      error
}

func fieldEncodeErr(row, col int, f *Field, actual Kind, err error) error {
	return &FieldEncodeError{Row: row + 1, Column: col + 1, Field: f.Name, Expected: f.Type, Actual: actual, Err: err}
}

func (e *FieldEncodeError) Unwrap() error {
	return e.Err
}

func (e *FieldEncodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row %d column %d (%s): cannot encode %v as %v: %v", e.Row, e.Column, e.Field, e.Actual, e.Expected, e.Err)
	}
	return fmt.Sprintf("row %d column %d (%s): expected %v, got %v", e.Row, e.Column, e.Field, e.Expected, e.Actual)
}

type RowFieldCountError struct {
	Row      int
	Expected int
	Actual   int
}

func (e *RowFieldCountError) Error() string {
	return fmt.Sprintf("row %d has %d cells, definition has %d fields", e.Row, e.Actual, e.Expected)
}

// TableError attaches a table name and definition version to an error.
type TableError struct {
	Table   string
	Version int32
	Msg     string
	Err     error
}

func tableErrf(table string, version int32, err error, format string, args ...any) error {
	return &TableError{table, version, fmt.Sprintf(format, args...), err}
}

func (e *TableError) Unwrap() error {
	return e.Err
}

func (e *TableError) Error() string {
	var buf strings.Builder
	buf.WriteString(e.Table)
	fmt.Fprintf(&buf, "@v%d", e.Version)
	if e.Msg != "" {
		buf.WriteString(": ")
		buf.WriteString(e.Msg)
		if e.Err != nil {
			buf.WriteString(": ")
			buf.WriteString(e.Err.Error())
		}
	} else if e.Err != nil {
		buf.WriteString(": ")
		buf.WriteString(e.Err.Error())
	}
	return buf.String()
}
