package tabcodec

import (
	"fmt"
	"log/slog"

	"github.com/andreyvit/tabcodec/binio"
)

// Table is a Definition plus the rows decoded with it.
type Table struct {
	Name       string
	Definition *Definition
	rows       Rows
}

func NewTable(name string, def *Definition) *Table {
	return &Table{Name: name, Definition: def}
}

func (t *Table) Rows() Rows {
	return t.rows
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Fields() []Field {
	return t.Definition.FieldsProcessed()
}

func (t *Table) ColumnPositionByName(name string) int {
	return t.Definition.ColumnPositionByName(name)
}

// SetRows replaces the rows after checking every cell against the derived fields.
func (t *Table) SetRows(rows Rows) error {
	fields := t.Definition.FieldsProcessed()
	for ri, row := range rows {
		if len(row) != len(fields) {
			return &RowFieldCountError{Row: ri + 1, Expected: len(fields), Actual: len(row)}
		}
		for ci, c := range row {
			if !c.IsFieldTypeCorrect(fields[ci].Type) {
				return &FieldEncodeError{Row: ri + 1, Column: ci + 1, Field: fields[ci].Name, Expected: fields[ci].Type, Actual: c.kind}
			}
		}
	}
	t.rows = rows
	return nil
}

// NewRow returns a row filled with the (patched) default of every derived field.
func (t *Table) NewRow() Row {
	fields := t.Definition.FieldsProcessed()
	row := make(Row, len(fields))
	for i := range fields {
		row[i] = NewFromTypeAndValue(fields[i].Type, fields[i].Default)
	}
	return row
}

// Decode replaces the rows with ones read from r. See DecodeTable for entryCount and returnIncomplete.
func (t *Table) Decode(r *binio.Reader, entryCount *uint32, returnIncomplete bool) (DecodeStatus, error) {
	rows, status, err := DecodeTable(r, t.Definition, entryCount, returnIncomplete)
	if err != nil {
		return status, tableErrf(t.Name, t.Definition.Version, err, "decode")
	}
	if status.Incomplete {
		slog.Debug("tabcodec: salvaged incomplete table", "table", t.Name, "version", t.Definition.Version, "declared", status.Declared, "decoded", status.Decoded)
	}
	t.rows = rows
	return status, nil
}

// Encode writes a u32 row count followed by the rows.
func (t *Table) Encode(w *binio.Writer) error {
	w.WriteU32(uint32(len(t.rows)))
	if err := EncodeTable(w, t.Definition, t.rows); err != nil {
		return tableErrf(t.Name, t.Definition.Version, err, "encode")
	}
	return nil
}

// SetDefinition migrates the rows to newDef. Columns are matched by name; a column whose type
// changed is converted, and one that cannot be converted or did not exist gets its default.
func (t *Table) SetDefinition(newDef *Definition) {
	oldFields := t.Definition.FieldsProcessed()
	newFields := newDef.FieldsProcessed()

	oldPos := make([]int, len(newFields))
	for i, nf := range newFields {
		oldPos[i] = -1
		for j, of := range oldFields {
			if of.Name == nf.Name {
				oldPos[i] = j
				break
			}
		}
	}

	for ri, row := range t.rows {
		out := make(Row, len(newFields))
		for i, nf := range newFields {
			j := oldPos[i]
			if j < 0 || j >= len(row) {
				out[i] = NewFromTypeAndValue(nf.Type, nf.Default)
				continue
			}
			if oldFields[j].Type.Equal(nf.Type) {
				out[i] = row[j]
				continue
			}
			v, err := row[j].ConvertBetweenTypes(nf.Type)
			if err != nil {
				v = NewFromTypeAndValue(nf.Type, nf.Default)
			}
			out[i] = v
		}
		t.rows[ri] = out
	}
	t.Definition = newDef
}

// RowsContainingData finds the rows whose cell in column displays as value.
func (t *Table) RowsContainingData(column, value string) (col int, rows []int, err error) {
	col = t.Definition.ColumnPositionByName(column)
	if col < 0 {
		return -1, nil, fmt.Errorf("%s: no column named %q", t.Name, column)
	}
	for ri, row := range t.rows {
		if col < len(row) && row[col].DataToString() == value {
			rows = append(rows, ri)
		}
	}
	return col, rows, nil
}
