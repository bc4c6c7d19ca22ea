package tabcodec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// TSVError reports a cell that could not be imported. Row and Column are 0-based data positions.
type TSVError struct {
	Row    int
	Column int
	Err    error
}

func (e *TSVError) Unwrap() error {
	return e.Err
}

func (e *TSVError) Error() string {
	return fmt.Sprintf("tsv row %d column %d: %v", e.Row, e.Column, e.Err)
}

// TSVHeader is the metadata line that follows the column names.
type TSVHeader struct {
	Table   string
	Version int32
	Path    string
}

func parseTSVHeader(s string) (TSVHeader, error) {
	var h TSVHeader
	rest, ok := strings.CutPrefix(s, "#")
	if !ok {
		return h, fmt.Errorf("tsv metadata line %q does not start with #", s)
	}
	var ver string
	h.Table, rest, _ = splitByte(rest, ';')
	ver, h.Path, _ = splitByte(rest, ';')
	v, err := strconv.ParseInt(ver, 10, 32)
	if err != nil {
		return h, fmt.Errorf("tsv metadata line %q: bad version: %w", s, err)
	}
	h.Version = int32(v)
	return h, nil
}

func newTSVReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	return cr
}

// ExportTSV writes the column names (keys first), a "#table;version;path" line and one line per row.
func (t *Table) ExportTSV(w io.Writer, tablePath string) error {
	sorted := t.Definition.FieldsProcessedSorted(true)
	if len(sorted) == 0 {
		return fmt.Errorf("%s: table has no columns", t.Name)
	}
	positions := columnPositions(t.Definition.FieldsProcessed())
	order := make([]int, len(sorted))
	names := make([]string, len(sorted))
	for i := range sorted {
		order[i] = positions[sorted[i].Name]
		names[i] = sorted[i].Name
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(names); err != nil {
		return err
	}
	meta := make([]string, len(names))
	meta[0] = fmt.Sprintf("#%s;%d;%s", t.Name, t.Definition.Version, tablePath)
	if err := cw.Write(meta); err != nil {
		return err
	}
	record := make([]string, len(names))
	for _, row := range t.rows {
		for i, col := range order {
			record[i] = row[col].DataToString()
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ImportTSV reads a file written by ExportTSV. Columns are matched by name; columns missing from
// the file keep their defaults and unknown ones are ignored.
func ImportTSV(r io.Reader, def *Definition, tableName string) (*Table, TSVHeader, error) {
	cr := newTSVReader(r)
	var header TSVHeader
	names, err := cr.Read()
	if err != nil {
		return nil, header, fmt.Errorf("tsv: reading column names: %w", err)
	}
	meta, err := cr.Read()
	if err != nil {
		return nil, header, fmt.Errorf("tsv: reading metadata: %w", err)
	}
	header, err = parseTSVHeader(meta[0])
	if err != nil {
		return nil, header, err
	}

	t := NewTable(tableName, def)
	fields := def.FieldsProcessed()
	positions := columnPositions(fields)
	columns := make([]int, len(names))
	for i, name := range names {
		if pos, ok := positions[name]; ok {
			columns[i] = pos
		} else {
			columns[i] = -1
		}
	}

	var rows Rows
	for ri := 0; ; ri++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, header, &TSVError{Row: ri, Err: err}
		}
		row := t.NewRow()
		for ci, text := range record {
			if ci >= len(columns) || columns[ci] < 0 {
				continue
			}
			col := columns[ci]
			cell, err := parseTSVCell(fields[col].Type, text)
			if err != nil {
				return nil, header, &TSVError{Row: ri, Column: ci, Err: err}
			}
			row[col] = cell
		}
		rows = append(rows, row)
	}
	if err := t.SetRows(rows); err != nil {
		return nil, header, err
	}
	return t, header, nil
}

func parseTSVCell(ft FieldType, text string) (DecodedData, error) {
	if ft.Kind.IsSequence() {
		return DecodedData{}, fmt.Errorf("%v columns cannot be imported from text", ft.Kind)
	}
	d := DecodedData{kind: ft.Kind}
	if err := d.SetData(text); err != nil {
		return DecodedData{}, err
	}
	return d, nil
}

// columnPositions maps derived column names to their index; the first occurrence wins.
func columnPositions(fields []Field) map[string]int {
	m := make(map[string]int, len(fields))
	for i, f := range fields {
		if _, ok := m[f.Name]; !ok {
			m[f.Name] = i
		}
	}
	return m
}
