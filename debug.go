package tabcodec

import (
	"encoding/json"
	"fmt"
	"strings"
)

type DumpFlags uint64

const (
	DumpTableHeaders = DumpFlags(1 << iota)
	DumpFields
	DumpRows

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var (
	dumpSep1 = strings.Repeat("=", 80)
	dumpSep2 = strings.Repeat("-", 60)
)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// Dump renders the table for debugging and test failure messages.
func (t *Table) Dump(f DumpFlags) string {
	var buf strings.Builder
	t.dump(&buf, f)
	return buf.String()
}

func (t *Table) dump(w *strings.Builder, f DumpFlags) {
	prefix := t.Name
	fields := t.Definition.FieldsProcessed()

	if f.Contains(DumpTableHeaders) {
		fmt.Fprintln(w, dumpSep1)
		fmt.Fprintf(w, "%s v%d (%d rows, %d raw fields, %d columns)\n", prefix, t.Definition.Version, len(t.rows), len(t.Definition.Fields), len(fields))
	}
	if f.Contains(DumpFields) {
		for i, fld := range fields {
			var flags []string
			if fld.IsKey {
				flags = append(flags, "key")
			}
			if fld.Default != nil {
				flags = append(flags, "default="+*fld.Default)
			}
			if fld.IsUnused(t.Definition.Patches) {
				flags = append(flags, "unused")
			}
			fmt.Fprintf(w, "%s.f%d: %s %v %s\n", prefix, i+1, rpad(fld.Name, 24, ' '), fld.Type, strings.Join(flags, " "))
		}
	}
	if f.Contains(DumpRows) {
		if f.Contains(DumpFields) {
			fmt.Fprintln(w, dumpSep2)
		}
		for i, row := range t.rows {
			cells := make([]string, len(row))
			for j, c := range row {
				cells[j] = c.DataToString()
			}
			fmt.Fprintf(w, "%s.%d = %s\n", prefix, i+1, must(json.Marshal(cells)))
		}
	}
}
