package tabcodec

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestExportTSV(t *testing.T) {
	tbl := NewTable("pairs_tables", pairDef(2))
	ensure(tbl.SetRows(pairRows()))
	var buf bytes.Buffer
	ensure(tbl.ExportTSV(&buf, "db/pairs_tables/data"))
	e := "key\tvalue\n#pairs_tables;2;db/pairs_tables/data\t\na\t1\nb\t-1\n"
	if a := buf.String(); a != e {
		t.Fatalf("ExportTSV = %q, wanted %q", a, e)
	}
}

func TestTSVRoundTrip(t *testing.T) {
	tbl := NewTable("units_tables", unitsDef())
	ensure(tbl.SetRows(unitsDecoded()))
	var buf bytes.Buffer
	ensure(tbl.ExportTSV(&buf, "db/units_tables/data"))

	imported, header, err := ImportTSV(&buf, unitsDef(), "units_tables")
	if err != nil {
		t.Fatalf("ImportTSV failed: %v\n%s", err, buf.String())
	}
	deepEqual(t, header, TSVHeader{Table: "units_tables", Version: 3, Path: "db/units_tables/data"})
	rowsEqual(t, imported.Rows(), unitsDecoded())
}

func TestImportTSVColumnsByName(t *testing.T) {
	def := pairDef(2)
	value := &def.Fields[1]
	value.Default = ptr("42")

	in := "extra\tkey\n#pairs_tables;2;\t\nx\ta\n"
	tbl, _, err := ImportTSV(strings.NewReader(in), def, "pairs_tables")
	if err != nil {
		t.Fatal(err)
	}
	rowsEqual(t, tbl.Rows(), Rows{{StringU8("a"), I32(42)}})
}

func TestImportTSVErrors(t *testing.T) {
	_, _, err := ImportTSV(strings.NewReader("key\tvalue\n#pairs_tables;2;\t\na\tnope\n"), pairDef(2), "pairs_tables")
	var terr *TSVError
	if !errors.As(err, &terr) || terr.Row != 0 || terr.Column != 1 {
		t.Errorf("** bad cell: err = %v", err)
	}

	_, _, err = ImportTSV(strings.NewReader("key\tvalue\npairs_tables;2;\t\n"), pairDef(2), "pairs_tables")
	if err == nil {
		t.Errorf("** metadata without #: no error")
	}

	_, _, err = ImportTSV(strings.NewReader("key\tvalue\n#pairs_tables;two;\t\n"), pairDef(2), "pairs_tables")
	if err == nil {
		t.Errorf("** bad version: no error")
	}

	_, _, err = ImportTSV(strings.NewReader(""), pairDef(2), "pairs_tables")
	if err == nil {
		t.Errorf("** empty input: no error")
	}

	seqDef := NewDefinition(1, NewField("parts", SequenceU16Of(partsDef())))
	_, _, err = ImportTSV(strings.NewReader("parts\n#t;1;\nSequenceU16\n"), seqDef, "t")
	if !errors.As(err, &terr) {
		t.Errorf("** sequence cell: err = %v", err)
	}
}

func TestExportTSVEmptyDefinition(t *testing.T) {
	if err := NewTable("t", NewDefinition(1)).ExportTSV(&bytes.Buffer{}, ""); err == nil {
		t.Errorf("** table without columns: no error")
	}
}
