package tabcodec

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/andreyvit/tabcodec/binio"
)

func pairDef(version int32) *Definition {
	key := NewField("key", TypeStringU8)
	key.IsKey = true
	return NewDefinition(version, key, NewField("value", TypeI32))
}

const pairDB = `
	FCFDFEFF 02000000
	01
	02000000
		0100 61  01000000
		0100 62  FFFFFFFF
`

func pairRows() Rows {
	return Rows{
		{StringU8("a"), I32(1)},
		{StringU8("b"), I32(-1)},
	}
}

func pairSchema() *Schema {
	s := NewSchema()
	s.AddDefinition("pairs_tables", pairDef(2))
	s.AddDefinition("pairs_tables", pairDef(1))
	return s
}

func TestDecodeDB(t *testing.T) {
	db, err := DecodeDB(x(pairDB), pairSchema(), "pairs_tables", DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeDB failed: %v", err)
	}
	rowsEqual(t, db.Table.Rows(), pairRows())
	if !db.MysteriousByte || db.GUID != "" || db.Table.Definition.Version != 2 {
		t.Errorf("** header = %v %q v%d", db.MysteriousByte, db.GUID, db.Table.Definition.Version)
	}
	deepEqual(t, db.Status, DecodeStatus{Declared: 2, Decoded: 2})
}

func TestEncodeDB(t *testing.T) {
	db := NewDB("pairs_tables", pairDef(2))
	ensure(db.Table.SetRows(pairRows()))
	data := must(db.Encode(EncodeOptions{}))
	if e := x(pairDB); !bytes.Equal(data, e) {
		t.Fatalf("Encode = %x, wanted %x", data, e)
	}
}

func TestDBGUID(t *testing.T) {
	db := NewDB("pairs_tables", pairDef(2))
	ensure(db.Table.SetRows(pairRows()))

	data := must(db.Encode(EncodeOptions{TableHasGUID: true}))
	if _, err := uuid.Parse(db.GUID); err != nil {
		t.Fatalf("generated GUID %q: %v", db.GUID, err)
	}
	if !bytes.HasPrefix(data, guidMarker) {
		t.Fatalf("encoded table does not start with the GUID marker: %x", data[:8])
	}
	decoded := must(DecodeDB(data, pairSchema(), "pairs_tables", DecodeOptions{}))
	if decoded.GUID != db.GUID {
		t.Errorf("** decoded GUID = %q, wanted %q", decoded.GUID, db.GUID)
	}
	rowsEqual(t, decoded.Table.Rows(), pairRows())

	first := db.GUID
	must(db.Encode(EncodeOptions{TableHasGUID: true}))
	if db.GUID != first {
		t.Errorf("** GUID changed without RegenerateGUID")
	}
	must(db.Encode(EncodeOptions{TableHasGUID: true, RegenerateGUID: true}))
	if db.GUID == first {
		t.Errorf("** RegenerateGUID kept the old GUID")
	}

	data = must(db.Encode(EncodeOptions{}))
	if bytes.HasPrefix(data, guidMarker) {
		t.Errorf("** GUID written without TableHasGUID")
	}
}

func TestDecodeDBUnversioned(t *testing.T) {
	s := NewSchema()
	s.AddDefinition("flags_tables", NewDefinition(3, NewField("n", TypeI32), NewField("on", TypeBoolean)))
	s.AddDefinition("flags_tables", NewDefinition(0, NewField("name", TypeStringU8)))
	s.AddDefinition("flags_tables", NewDefinition(-1, NewField("n", TypeI32), NewField("on", TypeBoolean)))

	// the version 0 definition reads a 7-byte string and runs out of data
	data := x("01 01000000 07000000 01")
	db, err := DecodeDB(data, s, "flags_tables", DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeDB failed: %v", err)
	}
	if a := db.Table.Definition.Version; a != -1 {
		t.Errorf("** picked definition v%d, wanted v-1", a)
	}
	rowsEqual(t, db.Table.Rows(), Rows{{I32(7), Bool(true)}})

	_, err = DecodeDB(x("01 01000000 07"), s, "flags_tables", DecodeOptions{})
	if !errors.Is(err, ErrNoDefinition) {
		t.Errorf("** no fitting definition: err = %v", err)
	}
}

func TestDecodeDBErrors(t *testing.T) {
	s := pairSchema()

	_, err := DecodeDB(x("0100"), s, "pairs_tables", DecodeOptions{})
	if !errors.Is(err, ErrNotDBTable) {
		t.Errorf("** short: err = %v", err)
	}

	_, err = DecodeDB(x(pairDB), s, "other_tables", DecodeOptions{})
	if !errors.Is(err, ErrNoDefinition) {
		t.Errorf("** unknown table: err = %v", err)
	}

	versioned := x(pairDB)
	versioned[4] = 9
	_, err = DecodeDB(versioned, s, "pairs_tables", DecodeOptions{})
	var terr *TableError
	if !errors.Is(err, ErrNoDefinition) || !errors.As(err, &terr) || terr.Version != 9 {
		t.Errorf("** unknown version: err = %v", err)
	}

	_, err = DecodeDB(append(x(pairDB), 0), s, "pairs_tables", DecodeOptions{})
	var serr *binio.SizeMismatchError
	if !errors.As(err, &serr) {
		t.Errorf("** trailing byte: err = %v, wanted size mismatch", err)
	}

	full := x(pairDB)
	for n := dbMinSize; n < len(full); n++ {
		if _, err := DecodeDB(full[:n], s, "pairs_tables", DecodeOptions{}); err == nil {
			t.Errorf("** truncated to %d bytes: no error", n)
		}
	}
}

func TestDecodeDBSalvage(t *testing.T) {
	data := x(pairDB)
	data = data[:len(data)-3]
	db, err := DecodeDB(data, pairSchema(), "pairs_tables", DecodeOptions{ReturnIncomplete: true})
	if err != nil {
		t.Fatalf("salvage DecodeDB failed: %v", err)
	}
	rowsEqual(t, db.Table.Rows(), pairRows()[:1])
	if !db.Status.Incomplete || db.Status.Decoded >= db.Status.Declared {
		t.Errorf("** status = %+v", db.Status)
	}
}

func TestDecodeDBPatches(t *testing.T) {
	s := pairSchema()
	p := make(DefinitionPatch)
	p.Set("value", PatchDefaultValue, "5")
	s.AddPatch("pairs_tables", p)

	db := must(DecodeDB(x(pairDB), s, "pairs_tables", DecodeOptions{}))
	if f, _ := db.Table.Definition.FieldByName("value"); *f.DefaultValue(db.Table.Definition.Patches) != "5" {
		t.Errorf("** patch not attached to the decoded definition")
	}
	if _, ok := s.DefinitionsByTableName("pairs_tables")[0].Patches["value"]; ok {
		t.Errorf("** DecodeDB patched the schema's own definition")
	}
}

func TestReadDBHeader(t *testing.T) {
	data := x("FDFEFCFF 0200 6100 6200  FCFDFEFF 05000000  00  03000000")
	h := must(ReadDBHeader(binio.NewReader(data)))
	deepEqual(t, h, DBHeader{GUID: "ab", Version: 5, MysteriousByte: false, EntryCount: 3})

	h = must(ReadDBHeader(binio.NewReader(x("01 00000000"))))
	deepEqual(t, h, DBHeader{MysteriousByte: true})
}

const helloLoc = `
	FFFE 4C4F43 00 01000000
	02000000
		0500 6800650079000A002100    0200 68006900  01
		0100 6B00                    0000           00
`

func TestLoc(t *testing.T) {
	future := x(helloLoc)
	future[6] = 2
	_, err := DecodeLoc(future, DecodeOptions{})
	var verr *UnsupportedVersionError
	if !errors.As(err, &verr) || verr.Version != 2 || err.Error() != "Loc: unsupported version 2" {
		t.Errorf("** DecodeLoc(version 2): err = %v, wanted UnsupportedVersionError", err)
	}

	loc, err := DecodeLoc(x(helloLoc), DecodeOptions{})
	if err != nil {
		t.Fatalf("DecodeLoc failed: %v", err)
	}
	rowsEqual(t, loc.Table.Rows(), Rows{
		{StringU16(`hey\\n!`), StringU16("hi"), Bool(true)},
		{StringU16("k"), StringU16(""), Bool(false)},
	})

	data := must(loc.Encode())
	if e := x(helloLoc); !bytes.Equal(data, e) {
		t.Fatalf("Encode = %x, wanted %x", data, e)
	}

	if _, err := DecodeLoc(x("FFFE 4C4F42 00 01000000 00000000"), DecodeOptions{}); !errors.Is(err, ErrNotLocTable) {
		t.Errorf("** bad file type: err = %v", err)
	}
	if _, err := DecodeLoc(x("FEFF"), DecodeOptions{}); !errors.Is(err, ErrNotLocTable) {
		t.Errorf("** short: err = %v", err)
	}
	if _, err := DecodeLoc(append(x(helloLoc), 0), DecodeOptions{}); err == nil {
		t.Errorf("** trailing byte: no error")
	}
}

func TestNewLoc(t *testing.T) {
	loc := NewLoc()
	rowsEqual(t, Rows{loc.Table.NewRow()}, Rows{{StringU16("PLACEHOLDER"), StringU16("PLACEHOLDER"), Bool(false)}})
	if f := loc.Table.Fields()[0]; !f.IsKey {
		t.Errorf("** key column is not a key")
	}
}

func TestMergeLocs(t *testing.T) {
	a := NewLoc()
	ensure(a.Table.SetRows(Rows{{StringU16("k1"), StringU16("v1"), Bool(false)}}))

	// an older Loc layout without the tooltip column
	old := &Loc{Table: NewTable("Loc", NewDefinition(0, NewField("key", TypeStringU16), NewField("text", TypeStringU16)))}
	ensure(old.Table.SetRows(Rows{{StringU16("k2"), StringU16("v2")}}))

	merged := must(MergeLocs(a, old))
	rowsEqual(t, merged.Table.Rows(), Rows{
		{StringU16("k1"), StringU16("v1"), Bool(false)},
		{StringU16("k2"), StringU16("v2"), Bool(false)},
	})
	if a.Table.Len() != 1 || old.Table.Definition.Version != 0 {
		t.Errorf("** MergeLocs modified its sources")
	}
}

func TestTableFiles(t *testing.T) {
	dir := t.TempDir()

	db := NewDB("pairs_tables", pairDef(2))
	ensure(db.Table.SetRows(pairRows()))
	dbPath := filepath.Join(dir, "pairs")
	ensure(WriteDBFile(dbPath, db, EncodeOptions{}))
	rowsEqual(t, must(ReadDBFile(dbPath, pairSchema(), "pairs_tables", DecodeOptions{})).Table.Rows(), pairRows())

	loc := must(DecodeLoc(x(helloLoc), DecodeOptions{}))
	locPath := filepath.Join(dir, "text.loc")
	ensure(WriteLocFile(locPath, loc))
	rowsEqual(t, must(ReadLocFile(locPath, DecodeOptions{})).Table.Rows(), loc.Table.Rows())

	// errors must stay printable once the mapping is gone
	ensure(WriteDBFile(dbPath, &DB{Table: NewTable("pairs_tables", NewDefinition(7))}, EncodeOptions{}))
	_, err := ReadDBFile(dbPath, pairSchema(), "pairs_tables", DecodeOptions{})
	if err == nil {
		t.Fatalf("ReadDBFile of an unknown version: no error")
	}
	_ = err.Error()
}
