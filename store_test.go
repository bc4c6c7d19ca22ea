package tabcodec

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/andreyvit/tabcodec/binio"
)

type storeKind struct {
	name string
	open func(t testing.TB) *Store
}

var storeKinds = []storeKind{
	{"mem", func(t testing.TB) *Store {
		return must(OpenStore("", StoreOptions{}))
	}},
	{"bolt", func(t testing.TB) *Store {
		return must(OpenStore(filepath.Join(t.TempDir(), "schema.db"), StoreOptions{IsTesting: true}))
	}},
	{"bolt-json", func(t testing.TB) *Store {
		return must(OpenStore(filepath.Join(t.TempDir(), "schema.db"), StoreOptions{IsTesting: true, Encoding: JSON}))
	}},
}

func eachStore(t *testing.T, f func(t *testing.T, s *Store)) {
	for _, k := range storeKinds {
		t.Run(k.name, func(t *testing.T) {
			s := k.open(t)
			defer s.Close()
			f(t, s)
		})
	}
}

func TestStoreDefinitions(t *testing.T) {
	eachStore(t, func(t *testing.T, s *Store) {
		units := unitsDef()
		if changed := must(s.PutDefinition("units_tables", units)); !changed {
			t.Errorf("** first PutDefinition reported no change")
		}
		if changed := must(s.PutDefinition("units_tables", unitsDef())); changed {
			t.Errorf("** identical PutDefinition reported a change")
		}
		must(s.PutDefinition("units_tables", pairDef(-1)))
		must(s.PutDefinition("units_tables", pairDef(0)))
		must(s.PutDefinition("units_tables", pairDef(12)))

		if d := must(s.Definition("units_tables", 3)); !d.Equal(units) {
			t.Errorf("** Definition(3) = %+v, wanted %+v", d, units)
		}
		if d := must(s.LatestDefinition("units_tables")); d.Version != 12 {
			t.Errorf("** LatestDefinition = v%d, wanted v12", d.Version)
		}
		deepEqual(t, must(s.Versions("units_tables")), []int32{12, 3, 0, -1})

		_, err := s.Definition("units_tables", 4)
		if !errors.Is(err, ErrNoDefinition) {
			t.Errorf("** missing version: err = %v", err)
		}
		_, err = s.LatestDefinition("other_tables")
		if !errors.Is(err, ErrNoDefinition) {
			t.Errorf("** missing table: err = %v", err)
		}

		ensure(s.DeleteDefinition("units_tables", 12))
		deepEqual(t, must(s.Versions("units_tables")), []int32{3, 0, -1})
		ensure(s.DeleteDefinition("other_tables", 1))

		ensure(s.DeleteTable("units_tables"))
		if v := must(s.Versions("units_tables")); len(v) != 0 {
			t.Errorf("** versions after DeleteTable = %v", v)
		}
		ensure(s.DeleteTable("units_tables"))
	})
}

func TestStorePatches(t *testing.T) {
	eachStore(t, func(t *testing.T, s *Store) {
		if p := must(s.Patch("units_tables")); p != nil {
			t.Errorf("** Patch before PutPatch = %v", p)
		}
		p := make(DefinitionPatch)
		p.Set("kind", PatchDefaultValue, "2")
		ensure(s.PutPatch("units_tables", p))
		deepEqual(t, must(s.Patch("units_tables")), p)

		ensure(s.PutPatch("units_tables", nil))
		if p := must(s.Patch("units_tables")); p != nil {
			t.Errorf("** Patch after clearing = %v", p)
		}
	})
}

func TestStoreSchema(t *testing.T) {
	eachStore(t, func(t *testing.T, s *Store) {
		schema := NewSchema()
		schema.Version = 5
		schema.AddDefinition("units_tables", unitsDef())
		schema.AddDefinition("pairs_tables", pairDef(2))
		schema.AddDefinition("pairs_tables", pairDef(1))
		p := make(DefinitionPatch)
		p.Set("value", PatchUnused, "true")
		schema.AddPatch("pairs_tables", p)

		if n := must(s.SaveSchema(schema)); n != 3 {
			t.Errorf("** SaveSchema wrote %d definitions, wanted 3", n)
		}
		if n := must(s.SaveSchema(schema)); n != 0 {
			t.Errorf("** second SaveSchema wrote %d definitions, wanted 0", n)
		}

		loaded := must(s.LoadSchema())
		if loaded.Version != 5 {
			t.Errorf("** loaded schema version %d", loaded.Version)
		}
		deepEqual(t, loaded.TableNames(), schema.TableNames())
		for _, table := range schema.TableNames() {
			e, a := schema.DefinitionsByTableName(table), loaded.DefinitionsByTableName(table)
			if len(a) != len(e) {
				t.Fatalf("%s: loaded %d definitions, wanted %d", table, len(a), len(e))
			}
			for i := range e {
				if !a[i].Equal(e[i]) {
					t.Errorf("** %s v%d differs after load", table, e[i].Version)
				}
			}
		}
		deepEqual(t, loaded.PatchesForTable("pairs_tables"), p)

		stats := must(s.Stats())
		if stats.Tables != 2 || stats.Definitions != 3 || stats.Patches != 1 || stats.DataSize <= 0 {
			t.Errorf("** Stats = %+v", stats)
		}
		ts := must(s.TableStats("pairs_tables"))
		if ts.Definitions != 2 || ts.DataSize <= 0 {
			t.Errorf("** TableStats = %+v", ts)
		}
		if ts := must(s.TableStats("nope")); ts.Definitions != 0 {
			t.Errorf("** TableStats(nope) = %+v", ts)
		}
	})
}

func TestStoreChecksum(t *testing.T) {
	eachStore(t, func(t *testing.T, s *Store) {
		must(s.PutDefinition("pairs_tables", pairDef(1)))
		ensure(s.write(func(tx storageTx) error {
			sec := tx.section(defsBucket, "pairs_tables")
			raw := bytes.Clone(sec.get(versionKey(1)))
			raw[len(raw)-1] ^= 0xFF
			return sec.put(versionKey(1), raw)
		}))
		_, err := s.Definition("pairs_tables", 1)
		var de *binio.DataError
		if !errors.As(err, &de) {
			t.Errorf("** corrupted record: err = %v, wanted *DataError", err)
		}
		if _, err := s.LoadSchema(); err == nil {
			t.Errorf("** LoadSchema of a corrupted record: no error")
		}
	})
}

func TestMemStorageIsolation(t *testing.T) {
	st := newMemStorage()
	defer st.Close()

	w := must(st.begin(true))
	sec := must(w.createSection(defsBucket, "units_tables"))
	ensure(sec.put([]byte("a"), []byte("1")))

	r := must(st.begin(false))
	if r.section(defsBucket, "units_tables") != nil {
		t.Errorf("** reader sees an uncommitted section")
	}
	ensure(w.commit())
	if r.section(defsBucket, "units_tables") != nil {
		t.Errorf("** reader sees a section committed after it began")
	}
	r.rollback()

	w = must(st.begin(true))
	ensure(w.section(defsBucket, "units_tables").put([]byte("b"), []byte("2")))
	w.rollback()

	r = must(st.begin(false))
	defer r.rollback()
	var keys []string
	ensure(r.section(defsBucket, "units_tables").scan(false, func(k, _ []byte) error {
		keys = append(keys, string(k))
		return nil
	}))
	deepEqual(t, keys, []string{"a"})
	deepEqual(t, r.tables(defsBucket), []string{"units_tables"})
	if _, err := r.createSection(patchesBucket, ""); err == nil {
		t.Errorf("** createSection in a read transaction: no error")
	}
}

func TestVersionKeyOrder(t *testing.T) {
	versions := []int32{-2147483648, -100, -1, 0, 1, 99, 2147483647}
	for i := 1; i < len(versions); i++ {
		a, b := versionKey(versions[i-1]), versionKey(versions[i])
		if bytes.Compare(a, b) >= 0 {
			t.Errorf("** versionKey(%d) >= versionKey(%d)", versions[i-1], versions[i])
		}
		if v := versionFromKey(b); v != versions[i] {
			t.Errorf("** versionFromKey(versionKey(%d)) = %d", versions[i], v)
		}
	}
}

func TestEncodingNames(t *testing.T) {
	deepEqual(t, []string{MsgPack.String(), JSON.String(), Encoding(9).String()}, []string{"msgpack", "json", "Encoding(9)"})
	w := binio.NewWriter(0)
	if err := Encoding(9).encodeValue(w, 1); err == nil {
		t.Errorf("** unknown encoding: no error")
	}
}
