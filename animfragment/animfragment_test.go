package animfragment

import (
	"bytes"
	"encoding/hex"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/andreyvit/tabcodec"
)

const wh2Fragment = `
	02000000
	0300 687531  0000  01000000 05000000
	01000000
		03000000 04000000
		0100 61  0000  0000  0000
		0000003F 0000803F
		07000000 21000000
		0000  01
`

func wh2Tree() *AnimFragmentBattle {
	return &AnimFragmentBattle{
		Version:      2,
		SkeletonName: "hu1",
		MinID:        1,
		MaxID:        5,
		Entries: []Entry{{
			AnimationID:        3,
			SlotID:             4,
			Filename:           "a",
			BlendInTime:        0.5,
			SelectionWeight:    1,
			Uk3:                7,
			WeaponBone:         WeaponBone1 | WeaponBone6,
			SingleFrameVariant: true,
		}},
	}
}

const threeKingdomsFragment = `
	02000000
	0100 74  0000  0000  0100 73
	01 00
	01000000
		09000000 00000000 0000803F 03000000 00
		01000000
			0100 66  0000  0000
`

func threeKingdomsTree() *AnimFragmentBattle {
	return &AnimFragmentBattle{
		Version:        2,
		TableName:      "t",
		SkeletonName:   "s",
		IsSimpleFlight: true,
		Entries: []Entry{{
			AnimationID:     9,
			SelectionWeight: 1,
			WeaponBone:      WeaponBone1 | WeaponBone2,
			AnimRefs:        []AnimRef{{FilePath: "f"}},
		}},
	}
}

func TestWarhammer2(t *testing.T) {
	opt := Options{Dialect: DialectWarhammer2}
	frag := must(Decode(x(wh2Fragment), opt))
	deepEqual(t, frag, wh2Tree())

	data := must(wh2Tree().Encode(opt))
	if e := x(wh2Fragment); !bytes.Equal(data, e) {
		t.Fatalf("Encode = %x, wanted %x", data, e)
	}
}

func TestThreeKingdoms(t *testing.T) {
	opt := Options{Dialect: DialectForGame("three_kingdoms")}
	frag := must(Decode(x(threeKingdomsFragment), opt))
	deepEqual(t, frag, threeKingdomsTree())

	data := must(threeKingdomsTree().Encode(opt))
	if e := x(threeKingdomsFragment); !bytes.Equal(data, e) {
		t.Fatalf("Encode = %x, wanted %x", data, e)
	}
}

func TestWeaponBoneMasked(t *testing.T) {
	data := x(wh2Fragment)
	// weapon bone of the only entry
	off := bytes.Index(data, x("07000000 21000000")) + 4
	copy(data[off:], x("E1FFFFFF"))
	frag := must(Decode(data, Options{Dialect: DialectWarhammer2}))
	if a, e := frag.Entries[0].WeaponBone, WeaponBone1|WeaponBone6; a != e {
		t.Errorf("** WeaponBone = %b, wanted %b", a, e)
	}
}

func TestDecodeErrors(t *testing.T) {
	wh2 := Options{Dialect: DialectWarhammer2}

	_, err := Decode(x("63000000"), wh2)
	var verr *UnsupportedVersionError
	if !errors.As(err, &verr) || verr.Version != 99 {
		t.Errorf("** version 99: err = %v, wanted UnsupportedVersionError", err)
	}

	_, err = Decode(x(wh2Fragment), Options{})
	var derr *UnsupportedDialectError
	if !errors.As(err, &derr) || derr.Version != 2 || derr.Dialect != DialectNone {
		t.Errorf("** no dialect: err = %v, wanted UnsupportedDialectError", err)
	}

	if _, err := Decode(append(x(wh2Fragment), 0), wh2); err == nil {
		t.Errorf("** trailing byte: no error")
	}

	full := x(wh2Fragment)
	for n := range len(full) {
		if _, err := Decode(full[:n], wh2); err == nil {
			t.Errorf("** truncated to %d bytes: no error", n)
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	frag := wh2Tree()
	frag.Version = 4
	_, err := frag.Encode(Options{Dialect: DialectWarhammer2})
	var verr *UnsupportedVersionError
	if !errors.As(err, &verr) {
		t.Errorf("** version 4: err = %v, wanted UnsupportedVersionError", err)
	}

	frag = wh2Tree()
	frag.Entries[0].Uk4 = strings.Repeat("x", 1<<16)
	if _, err := frag.Encode(Options{Dialect: DialectWarhammer2}); err == nil {
		t.Errorf("** oversized string: no error")
	}
}

func TestDialectForGame(t *testing.T) {
	tests := []struct {
		game string
		e    Dialect
	}{
		{"warhammer_2", DialectWarhammer2},
		{"troy", DialectWarhammer2},
		{"pharaoh", DialectWarhammer2},
		{"three_kingdoms", DialectThreeKingdoms},
		{"warhammer_3", DialectNone},
	}
	for _, tt := range tests {
		if a := DialectForGame(tt.game); a != tt.e {
			t.Errorf("** DialectForGame(%q) = %v, wanted %v", tt.game, a, tt.e)
		}
	}
}

func TestTableRoundTrip(t *testing.T) {
	for _, frag := range []*AnimFragmentBattle{wh2Tree(), threeKingdomsTree()} {
		tbl := must(frag.ToTable())
		if a, e := tbl.Len(), len(frag.Entries); a != e {
			t.Fatalf("Len = %d, wanted %d", a, e)
		}
		row := tbl.Rows()[0]
		bone1 := tbl.ColumnPositionByName("weapon_bone_1")
		bone3 := tbl.ColumnPositionByName("weapon_bone_3")
		if bone1 < 0 || !row[bone1].Bool() || row[bone3].Bool() {
			t.Errorf("** weapon bone columns = %v, %v", row[bone1], row[bone3])
		}
		deepEqual(t, must(FromTable(tbl)), frag.Entries)
	}
}

func TestFromTableMissingColumn(t *testing.T) {
	def := tabcodec.NewDefinition(0, tabcodec.NewField("animation_id", tabcodec.TypeI32))
	if _, err := FromTable(tabcodec.NewTable("x", def)); err == nil {
		t.Errorf("** FromTable without columns: no error")
	}
}

func TestFileRoundTrip(t *testing.T) {
	opt := Options{Dialect: DialectThreeKingdoms}
	path := filepath.Join(t.TempDir(), "hu1"+ExtensionNew)
	if err := WriteFile(path, threeKingdomsTree(), opt); err != nil {
		t.Fatal(err)
	}
	deepEqual(t, must(ReadFile(path, opt)), threeKingdomsTree())
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %+v, wanted %+v", a, e)
	}
}

func x(data string) []byte {
	data = strings.Join(strings.Fields(data), "")
	return must(hex.DecodeString(data))
}

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}
