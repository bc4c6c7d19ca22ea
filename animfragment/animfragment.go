// Package animfragment reads and writes battle animation fragments, the lists that map
// animation slots of a skeleton to animation files.
package animfragment

import (
	"fmt"
	"math"

	"github.com/andreyvit/tabcodec/binio"
)

const (
	BasePath     = "animations/"
	MidPath      = "/battle/"
	ExtensionNew = ".bin"
	ExtensionOld = ".frg"
)

// Dialect selects between layouts that share a version number.
type Dialect uint8

const (
	DialectNone Dialect = iota
	DialectWarhammer2
	DialectThreeKingdoms
)

func (d Dialect) String() string {
	switch d {
	case DialectNone:
		return "none"
	case DialectWarhammer2:
		return "warhammer_2"
	case DialectThreeKingdoms:
		return "three_kingdoms"
	default:
		return fmt.Sprintf("Dialect(%d)", uint8(d))
	}
}

// DialectForGame maps a game key to the fragment layout it uses. Troy and Pharaoh write the
// Warhammer 2 layout.
func DialectForGame(gameKey string) Dialect {
	switch gameKey {
	case "warhammer_2", "troy", "pharaoh":
		return DialectWarhammer2
	case "three_kingdoms":
		return DialectThreeKingdoms
	default:
		return DialectNone
	}
}

type Options struct {
	Dialect Dialect
}

// WeaponBone is a set of up to six weapon bones. Other bits are dropped on decode.
type WeaponBone uint32

const (
	WeaponBone1 WeaponBone = 1 << iota
	WeaponBone2
	WeaponBone3
	WeaponBone4
	WeaponBone5
	WeaponBone6

	weaponBoneCount = 6
	weaponBoneMask  = 1<<weaponBoneCount - 1
)

func (b WeaponBone) Has(v WeaponBone) bool {
	return b&v == v
}

type AnimRef struct {
	FilePath     string
	MetaFilePath string
	SndFilePath  string
}

// Entry is one animation slot. Which fields are stored depends on the dialect: Warhammer 2
// fragments carry file names directly, Three Kingdoms ones a list of AnimRefs.
type Entry struct {
	AnimationID        uint32
	BlendInTime        float32
	SelectionWeight    float32
	WeaponBone         WeaponBone
	AnimRefs           []AnimRef
	SlotID             uint32
	Filename           string
	Metadata           string
	MetadataSound      string
	SkeletonType       string
	Uk3                uint32
	Uk4                string
	SingleFrameVariant bool
}

type AnimFragmentBattle struct {
	Version          uint32
	Entries          []Entry
	SkeletonName     string
	TableName        string
	MountTableName   string
	UnmountTableName string
	IsSimpleFlight   bool
	IsNewCavalryTech bool
	MinID            uint32
	MaxID            uint32
}

// Decode parses a fragment. The whole of data must be consumed.
func Decode(data []byte, opt Options) (*AnimFragmentBattle, error) {
	r := binio.NewReader(data)
	version, err := r.U32()
	if err != nil {
		return nil, err
	}
	frag := &AnimFragmentBattle{Version: version}
	switch version {
	case 2:
		switch opt.Dialect {
		case DialectWarhammer2:
			err = frag.readV2Warhammer2(r)
		case DialectThreeKingdoms:
			err = frag.readV2ThreeKingdoms(r)
		default:
			return nil, &UnsupportedDialectError{Version: version, Dialect: opt.Dialect}
		}
	default:
		return nil, &UnsupportedVersionError{Format: "AnimFragmentBattle", Version: version}
	}
	if err != nil {
		return nil, err
	}
	if err := binio.CheckSizeMismatch(r.Len(), r.Off()); err != nil {
		return nil, binio.Errorf(data, r.Off(), err, "trailing data after anim fragment")
	}
	return frag, nil
}

func (frag *AnimFragmentBattle) Encode(opt Options) ([]byte, error) {
	w := binio.NewWriter(64 + 128*len(frag.Entries))
	w.WriteU32(frag.Version)
	var err error
	switch frag.Version {
	case 2:
		switch opt.Dialect {
		case DialectWarhammer2:
			err = frag.writeV2Warhammer2(w)
		case DialectThreeKingdoms:
			err = frag.writeV2ThreeKingdoms(w)
		default:
			return nil, &UnsupportedDialectError{Version: frag.Version, Dialect: opt.Dialect}
		}
	default:
		return nil, &UnsupportedVersionError{Format: "AnimFragmentBattle", Version: frag.Version}
	}
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

func (frag *AnimFragmentBattle) readV2Warhammer2(r *binio.Reader) error {
	var err error
	if frag.SkeletonName, err = r.SizedStringU8(); err != nil {
		return err
	}
	if frag.MountTableName, err = r.SizedStringU8(); err != nil {
		return err
	}
	if frag.MinID, err = r.U32(); err != nil {
		return err
	}
	if frag.MaxID, err = r.U32(); err != nil {
		return err
	}
	count, err := r.U32()
	if err != nil {
		return err
	}

	// ids, four empty strings, floats, two u32s, empty string, bool
	const minEntrySize = 8 + 4*2 + 8 + 8 + 2 + 1
	frag.Entries = make([]Entry, 0, min(int(count), r.Remaining()/minEntrySize))
	for range count {
		var e Entry
		if e.AnimationID, err = r.U32(); err != nil {
			return err
		}
		if e.SlotID, err = r.U32(); err != nil {
			return err
		}
		for _, s := range []*string{&e.Filename, &e.Metadata, &e.MetadataSound, &e.SkeletonType} {
			if *s, err = r.SizedStringU8(); err != nil {
				return err
			}
		}
		if e.BlendInTime, err = r.F32(); err != nil {
			return err
		}
		if e.SelectionWeight, err = r.F32(); err != nil {
			return err
		}
		if e.Uk3, err = r.U32(); err != nil {
			return err
		}
		if e.WeaponBone, err = readWeaponBone(r); err != nil {
			return err
		}
		if e.Uk4, err = r.SizedStringU8(); err != nil {
			return err
		}
		if e.SingleFrameVariant, err = r.Bool(); err != nil {
			return err
		}
		frag.Entries = append(frag.Entries, e)
	}
	return nil
}

func (frag *AnimFragmentBattle) writeV2Warhammer2(w *binio.Writer) error {
	if err := writeStrings(w, frag.SkeletonName, frag.MountTableName); err != nil {
		return err
	}
	w.WriteU32(frag.MinID)
	w.WriteU32(frag.MaxID)
	if err := writeCount(w, len(frag.Entries)); err != nil {
		return err
	}
	for i := range frag.Entries {
		e := &frag.Entries[i]
		w.WriteU32(e.AnimationID)
		w.WriteU32(e.SlotID)
		if err := writeStrings(w, e.Filename, e.Metadata, e.MetadataSound, e.SkeletonType); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		w.WriteF32(e.BlendInTime)
		w.WriteF32(e.SelectionWeight)
		w.WriteU32(e.Uk3)
		w.WriteU32(uint32(e.WeaponBone))
		if err := w.WriteSizedStringU8(e.Uk4); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		w.WriteBool(e.SingleFrameVariant)
	}
	return nil
}

func (frag *AnimFragmentBattle) readV2ThreeKingdoms(r *binio.Reader) error {
	var err error
	for _, s := range []*string{&frag.TableName, &frag.MountTableName, &frag.UnmountTableName, &frag.SkeletonName} {
		if *s, err = r.SizedStringU8(); err != nil {
			return err
		}
	}
	if frag.IsSimpleFlight, err = r.Bool(); err != nil {
		return err
	}
	if frag.IsNewCavalryTech, err = r.Bool(); err != nil {
		return err
	}
	count, err := r.U32()
	if err != nil {
		return err
	}

	// id, floats, bones, bool, ref count
	const minEntrySize = 4 + 8 + 4 + 1 + 4
	frag.Entries = make([]Entry, 0, min(int(count), r.Remaining()/minEntrySize))
	for range count {
		var e Entry
		if e.AnimationID, err = r.U32(); err != nil {
			return err
		}
		if e.BlendInTime, err = r.F32(); err != nil {
			return err
		}
		if e.SelectionWeight, err = r.F32(); err != nil {
			return err
		}
		if e.WeaponBone, err = readWeaponBone(r); err != nil {
			return err
		}
		if e.SingleFrameVariant, err = r.Bool(); err != nil {
			return err
		}
		refs, err := r.U32()
		if err != nil {
			return err
		}
		for range refs {
			var ref AnimRef
			for _, s := range []*string{&ref.FilePath, &ref.MetaFilePath, &ref.SndFilePath} {
				if *s, err = r.SizedStringU8(); err != nil {
					return err
				}
			}
			e.AnimRefs = append(e.AnimRefs, ref)
		}
		frag.Entries = append(frag.Entries, e)
	}
	return nil
}

func (frag *AnimFragmentBattle) writeV2ThreeKingdoms(w *binio.Writer) error {
	if err := writeStrings(w, frag.TableName, frag.MountTableName, frag.UnmountTableName, frag.SkeletonName); err != nil {
		return err
	}
	w.WriteBool(frag.IsSimpleFlight)
	w.WriteBool(frag.IsNewCavalryTech)
	if err := writeCount(w, len(frag.Entries)); err != nil {
		return err
	}
	for i := range frag.Entries {
		e := &frag.Entries[i]
		w.WriteU32(e.AnimationID)
		w.WriteF32(e.BlendInTime)
		w.WriteF32(e.SelectionWeight)
		w.WriteU32(uint32(e.WeaponBone))
		w.WriteBool(e.SingleFrameVariant)
		if err := writeCount(w, len(e.AnimRefs)); err != nil {
			return err
		}
		for _, ref := range e.AnimRefs {
			if err := writeStrings(w, ref.FilePath, ref.MetaFilePath, ref.SndFilePath); err != nil {
				return fmt.Errorf("entry %d: %w", i, err)
			}
		}
	}
	return nil
}

func readWeaponBone(r *binio.Reader) (WeaponBone, error) {
	v, err := r.U32()
	return WeaponBone(v) & weaponBoneMask, err
}

func writeStrings(w *binio.Writer, values ...string) error {
	for _, s := range values {
		if err := w.WriteSizedStringU8(s); err != nil {
			return err
		}
	}
	return nil
}

func writeCount(w *binio.Writer, n int) error {
	if uint64(n) > math.MaxUint32 {
		return fmt.Errorf("%d items do not fit a u32 count", n)
	}
	w.WriteU32(uint32(n))
	return nil
}
