package animfragment

import (
	"fmt"
	"strconv"

	"github.com/andreyvit/tabcodec"
)

// Definitions describes entries as a table. Weapon bones expand to weapon_bone_1..6 and
// anim_refs is a nested table described by refsDef.
func Definitions() (def, refsDef *tabcodec.Definition) {
	refsDef = tabcodec.NewDefinition(0,
		tabcodec.NewField("file_path", tabcodec.TypeStringU8),
		tabcodec.NewField("meta_file_path", tabcodec.TypeStringU8),
		tabcodec.NewField("snd_file_path", tabcodec.TypeStringU8),
	)

	animationID := tabcodec.NewField("animation_id", tabcodec.TypeI32)
	animationID.IsKey = true
	slotID := tabcodec.NewField("slot_id", tabcodec.TypeI32)
	slotID.IsKey = true
	weaponBone := tabcodec.NewField("weapon_bone", tabcodec.TypeI32)
	weaponBone.IsBitwise = weaponBoneCount

	def = tabcodec.NewDefinition(0,
		animationID,
		tabcodec.NewField("blend_in_time", tabcodec.TypeF32),
		tabcodec.NewField("selection_weight", tabcodec.TypeF32),
		weaponBone,
		tabcodec.NewField("anim_refs", tabcodec.SequenceU32Of(refsDef)),
		slotID,
		tabcodec.NewField("filename", tabcodec.TypeStringU8),
		tabcodec.NewField("metadata", tabcodec.TypeStringU8),
		tabcodec.NewField("metadata_sound", tabcodec.TypeStringU8),
		tabcodec.NewField("skeleton_type", tabcodec.TypeStringU8),
		tabcodec.NewField("uk_3", tabcodec.TypeI32),
		tabcodec.NewField("uk_4", tabcodec.TypeStringU8),
		tabcodec.NewField("single_frame_variant", tabcodec.TypeBoolean),
	)
	return def, refsDef
}

// ToTable renders the entries as table rows. Unsigned ids above MaxInt32 wrap like the game does.
func (frag *AnimFragmentBattle) ToTable() (*tabcodec.Table, error) {
	def, refsDef := Definitions()
	t := tabcodec.NewTable(frag.SkeletonName, def)
	rows := make(tabcodec.Rows, 0, len(frag.Entries))
	for i := range frag.Entries {
		e := &frag.Entries[i]
		refRows := make(tabcodec.Rows, 0, len(e.AnimRefs))
		for _, ref := range e.AnimRefs {
			refRows = append(refRows, tabcodec.Row{
				tabcodec.StringU8(ref.FilePath),
				tabcodec.StringU8(ref.MetaFilePath),
				tabcodec.StringU8(ref.SndFilePath),
			})
		}
		refs, err := tabcodec.NewSequence(tabcodec.KindSequenceU32, refsDef, refRows)
		if err != nil {
			return nil, fmt.Errorf("entry %d: anim_refs: %w", i, err)
		}

		row := tabcodec.Row{
			tabcodec.I32(int32(e.AnimationID)),
			tabcodec.F32(e.BlendInTime),
			tabcodec.F32(e.SelectionWeight),
		}
		for bit := range weaponBoneCount {
			row = append(row, tabcodec.Bool(e.WeaponBone.Has(1<<bit)))
		}
		row = append(row,
			refs,
			tabcodec.I32(int32(e.SlotID)),
			tabcodec.StringU8(e.Filename),
			tabcodec.StringU8(e.Metadata),
			tabcodec.StringU8(e.MetadataSound),
			tabcodec.StringU8(e.SkeletonType),
			tabcodec.I32(int32(e.Uk3)),
			tabcodec.StringU8(e.Uk4),
			tabcodec.Bool(e.SingleFrameVariant),
		)
		rows = append(rows, row)
	}
	if err := t.SetRows(rows); err != nil {
		return nil, err
	}
	return t, nil
}

// FromTable reads entries back from a table shaped like Definitions. Columns are found by
// name, so a table with extra columns is accepted.
func FromTable(t *tabcodec.Table) ([]Entry, error) {
	_, refsDef := Definitions()
	col := func(name string) (int, error) {
		i := t.ColumnPositionByName(name)
		if i < 0 {
			return 0, fmt.Errorf("table %s has no %s column", t.Name, name)
		}
		return i, nil
	}
	names := []string{
		"animation_id", "blend_in_time", "selection_weight", "anim_refs", "slot_id",
		"filename", "metadata", "metadata_sound", "skeleton_type", "uk_3", "uk_4", "single_frame_variant",
	}
	for bit := 1; bit <= weaponBoneCount; bit++ {
		names = append(names, "weapon_bone_"+strconv.Itoa(bit))
	}
	pos := make(map[string]int, len(names))
	for _, name := range names {
		i, err := col(name)
		if err != nil {
			return nil, err
		}
		pos[name] = i
	}

	entries := make([]Entry, 0, t.Len())
	for ri, row := range t.Rows() {
		e := Entry{
			AnimationID:        uint32(row[pos["animation_id"]].Int()),
			BlendInTime:        float32(row[pos["blend_in_time"]].Float()),
			SelectionWeight:    float32(row[pos["selection_weight"]].Float()),
			SlotID:             uint32(row[pos["slot_id"]].Int()),
			Filename:           row[pos["filename"]].Text(),
			Metadata:           row[pos["metadata"]].Text(),
			MetadataSound:      row[pos["metadata_sound"]].Text(),
			SkeletonType:       row[pos["skeleton_type"]].Text(),
			Uk3:                uint32(row[pos["uk_3"]].Int()),
			Uk4:                row[pos["uk_4"]].Text(),
			SingleFrameVariant: row[pos["single_frame_variant"]].Bool(),
		}
		for bit := 1; bit <= weaponBoneCount; bit++ {
			if row[pos["weapon_bone_"+strconv.Itoa(bit)]].Bool() {
				e.WeaponBone |= 1 << (bit - 1)
			}
		}
		refRows, err := row[pos["anim_refs"]].NestedRows(refsDef)
		if err != nil {
			return nil, fmt.Errorf("row %d: anim_refs: %w", ri+1, err)
		}
		for _, rr := range refRows {
			e.AnimRefs = append(e.AnimRefs, AnimRef{
				FilePath:     rr[0].Text(),
				MetaFilePath: rr[1].Text(),
				SndFilePath:  rr[2].Text(),
			})
		}
		entries = append(entries, e)
	}
	return entries, nil
}
