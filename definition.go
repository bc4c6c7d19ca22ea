package tabcodec

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const (
	mergedColourSuffix  = "_hex"
	unnamedColourPrefix = "unnamed colour group"
)

// Definition is the schema of one version of one table.
//
// Version is -1 for synthetic or incomplete definitions, 0 for unversioned tables
// and positive for real versions.
type Definition struct {
	Version         int32           `msgpack:"version" json:"version"`
	Fields          []Field         `msgpack:"fields" json:"fields"`
	LocalisedFields []Field         `msgpack:"localised,omitempty" json:"localised_fields,omitempty"`
	Patches         DefinitionPatch `msgpack:"patches,omitempty" json:"patches,omitempty"`
}

func NewDefinition(version int32, fields ...Field) *Definition {
	return &Definition{Version: version, Fields: fields}
}

func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	c := &Definition{
		Version: d.Version,
		Patches: d.Patches.Clone(),
	}
	c.Fields = cloneFields(d.Fields)
	c.LocalisedFields = cloneFields(d.LocalisedFields)
	return c
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i := range fields {
		out[i] = fields[i].Clone()
	}
	return out
}

func (d *Definition) Equal(o *Definition) bool {
	if d == nil || o == nil {
		return d == o
	}
	if d.Version != o.Version || len(d.Fields) != len(o.Fields) || len(d.LocalisedFields) != len(o.LocalisedFields) {
		return false
	}
	for i := range d.Fields {
		if !d.Fields[i].Equal(&o.Fields[i]) {
			return false
		}
	}
	for i := range d.LocalisedFields {
		if !d.LocalisedFields[i].Equal(&o.LocalisedFields[i]) {
			return false
		}
	}
	return true
}

// WithPatches returns a copy of d that consults p in every patch-aware accessor.
func (d *Definition) WithPatches(p DefinitionPatch) *Definition {
	c := d.Clone()
	c.Patches = p.Clone()
	return c
}

func (d *Definition) FieldByName(name string) (*Field, bool) {
	for i := range d.Fields {
		if d.Fields[i].Name == name {
			return &d.Fields[i], true
		}
	}
	return nil, false
}

// FieldsProcessed returns the columns rows actually hold: bitwise fields become N booleans,
// enum fields become strings and colour channels collapse into one ColourRGB per group,
// appended after everything else in the order the groups were first seen.
func (d *Definition) FieldsProcessed() []Field {
	return d.layout().processed
}

// FieldsProcessedSorted orders the derived fields with keys first, or by CaOrder where both
// sides declare one.
func (d *Definition) FieldsProcessedSorted(keyFirst bool) []Field {
	fields := d.FieldsProcessed()
	slices.SortStableFunc(fields, func(a, b Field) int {
		if keyFirst {
			switch {
			case a.IsKey == b.IsKey:
				return 0
			case a.IsKey:
				return -1
			default:
				return 1
			}
		}
		if a.CaOrder == -1 || b.CaOrder == -1 {
			return 0
		}
		return cmp.Compare(a.CaOrder, b.CaOrder)
	})
	return fields
}

// OriginalFieldFromProcessed maps a derived column back to the raw field it came from.
// Combined colour columns have no single raw field and yield an error.
func (d *Definition) OriginalFieldFromProcessed(index int) (*Field, error) {
	l := d.layout()
	if index < 0 || index >= len(l.origin) {
		return nil, fmt.Errorf("column %d out of range (%d columns)", index, len(l.origin))
	}
	raw := l.origin[index]
	if raw < 0 {
		return nil, fmt.Errorf("column %d (%s) is a combined colour column", index, l.processed[index].Name)
	}
	return &d.Fields[raw], nil
}

// ColumnPositionByName returns the derived column index of name, or -1.
func (d *Definition) ColumnPositionByName(name string) int {
	for i, f := range d.FieldsProcessed() {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// ColourGroupName is the name of the combined column a colour channel field contributes to.
func ColourGroupName(f *Field) string {
	if prefix, _, ok := splitColourChannel(f.Name); ok && prefix != "" {
		return prefix + mergedColourSuffix
	}
	id, _ := f.ColourGroup()
	return unnamedColourPrefix + "_" + strconv.Itoa(int(id))
}

type expansion uint8

const (
	expandPlain expansion = iota
	expandBitwise
	expandEnum
	expandColour
)

// expansion picks the single derived-field rule that applies to f: bitwise, then enum, then colour.
func (f *Field) expansion() expansion {
	k := f.Type.Kind
	switch {
	case f.IsBitwise > 1 && k.IsInteger():
		return expandBitwise
	case len(f.EnumValues) > 0 && k.IsInteger():
		return expandEnum
	case f.IsPartOfColour != nil && k.IsNumeric():
		return expandColour
	default:
		return expandPlain
	}
}

type colourChannel uint8

const (
	channelNone colourChannel = iota
	channelR
	channelG
	channelB
)

// splitColourChannel recognises the _r/_g/_b/_red/_green/_blue suffixes, case-insensitively.
// A bare channel name such as "red" yields an empty prefix.
func splitColourChannel(name string) (prefix string, ch colourChannel, ok bool) {
	lower := strings.ToLower(name)
	suffix := lower
	if i := strings.LastIndexByte(lower, '_'); i >= 0 {
		prefix, suffix = lower[:i], lower[i+1:]
	}
	switch suffix {
	case "r", "red":
		ch = channelR
	case "g", "green":
		ch = channelG
	case "b", "blue":
		ch = channelB
	default:
		return "", channelNone, false
	}
	return prefix, ch, true
}

// rawPlan says where the derived cells of one raw field live.
type rawPlan struct {
	exp     expansion
	column  int // first derived column; for colour fields, the combined column
	count   int // derived columns consumed (bitwise N, otherwise 1; 0 for colour channels)
	channel colourChannel
}

type colourGroup struct {
	id       uint8
	column   int
	channels [4]bool
	defaults [4]uint8
	hasDef   bool
}

type definitionLayout struct {
	processed []Field
	origin    []int // raw field index per derived column, -1 for combined colours
	plans     []rawPlan
	groups    []*colourGroup
}

func (d *Definition) layout() *definitionLayout {
	l := &definitionLayout{
		plans: make([]rawPlan, len(d.Fields)),
	}
	var colourFields []Field
	groupByID := make(map[uint8]*colourGroup)

	for i := range d.Fields {
		f := &d.Fields[i]
		switch exp := f.expansion(); exp {
		case expandBitwise:
			l.plans[i] = rawPlan{exp: exp, column: len(l.processed), count: int(f.IsBitwise)}
			unused := f.IsUnused(d.Patches)
			for bit := 1; bit <= int(f.IsBitwise); bit++ {
				df := f.Clone()
				df.Name = f.Name + "_" + strconv.Itoa(bit)
				df.Type = TypeBoolean
				df.Unused = unused
				df.EnumValues = nil
				df.Default = nil
				l.processed = append(l.processed, df)
				l.origin = append(l.origin, i)
			}

		case expandEnum:
			l.plans[i] = rawPlan{exp: exp, column: len(l.processed), count: 1}
			df := f.Clone()
			df.Type = TypeStringU8
			if def := f.DefaultValue(d.Patches); def != nil {
				df.Default = ptr(enumLabel(f, *def))
			}
			l.processed = append(l.processed, df)
			l.origin = append(l.origin, i)

		case expandColour:
			id := *f.IsPartOfColour
			g := groupByID[id]
			if g == nil {
				g = &colourGroup{id: id, column: -1}
				groupByID[id] = g
				l.groups = append(l.groups, g)
				df := f.Clone()
				df.Name = ColourGroupName(f)
				df.Type = TypeColourRGB
				df.Default = nil
				colourFields = append(colourFields, df)
			}
			_, ch, _ := splitColourChannel(f.Name)
			l.plans[i] = rawPlan{exp: exp, channel: ch}
			g.channels[ch] = true
			if def := f.DefaultValue(d.Patches); def != nil {
				if v, err := strconv.ParseFloat(strings.TrimSpace(*def), 64); err == nil {
					g.defaults[ch] = uint8(int64(v))
					g.hasDef = true
				}
			}

		default:
			l.plans[i] = rawPlan{exp: exp, column: len(l.processed), count: 1}
			df := f.Clone()
			df.Default = f.DefaultValue(d.Patches)
			l.processed = append(l.processed, df)
			l.origin = append(l.origin, i)
		}
	}

	for gi, g := range l.groups {
		g.column = len(l.processed)
		df := colourFields[gi]
		if g.hasDef {
			df.Default = ptr(g.hex(g.defaults))
		}
		l.processed = append(l.processed, df)
		l.origin = append(l.origin, -1)
	}
	for i := range l.plans {
		if l.plans[i].exp == expandColour {
			l.plans[i].column = groupByID[*d.Fields[i].IsPartOfColour].column
		}
	}
	return l
}

// hex packs per-channel values as RRGGBB. Missing channels are 00.
func (g *colourGroup) hex(values [4]uint8) string {
	return fmt.Sprintf("%02X%02X%02X", values[channelR], values[channelG], values[channelB])
}

// enumLabel renders a raw integer default as its label when one exists.
func enumLabel(f *Field, raw string) string {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 32)
	if err != nil {
		return raw
	}
	if label, ok := f.EnumValues[int32(v)]; ok {
		return label
	}
	return raw
}
