package tabcodec

import (
	"cmp"
	"maps"
	"slices"
)

// Schema holds every known Definition, keyed by table name, plus per-table patches.
type Schema struct {
	Version     uint16                     `msgpack:"version" json:"version"`
	Definitions map[string][]*Definition   `msgpack:"definitions" json:"definitions"`
	Patches     map[string]DefinitionPatch `msgpack:"patches,omitempty" json:"patches,omitempty"`
}

func NewSchema() *Schema {
	return &Schema{
		Definitions: make(map[string][]*Definition),
		Patches:     make(map[string]DefinitionPatch),
	}
}

// AddDefinition adds or replaces the definition with the same version. Definitions of a table
// are kept newest first.
func (s *Schema) AddDefinition(table string, def *Definition) {
	if s.Definitions == nil {
		s.Definitions = make(map[string][]*Definition)
	}
	defs := s.Definitions[table]
	if i := slices.IndexFunc(defs, func(d *Definition) bool { return d.Version == def.Version }); i >= 0 {
		defs[i] = def
		return
	}
	defs = append(defs, def)
	slices.SortStableFunc(defs, func(a, b *Definition) int {
		return cmp.Compare(b.Version, a.Version)
	})
	s.Definitions[table] = defs
}

func (s *Schema) RemoveDefinition(table string, version int32) bool {
	defs := s.Definitions[table]
	i := slices.IndexFunc(defs, func(d *Definition) bool { return d.Version == version })
	if i < 0 {
		return false
	}
	defs = slices.Delete(defs, i, i+1)
	if len(defs) == 0 {
		delete(s.Definitions, table)
	} else {
		s.Definitions[table] = defs
	}
	return true
}

func (s *Schema) DefinitionsByTableName(table string) []*Definition {
	return s.Definitions[table]
}

func (s *Schema) DefinitionByNameAndVersion(table string, version int32) (*Definition, bool) {
	for _, d := range s.Definitions[table] {
		if d.Version == version {
			return d, true
		}
	}
	return nil, false
}

// DefinitionNewer returns the newest definition of table if it is newer than version.
func (s *Schema) DefinitionNewer(table string, version int32) (*Definition, bool) {
	defs := s.Definitions[table]
	if len(defs) == 0 || defs[0].Version <= version {
		return nil, false
	}
	return defs[0], true
}

func (s *Schema) PatchesForTable(table string) DefinitionPatch {
	return s.Patches[table]
}

// AddPatch merges p into the table's patches, attribute by attribute.
func (s *Schema) AddPatch(table string, p DefinitionPatch) {
	if s.Patches == nil {
		s.Patches = make(map[string]DefinitionPatch)
	}
	cur := s.Patches[table]
	if cur == nil {
		cur = make(DefinitionPatch)
		s.Patches[table] = cur
	}
	for field, attrs := range p {
		for k, v := range attrs {
			cur.Set(field, k, v)
		}
	}
}

// PatchedDefinition returns a copy of the table's definition of that version with the
// table's patches attached.
func (s *Schema) PatchedDefinition(table string, version int32) (*Definition, bool) {
	d, ok := s.DefinitionByNameAndVersion(table, version)
	if !ok {
		return nil, false
	}
	return d.WithPatches(s.PatchesForTable(table)), true
}

func (s *Schema) TableNames() []string {
	return slices.Sorted(maps.Keys(s.Definitions))
}
