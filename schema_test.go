package tabcodec

import (
	"testing"
)

func TestSchemaDefinitions(t *testing.T) {
	s := NewSchema()
	s.AddDefinition("t", pairDef(1))
	s.AddDefinition("t", pairDef(3))
	s.AddDefinition("t", pairDef(2))
	s.AddDefinition("u", pairDef(0))

	var versions []int32
	for _, d := range s.DefinitionsByTableName("t") {
		versions = append(versions, d.Version)
	}
	deepEqual(t, versions, []int32{3, 2, 1})
	deepEqual(t, s.TableNames(), []string{"t", "u"})

	replacement := NewDefinition(2, NewField("only", TypeBoolean))
	s.AddDefinition("t", replacement)
	if d, _ := s.DefinitionByNameAndVersion("t", 2); d != replacement || len(s.DefinitionsByTableName("t")) != 3 {
		t.Errorf("** AddDefinition did not replace version 2")
	}

	if d, ok := s.DefinitionNewer("t", 2); !ok || d.Version != 3 {
		t.Errorf("** DefinitionNewer(2) = %v, %v", d, ok)
	}
	if _, ok := s.DefinitionNewer("t", 3); ok {
		t.Errorf("** DefinitionNewer(3) found something")
	}
	if _, ok := s.DefinitionByNameAndVersion("t", 7); ok {
		t.Errorf("** DefinitionByNameAndVersion(7) found something")
	}

	if !s.RemoveDefinition("u", 0) || s.RemoveDefinition("u", 0) {
		t.Errorf("** RemoveDefinition results wrong")
	}
	deepEqual(t, s.TableNames(), []string{"t"})
}

func TestSchemaPatches(t *testing.T) {
	s := NewSchema()
	s.AddDefinition("t", pairDef(1))

	p1 := make(DefinitionPatch)
	p1.Set("value", PatchDefaultValue, "1")
	p1.Set("value", PatchUnused, "true")
	s.AddPatch("t", p1)
	p2 := make(DefinitionPatch)
	p2.Set("value", PatchDefaultValue, "2")
	p2.Set("key", PatchDescription, "the key")
	s.AddPatch("t", p2)

	deepEqual(t, s.PatchesForTable("t"), DefinitionPatch{
		"value": {PatchDefaultValue: "2", PatchUnused: "true"},
		"key":   {PatchDescription: "the key"},
	})

	d, ok := s.PatchedDefinition("t", 1)
	if !ok {
		t.Fatalf("PatchedDefinition not found")
	}
	value, _ := d.FieldByName("value")
	if *value.DefaultValue(d.Patches) != "2" || !value.IsUnused(d.Patches) {
		t.Errorf("** patched definition does not see the patches")
	}
	orig, _ := s.DefinitionByNameAndVersion("t", 1)
	if orig.Patches != nil {
		t.Errorf("** PatchedDefinition modified the stored definition")
	}
	if _, ok := s.PatchedDefinition("t", 2); ok {
		t.Errorf("** PatchedDefinition(2) found something")
	}
}

func TestDefinitionCloneEqual(t *testing.T) {
	def := unitsDef()
	def.Fields[0].Lookup = []string{"a"}
	def.LocalisedFields = []Field{NewField("name", TypeStringU16)}
	c := def.Clone()
	if !c.Equal(def) {
		t.Fatalf("clone is not equal")
	}

	c.Fields[2].EnumValues[9] = "nine"
	*c.Fields[3].IsPartOfColour = 5
	c.Fields[0].Lookup[0] = "b"
	if _, ok := def.Fields[2].EnumValues[9]; ok || *def.Fields[3].IsPartOfColour != 1 || def.Fields[0].Lookup[0] != "a" {
		t.Errorf("** clone shares state with the original")
	}
	if c.Equal(def) {
		t.Errorf("** modified clone is still equal")
	}

	seq := NewDefinition(1, NewField("s", SequenceU16Of(partsDef())))
	other := NewDefinition(1, NewField("s", SequenceU16Of(NewDefinition(0))))
	if seq.Equal(other) {
		t.Errorf("** sequences with different nested definitions are equal")
	}
	var nilDef *Definition
	if !nilDef.Equal(nil) || nilDef.Equal(seq) || nilDef.Clone() != nil {
		t.Errorf("** nil definition handling")
	}
}

func TestFieldsProcessedSorted(t *testing.T) {
	a := NewField("a", TypeI32)
	a.CaOrder = 2
	b := NewField("b", TypeI32)
	b.CaOrder = 0
	b.IsKey = true
	c := NewField("c", TypeI32)
	c.CaOrder = 1
	def := NewDefinition(1, a, b, c)

	names := func(fields []Field) (out []string) {
		for _, f := range fields {
			out = append(out, f.Name)
		}
		return
	}
	deepEqual(t, names(def.FieldsProcessedSorted(true)), []string{"b", "a", "c"})
	deepEqual(t, names(def.FieldsProcessedSorted(false)), []string{"b", "c", "a"})
}

func TestKindNames(t *testing.T) {
	for k := Kind(0); k < kindCount; k++ {
		if a := must(ParseKind(k.String())); a != k {
			t.Errorf("** ParseKind(%q) = %v", k.String(), a)
		}
	}
	if _, err := ParseKind("U128"); err == nil {
		t.Errorf("** ParseKind(U128) did not fail")
	}
	if Kind(200).IsValid() {
		t.Errorf("** Kind(200) is valid")
	}
}
