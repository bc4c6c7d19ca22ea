package tabcodec

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Patch attribute names understood by Field accessors.
const (
	PatchDefaultValue = "default_value"
	PatchNotEmpty     = "not_empty"
	PatchExplanation  = "explanation"
	PatchUnused       = "unused"
	PatchDescription  = "description"
)

// DefinitionPatch overrides individual field attributes: field name → attribute → value.
// A nil patch is valid and overrides nothing.
type DefinitionPatch map[string]map[string]string

func (p DefinitionPatch) lookup(field, attr string) (string, bool) {
	if p == nil {
		return "", false
	}
	attrs := p[field]
	if attrs == nil {
		return "", false
	}
	v, ok := attrs[attr]
	return v, ok
}

func (p DefinitionPatch) Set(field, attr, value string) {
	attrs := p[field]
	if attrs == nil {
		attrs = make(map[string]string)
		p[field] = attrs
	}
	attrs[attr] = value
}

func (p DefinitionPatch) Clone() DefinitionPatch {
	if p == nil {
		return nil
	}
	out := make(DefinitionPatch, len(p))
	for k, v := range p {
		out[k] = maps.Clone(v)
	}
	return out
}

// Reference is a foreign key descriptor.
type Reference struct {
	Table  string `msgpack:"t" json:"table"`
	Column string `msgpack:"c" json:"column"`
}

// Field is one raw column of a Definition.
type Field struct {
	Name                 string           `msgpack:"name" json:"name"`
	Type                 FieldType        `msgpack:"type" json:"type"`
	IsKey                bool             `msgpack:"key,omitempty" json:"is_key,omitempty"`
	Default              *string          `msgpack:"default,omitempty" json:"default_value,omitempty"`
	IsFilename           bool             `msgpack:"filename,omitempty" json:"is_filename,omitempty"`
	FilenameRelativePath *string          `msgpack:"relpath,omitempty" json:"filename_relative_path,omitempty"`
	IsReference          *Reference       `msgpack:"ref,omitempty" json:"is_reference,omitempty"`
	Lookup               []string         `msgpack:"lookup,omitempty" json:"lookup,omitempty"`
	Description          string           `msgpack:"desc,omitempty" json:"description,omitempty"`
	CaOrder              int16            `msgpack:"order" json:"ca_order"`
	IsBitwise            int32            `msgpack:"bitwise,omitempty" json:"is_bitwise,omitempty"`
	EnumValues           map[int32]string `msgpack:"enum,omitempty" json:"enum_values,omitempty"`
	IsPartOfColour       *uint8           `msgpack:"colour,omitempty" json:"is_part_of_colour,omitempty"`
	Unused               bool             `msgpack:"unused,omitempty" json:"unused,omitempty"`
}

func NewField(name string, ft FieldType) Field {
	return Field{Name: name, Type: ft, CaOrder: -1}
}

// DefaultValue returns the patched default, falling back to the declared one.
func (f *Field) DefaultValue(p DefinitionPatch) *string {
	if v, ok := p.lookup(f.Name, PatchDefaultValue); ok {
		return &v
	}
	return f.Default
}

func (f *Field) IsUnused(p DefinitionPatch) bool {
	if v, ok := p.lookup(f.Name, PatchUnused); ok {
		return parseBoolLenient(v)
	}
	return f.Unused
}

func (f *Field) CannotBeEmpty(p DefinitionPatch) bool {
	if v, ok := p.lookup(f.Name, PatchNotEmpty); ok {
		return parseBoolLenient(v)
	}
	return false
}

func (f *Field) PatchExplanation(p DefinitionPatch) string {
	v, _ := p.lookup(f.Name, PatchExplanation)
	return v
}

func (f *Field) DescriptionFor(p DefinitionPatch) string {
	if v, ok := p.lookup(f.Name, PatchDescription); ok {
		return v
	}
	return f.Description
}

// ColourGroup returns the colour group id and whether the field belongs to one.
func (f *Field) ColourGroup() (uint8, bool) {
	if f.IsPartOfColour == nil {
		return 0, false
	}
	return *f.IsPartOfColour, true
}

func (f *Field) Clone() Field {
	c := *f
	c.Type = f.Type.clone()
	if f.Default != nil {
		c.Default = ptr(*f.Default)
	}
	if f.FilenameRelativePath != nil {
		c.FilenameRelativePath = ptr(*f.FilenameRelativePath)
	}
	if f.IsReference != nil {
		c.IsReference = ptr(*f.IsReference)
	}
	if f.IsPartOfColour != nil {
		c.IsPartOfColour = ptr(*f.IsPartOfColour)
	}
	c.Lookup = slices.Clone(f.Lookup)
	c.EnumValues = maps.Clone(f.EnumValues)
	return c
}

func (f *Field) Equal(o *Field) bool {
	return f.Name == o.Name &&
		f.Type.Equal(o.Type) &&
		f.IsKey == o.IsKey &&
		equalPtr(f.Default, o.Default) &&
		f.IsFilename == o.IsFilename &&
		equalPtr(f.FilenameRelativePath, o.FilenameRelativePath) &&
		equalPtr(f.IsReference, o.IsReference) &&
		slices.Equal(f.Lookup, o.Lookup) &&
		f.Description == o.Description &&
		f.CaOrder == o.CaOrder &&
		f.IsBitwise == o.IsBitwise &&
		maps.Equal(f.EnumValues, o.EnumValues) &&
		equalPtr(f.IsPartOfColour, o.IsPartOfColour) &&
		f.Unused == o.Unused
}

// enumKey finds the enum value whose label matches s case-insensitively.
func (f *Field) enumKey(s string) (int32, bool) {
	keys := slices.Sorted(maps.Keys(f.EnumValues))
	for _, k := range keys {
		if strings.EqualFold(f.EnumValues[k], s) {
			return k, true
		}
	}
	return 0, false
}

// parseBool accepts true/false/1/0 in any case.
func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "true", "1":
		return true, nil
	case "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("cannot parse %q as a bool", s)
	}
}

func parseBoolLenient(s string) bool {
	v, err := parseBool(s)
	return err == nil && v
}
