package tabcodec

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/andreyvit/tabcodec/binio"
)

type propRow struct {
	Key    string
	Flags  int32
	Small  int16
	Big    int64
	Scale  float64
	Active bool
	Note   string
	Level  int32
	R, G   int32
	B      int32
}

func propDef() *Definition {
	key := NewField("key", TypeStringU8)
	key.IsKey = true
	flags := NewField("flags", TypeI32)
	flags.IsBitwise = 32
	r := NewField("tint_r", TypeI32)
	r.IsPartOfColour = ptr[uint8](1)
	g := NewField("tint_g", TypeI32)
	g.IsPartOfColour = ptr[uint8](1)
	b := NewField("tint_b", TypeI32)
	b.IsPartOfColour = ptr[uint8](1)
	return NewDefinition(1, key, flags,
		NewField("small", TypeI16),
		NewField("big", TypeI64),
		NewField("scale", TypeF64),
		NewField("active", TypeBoolean),
		r, g, b,
		NewField("note", TypeStringU16),
		NewField("level", TypeOptionalI32),
	)
}

func (p propRow) row() Row {
	row := Row{StringU8(p.Key)}
	for k := 0; k < 32; k++ {
		row = append(row, Bool(uint32(p.Flags)>>k&1 == 1))
	}
	return append(row, I16(p.Small), I64(p.Big), F64(p.Scale), Bool(p.Active),
		StringU16(p.Note), OptionalI32(p.Level),
		ColourRGB(rgbHex(uint8(p.R), uint8(p.G), uint8(p.B))))
}

func rgbHex(r, g, b uint8) string {
	const digits = "0123456789ABCDEF"
	return string([]byte{digits[r>>4], digits[r&15], digits[g>>4], digits[g&15], digits[b>>4], digits[b&15]})
}

func genPropRows() gopter.Gen {
	return gen.SliceOf(gen.Struct(reflect.TypeOf(propRow{}), map[string]gopter.Gen{
		"Key":    gen.AlphaString(),
		"Flags":  gen.Int32(),
		"Small":  gen.Int16(),
		"Big":    gen.Int64(),
		"Scale":  gen.Float64Range(-1e12, 1e12),
		"Active": gen.Bool(),
		"Note":   gen.AlphaString(),
		"Level":  gen.Int32(),
		"R":      gen.Int32Range(0, 255),
		"G":      gen.Int32Range(0, 255),
		"B":      gen.Int32Range(0, 255),
	}))
}

func encodePropRows(def *Definition, specs []propRow) (Rows, []byte, error) {
	rows := make(Rows, len(specs))
	for i, p := range specs {
		rows[i] = p.row()
	}
	w := binio.NewWriter(0)
	err := EncodeTable(w, def, rows)
	return rows, w.Bytes(), err
}

func TestTableProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	def := propDef()

	properties.Property("rows round trip through the binary layout", prop.ForAll(
		func(specs []propRow) bool {
			rows, data, err := encodePropRows(def, specs)
			if err != nil {
				return false
			}
			count := uint32(len(rows))
			r := binio.NewReader(data)
			decoded, status, err := DecodeTable(r, def, &count, false)
			return err == nil && r.Remaining() == 0 && status.Decoded == count && decoded.Equal(rows)
		},
		genPropRows(),
	))

	properties.Property("truncated tables fail strictly and salvage a prefix", prop.ForAll(
		func(specs []propRow, cut int) bool {
			if len(specs) == 0 {
				return true
			}
			rows, data, err := encodePropRows(def, specs)
			if err != nil {
				return false
			}
			cut %= len(data)
			count := uint32(len(rows))
			if _, _, err := DecodeTable(binio.NewReader(data[:cut]), def, &count, false); err == nil {
				return false
			}
			salvaged, status, err := DecodeTable(binio.NewReader(data[:cut]), def, &count, true)
			return err == nil && status.Incomplete && status.Decoded < count &&
				int(status.Decoded) == len(salvaged) && salvaged.Equal(rows[:len(salvaged)])
		},
		genPropRows(),
		gen.IntRange(0, 1<<20),
	))

	properties.Property("table files round trip", prop.ForAll(
		func(specs []propRow) bool {
			rows, _, err := encodePropRows(def, specs)
			if err != nil {
				return false
			}
			db := &DB{GUID: "5c7a1d3e-0000-4000-8000-000000000001", Table: NewTable("props_tables", def)}
			if err := db.Table.SetRows(rows); err != nil {
				return false
			}
			data, err := db.Encode(EncodeOptions{TableHasGUID: true})
			if err != nil {
				return false
			}
			schema := NewSchema()
			schema.AddDefinition("props_tables", def)
			back, err := DecodeDB(data, schema, "props_tables", DecodeOptions{})
			return err == nil && back.Table.Rows().Equal(rows) && back.GUID == db.GUID
		},
		genPropRows(),
	))

	properties.TestingRun(t)
}
