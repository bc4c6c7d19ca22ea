package tabcodec

import (
	"errors"
	"io"
	"testing"
)

func TestTableError(t *testing.T) {
	inner := errors.New("inner")
	tests := []struct {
		err  error
		want string
	}{
		{tableErrf("units_tables", 3, inner, "decode"), "units_tables@v3: decode: inner"},
		{tableErrf("units_tables", 3, inner, ""), "units_tables@v3: inner"},
		{tableErrf("units_tables", -1, nil, "broken %d", 7), "units_tables@v-1: broken 7"},
		{tableErrf("units_tables", 0, nil, ""), "units_tables@v0"},
	}
	for _, tt := range tests {
		if a := tt.err.Error(); a != tt.want {
			t.Errorf("** Error() = %q, wanted %q", a, tt.want)
		}
	}
	if !errors.Is(tests[0].err, inner) {
		t.Errorf("** TableError does not unwrap")
	}
}

func TestFieldErrors(t *testing.T) {
	de := &FieldDecodeError{Row: 2, Column: 5, Field: "kind", Expected: TypeI32, Err: io.ErrUnexpectedEOF}
	if a, e := de.Error(), "row 2 column 5 expected I32 (kind): unexpected EOF"; a != e {
		t.Errorf("** FieldDecodeError = %q, wanted %q", a, e)
	}
	if !errors.Is(de, io.ErrUnexpectedEOF) {
		t.Errorf("** FieldDecodeError does not unwrap")
	}

	f := NewField("scale", TypeF32)
	ee := fieldEncodeErr(0, 3, &f, KindStringU8, nil)
	if a, e := ee.Error(), "row 1 column 4 (scale): expected F32, got StringU8"; a != e {
		t.Errorf("** FieldEncodeError = %q, wanted %q", a, e)
	}
	ee = fieldEncodeErr(1, 0, &f, KindStringU8, errInner)
	if a, e := ee.Error(), "row 2 column 1 (scale): cannot encode StringU8 as F32: inner"; a != e {
		t.Errorf("** FieldEncodeError = %q, wanted %q", a, e)
	}
	if !errors.Is(ee, errInner) {
		t.Errorf("** FieldEncodeError does not unwrap")
	}

	ce := &RowFieldCountError{Row: 3, Expected: 9, Actual: 8}
	if a, e := ce.Error(), "row 3 has 8 cells, definition has 9 fields"; a != e {
		t.Errorf("** RowFieldCountError = %q, wanted %q", a, e)
	}
}

var errInner = errors.New("inner")
