package tabcodec

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/andreyvit/tabcodec/binio"
)

var (
	guidMarker    = []byte{0xFD, 0xFE, 0xFC, 0xFF}
	versionMarker = []byte{0xFC, 0xFD, 0xFE, 0xFF}
)

// dbMinSize is the smallest possible DB table: the flag byte plus the row count.
const dbMinSize = 5

var ErrNotDBTable = errors.New("not a DB table")

// DecodeOptions configures DB and Loc decoding.
type DecodeOptions struct {
	// ReturnIncomplete enables salvage decoding, see DecodeTable.
	ReturnIncomplete bool

	Logger *slog.Logger
}

func (o DecodeOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

type EncodeOptions struct {
	// TableHasGUID writes the GUID marker and GUID. Some older games crash on tables that have one.
	TableHasGUID bool

	// RegenerateGUID replaces the table's GUID with a fresh random one.
	RegenerateGUID bool
}

// DBHeader is everything in a DB table before the rows.
type DBHeader struct {
	GUID           string
	Version        int32
	MysteriousByte bool
	EntryCount     uint32
}

// DB is a versioned, schema-driven game data table.
type DB struct {
	MysteriousByte bool
	GUID           string
	Table          *Table

	// Status is how DecodeDB filled Table. Status.Incomplete means the rows were salvaged.
	Status DecodeStatus
}

func NewDB(name string, def *Definition) *DB {
	return &DB{
		MysteriousByte: true,
		Table:          NewTable(name, def),
	}
}

func ReadDBHeader(r *binio.Reader) (DBHeader, error) {
	var h DBHeader
	if r.Remaining() < dbMinSize {
		return h, fmt.Errorf("%w: only %d bytes", ErrNotDBTable, r.Remaining())
	}
	if bytes.HasPrefix(r.Buf, guidMarker) {
		r.Buf = r.Buf[len(guidMarker):]
		guid, err := r.SizedStringU16()
		if err != nil {
			return h, err
		}
		h.GUID = guid
	}
	if bytes.HasPrefix(r.Buf, versionMarker) {
		r.Buf = r.Buf[len(versionMarker):]
		v, err := r.I32()
		if err != nil {
			return h, err
		}
		h.Version = v
	}
	var err error
	if h.MysteriousByte, err = r.Bool(); err != nil {
		return h, err
	}
	if h.EntryCount, err = r.U32(); err != nil {
		return h, err
	}
	return h, nil
}

// DecodeDB decodes a DB table named tableName using the definitions schema has for it.
//
// Tables with a version marker need a definition of exactly that version. Unversioned tables
// try every definition with a version below 1 and keep the first one that decodes the whole
// buffer. The buffer must be consumed exactly.
func DecodeDB(data []byte, schema *Schema, tableName string, opt DecodeOptions) (*DB, error) {
	log := opt.logger()
	r := binio.NewReader(data)
	h, err := ReadDBHeader(r)
	if err != nil {
		return nil, tableErrf(tableName, 0, err, "header")
	}

	defs := schema.DefinitionsByTableName(tableName)
	if len(defs) == 0 {
		if h.EntryCount == 0 {
			return nil, tableErrf(tableName, h.Version, ErrNoDefinition, "empty table")
		}
		return nil, tableErrf(tableName, h.Version, ErrNoDefinition, "")
	}

	var def *Definition
	if h.Version == 0 {
		start := r.Off()
		for _, d := range defs {
			if d.Version >= 1 {
				continue
			}
			ensure(r.Seek(start))
			_, _, err := DecodeTable(r, d, &h.EntryCount, opt.ReturnIncomplete)
			if err == nil && r.Remaining() == 0 {
				def = d
				break
			}
			log.Debug("tabcodec: unversioned definition does not fit", "table", tableName, "version", d.Version, "err", err, "remaining", r.Remaining())
		}
		if def == nil {
			return nil, tableErrf(tableName, 0, ErrNoDefinition, "no unversioned definition decodes the table")
		}
		ensure(r.Seek(start))
	} else {
		var ok bool
		def, ok = schema.DefinitionByNameAndVersion(tableName, h.Version)
		if !ok {
			return nil, tableErrf(tableName, h.Version, ErrNoDefinition, "")
		}
	}

	def = def.WithPatches(schema.PatchesForTable(tableName))
	table := NewTable(tableName, def)
	status, err := table.Decode(r, &h.EntryCount, opt.ReturnIncomplete)
	if err != nil {
		return nil, err
	}
	// a salvaged table stops wherever the damage is
	if !status.Incomplete {
		if err := binio.CheckSizeMismatch(r.Len(), r.Off()); err != nil {
			return nil, tableErrf(tableName, def.Version, err, "")
		}
	}
	log.Debug("tabcodec: decoded DB table", "table", tableName, "version", def.Version, "rows", table.Len(), "incomplete", status.Incomplete)
	return &DB{
		MysteriousByte: h.MysteriousByte,
		GUID:           h.GUID,
		Table:          table,
		Status:         status,
	}, nil
}

func (db *DB) Encode(opt EncodeOptions) ([]byte, error) {
	w := binio.NewWriter(1024)
	if opt.TableHasGUID {
		w.WriteRaw(guidMarker)
		if opt.RegenerateGUID || db.GUID == "" {
			db.GUID = uuid.New().String()
		}
		if err := w.WriteSizedStringU16(db.GUID); err != nil {
			return nil, err
		}
	}
	if v := db.Table.Definition.Version; v > 0 {
		w.WriteRaw(versionMarker)
		w.WriteI32(v)
	}
	w.WriteBool(db.MysteriousByte)
	if err := db.Table.Encode(w); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}
