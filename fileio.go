package tabcodec

import (
	"github.com/andreyvit/tabcodec/binio"
	"github.com/andreyvit/tabcodec/internal/mapfile"
)

// ReadDBFile decodes the DB table file at path. Nothing decoded refers to the mapped file.
func ReadDBFile(path string, schema *Schema, tableName string, opt DecodeOptions) (*DB, error) {
	var db *DB
	err := mapfile.ReadFile(path, mapfile.SequentialAccess, func(data []byte) error {
		var err error
		db, err = DecodeDB(data, schema, tableName, opt)
		return binio.Detach(err)
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

func WriteDBFile(path string, db *DB, opt EncodeOptions) error {
	data, err := db.Encode(opt)
	if err != nil {
		return err
	}
	return mapfile.WriteFile(path, data)
}

func ReadLocFile(path string, opt DecodeOptions) (*Loc, error) {
	var loc *Loc
	err := mapfile.ReadFile(path, mapfile.SequentialAccess, func(data []byte) error {
		var err error
		loc, err = DecodeLoc(data, opt)
		return binio.Detach(err)
	})
	if err != nil {
		return nil, err
	}
	return loc, nil
}

func WriteLocFile(path string, loc *Loc) error {
	data, err := loc.Encode()
	if err != nil {
		return err
	}
	return mapfile.WriteFile(path, data)
}
