package tabcodec

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.etcd.io/bbolt"

	"github.com/andreyvit/tabcodec/binio"
)

const (
	defsBucket    = "definitions"
	patchesBucket = "patches"
	metaBucket    = "meta"

	// encoding byte + xxhash64 of the payload
	recordHeaderSize = 9
)

var schemaVersionKey = []byte("schema_version")

// StoreOptions configures OpenStore. An empty path opens a transient in-memory store.
type StoreOptions struct {
	IsTesting bool
	Timeout   time.Duration
	Encoding  Encoding
	Logger    *slog.Logger
}

// Store persists a Schema: one nested bucket per table holding its definitions keyed by
// version, plus a bucket of per-table patches.
type Store struct {
	st  storage
	enc Encoding
	log *slog.Logger
}

func OpenStore(path string, opt StoreOptions) (*Store, error) {
	s := &Store{enc: opt.Encoding, log: opt.Logger}
	if s.log == nil {
		s.log = slog.Default()
	}
	if path == "" {
		s.st = newMemStorage()
		return s, nil
	}

	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("tabcodec: opening schema store: %w", err)
	}
	s.st = &boltStorage{bdb}
	return s, nil
}

func (s *Store) Close() error {
	return s.st.Close()
}

func (s *Store) read(f func(tx storageTx) error) error {
	tx, err := s.st.begin(false)
	if err != nil {
		return err
	}
	defer tx.rollback()
	return f(tx)
}

func (s *Store) write(f func(tx storageTx) error) error {
	tx, err := s.st.begin(true)
	if err != nil {
		return err
	}
	defer tx.rollback()
	if err := f(tx); err != nil {
		return err
	}
	return tx.commit()
}

// versionKey orders signed versions correctly under bytewise comparison.
func versionKey(v int32) []byte {
	return binary.BigEndian.AppendUint32(nil, uint32(v)^(1<<31))
}

func versionFromKey(k []byte) int32 {
	return int32(binary.BigEndian.Uint32(k) ^ (1 << 31))
}

func (s *Store) encodeRecord(v any) ([]byte, uint64, error) {
	w := binio.NewWriter(512)
	w.WriteU8(byte(s.enc))
	w.Grow(8)
	if err := s.enc.encodeValue(w, v); err != nil {
		return nil, 0, err
	}
	buf := w.Bytes()
	sum := xxhash.Sum64(buf[recordHeaderSize:])
	binary.BigEndian.PutUint64(buf[1:recordHeaderSize], sum)
	return buf, sum, nil
}

func decodeRecord(raw []byte, ptr any) error {
	if len(raw) < recordHeaderSize {
		return binio.Errorf(raw, 0, binio.ErrUnexpectedEOF, "schema record too short")
	}
	enc := Encoding(raw[0])
	sum := binary.BigEndian.Uint64(raw[1:recordHeaderSize])
	payload := raw[recordHeaderSize:]
	if actual := xxhash.Sum64(payload); actual != sum {
		return binio.Errorf(raw, 1, nil, "schema record checksum %016x, wanted %016x", actual, sum)
	}
	return enc.decodeValue(payload, ptr)
}

func recordSum(raw []byte) (uint64, bool) {
	if len(raw) < recordHeaderSize {
		return 0, false
	}
	return binary.BigEndian.Uint64(raw[1:recordHeaderSize]), true
}

// putDefinition writes def unless an identical one is already stored.
func (s *Store) putDefinition(tx storageTx, table string, def *Definition) (bool, error) {
	sec, err := tx.createSection(defsBucket, table)
	if err != nil {
		return false, err
	}
	stored := *def
	stored.Patches = nil
	raw, sum, err := s.encodeRecord(&stored)
	if err != nil {
		return false, err
	}
	key := versionKey(def.Version)
	if old, ok := recordSum(sec.get(key)); ok && old == sum {
		s.log.Debug("tabcodec: definition unchanged", "table", table, "version", def.Version)
		return false, nil
	}
	s.log.Debug("tabcodec: storing definition", "table", table, "version", def.Version, "size", len(raw), hexAttr("key", key))
	return true, sec.put(key, raw)
}

// PutDefinition stores def under its table and version. It reports whether anything changed.
func (s *Store) PutDefinition(table string, def *Definition) (changed bool, err error) {
	err = s.write(func(tx storageTx) error {
		changed, err = s.putDefinition(tx, table, def)
		return err
	})
	return
}

func (s *Store) Definition(table string, version int32) (*Definition, error) {
	var def *Definition
	err := s.read(func(tx storageTx) error {
		var raw []byte
		if sec := tx.section(defsBucket, table); sec != nil {
			raw = sec.get(versionKey(version))
		}
		if raw == nil {
			return tableErrf(table, version, ErrNoDefinition, "")
		}
		def = new(Definition)
		return decodeRecord(raw, def)
	})
	if err != nil {
		return nil, err
	}
	return def, nil
}

// LatestDefinition returns the table's definition with the highest version.
func (s *Store) LatestDefinition(table string) (*Definition, error) {
	var def *Definition
	err := s.read(func(tx storageTx) error {
		sec := tx.section(defsBucket, table)
		if sec == nil {
			return tableErrf(table, -1, ErrNoDefinition, "")
		}
		k, raw := last(sec)
		if k == nil {
			return tableErrf(table, -1, ErrNoDefinition, "")
		}
		def = new(Definition)
		return decodeRecord(raw, def)
	})
	if err != nil {
		return nil, err
	}
	return def, nil
}

// Versions lists the stored versions of table, newest first.
func (s *Store) Versions(table string) ([]int32, error) {
	var versions []int32
	err := s.read(func(tx storageTx) error {
		sec := tx.section(defsBucket, table)
		if sec == nil {
			return nil
		}
		return sec.scan(true, func(k, _ []byte) error {
			versions = append(versions, versionFromKey(k))
			return nil
		})
	})
	return versions, err
}

func (s *Store) DeleteDefinition(table string, version int32) error {
	return s.write(func(tx storageTx) error {
		sec := tx.section(defsBucket, table)
		if sec == nil {
			return nil
		}
		return sec.delete(versionKey(version))
	})
}

// DeleteTable removes every definition and the patches of table.
func (s *Store) DeleteTable(table string) error {
	return s.write(func(tx storageTx) error {
		if err := tx.dropSection(defsBucket, table); err != nil {
			return err
		}
		if sec := tx.section(patchesBucket, ""); sec != nil {
			return sec.delete([]byte(table))
		}
		return nil
	})
}

func (s *Store) putPatch(tx storageTx, table string, p DefinitionPatch) error {
	sec, err := tx.createSection(patchesBucket, "")
	if err != nil {
		return err
	}
	if len(p) == 0 {
		return sec.delete([]byte(table))
	}
	raw, _, err := s.encodeRecord(p)
	if err != nil {
		return err
	}
	return sec.put([]byte(table), raw)
}

// PutPatch replaces the table's patches. An empty patch deletes them.
func (s *Store) PutPatch(table string, p DefinitionPatch) error {
	return s.write(func(tx storageTx) error {
		return s.putPatch(tx, table, p)
	})
}

func (s *Store) Patch(table string) (DefinitionPatch, error) {
	var p DefinitionPatch
	err := s.read(func(tx storageTx) error {
		sec := tx.section(patchesBucket, "")
		if sec == nil {
			return nil
		}
		raw := sec.get([]byte(table))
		if raw == nil {
			return nil
		}
		return decodeRecord(raw, &p)
	})
	return p, err
}

// SaveSchema writes every definition and patch of schema in one transaction and returns how
// many definitions actually changed.
func (s *Store) SaveSchema(schema *Schema) (written int, err error) {
	err = s.write(func(tx storageTx) error {
		meta, err := tx.createSection(metaBucket, "")
		if err != nil {
			return err
		}
		if err := meta.put(schemaVersionKey, binary.BigEndian.AppendUint16(nil, schema.Version)); err != nil {
			return err
		}
		for _, table := range schema.TableNames() {
			for _, def := range schema.Definitions[table] {
				changed, err := s.putDefinition(tx, table, def)
				if err != nil {
					return tableErrf(table, def.Version, err, "save")
				}
				if changed {
					written++
				}
			}
		}
		for table, p := range schema.Patches {
			if err := s.putPatch(tx, table, p); err != nil {
				return err
			}
		}
		return nil
	})
	s.log.Debug("tabcodec: saved schema", "tables", len(schema.Definitions), "written", written, "err", err)
	return
}

func (s *Store) LoadSchema() (*Schema, error) {
	schema := NewSchema()
	err := s.read(func(tx storageTx) error {
		if meta := tx.section(metaBucket, ""); meta != nil {
			if v := meta.get(schemaVersionKey); len(v) == 2 {
				schema.Version = binary.BigEndian.Uint16(v)
			}
		}
		for _, table := range tx.tables(defsBucket) {
			err := tx.section(defsBucket, table).scan(true, func(k, raw []byte) error {
				def := new(Definition)
				if err := decodeRecord(raw, def); err != nil {
					return tableErrf(table, versionFromKey(k), err, "load")
				}
				schema.Definitions[table] = append(schema.Definitions[table], def)
				return nil
			})
			if err != nil {
				return err
			}
		}
		sec := tx.section(patchesBucket, "")
		if sec == nil {
			return nil
		}
		return sec.scan(false, func(k, raw []byte) error {
			var p DefinitionPatch
			if err := decodeRecord(raw, &p); err != nil {
				return fmt.Errorf("patches of %s: %w", k, err)
			}
			schema.Patches[string(k)] = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return schema, nil
}
