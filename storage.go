package tabcodec

import "errors"

// errStopScan ends a section scan early without failing it.
var errStopScan = errors.New("stop scan")

// storage is the key-value backend behind Store: bbolt on disk, or maps in memory.
type storage interface {
	begin(writable bool) (storageTx, error)
	Close() error
}

// storageTx sees records grouped into sections. Definitions get one section per table under
// the defsBucket group; patches and meta are single sections with table "".
type storageTx interface {
	// section returns nil if the section doesn't exist.
	section(group, table string) section
	createSection(group, table string) (section, error)

	// dropSection removes a table's section. A missing section is not an error.
	dropSection(group, table string) error

	// tables lists the per-table sections of group in name order.
	tables(group string) []string

	// size is the database size in bytes, 0 if unknown.
	size() int64

	commit() error
	rollback()
}

// section is a set of records sorted by key. Slices it returns are only valid during the
// transaction.
type section interface {
	get(key []byte) []byte
	put(key, value []byte) error
	delete(key []byte) error

	// scan visits records in key order, or backwards if desc is set. Returning errStopScan
	// from f ends the scan with a nil error.
	scan(desc bool, f func(key, value []byte) error) error

	stats() sectionStats
}

type sectionStats struct {
	Records int
	InUse   int64
	Alloc   int64
}

// last returns the record with the highest key, or nil if the section is empty.
func last(s section) (key, value []byte) {
	s.scan(true, func(k, v []byte) error {
		key, value = k, v
		return errStopScan
	})
	return
}
