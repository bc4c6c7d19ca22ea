package tabcodec

import (
	"errors"
	"maps"
	"slices"
	"strings"
	"sync"
)

var errMemClosed = errors.New("tabcodec: in-memory store closed")

// memSection maps string(key) to value. Committed sections are never modified; a writer
// copies a section the first time it changes it.
type memSection map[string][]byte

// memStorage backs transient stores. Writers are serialized; readers see the data as of
// the last commit.
type memStorage struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	data    map[string]memSection
	closed  bool
}

func newMemStorage() *memStorage {
	return &memStorage{data: make(map[string]memSection)}
}

func (s *memStorage) begin(writable bool) (storageTx, error) {
	if writable {
		s.writeMu.Lock()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		if writable {
			s.writeMu.Unlock()
		}
		return nil, errMemClosed
	}
	tx := &memTx{s: s, writable: writable, data: s.data}
	if writable {
		tx.data = maps.Clone(s.data)
		tx.owned = make(map[string]bool)
	}
	return tx, nil
}

func (s *memStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.data = nil
	return nil
}

func memSectionKey(group, table string) string {
	if table == "" {
		return group
	}
	return group + "\x00" + table
}

type memTx struct {
	s        *memStorage
	writable bool
	data     map[string]memSection
	owned    map[string]bool
	done     bool
}

func (tx *memTx) section(group, table string) section {
	key := memSectionKey(group, table)
	if _, ok := tx.data[key]; !ok {
		return nil
	}
	return memSectionRef{tx, key}
}

func (tx *memTx) createSection(group, table string) (section, error) {
	if !tx.writable {
		return nil, errors.New("tabcodec: read-only transaction")
	}
	key := memSectionKey(group, table)
	if _, ok := tx.data[key]; !ok {
		tx.data[key] = make(memSection)
		tx.owned[key] = true
	}
	return memSectionRef{tx, key}, nil
}

func (tx *memTx) dropSection(group, table string) error {
	if !tx.writable {
		return errors.New("tabcodec: read-only transaction")
	}
	key := memSectionKey(group, table)
	delete(tx.data, key)
	delete(tx.owned, key)
	return nil
}

func (tx *memTx) tables(group string) []string {
	prefix := group + "\x00"
	var names []string
	for key := range tx.data {
		if table, ok := strings.CutPrefix(key, prefix); ok {
			names = append(names, table)
		}
	}
	slices.Sort(names)
	return names
}

func (tx *memTx) size() int64 {
	var n int64
	for _, m := range tx.data {
		for k, v := range m {
			n += int64(len(k) + len(v))
		}
	}
	return n
}

func (tx *memTx) commit() error {
	if !tx.writable {
		return errors.New("tabcodec: read-only transaction")
	}
	if tx.done {
		return nil
	}
	tx.s.mu.Lock()
	closed := tx.s.closed
	if !closed {
		tx.s.data = tx.data
	}
	tx.s.mu.Unlock()
	tx.finish()
	if closed {
		return errMemClosed
	}
	return nil
}

func (tx *memTx) rollback() {
	tx.finish()
}

func (tx *memTx) finish() {
	if tx.done {
		return
	}
	tx.done = true
	if tx.writable {
		tx.s.writeMu.Unlock()
	}
}

// writableSection returns the transaction's own copy of the section.
func (tx *memTx) writableSection(key string) (memSection, error) {
	if !tx.writable {
		return nil, errors.New("tabcodec: read-only transaction")
	}
	m := tx.data[key]
	if !tx.owned[key] {
		if m = maps.Clone(m); m == nil {
			m = make(memSection)
		}
		tx.data[key] = m
		tx.owned[key] = true
	}
	return m, nil
}

type memSectionRef struct {
	tx  *memTx
	key string
}

func (r memSectionRef) get(key []byte) []byte {
	return r.tx.data[r.key][string(key)]
}

func (r memSectionRef) put(key, value []byte) error {
	m, err := r.tx.writableSection(r.key)
	if err != nil {
		return err
	}
	m[string(key)] = slices.Clone(value)
	return nil
}

func (r memSectionRef) delete(key []byte) error {
	m, err := r.tx.writableSection(r.key)
	if err != nil {
		return err
	}
	delete(m, string(key))
	return nil
}

func (r memSectionRef) scan(desc bool, f func(key, value []byte) error) error {
	m := r.tx.data[r.key]
	keys := slices.Sorted(maps.Keys(m))
	if desc {
		slices.Reverse(keys)
	}
	for _, k := range keys {
		if err := f([]byte(k), m[k]); err == errStopScan {
			return nil
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (r memSectionRef) stats() sectionStats {
	var st sectionStats
	for k, v := range r.tx.data[r.key] {
		st.Records++
		st.InUse += int64(len(k) + len(v))
	}
	st.Alloc = st.InUse
	return st
}
