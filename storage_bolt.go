package tabcodec

import (
	"errors"
	"unsafe"

	"go.etcd.io/bbolt"
)

type boltStorage struct {
	bdb *bbolt.DB
}

func (s *boltStorage) begin(writable bool) (storageTx, error) {
	btx, err := s.bdb.Begin(writable)
	if err != nil {
		return nil, err
	}
	return boltTx{btx}, nil
}

func (s *boltStorage) Close() error {
	return s.bdb.Close()
}

// boltTx keeps each group in a root bucket; table sections are buckets nested inside it.
type boltTx struct {
	btx *bbolt.Tx
}

func (tx boltTx) section(group, table string) section {
	b := tx.btx.Bucket(keyBytes(group))
	if b != nil && table != "" {
		b = b.Bucket(keyBytes(table))
	}
	if b == nil {
		return nil
	}
	return boltSection{b}
}

func (tx boltTx) createSection(group, table string) (section, error) {
	b, err := tx.btx.CreateBucketIfNotExists([]byte(group))
	if err == nil && table != "" {
		b, err = b.CreateBucketIfNotExists([]byte(table))
	}
	if err != nil {
		return nil, err
	}
	return boltSection{b}, nil
}

func (tx boltTx) dropSection(group, table string) error {
	root := tx.btx.Bucket(keyBytes(group))
	if root == nil {
		return nil
	}
	err := root.DeleteBucket(keyBytes(table))
	if errors.Is(err, bbolt.ErrBucketNotFound) {
		return nil
	}
	return err
}

func (tx boltTx) tables(group string) []string {
	root := tx.btx.Bucket(keyBytes(group))
	if root == nil {
		return nil
	}
	var names []string
	root.ForEach(func(k, v []byte) error {
		// nested buckets have nil values
		if v == nil {
			names = append(names, string(k))
		}
		return nil
	})
	return names
}

func (tx boltTx) size() int64 { return tx.btx.Size() }

func (tx boltTx) commit() error { return tx.btx.Commit() }

func (tx boltTx) rollback() {
	tx.btx.Rollback()
}

type boltSection struct {
	b *bbolt.Bucket
}

func (s boltSection) get(key []byte) []byte { return s.b.Get(key) }

func (s boltSection) put(key, value []byte) error { return s.b.Put(key, value) }

func (s boltSection) delete(key []byte) error { return s.b.Delete(key) }

func (s boltSection) scan(desc bool, f func(key, value []byte) error) error {
	c := s.b.Cursor()
	first, next := c.First, c.Next
	if desc {
		first, next = c.Last, c.Prev
	}
	for k, v := first(); k != nil; k, v = next() {
		if err := f(k, v); err == errStopScan {
			return nil
		} else if err != nil {
			return err
		}
	}
	return nil
}

func (s boltSection) stats() sectionStats {
	bs := s.b.Stats()
	// small sections are stored inline in their parent's leaf
	return sectionStats{
		Records: bs.KeyN,
		InUse:   int64(bs.LeafInuse + bs.InlineBucketInuse),
		Alloc:   int64(bs.LeafAlloc + bs.BranchAlloc),
	}
}

// keyBytes is only for lookups; bbolt copies the keys it stores.
func keyBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
