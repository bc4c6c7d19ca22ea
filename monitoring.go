package tabcodec

// StoreStats summarizes the schema store.
type StoreStats struct {
	Tables      int
	Definitions int
	Patches     int

	DataSize  int64
	DataAlloc int64
	FileSize  int64
}

// TableStoreStats is the storage used by one table's definitions.
type TableStoreStats struct {
	Definitions int
	DataSize    int64
	DataAlloc   int64
}

func (s *Store) Stats() (StoreStats, error) {
	var result StoreStats
	err := s.read(func(tx storageTx) error {
		result.FileSize = tx.size()
		for _, table := range tx.tables(defsBucket) {
			st := tx.section(defsBucket, table).stats()
			result.Tables++
			result.Definitions += st.Records
			result.DataSize += st.InUse
			result.DataAlloc += st.Alloc
		}
		if sec := tx.section(patchesBucket, ""); sec != nil {
			st := sec.stats()
			result.Patches = st.Records
			result.DataSize += st.InUse
			result.DataAlloc += st.Alloc
		}
		return nil
	})
	return result, err
}

func (s *Store) TableStats(table string) (TableStoreStats, error) {
	var result TableStoreStats
	err := s.read(func(tx storageTx) error {
		if sec := tx.section(defsBucket, table); sec != nil {
			st := sec.stats()
			result = TableStoreStats{Definitions: st.Records, DataSize: st.InUse, DataAlloc: st.Alloc}
		}
		return nil
	})
	return result, err
}
