// Package mapfile reads game files through a read-only memory mapping and writes them
// durably.
package mapfile

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// MaxSize is the largest file Open maps.
const MaxSize = min(math.MaxInt, 1<<48-1)

type Options uint

const (
	// SequentialAccess is a hint requesting aggressive read-ahead.
	// Incompatible with RandomAccess. Maps to MADV_SEQUENTIAL on Unix.
	SequentialAccess Options = 1 << iota

	// RandomAccess is a hint that read ahead is less useful than normally.
	// Maps to MADV_RANDOM on Unix.
	RandomAccess
)

func (o Options) Has(v Options) bool {
	return o&v != 0
}

// Mapping is a read-only view of a whole file. Data is only valid until Close.
type Mapping struct {
	Data []byte
	f    *os.File
}

// Open maps the whole file at path. Empty files yield an empty Data without a mapping.
func Open(path string, opt Options) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := fi.Size()
	if size == 0 {
		return &Mapping{Data: []byte{}, f: f}, nil
	}
	if size > MaxSize {
		f.Close()
		return nil, fmt.Errorf("%s: %d bytes exceed the maximum mappable size", path, size)
	}
	b, err := mmap(f, int(size), opt)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	return &Mapping{Data: b, f: f}, nil
}

func (m *Mapping) Close() error {
	var err error
	if len(m.Data) > 0 {
		err = munmap(m.Data)
	}
	m.Data = nil
	return errors.Join(err, m.f.Close())
}

// ReadFile maps path, hands the bytes to f and unmaps them. f must not retain data.
func ReadFile(path string, opt Options, f func(data []byte) error) error {
	m, err := Open(path, opt)
	if err != nil {
		return err
	}
	defer m.Close()
	return f(m.Data)
}

// WriteFile replaces path with data through a synced temporary file in the same directory.
func WriteFile(path string, data []byte) error {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	f, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	ok := false
	defer func() {
		if !ok {
			f.Close()
			os.Remove(tmp)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := syncData(f); err != nil {
		return fmt.Errorf("fdatasync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		return err
	}
	ok = true
	return nil
}
