//go:build unix

package mapfile

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func mmap(f *os.File, size int, opt Options) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	advice := -1
	if opt.Has(SequentialAccess) {
		advice = unix.MADV_SEQUENTIAL
	} else if opt.Has(RandomAccess) {
		advice = unix.MADV_RANDOM
	}
	if advice < 0 {
		return data, nil
	}
	// ENOSYS only means the hint is ignored
	if err := unix.Madvise(data, advice); err != nil && err != unix.ENOSYS {
		unix.Munmap(data)
		return nil, fmt.Errorf("madvise(%d): %w", advice, err)
	}
	return data, nil
}

func munmap(data []byte) error {
	return unix.Munmap(data)
}
