package mapfile

import (
	"os"

	"golang.org/x/sys/unix"
)

// syncData skips the metadata flush; the rename that follows it is what must be durable.
func syncData(f *os.File) error {
	return unix.Fdatasync(int(f.Fd()))
}
