//go:build !linux

package mapfile

import "os"

func syncData(f *os.File) error {
	return f.Sync()
}
