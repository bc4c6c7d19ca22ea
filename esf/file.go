package esf

import (
	"github.com/andreyvit/tabcodec/binio"
	"github.com/andreyvit/tabcodec/internal/mapfile"
)

// Extensions lists the file extensions that hold ESF data.
var Extensions = []string{".csc", ".ccd", ".esf", ".save", ".save_multiplayer", ".twc"}

// ReadFile decodes the ESF file at path. Save files can be large, so the file is mapped
// rather than read; the returned tree does not refer to the mapping.
func ReadFile(path string) (*File, error) {
	var f *File
	err := mapfile.ReadFile(path, mapfile.SequentialAccess, func(data []byte) error {
		var err error
		f, err = Decode(data)
		return binio.Detach(err)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func WriteFile(path string, f *File) error {
	data, err := f.Encode()
	if err != nil {
		return err
	}
	return mapfile.WriteFile(path, data)
}
