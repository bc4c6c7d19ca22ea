package animfragment

import (
	"github.com/andreyvit/tabcodec/binio"
	"github.com/andreyvit/tabcodec/internal/mapfile"
)

func ReadFile(path string, opt Options) (*AnimFragmentBattle, error) {
	var frag *AnimFragmentBattle
	err := mapfile.ReadFile(path, mapfile.SequentialAccess, func(data []byte) error {
		var err error
		frag, err = Decode(data, opt)
		return binio.Detach(err)
	})
	if err != nil {
		return nil, err
	}
	return frag, nil
}

func WriteFile(path string, frag *AnimFragmentBattle, opt Options) error {
	data, err := frag.Encode(opt)
	if err != nil {
		return err
	}
	return mapfile.WriteFile(path, data)
}
