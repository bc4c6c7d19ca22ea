package animfragment

import "fmt"

type UnsupportedVersionError struct {
	Format  string
	Version uint32
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("%s: unsupported version %d", e.Format, e.Version)
}

// UnsupportedDialectError means the version is known but its layout depends on the game,
// and Options did not name one this package can read.
type UnsupportedDialectError struct {
	Version uint32
	Dialect Dialect
}

func (e *UnsupportedDialectError) Error() string {
	return fmt.Sprintf("AnimFragmentBattle: version %d has no layout for dialect %v", e.Version, e.Dialect)
}
