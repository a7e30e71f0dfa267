// Package snapshot persists a whole catalog as a single library file. The
// file holds a fixed header, a JSON body with the catalog state, and a
// footer carrying a CRC32 of the body.
package snapshot

import (
	"path/filepath"
	"strings"
)

const (
	FileName  = "pirex_library"
	Extension = ".plf"

	MagicBytes    uint32 = 0x504C5846 // "PLXF"
	FormatVersion uint32 = 1
	HeaderSize    int    = 32
	FooterSize    int    = 12
)

// Header is the fixed-size prefix of a library file.
type Header struct {
	Magic     uint32
	Version   uint32
	OpusCount uint32
	DocCount  uint32
	CreatedAt int64
	BodySize  int64
}

// PathIn returns the library file path inside dir. An empty dir means the
// working directory.
func PathIn(dir string) string {
	return filepath.Join(dir, FileName+Extension)
}

func hasLibraryExtension(path string) bool {
	return strings.EqualFold(filepath.Ext(path), Extension)
}
