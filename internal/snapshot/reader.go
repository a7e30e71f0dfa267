package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"net/http"
	"os"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog"
	apperrors "github.com/Adithya-Monish-Kumar-K/pirex/pkg/errors"
)

// Read loads the catalog state stored at path. Files without the library
// extension or magic are rejected as unsupported; checksum or size
// mismatches are reported as corrupt.
func Read(path string) (catalog.State, Header, error) {
	if !hasLibraryExtension(path) {
		return catalog.State{}, Header{}, apperrors.Newf(apperrors.ErrUnsupportedSnapshot,
			http.StatusUnprocessableEntity, "%s is not a %s file", path, Extension)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return catalog.State{}, Header{}, fmt.Errorf("reading library file: %w", err)
	}
	if len(data) < HeaderSize+FooterSize {
		return catalog.State{}, Header{}, corrupt("file is %d bytes, shorter than header and footer", len(data))
	}

	header := Header{
		Magic:     binary.LittleEndian.Uint32(data[0:4]),
		Version:   binary.LittleEndian.Uint32(data[4:8]),
		OpusCount: binary.LittleEndian.Uint32(data[8:12]),
		DocCount:  binary.LittleEndian.Uint32(data[12:16]),
		CreatedAt: int64(binary.LittleEndian.Uint64(data[16:24])),
		BodySize:  int64(binary.LittleEndian.Uint64(data[24:32])),
	}
	if header.Magic != MagicBytes {
		return catalog.State{}, header, apperrors.Newf(apperrors.ErrUnsupportedSnapshot,
			http.StatusUnprocessableEntity, "bad magic bytes %x", header.Magic)
	}
	if header.Version != FormatVersion {
		return catalog.State{}, header, apperrors.Newf(apperrors.ErrUnsupportedSnapshot,
			http.StatusUnprocessableEntity, "format version %d", header.Version)
	}
	if header.BodySize != int64(len(data)-HeaderSize-FooterSize) {
		return catalog.State{}, header, corrupt("body size %d does not match file", header.BodySize)
	}

	body := data[HeaderSize : HeaderSize+int(header.BodySize)]
	footer := data[HeaderSize+int(header.BodySize):]
	if sum := binary.LittleEndian.Uint32(footer[0:4]); sum != crc32.ChecksumIEEE(body) {
		return catalog.State{}, header, corrupt("checksum mismatch")
	}
	if size := binary.LittleEndian.Uint64(footer[4:12]); int64(size) != header.BodySize {
		return catalog.State{}, header, corrupt("footer size %d disagrees with header", size)
	}

	var state catalog.State
	if err := json.Unmarshal(body, &state); err != nil {
		return catalog.State{}, header, corrupt("parsing body: %v", err)
	}
	return state, header, nil
}

func corrupt(format string, args ...any) error {
	return apperrors.Newf(apperrors.ErrCorruptSnapshot, http.StatusUnprocessableEntity, format, args...)
}
