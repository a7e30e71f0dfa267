package snapshot

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog"
)

// Write atomically replaces the library file at path with state. It
// writes to a .tmp file first and renames on success.
func Write(path string, state catalog.State) error {
	body, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling catalog state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating library directory: %w", err)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp library file: %w", err)
	}
	defer f.Close()

	header := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(header[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(state.Opi)))
	binary.LittleEndian.PutUint32(header[12:16], uint32(state.NumDocuments()))
	binary.LittleEndian.PutUint64(header[16:24], uint64(time.Now().Unix()))
	binary.LittleEndian.PutUint64(header[24:32], uint64(len(body)))

	footer := make([]byte, FooterSize)
	binary.LittleEndian.PutUint32(footer[0:4], crc32.ChecksumIEEE(body))
	binary.LittleEndian.PutUint64(footer[4:12], uint64(len(body)))

	for _, part := range [][]byte{header, body, footer} {
		if _, err := f.Write(part); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("writing library file: %w", err)
		}
	}
	if err := f.Sync(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("syncing library file: %w", err)
	}
	f.Close()
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming library file: %w", err)
	}
	return nil
}
