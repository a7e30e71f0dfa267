// Package loader extracts documents from the plain-text source of a work.
// A document is a paragraph: a run of non-blank lines, joined with single
// spaces.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// maxLineSize bounds a single source line.
const maxLineSize = 1 << 20

// ExtractDocuments reads r and returns its paragraphs in order.
func ExtractDocuments(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var docs []string
	var current []string
	flush := func() {
		if len(current) > 0 {
			docs = append(docs, strings.Join(current, " "))
			current = current[:0]
		}
	}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading source text: %w", err)
	}
	flush()
	return docs, nil
}

// LoadFile extracts the documents of the file at path.
func LoadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening source file %s: %w", path, err)
	}
	defer f.Close()
	docs, err := ExtractDocuments(f)
	if err != nil {
		return nil, fmt.Errorf("extracting documents from %s: %w", path, err)
	}
	return docs, nil
}
