// Package validator checks opus submissions before they reach the
// catalog and reports every failing field at once.
package validator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/ingestion"
)

const (
	maxAuthorLength   = 512
	maxTitleLength    = 1024
	maxFilePathLength = 4096
	maxTextLength     = 8 << 20
	maxDocuments      = 100000
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e.Fields[field]))
	}
	return strings.Join(parts, "; ")
}

func ValidateAddOpus(req *ingestion.AddOpusRequest) error {
	errs := make(map[string]string)

	if author := strings.TrimSpace(req.Author); author == "" {
		errs["author"] = "author is required"
	} else if len(author) > maxAuthorLength {
		errs["author"] = fmt.Sprintf("author must be at most %d characters", maxAuthorLength)
	}
	if title := strings.TrimSpace(req.Title); title == "" {
		errs["title"] = "title is required"
	} else if len(title) > maxTitleLength {
		errs["title"] = fmt.Sprintf("title must be at most %d characters", maxTitleLength)
	}
	if len(req.FilePath) > maxFilePathLength {
		errs["file_path"] = fmt.Sprintf("file path must be at most %d characters", maxFilePathLength)
	}

	hasText := strings.TrimSpace(req.Text) != ""
	hasDocs := len(req.Documents) > 0
	switch {
	case hasText && hasDocs:
		errs["text"] = "set either text or documents, not both"
	case !hasText && !hasDocs:
		errs["text"] = "text or documents is required"
	case hasText && len(req.Text) > maxTextLength:
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
	case hasDocs:
		if len(req.Documents) > maxDocuments {
			errs["documents"] = fmt.Sprintf("at most %d documents", maxDocuments)
			break
		}
		total := 0
		for i, d := range req.Documents {
			if strings.TrimSpace(d) == "" {
				errs["documents"] = fmt.Sprintf("document %d is empty", i+1)
				break
			}
			total += len(d)
		}
		if _, bad := errs["documents"]; !bad && total > maxTextLength {
			errs["documents"] = fmt.Sprintf("documents must total at most %d bytes", maxTextLength)
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
