// Package ingestion defines the request and response types of the opus
// API and turns requests into catalog submissions.
package ingestion

import (
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/pirex/internal/catalog/loader"
)

// AddOpusRequest is the JSON body of POST /api/v1/opi. Exactly one of Text
// (the whole source, split into paragraphs) or Documents must be set.
type AddOpusRequest struct {
	Author    string   `json:"author"`
	Title     string   `json:"title"`
	FilePath  string   `json:"file_path"`
	Text      string   `json:"text"`
	Documents []string `json:"documents"`
}

// Submission converts the request into a catalog submission.
func (r *AddOpusRequest) Submission() (catalog.Submission, error) {
	docs := r.Documents
	if r.Text != "" {
		var err error
		docs, err = loader.ExtractDocuments(strings.NewReader(r.Text))
		if err != nil {
			return catalog.Submission{}, err
		}
	}
	return catalog.Submission{
		Author:    r.Author,
		Title:     r.Title,
		FilePath:  r.FilePath,
		Documents: docs,
	}, nil
}

// OpusView lists an opus without its document bodies.
type OpusView struct {
	Ordinal   int       `json:"ordinal"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	FilePath  string    `json:"file_path"`
	Documents int       `json:"documents"`
	AddedAt   time.Time `json:"added_at"`
}

func ViewOf(o catalog.Opus) OpusView {
	return OpusView{
		Ordinal:   o.Ordinal,
		Author:    o.Author,
		Title:     o.Title,
		FilePath:  o.FilePath,
		Documents: o.NumDocuments(),
		AddedAt:   o.AddedAt,
	}
}
