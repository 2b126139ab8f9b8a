// Package enrich builds the outbound workflow payload, enforces the
// response contract, and carries both over HTTP. Replies that violate
// the contract are normalized into a synthesized failure; nothing from
// this package reaches the pipeline as a raised transport error.
package enrich

import (
	"strings"

	"github.com/google/uuid"

	"sortbook/internal/extract"
	"sortbook/internal/isbn"
)

// IdentifierBuckets partitions identifier candidates by provenance.
// A candidate appears in at most one bucket; metadata wins over text,
// text wins over ocr.
type IdentifierBuckets struct {
	Metadata []string `json:"metadata"`
	Text     []string `json:"text"`
	OCR      []string `json:"ocr"`
}

// Request is the payload submitted to the enrichment workflow.
type Request struct {
	RequestID   string            `json:"request_id"`
	Filename    string            `json:"filename"`
	Metadata    *extract.Metadata `json:"metadata,omitempty"`
	Identifiers IdentifierBuckets `json:"isbn_candidates"`
	OCRText     string            `json:"ocr_text,omitempty"`
	TextPreview string            `json:"text_preview,omitempty"`
}

// BuildRequest assembles the workflow payload from an extraction
// bundle.
func BuildRequest(filename string, bundle *extract.Bundle) *Request {
	request := &Request{
		RequestID:   uuid.NewString(),
		Filename:    filename,
		TextPreview: bundle.Preview.Text,
	}
	if bundle.Metadata.Metadata.HasAny() {
		metadata := bundle.Metadata.Metadata
		request.Metadata = &metadata
	}

	var ocrTexts []string
	for _, entry := range bundle.OCR {
		if entry.Text != "" {
			ocrTexts = append(ocrTexts, entry.Text)
		}
	}
	request.OCRText = strings.Join(ocrTexts, " ")

	seen := make(map[string]struct{})
	take := func(candidates []string) []string {
		var kept []string
		for _, candidate := range candidates {
			if _, ok := seen[candidate]; ok {
				continue
			}
			seen[candidate] = struct{}{}
			kept = append(kept, candidate)
		}
		return kept
	}

	switch bundle.ISBN.Source {
	case isbn.SourceMetadata:
		request.Identifiers.Metadata = take(bundle.ISBN.Candidates)
	case isbn.SourceContent:
		request.Identifiers.Text = take(bundle.ISBN.Candidates)
	}
	request.Identifiers.OCR = take(isbn.ScanText(request.OCRText))

	return request
}
