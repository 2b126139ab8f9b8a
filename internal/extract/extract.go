// Package extract produces the local signal bundle for one book file:
// descriptive metadata, identifier data, a bounded text preview, cover
// presence, ranked cover candidates, and optional OCR text per
// candidate. Sub-steps never fail the whole extraction; each records
// its own error and the rest of the bundle survives.
package extract

import (
	"context"
	"log/slog"

	"golang.org/x/text/language"

	"sortbook/internal/cover"
	"sortbook/internal/epub"
	"sortbook/internal/isbn"
	"sortbook/internal/logging"
	"sortbook/internal/ocr"
	"sortbook/internal/services"
)

// metadataFields are the descriptive elements carried into the bundle,
// in persisted order.
var metadataFields = []string{
	"title", "creator", "publisher", "date",
	"identifier", "language", "description", "subject",
}

// Metadata is the descriptive metadata block of a bundle.
type Metadata struct {
	Title       FieldValue `json:"title"`
	Creator     FieldValue `json:"creator"`
	Publisher   FieldValue `json:"publisher"`
	Date        FieldValue `json:"date"`
	Identifier  FieldValue `json:"identifier"`
	Language    FieldValue `json:"language"`
	Description FieldValue `json:"description"`
	Subjects    FieldValue `json:"subjects"`
}

// HasAny reports whether any descriptive field carries a value.
func (m Metadata) HasAny() bool {
	for _, f := range []FieldValue{
		m.Title, m.Creator, m.Publisher, m.Date,
		m.Identifier, m.Language, m.Description, m.Subjects,
	} {
		if !f.IsAbsent() {
			return true
		}
	}
	return false
}

// MetadataResult pairs the metadata block with a sub-step error.
type MetadataResult struct {
	Metadata Metadata `json:"metadata"`
	Error    string   `json:"error,omitempty"`
}

// PreviewResult is the bounded text preview with its declared language.
type PreviewResult struct {
	Text     string `json:"text_preview"`
	Chars    int    `json:"extracted_chars"`
	Language string `json:"language,omitempty"`
	Error    string `json:"error,omitempty"`
}

// CoverResult reports declared-cover presence. It is independent from
// the ranked candidate list and the two are never merged.
type CoverResult struct {
	cover.Presence
	Error string `json:"error,omitempty"`
}

// OCRText is the recognized text of one cover candidate.
type OCRText struct {
	Filename string `json:"filename"`
	Text     string `json:"text"`
}

// Bundle is everything extracted locally from one file. Binary image
// content never survives serialization.
type Bundle struct {
	Metadata   MetadataResult    `json:"metadata"`
	ISBN       isbn.Data         `json:"isbn"`
	Preview    PreviewResult     `json:"text"`
	Cover      CoverResult       `json:"cover"`
	Candidates []cover.Candidate `json:"cover_candidates"`
	OCR        []OCRText         `json:"ocr,omitempty"`
}

// Extractor drives the container parser and the optional OCR engine.
type Extractor struct {
	open         epub.Opener
	engine       ocr.Engine
	logger       *slog.Logger
	previewChars int
	minCoverEdge int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithOpener overrides the container opener.
func WithOpener(open epub.Opener) ExtractorOption {
	return func(e *Extractor) {
		if open != nil {
			e.open = open
		}
	}
}

// WithEngine sets the OCR engine. A nil engine keeps OCR disabled.
func WithEngine(engine ocr.Engine) ExtractorOption {
	return func(e *Extractor) {
		e.engine = engine
	}
}

// WithLogger sets the extraction logger.
func WithLogger(logger *slog.Logger) ExtractorOption {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPreviewChars sets the text preview budget.
func WithPreviewChars(chars int) ExtractorOption {
	return func(e *Extractor) {
		if chars > 0 {
			e.previewChars = chars
		}
	}
}

// WithMinCoverEdge sets the minimum cover dimension in pixels.
func WithMinCoverEdge(edge int) ExtractorOption {
	return func(e *Extractor) {
		if edge > 0 {
			e.minCoverEdge = edge
		}
	}
}

// NewExtractor constructs an Extractor with defaults.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	extractor := &Extractor{
		open:         epub.Open,
		logger:       logging.NewNop(),
		previewChars: 2000,
		minCoverEdge: 300,
	}
	for _, opt := range opts {
		opt(extractor)
	}
	return extractor
}

// Extract opens the container and assembles the bundle. Only a failure
// to open the container fails the whole extraction; everything past
// that point degrades per sub-step.
func (e *Extractor) Extract(ctx context.Context, path string) (*Bundle, error) {
	book, err := e.open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "extract", "open", "invalid container", err)
	}

	documents := book.Documents()
	fragmentTexts := make([]string, 0, len(documents))
	for _, doc := range documents {
		fragmentTexts = append(fragmentTexts, epub.Text(doc.Data))
	}

	bundle := &Bundle{
		Metadata:   MetadataResult{Metadata: metadataFrom(book)},
		ISBN:       isbn.Extract(book.Metadata("identifier"), fragmentTexts),
		Preview:    e.preview(book, fragmentTexts),
		Cover:      CoverResult{Presence: cover.Declared(book)},
		Candidates: cover.Select(book.Images(), documents, e.minCoverEdge),
	}
	bundle.OCR = e.recognizeCovers(ctx, bundle.Candidates)
	return bundle, nil
}

func metadataFrom(book epub.Book) Metadata {
	fields := make(map[string]FieldValue, len(metadataFields))
	for _, name := range metadataFields {
		fields[name] = Field(book.Metadata(name))
	}
	return Metadata{
		Title:       fields["title"],
		Creator:     fields["creator"],
		Publisher:   fields["publisher"],
		Date:        fields["date"],
		Identifier:  fields["identifier"],
		Language:    fields["language"],
		Description: fields["description"],
		Subjects:    fields["subject"],
	}
}

// preview concatenates document text until the character budget is
// spent. The declared language tag is normalized when it parses.
func (e *Extractor) preview(book epub.Book, fragmentTexts []string) PreviewResult {
	var text []rune
	for _, chunk := range fragmentTexts {
		if len(text) >= e.previewChars {
			break
		}
		if chunk == "" {
			continue
		}
		if len(text) > 0 {
			text = append(text, ' ')
		}
		remaining := e.previewChars - len(text)
		runes := []rune(chunk)
		if len(runes) > remaining {
			runes = runes[:remaining]
		}
		text = append(text, runes...)
	}

	result := PreviewResult{Text: string(text), Chars: len(text)}
	if declared := book.Metadata("language"); len(declared) > 0 {
		result.Language = normalizeLanguage(declared[0])
	}
	return result
}

func normalizeLanguage(raw string) string {
	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}
	return tag.String()
}

// recognizeCovers runs OCR over every candidate. A nil engine means
// disabled mode; per-image failures are logged and skipped.
func (e *Extractor) recognizeCovers(ctx context.Context, candidates []cover.Candidate) []OCRText {
	if e.engine == nil {
		return nil
	}

	var results []OCRText
	for _, candidate := range candidates {
		if len(candidate.Data) == 0 {
			continue
		}
		text, err := e.engine.Recognize(ctx, candidate.Data)
		if err != nil {
			e.logger.Warn("ocr failed for cover candidate",
				logging.String("filename", candidate.Filename),
				logging.Error(err))
			continue
		}
		if text == "" {
			continue
		}
		results = append(results, OCRText{Filename: candidate.Filename, Text: text})
	}
	return results
}
