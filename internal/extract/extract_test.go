package extract

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"sortbook/internal/isbn"
	"sortbook/internal/services"
	"sortbook/internal/testsupport"
)

func TestFieldValueMarshalShapes(t *testing.T) {
	cases := []struct {
		name   string
		field  FieldValue
		expect string
	}{
		{"absent", Field(nil), "null"},
		{"scalar", Scalar("Alice"), `"Alice"`},
		{"many", Field([]string{"Fiction", "History"}), `["Fiction","History"]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.field)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(data) != tc.expect {
				t.Fatalf("expected %s, got %s", tc.expect, data)
			}

			var back FieldValue
			if err := json.Unmarshal(data, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if len(back.Values()) != len(tc.field.Values()) {
				t.Fatalf("round trip lost values: %v vs %v", back.Values(), tc.field.Values())
			}
		})
	}
}

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "novel.epub")
	testsupport.WriteEPUB(t, path, testsupport.BookSpec{
		Metadata: []testsupport.MetadataField{
			{Name: "title", Value: "The Great Novel"},
			{Name: "creator", Value: "A. Author"},
			{Name: "creator", Value: "B. Author"},
			{Name: "language", Value: "EN-us"},
			{Name: "identifier", Value: "urn:isbn:978-0-306-40615-7"},
		},
		Documents: []testsupport.DocumentSpec{
			{Name: "ch1.xhtml", Body: "<p>Chapter one begins here.</p>"},
			{Name: "ch2.xhtml", Body: "<p>Chapter two follows.</p>"},
		},
		Images: []testsupport.ImageSpec{
			{Name: "images/cover.png", MediaType: "image/png", Data: testsupport.PNG(t, 400, 600)},
		},
	})
	return path
}

func TestExtractAssemblesBundle(t *testing.T) {
	extractor := NewExtractor()
	bundle, err := extractor.Extract(context.Background(), writeFixture(t))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if title, _ := bundle.Metadata.Metadata.Title.First(); title != "The Great Novel" {
		t.Fatalf("unexpected title: %q", title)
	}
	if creators := bundle.Metadata.Metadata.Creator.Values(); len(creators) != 2 {
		t.Fatalf("expected two creators, got %v", creators)
	}
	if !bundle.Metadata.Metadata.HasAny() {
		t.Fatal("expected metadata presence")
	}

	if bundle.ISBN.ISBN != "9780306406157" || bundle.ISBN.Source != isbn.SourceMetadata {
		t.Fatalf("unexpected identifier data: %+v", bundle.ISBN)
	}

	if !strings.HasPrefix(bundle.Preview.Text, "Chapter one begins here.") {
		t.Fatalf("unexpected preview: %q", bundle.Preview.Text)
	}
	if bundle.Preview.Language != "en-US" {
		t.Fatalf("expected normalized language tag, got %q", bundle.Preview.Language)
	}

	if !bundle.Cover.HasCover || bundle.Cover.Filename != "images/cover.png" {
		t.Fatalf("unexpected cover presence: %+v", bundle.Cover)
	}
	if len(bundle.Candidates) != 1 || !bundle.Candidates[0].Primary {
		t.Fatalf("unexpected candidates: %+v", bundle.Candidates)
	}
	if bundle.OCR != nil {
		t.Fatalf("expected no OCR with nil engine, got %+v", bundle.OCR)
	}
}

func TestExtractBoundsPreview(t *testing.T) {
	extractor := NewExtractor(WithPreviewChars(10))
	bundle, err := extractor.Extract(context.Background(), writeFixture(t))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if bundle.Preview.Chars != 10 || len(bundle.Preview.Text) != 10 {
		t.Fatalf("expected bounded preview, got %d chars: %q", bundle.Preview.Chars, bundle.Preview.Text)
	}
}

func TestExtractPreviewCountsCharactersNotBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roman.epub")
	testsupport.WriteEPUB(t, path, testsupport.BookSpec{
		Metadata: []testsupport.MetadataField{
			{Name: "title", Value: "Le Grand Roman"},
			{Name: "language", Value: "fr"},
		},
		Documents: []testsupport.DocumentSpec{
			{Name: "ch1.xhtml", Body: "<p>" + strings.Repeat("é", 40) + "</p>"},
		},
	})

	extractor := NewExtractor(WithPreviewChars(15))
	bundle, err := extractor.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if !utf8.ValidString(bundle.Preview.Text) {
		t.Fatalf("preview is not valid UTF-8: %q", bundle.Preview.Text)
	}
	if bundle.Preview.Text != strings.Repeat("é", 15) {
		t.Fatalf("unexpected preview: %q", bundle.Preview.Text)
	}
	if bundle.Preview.Chars != 15 {
		t.Fatalf("expected 15 characters, got %d", bundle.Preview.Chars)
	}
}

type stubEngine struct {
	text string
	err  error
}

func (s stubEngine) Recognize(context.Context, []byte) (string, error) { return s.text, s.err }
func (s stubEngine) Languages() []string                               { return []string{"eng"} }

func TestExtractRunsOCROverCandidates(t *testing.T) {
	extractor := NewExtractor(WithEngine(stubEngine{text: "ISBN 9780306406157"}))
	bundle, err := extractor.Extract(context.Background(), writeFixture(t))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(bundle.OCR) != 1 {
		t.Fatalf("expected one OCR result, got %+v", bundle.OCR)
	}
	if bundle.OCR[0].Filename != "images/cover.png" || bundle.OCR[0].Text != "ISBN 9780306406157" {
		t.Fatalf("unexpected OCR result: %+v", bundle.OCR[0])
	}
}

func TestExtractToleratesOCRFailure(t *testing.T) {
	extractor := NewExtractor(WithEngine(stubEngine{err: errors.New("engine crashed")}))
	bundle, err := extractor.Extract(context.Background(), writeFixture(t))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	if len(bundle.OCR) != 0 {
		t.Fatalf("expected no OCR results after failure, got %+v", bundle.OCR)
	}
}

func TestExtractRejectsUnreadableContainer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.epub")
	testsupport.WriteGarbage(t, path, 512)

	extractor := NewExtractor()
	if _, err := extractor.Extract(context.Background(), path); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for unreadable container, got %v", err)
	}
}

func TestBundleSerializationStripsBinaryContent(t *testing.T) {
	extractor := NewExtractor()
	bundle, err := extractor.Extract(context.Background(), writeFixture(t))
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		t.Fatalf("marshal bundle: %v", err)
	}
	if strings.Contains(string(data), "Data") || strings.Contains(string(data), "iVBOR") {
		t.Fatalf("serialized bundle leaked binary content: %s", data)
	}
}
