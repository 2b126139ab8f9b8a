package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"sortbook/internal/extract"
	"sortbook/internal/isbn"
)

func metadataBundle() *extract.Bundle {
	return &extract.Bundle{
		Metadata: extract.MetadataResult{Metadata: extract.Metadata{
			Title:   extract.Scalar("The Great Novel"),
			Creator: extract.Scalar("A. Author"),
		}},
		ISBN: isbn.Data{
			ISBN:       "9780306406157",
			Source:     isbn.SourceMetadata,
			Candidates: []string{"9780306406157"},
		},
		Preview: extract.PreviewResult{Text: "Chapter one begins here.", Chars: 24},
		OCR: []extract.OCRText{
			{Filename: "cover.png", Text: "THE GREAT NOVEL ISBN 0-8044-2957-X"},
		},
	}
}

func TestBuildRequestBuckets(t *testing.T) {
	request := BuildRequest("novel.epub", metadataBundle())

	if request.RequestID == "" {
		t.Fatal("expected a correlation id")
	}
	if request.Filename != "novel.epub" {
		t.Fatalf("unexpected filename: %q", request.Filename)
	}
	if request.Metadata == nil {
		t.Fatal("expected metadata block")
	}
	if len(request.Identifiers.Metadata) != 1 || request.Identifiers.Metadata[0] != "9780306406157" {
		t.Fatalf("unexpected metadata bucket: %v", request.Identifiers.Metadata)
	}
	if len(request.Identifiers.Text) != 0 {
		t.Fatalf("expected empty text bucket, got %v", request.Identifiers.Text)
	}
	if len(request.Identifiers.OCR) != 1 || request.Identifiers.OCR[0] != "080442957X" {
		t.Fatalf("unexpected ocr bucket: %v", request.Identifiers.OCR)
	}
	if request.TextPreview != "Chapter one begins here." {
		t.Fatalf("unexpected preview: %q", request.TextPreview)
	}
}

func TestBuildRequestDedupesAcrossBuckets(t *testing.T) {
	bundle := metadataBundle()
	// The OCR text repeats the metadata identifier; metadata keeps it.
	bundle.OCR = []extract.OCRText{{Filename: "cover.png", Text: "ISBN 978-0-306-40615-7"}}

	request := BuildRequest("novel.epub", bundle)
	if len(request.Identifiers.Metadata) != 1 {
		t.Fatalf("unexpected metadata bucket: %v", request.Identifiers.Metadata)
	}
	if len(request.Identifiers.OCR) != 0 {
		t.Fatalf("expected deduped ocr bucket, got %v", request.Identifiers.OCR)
	}
}

func TestBuildRequestContentBucket(t *testing.T) {
	bundle := metadataBundle()
	bundle.Metadata = extract.MetadataResult{}
	bundle.OCR = nil
	bundle.ISBN = isbn.Data{
		ISBN:       "9780306406157",
		Source:     isbn.SourceContent,
		Candidates: []string{"9780306406157", "0306406152"},
	}

	request := BuildRequest("novel.epub", bundle)
	if request.Metadata != nil {
		t.Fatal("expected no metadata block for empty metadata")
	}
	if len(request.Identifiers.Text) != 2 {
		t.Fatalf("unexpected text bucket: %v", request.Identifiers.Text)
	}
}

func TestParseAcceptsValidObject(t *testing.T) {
	raw := []byte(`{"success": true, "source": "svc", "payload": {"title": "T", "author": "A"}}`)
	response := Parse(raw, "sortbook")
	if !response.Success {
		t.Fatalf("expected success, got %+v", response)
	}
	if response.Payload == nil || response.Payload.Title != "T" || response.Payload.Author != "A" {
		t.Fatalf("unexpected payload: %+v", response.Payload)
	}
	if response.Errors == nil || len(response.Errors) != 0 {
		t.Fatalf("expected empty errors default, got %v", response.Errors)
	}
}

func TestParseAcceptsArrayFirstElement(t *testing.T) {
	raw := []byte(`[{"success": true, "source": "svc", "payload": {"title": "T", "author": "A"}}]`)
	response := Parse(raw, "sortbook")
	if !response.Success || response.Payload == nil {
		t.Fatalf("expected array first element to be accepted, got %+v", response)
	}
}

func TestParseRejectsMissingAuthor(t *testing.T) {
	raw := []byte(`{"success": true, "source": "x", "payload": {"title": "A"}}`)
	response := Parse(raw, "sortbook")
	if response.Success {
		t.Fatal("expected synthesized failure for missing author")
	}
	if response.Source != "sortbook" || len(response.Errors) != 1 {
		t.Fatalf("unexpected synthesized failure: %+v", response)
	}
	if response.Raw == nil {
		t.Fatal("expected raw reply preserved")
	}
}

func TestParseRejectsMalformedShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `not json at all`},
		{"scalar", `42`},
		{"empty array", `[]`},
		{"missing fields", `{"payload": {}}`},
		{"success wrong type", `{"success": "yes", "source": "x"}`},
		{"source wrong type", `{"success": true, "source": 1}`},
		{"payload wrong type", `{"success": true, "source": "x", "payload": "nope"}`},
		{"errors wrong type", `{"success": false, "source": "x", "errors": "boom"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			response := Parse([]byte(tc.raw), "sortbook")
			if response.Success {
				t.Fatalf("expected failure, got %+v", response)
			}
			if len(response.Errors) != 1 {
				t.Fatalf("expected one violation message, got %v", response.Errors)
			}
		})
	}
}

func TestClientCallSuccess(t *testing.T) {
	var gotContentType, gotRequestID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		var request Request
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"source":  "svc",
			"payload": map[string]string{"title": "T", "author": "A"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	response := client.Call(context.Background(), BuildRequest("novel.epub", metadataBundle()))
	if !response.Success || response.Payload.Title != "T" {
		t.Fatalf("unexpected response: %+v", response)
	}
	if gotContentType != "application/json" || gotRequestID == "" {
		t.Fatalf("unexpected headers: %q %q", gotContentType, gotRequestID)
	}
}

func TestClientCallNonRetryableStatus(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithAttempts(3))
	response := client.Call(context.Background(), BuildRequest("novel.epub", metadataBundle()))
	if response.Success {
		t.Fatal("expected failure response")
	}
	if calls != 1 {
		t.Fatalf("expected no retry on 404, got %d calls", calls)
	}
}

func TestClientCallRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "flaky", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"source":  "svc",
			"payload": map[string]string{"title": "T", "author": "A"},
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, WithAttempts(2))
	response := client.Call(context.Background(), BuildRequest("novel.epub", metadataBundle()))
	if !response.Success {
		t.Fatalf("expected recovery on retry, got %+v", response)
	}
	if calls != 2 {
		t.Fatalf("expected two calls, got %d", calls)
	}
}

func TestClientCallNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := NewClient(server.URL, WithAttempts(1))
	response := client.Call(context.Background(), BuildRequest("novel.epub", metadataBundle()))
	if response.Success {
		t.Fatal("expected failure response for unreachable endpoint")
	}
	if response.Source != "sortbook" {
		t.Fatalf("expected default source tag, got %q", response.Source)
	}
}
