package pipeline_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"sortbook/internal/catalog"
	"sortbook/internal/enrich"
	"sortbook/internal/extract"
	"sortbook/internal/pipeline"
	"sortbook/internal/testsupport"
)

type workflowServer struct {
	*httptest.Server
	calls    atomic.Int64
	requests chan enrich.Request
}

func newWorkflowServer(t *testing.T, handler func(w http.ResponseWriter, request enrich.Request)) *workflowServer {
	t.Helper()
	ws := &workflowServer{requests: make(chan enrich.Request, 16)}
	ws.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws.calls.Add(1)
		var request enrich.Request
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("decode workflow request: %v", err)
		}
		ws.requests <- request
		handler(w, request)
	}))
	t.Cleanup(ws.Close)
	return ws
}

func successHandler(w http.ResponseWriter, _ enrich.Request) {
	json.NewEncoder(w).Encode(map[string]any{
		"success": true,
		"source":  "svc",
		"payload": map[string]string{"title": "T", "author": "A"},
	})
}

func bookFixture(t *testing.T, dir, name, identifier string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testsupport.WriteEPUB(t, path, testsupport.BookSpec{
		Metadata: []testsupport.MetadataField{
			{Name: "title", Value: "The Great Novel"},
			{Name: "creator", Value: "A. Author"},
			{Name: "identifier", Value: identifier},
		},
		Documents: []testsupport.DocumentSpec{
			{Name: "ch1.xhtml", Body: "<p>Chapter one begins here: " + name + "</p>"},
		},
	})
	return path
}

func newPipeline(t *testing.T, store *catalog.Store, endpoint string, opts ...pipeline.Option) *pipeline.Pipeline {
	t.Helper()
	return pipeline.New(
		store,
		extract.NewExtractor(),
		enrich.NewClient(endpoint, enrich.WithAttempts(1)),
		opts...,
	)
}

func TestProcessHappyPath(t *testing.T) {
	server := newWorkflowServer(t, successHandler)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	p := newPipeline(t, store, server.URL)

	path := bookFixture(t, t.TempDir(), "novel.epub", "urn:isbn:9780306406157")
	outcome := p.Process(context.Background(), path)

	if outcome.Status != catalog.StatusProcessed {
		t.Fatalf("expected processed, got %s (%s)", outcome.Status, outcome.ErrorMessage)
	}
	if outcome.FinalTitle != "T" || outcome.FinalAuthor != "A" || outcome.Origin != "svc" {
		t.Fatalf("unexpected final decision: %+v", outcome)
	}

	request := <-server.requests
	if len(request.Identifiers.Metadata) != 1 || request.Identifiers.Metadata[0] != "9780306406157" {
		t.Fatalf("unexpected metadata bucket: %v", request.Identifiers.Metadata)
	}

	record, err := store.GetByID(context.Background(), outcome.RecordID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if record.Status != catalog.StatusProcessed || record.FinalTitle != "T" || record.FinalAuthor != "A" {
		t.Fatalf("unexpected persisted record: %+v", record)
	}
	if record.ISBN != "9780306406157" || record.ISBNSource != "metadata" {
		t.Fatalf("unexpected persisted identifier: %+v", record)
	}
	if record.CompletedAt == nil {
		t.Fatal("expected completion timestamp")
	}
	if !strings.Contains(record.MetadataJSON, "The Great Novel") {
		t.Fatalf("expected bundle metadata persisted, got %q", record.MetadataJSON)
	}
}

func TestProcessHashDuplicateSkipsEnrichment(t *testing.T) {
	server := newWorkflowServer(t, successHandler)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	p := newPipeline(t, store, server.URL)

	path := bookFixture(t, t.TempDir(), "novel.epub", "urn:isbn:9780306406157")
	first := p.Process(context.Background(), path)
	if first.Status != catalog.StatusProcessed {
		t.Fatalf("first run: %s (%s)", first.Status, first.ErrorMessage)
	}

	second := p.Process(context.Background(), path)
	if second.Status != catalog.StatusDuplicateHash {
		t.Fatalf("expected duplicate_hash, got %s", second.Status)
	}
	if calls := server.calls.Load(); calls != 1 {
		t.Fatalf("expected no enrichment call on second run, got %d calls total", calls)
	}

	record, err := store.GetByID(context.Background(), second.RecordID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if record.Status != catalog.StatusDuplicateHash {
		t.Fatalf("unexpected persisted status: %s", record.Status)
	}
	if record.MetadataJSON != "" {
		t.Fatalf("duplicate_hash row must not carry a bundle, got %q", record.MetadataJSON)
	}
}

func TestProcessISBNDuplicateKeepsBundle(t *testing.T) {
	server := newWorkflowServer(t, successHandler)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	p := newPipeline(t, store, server.URL)

	dir := t.TempDir()
	first := p.Process(context.Background(), bookFixture(t, dir, "original.epub", "urn:isbn:9780306406157"))
	if first.Status != catalog.StatusProcessed {
		t.Fatalf("first run: %s (%s)", first.Status, first.ErrorMessage)
	}

	// Different bytes, same identifier.
	second := p.Process(context.Background(), bookFixture(t, dir, "reissue.epub", "urn:isbn:9780306406157"))
	if second.Status != catalog.StatusDuplicateISBN {
		t.Fatalf("expected duplicate_isbn, got %s (%s)", second.Status, second.ErrorMessage)
	}
	if second.ErrorMessage == "" {
		t.Fatal("expected explanatory error message")
	}
	if calls := server.calls.Load(); calls != 1 {
		t.Fatalf("expected no enrichment call for isbn duplicate, got %d calls total", calls)
	}

	record, err := store.GetByID(context.Background(), second.RecordID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if record.Status != catalog.StatusDuplicateISBN || record.ErrorMessage == "" {
		t.Fatalf("unexpected persisted record: %+v", record)
	}
	if !strings.Contains(record.MetadataJSON, "The Great Novel") {
		t.Fatalf("isbn duplicate must keep the extracted bundle, got %q", record.MetadataJSON)
	}
}

func TestProcessUnreadableFileFails(t *testing.T) {
	server := newWorkflowServer(t, successHandler)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	p := newPipeline(t, store, server.URL)

	path := filepath.Join(t.TempDir(), "garbage.epub")
	testsupport.WriteGarbage(t, path, 1024)

	outcome := p.Process(context.Background(), path)
	if outcome.Status != catalog.StatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}
	if outcome.ErrorMessage == "" {
		t.Fatal("expected non-empty error message")
	}
	if server.calls.Load() != 0 {
		t.Fatal("expected no enrichment call for unreadable file")
	}

	record, err := store.GetByID(context.Background(), outcome.RecordID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if record.Status != catalog.StatusFailed || record.ISBN != "" {
		t.Fatalf("expected failed record without identifier, got %+v", record)
	}

	// The summary line survives exceptional paths too.
	line := outcome.SummaryLine()
	if !strings.Contains(line, "garbage.epub | isbn=no | metadata=no | processed=no | via=unknown") {
		t.Fatalf("unexpected summary line: %q", line)
	}
}

func TestProcessMissingFileLeavesNoRecord(t *testing.T) {
	server := newWorkflowServer(t, successHandler)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	p := newPipeline(t, store, server.URL)

	outcome := p.Process(context.Background(), filepath.Join(t.TempDir(), "absent.epub"))
	if outcome.Status != catalog.StatusFailed || outcome.RecordID != 0 {
		t.Fatalf("expected unpersisted failure, got %+v", outcome)
	}
}

func TestProcessWorkflowRejectionFails(t *testing.T) {
	server := newWorkflowServer(t, func(w http.ResponseWriter, _ enrich.Request) {
		// Missing author violates the contract.
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"source":  "svc",
			"payload": map[string]string{"title": "T"},
		})
	})
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	p := newPipeline(t, store, server.URL)

	path := bookFixture(t, t.TempDir(), "novel.epub", "urn:isbn:9780306406157")
	outcome := p.Process(context.Background(), path)
	if outcome.Status != catalog.StatusFailed {
		t.Fatalf("expected failed, got %s", outcome.Status)
	}
	if !strings.Contains(outcome.ErrorMessage, "payload.title") {
		t.Fatalf("expected contract violation message, got %q", outcome.ErrorMessage)
	}

	record, err := store.GetByID(context.Background(), outcome.RecordID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if record.ResponseJSON == "" || !strings.Contains(record.ResponseJSON, "payload.title") {
		t.Fatalf("expected synthesized failure persisted, got %q", record.ResponseJSON)
	}
}

func TestProcessDryRunWritesNothing(t *testing.T) {
	server := newWorkflowServer(t, successHandler)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	p := newPipeline(t, store, server.URL, pipeline.WithDryRun(true))

	path := bookFixture(t, t.TempDir(), "novel.epub", "urn:isbn:9780306406157")
	outcome := p.Process(context.Background(), path)
	if outcome.Status != catalog.StatusProcessed {
		t.Fatalf("dry run still exercises the flow, got %s (%s)", outcome.Status, outcome.ErrorMessage)
	}
	if outcome.RecordID != 0 {
		t.Fatalf("dry run must not persist, got record %d", outcome.RecordID)
	}

	health, err := store.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if health.Total != 0 {
		t.Fatalf("expected empty catalog after dry run, got %+v", health)
	}
}

func TestSummaryLineHappyPath(t *testing.T) {
	server := newWorkflowServer(t, successHandler)
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	p := newPipeline(t, store, server.URL)

	path := bookFixture(t, t.TempDir(), "novel.epub", "urn:isbn:9780306406157")
	outcome := p.Process(context.Background(), path)
	expected := "novel.epub | isbn=yes | metadata=yes | processed=yes | via=svc"
	if line := outcome.SummaryLine(); line != expected {
		t.Fatalf("unexpected summary line: %q", line)
	}
}
