// Package pipeline drives one file through the ingestion state
// machine: hash, dedup by hash, provisional insert, local extraction,
// dedup by identifier, enrichment call, terminal write. Every path
// ends in exactly one terminal status and the surrounding batch never
// observes a fault from a single file.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"sortbook/internal/catalog"
	"sortbook/internal/enrich"
	"sortbook/internal/extract"
	"sortbook/internal/logging"
	"sortbook/internal/services"
)

// WorkflowCaller submits one enrichment request. Implementations never
// return errors; failures arrive as synthesized failure responses.
type WorkflowCaller interface {
	Call(ctx context.Context, request *enrich.Request) enrich.Response
}

// Outcome is the per-file result handed to the batch driver. It is
// always producible, including for exceptional paths.
type Outcome struct {
	RecordID     int64
	Path         string
	Filename     string
	Status       catalog.Status
	ISBN         string
	HasMetadata  bool
	FinalTitle   string
	FinalAuthor  string
	Origin       string
	ErrorMessage string
	Elapsed      time.Duration
}

// Processed reports whether the file reached the processed status.
func (o Outcome) Processed() bool {
	return o.Status == catalog.StatusProcessed
}

// SummaryLine renders the one-line per-file report.
func (o Outcome) SummaryLine() string {
	yesNo := func(v bool) string {
		if v {
			return "yes"
		}
		return "no"
	}
	origin := o.Origin
	if origin == "" {
		origin = "unknown"
	}
	return fmt.Sprintf("%s | isbn=%s | metadata=%s | processed=%s | via=%s",
		o.Filename, yesNo(o.ISBN != ""), yesNo(o.HasMetadata), yesNo(o.Processed()), origin)
}

// Pipeline owns the per-file state machine. One Pipeline may process
// many files; each run owns its own state.
type Pipeline struct {
	store     *catalog.Store
	extractor *extract.Extractor
	caller    WorkflowCaller
	logger    *slog.Logger
	dryRun    bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPipelineLogger sets the pipeline logger.
func WithPipelineLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDryRun disables persistence writes while keeping the full
// extraction and enrichment flow.
func WithDryRun(dryRun bool) Option {
	return func(p *Pipeline) {
		p.dryRun = dryRun
	}
}

// New constructs a Pipeline over its collaborators.
func New(store *catalog.Store, extractor *extract.Extractor, caller WorkflowCaller, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:     store,
		extractor: extractor,
		caller:    caller,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// runState carries everything one file accumulates on its way to a
// terminal status.
type runState struct {
	path         string
	filename     string
	hash         string
	size         int64
	recordID     int64
	status       catalog.Status
	errorMessage string
	bundle       *extract.Bundle
	response     *enrich.Response
	finalTitle   string
	finalAuthor  string
	choiceSource string
	terminal     bool // terminal row already written (duplicate_hash)
}

// Process runs one file through the state machine. It never returns an
// error and never panics across its boundary.
func (p *Pipeline) Process(ctx context.Context, path string) Outcome {
	start := time.Now()
	state := &runState{
		path:     path,
		filename: filepath.Base(path),
		status:   catalog.StatusPending,
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				state.status = catalog.StatusFailed
				state.errorMessage = fmt.Sprintf("unexpected failure: %v", r)
				p.logger.Error("pipeline panic recovered",
					logging.String(logging.FieldFilename, state.filename),
					logging.String("panic", fmt.Sprint(r)))
			}
		}()
		p.run(ctx, state)
	}()

	elapsed := time.Since(start)
	p.finalize(ctx, state, elapsed)

	outcome := Outcome{
		RecordID:     state.recordID,
		Path:         state.path,
		Filename:     state.filename,
		Status:       state.status,
		FinalTitle:   state.finalTitle,
		FinalAuthor:  state.finalAuthor,
		Origin:       state.choiceSource,
		ErrorMessage: state.errorMessage,
		Elapsed:      elapsed,
	}
	if state.bundle != nil {
		outcome.ISBN = state.bundle.ISBN.ISBN
		outcome.HasMetadata = state.bundle.Metadata.Metadata.HasAny()
	}
	return outcome
}

func (p *Pipeline) run(ctx context.Context, state *runState) {
	logger := p.logger.With(logging.String(logging.FieldFilename, state.filename))

	hash, size, err := hashFile(state.path)
	if err != nil {
		state.status = catalog.StatusFailed
		state.errorMessage = fmt.Sprintf("hash file: %v", err)
		return
	}
	state.hash = hash
	state.size = size

	existing, err := p.store.FindByHash(ctx, hash)
	if err != nil {
		state.status = catalog.StatusFailed
		state.errorMessage = fmt.Sprintf("hash lookup: %v", err)
		return
	}
	if existing != nil {
		logger.Info("hash duplicate, skipping extraction",
			logging.Int64("existing_record", existing.ID))
		state.status = catalog.StatusDuplicateHash
		return
	}

	if !p.dryRun {
		id, err := p.store.InsertPending(ctx, hash, state.filename, state.path, size)
		if err != nil {
			state.status = catalog.StatusFailed
			state.errorMessage = fmt.Sprintf("insert pending record: %v", err)
			return
		}
		state.recordID = id
		ctx = services.WithRecordID(ctx, id)
		logger = logging.WithContext(ctx, logger)
	}

	bundle, err := p.extractor.Extract(ctx, state.path)
	if err != nil {
		state.status = catalog.StatusFailed
		state.errorMessage = err.Error()
		return
	}
	state.bundle = bundle

	if bundle.ISBN.ISBN != "" {
		duplicate, err := p.store.FindByISBNProcessed(ctx, bundle.ISBN.ISBN)
		if err != nil {
			state.status = catalog.StatusFailed
			state.errorMessage = fmt.Sprintf("isbn lookup: %v", err)
			return
		}
		if duplicate != nil {
			logger.Info("isbn duplicate, skipping enrichment",
				logging.String("isbn", bundle.ISBN.ISBN),
				logging.Int64("existing_record", duplicate.ID))
			state.status = catalog.StatusDuplicateISBN
			state.errorMessage = fmt.Sprintf("isbn %s already processed as record %d", bundle.ISBN.ISBN, duplicate.ID)
			return
		}
	}

	request := enrich.BuildRequest(state.filename, bundle)
	response := p.caller.Call(services.WithRequestID(ctx, request.RequestID), request)
	state.response = &response

	if response.Success && response.Payload != nil {
		state.status = catalog.StatusProcessed
		state.finalTitle = response.Payload.Title
		state.finalAuthor = response.Payload.Author
		state.choiceSource = response.Source
		logger.Info("enrichment decided final title",
			logging.String("title", state.finalTitle),
			logging.String("author", state.finalAuthor),
			logging.String("source", state.choiceSource))
		return
	}

	state.status = catalog.StatusFailed
	state.errorMessage = response.ErrorMessage()
}

// finalize writes the terminal state exactly once. The duplicate_hash
// path writes a status-only row; every other path with a provisional
// record gets one update carrying the bundle with binary content
// stripped.
func (p *Pipeline) finalize(ctx context.Context, state *runState, elapsed time.Duration) {
	if p.dryRun {
		return
	}
	elapsedMS := elapsed.Milliseconds()

	if state.status == catalog.StatusDuplicateHash {
		id, err := p.store.InsertDuplicateHash(ctx, state.hash, state.filename, state.path, state.size, elapsedMS)
		if err != nil {
			p.logger.Error("failed to record hash duplicate",
				logging.String(logging.FieldFilename, state.filename),
				logging.Error(err))
			return
		}
		state.recordID = id
		return
	}

	if state.recordID == 0 {
		// Failure before the provisional insert; nothing to update.
		return
	}

	fields := map[string]any{
		"status":             state.status,
		"completed_at":       time.Now().UTC(),
		"processing_time_ms": elapsedMS,
	}
	if state.errorMessage != "" {
		fields["error_message"] = state.errorMessage
	}
	if state.finalTitle != "" {
		fields["final_title"] = state.finalTitle
		fields["final_author"] = state.finalAuthor
		fields["choice_source"] = state.choiceSource
	}
	if state.bundle != nil {
		fields["isbn"] = state.bundle.ISBN.ISBN
		fields["isbn_source"] = string(state.bundle.ISBN.Source)
		fields["has_cover"] = state.bundle.Cover.HasCover
		fields["isbn_json"] = state.bundle.ISBN
		fields["metadata_json"] = state.bundle.Metadata
		fields["cover_json"] = bundleCoverJSON(state.bundle)
	}
	if state.response != nil {
		fields["response_json"] = state.response
	}

	if err := p.store.Update(ctx, state.recordID, fields); err != nil {
		p.logger.Error("failed to persist terminal state",
			logging.String(logging.FieldFilename, state.filename),
			logging.Int64(logging.FieldRecordID, state.recordID),
			logging.Error(err))
	}
}

// bundleCoverJSON groups declared presence and the ranked candidate
// list for persistence. The two views stay independent.
func bundleCoverJSON(bundle *extract.Bundle) map[string]any {
	return map[string]any{
		"cover":            bundle.Cover,
		"cover_candidates": bundle.Candidates,
		"ocr":              bundle.OCR,
	}
}

// hashFile streams the file through SHA-256.
func hashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}
