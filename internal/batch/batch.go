// Package batch drives the per-file pipeline over a directory of EPUBs
// with a bounded worker pool. Discovery order is lexicographic so runs
// are reproducible, and a file lock keeps concurrent batches off the
// same catalog.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"golang.org/x/sync/errgroup"

	"sortbook/internal/catalog"
	"sortbook/internal/config"
	"sortbook/internal/logging"
	"sortbook/internal/pipeline"
	"sortbook/internal/resume"
)

// ErrBatchRunning reports that another batch holds the lock.
var ErrBatchRunning = errors.New("another batch is already running")

// Runner scans the incoming directory and fans files out to the
// pipeline.
type Runner struct {
	cfg     *config.Config
	pipe    *pipeline.Pipeline
	resume  *resume.Store
	logger  *slog.Logger
	workers int
	dryRun  bool
}

// Option adjusts a Runner.
type Option func(*Runner)

// WithRunnerLogger sets the batch logger.
func WithRunnerLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logging.NewComponentLogger(logger, "batch")
		}
	}
}

// WithWorkers overrides the configured worker count.
func WithWorkers(workers int) Option {
	return func(r *Runner) {
		if workers > 0 {
			r.workers = workers
		}
	}
}

// WithDryRun disables resume tracking alongside the pipeline's own
// dry-run handling.
func WithDryRun(dryRun bool) Option {
	return func(r *Runner) {
		r.dryRun = dryRun
	}
}

// NewRunner builds a Runner over an already constructed pipeline.
func NewRunner(cfg *config.Config, pipe *pipeline.Pipeline, store *resume.Store, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		pipe:    pipe,
		resume:  store,
		logger:  logging.NewNop(),
		workers: cfg.Batch.Workers,
	}
	if r.workers < 1 {
		r.workers = 1
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Request bounds one batch run.
type Request struct {
	Offset int
	Limit  int
}

// Result is the aggregate of one batch run. Outcomes follow discovery
// order regardless of which worker finished first.
type Result struct {
	Outcomes      []pipeline.Outcome
	Discovered    int
	SkippedResume int
}

// Processed counts outcomes that reached the processed status.
func (r *Result) Processed() int {
	n := 0
	for _, outcome := range r.Outcomes {
		if outcome.Processed() {
			n++
		}
	}
	return n
}

// SummaryLines renders the per-file report lines in discovery order.
func (r *Result) SummaryLines() []string {
	lines := make([]string, 0, len(r.Outcomes))
	for _, outcome := range r.Outcomes {
		lines = append(lines, outcome.SummaryLine())
	}
	return lines
}

// Run discovers EPUBs, applies resume filtering and offset/limit, and
// processes every selected file. Per-file failures never abort the
// batch; only lock acquisition and discovery errors do.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	lock := flock.New(r.lockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire batch lock: %w", err)
	}
	if !ok {
		return nil, ErrBatchRunning
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			r.logger.Warn("failed to release batch lock", logging.Error(err))
		}
	}()

	paths, err := Discover(r.cfg.Paths.EPUBDir)
	if err != nil {
		return nil, err
	}

	result := &Result{Discovered: len(paths)}
	if r.resume != nil {
		filtered := r.resume.Filter(paths)
		result.SkippedResume = len(paths) - len(filtered)
		paths = filtered
	}
	paths = window(paths, req.Offset, req.Limit)

	r.logger.Info("starting batch",
		logging.Int("discovered", result.Discovered),
		logging.Int("skipped_resume", result.SkippedResume),
		logging.Int("selected", len(paths)),
		logging.Int("workers", r.workers))

	result.Outcomes = make([]pipeline.Outcome, len(paths))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(r.workers)
	for i, path := range paths {
		i, path := i, path
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				result.Outcomes[i] = pipeline.Outcome{
					Path:         path,
					Filename:     filepath.Base(path),
					Status:       catalog.StatusFailed,
					ErrorMessage: fmt.Sprintf("batch canceled: %v", err),
				}
				return nil
			}
			outcome := r.pipe.Process(groupCtx, path)
			result.Outcomes[i] = outcome
			if !r.dryRun && r.resume != nil {
				if err := r.resume.Add(path); err != nil {
					r.logger.Warn("failed to record resume entry",
						logging.String("path", path),
						logging.Error(err))
				}
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return result, err
	}

	r.logger.Info("batch finished",
		logging.Int("processed", result.Processed()),
		logging.Int("total", len(result.Outcomes)))
	return result, nil
}

func (r *Runner) lockPath() string {
	return filepath.Join(r.cfg.Paths.DataDir, "batch.lock")
}

// Discover lists the .epub files directly under dir in lexicographic
// order. A missing directory is an error; an empty one is not.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), ".epub") {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

func window(paths []string, offset, limit int) []string {
	if offset > 0 {
		if offset >= len(paths) {
			return nil
		}
		paths = paths[offset:]
	}
	if limit > 0 && limit < len(paths) {
		paths = paths[:limit]
	}
	return paths
}
