// Package resume tracks which file paths a batch already processed so
// later runs can skip them. The store is an accelerator, not a source
// of truth: an unusable backing file degrades to treating every path
// as unprocessed.
package resume

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"sortbook/internal/logging"
)

type entry struct {
	Path    string    `json:"path"`
	AddedAt time.Time `json:"added_at"`
}

// Store provides thread-safe membership tracking backed by a JSON
// file. An empty path makes every operation a no-op.
type Store struct {
	path    string
	logger  *slog.Logger
	mu      sync.RWMutex
	members map[string]time.Time
}

// NewStore creates a store over the given file. The file is created
// lazily on first Add; a corrupt or unreadable file starts the store
// empty.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "resume")

	s := &Store{
		path:    path,
		logger:  logger,
		members: make(map[string]time.Time),
	}
	if path == "" {
		return s
	}

	if err := s.load(); err != nil {
		logger.Warn("failed to load resume store, starting empty",
			logging.String("path", path),
			logging.Error(err))
	}
	return s
}

// Contains reports whether the path was already processed.
func (s *Store) Contains(path string) bool {
	path = strings.TrimSpace(path)
	if path == "" || s.path == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.members[path]
	return ok
}

// Filter returns the paths not yet processed, preserving order.
func (s *Store) Filter(paths []string) []string {
	if s.path == "" {
		return paths
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	remaining := make([]string, 0, len(paths))
	for _, path := range paths {
		if _, ok := s.members[path]; !ok {
			remaining = append(remaining, path)
		}
	}
	return remaining
}

// Add marks a path as processed and persists the change.
func (s *Store) Add(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return errors.New("path cannot be empty")
	}
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.members[path] = time.Now().UTC()
	if err := s.save(); err != nil {
		return fmt.Errorf("persist resume store: %w", err)
	}
	return nil
}

// Clear removes every member and persists the empty set.
func (s *Store) Clear() error {
	if s.path == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.members = make(map[string]time.Time)
	if err := s.save(); err != nil {
		return fmt.Errorf("persist resume store: %w", err)
	}
	return nil
}

// Count returns the number of tracked paths.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.members)
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read resume file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse resume file: %w", err)
	}

	s.members = make(map[string]time.Time, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.Path) != "" {
			s.members[e.Path] = e.AddedAt
		}
	}
	return nil
}

// save writes the member list atomically via a temp file.
func (s *Store) save() error {
	entries := make([]entry, 0, len(s.members))
	for path, addedAt := range s.members {
		entries = append(entries, entry{Path: path, AddedAt: addedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Path < entries[j].Path
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal resume store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create resume directory: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
