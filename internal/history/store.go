// SPDX-License-Identifier: MPL-2.0

package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/snipr/snipr/internal/fsutil"
)

// FileName is the history file name inside the data directory.
const FileName = "history.json"

var (
	// ErrNotFound is returned by Get when no record matches.
	ErrNotFound = errors.New("history record not found")
	// ErrAmbiguousID is returned by Get when an ID prefix matches several records.
	ErrAmbiguousID = errors.New("ambiguous history record id")
)

// Store is the in-memory history list backed by a JSON file.
// It is safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	path    string
	items   []Record
	loadErr error
	logger  *slog.Logger
}

// Open restores the history at path. A missing file is an empty history; an
// unreadable or corrupt one is also treated as empty, and the error is kept
// for LoadError.
func Open(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{path: path, logger: logger}

	data, ok, err := fsutil.ReadFileIfExists(path)
	switch {
	case err != nil:
		s.loadErr = err
	case ok && len(data) > 0:
		if err := json.Unmarshal(data, &s.items); err != nil {
			s.items = nil
			s.loadErr = fmt.Errorf("decode %s: %w", path, err)
		}
	}
	if s.loadErr != nil {
		logger.Warn("starting with empty history", "path", path, "error", s.loadErr)
	}

	return s
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// LoadError returns the error encountered when the history was opened, if any.
func (s *Store) LoadError() error { return s.loadErr }

// Add inserts r at the front and persists the whole list. The record stays in
// memory even when the write fails.
func (s *Store) Add(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = slices.Insert(s.items, 0, r)
	return s.persistLocked()
}

// Clear empties the history and persists the empty list.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	return s.persistLocked()
}

// Items returns a copy of the records, newest first.
func (s *Store) Items() []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns the record whose ID equals id or, failing that, the single
// record whose ID starts with id.
func (s *Store) Get(id string) (Record, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	if id == "" {
		return Record{}, ErrNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var match *Record
	for i := range s.items {
		full := s.items[i].ID.String()
		if full == id {
			return s.items[i], nil
		}
		if strings.HasPrefix(full, id) {
			if match != nil {
				return Record{}, fmt.Errorf("%w: %q", ErrAmbiguousID, id)
			}
			match = &s.items[i]
		}
	}
	if match == nil {
		return Record{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return *match, nil
}

// Search returns the records whose command or preview contains query,
// ignoring case, newest first. An empty query matches everything.
func (s *Store) Search(query string) []Record {
	items := s.Items()
	if query == "" {
		return items
	}

	q := strings.ToLower(query)
	return slices.DeleteFunc(items, func(r Record) bool {
		return !strings.Contains(strings.ToLower(r.Command), q) &&
			!strings.Contains(strings.ToLower(r.OutputPreview), q)
	})
}

func (s *Store) persistLocked() error {
	items := s.items
	if items == nil {
		items = []Record{}
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := fsutil.WriteFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("save history: %w", err)
	}

	s.logger.Debug("history saved", "path", s.path, "records", len(items))
	return nil
}
