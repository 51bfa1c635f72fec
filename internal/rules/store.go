package rules

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// ErrNoSource indicates the store was constructed without a document
// source and cannot reload.
var ErrNoSource = errors.New("rule store has no document source")

// Source supplies the raw rule document for load and reload. The fetch
// may block on disk or network; the store itself never caches stale
// bytes between reloads.
type Source interface {
	// Fetch returns the current rule document bytes.
	Fetch() ([]byte, error)

	// Describe identifies the source for logs.
	Describe() string
}

// FileSource reads the rule document from a local YAML file.
type FileSource struct {
	Path string
}

// Fetch implements Source.
func (f FileSource) Fetch() ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading rule document %s: %w", f.Path, err)
	}
	return data, nil
}

// Describe implements Source.
func (f FileSource) Describe() string { return "file:" + f.Path }

// BytesSource serves a fixed in-memory document. Used by tests and by
// the catalog syncer, which assembles document bytes from a remote
// snapshot before swapping them in.
type BytesSource struct {
	Name string
	Data []byte
}

// Fetch implements Source.
func (b BytesSource) Fetch() ([]byte, error) { return b.Data, nil }

// Describe implements Source.
func (b BytesSource) Describe() string {
	if b.Name == "" {
		return "bytes"
	}
	return b.Name
}

// Store owns the active compiled rule set. Readers call Active at any
// time; Reload builds a complete replacement set off to the side and
// publishes it with a single pointer swap, so concurrent evaluators
// see either the old or the new set, never a partial one.
//
// Concurrent reloads race benignly: the last swap to complete wins.
type Store struct {
	mu     sync.Mutex // guards source
	source Source
	logger *zap.Logger
	active atomic.Pointer[Set]
}

// NewStore creates a store around source and performs the initial
// load. A fetch failure leaves an empty set active and returns the
// error; the store remains usable and can Reload later.
func NewStore(source Source, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{source: source, logger: logger}
	s.active.Store(NewSet(nil))

	if source == nil {
		return s, nil
	}
	if _, err := s.Reload(); err != nil {
		return s, err
	}
	return s, nil
}

// NewStaticStore wraps an already-compiled set. Reload fails with
// ErrNoSource. Used where the caller manages document lifecycle.
func NewStaticStore(set *Set, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{logger: logger}
	if set == nil {
		set = NewSet(nil)
	}
	s.active.Store(set)
	return s
}

// Active returns the current rule set. Never nil.
func (s *Store) Active() *Set {
	return s.active.Load()
}

// Reload re-fetches the document, compiles a fresh set, and swaps it
// in atomically. Returns the number of active rules after the swap.
func (s *Store) Reload() (int, error) {
	s.mu.Lock()
	source := s.source
	s.mu.Unlock()

	if source == nil {
		return s.Active().Len(), ErrNoSource
	}

	data, err := source.Fetch()
	if err != nil {
		return s.Active().Len(), fmt.Errorf("fetching rule document from %s: %w", source.Describe(), err)
	}

	set := Load(data, s.logger)
	s.active.Store(set)

	s.logger.Info("rule set reloaded",
		zap.String("source", source.Describe()),
		zap.Int("rules", set.Len()))
	return set.Len(), nil
}

// Swap replaces both the source and the active set in one step. The
// catalog syncer uses this to hot-swap remote documents.
func (s *Store) Swap(source Source) (int, error) {
	s.mu.Lock()
	s.source = source
	s.mu.Unlock()
	return s.Reload()
}

// Clear drops every active rule. Diagnostic use only.
func (s *Store) Clear() {
	s.active.Store(NewSet(nil))
}
