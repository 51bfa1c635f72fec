package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/tagmill/tagmill/internal/rules"
)

// ErrNoSnapshot indicates a remote fetch failed and no snapshot file
// exists to fall back on.
var ErrNoSnapshot = errors.New("catalog fetch failed and no snapshot available")

// DefaultSyncInterval is how often Run re-syncs the catalog.
const DefaultSyncInterval = 15 * time.Minute

// Fetcher supplies catalog entries. *Client implements it; tests
// substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Entry, error)
}

// SyncerConfig configures a Syncer.
type SyncerConfig struct {
	Client       Fetcher
	Store        *rules.Store
	SnapshotPath string
	Interval     time.Duration
	Logger       *zap.Logger

	// OnSwap, when set, runs after every successful store swap. Used
	// to drop memoized results computed against the previous rules.
	OnSwap func()
}

// Syncer keeps the rule store aligned with the remote catalog. Each
// sync fetches entries, rebuilds the rule document, swaps it into the
// store, and persists a snapshot so the next process start (or a
// catalog outage) can serve the last known rules.
type Syncer struct {
	client       Fetcher
	store        *rules.Store
	snapshotPath string
	interval     time.Duration
	logger       *zap.Logger
	onSwap       func()
}

// NewSyncer creates a Syncer.
func NewSyncer(cfg SyncerConfig) (*Syncer, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("catalog client required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("rule store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultSyncInterval
	}
	return &Syncer{
		client:       cfg.Client,
		store:        cfg.Store,
		snapshotPath: cfg.SnapshotPath,
		interval:     cfg.Interval,
		logger:       cfg.Logger,
		onSwap:       cfg.OnSwap,
	}, nil
}

// Sync fetches the catalog and swaps the resulting document into the
// rule store. When the fetch fails it falls back to the snapshot file;
// only a fetch failure with no usable snapshot is an error.
func (s *Syncer) Sync(ctx context.Context) error {
	entries, err := s.client.Fetch(ctx)
	if err != nil {
		return s.fallback(err)
	}

	data, duplicates, err := Document(entries)
	if err != nil {
		return fmt.Errorf("assembling catalog document: %w", err)
	}
	for _, dup := range duplicates {
		s.logger.Warn("duplicate catalog entry, keeping last", zap.String("tag", dup))
	}

	count, err := s.store.Swap(rules.BytesSource{Name: "catalog", Data: data})
	if err != nil {
		return fmt.Errorf("swapping catalog rules: %w", err)
	}
	s.notifySwap()

	if err := s.writeSnapshot(data); err != nil {
		// Snapshot persistence is best effort; the live swap already
		// succeeded.
		s.logger.Warn("failed to write catalog snapshot", zap.Error(err))
	}

	s.logger.Info("catalog synced",
		zap.Int("entries", len(entries)),
		zap.Int("rules", count))
	return nil
}

// fallback swaps in the last snapshot after a fetch failure.
func (s *Syncer) fallback(fetchErr error) error {
	if s.snapshotPath == "" {
		return fmt.Errorf("%w: %v", ErrNoSnapshot, fetchErr)
	}

	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoSnapshot, fetchErr)
	}

	count, err := s.store.Swap(rules.BytesSource{Name: "catalog-snapshot:" + s.snapshotPath, Data: data})
	if err != nil {
		return fmt.Errorf("swapping snapshot rules: %w", err)
	}

	s.notifySwap()

	s.logger.Warn("catalog fetch failed, serving snapshot",
		zap.Error(fetchErr),
		zap.String("snapshot", s.snapshotPath),
		zap.Int("rules", count))
	return nil
}

func (s *Syncer) notifySwap() {
	if s.onSwap != nil {
		s.onSwap()
	}
}

// writeSnapshot persists the assembled document next to the configured
// path, replacing it atomically.
func (s *Syncer) writeSnapshot(data []byte) error {
	if s.snapshotPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.snapshotPath), 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp := s.snapshotPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.snapshotPath); err != nil {
		return fmt.Errorf("replacing snapshot: %w", err)
	}
	return nil
}

// Run syncs on a fixed interval until the context is cancelled. Sync
// errors are logged and do not stop the loop.
func (s *Syncer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				s.logger.Error("catalog sync failed", zap.Error(err))
			}
		}
	}
}
