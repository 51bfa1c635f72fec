package tagging

import (
	"sync"
	"time"
)

// Usage is the facade's process-wide counter object: calls by mode and
// kind, cache traffic, merge conflict totals, and cumulative tagging
// time. It is constructor-injected rather than ambient so tests run
// isolated instances, guarded by one mutex, and reset only explicitly.
type Usage struct {
	mu sync.Mutex

	callsByMode map[Mode]uint64
	callsByKind map[Kind]uint64

	cacheHits   uint64
	cacheMisses uint64

	conflictsResolved uint64
	degradedCalls     uint64

	totalElapsed time.Duration
}

// NewUsage creates an empty Usage.
func NewUsage() *Usage {
	return &Usage{
		callsByMode: make(map[Mode]uint64),
		callsByKind: make(map[Kind]uint64),
	}
}

func (u *Usage) recordCall(mode Mode, kind Kind, elapsed time.Duration) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.callsByMode[mode]++
	u.callsByKind[kind]++
	u.totalElapsed += elapsed
}

func (u *Usage) recordCacheHit() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cacheHits++
}

func (u *Usage) recordCacheMiss() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cacheMisses++
}

func (u *Usage) recordConflicts(n int) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.conflictsResolved += uint64(n)
}

func (u *Usage) recordDegraded() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.degradedCalls++
}

// UsageSnapshot is a point-in-time copy of the counters.
type UsageSnapshot struct {
	CallsByMode       map[Mode]uint64 `json:"calls_by_mode"`
	CallsByKind       map[Kind]uint64 `json:"calls_by_kind"`
	CacheHits         uint64          `json:"cache_hits"`
	CacheMisses       uint64          `json:"cache_misses"`
	ConflictsResolved uint64          `json:"conflicts_resolved"`
	DegradedCalls     uint64          `json:"degraded_calls"`
	TotalElapsed      time.Duration   `json:"total_elapsed"`
}

// Snapshot copies the counters.
func (u *Usage) Snapshot() UsageSnapshot {
	u.mu.Lock()
	defer u.mu.Unlock()

	byMode := make(map[Mode]uint64, len(u.callsByMode))
	for k, v := range u.callsByMode {
		byMode[k] = v
	}
	byKind := make(map[Kind]uint64, len(u.callsByKind))
	for k, v := range u.callsByKind {
		byKind[k] = v
	}

	return UsageSnapshot{
		CallsByMode:       byMode,
		CallsByKind:       byKind,
		CacheHits:         u.cacheHits,
		CacheMisses:       u.cacheMisses,
		ConflictsResolved: u.conflictsResolved,
		DegradedCalls:     u.degradedCalls,
		TotalElapsed:      u.totalElapsed,
	}
}

// Reset clears every counter.
func (u *Usage) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.callsByMode = make(map[Mode]uint64)
	u.callsByKind = make(map[Kind]uint64)
	u.cacheHits = 0
	u.cacheMisses = 0
	u.conflictsResolved = 0
	u.degradedCalls = 0
	u.totalElapsed = 0
}
