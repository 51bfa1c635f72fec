// Package tagging is the single entry point of the tagging pipeline.
// The Service selects a tagger generation per call, merges outputs in
// both mode, memoizes results, and degrades instead of failing: a
// broken tagger costs tags, never the record being composed.
package tagging

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/tagmill/tagmill/internal/dedup"
	"github.com/tagmill/tagmill/internal/legacy"
	"github.com/tagmill/tagmill/internal/scoring"
	"github.com/tagmill/tagmill/internal/tag"
)

var tracer = otel.Tracer("tagmill/tagging")

const (
	// DefaultCacheTTL expires memoized results.
	DefaultCacheTTL = 10 * time.Minute

	// DefaultCacheEntries bounds the memoization cache.
	DefaultCacheEntries = 512
)

// Config configures a Service.
type Config struct {
	Scorer       *scoring.Tagger
	Legacy       legacy.Evaluator
	Mapper       *legacy.Mapper
	Usage        *Usage
	Metrics      *Metrics
	Logger       *zap.Logger
	CacheTTL     time.Duration
	CacheEntries int
}

// Service is the unified tagging facade. Construct one at startup and
// pass it down; it owns its cache and usage counters explicitly, so
// lifecycle (including reload behind the scorer's rule store) is a
// testable operation on an owned object rather than a process global.
type Service struct {
	scorer  *scoring.Tagger
	legacy  legacy.Evaluator
	mapper  *legacy.Mapper
	usage   *Usage
	metrics *Metrics
	logger  *zap.Logger
	cache   *resultCache
}

// NewService creates a Service. Scorer is required; a nil Legacy
// evaluator makes v0 behave as an always-empty tagger.
func NewService(cfg Config) *Service {
	if cfg.Mapper == nil {
		cfg.Mapper = legacy.NewMapper(nil, nil)
	}
	if cfg.Usage == nil {
		cfg.Usage = NewUsage()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.CacheEntries == 0 {
		cfg.CacheEntries = DefaultCacheEntries
	}

	return &Service{
		scorer:  cfg.Scorer,
		legacy:  cfg.Legacy,
		mapper:  cfg.Mapper,
		usage:   cfg.Usage,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		cache:   newResultCache(cfg.CacheTTL, cfg.CacheEntries),
	}
}

// Usage returns the injected usage counters.
func (s *Service) Usage() *Usage { return s.usage }

// ClearCache drops every memoized result.
func (s *Service) ClearCache() {
	s.cache.clear()
	if s.metrics != nil {
		s.metrics.CacheSize.Set(0)
	}
}

// Tag tags text for the given kind and mode and returns the canonical
// tag list. It never returns an error: tagger failures degrade to the
// other generation's output in both mode, and to an empty list when
// the sole selected tagger fails. Blank input short-circuits to empty
// without touching the taggers or the cache.
func (s *Service) Tag(ctx context.Context, text string, kind Kind, rawMode string) []tag.Tag {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	mode, valid := ParseMode(rawMode)
	if !valid {
		s.logger.Warn("invalid tagging mode, using both",
			zap.String("mode", rawMode))
	}

	ctx, span := tracer.Start(ctx, "tagging.tag")
	defer span.End()
	span.SetAttributes(
		attribute.String("tagging.mode", string(mode)),
		attribute.String("tagging.kind", string(kind)),
	)

	key := cacheKey(mode, kind, text)
	if cached, ok := s.cache.get(key); ok {
		s.usage.recordCacheHit()
		if s.metrics != nil {
			s.metrics.CacheHitsTotal.Inc()
		}
		return cached
	}
	s.usage.recordCacheMiss()
	if s.metrics != nil {
		s.metrics.CacheMissesTotal.Inc()
	}

	start := time.Now()
	out := s.evaluate(text, mode)
	elapsed := time.Since(start)

	s.usage.recordCall(mode, kind, elapsed)
	if s.metrics != nil {
		s.metrics.CallsTotal.WithLabelValues(string(mode), string(kind)).Inc()
		s.metrics.TagDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	}

	s.cache.set(key, out)
	if s.metrics != nil {
		s.metrics.CacheSize.Set(float64(s.cache.size()))
	}
	return out
}

// evaluate dispatches on mode with explicit case analysis over each
// tagger's result, implementing the degradation ladder.
func (s *Service) evaluate(text string, mode Mode) []tag.Tag {
	switch mode {
	case ModeV0:
		tags, err := s.runLegacy(text)
		if err != nil {
			s.degraded("legacy tagger failed", err)
			return nil
		}
		return tags

	case ModeV1:
		tags, err := s.runScored(text)
		if err != nil {
			s.degraded("scored tagger failed", err)
			return nil
		}
		return tags

	default: // ModeBoth
		v0Tags, v0Err := s.runLegacy(text)
		v1Tags, v1Err := s.runScored(text)

		switch {
		case v0Err == nil && v1Err == nil:
			merged, metrics := dedup.Merge(v0Tags, v1Tags)
			s.usage.recordConflicts(metrics.ConflictsResolved)
			if s.metrics != nil {
				s.metrics.ConflictsTotal.Add(float64(metrics.ConflictsResolved))
			}
			s.logger.Debug("merged tagger outputs",
				zap.Int("v0_tags", len(v0Tags)),
				zap.Int("v1_tags", len(v1Tags)),
				zap.Int("merged", len(merged)),
				zap.Int("conflicts", metrics.ConflictsResolved))
			return merged

		case v1Err != nil && v0Err == nil:
			s.degraded("scored tagger failed, degrading to legacy output", v1Err)
			return v0Tags

		case v0Err != nil && v1Err == nil:
			s.degraded("legacy tagger failed, degrading to scored output", v0Err)
			return v1Tags

		default:
			s.degraded("both taggers failed", fmt.Errorf("legacy: %v; scored: %v", v0Err, v1Err))
			return nil
		}
	}
}

// runScored runs the v1 filtered evaluate with panic isolation.
func (s *Service) runScored(text string) (tags []tag.Tag, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			tags, err = nil, fmt.Errorf("scored tagger panic: %v", rec)
		}
	}()

	if s.scorer == nil {
		return nil, fmt.Errorf("scored tagger not configured")
	}
	return s.scorer.EvaluateFiltered(text)
}

// runLegacy runs the v0 evaluate plus canonicalization with panic
// isolation. The legacy engine is an external collaborator; treat any
// panic from it as a tagger-level failure.
func (s *Service) runLegacy(text string) (tags []tag.Tag, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			tags, err = nil, fmt.Errorf("legacy tagger panic: %v", rec)
		}
	}()

	if s.legacy == nil {
		return nil, nil
	}
	raw, err := s.legacy.Evaluate(text, nil)
	if err != nil {
		return nil, fmt.Errorf("legacy evaluate: %w", err)
	}
	return s.mapper.MapToCanonical(raw), nil
}

// degraded logs a degradation and bumps the counters.
func (s *Service) degraded(msg string, err error) {
	s.logger.Warn(msg, zap.Error(err))
	s.usage.recordDegraded()
	if s.metrics != nil {
		s.metrics.DegradedTotal.Inc()
	}
}
