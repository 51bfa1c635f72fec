// Package server provides the HTTP surface for operating the tagging
// pipeline: tag requests, rule reload and validation, stats, and
// Prometheus metrics, with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/tagmill/tagmill/internal/rules"
	"github.com/tagmill/tagmill/internal/scoring"
	"github.com/tagmill/tagmill/internal/tag"
	"github.com/tagmill/tagmill/internal/tagging"
)

// maxValidateBodySize bounds rule documents accepted for validation.
const maxValidateBodySize = 1 << 20 // 1MB

// Options configures a Server.
type Options struct {
	Port            int
	ShutdownTimeout time.Duration
	ServiceName     string

	// DefaultMode is used when a tag request omits the mode field.
	DefaultMode string

	Tagger *tagging.Service
	Store  *rules.Store
	Stats  *scoring.Stats
	Logger *zap.Logger
}

// Server is the tagmill HTTP server.
type Server struct {
	opts Options
	echo *echo.Echo
}

// HealthResponse is the JSON response for the /health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// TagRequest is the JSON body for POST /v1/tag.
type TagRequest struct {
	Text string `json:"text"`
	Kind string `json:"kind"`
	Mode string `json:"mode"`
}

// TagResponse is the JSON response for POST /v1/tag.
type TagResponse struct {
	Tags []string `json:"tags"`
}

// ReloadResponse is the JSON response for POST /v1/rules/reload.
type ReloadResponse struct {
	Rules int `json:"rules"`
}

// ValidateResponse is the JSON response for POST /v1/rules/validate.
type ValidateResponse struct {
	Valid    bool     `json:"valid"`
	Problems []string `json:"problems"`
}

// StatsResponse is the JSON response for GET /v1/stats.
type StatsResponse struct {
	ActiveRules int                   `json:"active_rules"`
	Usage       tagging.UsageSnapshot `json:"usage"`
	Scoring     *scoring.Snapshot     `json:"scoring,omitempty"`
}

// NewServer creates the HTTP server and registers all routes.
func NewServer(opts Options) (*Server, error) {
	if opts.Tagger == nil {
		return nil, fmt.Errorf("tagging service required")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("rule store required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "tagmill"
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		opts: opts,
		echo: e,
	}
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.POST("/v1/tag", s.handleTag)
	s.echo.POST("/v1/rules/reload", s.handleReload)
	s.echo.POST("/v1/rules/validate", s.handleValidate)
	s.echo.POST("/v1/cache/clear", s.handleCacheClear)
	s.echo.GET("/v1/stats", s.handleStats)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Service: s.opts.ServiceName,
	})
}

// handleTag tags a text. Tagging itself never fails; only a malformed
// request body produces an error status.
func (s *Server) handleTag(c echo.Context) error {
	var req TagRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	kind := tagging.Kind(req.Kind)
	if kind != tagging.KindMeeting && kind != tagging.KindCommit {
		kind = tagging.KindMeeting
	}

	mode := req.Mode
	if mode == "" {
		mode = s.opts.DefaultMode
	}

	tags := s.opts.Tagger.Tag(c.Request().Context(), req.Text, kind, mode)
	out := tag.Strings(tags)
	if out == nil {
		out = []string{}
	}
	return c.JSON(http.StatusOK, TagResponse{Tags: out})
}

func (s *Server) handleReload(c echo.Context) error {
	count, err := s.opts.Store.Reload()
	if err != nil {
		s.opts.Logger.Error("rule reload failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, fmt.Sprintf("reload failed: %v", err))
	}
	// Memoized results predate the new rule set.
	s.opts.Tagger.ClearCache()
	return c.JSON(http.StatusOK, ReloadResponse{Rules: count})
}

// handleValidate dry-runs a rule document posted as the raw body and
// reports every problem instead of stopping at the first.
func (s *Server) handleValidate(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxValidateBodySize))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}

	problems := rules.Validate(body)
	if problems == nil {
		problems = []string{}
	}
	return c.JSON(http.StatusOK, ValidateResponse{
		Valid:    len(problems) == 0,
		Problems: problems,
	})
}

func (s *Server) handleCacheClear(c echo.Context) error {
	s.opts.Tagger.ClearCache()
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleStats(c echo.Context) error {
	resp := StatsResponse{
		ActiveRules: s.opts.Store.Active().Len(),
		Usage:       s.opts.Tagger.Usage().Snapshot(),
	}
	if s.opts.Stats != nil {
		snap := s.opts.Stats.Snapshot(10)
		resp.Scoring = &snap
	}
	return c.JSON(http.StatusOK, resp)
}

// Start starts the HTTP server and blocks until the context is
// cancelled, then shuts down gracefully within the configured timeout.
// Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.opts.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()

		if err := s.echo.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// Echo returns the underlying Echo instance for registering additional
// routes.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
