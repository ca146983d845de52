// Package httpapi implements the daemon's HTTP/SSE surface (spec §6.1–6.2,
// §6.8): a gin router over pkg/executor.Engine, pkg/eventstore.Store, and
// pkg/session.Registry.
//
// Grounded on the teacher's pkg/api (tarsy-style) handler/server split —
// one Server struct holding its collaborators, one method per route, gin.H
// for ad hoc JSON bodies — generalized from tarsy's single-session alert
// API to this spec's multi-session/multi-task surface.
package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/codesdk/execd/pkg/adapter"
	"github.com/codesdk/execd/pkg/artifact"
	"github.com/codesdk/execd/pkg/eventstore"
	"github.com/codesdk/execd/pkg/executor"
	"github.com/codesdk/execd/pkg/metrics"
	"github.com/codesdk/execd/pkg/policy"
	"github.com/codesdk/execd/pkg/session"
)

// Config wires a Server's collaborators and tunables.
type Config struct {
	Engine    *executor.Engine
	Events    eventstore.Store
	Artifacts artifact.Store
	Sessions  *session.Registry
	Adapters  map[string]adapter.Adapter
	Metrics   *metrics.Metrics

	DefaultRuntime        string
	DefaultPermissionMode policy.Mode
	// DefaultWorkspaceRoot is the task working directory a new session
	// gets when POST /sessions omits cwd (spec §6.7 --workspace-root).
	DefaultWorkspaceRoot string

	// RateLimit and RateBurst configure a token-bucket limiter applied per
	// client (keyed by remote addr) across every route (spec §6.8
	// execd_backpressure_drops_total{reason="rate_limit"}). Zero disables
	// limiting.
	RateLimit rate.Limit
	RateBurst int

	// MaxInflightTasks bounds concurrently running tasks across the whole
	// daemon; StartTask requests beyond it receive 429 (reason="inflight").
	MaxInflightTasks int

	// MaxBodyBytes bounds request body size; larger bodies get 413
	// (reason="body_too_large"). Zero means 1 MiB.
	MaxBodyBytes int64

	// SSEMaxClients bounds concurrently connected SSE streams; beyond it,
	// new stream requests get 429 (reason="sse_backpressure").
	SSEMaxClients int
}

// Server is the daemon's HTTP API.
type Server struct {
	cfg Config

	limiters *clientLimiters
	inflight chan struct{}
	sseSlots chan struct{}
}

// New constructs a Server. Call Router to obtain a gin.Engine to serve.
func New(cfg Config) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.MaxInflightTasks <= 0 {
		cfg.MaxInflightTasks = 64
	}
	if cfg.SSEMaxClients <= 0 {
		cfg.SSEMaxClients = 64
	}

	s := &Server{
		cfg:      cfg,
		inflight: make(chan struct{}, cfg.MaxInflightTasks),
		sseSlots: make(chan struct{}, cfg.SSEMaxClients),
	}
	if cfg.RateLimit > 0 {
		s.limiters = newClientLimiters(cfg.RateLimit, cfg.RateBurst)
	}
	return s
}

// Router builds the gin.Engine serving every route in spec §6.1.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.limiters != nil {
		r.Use(s.rateLimitMiddleware())
	}
	r.Use(s.maxBodyMiddleware())

	r.GET("/", s.handleRoot)
	r.GET("/health", s.handleHealth)
	r.GET("/capabilities", s.handleCapabilities)
	r.GET("/auth/status", s.handleAuthStatus)
	if s.cfg.Metrics != nil {
		r.GET("/metrics", s.handleMetrics())
	}

	r.GET("/sessions", s.handleListSessions)
	r.POST("/sessions", s.handleCreateSession)
	r.GET("/sessions/:id", s.handleGetSession)
	r.GET("/sessions/:id/events", s.handleSessionEvents)
	r.POST("/sessions/:id/tasks", s.handleStartTask)
	r.GET("/sessions/:id/tasks/:taskId", s.handleGetTask)
	r.POST("/sessions/:id/tasks/:taskId/stop", s.handleStopTask)
	r.POST("/sessions/:id/tool-calls/:toolCallId/approve", s.handleApproveToolCall)
	r.POST("/sessions/:id/tool-calls/:toolCallId/deny", s.handleDenyToolCall)
	r.GET("/sessions/:id/support-bundle", s.handleSupportBundle)

	r.GET("/artifacts/:id", s.handleGetArtifact)
	r.GET("/artifacts/:id/download", s.handleDownloadArtifact)

	return r
}

func errJSON(c *gin.Context, status int, code string, detail string) {
	c.JSON(status, gin.H{"error": code, "detail": detail})
}

func (s *Server) adapterFor(name string) (adapter.Adapter, string, bool) {
	if name == "" {
		name = s.cfg.DefaultRuntime
	}
	a, ok := s.cfg.Adapters[name]
	return a, name, ok
}

func withTimeout(c *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), d)
}

const requestTimeout = 10 * time.Second
