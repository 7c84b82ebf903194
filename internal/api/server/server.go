package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/feral-file/registry-indexer/internal/api/middleware"
	"github.com/feral-file/registry-indexer/internal/block"
	"github.com/feral-file/registry-indexer/internal/domain"
	"github.com/feral-file/registry-indexer/internal/indexer"
	"github.com/feral-file/registry-indexer/internal/logger"
	"github.com/feral-file/registry-indexer/internal/store"
)

const (
	healthPath  = "/healthz"
	metricsPath = "/metrics"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// StatusReporter exposes the state of one domain supervisor
type StatusReporter interface {
	Domain() domain.Domain
	Status() indexer.Status
}

// DomainHealth is the health entry of one indexed registry
type DomainHealth struct {
	indexer.Status
	Cursor    *uint64 `json:"cursor,omitempty"`
	Head      *uint64 `json:"head,omitempty"`
	Lag       *uint64 `json:"lag,omitempty"`
	HeadError string  `json:"headError,omitempty"`
}

// HealthResponse is the body of the health endpoint
type HealthResponse struct {
	Status  string         `json:"status"`
	Domains []DomainHealth `json:"domains"`
}

// Server serves the operations endpoints of the indexer
type Server struct {
	config      Config
	supervisors []StatusReporter
	cursors     store.CursorStore
	blocks      block.BlockProvider
	gatherer    prometheus.Gatherer
	httpServer  *http.Server
}

// New creates a new operations server
func New(cfg Config, supervisors []StatusReporter, cursors store.CursorStore, blocks block.BlockProvider, gatherer prometheus.Gatherer) *Server {
	return &Server{
		config:      cfg,
		supervisors: supervisors,
		cursors:     cursors,
		blocks:      blocks,
		gatherer:    gatherer,
	}
}

// Handler builds the gin router with every route and middleware
func (s *Server) Handler() http.Handler {
	// Set Gin mode based on debug flag
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(healthPath, metricsPath))

	router.GET(healthPath, s.health)
	router.GET(metricsPath, gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	return router
}

// Start initializes and starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	logger.Info("Starting ops server", zap.String("address", addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down ops server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}

	return nil
}

// health reports every supervisor with its cursor and lag behind the chain head.
// The response is 503 when any domain has stopped.
func (s *Server) health(c *gin.Context) {
	ctx := c.Request.Context()

	var head *uint64
	var headErr string
	if n, err := s.blocks.GetLatestBlock(ctx); err != nil {
		headErr = err.Error()
	} else {
		head = &n
	}

	resp := HealthResponse{Status: "ok", Domains: make([]DomainHealth, 0, len(s.supervisors))}
	code := http.StatusOK

	for _, sup := range s.supervisors {
		entry := DomainHealth{Status: sup.Status(), Head: head, HeadError: headErr}

		cursor, ok, err := s.cursors.GetBlockCursor(ctx, sup.Domain())
		if err != nil {
			logger.WarnErrCtx(ctx, "Failed to read block cursor", err, logger.Domain(sup.Domain()))
		} else if ok {
			entry.Cursor = &cursor
			if head != nil && *head >= cursor {
				lag := *head - cursor
				entry.Lag = &lag
			}
		}

		if entry.State == domain.SupervisorStateStopped {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		resp.Domains = append(resp.Domains, entry)
	}

	c.JSON(code, resp)
}
