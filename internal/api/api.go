// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/good-yellow-bee/pulseboard/internal/api/health"
	"github.com/good-yellow-bee/pulseboard/internal/readstate"
	"github.com/good-yellow-bee/pulseboard/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address        string
	RateLimitPerIP int           // Requests per minute per client IP
	QueryTimeout   time.Duration // Timeout for storage-backed API calls
	Verbose        bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RateLimitPerIP == 0 {
		c.RateLimitPerIP = 120 // 120 requests per minute
	}
	if c.QueryTimeout == 0 {
		c.QueryTimeout = 10 * time.Second
	}
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	storage       storage.Storage
	telemetry     storage.TelemetryStorage
	reads         *readstate.Tracker
	onRuleChange  func(ctx context.Context)
	onChanChange  func(ctx context.Context)
	server        *http.Server
	healthHandler *health.Handler
}

// Options carries the collaborators the route handlers need beyond
// relational storage.
type Options struct {
	// Telemetry can be nil if ClickHouse is disabled; the check history
	// endpoint then serves empty results.
	Telemetry storage.TelemetryStorage
	// Reads must already be loaded from storage.
	Reads *readstate.Tracker
	// OnRuleChange is invoked after rule mutations so the evaluator and
	// checker can reload. May be nil.
	OnRuleChange func(ctx context.Context)
	// OnChannelChange is invoked after channel mutations so the
	// dispatcher can reload. May be nil.
	OnChannelChange func(ctx context.Context)
}

// New creates a new API server.
func New(cfg *Config, store storage.Storage, opts Options) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}

	cfg.SetDefaults()

	reads := opts.Reads
	if reads == nil {
		reads = readstate.NewTracker(readstate.DefaultCapacity)
	}

	s := &Server{
		config:        cfg,
		storage:       store,
		telemetry:     opts.Telemetry,
		reads:         reads,
		onRuleChange:  opts.OnRuleChange,
		onChanChange:  opts.OnChannelChange,
		healthHandler: health.NewHandler(),
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		log.Printf("HTTP API listening on %s", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Printf("shutting down HTTP API server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a health checker to the server.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	if s.healthHandler != nil {
		s.healthHandler.RegisterChecker(c)
	}
}
