// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/safetrack-hq/escalator/internal/models"
	"github.com/safetrack-hq/escalator/internal/rules"
)

// Engine triggers escalations for incidents.
type Engine interface {
	ProcessRules(ctx context.Context, incidentID string) error
	TriggerManual(ctx context.Context, incidentID, reason, escalatedBy string) error
	GetActiveRules() []*rules.Rule
}

// Scanner runs an on-demand sweep for overdue incidents.
type Scanner interface {
	ScanOverdue(ctx context.Context) error
}

// HistoryReader reads the escalation history log.
type HistoryReader interface {
	List(ctx context.Context, limit, offset int) ([]*models.EscalationHistoryEntry, int64, error)
	ListByIncident(ctx context.Context, incidentID string, limit, offset int) ([]*models.EscalationHistoryEntry, int64, error)
}

// RuleReloader reloads the rule set from its source.
type RuleReloader interface {
	Reload() error
}

// Config contains HTTP API server configuration.
type Config struct {
	Address        string
	JWTSecret      []byte
	TokenTTL       time.Duration
	RequestTimeout time.Duration // Timeout for escalation-triggering calls
	Verbose        bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 60 * time.Second
	}
}

// Server is the HTTP API server.
type Server struct {
	config   *Config
	engine   Engine
	scanner  Scanner
	history  HistoryReader
	reloader RuleReloader
	server   *http.Server
}

// New creates a new API server. reloader may be nil when the rule set
// has no reloadable source.
func New(cfg *Config, engine Engine, scanner Scanner, history HistoryReader, reloader RuleReloader) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine is required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, fmt.Errorf("JWT secret is required")
	}

	cfg.SetDefaults()

	s := &Server{
		config:   cfg,
		engine:   engine,
		scanner:  scanner,
		history:  history,
		reloader: reloader,
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
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
