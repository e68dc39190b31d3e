package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"unwrapped/internal/api"
	"unwrapped/internal/config"
	"unwrapped/internal/logging"
)

// StatusProvider reports the runtime status served by GET /api/status.
type StatusProvider interface {
	Status(ctx context.Context) api.DaemonStatus
}

// Deps are the services the HTTP handlers delegate to.
type Deps struct {
	Renders *api.RenderService
	Jobs    *api.JobService
	Status  StatusProvider
}

// Server owns the HTTP listener of the render service.
type Server struct {
	bind      string
	token     string
	outputDir string
	cors      []string
	rps       float64
	burst     int
	proxies   []netip.Prefix
	logger    *slog.Logger
	deps      Deps

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

// New constructs a server from the paths and server config sections.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) *Server {
	// Load already rejected malformed entries.
	proxies, _ := cfg.Server.ProxyPrefixes()
	return &Server{
		bind:      strings.TrimSpace(cfg.Paths.APIBind),
		token:     strings.TrimSpace(cfg.Paths.APIToken),
		outputDir: cfg.Paths.OutputDir,
		cors:      cfg.Server.CORSOrigins,
		rps:       cfg.Server.RateLimitRPS,
		burst:     cfg.Server.RateLimitBurst,
		proxies:   proxies,
		logger:    logging.NewComponentLogger(logger, "api-server"),
		deps:      deps,
	}
}

// Start listens on the configured address and serves until ctx is cancelled
// or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	if s.bind == "" {
		return errors.New("api bind address not configured")
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.mu.Lock()
	s.listener = listener
	s.server = srv
	s.mu.Unlock()

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.ErrorWithContext(s.logger, "api server stopped unexpectedly", "api_serve_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "render and progress requests are no longer served"),
			)
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening",
		logging.Event("api_listening"),
		logging.String("address", listener.Addr().String()),
	)
	return nil
}

// Stop shuts the listener down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	s.mu.Lock()
	srv := s.server
	s.server = nil
	s.listener = nil
	s.mu.Unlock()
	if srv == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

// Addr returns the bound address, or "" when not listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
