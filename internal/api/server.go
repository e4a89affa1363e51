package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"scribe/internal/broadcast"
	"scribe/internal/config"
	"scribe/internal/history"
	"scribe/internal/jobs"
	"scribe/internal/logging"
)

const defaultKeepalive = 30 * time.Second

// Submitter hands an already-registered job to the worker pool.
type Submitter interface {
	Submit(jobID string) error
}

// Options wires a Server's collaborators.
type Options struct {
	Bind        string
	Store       *jobs.Store
	Broadcaster *broadcast.Broadcaster
	History     *history.Store
	Submitter   Submitter
	Config      *config.Config
	Version     string
	Keepalive   time.Duration
	Logger      *slog.Logger
}

// Server is the HTTP front of the daemon. All processing happens on
// worker goroutines; handlers only register jobs, read snapshots, and
// drive event streams.
type Server struct {
	bind        string
	version     string
	store       *jobs.Store
	broadcaster *broadcast.Broadcaster
	history     *history.Store
	submitter   Submitter
	cfg         *config.Config
	keepalive   time.Duration
	logger      *slog.Logger

	mux      *http.ServeMux
	listener net.Listener
	server   *http.Server
}

// NewServer constructs the HTTP server and its route table.
func NewServer(opts Options) *Server {
	keepalive := opts.Keepalive
	if keepalive <= 0 {
		keepalive = defaultKeepalive
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	srv := &Server{
		bind:        opts.Bind,
		version:     opts.Version,
		store:       opts.Store,
		broadcaster: opts.Broadcaster,
		history:     opts.History,
		submitter:   opts.Submitter,
		cfg:         opts.Config,
		keepalive:   keepalive,
		logger:      logging.NewComponentLogger(logger, "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", srv.handleJobs)
	mux.HandleFunc("/api/jobs/", srv.handleJob)
	mux.HandleFunc("/api/health", srv.handleHealth)
	mux.HandleFunc("/api/config", srv.handleConfig)
	srv.mux = mux

	// No WriteTimeout: event streams hold the response open for the
	// lifetime of a job.
	srv.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

// Handler exposes the route table for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start begins serving on the configured bind address. The server
// shuts down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

// Addr returns the bound address after Start, or empty.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting briefly for in-flight requests.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("write response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
