// Package httpapi exposes the ingestion and status endpoints.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"relaybot/internal/ingest"
	logx "relaybot/pkg/logx"
)

type Config struct {
	Addr       string
	RatePerMin int
	Version    string
}

type Server struct {
	cfg    Config
	log    logx.Logger
	ingest *ingest.Service

	mu   sync.Mutex
	srv  *http.Server
	ln   net.Listener
	addr string
}

func New(cfg Config, svc *ingest.Service, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{cfg: cfg, log: log.With(logx.String("comp", "httpapi")), ingest: svc}
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	if s.cfg.RatePerMin > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RatePerMin, time.Minute))
	}
	r.Post("/api/events", s.handleIngest)
	r.Get("/api/status", s.handleStatus)
	return r
}

// Start binds the listener and serves in the background.
// A bind failure is returned to the caller (fatal at startup).
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	s.srv = srv
	s.ln = ln
	s.addr = ln.Addr().String()

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("server error", logx.String("addr", s.addr), logx.Err(err))
		}
	}()
	s.log.Info("listening", logx.String("addr", s.addr))
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	ln := s.ln
	addr := s.addr
	s.srv = nil
	s.ln = nil
	s.addr = ""
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Warn("shutdown error", logx.String("addr", addr), logx.Err(err))
		if ln != nil {
			_ = ln.Close()
		}
		return err
	}
	s.log.Info("stopped", logx.String("addr", addr))
	return nil
}

// Addr reports the actual listen address if running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}
