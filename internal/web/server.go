package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"cc_session_mgr/internal/logging"
	"cc_session_mgr/internal/session"
)

var webLog = logging.ForComponent(logging.CompHTTP)

// Store is the read side of the session index used by the HTTP API.
type Store interface {
	ListProjects() []session.Project
	ListSessions(projectID string, limit int) []session.SessionSummary
	GetSession(project, sessionID string) (*session.SessionDetail, bool)
	Stats() *session.Stats
	HistoryCommands(limit int) []session.Command
	SearchAll(query string, limit int) []session.SearchResult
	Subscribe() (<-chan session.Event, func())
}

// Config defines runtime options for the web server.
type Config struct {
	ListenAddr  string
	AllowOrigin string

	// Default page sizes when a request omits limit
	SessionsLimit int
	HistoryLimit  int
	SearchLimit   int

	// EventInterval is the minimum spacing between pushed change events
	EventInterval time.Duration
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = "127.0.0.1:3001"
	}
	if c.SessionsLimit <= 0 {
		c.SessionsLimit = 50
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 100
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = 20
	}
	if c.EventInterval <= 0 {
		c.EventInterval = 250 * time.Millisecond
	}
}

// Server serves the session API over HTTP.
type Server struct {
	cfg        Config
	store      Store
	httpServer *http.Server
	baseCtx    context.Context
	cancelBase context.CancelFunc
}

// NewServer creates a web server with its routes and middleware.
func NewServer(cfg Config, store Store) *Server {
	cfg.applyDefaults()

	s := &Server{
		cfg:   cfg,
		store: store,
	}
	s.baseCtx, s.cancelBase = context.WithCancel(context.Background())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/projects", s.handleProjects)
	mux.HandleFunc("GET /api/sessions", s.handleSessions)
	mux.HandleFunc("GET /api/sessions/{project}/{sessionId}", s.handleSession)
	mux.HandleFunc("GET /api/stats", s.handleStats)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/events", s.handleEvents)

	handler := withRecover(withCORS(cfg.AllowOrigin, mux))

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		BaseContext:       func(_ net.Listener) context.Context { return s.baseCtx },
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the configured HTTP handler (used by tests).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server and blocks until shutdown or error.
// Returns nil on graceful shutdown.
func (s *Server) Start() error {
	webLog.Info("http_listening", slog.String("addr", s.cfg.ListenAddr))
	err := s.httpServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen %s: %w", s.cfg.ListenAddr, err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	// Ends long-lived websocket handlers.
	s.cancelBase()

	err := s.httpServer.Shutdown(ctx)
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		if closeErr := s.httpServer.Close(); closeErr != nil {
			return fmt.Errorf("graceful shutdown timed out and force close failed: %w", closeErr)
		}
		return nil
	}

	return err
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				webLog.Error("panic",
					slog.String("recover", fmt.Sprintf("%v", rec)),
					slog.String("path", r.URL.Path))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func withCORS(origin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Headers", "Origin, X-Requested-With, Content-Type, Accept")
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) String() string {
	return fmt.Sprintf("web-server(addr=%s)", s.cfg.ListenAddr)
}
