// Package api exposes scan sessions and user history over HTTP.
package api

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/Veraticus/ecolens/internal/camera"
	"github.com/Veraticus/ecolens/internal/service"
	"github.com/Veraticus/ecolens/internal/session"
)

// DefaultMaxFrameBytes caps an uploaded frame.
const DefaultMaxFrameBytes = 10 << 20

// SessionFactory builds a session for userID that captures from cam.
type SessionFactory func(userID string, cam camera.Source) (*session.Session, error)

type entry struct {
	session *session.Session
	slot    *camera.Slot
}

// Server owns the sessions created through the API.
type Server struct {
	factory       SessionFactory
	history       service.HistoryReader
	logger        *slog.Logger
	sessions      map[string]*entry
	maxFrameBytes int64
	mu            sync.RWMutex
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxFrameBytes overrides DefaultMaxFrameBytes.
func WithMaxFrameBytes(n int64) Option {
	return func(s *Server) {
		s.maxFrameBytes = n
	}
}

// NewServer creates a server. history may be nil, in which case the user
// endpoints answer 404.
func NewServer(factory SessionFactory, history service.HistoryReader, opts ...Option) *Server {
	s := &Server{
		factory:       factory,
		history:       history,
		logger:        slog.Default(),
		sessions:      make(map[string]*entry),
		maxFrameBytes: DefaultMaxFrameBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/sessions", s.handleCreateSession).Methods(http.MethodPost)
	r.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods(http.MethodDelete)
	r.HandleFunc("/sessions/{id}/frame", s.handlePutFrame).Methods(http.MethodPut)
	r.HandleFunc("/sessions/{id}/scan", s.handleScan).Methods(http.MethodPost)

	r.HandleFunc("/users/{id}/scans", s.handleUserScans).Methods(http.MethodGet)
	r.HandleFunc("/users/{id}/profile", s.handleUserProfile).Methods(http.MethodGet)

	r.Use(s.logRequests)
	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

// Close tears down every session the server created.
func (s *Server) Close() error {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*entry)
	s.mu.Unlock()

	for id, e := range sessions {
		if err := e.session.Close(); err != nil {
			s.logger.Warn("failed to close session", "session_id", id, "error", err)
		}
	}
	return nil
}
