// Package http serves jarvis over HTTP: a websocket per client session, a
// synchronous JSON API and the capability configuration surface.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/aretw0/jarvis"
	"github.com/aretw0/jarvis/pkg/bridge"
	"github.com/aretw0/jarvis/pkg/capabilities"
	"github.com/aretw0/jarvis/pkg/graph"
	"github.com/aretw0/jarvis/pkg/ports"
	"github.com/aretw0/jarvis/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// ToolConfig is the persisted capability enable map.
type ToolConfig interface {
	Snapshot() map[string]bool
	SetBulk(changes map[string]bool) error
}

// Server holds what the handlers share.
type Server struct {
	ctrl     *session.Controller
	hub      *bridge.Hub
	graph    *graph.Graph
	tools    ToolConfig
	profiles ports.ProfileStore
	speaker  ports.Speaker
	metrics  http.Handler
	user     string
	origins  []string
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithHub shares a hub with other components. By default the server creates its own.
func WithHub(h *bridge.Hub) Option {
	return func(s *Server) {
		s.hub = h
	}
}

// WithGraph enables GET /api/graph.
func WithGraph(g *graph.Graph) Option {
	return func(s *Server) {
		s.graph = g
	}
}

// WithToolConfig enables the /api/tool-config endpoints.
func WithToolConfig(tc ToolConfig) Option {
	return func(s *Server) {
		s.tools = tc
	}
}

// WithProfiles enables GET /api/core-memory.
func WithProfiles(p ports.ProfileStore) Option {
	return func(s *Server) {
		s.profiles = p
	}
}

// WithSpeaker enables POST /api/tts.
func WithSpeaker(sp ports.Speaker) Option {
	return func(s *Server) {
		s.speaker = sp
	}
}

// WithMetrics mounts h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// WithUser sets the user capabilities act for.
func WithUser(id string) Option {
	return func(s *Server) {
		s.user = id
	}
}

// WithAllowedOrigins restricts CORS and websocket origins. "*" allows any.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		s.origins = origins
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a server around ctrl.
func NewServer(ctrl *session.Controller, opts ...Option) *Server {
	s := &Server{
		ctrl:    ctrl,
		user:    capabilities.DefaultUser,
		origins: []string{"*"},
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.hub == nil {
		s.hub = bridge.NewHub(bridge.WithLogger(s.logger))
	}
	return s
}

// Hub returns the live session registry.
func (s *Server) Hub() *bridge.Hub {
	return s.hub
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/", s.getRoot)
	r.Get("/health", s.getHealth)
	r.Get("/info", s.getInfo)
	r.Get("/ws/{session_id}", s.serveWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.requestLogger)
		r.Post("/threads/{thread_id}/messages", s.postMessage)
		r.Post("/threads/{thread_id}/resume", s.postResume)
		r.Get("/threads/{thread_id}", s.getThread)
		r.Get("/graph", s.getGraph)
		r.Get("/tool-config", s.getToolConfig)
		r.Post("/tool-config", s.postToolConfig)
		r.Post("/tool-config/bulk", s.postToolConfigBulk)
		r.Get("/core-memory", s.getCoreMemory)
		r.Post("/tts", s.postTTS)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics)
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully and stops every live session.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	defer s.hub.Shutdown()

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("Shutting down HTTP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) allowAnyOrigin() bool {
	return len(s.origins) == 0 || slices.Contains(s.origins, "*")
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case s.allowAnyOrigin():
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.origins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.DebugContext(r.Context(), "HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) getRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Jarvis Personal Assistant API", "status": "running"})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) getInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":           "jarvis-http",
		"version":       strings.TrimSpace(jarvis.Version),
		"live_sessions": s.hub.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Response encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}
