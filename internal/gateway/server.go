// Package gateway exposes the operator HTTP surface: status, mode list,
// rule table, recent events, manual switch, and config reload.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/vigil-agent/vigil/internal/events"
	"github.com/vigil-agent/vigil/internal/gateway/ws"
	"github.com/vigil-agent/vigil/internal/mode"
)

// ReloadFunc re-reads the config from disk and applies it to the manager.
type ReloadFunc func(ctx context.Context) error

// Server is the Vigil operator HTTP server.
type Server struct {
	httpServer *http.Server
	hub        *ws.Hub
	bus        *events.Bus
	manager    *mode.Manager
	reload     ReloadFunc
	host       string
	port       int
}

// NewServer creates a new gateway server.
func NewServer(bus *events.Bus, manager *mode.Manager, reload ReloadFunc, host string, port int) *Server {
	hub := ws.NewHub(bus, manager)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	s := &Server{
		hub:     hub,
		bus:     bus,
		manager: manager,
		reload:  reload,
		host:    host,
		port:    port,
	}

	// Routes
	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ws", hub.ServeWS)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/modes", s.handleModes)
	r.Get("/api/rules", s.handleRules)
	r.Get("/api/events", s.handleEvents)
	r.Post("/api/switch", s.handleSwitch)
	r.Post("/api/reload", s.handleReload)

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: r,
	}

	return s
}

// Handler returns the HTTP handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening. It blocks until the server is stopped.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	slog.Info("Vigil gateway listening", "addr", ln.Addr().String())
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusJSON is the wire shape of a status snapshot, with the time remaining
// computed at read time.
type statusJSON struct {
	CurrentMode      string  `json:"current_mode"`
	DisplayName      string  `json:"display_name"`
	PreviousMode     string  `json:"previous_mode,omitempty"`
	EnteredAt        string  `json:"entered_at"`
	IsTransitioning  bool    `json:"is_transitioning"`
	TimeoutSeconds   int     `json:"timeout_seconds,omitempty"`
	RemainingSeconds float64 `json:"remaining_seconds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st := s.manager.Status()
	remaining, _ := st.TimeRemaining(time.Now())

	writeJSON(w, http.StatusOK, statusJSON{
		CurrentMode:      st.CurrentMode,
		DisplayName:      st.DisplayName,
		PreviousMode:     st.PreviousMode,
		EnteredAt:        st.EnteredAt.Format(time.RFC3339Nano),
		IsTransitioning:  st.Transitioning,
		TimeoutSeconds:   st.TimeoutSeconds,
		RemainingSeconds: remaining.Seconds(),
	})
}

func (s *Server) handleModes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Modes())
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.manager.Rules())
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limitStr := r.URL.Query().Get("limit")
	limit := 50
	if limitStr != "" {
		fmt.Sscanf(limitStr, "%d", &limit)
	}

	history := s.bus.History(limit)
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) handleSwitch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := s.manager.RequestManualSwitch(r.Context(), req.Mode)
	if err != nil {
		http.Error(w, err.Error(), switchErrorStatus(err))
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if s.reload == nil {
		http.Error(w, "reload not configured", http.StatusNotImplemented)
		return
	}
	if err := s.reload(r.Context()); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, mode.ErrReloadConflict) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func switchErrorStatus(err error) int {
	switch {
	case errors.Is(err, mode.ErrTransitionInProgress):
		return http.StatusConflict
	case errors.Is(err, mode.ErrManualSwitchingDisabled):
		return http.StatusForbidden
	case errors.Is(err, mode.ErrInvalidTarget), errors.Is(err, mode.ErrUnknownMode):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
