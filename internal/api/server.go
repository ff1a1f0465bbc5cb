// Package api exposes the recording session, the performance tracker and
// the vehicle snapshot over HTTP, plus a websocket stream of live updates.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"tune-dash.klederson.com/internal/bluetooth"
	"tune-dash.klederson.com/internal/config"
	"tune-dash.klederson.com/internal/export"
	"tune-dash.klederson.com/internal/perf"
	"tune-dash.klederson.com/internal/recorder"
	"tune-dash.klederson.com/internal/stats"
	"tune-dash.klederson.com/internal/telemetry"
	"tune-dash.klederson.com/internal/vehicle"
)

// Deps are the components served by the API. Link and Vehicle are optional.
type Deps struct {
	Source  telemetry.Source
	Session *recorder.Session
	Tracker *perf.Tracker
	Vehicle *vehicle.Manager
	Link    *bluetooth.Link
	Logger  *zap.Logger
}

// Server represents the API server
type Server struct {
	deps   Deps
	log    *zap.Logger
	router *mux.Router
	stream *Stream
}

// NewServer creates a new API server and subscribes its stream to the
// session and tracker. Close releases the subscriptions.
func NewServer(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		deps:   deps,
		log:    log,
		router: mux.NewRouter(),
		stream: NewStream(log),
	}
	s.stream.Attach(deps.Session, deps.Tracker)
	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	// Telemetry
	s.router.HandleFunc("/api/v1/reading", s.handleReading).Methods("GET")
	s.router.HandleFunc("/api/v1/link", s.handleLink).Methods("GET")

	// Recording session
	s.router.HandleFunc("/api/v1/session", s.handleSession).Methods("GET")
	s.router.HandleFunc("/api/v1/session/entries", s.handleEntries).Methods("GET")
	s.router.HandleFunc("/api/v1/session/summary", s.handleSummary).Methods("GET")
	s.router.HandleFunc("/api/v1/session/export", s.handleExport).Methods("GET")
	s.router.HandleFunc("/api/v1/session/start", s.handleSessionStart).Methods("POST")
	s.router.HandleFunc("/api/v1/session/stop", s.handleSessionStop).Methods("POST")
	s.router.HandleFunc("/api/v1/session/clear", s.handleSessionClear).Methods("POST")

	// Performance tests
	s.router.HandleFunc("/api/v1/perf", s.handlePerf).Methods("GET")
	s.router.HandleFunc("/api/v1/perf/start", s.handlePerfStart).Methods("POST")
	s.router.HandleFunc("/api/v1/perf/stop", s.handlePerfStop).Methods("POST")
	s.router.HandleFunc("/api/v1/perf/acceleration", s.handleAcceleration).Methods("GET")

	// Vehicle snapshot
	s.router.HandleFunc("/api/v1/vehicle", s.handleVehicle).Methods("GET")

	s.router.HandleFunc("/ws", s.stream.HandleWS).Methods("GET")

	s.router.Use(s.loggingMiddleware)
	s.router.Use(jsonMiddleware)
}

// Router returns the configured router
func (s *Server) Router() *mux.Router {
	return s.router
}

// Stream returns the websocket hub.
func (s *Server) Stream() *Stream {
	return s.stream
}

// Close detaches the stream and disconnects its clients.
func (s *Server) Close() {
	s.stream.Close()
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)),
		)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// Response helpers
type apiResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiResponse{Success: false, Error: message})
}

// Views

type sessionView struct {
	ID      string `json:"id"`
	Active  bool   `json:"active"`
	Count   int    `json:"count"`
	Skipped int64  `json:"skipped"`
}

type runView struct {
	Kind           perf.Kind `json:"kind"`
	Label          string    `json:"label"`
	StartTime      time.Time `json:"start_time"`
	StartSpeed     float64   `json:"start_speed_kmh"`
	EndSpeed       float64   `json:"end_speed_kmh"`
	CurrentSpeed   float64   `json:"current_speed_kmh"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
	Progress       float64   `json:"progress"`
	Active         bool      `json:"active"`
	Completed      bool      `json:"completed"`
}

func newRunView(r perf.Run) runView {
	return runView{
		Kind:           r.Kind,
		Label:          r.Kind.String(),
		StartTime:      r.StartTime,
		StartSpeed:     r.StartSpeed,
		EndSpeed:       r.EndSpeed,
		CurrentSpeed:   r.CurrentSpeed,
		ElapsedSeconds: r.ElapsedSeconds(),
		Progress:       r.Progress(),
		Active:         r.Active,
		Completed:      r.Completed(),
	}
}

func (s *Server) sessionView() sessionView {
	return sessionView{
		ID:      s.deps.Session.ID(),
		Active:  s.deps.Session.Active(),
		Count:   s.deps.Session.Len(),
		Skipped: s.deps.Session.Skipped(),
	}
}

// Handlers

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"version": config.AppVersion,
	})
}

func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Source.Sample())
}

func (s *Server) handleLink(w http.ResponseWriter, r *http.Request) {
	if s.deps.Link == nil {
		respondJSON(w, http.StatusOK, bluetooth.LinkStatus{})
		return
	}
	respondJSON(w, http.StatusOK, s.deps.Link.Status())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	entries := s.deps.Session.Entries()
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, stats.Summarize(s.deps.Session.Entries(), config.RedlineRPM))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := export.FormatCSV
	if v := q.Get("format"); v != "" {
		format = export.Format(v)
	}
	ch := telemetry.ChannelSpeed
	if v := q.Get("channel"); v != "" {
		var err error
		if ch, err = telemetry.ParseChannel(v); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	switch format {
	case export.FormatCSV:
		w.Header().Set("Content-Type", "text/csv")
	case export.FormatJSON:
	case export.FormatChart:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	default:
		respondError(w, http.StatusBadRequest, "unsupported format "+strconv.Quote(string(format)))
		return
	}
	w.Header().Set("Content-Disposition",
		`attachment; filename="`+export.DefaultName(time.Now(), format)+`"`)

	if err := export.Write(w, format, s.deps.Session.Entries(), ch); err != nil {
		s.log.Warn("export failed", zap.String("format", string(format)), zap.Error(err))
	}
}

func (s *Server) handleSessionStart(w http.ResponseWriter, r *http.Request) {
	s.deps.Session.Start()
	respondJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) handleSessionStop(w http.ResponseWriter, r *http.Request) {
	s.deps.Session.Stop()
	respondJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	s.deps.Session.Clear()
	respondJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) handlePerf(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, newRunView(s.deps.Tracker.Run()))
}

func (s *Server) handlePerfStart(w http.ResponseWriter, r *http.Request) {
	kind := perf.ZeroToHundred
	if v := r.URL.Query().Get("kind"); v != "" {
		var err error
		if kind, err = perf.ParseKind(v); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if err := s.deps.Tracker.StartTracking(kind); err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, newRunView(s.deps.Tracker.Run()))
}

func (s *Server) handlePerfStop(w http.ResponseWriter, r *http.Request) {
	s.deps.Tracker.StopTracking()
	respondJSON(w, http.StatusOK, newRunView(s.deps.Tracker.Run()))
}

func (s *Server) handleAcceleration(w http.ResponseWriter, r *http.Request) {
	run := s.deps.Tracker.Run()
	accel, err := run.AverageAcceleration()
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"kind":                 run.Kind,
		"elapsed_seconds":      run.ElapsedSeconds(),
		"average_acceleration": accel,
	})
}

func (s *Server) handleVehicle(w http.ResponseWriter, r *http.Request) {
	if s.deps.Vehicle == nil {
		respondError(w, http.StatusNotFound, "no vehicle manager")
		return
	}
	respondJSON(w, http.StatusOK, s.deps.Vehicle.Bundle())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, perf.ErrInvalidState),
		errors.Is(err, perf.ErrNoCompletedRun),
		errors.Is(err, perf.ErrDivisionUndefined):
		return http.StatusConflict
	case errors.Is(err, perf.ErrUnknownKind):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
