// Package server exposes the recording service as a JSON HTTP API. This is
// the process boundary: everything written to the wire is plain data from
// the record package's serializable types.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/duocap/duocap/internal/record"
	"github.com/duocap/duocap/internal/service"
)

// Server is the HTTP control server for DuoCap.
type Server struct {
	service service.Service
	port    string
}

// StatusResponse is the JSON body of the status endpoint.
type StatusResponse struct {
	Status    string        `json:"status"`
	Session   record.Status `json:"session"`
	LastError string        `json:"last_error,omitempty"`
}

// StartResponse is the JSON body of a successful start.
type StartResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id"`
}

// ErrorResponse is the JSON body of a failed operation.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// SegmentsResponse lists the segment records of the last completed session.
type SegmentsResponse struct {
	SessionID string                 `json:"session_id,omitempty"`
	Segments  []record.SegmentRecord `json:"segments"`
}

// New creates a server around svc listening on the given port.
func New(svc service.Service, port string) *Server {
	return &Server{service: svc, port: port}
}

// Start runs the HTTP server. Blocks until the listener fails.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	s.registerRoutes(mux)

	addr := fmt.Sprintf(":%s", s.port)
	slog.Info("Control server listening", "addr", addr)
	return http.ListenAndServe(addr, mux)
}

// Handler returns the route handler; split out so tests can drive it with
// httptest instead of a real listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return mux
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("POST /api/record/start", s.handleStart)
	mux.HandleFunc("POST /api/record/stop", s.handleStop)
	mux.HandleFunc("POST /api/record/reset", s.handleReset)
	mux.HandleFunc("GET /api/segments", s.handleSegments)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.service.GetStatus()

	state := "idle"
	if status.IsRecording {
		state = "recording"
	}

	writeJSON(w, http.StatusOK, StatusResponse{
		Status:    state,
		Session:   status,
		LastError: s.service.GetLastError(),
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.StartRecording(r.Context())
	if err != nil {
		writeJSON(w, startErrorCode(err), ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, StartResponse{Success: true, SessionID: result.SessionID})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	report, err := s.service.StopRecording(r.Context())
	if err != nil {
		// Not recording is an expected query result, not a server fault.
		if errors.Is(err, record.ErrNotRecording) {
			writeJSON(w, http.StatusOK, ErrorResponse{Error: err.Error()})
			return
		}
		code := http.StatusInternalServerError
		if errors.Is(err, record.ErrOperationInProgress) {
			code = http.StatusConflict
		}
		writeJSON(w, code, ErrorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.service.ResetRecording(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	resp := SegmentsResponse{Segments: []record.SegmentRecord{}}
	if report := s.service.GetLastReport(); report != nil {
		resp.SessionID = report.SessionID
		resp.Segments = report.Segments
	}
	writeJSON(w, http.StatusOK, resp)
}

// startErrorCode maps start failures onto HTTP status codes.
func startErrorCode(err error) int {
	switch {
	case errors.Is(err, record.ErrAlreadyRecording),
		errors.Is(err, record.ErrOperationInProgress):
		return http.StatusConflict
	case errors.Is(err, record.ErrNoCaptureContext):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
