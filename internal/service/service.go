// Package service wraps the recording session behind the facade shared by
// the CLI commands and the HTTP control server.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/duocap/duocap/internal/capture"
	"github.com/duocap/duocap/internal/config"
	"github.com/duocap/duocap/internal/record"
)

// Service is the control surface over one recording session.
type Service interface {
	StartRecording(ctx context.Context) (*record.StartResult, error)
	StopRecording(ctx context.Context) (*record.Report, error)
	ResetRecording(ctx context.Context)
	GetStatus() record.Status

	GetLastReport() *record.Report
	GetLastError() string
	GetConfig() *config.Config
}

// DuoCapService is the main service implementation.
type DuoCapService struct {
	cfg     *config.Config
	session *record.Session

	// Last stopped session's report, kept for the segments endpoint.
	reportMutex sync.RWMutex
	lastReport  *record.Report

	// Error tracking
	lastError      string
	lastErrorMutex sync.RWMutex
}

// New creates a service around a session wired to the given capture provider.
func New(cfg *config.Config, provider capture.Provider) *DuoCapService {
	session := record.New(cfg)
	session.SetCaptureContext(provider)

	return &DuoCapService{
		cfg:     cfg,
		session: session,
	}
}

// StartRecording begins a new segmented recording session.
func (s *DuoCapService) StartRecording(ctx context.Context) (*record.StartResult, error) {
	s.clearLastError()
	result, err := s.session.Start(ctx)
	if err != nil {
		slog.Error("Service.StartRecording failed", "error", err)
		s.setLastError(fmt.Sprintf("Failed to start recording: %v", err))
		return nil, err
	}
	return result, nil
}

// StopRecording ends the session and returns the aggregate report.
func (s *DuoCapService) StopRecording(ctx context.Context) (*record.Report, error) {
	report, err := s.session.Stop(ctx)
	if err != nil {
		s.setLastError(fmt.Sprintf("Failed to stop recording: %v", err))
		return nil, err
	}
	s.clearLastError()

	s.reportMutex.Lock()
	s.lastReport = report
	s.reportMutex.Unlock()

	return report, nil
}

// ResetRecording forces the session back to idle. Never fails.
func (s *DuoCapService) ResetRecording(ctx context.Context) {
	s.session.Reset(ctx)
	s.clearLastError()
}

// GetStatus returns the current session status snapshot.
func (s *DuoCapService) GetStatus() record.Status {
	return s.session.Status()
}

// GetLastReport returns the report of the most recently stopped session, or
// nil if none completed yet.
func (s *DuoCapService) GetLastReport() *record.Report {
	s.reportMutex.RLock()
	defer s.reportMutex.RUnlock()
	return s.lastReport
}

// GetConfig returns the active configuration.
func (s *DuoCapService) GetConfig() *config.Config {
	return s.cfg
}

// GetLastError returns the last error message (thread-safe).
func (s *DuoCapService) GetLastError() string {
	s.lastErrorMutex.RLock()
	defer s.lastErrorMutex.RUnlock()
	return s.lastError
}

func (s *DuoCapService) setLastError(err string) {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = err

	slog.Error("Service error occurred", "error_message", err)
}

func (s *DuoCapService) clearLastError() {
	s.lastErrorMutex.Lock()
	defer s.lastErrorMutex.Unlock()
	s.lastError = ""
}
