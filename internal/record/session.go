// Package record implements the segmented dual-stream recording session:
// the state machine owning session and segment lifecycle, timer-driven
// segment rotation, the degrade-on-output-failure capture policy and the
// serializable aggregate report.
package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/duocap/duocap/internal/capture"
	"github.com/duocap/duocap/internal/config"
)

// State is the externally visible session state.
type State string

const (
	// StateIdle is the initial and terminal state.
	StateIdle State = "IDLE"
	// StateRecording means a segment is open and the rotation timer is armed.
	StateRecording State = "RECORDING"
	// StateStopping is the transient state guarding stop re-entrancy.
	StateStopping State = "STOPPING"
)

var (
	// ErrAlreadyRecording is returned by Start on a session that is already
	// recording; the running session is left untouched.
	ErrAlreadyRecording = errors.New("recording already in progress")
	// ErrNotRecording is returned by Stop on a session that is not
	// recording. This is an expected caller query pattern, not a fault.
	ErrNotRecording = errors.New("no recording in progress")
	// ErrOperationInProgress is returned when a call lands while another
	// state transition is still in flight. Calls fail fast, they never queue.
	ErrOperationInProgress = errors.New("operation in progress")
	// ErrNoCaptureContext is returned by Start before a capture provider has
	// been attached with SetCaptureContext.
	ErrNoCaptureContext = errors.New("no capture context set")
)

// Status is a plain snapshot of the session for status queries.
type Status struct {
	IsRecording  bool   `json:"is_recording"`
	SessionID    string `json:"session_id,omitempty"`
	SegmentCount int    `json:"segment_count"`
}

// StartResult is the serializable result of a successful Start.
type StartResult struct {
	SessionID string `json:"session_id"`
}

// activeSegment pairs the record of the currently open segment with its live
// capture handles. Handles live here only while the segment is open; they
// are discarded at close and never serialized.
type activeSegment struct {
	record  SegmentRecord
	handles *SegmentHandles
}

// Session is the top-level recording state machine. All methods are safe for
// concurrent use; a call arriving while a transition is in flight fails fast
// with ErrOperationInProgress instead of queueing.
type Session struct {
	cfg       *config.Config
	scheduler *Scheduler

	mu          sync.Mutex
	state       State
	busy        bool
	epoch       uint64
	provider    capture.Provider
	coordinator *Coordinator
	sessionID   string
	nextIndex   int
	segments    []SegmentRecord
	active      *activeSegment
}

// New creates an idle session for the given configuration.
func New(cfg *config.Config) *Session {
	return &Session{
		cfg:       cfg,
		scheduler: NewScheduler(cfg.Recording.SegmentDuration),
		state:     StateIdle,
	}
}

// SetCaptureContext attaches the capture provider. Must be called before
// Start; Start fails with ErrNoCaptureContext otherwise.
func (s *Session) SetCaptureContext(provider capture.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provider = provider
	if provider != nil {
		s.coordinator = NewCoordinator(provider, s.cfg.Audio.SampleRate, s.cfg.Audio.Channels)
	} else {
		s.coordinator = nil
	}
}

// Start begins a new recording session: generates the session identity,
// opens segment 0 and arms the rotation timer. On any failure the session
// cleans up back to Idle and surfaces the triggering error.
func (s *Session) Start(ctx context.Context) (*StartResult, error) {
	s.mu.Lock()
	if s.busy || s.state == StateStopping {
		s.mu.Unlock()
		return nil, ErrOperationInProgress
	}
	if s.state == StateRecording {
		s.mu.Unlock()
		return nil, ErrAlreadyRecording
	}
	if s.provider == nil {
		s.mu.Unlock()
		return nil, ErrNoCaptureContext
	}

	sessionID := uuid.NewString()
	coordinator := s.coordinator
	epoch := s.epoch
	s.busy = true
	s.sessionID = sessionID
	s.nextIndex = 0
	s.segments = nil
	s.mu.Unlock()

	slog.Info("Starting recording session", "session_id", sessionID)

	if err := os.MkdirAll(s.cfg.Output.Directory, 0755); err != nil {
		s.abandonStart(epoch)
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	active, err := s.openSegment(ctx, coordinator, sessionID, 0)
	if err != nil {
		s.abandonStart(epoch)
		return nil, err
	}

	s.mu.Lock()
	if s.epoch != epoch {
		// Reset ran underneath us; do not resurrect the session.
		s.mu.Unlock()
		coordinator.CloseSegment(ctx, active.handles)
		return nil, ErrOperationInProgress
	}
	s.state = StateRecording
	s.active = active
	s.nextIndex = 1
	s.busy = false
	s.mu.Unlock()

	s.scheduler.Arm(s.onRotationTimer)

	slog.Info("Recording session started", "session_id", sessionID,
		"segment", active.record.SegmentID, "has_output_audio", active.record.HasOutputAudio)

	return &StartResult{SessionID: sessionID}, nil
}

// abandonStart rolls a failed Start back to Idle.
func (s *Session) abandonStart(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		return
	}
	s.state = StateIdle
	s.sessionID = ""
	s.segments = nil
	s.nextIndex = 0
	s.active = nil
	s.busy = false
}

// Stop ends the session: cancels the rotation timer, closes and finalizes
// the active segment and returns the aggregate report. Stopping a session
// that is not recording returns ErrNotRecording without mutating state.
func (s *Session) Stop(ctx context.Context) (*Report, error) {
	s.mu.Lock()
	if s.busy || s.state == StateStopping {
		s.mu.Unlock()
		return nil, ErrOperationInProgress
	}
	if s.state != StateRecording {
		s.mu.Unlock()
		return nil, ErrNotRecording
	}

	s.state = StateStopping
	s.busy = true
	epoch := s.epoch
	sessionID := s.sessionID
	coordinator := s.coordinator
	active := s.active
	s.active = nil
	s.mu.Unlock()

	// Cancel before touching segment state so the rotation path cannot
	// close the same segment.
	s.scheduler.Cancel()

	slog.Info("Stopping recording session", "session_id", sessionID)

	var finalized *SegmentRecord
	if active != nil {
		rec := s.closeAndFinalize(ctx, coordinator, active)
		finalized = &rec
	}

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		slog.Warn("Session was reset during stop", "session_id", sessionID)
		return nil, ErrNotRecording
	}
	if finalized != nil {
		s.segments = append(s.segments, *finalized)
	}
	segments := make([]SegmentRecord, len(s.segments))
	copy(segments, s.segments)
	s.state = StateIdle
	s.sessionID = ""
	s.segments = nil
	s.nextIndex = 0
	s.busy = false
	s.mu.Unlock()

	report := buildReport(sessionID, segments)
	if err := verifySerializable(report); err != nil {
		return nil, err
	}

	slog.Info("Recording session stopped", "session_id", sessionID,
		"segments", report.TotalSegments,
		"total_input_size", report.TotalInputSize,
		"total_output_size", report.TotalOutputSize)

	return report, nil
}

// Reset forces the session back to a clean Idle state from anywhere. It is
// the recovery path after an unrecoverable error and never fails; teardown
// problems are logged, not returned.
func (s *Session) Reset(ctx context.Context) {
	s.mu.Lock()
	s.epoch++
	coordinator := s.coordinator
	active := s.active
	wasRecording := s.state != StateIdle || s.busy
	s.state = StateIdle
	s.sessionID = ""
	s.segments = nil
	s.nextIndex = 0
	s.active = nil
	s.busy = false
	s.mu.Unlock()

	s.scheduler.Cancel()

	if active != nil && coordinator != nil {
		coordinator.CloseSegment(ctx, active.handles)
	}

	if wasRecording {
		slog.Info("Session reset to idle")
	} else {
		slog.Debug("Session reset (already idle)")
	}
}

// Status returns a plain snapshot of the session.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(s.segments)
	if s.active != nil {
		count++
	}
	return Status{
		IsRecording:  s.state == StateRecording,
		SessionID:    s.sessionID,
		SegmentCount: count,
	}
}

// onRotationTimer runs on timer expiry: close the current segment, finalize
// its record, open the next one and re-arm. If the session left Recording
// between arming and expiry (a concurrent Stop or Reset), it does nothing —
// a segment must never be created after the session believes it is stopped.
func (s *Session) onRotationTimer() {
	ctx := context.Background()

	s.mu.Lock()
	if s.state != StateRecording || s.busy {
		s.mu.Unlock()
		slog.Debug("Rotation timer fired on non-recording session, ignoring")
		return
	}
	s.busy = true
	epoch := s.epoch
	sessionID := s.sessionID
	coordinator := s.coordinator
	active := s.active
	index := s.nextIndex
	s.active = nil
	s.mu.Unlock()

	slog.Debug("Rotating segment", "session_id", sessionID, "next_index", index)

	finalized := s.closeAndFinalize(ctx, coordinator, active)

	next, err := s.openSegment(ctx, coordinator, sessionID, index)

	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		if next != nil {
			coordinator.CloseSegment(ctx, next.handles)
		}
		slog.Warn("Session was reset during rotation", "session_id", sessionID)
		return
	}
	s.segments = append(s.segments, finalized)
	if err != nil {
		// Unrecoverable: cannot open the next segment. Safety-stop so a
		// future Start is not permanently refused.
		s.state = StateIdle
		s.sessionID = ""
		s.segments = nil
		s.nextIndex = 0
		s.busy = false
		s.mu.Unlock()
		s.scheduler.Cancel()
		slog.Error("Segment rotation failed, session stopped",
			"session_id", sessionID, "error", err)
		return
	}
	s.active = next
	s.nextIndex = index + 1
	s.busy = false
	s.mu.Unlock()

	s.scheduler.Arm(s.onRotationTimer)

	slog.Info("Segment rotated", "session_id", sessionID,
		"closed", finalized.SegmentID, "opened", next.record.SegmentID)
}

// openSegment creates the record for one segment and opens its captures.
func (s *Session) openSegment(ctx context.Context, coordinator *Coordinator, sessionID string, index int) (*activeSegment, error) {
	segID := SegmentID(sessionID, index)
	inputPath, outputPath := SegmentPaths(s.cfg.Output.Directory, segID, s.cfg.Recording.Format)

	handles, err := coordinator.OpenSegment(ctx, segID, inputPath, outputPath)
	if err != nil {
		return nil, err
	}

	return &activeSegment{
		record: SegmentRecord{
			SegmentID:      segID,
			InputFile:      inputPath,
			OutputFile:     outputPath,
			StartTime:      time.Now(),
			HasOutputAudio: handles.HasOutputAudio,
		},
		handles: handles,
	}, nil
}

// closeAndFinalize closes a segment's captures, waits out the settle delay
// and fills in the record's end time, duration and on-disk sizes. The settle
// delay exists because the encoder may finish writing asynchronously after
// stop resolves; sizes read earlier would undercount.
func (s *Session) closeAndFinalize(ctx context.Context, coordinator *Coordinator, active *activeSegment) SegmentRecord {
	rec := active.record
	rec.EndTime = time.Now()
	rec.Duration = rec.EndTime.Sub(rec.StartTime).Seconds()

	coordinator.CloseSegment(ctx, active.handles)
	active.handles = nil

	if delay := s.cfg.Recording.SettleDelay; delay > 0 {
		time.Sleep(delay)
	}

	rec.InputSize = fileSize(rec.InputFile)
	rec.OutputSize = fileSize(rec.OutputFile)

	slog.Debug("Segment finalized", "segment", rec.SegmentID,
		"duration_seconds", rec.Duration,
		"input_size", rec.InputSize, "output_size", rec.OutputSize,
		"has_output_audio", rec.HasOutputAudio)

	return rec
}

// fileSize returns the size of a file, or 0 if it cannot be stat'd.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		slog.Warn("Failed to stat segment file", "path", path, "error", err)
		return 0
	}
	return info.Size()
}
