package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/duocap/duocap/internal/capture"
	"github.com/duocap/duocap/internal/wav"
)

// ErrInputCaptureFailed indicates the mandatory input (microphone) stream
// could not be opened. A session without an input stream is not meaningful,
// so this aborts the segment entirely.
var ErrInputCaptureFailed = errors.New("input capture failed")

// SegmentHandles holds the live capture resources of one open segment.
// Output is nil when the output source degraded; HasOutputAudio records
// whether real output audio is being captured rather than the placeholder.
type SegmentHandles struct {
	Input          capture.Handle
	Output         capture.Handle
	HasOutputAudio bool
}

// Coordinator opens and closes the two streams of one segment against a
// capture provider and enforces the degrade-on-output-failure policy:
// input is mandatory, output is best-effort.
type Coordinator struct {
	provider   capture.Provider
	sampleRate int
	channels   int
}

// NewCoordinator wraps provider with the session's audio parameters. The
// parameters are only used to build the placeholder file for degraded
// output captures.
func NewCoordinator(provider capture.Provider, sampleRate, channels int) *Coordinator {
	return &Coordinator{
		provider:   provider,
		sampleRate: sampleRate,
		channels:   channels,
	}
}

// OpenSegment starts the input and output captures for one segment.
//
// Input failure (error or nil handle) fails the whole operation with
// ErrInputCaptureFailed. Output failure is absorbed: the degradation is
// logged, HasOutputAudio is set false and a zero-payload placeholder is
// written to outputPath so the file pair always exists on disk.
func (c *Coordinator) OpenSegment(ctx context.Context, segmentID, inputPath, outputPath string) (*SegmentHandles, error) {
	inputHandle, err := c.provider.Start(ctx, capture.KindInput, inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInputCaptureFailed, segmentID, err)
	}
	if inputHandle == nil {
		return nil, fmt.Errorf("%w: %s: no input source available", ErrInputCaptureFailed, segmentID)
	}

	handles := &SegmentHandles{Input: inputHandle}

	outputHandle, err := c.provider.Start(ctx, capture.KindOutput, outputPath)
	if err != nil || outputHandle == nil {
		if err != nil {
			slog.Warn("Output capture unavailable, continuing without system audio",
				"segment", segmentID, "error", err)
		} else {
			slog.Info("Output capture unavailable, continuing without system audio",
				"segment", segmentID)
		}
		c.writeFallback(outputPath, segmentID)
	} else {
		handles.Output = outputHandle
		handles.HasOutputAudio = true
	}

	return handles, nil
}

// CloseSegment stops both streams, waiting for each flush to complete.
// Stop failures are logged and swallowed: close runs on the critical path of
// segment rotation and session stop, and an imperfectly flushed file is
// preferable to aborting the rotation and losing every later segment.
func (c *Coordinator) CloseSegment(ctx context.Context, handles *SegmentHandles) {
	if handles == nil {
		return
	}
	if handles.Input != nil {
		if err := handles.Input.Stop(ctx); err != nil {
			slog.Error("Failed to stop input capture", "error", err)
		}
	}
	if handles.Output != nil {
		if err := handles.Output.Stop(ctx); err != nil {
			slog.Error("Failed to stop output capture", "error", err)
		}
	}
}

// writeFallback writes the placeholder file for a degraded output capture.
// A write failure here is logged only; the degrade path never surfaces errors.
func (c *Coordinator) writeFallback(outputPath, segmentID string) {
	if err := wav.WriteEmpty(outputPath, c.sampleRate, c.channels); err != nil {
		slog.Error("Failed to write placeholder output file",
			"segment", segmentID, "path", outputPath, "error", err)
	}
}
