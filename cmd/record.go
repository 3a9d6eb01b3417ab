package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/duocap/duocap/internal/capture"
	"github.com/duocap/duocap/internal/record"
	"github.com/duocap/duocap/internal/service"

	"github.com/spf13/cobra"
)

var recordDuration time.Duration

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record microphone and system audio in segments",
	Long: `Record microphone input and system audio until interrupted.
The recording is split into fixed-length segments; every segment produces
an input file and an output file. Press Ctrl+C to stop and print the
session report.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		provider := newProvider()
		if !provider.Available() {
			return fmt.Errorf("ffmpeg not found (looked for %q); install it or set capture.ffmpeg_path", cfg.Capture.FFmpegPath)
		}

		svc := service.New(cfg, provider)
		ctx := context.Background()

		result, err := svc.StartRecording(ctx)
		if err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}

		slog.Info("Recording started - press Ctrl+C to stop",
			"session_id", result.SessionID,
			"segment_duration", cfg.Recording.SegmentDuration)

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		if recordDuration > 0 {
			select {
			case <-sigChan:
			case <-time.After(recordDuration):
				slog.Info("Requested duration elapsed, stopping")
			}
		} else {
			<-sigChan
		}
		slog.Info("Stopping recording...")

		// A rotation may be mid-flight when the signal arrives; stop fails
		// fast in that case, so retry briefly instead of bailing out.
		var report *record.Report
		for attempt := 0; ; attempt++ {
			report, err = svc.StopRecording(ctx)
			if errors.Is(err, record.ErrOperationInProgress) && attempt < 20 {
				time.Sleep(250 * time.Millisecond)
				continue
			}
			break
		}
		if err != nil {
			if errors.Is(err, record.ErrNotRecording) {
				// The session already safety-stopped itself, e.g. after a
				// failed rotation. Nothing to report.
				return fmt.Errorf("recording had already stopped: %s", svc.GetLastError())
			}
			return fmt.Errorf("failed to stop recording: %w", err)
		}

		printReport(report)
		return nil
	},
}

// newProvider builds the ffmpeg capture provider from the loaded config.
func newProvider() *capture.FFmpegProvider {
	return &capture.FFmpegProvider{
		FFmpegPath:   cfg.Capture.FFmpegPath,
		InputDevice:  cfg.Capture.InputDevice,
		OutputDevice: cfg.Capture.OutputDevice,
		SampleRate:   cfg.Audio.SampleRate,
		Channels:     cfg.Audio.Channels,
	}
}

func printReport(report *record.Report) {
	fmt.Printf("Session %s: %d segment(s), %.1fs recorded\n",
		report.SessionID, report.TotalSegments, report.TotalDuration)
	fmt.Printf("  input:  %s total\n", formatBytes(report.TotalInputSize))
	fmt.Printf("  output: %s total\n", formatBytes(report.TotalOutputSize))
	for _, seg := range report.Segments {
		marker := ""
		if !seg.HasOutputAudio {
			marker = " (no system audio)"
		}
		fmt.Printf("  %s  %.1fs  %s / %s%s\n",
			seg.SegmentID, seg.Duration,
			formatBytes(seg.InputSize), formatBytes(seg.OutputSize), marker)
	}
}

func init() {
	recordCmd.Flags().DurationVarP(&recordDuration, "duration", "d", 0, "stop automatically after this duration (0 = until interrupted)")
}
