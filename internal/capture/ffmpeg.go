package capture

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// stopTimeout bounds how long Stop waits for ffmpeg to exit after SIGINT
// before falling back to SIGKILL.
const stopTimeout = 5 * time.Second

// FFmpegProvider captures audio by spawning one ffmpeg process per stream.
// The input stream records from InputDevice; the output stream records from
// OutputDevice (typically a monitor/loopback source). An empty OutputDevice
// means the system has no loopback source, which is reported as structurally
// unavailable rather than as an error.
type FFmpegProvider struct {
	FFmpegPath   string
	InputDevice  string
	OutputDevice string
	SampleRate   int
	Channels     int
}

// Available reports whether the ffmpeg binary can be found. Callers use this
// as the provider-ready signal before wiring the provider into a session.
func (p *FFmpegProvider) Available() bool {
	path := p.FFmpegPath
	if path == "" {
		path = "ffmpeg"
	}
	_, err := exec.LookPath(path)
	return err == nil
}

// Start spawns an ffmpeg process encoding the requested stream to targetPath.
func (p *FFmpegProvider) Start(ctx context.Context, kind Kind, targetPath string) (Handle, error) {
	device := p.InputDevice
	if kind == KindOutput {
		device = p.OutputDevice
		if device == "" {
			slog.Debug("No output device configured, output capture unavailable")
			return nil, nil
		}
	}
	if device == "" {
		return nil, fmt.Errorf("no input device configured")
	}

	ffmpeg := p.FFmpegPath
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}

	args := []string{
		"-f", "pulse",
		"-i", device,
		"-ar", fmt.Sprintf("%d", p.SampleRate),
		"-ac", fmt.Sprintf("%d", p.Channels),
		"-y",
		targetPath,
	}

	slog.Debug("Starting ffmpeg capture", "kind", kind, "device", device, "target", targetPath)

	cmd := exec.Command(ffmpeg, args...)

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg for %s capture: %w", kind, err)
	}

	h := &ffmpegHandle{cmd: cmd, kind: kind}
	go h.readOutput(stderr)

	return h, nil
}

// ffmpegHandle wraps one running ffmpeg process.
type ffmpegHandle struct {
	cmd       *exec.Cmd
	kind      Kind
	stderrBuf strings.Builder
	bufMu     sync.Mutex
	stopOnce  sync.Once
	stopErr   error
}

// readOutput drains the stderr pipe so ffmpeg never blocks on a full buffer.
func (h *ffmpegHandle) readOutput(pipe io.ReadCloser) {
	scanner := bufio.NewScanner(pipe)
	for scanner.Scan() {
		line := scanner.Text()
		h.bufMu.Lock()
		h.stderrBuf.WriteString(line + "\n")
		h.bufMu.Unlock()
		slog.Debug("ffmpeg output", "kind", h.kind, "line", line)
	}
	pipe.Close()
}

// Stop interrupts ffmpeg and waits for it to flush and exit. ffmpeg finalizes
// the container on SIGINT, so a clean interrupt produces a complete file.
func (h *ffmpegHandle) Stop(ctx context.Context) error {
	h.stopOnce.Do(func() {
		h.stopErr = h.stop(ctx)
	})
	return h.stopErr
}

func (h *ffmpegHandle) stop(ctx context.Context) error {
	if h.cmd == nil || h.cmd.Process == nil {
		return nil
	}

	slog.Debug("Sending SIGINT to ffmpeg", "kind", h.kind)
	if err := h.cmd.Process.Signal(os.Interrupt); err != nil {
		slog.Debug("Failed to interrupt ffmpeg, killing", "kind", h.kind, "error", err)
		h.cmd.Process.Kill()
	}

	done := make(chan error, 1)
	go func() {
		done <- h.cmd.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			if exitErr, ok := err.(*exec.ExitError); ok && interruptedExit(exitErr) {
				slog.Debug("ffmpeg exited after interrupt", "kind", h.kind)
				return nil
			}
			h.bufMu.Lock()
			tail := h.stderrBuf.String()
			h.bufMu.Unlock()
			slog.Debug("ffmpeg stderr", "kind", h.kind, "output", tail)
			return fmt.Errorf("ffmpeg %s capture failed: %w", h.kind, err)
		}
		return nil

	case <-time.After(stopTimeout):
		slog.Warn("ffmpeg did not exit within timeout, force killing", "kind", h.kind)
		h.cmd.Process.Kill()
		<-done
		return nil

	case <-ctx.Done():
		h.cmd.Process.Kill()
		<-done
		return ctx.Err()
	}
}

// interruptedExit reports whether the exit status is the expected result of
// stopping ffmpeg with a signal.
func interruptedExit(exitErr *exec.ExitError) bool {
	// Exit code 255 is ffmpeg's usual status after a graceful interrupt.
	if exitErr.ExitCode() == 255 {
		return true
	}
	if exitErr.ProcessState != nil {
		state := exitErr.ProcessState.String()
		if state == "signal: interrupt" || state == "signal: killed" {
			return true
		}
	}
	return false
}
