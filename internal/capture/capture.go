// Package capture defines the provider contract for opening live audio
// streams, and ships an ffmpeg-backed implementation of it.
package capture

import "context"

// Kind identifies which of the two session streams a capture belongs to.
type Kind string

const (
	// KindInput is the local input (microphone) stream. Mandatory.
	KindInput Kind = "input"
	// KindOutput is the environment/system audio stream. Best-effort.
	KindOutput Kind = "output"
)

// Handle is one open stream. Stop flushes and closes the underlying stream
// and returns once the encoded file is finalized on disk. A handle must be
// stopped exactly once and never reused.
type Handle interface {
	Stop(ctx context.Context) error
}

// Provider opens capture streams that encode to targetPath.
//
// A (nil, nil) return means the source is structurally unavailable (no
// permission, no compatible device). Callers must treat that as a
// degraded-but-successful outcome, not a failure.
type Provider interface {
	Start(ctx context.Context, kind Kind, targetPath string) (Handle, error)
}
