package record

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duocap/duocap/internal/wav"
)

func segmentTestPaths(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "input_s_segment_000.wav"), filepath.Join(dir, "output_s_segment_000.wav")
}

func TestOpenSegment_BothStreams(t *testing.T) {
	provider := newFakeProvider()
	coord := NewCoordinator(provider, 44100, 1)
	inPath, outPath := segmentTestPaths(t)

	handles, err := coord.OpenSegment(context.Background(), "s_segment_000", inPath, outPath)
	require.NoError(t, err)
	require.NotNil(t, handles.Input)
	require.NotNil(t, handles.Output)
	assert.True(t, handles.HasOutputAudio)

	assert.FileExists(t, inPath)
	assert.FileExists(t, outPath)
}

func TestOpenSegment_InputErrorAborts(t *testing.T) {
	provider := newFakeProvider()
	provider.inputErr = errors.New("device busy")
	coord := NewCoordinator(provider, 44100, 1)
	inPath, outPath := segmentTestPaths(t)

	handles, err := coord.OpenSegment(context.Background(), "s_segment_000", inPath, outPath)
	require.Nil(t, handles)
	assert.True(t, errors.Is(err, ErrInputCaptureFailed), "got %v", err)

	// Input failed before output was attempted; nothing should exist.
	assert.Zero(t, provider.outputStart)
	_, statErr := os.Stat(outPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpenSegment_InputUnavailableAborts(t *testing.T) {
	provider := newFakeProvider()
	provider.inputUnavailable = true
	coord := NewCoordinator(provider, 44100, 1)
	inPath, outPath := segmentTestPaths(t)

	_, err := coord.OpenSegment(context.Background(), "s_segment_000", inPath, outPath)
	assert.True(t, errors.Is(err, ErrInputCaptureFailed), "got %v", err)
}

func TestOpenSegment_OutputErrorDegrades(t *testing.T) {
	provider := newFakeProvider()
	provider.outputErr = errors.New("no loopback source")
	coord := NewCoordinator(provider, 44100, 1)
	inPath, outPath := segmentTestPaths(t)

	handles, err := coord.OpenSegment(context.Background(), "s_segment_000", inPath, outPath)
	require.NoError(t, err)
	require.NotNil(t, handles.Input)
	assert.Nil(t, handles.Output)
	assert.False(t, handles.HasOutputAudio)

	// Placeholder must exist and be a parseable empty container.
	info, statErr := os.Stat(outPath)
	require.NoError(t, statErr)
	assert.GreaterOrEqual(t, info.Size(), int64(wav.HeaderSize))
}

func TestOpenSegment_OutputUnavailableDegrades(t *testing.T) {
	provider := newFakeProvider()
	provider.outputUnavailable = true
	coord := NewCoordinator(provider, 48000, 2)
	inPath, outPath := segmentTestPaths(t)

	handles, err := coord.OpenSegment(context.Background(), "s_segment_000", inPath, outPath)
	require.NoError(t, err)
	assert.False(t, handles.HasOutputAudio)

	info, statErr := os.Stat(outPath)
	require.NoError(t, statErr)
	assert.Equal(t, int64(wav.HeaderSize), info.Size())
}

func TestCloseSegment_StopsBothHandles(t *testing.T) {
	provider := newFakeProvider()
	coord := NewCoordinator(provider, 44100, 1)
	inPath, outPath := segmentTestPaths(t)

	handles, err := coord.OpenSegment(context.Background(), "s_segment_000", inPath, outPath)
	require.NoError(t, err)

	coord.CloseSegment(context.Background(), handles)
	assert.Zero(t, provider.openHandles())
}

func TestCloseSegment_SwallowsStopErrors(t *testing.T) {
	provider := newFakeProvider()
	provider.stopErr = errors.New("flush failed")
	coord := NewCoordinator(provider, 44100, 1)
	inPath, outPath := segmentTestPaths(t)

	handles, err := coord.OpenSegment(context.Background(), "s_segment_000", inPath, outPath)
	require.NoError(t, err)

	// Must not panic or propagate; both handles still get stopped.
	coord.CloseSegment(context.Background(), handles)
	assert.Zero(t, provider.openHandles())
}

func TestCloseSegment_NilHandles(t *testing.T) {
	coord := NewCoordinator(newFakeProvider(), 44100, 1)
	coord.CloseSegment(context.Background(), nil)
	coord.CloseSegment(context.Background(), &SegmentHandles{})
}
