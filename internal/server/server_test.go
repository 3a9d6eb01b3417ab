package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duocap/duocap/internal/capture"
	"github.com/duocap/duocap/internal/config"
	"github.com/duocap/duocap/internal/record"
	"github.com/duocap/duocap/internal/service"
)

// stubProvider writes a small file per started stream so segments have real
// sizes on disk.
type stubProvider struct {
	outputUnavailable bool
}

type stubHandle struct{}

func (stubHandle) Stop(ctx context.Context) error { return nil }

func (p *stubProvider) Start(ctx context.Context, kind capture.Kind, targetPath string) (capture.Handle, error) {
	if kind == capture.KindOutput && p.outputUnavailable {
		return nil, nil
	}
	if err := writeStub(targetPath); err != nil {
		return nil, err
	}
	return stubHandle{}, nil
}

func writeStub(path string) error {
	return os.WriteFile(path, bytes.Repeat([]byte{0x7f}, 256), 0644)
}

func newTestServer(t *testing.T, provider capture.Provider) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Output.Directory = t.TempDir()
	cfg.Recording.SegmentDuration = time.Minute
	cfg.Recording.SettleDelay = time.Millisecond
	return New(service.New(cfg, provider), "0")
}

func doRequest(t *testing.T, handler http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestStatus_Idle(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})
	rec := doRequest(t, srv.Handler(), http.MethodGet, "/api/status")

	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "idle", resp.Status)
	assert.False(t, resp.Session.IsRecording)
	assert.Zero(t, resp.Session.SegmentCount)
}

func TestStartStop_RoundTrip(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/record/start")
	require.Equal(t, http.StatusOK, rec.Code)

	var start StartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &start))
	assert.True(t, start.Success)
	assert.NotEmpty(t, start.SessionID)

	rec = doRequest(t, handler, http.MethodGet, "/api/status")
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "recording", status.Status)
	assert.Equal(t, start.SessionID, status.Session.SessionID)

	rec = doRequest(t, handler, http.MethodPost, "/api/record/stop")
	require.Equal(t, http.StatusOK, rec.Code)

	var report record.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, start.SessionID, report.SessionID)
	assert.Equal(t, 1, report.TotalSegments)
	require.Len(t, report.Segments, 1)
	assert.True(t, report.Segments[0].HasOutputAudio)
}

func TestStart_TwiceConflicts(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/record/start")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, handler, http.MethodPost, "/api/record/start")
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)

	doRequest(t, handler, http.MethodPost, "/api/record/reset")
}

func TestStop_WhenIdleIsNotAnError(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})
	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/record/stop")

	// Expected query pattern: 200 with success=false, not a 4xx/5xx.
	require.Equal(t, http.StatusOK, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestReset_AlwaysSucceeds(t *testing.T) {
	srv := newTestServer(t, &stubProvider{})
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodPost, "/api/record/reset")
	assert.Equal(t, http.StatusOK, rec.Code)

	doRequest(t, handler, http.MethodPost, "/api/record/start")
	rec = doRequest(t, handler, http.MethodPost, "/api/record/reset")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, handler, http.MethodGet, "/api/status")
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "idle", status.Status)
	assert.Zero(t, status.Session.SegmentCount)
}

func TestSegments_ReflectLastReport(t *testing.T) {
	srv := newTestServer(t, &stubProvider{outputUnavailable: true})
	handler := srv.Handler()

	rec := doRequest(t, handler, http.MethodGet, "/api/segments")
	require.Equal(t, http.StatusOK, rec.Code)

	var empty SegmentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &empty))
	assert.Empty(t, empty.Segments)

	doRequest(t, handler, http.MethodPost, "/api/record/start")
	doRequest(t, handler, http.MethodPost, "/api/record/stop")

	rec = doRequest(t, handler, http.MethodGet, "/api/segments")
	var resp SegmentsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Segments, 1)
	assert.False(t, resp.Segments[0].HasOutputAudio)
	assert.NotEmpty(t, resp.SessionID)
}

func TestStart_NoCaptureContext(t *testing.T) {
	cfg := config.Default()
	cfg.Output.Directory = t.TempDir()
	srv := New(service.New(cfg, nil), "0")

	rec := doRequest(t, srv.Handler(), http.MethodPost, "/api/record/start")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
