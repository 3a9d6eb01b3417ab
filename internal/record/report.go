package record

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNonSerializableResult indicates a report could not be reduced to plain
// serializable data. The report crosses a process-like boundary, so it is
// validated before being handed to the caller rather than hoped correct.
var ErrNonSerializableResult = errors.New("result is not serializable")

// Report is the aggregate result of a stopped session. It contains only
// plain data: no live handles, nothing boundary-unsafe.
type Report struct {
	SessionID       string          `json:"session_id"`
	TotalSegments   int             `json:"total_segments"`
	TotalInputSize  int64           `json:"total_input_size"`
	TotalOutputSize int64           `json:"total_output_size"`
	// TotalDuration is the sum of per-segment durations in seconds, not the
	// wall-clock session length; rotation leaves brief gaps between segments.
	TotalDuration float64  `json:"total_duration_seconds"`
	InputFiles    []string `json:"input_files"`
	OutputFiles   []string `json:"output_files"`
	Segments      []SegmentRecord `json:"segments"`
}

// buildReport aggregates finalized segment records into a Report.
func buildReport(sessionID string, segments []SegmentRecord) *Report {
	report := &Report{
		SessionID:     sessionID,
		TotalSegments: len(segments),
		InputFiles:    make([]string, 0, len(segments)),
		OutputFiles:   make([]string, 0, len(segments)),
		Segments:      make([]SegmentRecord, len(segments)),
	}
	copy(report.Segments, segments)

	for _, seg := range segments {
		report.TotalInputSize += seg.InputSize
		report.TotalOutputSize += seg.OutputSize
		report.TotalDuration += seg.Duration
		report.InputFiles = append(report.InputFiles, seg.InputFile)
		report.OutputFiles = append(report.OutputFiles, seg.OutputFile)
	}

	return report
}

// verifySerializable confirms the report survives a JSON round trip.
func verifySerializable(report *Report) error {
	if _, err := json.Marshal(report); err != nil {
		return fmt.Errorf("%w: %v", ErrNonSerializableResult, err)
	}
	return nil
}
