package record

import (
	"fmt"
	"path/filepath"
	"time"
)

// SegmentRecord describes one fixed-duration slice of a recording session.
// File paths are assigned at creation and never change; sizes, end time and
// duration are filled in exactly once when the segment is finalized. The
// record holds no live resources and is safe to serialize.
type SegmentRecord struct {
	SegmentID      string    `json:"segment_id"`
	InputFile      string    `json:"input_file"`
	OutputFile     string    `json:"output_file"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Duration       float64   `json:"duration_seconds"`
	InputSize      int64     `json:"input_size"`
	OutputSize     int64     `json:"output_size"`
	HasOutputAudio bool      `json:"has_output_audio"`
}

// SegmentID derives a segment identity from the session and a zero-padded
// ordinal index: <sessionID>_segment_000, _segment_001, ...
func SegmentID(sessionID string, index int) string {
	return fmt.Sprintf("%s_segment_%03d", sessionID, index)
}

// SegmentPaths returns the input/output file paths for a segment inside dir.
func SegmentPaths(dir, segmentID, ext string) (inputPath, outputPath string) {
	inputPath = filepath.Join(dir, fmt.Sprintf("input_%s.%s", segmentID, ext))
	outputPath = filepath.Join(dir, fmt.Sprintf("output_%s.%s", segmentID, ext))
	return inputPath, outputPath
}
