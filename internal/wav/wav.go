// Package wav builds minimal PCM WAV containers.
//
// The only producer in this project is the fallback path: when a capture
// source cannot be opened, the segment still gets a parseable, zero-payload
// WAV file so downstream tooling never has to special-case missing files.
package wav

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// HeaderSize is the size of a canonical PCM WAV header with no payload.
const HeaderSize = 44

// DefaultBitDepth is the bit depth used for fallback files.
const DefaultBitDepth = 16

// ErrInvalidParameter indicates a non-positive or unsupported header parameter.
var ErrInvalidParameter = errors.New("invalid wav parameter")

// Header returns a 44-byte PCM WAV header declaring zero payload bytes.
// Byte rate is sampleRate*channels*bitDepth/8, block align channels*bitDepth/8.
func Header(sampleRate, channels, bitDepth int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidParameter, sampleRate)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channels %d", ErrInvalidParameter, channels)
	}
	if bitDepth <= 0 || bitDepth%8 != 0 {
		return nil, fmt.Errorf("%w: bit depth %d", ErrInvalidParameter, bitDepth)
	}

	byteRate := sampleRate * channels * bitDepth / 8
	blockAlign := channels * bitDepth / 8

	var buf bytes.Buffer
	buf.Write([]byte("RIFF"))
	binary.Write(&buf, binary.LittleEndian, uint32(36)) // header only, no data
	buf.Write([]byte("WAVE"))

	buf.Write([]byte("fmt "))
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(channels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitDepth))

	buf.Write([]byte("data"))
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	return buf.Bytes(), nil
}

// WriteEmpty writes a zero-payload 16-bit PCM WAV file to path, overwriting
// any existing file. Used as the placeholder artifact for degraded captures.
func WriteEmpty(path string, sampleRate, channels int) error {
	header, err := Header(sampleRate, channels, DefaultBitDepth)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, header, 0644); err != nil {
		return fmt.Errorf("failed to write placeholder wav %s: %w", path, err)
	}
	return nil
}
