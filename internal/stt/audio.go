package stt

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/go-audio/wav"
)

// ErrNotWAV is returned by InspectAudio for payloads without a RIFF/WAVE header.
var ErrNotWAV = errors.New("audio is not a wav file")

// AudioInfo describes a decoded WAV header.
type AudioInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
	Duration   time.Duration
}

// InspectAudio reads the WAV header of data. Other containers (webm, m4a)
// return ErrNotWAV; they are still valid uploads for remote backends.
func InspectAudio(data []byte) (AudioInfo, error) {
	if len(data) == 0 {
		return AudioInfo{}, ErrEmptyAudio
	}
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return AudioInfo{}, ErrNotWAV
	}
	duration, err := dec.Duration()
	if err != nil {
		return AudioInfo{}, fmt.Errorf("read wav duration: %w", err)
	}
	return AudioInfo{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
		Duration:   duration,
	}, nil
}
