package stt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/loqalabs/loqa-fluency/internal/config"
)

// FallbackTranscript is returned whenever transcription fails, so the demo
// still produces a meaningful score offline.
const FallbackTranscript = "lion tiger bear wolf deer rabbit squirrel mouse rat hamster guinea pig"

// ErrEmptyAudio is returned for zero-length uploads.
var ErrEmptyAudio = errors.New("audio payload is empty")

// Transcript captures transcriber output.
type Transcript struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Transcriber abstracts speech-to-text backends. Implementations report
// failures through the error; callers decide how to degrade.
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, audio []byte) (Transcript, error)
}

// Resolve runs t and maps any failure onto FallbackTranscript. The boolean
// reports whether the fallback was used.
func Resolve(ctx context.Context, t Transcriber, audio []byte, log *slog.Logger) (Transcript, bool) {
	if t == nil {
		log.Warn("no transcriber configured, using fallback transcript")
		return Transcript{Text: FallbackTranscript}, true
	}
	result, err := t.Transcribe(ctx, audio)
	if err != nil {
		log.Warn("transcription failed, using fallback transcript",
			slog.String("backend", t.Name()),
			slog.String("error", err.Error()))
		return Transcript{Text: FallbackTranscript}, true
	}
	return result, false
}

// New builds the transcriber selected by cfg.Mode. Remote and process backends
// are wrapped in a circuit breaker.
func New(cfg config.STTConfig, log *slog.Logger) (Transcriber, error) {
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	breaker := BreakerConfig{
		MaxFailures:  cfg.Breaker.MaxFailures,
		ResetTimeout: time.Duration(cfg.Breaker.ResetMS) * time.Millisecond,
	}

	switch cfg.Mode {
	case "mock":
		return NewMock(""), nil
	case "cartesia":
		client := NewCartesia(CartesiaOptions{
			Endpoint:   cfg.Endpoint,
			APIKey:     cfg.APIKey,
			APIVersion: cfg.APIVersion,
			Model:      cfg.Model,
			Language:   cfg.Language,
			Timeout:    timeout,
		})
		if cfg.APIKey == "" {
			log.Warn("cartesia api key not set, every transcription will use the fallback transcript")
		}
		return NewBreaker(client, breaker, log), nil
	case "exec":
		rec, err := NewExecRecognizer(cfg)
		if err != nil {
			return nil, err
		}
		return NewBreaker(rec, breaker, log), nil
	default:
		return nil, fmt.Errorf("unknown stt mode %q", cfg.Mode)
	}
}
