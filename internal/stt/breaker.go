package stt

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("transcriber circuit breaker is open")

// State is the operating mode of a Breaker.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes a Breaker. Zero values select the defaults.
type BreakerConfig struct {
	// MaxFailures consecutive errors open the breaker. Default: 5.
	MaxFailures int
	// ResetTimeout is how long the breaker stays open before probing. Default: 30s.
	ResetTimeout time.Duration
	// HalfOpenMax successful probes close the breaker again. Default: 1.
	HalfOpenMax int
}

// Breaker wraps a Transcriber so that a provider which keeps failing is
// skipped until ResetTimeout has passed. Safe for concurrent use.
type Breaker struct {
	next         Transcriber
	log          *slog.Logger
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int
	clock        func() time.Time

	mu              sync.Mutex
	state           State
	consecutiveFail int
	openedAt        time.Time
	halfOpenCalls   int
	halfOpenOK      int
}

// NewBreaker wraps next with a circuit breaker.
func NewBreaker(next Transcriber, cfg BreakerConfig, log *slog.Logger) *Breaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 1
	}
	return &Breaker{
		next:         next,
		log:          log.With(slog.String("component", "stt-breaker"), slog.String("backend", next.Name())),
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		clock:        time.Now,
		state:        StateClosed,
	}
}

func (b *Breaker) Name() string { return b.next.Name() }

// State reports the current breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Breaker) Transcribe(ctx context.Context, audio []byte) (Transcript, error) {
	probe, err := b.admit()
	if err != nil {
		return Transcript{}, err
	}
	result, err := b.next.Transcribe(ctx, audio)
	b.record(probe, err)
	return result, err
}

func (b *Breaker) admit() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.clock().Sub(b.openedAt) < b.resetTimeout {
			return false, ErrCircuitOpen
		}
		b.state = StateHalfOpen
		b.halfOpenCalls = 0
		b.halfOpenOK = 0
		b.log.Info("circuit breaker half-open")
	case StateHalfOpen:
		if b.halfOpenCalls >= b.halfOpenMax {
			return false, ErrCircuitOpen
		}
	}
	probe := b.state == StateHalfOpen
	if probe {
		b.halfOpenCalls++
	}
	return probe, nil
}

func (b *Breaker) record(probe bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		// Caller cancellation says nothing about provider health.
		if errors.Is(err, context.Canceled) {
			if probe {
				b.halfOpenCalls--
			}
			return
		}
		if probe {
			b.trip("circuit breaker re-opened from half-open")
			return
		}
		b.consecutiveFail++
		if b.consecutiveFail >= b.maxFailures {
			b.trip("circuit breaker opened")
		}
		return
	}

	if probe {
		b.halfOpenOK++
		if b.halfOpenOK >= b.halfOpenMax {
			b.state = StateClosed
			b.consecutiveFail = 0
			b.log.Info("circuit breaker closed")
		}
		return
	}
	b.consecutiveFail = 0
}

// trip must be called with b.mu held.
func (b *Breaker) trip(msg string) {
	b.state = StateOpen
	b.openedAt = b.clock()
	b.log.Warn(msg, slog.Int("consecutive_failures", b.consecutiveFail))
}
