// Package assessment exposes the fluency scorer on the NATS bus so other
// voice-pipeline components can score transcripts without going through HTTP.
package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-fluency/internal/bus"
	"github.com/loqalabs/loqa-fluency/internal/config"
	"github.com/loqalabs/loqa-fluency/internal/fluency"
	"github.com/loqalabs/loqa-fluency/internal/observe"
	"github.com/loqalabs/loqa-fluency/internal/protocol"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const source = "bus"

var errMissingText = errors.New("text is required")

type Service struct {
	cfg     config.BusConfig
	bus     *bus.Client
	scorer  *fluency.Scorer
	metrics *observe.Metrics
	log     *slog.Logger
	tracer  trace.Tracer

	mu    sync.Mutex
	subs  []*nats.Subscription
	ready atomic.Bool
	now   func() time.Time
}

func NewService(cfg config.BusConfig, busClient *bus.Client, scorer *fluency.Scorer, metrics *observe.Metrics, log *slog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		bus:     busClient,
		scorer:  scorer,
		metrics: metrics,
		log:     log.With(slog.String("component", "assessment")),
		tracer:  otel.Tracer("github.com/loqalabs/loqa-fluency/internal/assessment"),
		now:     time.Now,
	}
}

// Start subscribes to the analyze request subject and, when enabled, to final
// transcripts.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.bus.Conn().Subscribe(protocol.SubjectAnalyze, s.handleAnalyze)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", protocol.SubjectAnalyze, err)
	}
	s.subs = append(s.subs, sub)

	if s.cfg.ScoreTranscripts {
		sub, err := s.bus.Conn().Subscribe(protocol.SubjectTranscriptFinal, s.handleTranscript)
		if err != nil {
			s.unsubscribeLocked()
			return fmt.Errorf("subscribe %s: %w", protocol.SubjectTranscriptFinal, err)
		}
		s.subs = append(s.subs, sub)
	}

	// Make sure the server has registered interest before reporting ready.
	if err := s.bus.Conn().Flush(); err != nil {
		s.unsubscribeLocked()
		return fmt.Errorf("flush subscriptions: %w", err)
	}

	s.ready.Store(true)
	s.log.Info("assessment service started", slog.Bool("score_transcripts", s.cfg.ScoreTranscripts))
	return nil
}

func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready.Store(false)
	s.unsubscribeLocked()
}

func (s *Service) Healthy() bool {
	return s.ready.Load() && s.bus.Healthy()
}

func (s *Service) unsubscribeLocked() {
	for _, sub := range s.subs {
		_ = sub.Drain()
	}
	s.subs = nil
}

func (s *Service) handleAnalyze(msg *nats.Msg) {
	_, span := s.tracer.Start(context.Background(), "assessment.analyze")
	defer span.End()

	var req protocol.AnalyzeRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.log.Warn("failed to decode analyze request", slog.String("error", err.Error()))
		s.reply(msg, protocol.ErrorResponse{Error: "invalid JSON body"})
		return
	}
	if req.Text == nil {
		s.reply(msg, protocol.ErrorResponse{Error: errMissingText.Error()})
		return
	}

	result := s.scorer.Analyze(*req.Text)
	s.metrics.RecordAnalysis(context.Background(), source, result)
	span.SetAttributes(attribute.Int("fluency.animal_count", result.AnimalCount))
	s.reply(msg, protocol.NewAnalyzeResponse(result))
}

func (s *Service) handleTranscript(msg *nats.Msg) {
	var transcript protocol.Transcript
	if err := json.Unmarshal(msg.Data, &transcript); err != nil {
		s.log.Warn("failed to decode transcript", slog.String("error", err.Error()))
		return
	}
	if transcript.Partial {
		return
	}

	_, span := s.tracer.Start(context.Background(), "assessment.transcript",
		trace.WithAttributes(attribute.String("session.id", transcript.SessionID)))
	defer span.End()

	result := s.scorer.Analyze(transcript.Text)
	s.metrics.RecordAnalysis(context.Background(), source, result)

	out := protocol.FluencyResult{
		SessionID:       transcript.SessionID,
		Text:            transcript.Text,
		Animals:         result.Animals,
		Band:            string(result.Band()),
		Timestamp:       s.now().UTC(),
		AnalyzeResponse: protocol.NewAnalyzeResponse(result),
	}
	if err := s.bus.PublishJSON(protocol.SubjectResult, out); err != nil {
		s.log.Error("failed to publish fluency result",
			slog.String("session_id", transcript.SessionID),
			slog.String("error", err.Error()))
		return
	}
	s.log.Info("scored transcript",
		slog.String("session_id", transcript.SessionID),
		slog.Int("animal_count", result.AnimalCount),
		slog.Int("brain_health_score", result.BrainHealthScore))
}

func (s *Service) reply(msg *nats.Msg, v any) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Error("failed to encode reply", slog.String("error", err.Error()))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.log.Warn("failed to send reply", slog.String("error", err.Error()))
	}
}
