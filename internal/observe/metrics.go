// Package observe holds the OpenTelemetry instruments shared by the HTTP API
// and the bus adapter.
package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/loqalabs/loqa-fluency/internal/fluency"
)

const meterName = "github.com/loqalabs/loqa-fluency"

var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

var scoreBuckets = []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// Metrics holds all instruments. The OTel types synchronise internally.
type Metrics struct {
	// Analyses counts scored transcripts by source (http, bus).
	Analyses metric.Int64Counter

	// MemoryScore and BrainHealthScore record score distributions.
	MemoryScore      metric.Int64Histogram
	BrainHealthScore metric.Int64Histogram

	// Transcriptions counts transcription attempts by backend and outcome
	// (ok, fallback).
	Transcriptions metric.Int64Counter

	// TranscriptionDuration tracks time spent in the transcription backend.
	TranscriptionDuration metric.Float64Histogram

	// HTTPRequestDuration tracks request latency by method and route.
	HTTPRequestDuration metric.Float64Histogram
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Analyses, err = m.Int64Counter("fluency.analyses",
		metric.WithDescription("Transcripts scored, by source."),
	); err != nil {
		return nil, err
	}
	if met.MemoryScore, err = m.Int64Histogram("fluency.memory_score",
		metric.WithDescription("Distribution of memory scores."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.BrainHealthScore, err = m.Int64Histogram("fluency.brain_health_score",
		metric.WithDescription("Distribution of brain health scores."),
		metric.WithExplicitBucketBoundaries(scoreBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Transcriptions, err = m.Int64Counter("fluency.stt.transcriptions",
		metric.WithDescription("Transcription attempts by backend and outcome."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("fluency.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("fluency.http.request.duration",
		metric.WithDescription("HTTP request latency by method and route."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordAnalysis records one scored transcript.
func (m *Metrics) RecordAnalysis(ctx context.Context, source string, r fluency.Result) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("source", source))
	m.Analyses.Add(ctx, 1, attrs)
	m.MemoryScore.Record(ctx, int64(r.MemoryScore), attrs)
	m.BrainHealthScore.Record(ctx, int64(r.BrainHealthScore), attrs)
}

// RecordTranscription records one transcription attempt.
func (m *Metrics) RecordTranscription(ctx context.Context, backend string, fallback bool, seconds float64) {
	if m == nil {
		return
	}
	outcome := "ok"
	if fallback {
		outcome = "fallback"
	}
	attrs := metric.WithAttributes(
		attribute.String("backend", backend),
		attribute.String("outcome", outcome),
	)
	m.Transcriptions.Add(ctx, 1, attrs)
	m.TranscriptionDuration.Record(ctx, seconds, attrs)
}
