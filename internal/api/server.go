// Package api serves the fluency scorer and the transcription collaborator
// over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/loqalabs/loqa-fluency/internal/config"
	"github.com/loqalabs/loqa-fluency/internal/fluency"
	"github.com/loqalabs/loqa-fluency/internal/observe"
	"github.com/loqalabs/loqa-fluency/internal/stt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Options are the collaborators a Server is built from. Scorer is required;
// a nil Transcriber makes every transcription fall back.
type Options struct {
	Config      config.HTTPConfig
	Scorer      *fluency.Scorer
	Transcriber stt.Transcriber
	Metrics     *observe.Metrics
	Logger      *slog.Logger
	Version     string
	// Ready reports readiness for /readyz. Nil means always ready.
	Ready func() bool
}

type Server struct {
	cfg         config.HTTPConfig
	scorer      *fluency.Scorer
	transcriber stt.Transcriber
	metrics     *observe.Metrics
	log         *slog.Logger
	tracer      trace.Tracer
	version     string
	ready       func() bool
}

func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	scorer := opts.Scorer
	if scorer == nil {
		scorer = fluency.New(nil, fluency.DefaultOptions())
	}
	cfg := opts.Config
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = config.Default().HTTP.MaxUploadBytes
	}
	ready := opts.Ready
	if ready == nil {
		ready = func() bool { return true }
	}
	return &Server{
		cfg:         cfg,
		scorer:      scorer,
		transcriber: opts.Transcriber,
		metrics:     opts.Metrics,
		log:         log.With(slog.String("component", "api")),
		tracer:      otel.Tracer("github.com/loqalabs/loqa-fluency/internal/api"),
		version:     opts.Version,
		ready:       ready,
	}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("POST /analyze", s.handleAnalyze)
	mux.HandleFunc("POST /transcribe", s.handleTranscribe)
	mux.HandleFunc("POST /assess", s.handleAssess)

	return s.instrument(cors(s.cfg.AllowedOrigins)(mux))
}
