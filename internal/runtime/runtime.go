package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-fluency/internal/api"
	"github.com/loqalabs/loqa-fluency/internal/assessment"
	"github.com/loqalabs/loqa-fluency/internal/bus"
	"github.com/loqalabs/loqa-fluency/internal/config"
	"github.com/loqalabs/loqa-fluency/internal/fluency"
	"github.com/loqalabs/loqa-fluency/internal/natsserver"
	"github.com/loqalabs/loqa-fluency/internal/observe"
	"github.com/loqalabs/loqa-fluency/internal/stt"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type Runtime struct {
	cfg           config.Config
	logger        *slog.Logger
	version       string
	httpServer    *http.Server
	metricsServer *http.Server
	telemetryStop func(context.Context) error
	natsServer    *natsserver.EmbeddedServer
	busClient     *bus.Client
	assessment    *assessment.Service
	ready         atomic.Bool
	servers       errgroup.Group

	// addr is the bound HTTP address, available once Start is listening.
	addr atomic.Pointer[string]
}

func New(cfg config.Config, logger *slog.Logger, version string) *Runtime {
	return &Runtime{
		cfg:     cfg,
		logger:  logger,
		version: version,
	}
}

// Start runs the service until ctx is cancelled, then shuts every component
// down in reverse order.
func (r *Runtime) Start(ctx context.Context) error {
	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.telemetryStop = shutdownTelemetry

	metrics, err := observe.NewMetrics(otel.GetMeterProvider())
	if err != nil {
		r.shutdown()
		return fmt.Errorf("create metrics: %w", err)
	}

	scorer, err := newScorer(r.cfg.Scorer, r.logger)
	if err != nil {
		r.shutdown()
		return err
	}

	transcriber, err := stt.New(r.cfg.STT, r.logger)
	if err != nil {
		r.shutdown()
		return fmt.Errorf("create transcriber: %w", err)
	}
	r.logger.Info("transcriber ready", slog.String("backend", transcriber.Name()))

	if r.cfg.Bus.Enabled {
		if err := r.startBus(ctx, scorer, metrics); err != nil {
			r.shutdown()
			return err
		}
	}

	server := api.NewServer(api.Options{
		Config:      r.cfg.HTTP,
		Scorer:      scorer,
		Transcriber: transcriber,
		Metrics:     metrics,
		Logger:      r.logger,
		Version:     r.version,
		Ready:       r.isReady,
	})

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		r.shutdown()
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	bound := listener.Addr().String()
	r.addr.Store(&bound)

	r.httpServer = &http.Server{
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	r.serve(r.httpServer, listener, "http")

	if metricsHandler != nil && r.cfg.Telemetry.PrometheusBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metricsHandler)
		metricsListener, err := net.Listen("tcp", r.cfg.Telemetry.PrometheusBind)
		if err != nil {
			r.logger.Warn("metrics endpoint disabled",
				slog.String("bind", r.cfg.Telemetry.PrometheusBind),
				slog.String("error", err.Error()))
		} else {
			r.metricsServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			r.serve(r.metricsServer, metricsListener, "metrics")
		}
	}

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", bound), slog.String("version", r.version))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	r.shutdown()
	return nil
}

// Addr returns the bound HTTP address, or "" before the listener is open.
func (r *Runtime) Addr() string {
	if p := r.addr.Load(); p != nil {
		return *p
	}
	return ""
}

func (r *Runtime) isReady() bool {
	if !r.ready.Load() {
		return false
	}
	if r.assessment != nil && !r.assessment.Healthy() {
		return false
	}
	return true
}

func (r *Runtime) startBus(ctx context.Context, scorer *fluency.Scorer, metrics *observe.Metrics) error {
	cfg := r.cfg.Bus
	srv, err := natsserver.Start(cfg, r.logger)
	if err != nil {
		return err
	}
	r.natsServer = srv
	if srv != nil {
		cfg.Servers = []string{srv.ClientURL()}
	}

	client, err := bus.Connect(ctx, cfg, r.logger)
	if err != nil {
		return err
	}
	r.busClient = client

	svc := assessment.NewService(cfg, client, scorer, metrics, r.logger)
	if err := svc.Start(); err != nil {
		return fmt.Errorf("start assessment service: %w", err)
	}
	r.assessment = svc
	return nil
}

func (r *Runtime) serve(srv *http.Server, ln net.Listener, name string) {
	r.servers.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error(name+" server failed", slog.String("error", err.Error()))
			return fmt.Errorf("%s server: %w", name, err)
		}
		return nil
	})
}

func (r *Runtime) shutdown() {
	r.ready.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, srv := range []*http.Server{r.httpServer, r.metricsServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			r.logger.Error("http shutdown error", slog.String("error", err.Error()))
		}
	}
	if err := r.servers.Wait(); err != nil {
		r.logger.Error("server exited with error", slog.String("error", err.Error()))
	}

	if r.assessment != nil {
		r.assessment.Close()
	}
	r.busClient.Close()
	r.natsServer.Shutdown()

	if r.telemetryStop != nil {
		if err := r.telemetryStop(ctx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}
}

func newScorer(cfg config.ScorerConfig, logger *slog.Logger) (*fluency.Scorer, error) {
	vocab := fluency.DefaultVocabulary()
	if cfg.VocabularyPath != "" {
		loaded, err := fluency.LoadVocabulary(cfg.VocabularyPath)
		if err != nil {
			return nil, fmt.Errorf("load vocabulary: %w", err)
		}
		vocab = loaded
	}
	scorer := fluency.New(vocab, fluency.Options{
		TargetAnimals:     cfg.TargetAnimals,
		RepetitionPenalty: cfg.RepetitionPenalty,
		FuzzyMatch:        cfg.FuzzyMatch,
		FuzzyThreshold:    cfg.FuzzyThreshold,
	})
	opts := scorer.Options()
	logger.Info("scorer ready",
		slog.Int("animals", scorer.Vocabulary().Len()),
		slog.String("vocabulary_path", cfg.VocabularyPath),
		slog.Int("target_animals", opts.TargetAnimals),
		slog.Int("repetition_penalty", opts.RepetitionPenalty),
		slog.Bool("fuzzy_match", opts.FuzzyMatch))
	return scorer, nil
}
