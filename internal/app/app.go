// Package app wires all linguaflow subsystems into a running application.
//
// The App struct owns the full lifecycle: New builds the pipeline and HTTP
// listeners from config, Run executes until the context is cancelled, and
// Shutdown tears everything down in order.
//
// For testing, inject mock providers through [Providers] and extra sinks via
// [WithSink]; leaving both listener addresses empty disables the HTTP side
// entirely.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/linguaflow/internal/config"
	"github.com/MrWong99/linguaflow/internal/display"
	"github.com/MrWong99/linguaflow/internal/health"
	"github.com/MrWong99/linguaflow/internal/observe"
	"github.com/MrWong99/linguaflow/internal/pipeline"
	"github.com/MrWong99/linguaflow/internal/session"
	"github.com/MrWong99/linguaflow/pkg/audio"
	"github.com/MrWong99/linguaflow/pkg/provider/llm"
	"github.com/MrWong99/linguaflow/pkg/provider/stt"
)

// Timeouts for the embedded HTTP listeners.
const (
	readHeaderTimeout = 5 * time.Second
	serverStopTimeout = 5 * time.Second
)

// Providers holds the external capabilities the pipeline runs on. Populated
// by main.go from the provider config; tests inject mocks.
type Providers struct {
	// Platform provides capture devices. Required.
	Platform audio.Platform

	// Recognizer transcribes audio. Required.
	Recognizer stt.Recognizer

	// Generator translates and summarises. Required.
	Generator llm.Generator

	// Summariser overrides the LLM-backed summariser when non-nil.
	Summariser session.Summariser
}

// App owns all subsystem lifetimes.
type App struct {
	cfg       *config.Config
	providers *Providers
	log       *slog.Logger

	orch        *pipeline.Orchestrator
	contextMgr  *session.ContextManager
	broadcaster *display.Broadcaster

	metricsSrv *http.Server
	displaySrv *http.Server

	extraSinks []display.Sink

	// closers run in reverse order during Shutdown.
	closers []func(context.Context) error

	stopOnce sync.Once
	stopErr  error
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithLogger sets the root logger. Defaults to slog.Default().
func WithLogger(log *slog.Logger) Option {
	return func(a *App) { a.log = log }
}

// WithSink registers an additional display sink alongside the log sink and
// the websocket broadcaster.
func WithSink(s display.Sink) Option {
	return func(a *App) { a.extraSinks = append(a.extraSinks, s) }
}

// New wires the pipeline, display sinks, and HTTP listeners together. The
// returned App is idle; call Run to start processing.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil {
		return nil, errors.New("app: providers are required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.log == nil {
		a.log = slog.Default()
	}

	// Metrics provider first so pipeline instruments land in the exporter.
	if cfg.Server.MetricsAddr != "" {
		shutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{})
		if err != nil {
			return nil, fmt.Errorf("app: init metrics provider: %w", err)
		}
		a.closers = append(a.closers, shutdown)
	}

	sinks := display.Multi{&display.LogSink{Log: a.log}}
	if cfg.Server.DisplayAddr != "" {
		a.broadcaster = display.NewBroadcaster(a.log)
		sinks = append(sinks, a.broadcaster)
	}
	sinks = append(sinks, a.extraSinks...)

	orch, ctxMgr, err := pipeline.Build(cfg, pipeline.Deps{
		Platform:   providers.Platform,
		Recognizer: providers.Recognizer,
		Generator:  providers.Generator,
		Summariser: providers.Summariser,
		Callbacks:  display.Callbacks(sinks),
		Logger:     a.log,
	})
	if err != nil {
		return nil, fmt.Errorf("app: build pipeline: %w", err)
	}
	a.orch = orch
	a.contextMgr = ctxMgr

	a.initServers()

	return a, nil
}

// initServers builds the metrics and display HTTP servers for the configured
// addresses. An empty address disables the listener.
func (a *App) initServers() {
	if addr := a.cfg.Server.MetricsAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", promhttp.Handler())
		health.New(map[string]health.Check{
			"pipeline": a.checkPipeline,
		}).Register(mux)

		a.metricsSrv = &http.Server{
			Addr:              addr,
			Handler:           observe.Middleware(observe.DefaultMetrics(), a.log)(mux),
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}

	if addr := a.cfg.Server.DisplayAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /feed", a.broadcaster)

		a.displaySrv = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}
}

// checkPipeline is the readiness probe for the processing pipeline.
func (a *App) checkPipeline(context.Context) error {
	if state := a.orch.State(); state != pipeline.StateRunning {
		return fmt.Errorf("pipeline is %s", state)
	}
	return nil
}

// ContextManager exposes the session context for export and import.
func (a *App) ContextManager() *session.ContextManager {
	return a.contextMgr
}

// Run starts the pipeline and the HTTP listeners and blocks until ctx is
// cancelled or a listener fails. The pipeline is stopped before Run returns;
// call Shutdown afterwards to release the remaining resources.
func (a *App) Run(ctx context.Context) error {
	if err := a.orch.Start(ctx, a.cfg.Audio.DeviceID); err != nil {
		return fmt.Errorf("app: start pipeline: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range []*http.Server{a.metricsSrv, a.displaySrv} {
		if srv == nil {
			continue
		}
		g.Go(func() error {
			a.log.Info("listener started", "addr", srv.Addr)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: listener %s: %w", srv.Addr, err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			stopCtx, cancel := context.WithTimeout(context.Background(), serverStopTimeout)
			defer cancel()
			return srv.Shutdown(stopCtx)
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.orch.Stop()
		return ctx.Err()
	})

	return g.Wait()
}

// Shutdown stops the pipeline, releases the capture device, and runs the
// remaining closers in reverse order. Safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	a.stopOnce.Do(func() {
		var errs []error

		if err := a.orch.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pipeline: %w", err))
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](ctx); err != nil {
				errs = append(errs, err)
			}
		}

		a.stopErr = errors.Join(errs...)
	})
	return a.stopErr
}
