// Command linguaflow captures live speech and serves rolling translations
// over a websocket feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/linguaflow/internal/app"
	"github.com/MrWong99/linguaflow/internal/config"
	"github.com/MrWong99/linguaflow/internal/resilience"
	malgoaudio "github.com/MrWong99/linguaflow/pkg/audio/malgo"
	"github.com/MrWong99/linguaflow/pkg/provider/llm"
	"github.com/MrWong99/linguaflow/pkg/provider/llm/anyllm"
	oaillm "github.com/MrWong99/linguaflow/pkg/provider/llm/openai"
	"github.com/MrWong99/linguaflow/pkg/provider/stt/whisper"
)

// shutdownTimeout bounds the graceful teardown after the signal arrives.
const shutdownTimeout = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	listDevices := flag.Bool("list-devices", false, "list capture devices and exit")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "linguaflow: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "linguaflow: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	// ── Audio platform ────────────────────────────────────────────────────────
	platform, err := malgoaudio.New()
	if err != nil {
		slog.Error("failed to initialise audio platform", "err", err)
		return 1
	}
	defer platform.Close()

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *listDevices {
		return printDevices(ctx, platform)
	}

	slog.Info("linguaflow starting",
		"config", *configPath,
		"metrics_addr", cfg.Server.MetricsAddr,
		"display_addr", cfg.Server.DisplayAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Providers ─────────────────────────────────────────────────────────────
	providers, closeProviders, err := buildProviders(ctx, cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	providers.Platform = platform
	defer closeProviders()

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers, app.WithLogger(logger))
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("pipeline ready — press Ctrl+C to shut down")

	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("shutdown signal received, stopping…")

	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildProviders instantiates the recognizer and generator named in cfg. The
// returned closer releases the recognizer's model memory.
func buildProviders(ctx context.Context, cfg *config.Config) (*app.Providers, func(), error) {
	ps := &app.Providers{}
	closeProviders := func() {}

	switch name := cfg.Providers.STT.Name; name {
	case "whisper":
		var opts []whisper.Option
		if lang := cfg.Providers.STT.Language; lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if cfg.Providers.STT.Threads > 0 {
			opts = append(opts, whisper.WithThreads(cfg.Providers.STT.Threads))
		}
		rec, err := whisper.New(cfg.Providers.STT.ModelPath, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		if err := rec.Warmup(ctx); err != nil {
			rec.Close()
			return nil, nil, fmt.Errorf("warm up stt provider %q: %w", name, err)
		}
		ps.Recognizer = rec
		closeProviders = func() {
			if err := rec.Close(); err != nil {
				slog.Warn("recognizer close error", "err", err)
			}
		}
		slog.Info("provider created", "kind", "stt", "name", name,
			"model", cfg.Providers.STT.ModelPath)
	default:
		return nil, nil, fmt.Errorf("providers.stt.name %q is not supported", name)
	}

	gen, err := buildGenerator(cfg.Providers.LLM.Name, cfg.Providers.LLM.Model,
		cfg.Providers.LLM.APIKey, cfg.Providers.LLM.BaseURL)
	if err != nil {
		closeProviders()
		return nil, nil, err
	}
	slog.Info("provider created", "kind", "llm",
		"name", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)

	if fb := cfg.Providers.LLM.Fallback; fb != nil {
		standby, err := buildGenerator(fb.Name, fb.Model, fb.APIKey, fb.BaseURL)
		if err != nil {
			closeProviders()
			return nil, nil, fmt.Errorf("fallback: %w", err)
		}
		group := resilience.NewGeneratorFallback(gen, cfg.Providers.LLM.Name,
			resilience.FallbackConfig{})
		group.AddFallback(fb.Name, standby)
		gen = group
		slog.Info("provider created", "kind", "llm-fallback",
			"name", fb.Name, "model", fb.Model)
	}
	ps.Generator = gen

	// A cheap probe surfaces bad credentials or an unreachable endpoint
	// before the pipeline starts; a failure is logged rather than fatal so a
	// late-arriving backend can still recover mid-session.
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := gen.Complete(probeCtx, llm.Request{Prompt: "ping", MaxTokens: 1}); err != nil {
		slog.Warn("llm warm-up probe failed", "err", err)
	}

	return ps, closeProviders, nil
}

// buildGenerator creates one text-generation backend. "openai" uses the
// OpenAI SDK directly; every other supported name goes through any-llm.
func buildGenerator(name, model, apiKey, baseURL string) (llm.Generator, error) {
	if name == "" {
		return nil, errors.New("providers.llm.name is required")
	}

	if name == "openai" {
		var opts []oaillm.Option
		if baseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(baseURL))
		}
		gen, err := oaillm.New(apiKey, model, opts...)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		return gen, nil
	}

	var opts []anyllmlib.Option
	if apiKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(baseURL))
	}
	gen, err := anyllm.New(name, model, opts...)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", name, err)
	}
	return gen, nil
}

// printDevices lists the capture devices the audio platform can open.
func printDevices(ctx context.Context, platform *malgoaudio.Platform) int {
	devices, err := platform.ListInputs(ctx)
	if err != nil {
		slog.Error("failed to list capture devices", "err", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Println("no capture devices found")
		return 0
	}
	for _, d := range devices {
		fmt.Printf("%-40s  id=%s  %d ch @ %d Hz\n",
			d.Name, d.ID, d.Channels, d.SampleRate)
	}
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔══════════════════════════════════════════╗")
	fmt.Println("║        linguaflow — startup summary      ║")
	fmt.Println("╠══════════════════════════════════════════╣")
	printRow("STT", cfg.Providers.STT.Name)
	printRow("LLM", cfg.Providers.LLM.Name+" / "+cfg.Providers.LLM.Model)
	if fb := cfg.Providers.LLM.Fallback; fb != nil {
		printRow("LLM fallback", fb.Name+" / "+fb.Model)
	}
	printRow("Languages", cfg.Translation.SourceLanguage+" → "+cfg.Translation.TargetLanguage)
	printRow("Chunk", cfg.Audio.ChunkDuration().String())
	if cfg.Server.MetricsAddr != "" {
		printRow("Metrics", cfg.Server.MetricsAddr)
	}
	if cfg.Server.DisplayAddr != "" {
		printRow("Display feed", cfg.Server.DisplayAddr)
	}
	fmt.Println("╚══════════════════════════════════════════╝")
}

func printRow(label, value string) {
	if len([]rune(value)) > 22 {
		value = string([]rune(value)[:21]) + "…"
	}
	fmt.Printf("║  %-14s : %-22s ║\n", label, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
