package pipeline

import (
	"errors"
	"log/slog"

	"github.com/MrWong99/linguaflow/internal/capture"
	"github.com/MrWong99/linguaflow/internal/config"
	"github.com/MrWong99/linguaflow/internal/observe"
	"github.com/MrWong99/linguaflow/internal/session"
	"github.com/MrWong99/linguaflow/pkg/audio"
	"github.com/MrWong99/linguaflow/pkg/provider/llm"
	"github.com/MrWong99/linguaflow/pkg/provider/stt"
)

// normalizeTarget is the peak level chunks are scaled to before recognition.
const normalizeTarget = 0.8

// Deps are the external capabilities a pipeline is built around.
type Deps struct {
	// Platform provides capture devices. Required.
	Platform audio.Platform

	// Recognizer transcribes audio chunks. Required.
	Recognizer stt.Recognizer

	// Generator translates and summarises. Required.
	Generator llm.Generator

	// Summariser refreshes the rolling context summary. When nil, an
	// [session.LLMSummariser] over Generator is used.
	Summariser session.Summariser

	// Callbacks are the display hooks.
	Callbacks Callbacks

	// Logger is the root logger. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records pipeline instrumentation. Defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Build assembles a full pipeline from configuration: capture source,
// transcription and translation stages, context manager, and orchestrator.
// The returned orchestrator is idle; call Start to begin processing, and the
// context manager is exposed for export/import of session context.
func Build(cfg *config.Config, deps Deps) (*Orchestrator, *session.ContextManager, error) {
	if deps.Platform == nil {
		return nil, nil, errors.New("pipeline: Platform is required")
	}
	if deps.Recognizer == nil {
		return nil, nil, errors.New("pipeline: Recognizer is required")
	}
	if deps.Generator == nil {
		return nil, nil, errors.New("pipeline: Generator is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}

	summariser := deps.Summariser
	if summariser == nil {
		summariser = session.NewLLMSummariser(deps.Generator)
	}

	ctxMgr := session.NewContextManager(session.ContextManagerConfig{
		WindowSize:      cfg.Translation.ContextWindowSize,
		UpdateInterval:  cfg.Translation.SummaryUpdateInterval,
		MaxSummaryChars: cfg.Translation.MaxContextChars,
		Summariser:      summariser,
		Logger:          deps.Logger,
	})

	source := capture.NewSource(deps.Platform, capture.Config{
		SampleRate:      cfg.Audio.SampleRate,
		ChunkDuration:   cfg.Audio.ChunkDuration(),
		QueueSize:       cfg.Queues.Audio,
		NormalizeTarget: normalizeTarget,
		Logger:          deps.Logger,
	})

	sttStage := NewTranscriptionStage(deps.Recognizer, TranscriptionConfig{
		Language:  cfg.Providers.STT.Language,
		QueueSize: cfg.Queues.Transcription,
		Logger:    deps.Logger,
		Metrics:   deps.Metrics,
	})

	trStage := NewTranslationStage(deps.Generator, ctxMgr, TranslationConfig{
		SourceLanguage: cfg.Translation.SourceLanguage,
		TargetLanguage: cfg.Translation.TargetLanguage,
		MaxTokens:      cfg.Translation.MaxTokens,
		Temperature:    cfg.Translation.Temperature,
		StopSequences:  cfg.Translation.StopSequences,
		QueueSize:      cfg.Queues.Translation,
		Logger:         deps.Logger,
		Metrics:        deps.Metrics,
	})

	orch := NewOrchestrator(OrchestratorConfig{
		Source:        source,
		Transcription: sttStage,
		Translation:   trStage,
		Callbacks:     deps.Callbacks,
		Logger:        deps.Logger,
		Metrics:       deps.Metrics,
	})
	return orch, ctxMgr, nil
}
