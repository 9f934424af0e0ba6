package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/linguaflow/internal/observe"
	"github.com/MrWong99/linguaflow/internal/session"
	"github.com/MrWong99/linguaflow/pkg/provider/llm"
	"github.com/MrWong99/linguaflow/pkg/queue"
)

// TranslationConfig configures a [TranslationStage].
type TranslationConfig struct {
	// SourceLanguage is the language being spoken. Empty means "the source
	// language" is left to the model to detect.
	SourceLanguage string

	// TargetLanguage is the language translations are produced in.
	// Default: "English".
	TargetLanguage string

	// MaxTokens caps each completion. Default: 200.
	MaxTokens int

	// Temperature is the sampling temperature. Default: 0.3.
	Temperature float64

	// StopSequences bound the completion to a single translation.
	// Default: ["\n\n"].
	StopSequences []string

	// QueueSize is the capacity of both the input and output queue.
	// Default: 10.
	QueueSize int

	// Logger receives per-item failures. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records stage instrumentation. Defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// TranslationStage consumes transcripts, translates them with rolling
// conversational context, and emits [Translation] results. Accepted sentences
// are fed back into the context manager so later translations stay
// consistent with earlier ones.
type TranslationStage struct {
	gen    llm.Generator
	ctxMgr *session.ContextManager
	cfg    TranslationConfig
	log    *slog.Logger
	met    *observe.Metrics

	in  *queue.Bounded[string]
	out *queue.Bounded[Translation]

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTranslationStage creates the stage around the given generator and
// context manager.
func NewTranslationStage(gen llm.Generator, ctxMgr *session.ContextManager, cfg TranslationConfig) *TranslationStage {
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = "English"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 200
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.3
	}
	if len(cfg.StopSequences) == 0 {
		cfg.StopSequences = []string{"\n\n"}
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &TranslationStage{
		gen:    gen,
		ctxMgr: ctxMgr,
		cfg:    cfg,
		log:    cfg.Logger,
		met:    cfg.Metrics,
		in:     queue.NewBounded[string](cfg.QueueSize),
		out:    queue.NewBounded[Translation](cfg.QueueSize),
	}
}

// Submit enqueues a source text for translation, evicting the oldest pending
// text when the queue is full.
func (s *TranslationStage) Submit(text string) {
	if s.in.Send(text) {
		s.met.RecordDrop(context.Background(), "translation_in")
		s.log.Debug("translation input full, dropped oldest text")
	}
}

// Poll returns the next translation, waiting up to timeout.
func (s *TranslationStage) Poll(timeout time.Duration) (Translation, bool) {
	return s.out.Receive(timeout)
}

// Start launches the worker.
func (s *TranslationStage) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrStageRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.worker(ctx, s.done)
	return nil
}

// Stop halts the worker, waiting up to timeout for it to exit.
func (s *TranslationStage) Stop(timeout time.Duration) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(timeout):
		s.log.Warn("translation worker did not stop in time, abandoning")
	}
}

func (s *TranslationStage) worker(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		text, ok := s.in.Receive(receivePoll)
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		start := time.Now()
		translated, err := s.gen.Complete(ctx, llm.Request{
			System:      s.systemPrompt(),
			Prompt:      s.userPrompt(text),
			MaxTokens:   s.cfg.MaxTokens,
			Temperature: s.cfg.Temperature,
			Stop:        s.cfg.StopSequences,
		})
		s.met.TranslationDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.met.RecordProviderError(ctx, "llm", "translate")
			s.met.RecordTranslation(ctx, "error")
			s.log.Error("translation failed, sentence dropped", "text", text, "error", err)
			continue
		}

		translated = strings.TrimSpace(translated)
		if translated == "" {
			s.met.RecordTranslation(ctx, "empty")
			s.log.Warn("empty translation, sentence dropped", "text", text)
			continue
		}

		s.ctxMgr.RecordSentence(ctx, text, translated)

		result := Translation{
			Original:    text,
			Translation: translated,
			Context:     s.ctxMgr.CurrentContext(),
		}
		if s.out.Send(result) {
			s.met.RecordDrop(ctx, "translation_out")
			s.log.Debug("translation output full, dropped oldest result")
		}
		s.met.RecordTranslation(ctx, "ok")
	}
}

// systemPrompt frames the model as an interpreter bound to a single-sentence
// output.
func (s *TranslationStage) systemPrompt() string {
	src := s.cfg.SourceLanguage
	if src == "" {
		src = "the source language"
	}
	return fmt.Sprintf(
		"You are a professional simultaneous interpreter. Translate from %s to %s. "+
			"Use the provided context to resolve pronouns and keep terminology consistent. "+
			"Output only the translation, nothing else.",
		src, s.cfg.TargetLanguage)
}

// userPrompt embeds the rolling context as reference material ahead of the
// sentence to translate.
func (s *TranslationStage) userPrompt(text string) string {
	var sb strings.Builder
	if ctx := s.ctxMgr.CurrentContext(); ctx != "" {
		sb.WriteString(ctx)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Translate: %s", text)
	return sb.String()
}
