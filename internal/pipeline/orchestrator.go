package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/MrWong99/linguaflow/internal/capture"
	"github.com/MrWong99/linguaflow/internal/observe"
)

// joinTimeout is how long Stop waits for each worker before abandoning it.
const joinTimeout = 2 * time.Second

// ErrAlreadyRunning is returned by [Orchestrator.Start] when the pipeline is
// not idle.
var ErrAlreadyRunning = errors.New("pipeline: already running")

// State is the orchestrator lifecycle state.
type State int

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Callbacks are the outbound hooks to the presentation layer. Nil callbacks
// are skipped. Both are invoked from forwarder goroutines, so they must be
// fast or hand off internally.
type Callbacks struct {
	// OnPartialWord fires once per recognized word, before translation.
	OnPartialWord func(word string)

	// OnTranslation fires once per completed translation.
	OnTranslation func(t Translation)
}

// Orchestrator owns the stages and the three forwarding loops that connect
// them: audio → transcription, transcription → translation, and
// translation → display. Start brings the stages up bottom-up and rolls back
// on failure; Stop tears down top-down, joining each worker with a timeout.
type Orchestrator struct {
	source *capture.Source
	stt    *TranscriptionStage
	tr     *TranslationStage
	cb     Callbacks
	log    *slog.Logger
	met    *observe.Metrics

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	joined []chan struct{}
}

// OrchestratorConfig configures an [Orchestrator].
type OrchestratorConfig struct {
	Source        *capture.Source
	Transcription *TranscriptionStage
	Translation   *TranslationStage
	Callbacks     Callbacks

	// Logger receives lifecycle events. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records pipeline instrumentation. Defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// NewOrchestrator assembles the pipeline from its stages.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &Orchestrator{
		source: cfg.Source,
		stt:    cfg.Transcription,
		tr:     cfg.Translation,
		cb:     cfg.Callbacks,
		log:    cfg.Logger,
		met:    cfg.Metrics,
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Start brings the pipeline up: stage workers first, then the capture
// device, then the forwarding loops. If the device fails to open, the
// already-started stages are stopped again and the error is returned; a
// partial pipeline is never left running. Starting a non-idle pipeline
// returns [ErrAlreadyRunning].
func (o *Orchestrator) Start(ctx context.Context, deviceID string) error {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return ErrAlreadyRunning
	}
	o.state = StateStarting
	o.mu.Unlock()

	rollback := func() {
		o.stt.Stop(joinTimeout)
		o.tr.Stop(joinTimeout)
		o.mu.Lock()
		o.state = StateIdle
		o.mu.Unlock()
	}

	// Downstream stages first so nothing queued is left unconsumed.
	if err := o.stt.Start(); err != nil {
		o.mu.Lock()
		o.state = StateIdle
		o.mu.Unlock()
		return fmt.Errorf("pipeline: start transcription: %w", err)
	}
	if err := o.tr.Start(); err != nil {
		o.stt.Stop(joinTimeout)
		o.mu.Lock()
		o.state = StateIdle
		o.mu.Unlock()
		return fmt.Errorf("pipeline: start translation: %w", err)
	}

	if err := o.source.Open(ctx, deviceID); err != nil {
		rollback()
		return err
	}
	if err := o.source.Start(); err != nil {
		rollback()
		return fmt.Errorf("pipeline: start capture: %w", err)
	}

	fctx, cancel := context.WithCancel(context.Background())

	o.mu.Lock()
	o.cancel = cancel
	o.joined = nil
	for _, loop := range []func(context.Context){
		o.forwardAudio,
		o.forwardTranscripts,
		o.forwardTranslations,
	} {
		done := make(chan struct{})
		o.joined = append(o.joined, done)
		go func(loop func(context.Context), done chan struct{}) {
			defer close(done)
			loop(fctx)
		}(loop, done)
	}
	o.state = StateRunning
	o.mu.Unlock()

	o.met.ActivePipelines.Add(ctx, 1)
	o.log.Info("pipeline running", "device", deviceID)
	return nil
}

// Stop tears the pipeline down: capture first so no new audio enters, then
// the forwarders, then the stage workers. Each worker is joined with a
// timeout; a worker that does not exit in time is abandoned and logged.
// Stopping an idle pipeline is a no-op.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		return
	}
	o.state = StateStopping
	cancel := o.cancel
	joined := o.joined
	o.mu.Unlock()

	o.source.Stop()

	cancel()
	for _, done := range joined {
		select {
		case <-done:
		case <-time.After(joinTimeout):
			o.log.Warn("forwarder did not stop in time, abandoning")
		}
	}

	o.stt.Stop(joinTimeout)
	o.tr.Stop(joinTimeout)

	o.mu.Lock()
	o.state = StateIdle
	o.mu.Unlock()

	o.met.ActivePipelines.Add(context.Background(), -1)
	o.log.Info("pipeline stopped")
}

// Close stops the pipeline and releases the capture device.
func (o *Orchestrator) Close() error {
	o.Stop()
	return o.source.Close()
}

// forwardAudio drains captured chunks into the transcription stage.
func (o *Orchestrator) forwardAudio(ctx context.Context) {
	for ctx.Err() == nil {
		chunk, ok := o.source.Next(receivePoll)
		if !ok {
			continue
		}
		o.stt.Submit(chunk)
	}
}

// forwardTranscripts emits per-word partial callbacks and feeds the
// transcript text into the translation stage.
func (o *Orchestrator) forwardTranscripts(ctx context.Context) {
	for ctx.Err() == nil {
		t, ok := o.stt.Poll(receivePoll)
		if !ok {
			continue
		}
		if o.cb.OnPartialWord != nil {
			for _, w := range t.Words {
				o.cb.OnPartialWord(w.Text)
			}
			o.met.PartialWords.Add(ctx, int64(len(t.Words)))
		}
		o.tr.Submit(t.Text)
	}
}

// forwardTranslations delivers completed translations to the display sink.
func (o *Orchestrator) forwardTranslations(ctx context.Context) {
	for ctx.Err() == nil {
		r, ok := o.tr.Poll(receivePoll)
		if !ok {
			continue
		}
		if o.cb.OnTranslation != nil {
			o.cb.OnTranslation(r)
		}
	}
}
