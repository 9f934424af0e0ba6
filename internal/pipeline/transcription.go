package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/MrWong99/linguaflow/internal/observe"
	"github.com/MrWong99/linguaflow/pkg/audio"
	"github.com/MrWong99/linguaflow/pkg/provider/stt"
	"github.com/MrWong99/linguaflow/pkg/queue"
)

// silenceRMS is the energy-gate threshold. Chunks quieter than this are
// treated as silence and never reach the recognizer.
const silenceRMS = 0.01

// receivePoll is how long stage workers block on their input queue before
// re-checking the running flag.
const receivePoll = 200 * time.Millisecond

// ErrStageRunning is returned when Start is called on a running stage.
var ErrStageRunning = errors.New("pipeline: stage already running")

// TranscriptionConfig configures a [TranscriptionStage].
type TranscriptionConfig struct {
	// Language is the spoken language passed to the recognizer;
	// empty lets the recognizer default apply.
	Language string

	// QueueSize is the capacity of both the input and output queue.
	// Default: 10.
	QueueSize int

	// Logger receives gate and recognizer events. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics records stage instrumentation. Defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// TranscriptionStage consumes audio chunks and emits transcripts. A single
// worker drains the input queue; silent chunks are gated out before they cost
// an inference.
type TranscriptionStage struct {
	rec stt.Recognizer
	cfg TranscriptionConfig
	log *slog.Logger
	met *observe.Metrics

	in  *queue.Bounded[audio.Chunk]
	out *queue.Bounded[Transcript]

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTranscriptionStage creates the stage around the given recognizer.
func NewTranscriptionStage(rec stt.Recognizer, cfg TranscriptionConfig) *TranscriptionStage {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	return &TranscriptionStage{
		rec: rec,
		cfg: cfg,
		log: cfg.Logger,
		met: cfg.Metrics,
		in:  queue.NewBounded[audio.Chunk](cfg.QueueSize),
		out: queue.NewBounded[Transcript](cfg.QueueSize),
	}
}

// Submit enqueues a chunk for recognition, evicting the oldest pending chunk
// when the queue is full.
func (s *TranscriptionStage) Submit(chunk audio.Chunk) {
	if s.in.Send(chunk) {
		s.met.RecordDrop(context.Background(), "transcription_in")
		s.log.Debug("transcription input full, dropped oldest chunk")
	}
}

// Poll returns the next transcript, waiting up to timeout.
func (s *TranscriptionStage) Poll(timeout time.Duration) (Transcript, bool) {
	return s.out.Receive(timeout)
}

// Start launches the worker.
func (s *TranscriptionStage) Start() error {
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

// Stop halts the worker, waiting up to timeout for it to exit. A worker stuck
// inside a recognizer call past the timeout is abandoned and logged.
func (s *TranscriptionStage) Stop(timeout time.Duration) {
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
		s.log.Warn("transcription worker did not stop in time, abandoning")
	}
}

func (s *TranscriptionStage) worker(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		chunk, ok := s.in.Receive(receivePoll)
		if !ok {
			continue
		}

		if audio.RMS(chunk.Samples) < silenceRMS {
			s.met.ChunksGated.Add(ctx, 1)
			continue
		}

		start := time.Now()
		res, err := s.rec.Transcribe(ctx, stt.Request{
			Samples:    chunk.Samples,
			SampleRate: chunk.SampleRate,
			Language:   s.cfg.Language,
			VADFilter:  true,
		})
		s.met.TranscriptionDuration.Record(ctx, time.Since(start).Seconds())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.met.RecordProviderError(ctx, "stt", "transcribe")
			if errors.Is(err, stt.ErrNotReady) {
				s.log.Warn("recognizer not ready, chunk skipped")
			} else {
				s.log.Error("transcription failed", "error", err)
			}
			continue
		}

		t := buildTranscript(res)
		if t.Text == "" {
			continue
		}
		if s.out.Send(t) {
			s.met.RecordDrop(ctx, "transcription_out")
			s.log.Debug("transcript queue full, dropped oldest")
		}
	}
}

// buildTranscript concatenates segment texts and flattens word timings into
// one ordered list. Segments without word timing fall back to per-character
// spans so logographic text still yields display-able units.
func buildTranscript(res *stt.Result) Transcript {
	var t Transcript
	var sb strings.Builder

	for _, seg := range res.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(text)

		if len(seg.Words) > 0 {
			for _, w := range seg.Words {
				t.Words = append(t.Words, WordSpan{Text: w.Text, Start: w.Start, End: w.End})
			}
			continue
		}
		t.Words = append(t.Words, charSpans(text, seg.Start, seg.End)...)
	}

	if sb.Len() == 0 {
		// Some recognizers fill only the top-level text.
		sb.WriteString(strings.TrimSpace(res.Text))
	}
	t.Text = sb.String()
	return t
}

// charSpans splits text into per-rune spans with timings interpolated across
// the segment. Whitespace runes carry no information and are skipped.
func charSpans(text string, start, end time.Duration) []WordSpan {
	runes := []rune(text)
	n := 0
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	if n == 0 {
		return nil
	}

	span := end - start
	if span < 0 {
		span = 0
	}
	per := span / time.Duration(n)

	out := make([]WordSpan, 0, n)
	i := 0
	for _, r := range runes {
		if unicode.IsSpace(r) {
			continue
		}
		ws := WordSpan{
			Text:  string(r),
			Start: start + time.Duration(i)*per,
			End:   start + time.Duration(i+1)*per,
		}
		out = append(out, ws)
		i++
	}
	return out
}
