package resilience

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/MrWong99/linguaflow/pkg/provider/llm"
	llmmock "github.com/MrWong99/linguaflow/pkg/provider/llm/mock"
	"github.com/MrWong99/linguaflow/pkg/provider/stt"
	sttmock "github.com/MrWong99/linguaflow/pkg/provider/stt/mock"
)

func testFallbackConfig() FallbackConfig {
	return FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{
			MaxFailures:  2,
			ResetTimeout: time.Hour,
		},
		Logger: slog.New(slog.DiscardHandler),
	}
}

func TestGeneratorFallbackUsesPrimaryWhenHealthy(t *testing.T) {
	primary := &llmmock.Generator{Result: "from primary"}
	backup := &llmmock.Generator{Result: "from backup"}

	f := NewGeneratorFallback(primary, "primary", testFallbackConfig())
	f.AddFallback("backup", backup)

	got, err := f.Complete(context.Background(), llm.Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "from primary" {
		t.Errorf("Complete() = %q, want primary result", got)
	}
	if backup.CallCount() != 0 {
		t.Errorf("backup called %d times, want 0", backup.CallCount())
	}
}

func TestGeneratorFallbackFailsOver(t *testing.T) {
	primary := &llmmock.Generator{Err: errors.New("rate limited")}
	backup := &llmmock.Generator{Result: "from backup"}

	f := NewGeneratorFallback(primary, "primary", testFallbackConfig())
	f.AddFallback("backup", backup)

	got, err := f.Complete(context.Background(), llm.Request{Prompt: "hi"})
	if err != nil {
		t.Fatalf("Complete() error: %v", err)
	}
	if got != "from backup" {
		t.Errorf("Complete() = %q, want backup result", got)
	}
}

func TestGeneratorFallbackSkipsOpenBreaker(t *testing.T) {
	primary := &llmmock.Generator{Err: errors.New("down")}
	backup := &llmmock.Generator{Result: "ok"}

	f := NewGeneratorFallback(primary, "primary", testFallbackConfig())
	f.AddFallback("backup", backup)

	// Two failures trip the primary's breaker (MaxFailures = 2).
	for i := 0; i < 3; i++ {
		if _, err := f.Complete(context.Background(), llm.Request{Prompt: "hi"}); err != nil {
			t.Fatalf("call %d failed: %v", i, err)
		}
	}

	// The third call must not have reached the primary.
	if got := primary.CallCount(); got != 2 {
		t.Errorf("primary called %d times, want 2", got)
	}
	if got := backup.CallCount(); got != 3 {
		t.Errorf("backup called %d times, want 3", got)
	}
}

func TestGeneratorFallbackAllFailed(t *testing.T) {
	primary := &llmmock.Generator{Err: errors.New("down")}
	f := NewGeneratorFallback(primary, "primary", testFallbackConfig())

	_, err := f.Complete(context.Background(), llm.Request{Prompt: "hi"})
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("err = %v, want ErrAllFailed", err)
	}
}

func TestRecognizerFallbackFailsOver(t *testing.T) {
	primary := &sttmock.Recognizer{Err: errors.New("timeout")}
	backup := &sttmock.Recognizer{Result: &stt.Result{Text: "hello"}}

	f := NewRecognizerFallback(primary, "large", testFallbackConfig())
	f.AddFallback("small", backup)

	res, err := f.Transcribe(context.Background(), stt.Request{SampleRate: 16000})
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if res.Text != "hello" {
		t.Errorf("Text = %q, want %q", res.Text, "hello")
	}
}
