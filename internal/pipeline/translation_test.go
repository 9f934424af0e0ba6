package pipeline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/linguaflow/internal/session"
	llmmock "github.com/MrWong99/linguaflow/pkg/provider/llm/mock"
)

func newTestContextManager() *session.ContextManager {
	return session.NewContextManager(session.ContextManagerConfig{
		WindowSize:     5,
		UpdateInterval: 100, // keep the summariser out of these tests
		Summariser:     &session.HeuristicSummariser{},
		Logger:         testLogger(),
	})
}

func newTestTranslation(t *testing.T, gen *llmmock.Generator, cm *session.ContextManager) *TranslationStage {
	t.Helper()
	s := NewTranslationStage(gen, cm, TranslationConfig{
		SourceLanguage: "Japanese",
		TargetLanguage: "English",
		StopSequences:  []string{"\n\n"},
		Logger:         testLogger(),
		Metrics:        testMetrics(t),
	})
	if err := s.Start(); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { s.Stop(time.Second) })
	return s
}

func TestTranslationEmitsResult(t *testing.T) {
	gen := &llmmock.Generator{Result: " Good morning. "}
	cm := newTestContextManager()
	s := newTestTranslation(t, gen, cm)

	s.Submit("おはようございます")

	r, ok := s.Poll(2 * time.Second)
	if !ok {
		t.Fatal("no translation")
	}
	if r.Original != "おはようございます" {
		t.Errorf("Original = %q", r.Original)
	}
	if r.Translation != "Good morning." {
		t.Errorf("Translation = %q, want trimmed result", r.Translation)
	}
	if !strings.Contains(r.Context, "おはようございます") {
		t.Errorf("Context snapshot %q missing the recorded sentence", r.Context)
	}

	// The sentence must have been recorded in the rolling window.
	hist := cm.History()
	if len(hist) != 1 || hist[0].Translation != "Good morning." {
		t.Errorf("History() = %+v", hist)
	}

	req := gen.LastCall()
	if !strings.Contains(req.Prompt, "Translate: おはようございます") {
		t.Errorf("prompt = %q", req.Prompt)
	}
	if !strings.Contains(req.System, "Japanese") || !strings.Contains(req.System, "English") {
		t.Errorf("system prompt = %q", req.System)
	}
	if len(req.Stop) == 0 {
		t.Error("no stop sequences passed")
	}
}

func TestTranslationPromptCarriesContext(t *testing.T) {
	gen := &llmmock.Generator{Result: "Second."}
	cm := newTestContextManager()
	s := newTestTranslation(t, gen, cm)

	s.Submit("first sentence")
	if _, ok := s.Poll(2 * time.Second); !ok {
		t.Fatal("no first translation")
	}

	s.Submit("second sentence")
	if _, ok := s.Poll(2 * time.Second); !ok {
		t.Fatal("no second translation")
	}

	req := gen.LastCall()
	if !strings.Contains(req.Prompt, "Recent speech:") || !strings.Contains(req.Prompt, "first sentence") {
		t.Errorf("second prompt %q missing context from first sentence", req.Prompt)
	}
}

func TestTranslationSuppressesFailures(t *testing.T) {
	gen := &llmmock.Generator{Err: errors.New("model offline")}
	cm := newTestContextManager()
	s := newTestTranslation(t, gen, cm)

	s.Submit("irgendwas")

	if _, ok := s.Poll(500 * time.Millisecond); ok {
		t.Error("failed generation emitted a result")
	}
	if len(cm.History()) != 0 {
		t.Error("failed sentence was recorded in context")
	}
}

func TestTranslationSuppressesEmptyOutput(t *testing.T) {
	gen := &llmmock.Generator{Result: "   "}
	cm := newTestContextManager()
	s := newTestTranslation(t, gen, cm)

	s.Submit("something")

	if _, ok := s.Poll(500 * time.Millisecond); ok {
		t.Error("empty generation emitted a result")
	}
	if len(cm.History()) != 0 {
		t.Error("empty-result sentence was recorded in context")
	}
}

func TestTranslationSkipsBlankInput(t *testing.T) {
	gen := &llmmock.Generator{Result: "unused"}
	cm := newTestContextManager()
	s := newTestTranslation(t, gen, cm)

	s.Submit("   ")
	time.Sleep(300 * time.Millisecond)

	if gen.CallCount() != 0 {
		t.Errorf("generator called %d times for blank input, want 0", gen.CallCount())
	}
}
