package session

import (
	"context"
	"strings"
	"testing"

	llmmock "github.com/MrWong99/linguaflow/pkg/provider/llm/mock"
)

func TestLLMSummariserPromptContents(t *testing.T) {
	gen := &llmmock.Generator{Result: "  a short summary \n"}
	s := NewLLMSummariser(gen)

	got, err := s.Summarise(context.Background(), "old summary", []Entry{
		{Original: "first sentence"},
		{Original: "second sentence"},
	})
	if err != nil {
		t.Fatalf("Summarise() error: %v", err)
	}
	if got != "a short summary" {
		t.Errorf("Summarise() = %q, want trimmed result", got)
	}

	req := gen.LastCall()
	if !strings.Contains(req.Prompt, "Earlier summary: old summary") {
		t.Errorf("prompt missing previous summary: %q", req.Prompt)
	}
	if !strings.Contains(req.Prompt, "1. first sentence") || !strings.Contains(req.Prompt, "2. second sentence") {
		t.Errorf("prompt missing numbered entries: %q", req.Prompt)
	}
	if req.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", req.Temperature)
	}
}

func TestLLMSummariserEmptyEntriesSkipsModel(t *testing.T) {
	gen := &llmmock.Generator{Result: "unused"}
	s := NewLLMSummariser(gen)

	got, err := s.Summarise(context.Background(), "keep me", nil)
	if err != nil {
		t.Fatalf("Summarise() error: %v", err)
	}
	if got != "keep me" {
		t.Errorf("Summarise() = %q, want previous summary", got)
	}
	if gen.CallCount() != 0 {
		t.Errorf("generator called %d times, want 0", gen.CallCount())
	}
}

func TestHeuristicSummariser(t *testing.T) {
	s := &HeuristicSummariser{}
	entries := []Entry{
		{Original: "dropped because only the last three count"},
		{Original: "we should meet tomorrow"},
		{Original: "bring the report"},
		{Original: "and the quarterly numbers from accounting please"},
	}

	got, err := s.Summarise(context.Background(), "", entries)
	if err != nil {
		t.Fatalf("Summarise() error: %v", err)
	}

	want := "we should meet tomorrow → bring the report → and the quarterly numbers from"
	if got != want {
		t.Errorf("Summarise() = %q, want %q", got, want)
	}
}

func TestHeuristicSummariserRuneSafe(t *testing.T) {
	s := &HeuristicSummariser{MaxRunesPerEntry: 4}
	got, err := s.Summarise(context.Background(), "", []Entry{{Original: "こんにちは世界"}})
	if err != nil {
		t.Fatalf("Summarise() error: %v", err)
	}
	if got != "こんにち" {
		t.Errorf("Summarise() = %q, want %q", got, "こんにち")
	}
}
