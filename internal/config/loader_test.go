package config

import (
	"strings"
	"testing"
	"time"
)

const validYAML = `
server:
  log_level: debug
  metrics_addr: ":9091"
audio:
  device_id: "hw:1"
  sample_rate: 48000
  chunk_duration_seconds: 1.5
providers:
  stt:
    name: whisper
    model_path: /models/ggml-base.bin
    language: ja
  llm:
    name: openai
    api_key: sk-test
    model: gpt-4o-mini
translation:
  source_language: ja
  target_language: en
  context_window_size: 8
  summary_update_interval: 4
  stop_sequences: ["\n\n", "###"]
queues:
  audio: 5
`

func TestLoadFromReaderOverridesDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader() error: %v", err)
	}

	if cfg.Server.LogLevel != LogDebug {
		t.Errorf("LogLevel = %q, want debug", cfg.Server.LogLevel)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", cfg.Audio.SampleRate)
	}
	if got := cfg.Audio.ChunkDuration(); got != 1500*time.Millisecond {
		t.Errorf("ChunkDuration() = %v, want 1.5s", got)
	}
	if cfg.Providers.STT.ModelPath != "/models/ggml-base.bin" {
		t.Errorf("ModelPath = %q", cfg.Providers.STT.ModelPath)
	}
	if cfg.Translation.ContextWindowSize != 8 {
		t.Errorf("ContextWindowSize = %d, want 8", cfg.Translation.ContextWindowSize)
	}

	// Fields absent from the YAML keep their defaults.
	if cfg.Queues.Transcription != 10 {
		t.Errorf("Queues.Transcription = %d, want default 10", cfg.Queues.Transcription)
	}
	if cfg.Translation.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want default 0.3", cfg.Translation.Temperature)
	}
	// Explicit override of a defaulted queue.
	if cfg.Queues.Audio != 5 {
		t.Errorf("Queues.Audio = %d, want 5", cfg.Queues.Audio)
	}
}

func TestLoadFromReaderEmptyYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader() error: %v", err)
	}
	def := Default()
	if cfg.Audio.SampleRate != def.Audio.SampleRate {
		t.Errorf("SampleRate = %d, want default %d", cfg.Audio.SampleRate, def.Audio.SampleRate)
	}
	if cfg.Providers.STT.Name != "whisper" {
		t.Errorf("STT.Name = %q, want whisper", cfg.Providers.STT.Name)
	}
}

func TestLoadFromReaderRejectsUnknownKeys(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("audio:\n  sample_rte: 16000\n"))
	if err == nil {
		t.Fatal("LoadFromReader() accepted a misspelled key")
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{
			"bad log level",
			func(c *Config) { c.Server.LogLevel = "verbose" },
			"log_level",
		},
		{
			"zero sample rate",
			func(c *Config) { c.Audio.SampleRate = 0 },
			"sample_rate",
		},
		{
			"unknown stt provider",
			func(c *Config) { c.Providers.STT.Name = "kaldi" },
			"providers.stt.name",
		},
		{
			"whisper without model path",
			func(c *Config) { c.Providers.STT.ModelPath = "" },
			"model_path",
		},
		{
			"llm without model",
			func(c *Config) { c.Providers.LLM.Name = "ollama" },
			"providers.llm.model",
		},
		{
			"fallback without model",
			func(c *Config) { c.Providers.LLM.Fallback = &FallbackLLMConfig{Name: "ollama"} },
			"fallback.model",
		},
		{
			"temperature out of range",
			func(c *Config) { c.Translation.Temperature = 3 },
			"temperature",
		},
		{
			"missing target language",
			func(c *Config) { c.Translation.TargetLanguage = "" },
			"target_language",
		},
		{
			"zero queue capacity",
			func(c *Config) { c.Queues.Translation = 0 },
			"queues.translation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Providers.STT.ModelPath = "/models/test.bin"
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("Validate() error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := Default()
	cfg.Providers.STT.ModelPath = "/models/test.bin"
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate(Default()) = %v", err)
	}
}
