package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per capability kind.
var ValidProviderNames = map[string][]string{
	"stt": {"whisper"},
	"llm": {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

// Load reads the YAML configuration file at path, fills unset fields from
// [Default], and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over [Default] values and
// validates the result. Unknown YAML keys are rejected so typos surface at
// startup rather than as silently-ignored settings.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must be positive", cfg.Audio.SampleRate))
	}
	if cfg.Audio.ChunkDurationSeconds <= 0 {
		errs = append(errs, fmt.Errorf("audio.chunk_duration_seconds %v must be positive", cfg.Audio.ChunkDurationSeconds))
	}

	if cfg.Providers.STT.Name != "" && !slices.Contains(ValidProviderNames["stt"], cfg.Providers.STT.Name) {
		errs = append(errs, fmt.Errorf("providers.stt.name %q is unknown; valid values: %v", cfg.Providers.STT.Name, ValidProviderNames["stt"]))
	}
	if cfg.Providers.STT.Name == "whisper" && cfg.Providers.STT.ModelPath == "" {
		errs = append(errs, errors.New("providers.stt.model_path is required for the whisper recognizer"))
	}

	if cfg.Providers.LLM.Name != "" {
		if !slices.Contains(ValidProviderNames["llm"], cfg.Providers.LLM.Name) {
			errs = append(errs, fmt.Errorf("providers.llm.name %q is unknown; valid values: %v", cfg.Providers.LLM.Name, ValidProviderNames["llm"]))
		}
		if cfg.Providers.LLM.Model == "" {
			errs = append(errs, errors.New("providers.llm.model is required when providers.llm.name is set"))
		}
	}
	if fb := cfg.Providers.LLM.Fallback; fb != nil {
		if !slices.Contains(ValidProviderNames["llm"], fb.Name) {
			errs = append(errs, fmt.Errorf("providers.llm.fallback.name %q is unknown; valid values: %v", fb.Name, ValidProviderNames["llm"]))
		}
		if fb.Model == "" {
			errs = append(errs, errors.New("providers.llm.fallback.model is required when a fallback is configured"))
		}
	}

	if cfg.Translation.ContextWindowSize < 0 {
		errs = append(errs, fmt.Errorf("translation.context_window_size %d must not be negative", cfg.Translation.ContextWindowSize))
	}
	if cfg.Translation.SummaryUpdateInterval < 0 {
		errs = append(errs, fmt.Errorf("translation.summary_update_interval %d must not be negative", cfg.Translation.SummaryUpdateInterval))
	}
	if cfg.Translation.Temperature < 0 || cfg.Translation.Temperature > 2 {
		errs = append(errs, fmt.Errorf("translation.temperature %.2f is out of range [0, 2]", cfg.Translation.Temperature))
	}
	if cfg.Translation.TargetLanguage == "" {
		errs = append(errs, errors.New("translation.target_language is required"))
	}

	for _, q := range []struct {
		name string
		cap  int
	}{
		{"queues.audio", cfg.Queues.Audio},
		{"queues.transcription", cfg.Queues.Transcription},
		{"queues.translation", cfg.Queues.Translation},
	} {
		if q.cap <= 0 {
			errs = append(errs, fmt.Errorf("%s %d must be positive", q.name, q.cap))
		}
	}

	return errors.Join(errs...)
}
