// Package config provides the configuration schema and loader for the
// LinguaFlow translation pipeline.
package config

import "time"

// LogLevel controls log verbosity for the LinguaFlow server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for LinguaFlow.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Audio       AudioConfig       `yaml:"audio"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Translation TranslationConfig `yaml:"translation"`
	Queues      QueuesConfig      `yaml:"queues"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MetricsAddr is the TCP address serving Prometheus metrics
	// (e.g., ":9090"). Empty disables the metrics endpoint.
	MetricsAddr string `yaml:"metrics_addr"`

	// DisplayAddr is the TCP address serving the websocket display feed
	// (e.g., ":8080"). Empty disables the feed.
	DisplayAddr string `yaml:"display_addr"`
}

// AudioConfig configures the capture device and chunking.
type AudioConfig struct {
	// DeviceID selects the input device. Empty uses the platform default.
	DeviceID string `yaml:"device_id"`

	// SampleRate is the target sample rate in Hz after normalization.
	SampleRate int `yaml:"sample_rate"`

	// ChunkDurationSeconds is the length of each audio chunk sent to
	// transcription, in seconds.
	ChunkDurationSeconds float64 `yaml:"chunk_duration_seconds"`
}

// ChunkDuration returns the chunk length as a [time.Duration].
func (a AudioConfig) ChunkDuration() time.Duration {
	return time.Duration(a.ChunkDurationSeconds * float64(time.Second))
}

// ProvidersConfig declares which backend to use for each capability.
type ProvidersConfig struct {
	STT STTConfig `yaml:"stt"`
	LLM LLMConfig `yaml:"llm"`
}

// STTConfig configures the speech-to-text backend.
type STTConfig struct {
	// Name selects the recognizer implementation. Currently "whisper".
	Name string `yaml:"name"`

	// ModelPath is the path to the whisper.cpp model file (.bin).
	ModelPath string `yaml:"model_path"`

	// Language is the spoken language code (e.g., "ja"); "auto" detects.
	Language string `yaml:"language"`

	// Threads caps inference threads. Zero lets the backend decide.
	Threads int `yaml:"threads"`
}

// LLMConfig configures the text-generation backend used for translation and
// summarisation.
type LLMConfig struct {
	// Name selects the backend: "openai" uses the OpenAI SDK directly, any
	// other supported name ("anthropic", "ollama", ...) goes through the
	// any-llm bridge.
	Name string `yaml:"name"`

	// APIKey authenticates against the backend. Empty falls back to the
	// backend's environment variable.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the backend's default API endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model (e.g., "gpt-4o-mini", "qwen2.5:7b").
	Model string `yaml:"model"`

	// Fallback optionally configures a second backend used when the primary
	// keeps failing.
	Fallback *FallbackLLMConfig `yaml:"fallback"`
}

// FallbackLLMConfig configures the standby generation backend.
type FallbackLLMConfig struct {
	Name    string `yaml:"name"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// TranslationConfig tunes the translation stage and its rolling context.
type TranslationConfig struct {
	// SourceLanguage is the language being spoken (e.g., "ja").
	SourceLanguage string `yaml:"source_language"`

	// TargetLanguage is the language translations are produced in.
	TargetLanguage string `yaml:"target_language"`

	// ContextWindowSize is the number of recent sentence pairs kept verbatim.
	ContextWindowSize int `yaml:"context_window_size"`

	// SummaryUpdateInterval is the number of sentences between rolling
	// summary refreshes.
	SummaryUpdateInterval int `yaml:"summary_update_interval"`

	// MaxContextChars caps the rolling summary length.
	MaxContextChars int `yaml:"max_context_chars"`

	// MaxTokens caps each translation completion.
	MaxTokens int `yaml:"max_tokens"`

	// Temperature is the sampling temperature for translation requests.
	Temperature float64 `yaml:"temperature"`

	// StopSequences end generation so the model emits exactly one
	// translation.
	StopSequences []string `yaml:"stop_sequences"`
}

// QueuesConfig sets the capacity of each stage's queues.
type QueuesConfig struct {
	Audio         int `yaml:"audio"`
	Transcription int `yaml:"transcription"`
	Translation   int `yaml:"translation"`
}

// Default returns a Config populated with working defaults: 16 kHz capture in
// 3-second chunks, a five-entry context window refreshed every third
// sentence, and capacity-10 queues.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			LogLevel:    LogInfo,
			MetricsAddr: ":9090",
		},
		Audio: AudioConfig{
			SampleRate:           16000,
			ChunkDurationSeconds: 3,
		},
		Providers: ProvidersConfig{
			STT: STTConfig{
				Name:     "whisper",
				Language: "auto",
			},
		},
		Translation: TranslationConfig{
			SourceLanguage:        "ja",
			TargetLanguage:        "en",
			ContextWindowSize:     5,
			SummaryUpdateInterval: 3,
			MaxContextChars:       200,
			MaxTokens:             200,
			Temperature:           0.3,
			StopSequences:         []string{"\n\n"},
		},
		Queues: QueuesConfig{
			Audio:         10,
			Transcription: 10,
			Translation:   10,
		},
	}
}
