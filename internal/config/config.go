// Package config provides configuration loading for locket.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the complete locket configuration.
type Config struct {
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Ranking    RankingConfig    `koanf:"ranking"`
	Summarizer SummarizerConfig `koanf:"summarizer"`
	Retrieval  RetrievalConfig  `koanf:"retrieval"`
	Chat       ChatConfig       `koanf:"chat"`
	Store      StoreConfig      `koanf:"store"`
	Logging    LoggingConfig    `koanf:"logging"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
}

// EmbeddingsConfig selects and configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is one of "fastembed", "tei" or "ollama".
	Provider  string   `koanf:"provider"`
	Model     string   `koanf:"model"`
	Dimension int      `koanf:"dimension"`
	BaseURL   string   `koanf:"base_url"`
	APIKey    Secret   `koanf:"api_key"`
	CacheDir  string   `koanf:"cache_dir"`
	MaxLength int      `koanf:"max_length"`
	Timeout   Duration `koanf:"timeout"`
}

// RankingConfig configures the hybrid aggregator.
type RankingConfig struct {
	// Preset names the fixed weight set: "default" or "legacy".
	Preset        string  `koanf:"preset"`
	MinScore      float64 `koanf:"min_score"`
	SnippetLength int     `koanf:"snippet_length"`
	// Workers bounds parallel document scoring. 1 scores sequentially.
	Workers int `koanf:"workers"`
}

// SummarizerConfig configures extractive summaries and their cache window.
type SummarizerConfig struct {
	MaxSentences int      `koanf:"max_sentences"`
	Freshness    Duration `koanf:"freshness"`
}

// RetrievalConfig configures conversation-aware retrieval.
type RetrievalConfig struct {
	Limit          int     `koanf:"limit"`
	UsableScore    float64 `koanf:"usable_score"`
	HistoryTurns   int     `koanf:"history_turns"`
	ExpansionTurns int     `koanf:"expansion_turns"`
}

// ChatConfig configures the optional language model that writes chat
// answers and titles. An empty provider keeps the template responses.
type ChatConfig struct {
	// Provider is "" or "ollama".
	Provider    string   `koanf:"provider"`
	BaseURL     string   `koanf:"base_url"`
	Model       string   `koanf:"model"`
	Temperature float64  `koanf:"temperature"`
	MaxTokens   int      `koanf:"max_tokens"`
	Timeout     Duration `koanf:"timeout"`
}

// StoreConfig configures the local chromem document store.
type StoreConfig struct {
	// Path is the persistence directory. Empty keeps the store in memory.
	Path       string `koanf:"path"`
	Collection string `koanf:"collection"`
	Compress   bool   `koanf:"compress"`
}

// LoggingConfig holds the subset of logging options exposed in the config file.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TelemetryConfig configures OTLP export of traces and metrics.
type TelemetryConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Endpoint string `koanf:"endpoint"`
	// Protocol is "grpc" or "http/protobuf".
	Protocol        string   `koanf:"protocol"`
	Insecure        bool     `koanf:"insecure"`
	ServiceName     string   `koanf:"service_name"`
	SampleRate      float64  `koanf:"sample_rate"`
	Metrics         bool     `koanf:"metrics"`
	ExportInterval  Duration `koanf:"export_interval"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

var (
	validProviders = map[string]bool{"fastembed": true, "tei": true, "ollama": true}
	validPresets   = map[string]bool{"default": true, "legacy": true}
	validFormats   = map[string]bool{"json": true, "console": true}
	validProtocols = map[string]bool{"grpc": true, "http/protobuf": true}
	validChat      = map[string]bool{"": true, "ollama": true}
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if !validProviders[c.Embeddings.Provider] {
		return fmt.Errorf("embeddings.provider must be fastembed, tei or ollama, got %q", c.Embeddings.Provider)
	}
	if c.Embeddings.Dimension <= 0 {
		return fmt.Errorf("embeddings.dimension must be > 0, got %d", c.Embeddings.Dimension)
	}
	if c.Embeddings.Provider != "fastembed" && c.Embeddings.BaseURL == "" {
		return fmt.Errorf("embeddings.base_url is required for provider %q", c.Embeddings.Provider)
	}

	if !validPresets[c.Ranking.Preset] {
		return fmt.Errorf("ranking.preset must be default or legacy, got %q", c.Ranking.Preset)
	}
	if c.Ranking.MinScore < 0 || c.Ranking.MinScore > 1 {
		return fmt.Errorf("ranking.min_score must be within [0,1], got %v", c.Ranking.MinScore)
	}
	if c.Ranking.SnippetLength <= 0 {
		return fmt.Errorf("ranking.snippet_length must be > 0")
	}
	if c.Ranking.Workers < 1 {
		return fmt.Errorf("ranking.workers must be >= 1, got %d", c.Ranking.Workers)
	}

	if c.Summarizer.MaxSentences <= 0 {
		return fmt.Errorf("summarizer.max_sentences must be > 0")
	}
	if c.Summarizer.Freshness.Duration() <= 0 {
		return fmt.Errorf("summarizer.freshness must be > 0")
	}

	if c.Retrieval.Limit <= 0 {
		return fmt.Errorf("retrieval.limit must be > 0")
	}
	if c.Retrieval.UsableScore < 0 || c.Retrieval.UsableScore > 1 {
		return fmt.Errorf("retrieval.usable_score must be within [0,1], got %v", c.Retrieval.UsableScore)
	}
	if c.Retrieval.ExpansionTurns < 0 || c.Retrieval.ExpansionTurns > c.Retrieval.HistoryTurns {
		return fmt.Errorf("retrieval.expansion_turns must be within [0, history_turns]")
	}

	if !validChat[c.Chat.Provider] {
		return fmt.Errorf("chat.provider must be empty or ollama, got %q", c.Chat.Provider)
	}
	if c.Chat.Provider != "" {
		if c.Chat.BaseURL == "" || c.Chat.Model == "" {
			return fmt.Errorf("chat.base_url and chat.model are required for provider %q", c.Chat.Provider)
		}
		if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
			return fmt.Errorf("chat.temperature must be within [0,2], got %v", c.Chat.Temperature)
		}
		if c.Chat.MaxTokens <= 0 {
			return fmt.Errorf("chat.max_tokens must be > 0")
		}
	}

	if c.Store.Collection == "" {
		return fmt.Errorf("store.collection is required")
	}

	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.Endpoint == "" {
			return fmt.Errorf("telemetry.endpoint is required when telemetry is enabled")
		}
		if !validProtocols[c.Telemetry.Protocol] {
			return fmt.Errorf("telemetry.protocol must be grpc or http/protobuf, got %q", c.Telemetry.Protocol)
		}
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %g", c.Telemetry.SampleRate)
		}
	}
	return nil
}

// applyDefaults sets default values for missing configuration fields. set
// reports whether a key was given explicitly; thresholds where zero is
// meaningful keep an explicit zero.
func applyDefaults(cfg *Config, set func(key string) bool) {
	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "fastembed"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "sentence-transformers/all-MiniLM-L6-v2"
	}
	if cfg.Embeddings.Dimension == 0 {
		cfg.Embeddings.Dimension = 384
	}
	if cfg.Embeddings.BaseURL == "" {
		switch cfg.Embeddings.Provider {
		case "tei":
			cfg.Embeddings.BaseURL = "http://localhost:8080"
		case "ollama":
			cfg.Embeddings.BaseURL = "http://localhost:11434"
		}
	}
	if cfg.Embeddings.CacheDir == "" {
		cfg.Embeddings.CacheDir = "~/.cache/locket/models"
	}
	if cfg.Embeddings.MaxLength == 0 {
		cfg.Embeddings.MaxLength = 512
	}
	if cfg.Embeddings.Timeout == 0 {
		cfg.Embeddings.Timeout = Duration(30 * time.Second)
	}

	if cfg.Ranking.Preset == "" {
		cfg.Ranking.Preset = "default"
	}
	if cfg.Ranking.MinScore == 0 && !set("ranking.min_score") {
		cfg.Ranking.MinScore = 0.1
	}
	if cfg.Ranking.SnippetLength == 0 {
		cfg.Ranking.SnippetLength = 200
	}
	if cfg.Ranking.Workers == 0 {
		cfg.Ranking.Workers = 4
	}

	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 5
	}
	if cfg.Summarizer.Freshness == 0 {
		cfg.Summarizer.Freshness = Duration(30 * 24 * time.Hour)
	}

	if cfg.Retrieval.Limit == 0 {
		cfg.Retrieval.Limit = 5
	}
	if cfg.Retrieval.UsableScore == 0 && !set("retrieval.usable_score") {
		cfg.Retrieval.UsableScore = 0.15
	}
	if cfg.Retrieval.HistoryTurns == 0 {
		cfg.Retrieval.HistoryTurns = 4
	}
	if cfg.Retrieval.ExpansionTurns == 0 {
		cfg.Retrieval.ExpansionTurns = 2
	}

	if cfg.Chat.BaseURL == "" {
		cfg.Chat.BaseURL = "http://localhost:11434"
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "llama3.2:3b"
	}
	if cfg.Chat.Temperature == 0 && !set("chat.temperature") {
		cfg.Chat.Temperature = 0.7
	}
	if cfg.Chat.MaxTokens == 0 {
		cfg.Chat.MaxTokens = 2000
	}
	if cfg.Chat.Timeout == 0 {
		cfg.Chat.Timeout = Duration(30 * time.Second)
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = "~/.local/share/locket/store"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "documents"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.Endpoint == "" {
		cfg.Telemetry.Endpoint = "localhost:4317"
	}
	if cfg.Telemetry.Protocol == "" {
		cfg.Telemetry.Protocol = "grpc"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "locket"
	}
	if cfg.Telemetry.SampleRate == 0 && !set("telemetry.sample_rate") {
		cfg.Telemetry.SampleRate = 1
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = Duration(15 * time.Second)
	}
	if cfg.Telemetry.ShutdownTimeout == 0 {
		cfg.Telemetry.ShutdownTimeout = Duration(5 * time.Second)
	}
}

// Default returns a configuration populated only with defaults.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg, func(string) bool { return false })
	return cfg
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
