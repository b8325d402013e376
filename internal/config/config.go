// Package config loads project settings from docweave.yml.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dusk-indust/docweave/internal/orchestrator"
	"github.com/dusk-indust/docweave/internal/synth"
	"gopkg.in/yaml.v3"
)

// DefaultStorePath is where the Kuzu database lives when the config file
// does not say otherwise. It is relative to the project directory.
const DefaultStorePath = ".docweave/graph.kuzu"

// ProjectConfig holds project-level settings loaded from docweave.yml.
type ProjectConfig struct {
	Store       StoreConfig     `yaml:"store,omitempty"`
	Scheduler   SchedulerConfig `yaml:"scheduler,omitempty"`
	LLM         LLMConfig       `yaml:"llm,omitempty"`
	MetricsAddr string          `yaml:"metricsAddr,omitempty"`
	Verbose     bool            `yaml:"verbose,omitempty"`
}

// StoreConfig locates the graph database.
type StoreConfig struct {
	Path string `yaml:"path,omitempty"`
}

// SchedulerConfig mirrors orchestrator.Config. Durations use Go syntax
// ("45s", "2m").
type SchedulerConfig struct {
	Workers       int           `yaml:"workers,omitempty"`
	BatchSize     int           `yaml:"batchSize,omitempty"`
	Overwrite     bool          `yaml:"overwrite,omitempty"`
	NodeTimeout   time.Duration `yaml:"nodeTimeout,omitempty"`
	StallRounds   int           `yaml:"stallRounds,omitempty"`
	MaxIterations int           `yaml:"maxIterations,omitempty"`
}

// LLMConfig selects the OpenAI-compatible endpoint used for synthesis.
type LLMConfig struct {
	BaseURL           string  `yaml:"baseURL,omitempty"`
	Model             string  `yaml:"model,omitempty"`
	APIKeyEnv         string  `yaml:"apiKeyEnv,omitempty"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
	MaxTokens         int     `yaml:"maxTokens,omitempty"`
	Temperature       float32 `yaml:"temperature,omitempty"`
}

// Load attempts to read docweave.yml or docweave.yaml from the given
// directory. Returns a default config (not an error) if no config file
// exists. A relative store path is resolved against dir.
func Load(dir string) (*ProjectConfig, error) {
	cfg := &ProjectConfig{}
	for _, name := range []string{"docweave.yml", "docweave.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		break
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if !filepath.IsAbs(cfg.Store.Path) {
		cfg.Store.Path = filepath.Join(dir, cfg.Store.Path)
	}
	return cfg, nil
}

// Orchestrator converts the scheduler section. Zero fields keep the
// orchestrator defaults.
func (s SchedulerConfig) Orchestrator() orchestrator.Config {
	return orchestrator.Config{
		MaxWorkers:    s.Workers,
		BatchSize:     s.BatchSize,
		Overwrite:     s.Overwrite,
		NodeTimeout:   s.NodeTimeout,
		StallRounds:   s.StallRounds,
		MaxIterations: s.MaxIterations,
	}
}

// OpenAI converts the llm section.
func (l LLMConfig) OpenAI(logger *slog.Logger) synth.OpenAIConfig {
	return synth.OpenAIConfig{
		BaseURL:           l.BaseURL,
		APIKeyEnv:         l.APIKeyEnv,
		Model:             l.Model,
		RequestsPerSecond: l.RequestsPerSecond,
		Burst:             l.Burst,
		MaxTokens:         l.MaxTokens,
		Temperature:       l.Temperature,
		Logger:            logger,
	}
}
