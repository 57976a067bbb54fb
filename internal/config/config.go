// Package config loads and validates hireloop configuration from a YAML
// file, with environment-variable overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all hireloop configuration.
type Config struct {
	Models    ModelsConfig    `yaml:"models"`
	Router    RouterConfig    `yaml:"router"`
	Policy    PolicyConfig    `yaml:"policy"`
	Evaluator EvaluatorConfig `yaml:"evaluator"`
	Rounds    RoundsConfig    `yaml:"rounds"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ModelsConfig configures the model gateway.
type ModelsConfig struct {
	Embedder EmbedderConfig `yaml:"embedder"`
	LLM      LLMConfig      `yaml:"llm"`

	// CallTimeout bounds every embedder / language model call.
	CallTimeout string `yaml:"call_timeout"`
}

// EmbedderConfig selects and configures the text embedder backend.
type EmbedderConfig struct {
	// Provider: "genai" or "ollama"
	Provider string `yaml:"provider"`

	// GenAI configuration
	GenAIAPIKey string `yaml:"genai_api_key"`
	GenAIModel  string `yaml:"genai_model"`

	// Ollama configuration
	OllamaEndpoint string `yaml:"ollama_endpoint"`
	OllamaModel    string `yaml:"ollama_model"`
}

// LLMConfig configures the generative language model.
type LLMConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`

	// FallbackModels are tried in order after a quota or rate-limit error
	// on the active model.
	FallbackModels []string `yaml:"fallback_models"`

	// QuotaCooldown is how long a model sits out after a quota error.
	QuotaCooldown string `yaml:"quota_cooldown"`

	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

// RouterConfig configures the question router.
type RouterConfig struct {
	// CacheCapacity caps the shared question cache (FIFO eviction).
	CacheCapacity int `yaml:"cache_capacity"`
}

// PolicyConfig configures the difficulty adaptation controller. The reward
// window and hysteresis thresholds are tunable defaults, not fixed contracts.
type PolicyConfig struct {
	RewardWindow     int     `yaml:"reward_window"`
	RaiseThreshold   float64 `yaml:"raise_threshold"`
	LowerThreshold   float64 `yaml:"lower_threshold"`
	RegistryCapacity int     `yaml:"registry_capacity"`
}

// EvaluatorConfig configures answer evaluation.
type EvaluatorConfig struct {
	// NeutralScore substitutes for any dimension whose computation fails.
	NeutralScore float64 `yaml:"neutral_score"`
}

// RoundsConfig configures round budgets and cutoffs.
type RoundsConfig struct {
	TechnicalCutoff float64 `yaml:"technical_cutoff"`
	HRCutoff        float64 `yaml:"hr_cutoff"`

	// Question budgets per round.
	TechnicalQuestions int `yaml:"technical_questions"`
	HRQuestions        int `yaml:"hr_questions"`

	// MinQuestions must be answered before a round can complete early on
	// its time share.
	MinQuestions int `yaml:"min_questions"`

	// TechnicalTimeShare is the fraction of the session time budget given
	// to the technical round.
	TechnicalTimeShare float64 `yaml:"technical_time_share"`
}

// LoggingConfig controls the categorized file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Models: ModelsConfig{
			Embedder: EmbedderConfig{
				Provider:       "genai",
				GenAIModel:     "gemini-embedding-001",
				OllamaEndpoint: "http://localhost:11434",
				OllamaModel:    "embeddinggemma",
			},
			LLM: LLMConfig{
				Model:           "gemini-2.5-flash",
				FallbackModels:  []string{"gemini-2.0-flash", "gemini-2.0-flash-lite"},
				QuotaCooldown:   "60s",
				Temperature:     0.7,
				MaxOutputTokens: 2048,
			},
			CallTimeout: "12s",
		},
		Router: RouterConfig{
			CacheCapacity: 200,
		},
		Policy: PolicyConfig{
			RewardWindow:     5,
			RaiseThreshold:   0.75,
			LowerThreshold:   0.35,
			RegistryCapacity: 500,
		},
		Evaluator: EvaluatorConfig{
			NeutralScore: 50,
		},
		Rounds: RoundsConfig{
			TechnicalCutoff:    70,
			HRCutoff:           60,
			TechnicalQuestions: 8,
			HRQuestions:        5,
			MinQuestions:       3,
			TechnicalTimeShare: 0.6,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from path, layering the file over defaults and
// applying environment overrides. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// FindConfig returns the config path for a workspace directory.
func FindConfig(workspace string) string {
	return filepath.Join(workspace, "hireloop.yaml")
}

// applyEnv overlays secrets from the environment. A key in the environment
// fills a blank field so keys never need to live on disk.
func (c *Config) applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		if c.Models.LLM.APIKey == "" {
			c.Models.LLM.APIKey = key
		}
		if c.Models.Embedder.GenAIAPIKey == "" {
			c.Models.Embedder.GenAIAPIKey = key
		}
	}
	if endpoint := os.Getenv("OLLAMA_HOST"); endpoint != "" {
		c.Models.Embedder.OllamaEndpoint = endpoint
	}
}

// Validate checks cross-field invariants.
func (c *Config) Validate() error {
	switch c.Models.Embedder.Provider {
	case "genai", "ollama":
	default:
		return fmt.Errorf("unsupported embedder provider: %s (use 'genai' or 'ollama')", c.Models.Embedder.Provider)
	}
	if c.Router.CacheCapacity <= 0 {
		return fmt.Errorf("router.cache_capacity must be positive, got %d", c.Router.CacheCapacity)
	}
	if c.Policy.RegistryCapacity <= 0 {
		return fmt.Errorf("policy.registry_capacity must be positive, got %d", c.Policy.RegistryCapacity)
	}
	if c.Policy.RewardWindow <= 0 {
		return fmt.Errorf("policy.reward_window must be positive, got %d", c.Policy.RewardWindow)
	}
	if c.Policy.LowerThreshold >= c.Policy.RaiseThreshold {
		return fmt.Errorf("policy thresholds must satisfy lower < raise, got %.2f >= %.2f",
			c.Policy.LowerThreshold, c.Policy.RaiseThreshold)
	}
	if c.Rounds.TechnicalTimeShare <= 0 || c.Rounds.TechnicalTimeShare >= 1 {
		return fmt.Errorf("rounds.technical_time_share must be in (0,1), got %.2f", c.Rounds.TechnicalTimeShare)
	}
	return nil
}

// Timeout parses the model call timeout, defaulting to 12s.
func (m *ModelsConfig) Timeout() time.Duration {
	return parseDuration(m.CallTimeout, 12*time.Second)
}

// Cooldown parses the quota cooldown, defaulting to 60s.
func (l *LLMConfig) Cooldown() time.Duration {
	return parseDuration(l.QuotaCooldown, 60*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
