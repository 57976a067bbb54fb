package models

import (
	"fmt"
	"sync"

	"hireloop/internal/config"
	"hireloop/internal/logging"
)

// Gateway exposes the shared embedder and language model handles. The
// process singleton is built once; a Gateway can also be constructed
// directly with fakes for tests.
type Gateway struct {
	embedder Embedder
	llm      LanguageModel
}

var (
	defaultGateway *Gateway
	defaultErr     error
	gatewayOnce    sync.Once
)

// Init builds the process-wide gateway from configuration. The first call
// performs the expensive client construction; every later call returns the
// same handles. Concurrent first calls block until initialization finishes.
// An initialization failure is permanent for the process; callers treat it
// as fatal at startup, never retried per request.
func Init(cfg config.ModelsConfig) (*Gateway, error) {
	gatewayOnce.Do(func() {
		timer := logging.StartTimer(logging.CategoryModels, "gateway init")
		defer timer.Stop()
		defaultGateway, defaultErr = NewGateway(cfg)
	})
	return defaultGateway, defaultErr
}

// Get returns the initialized gateway. Panics if Init was never called; the
// gateway must be constructed during process startup.
func Get() *Gateway {
	if defaultGateway == nil {
		panic("models: gateway not initialized; call models.Init at startup")
	}
	return defaultGateway
}

// NewGateway constructs a gateway from configuration. Exposed so tests can
// build isolated gateways without touching the process singleton.
func NewGateway(cfg config.ModelsConfig) (*Gateway, error) {
	var embedder Embedder
	var err error

	switch cfg.Embedder.Provider {
	case "ollama":
		logging.Models("initializing Ollama embedder: endpoint=%s model=%s",
			cfg.Embedder.OllamaEndpoint, cfg.Embedder.OllamaModel)
		embedder, err = NewOllamaEmbedder(cfg.Embedder.OllamaEndpoint, cfg.Embedder.OllamaModel)
	case "genai", "":
		logging.Models("initializing GenAI embedder: model=%s", cfg.Embedder.GenAIModel)
		embedder, err = NewGenAIEmbedder(cfg.Embedder.GenAIAPIKey, cfg.Embedder.GenAIModel)
	default:
		return nil, fmt.Errorf("unsupported embedder provider: %s", cfg.Embedder.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("embedder init: %w", err)
	}

	llm, err := NewGeminiModel(GeminiConfig{
		APIKey:          cfg.LLM.APIKey,
		Model:           cfg.LLM.Model,
		FallbackModels:  cfg.LLM.FallbackModels,
		Timeout:         cfg.Timeout(),
		QuotaCooldown:   cfg.LLM.Cooldown(),
		Temperature:     cfg.LLM.Temperature,
		MaxOutputTokens: cfg.LLM.MaxOutputTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("language model init: %w", err)
	}

	logging.Models("gateway ready: embedder=%s llm=%s", embedder.Name(), llm.ActiveModel())
	return &Gateway{embedder: embedder, llm: llm}, nil
}

// NewGatewayWith wraps pre-built model handles; used by tests and by any
// embedder/model substitution.
func NewGatewayWith(embedder Embedder, llm LanguageModel) *Gateway {
	return &Gateway{embedder: embedder, llm: llm}
}

// Embedder returns the shared text embedder handle.
func (g *Gateway) Embedder() Embedder { return g.embedder }

// LanguageModel returns the shared generative language model handle.
func (g *Gateway) LanguageModel() LanguageModel { return g.llm }
