package models

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"hireloop/internal/logging"
)

// quotaErrorMarkers are substrings indicating quota / rate-limit exhaustion.
// A model that trips one goes on cooldown and the next model in the chain
// gets the request.
var quotaErrorMarkers = []string{
	"429", "resource_exhausted", "rate limit", "quota",
	"too many requests", "503", "overloaded", "capacity",
}

// GeminiModel implements LanguageModel for the Google Gemini API, with an
// ordered fallback chain of models for quota errors.
type GeminiModel struct {
	apiKey          string
	baseURL         string
	temperature     float64
	maxOutputTokens int
	httpClient      *http.Client

	mu        sync.Mutex
	chain     []string
	activeIdx int
	cooldowns map[string]time.Time
	cooldown  time.Duration
}

// GeminiConfig configures a GeminiModel.
type GeminiConfig struct {
	APIKey          string
	Model           string
	FallbackModels  []string
	Timeout         time.Duration
	QuotaCooldown   time.Duration
	Temperature     float64
	MaxOutputTokens int
}

// NewGeminiModel creates a Gemini completion client.
func NewGeminiModel(cfg GeminiConfig) (*GeminiModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gemini-2.5-flash"
	}
	chain := []string{model}
	for _, m := range cfg.FallbackModels {
		m = strings.TrimSpace(m)
		if m != "" && !contains(chain, m) {
			chain = append(chain, m)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	cooldown := cfg.QuotaCooldown
	if cooldown <= 0 {
		cooldown = 60 * time.Second
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}

	return &GeminiModel{
		apiKey:          cfg.APIKey,
		baseURL:         "https://generativelanguage.googleapis.com/v1beta",
		temperature:     temperature,
		maxOutputTokens: maxTokens,
		httpClient:      &http.Client{Timeout: timeout},
		chain:           chain,
		cooldowns:       make(map[string]time.Time),
		cooldown:        cooldown,
	}, nil
}

// ActiveModel returns the currently active model name.
func (c *GeminiModel) ActiveModel() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chain[c.activeIdx]
}

// Complete sends a prompt and returns the completion.
func (c *GeminiModel) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system message. The active model
// is tried first; on a quota error the request rotates through the fallback
// chain, one attempt per model.
func (c *GeminiModel) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	// Centralized timeout handling: bound the call when the caller did not.
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.httpClient.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	var lastErr error

	for _, model := range c.modelsToTry() {
		text, err := c.generate(ctx, model, systemPrompt, userPrompt)
		if err == nil {
			c.markActive(model)
			logging.Models("[Gemini] completed in %v model=%s response_len=%d",
				time.Since(startTime), model, len(text))
			return text, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrModelUnavailable, ctx.Err())
		}
		if isQuotaError(err) {
			logging.ModelsWarn("[Gemini] quota/rate-limit on %s: %v", model, err)
			c.markCooldown(model)
			continue
		}
		// Non-quota error: do not burn the rest of the chain.
		break
	}

	logging.ModelsWarn("[Gemini] all attempts failed after %v: %v", time.Since(startTime), lastErr)
	return "", fmt.Errorf("%w: %v", ErrModelUnavailable, lastErr)
}

// modelsToTry orders the chain: active model first (if off cooldown), then
// remaining models off cooldown, then cooldown models as a last resort.
func (c *GeminiModel) modelsToTry() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	tried := make(map[string]bool, len(c.chain))
	out := make([]string, 0, len(c.chain))

	active := c.chain[c.activeIdx]
	if now.After(c.cooldowns[active]) {
		out = append(out, active)
		tried[active] = true
	}
	for _, m := range c.chain {
		if !tried[m] && now.After(c.cooldowns[m]) {
			out = append(out, m)
			tried[m] = true
		}
	}
	for _, m := range c.chain {
		if !tried[m] {
			out = append(out, m)
			tried[m] = true
		}
	}
	return out
}

func (c *GeminiModel) markCooldown(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cooldowns[model] = time.Now().Add(c.cooldown)
}

func (c *GeminiModel) markActive(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, m := range c.chain {
		if m == model {
			if i != c.activeIdx {
				c.activeIdx = i
				logging.Models("[Gemini] now using model %s", model)
			}
			return
		}
	}
}

// generate performs a single generateContent request against one model.
func (c *GeminiModel) generate(ctx context.Context, model, systemPrompt, userPrompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{
				Role:  "user",
				Parts: []geminiPart{{Text: userPrompt}},
			},
		},
		GenerationConfig: geminiGenerationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxOutputTokens,
		},
	}
	if systemPrompt != "" {
		reqBody.SystemInstruction = &geminiContent{
			Parts: []geminiPart{{Text: systemPrompt}},
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if geminiResp.Error != nil {
		return "", fmt.Errorf("API error: %s", geminiResp.Error.Message)
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no completion returned")
	}

	var result strings.Builder
	for _, part := range geminiResp.Candidates[0].Content.Parts {
		result.WriteString(part.Text)
	}
	return strings.TrimSpace(result.String()), nil
}

func isQuotaError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range quotaErrorMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// =============================================================================
// GEMINI WIRE TYPES
// =============================================================================

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type geminiRequest struct {
	Contents          []geminiContent        `json:"contents"`
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
