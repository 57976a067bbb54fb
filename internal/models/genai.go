package models

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// =============================================================================
// GOOGLE GENAI EMBEDDER
// =============================================================================

// GenAIEmbedder generates embeddings using Google's Gemini API.
type GenAIEmbedder struct {
	client *genai.Client
	model  string
}

// NewGenAIEmbedder creates a new GenAI embedder.
func NewGenAIEmbedder(apiKey, model string) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}

	if model == "" {
		model = "gemini-embedding-001"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIEmbedder{
		client: client,
		model:  model,
	}, nil
}

// embedConfig is the per-request config sent with every embed call. The
// task type is a plain string in the SDK, not a typed constant.
func embedConfig() *genai.EmbedContentConfig {
	return &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}
}

// Embed generates an embedding for a single text.
func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, embedConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: GenAI embed failed: %v", ErrModelUnavailable, err)
	}

	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", ErrModelUnavailable)
	}

	return result.Embeddings[0].Values, nil
}

// Dimensions returns the dimensionality of embeddings.
// gemini-embedding-001 produces 768-dimensional vectors.
func (e *GenAIEmbedder) Dimensions() int {
	return 768
}

// Name returns the engine name.
func (e *GenAIEmbedder) Name() string {
	return fmt.Sprintf("genai:%s", e.model)
}
