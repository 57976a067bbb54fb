// Package models provides the model gateway: singleton handles to the text
// embedder and the generative language model, plus the vector math the
// evaluator needs. Callers never construct their own model instances.
package models

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrModelUnavailable indicates a collaborator call failed or timed out.
// Callers degrade per their own fallback rules; this is never fatal to a
// session.
var ErrModelUnavailable = errors.New("model unavailable")

// Embedder maps text to a fixed-length numeric vector. Deterministic for
// identical input.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the dimensionality of embeddings.
	Dimensions() int

	// Name returns the engine name.
	Name() string
}

// LanguageModel produces text given a prompt. Non-deterministic.
type LanguageModel interface {
	// Complete sends a prompt and returns the completion.
	Complete(ctx context.Context, prompt string) (string, error)

	// CompleteWithSystem sends a prompt with a system message.
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same length: %d != %d", len(a), len(b))
	}

	var dotProduct, aMagnitude, bMagnitude float64
	for i := 0; i < len(a); i++ {
		dotProduct += float64(a[i] * b[i])
		aMagnitude += float64(a[i] * a[i])
		bMagnitude += float64(b[i] * b[i])
	}

	if aMagnitude == 0 || bMagnitude == 0 {
		return 0, nil
	}

	return dotProduct / (math.Sqrt(aMagnitude) * math.Sqrt(bMagnitude)), nil
}
