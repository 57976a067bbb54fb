package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testGemini(t *testing.T, handler http.HandlerFunc) *GeminiModel {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewGeminiModel(GeminiConfig{
		APIKey:         "test-key",
		Model:          "primary",
		FallbackModels: []string{"secondary", "tertiary"},
		Timeout:        5 * time.Second,
		QuotaCooldown:  time.Minute,
	})
	if err != nil {
		t.Fatal(err)
	}
	c.baseURL = server.URL
	return c
}

func completionResponse(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func TestCompleteSuccess(t *testing.T) {
	var gotSystem string
	c := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.SystemInstruction != nil {
			gotSystem = req.SystemInstruction.Parts[0].Text
		}
		fmt.Fprint(w, completionResponse("hello"))
	})

	got, err := c.CompleteWithSystem(context.Background(), "be brief", "say hello")
	if err != nil {
		t.Fatalf("CompleteWithSystem() error = %v", err)
	}
	if got != "hello" {
		t.Errorf("completion = %q, want hello", got)
	}
	if gotSystem != "be brief" {
		t.Errorf("system instruction = %q, want 'be brief'", gotSystem)
	}
	if c.ActiveModel() != "primary" {
		t.Errorf("active model = %s, want primary", c.ActiveModel())
	}
}

func TestCompleteFallsBackOnQuotaError(t *testing.T) {
	c := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "primary") {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":{"code":429,"message":"resource_exhausted"}}`)
			return
		}
		fmt.Fprint(w, completionResponse("from fallback"))
	})

	got, err := c.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != "from fallback" {
		t.Errorf("completion = %q, want 'from fallback'", got)
	}
	if c.ActiveModel() != "secondary" {
		t.Errorf("active model = %s, want secondary after quota failover", c.ActiveModel())
	}

	// The cooled-down primary is tried last while its cooldown holds.
	order := c.modelsToTry()
	if order[len(order)-1] != "primary" {
		t.Errorf("modelsToTry() = %v, want primary last while on cooldown", order)
	}
}

func TestCompleteStopsOnNonQuotaError(t *testing.T) {
	var requests int
	c := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"code":400,"message":"invalid argument"}}`)
	})

	_, err := c.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("error = %v, want ErrModelUnavailable", err)
	}
	if requests != 1 {
		t.Errorf("requests = %d, want 1 (non-quota errors must not burn the chain)", requests)
	}
}

func TestCompleteEmptyCandidates(t *testing.T) {
	c := testGemini(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	})

	if _, err := c.Complete(context.Background(), "prompt"); err == nil {
		t.Error("empty candidate list should be an error")
	}
}

func TestIsQuotaError(t *testing.T) {
	quota := []string{
		"API request failed with status 429: slow down",
		"RESOURCE_EXHAUSTED: quota exceeded",
		"model is overloaded, try later",
		"503 service unavailable",
	}
	for _, msg := range quota {
		if !isQuotaError(errors.New(msg)) {
			t.Errorf("isQuotaError(%q) = false, want true", msg)
		}
	}
	if isQuotaError(errors.New("invalid request body")) {
		t.Error("plain errors must not classify as quota")
	}
}

func TestNewGeminiModelValidation(t *testing.T) {
	if _, err := NewGeminiModel(GeminiConfig{}); err == nil {
		t.Error("missing API key should be rejected")
	}

	c, err := NewGeminiModel(GeminiConfig{
		APIKey:         "k",
		Model:          "m1",
		FallbackModels: []string{"m1", "m2", " "},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(c.chain) != 2 {
		t.Errorf("chain = %v, want duplicates and blanks dropped", c.chain)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float32
		want    float64
		wantErr bool
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1, false},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0, false},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1, false},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0, false},
		{"length mismatch", []float32{1}, []float32{1, 2}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CosineSimilarity(tt.a, tt.b)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (got < tt.want-1e-6 || got > tt.want+1e-6) {
				t.Errorf("CosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}
