package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"hireloop/internal/interview"
	"hireloop/internal/logging"
	"hireloop/internal/models"
)

// NeutralScore is the default a dimension falls back to when its
// collaborator is unavailable.
const NeutralScore = 50.0

// Result is the outcome of evaluating one answer. Evaluation never fails;
// degraded dimensions are listed in Degraded with their reasons.
type Result struct {
	Scores   interview.ScoreVector
	Strength interview.AnswerStrength
	Feedback string
	Degraded []string
}

// Evaluator scores answers using the embedder for semantic similarity and
// the language model for the critique and feedback passes.
type Evaluator struct {
	embedder models.Embedder
	llm      models.LanguageModel
}

// New builds an Evaluator over the given model handles.
func New(embedder models.Embedder, llm models.LanguageModel) *Evaluator {
	return &Evaluator{embedder: embedder, llm: llm}
}

// critique is the JSON shape the language model is asked to return for the
// communication and confidence dimensions.
type critique struct {
	Communication float64 `json:"communication_score"`
	Confidence    float64 `json:"confidence_score"`
}

// Evaluate scores answer against the asked question. The content similarity
// and the LLM critique run concurrently; each degrades independently.
func (e *Evaluator) Evaluate(ctx context.Context, q *interview.QuestionRecord, answer string) Result {
	timer := logging.StartTimer(logging.CategoryEvaluator, "evaluate")
	defer timer.Stop()

	trimmed := strings.TrimSpace(answer)
	if trimmed == "" {
		var v interview.ScoreVector
		v.Finalize()
		return Result{
			Scores:   v,
			Strength: interview.StrengthWeak,
			Feedback: "No answer was provided. Attempting every question, even partially, is better than leaving it blank.",
		}
	}

	var degraded []string

	// Synchronous dimensions first: keyword and depth are pure heuristics.
	kwDim, matched, missed := keywordScore(trimmed, q.Keywords)
	depthDim := depthScore(trimmed)

	var (
		simDim  dimension
		critDim critique
		critErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		simDim = e.similarity(gctx, trimmed, q.IdealAnswer)
		return nil
	})
	g.Go(func() error {
		critDim, critErr = e.critique(gctx, q.Question, trimmed)
		return nil
	})
	_ = g.Wait()

	if simDim.degraded {
		degraded = append(degraded, simDim.reason)
		logging.EvaluatorWarn("content degraded for question %s: %s", q.ID, simDim.reason)
	}

	// Content blends semantic similarity with keyword coverage so an answer
	// hitting the right terms is not punished for phrasing. A degraded
	// similarity pins content to the neutral default instead.
	content := simDim.score
	if !simDim.degraded {
		content = simDim.score*0.6 + kwDim.score*0.4
	}

	commScore := critDim.Communication
	confScore := critDim.Confidence
	if critErr != nil {
		degraded = append(degraded, fmt.Sprintf("critique unavailable: %v", critErr))
		logging.EvaluatorWarn("critique degraded for question %s: %v", q.ID, critErr)
		commScore = communicationHeuristic(trimmed)
		confScore = confidenceHeuristic(trimmed, NeutralScore)
	}

	v := interview.ScoreVector{
		Content:         content,
		Keyword:         kwDim.score,
		Depth:           depthDim.score,
		Communication:   commScore,
		Confidence:      confScore,
		KeywordsMatched: matched,
		KeywordsMissed:  missed,
	}
	v.Finalize()

	strength := interview.StrengthForScore(v.Overall)
	feedback := e.feedback(ctx, q.Question, trimmed, v, strength)

	logging.Evaluator("question %s scored %.1f (%s), content=%.1f keyword=%.1f depth=%.1f comm=%.1f conf=%.1f",
		q.ID, v.Overall, strength, v.Content, v.Keyword, v.Depth, v.Communication, v.Confidence)

	return Result{
		Scores:   v,
		Strength: strength,
		Feedback: feedback,
		Degraded: degraded,
	}
}

// similarity embeds the answer and the ideal answer and maps their cosine
// similarity onto 0-100. Any failure yields the neutral default.
func (e *Evaluator) similarity(ctx context.Context, answer, ideal string) dimension {
	if strings.TrimSpace(ideal) == "" {
		return neutral(NeutralScore, "no ideal answer to compare against")
	}

	var (
		answerVec, idealVec []float32
		answerErr, idealErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		answerVec, answerErr = e.embedder.Embed(gctx, answer)
		return nil
	})
	g.Go(func() error {
		idealVec, idealErr = e.embedder.Embed(gctx, ideal)
		return nil
	})
	_ = g.Wait()

	if answerErr != nil {
		return neutral(NeutralScore, fmt.Sprintf("embedding failed: %v", answerErr))
	}
	if idealErr != nil {
		return neutral(NeutralScore, fmt.Sprintf("embedding failed: %v", idealErr))
	}

	sim, err := models.CosineSimilarity(answerVec, idealVec)
	if err != nil {
		return neutral(NeutralScore, fmt.Sprintf("similarity failed: %v", err))
	}
	if sim < 0 {
		sim = 0
	}
	return scored(sim * 100)
}

const critiqueSystemPrompt = `You are an interview assessor. Rate the candidate's answer on two scales from 0 to 100:
- communication_score: clarity, structure, and articulation of the answer
- confidence_score: how assured and decisive the answer sounds

Respond with ONLY a JSON object in this exact format:
{"communication_score": <number>, "confidence_score": <number>}`

// critique asks the language model to rate communication and confidence in
// one call.
func (e *Evaluator) critique(ctx context.Context, question, answer string) (critique, error) {
	prompt := fmt.Sprintf("Question: %s\n\nCandidate's answer: %s", question, answer)

	raw, err := e.llm.CompleteWithSystem(ctx, critiqueSystemPrompt, prompt)
	if err != nil {
		return critique{}, err
	}

	var c critique
	if err := json.Unmarshal([]byte(extractJSON(raw)), &c); err != nil {
		return critique{}, fmt.Errorf("unparseable critique: %w", err)
	}
	if c.Communication < 0 || c.Communication > 100 || c.Confidence < 0 || c.Confidence > 100 {
		return critique{}, fmt.Errorf("critique scores out of range: %.1f / %.1f", c.Communication, c.Confidence)
	}
	return c, nil
}

const feedbackSystemPrompt = `You are an encouraging interview coach. Given a question, the candidate's answer, and its scores, write 2-3 sentences of specific, constructive feedback. Mention one thing done well and one concrete improvement. Do not repeat the scores back.`

// feedback produces the per-answer coaching text, falling back to a
// score-derived template when the model is unavailable.
func (e *Evaluator) feedback(ctx context.Context, question, answer string, v interview.ScoreVector, strength interview.AnswerStrength) string {
	prompt := fmt.Sprintf(
		"Question: %s\n\nAnswer: %s\n\nScores: content %.0f, keywords %.0f, depth %.0f, communication %.0f, confidence %.0f (overall %.0f)",
		question, answer, v.Content, v.Keyword, v.Depth, v.Communication, v.Confidence, v.Overall)

	raw, err := e.llm.CompleteWithSystem(ctx, feedbackSystemPrompt, prompt)
	if err == nil {
		if text := strings.TrimSpace(raw); text != "" {
			return text
		}
	}
	logging.EvaluatorWarn("feedback generation failed, using template: %v", err)
	return templateFeedback(v, strength)
}

// templateFeedback assembles deterministic feedback from the score vector.
func templateFeedback(v interview.ScoreVector, strength interview.AnswerStrength) string {
	var b strings.Builder

	switch strength {
	case interview.StrengthStrong:
		b.WriteString("Strong answer that covers the core of the question well.")
	case interview.StrengthModerate:
		b.WriteString("Reasonable answer, but there is room to go deeper.")
	default:
		b.WriteString("This answer misses much of what the question is looking for.")
	}

	if len(v.KeywordsMissed) > 0 {
		limit := len(v.KeywordsMissed)
		if limit > 3 {
			limit = 3
		}
		b.WriteString(" Consider touching on: ")
		b.WriteString(strings.Join(v.KeywordsMissed[:limit], ", "))
		b.WriteString(".")
	}

	switch {
	case v.Depth < 40:
		b.WriteString(" Add concrete examples or reasoning to show depth.")
	case v.Communication < 40:
		b.WriteString(" Structuring the answer into clear points would make it easier to follow.")
	}

	return b.String()
}

// extractJSON returns the first top-level JSON object in raw, tolerating
// markdown fences and surrounding prose.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}
