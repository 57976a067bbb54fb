package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hireloop/internal/interview"
)

// fakeEmbedder returns scripted vectors per text, or a scripted error.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) Dimensions() int { return 3 }
func (f *fakeEmbedder) Name() string    { return "fake" }

type fakeLLM struct {
	critiqueJSON string
	feedbackText string
	err          error
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	return f.CompleteWithSystem(ctx, "", prompt)
}

func (f *fakeLLM) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if systemPrompt == critiqueSystemPrompt {
		return f.critiqueJSON, nil
	}
	return f.feedbackText, nil
}

func question() *interview.QuestionRecord {
	return &interview.QuestionRecord{
		ID:          "q1",
		Question:    "How do you scale a relational database?",
		IdealAnswer: "Use replication for reads, sharding for writes, connection pooling, and caching in front of the database.",
		Keywords:    []string{"replication", "sharding", "caching", "indexing", "pooling"},
		Round:       interview.RoundTechnical,
		Difficulty:  interview.DifficultyMedium,
		AskedAt:     time.Now(),
	}
}

func TestEvaluateEmptyAnswer(t *testing.T) {
	ev := New(&fakeEmbedder{}, &fakeLLM{})

	res := ev.Evaluate(context.Background(), question(), "   \n ")

	assert.Equal(t, interview.StrengthWeak, res.Strength)
	assert.Zero(t, res.Scores.Overall)
	assert.Zero(t, res.Scores.Content)
	assert.NotEmpty(t, res.Feedback)
}

func TestEvaluateHealthyPath(t *testing.T) {
	answer := "I would add read replication and shard the write path. Caching with proper indexing handles hot keys, because most load is read-heavy. For example, a connection pooling layer smooths out spikes."

	emb := &fakeEmbedder{vectors: map[string][]float32{}} // identical default vectors: similarity 1
	llm := &fakeLLM{
		critiqueJSON: `{"communication_score": 75, "confidence_score": 80}`,
		feedbackText: "Good coverage of scaling techniques. Next time quantify the trade-offs.",
	}
	ev := New(emb, llm)

	res := ev.Evaluate(context.Background(), question(), answer)

	require.Empty(t, res.Degraded)
	assert.InDelta(t, 75.0, res.Scores.Communication, 0.001)
	assert.InDelta(t, 80.0, res.Scores.Confidence, 0.001)
	assert.Equal(t, "Good coverage of scaling techniques. Next time quantify the trade-offs.", res.Feedback)

	// All five keywords present (pooling via "pooling", indexing via "indexing").
	assert.Len(t, res.Scores.KeywordsMatched, 5)
	assert.Empty(t, res.Scores.KeywordsMissed)
	assert.InDelta(t, 100.0, res.Scores.Keyword, 0.001)

	// similarity 1.0 blended with full keyword coverage.
	assert.InDelta(t, 100.0, res.Scores.Content, 0.001)
	assert.Greater(t, res.Scores.Overall, 70.0)
	assert.Equal(t, interview.StrengthStrong, res.Strength)
}

func TestEvaluateEmbedderFailureNeutralContent(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("deadline exceeded")}
	llm := &fakeLLM{critiqueJSON: `{"communication_score": 60, "confidence_score": 60}`, feedbackText: "ok"}
	ev := New(emb, llm)

	res := ev.Evaluate(context.Background(), question(), "We use replication and sharding with caching in front.")

	assert.InDelta(t, NeutralScore, res.Scores.Content, 0.001)
	require.Len(t, res.Degraded, 1)
	assert.Contains(t, res.Degraded[0], "embedding failed")

	// Other dimensions still score normally.
	assert.Greater(t, res.Scores.Keyword, 0.0)
	assert.InDelta(t, 60.0, res.Scores.Communication, 0.001)
}

func TestEvaluateCritiqueFailureFallsBackToHeuristics(t *testing.T) {
	llm := &fakeLLM{err: errors.New("quota exceeded")}
	ev := New(&fakeEmbedder{}, llm)

	answer := "Firstly, replication spreads reads. Secondly, sharding spreads writes. However, caching is the first thing I reach for. In addition, indexing matters. Finally, pooling keeps connections bounded."
	res := ev.Evaluate(context.Background(), question(), answer)

	require.NotEmpty(t, res.Degraded)
	assert.Greater(t, res.Scores.Communication, 50.0, "structured multi-sentence answer should score well heuristically")
	assert.Greater(t, res.Scores.Confidence, 0.0)
	assert.NotEmpty(t, res.Feedback, "feedback must fall back to the template")
}

func TestEvaluateRejectsOutOfRangeCritique(t *testing.T) {
	llm := &fakeLLM{critiqueJSON: `{"communication_score": 250, "confidence_score": -10}`, feedbackText: "ok"}
	ev := New(&fakeEmbedder{}, llm)

	res := ev.Evaluate(context.Background(), question(), "Replication and sharding are the standard approaches here.")

	require.NotEmpty(t, res.Degraded)
	assert.LessOrEqual(t, res.Scores.Communication, 100.0)
	assert.GreaterOrEqual(t, res.Scores.Confidence, 0.0)
}

func TestKeywordScoreStemming(t *testing.T) {
	answer := "we focused on optimizing the caches and indexes"
	dim, matched, missed := keywordScore(answer, []string{"optimize", "cache", "index", "sharding"})

	assert.ElementsMatch(t, []string{"optimize", "cache", "index"}, matched)
	assert.ElementsMatch(t, []string{"sharding"}, missed)
	assert.InDelta(t, 75.0, dim.score, 0.001)
}

func TestKeywordScoreNoKeywords(t *testing.T) {
	dim, matched, missed := keywordScore("anything", nil)
	assert.Zero(t, dim.score)
	assert.Empty(t, matched)
	assert.Empty(t, missed)
}

func TestCommunicationHeuristicBands(t *testing.T) {
	short := communicationHeuristic("Too short.")
	long := communicationHeuristic("Firstly, one point. Secondly, another point with more words to it. However, a third consideration applies here as well. For example, a concrete case. In conclusion, this wraps the structured argument up nicely with enough words overall.")

	assert.Less(t, short, 30.0)
	assert.Greater(t, long, 70.0)
	assert.LessOrEqual(t, long, 100.0)
}

func TestConfidenceHeuristic(t *testing.T) {
	hedged := confidenceHeuristic("um I think maybe we could perhaps possibly use like a cache I guess but I'm not sure honestly", NeutralScore)
	assured := confidenceHeuristic("We use a cache in front of the database and shard writes across nodes by tenant id.", NeutralScore)

	assert.Less(t, hedged, assured)
	assert.GreaterOrEqual(t, hedged, 10.0)

	// Too short to judge.
	assert.InDelta(t, NeutralScore, confidenceHeuristic("yes", NeutralScore), 0.001)
}

func TestDepthScore(t *testing.T) {
	shallow := depthScore("It depends.")
	deep := depthScore("Replication helps because reads dominate. For example, a read replica absorbed most of our load. However, sharding was needed for writes, specifically when one tenant grew hot. Therefore we keyed shards by tenant. In practice the trade-off is operational complexity.")

	assert.Less(t, shallow.score, 20.0)
	assert.Greater(t, deep.score, 60.0)
	assert.LessOrEqual(t, deep.score, 100.0)
}
