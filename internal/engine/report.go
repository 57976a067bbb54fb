package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"hireloop/internal/interview"
)

// Recommendation labels.
const (
	RecommendationSelected    = "Selected"
	RecommendationMaybe       = "Maybe"
	RecommendationNotSelected = "Not Selected"
)

// Report is the final assessment of a finished session.
type Report struct {
	SessionID string                    `json:"session_id"`
	Role      string                    `json:"job_role"`
	Level     interview.ExperienceLevel `json:"experience_level"`
	Status    interview.Status          `json:"status"`

	OverallScore   float64 `json:"overall_score"`
	Recommendation string  `json:"recommendation"`

	Technical RoundReport `json:"technical"`
	HR        RoundReport `json:"hr"`

	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
	Suggestions []string `json:"suggestions"`

	QuestionsAsked    int           `json:"questions_asked"`
	QuestionsAnswered int           `json:"questions_answered"`
	Duration          time.Duration `json:"duration"`
	TerminationReason string        `json:"termination_reason,omitempty"`
	GeneratedAt       time.Time     `json:"generated_at"`
}

// RoundReport extends the round summary with per-dimension averages.
type RoundReport struct {
	interview.RoundSummary
	Dimensions interview.ScoreVector `json:"dimensions"`
}

// buildReport assembles the report from a terminal session. Deterministic
// for a given session state.
func (e *Engine) buildReport(s *interview.Session) *Report {
	answered := answeredQuestions(s)

	overall := overallScore(s)
	dims := averageDimensions(answered)

	r := &Report{
		SessionID:         s.ID,
		Role:              s.Role,
		Level:             s.Level,
		Status:            s.Status,
		OverallScore:      overall,
		Recommendation:    recommend(s.Status, overall),
		Technical:         RoundReport{RoundSummary: s.Technical, Dimensions: averageDimensions(answeredIn(s, interview.RoundTechnical))},
		HR:                RoundReport{RoundSummary: s.HR, Dimensions: averageDimensions(answeredIn(s, interview.RoundHR))},
		QuestionsAsked:    len(s.Questions),
		QuestionsAnswered: len(answered),
		Duration:          e.activeLocked(s),
		TerminationReason: s.TerminationReason,
		GeneratedAt:       e.now(),
	}
	if !s.CompletedAt.IsZero() {
		r.Duration = s.CompletedAt.Sub(s.StartedAt) - s.ProcessingTotal
	}

	r.Strengths, r.Weaknesses = classifyDimensions(dims, len(answered))
	r.Suggestions = suggestions(s, dims, answered)
	return r
}

// recommend maps terminal status and overall score to the hiring call. Only
// a fully completed session can be Selected.
func recommend(status interview.Status, overall float64) string {
	switch {
	case status == interview.StatusCompleted && overall >= 70:
		return RecommendationSelected
	case overall >= 40:
		return RecommendationMaybe
	default:
		return RecommendationNotSelected
	}
}

// overallScore averages the rounds that were actually scored.
func overallScore(s *interview.Session) float64 {
	var sum float64
	var n int
	if s.Technical.QuestionsAsked > 0 {
		sum += s.Technical.Score
		n++
	}
	if s.HR.QuestionsAsked > 0 {
		sum += s.HR.Score
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func answeredQuestions(s *interview.Session) []*interview.QuestionRecord {
	var out []*interview.QuestionRecord
	for _, q := range s.Questions {
		if q.Answered() {
			out = append(out, q)
		}
	}
	return out
}

func answeredIn(s *interview.Session, round interview.Round) []*interview.QuestionRecord {
	var out []*interview.QuestionRecord
	for _, q := range s.InRound(round) {
		if q.Answered() {
			out = append(out, q)
		}
	}
	return out
}

// averageDimensions averages each score dimension across answered questions.
func averageDimensions(qs []*interview.QuestionRecord) interview.ScoreVector {
	var v interview.ScoreVector
	if len(qs) == 0 {
		return v
	}
	for _, q := range qs {
		v.Content += q.Scores.Content
		v.Keyword += q.Scores.Keyword
		v.Depth += q.Scores.Depth
		v.Communication += q.Scores.Communication
		v.Confidence += q.Scores.Confidence
		v.Overall += q.Scores.Overall
	}
	n := float64(len(qs))
	v.Content /= n
	v.Keyword /= n
	v.Depth /= n
	v.Communication /= n
	v.Confidence /= n
	v.Overall /= n
	return v
}

var dimensionLabels = []struct {
	name  string
	pick  func(interview.ScoreVector) float64
	good  string
	bad   string
	coach string
}{
	{"content", func(v interview.ScoreVector) float64 { return v.Content },
		"Answers closely matched what the questions were looking for",
		"Answers often drifted from what the questions asked",
		"Re-read each question and anchor your answer to its core topic before elaborating"},
	{"keywords", func(v interview.ScoreVector) float64 { return v.Keyword },
		"Consistently used the relevant technical vocabulary",
		"Key terms and concepts were frequently missing",
		"Work the expected technical terms into your answers explicitly"},
	{"depth", func(v interview.ScoreVector) float64 { return v.Depth },
		"Showed strong depth with examples and reasoning",
		"Answers stayed at surface level",
		"Back up claims with concrete examples, trade-offs, or experience"},
	{"communication", func(v interview.ScoreVector) float64 { return v.Communication },
		"Communicated in a clear, well-structured way",
		"Answers were hard to follow or underdeveloped",
		"Structure answers into a short intro, key points, and a close"},
	{"confidence", func(v interview.ScoreVector) float64 { return v.Confidence },
		"Delivered answers with conviction",
		"Answers sounded hesitant",
		"Reduce hedging language and commit to your answers"},
}

// classifyDimensions buckets averaged dimensions into strengths (>=70) and
// weaknesses (<40).
func classifyDimensions(dims interview.ScoreVector, answered int) (strengths, weaknesses []string) {
	if answered == 0 {
		return nil, []string{"Too few questions were answered to assess performance"}
	}
	for _, d := range dimensionLabels {
		score := d.pick(dims)
		switch {
		case score >= 70:
			strengths = append(strengths, d.good)
		case score < 40:
			weaknesses = append(weaknesses, d.bad)
		}
	}
	return strengths, weaknesses
}

// suggestions derives coaching advice from weak dimensions and the most
// commonly missed keywords.
func suggestions(s *interview.Session, dims interview.ScoreVector, answered []*interview.QuestionRecord) []string {
	var out []string
	for _, d := range dimensionLabels {
		if len(answered) > 0 && d.pick(dims) < 40 {
			out = append(out, d.coach)
		}
	}

	if topics := missedTopics(answered, 5); len(topics) > 0 {
		out = append(out, fmt.Sprintf("Brush up on: %s", strings.Join(topics, ", ")))
	}

	if s.Status == interview.StatusTerminated && strings.Contains(s.TerminationReason, "time") {
		out = append(out, "Practice pacing; the time budget ran out before the interview finished")
	}
	if len(out) == 0 {
		out = append(out, "Keep practicing with harder questions to maintain the momentum")
	}
	return out
}

// missedTopics ranks missed keywords by frequency and returns the top n.
func missedTopics(answered []*interview.QuestionRecord, n int) []string {
	counts := make(map[string]int)
	for _, q := range answered {
		for _, kw := range q.Scores.KeywordsMissed {
			counts[strings.ToLower(kw)]++
		}
	}
	topics := make([]string, 0, len(counts))
	for kw := range counts {
		topics = append(topics, kw)
	}
	sort.Slice(topics, func(i, j int) bool {
		if counts[topics[i]] != counts[topics[j]] {
			return counts[topics[i]] > counts[topics[j]]
		}
		return topics[i] < topics[j]
	})
	if len(topics) > n {
		topics = topics[:n]
	}
	return topics
}
