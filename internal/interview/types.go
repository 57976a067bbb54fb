// Package interview defines the core domain types shared by the session
// engine: sessions, question records, score vectors, and round summaries.
package interview

import (
	"time"
)

// =============================================================================
// ENUMS
// =============================================================================

// Round identifies one of the two ordered interview phases.
type Round string

const (
	RoundTechnical Round = "technical"
	RoundHR        Round = "hr"
)

// Difficulty is the assigned difficulty of a question.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// ExperienceLevel is the candidate's self-reported seniority.
type ExperienceLevel string

const (
	LevelFresher ExperienceLevel = "fresher"
	LevelJunior  ExperienceLevel = "junior"
	LevelMid     ExperienceLevel = "mid"
	LevelSenior  ExperienceLevel = "senior"
	LevelLead    ExperienceLevel = "lead"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusTerminated Status = "terminated"
)

// Terminal reports whether the status is absorbing.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusTerminated
}

// AnswerStrength is the categorical bucket derived from an overall score.
type AnswerStrength string

const (
	StrengthStrong   AnswerStrength = "strong"
	StrengthModerate AnswerStrength = "moderate"
	StrengthWeak     AnswerStrength = "weak"
)

// StrengthForScore buckets an overall score: >=70 strong, >=40 moderate,
// else weak.
func StrengthForScore(overall float64) AnswerStrength {
	switch {
	case overall >= 70:
		return StrengthStrong
	case overall >= 40:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// =============================================================================
// SCORE VECTOR
// =============================================================================

// Score weights. The weighting is a design invariant; it is never recomputed
// dynamically.
const (
	WeightContent       = 0.40
	WeightKeyword       = 0.20
	WeightDepth         = 0.15
	WeightCommunication = 0.15
	WeightConfidence    = 0.10
)

// ScoreVector holds the five dimension scores for one answer, each clamped
// to [0,100], plus the derived overall score.
type ScoreVector struct {
	Content       float64 `json:"content_score"`
	Keyword       float64 `json:"keyword_score"`
	Depth         float64 `json:"depth_score"`
	Communication float64 `json:"communication_score"`
	Confidence    float64 `json:"confidence_score"`
	Overall       float64 `json:"overall_score"`

	KeywordsMatched []string `json:"keywords_matched,omitempty"`
	KeywordsMissed  []string `json:"keywords_missed,omitempty"`
}

// Clamp bounds a score to [0,100].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Finalize clamps every dimension and recomputes the weighted overall score.
func (v *ScoreVector) Finalize() {
	v.Content = Clamp(v.Content)
	v.Keyword = Clamp(v.Keyword)
	v.Depth = Clamp(v.Depth)
	v.Communication = Clamp(v.Communication)
	v.Confidence = Clamp(v.Confidence)
	v.Overall = Clamp(round1(
		v.Content*WeightContent +
			v.Keyword*WeightKeyword +
			v.Depth*WeightDepth +
			v.Communication*WeightCommunication +
			v.Confidence*WeightConfidence))
}

func round1(f float64) float64 {
	if f >= 0 {
		return float64(int64(f*10+0.5)) / 10
	}
	return float64(int64(f*10-0.5)) / 10
}

// =============================================================================
// QUESTION RECORD
// =============================================================================

// QuestionRecord is one asked question. Immutable once created except for
// the answer fields attached when the candidate responds.
type QuestionRecord struct {
	ID          string     `json:"question_id"`
	Question    string     `json:"question"`
	IdealAnswer string     `json:"ideal_answer"`
	Keywords    []string   `json:"keywords"`
	Round       Round      `json:"round"`
	Difficulty  Difficulty `json:"difficulty"`
	Index       int        `json:"index"`
	AskedAt     time.Time  `json:"asked_at"`
	Fingerprint string     `json:"-"`

	// Set on answer submission.
	Answer     string         `json:"answer,omitempty"`
	Scores     *ScoreVector   `json:"scores,omitempty"`
	Feedback   string         `json:"feedback,omitempty"`
	Strength   AnswerStrength `json:"answer_strength,omitempty"`
	AnsweredAt time.Time      `json:"answered_at,omitempty"`
}

// Answered reports whether a score has been attached.
func (q *QuestionRecord) Answered() bool { return q.Scores != nil }

// =============================================================================
// ROUND SUMMARY
// =============================================================================

// RoundSummary aggregates one round's performance.
type RoundSummary struct {
	Round          Round   `json:"round"`
	Score          float64 `json:"score"`
	QuestionsAsked int     `json:"questions_asked"`
	Passed         bool    `json:"passed"`
}

// =============================================================================
// SESSION
// =============================================================================

// Session is one candidate's run through the interview. The engine owns the
// Session exclusively; callers only see copies of derived data.
type Session struct {
	ID         string            `json:"session_id"`
	Role       string            `json:"job_role"`
	Level      ExperienceLevel   `json:"experience_level"`
	Round      Round             `json:"current_round"`
	Status     Status            `json:"status"`
	Questions  []*QuestionRecord `json:"questions"`
	Technical  RoundSummary      `json:"technical_summary"`
	HR         RoundSummary      `json:"hr_summary"`
	TimeBudget time.Duration     `json:"time_budget"`
	// ProcessingTotal is cumulative engine processing time, excluded from
	// the candidate's elapsed time.
	ProcessingTotal   time.Duration `json:"-"`
	StartedAt         time.Time     `json:"started_at"`
	CompletedAt       time.Time     `json:"completed_at,omitempty"`
	TerminationReason string        `json:"termination_reason,omitempty"`
}

// InRound returns the asked questions belonging to the given round.
func (s *Session) InRound(r Round) []*QuestionRecord {
	var out []*QuestionRecord
	for _, q := range s.Questions {
		if q.Round == r {
			out = append(out, q)
		}
	}
	return out
}

// Pending returns the most recent question if it has not been answered yet.
func (s *Session) Pending() *QuestionRecord {
	if len(s.Questions) == 0 {
		return nil
	}
	last := s.Questions[len(s.Questions)-1]
	if last.Answered() {
		return nil
	}
	return last
}

// AskedFingerprints returns the fingerprints of every asked question, used
// by the router to avoid repeats.
func (s *Session) AskedFingerprints() []string {
	fps := make([]string, 0, len(s.Questions))
	for _, q := range s.Questions {
		if q.Fingerprint != "" {
			fps = append(fps, q.Fingerprint)
		}
	}
	return fps
}

// RoundScore averages the overall scores of answered questions in a round.
func (s *Session) RoundScore(r Round) float64 {
	var sum float64
	var n int
	for _, q := range s.InRound(r) {
		if q.Answered() {
			sum += q.Scores.Overall
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return round1(sum / float64(n))
}

// InitialDifficulty maps experience level to the starting difficulty.
func InitialDifficulty(level ExperienceLevel) Difficulty {
	switch level {
	case LevelFresher, LevelJunior:
		return DifficultyEasy
	case LevelSenior, LevelLead:
		return DifficultyHard
	default:
		return DifficultyMedium
	}
}
