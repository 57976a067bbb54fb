package interview

import (
	"math"
	"testing"
	"time"
)

func TestFinalizeWeightedOverall(t *testing.T) {
	v := ScoreVector{
		Content:       80,
		Keyword:       60,
		Depth:         70,
		Communication: 90,
		Confidence:    50,
	}
	v.Finalize()

	want := 80*0.40 + 60*0.20 + 70*0.15 + 90*0.15 + 50*0.10
	if math.Abs(v.Overall-want) > 0.05 {
		t.Errorf("Overall = %.2f, want %.2f", v.Overall, want)
	}
}

func TestFinalizeClampsDimensions(t *testing.T) {
	v := ScoreVector{
		Content:       150,
		Keyword:       -20,
		Depth:         100,
		Communication: 0,
		Confidence:    50,
	}
	v.Finalize()

	if v.Content != 100 {
		t.Errorf("Content = %.1f, want clamped to 100", v.Content)
	}
	if v.Keyword != 0 {
		t.Errorf("Keyword = %.1f, want clamped to 0", v.Keyword)
	}
	if v.Overall < 0 || v.Overall > 100 {
		t.Errorf("Overall = %.1f, want within [0,100]", v.Overall)
	}
}

func TestStrengthForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  AnswerStrength
	}{
		{100, StrengthStrong},
		{70, StrengthStrong},
		{69.9, StrengthModerate},
		{40, StrengthModerate},
		{39.9, StrengthWeak},
		{0, StrengthWeak},
	}
	for _, tt := range tests {
		if got := StrengthForScore(tt.score); got != tt.want {
			t.Errorf("StrengthForScore(%.1f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestInitialDifficulty(t *testing.T) {
	tests := []struct {
		level ExperienceLevel
		want  Difficulty
	}{
		{LevelFresher, DifficultyEasy},
		{LevelJunior, DifficultyEasy},
		{LevelMid, DifficultyMedium},
		{LevelSenior, DifficultyHard},
		{LevelLead, DifficultyHard},
	}
	for _, tt := range tests {
		if got := InitialDifficulty(tt.level); got != tt.want {
			t.Errorf("InitialDifficulty(%s) = %s, want %s", tt.level, got, tt.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusTerminated} {
		if !s.Terminal() {
			t.Errorf("%s.Terminal() = false, want true", s)
		}
	}
	for _, s := range []Status{StatusNotStarted, StatusInProgress} {
		if s.Terminal() {
			t.Errorf("%s.Terminal() = true, want false", s)
		}
	}
}

func TestSessionPending(t *testing.T) {
	s := &Session{}
	if s.Pending() != nil {
		t.Fatal("empty session should have no pending question")
	}

	q := &QuestionRecord{ID: "q1", Round: RoundTechnical, AskedAt: time.Now()}
	s.Questions = append(s.Questions, q)
	if got := s.Pending(); got != q {
		t.Fatalf("Pending() = %v, want the unanswered question", got)
	}

	q.Scores = &ScoreVector{Overall: 55}
	if s.Pending() != nil {
		t.Fatal("answered question should not be pending")
	}
}

func TestRoundScoreAveragesAnsweredOnly(t *testing.T) {
	s := &Session{
		Questions: []*QuestionRecord{
			{Round: RoundTechnical, Scores: &ScoreVector{Overall: 80}},
			{Round: RoundTechnical, Scores: &ScoreVector{Overall: 60}},
			{Round: RoundTechnical}, // pending, excluded
			{Round: RoundHR, Scores: &ScoreVector{Overall: 10}},
		},
	}

	if got := s.RoundScore(RoundTechnical); got != 70 {
		t.Errorf("RoundScore(technical) = %.1f, want 70", got)
	}
	if got := s.RoundScore(RoundHR); got != 10 {
		t.Errorf("RoundScore(hr) = %.1f, want 10", got)
	}
	if got := (&Session{}).RoundScore(RoundTechnical); got != 0 {
		t.Errorf("RoundScore on empty session = %.1f, want 0", got)
	}
}

func TestAskedFingerprintsSkipsBlank(t *testing.T) {
	s := &Session{
		Questions: []*QuestionRecord{
			{Fingerprint: "aaa"},
			{Fingerprint: ""},
			{Fingerprint: "bbb"},
		},
	}
	fps := s.AskedFingerprints()
	if len(fps) != 2 || fps[0] != "aaa" || fps[1] != "bbb" {
		t.Errorf("AskedFingerprints() = %v, want [aaa bbb]", fps)
	}
}
