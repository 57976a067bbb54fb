package policy

import (
	"testing"

	"hireloop/internal/interview"
)

func advanceN(s State, reward float64, n int, cfg Config) (State, interview.Difficulty) {
	d := s.Difficulty
	for i := 0; i < n; i++ {
		s, d = Advance(s, reward, cfg)
	}
	return s, d
}

func TestAdvanceRaisesOnSustainedHighReward(t *testing.T) {
	cfg := DefaultConfig()
	s := NewState(interview.LevelMid)
	if s.Difficulty != interview.DifficultyMedium {
		t.Fatalf("mid level should start medium, got %s", s.Difficulty)
	}

	_, d := advanceN(s, 0.9, 5, cfg)
	if d != interview.DifficultyHard {
		t.Errorf("difficulty after sustained 0.9 rewards = %s, want hard", d)
	}
}

func TestAdvanceLowersOnSustainedLowReward(t *testing.T) {
	cfg := DefaultConfig()
	s := NewState(interview.LevelSenior)
	if s.Difficulty != interview.DifficultyHard {
		t.Fatalf("senior level should start hard, got %s", s.Difficulty)
	}

	_, d := advanceN(s, 0.1, 5, cfg)
	if d != interview.DifficultyEasy {
		t.Errorf("difficulty after sustained 0.1 rewards = %s, want easy", d)
	}
}

func TestAdvanceHoldsInsideHysteresisBand(t *testing.T) {
	cfg := DefaultConfig()
	s := NewState(interview.LevelMid)

	_, d := advanceN(s, 0.5, 10, cfg)
	if d != interview.DifficultyMedium {
		t.Errorf("difficulty after mid-band rewards = %s, want medium (no oscillation)", d)
	}
}

func TestAdvanceClampsReward(t *testing.T) {
	cfg := DefaultConfig()
	s := NewState(interview.LevelMid)

	s, _ = Advance(s, 7.5, cfg)
	if got := s.Rewards[len(s.Rewards)-1]; got != 1 {
		t.Errorf("reward stored = %.2f, want clamped to 1", got)
	}

	s, _ = Advance(s, -3, cfg)
	if got := s.Rewards[len(s.Rewards)-1]; got != 0 {
		t.Errorf("reward stored = %.2f, want clamped to 0", got)
	}
}

func TestAdvanceBoundsRewardHistory(t *testing.T) {
	cfg := Config{RewardWindow: 3, RaiseThreshold: 0.75, LowerThreshold: 0.35}
	s := NewState(interview.LevelMid)

	s, _ = advanceN(s, 0.5, 10, cfg)
	if len(s.Rewards) != 3 {
		t.Errorf("len(Rewards) = %d, want bounded to window 3", len(s.Rewards))
	}
	if s.Observations != 10 {
		t.Errorf("Observations = %d, want 10", s.Observations)
	}
}

func TestAdvanceRecoversAfterSlump(t *testing.T) {
	cfg := Config{RewardWindow: 3, RaiseThreshold: 0.75, LowerThreshold: 0.35}
	s := NewState(interview.LevelMid)

	s, d := advanceN(s, 0.1, 3, cfg)
	if d != interview.DifficultyEasy {
		t.Fatalf("difficulty after slump = %s, want easy", d)
	}

	// The window forgets the slump; strong answers climb back up.
	_, d = advanceN(s, 1.0, 6, cfg)
	if d != interview.DifficultyHard {
		t.Errorf("difficulty after recovery = %s, want hard", d)
	}
}

func TestDifficultySteps(t *testing.T) {
	if got := stepUp(interview.DifficultyHard); got != interview.DifficultyHard {
		t.Errorf("stepUp(hard) = %s, want hard", got)
	}
	if got := stepDown(interview.DifficultyEasy); got != interview.DifficultyEasy {
		t.Errorf("stepDown(easy) = %s, want easy", got)
	}
	if got := stepUp(interview.DifficultyEasy); got != interview.DifficultyMedium {
		t.Errorf("stepUp(easy) = %s, want medium", got)
	}
	if got := stepDown(interview.DifficultyHard); got != interview.DifficultyMedium {
		t.Errorf("stepDown(hard) = %s, want medium", got)
	}
}
