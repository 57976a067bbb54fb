// Package policy implements the per-session difficulty adaptation
// controller: a pure reward-driven transition function plus a bounded
// registry of per-session state.
package policy

import (
	"time"

	"hireloop/internal/interview"
)

// Config holds the controller tunables. The window and thresholds are
// tunable defaults, not fixed contracts.
type Config struct {
	// RewardWindow is the trailing reward history length.
	RewardWindow int

	// RaiseThreshold: trailing average at or above this steps difficulty up.
	RaiseThreshold float64

	// LowerThreshold: trailing average at or below this steps difficulty down.
	LowerThreshold float64
}

// DefaultConfig returns the default controller tuning.
func DefaultConfig() Config {
	return Config{
		RewardWindow:   5,
		RaiseThreshold: 0.75,
		LowerThreshold: 0.35,
	}
}

// State is one session's adaptive controller state.
type State struct {
	Difficulty interview.Difficulty
	// Rewards is the bounded trailing history, newest last.
	Rewards []float64
	// Cumulative is the running mean reward over the whole session.
	Cumulative float64
	// Observations counts scored answers.
	Observations int
	CreatedAt    time.Time
}

// NewState seeds controller state from the candidate's experience level.
func NewState(level interview.ExperienceLevel) State {
	return State{
		Difficulty: interview.InitialDifficulty(level),
		CreatedAt:  time.Now(),
	}
}

// Advance applies one reward observation and returns the new state and the
// next target difficulty. Pure function: the registry only stores state.
//
// The hysteresis band between the two thresholds holds difficulty steady so
// a single noisy answer cannot cause oscillation.
func Advance(s State, reward float64, cfg Config) (State, interview.Difficulty) {
	if reward < 0 {
		reward = 0
	}
	if reward > 1 {
		reward = 1
	}

	s.Rewards = append(s.Rewards, reward)
	if len(s.Rewards) > cfg.RewardWindow {
		s.Rewards = s.Rewards[len(s.Rewards)-cfg.RewardWindow:]
	}
	s.Cumulative = (s.Cumulative*float64(s.Observations) + reward) / float64(s.Observations+1)
	s.Observations++

	avg := trailingAverage(s.Rewards)
	switch {
	case avg >= cfg.RaiseThreshold:
		s.Difficulty = stepUp(s.Difficulty)
	case avg <= cfg.LowerThreshold:
		s.Difficulty = stepDown(s.Difficulty)
	}

	return s, s.Difficulty
}

func trailingAverage(rewards []float64) float64 {
	if len(rewards) == 0 {
		return 0.5
	}
	var sum float64
	for _, r := range rewards {
		sum += r
	}
	return sum / float64(len(rewards))
}

func stepUp(d interview.Difficulty) interview.Difficulty {
	switch d {
	case interview.DifficultyEasy:
		return interview.DifficultyMedium
	default:
		return interview.DifficultyHard
	}
}

func stepDown(d interview.Difficulty) interview.Difficulty {
	switch d {
	case interview.DifficultyHard:
		return interview.DifficultyMedium
	default:
		return interview.DifficultyEasy
	}
}
