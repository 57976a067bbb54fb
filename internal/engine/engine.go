// Package engine orchestrates interview sessions: lifecycle, round
// progression, the active-time budget, and exactly-once cleanup. It is the
// only writer of session state; router, policy, and evaluator are
// collaborators injected at construction.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"hireloop/internal/config"
	"hireloop/internal/evaluator"
	"hireloop/internal/interview"
	"hireloop/internal/logging"
	"hireloop/internal/policy"
	"hireloop/internal/router"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrSessionNotFound means the session id is unknown to the engine.
	ErrSessionNotFound = errors.New("session not found")

	// ErrPendingQuestion means a question is awaiting an answer; the caller
	// must submit before asking for the next one.
	ErrPendingQuestion = errors.New("a question is already pending an answer")

	// ErrNoPendingQuestion means there is no question to answer.
	ErrNoPendingQuestion = errors.New("no question is pending an answer")
)

// StateError reports an operation attempted against a session whose status
// does not permit it. The failed call has no side effects; callers may
// retry after correcting course (or fetch the report if the status is
// terminal).
type StateError struct {
	Op     string
	Status interview.Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: session is %s", e.Op, e.Status)
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs interview sessions. Safe for concurrent use; each session is
// guarded by its own lock so independent sessions never contend.
type Engine struct {
	cfg    config.Config
	router *router.Router
	policy *policy.Registry
	eval   *evaluator.Evaluator

	mu       sync.RWMutex
	sessions map[string]*sessionState

	// now is swapped out by clock-sensitive tests.
	now func() time.Time
}

// sessionState pairs a session with its lock, cached report, and cleanup
// latch.
type sessionState struct {
	mu      sync.Mutex
	session *interview.Session
	report  *Report
	cleaned bool

	// evaluating and routing mark in-flight model calls; the lock is not
	// held across them, so a concurrent end can still proceed.
	evaluating bool
	routing    bool
}

// New builds an Engine over the given collaborators.
func New(cfg config.Config, r *router.Router, p *policy.Registry, ev *evaluator.Evaluator) *Engine {
	return &Engine{
		cfg:      cfg,
		router:   r,
		policy:   p,
		eval:     ev,
		sessions: make(map[string]*sessionState),
		now:      time.Now,
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// StartSession creates a session, registers its difficulty state, and asks
// the first technical question. The returned record is the question to put
// in front of the candidate.
func (e *Engine) StartSession(ctx context.Context, role string, level interview.ExperienceLevel, timeBudget time.Duration) (*interview.Session, *interview.QuestionRecord, error) {
	if role == "" {
		return nil, nil, errors.New("job role is required")
	}
	if timeBudget <= 0 {
		return nil, nil, fmt.Errorf("time budget must be positive, got %s", timeBudget)
	}

	s := &interview.Session{
		ID:         uuid.NewString(),
		Role:       role,
		Level:      level,
		Round:      interview.RoundTechnical,
		Status:     interview.StatusInProgress,
		TimeBudget: timeBudget,
		StartedAt:  e.now(),
	}

	difficulty := e.policy.Init(s.ID, level)
	logging.Session("session %s started: role=%q level=%s budget=%s difficulty=%s",
		s.ID, role, level, timeBudget, difficulty)

	st := &sessionState{session: s, routing: true}
	e.mu.Lock()
	e.sessions[s.ID] = st
	e.mu.Unlock()

	q, err := e.ask(ctx, "start session", st, difficulty)
	if err != nil {
		return nil, nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return snapshot(s), q, nil
}

// NextQuestion asks the next question in the session's current round. The
// previous question must have been answered.
func (e *Engine) NextQuestion(ctx context.Context, sessionID string) (*interview.QuestionRecord, error) {
	st, err := e.state(sessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	if e.expireLocked(st) || st.session.Status != interview.StatusInProgress {
		status := st.session.Status
		st.mu.Unlock()
		return nil, &StateError{Op: "next question", Status: status}
	}
	if st.session.Pending() != nil || st.routing {
		st.mu.Unlock()
		return nil, ErrPendingQuestion
	}
	difficulty := e.policy.Current(sessionID, st.session.Level)
	st.routing = true
	st.mu.Unlock()

	return e.ask(ctx, "next question", st, difficulty)
}

// ask routes the next question and appends it to the session. Routing time
// counts as processing, not candidate time. The lock is released across the
// router's model call so an explicit end or expiry proceeds while a question
// is being generated; a record arriving after the session left in_progress
// is discarded. Callers set st.routing before calling.
func (e *Engine) ask(ctx context.Context, op string, st *sessionState, difficulty interview.Difficulty) (*interview.QuestionRecord, error) {
	st.mu.Lock()
	s := st.session
	start := e.now()

	var lastAnswer string
	var lastScore *float64
	if n := len(s.Questions); n > 0 && s.Questions[n-1].Answered() {
		last := s.Questions[n-1]
		if last.Round == s.Round {
			lastAnswer = last.Answer
			score := last.Scores.Overall
			lastScore = &score
		}
	}

	prev := make([]string, 0, len(s.Questions))
	for _, q := range s.Questions {
		prev = append(prev, q.Question)
	}

	req := router.Request{
		Role:              s.Role,
		Level:             s.Level,
		Round:             s.Round,
		Difficulty:        difficulty,
		AskedFingerprints: s.AskedFingerprints(),
		PreviousQuestions: prev,
		LastAnswer:        lastAnswer,
		LastScore:         lastScore,
	}
	st.mu.Unlock()

	q := e.router.NextQuestion(ctx, req)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.routing = false
	s.ProcessingTotal += e.now().Sub(start)

	// Late question: the session left in_progress while routing was in
	// flight. The record is discarded.
	if e.expireLocked(st) || s.Status != interview.StatusInProgress {
		return nil, &StateError{Op: op, Status: s.Status}
	}

	q.Index = len(s.Questions) + 1
	s.Questions = append(s.Questions, q)

	logging.Session("session %s question %d asked: round=%s difficulty=%s", s.ID, q.Index, q.Round, q.Difficulty)
	return q, nil
}

// SubmitResult is the outcome of answering one question.
type SubmitResult struct {
	Evaluation evaluator.Result

	// RoundFinished is set when this answer closed out the current round.
	RoundFinished bool

	// Status and Round reflect the session after any transition.
	Status interview.Status
	Round  interview.Round
}

// SubmitAnswer evaluates the pending question's answer, advances the
// difficulty controller, and applies any round transition. Evaluation time
// is charged to processing, not to the candidate's clock.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, answer string) (*SubmitResult, error) {
	st, err := e.state(sessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	if e.expireLocked(st) {
		status := st.session.Status
		st.mu.Unlock()
		return nil, &StateError{Op: "submit answer", Status: status}
	}
	s := st.session
	if s.Status != interview.StatusInProgress {
		status := s.Status
		st.mu.Unlock()
		return nil, &StateError{Op: "submit answer", Status: status}
	}
	q := s.Pending()
	if q == nil || st.evaluating {
		st.mu.Unlock()
		return nil, ErrNoPendingQuestion
	}
	st.evaluating = true
	start := e.now()
	st.mu.Unlock()

	// The lock is released during the model calls so an explicit end or
	// expiry can proceed while evaluation is in flight.
	res := e.eval.Evaluate(ctx, q, answer)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.evaluating = false
	s.ProcessingTotal += e.now().Sub(start)

	// Late result: the session left in_progress while evaluation was in
	// flight. The score is discarded.
	if e.expireLocked(st) || s.Status != interview.StatusInProgress {
		return nil, &StateError{Op: "submit answer", Status: s.Status}
	}

	scores := res.Scores
	q.Answer = answer
	q.Scores = &scores
	q.Feedback = res.Feedback
	q.Strength = res.Strength
	q.AnsweredAt = e.now()

	next := e.policy.Observe(sessionID, s.Level, scores.Overall)
	logging.Session("session %s question %d answered: score=%.1f strength=%s next_difficulty=%s",
		s.ID, q.Index, scores.Overall, res.Strength, next)

	finished := e.maybeFinishRoundLocked(st)
	return &SubmitResult{
		Evaluation:    res,
		RoundFinished: finished,
		Status:        s.Status,
		Round:         s.Round,
	}, nil
}

// EndSession finishes the session and returns its report. Idempotent: a
// second call returns the same report with no error. A still-running
// session is terminated.
func (e *Engine) EndSession(sessionID string) (*Report, error) {
	st, err := e.state(sessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.report != nil {
		return st.report, nil
	}

	s := st.session
	if !s.Status.Terminal() {
		e.expireLocked(st)
	}
	if !s.Status.Terminal() {
		e.terminateLocked(st, "session ended by caller")
	}

	st.report = e.buildReport(s)
	logging.Report("session %s report generated: status=%s recommendation=%q overall=%.1f",
		s.ID, s.Status, st.report.Recommendation, st.report.OverallScore)
	return st.report, nil
}

// Session returns a snapshot of the session's current state.
func (e *Engine) Session(sessionID string) (*interview.Session, error) {
	st, err := e.state(sessionID)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	e.expireLocked(st)
	return snapshot(st.session), nil
}

// TimeRemaining reports how much candidate time is left. Processing time
// spent inside the engine does not count against the budget.
func (e *Engine) TimeRemaining(sessionID string) (time.Duration, error) {
	st, err := e.state(sessionID)
	if err != nil {
		return 0, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session.Status.Terminal() {
		return 0, nil
	}
	return e.remainingLocked(st.session), nil
}

// =============================================================================
// ROUND PROGRESSION
// =============================================================================

// maybeFinishRoundLocked closes the current round when its question budget
// is exhausted, or when its time share has elapsed with at least the
// minimum number of answers in. Caller holds st.mu.
func (e *Engine) maybeFinishRoundLocked(st *sessionState) bool {
	s := st.session
	rounds := e.cfg.Rounds

	answered := 0
	for _, q := range s.InRound(s.Round) {
		if q.Answered() {
			answered++
		}
	}

	budget := rounds.TechnicalQuestions
	timeShare := rounds.TechnicalTimeShare
	if s.Round == interview.RoundHR {
		budget = rounds.HRQuestions
		timeShare = 1.0
	}

	roundDeadline := time.Duration(float64(s.TimeBudget) * timeShare)
	overTime := e.activeLocked(s) >= roundDeadline && answered >= rounds.MinQuestions

	if answered < budget && !overTime {
		return false
	}

	score := s.RoundScore(s.Round)
	switch s.Round {
	case interview.RoundTechnical:
		passed := score >= rounds.TechnicalCutoff
		s.Technical = interview.RoundSummary{
			Round:          interview.RoundTechnical,
			Score:          score,
			QuestionsAsked: len(s.InRound(interview.RoundTechnical)),
			Passed:         passed,
		}
		if !passed {
			logging.Session("session %s failed: technical score %.1f below cutoff %.1f",
				s.ID, score, rounds.TechnicalCutoff)
			s.Status = interview.StatusFailed
			s.TerminationReason = fmt.Sprintf("technical round score %.1f below cutoff %.1f", score, rounds.TechnicalCutoff)
			s.CompletedAt = e.now()
			e.cleanupLocked(st)
			return true
		}
		logging.Session("session %s advanced to HR round: technical score %.1f", s.ID, score)
		s.Round = interview.RoundHR

	case interview.RoundHR:
		s.HR = interview.RoundSummary{
			Round:          interview.RoundHR,
			Score:          score,
			QuestionsAsked: len(s.InRound(interview.RoundHR)),
			Passed:         score >= rounds.HRCutoff,
		}
		logging.Session("session %s completed: hr score %.1f", s.ID, score)
		s.Status = interview.StatusCompleted
		s.CompletedAt = e.now()
		e.cleanupLocked(st)
	}
	return true
}

// =============================================================================
// TIME
// =============================================================================

// activeLocked is the candidate's elapsed time: wall clock since start
// minus cumulative engine processing.
func (e *Engine) activeLocked(s *interview.Session) time.Duration {
	active := e.now().Sub(s.StartedAt) - s.ProcessingTotal
	if active < 0 {
		return 0
	}
	return active
}

func (e *Engine) remainingLocked(s *interview.Session) time.Duration {
	rem := s.TimeBudget - e.activeLocked(s)
	if rem < 0 {
		return 0
	}
	return rem
}

// expireLocked terminates the session if its time budget is spent. Returns
// true if the session is expired (whether just now or earlier).
func (e *Engine) expireLocked(st *sessionState) bool {
	s := st.session
	if s.Status.Terminal() {
		return s.Status == interview.StatusTerminated
	}
	if e.activeLocked(s) < s.TimeBudget {
		return false
	}
	logging.Session("session %s terminated: time budget %s exhausted", s.ID, s.TimeBudget)
	e.terminateLocked(st, "time budget exhausted")
	return true
}

// terminateLocked moves a running session to terminated, finalizing the
// summary of whichever round was in flight. Caller holds st.mu.
func (e *Engine) terminateLocked(st *sessionState, reason string) {
	s := st.session
	s.Status = interview.StatusTerminated
	s.TerminationReason = reason
	s.CompletedAt = e.now()

	score := s.RoundScore(s.Round)
	summary := interview.RoundSummary{
		Round:          s.Round,
		Score:          score,
		QuestionsAsked: len(s.InRound(s.Round)),
	}
	if s.Round == interview.RoundTechnical {
		summary.Passed = score >= e.cfg.Rounds.TechnicalCutoff
		s.Technical = summary
	} else {
		summary.Passed = score >= e.cfg.Rounds.HRCutoff
		s.HR = summary
	}
	e.cleanupLocked(st)
}

// =============================================================================
// CLEANUP
// =============================================================================

// cleanupLocked releases per-session state held by collaborators. Runs at
// most once per session regardless of how the session ended.
func (e *Engine) cleanupLocked(st *sessionState) {
	if st.cleaned {
		return
	}
	st.cleaned = true

	s := st.session
	e.policy.Cleanup(s.ID)
	e.router.PruneSession(s.AskedFingerprints())
	logging.SessionDebug("session %s cleaned up", s.ID)
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) state(sessionID string) (*sessionState, error) {
	e.mu.RLock()
	st, ok := e.sessions[sessionID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return st, nil
}

// snapshot deep-copies the session so callers cannot mutate engine state.
func snapshot(s *interview.Session) *interview.Session {
	out := *s
	out.Questions = make([]*interview.QuestionRecord, len(s.Questions))
	for i, q := range s.Questions {
		qc := *q
		qc.Keywords = append([]string(nil), q.Keywords...)
		if q.Scores != nil {
			sc := *q.Scores
			sc.KeywordsMatched = append([]string(nil), q.Scores.KeywordsMatched...)
			sc.KeywordsMissed = append([]string(nil), q.Scores.KeywordsMissed...)
			qc.Scores = &sc
		}
		out.Questions[i] = &qc
	}
	return &out
}
