package policy

import (
	"sync"

	"hireloop/internal/interview"
	"hireloop/internal/logging"
)

// Registry maps session ids to controller state. Capacity-bounded with FIFO
// eviction by creation order, so abandoned sessions cannot grow memory
// without bound even when cleanup never runs.
type Registry struct {
	mu       sync.Mutex
	states   map[string]State
	order    []string // creation order, oldest first
	capacity int
	cfg      Config
}

// NewRegistry creates a registry with the given capacity and tuning.
func NewRegistry(capacity int, cfg Config) *Registry {
	if capacity <= 0 {
		capacity = 500
	}
	if cfg.RewardWindow <= 0 {
		cfg = DefaultConfig()
	}
	return &Registry{
		states:   make(map[string]State),
		capacity: capacity,
		cfg:      cfg,
	}
}

// Init seeds state for a session from its experience level. No-op if the
// session already has state.
func (r *Registry) Init(sessionID string, level interview.ExperienceLevel) interview.Difficulty {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.states[sessionID]; ok {
		return s.Difficulty
	}
	s := NewState(level)
	r.insert(sessionID, s)
	logging.Policy("session %s: initial difficulty=%s (level=%s)", sessionID, s.Difficulty, level)
	return s.Difficulty
}

// Observe feeds one overall score (0-100) as a reward and returns the next
// target difficulty. An unknown session id is treated as a fresh session
// and re-initialized, so an evicted or cleaned-up session never errors.
func (r *Registry) Observe(sessionID string, level interview.ExperienceLevel, overallScore float64) interview.Difficulty {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[sessionID]
	if !ok {
		s = NewState(level)
		r.insert(sessionID, s)
	}

	next, difficulty := Advance(s, overallScore/100.0, r.cfg)
	r.states[sessionID] = next

	logging.PolicyDebug("session %s: reward=%.2f trailing=%d difficulty=%s",
		sessionID, overallScore/100.0, len(next.Rewards), difficulty)
	return difficulty
}

// Current returns the session's target difficulty without observing a
// reward, initializing fresh state when absent.
func (r *Registry) Current(sessionID string, level interview.ExperienceLevel) interview.Difficulty {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.states[sessionID]
	if !ok {
		s = NewState(level)
		r.insert(sessionID, s)
	}
	return s.Difficulty
}

// Cleanup removes a session's state immediately. Idempotent.
func (r *Registry) Cleanup(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.states[sessionID]; !ok {
		return
	}
	delete(r.states, sessionID)
	for i, id := range r.order {
		if id == sessionID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	logging.PolicyDebug("session %s: state cleaned up", sessionID)
}

// Contains reports whether the registry holds state for the session.
func (r *Registry) Contains(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.states[sessionID]
	return ok
}

// Size returns the number of tracked sessions.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// insert adds state under the caller's lock, evicting the oldest-created
// entry when at capacity.
func (r *Registry) insert(sessionID string, s State) {
	for len(r.states) >= r.capacity && len(r.order) > 0 {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.states, oldest)
		logging.PolicyDebug("registry at capacity, evicted oldest session %s", oldest)
	}
	r.states[sessionID] = s
	r.order = append(r.order, sessionID)
}
