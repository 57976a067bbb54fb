package router

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"hireloop/internal/interview"
	"hireloop/internal/logging"
	"hireloop/internal/models"
)

const systemPrompt = `You are an expert interviewer conducting a timed two-round interview (Technical, then HR).
Generate SHORT, CONCISE questions (1-2 sentences, max 30 words). Never write long or multi-part questions.
Never repeat a previously asked question or a semantically similar variation.
Always generate a comprehensive ideal reference answer (3-5 sentences) and 5-7 evaluation keywords.
Always return valid JSON - no markdown, no extra text.`

// Request carries the session context the router needs to pick a question.
type Request struct {
	Role       string
	Level      interview.ExperienceLevel
	Round      interview.Round
	Difficulty interview.Difficulty

	// AskedFingerprints are the cache fingerprints of questions already
	// asked in this session; the cache key folds them in to avoid repeats.
	AskedFingerprints []string

	// PreviousQuestions feed the exclusion list in the generation prompt.
	PreviousQuestions []string

	// LastAnswer / LastScore condition the follow-up instruction.
	LastAnswer string
	LastScore  *float64
}

// Router returns the next question for a session context.
type Router struct {
	llm   models.LanguageModel
	cache *QuestionCache
}

// New creates a Router over a language model and a shared question cache.
// The cache is injected, not ambient, so tests get isolated registries.
func New(llm models.LanguageModel, cache *QuestionCache) *Router {
	return &Router{llm: llm, cache: cache}
}

// Cache exposes the underlying question cache (for cleanup and tests).
func (r *Router) Cache() *QuestionCache { return r.cache }

// NextQuestion returns a question for the given context. Cache hits return
// immediately with no model call. Misses generate via the language model;
// if generation fails or times out, a static fallback template is used.
// This path never fails a session.
func (r *Router) NextQuestion(ctx context.Context, req Request) *interview.QuestionRecord {
	timer := logging.StartTimer(logging.CategoryRouter, "NextQuestion")
	defer timer.StopWithThreshold(15 * time.Second)

	key := Fingerprint(req.Role, string(req.Level), string(req.Round), string(req.Difficulty), req.AskedFingerprints)

	if entry, ok := r.cache.Get(key); ok {
		logging.Router("cache hit: key=%s round=%s difficulty=%s", key, req.Round, req.Difficulty)
		return r.record(req, key, entry.Question, entry.IdealAnswer, entry.Keywords)
	}

	logging.RouterDebug("cache miss: key=%s round=%s difficulty=%s", key, req.Round, req.Difficulty)

	question, idealAnswer, keywords, err := r.generate(ctx, req)
	if err != nil {
		logging.Get(logging.CategoryRouter).Warn("generation failed, using fallback template: %v", err)
		question, idealAnswer, keywords = fallbackQuestion(req)
		return r.record(req, key, question, idealAnswer, keywords)
	}

	r.cache.Set(key, question, idealAnswer, keywords)
	return r.record(req, key, question, idealAnswer, keywords)
}

// PruneSession drops the cache entries keyed by a finished session's
// fingerprints. Idempotent; other sessions with identical context simply
// regenerate.
func (r *Router) PruneSession(fingerprints []string) {
	r.cache.Remove(fingerprints...)
	logging.RouterDebug("pruned %d session fingerprints", len(fingerprints))
}

func (r *Router) record(req Request, key, question, idealAnswer string, keywords []string) *interview.QuestionRecord {
	return &interview.QuestionRecord{
		ID:          uuid.NewString(),
		Question:    question,
		IdealAnswer: idealAnswer,
		Keywords:    keywords,
		Round:       req.Round,
		Difficulty:  req.Difficulty,
		AskedAt:     time.Now(),
		Fingerprint: key,
	}
}

// =============================================================================
// GENERATION
// =============================================================================

type generatedQuestion struct {
	Question    string   `json:"question"`
	IdealAnswer string   `json:"ideal_answer"`
	Keywords    []string `json:"evaluation_keywords"`
}

func (r *Router) generate(ctx context.Context, req Request) (string, string, []string, error) {
	resp, err := r.llm.CompleteWithSystem(ctx, systemPrompt, buildPrompt(req))
	if err != nil {
		return "", "", nil, err
	}

	var parsed generatedQuestion
	if err := json.Unmarshal([]byte(extractJSON(resp)), &parsed); err != nil {
		return "", "", nil, fmt.Errorf("unparseable model output: %w", err)
	}
	if strings.TrimSpace(parsed.Question) == "" {
		return "", "", nil, fmt.Errorf("model returned no question")
	}
	if len(parsed.Keywords) == 0 {
		parsed.Keywords = []string{"experience", "skills", "knowledge", "examples", "approach"}
	}
	if strings.TrimSpace(parsed.IdealAnswer) == "" {
		parsed.IdealAnswer = "A strong answer should cover relevant experience, specific examples, and demonstrate domain knowledge."
	}
	return parsed.Question, parsed.IdealAnswer, parsed.Keywords, nil
}

func buildPrompt(req Request) string {
	var b strings.Builder

	roundName := "Technical"
	if req.Round == interview.RoundHR {
		roundName = "HR"
	}

	fmt.Fprintf(&b, "Generate a %s interview question for a %s position.\n", roundName, req.Role)
	fmt.Fprintf(&b, "Experience Level: %s\n", req.Level)
	fmt.Fprintf(&b, "Difficulty: %s\n", req.Difficulty)
	fmt.Fprintf(&b, "Round: %s\n\n", roundName)

	if req.Round == interview.RoundHR {
		b.WriteString("HR questions cover: behavioral (STAR method), cultural fit, conflict resolution, leadership, career goals, situational judgment.\n")
	} else {
		b.WriteString("Technical questions cover: core skills, problem-solving, scenario-based, tool-specific, system-design topics.\n")
	}

	b.WriteString("\nPreviously asked questions (DO NOT repeat these or ask semantically similar questions - pick a DIFFERENT topic/angle each time):\n")
	if len(req.PreviousQuestions) == 0 {
		b.WriteString("None\n")
	} else {
		// Cap the exclusion list so prompts stay bounded.
		prev := req.PreviousQuestions
		if len(prev) > 30 {
			prev = prev[len(prev)-30:]
		}
		for _, q := range prev {
			fmt.Fprintf(&b, "- %s\n", q)
		}
	}

	if req.LastAnswer != "" {
		fmt.Fprintf(&b, "\nCandidate's last answer: %s\n", req.LastAnswer)
	}
	if req.LastScore != nil {
		switch score := *req.LastScore; {
		case score >= 80:
			b.WriteString("\nThe candidate scored well. Ask a deeper follow-up related to their last answer.\n")
		case score >= 50:
			b.WriteString("\nThe candidate gave a moderate answer. Ask a clarification question or probe their practical understanding.\n")
		default:
			b.WriteString("\nThe candidate struggled. Ask a simpler, supportive question on a related topic.\n")
		}
	}

	fmt.Fprintf(&b, `
Return ONLY a JSON object in this exact format:
{
  "question": "Your SHORT interview question here (1-2 sentences max)",
  "ideal_answer": "Concise ideal answer (3-5 sentences)",
  "evaluation_keywords": ["keyword1", "keyword2", "keyword3", "keyword4", "keyword5"]
}`)

	return b.String()
}

// extractJSON pulls the outermost JSON object out of a model response that
// may be wrapped in prose or markdown fences.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// =============================================================================
// STATIC FALLBACK POOL
// =============================================================================

var technicalFallbacks = []string{
	"What are the key principles of %s work?",
	"Describe a tough technical problem you solved recently.",
	"What tools and frameworks do you prefer as a %s and why?",
	"How would you design a scalable system for a typical %s task?",
	"What is your approach to debugging production issues?",
	"Explain a complex %s concept in simple terms.",
	"What are common performance bottlenecks in %s work?",
	"How do you ensure code quality in your projects?",
}

var hrFallbacks = []string{
	"Tell me about a time you handled a conflict in your team.",
	"What motivates you in your career?",
	"Describe a situation where you showed leadership.",
	"Where do you see yourself in five years?",
	"How do you handle tight deadlines?",
	"What is your biggest professional achievement?",
	"Why are you interested in this role?",
	"How do you prioritize when everything is urgent?",
}

// fallbackQuestion picks an unasked template for the round. The soft
// degradation path: a model outage never fails a session.
func fallbackQuestion(req Request) (string, string, []string) {
	pool := hrFallbacks
	if req.Round == interview.RoundTechnical {
		pool = technicalFallbacks
	}

	asked := make(map[string]bool, len(req.PreviousQuestions))
	for _, q := range req.PreviousQuestions {
		asked[q] = true
	}

	chosen := renderTemplate(pool[0], req.Role)
	for _, tmpl := range pool {
		q := renderTemplate(tmpl, req.Role)
		if !asked[q] {
			chosen = q
			break
		}
	}

	idealAnswer := "A strong answer should cover relevant experience, specific examples, and demonstrate domain knowledge."
	keywords := []string{"experience", "skills", "knowledge", "examples", "approach"}
	return chosen, idealAnswer, keywords
}

func renderTemplate(tmpl, role string) string {
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, role)
	}
	return tmpl
}
