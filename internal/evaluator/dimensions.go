// Package evaluator scores a submitted answer against the asked question
// across five weighted dimensions and derives qualitative labels. Every
// dimension degrades independently to a neutral default when its
// computation fails; evaluation never blocks session progress.
package evaluator

import (
	"strings"
)

// dimension is the uniform result of one scored dimension: a real score, or
// the neutral default with a degradation reason. Composing the five at the
// end keeps each failure path independently testable.
type dimension struct {
	score    float64
	degraded bool
	reason   string
}

func scored(score float64) dimension {
	return dimension{score: score}
}

func neutral(defaultScore float64, reason string) dimension {
	return dimension{score: defaultScore, degraded: true, reason: reason}
}

// =============================================================================
// KEYWORD DIMENSION
// =============================================================================

// keywordScore computes the fraction of expected keywords present in the
// answer, scaled to 0-100. Matching is case-insensitive and stem-tolerant:
// "optimizing" matches the keyword "optimize".
func keywordScore(answer string, keywords []string) (dimension, []string, []string) {
	if len(keywords) == 0 {
		return scored(0), nil, nil
	}

	lower := strings.ToLower(answer)
	var matched, missed []string
	for _, kw := range keywords {
		if containsStem(lower, strings.ToLower(kw)) {
			matched = append(matched, kw)
		} else {
			missed = append(missed, kw)
		}
	}

	pct := float64(len(matched)) / float64(len(keywords)) * 100
	return scored(pct), matched, missed
}

// containsStem reports whether answer contains keyword or a suffix-stripped
// stem of it. Plain containment mirrors the scoring contract; the stem pass
// only tolerates common inflections.
func containsStem(answer, keyword string) bool {
	if strings.Contains(answer, keyword) {
		return true
	}
	stem := stemWord(keyword)
	return len(stem) >= 3 && strings.Contains(answer, stem)
}

func stemWord(w string) string {
	for _, suffix := range []string{"ization", "ations", "ation", "ings", "ing", "ies", "ers", "er", "ed", "es", "s"} {
		if strings.HasSuffix(w, suffix) && len(w)-len(suffix) >= 3 {
			return w[:len(w)-len(suffix)]
		}
	}
	// Trailing e drops so "optimize" still matches "optimizing".
	if strings.HasSuffix(w, "e") && len(w) > 4 {
		return w[:len(w)-1]
	}
	return w
}

// =============================================================================
// DEPTH DIMENSION
// =============================================================================

// elaborationMarkers are connectives signalling the answer goes beyond
// surface level.
var elaborationMarkers = []string{
	"because", "for example", "for instance", "such as", "therefore",
	"however", "in addition", "furthermore", "specifically", "in practice",
	"trade-off", "tradeoff", "on the other hand", "in my experience",
}

// depthScore is a pure heuristic over answer length, sentence count, and
// elaborating connectives, capped at 100.
func depthScore(answer string) dimension {
	words := len(strings.Fields(answer))
	sentences := countSentences(answer)

	lower := strings.ToLower(answer)
	markers := 0
	for _, m := range elaborationMarkers {
		markers += strings.Count(lower, m)
	}

	score := float64(min(words, 120)) / 120 * 60
	if sentences >= 3 {
		score += 15
	}
	if sentences >= 5 {
		score += 10
	}
	score += float64(min(markers, 5)) * 5

	if score > 100 {
		score = 100
	}
	return scored(score)
}

func countSentences(answer string) int {
	n := 0
	for _, s := range strings.FieldsFunc(answer, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	}) {
		if strings.TrimSpace(s) != "" {
			n++
		}
	}
	return n
}

// =============================================================================
// COMMUNICATION / CONFIDENCE FALLBACK HEURISTICS
// =============================================================================

// communicationHeuristic bands the score by response length, with bonuses
// for multi-sentence structure and transition markers.
func communicationHeuristic(answer string) float64 {
	words := len(strings.Fields(answer))

	var score float64
	switch {
	case words < 10:
		score = 15
	case words < 20:
		score = 35
	case words < 50:
		score = 55
	case words < 100:
		score = 70
	case words < 200:
		score = 82
	default:
		score = 88
	}

	sentences := countSentences(answer)
	if sentences >= 3 {
		score += 8
	}
	if sentences >= 5 {
		score += 5
	}

	structureMarkers := []string{
		"firstly", "secondly", "however", "moreover", "for example",
		"in addition", "furthermore", "therefore", "in conclusion",
		"on the other hand", "specifically", "for instance",
	}
	lower := strings.ToLower(answer)
	for _, m := range structureMarkers {
		if strings.Contains(lower, m) {
			score += 3
		}
	}

	if score > 100 {
		score = 100
	}
	return score
}

// fillerWords mark hesitation; their density drags the confidence estimate.
var fillerWords = map[string]bool{
	"um": true, "uh": true, "er": true, "hmm": true, "like": true,
	"maybe": true, "perhaps": true, "possibly": true, "guess": true,
	"probably": true, "kinda": true, "sorta": true, "dunno": true,
}

// confidenceHeuristic estimates confidence from hesitation-marker and
// filler-word density. Too-short answers are not judged; they get the
// neutral default from the caller.
func confidenceHeuristic(answer string, neutralScore float64) float64 {
	fields := strings.Fields(strings.ToLower(answer))
	if len(fields) < 8 {
		return neutralScore
	}

	fillers := 0
	for _, w := range fields {
		if fillerWords[strings.Trim(w, ".,!?;:")] {
			fillers++
		}
	}

	hedges := 0
	lower := strings.ToLower(answer)
	for _, h := range []string{"i think", "i'm not sure", "not sure", "i believe", "i suppose"} {
		hedges += strings.Count(lower, h)
	}

	density := float64(fillers+2*hedges) / float64(len(fields))
	score := 85 - density*400
	if score < 10 {
		score = 10
	}
	return score
}
