package orchestrator

import (
	"regexp"
	"strings"
)

// retrieveThreshold is the confidence above which ShouldRetrieve recommends
// augmenting the answer with past papers.
const retrieveThreshold = 0.5

var (
	camelCaseRe = regexp.MustCompile(`[A-Z][a-z]+[A-Z]`)
	acronymRe   = regexp.MustCompile(`\b[A-Z]{2,}\b`)
)

// examKeywords mark queries that look like exam or homework questions.
var examKeywords = []string{
	"exam", "question", "quiz", "test", "assignment", "homework", "cat",
	"past paper", "previous", "mark", "define", "explain", "describe",
	"discuss", "analyze", "solve", "calculate", "write", "design", "implement",
}

// specificityWords mark queries anchored to course structure.
var specificityWords = []string{"unit", "course", "year", "paper"}

// ShouldRetrieve scores how much a query would benefit from past-paper
// context and recommends retrieval above a fixed threshold. It weighs query
// length, exam phrasing, technical terms and course-specific anchors. The
// answer pipeline never calls this itself; it backs the UI's "auto"
// retrieval setting, while Answer always honors the caller's explicit flag.
func ShouldRetrieve(query string) (bool, float64) {
	score := 0.0
	lower := strings.ToLower(query)

	// length: longer queries tend to be specific (0-0.2)
	words := len(strings.Fields(query))
	switch {
	case words > 10:
		score += 0.2
	case words > 5:
		score += 0.1
	}

	// exam phrasing (0-0.3)
	kw := 0.0
	for _, k := range examKeywords {
		if strings.Contains(lower, k) {
			kw += 0.1
		}
	}
	if kw > 0.3 {
		kw = 0.3
	}
	score += kw

	// technical terms (0-0.3)
	if camelCaseRe.MatchString(query) {
		score += 0.15
	}
	if acronymRe.MatchString(query) {
		score += 0.15
	}

	// course anchors (0-0.2)
	for _, w := range specificityWords {
		if strings.Contains(lower, w) {
			score += 0.2
			break
		}
	}

	confidence := score / 1.0
	return confidence >= retrieveThreshold, confidence
}
