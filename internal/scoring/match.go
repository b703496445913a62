package scoring

import (
	"strings"
	"unicode"
)

// MatchType classifies a submitted answer's closeness to the correct answer.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchFuzzy   MatchType = "fuzzy"
	MatchPartial MatchType = "partial"
	MatchNone    MatchType = "none"
)

// MatchResult carries the classification and a similarity value in [0,1].
type MatchResult struct {
	Type       MatchType `json:"match_type"`
	Similarity float64   `json:"similarity"`
}

// Scorable reports whether the match earns any points at all.
func (m MatchResult) Scorable() bool {
	return m.Type != MatchNone
}

// Similarity thresholds for spoken-answer matching. Transcribed speech is
// noisy, so the fuzzy band is generous compared to typed input.
const (
	fuzzyThreshold   = 0.85
	partialThreshold = 0.5
)

// ClassifyAnswer compares a transcribed answer against the canonical answer
// and any accepted alternates, returning the best match found.
func ClassifyAnswer(submitted, correct string, alternates []string) MatchResult {
	best := classifyOne(submitted, correct)
	for _, alt := range alternates {
		if m := classifyOne(submitted, alt); m.Similarity > best.Similarity {
			best = m
		}
	}
	return best
}

func classifyOne(submitted, correct string) MatchResult {
	sub := normalizeAnswer(submitted)
	cor := normalizeAnswer(correct)

	if sub == "" || cor == "" {
		return MatchResult{Type: MatchNone, Similarity: 0}
	}

	if sub == cor {
		return MatchResult{Type: MatchExact, Similarity: 1}
	}

	sim := similarity(sub, cor)
	switch {
	case sim >= fuzzyThreshold:
		return MatchResult{Type: MatchFuzzy, Similarity: sim}
	case sim >= partialThreshold:
		return MatchResult{Type: MatchPartial, Similarity: sim}
	}

	// Token containment: "the answer is paris" should still match "paris".
	if containsAllTokens(sub, cor) {
		return MatchResult{Type: MatchPartial, Similarity: partialThreshold}
	}

	return MatchResult{Type: MatchNone, Similarity: sim}
}

// normalizeAnswer lowercases, strips punctuation, drops leading articles,
// and collapses whitespace so transcription artifacts don't break matching.
func normalizeAnswer(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	if len(tokens) > 1 {
		switch tokens[0] {
		case "the", "a", "an":
			tokens = tokens[1:]
		}
	}
	return strings.Join(tokens, " ")
}

// similarity is a normalized Levenshtein ratio: 1 - distance/maxLen.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein(ra, rb))/float64(longest)
}

func levenshtein(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// containsAllTokens reports whether every token of needle appears in haystack.
func containsAllTokens(haystack, needle string) bool {
	hay := make(map[string]bool)
	for _, tok := range strings.Fields(haystack) {
		hay[tok] = true
	}
	needleTokens := strings.Fields(needle)
	if len(needleTokens) == 0 {
		return false
	}
	for _, tok := range needleTokens {
		if !hay[tok] {
			return false
		}
	}
	return true
}
