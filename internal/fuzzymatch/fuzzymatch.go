// Package fuzzymatch decides whether a free-text song name guess counts as
// correct. It tolerates typos, missing punctuation and partial titles.
package fuzzymatch

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Matcher reports whether a guess matches an actual song name.
type Matcher struct{}

func New() *Matcher { return &Matcher{} }

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalize lowercases, removes diacritics and punctuation, and collapses
// whitespace so "Señorita!" and "senorita" compare equal.
func normalize(s string) string {
	s = strings.ToLower(s)
	if out, _, err := transform.String(stripMarks, s); err == nil {
		s = out
	}
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r):
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// Match reports whether the guess is close enough to the actual title.
// A guess is accepted on exact normalized match, on containment when the
// shorter string covers at least 60% of the longer, or when the edit distance
// stays within 30% of the title length.
func (m *Matcher) Match(guess, actual string) bool {
	g := normalize(guess)
	a := normalize(actual)

	if g == a {
		return true
	}
	if g == "" {
		return false
	}

	if strings.Contains(a, g) || strings.Contains(g, a) {
		minLen, maxLen := len(g), len(a)
		if minLen > maxLen {
			minLen, maxLen = maxLen, minLen
		}
		if maxLen > 0 && float64(minLen)/float64(maxLen) >= 0.6 {
			return true
		}
	}

	return levenshtein(g, a) <= len(a)*3/10
}

// Similarity returns a score in [0,1] used for "close, try again" hints.
func (m *Matcher) Similarity(guess, actual string) float64 {
	g := normalize(guess)
	a := normalize(actual)
	if g == "" || a == "" {
		return 0
	}
	if g == a {
		return 1
	}
	maxLen := len(g)
	if len(a) > maxLen {
		maxLen = len(a)
	}
	score := 1 - float64(levenshtein(g, a))/float64(maxLen)
	if score < 0 {
		return 0
	}
	return score
}

func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(ra)+1)
	cur := make([]int, len(ra)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(rb); i++ {
		cur[0] = i
		for j := 1; j <= len(ra); j++ {
			cost := 1
			if rb[i-1] == ra[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j-1]+cost, cur[j-1]+1, prev[j]+1)
		}
		prev, cur = cur, prev
	}
	return prev[len(ra)]
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
