package similarity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "of": {},
	"with": {}, "by": {}, "is": {}, "are": {}, "be": {}, "do": {},
	"does": {}, "this": {}, "that": {}, "your": {}, "you": {},
	"please": {}, "enter": {}, "our": {}, "us": {},
}

// Normalize folds s into a comparable form: NFKC compatibility
// normalization, lower case, every rune that is not a letter or digit
// replaced by a space, runs of whitespace collapsed.
func Normalize(s string) string {
	s = norm.NFKC.String(s)

	var b strings.Builder
	b.Grow(len(s))

	space := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}

	return strings.TrimSpace(b.String())
}

// Tokens returns the keyword tokens of s: normalized words with stop words
// removed. Order follows s; duplicates are dropped.
func Tokens(s string) []string {
	words := strings.Fields(Normalize(s))
	if len(words) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(words))
	tokens := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		tokens = append(tokens, w)
	}

	return tokens
}

// ContainsWord reports whether phrase occurs in text on word boundaries.
// Both arguments are expected to be lower case already; phrase may contain
// punctuation (for example "e-mail").
func ContainsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}

	for from := 0; from <= len(text)-len(phrase); {
		idx := strings.Index(text[from:], phrase)
		if idx < 0 {
			return false
		}
		start := from + idx
		end := start + len(phrase)
		if boundaryBefore(text, start) && boundaryAfter(text, end) {
			return true
		}
		from = start + 1
	}

	return false
}

func boundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r := lastRune(s[:i])
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r := []rune(s[i:])[0]
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func lastRune(s string) rune {
	runes := []rune(s)
	return runes[len(runes)-1]
}
