package similarity

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// ScoreIdentical is returned for strings equal after normalization.
	ScoreIdentical = 100.0
	// ScoreContained is returned when one normalized string contains the
	// other.
	ScoreContained = 90.0

	// tokens shorter than this only match exactly
	fuzzyTokenMinRunes = 4
	fuzzyTokenRatio    = 0.8
)

// Score compares a and b and returns a similarity in [0,100]:
// 100 when identical after normalization, 90 when one contains the other,
// otherwise the Jaccard overlap of their keyword tokens scaled to 100.
// Containment is plain substring containment, so "Cityname" contains
// "city". Empty input scores 0.
func Score(a, b string) float64 {
	return score(a, b, strings.Contains)
}

// WordScore is Score with containment restricted to whole words: "No" is
// not contained in "Not sure".
func WordScore(a, b string) float64 {
	return score(a, b, ContainsWord)
}

func score(a, b string, contains func(text, part string) bool) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}

	if na == nb {
		return ScoreIdentical
	}

	if contains(na, nb) || contains(nb, na) {
		return ScoreContained
	}

	return Jaccard(Tokens(a), Tokens(b)) * 100
}

// Jaccard returns |A∩B| / |A∪B| for two token sets. Tokens of at least four
// runes also count as shared when their normalized edit similarity is 0.8 or
// more, so "adress" and "address" overlap. Each token is paired at most once.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	used := make([]bool, len(b))
	shared := 0
	for _, ta := range a {
		for j, tb := range b {
			if used[j] || !tokensEqual(ta, tb) {
				continue
			}
			used[j] = true
			shared++
			break
		}
	}

	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

func tokensEqual(a, b string) bool {
	if a == b {
		return true
	}
	if utf8.RuneCountInString(a) < fuzzyTokenMinRunes || utf8.RuneCountInString(b) < fuzzyTokenMinRunes {
		return false
	}
	return LevenshteinNormalized(a, b) >= fuzzyTokenRatio
}

// OptionMatch is one option scored against a target value.
type OptionMatch struct {
	Option string  `json:"option"`
	Score  float64 `json:"score"`
}

// MatchOptions scores every option against target with WordScore and returns
// those scoring at least threshold, best first. Ties keep the options'
// original order.
func MatchOptions(target string, options []string, threshold float64) []OptionMatch {
	if Normalize(target) == "" || len(options) == 0 {
		return nil
	}

	matches := make([]OptionMatch, 0, len(options))
	for _, opt := range options {
		s := WordScore(target, opt)
		if s < threshold || s == 0 {
			continue
		}
		matches = append(matches, OptionMatch{Option: opt, Score: s})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	return matches
}

// BestOption returns the highest scoring option for target, if any reaches
// threshold.
func BestOption(target string, options []string, threshold float64) (OptionMatch, bool) {
	matches := MatchOptions(target, options, threshold)
	if len(matches) == 0 {
		return OptionMatch{}, false
	}
	return matches[0], true
}
