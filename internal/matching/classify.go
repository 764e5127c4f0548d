package matching

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/similarity"
)

const (
	DefaultPatternThreshold = 50.0
	DefaultFuzzyThreshold   = 60.0

	ScorePhrase  = 95.0
	ScorePattern = 80.0

	maxAlternatives = 3
)

// Candidate is the best profile path found for a field by one classifier.
type Candidate struct {
	Path         string
	Score        float64
	Matched      string
	Alternatives []Alternative
}

// Classifier proposes a profile path for a single field.
type Classifier interface {
	Classify(field form.FieldDescriptor) (Candidate, bool)
}

type scored struct {
	path    string
	score   float64
	matched string
}

// pick returns the best entry (first declared on ties) and up to three
// runners-up, or false when nothing scored above threshold.
func pick(all []scored, threshold float64) (Candidate, bool) {
	ranked := make([]scored, 0, len(all))
	for _, s := range all {
		if s.score > 0 {
			ranked = append(ranked, s)
		}
	}
	if len(ranked) == 0 {
		return Candidate{}, false
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	best := ranked[0]
	if best.score <= threshold {
		return Candidate{}, false
	}

	c := Candidate{Path: best.path, Score: best.score, Matched: best.matched}
	for _, s := range ranked[1:] {
		if len(c.Alternatives) == maxAlternatives {
			break
		}
		c.Alternatives = append(c.Alternatives, Alternative{ProfilePath: s.path, ConfidenceScore: s.score})
	}
	return c, true
}

func validThreshold(t float64) error {
	if !(t > 0 && t < 100) {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, t)
	}
	return nil
}

// PatternClassifier matches the label and context clues of a field against
// the rule phrases and patterns.
type PatternClassifier struct {
	rules     *Rules
	threshold float64
}

func NewPatternClassifier(rules *Rules, threshold float64) (*PatternClassifier, error) {
	if rules == nil {
		return nil, fmt.Errorf("pattern classifier: rules are required")
	}
	if err := validThreshold(threshold); err != nil {
		return nil, fmt.Errorf("pattern classifier: %w", err)
	}
	return &PatternClassifier{rules: rules, threshold: threshold}, nil
}

// Classify scores every applicable rule: 95 for a phrase contained in the
// label and context clues, 80 for a pattern match. Phrases match anywhere in
// the text, so run-together labels like "Emailaddress" still resolve; rules
// that need word boundaries express them as patterns. The best score must
// exceed the threshold.
func (c *PatternClassifier) Classify(field form.FieldDescriptor) (Candidate, bool) {
	text := strings.ToLower(strings.TrimSpace(field.Text()))
	if text == "" {
		return Candidate{}, false
	}

	all := make([]scored, 0, len(c.rules.entries))
	for _, r := range c.rules.entries {
		if !r.Applies(field.Type) {
			continue
		}
		all = append(all, scorePattern(r, text))
	}

	return pick(all, c.threshold)
}

func scorePattern(r Rule, text string) scored {
	for _, phrase := range r.Phrases {
		if strings.Contains(text, phrase) {
			return scored{path: r.Path, score: ScorePhrase, matched: phrase}
		}
	}
	for i, re := range r.compiled {
		if re.MatchString(text) {
			return scored{path: r.Path, score: ScorePattern, matched: r.Patterns[i]}
		}
	}
	return scored{path: r.Path}
}

// FuzzyClassifier compares the field label alone with each rule's
// representative labels.
type FuzzyClassifier struct {
	rules     *Rules
	threshold float64
}

func NewFuzzyClassifier(rules *Rules, threshold float64) (*FuzzyClassifier, error) {
	if rules == nil {
		return nil, fmt.Errorf("fuzzy classifier: rules are required")
	}
	if err := validThreshold(threshold); err != nil {
		return nil, fmt.Errorf("fuzzy classifier: %w", err)
	}
	return &FuzzyClassifier{rules: rules, threshold: threshold}, nil
}

// Classify keeps the best similarity.Score between the label and any rule
// label. The best score must exceed the threshold.
func (c *FuzzyClassifier) Classify(field form.FieldDescriptor) (Candidate, bool) {
	if similarity.Normalize(field.Label) == "" {
		return Candidate{}, false
	}

	all := make([]scored, 0, len(c.rules.entries))
	for _, r := range c.rules.entries {
		if !r.Applies(field.Type) {
			continue
		}
		best := scored{path: r.Path}
		for _, variant := range r.Labels {
			if s := similarity.Score(field.Label, variant); s > best.score {
				best.score = s
				best.matched = variant
			}
		}
		all = append(all, best)
	}

	return pick(all, c.threshold)
}
