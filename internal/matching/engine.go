// Package matching resolves form fields to profile paths through ordered
// tiers: an optional AI matcher, then pattern rules, then fuzzy labels.
package matching

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/formfill/internal/ai"
	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/profile"
)

const DefaultAITimeout = 30 * time.Second

// Config tunes an Engine. Zero values take the defaults.
type Config struct {
	PatternThreshold float64
	FuzzyThreshold   float64
	AITimeout        time.Duration
	Workers          int
}

func DefaultConfig() Config {
	return Config{
		PatternThreshold: DefaultPatternThreshold,
		FuzzyThreshold:   DefaultFuzzyThreshold,
		AITimeout:        DefaultAITimeout,
		Workers:          runtime.GOMAXPROCS(0),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PatternThreshold == 0 {
		c.PatternThreshold = d.PatternThreshold
	}
	if c.FuzzyThreshold == 0 {
		c.FuzzyThreshold = d.FuzzyThreshold
	}
	if c.AITimeout <= 0 {
		c.AITimeout = d.AITimeout
	}
	if c.Workers <= 0 {
		c.Workers = d.Workers
	}
	return c
}

// Outcome is the result of one Match call.
type Outcome struct {
	Mappings []FieldMapping   `json:"field_mappings"`
	States   map[string]State `json:"states"`
	Tiers    []TierRun        `json:"tiers"`
}

// Engine runs the tiers. It holds no per-call state and is safe for
// concurrent use.
type Engine struct {
	rules  *Rules
	tiers  []tier
	logger *zap.Logger
}

// NewEngine builds an engine over rules (the embedded table when nil). A nil
// matcher leaves the AI tier disabled.
func NewEngine(cfg Config, rules *Rules, matcher ai.Matcher, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if rules == nil {
		var err error
		if rules, err = DefaultRules(); err != nil {
			return nil, fmt.Errorf("load default rules: %w", err)
		}
	}

	cfg = cfg.withDefaults()

	pattern, err := NewPatternClassifier(rules, cfg.PatternThreshold)
	if err != nil {
		return nil, err
	}
	fuzzy, err := NewFuzzyClassifier(rules, cfg.FuzzyThreshold)
	if err != nil {
		return nil, err
	}

	return &Engine{
		rules: rules,
		tiers: []tier{
			newAITier(matcher, cfg.AITimeout),
			&classifierTier{
				name:       TierPattern,
				attempted:  StatePatternAttempted,
				classifier: pattern,
				toMapping:  patternMapping,
				workers:    cfg.Workers,
				threshold:  cfg.PatternThreshold,
			},
			&classifierTier{
				name:       TierFuzzy,
				attempted:  StateFuzzyAttempted,
				classifier: fuzzy,
				toMapping:  fuzzyMapping,
				workers:    cfg.Workers,
				threshold:  cfg.FuzzyThreshold,
			},
		},
		logger: logger,
	}, nil
}

func (e *Engine) Rules() *Rules {
	return e.rules
}

// Describe returns status entries for the engine tiers.
func (e *Engine) Describe() []Status {
	statuses := make([]Status, 0, len(e.tiers))
	for _, t := range e.tiers {
		statuses = append(statuses, t.Status())
	}
	return statuses
}

// Match resolves fields against p. Each field is tried by each tier at most
// once; a field no tier resolves gets no mapping. Mappings follow descriptor
// order. Cancelling ctx only cuts the AI tier short.
func (e *Engine) Match(ctx context.Context, fields []form.FieldDescriptor, p *profile.Profile, hints ai.Hints) (*Outcome, error) {
	b := newBatch(fields, p, hints, e.logger)

	runs := make([]TierRun, 0, len(e.tiers))
	for _, t := range e.tiers {
		run := TierRun{Status: t.Status()}
		if !t.IsEnabled() {
			e.logger.Debug("tier disabled", zap.String("name", t.Name()), zap.String("reason", run.Reason))
			left := len(b.pending())
			run.Step = Step{Initial: left, Left: left}
			b.advance(t.Attempted())
			runs = append(runs, run)
			continue
		}

		step, err := t.Apply(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.Name(), err)
		}
		b.advance(t.Attempted())

		e.logger.Debug("tier step",
			zap.String("name", t.Name()),
			zap.Int("initial", step.Initial),
			zap.Int("resolved", step.Resolved),
			zap.Int("left", step.Left),
		)

		run.Step = step
		runs = append(runs, run)
	}
	b.advance(StateUnresolvedFinal)

	mappings := NewMappings()
	states := make(map[string]State, len(fields))
	for i, f := range fields {
		states[f.FieldID] = b.states[i]
		if b.results[i] != nil {
			mappings.Put(*b.results[i])
		}
	}

	return &Outcome{Mappings: mappings.List(), States: states, Tiers: runs}, nil
}
