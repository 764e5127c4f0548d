package matching

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/formfill/internal/ai"
	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/profile"
)

var (
	ErrInvalidThreshold  = errors.New("threshold must be between 0 and 100")
	ErrIncompatibleValue = errors.New("profile value does not fit field")
)

// State is the resolution state of one field during Match.
type State string

const (
	StateUnresolved       State = "unresolved"
	StateAIAttempted      State = "ai_attempted"
	StatePatternAttempted State = "pattern_attempted"
	StateFuzzyAttempted   State = "fuzzy_attempted"
	StateResolved         State = "resolved"
	StateUnresolvedFinal  State = "unresolved_final"
)

const (
	TierAI      = "ai"
	TierPattern = "pattern"
	TierFuzzy   = "fuzzy"
)

// Step describes the result of running one tier.
type Step struct {
	Initial  int `json:"initial"`
	Resolved int `json:"resolved"`
	Left     int `json:"left"`
}

// Status represents runtime information about a tier.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// TierRun is the status of a tier together with what it did in one call.
type TierRun struct {
	Status
	Step
}

// tier is a single resolution stage. Apply only looks at fields that are
// still pending and must not touch resolved ones.
type tier interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool
	Status() Status
	// Attempted is the state a pending field is left in after this tier.
	Attempted() State
	Apply(ctx context.Context, b *batch) (Step, error)
}

// batch carries per-call state through the tiers. Slots are indexed by
// descriptor position.
type batch struct {
	fields  []form.FieldDescriptor
	profile *profile.Profile
	hints   ai.Hints
	results []*FieldMapping
	states  []State
	logger  *zap.Logger
}

func newBatch(fields []form.FieldDescriptor, p *profile.Profile, hints ai.Hints, logger *zap.Logger) *batch {
	b := &batch{
		fields:  fields,
		profile: p,
		hints:   hints,
		results: make([]*FieldMapping, len(fields)),
		states:  make([]State, len(fields)),
		logger:  logger,
	}
	for i := range b.states {
		b.states[i] = StateUnresolved
	}
	return b
}

func (b *batch) pending() []int {
	idx := make([]int, 0, len(b.fields))
	for i, s := range b.states {
		if s != StateResolved {
			idx = append(idx, i)
		}
	}
	return idx
}

func (b *batch) resolve(i int, m FieldMapping) {
	b.results[i] = &m
	b.states[i] = StateResolved
}

func (b *batch) advance(s State) {
	for i, cur := range b.states {
		if cur != StateResolved {
			b.states[i] = s
		}
	}
}

type aiTier struct {
	matcher  ai.Matcher
	timeout  time.Duration
	disabled bool
	reason   string
}

func newAITier(m ai.Matcher, timeout time.Duration) *aiTier {
	t := &aiTier{matcher: m, timeout: timeout}
	if m == nil {
		t.Disable("ai matcher is not configured")
	}
	return t
}

func (t *aiTier) Name() string { return TierAI }

func (t *aiTier) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *aiTier) IsEnabled() bool { return !t.disabled }

func (t *aiTier) Attempted() State { return StateAIAttempted }

func (t *aiTier) Status() Status {
	details := map[string]string{}
	if t.timeout > 0 {
		details["timeout"] = t.timeout.String()
	}
	return Status{Name: t.Name(), Enabled: t.IsEnabled(), Reason: t.reason, Details: details}
}

type matchResult struct {
	resp *ai.MatchResponse
	err  error
}

// Apply asks the matcher once for every pending field. Any failure, a late
// answer or an unsuccessful response resolves nothing and is only logged.
func (t *aiTier) Apply(ctx context.Context, b *batch) (Step, error) {
	pending := b.pending()
	step := Step{Initial: len(pending), Left: len(pending)}
	if t.matcher == nil || len(pending) == 0 {
		return step, nil
	}

	fields := make([]form.FieldDescriptor, 0, len(pending))
	byID := make(map[string]int, len(pending))
	for _, i := range pending {
		fields = append(fields, b.fields[i])
		byID[b.fields[i].FieldID] = i
	}

	resp, err := t.call(ctx, fields, profile.Summarize(b.profile), b.hints)
	if err != nil {
		b.logger.Warn("ai matching failed, falling back", zap.Error(err))
		return step, nil
	}
	if resp == nil || !resp.Success {
		b.logger.Warn("ai matching was not successful, falling back")
		return step, nil
	}

	for _, s := range resp.Mappings {
		id := strings.TrimSpace(s.FieldID)
		path := strings.TrimSpace(s.ProfilePath)
		i, ok := byID[id]
		if !ok || path == "" {
			b.logger.Debug("ai suggestion ignored", zap.String("field_id", id), zap.String("profile_path", path))
			continue
		}
		if b.states[i] == StateResolved {
			continue
		}

		score := resp.Confidence
		if s.Confidence != nil {
			score = *s.Confidence
		}

		m := NewMapping(b.fields[i], path, score, SourceAI)
		m.DirectMatch = s.DirectMatch
		m.RequiresTransformation = s.RequiresTransformation
		m.TransformationNotes = strings.TrimSpace(s.TransformationNotes)
		for _, alt := range s.Alternatives {
			if alt = strings.TrimSpace(alt); alt != "" && alt != path {
				m.Alternatives = append(m.Alternatives, Alternative{ProfilePath: alt})
			}
		}

		b.resolve(i, m)
		step.Resolved++
	}

	step.Left = step.Initial - step.Resolved
	return step, nil
}

// call waits for the matcher no longer than the timeout, even when the
// matcher itself ignores its context.
func (t *aiTier) call(ctx context.Context, fields []form.FieldDescriptor, summary profile.Summary, hints ai.Hints) (*ai.MatchResponse, error) {
	var cancel context.CancelFunc
	if t.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	done := make(chan matchResult, 1)
	go func() {
		resp, err := t.matcher.MatchFields(ctx, fields, summary, hints)
		done <- matchResult{resp: resp, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("ai matcher: %w", ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("ai matcher: %w", err)
		}
		return r.resp, nil
	}
}

// classifierTier runs a Classifier over pending fields in parallel.
type classifierTier struct {
	name       string
	attempted  State
	classifier Classifier
	toMapping  func(form.FieldDescriptor, Candidate) FieldMapping
	workers    int
	threshold  float64
	disabled   bool
	reason     string
}

func (t *classifierTier) Name() string { return t.name }

func (t *classifierTier) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *classifierTier) IsEnabled() bool { return !t.disabled }

func (t *classifierTier) Attempted() State { return t.attempted }

func (t *classifierTier) Status() Status {
	return Status{
		Name:    t.name,
		Enabled: t.IsEnabled(),
		Reason:  t.reason,
		Details: map[string]string{
			"threshold": strconv.FormatFloat(t.threshold, 'f', -1, 64),
			"workers":   strconv.Itoa(t.workers),
		},
	}
}

// Apply classifies every pending field. Results land in per-position slots
// and are committed in descriptor order once all workers are done.
func (t *classifierTier) Apply(_ context.Context, b *batch) (Step, error) {
	pending := b.pending()
	found := make([]*FieldMapping, len(pending))

	var g errgroup.Group
	g.SetLimit(t.workers)
	for k, i := range pending {
		g.Go(func() error {
			c, ok := t.classifier.Classify(b.fields[i])
			if !ok {
				return nil
			}
			m := t.toMapping(b.fields[i], c)
			found[k] = &m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Step{}, fmt.Errorf("%s tier: %w", t.name, err)
	}

	step := Step{Initial: len(pending)}
	for k, i := range pending {
		if found[k] == nil {
			continue
		}
		b.resolve(i, *found[k])
		step.Resolved++
	}
	step.Left = step.Initial - step.Resolved
	return step, nil
}

func patternMapping(field form.FieldDescriptor, c Candidate) FieldMapping {
	source := SourceFuzzy
	if c.Score > 90 {
		source = SourceExact
	}
	m := NewMapping(field, c.Path, c.Score, source)
	m.DirectMatch = true
	m.Alternatives = c.Alternatives
	m.RequiresTransformation, m.TransformationNotes = transformation(field, c.Path)
	return m
}

func fuzzyMapping(field form.FieldDescriptor, c Candidate) FieldMapping {
	m := NewMapping(field, c.Path, c.Score, SourceFuzzy)
	m.Alternatives = c.Alternatives
	m.RequiresTransformation, m.TransformationNotes = transformation(field, c.Path)
	return m
}

var (
	listPaths = map[string]bool{
		"skills.technical":                true,
		"skills.soft":                     true,
		"skills.certifications":           true,
		"skills.languages":                true,
		"preferences.desired_roles":       true,
		"preferences.preferred_locations": true,
	}
	boolPaths = map[string]bool{
		"compensation.salary_negotiable":  true,
		"preferences.willing_to_relocate": true,
	}
)

func transformation(field form.FieldDescriptor, path string) (bool, string) {
	switch {
	case field.Type.HasOptions() && len(field.Options) > 0:
		return true, "choose the option closest to the profile value"
	case boolPaths[path]:
		return true, "convert the yes/no value"
	case listPaths[path]:
		return true, "join the list into text"
	}
	return false, ""
}
