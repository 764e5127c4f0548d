package matching

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/formfill/internal/ai"
	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/profile"
)

type stubMatcher struct {
	mu     sync.Mutex
	resp   *ai.MatchResponse
	err    error
	delay  time.Duration
	fields []form.FieldDescriptor
	hints  ai.Hints
}

func (s *stubMatcher) MatchFields(_ context.Context, fields []form.FieldDescriptor, _ profile.Summary, hints ai.Hints) (*ai.MatchResponse, error) {
	s.mu.Lock()
	s.fields = fields
	s.hints = hints
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return s.resp, s.err
}

func (s *stubMatcher) received() []form.FieldDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fields
}

func confidence(v float64) *float64 { return &v }

func sampleFields() []form.FieldDescriptor {
	return []form.FieldDescriptor{
		{FieldID: "first_name", Label: "First Name *", Type: form.FieldText, Required: true, ContextClues: []string{"First Name *"}},
		{FieldID: "about", Label: "Tell us about yourself", Type: form.FieldTextarea},
		{FieldID: "work_auth", Label: "Work Authorization", Type: form.FieldSelect, Options: []string{"Yes", "No"}},
		{FieldID: "blank", Type: form.FieldText},
	}
}

func newTestEngine(t *testing.T, cfg Config, m ai.Matcher, logger *zap.Logger) *Engine {
	t.Helper()
	e, err := NewEngine(cfg, nil, m, logger)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func TestMatchWithoutAI(t *testing.T) {
	e := newTestEngine(t, Config{}, nil, nil)

	out, err := e.Match(context.Background(), sampleFields(), &profile.Profile{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(out.Mappings) != 2 {
		t.Fatalf("expected 2 mappings, got %+v", out.Mappings)
	}

	first := out.Mappings[0]
	if first.FieldID != "first_name" || first.ProfilePath != "personal.first_name" {
		t.Fatalf("unexpected first mapping: %+v", first)
	}
	if first.MappingSource != SourceExact || first.ConfidenceScore < 90 || !first.DirectMatch {
		t.Fatalf("expected a direct exact match with confidence >= 90, got %+v", first)
	}
	if first.ConfidenceLevel != LevelVeryHigh {
		t.Fatalf("expected very_high level, got %s", first.ConfidenceLevel)
	}

	auth := out.Mappings[1]
	if auth.FieldID != "work_auth" || auth.ProfilePath != "personal.work_authorization" {
		t.Fatalf("unexpected select mapping: %+v", auth)
	}
	if auth.MappingSource != SourceFuzzy || auth.DirectMatch || auth.ConfidenceScore <= DefaultFuzzyThreshold {
		t.Fatalf("expected fuzzy mapping above threshold, got %+v", auth)
	}
	if !auth.RequiresTransformation {
		t.Fatalf("expected option fields to require transformation")
	}

	wantStates := map[string]State{
		"first_name": StateResolved,
		"about":      StateUnresolvedFinal,
		"work_auth":  StateResolved,
		"blank":      StateUnresolvedFinal,
	}
	if !reflect.DeepEqual(out.States, wantStates) {
		t.Fatalf("unexpected states: %+v", out.States)
	}

	wantSteps := []Step{{Initial: 4, Left: 4}, {Initial: 4, Resolved: 1, Left: 3}, {Initial: 3, Resolved: 1, Left: 2}}
	for i, run := range out.Tiers {
		if run.Step != wantSteps[i] {
			t.Fatalf("tier %s: expected %+v, got %+v", run.Name, wantSteps[i], run.Step)
		}
	}
	if out.Tiers[0].Enabled || out.Tiers[0].Reason == "" {
		t.Fatalf("expected ai tier to be reported as disabled: %+v", out.Tiers[0])
	}
}

func TestMatchAcceptsAISuggestions(t *testing.T) {
	stub := &stubMatcher{resp: &ai.MatchResponse{
		Success:    true,
		Confidence: 75,
		Mappings: []ai.Suggestion{
			{FieldID: "first_name", ProfilePath: "personal.first_name", Confidence: confidence(97), DirectMatch: true},
			{FieldID: "unknown", ProfilePath: "contact.email"},
			{FieldID: "about", ProfilePath: " "},
			{FieldID: "about", ProfilePath: "summary_statement", Alternatives: []string{"skills.soft"}},
		},
	}}
	e := newTestEngine(t, Config{}, stub, nil)
	hints := ai.Hints{"company": "Acme"}

	out, err := e.Match(context.Background(), sampleFields(), &profile.Profile{}, hints)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(stub.received()); got != 4 {
		t.Fatalf("expected the whole batch to be sent, got %d fields", got)
	}
	if stub.hints["company"] != "Acme" {
		t.Fatalf("expected hints to be passed through")
	}

	if len(out.Mappings) != 3 {
		t.Fatalf("expected 3 mappings, got %+v", out.Mappings)
	}

	first := out.Mappings[0]
	if first.MappingSource != SourceAI || first.ConfidenceScore != 97 || !first.DirectMatch {
		t.Fatalf("unexpected ai mapping: %+v", first)
	}

	about := out.Mappings[1]
	if about.FieldID != "about" || about.ProfilePath != "summary_statement" {
		t.Fatalf("unexpected about mapping: %+v", about)
	}
	if about.ConfidenceScore != 75 || about.ConfidenceLevel != LevelHigh {
		t.Fatalf("expected batch confidence fallback, got %+v", about)
	}
	if len(about.Alternatives) != 1 || about.Alternatives[0].ProfilePath != "skills.soft" {
		t.Fatalf("unexpected alternatives: %+v", about.Alternatives)
	}

	if out.Mappings[2].FieldID != "work_auth" || out.Mappings[2].MappingSource != SourceFuzzy {
		t.Fatalf("expected remaining fields to fall through to classifiers: %+v", out.Mappings[2])
	}

	pattern := out.Tiers[1]
	if pattern.Name != TierPattern || pattern.Initial != 2 {
		t.Fatalf("expected pattern tier to see only unresolved fields, got %+v", pattern)
	}
}

func TestMatchFallbackEquivalence(t *testing.T) {
	late := &ai.MatchResponse{Success: true, Confidence: 99, Mappings: []ai.Suggestion{
		{FieldID: "about", ProfilePath: "summary_statement"},
		{FieldID: "first_name", ProfilePath: "personal.full_name"},
	}}

	tests := []struct {
		name    string
		matcher ai.Matcher
		ctx     func() context.Context
	}{
		{
			name:    "timeout",
			matcher: &stubMatcher{resp: late, delay: 200 * time.Millisecond},
			ctx:     context.Background,
		},
		{
			name:    "error",
			matcher: &stubMatcher{err: errors.New("backend unavailable")},
			ctx:     context.Background,
		},
		{
			name:    "unsuccessful",
			matcher: &stubMatcher{resp: &ai.MatchResponse{Success: false, Mappings: late.Mappings}},
			ctx:     context.Background,
		},
		{
			name:    "nil response",
			matcher: &stubMatcher{},
			ctx:     context.Background,
		},
		{
			name:    "cancelled",
			matcher: &stubMatcher{resp: late, delay: 50 * time.Millisecond},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
		},
	}

	baseline := newTestEngine(t, Config{}, nil, nil)
	want, err := baseline.Match(context.Background(), sampleFields(), &profile.Profile{}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, observed := observer.New(zapcore.WarnLevel)
			e := newTestEngine(t, Config{AITimeout: 20 * time.Millisecond}, tt.matcher, zap.New(core))

			got, err := e.Match(tt.ctx(), sampleFields(), &profile.Profile{}, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if !reflect.DeepEqual(got.Mappings, want.Mappings) {
				t.Fatalf("expected fallback result %+v, got %+v", want.Mappings, got.Mappings)
			}
			if !reflect.DeepEqual(got.States, want.States) {
				t.Fatalf("expected states %+v, got %+v", want.States, got.States)
			}
			if observed.Len() != 1 {
				t.Fatalf("expected one warning, got %d", observed.Len())
			}
		})
	}
}

func TestMatchNoLabelYieldsNothing(t *testing.T) {
	e := newTestEngine(t, Config{}, nil, nil)

	fields := []form.FieldDescriptor{
		{FieldID: "a", Type: form.FieldText},
		{FieldID: "b", Type: form.FieldNumber},
		{FieldID: "c", Type: form.FieldSelect, Options: []string{"1", "2"}},
		{FieldID: "d", Type: form.FieldFile},
	}

	out, err := e.Match(context.Background(), fields, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Mappings) != 0 {
		t.Fatalf("expected no mappings, got %+v", out.Mappings)
	}
	for id, s := range out.States {
		if s != StateUnresolvedFinal {
			t.Fatalf("field %s: expected unresolved_final, got %s", id, s)
		}
	}
}

func TestMatchKeepsDescriptorOrder(t *testing.T) {
	e := newTestEngine(t, Config{Workers: 4}, nil, nil)

	labels := []string{"Email", "Phone", "City", "Last name", "Country"}
	fields := make([]form.FieldDescriptor, 0, 200)
	for i := 0; i < 200; i++ {
		fields = append(fields, form.FieldDescriptor{
			FieldID: fmt.Sprintf("f%03d", i),
			Label:   labels[i%len(labels)],
			Type:    form.FieldText,
		})
	}

	out, err := e.Match(context.Background(), fields, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Mappings) != len(fields) {
		t.Fatalf("expected %d mappings, got %d", len(fields), len(out.Mappings))
	}
	for i, m := range out.Mappings {
		if m.FieldID != fields[i].FieldID {
			t.Fatalf("position %d: expected %s, got %s", i, fields[i].FieldID, m.FieldID)
		}
	}
}

func TestMatchIsSafeForConcurrentCalls(t *testing.T) {
	e := newTestEngine(t, Config{}, nil, nil)

	want, err := e.Match(context.Background(), sampleFields(), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := e.Match(context.Background(), sampleFields(), nil, nil)
			if err != nil || !reflect.DeepEqual(got.Mappings, want.Mappings) {
				t.Errorf("concurrent match differs: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestNewEngineRejectsBadThresholds(t *testing.T) {
	for _, cfg := range []Config{{PatternThreshold: 120}, {FuzzyThreshold: -3}} {
		if _, err := NewEngine(cfg, nil, nil, nil); !errors.Is(err, ErrInvalidThreshold) {
			t.Fatalf("expected ErrInvalidThreshold for %+v, got %v", cfg, err)
		}
	}
}

func TestDescribe(t *testing.T) {
	e := newTestEngine(t, Config{PatternThreshold: 70, Workers: 2}, nil, nil)

	statuses := e.Describe()
	if len(statuses) != 3 {
		t.Fatalf("expected 3 tiers, got %d", len(statuses))
	}
	if statuses[0].Name != TierAI || statuses[0].Enabled {
		t.Fatalf("unexpected ai status: %+v", statuses[0])
	}
	if statuses[1].Details["threshold"] != "70" || statuses[1].Details["workers"] != "2" {
		t.Fatalf("unexpected pattern details: %+v", statuses[1].Details)
	}
	if statuses[2].Details["threshold"] != "60" {
		t.Fatalf("unexpected fuzzy details: %+v", statuses[2].Details)
	}
}
