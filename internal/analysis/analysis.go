// Package analysis ties extraction, scoring and matching into one call that
// turns form markup and a profile into a FormAnalysis result.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/formfill/internal/ai"
	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/logger"
	"github.com/spigell/formfill/internal/matching"
	"github.com/spigell/formfill/internal/profile"
)

// NoFieldsMessage explains a result for markup without form controls.
const NoFieldsMessage = "No form fields were found in the provided markup"

// Request is the input of one analysis.
type Request struct {
	Markup string
	// Profile may be nil; matching then relies on labels alone and no values
	// are suggested.
	Profile   *profile.Profile
	ProfileID string
	// Hints override the page context derived from the markup.
	Hints ai.Hints
}

// Metadata describes the analysed form.
type Metadata struct {
	FormID   string `json:"form_id"`
	Title    string `json:"title"`
	Company  string `json:"company,omitempty"`
	Position string `json:"position,omitempty"`
	Action   string `json:"action,omitempty"`
	Method   string `json:"method,omitempty"`
	Enctype  string `json:"enctype,omitempty"`

	form.Counts
	form.Complexity

	Issues  []form.Issue `json:"issues"`
	Skipped int          `json:"skipped_controls"`
	Message string       `json:"message,omitempty"`
}

// Value is the profile text suggested for a mapped field.
type Value struct {
	FieldID     string `json:"field_id"`
	ProfilePath string `json:"profile_path"`
	Value       string `json:"value,omitempty"`
	Valid       bool   `json:"valid"`
	Problem     string `json:"problem,omitempty"`
}

// Result is the outcome of one analysis. A new Result is built per call.
type Result struct {
	RunID         string                    `json:"run_id"`
	Sections      []form.Section            `json:"sections"`
	Metadata      Metadata                  `json:"metadata"`
	FieldMappings []matching.FieldMapping   `json:"field_mappings"`
	Unmapped      []string                  `json:"unmapped_fields"`
	Values        []Value                   `json:"suggested_values,omitempty"`
	Strategy      form.Strategy             `json:"strategy"`
	Tiers         []matching.TierRun        `json:"tiers"`
	States        map[string]matching.State `json:"field_states,omitempty"`
}

// Service runs analyses. It is safe for concurrent use.
type Service struct {
	extractor *form.Extractor
	engine    *matching.Engine
	logger    *zap.Logger
}

func New(extractor *form.Extractor, engine *matching.Engine, logger *zap.Logger) (*Service, error) {
	if engine == nil {
		return nil, errors.New("matching engine is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractor == nil {
		extractor = form.NewExtractor(logger)
	}
	return &Service{extractor: extractor, engine: engine, logger: logger}, nil
}

// Analyze extracts the fields of req.Markup and matches them against
// req.Profile. Blank markup fails with form.ErrEmptyDocument; markup without
// controls gives a Result with zero fields and a message.
func (s *Service) Analyze(ctx context.Context, req Request) (*Result, error) {
	doc, err := s.extractor.Extract(req.Markup)
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := logger.WithFields(s.logger, logger.FormFields(runID, doc.ID, req.ProfileID)...)

	res := &Result{
		RunID:         runID,
		Sections:      form.GroupSections(doc.Fields),
		Metadata:      metadataFor(doc),
		FieldMappings: []matching.FieldMapping{},
		Unmapped:      []string{},
	}

	if len(doc.Fields) == 0 {
		res.Metadata.Message = NoFieldsMessage
		res.Metadata.Issues = []form.Issue{}
		res.Strategy = form.PlanCompletion(nil)
		log.Info("no form fields found", zap.Int("skipped", len(doc.Skipped)))
		return res, nil
	}

	var (
		g       errgroup.Group
		outcome *matching.Outcome
	)
	g.Go(func() error {
		res.Metadata.Complexity = form.Score(doc.Fields)
		res.Metadata.Issues = form.Issues(doc.Fields)
		res.Strategy = form.PlanCompletion(res.Sections)
		return nil
	})
	g.Go(func() error {
		var err error
		outcome, err = s.engine.Match(ctx, doc.Fields, req.Profile, pageHints(doc, req.Hints))
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("match fields: %w", err)
	}

	res.FieldMappings = outcome.Mappings
	res.Tiers = outcome.Tiers
	res.States = outcome.States

	mapped := make(map[string]bool, len(outcome.Mappings))
	for _, m := range outcome.Mappings {
		mapped[m.FieldID] = true
	}
	for _, f := range doc.Fields {
		if !mapped[f.FieldID] {
			res.Unmapped = append(res.Unmapped, f.FieldID)
		}
	}

	if req.Profile != nil {
		res.Values = suggestValues(doc.Fields, outcome.Mappings, req.Profile)
	}

	log.Info("form analysed",
		zap.Int("fields", res.Metadata.Total),
		zap.Int("mapped", len(res.FieldMappings)),
		zap.Int("unmapped", len(res.Unmapped)),
		zap.Float64("complexity", res.Metadata.Score),
	)

	return res, nil
}

// Match resolves already extracted fields.
func (s *Service) Match(ctx context.Context, fields []form.FieldDescriptor, p *profile.Profile, hints ai.Hints) ([]matching.FieldMapping, error) {
	outcome, err := s.engine.Match(ctx, fields, p, hints)
	if err != nil {
		return nil, err
	}
	return outcome.Mappings, nil
}

func metadataFor(doc *form.Document) Metadata {
	return Metadata{
		FormID:     doc.ID,
		Title:      doc.Title,
		Company:    doc.Company,
		Position:   doc.Position,
		Action:     doc.Action,
		Method:     doc.Method,
		Enctype:    doc.Enctype,
		Counts:     form.Count(doc.Fields),
		Complexity: form.Complexity{Factors: []string{}},
		Skipped:    len(doc.Skipped),
	}
}

// pageHints derives the page context from the document; explicit hints win.
func pageHints(doc *form.Document, explicit ai.Hints) ai.Hints {
	hints := ai.Hints{}
	for k, v := range map[string]string{
		"title":    doc.Title,
		"company":  doc.Company,
		"position": doc.Position,
	} {
		if v = strings.TrimSpace(v); v != "" {
			hints[k] = v
		}
	}
	for k, v := range explicit {
		hints[k] = v
	}
	return hints
}

func suggestValues(fields []form.FieldDescriptor, mappings []matching.FieldMapping, p *profile.Profile) []Value {
	byID := make(map[string]form.FieldDescriptor, len(fields))
	for _, f := range fields {
		byID[f.FieldID] = f
	}

	values := make([]Value, 0, len(mappings))
	for _, m := range mappings {
		field := byID[m.FieldID]
		v := Value{FieldID: m.FieldID, ProfilePath: m.ProfilePath}

		if err := matching.Validate(m, field, p); err != nil {
			v.Problem = err.Error()
		} else {
			v.Valid = true
		}
		if text, ok := matching.SuggestValue(field, p, m.ProfilePath); ok {
			v.Value = text
		}
		values = append(values, v)
	}
	return values
}
