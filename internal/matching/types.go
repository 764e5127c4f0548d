package matching

import (
	"math"

	"github.com/spigell/formfill/internal/form"
)

// MappingSource tells which tier produced a mapping.
type MappingSource string

const (
	SourceAI      MappingSource = "ai_analysis"
	SourceExact   MappingSource = "exact_match"
	SourceFuzzy   MappingSource = "fuzzy_matching"
	SourceUser    MappingSource = "user_correction"
	SourceLearned MappingSource = "learned_pattern"
)

type ConfidenceLevel string

const (
	LevelLow      ConfidenceLevel = "low"
	LevelMedium   ConfidenceLevel = "medium"
	LevelHigh     ConfidenceLevel = "high"
	LevelVeryHigh ConfidenceLevel = "very_high"
)

// ClampScore bounds a confidence score to [0,100]. NaN becomes 0.
func ClampScore(score float64) float64 {
	switch {
	case math.IsNaN(score), score < 0:
		return 0
	case score > 100:
		return 100
	default:
		return score
	}
}

// LevelFor maps a confidence score to its band: low up to 40, medium up to
// 70, high up to 90, very high above.
func LevelFor(score float64) ConfidenceLevel {
	score = ClampScore(score)
	switch {
	case score <= 40:
		return LevelLow
	case score <= 70:
		return LevelMedium
	case score <= 90:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}

// Alternative is a runner-up profile path for a field.
type Alternative struct {
	ProfilePath     string  `json:"profile_path"`
	ConfidenceScore float64 `json:"confidence_score"`
}

// FieldMapping links one form field to one profile path.
type FieldMapping struct {
	FieldID                string          `json:"field_id"`
	ProfilePath            string          `json:"profile_path"`
	ConfidenceScore        float64         `json:"confidence_score"`
	ConfidenceLevel        ConfidenceLevel `json:"confidence_level"`
	MappingSource          MappingSource   `json:"mapping_source"`
	FieldLabel             string          `json:"field_label"`
	FieldType              form.FieldType  `json:"field_type"`
	DirectMatch            bool            `json:"direct_match"`
	RequiresTransformation bool            `json:"requires_transformation"`
	TransformationNotes    string          `json:"transformation_notes,omitempty"`
	Alternatives           []Alternative   `json:"alternative_mappings,omitempty"`
}

// NewMapping builds a mapping for field with a clamped score and the level
// derived from it.
func NewMapping(field form.FieldDescriptor, path string, score float64, source MappingSource) FieldMapping {
	score = ClampScore(score)
	return FieldMapping{
		FieldID:         field.FieldID,
		ProfilePath:     path,
		ConfidenceScore: score,
		ConfidenceLevel: LevelFor(score),
		MappingSource:   source,
		FieldLabel:      field.Label,
		FieldType:       field.Type,
	}
}

// Mappings holds at most one mapping per field id, in first-insertion
// order.
type Mappings struct {
	order []string
	byID  map[string]FieldMapping
}

func NewMappings(items ...FieldMapping) *Mappings {
	m := &Mappings{byID: make(map[string]FieldMapping, len(items))}
	for _, item := range items {
		m.Put(item)
	}
	return m
}

// Put stores mapping, replacing any earlier mapping for the same field.
func (m *Mappings) Put(mapping FieldMapping) {
	if m.byID == nil {
		m.byID = make(map[string]FieldMapping)
	}
	if _, ok := m.byID[mapping.FieldID]; !ok {
		m.order = append(m.order, mapping.FieldID)
	}
	m.byID[mapping.FieldID] = mapping
}

func (m *Mappings) Get(fieldID string) (FieldMapping, bool) {
	mapping, ok := m.byID[fieldID]
	return mapping, ok
}

func (m *Mappings) Len() int {
	return len(m.order)
}

// List returns the mappings in insertion order.
func (m *Mappings) List() []FieldMapping {
	out := make([]FieldMapping, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id])
	}
	return out
}

// Correct records a user correction for fieldID. The previous mapping, if
// any, becomes the first alternative.
func (m *Mappings) Correct(fieldID, path string) FieldMapping {
	corrected := FieldMapping{
		FieldID:         fieldID,
		ProfilePath:     path,
		ConfidenceScore: 100,
		ConfidenceLevel: LevelFor(100),
		MappingSource:   SourceUser,
		DirectMatch:     true,
	}

	if prev, ok := m.Get(fieldID); ok {
		corrected.FieldLabel = prev.FieldLabel
		corrected.FieldType = prev.FieldType
		if prev.ProfilePath != "" && prev.ProfilePath != path {
			corrected.Alternatives = []Alternative{{ProfilePath: prev.ProfilePath, ConfidenceScore: prev.ConfidenceScore}}
		}
	}

	m.Put(corrected)
	return corrected
}
