package ai

import (
	"context"

	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/profile"
)

// Hints is free-form page context passed along with a matching request,
// for example the job title or company.
type Hints map[string]string

// Suggestion is one field-to-profile mapping proposed by a matcher.
type Suggestion struct {
	FieldID                string   `json:"field_id" mapstructure:"field_id"`
	ProfilePath            string   `json:"profile_mapping" mapstructure:"profile_mapping"`
	Confidence             *float64 `json:"confidence_score,omitempty" mapstructure:"confidence_score"`
	DirectMatch            bool     `json:"direct_match" mapstructure:"direct_match"`
	RequiresTransformation bool     `json:"requires_transformation" mapstructure:"requires_transformation"`
	TransformationNotes    string   `json:"transformation_notes,omitempty" mapstructure:"transformation_notes"`
	Alternatives           []string `json:"alternative_mappings,omitempty" mapstructure:"alternative_mappings"`
}

// MatchResponse is the result of one batch matching call.
type MatchResponse struct {
	Success    bool
	Mappings   []Suggestion
	Confidence float64
	Raw        string
}

// Matcher proposes profile paths for a batch of form fields.
type Matcher interface {
	MatchFields(ctx context.Context, fields []form.FieldDescriptor, summary profile.Summary, hints Hints) (*MatchResponse, error)
}
