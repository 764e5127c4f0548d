package form

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInferSection(t *testing.T) {
	tests := []struct {
		name  string
		hints SectionHints
		label string
		clues []string
		want  string
	}{
		{"legend wins", SectionHints{Legend: " About  You ", Heading: "Contact"}, "Email", nil, "About You"},
		{"heading before keywords", SectionHints{Heading: "Step 2"}, "Email", nil, "Step 2"},
		{"long heading ignored", SectionHints{Heading: strings.Repeat("x", 50)}, "Email", nil, SectionPersonal},
		{"personal keyword", SectionHints{}, "Full name", nil, SectionPersonal},
		{"category order decides", SectionHints{}, "Why do you want this job?", nil, SectionExperience},
		{"education from clues", SectionHints{}, "Field", []string{"University attended"}, SectionEducation},
		{"documents", SectionHints{}, "Upload your resume", nil, SectionDocuments},
		{"compensation", SectionHints{}, "Expected salary", nil, SectionPay},
		{"additional", SectionHints{}, "Why are you interested?", nil, SectionAdditional},
		{"default", SectionHints{}, "Favourite colour", nil, DefaultSection},
		{"empty", SectionHints{}, "", nil, DefaultSection},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferSection(tt.hints, tt.label, tt.clues))
		})
	}
}

func TestInferSectionFromMarkup(t *testing.T) {
	markup := `<form>
<h3>This heading is far too long to be used as the name of a section</h3>
<div><label for="sal">Desired salary</label><input id="sal" name="sal"></div>
</form>`

	doc, err := Extract(markup)
	assert.NoError(t, err)
	if assert.Len(t, doc.Fields, 1) {
		assert.Equal(t, SectionPay, doc.Fields[0].Section)
	}
}

func TestPlanCompletion(t *testing.T) {
	sections := GroupSections([]FieldDescriptor{
		{FieldID: "why", Label: "Why us?", Section: SectionAdditional},
		{FieldID: "school", Label: "School", Section: SectionEducation, Required: true},
		{FieldID: "first", Label: "First name", Section: SectionPersonal, Required: true},
		{FieldID: "portfolio_optional", Label: "Portfolio", Section: "Links"},
	})

	s := PlanCompletion(sections)

	assert.Equal(t, []string{SectionPersonal, SectionEducation, "Links", SectionAdditional}, s.RecommendedOrder)
	assert.Equal(t, []string{"school", "first"}, s.CriticalFields)
	assert.Equal(t, []string{"portfolio_optional"}, s.OptionalSkipFields)
	assert.Equal(t, PriorityLow, s.SectionPriorities[SectionAdditional])
	assert.Equal(t, PriorityMedium, s.SectionPriorities["Links"])
}
