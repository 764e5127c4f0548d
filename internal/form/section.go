package form

import (
	"strings"
)

const (
	SectionPersonal   = "Personal Information"
	SectionExperience = "Work Experience"
	SectionEducation  = "Education"
	SectionDocuments  = "Documents"
	SectionPay        = "Compensation"
	SectionAdditional = "Additional Information"
)

// SectionHints carries the structural evidence around a control.
type SectionHints struct {
	// Legend is the text of the enclosing fieldset's legend.
	Legend string
	// Heading is the nearest preceding heading shorter than 50 runes.
	Heading string
}

type category struct {
	name     string
	keywords []string
}

// categories are checked in order; the first with a keyword contained in
// the text wins.
var categories = []category{
	{SectionPersonal, []string{"name", "contact", "email", "phone", "address"}},
	{SectionExperience, []string{"experience", "work", "employment", "job", "company"}},
	{SectionEducation, []string{"education", "school", "degree", "university"}},
	{SectionDocuments, []string{"resume", "cv", "document", "file", "upload"}},
	{SectionPay, []string{"salary", "compensation", "pay", "wage"}},
	{SectionAdditional, []string{"why", "interest", "motivation", "cover"}},
}

// InferSection names the section of a field: the fieldset legend, else the
// nearest heading, else a keyword category of label and clues, else
// DefaultSection.
func InferSection(hints SectionHints, label string, clues []string) string {
	if legend := cleanText(hints.Legend); legend != "" {
		return legend
	}

	if heading := cleanText(hints.Heading); heading != "" && runeLen(heading) < maxHeadingRunes {
		return heading
	}

	if name, ok := ClassifySection(label + " " + strings.Join(clues, " ")); ok {
		return name
	}

	return DefaultSection
}

// ClassifySection matches text against the keyword categories.
func ClassifySection(text string) (string, bool) {
	text = strings.ToLower(text)
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(text, kw) {
				return c.name, true
			}
		}
	}
	return "", false
}
