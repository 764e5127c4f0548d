package form

import (
	"fmt"
	"math"
)

const (
	MaxComplexity = 10.0

	requiredRatioThreshold = 0.7
	textareaWeight         = 0.5
	textareaCap            = 2.0
)

// Complexity is a 0-10 difficulty score with the rules that produced it.
type Complexity struct {
	Score   float64  `json:"complexity_score"`
	Factors []string `json:"complexity_factors"`
}

// Score rates how much effort the form takes. The base comes from the field
// count; file uploads, a mostly required form and free-text answers add to
// it. The result never exceeds MaxComplexity.
func Score(fields []FieldDescriptor) Complexity {
	c := Count(fields)
	factors := make([]string, 0, 4)

	var score float64
	switch {
	case c.Total <= 5:
		score = 1
	case c.Total <= 10:
		score = 2
	case c.Total <= 20:
		score = 4
	default:
		score = 6
	}
	factors = append(factors, fmt.Sprintf("%d fields (base %.1f)", c.Total, score))

	if c.HasFiles {
		score++
		factors = append(factors, fmt.Sprintf("%d file upload(s)", c.Files))
	}

	if c.Total > 0 {
		ratio := float64(c.Required) / float64(c.Total)
		if ratio > requiredRatioThreshold {
			score++
			factors = append(factors, fmt.Sprintf("%.0f%% of fields required", ratio*100))
		}
	}

	if c.Textareas > 0 {
		add := math.Min(textareaWeight*float64(c.Textareas), textareaCap)
		score += add
		factors = append(factors, fmt.Sprintf("%d free-text answer(s) (+%.1f)", c.Textareas, add))
	}

	return Complexity{Score: math.Min(score, MaxComplexity), Factors: factors}
}

type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Issue is something that slows down completing the form.
type Issue struct {
	Type       string   `json:"issue_type"`
	Severity   Severity `json:"severity"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion"`
}

const (
	manyRequiredThreshold = 10
	manyEssaysThreshold   = 2
)

// Issues lists preparation problems: file uploads, many required fields,
// several essay questions.
func Issues(fields []FieldDescriptor) []Issue {
	c := Count(fields)
	issues := make([]Issue, 0, 3)

	if c.HasFiles {
		issues = append(issues, Issue{
			Type:       "file_upload_required",
			Severity:   SeverityHigh,
			Message:    "Form requires file uploads - ensure documents are ready",
			Suggestion: "Prepare resume, cover letter, and other documents before starting",
		})
	}

	if c.Required > manyRequiredThreshold {
		issues = append(issues, Issue{
			Type:       "many_required_fields",
			Severity:   SeverityMedium,
			Message:    fmt.Sprintf("Form has %d required fields", c.Required),
			Suggestion: "Allow extra time to complete this application",
		})
	}

	if c.Textareas > manyEssaysThreshold {
		issues = append(issues, Issue{
			Type:       "multiple_essays",
			Severity:   SeverityMedium,
			Message:    fmt.Sprintf("Form requires %d text responses", c.Textareas),
			Suggestion: "Prepare responses for essay questions in advance",
		})
	}

	return issues
}
