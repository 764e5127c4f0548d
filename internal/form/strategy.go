package form

import "strings"

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

var sectionPriorities = map[string]Priority{
	SectionPersonal:       PriorityHigh,
	"Contact Information": PriorityHigh,
	SectionExperience:     PriorityHigh,
	SectionDocuments:      PriorityHigh,
	SectionEducation:      PriorityMedium,
	SectionPay:            PriorityMedium,
	SectionAdditional:     PriorityLow,
}

var priorityRank = map[Priority]int{PriorityHigh: 0, PriorityMedium: 1, PriorityLow: 2}

// Strategy suggests how to work through a form.
type Strategy struct {
	RecommendedOrder   []string            `json:"recommended_order"`
	CriticalFields     []string            `json:"critical_fields"`
	OptionalSkipFields []string            `json:"optional_skip_fields"`
	SectionPriorities  map[string]Priority `json:"section_priorities"`
}

// PlanCompletion orders the form's sections by priority (high first, ties in
// form order), lists required fields as critical, and optional fields whose
// id or label says "optional" as skippable.
func PlanCompletion(sections []Section) Strategy {
	s := Strategy{
		RecommendedOrder:   make([]string, 0, len(sections)),
		CriticalFields:     make([]string, 0),
		OptionalSkipFields: make([]string, 0),
		SectionPriorities:  make(map[string]Priority, len(sections)),
	}

	for rank := 0; rank < len(priorityRank); rank++ {
		for _, sec := range sections {
			p := priorityOf(sec.Name)
			s.SectionPriorities[sec.Name] = p
			if priorityRank[p] == rank {
				s.RecommendedOrder = append(s.RecommendedOrder, sec.Name)
			}
		}
	}

	for _, sec := range sections {
		for _, f := range sec.Fields {
			switch {
			case f.Required:
				s.CriticalFields = append(s.CriticalFields, f.FieldID)
			case containsAny(f.FieldID+" "+f.Label, []string{"optional"}):
				s.OptionalSkipFields = append(s.OptionalSkipFields, f.FieldID)
			}
		}
	}

	return s
}

func priorityOf(section string) Priority {
	if p, ok := sectionPriorities[section]; ok {
		return p
	}
	lower := strings.ToLower(section)
	if name, ok := ClassifySection(lower); ok {
		return sectionPriorities[name]
	}
	return PriorityMedium
}
