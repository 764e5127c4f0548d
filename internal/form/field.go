// Package form turns job-application markup into normalized field
// descriptors grouped by section, and derives completion hints from them.
package form

import (
	"strconv"
	"strings"
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldEmail    FieldType = "email"
	FieldPhone    FieldType = "phone"
	FieldNumber   FieldType = "number"
	FieldDate     FieldType = "date"
	FieldURL      FieldType = "url"
	FieldPassword FieldType = "password"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldTextarea FieldType = "textarea"
	FieldFile     FieldType = "file"
)

const DefaultSection = "General"

var inputTypes = map[string]FieldType{
	"text":           FieldText,
	"search":         FieldText,
	"email":          FieldEmail,
	"tel":            FieldPhone,
	"phone":          FieldPhone,
	"number":         FieldNumber,
	"range":          FieldNumber,
	"date":           FieldDate,
	"datetime-local": FieldDate,
	"month":          FieldDate,
	"week":           FieldDate,
	"time":           FieldDate,
	"url":            FieldURL,
	"password":       FieldPassword,
	"checkbox":       FieldCheckbox,
	"radio":          FieldRadio,
	"file":           FieldFile,
}

// ParseInputType maps an HTML input type attribute to a FieldType. Unknown
// and empty types are text.
func ParseInputType(s string) FieldType {
	if t, ok := inputTypes[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t
	}
	return FieldText
}

// ParseFieldType accepts a FieldType name ("phone", "textarea", ...) or an
// HTML input type.
func ParseFieldType(s string) FieldType {
	switch t := FieldType(strings.ToLower(strings.TrimSpace(s))); t {
	case FieldSelect, FieldTextarea:
		return t
	}
	return ParseInputType(s)
}

// HasOptions reports whether the type carries an option list.
func (t FieldType) HasOptions() bool {
	return t == FieldSelect || t == FieldRadio
}

// FieldDescriptor is one discovered form control. A radio group is a single
// descriptor whose Options are the group's values.
type FieldDescriptor struct {
	FieldID      string    `json:"field_id"`
	Name         string    `json:"name,omitempty"`
	Label        string    `json:"label"`
	Type         FieldType `json:"type"`
	InputType    string    `json:"input_type,omitempty"`
	Required     bool      `json:"required"`
	Placeholder  string    `json:"placeholder,omitempty"`
	MaxLength    *int      `json:"max_length,omitempty"`
	MinLength    *int      `json:"min_length,omitempty"`
	Pattern      string    `json:"pattern,omitempty"`
	Autocomplete string    `json:"autocomplete,omitempty"`
	Multiple     bool      `json:"multiple,omitempty"`
	Options      []string  `json:"options,omitempty"`
	Section      string    `json:"section"`
	ContextClues []string  `json:"context_clues,omitempty"`
}

// Text is the label joined with the context clues, the input of pattern
// classification.
func (f FieldDescriptor) Text() string {
	parts := make([]string, 0, len(f.ContextClues)+1)
	parts = append(parts, f.Label)
	parts = append(parts, f.ContextClues...)
	return strings.Join(parts, " ")
}

// Section is a named, ordered group of descriptors.
type Section struct {
	ID     string            `json:"section_id"`
	Name   string            `json:"section_name"`
	Order  int               `json:"section_order"`
	Fields []FieldDescriptor `json:"fields"`
}

// GroupSections groups fields by section name. Sections appear in the order
// their first field appears; fields keep document order within a section.
func GroupSections(fields []FieldDescriptor) []Section {
	sections := make([]Section, 0)
	index := make(map[string]int)

	for _, f := range fields {
		name := f.Section
		if strings.TrimSpace(name) == "" {
			name = DefaultSection
		}

		i, ok := index[name]
		if !ok {
			i = len(sections)
			index[name] = i
			sections = append(sections, Section{
				ID:    sectionID(i),
				Name:  name,
				Order: i,
			})
		}
		sections[i].Fields = append(sections[i].Fields, f)
	}

	return sections
}

func sectionID(i int) string {
	return "section_" + strconv.Itoa(i)
}

// Document is the result of one extraction pass.
type Document struct {
	ID       string            `json:"form_id"`
	Title    string            `json:"title"`
	Company  string            `json:"company,omitempty"`
	Position string            `json:"position,omitempty"`
	Action   string            `json:"action,omitempty"`
	Method   string            `json:"method,omitempty"`
	Enctype  string            `json:"enctype,omitempty"`
	Fields   []FieldDescriptor `json:"fields"`
	Skipped  []Skipped         `json:"skipped,omitempty"`
}

// Skipped records a control left out of the descriptor set.
type Skipped struct {
	Tag    string `json:"tag"`
	Type   string `json:"type,omitempty"`
	Name   string `json:"name,omitempty"`
	ID     string `json:"id,omitempty"`
	Reason string `json:"reason"`
}

// Counts summarizes a descriptor set.
type Counts struct {
	Total     int  `json:"total_fields"`
	Required  int  `json:"required_fields"`
	Optional  int  `json:"optional_fields"`
	Files     int  `json:"file_fields"`
	Textareas int  `json:"textarea_fields"`
	HasFiles  bool `json:"has_file_uploads"`
}

func Count(fields []FieldDescriptor) Counts {
	c := Counts{Total: len(fields)}
	for _, f := range fields {
		if f.Required {
			c.Required++
		}
		switch f.Type {
		case FieldFile:
			c.Files++
		case FieldTextarea:
			c.Textareas++
		}
	}
	c.Optional = c.Total - c.Required
	c.HasFiles = c.Files > 0
	return c
}
