package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/formfill/internal/ai"
	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/profile"
	"github.com/spigell/formfill/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

//go:embed prompt.md
var promptTemplate string

const (
	defaultMaxLogLength     = 200
	maxUserInstructionRunes = 500
	noneValue               = "none"
)

// PromptOverrides carries user supplied additions to the system prompt.
type PromptOverrides struct {
	UserInstructions string
}

// Matcher implements ai.Matcher on top of a Gemini generator.
type Matcher struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
	overrides PromptOverrides
}

var _ ai.Matcher = (*Matcher)(nil)

func NewMatcher(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (m *Matcher) SetPromptOverrides(o PromptOverrides) {
	m.overrides = o
}

type fieldPayload struct {
	FieldID      string   `json:"field_id"`
	Label        string   `json:"label"`
	Type         string   `json:"type"`
	Required     bool     `json:"required"`
	Placeholder  string   `json:"placeholder,omitempty"`
	Options      []string `json:"options,omitempty"`
	Section      string   `json:"section,omitempty"`
	ContextClues []string `json:"context_clues,omitempty"`
}

// MatchFields asks Gemini for mappings of all fields in one request.
func (m *Matcher) MatchFields(ctx context.Context, fields []form.FieldDescriptor, summary profile.Summary, hints ai.Hints) (*ai.MatchResponse, error) {
	if m.generator == nil {
		return nil, fmt.Errorf("gemini generator is not configured")
	}
	if len(fields) == 0 {
		return &ai.MatchResponse{Success: true}, nil
	}

	payload := make([]fieldPayload, 0, len(fields))
	for _, f := range fields {
		payload = append(payload, fieldPayload{
			FieldID:      f.FieldID,
			Label:        f.Label,
			Type:         string(f.Type),
			Required:     f.Required,
			Placeholder:  f.Placeholder,
			Options:      f.Options,
			Section:      f.Section,
			ContextClues: f.ContextClues,
		})
	}

	fieldsJSON, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal fields payload: %w", err)
	}
	profileJSON, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal profile payload: %w", err)
	}

	system := buildPrompt(hints, m.overrides)
	message := buildMessage(string(fieldsJSON), string(profileJSON))

	m.logger.Debug("gemini match request",
		zap.Int("field_count", len(fields)),
		zap.Int("prompt_length", utf8.RuneCountInString(system)+utf8.RuneCountInString(message)),
		zap.String("message_preview", utils.TruncateForLog(message, m.maxLogLen)),
	)

	raw, err := m.generator.GenerateContent(ctx, system, message)
	if err != nil {
		return nil, err
	}

	m.logger.Debug("gemini match response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	resp, err := parseResponse(raw)
	if err != nil {
		return nil, err
	}
	resp.Raw = raw
	return resp, nil
}

func buildPrompt(hints ai.Hints, o PromptOverrides) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Allowed profile paths:\n{{PROFILE_PATHS}}\n\nPage context: {{PAGE_CONTEXT}}\n\nUser instructions:\n{{USER_INSTRUCTIONS}}"
	}

	paths := profile.Paths()
	lines := make([]string, 0, len(paths))
	for _, p := range paths {
		lines = append(lines, "- "+p)
	}

	prompt := strings.ReplaceAll(template, "{{PROFILE_PATHS}}", strings.Join(lines, "\n"))
	prompt = strings.ReplaceAll(prompt, "{{PAGE_CONTEXT}}", pageContext(hints))
	prompt = strings.ReplaceAll(prompt, "{{USER_INSTRUCTIONS}}", userInstructionsBlock(o.UserInstructions))
	return prompt
}

func buildMessage(fieldsJSON, profileJSON string) string {
	return "[Inputs]\nForm fields:\n" + fieldsJSON + "\n\nProfile:\n" + profileJSON + "\n\nJSON Response:"
}

func pageContext(hints ai.Hints) string {
	keys := make([]string, 0, len(hints))
	for k := range hints {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		key, value := sanitizeLine(k), sanitizeLine(hints[k])
		if key == "" || value == "" {
			continue
		}
		parts = append(parts, key+": "+value)
	}
	if len(parts) == 0 {
		return noneValue
	}
	return strings.Join(parts, "; ")
}

// sanitizeLine collapses whitespace and swaps square brackets for round ones
// so user text cannot open a new prompt section.
func sanitizeLine(s string) string {
	s = strings.NewReplacer("[", "(", "]", ")").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

func userInstructionsBlock(s string) string {
	s = strings.TrimSpace(s)
	if runes := []rune(s); len(runes) > maxUserInstructionRunes {
		s = string(runes[:maxUserInstructionRunes])
	}

	lines := make([]string, 0)
	for _, line := range strings.Split(s, "\n") {
		if line = sanitizeLine(line); line != "" {
			lines = append(lines, "  - "+line)
		}
	}
	if len(lines) == 0 {
		return "  - " + noneValue
	}
	return strings.Join(lines, "\n")
}

type matchPayload struct {
	Success    *bool           `mapstructure:"success"`
	Confidence float64         `mapstructure:"overall_confidence"`
	Mappings   []ai.Suggestion `mapstructure:"field_mappings"`
}

func parseResponse(raw string) (*ai.MatchResponse, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	var payload matchPayload
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &payload,
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(data); err != nil {
		return nil, fmt.Errorf("decode gemini response: %w", err)
	}

	success := true
	if payload.Success != nil {
		success = *payload.Success
	}

	return &ai.MatchResponse{
		Success:    success,
		Mappings:   payload.Mappings,
		Confidence: payload.Confidence,
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
