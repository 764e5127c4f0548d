package matching

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/spigell/formfill/internal/form"
	"github.com/spigell/formfill/internal/profile"
)

//go:embed rules.yaml
var defaultRules []byte

// Rule describes how fields are recognised as one profile path.
type Rule struct {
	Path     string           `yaml:"path" json:"path"`
	Phrases  []string         `yaml:"phrases,omitempty" json:"phrases,omitempty"`
	Patterns []string         `yaml:"patterns,omitempty" json:"patterns,omitempty"`
	Labels   []string         `yaml:"labels,omitempty" json:"labels,omitempty"`
	Types    []form.FieldType `yaml:"types,omitempty" json:"types,omitempty"`

	compiled []*regexp.Regexp
}

// Applies reports whether the rule may be used for a field of type t.
func (r Rule) Applies(t form.FieldType) bool {
	if len(r.Types) == 0 {
		return t != form.FieldFile && t != form.FieldPassword
	}
	for _, allowed := range r.Types {
		if allowed == t {
			return true
		}
	}
	return false
}

// Rules is an ordered, read-only rule table. It is safe for concurrent use.
type Rules struct {
	entries []Rule
}

type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// DefaultRules returns the embedded rule table. It is parsed once.
var DefaultRules = sync.OnceValues(func() (*Rules, error) {
	return ParseRules(defaultRules)
})

// LoadRules reads a rule table from a YAML file.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	rules, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// ParseRules decodes and validates a YAML rule table. Every path must be
// resolvable on a profile and every pattern must compile.
func ParseRules(data []byte) (*Rules, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file rulesFile
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("rule table is empty")
	}

	seen := make(map[string]struct{}, len(file.Rules))
	entries := make([]Rule, 0, len(file.Rules))
	for i, r := range file.Rules {
		r.Path = strings.ToLower(strings.TrimSpace(r.Path))
		if !profile.Known(r.Path) {
			return nil, fmt.Errorf("rule %d: unknown profile path %q", i, r.Path)
		}
		if _, dup := seen[r.Path]; dup {
			return nil, fmt.Errorf("rule %d: duplicate profile path %q", i, r.Path)
		}
		seen[r.Path] = struct{}{}

		if len(r.Phrases)+len(r.Patterns)+len(r.Labels) == 0 {
			return nil, fmt.Errorf("rule %q: no phrases, patterns or labels", r.Path)
		}

		for _, t := range r.Types {
			if form.ParseFieldType(string(t)) != t {
				return nil, fmt.Errorf("rule %q: unknown field type %q", r.Path, t)
			}
		}

		r.Phrases = lowerAll(r.Phrases)
		r.Labels = lowerAll(r.Labels)

		r.compiled = make([]*regexp.Regexp, 0, len(r.Patterns))
		for _, p := range r.Patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				return nil, fmt.Errorf("rule %q: pattern %q: %w", r.Path, p, err)
			}
			r.compiled = append(r.compiled, re)
		}

		entries = append(entries, r)
	}

	return &Rules{entries: entries}, nil
}

// Entries returns a copy of the rule table in declaration order.
func (r *Rules) Entries() []Rule {
	out := make([]Rule, len(r.entries))
	copy(out, r.entries)
	return out
}

// Encode writes the table in the format ParseRules reads.
func (r *Rules) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(rulesFile{Rules: r.entries}); err != nil {
		return fmt.Errorf("encode rules: %w", err)
	}
	return enc.Close()
}

func (r *Rules) Len() int {
	return len(r.entries)
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
