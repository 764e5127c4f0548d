package form

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrEmptyDocument is returned for blank markup.
var ErrEmptyDocument = errors.New("empty document")

var skippedInputTypes = map[string]struct{}{
	"hidden": {},
	"submit": {},
	"button": {},
	"reset":  {},
	"image":  {},
}

const (
	reasonInputType   = "ignored input type"
	reasonHidden      = "hidden by markup"
	reasonRadioMember = "radio group member"
)

// Extractor parses markup into field descriptors. It holds no per-call
// state and is safe for concurrent use.
type Extractor struct {
	logger *zap.Logger
}

func NewExtractor(logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{logger: logger}
}

// Extract parses markup and returns its controls as descriptors in document
// order. A control that cannot be described is recorded in Skipped and never
// fails the whole extraction. Blank markup yields ErrEmptyDocument; markup
// without controls yields a Document with no fields.
func (e *Extractor) Extract(markup string) (*Document, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, ErrEmptyDocument
	}

	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	p := newPass(root)
	p.walk(root)

	sum := sha256.Sum256([]byte(markup))
	doc := &Document{
		ID:       fmt.Sprintf("form_%x", sum[:4]),
		Title:    findTitle(root),
		Company:  findLabelled(root, companyPatterns),
		Position: findLabelled(root, positionPatterns),
		Fields:   p.fields,
		Skipped:  p.skipped,
	}
	if doc.Fields == nil {
		doc.Fields = []FieldDescriptor{}
	}
	if p.form != nil {
		doc.Action = attr(p.form, "action")
		doc.Method = strings.ToUpper(attr(p.form, "method"))
		if doc.Method == "" {
			doc.Method = "GET"
		}
		doc.Enctype = attr(p.form, "enctype")
	}

	for _, s := range doc.Skipped {
		if s.Reason == reasonRadioMember {
			continue
		}
		e.logger.Debug("control skipped",
			zap.String("form_id", doc.ID),
			zap.String("tag", s.Tag),
			zap.String("type", s.Type),
			zap.String("name", s.Name),
			zap.String("reason", s.Reason),
		)
	}

	e.logger.Debug("form extracted",
		zap.String("form_id", doc.ID),
		zap.Int("fields", len(doc.Fields)),
		zap.Int("skipped", len(doc.Skipped)),
	)

	return doc, nil
}

// Extract uses an extractor without logging.
func Extract(markup string) (*Document, error) {
	return NewExtractor(nil).Extract(markup)
}

// pass is the state of one extraction.
type pass struct {
	root      *html.Node
	labelsFor map[string]*html.Node
	byID      map[string]*html.Node

	heading string
	form    *html.Node

	ids     map[string]struct{}
	radios  map[*html.Node]struct{}
	fields  []FieldDescriptor
	skipped []Skipped
}

func newPass(root *html.Node) *pass {
	p := &pass{
		root:      root,
		labelsFor: make(map[string]*html.Node),
		byID:      make(map[string]*html.Node),
		ids:       make(map[string]struct{}),
		radios:    make(map[*html.Node]struct{}),
	}
	p.index(root)
	return p
}

// index records labels by their for attribute and elements by id. The first
// occurrence wins.
func (p *pass) index(n *html.Node) {
	if n.Type == html.ElementNode {
		if id := attr(n, "id"); id != "" {
			if _, ok := p.byID[id]; !ok {
				p.byID[id] = n
			}
		}
		if isElement(n, atom.Label) {
			if target := attr(n, "for"); target != "" {
				if _, ok := p.labelsFor[target]; !ok {
					p.labelsFor[target] = n
				}
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.index(c)
	}
}

func (p *pass) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		if isHidden(n) {
			p.skipSubtree(n)
			return
		}

		switch {
		case isHeading(n):
			if text := collectText(n, nil); text != "" && runeLen(text) < maxHeadingRunes {
				p.heading = text
			}
			// Controls nested in a heading are still walked below.
		case isElement(n, atom.Input):
			p.input(n)
			return
		case isElement(n, atom.Select, atom.Textarea):
			p.add(n, nil)
			return
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *pass) skipSubtree(n *html.Node) {
	if isElement(n, atom.Input, atom.Select, atom.Textarea) {
		p.skip(n, reasonHidden)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.skipSubtree(c)
	}
}

func (p *pass) skip(n *html.Node, reason string) {
	p.skipped = append(p.skipped, Skipped{
		Tag:    n.Data,
		Type:   strings.ToLower(attr(n, "type")),
		Name:   attr(n, "name"),
		ID:     attr(n, "id"),
		Reason: reason,
	})
}

func (p *pass) input(n *html.Node) {
	typ := strings.ToLower(attr(n, "type"))
	if _, skip := skippedInputTypes[typ]; skip {
		p.skip(n, reasonInputType)
		return
	}

	if typ != "radio" {
		p.add(n, nil)
		return
	}

	if _, seen := p.radios[n]; seen {
		p.skip(n, reasonRadioMember)
		return
	}

	group := p.radioGroup(n)
	for _, member := range group {
		p.radios[member] = struct{}{}
	}
	p.add(n, group)
}

// radioGroup returns the visible radios sharing n's name inside the same
// form, n first. Unnamed radios form a group of one.
func (p *pass) radioGroup(n *html.Node) []*html.Node {
	name := attr(n, "name")
	if name == "" {
		return []*html.Node{n}
	}

	scope := closest(n, atom.Form)
	if scope == nil {
		scope = p.root
	}

	group := []*html.Node{n}
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if isHidden(c) {
			return
		}
		if c != n && isElement(c, atom.Input) &&
			strings.EqualFold(attr(c, "type"), "radio") && attr(c, "name") == name {
			if closest(c, atom.Form) == closest(n, atom.Form) {
				group = append(group, c)
			}
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(scope)
	return group
}

func (p *pass) add(n *html.Node, group []*html.Node) {
	c := newControl(n, group)
	field := p.describe(c)

	if p.form == nil {
		p.form = closest(n, atom.Form)
	}

	p.fields = append(p.fields, field)
}

func (p *pass) describe(c *control) FieldDescriptor {
	n := c.node
	f := FieldDescriptor{
		Name:         attr(n, "name"),
		Placeholder:  attr(n, "placeholder"),
		Pattern:      attr(n, "pattern"),
		Autocomplete: attr(n, "autocomplete"),
		Multiple:     hasAttr(n, "multiple"),
		MaxLength:    intAttr(n, "maxlength"),
		MinLength:    intAttr(n, "minlength"),
	}

	switch n.DataAtom {
	case atom.Select:
		f.Type = FieldSelect
		f.InputType = "select"
		f.Options = selectOptions(n)
	case atom.Textarea:
		f.Type = FieldTextarea
		f.InputType = "textarea"
	default:
		f.InputType = strings.ToLower(attr(n, "type"))
		if f.InputType == "" {
			f.InputType = "text"
		}
		f.Type = ParseInputType(f.InputType)
		if f.Type == FieldRadio {
			f.Options = p.radioOptions(c)
		}
	}

	for _, member := range c.members() {
		if hasAttr(member, "required") || strings.EqualFold(attr(member, "aria-required"), "true") {
			f.Required = true
			break
		}
	}

	f.FieldID = p.fieldID(c)
	f.Label = p.label(c)
	f.ContextClues = p.contextClues(c)
	f.Section = InferSection(p.sectionHints(c), f.Label, f.ContextClues)

	return f
}

func (p *pass) fieldID(c *control) string {
	base := attr(c.node, "id")
	if c.isGroup() || base == "" {
		if name := attr(c.node, "name"); name != "" {
			base = name
		}
	}
	if base == "" {
		base = "field_" + strconv.Itoa(len(p.fields))
	}

	id := base
	for i := 2; ; i++ {
		if _, taken := p.ids[id]; !taken {
			break
		}
		id = base + "_" + strconv.Itoa(i)
	}
	p.ids[id] = struct{}{}
	return id
}

func (p *pass) sectionHints(c *control) SectionHints {
	hints := SectionHints{Heading: p.heading}
	if fs := closest(c.node, atom.Fieldset); fs != nil {
		for ch := fs.FirstChild; ch != nil; ch = ch.NextSibling {
			if isElement(ch, atom.Legend) {
				hints.Legend = collectText(ch, nil)
				break
			}
		}
	}
	return hints
}

func selectOptions(n *html.Node) []string {
	var options []string
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if isElement(c, atom.Option) {
			var sb strings.Builder
			for t := c.FirstChild; t != nil; t = t.NextSibling {
				if t.Type == html.TextNode {
					sb.WriteString(t.Data)
				}
			}
			if text := cleanText(sb.String()); text != "" {
				options = append(options, text)
			}
			return
		}
		for ch := c.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return options
}

func (p *pass) radioOptions(c *control) []string {
	seen := make(map[string]struct{})
	var options []string
	for _, member := range c.members() {
		value := attr(member, "value")
		if value == "" || value == "on" {
			value = p.ownLabel(member)
		}
		if value == "" {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		options = append(options, value)
	}
	return options
}

func intAttr(n *html.Node, key string) *int {
	raw := attr(n, key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return nil
	}
	return &v
}
