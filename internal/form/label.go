package form

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	maxLabelRunes   = 200
	maxClueRunes    = 100
	maxHeadingRunes = 50
	maxClues        = 5

	labelAncestorLevels = 3
	clueAncestorLevels  = 2
)

// control is a control node plus, for radio groups, every member of the
// group. Members are the control for label and context purposes.
type control struct {
	node  *html.Node
	group []*html.Node
}

func newControl(n *html.Node, group []*html.Node) *control {
	return &control{node: n, group: group}
}

func (c *control) isGroup() bool {
	return len(c.group) > 0
}

func (c *control) members() []*html.Node {
	if c.isGroup() {
		return c.group
	}
	return []*html.Node{c.node}
}

func (c *control) isMember(n *html.Node) bool {
	for _, m := range c.members() {
		if m == n {
			return true
		}
	}
	return false
}

// anchor is the node whose ancestors and siblings describe the control. For
// a radio wrapped in its own option label that is the label.
func (c *control) anchor() *html.Node {
	n := c.members()[0]
	if !c.isGroup() {
		return n
	}
	if l := closest(n, atom.Label); l != nil {
		return l
	}
	return n
}

func (c *control) otherControl(n *html.Node) bool {
	return !c.isMember(n)
}

// label resolves the human readable label; first match wins:
// label[for], ancestor label, preceding label-like sibling, nearby ancestor
// text, then attribute fallbacks.
func (p *pass) label(c *control) string {
	if !c.isGroup() {
		if text := p.explicitLabel(c.node); text != "" {
			return text
		}
		if l := closest(c.node, atom.Label); l != nil {
			if text := collectText(l, nil); text != "" {
				return text
			}
		}
	}

	if text := precedingLabel(c); text != "" {
		return text
	}

	if text := p.ancestorText(c); text != "" {
		return text
	}

	for _, key := range []string{"aria-label", "title", "placeholder", "name", "id"} {
		if v := cleanText(attr(c.node, key)); v != "" {
			return v
		}
	}

	return ""
}

func (p *pass) explicitLabel(n *html.Node) string {
	id := attr(n, "id")
	if id == "" {
		return ""
	}
	if l, ok := p.labelsFor[id]; ok {
		return collectText(l, nil)
	}
	return ""
}

// ownLabel is the label naming a single radio option.
func (p *pass) ownLabel(n *html.Node) string {
	if text := p.explicitLabel(n); text != "" {
		return text
	}
	if l := closest(n, atom.Label); l != nil {
		return collectText(l, nil)
	}
	if next := n.NextSibling; next != nil && next.Type == html.TextNode {
		return cleanText(next.Data)
	}
	return ""
}

var labelLike = []atom.Atom{
	atom.Label, atom.Span, atom.Strong, atom.B, atom.Em, atom.I, atom.P,
	atom.Dt, atom.Th, atom.Legend, atom.Div, atom.Small, atom.Font,
}

func precedingLabel(c *control) string {
	prev := previousElement(c.anchor())
	if prev == nil || !isElement(prev, labelLike...) {
		return ""
	}
	if containsControl(prev, func(*html.Node) bool { return true }) {
		return ""
	}
	text := collectText(prev, nil)
	if runeLen(text) >= maxLabelRunes {
		return ""
	}
	return text
}

// ancestorText climbs up to three levels looking for short text. The climb
// stops at an ancestor holding another control, whose text would describe
// that control as well.
func (p *pass) ancestorText(c *control) string {
	skip := p.optionLabels(c)

	parent := c.anchor().Parent
	for level := 0; level < labelAncestorLevels && parent != nil; level++ {
		if parent.Type != html.ElementNode || isElement(parent, atom.Body, atom.Html) {
			return ""
		}
		if containsControl(parent, c.otherControl) {
			return ""
		}

		text := collectText(parent, skip)
		if text != "" {
			if runeLen(text) < maxLabelRunes {
				return text
			}
			return ""
		}
		parent = parent.Parent
	}
	return ""
}

// optionLabels hides the option labels of a radio group so the group's own
// caption is found instead.
func (p *pass) optionLabels(c *control) func(*html.Node) bool {
	if !c.isGroup() {
		return nil
	}

	labels := make(map[*html.Node]struct{})
	for _, m := range c.group {
		if l := closest(m, atom.Label); l != nil {
			labels[l] = struct{}{}
		}
		if id := attr(m, "id"); id != "" {
			if l, ok := p.labelsFor[id]; ok {
				labels[l] = struct{}{}
			}
		}
	}

	return func(n *html.Node) bool {
		_, ok := labels[n]
		return ok
	}
}

// contextClues gathers short text from two ancestor levels (headings left
// out) and the neighbouring elements, deduplicated in order and capped at
// five.
func (p *pass) contextClues(c *control) []string {
	var clues []string
	seen := make(map[string]struct{})
	push := func(text string) {
		if text == "" || runeLen(text) > maxClueRunes || len(clues) >= maxClues {
			return
		}
		key := strings.ToLower(text)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		clues = append(clues, text)
	}

	anchor := c.anchor()
	parent := anchor.Parent
	for level := 0; level < clueAncestorLevels && parent != nil; level++ {
		if parent.Type != html.ElementNode || isElement(parent, atom.Body, atom.Html) {
			break
		}
		if containsControl(parent, c.otherControl) {
			break
		}
		// Headings name sections; they are not clues for a single field.
		text := collectText(parent, isHeading)
		if runeLen(text) > maxClueRunes {
			break
		}
		push(text)
		parent = parent.Parent
	}

	for _, sib := range []*html.Node{previousElement(anchor), nextElement(anchor)} {
		if sib == nil || containsControl(sib, c.otherControl) {
			continue
		}
		push(collectText(sib, nil))
	}

	for _, id := range strings.Fields(attr(c.node, "aria-describedby")) {
		if n, ok := p.byID[id]; ok {
			push(collectText(n, nil))
		}
	}

	return clues
}
