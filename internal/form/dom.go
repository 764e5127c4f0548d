package form

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)opacity\s*:\s*0(?:[^.\d]|$)`),
	regexp.MustCompile(`(?i)position\s*:\s*absolute[^;]*-\d{4,}`),
}

var spaceRun = regexp.MustCompile(`\s+`)

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func isElement(n *html.Node, atoms ...atom.Atom) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, a := range atoms {
		if n.DataAtom == a {
			return true
		}
	}
	return false
}

// isHidden reports whether the element itself is hidden from the user.
func isHidden(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if hasAttr(n, "hidden") || strings.EqualFold(attr(n, "aria-hidden"), "true") {
		return true
	}
	style := attr(n, "style")
	if style == "" {
		return false
	}
	for _, pat := range hiddenStylePatterns {
		if pat.MatchString(style) {
			return true
		}
	}
	return false
}

func isHeading(n *html.Node) bool {
	return isElement(n, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6)
}

// isControl reports whether n is a form control that could receive input.
// Hidden and button-like inputs do not count.
func isControl(n *html.Node) bool {
	switch {
	case isElement(n, atom.Select, atom.Textarea):
		return true
	case isElement(n, atom.Input):
		_, skip := skippedInputTypes[strings.ToLower(attr(n, "type"))]
		return !skip
	}
	return false
}

// collectText returns the visible, whitespace-normalized text of a subtree.
// Nodes for which skip returns true are left out with their children.
func collectText(n *html.Node, skip func(*html.Node) bool) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Option, atom.Textarea:
				return
			}
			if isHidden(n) || (skip != nil && skip(n)) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return cleanText(sb.String())
}

func cleanText(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// containsControl reports whether the subtree holds a control for which
// other returns true.
func containsControl(n *html.Node, other func(*html.Node) bool) bool {
	if isControl(n) && other(n) {
		return true
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if containsControl(c, other) {
			return true
		}
	}
	return false
}

func previousElement(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func closest(n *html.Node, a atom.Atom) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if isElement(p, a) {
			return p
		}
	}
	return nil
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
