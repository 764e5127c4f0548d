package form

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const DefaultTitle = "Job Application Form"

const maxPageValueRunes = 100

var (
	titleKeywords   = []string{"application", "apply"}
	headingKeywords = []string{"application", "apply", "job", "position"}

	companyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bcompany[ \t]*:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)\bemployer[ \t]*:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)\borganization[ \t]*:[ \t]*([^\n]+)`),
	}
	positionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bposition[ \t]*:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)\bjob title[ \t]*:[ \t]*([^\n]+)`),
		regexp.MustCompile(`(?i)\brole[ \t]*:[ \t]*([^\n]+)`),
	}
)

var blockAtoms = []atom.Atom{
	atom.P, atom.Div, atom.Li, atom.Tr, atom.Td, atom.Th, atom.Br, atom.Section,
	atom.Header, atom.Footer, atom.Article, atom.Label, atom.Fieldset, atom.Legend,
	atom.Form, atom.Dt, atom.Dd, atom.Title, atom.Ul, atom.Ol, atom.Table,
	atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
}

// findTitle prefers a <title> mentioning an application, then the first
// h1, h2 or h3 mentioning an application, job or position.
func findTitle(root *html.Node) string {
	if t := firstElement(root, atom.Title); t != nil {
		if text := collectText(t, nil); containsAny(text, titleKeywords) {
			return text
		}
	}

	for _, a := range []atom.Atom{atom.H1, atom.H2, atom.H3} {
		var found string
		visit(root, func(n *html.Node) bool {
			if found != "" {
				return false
			}
			if isElement(n, a) {
				if text := collectText(n, nil); containsAny(text, headingKeywords) {
					found = text
				}
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}

	return DefaultTitle
}

// findLabelled returns the first "Key: value" match of the patterns in the
// page text, one block per line.
func findLabelled(root *html.Node, patterns []*regexp.Regexp) string {
	text := pageText(root)
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" && runeLen(v) < maxPageValueRunes {
			return v
		}
	}
	return ""
}

func pageText(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(spaceRun.ReplaceAllString(n.Data, " "))
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Select, atom.Textarea:
				return
			}
			if isHidden(n) {
				return
			}
		}

		block := isElement(n, blockAtoms...)
		if block {
			sb.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			sb.WriteByte('\n')
		}
	}
	walk(root)
	return sb.String()
}

func firstElement(root *html.Node, a atom.Atom) *html.Node {
	var found *html.Node
	visit(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if isElement(n, a) {
			found = n
			return false
		}
		return true
	})
	return found
}

// visit walks the tree in document order; fn returning false prunes the
// subtree.
func visit(n *html.Node, fn func(*html.Node) bool) {
	if !fn(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visit(c, fn)
	}
}

func containsAny(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
