package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// TextOf returns the visible text of sel with whitespace runs collapsed to
// single spaces and the ends trimmed. A nil or empty selection yields "".
func TextOf(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	var b strings.Builder
	for _, n := range sel.Nodes {
		collectRaw(&b, n)
	}
	return collapseSpaces(strings.TrimSpace(b.String()))
}

// AttrOf returns the named attribute of the first node in sel. The boolean is
// false when the selection is empty or the attribute is missing.
func AttrOf(sel *goquery.Selection, name string) (string, bool) {
	if sel == nil || sel.Length() == 0 {
		return "", false
	}
	return sel.First().Attr(name)
}

// Strings returns the trimmed, non-empty text nodes below n in document order.
// Script, style and template content is skipped.
func Strings(n *html.Node) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		if cur.Type == html.ElementNode && isInvisible(cur) {
			return
		}
		if cur.Type == html.TextNode {
			if s := strings.TrimSpace(cur.Data); s != "" {
				out = append(out, s)
			}
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

// JoinedText joins the text nodes of every node in sel with sep.
func JoinedText(sel *goquery.Selection, sep string) string {
	if sel == nil {
		return ""
	}
	var parts []string
	for _, n := range sel.Nodes {
		parts = append(parts, Strings(n)...)
	}
	return strings.Join(parts, sep)
}

// TextLen is the number of runes of visible, trimmed text below n.
func TextLen(n *html.Node) int {
	total := 0
	for _, s := range Strings(n) {
		total += len([]rune(s))
	}
	return total
}

// NormalizeSpace maps compatibility characters to their canonical form so that
// non-breaking and narrow spaces become ordinary spaces before scanning.
func NormalizeSpace(s string) string {
	s = norm.NFKC.String(s)
	return strings.ReplaceAll(s, "\u00a0", " ")
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

// CollapseBlankLines turns three or more consecutive newlines into exactly two,
// keeping paragraph breaks without preserving arbitrary gaps.
func CollapseBlankLines(s string) string {
	return blankRuns.ReplaceAllString(s, "\n\n")
}

func collectRaw(b *strings.Builder, n *html.Node) {
	if n.Type == html.ElementNode {
		if isInvisible(n) {
			return
		}
		switch strings.ToLower(n.Data) {
		case "br", "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteByte(' ')
		}
	}
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectRaw(b, c)
	}
}

func isInvisible(n *html.Node) bool {
	switch strings.ToLower(n.Data) {
	case "script", "style", "noscript", "template":
		return true
	}
	return false
}

func collapseSpaces(s string) string {
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\u00a0' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return b.String()
}
