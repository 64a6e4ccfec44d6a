// Package index parses listing index pages into listing candidates and finds
// the link to the next page of results.
package index

import (
	"bytes"
	"regexp"

	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/listingcrawl/internal/extract"
)

// Candidate is a partial listing found on an index page. DetailURL is always
// set and absolute; every other field is nil when no heuristic matched. Money
// fields hold raw tokens such as "$1,250,000".
type Candidate struct {
	DetailURL   string
	Title       *string
	Description *string
	AskingPrice *string
	CashFlow    *string
	Status      *string
	ImageURL    *string
}

// Page is the result of parsing one index page.
type Page struct {
	Candidates []Candidate
	// NextURL is the absolute URL of the following page, nil on the last page.
	NextURL *string
}

// Matcher selects elements from a document. An empty selection means the
// strategy did not apply and the next one should be tried.
type Matcher func(doc *goquery.Selection) *goquery.Selection

// Selector returns a Matcher that runs a CSS selector.
func Selector(css string) Matcher {
	return func(doc *goquery.Selection) *goquery.Selection {
		return doc.Find(css)
	}
}

// FirstMatch evaluates matchers in order and returns the first non-empty
// selection, or an empty selection when none applies.
func FirstMatch(doc *goquery.Selection, matchers []Matcher) *goquery.Selection {
	for _, m := range matchers {
		if sel := m(doc); sel != nil && sel.Length() > 0 {
			return sel
		}
	}
	return doc.Slice(0, 0)
}

// ContainerMatchers locate listing cards, most specific layout first.
var ContainerMatchers = []Matcher{
	Selector("article, div.card, div.listing, div.loop-item, li"),
	Selector("article, div, li"),
}

// NextMatchers locate the pagination element.
var NextMatchers = []Matcher{
	Selector(`a[rel~="next"]`),
	Selector(`link[rel~="next"]`),
	textMatcher("a", regexp.MustCompile(`(?i)\bnext\b`)),
}

func textMatcher(css string, re *regexp.Regexp) Matcher {
	return func(doc *goquery.Selection) *goquery.Selection {
		return doc.Find(css).FilterFunction(func(_ int, s *goquery.Selection) bool {
			return re.MatchString(extract.TextOf(s))
		}).First()
	}
}

// Parse parses an index page. Relative links resolve against baseURL. Markup
// that cannot be parsed yields an empty Page.
func Parse(html []byte, baseURL string) Page {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil || doc == nil {
		return Page{}
	}
	return ParseDocument(doc, baseURL)
}

// ParseDocument is Parse for an already parsed document.
func ParseDocument(doc *goquery.Document, baseURL string) Page {
	if doc == nil || doc.Selection == nil {
		return Page{}
	}
	root := doc.Selection

	var out []Candidate
	seen := map[string]struct{}{}
	FirstMatch(root, ContainerMatchers).Each(func(_ int, card *goquery.Selection) {
		c, ok := parseCard(card, baseURL)
		if !ok {
			return
		}
		if _, dup := seen[c.DetailURL]; dup {
			return
		}
		seen[c.DetailURL] = struct{}{}
		out = append(out, c)
	})

	return Page{Candidates: out, NextURL: findNext(root, baseURL)}
}

func findNext(root *goquery.Selection, baseURL string) *string {
	el := FirstMatch(root, NextMatchers).First()
	href, ok := extract.AttrOf(el, "href")
	if !ok {
		return nil
	}
	abs, ok := extract.ResolveURL(baseURL, href)
	if !ok {
		return nil
	}
	return &abs
}
