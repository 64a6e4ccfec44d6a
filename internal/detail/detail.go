// Package detail mines a listing's detail page for its long-form description
// and a few financial facts. It never fetches; callers pass the page markup.
package detail

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hyperifyio/listingcrawl/internal/extract"
	"github.com/hyperifyio/listingcrawl/internal/index"
	"github.com/hyperifyio/listingcrawl/internal/normalize"
)

// Fields is the patch produced for one detail page. Nil fields were not found.
type Fields struct {
	FullDescription *string
	// GrossIncome is the raw money token, e.g. "$500,000".
	GrossIncome     *string
	YearEstablished *int
}

// Empty reports whether no field was extracted.
func (f Fields) Empty() bool {
	return f.FullDescription == nil && f.GrossIncome == nil && f.YearEstablished == nil
}

// Enricher turns a fetched detail page into a Fields patch.
// Implementations must be pure so they can run on concurrent workers.
type Enricher interface {
	Enrich(page []byte, c index.Candidate) Fields
}

// HeuristicEnricher uses Enrich.
type HeuristicEnricher struct{}

func (HeuristicEnricher) Enrich(page []byte, c index.Candidate) Fields {
	return Enrich(page, c)
}

// ContentMatchers pick the primary content region in priority order.
var ContentMatchers = []index.Matcher{
	index.Selector("article"),
	index.Selector("div.entry-content"),
	index.Selector("section"),
}

// GrossIncomeRules are tried in order; the first label that matches wins.
var GrossIncomeRules = []extract.LabelRule{
	extract.MustLabelRule("gross_income", `gross\s*income`, `[^$]`, 0, extract.MoneyPattern),
	extract.MustLabelRule("revenue", `revenue`, `[^$]`, 0, extract.MoneyPattern),
	extract.MustLabelRule("sales", `sales`, `[^$]`, 0, extract.MoneyPattern),
}

// YearRules capture a year within 40 characters after the label, line breaks
// included so definition lists and table cells still pair up.
var YearRules = []extract.LabelRule{
	extract.MustLabelRule("year_established", `year\s*established`, `(?s:.)`, 40, extract.YearPattern),
	extract.MustLabelRule("founded", `founded`, `(?s:.)`, 40, extract.YearPattern),
	extract.MustLabelRule("established", `established`, `(?s:.)`, 40, extract.YearPattern),
}

// Enrich extracts the full description, gross income token and year
// established from a detail page. A candidate without a detail URL yields an
// empty patch. Each field degrades to nil on its own.
func Enrich(markup []byte, c index.Candidate) Fields {
	if strings.TrimSpace(c.DetailURL) == "" {
		return Fields{}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(markup))
	if err != nil || doc == nil {
		return Fields{}
	}
	doc.Find("script, style").Remove()

	var f Fields
	if desc := describe(doc.Selection); desc != "" {
		f.FullDescription = &desc
	}

	pageText := strings.Join(extract.Strings(rootNode(doc)), "\n")
	if tok, ok := grossIncome(pageText); ok {
		f.GrossIncome = &tok
	}
	if y, ok := yearEstablished(pageText); ok {
		f.YearEstablished = &y
	}
	return f
}

func describe(root *goquery.Selection) string {
	content := index.FirstMatch(root, ContentMatchers).First()
	if content.Length() == 0 {
		content = largestBlock(root)
	}
	if content == nil || content.Length() == 0 {
		return ""
	}
	text := strings.Join(extract.Strings(content.Get(0)), "\n")
	return strings.TrimSpace(extract.CollapseBlankLines(text))
}

// largestBlock returns the block with the most visible text; the first one
// encountered wins ties.
func largestBlock(root *goquery.Selection) *goquery.Selection {
	var best *goquery.Selection
	bestLen := -1
	root.Find("div, section, article").Each(func(_ int, s *goquery.Selection) {
		if n := extract.TextLen(s.Get(0)); n > bestLen {
			best, bestLen = s, n
		}
	})
	return best
}

func grossIncome(pageText string) (string, bool) {
	_, raw, ok := extract.Scan(pageText, GrossIncomeRules)
	if !ok {
		return "", false
	}
	return extract.FindMoneyToken(raw)
}

func yearEstablished(pageText string) (int, bool) {
	if _, raw, ok := extract.Scan(pageText, YearRules); ok {
		if y, ok := normalize.ParseYear(raw); ok {
			return y, true
		}
	}
	raw, ok := extract.FindYearToken(pageText)
	if !ok {
		return 0, false
	}
	return normalize.ParseYear(raw)
}

func rootNode(doc *goquery.Document) *html.Node {
	if doc.Selection == nil || doc.Length() == 0 {
		return nil
	}
	return doc.Get(0)
}
