package index

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/hyperifyio/listingcrawl/internal/extract"
)

var (
	askingRule   = extract.MustLabelRule("asking_price", `asking|price`, `[\s:]`, 0, extract.MoneyPattern)
	cashFlowRule = extract.MustLabelRule("cash_flow", `cash\s*flow`, `[\s:]`, 0, extract.MoneyPattern)
	statusRule   = extract.MustLabelRule("status", `status|availability`, `[:\s]`, 0, `[A-Za-z]+`)
)

// parseCard extracts a Candidate from one container. Containers without a
// link that resolves to an absolute URL are rejected.
func parseCard(card *goquery.Selection, baseURL string) (Candidate, bool) {
	link := card.Find("a[href]").First()
	href, ok := extract.AttrOf(link, "href")
	if !ok {
		return Candidate{}, false
	}
	detailURL, ok := extract.ResolveURL(baseURL, href)
	if !ok {
		return Candidate{}, false
	}

	c := Candidate{DetailURL: detailURL}

	title := extract.TextOf(card.Find("h2, h3, h4").First())
	if title == "" {
		title = extract.TextOf(link)
	}
	c.Title = optional(title)
	c.Description = optional(extract.TextOf(card.Find("p").First()))

	blob := extract.JoinedText(card, " ")
	if v, ok := askingRule.Find(blob); ok {
		c.AskingPrice = &v
	} else if v, ok := extract.FindMoneyToken(blob); ok {
		c.AskingPrice = &v
	}
	// No unlabeled fallback here: the first bare number is usually the price.
	if v, ok := cashFlowRule.Find(blob); ok {
		c.CashFlow = &v
	}
	if v, ok := statusRule.Find(blob); ok {
		c.Status = &v
	}

	img := card.Find("img").First()
	src, ok := extract.AttrOf(img, "data-src")
	if !ok || src == "" {
		src, _ = extract.AttrOf(img, "src")
	}
	if abs, ok := extract.ResolveURL(baseURL, src); ok {
		c.ImageURL = &abs
	}
	return c, true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
