package app

import (
	"github.com/hyperifyio/listingcrawl/internal/detail"
	"github.com/hyperifyio/listingcrawl/internal/index"
	"github.com/hyperifyio/listingcrawl/internal/normalize"
)

// Listing is one exported record. Absent fields serialize as null.
type Listing struct {
	DetailURL       string   `json:"detailUrl"`
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	AskingPrice     *float64 `json:"askingPrice"`
	CashFlow        *float64 `json:"cashFlow"`
	Status          *string  `json:"status"`
	ImageURL        *string  `json:"imageUrl"`
	FullDescription *string  `json:"fullDescription"`
	GrossIncome     *float64 `json:"grossIncome"`
	YearEstablished *int     `json:"yearEstablished"`
}

// FromCandidate builds a Listing from index-page fields, converting money
// tokens to numbers.
func FromCandidate(c index.Candidate) Listing {
	return Listing{
		DetailURL:   c.DetailURL,
		Title:       c.Title,
		Description: c.Description,
		AskingPrice: normalize.ToNumberPtr(c.AskingPrice),
		CashFlow:    normalize.ToNumberPtr(c.CashFlow),
		Status:      c.Status,
		ImageURL:    c.ImageURL,
	}
}

// Apply merges a detail patch. Fields missing from the patch keep their
// current values.
func (l *Listing) Apply(f detail.Fields) {
	if f.FullDescription != nil {
		l.FullDescription = f.FullDescription
	}
	if n := normalize.ToNumberPtr(f.GrossIncome); n != nil {
		l.GrossIncome = n
	}
	if f.YearEstablished != nil && normalize.YearInRange(*f.YearEstablished) {
		y := *f.YearEstablished
		l.YearEstablished = &y
	}
}
