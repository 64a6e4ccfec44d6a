package detail

import (
	"strings"
	"testing"

	"github.com/hyperifyio/listingcrawl/internal/index"
)

func BenchmarkEnrich(b *testing.B) {
	var sb strings.Builder
	sb.WriteString("<html><body><article><h1>Listing</h1>")
	for i := 0; i < 100; i++ {
		sb.WriteString("<p>The business has a loyal customer base and steady growth.</p>")
	}
	sb.WriteString("<p>Gross Income: $1,250,000</p><p>Year Established: 1996</p></article></body></html>")
	page := []byte(sb.String())
	c := index.Candidate{DetailURL: "https://example.com/listing/1"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Enrich(page, c)
	}
}
