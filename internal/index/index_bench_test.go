package index

import (
	"fmt"
	"strings"
	"testing"
)

// Benchmark Parse on index pages of growing size.
func BenchmarkParse(b *testing.B) {
	for _, cards := range []int{10, 50, 200} {
		page := makeIndexPage(cards)
		b.Run(fmt.Sprintf("cards=%d", cards), func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				_ = Parse(page, "https://example.com/businesses-for-sale")
			}
		})
	}
}

func makeIndexPage(cards int) []byte {
	var sb strings.Builder
	sb.WriteString("<html><body><main>")
	for i := 0; i < cards; i++ {
		fmt.Fprintf(&sb, `<div class="listing"><h3><a href="/listing/%d">Business %d</a></h3><p>Established regional operator.</p>`, i, i)
		fmt.Fprintf(&sb, `<span>Asking Price: $%d,000</span><span>Cash Flow: $%d,500</span><span>Status: Available</span>`, 100+i, 20+i)
		fmt.Fprintf(&sb, `<img data-src="/img/%d.jpg"></div>`, i)
	}
	sb.WriteString(`<a rel="next" href="?page=2">Next</a></main></body></html>`)
	return []byte(sb.String())
}
