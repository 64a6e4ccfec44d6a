package extract

import (
	"net/url"
	"strings"
)

// ResolveURL resolves ref against base and returns an absolute URL. The result
// is false when ref is blank, either side fails to parse, or the resolved URL
// has no scheme or host.
func ResolveURL(base, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false
	}
	b, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", false
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	u := b.ResolveReference(r)
	if u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return u.String(), true
}
