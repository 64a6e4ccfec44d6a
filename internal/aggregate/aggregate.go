// Package aggregate tracks which detail URLs a crawl has already emitted.
package aggregate

import "sync"

// Seen is a run-level set of detail URLs. URLs are compared exactly; two
// listings are the same only when their detail URLs are identical.
// The zero value is ready to use and safe for concurrent use.
type Seen struct {
	mu   sync.Mutex
	urls map[string]struct{}
}

// Add records url and reports whether it was new. Empty URLs are never
// recorded and always report true.
func (s *Seen) Add(url string) bool {
	if url == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.urls == nil {
		s.urls = make(map[string]struct{})
	}
	if _, ok := s.urls[url]; ok {
		return false
	}
	s.urls[url] = struct{}{}
	return true
}

// Len returns the number of distinct URLs recorded.
func (s *Seen) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.urls)
}

// Unique returns items whose key has not been seen before, in order, and
// records their keys.
func Unique[T any](s *Seen, items []T, key func(T) string) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if s.Add(key(it)) {
			out = append(out, it)
		}
	}
	return out
}
