package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/listingcrawl/internal/cache"
)

func newRobotsServer(t *testing.T, status int, body string) (*httptest.Server, *int32) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/robots.txt" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestAllowed_DisallowRules(t *testing.T) {
	srv, _ := newRobotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /private/\nAllow: /private/ok\n")
	m := &Manager{HTTPClient: srv.Client(), UserAgent: "listingbot/1.0"}
	ctx := context.Background()
	cases := map[string]bool{
		"/businesses-for-sale":  true,
		"/private/listing-9":    false,
		"/private/ok":           true,
		"/listing/7?ref=search": true,
	}
	for path, want := range cases {
		if got := m.Allowed(ctx, srv.URL+path); got != want {
			t.Fatalf("Allowed(%s) = %v, want %v", path, got, want)
		}
	}
}

func TestAllowed_AgentSpecificGroup(t *testing.T) {
	srv, _ := newRobotsServer(t, http.StatusOK, "User-agent: listingbot\nDisallow: /\n\nUser-agent: *\nAllow: /\n")
	ctx := context.Background()
	blocked := &Manager{HTTPClient: srv.Client(), UserAgent: "listingbot/1.0"}
	if blocked.Allowed(ctx, srv.URL+"/listing/1") {
		t.Fatalf("expected listingbot to be blocked")
	}
	other := &Manager{HTTPClient: srv.Client(), UserAgent: "otherbot/2.0"}
	if !other.Allowed(ctx, srv.URL+"/listing/1") {
		t.Fatalf("expected other agents to be allowed")
	}
}

func TestAllowed_MissingRobotsAllows(t *testing.T) {
	srv, _ := newRobotsServer(t, http.StatusNotFound, "")
	m := &Manager{HTTPClient: srv.Client()}
	if !m.Allowed(context.Background(), srv.URL+"/anything") {
		t.Fatalf("404 robots.txt must allow")
	}
}

func TestAllowed_ServerErrorAllows(t *testing.T) {
	srv, _ := newRobotsServer(t, http.StatusServiceUnavailable, "")
	m := &Manager{HTTPClient: srv.Client()}
	data, src, err := m.Get(context.Background(), srv.URL+"/robots.txt")
	if err == nil || src != SourceDefault || data == nil {
		t.Fatalf("expected default rules with error, got src=%v err=%v", src, err)
	}
	if !m.Allowed(context.Background(), srv.URL+"/listing/1") {
		t.Fatalf("5xx robots.txt must allow")
	}
}

func TestAllowed_UnreachableHostAllows(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	m := &Manager{HTTPClient: &http.Client{Timeout: time.Second}}
	if !m.Allowed(context.Background(), url+"/listing/1") {
		t.Fatalf("unreachable robots.txt must allow")
	}
}

func TestAllowed_RejectsBadURL(t *testing.T) {
	m := &Manager{}
	for _, u := range []string{"", "ftp://example.com/x", "/relative/only", "://bad"} {
		if m.Allowed(context.Background(), u) {
			t.Fatalf("expected %q to be disallowed", u)
		}
	}
}

func TestGet_MemoryCache(t *testing.T) {
	srv, hits := newRobotsServer(t, http.StatusOK, "User-agent: *\nDisallow:\n")
	m := &Manager{HTTPClient: srv.Client(), EntryExpiry: time.Hour}
	ctx := context.Background()
	robotsURL := srv.URL + "/robots.txt"
	if _, src, err := m.Get(ctx, robotsURL); err != nil || src != SourceNetwork {
		t.Fatalf("first get: src=%v err=%v", src, err)
	}
	if _, src, err := m.Get(ctx, robotsURL); err != nil || src != SourceMemory {
		t.Fatalf("second get: src=%v err=%v", src, err)
	}
	if n := atomic.LoadInt32(hits); n != 1 {
		t.Fatalf("expected one fetch, got %d", n)
	}
}

func TestGet_ConcurrentLookupsShareFetch(t *testing.T) {
	srv, hits := newRobotsServer(t, http.StatusOK, "User-agent: *\nDisallow: /x\n")
	m := &Manager{HTTPClient: srv.Client()}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.Allowed(context.Background(), srv.URL+"/listing")
		}()
	}
	wg.Wait()
	if n := atomic.LoadInt32(hits); n < 1 || n > 8 {
		t.Fatalf("unexpected fetch count %d", n)
	}
	if _, src, _ := m.Get(context.Background(), srv.URL+"/robots.txt"); src != SourceMemory {
		t.Fatalf("expected memory hit after concurrent lookups, got %v", src)
	}
}

func TestGet_Conditional304UsesDiskCache(t *testing.T) {
	etag := `"r1"`
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		_, _ = w.Write([]byte("User-agent: *\nDisallow: /hidden\n"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	ctx := context.Background()
	first := &Manager{HTTPClient: srv.Client(), Cache: &cache.HTTPCache{Dir: dir}}
	if first.Allowed(ctx, srv.URL+"/hidden") {
		t.Fatalf("expected /hidden disallowed")
	}
	second := &Manager{HTTPClient: srv.Client(), Cache: &cache.HTTPCache{Dir: dir}}
	_, src, err := second.Get(ctx, srv.URL+"/robots.txt")
	if err != nil || src != SourceCache304 {
		t.Fatalf("expected 304 revalidation, got src=%v err=%v", src, err)
	}
	if second.Allowed(ctx, srv.URL+"/hidden") {
		t.Fatalf("expected cached rules to disallow /hidden")
	}
}

func TestCrawlDelay(t *testing.T) {
	srv, _ := newRobotsServer(t, http.StatusOK, "User-agent: *\nCrawl-delay: 2\nDisallow:\n")
	m := &Manager{HTTPClient: srv.Client()}
	if d := m.CrawlDelay(context.Background(), srv.URL+"/listing/1"); d != 2*time.Second {
		t.Fatalf("unexpected crawl delay %v", d)
	}
	none, _ := newRobotsServer(t, http.StatusNotFound, "")
	m2 := &Manager{HTTPClient: none.Client()}
	if d := m2.CrawlDelay(context.Background(), none.URL+"/listing/1"); d != 0 {
		t.Fatalf("expected no delay, got %v", d)
	}
}
