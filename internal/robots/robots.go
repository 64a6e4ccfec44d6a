// Package robots answers whether a listing URL may be fetched according to
// the host's robots.txt. Lookup failures never block a crawl.
package robots

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"

	"github.com/hyperifyio/listingcrawl/internal/cache"
)

// Source reports where the rules for a lookup came from.
type Source int

const (
	SourceNetwork Source = iota
	SourceMemory
	SourceCache304
	// SourceDefault means the rules could not be loaded and everything is allowed.
	SourceDefault
)

const memEntries = 256

// Manager fetches, parses and remembers robots.txt per host.
type Manager struct {
	HTTPClient *http.Client
	// Optional on-disk cache used for conditional revalidation.
	Cache     *cache.HTTPCache
	UserAgent string
	// EntryExpiry bounds how long parsed rules stay in memory. Zero means 30 minutes.
	EntryExpiry time.Duration

	once  sync.Once
	mem   *expirable.LRU[string, *robotstxt.RobotsData]
	group singleflight.Group
}

func (m *Manager) init() {
	m.once.Do(func() {
		exp := m.EntryExpiry
		if exp <= 0 {
			exp = 30 * time.Minute
		}
		m.mem = expirable.NewLRU[string, *robotstxt.RobotsData](memEntries, nil, exp)
	})
}

// Allowed reports whether pageURL may be fetched by the manager's user agent.
// Unparsable URLs are disallowed; robots.txt lookup failures allow.
func (m *Manager) Allowed(ctx context.Context, pageURL string) bool {
	u, err := url.Parse(pageURL)
	if err != nil || !isHTTPScheme(u) || u.Host == "" {
		return false
	}
	data, _, _ := m.Get(ctx, robotsURLFor(u))
	return data.TestAgent(u.RequestURI(), m.agent())
}

// CrawlDelay returns the Crawl-delay declared for the manager's user agent on
// pageURL's host, or zero.
func (m *Manager) CrawlDelay(ctx context.Context, pageURL string) time.Duration {
	u, err := url.Parse(pageURL)
	if err != nil || !isHTTPScheme(u) || u.Host == "" {
		return 0
	}
	data, _, _ := m.Get(ctx, robotsURLFor(u))
	if g := data.FindGroup(m.agent()); g != nil {
		return g.CrawlDelay
	}
	return 0
}

// Get returns the parsed rules at robotsURL. On failure the returned rules
// allow everything and the error explains why.
func (m *Manager) Get(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, Source, error) {
	m.init()
	if data, ok := m.mem.Get(robotsURL); ok {
		return data, SourceMemory, nil
	}
	type result struct {
		data *robotstxt.RobotsData
		src  Source
	}
	v, err, _ := m.group.Do(robotsURL, func() (any, error) {
		data, src, err := m.load(ctx, robotsURL)
		if err != nil {
			data, src = allowAll(), SourceDefault
		}
		m.mem.Add(robotsURL, data)
		return result{data: data, src: src}, err
	})
	r := v.(result)
	return r.data, r.src, err
}

func (m *Manager) load(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, Source, error) {
	var etag, lastMod string
	if m.Cache != nil {
		if meta, err := m.Cache.LoadMeta(ctx, robotsURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, SourceNetwork, fmt.Errorf("new request: %w", err)
	}
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}
	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, SourceNetwork, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && m.Cache != nil {
		body, err := m.Cache.LoadBody(ctx, robotsURL)
		if err != nil {
			return nil, SourceCache304, fmt.Errorf("load cached robots: %w", err)
		}
		data, err := robotstxt.FromBytes(body)
		return data, SourceCache304, err
	}
	if resp.StatusCode >= 500 {
		return nil, SourceNetwork, fmt.Errorf("robots status: %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, SourceNetwork, fmt.Errorf("read robots: %w", err)
	}
	// 4xx means no restrictions.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, SourceNetwork, fmt.Errorf("parse robots: %w", err)
	}
	if m.Cache != nil && resp.StatusCode == http.StatusOK {
		_ = m.Cache.Save(ctx, robotsURL, "text/plain", resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), body)
	}
	return data, SourceNetwork, nil
}

func (m *Manager) agent() string {
	if m.UserAgent == "" {
		return "*"
	}
	return m.UserAgent
}

func allowAll() *robotstxt.RobotsData {
	data, _ := robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	return data
}

func robotsURLFor(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + u.Host + "/robots.txt"
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}
