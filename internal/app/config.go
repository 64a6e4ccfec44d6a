package app

import (
	"time"

	"github.com/hyperifyio/listingcrawl/internal/fetch"
)

// Defaults mirror the flag defaults in cmd/listingcrawl.
const (
	DefaultBaseURL          = "https://www.websiteclosers.com"
	DefaultStartPath        = "/businesses-for-sale"
	DefaultMaxPages         = 3
	DefaultDelay            = 1500 * time.Millisecond
	DefaultDetailDelayFloor = 200 * time.Millisecond
	DefaultOutputPath       = "data/website-closers-listings.json"
	DefaultTimeout          = 30 * time.Second
	DefaultWorkers          = 1
	DefaultCacheDir         = ".listingcrawl-cache"
	DefaultUserAgent        = fetch.DefaultUserAgent
)

// Config holds runtime configuration for a crawl.
type Config struct {
	// BaseURL plus StartPath form the first index page unless StartURL is set.
	BaseURL   string
	StartPath string
	StartURL  string

	MaxPages int
	// Delay is the pause between index pages. Detail fetches are paced at
	// max(DetailDelayFloor, Delay/5).
	Delay            time.Duration
	DetailDelayFloor time.Duration

	OutputPath string

	// Transport
	UserAgent string
	ProxyURL  string
	Timeout   time.Duration
	Workers   int

	// Cache
	CacheDir    string
	CacheMaxAge time.Duration
	CacheClear  bool

	// Behavior
	RespectRobots bool
	SkipDetails   bool
	Verbose       bool
}

// DefaultConfig returns a Config populated with defaults.
func DefaultConfig() Config {
	return Config{
		BaseURL:          DefaultBaseURL,
		StartPath:        DefaultStartPath,
		MaxPages:         DefaultMaxPages,
		Delay:            DefaultDelay,
		DetailDelayFloor: DefaultDetailDelayFloor,
		OutputPath:       DefaultOutputPath,
		UserAgent:        DefaultUserAgent,
		Timeout:          DefaultTimeout,
		Workers:          DefaultWorkers,
		CacheDir:         DefaultCacheDir,
		RespectRobots:    true,
	}
}

// ResolvedStartURL returns StartURL, or BaseURL joined with StartPath.
func (c Config) ResolvedStartURL() string {
	if s := trim(c.StartURL); s != "" {
		return s
	}
	base := trim(c.BaseURL)
	path := trim(c.StartPath)
	if path == "" {
		return base
	}
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	if path[0] != '/' {
		path = "/" + path
	}
	return base + path
}

// DetailInterval is the minimum spacing between detail page fetches.
func (c Config) DetailInterval() time.Duration {
	d := c.Delay / 5
	if d < c.DetailDelayFloor {
		d = c.DetailDelayFloor
	}
	return d
}
