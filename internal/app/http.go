package app

import (
	"net"
	"net/http"
	"time"

	"github.com/hyperifyio/listingcrawl/internal/fetch"
)

// newHTTPClient returns the shared client for index, detail and robots
// requests. The per-host idle pool is sized to the worker count since every
// request goes to the same site.
func newHTTPClient(cfg Config) (*http.Client, error) {
	client, err := fetch.NewHTTPClient(cfg.ProxyURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	if tr, ok := client.Transport.(*http.Transport); ok {
		tr.DialContext = (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext
		tr.ForceAttemptHTTP2 = true
		tr.MaxIdleConnsPerHost = workers + 1
		tr.IdleConnTimeout = 90 * time.Second
		tr.TLSHandshakeTimeout = 10 * time.Second
		tr.ExpectContinueTimeout = 1 * time.Second
	}
	return client, nil
}
