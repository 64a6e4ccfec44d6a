package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hyperifyio/listingcrawl/internal/aggregate"
	"github.com/hyperifyio/listingcrawl/internal/cache"
	"github.com/hyperifyio/listingcrawl/internal/detail"
	"github.com/hyperifyio/listingcrawl/internal/fetch"
	"github.com/hyperifyio/listingcrawl/internal/index"
	"github.com/hyperifyio/listingcrawl/internal/output"
	"github.com/hyperifyio/listingcrawl/internal/robots"
)

// ErrNoListings is returned when a run finishes without a single record. The
// output file is still written as an empty array.
var ErrNoListings = errors.New("no listings collected")

// ErrStartDisallowed is returned when robots.txt forbids the first index page.
var ErrStartDisallowed = errors.New("start url disallowed by robots.txt")

var errRobotsSkip = errors.New("disallowed by robots.txt")

type App struct {
	cfg        Config
	httpClient *http.Client
	client     *fetch.Client
	robots     *robots.Manager
	httpCache  *cache.HTTPCache
	enricher   detail.Enricher
	limiter    *rate.Limiter
	workers    int
	now        func() time.Time
}

// New validates cfg and wires the transport, cache and robots collaborators.
func New(ctx context.Context, cfg Config) (*App, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	a := &App{cfg: cfg, enricher: detail.HeuristicEnricher{}, workers: workers, now: time.Now}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			if err := cache.ClearDir(cfg.CacheDir); err != nil {
				log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache clear failed")
			}
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeHTTPCacheByAge(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
				log.Warn().Err(err).Msg("cache purge failed")
			} else if n > 0 {
				log.Debug().Int("removed", n).Msg("purged stale cache entries")
			}
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir, FreshFor: cfg.CacheMaxAge}
	}

	hc, err := newHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}
	a.httpClient = hc
	a.client = &fetch.Client{
		HTTPClient:        hc,
		UserAgent:         cfg.UserAgent,
		PerRequestTimeout: cfg.Timeout,
		Cache:             a.httpCache,
		MaxConcurrent:     workers,
	}
	if cfg.RespectRobots {
		a.robots = &robots.Manager{HTTPClient: hc, Cache: a.httpCache, UserAgent: cfg.UserAgent}
	}
	a.limiter = newLimiter(cfg.DetailInterval())
	return a, nil
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func (a *App) Close() {
	if a.httpClient != nil {
		a.httpClient.CloseIdleConnections()
	}
}

// runStats collects per-run counters from concurrent detail workers.
type runStats struct {
	mu            sync.Mutex
	pages         []string
	duplicates    int
	failures      []string
	robotsSkipped []string
}

func (s *runStats) fail(url string) {
	s.mu.Lock()
	s.failures = append(s.failures, url)
	s.mu.Unlock()
}

func (s *runStats) skip(url string) {
	s.mu.Lock()
	s.robotsSkipped = append(s.robotsSkipped, url)
	s.mu.Unlock()
}

// Run crawls index pages, enriches each new listing from its detail page and
// writes the JSON output plus its manifest.
func (a *App) Run(ctx context.Context) error {
	started := a.now().UTC()
	runID := uuid.NewString()
	start := a.cfg.ResolvedStartURL()
	logger := log.With().Str("run", runID).Logger()

	if a.robots != nil {
		if !a.robots.Allowed(ctx, start) {
			return fmt.Errorf("%w: %s", ErrStartDisallowed, start)
		}
		if d := a.robots.CrawlDelay(ctx, start); d > a.cfg.DetailInterval() {
			logger.Info().Dur("crawl_delay", d).Msg("honoring robots.txt crawl-delay")
			a.limiter.SetLimit(rate.Every(d))
		}
	}

	var (
		seen    aggregate.Seen
		stats   runStats
		visited = map[string]bool{}
		records = []Listing{}
	)
	next := start
	for page := 1; page <= a.cfg.MaxPages; page++ {
		if visited[next] {
			logger.Info().Str("url", next).Msg("pagination loops back to a visited page; stopping")
			break
		}
		visited[next] = true

		logger.Info().Int("page", page).Str("url", next).Msg("fetching index page")
		body, _, err := a.client.Get(ctx, next)
		if err != nil {
			if page == 1 {
				return fmt.Errorf("fetch index page %s: %w", next, err)
			}
			logger.Warn().Err(err).Str("url", next).Msg("index page fetch failed; stopping pagination")
			break
		}
		stats.pages = append(stats.pages, next)

		parsed := index.Parse(body, next)
		fresh := aggregate.Unique(&seen, parsed.Candidates, func(c index.Candidate) string { return c.DetailURL })
		stats.duplicates += len(parsed.Candidates) - len(fresh)
		logger.Info().Int("cards", len(parsed.Candidates)).Int("new", len(fresh)).Msg("parsed listing cards")

		records = append(records, a.enrich(ctx, fresh, &stats)...)

		if ctx.Err() != nil {
			break
		}
		if parsed.NextURL == nil {
			logger.Info().Msg("no next page link found; stopping")
			break
		}
		next = *parsed.NextURL
		logger.Debug().Str("url", next).Msg("next page detected")
		if page < a.cfg.MaxPages {
			if err := sleepCtx(ctx, a.cfg.Delay); err != nil {
				break
			}
		}
	}

	if err := a.export(records, runID, start, started, &stats); err != nil {
		return err
	}
	logger.Info().Int("records", len(records)).Str("out", a.cfg.OutputPath).Msg("exported listings")

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return ErrNoListings
	}
	return nil
}

// enrich converts candidates to listings and merges detail page fields into
// them. Results land in a slot per candidate so output order follows the
// index page.
func (a *App) enrich(ctx context.Context, cands []index.Candidate, stats *runStats) []Listing {
	out := make([]Listing, len(cands))
	for i, c := range cands {
		out[i] = FromCandidate(c)
	}
	if a.cfg.SkipDetails {
		return out
	}
	var g errgroup.Group
	g.SetLimit(a.workers)
	for i := range cands {
		i := i
		g.Go(func() error {
			f, err := a.enrichOne(ctx, cands[i])
			switch {
			case err == nil:
				out[i].Apply(f)
			case errors.Is(err, errRobotsSkip):
				stats.skip(cands[i].DetailURL)
				log.Debug().Str("url", cands[i].DetailURL).Msg("detail page disallowed by robots.txt")
			case ctx.Err() != nil:
			default:
				stats.fail(cands[i].DetailURL)
				log.Warn().Err(err).Str("url", cands[i].DetailURL).Msg("detail enrichment failed")
			}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (a *App) enrichOne(ctx context.Context, c index.Candidate) (detail.Fields, error) {
	if err := ctx.Err(); err != nil {
		return detail.Fields{}, err
	}
	if a.robots != nil && !a.robots.Allowed(ctx, c.DetailURL) {
		return detail.Fields{}, errRobotsSkip
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return detail.Fields{}, err
	}
	body, _, err := a.client.Get(ctx, c.DetailURL)
	if err != nil {
		return detail.Fields{}, err
	}
	return a.enricher.Enrich(body, c), nil
}

func (a *App) export(records []Listing, runID, start string, started time.Time, stats *runStats) error {
	if err := output.WriteJSON(a.cfg.OutputPath, records); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	data, err := output.Marshal(records)
	if err != nil {
		return err
	}
	sort.Strings(stats.failures)
	sort.Strings(stats.robotsSkipped)
	m := output.Manifest{
		RunID:          runID,
		Version:        BuildVersion,
		StartURL:       start,
		Pages:          stats.pages,
		Records:        len(records),
		Duplicates:     stats.duplicates,
		DetailFailures: stats.failures,
		RobotsSkipped:  stats.robotsSkipped,
		OutputSHA256:   output.SHA256Hex(data),
		StartedAt:      started,
		FinishedAt:     a.now().UTC(),
	}
	if err := output.WriteManifest(a.cfg.OutputPath, m); err != nil {
		log.Warn().Err(err).Msg("write manifest failed")
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
