package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"

	"github.com/knowledge-engine/resume-ranker/internal/config"
	"github.com/knowledge-engine/resume-ranker/internal/intake"
)

var (
	ErrDisallowed = errors.New("URL blocked by robots.txt")
	ErrInvalidURL = errors.New("invalid job posting URL")
)

// Fetcher downloads job postings and reduces them to text
type Fetcher struct {
	client      *http.Client
	extractor   *intake.Extractor
	config      config.FetcherConfig
	logger      *logrus.Entry
	robotsCache map[string]*robotsEntry
	hosts       map[string]*hostState
	mu          sync.Mutex
}

// robotsEntry caches robots.txt data per host
type robotsEntry struct {
	robots    *robotstxt.RobotsData
	fetchTime time.Time
}

// hostState spaces out requests to one host
type hostState struct {
	mu          sync.Mutex
	lastRequest time.Time
}

func NewFetcher(cfg config.FetcherConfig, extractor *intake.Extractor, logger *logrus.Entry) *Fetcher {
	if logger == nil {
		logger = logrus.WithField("component", "fetcher")
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout.Std(),
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		extractor:   extractor,
		config:      cfg,
		logger:      logger,
		robotsCache: make(map[string]*robotsEntry),
		hosts:       make(map[string]*hostState),
	}
}

// Fetch downloads a job posting and extracts its text
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*intake.Document, error) {
	target, err := url.Parse(rawURL)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	delay := f.config.MinDelay.Std()
	if f.config.EnableRobotsCheck {
		allowed, crawlDelay := f.isAllowed(ctx, target)
		if !allowed {
			return nil, fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
		}
		if crawlDelay > delay {
			delay = crawlDelay
		}
	}

	host := f.stateFor(target)
	host.mu.Lock()
	defer host.mu.Unlock()
	if err := f.waitForPolitenessDelay(ctx, target.Host, host.lastRequest, delay); err != nil {
		return nil, err
	}
	host.lastRequest = time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	doc, err := f.extractor.Extract(target.String(), resp.Header.Get("Content-Type"), resp.Body)
	if err != nil {
		return nil, err
	}

	f.logger.WithFields(logrus.Fields{
		"url":   target.String(),
		"bytes": len(doc.Text),
	}).Debug("Fetched job posting")
	return doc, nil
}

// isAllowed checks target against the host's robots.txt and returns the
// Crawl-delay of the matching group. Failing to obtain robots.txt allows the
// request.
func (f *Fetcher) isAllowed(ctx context.Context, target *url.URL) (bool, time.Duration) {
	robots, err := f.getRobotsData(ctx, target)
	if err != nil {
		f.logger.WithError(err).WithField("domain", target.Host).Warn("Failed to get robots.txt, allowing request")
		return true, 0
	}

	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	return robots.TestAgent(path, f.config.UserAgent), robots.FindGroup(f.config.UserAgent).CrawlDelay
}

func (f *Fetcher) stateFor(target *url.URL) *hostState {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.hosts[target.Host]
	if !ok {
		state = &hostState{}
		f.hosts[target.Host] = state
	}
	return state
}

// waitForPolitenessDelay blocks until delay has passed since last, or ctx ends
func (f *Fetcher) waitForPolitenessDelay(ctx context.Context, domain string, last time.Time, delay time.Duration) error {
	if last.IsZero() {
		return nil // First request to this domain
	}

	elapsed := time.Since(last)
	if elapsed >= delay {
		return nil
	}

	waitTime := delay - elapsed
	f.logger.WithFields(logrus.Fields{
		"domain":    domain,
		"wait_time": waitTime,
	}).Debug("Waiting for politeness delay")

	timer := time.NewTimer(waitTime)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// getRobotsData fetches and caches robots.txt data
func (f *Fetcher) getRobotsData(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	key := target.Scheme + "://" + target.Host

	f.mu.Lock()
	entry, exists := f.robotsCache[key]
	f.mu.Unlock()
	if exists && time.Since(entry.fetchTime) < f.config.RobotsCacheDuration.Std() {
		return entry.robots, nil
	}

	robotsURL := key + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create robots.txt request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	robots, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}

	f.mu.Lock()
	f.robotsCache[key] = &robotsEntry{
		robots:    robots,
		fetchTime: time.Now(),
	}
	f.mu.Unlock()

	return robots, nil
}
