package fetcher_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowledge-engine/resume-ranker/internal/config"
	"github.com/knowledge-engine/resume-ranker/internal/fetcher"
	"github.com/knowledge-engine/resume-ranker/internal/intake"
)

const postingHTML = `<html><head><title>Senior Go Engineer</title></head>
<body><script>track()</script><p>We need Kubernetes and Postgres experience.</p></body></html>`

func newTestServer(t *testing.T, robots string, robotsHits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		if robotsHits != nil {
			atomic.AddInt32(robotsHits, 1)
		}
		if robots == "" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, robots)
	})
	mux.HandleFunc("/jobs/go", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "TestAgent/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, postingHTML)
	})
	mux.HandleFunc("/private/job", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "secret")
	})
	mux.HandleFunc("/jobs/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprint(w, "Rust developer wanted")
	})
	mux.HandleFunc("/jobs/pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.7")
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newFetcher(robotsCheck bool) *fetcher.Fetcher {
	return newFetcherWithDelay(robotsCheck, 0)
}

func newFetcherWithDelay(robotsCheck bool, minDelay time.Duration) *fetcher.Fetcher {
	cfg := config.Default().Fetcher
	cfg.UserAgent = "TestAgent/1.0"
	cfg.Timeout = config.Duration(5 * time.Second)
	cfg.EnableRobotsCheck = robotsCheck
	cfg.MinDelay = config.Duration(minDelay)
	logger := logrus.New().WithField("test", "fetcher")
	return fetcher.NewFetcher(cfg, intake.NewExtractor(1<<20), logger)
}

func TestFetchHTML(t *testing.T) {
	server := newTestServer(t, "", nil)
	f := newFetcher(true)

	doc, err := f.Fetch(context.Background(), server.URL+"/jobs/go")
	require.NoError(t, err)
	assert.Equal(t, "Senior Go Engineer", doc.Title)
	assert.Equal(t, intake.FormatHTML, doc.Format)
	assert.Equal(t, "Senior Go Engineer We need Kubernetes and Postgres experience.", doc.Text)
}

func TestFetchPlainText(t *testing.T) {
	server := newTestServer(t, "", nil)
	f := newFetcher(false)

	doc, err := f.Fetch(context.Background(), server.URL+"/jobs/plain")
	require.NoError(t, err)
	assert.Equal(t, "Rust developer wanted", doc.Text)
}

func TestFetchRespectsRobots(t *testing.T) {
	var hits int32
	server := newTestServer(t, "User-agent: *\nDisallow: /private/\n", &hits)
	f := newFetcher(true)

	_, err := f.Fetch(context.Background(), server.URL+"/private/job")
	assert.ErrorIs(t, err, fetcher.ErrDisallowed)

	_, err = f.Fetch(context.Background(), server.URL+"/jobs/go")
	assert.NoError(t, err)

	// robots.txt is cached per host
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchRobotsCheckDisabled(t *testing.T) {
	server := newTestServer(t, "User-agent: *\nDisallow: /\n", nil)
	f := newFetcher(false)

	doc, err := f.Fetch(context.Background(), server.URL+"/private/job")
	require.NoError(t, err)
	assert.Equal(t, "secret", doc.Text)
}

func TestFetchErrors(t *testing.T) {
	server := newTestServer(t, "", nil)
	f := newFetcher(false)

	_, err := f.Fetch(context.Background(), server.URL+"/missing")
	assert.ErrorContains(t, err, "non-200")

	_, err = f.Fetch(context.Background(), server.URL+"/jobs/pdf")
	assert.ErrorIs(t, err, intake.ErrUnsupportedFormat)

	for _, bad := range []string{"", "ftp://example.com/job", "not a url", "http://"} {
		_, err = f.Fetch(context.Background(), bad)
		assert.ErrorIs(t, err, fetcher.ErrInvalidURL, "url %q", bad)
	}
}

func TestFetchCanceledContext(t *testing.T) {
	server := newTestServer(t, "", nil)
	f := newFetcher(false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, server.URL+"/jobs/go")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchHonorsCrawlDelay(t *testing.T) {
	server := newTestServer(t, "User-agent: *\nCrawl-delay: 0.2\n", nil)
	f := newFetcher(true)

	start := time.Now()
	_, err := f.Fetch(context.Background(), server.URL+"/jobs/plain")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), server.URL+"/jobs/plain")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
}

func TestFetchPolitenessDelayCanceled(t *testing.T) {
	server := newTestServer(t, "", nil)
	f := newFetcherWithDelay(false, time.Hour)

	_, err := f.Fetch(context.Background(), server.URL+"/jobs/plain")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = f.Fetch(ctx, server.URL+"/jobs/plain")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
