package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ppiankov/veracity/internal/apperr"
	"github.com/ppiankov/veracity/internal/logging"
	"github.com/ppiankov/veracity/internal/metrics"
	"github.com/ppiankov/veracity/internal/model"
	"github.com/ppiankov/veracity/internal/worker"
)

const maxRedirects = 3

var errTooManyRedirects = fmt.Errorf("stopped after %d redirects", maxRedirects)

// FetchResult is a fetched response body with the headers extraction needs
type FetchResult struct {
	Body         []byte
	ContentType  string
	LastModified string
	StatusCode   int
	FinalURL     string
}

// Fetcher downloads documents politely: robots.txt, per-host rate limits
// and bounded retries
type Fetcher struct {
	httpClient *http.Client
	cfg        model.FetchConfig
	robots     *RobotsChecker
	limiter    *worker.Limiter
	retry      worker.RetryPolicy
	log        logging.Logger
	metrics    *metrics.Recorder
}

// NewFetcher creates a fetcher. A nil client gets a proxy-aware default.
func NewFetcher(cfg model.FetchConfig, client *http.Client, limiter *worker.Limiter, retry worker.RetryPolicy, log logging.Logger, rec *metrics.Recorder) *Fetcher {
	if client == nil {
		client = &http.Client{}
	}
	// Copy so the redirect policy does not leak into the caller's client
	c := *client
	c.Timeout = cfg.Timeout
	c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return errTooManyRedirects
		}
		return nil
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = model.DefaultConfig().Fetch.MaxBodyBytes
	}
	if log == nil {
		log = logging.NewNopLogger()
	}

	f := &Fetcher{
		httpClient: &c,
		cfg:        cfg,
		limiter:    limiter,
		retry:      retry,
		log:        log,
		metrics:    rec,
	}
	if cfg.RespectRobots {
		f.robots = NewRobotsChecker(&c, cfg.UserAgent)
	}
	return f
}

// Fetch downloads rawURL. Server errors and 429 are retried; other failures
// are reported as IngestionFailed.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, apperr.Newf(apperr.CodeIngestionFailed, "ingestion failed", "not an http(s) URL: %q", rawURL)
	}

	var delay time.Duration
	if f.robots != nil {
		allowed, crawlDelay, _ := f.robots.CanFetch(ctx, rawURL)
		if !allowed {
			return nil, apperr.Newf(apperr.CodeIngestionFailed, "ingestion failed", "disallowed by robots.txt: %s", rawURL)
		}
		delay = crawlDelay
	}

	var result *FetchResult
	attempts, err := f.retry.Do(ctx, func(ctx context.Context) error {
		if err := f.limiter.WaitWithDelay(ctx, worker.HostKey(rawURL), delay); err != nil {
			return worker.Permanent(err)
		}
		r, err := f.fetchOnce(ctx, rawURL)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		f.metrics.Collaborator("fetch", "error")
		f.log.Warn("fetch failed",
			logging.String("url", rawURL),
			logging.Int("attempts", attempts),
			logging.Err(err),
		)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, apperr.Wrap(err, apperr.CodeIngestionFailed, "fetch failed")
	}

	f.metrics.Collaborator("fetch", "ok")
	f.log.Debug("fetched",
		logging.String("url", result.FinalURL),
		logging.Int("bytes", len(result.Body)),
		logging.Int("attempts", attempts),
	)
	return result, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, worker.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, errTooManyRedirects) {
			return nil, worker.Permanent(err)
		}
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("unexpected status: %s", resp.Status)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, worker.Permanent(err)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.cfg.MaxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &FetchResult{
		Body:         body,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		StatusCode:   resp.StatusCode,
		FinalURL:     resp.Request.URL.String(),
	}, nil
}
