// Package collyfetcher implements news.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"dawnscraper/internal/metrics"
	"dawnscraper/internal/news"
)

// Config controls collector and retry behavior.
type Config struct {
	UserAgent      string
	RespectRobots  bool
	Timeout        time.Duration
	MaxRetries     int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
	// Delay is the minimum spacing between outbound requests; zero
	// disables politeness throttling (tests only).
	Delay time.Duration
}

// Fetcher issues single HTTP GETs with retry, backoff, and a politeness
// delay shared across all callers.
type Fetcher struct {
	cfg           Config
	limiter       *rate.Limiter
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BackoffInitial == 0 {
		cfg.BackoffInitial = 250 * time.Millisecond
	}
	if cfg.BackoffMax == 0 {
		cfg.BackoffMax = 5 * time.Second
	}

	limit := rate.Inf
	if cfg.Delay > 0 {
		limit = rate.Every(cfg.Delay)
	}

	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	// Retries and freshness re-checks hit the same URL repeatedly.
	c.AllowURLRevisit = true

	return &Fetcher{
		cfg:           cfg,
		limiter:       rate.NewLimiter(limit, 1),
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch executes an HTTP GET, retrying transient failures with
// exponential backoff plus jitter. Persistent failures come back as a
// *news.FetchError; the caller decides how to record them.
func (f *Fetcher) Fetch(ctx context.Context, url string) (news.FetchResponse, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return news.FetchResponse{}, fmt.Errorf("politeness wait: %w", err)
		}

		resp, err := f.fetchOnce(ctx, url)
		if err == nil {
			metrics.ObserveFetch("success")
			return resp, nil
		}
		lastErr = err

		var fetchErr *news.FetchError
		retryable := errors.As(err, &fetchErr) && fetchErr.Retryable()
		if !retryable || attempt >= f.cfg.MaxRetries || ctx.Err() != nil {
			metrics.ObserveFetch(news.ErrorKind(err))
			return news.FetchResponse{}, lastErr
		}

		metrics.ObserveFetchRetry()
		wait := f.backoff(attempt)
		f.logger.Warn("fetch failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", wait),
			zap.Error(err),
		)
		if err := sleep(ctx, wait); err != nil {
			return news.FetchResponse{}, lastErr
		}
	}
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (news.FetchResponse, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		result   news.FetchResponse
		respErr  error
		respCode int
	)
	collector.OnResponse(func(r *colly.Response) {
		result = news.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			respCode = r.StatusCode
		}
		respErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return news.FetchResponse{}, &news.FetchError{
			Kind: news.FetchTimeout,
			URL:  url,
			Err:  ctx.Err(),
		}
	case visitErr := <-done:
		if respErr == nil && visitErr != nil {
			respErr = visitErr
		}
		if respErr != nil {
			return news.FetchResponse{}, classify(url, respCode, respErr)
		}
		return result, nil
	}
}

// classify maps a transport failure onto the fetch taxonomy.
func classify(url string, statusCode int, err error) *news.FetchError {
	switch {
	case statusCode == 429:
		return &news.FetchError{Kind: news.FetchTooManyRequests, URL: url, StatusCode: statusCode, Err: err}
	case statusCode >= 400:
		return &news.FetchError{Kind: news.FetchHTTPError, URL: url, StatusCode: statusCode, Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &news.FetchError{Kind: news.FetchTimeout, URL: url, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &news.FetchError{Kind: news.FetchTimeout, URL: url, Err: err}
	}
	return &news.FetchError{Kind: news.FetchConnectionFailed, URL: url, Err: err}
}

// backoff returns the jittered wait before the next attempt.
func (f *Fetcher) backoff(attempt int) time.Duration {
	delay := float64(f.cfg.BackoffInitial) * math.Pow(2, float64(attempt))
	if delay > float64(f.cfg.BackoffMax) {
		delay = float64(f.cfg.BackoffMax)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	bound := big.NewInt(int64(limit))
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
