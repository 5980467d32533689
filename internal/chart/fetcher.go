package chart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotichart/internal/models"
	"github.com/desertthunder/spotichart/internal/shared"
)

const maxPageBytes = 16 << 20

// FetcherOptions controls request and retry behaviour.
type FetcherOptions struct {
	UserAgent  string
	Timeout    time.Duration // per attempt
	MaxRetries int           // total attempts
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// OptionsFromConfig builds [FetcherOptions] from the [chart] config section.
func OptionsFromConfig(c shared.ChartConfig) FetcherOptions {
	return FetcherOptions{
		UserAgent:  c.UserAgent,
		Timeout:    c.Timeout.Duration,
		MaxRetries: c.MaxRetries,
		BaseDelay:  c.RetryDelay.Duration,
		MaxDelay:   c.MaxRetryDelay.Duration,
	}
}

// Fetcher downloads chart pages.
type Fetcher struct {
	client *http.Client
	logger *log.Logger
	opts   FetcherOptions
	sleep  func(context.Context, time.Duration) error
}

// NewFetcher creates a Fetcher. A nil client uses [http.DefaultClient].
func NewFetcher(client *http.Client, logger *log.Logger, opts FetcherOptions) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}

	return &Fetcher{
		client: client,
		logger: shared.WithLogger(logger, "component", "fetcher"),
		opts:   opts,
		sleep:  sleepContext,
	}
}

// Fetch returns the body of url, retrying transient failures.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	var lastStatus int

	for attempt := 1; attempt <= f.opts.MaxRetries; attempt++ {
		f.logger.Debug("fetching chart", "url", url, "attempt", attempt, "max", f.opts.MaxRetries)

		body, status, retryAfter, err := f.get(ctx, url)
		if err == nil {
			return body, nil
		}
		lastErr, lastStatus = err, status

		if ctx.Err() != nil {
			return "", &FetchError{URL: url, Status: status, Attempts: attempt, Err: ctx.Err()}
		}
		if errors.Is(err, shared.ErrInvalidArgument) || !retryable(status) {
			return "", &FetchError{URL: url, Status: status, Attempts: attempt, Err: err}
		}
		if attempt == f.opts.MaxRetries {
			break
		}

		delay := f.backoff(attempt)
		if retryAfter > 0 {
			delay = min(retryAfter, f.opts.MaxDelay)
		}
		f.logger.Warn("fetch attempt failed, retrying", "url", url, "attempt", attempt, "status", status, "delay", delay, "err", err)

		if err := f.sleep(ctx, delay); err != nil {
			return "", &FetchError{URL: url, Status: status, Attempts: attempt, Err: err}
		}
	}

	f.logger.Error("giving up on chart fetch", "url", url, "attempts", f.opts.MaxRetries)
	return "", &FetchError{URL: url, Status: lastStatus, Attempts: f.opts.MaxRetries, Err: lastErr}
}

// get performs one attempt. status is zero on transport errors.
func (f *Fetcher) get(ctx context.Context, url string) (body string, status int, retryAfter time.Duration, err error) {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", resp.StatusCode, parseRetryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", 0, 0, fmt.Errorf("failed to read body: %w", err)
	}
	return string(data), resp.StatusCode, 0, nil
}

// backoff is base * 2^(attempt-1), capped at MaxDelay.
func (f *Fetcher) backoff(attempt int) time.Duration {
	d := f.opts.BaseDelay
	for i := 1; i < attempt && d < f.opts.MaxDelay; i++ {
		d *= 2
	}
	return min(d, f.opts.MaxDelay)
}

// retryable reports whether an attempt that ended with status may be retried.
// Status 0 means the request never produced a response.
func retryable(status int) bool {
	switch {
	case status == 0:
		return true
	case status >= 500:
		return true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 200 && status < 300:
		// body read failure
		return true
	default:
		return false
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Getter is satisfied by [*Fetcher].
type Getter interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Scrape fetches url and parses up to limit tracks from it.
func Scrape(ctx context.Context, g Getter, url, region string, limit int) (*models.ChartSnapshot, error) {
	if limit < 0 {
		return nil, fmt.Errorf("%w: limit must be >= 0, got %d", shared.ErrInvalidArgument, limit)
	}

	markup, err := g.Fetch(ctx, url)
	if err != nil {
		var fe *FetchError
		if errors.As(err, &fe) {
			return nil, err
		}
		return nil, &FetchError{URL: url, Attempts: 1, Err: err}
	}

	snapshot, err := Parse(markup, limit, region)
	if err != nil {
		return nil, err
	}
	snapshot.Source = url
	snapshot.FetchedAt = time.Now().UTC()
	return snapshot, nil
}
