package crawler

// fetch.go contains the worker side of the crawl: fetching one listing page
// with bounded retries and turning it into links.

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

var errPageTooLarge = errors.New("listing exceeds page limit")

// statusError is a non-200 response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %d %s", e.code, http.StatusText(e.code))
}

// retryable reports whether another attempt could succeed.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	var pe *parseError
	return !errors.As(err, &pe)
}

// fetch runs on a worker goroutine. It never touches coordinator state.
func (c *Crawler) fetch(ctx context.Context, n *node) fetchResult {
	res := fetchResult{node: n}

	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * c.backoff
			c.logger.Debug().
				Err(res.err).
				Str("url", n.url.String()).
				Int("attempt", attempt).
				Dur("delay", delay).
				Msg("Retrying listing fetch")

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				res.err = ctx.Err()
				return res
			case <-timer.C:
			}
		}

		res.attempts++
		res.links, res.err = c.fetchListing(ctx, n.url)
		if res.err == nil || !retryable(res.err) || ctx.Err() != nil {
			break
		}
	}

	return res
}

// fetchListing downloads and parses a single directory listing.
func (c *Crawler) fetchListing(ctx context.Context, u *url.URL) ([]link, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.pageLimit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read listing: %w", err)
	}
	if int64(len(body)) > c.pageLimit {
		// a truncated listing would silently lose entries
		return nil, &parseError{err: fmt.Errorf("%w of %d bytes", errPageTooLarge, c.pageLimit)}
	}

	return parseListing(bytes.NewReader(body))
}
