// Package crawler walks remote HTML directory listings (Apache/nginx
// autoindex pages) breadth first and flattens them into a manifest.
//
// A single coordinator goroutine owns the frontier, the visited set and the
// manifest. Workers only fetch and parse pages and report back over a
// channel, so no URL is ever handed to two workers.
package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rptriage/rptriage/model"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultMaxDepth  = 6
	DefaultWorkers   = 20
	DefaultRetries   = 2
	DefaultBackoff   = 500 * time.Millisecond
	DefaultPageLimit = 8 << 20
	DefaultTimeout   = 30 * time.Second
)

// Crawler fetches directory listings with a bounded pool of workers.
type Crawler struct {
	logger    zerolog.Logger
	client    *http.Client
	maxDepth  int
	workers   int
	retries   int
	backoff   time.Duration
	pageLimit int64
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Crawler) {
		c.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for all fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Crawler) {
		if client != nil {
			c.client = client
		}
	}
}

// WithMaxDepth limits how deep below the root directories are descended.
// Entries at depth d are discovered, directories are only fetched when d < depth.
func WithMaxDepth(depth int) Option {
	return func(c *Crawler) {
		if depth > 0 {
			c.maxDepth = depth
		}
	}
}

// WithWorkers sets the number of concurrent fetches.
func WithWorkers(n int) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithRetries sets how often a failed fetch is retried.
func WithRetries(n int) Option {
	return func(c *Crawler) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the base delay between retries. Attempt n waits n*backoff.
func WithBackoff(d time.Duration) Option {
	return func(c *Crawler) {
		if d >= 0 {
			c.backoff = d
		}
	}
}

// WithPageLimit caps the number of bytes read from a single listing page.
// A larger page is recorded as a failure rather than parsed in part.
func WithPageLimit(n int64) Option {
	return func(c *Crawler) {
		if n > 0 {
			c.pageLimit = n
		}
	}
}

// New creates a crawler with the given options applied over the defaults.
func New(opts ...Option) *Crawler {
	c := &Crawler{
		logger:    zerolog.Nop(),
		client:    &http.Client{Timeout: DefaultTimeout},
		maxDepth:  DefaultMaxDepth,
		workers:   DefaultWorkers,
		retries:   DefaultRetries,
		backoff:   DefaultBackoff,
		pageLimit: DefaultPageLimit,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Result is the outcome of a crawl.
type Result struct {
	// Entries in discovery order
	Entries []model.Entry
	// Nodes that could not be fetched; their subtrees are missing from Entries
	Failures []model.NodeFailure
}

// nodeState tracks a directory node through the crawl
type nodeState uint8

const (
	stateQueued nodeState = iota
	stateFetching
	stateParsed
	stateLeaf
	stateFailed
)

func (s nodeState) String() string {
	switch s {
	case stateQueued:
		return "queued"
	case stateFetching:
		return "fetching"
	case stateParsed:
		return "parsed"
	case stateLeaf:
		return "leaf"
	case stateFailed:
		return "failed"
	}
	return "unknown"
}

type node struct {
	url   *url.URL
	depth int
	kind  model.Kind
	state nodeState
}

type fetchResult struct {
	node     *node
	links    []link
	attempts int
	err      error
}

// Crawl walks the listing at rootURL and returns every entry discovered.
//
// Failing nodes below the root are recorded in Result.Failures and skipped.
// If the root itself cannot be fetched the error wraps model.ErrUnreachable.
// When ctx is cancelled no new fetches are started, in-flight fetches are
// drained and the partial result is returned along with the context error.
func (c *Crawler) Crawl(ctx context.Context, rootURL string) (*Result, error) {
	root, err := parseRoot(rootURL)
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Str("root", root.String()).
		Int("maxDepth", c.maxDepth).
		Int("workers", c.workers).
		Msg("Starting crawl")

	rootNode := &node{url: root, kind: model.KindDirectory, state: stateQueued}
	visited := map[string]struct{}{urlKey(root): {}}
	frontier := []*node{rootNode}
	result := &Result{}

	jobs := make(chan *node)
	results := make(chan fetchResult)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			for n := range jobs {
				results <- c.fetch(gctx, n)
			}
			return nil
		})
	}

	var (
		inflight  int
		cancelled bool
		rootErr   error
		done      = ctx.Done()
	)
	for len(frontier) > 0 || inflight > 0 {
		// a nil channel disables the send case
		var dispatch chan<- *node
		var next *node
		if len(frontier) > 0 && !cancelled && ctx.Err() == nil {
			dispatch = jobs
			next = frontier[0]
		}

		select {
		case dispatch <- next:
			next.state = stateFetching
			frontier[0] = nil
			frontier = frontier[1:]
			inflight++

		case res := <-results:
			inflight--
			if res.node == rootNode && res.err != nil {
				res.node.state = stateFailed
				rootErr = res.err
				continue
			}
			children := c.expand(res, root, visited, result)
			if !cancelled {
				frontier = append(frontier, children...)
			}

		case <-done:
			c.logger.Warn().
				Int("inflight", inflight).
				Int("queued", len(frontier)).
				Msg("Crawl cancelled, draining in-flight fetches")
			cancelled = true
			done = nil
			frontier = nil
		}
	}

	close(jobs)
	_ = g.Wait()

	if rootErr != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("crawl of %s interrupted: %w", root, ctx.Err())
		}
		return nil, fmt.Errorf("%w: failed to fetch crawl root %s: %v", model.ErrUnreachable, root, rootErr)
	}

	if cancelled || ctx.Err() != nil {
		return result, fmt.Errorf("crawl of %s interrupted: %w", root, ctx.Err())
	}

	c.logger.Debug().
		Int("entries", len(result.Entries)).
		Int("failures", len(result.Failures)).
		Msg("Crawl finished")

	return result, nil
}

// expand records the children of a fetched directory and returns the
// subdirectories that still need fetching. Only the coordinator calls it.
func (c *Crawler) expand(res fetchResult, root *url.URL, visited map[string]struct{}, result *Result) []*node {
	n := res.node
	if res.err != nil {
		n.state = stateFailed
		result.Failures = append(result.Failures, model.NodeFailure{
			URL:      n.url.String(),
			Depth:    n.depth,
			Attempts: res.attempts,
			Err:      res.err.Error(),
		})
		c.logger.Warn().
			Err(res.err).
			Str("url", n.url.String()).
			Int("depth", n.depth).
			Int("attempts", res.attempts).
			Stringer("state", n.state).
			Msg("Skipping directory that could not be fetched")
		return nil
	}
	n.state = stateParsed

	var queued []*node
	for _, l := range res.links {
		ref, err := url.Parse(l.href)
		if err != nil {
			c.logger.Debug().Err(err).Str("href", l.href).Str("name", l.name).Msg("Ignoring unparsable link")
			continue
		}
		target := n.url.ResolveReference(ref)
		target.RawQuery = ""
		target.Fragment = ""

		if !within(root, target) {
			c.logger.Debug().Str("url", target.String()).Str("name", l.name).Msg("Ignoring link outside crawl root")
			continue
		}

		key := urlKey(target)
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		child := &node{url: target, depth: n.depth + 1, kind: model.KindFile, state: stateLeaf}
		if strings.HasSuffix(target.Path, "/") {
			child.kind = model.KindDirectory
		}

		result.Entries = append(result.Entries, model.Entry{
			Kind:  child.kind,
			Path:  strings.TrimPrefix(target.Path, root.Path),
			URL:   target.String(),
			Depth: child.depth,
		})

		if child.kind == model.KindDirectory && child.depth < c.maxDepth {
			child.state = stateQueued
			queued = append(queued, child)
		}
	}

	c.logger.Debug().
		Str("url", n.url.String()).
		Int("depth", n.depth).
		Int("links", len(res.links)).
		Int("queued", len(queued)).
		Stringer("state", n.state).
		Msg("Expanded directory")

	return queued
}

// parseRoot validates the crawl root and makes sure it names a directory.
func parseRoot(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid crawl root %q: %v", model.ErrInvalidInput, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: crawl root must be an http(s) URL: %q", model.ErrInvalidInput, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: crawl root has no host: %q", model.ErrInvalidInput, raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
		u.RawPath = ""
	}
	return u, nil
}

// within reports whether target lies below root on the same server.
func within(root, target *url.URL) bool {
	if !strings.EqualFold(root.Scheme, target.Scheme) || !strings.EqualFold(root.Host, target.Host) {
		return false
	}
	return strings.HasPrefix(target.Path, root.Path) && target.Path != root.Path
}

// urlKey is the visited-set key: scheme and host are case insensitive,
// query and fragment never select a different listing entry.
func urlKey(u *url.URL) string {
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + u.EscapedPath()
}
