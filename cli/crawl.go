package cli

// This file contains the crawl command which lists a remote logs directory.

import (
	"context"
	"fmt"
	"time"

	"github.com/rptriage/rptriage/crawler"
	"github.com/rptriage/rptriage/model"
	"github.com/urfave/cli/v2"
)

const defaultCrawlDeadline = 10 * time.Minute

func crawlFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:    "depth",
			Aliases: []string{"d"},
			Usage:   fmt.Sprintf("Maximum directory depth to descend (default %d)", crawler.DefaultMaxDepth),
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   fmt.Sprintf("Number of concurrent fetches (default %d)", crawler.DefaultWorkers),
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Abort the crawl after this long and print what was found (0 = no limit)",
			Value: defaultCrawlDeadline,
		},
		&cli.BoolFlag{
			Name:  "relative",
			Usage: "Print paths relative to the root instead of absolute URLs",
		},
		&cli.BoolFlag{
			Name:  "sort",
			Usage: "Sort entries by path instead of discovery order",
		},
	}
}

func (a *App) crawl(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}

	result, err := a.runCrawl(ctx, ctx.Args().First())
	if result == nil {
		return err
	}

	// an interrupted crawl still prints the partial manifest
	if werr := crawler.WriteManifest(a.stdout, a.manifestEntries(ctx, result), crawler.ManifestOptions{
		Relative: ctx.Bool("relative"),
	}); werr != nil {
		return werr
	}
	return err
}

// runCrawl crawls root with the configured limits, overridden by the command flags.
func (a *App) runCrawl(ctx *cli.Context, root string) (*crawler.Result, error) {
	depth := a.cfg.Crawl.Depth
	if ctx.IsSet("depth") {
		depth = ctx.Int("depth")
	}
	if depth < 1 {
		return nil, fmt.Errorf("%w: depth must be at least 1, got %d", model.ErrInvalidInput, depth)
	}

	workers := a.cfg.Crawl.Workers
	if ctx.IsSet("workers") {
		workers = ctx.Int("workers")
	}
	if workers < 1 {
		return nil, fmt.Errorf("%w: workers must be at least 1, got %d", model.ErrInvalidInput, workers)
	}

	c := crawler.New(
		crawler.WithLogger(a.logger),
		crawler.WithHTTPClient(a.httpClient(a.cfg.CrawlTimeout())),
		crawler.WithMaxDepth(depth),
		crawler.WithWorkers(workers),
		crawler.WithRetries(a.cfg.Crawl.Retries),
	)

	crawlCtx := ctx.Context
	if timeout := ctx.Duration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		crawlCtx, cancel = context.WithTimeout(crawlCtx, timeout)
		defer cancel()
	}

	a.logger.Info().
		Str("root", root).
		Int("depth", depth).
		Int("workers", workers).
		Msg("Crawling logs directory")

	start := time.Now()
	result, err := c.Crawl(crawlCtx, root)
	if result == nil {
		return nil, err
	}

	for _, f := range result.Failures {
		a.logger.Warn().
			Str("url", f.URL).
			Int("depth", f.Depth).
			Int("attempts", f.Attempts).
			Str("error", f.Err).
			Msg("Skipped unreadable directory")
	}

	a.logger.Info().
		Int("entries", len(result.Entries)).
		Int("failures", len(result.Failures)).
		Dur("duration", time.Since(start).Round(time.Millisecond)).
		Msg("Crawl finished")

	return result, err
}

func (a *App) manifestEntries(ctx *cli.Context, result *crawler.Result) []model.Entry {
	entries := result.Entries
	if ctx.Bool("sort") {
		entries = append([]model.Entry(nil), entries...)
		crawler.SortEntries(entries)
	}
	return entries
}
