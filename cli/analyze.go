package cli

// This file contains the analyze command which chains the other commands:
// fetch the run, fingerprint its traceback, consult the dedup cache and only
// crawl the logs when the failure has not been seen before.

import (
	"github.com/rptriage/rptriage/crawler"
	"github.com/rptriage/rptriage/fingerprint"
	"github.com/rptriage/rptriage/model"
	"github.com/urfave/cli/v2"
)

type analysis struct {
	Run         *model.RunRecord `json:"run"`
	Fingerprint string           `json:"fingerprint"`
	// Earlier classification of the same fingerprint, if any
	Cached *model.Classification `json:"cached,omitempty"`
	// Logs manifest, only crawled on a cache miss
	Manifest      []string            `json:"manifest,omitempty"`
	CrawlFailures []model.NodeFailure `json:"crawl_failures,omitempty"`
	// Set when the crawl stopped early and Manifest is incomplete
	Incomplete bool `json:"incomplete,omitempty"`
}

func (a *App) analyze(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}

	record, err := a.fetchRun(ctx.Context, ctx.Args().First())
	if err != nil {
		return err
	}

	out := analysis{
		Run:         record,
		Fingerprint: fingerprint.Compute(record.Traceback),
	}

	cache := a.cache()
	cached, found, err := cache.Lookup(out.Fingerprint)
	if err != nil {
		return err
	}
	if found {
		a.logger.Info().
			Str("fingerprint", out.Fingerprint).
			Str("classification", string(cached.Classification)).
			Str("date", cached.Date).
			Msg("Failure seen before, skipping crawl")
		out.Cached = &cached
		return a.writeJSON(out)
	}

	if record.LogsURLRoot == "" {
		a.logger.Warn().Str("launch", record.LaunchID).Msg("Launch has no logs URL, nothing to crawl")
		return a.writeJSON(out)
	}

	result, crawlErr := a.runCrawl(ctx, record.LogsURLRoot)
	if result == nil {
		return crawlErr
	}

	opts := crawler.ManifestOptions{Relative: ctx.Bool("relative")}
	for _, e := range a.manifestEntries(ctx, result) {
		out.Manifest = append(out.Manifest, opts.Line(e))
	}
	out.CrawlFailures = result.Failures
	out.Incomplete = crawlErr != nil

	if err := a.writeJSON(out); err != nil {
		return err
	}
	return crawlErr
}
