package cli

// This file contains the query command which prints the metadata of a
// single Report Portal test item.

import (
	"context"
	"fmt"

	"github.com/rptriage/rptriage/cli/rp"
	"github.com/rptriage/rptriage/model"
	"github.com/rptriage/rptriage/validate"
	"github.com/urfave/cli/v2"
)

type queryOutput struct {
	*model.RunRecord
	// Ready to run command listing the logs of this run
	CrawlCommand string `json:"crawl_command,omitempty"`
}

func (a *App) query(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}

	record, err := a.fetchRun(ctx.Context, ctx.Args().First())
	if err != nil {
		return err
	}

	crawlCommand, err := a.crawlCommand(record)
	if err != nil {
		return err
	}

	return a.writeJSON(queryOutput{
		RunRecord:    record,
		CrawlCommand: crawlCommand,
	})
}

// fetchRun parses the locator before reading the token or touching the network.
func (a *App) fetchRun(ctx context.Context, raw string) (*model.RunRecord, error) {
	loc, err := rp.ParseLocator(raw)
	if err != nil {
		return nil, err
	}

	client, err := a.rpClient(loc)
	if err != nil {
		return nil, err
	}

	record, err := client.FetchRun(ctx, loc)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch test item %s: %w", loc.ItemID, err)
	}

	if !record.Failed() {
		a.logger.Info().
			Str("test", record.TestName).
			Str("status", string(record.Status)).
			Msg("Test item did not fail")
	}
	return record, nil
}

func (a *App) crawlCommand(record *model.RunRecord) (string, error) {
	if record.LogsURLRoot == "" {
		return "", nil
	}
	logsURL, err := validate.ShellArg("logs URL", record.LogsURLRoot)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s crawl -d %d %s", AppName, a.cfg.Crawl.Depth, logsURL), nil
}
