package cli

// This file contains the decide command which records a triage verdict in
// Report Portal.

import (
	"fmt"
	"strings"

	"github.com/rptriage/rptriage/cli/rp"
	"github.com/rptriage/rptriage/model"
	"github.com/urfave/cli/v2"
)

func (a *App) decide(ctx *cli.Context) error {
	if err := requireArgs(ctx, 2); err != nil {
		return err
	}

	loc, err := rp.ParseLocator(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	label, err := model.ParseLabel(ctx.Args().Get(1))
	if err != nil {
		return err
	}

	client, err := a.rpClient(loc)
	if err != nil {
		return err
	}

	resp, err := client.UpdateDefect(ctx.Context, loc.ItemID, rp.Defect{
		Label:    label,
		Comment:  strings.TrimSpace(ctx.String("comment")),
		LinkURL:  strings.TrimSpace(ctx.String("link-url")),
		TicketID: strings.TrimSpace(ctx.String("link-id")),
	})
	if err != nil {
		return fmt.Errorf("failed to update test item %s: %w", loc.ItemID, err)
	}

	a.logger.Info().
		Str("item", loc.ItemID).
		Str("classification", string(label)).
		Str("issueType", label.IssueType()).
		Msg("Test item updated")

	return a.writeJSON(resp)
}
