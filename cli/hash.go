package cli

import (
	"fmt"
	"io"

	"github.com/rptriage/rptriage/fingerprint"
	"github.com/urfave/cli/v2"
)

func (a *App) hash(ctx *cli.Context) error {
	data, err := io.ReadAll(a.stdin)
	if err != nil {
		return fmt.Errorf("failed to read traceback from stdin: %w", err)
	}

	_, err = fmt.Fprintln(a.stdout, fingerprint.Compute(string(data)))
	return err
}
