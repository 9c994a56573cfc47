package cli

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rptriage/rptriage/cli/rp"
	"github.com/rptriage/rptriage/config"
	"github.com/rptriage/rptriage/history"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const AppName = "rptriage"

type App struct {
	logger zerolog.Logger
	cli    *cli.App
	cfg    *config.Config

	stdin  io.Reader
	stdout io.Writer
}

func New() *App {

	// Set default log level to info
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger :=
		log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339Nano,
		})

	return newApp(logger, os.Stdin, os.Stdout)
}

func newApp(logger zerolog.Logger, stdin io.Reader, stdout io.Writer) *App {
	app := &App{
		logger: logger,
		stdin:  stdin,
		stdout: stdout,
	}
	app.cli = &cli.App{
		Name:      AppName,
		Usage:     "Triage failed Report Portal test runs",
		Writer:    stdout,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose (debug) logging",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Path to the YAML config file",
				Value: config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:  "token-file",
				Usage: "File containing the Report Portal API token (env " + config.EnvTokenFile + ")",
			},
			&cli.StringFlag{
				Name:  "project",
				Usage: "Report Portal project (env " + config.EnvProject + ")",
			},
			&cli.StringFlag{
				Name:  "cache-file",
				Usage: "Dedup cache file in JSON Lines format (env " + config.EnvCacheFile + ")",
			},
			&cli.BoolFlag{
				Name:  "insecure",
				Usage: "Skip TLS certificate verification (env " + config.EnvInsecure + ")",
			},
		},
		Before: app.before,
	}

	app.cli.Commands = append(app.cli.Commands,
		&cli.Command{
			Name:      "query",
			Usage:     "Fetch the metadata of a test run as JSON",
			ArgsUsage: "<report portal test url>",
			Action:    app.query,
		},
		&cli.Command{
			Name:      "crawl",
			Usage:     "List every file and directory below a logs URL",
			ArgsUsage: "<logs url>",
			Action:    app.crawl,
			Flags:     crawlFlags(),
		},
		&cli.Command{
			Name:   "hash",
			Usage:  "Print the fingerprint of a traceback read from stdin",
			Action: app.hash,
		},
		&cli.Command{
			Name:  "cache",
			Usage: "Inspect and extend the dedup cache",
			Subcommands: []*cli.Command{
				{
					Name:      "lookup",
					Usage:     "Print the classification recorded for a fingerprint or list index",
					ArgsUsage: "<fingerprint|index>",
					Action:    app.cacheLookup,
				},
				{
					Name:   "add",
					Usage:  "Append a classification",
					Action: app.cacheAdd,
					Flags: []cli.Flag{
						&cli.StringFlag{
							Name:     "fingerprint",
							Usage:    "Fingerprint as printed by the hash command",
							Required: true,
						},
						&cli.StringFlag{
							Name:     "classification",
							Usage:    "One of: product_bug, automation_bug, system_issue, no_defect, to_investigate",
							Required: true,
						},
						&cli.StringFlag{
							Name:     "summary",
							Usage:    "Short description of the failure",
							Required: true,
						},
						&cli.StringFlag{
							Name:  "source",
							Usage: "Report Portal URL the classification was made for",
						},
					},
				},
				{
					Name:   "list",
					Usage:  "Print cached classifications as JSON Lines, newest first",
					Action: app.cacheList,
					Flags: []cli.Flag{
						&cli.IntFlag{
							Name:  "limit",
							Usage: "Maximum number of records to show (0 = all)",
						},
						&cli.StringFlag{
							Name:  "classification",
							Usage: "Only show records with this classification",
						},
					},
				},
			},
		},
		&cli.Command{
			Name:      "decide",
			Usage:     "Set the defect type of a test item in Report Portal",
			ArgsUsage: "<report portal test url> <classification>",
			Action:    app.decide,
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:  "comment",
					Usage: "Comment stored with the defect",
				},
				&cli.StringFlag{
					Name:  "link-url",
					Usage: "URL of a tracking ticket to link",
				},
				&cli.StringFlag{
					Name:  "link-id",
					Usage: "Ticket ID shown for the link (defaults to the URL)",
				},
			},
		},
		&cli.Command{
			Name:      "analyze",
			Usage:     "Fetch a test run, check the dedup cache and crawl its logs on a miss",
			ArgsUsage: "<report portal test url>",
			Action:    app.analyze,
			Flags:     crawlFlags(),
		},
	)
	return app
}

func (a *App) Run(args []string) error {
	return a.cli.Run(args)
}

// SetVersion sets the version information for the CLI application
func (a *App) SetVersion(version, commit, date string) {
	a.cli.Version = version
	if commit != "none" && len(commit) >= 8 {
		a.cli.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit[:8], date)
	}
}

// before loads the config file and applies global flags on top of it.
func (a *App) before(ctx *cli.Context) error {
	if ctx.Bool("verbose") {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.Load(ctx.String("config"))
	if err != nil {
		return err
	}

	// flags win over environment and config file
	if path := ctx.String("token-file"); path != "" {
		cfg.TokenFile = path
	}
	if project := ctx.String("project"); project != "" {
		cfg.Project = project
	}
	if path := ctx.String("cache-file"); path != "" {
		cfg.CacheFile = path
	}
	if ctx.IsSet("insecure") {
		cfg.Insecure = ctx.Bool("insecure")
	}
	a.cfg = cfg

	a.logger.Debug().
		Str("project", cfg.Project).
		Str("tokenFile", cfg.TokenFile).
		Str("cacheFile", cfg.CacheFile).
		Bool("insecure", cfg.Insecure).
		Msg("Loaded configuration")

	return nil
}

// httpClient returns a client honouring the insecure setting.
func (a *App) httpClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if a.cfg.Insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} // #nosec G402
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}

// rpClient creates a Report Portal client for the instance a locator points at.
func (a *App) rpClient(loc rp.Locator) (*rp.Client, error) {
	token, err := rp.ReadToken(a.logger, config.ExpandHome(a.cfg.TokenFile))
	if err != nil {
		return nil, err
	}

	return rp.New(loc.BaseURL, token,
		rp.WithProject(a.cfg.Project),
		rp.WithRunIDAttribute(a.cfg.RunIDAttribute),
		rp.WithHTTPClient(a.httpClient(60*time.Second)),
		rp.WithLogger(a.logger),
	), nil
}

func (a *App) cache() *history.Cache {
	return history.New(a.logger, config.ExpandHome(a.cfg.CacheFile))
}

func (a *App) writeJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write JSON: %w", err)
	}
	return nil
}

// requireArgs checks the number of positional arguments.
func requireArgs(ctx *cli.Context, n int) error {
	if ctx.NArg() != n {
		return fmt.Errorf("expected %d argument(s), got %d: usage: %s %s %s", n, ctx.NArg(), AppName, ctx.Command.FullName(), ctx.Command.ArgsUsage)
	}
	return nil
}
