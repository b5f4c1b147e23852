package pkg

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli"
	"k8s.io/utils/clock"

	"github.com/warren2314/OSS-Checker/pkg/batch"
	"github.com/warren2314/OSS-Checker/pkg/log"
	"github.com/warren2314/OSS-Checker/pkg/ossindex"
	"github.com/warren2314/OSS-Checker/pkg/ratelimit"
	"github.com/warren2314/OSS-Checker/pkg/report"
)

// AppConfig carries the process level collaborators of the commands.
// Zero fields fall back to the process defaults.
type AppConfig struct {
	Context context.Context
	Stdout  io.Writer
	Stderr  io.Writer
	Clock   clock.Clock
}

func (ac AppConfig) context() context.Context {
	if ac.Context == nil {
		return context.Background()
	}
	return ac.Context
}

func (ac AppConfig) stdout() io.Writer {
	if ac.Stdout == nil {
		return os.Stdout
	}
	return ac.Stdout
}

func (ac AppConfig) stderr() io.Writer {
	if ac.Stderr == nil {
		return os.Stderr
	}
	return ac.Stderr
}

func (ac AppConfig) clock() clock.Clock {
	if ac.Clock == nil {
		return clock.RealClock{}
	}
	return ac.Clock
}

var targetFlag = cli.StringSliceFlag{
	Name:  "target, t",
	Usage: "ecosystem and directory to scan as <ecosystem>=<dir>, repeatable (conda, pypi, rpm, maven, nuget)",
}

var configFlag = cli.StringFlag{
	Name:   "config, c",
	Usage:  "YAML or TOML config file",
	EnvVar: "OSS_CHECKER_CONFIG",
}

var pypiAnyExtensionFlag = cli.BoolFlag{
	Name:  "pypi-any-extension",
	Usage: "accept any pypi file matching <name>-<version>, not only wheels",
}

func (ac AppConfig) NewApp(version string) *cli.App {
	app := cli.NewApp()
	app.Name = "oss-checker"
	app.Version = version
	app.Usage = "OSS Index vulnerability checker for package mirrors"
	app.Writer = ac.stdout()
	app.ErrWriter = ac.stderr()

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug, d",
			Usage: "debug mode",
		},
	}
	app.Before = func(c *cli.Context) error {
		log.Setup(ac.stderr(), c.GlobalBool("debug"))
		return nil
	}

	app.Commands = []cli.Command{
		{
			Name:   "scan",
			Usage:  "scan package directories and query OSS Index",
			Action: ac.scan,
			Flags: []cli.Flag{
				targetFlag,
				configFlag,
				pypiAnyExtensionFlag,
				cli.IntFlag{
					Name:  "chunk-size",
					Usage: "coordinates per chunk",
					Value: batch.DefaultSize,
				},
				cli.IntFlag{
					Name:  "calls-per-minute",
					Usage: "request rate ceiling",
					Value: ratelimit.DefaultCallsPerMinute,
				},
				cli.StringFlag{
					Name:  "mode",
					Usage: "request mode (batched, per-item)",
					Value: string(ossindex.ModeBatched),
				},
				cli.BoolFlag{
					Name:  "include-clean",
					Usage: "include packages without known vulnerabilities",
				},
				cli.StringFlag{
					Name:  "format, f",
					Usage: "report format (text, json, csv)",
					Value: string(report.FormatText),
				},
				cli.StringFlag{
					Name:  "output, o",
					Usage: "write the report to this file instead of stdout",
				},
				cli.StringFlag{
					Name:  "db",
					Usage: "archive the report in this bbolt file",
				},
				cli.StringFlag{
					Name:  "metrics-file",
					Usage: "write Prometheus counters to this textfile",
				},
				cli.StringFlag{
					Name:  "endpoint",
					Usage: "component report endpoint",
					Value: ossindex.DefaultURL,
				},
				cli.DurationFlag{
					Name:  "timeout",
					Usage: "HTTP timeout per request",
					Value: ossindex.DefaultTimeout,
				},
				cli.BoolFlag{
					Name:  "no-progress",
					Usage: "suppress the progress bar",
				},
				cli.StringFlag{
					Name:  "credentials",
					Usage: "pre-encoded Basic credentials (default $" + envCredentials + ")",
				},
				cli.StringFlag{
					Name:  "username",
					Usage: "OSS Index username (default $" + envUsername + ")",
				},
				cli.StringFlag{
					Name:  "token",
					Usage: "OSS Index API token (default $" + envToken + ")",
				},
				cli.StringFlag{
					Name:  "dotenv",
					Usage: "dotenv file with credentials",
					Value: ".env",
				},
			},
		},
		{
			Name:   "coordinates",
			Usage:  "print the package coordinates found in the targets",
			Action: ac.coordinates,
			Flags: []cli.Flag{
				targetFlag,
				configFlag,
				pypiAnyExtensionFlag,
			},
		},
		{
			Name:   "show",
			Usage:  "render an archived report",
			Action: ac.show,
			Flags: []cli.Flag{
				cli.StringFlag{
					Name:  "db",
					Usage: "bbolt report archive",
				},
				cli.StringFlag{
					Name:  "format, f",
					Usage: "report format (text, json, csv)",
					Value: string(report.FormatText),
				},
				cli.BoolFlag{
					Name:  "include-clean",
					Usage: "include packages without known vulnerabilities",
				},
			},
		},
	}

	return app
}
