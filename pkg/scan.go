package pkg

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/samber/oops"
	"github.com/urfave/cli"
	"golang.org/x/xerrors"

	"github.com/warren2314/OSS-Checker/pkg/config"
	"github.com/warren2314/OSS-Checker/pkg/coordinate"
	"github.com/warren2314/OSS-Checker/pkg/log"
	"github.com/warren2314/OSS-Checker/pkg/metrics"
	"github.com/warren2314/OSS-Checker/pkg/ossindex"
	"github.com/warren2314/OSS-Checker/pkg/parser"
	"github.com/warren2314/OSS-Checker/pkg/pipeline"
	"github.com/warren2314/OSS-Checker/pkg/ratelimit"
	"github.com/warren2314/OSS-Checker/pkg/report"
	"github.com/warren2314/OSS-Checker/pkg/scanner"
	"github.com/warren2314/OSS-Checker/pkg/store"
)

// loadConfig builds the run configuration: defaults, then the config file,
// then the flags that were set explicitly.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}

	targets := c.StringSlice("target")
	if len(targets) > 0 {
		cfg.Targets = nil
	}
	for _, s := range targets {
		t, err := config.ParseTarget(s)
		if err != nil {
			return config.Config{}, err
		}
		cfg.Targets = append(cfg.Targets, t)
	}

	if c.IsSet("chunk-size") {
		cfg.ChunkSize = c.Int("chunk-size")
	}
	if c.IsSet("calls-per-minute") {
		cfg.CallsPerMinute = c.Int("calls-per-minute")
	}
	if c.IsSet("mode") {
		cfg.RequestMode = ossindex.Mode(c.String("mode"))
	}
	if c.IsSet("include-clean") {
		cfg.IncludeClean = c.Bool("include-clean")
	}
	if c.IsSet("endpoint") {
		cfg.Endpoint = c.String("endpoint")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("pypi-any-extension") {
		cfg.PyPIAnyExtension = c.Bool("pypi-any-extension")
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if len(cfg.Targets) == 0 {
		return config.Config{}, xerrors.Errorf("at least one --target is required: %w", config.ErrInvalid)
	}
	return cfg, nil
}

func newScanner(cfg config.Config) *scanner.Scanner {
	return scanner.New(scanner.WithParserOptions(parser.Options{PyPIAnyExtension: cfg.PyPIAnyExtension}))
}

func (ac AppConfig) scan(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	format, err := report.ParseFormat(c.String("format"))
	if err != nil {
		return err
	}
	if err = loadDotenv(c.String("dotenv")); err != nil {
		return err
	}
	creds := credentials(c.String("credentials"), c.String("username"), c.String("token"))
	if creds == "" {
		log.Warn("No OSS Index credentials, sending anonymous requests")
	}

	rec := metrics.New()
	client := ossindex.NewClient(creds,
		ossindex.WithURL(cfg.Endpoint),
		ossindex.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		ossindex.WithMode(cfg.RequestMode),
		ossindex.WithLimiter(ratelimit.New(cfg.CallsPerMinute, ratelimit.WithClock(ac.clock()))),
		ossindex.WithMetrics(rec),
	)

	opts := []pipeline.Option{
		pipeline.WithChunkSize(cfg.ChunkSize),
		pipeline.WithScanner(newScanner(cfg)),
		pipeline.WithMetrics(rec),
	}
	var progress *terminalProgress
	if !c.Bool("no-progress") {
		progress = newTerminalProgress(ac.stderr())
		opts = append(opts, pipeline.WithProgress(progress))
	}

	result, runErr := pipeline.New(client, opts...).Run(ac.context(), cfg.Targets)
	if progress != nil {
		progress.Finish()
	}

	// the model gathered so far is written even when the run was cut short
	if path := c.String("db"); path != "" {
		if err = ac.archive(path, result.Model); err != nil {
			return err
		}
	}
	if path := c.String("metrics-file"); path != "" {
		if err = rec.WriteFile(path); err != nil {
			return err
		}
	}
	if err = ac.render(c.String("output"), format, result.Model.Filter(cfg.IncludeClean)); err != nil {
		return err
	}

	components, vulns, failed := result.Model.Counts()
	log.Info("Scan finished", log.Int("components", components), log.Int("vulnerabilities", vulns),
		log.Int("unchecked", failed))

	if runErr != nil {
		return xerrors.Errorf("scan interrupted: %w", runErr)
	}
	if len(result.ScanErrors) > 0 {
		return xerrors.Errorf("%d of %d targets could not be scanned: %w", len(result.ScanErrors),
			len(cfg.Targets), errors.Join(result.ScanErrors...))
	}
	return nil
}

func (ac AppConfig) archive(path string, m report.Model) error {
	s, err := store.Open(path, store.WithClock(ac.clock()))
	if err != nil {
		return err
	}
	defer s.Close()

	if err = s.Save(m); err != nil {
		return err
	}
	log.Info("Report archived", log.FilePath(path))
	return nil
}

func (ac AppConfig) render(output string, format report.Format, m report.Model) error {
	var w io.Writer = ac.stdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return oops.With("file_path", output).Wrapf(err, "file create error")
		}
		defer f.Close()
		w = f
	}

	writer, err := report.NewWriter(format, w)
	if err != nil {
		return err
	}
	return writer.Write(m)
}

// coordinates prints the wire coordinates of every target, one per line,
// without contacting the service.
func (ac AppConfig) coordinates(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	s := newScanner(cfg)
	var scanErrs []error
	for _, t := range cfg.Targets {
		res, err := s.Scan(ac.context(), t.Dir, t.Ecosystem)
		if err != nil {
			log.Error("Scan failed", log.Ecosystem(t.Ecosystem.String()), log.DirPath(t.Dir), log.Err(err))
			scanErrs = append(scanErrs, err)
			continue
		}
		for _, wire := range coordinate.Wires(res.Coordinates) {
			fmt.Fprintln(ac.stdout(), wire)
		}
	}
	if len(scanErrs) > 0 {
		return xerrors.Errorf("%d of %d targets could not be scanned: %w", len(scanErrs), len(cfg.Targets),
			errors.Join(scanErrs...))
	}
	return nil
}
