// Package pipeline runs scan, batch, query and aggregate for a list of
// targets, one chunk at a time.
package pipeline

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"github.com/warren2314/OSS-Checker/pkg/batch"
	"github.com/warren2314/OSS-Checker/pkg/config"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
	"github.com/warren2314/OSS-Checker/pkg/log"
	"github.com/warren2314/OSS-Checker/pkg/metrics"
	"github.com/warren2314/OSS-Checker/pkg/ossindex"
	"github.com/warren2314/OSS-Checker/pkg/report"
	"github.com/warren2314/OSS-Checker/pkg/scanner"
)

// Querier answers one chunk. Request failures are reported as failed
// outcomes.
type Querier interface {
	Query(ctx context.Context, chunk batch.Chunk) []ossindex.Outcome
}

// Progress is notified when a target scan begins and as its chunks
// complete.
type Progress interface {
	Scanning(eco ecosystem.Type, dir string)
	Start(eco ecosystem.Type, chunks int)
	Increment()
	Finish()
}

type nopProgress struct{}

func (nopProgress) Scanning(ecosystem.Type, string) {}
func (nopProgress) Start(ecosystem.Type, int)       {}
func (nopProgress) Increment()                      {}
func (nopProgress) Finish()                         {}

type Result struct {
	Model report.Model
	Scans []scanner.Result
	// ScanErrors holds the targets that could not be scanned. The other
	// targets were still queried.
	ScanErrors []error
}

type Runner struct {
	client    Querier
	scanner   *scanner.Scanner
	chunkSize int
	metrics   *metrics.Recorder
	progress  Progress
	logger    *log.Logger
}

type Option func(*Runner)

func WithChunkSize(size int) Option {
	return func(r *Runner) {
		r.chunkSize = size
	}
}

func WithScanner(s *scanner.Scanner) Option {
	return func(r *Runner) {
		r.scanner = s
	}
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithProgress(p Progress) Option {
	return func(r *Runner) {
		r.progress = p
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Runner) {
		r.logger = l
	}
}

func New(client Querier, opts ...Option) *Runner {
	r := &Runner{
		client:    client,
		scanner:   scanner.New(),
		chunkSize: batch.DefaultSize,
		progress:  nopProgress{},
		logger:    log.WithPrefix("pipeline"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes the targets in order. Cancellation is honoured between
// chunks; the model aggregated so far is returned with the context error.
func (r *Runner) Run(ctx context.Context, targets []config.Target) (Result, error) {
	var result Result
	agg := report.NewAggregator()
	done := func(err error) (Result, error) {
		result.Model = agg.Model()
		return result, err
	}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return done(err)
		}

		r.progress.Scanning(target.Ecosystem, target.Dir)
		scan, err := r.scanner.Scan(ctx, target.Dir, target.Ecosystem)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return done(err)
			}
			r.logger.Error("Scan failed", log.Ecosystem(target.Ecosystem.String()), log.DirPath(target.Dir), log.Err(err))
			result.ScanErrors = append(result.ScanErrors,
				oops.With("ecosystem", target.Ecosystem, "dir_path", target.Dir).Wrapf(err, "scan error"))
			continue
		}
		result.Scans = append(result.Scans, scan)
		r.metrics.Scanned(scan.Ecosystem.String(), len(scan.Coordinates), scan.Skipped)
		r.logger.Info("Scanned", log.Ecosystem(scan.Ecosystem.String()), log.DirPath(scan.Root),
			log.Int("coordinates", len(scan.Coordinates)), log.Int("skipped", scan.Skipped))

		if err = r.query(ctx, agg, scan); err != nil {
			return done(err)
		}
	}
	return done(nil)
}

func (r *Runner) query(ctx context.Context, agg *report.Aggregator, scan scanner.Result) error {
	eco := scan.Ecosystem
	agg.Touch(eco)

	r.progress.Start(eco, batch.Count(len(scan.Coordinates), r.chunkSize))
	defer r.progress.Finish()

	for chunk := range batch.Batch(scan.Coordinates, r.chunkSize) {
		if err := ctx.Err(); err != nil {
			r.logger.Warn("Canceled", log.Ecosystem(eco.String()), log.Int("chunk", chunk.Index))
			return err
		}
		outcomes := r.client.Query(ctx, chunk)
		for _, o := range outcomes {
			if o.Failed() {
				r.metrics.Failed(eco.String(), len(o.Coordinates))
			} else {
				r.metrics.Report(eco.String(), len(o.Report.Vulnerabilities))
			}
		}
		agg.Add(eco, outcomes)
		r.progress.Increment()
	}
	return nil
}
