package pipeline_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/warren2314/OSS-Checker/pkg/batch"
	"github.com/warren2314/OSS-Checker/pkg/config"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
	"github.com/warren2314/OSS-Checker/pkg/log"
	"github.com/warren2314/OSS-Checker/pkg/metrics"
	"github.com/warren2314/OSS-Checker/pkg/ossindex"
	"github.com/warren2314/OSS-Checker/pkg/pipeline"
	"github.com/warren2314/OSS-Checker/pkg/scanner"
)

// fakeQuerier answers every coordinate with one vulnerability per entry
// in vulnerable, and fails the chunks listed in failChunks.
type fakeQuerier struct {
	chunks     []batch.Chunk
	vulnerable map[string]bool
	failChunks map[int]bool
	onQuery    func(n int)
}

func (q *fakeQuerier) Query(_ context.Context, chunk batch.Chunk) []ossindex.Outcome {
	q.chunks = append(q.chunks, chunk)
	if q.onQuery != nil {
		defer q.onQuery(len(q.chunks))
	}
	if q.failChunks[chunk.Index] {
		return []ossindex.Outcome{{Coordinates: chunk.Coordinates, Err: xerrors.New("500 Internal Server Error")}}
	}
	var outcomes []ossindex.Outcome
	for _, c := range chunk.Coordinates {
		r := &ossindex.ComponentReport{Coordinates: c.Wire(), Vulnerabilities: []ossindex.Vulnerability{}}
		if q.vulnerable[c.Wire()] {
			r.Vulnerabilities = append(r.Vulnerabilities, ossindex.Vulnerability{ID: "x"})
		}
		outcomes = append(outcomes, ossindex.Outcome{Report: r})
	}
	return outcomes
}

func touch(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}
}

func newRunner(q pipeline.Querier, opts ...pipeline.Option) *pipeline.Runner {
	opts = append([]pipeline.Option{
		pipeline.WithLogger(log.Discard()),
		pipeline.WithScanner(scanner.New(scanner.WithLogger(log.Discard()))),
	}, opts...)
	return pipeline.New(q, opts...)
}

func TestRunner_Run(t *testing.T) {
	pypiDir := t.TempDir()
	touch(t, pypiDir, "requests-2.31.0-py3-none-any.whl", "flask-3.0.0-py3-none-any.whl",
		"urllib3-2.0.0-py3-none-any.whl", "README.txt")
	mavenDir := t.TempDir()
	touch(t, mavenDir, "commons-io/2.4/commons-io-2.4.jar", "commons-io/2.4/commons-io-2.4.pom")

	q := &fakeQuerier{vulnerable: map[string]bool{
		"pkg:pypi/requests@2.31.0": true,
		"pkg:maven/commons-io@2.4": true,
	}}
	rec := metrics.New()
	progress := &recordingProgress{}
	runner := newRunner(q, pipeline.WithChunkSize(2), pipeline.WithMetrics(rec), pipeline.WithProgress(progress))

	result, err := runner.Run(context.Background(), []config.Target{
		{Ecosystem: ecosystem.PyPI, Dir: pypiDir},
		{Ecosystem: ecosystem.Maven, Dir: mavenDir},
	})
	require.NoError(t, err)
	assert.Empty(t, result.ScanErrors)

	// pypi: 3 coordinates in chunks of 2, maven: 1 deduplicated coordinate
	require.Len(t, q.chunks, 3)
	assert.Equal(t, []int{2, 1, 1}, []int{q.chunks[0].Len(), q.chunks[1].Len(), q.chunks[2].Len()})

	require.Len(t, result.Scans, 2)
	assert.Equal(t, 1, result.Scans[0].Skipped)

	m := result.Model
	require.Len(t, m.Sections, 2)
	assert.Equal(t, ecosystem.PyPI, m.Sections[0].Ecosystem)
	assert.Len(t, m.Sections[0].Components, 3)
	assert.Equal(t, ecosystem.Maven, m.Sections[1].Ecosystem)

	filtered := m.Filter(false)
	assert.Len(t, filtered.Sections[0].Components, 1)
	assert.Equal(t, "pkg:pypi/requests@2.31.0", filtered.Sections[0].Components[0].Coordinates)

	assert.Equal(t, []string{
		"scan pypi", "start pypi 2", "inc", "inc", "finish",
		"scan maven", "start maven 1", "inc", "finish",
	}, progress.events)

	n, err := testutil.GatherAndCount(rec.Registry(), "oss_checker_component_reports_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunner_Run_ChunkFailure(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a-1-py3-none-any.whl", "b-2-py3-none-any.whl", "c-3-py3-none-any.whl")

	q := &fakeQuerier{failChunks: map[int]bool{0: true}}
	result, err := newRunner(q, pipeline.WithChunkSize(2)).Run(context.Background(),
		[]config.Target{{Ecosystem: ecosystem.PyPI, Dir: dir}})
	require.NoError(t, err)

	sec := result.Model.Sections[0]
	require.Len(t, sec.Failures, 1)
	assert.Equal(t, []string{"pkg:pypi/a@1", "pkg:pypi/b@2"}, sec.Failures[0].Coordinates)
	require.Len(t, sec.Components, 1)
	assert.Equal(t, "pkg:pypi/c@3", sec.Components[0].Coordinates)
}

func TestRunner_Run_ScanError(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a-1-py3-none-any.whl")

	q := &fakeQuerier{}
	result, err := newRunner(q).Run(context.Background(), []config.Target{
		{Ecosystem: ecosystem.RPM, Dir: filepath.Join(dir, "missing")},
		{Ecosystem: ecosystem.PyPI, Dir: dir},
	})
	require.NoError(t, err)

	require.Len(t, result.ScanErrors, 1)
	assert.ErrorIs(t, result.ScanErrors[0], scanner.ErrNotFound)
	require.Len(t, result.Model.Sections, 1)
	assert.Equal(t, ecosystem.PyPI, result.Model.Sections[0].Ecosystem)
	assert.Len(t, q.chunks, 1)
}

func TestRunner_Run_EmptyTarget(t *testing.T) {
	q := &fakeQuerier{}
	result, err := newRunner(q).Run(context.Background(), []config.Target{{Ecosystem: ecosystem.Conda, Dir: t.TempDir()}})
	require.NoError(t, err)

	assert.Empty(t, q.chunks)
	require.Len(t, result.Model.Sections, 1)
	assert.Empty(t, result.Model.Sections[0].Components)
}

func TestRunner_Run_Canceled(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "a-1-py3-none-any.whl", "b-2-py3-none-any.whl", "c-3-py3-none-any.whl")
	other := t.TempDir()
	touch(t, other, "x-1-1.el9.x86_64.rpm")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	// cancel while the first chunk is in flight
	q := &fakeQuerier{onQuery: func(n int) {
		if n == 1 {
			cancel()
		}
	}}

	result, err := newRunner(q, pipeline.WithChunkSize(1)).Run(ctx, []config.Target{
		{Ecosystem: ecosystem.PyPI, Dir: dir},
		{Ecosystem: ecosystem.RPM, Dir: other},
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, q.chunks, 1)

	require.Len(t, result.Model.Sections, 1)
	require.Len(t, result.Model.Sections[0].Components, 1)
	assert.Equal(t, "pkg:pypi/a@1", result.Model.Sections[0].Components[0].Coordinates)
}

type recordingProgress struct {
	events []string
}

func (p *recordingProgress) Scanning(eco ecosystem.Type, _ string) {
	p.events = append(p.events, "scan "+eco.String())
}
func (p *recordingProgress) Start(eco ecosystem.Type, chunks int) {
	p.events = append(p.events, fmt.Sprintf("start %s %d", eco, chunks))
}
func (p *recordingProgress) Increment() { p.events = append(p.events, "inc") }
func (p *recordingProgress) Finish()    { p.events = append(p.events, "finish") }
