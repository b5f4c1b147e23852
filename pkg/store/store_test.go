package store_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	fake "k8s.io/utils/clock/testing"

	"github.com/warren2314/OSS-Checker/pkg/dbtest"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
	"github.com/warren2314/OSS-Checker/pkg/ossindex"
	"github.com/warren2314/OSS-Checker/pkg/report"
	"github.com/warren2314/OSS-Checker/pkg/store"
)

func ptr[T any](v T) *T { return &v }

var (
	createdAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	model = report.Model{Sections: []report.Section{
		{
			Ecosystem: ecosystem.PyPI,
			Components: []report.Component{
				{
					Coordinates: "pkg:pypi/requests@2.31.0",
					Reference:   "https://ossindex.sonatype.org/component/pkg:pypi/requests@2.31.0",
					Vulnerabilities: []ossindex.Vulnerability{{
						ID:        "CVE-2023-32681",
						CVE:       ptr("CVE-2023-32681"),
						Title:     ptr("[CVE-2023-32681] Exposure of Sensitive Information"),
						CVSSScore: ptr(6.1),
					}},
				},
				{Coordinates: "pkg:pypi/flask@3.0.0", Vulnerabilities: []ossindex.Vulnerability{}},
			},
			Failures: []report.Failure{{Coordinates: []string{"pkg:pypi/numpy@1.26.0"}, Reason: "429 Too Many Requests"}},
		},
		{
			Ecosystem:  ecosystem.RPM,
			Components: []report.Component{},
		},
	}}
)

func open(t *testing.T, path string) *store.Store {
	t.Helper()
	s, err := store.Open(path, store.WithClock(fake.NewFakeClock(createdAt)))
	require.NoError(t, err)
	return s
}

func TestStore_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "report.db")

	s := open(t, path)
	require.NoError(t, s.Save(model))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, model, got)

	meta, err := s.Metadata()
	require.NoError(t, err)
	assert.Equal(t, store.SchemaVersion, meta.Version)
	assert.True(t, createdAt.Equal(meta.CreatedAt))
	assert.Equal(t, []ecosystem.Type{ecosystem.PyPI, ecosystem.RPM}, meta.Ecosystems)
	assert.Equal(t, 2, meta.Components)
	assert.Equal(t, 1, meta.Vulnerabilities)
	assert.Equal(t, 1, meta.Failed)
	require.NoError(t, s.Close())

	dbtest.JSONEq(t, path, []string{"reports", "pypi", "000002"}, model.Sections[0].Components[1])
	dbtest.JSONEq(t, path, []string{"failures", "pypi", "000001"}, model.Sections[0].Failures[0])
	dbtest.Keys(t, path, []string{"reports", "pypi"}, []string{"000001", "000002"})
	dbtest.NoBucket(t, path, []string{"reports", "rpm"})
}

func TestStore_SaveReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.db")

	s := open(t, path)
	require.NoError(t, s.Save(model))

	small := report.Model{Sections: []report.Section{{
		Ecosystem:  ecosystem.Maven,
		Components: []report.Component{{Coordinates: "pkg:maven/commons-io@2.4", Vulnerabilities: []ossindex.Vulnerability{}}},
	}}}
	require.NoError(t, s.Save(small))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, small, got)
	require.NoError(t, s.Close())

	dbtest.NoBucket(t, path, []string{"reports", "pypi"})
	dbtest.NoBucket(t, path, []string{"failures"})
}

func TestStore_Empty(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "report.db"))
	defer s.Close()

	_, err := s.Load()
	assert.ErrorIs(t, err, store.ErrNoReport)
	_, err = s.Metadata()
	assert.ErrorIs(t, err, store.ErrNoReport)
}

func TestStore_EmptyModel(t *testing.T) {
	s := open(t, filepath.Join(t.TempDir(), "report.db"))
	defer s.Close()

	require.NoError(t, s.Save(report.Model{Sections: []report.Section{}}))
	got, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, got.Sections)
}
