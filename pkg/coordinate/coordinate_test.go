package coordinate_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warren2314/OSS-Checker/pkg/coordinate"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
)

func TestNew(t *testing.T) {
	_, err := coordinate.New(ecosystem.PyPI, "", "1.0")
	assert.True(t, errors.Is(err, coordinate.ErrEmptyName))

	_, err = coordinate.New(ecosystem.Type("npm"), "left-pad", "1.0")
	assert.True(t, errors.Is(err, ecosystem.ErrUnsupported))

	c, err := coordinate.New(ecosystem.PyPI, "requests", "")
	require.NoError(t, err)
	assert.False(t, c.HasVersion())
	assert.Equal(t, "requests", c.String())
}

func TestCoordinate_Wire(t *testing.T) {
	tests := []struct {
		name  string
		coord coordinate.Coordinate
		want  string
	}{
		{
			name:  "pypi",
			coord: coordinate.MustNew(ecosystem.PyPI, "requests", "2.31.0"),
			want:  "pkg:pypi/requests@2.31.0",
		},
		{
			name:  "no version",
			coord: coordinate.MustNew(ecosystem.Maven, "commons-io", ""),
			want:  "pkg:maven/commons-io",
		},
		{
			name:  "conda org/repo",
			coord: coordinate.MustNew(ecosystem.Conda, "conda-forge/numpy", "1.26.0"),
			want:  "pkg:conda/conda-forge/numpy@1.26.0",
		},
		{
			name:  "rpm epoch",
			coord: coordinate.MustNew(ecosystem.RPM, "bash", "1:5.1.8"),
			want:  "pkg:rpm/bash@1%3A5.1.8",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.coord.Wire())
		})
	}
}

func TestFromWire_RoundTrip(t *testing.T) {
	coords := []coordinate.Coordinate{
		coordinate.MustNew(ecosystem.PyPI, "requests", "2.31.0"),
		coordinate.MustNew(ecosystem.PyPI, "urllib3", ""),
		coordinate.MustNew(ecosystem.PyPI, "PyYAML", "6.0.1"),
		coordinate.MustNew(ecosystem.PyPI, "typing_extensions", "4.8.0"),
		coordinate.MustNew(ecosystem.Maven, "Commons_IO", "2.15.0"),
		coordinate.MustNew(ecosystem.Conda, "conda-forge/numpy", "1.26.0"),
		coordinate.MustNew(ecosystem.Conda, "main.anaconda/python", "3.11.5"),
		coordinate.MustNew(ecosystem.RPM, "openssl-libs", "1:3.0.7"),
		coordinate.MustNew(ecosystem.Maven, "guava", "32.1.2-jre"),
		coordinate.MustNew(ecosystem.NuGet, "newtonsoft.json", "13.0.3"),
	}
	for _, want := range coords {
		t.Run(want.Wire(), func(t *testing.T) {
			got, err := coordinate.FromWire(want.Wire())
			require.NoError(t, err)
			assert.Equal(t, want.Ecosystem(), got.Ecosystem())
			assert.Equal(t, want.Name(), got.Name())
			assert.Equal(t, want.Version(), got.Version())
		})
	}
}

func TestFromWire_Invalid(t *testing.T) {
	_, err := coordinate.FromWire("not a purl")
	assert.Error(t, err)

	_, err = coordinate.FromWire("pkg:npm/left-pad@1.3.0")
	assert.True(t, errors.Is(err, ecosystem.ErrUnsupported))
}

func TestWires(t *testing.T) {
	got := coordinate.Wires([]coordinate.Coordinate{
		coordinate.MustNew(ecosystem.PyPI, "b", "2"),
		coordinate.MustNew(ecosystem.PyPI, "a", "1"),
	})
	assert.Equal(t, []string{"pkg:pypi/b@2", "pkg:pypi/a@1"}, got)
}
