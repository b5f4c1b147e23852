package ecosystem_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    ecosystem.Type
		wantErr bool
	}{
		{name: "conda", input: "conda", want: ecosystem.Conda},
		{name: "upper case", input: "PyPI", want: ecosystem.PyPI},
		{name: "alias", input: "pip", want: ecosystem.PyPI},
		{name: "padded", input: " maven ", want: ecosystem.Maven},
		{name: "nuget", input: "nuget", want: ecosystem.NuGet},
		{name: "rpm", input: "rpm", want: ecosystem.RPM},
		{name: "npm is not supported", input: "npm", want: ecosystem.Unknown, wantErr: true},
		{name: "empty", input: "", want: ecosystem.Unknown, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ecosystem.Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ecosystem.ErrUnsupported))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAll(t *testing.T) {
	got := ecosystem.All()
	assert.Equal(t, []ecosystem.Type{ecosystem.Conda, ecosystem.PyPI, ecosystem.RPM, ecosystem.Maven, ecosystem.NuGet}, got)

	got[0] = ecosystem.Unknown
	assert.Equal(t, ecosystem.Conda, ecosystem.All()[0])

	for _, typ := range ecosystem.All() {
		assert.True(t, typ.Valid())
	}
	assert.False(t, ecosystem.Unknown.Valid())
}
