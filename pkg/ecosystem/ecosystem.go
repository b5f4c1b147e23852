package ecosystem

import (
	"strings"

	"golang.org/x/xerrors"
)

// Type represents an ecosystem identifier (stable slug)
type Type string

const (
	Unknown Type = "unknown"

	Conda Type = "conda"
	PyPI  Type = "pypi"
	RPM   Type = "rpm"
	Maven Type = "maven"
	NuGet Type = "nuget"
)

// ErrUnsupported is returned for ecosystem names outside the supported set.
var ErrUnsupported = xerrors.New("unsupported ecosystem")

var all = []Type{Conda, PyPI, RPM, Maven, NuGet}

var aliases = map[string]Type{
	"pip":    PyPI,
	"python": PyPI,
}

// All returns the supported ecosystems in a stable order.
func All() []Type {
	return append([]Type(nil), all...)
}

// Parse resolves a user supplied ecosystem name.
func Parse(s string) (Type, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, t := range all {
		if name == string(t) {
			return t, nil
		}
	}
	if t, ok := aliases[name]; ok {
		return t, nil
	}
	return Unknown, xerrors.Errorf("%q: %w", s, ErrUnsupported)
}

// Valid reports whether t is one of the supported ecosystems.
func (t Type) Valid() bool {
	for _, v := range all {
		if t == v {
			return true
		}
	}
	return false
}

// String returns the string representation of the ecosystem type
func (t Type) String() string {
	return string(t)
}
