// Package coordinate defines the canonical package coordinate sent to the
// vulnerability service and its package-URL wire form.
package coordinate

import (
	"net/url"
	"strings"

	"github.com/package-url/packageurl-go"
	"golang.org/x/xerrors"

	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
)

var (
	ErrEmptyName   = xerrors.New("empty package name")
	ErrInvalidWire = xerrors.New("invalid wire coordinate")
)

// Coordinate identifies one package version within an ecosystem.
// An empty version means the version is unknown.
type Coordinate struct {
	ecosystem ecosystem.Type
	name      string
	version   string
}

// New validates and builds a Coordinate.
func New(eco ecosystem.Type, name, version string) (Coordinate, error) {
	if !eco.Valid() {
		return Coordinate{}, xerrors.Errorf("%s: %w", eco, ecosystem.ErrUnsupported)
	}
	if name == "" {
		return Coordinate{}, ErrEmptyName
	}
	return Coordinate{ecosystem: eco, name: name, version: version}, nil
}

// MustNew is like New but panics on invalid input. Intended for tests and constants.
func MustNew(eco ecosystem.Type, name, version string) Coordinate {
	c, err := New(eco, name, version)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Coordinate) Ecosystem() ecosystem.Type { return c.ecosystem }
func (c Coordinate) Name() string              { return c.name }
func (c Coordinate) Version() string           { return c.version }
func (c Coordinate) HasVersion() bool          { return c.version != "" }

// String returns name@version, or the bare name when the version is unknown.
func (c Coordinate) String() string {
	if c.version == "" {
		return c.name
	}
	return c.name + "@" + c.version
}

// Key identifies the coordinate within one ecosystem.
func (c Coordinate) Key() string {
	return c.String()
}

// Wire returns the package URL form, e.g. pkg:pypi/requests@2.31.0.
// A name containing "/" (conda org/repo) is split at the last slash into
// the purl namespace and name.
func (c Coordinate) Wire() string {
	namespace, name := "", c.name
	if i := strings.LastIndex(c.name, "/"); i > 0 {
		namespace, name = c.name[:i], c.name[i+1:]
	}
	return packageurl.NewPackageURL(string(c.ecosystem), namespace, name, c.version, nil, "").ToString()
}

// FromWire parses a package URL back into a Coordinate.
// The name is taken from the wire string as written, so the purl type
// normalisation (lower-cased pypi names, "_" to "-") does not apply.
func FromWire(s string) (Coordinate, error) {
	p, err := packageurl.FromString(s)
	if err != nil {
		return Coordinate{}, xerrors.Errorf("%s: %w: %v", s, ErrInvalidWire, err)
	}
	eco, err := ecosystem.Parse(p.Type)
	if err != nil {
		return Coordinate{}, xerrors.Errorf("%s: %w", s, err)
	}
	name, err := rawName(s)
	if err != nil {
		return Coordinate{}, xerrors.Errorf("%s: %w: %v", s, ErrInvalidWire, err)
	}
	if p.Namespace != "" {
		name = p.Namespace + "/" + name
	}
	return New(eco, name, p.Version)
}

// rawName returns the unescaped name segment of a package URL.
func rawName(s string) (string, error) {
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	seg := s[strings.LastIndex(s, "/")+1:]
	if i := strings.Index(seg, "@"); i >= 0 {
		seg = seg[:i]
	}
	return url.PathUnescape(seg)
}

// Wires maps coordinates to their wire form, preserving order.
func Wires(coords []Coordinate) []string {
	out := make([]string, 0, len(coords))
	for _, c := range coords {
		out = append(out, c.Wire())
	}
	return out
}
