// Package parser turns scanned filesystem entries into package coordinates.
// Every parser is a pure function of the entry path relative to the scan root.
package parser

import (
	"path"
	"strings"

	"golang.org/x/xerrors"

	"github.com/warren2314/OSS-Checker/pkg/coordinate"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
)

// ErrUnparseable marks an entry that does not follow the ecosystem's
// naming convention. It is an expected outcome, not a failure.
var ErrUnparseable = xerrors.New("unparseable entry")

// Entry is a file found under a scan root.
type Entry struct {
	// RelPath is slash separated and relative to the scan root.
	RelPath string
}

// NewEntry builds an Entry from a slash separated relative path.
func NewEntry(relPath string) Entry {
	return Entry{RelPath: path.Clean(strings.TrimPrefix(relPath, "/"))}
}

// Name returns the file name.
func (e Entry) Name() string {
	return path.Base(e.RelPath)
}

// Segments returns the path segments, file name last.
func (e Entry) Segments() []string {
	if e.RelPath == "" || e.RelPath == "." {
		return nil
	}
	return strings.Split(e.RelPath, "/")
}

// Parser derives a coordinate from an entry.
type Parser interface {
	Ecosystem() ecosystem.Type
	Parse(entry Entry) (coordinate.Coordinate, error)
}

// Options tune parser variants.
type Options struct {
	// PyPIAnyExtension accepts any file name matching the wheel pattern,
	// not only *.whl.
	PyPIAnyExtension bool
}

// For returns the parser of the given ecosystem.
func For(eco ecosystem.Type, opts Options) (Parser, error) {
	switch eco {
	case ecosystem.Conda:
		return Conda{}, nil
	case ecosystem.PyPI:
		return PyPI{AnyExtension: opts.PyPIAnyExtension}, nil
	case ecosystem.RPM:
		return RPM{}, nil
	case ecosystem.Maven:
		return Maven{}, nil
	case ecosystem.NuGet:
		return NuGet{}, nil
	}
	return nil, xerrors.Errorf("no parser for %q: %w", eco, ecosystem.ErrUnsupported)
}

func unparseable(e Entry, reason string) error {
	return xerrors.Errorf("%s: %s: %w", e.RelPath, reason, ErrUnparseable)
}

func hasAnySuffix(name string, suffixes ...string) bool {
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// fromLayout reads <artifact>/<version>/<file>: the grandparent directory
// names the package, the parent directory is the version.
//
// The depth is fixed. Classifier directories or extra nesting below the
// version directory shift the segments and misattribute artifact/version.
func fromLayout(eco ecosystem.Type, e Entry) (coordinate.Coordinate, error) {
	parts := e.Segments()
	if len(parts) < 3 {
		return coordinate.Coordinate{}, unparseable(e, "too few path segments")
	}
	name, version := parts[len(parts)-3], parts[len(parts)-2]
	c, err := coordinate.New(eco, name, version)
	if err != nil {
		return coordinate.Coordinate{}, unparseable(e, err.Error())
	}
	return c, nil
}
