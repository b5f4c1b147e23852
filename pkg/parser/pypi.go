package parser

import (
	"regexp"

	"github.com/warren2314/OSS-Checker/pkg/coordinate"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
)

var wheelPattern = regexp.MustCompile(`^([A-Za-z0-9_]+)-([\d.]+)`)

// PyPI parses wheel file names such as requests-2.31.0-py3-none-any.whl.
type PyPI struct {
	// AnyExtension accepts any file whose name matches the wheel pattern.
	AnyExtension bool
}

func (PyPI) Ecosystem() ecosystem.Type { return ecosystem.PyPI }

func (p PyPI) Parse(e Entry) (coordinate.Coordinate, error) {
	name := e.Name()
	if !p.AnyExtension && !hasAnySuffix(name, ".whl") {
		return coordinate.Coordinate{}, unparseable(e, "not a wheel")
	}

	m := wheelPattern.FindStringSubmatch(name)
	if m == nil {
		return coordinate.Coordinate{}, unparseable(e, "file name does not match <name>-<version>")
	}

	c, err := coordinate.New(ecosystem.PyPI, m[1], m[2])
	if err != nil {
		return coordinate.Coordinate{}, unparseable(e, err.Error())
	}
	return c, nil
}
