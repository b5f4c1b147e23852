package parser

import (
	"regexp"

	"github.com/warren2314/OSS-Checker/pkg/coordinate"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
)

// name, then an optionally epoch-prefixed version, then the release
var rpmPattern = regexp.MustCompile(`^([A-Za-z0-9_-]+)-([\d:.]+)-`)

// RPM parses package file names such as bash-5.1.8-6.el9.x86_64.rpm.
type RPM struct{}

func (RPM) Ecosystem() ecosystem.Type { return ecosystem.RPM }

func (RPM) Parse(e Entry) (coordinate.Coordinate, error) {
	name := e.Name()
	if !hasAnySuffix(name, ".rpm") {
		return coordinate.Coordinate{}, unparseable(e, "not an rpm")
	}

	m := rpmPattern.FindStringSubmatch(name)
	if m == nil {
		return coordinate.Coordinate{}, unparseable(e, "file name does not match <name>-<version>-<release>")
	}

	c, err := coordinate.New(ecosystem.RPM, m[1], m[2])
	if err != nil {
		return coordinate.Coordinate{}, unparseable(e, err.Error())
	}
	return c, nil
}
