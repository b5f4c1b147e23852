package parser

import (
	"github.com/warren2314/OSS-Checker/pkg/coordinate"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
)

// Maven parses repository layouts of the form .../<artifact>/<version>/<file>.{pom,jar}.
type Maven struct{}

func (Maven) Ecosystem() ecosystem.Type { return ecosystem.Maven }

func (Maven) Parse(e Entry) (coordinate.Coordinate, error) {
	if !hasAnySuffix(e.Name(), ".pom", ".jar") {
		return coordinate.Coordinate{}, unparseable(e, "not a pom or jar")
	}
	return fromLayout(ecosystem.Maven, e)
}
