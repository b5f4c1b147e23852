package parser

import (
	"strings"

	"github.com/warren2314/OSS-Checker/pkg/coordinate"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
)

// Conda parses channel mirrors laid out as <name segments...>/<version>/<archive>.
//
// e.g. conda-forge/numpy/1.26.0/numpy-1.26.0-py311h64a7726_0.conda
// => pkg:conda/conda-forge/numpy@1.26.0
type Conda struct{}

func (Conda) Ecosystem() ecosystem.Type { return ecosystem.Conda }

func (Conda) Parse(e Entry) (coordinate.Coordinate, error) {
	if !hasAnySuffix(e.Name(), ".conda", ".tar.bz2") {
		return coordinate.Coordinate{}, unparseable(e, "not a conda archive")
	}

	parts := e.Segments()
	if len(parts) < 3 {
		return coordinate.Coordinate{}, unparseable(e, "too few path segments")
	}

	version := parts[len(parts)-2]
	if version == "" || version[0] < '0' || version[0] > '9' {
		return coordinate.Coordinate{}, unparseable(e, "version directory does not start with a digit")
	}

	joined := strings.Join(parts[:len(parts)-2], ".")
	dotted := strings.Split(joined, ".")
	name := joined
	if len(dotted) >= 2 {
		// the final two dot segments become org/repo
		name = strings.Join(dotted[:len(dotted)-1], ".") + "/" + dotted[len(dotted)-1]
	}

	c, err := coordinate.New(ecosystem.Conda, name, version)
	if err != nil {
		return coordinate.Coordinate{}, unparseable(e, err.Error())
	}
	return c, nil
}
