package parser

import (
	"github.com/warren2314/OSS-Checker/pkg/coordinate"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
)

// NuGet parses package caches of the form .../<package>/<version>/<file>.nupkg.
type NuGet struct{}

func (NuGet) Ecosystem() ecosystem.Type { return ecosystem.NuGet }

func (NuGet) Parse(e Entry) (coordinate.Coordinate, error) {
	if !hasAnySuffix(e.Name(), ".nupkg") {
		return coordinate.Coordinate{}, unparseable(e, "not a nupkg")
	}
	return fromLayout(ecosystem.NuGet, e)
}
