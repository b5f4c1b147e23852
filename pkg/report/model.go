// Package report aggregates component reports into an ordered model and
// renders it.
package report

import (
	"github.com/samber/lo"

	"github.com/warren2314/OSS-Checker/pkg/coordinate"
	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
	"github.com/warren2314/OSS-Checker/pkg/ossindex"
)

// Component is one received component report.
type Component struct {
	Coordinates     string                   `json:"coordinates"`
	Description     string                   `json:"description,omitempty"`
	Reference       string                   `json:"reference,omitempty"`
	Vulnerabilities []ossindex.Vulnerability `json:"vulnerabilities"`
}

func (c Component) Vulnerable() bool {
	return len(c.Vulnerabilities) > 0
}

// Failure lists coordinates left unchecked by a failed request.
type Failure struct {
	Coordinates []string `json:"coordinates"`
	Reason      string   `json:"reason"`
}

type Section struct {
	Ecosystem  ecosystem.Type `json:"ecosystem"`
	Components []Component    `json:"components"`
	Failures   []Failure      `json:"failures,omitempty"`
}

type Model struct {
	Sections []Section `json:"sections"`
}

// Row is one flattened vulnerability line.
type Row struct {
	Ecosystem   ecosystem.Type
	Coordinates string
	Title       string
	Score       string
	Severity    string
	CVE         string
	Description string
}

// Filter returns a copy of the model. Components without vulnerabilities
// are dropped unless includeClean is set.
func (m Model) Filter(includeClean bool) Model {
	out := Model{Sections: make([]Section, 0, len(m.Sections))}
	for _, s := range m.Sections {
		components := s.Components
		if !includeClean {
			components = lo.Filter(components, func(c Component, _ int) bool {
				return c.Vulnerable()
			})
		}
		out.Sections = append(out.Sections, Section{
			Ecosystem:  s.Ecosystem,
			Components: append([]Component{}, components...),
			Failures:   append([]Failure(nil), s.Failures...),
		})
	}
	return out
}

// Rows flattens the vulnerabilities of every component in model order,
// one row per vulnerability. CSVWriter renders them.
func (m Model) Rows() []Row {
	var rows []Row
	for _, s := range m.Sections {
		for _, c := range s.Components {
			for _, v := range c.Vulnerabilities {
				rows = append(rows, Row{
					Ecosystem:   s.Ecosystem,
					Coordinates: c.Coordinates,
					Title:       v.TitleOrNA(),
					Score:       v.ScoreOrNA(),
					Severity:    v.Severity().String(),
					CVE:         v.CVEOrNA(),
					Description: v.DescriptionOrNA(),
				})
			}
		}
	}
	return rows
}

// Counts returns the number of components, vulnerabilities and unchecked
// coordinates in the model.
func (m Model) Counts() (components, vulnerabilities, failed int) {
	for _, s := range m.Sections {
		components += len(s.Components)
		for _, c := range s.Components {
			vulnerabilities += len(c.Vulnerabilities)
		}
		for _, f := range s.Failures {
			failed += len(f.Coordinates)
		}
	}
	return components, vulnerabilities, failed
}

// Aggregator collects outcomes in arrival order. It is not safe for
// concurrent use.
type Aggregator struct {
	sections []Section
	index    map[ecosystem.Type]int
}

func NewAggregator() *Aggregator {
	return &Aggregator{index: make(map[ecosystem.Type]int)}
}

// section returns the section of eco, creating it on first use.
func (a *Aggregator) section(eco ecosystem.Type) *Section {
	i, ok := a.index[eco]
	if !ok {
		i = len(a.sections)
		a.index[eco] = i
		a.sections = append(a.sections, Section{Ecosystem: eco})
	}
	return &a.sections[i]
}

// Touch makes sure eco has a section even when it yields no outcomes.
func (a *Aggregator) Touch(eco ecosystem.Type) {
	a.section(eco)
}

func (a *Aggregator) Add(eco ecosystem.Type, outcomes []ossindex.Outcome) {
	s := a.section(eco)
	for _, o := range outcomes {
		if o.Failed() {
			s.Failures = append(s.Failures, Failure{
				Coordinates: coordinate.Wires(o.Coordinates),
				Reason:      o.Err.Error(),
			})
			continue
		}
		s.Components = append(s.Components, Component{
			Coordinates:     o.Report.Coordinates,
			Description:     o.Report.Description,
			Reference:       o.Report.Reference,
			Vulnerabilities: append([]ossindex.Vulnerability{}, o.Report.Vulnerabilities...),
		})
	}
}

// Model returns a snapshot. Later Add calls do not affect it.
func (a *Aggregator) Model() Model {
	return Model{Sections: a.sections}.Filter(true)
}
