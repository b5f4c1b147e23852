package ossindex

import (
	"strconv"
	"strings"

	gocvss30 "github.com/pandatix/go-cvss/30"
	gocvss31 "github.com/pandatix/go-cvss/31"

	"github.com/warren2314/OSS-Checker/pkg/coordinate"
	"github.com/warren2314/OSS-Checker/pkg/types"
)

// NotAvailable replaces optional fields the service did not return.
const NotAvailable = "N/A"

// ComponentReport is the service's answer for one requested coordinate.
type ComponentReport struct {
	Coordinates     string          `json:"coordinates"`
	Description     string          `json:"description,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	Vulnerabilities []Vulnerability `json:"vulnerabilities"`
}

// Vulnerability is one known issue of a component. Optional fields stay
// nil when absent from the response.
type Vulnerability struct {
	ID          string   `json:"id,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	CVE         *string  `json:"cve,omitempty"`
	Title       *string  `json:"title,omitempty"`
	CVSSScore   *float64 `json:"cvssScore,omitempty"`
	CVSSVector  string   `json:"cvssVector,omitempty"`
	CWE         string   `json:"cwe,omitempty"`
	Description *string  `json:"description,omitempty"`
	Reference   string   `json:"reference,omitempty"`
}

func orNA(s *string) string {
	if s == nil || *s == "" {
		return NotAvailable
	}
	return *s
}

func (v Vulnerability) CVEOrNA() string         { return orNA(v.CVE) }
func (v Vulnerability) TitleOrNA() string       { return orNA(v.Title) }
func (v Vulnerability) DescriptionOrNA() string { return orNA(v.Description) }

// ScoreOrNA formats the score as returned by the service.
func (v Vulnerability) ScoreOrNA() string {
	if v.CVSSScore == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*v.CVSSScore, 'f', -1, 64)
}

// Score returns the reported CVSS score. When the service omitted it, the
// base score is derived from a CVSS 3.x vector if one is present.
func (v Vulnerability) Score() (float64, bool) {
	if v.CVSSScore != nil {
		return *v.CVSSScore, true
	}
	vector := strings.TrimSuffix(v.CVSSVector, "/")
	switch {
	case strings.HasPrefix(vector, "CVSS:3.0"):
		cvss, err := gocvss30.ParseVector(vector)
		if err != nil {
			return 0, false
		}
		return cvss.BaseScore(), true
	case strings.HasPrefix(vector, "CVSS:3.1"):
		cvss, err := gocvss31.ParseVector(vector)
		if err != nil {
			return 0, false
		}
		return cvss.BaseScore(), true
	}
	return 0, false
}

func (v Vulnerability) Severity() types.Severity {
	score, ok := v.Score()
	if !ok {
		return types.SeverityUnknown
	}
	return types.SeverityFromScore(score)
}

// Outcome is the result of querying one coordinate, or a failed request
// covering several. Report is nil when Err is set.
type Outcome struct {
	Coordinates []coordinate.Coordinate
	Report      *ComponentReport
	Err         error
}

func (o Outcome) Failed() bool {
	return o.Err != nil
}

func success(report ComponentReport, coords ...coordinate.Coordinate) Outcome {
	return Outcome{Coordinates: coords, Report: &report}
}

func failure(err error, coords ...coordinate.Coordinate) Outcome {
	return Outcome{Coordinates: coords, Err: err}
}
