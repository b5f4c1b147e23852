package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"golang.org/x/xerrors"

	"github.com/warren2314/OSS-Checker/pkg/types"
)

var ErrUnknownFormat = xerrors.New("unknown report format")

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", xerrors.Errorf("%q: %w", s, ErrUnknownFormat)
}

// Writer renders a model to its output.
type Writer interface {
	Write(m Model) error
}

func NewWriter(format Format, output io.Writer) (Writer, error) {
	switch format {
	case FormatText:
		return TextWriter{Output: output}, nil
	case FormatJSON:
		return JSONWriter{Output: output}, nil
	case FormatCSV:
		return CSVWriter{Output: output}, nil
	}
	return nil, xerrors.Errorf("%q: %w", format, ErrUnknownFormat)
}

// JSONWriter writes the model as indented JSON.
type JSONWriter struct {
	Output io.Writer
}

func (w JSONWriter) Write(m Model) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return xerrors.Errorf("failed to marshal report: %w", err)
	}
	if _, err = fmt.Fprintln(w.Output, string(b)); err != nil {
		return xerrors.Errorf("failed to write report: %w", err)
	}
	return nil
}

// CSVWriter writes one record per vulnerability under a header row.
// Clean components and failures have no vulnerability rows and are omitted.
type CSVWriter struct {
	Output io.Writer
}

var csvHeader = []string{"Ecosystem", "Coordinates", "Title", "Score", "Severity", "CVE", "Description"}

func (w CSVWriter) Write(m Model) error {
	cw := csv.NewWriter(w.Output)
	if err := cw.Write(csvHeader); err != nil {
		return xerrors.Errorf("failed to write report: %w", err)
	}
	for _, r := range m.Rows() {
		record := []string{r.Ecosystem.String(), r.Coordinates, r.Title, r.Score, r.Severity, r.CVE, r.Description}
		if err := cw.Write(record); err != nil {
			return xerrors.Errorf("failed to write report: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return xerrors.Errorf("failed to write report: %w", err)
	}
	return nil
}

// TextWriter writes one table per ecosystem with the title, score, CVE and
// description of every vulnerability. Packages are separated by a blank line.
type TextWriter struct {
	Output io.Writer
}

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()
)

func (w TextWriter) Write(m Model) error {
	tw := tabwriter.NewWriter(w.Output, 0, 4, 2, ' ', 0)
	for i, s := range m.Sections {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		components, vulns, _ := Model{Sections: []Section{s}}.Counts()
		fmt.Fprintf(tw, "%s (%d packages, %d vulnerabilities)\n", bold(s.Ecosystem), components, vulns)
		fmt.Fprintln(tw, strings.Repeat("=", len(s.Ecosystem)))

		for _, c := range s.Components {
			fmt.Fprintf(tw, "\n%s: %d known vulnerabilities\n", c.Coordinates, len(c.Vulnerabilities))
			if !c.Vulnerable() {
				continue
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", bold("Title"), bold("Score"), bold("Severity"), bold("CVE"),
				bold("Description"))
			for _, v := range c.Vulnerabilities {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", oneLine(v.TitleOrNA()), v.ScoreOrNA(),
					types.ColorizeSeverity(v.Severity().String()), v.CVEOrNA(), oneLine(v.DescriptionOrNA()))
			}
		}

		for _, f := range s.Failures {
			fmt.Fprintf(tw, "\n%s %s: %s\n", faint("not checked"), strings.Join(f.Coordinates, ", "), f.Reason)
		}
	}
	if err := tw.Flush(); err != nil {
		return xerrors.Errorf("failed to write report: %w", err)
	}
	return nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
