package pkg

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"
	"gopkg.in/cheggaaa/pb.v1"

	"github.com/warren2314/OSS-Checker/pkg/ecosystem"
)

// terminalProgress shows a spinner while a target is walked and a bar of
// completed chunks while it is queried.
type terminalProgress struct {
	out     io.Writer
	spinner *spinner.Spinner
	bar     *pb.ProgressBar
}

func newTerminalProgress(out io.Writer) *terminalProgress {
	return &terminalProgress{
		out:     out,
		spinner: spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out)),
	}
}

func (p *terminalProgress) Scanning(eco ecosystem.Type, dir string) {
	p.spinner.Suffix = fmt.Sprintf(" scanning %s packages in %s", eco, dir)
	p.spinner.Start()
}

func (p *terminalProgress) Start(eco ecosystem.Type, chunks int) {
	p.spinner.Stop()
	p.bar = pb.New(chunks).Prefix(eco.String() + " ")
	p.bar.Output = p.out
	p.bar.ShowSpeed = false
	p.bar.Start()
}

func (p *terminalProgress) Increment() {
	if p.bar != nil {
		p.bar.Increment()
	}
}

func (p *terminalProgress) Finish() {
	p.spinner.Stop()
	if p.bar != nil {
		p.bar.Finish()
		p.bar = nil
	}
}
