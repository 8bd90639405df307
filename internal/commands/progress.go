package commands

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/rachealIC/infra-review-cli/internal/aws"
)

// scanProgress renders pipeline stages and collector completions as a spinner.
// A disabled progress ignores every call.
type scanProgress struct {
	bar *progressbar.ProgressBar

	mu        sync.Mutex
	stageName string
	done      int
	failed    int
}

func newScanProgress(w io.Writer, disabled bool) *scanProgress {
	if disabled {
		return &scanProgress{}
	}
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription("[cyan]Starting scan...[reset]"),
		progressbar.OptionClearOnFinish(),
	)
	return &scanProgress{bar: bar}
}

func (p *scanProgress) stage(name string) {
	if p.bar == nil {
		return
	}
	p.mu.Lock()
	p.stageName = name
	desc := p.describe()
	p.mu.Unlock()
	p.bar.Describe(desc)
}

func (p *scanProgress) collected(ev aws.Progress) {
	if p.bar == nil {
		return
	}
	p.mu.Lock()
	p.done++
	if ev.Err != nil {
		p.failed++
	}
	desc := p.describe()
	p.mu.Unlock()
	p.bar.Describe(desc)
	_ = p.bar.Add(1)
}

// describe must be called with mu held.
func (p *scanProgress) describe() string {
	desc := fmt.Sprintf("[cyan]%s[reset] (%d collectors done", p.stageName, p.done)
	if p.failed > 0 {
		desc += fmt.Sprintf(", [red]%d failed[reset]", p.failed)
	}
	return desc + ")"
}

func (p *scanProgress) finish() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
}
