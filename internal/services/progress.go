package services

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
)

// Progress prints a one-line progress bar every 5% and on completion.
// It is safe for concurrent use.
type Progress struct {
	mu          sync.Mutex
	w           io.Writer
	bar         progress.Model
	desc        string
	unit        string
	total       int
	n           int
	lastPercent int
}

// NewProgress prints the initial 0% line and returns the indicator
func NewProgress(w io.Writer, total int, desc, unit string) *Progress {
	p := &Progress{
		w:     w,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage()),
		desc:  desc,
		unit:  unit,
		total: total,
	}
	p.print(0)
	return p
}

// Increment advances the indicator by one record
func (p *Progress) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.n++
	percent := p.percent()
	if percent >= p.lastPercent+5 || p.n == p.total {
		p.lastPercent = percent
		p.print(percent)
	}
}

// Count returns how many records have been reported
func (p *Progress) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

// Close prints the final line
func (p *Progress) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %s: %d/%d %s (100%%) - Complete\n", p.bar.ViewAs(1), p.desc, p.n, p.total, p.unit)
}

func (p *Progress) percent() int {
	if p.total <= 0 {
		return 100
	}
	return p.n * 100 / p.total
}

// caller holds mu
func (p *Progress) print(percent int) {
	fmt.Fprintf(p.w, "%s %s: %d/%d %s (%d%%)\n", p.bar.ViewAs(float64(percent)/100), p.desc, p.n, p.total, p.unit, percent)
}
