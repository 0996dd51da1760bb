package cmd

import (
	"fmt"
	"io"
	"strings"
)

// progressBar draws upload progress on a terminal line.
type progressBar struct {
	total       int
	current     int
	width       int
	description string
	writer      io.Writer
}

func newProgressBar(total int, description string, writer io.Writer) *progressBar {
	return &progressBar{
		total:       total,
		width:       30,
		description: description,
		writer:      writer,
	}
}

// Add advances the bar by n screenshots, capped at the total.
func (p *progressBar) Add(n int) {
	p.current = min(p.current+n, p.total)
	p.render()
}

// Finish fills the bar and ends the line.
func (p *progressBar) Finish() {
	p.current = p.total
	p.render()
	fmt.Fprintln(p.writer)
}

func (p *progressBar) render() {
	if p.total <= 0 {
		return
	}

	pct := p.current * 100 / p.total
	filled := min(p.current*p.width/p.total, p.width)

	bar := strings.Repeat("=", filled) + strings.Repeat(" ", p.width-filled)
	fmt.Fprintf(p.writer, "\r%s [%s] %d/%d %3d%%", p.description, bar, p.current, p.total, pct)
}
