package benchmark

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/mattn/go-isatty"
)

const progressWidth = 30

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// progressBar draws a single line progress bar. A nil writer disables it.
type progressBar struct {
	w       io.Writer
	bar     progress.Model
	total   int
	done    int
	current string
	started time.Time
}

func newProgressBar(w io.Writer, total int) *progressBar {
	return &progressBar{
		w:       w,
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(progressWidth)),
		total:   total,
		started: time.Now(),
	}
}

// describe sets the postfix naming the running test.
func (p *progressBar) describe(current string) {
	if p.w == nil {
		return
	}
	p.current = current
	p.draw()
}

// add advances the bar by n units.
func (p *progressBar) add(n int) {
	if p.w == nil {
		return
	}
	p.done = min(p.done+n, p.total)
	p.draw()
}

func (p *progressBar) draw() {
	var percent float64
	if p.total > 0 {
		percent = float64(p.done) / float64(p.total)
	}
	elapsed := time.Since(p.started).Truncate(time.Second)
	// \033[K clears the remainder of the previous line.
	fmt.Fprintf(p.w, "\rProgress: %s %d/%d [%s] %s\033[K", p.bar.ViewAs(percent), p.done, p.total, elapsed, p.current)
}

func (p *progressBar) finish() {
	if p.w == nil {
		return
	}
	fmt.Fprintln(p.w)
}
