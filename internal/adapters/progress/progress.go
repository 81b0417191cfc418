// Package progress renders replication progress on a terminal.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

const defaultWidth = 40

// isTTY reports whether w exposes a file descriptor that is a terminal.
func isTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Bar implements usecase.ProgressPort.
// On a terminal it redraws one line with \r whenever the percentage
// changes; elsewhere it prints a single line when finished.
type Bar struct {
	mu          sync.Mutex
	writer      io.Writer
	description string
	width       int
	tty         bool
	total       int
	current     int
	lastPercent int
	started     bool
}

// New creates a progress bar writing to w.
func New(w io.Writer, description string) *Bar {
	return &Bar{
		writer:      w,
		description: description,
		width:       defaultWidth,
		tty:         isTTY(w),
		lastPercent: -1,
	}
}

// Start resets the bar for total items.
func (b *Bar) Start(total int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.total = total
	b.current = 0
	b.lastPercent = -1
	b.started = true
	if b.tty {
		b.render()
	}
}

// Advance adds n completed items.
func (b *Bar) Advance(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current += n
	if b.current > b.total {
		b.current = b.total
	}
	if b.tty {
		b.render()
	}
}

// Finish completes the bar and ends its line.
func (b *Bar) Finish() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return
	}
	b.started = false
	b.lastPercent = -1
	b.render()
	if b.tty {
		fmt.Fprintln(b.writer)
	}
}

func (b *Bar) percent() int {
	if b.total <= 0 {
		return 100
	}
	return b.current * 100 / b.total
}

// render draws the bar; callers hold mu.
func (b *Bar) render() {
	pct := b.percent()
	if pct == b.lastPercent {
		return
	}
	b.lastPercent = pct

	filled := b.width
	if b.total > 0 {
		filled = b.current * b.width / b.total
	}
	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < b.width; i++ {
		switch {
		case i < filled-1:
			bar.WriteString("=")
		case i == filled-1:
			bar.WriteString(">")
		default:
			bar.WriteString(" ")
		}
	}
	bar.WriteString("]")

	if b.tty {
		fmt.Fprintf(b.writer, "\r%s %3d%% %s (%d/%d)", bar.String(), pct, b.description, b.current, b.total)
		return
	}
	fmt.Fprintf(b.writer, "%s %3d%% %s (%d/%d)\n", bar.String(), pct, b.description, b.current, b.total)
}
