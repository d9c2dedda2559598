package serial

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// FormatDuration renders d as MM:SS, or HH:MM:SS from one hour; negative is unknown.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "--:--"
	}
	s := int(d / time.Second)
	h, m, sec := s/3600, (s/60)%60, s%60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}

// FormatUpdate renders the single-line progress display.
func FormatUpdate(u Update) string {
	stage := u.Stage
	if len(stage) > 26 {
		stage = stage[:25] + "+"
	}
	fps := "--"
	if u.FPS > 0 {
		fps = fmt.Sprintf("%.2f", u.FPS)
	}
	pct := int(u.Percent*100 + 0.5)
	return fmt.Sprintf("[%-26s] %3d%% | fps %8s | eta %8s | elapsed %8s",
		stage, pct, fps, FormatDuration(u.ETA), FormatDuration(u.Elapsed))
}

// ProgressPrinter redraws one terminal line, throttled to Interval unless the
// stage changes, progress moves by half a percent or the run completes.
type ProgressPrinter struct {
	W        io.Writer
	Interval time.Duration
	Now      func() time.Time

	last      time.Time
	lastStage string
	lastPct   float64
	width     int
	printed   bool
}

func NewProgressPrinter(w io.Writer, interval time.Duration) *ProgressPrinter {
	return &ProgressPrinter{W: w, Interval: interval, Now: time.Now, lastPct: -1}
}

func (p *ProgressPrinter) Update(u Update) {
	now := p.Now()
	emit := now.Sub(p.last) >= p.Interval ||
		u.Stage != p.lastStage ||
		u.Percent-p.lastPct >= 0.005 || p.lastPct-u.Percent >= 0.005 ||
		u.Percent >= 1
	if !emit {
		return
	}
	line := FormatUpdate(u)
	padded := line
	if len(line) < p.width {
		padded += strings.Repeat(" ", p.width-len(line))
	}
	fmt.Fprintf(p.W, "\r%s", padded)
	p.width = max(p.width, len(line))
	p.last, p.lastStage, p.lastPct = now, u.Stage, u.Percent
	p.printed = true
}

// Done terminates the progress line if anything was drawn.
func (p *ProgressPrinter) Done() {
	if p.printed {
		fmt.Fprintln(p.W)
	}
}
