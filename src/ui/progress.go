package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/x/ansi"
)

const redrawInterval = 100 * time.Millisecond

// DownloadBar is an io.Writer that counts bytes and redraws a progress bar
// with percentage and ETA on each write.
type DownloadBar struct {
	mu       sync.Mutex
	w        io.Writer
	bar      progress.Model
	total    int64
	written  int64
	start    time.Time
	lastDraw time.Time
	now      func() time.Time
}

// NewDownloadBar draws on w. A total <= 0 shows a byte counter instead.
func NewDownloadBar(w io.Writer, total int64) *DownloadBar {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithWidth(30), progress.WithoutPercentage())
	return &DownloadBar{w: w, bar: bar, total: total, start: time.Now(), now: time.Now}
}

func (d *DownloadBar) Write(b []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.written += int64(len(b))
	if now := d.now(); now.Sub(d.lastDraw) >= redrawInterval {
		d.lastDraw = now
		d.draw()
	}
	return len(b), nil
}

// Finish draws the final state and ends the line.
func (d *DownloadBar) Finish() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.draw()
	fmt.Fprintln(d.w)
}

// Written returns the number of bytes counted so far.
func (d *DownloadBar) Written() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.written
}

func (d *DownloadBar) draw() {
	fmt.Fprint(d.w, "\r"+ansi.EraseEntireLine+d.render())
}

func (d *DownloadBar) render() string {
	if d.total <= 0 {
		return fmt.Sprintf("%s downloaded", humanBytes(d.written))
	}

	pct := float64(d.written) / float64(d.total)
	if pct > 1 {
		pct = 1
	}
	return fmt.Sprintf("[%s]  %3.0f%%  %s", d.bar.ViewAs(pct), pct*100, d.eta(pct))
}

func (d *DownloadBar) eta(pct float64) string {
	if pct <= 0 {
		return "--"
	}
	elapsed := d.now().Sub(d.start)
	remaining := time.Duration(float64(elapsed)/pct) - elapsed
	return fmt.Sprintf("%.1fs", remaining.Seconds())
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
