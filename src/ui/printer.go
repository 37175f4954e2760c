package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
)

// Printer writes styled user-facing messages. Status lines go to Out,
// errors and progress redraws go to Err. Safe for concurrent use.
type Printer struct {
	mu     sync.Mutex
	Out    io.Writer
	Err    io.Writer
	Styles *StyleConfig
}

// NewPrinter creates a printer on the given writers.
func NewPrinter(out, err io.Writer) *Printer {
	return &Printer{Out: out, Err: err, Styles: DefaultStyles()}
}

// Stdio is the printer on the process standard streams.
func Stdio() *Printer {
	return NewPrinter(os.Stdout, os.Stderr)
}

func (p *Printer) write(w io.Writer, s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(w, s)
}

// Plain prints an unstyled line.
func (p *Printer) Plain(format string, args ...any) {
	p.write(p.Out, fmt.Sprintf(format, args...))
}

func (p *Printer) Info(format string, args ...any) {
	p.write(p.Out, p.Styles.InfoStyle().Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Success(format string, args ...any) {
	p.write(p.Out, p.Styles.SuccessStyle().Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Warn(format string, args ...any) {
	p.write(p.Out, p.Styles.WarnStyle().Render(fmt.Sprintf(format, args...)))
}

// Error prints to Err.
func (p *Printer) Error(format string, args ...any) {
	p.write(p.Err, p.Styles.ErrorStyle().Render(fmt.Sprintf(format, args...)))
}

func (p *Printer) Small(format string, args ...any) {
	p.write(p.Out, p.Styles.SmallStyle().Render(fmt.Sprintf(format, args...)))
}

// Dots redraws the polling line of label with one dot per attempt.
func (p *Printer) Dots(label string, attempt int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.Err, "\r%s%s %s", ansi.EraseEntireLine, label, strings.Repeat(".", attempt))
}

// EndLine terminates a line left open by Dots or a progress bar.
func (p *Printer) EndLine() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.Err)
}
