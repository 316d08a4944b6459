// Package output handles user-facing terminal output for the console,
// separate from diagnostic logging.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/meridian-labs/lookout/internal/event"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Printer handles colored output to the terminal.
type Printer struct {
	out      io.Writer
	err      io.Writer
	useColor bool
}

// NewPrinter creates a printer writing to stdout/stderr, with color when
// stdout is a terminal.
func NewPrinter() *Printer {
	return &Printer{
		out:      os.Stdout,
		err:      os.Stderr,
		useColor: isatty.IsTerminal(os.Stdout.Fd()),
	}
}

// NewPrinterWithWriters creates a printer with custom writers (for testing).
func NewPrinterWithWriters(out, err io.Writer, useColor bool) *Printer {
	return &Printer{out: out, err: err, useColor: useColor}
}

// Success prints a success message in green.
func (p *Printer) Success(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if p.useColor {
		fmt.Fprintf(p.out, "%s%s✓ %s%s\n", colorBold, colorGreen, message, colorReset)
	} else {
		fmt.Fprintf(p.out, "✓ %s\n", message)
	}
}

// Error prints an error message in red.
func (p *Printer) Error(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if p.useColor {
		fmt.Fprintf(p.err, "%s%s✗ %s%s\n", colorBold, colorRed, message, colorReset)
	} else {
		fmt.Fprintf(p.err, "✗ %s\n", message)
	}
}

// Warning prints a warning message in yellow.
func (p *Printer) Warning(format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	if p.useColor {
		fmt.Fprintf(p.err, "%s%s⚠ %s%s\n", colorBold, colorYellow, message, colorReset)
	} else {
		fmt.Fprintf(p.err, "⚠ %s\n", message)
	}
}

// Info prints a plain informational line.
func (p *Printer) Info(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Event prints one event line: timestamp, run, kind, payload.
func (p *Printer) Event(ev event.Event) {
	ts := ev.Timestamp.Format("15:04:05.000")
	payload := ""
	if len(ev.Payload) > 0 {
		payload = " " + string(ev.Payload)
	}
	if p.useColor {
		fmt.Fprintf(p.out, "%s%s%s  %s%s%s  %s%s%s\n",
			colorGray, ts, colorReset,
			colorCyan, ev.RunID, colorReset,
			colorBold, ev.Kind, colorReset+payload)
	} else {
		fmt.Fprintf(p.out, "%s  %s  %s%s\n", ts, ev.RunID, ev.Kind, payload)
	}
}
