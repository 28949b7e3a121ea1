// Package ui formats command output for a terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Printer writes coloured status lines. Colours are off when NoColor is set
// or the writer is not a terminal (fatih/color checks stdout).
type Printer struct {
	w       io.Writer
	noColor bool
}

// NewPrinter returns a Printer on w
func NewPrinter(w io.Writer, noColor bool) *Printer {
	return &Printer{w: w, noColor: noColor}
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.w
}

func (p *Printer) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if p.noColor {
		c.DisableColor()
	}
	return c
}

// Success prints a green check line
func (p *Printer) Success(format string, args ...interface{}) {
	p.paint(color.FgGreen, color.Bold).Fprintf(p.w, "✓ "+format+"\n", args...)
}

// Info prints a cyan line
func (p *Printer) Info(format string, args ...interface{}) {
	p.paint(color.FgCyan).Fprintf(p.w, format+"\n", args...)
}

// Warn prints a yellow line
func (p *Printer) Warn(format string, args ...interface{}) {
	p.paint(color.FgYellow).Fprintf(p.w, "! "+format+"\n", args...)
}

// Problem describes a failed command for the user
type Problem struct {
	// Context is a short upper-case heading, e.g. "MIGRATION FAILED"
	Context string
	Message string
	// Hints are follow-up commands or actions
	Hints []string
}

// Error prints a Problem
func (p *Printer) Error(prob Problem) {
	fmt.Fprint(p.w, p.FormatProblem(prob))
}

// FormatProblem renders a Problem the way Error prints it
func (p *Printer) FormatProblem(prob Problem) string {
	var b strings.Builder
	head := p.paint(color.FgRed, color.Bold)
	if prob.Context != "" {
		head.Fprintf(&b, "✗ %s: %s\n", strings.ToUpper(prob.Context), prob.Message)
	} else {
		head.Fprintf(&b, "✗ %s\n", prob.Message)
	}

	if len(prob.Hints) > 0 {
		b.WriteString("\n")
		hint := p.paint(color.FgCyan)
		for _, h := range prob.Hints {
			hint.Fprintf(&b, "   → %s\n", h)
		}
	}
	return b.String()
}
