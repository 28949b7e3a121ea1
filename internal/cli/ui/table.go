package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Table collects rows and prints them in aligned columns
type Table struct {
	p       *Printer
	headers []string
	rows    [][]string
}

// Table starts a table with the given headers
func (p *Printer) Table(headers ...string) *Table {
	return &Table{p: p, headers: headers}
}

// AddRow adds a row. Missing cells render empty and extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
}

// Render prints the header, a rule and every row
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	w := t.p.w
	bold := t.p.paint(color.Bold, color.FgCyan)
	gray := t.p.paint(color.FgHiBlack)
	last := len(t.headers) - 1

	for i, h := range t.headers {
		bold.Fprint(w, pad(h, widths[i], i == last))
		if i < last {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)

	for i, width := range widths {
		gray.Fprint(w, strings.Repeat("─", width))
		if i < last {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)

	for _, row := range t.rows {
		for i, cell := range row {
			fmt.Fprint(w, pad(cell, widths[i], i == last))
			if i < last {
				fmt.Fprint(w, "  ")
			}
		}
		fmt.Fprintln(w)
	}
}

// KeyValues prints aligned "key: value" lines in the given order
func (p *Printer) KeyValues(pairs ...[2]string) {
	width := 0
	for _, kv := range pairs {
		if len(kv[0]) > width {
			width = len(kv[0])
		}
	}
	key := p.paint(color.FgCyan)
	for _, kv := range pairs {
		key.Fprint(p.w, pad(kv[0]+":", width+1, false))
		fmt.Fprintf(p.w, " %s\n", kv[1])
	}
}

func pad(s string, width int, last bool) string {
	if last || len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
