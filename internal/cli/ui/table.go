package ui

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Table renders rows under bold headers with columns aligned by width.
// Cells must be plain text, colors are applied per column.
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	colors  map[int]*color.Color
	noColor bool
}

// NewTable creates a table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{writer: w, headers: headers, colors: map[int]*color.Color{}, noColor: noColor}
}

// ColorColumn prints every cell of column i in c
func (t *Table) ColorColumn(i int, c *color.Color) *Table {
	t.colors[i] = c
	return t
}

// AddRow adds a row. Missing cells render empty, extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Len is the number of rows added
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, row := range t.rows {
		for i := 0; i < len(row) && i < len(widths); i++ {
			widths[i] = max(widths[i], utf8.RuneCountInString(row[i]))
		}
	}

	bold := t.style(color.New(color.Bold, color.FgCyan))
	gray := t.style(color.New(color.FgHiBlack))

	last := len(widths) - 1
	for i, h := range t.headers {
		bold.Fprint(t.writer, cell(h, widths[i], i == last))
		t.gap(i)
	}
	fmt.Fprintln(t.writer)
	for i, w := range widths {
		gray.Fprint(t.writer, strings.Repeat("─", w))
		t.gap(i)
	}
	fmt.Fprintln(t.writer)

	for _, row := range t.rows {
		for i := range widths {
			var v string
			if i < len(row) {
				v = row[i]
			}
			text := cell(v, widths[i], i == last)
			if c, ok := t.colors[i]; ok {
				t.style(c).Fprint(t.writer, text)
			} else {
				fmt.Fprint(t.writer, text)
			}
			t.gap(i)
		}
		fmt.Fprintln(t.writer)
	}
}

func (t *Table) gap(i int) {
	if i < len(t.headers)-1 {
		fmt.Fprint(t.writer, "  ")
	}
}

func (t *Table) style(c *color.Color) *color.Color {
	if t.noColor {
		c.DisableColor()
	}
	return c
}

// cell pads s to width. The last column is not padded so lines carry no
// trailing spaces.
func cell(s string, width int, last bool) string {
	n := utf8.RuneCountInString(s)
	if last || n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// KeyValueTable renders "key: value" lines with the values aligned
type KeyValueTable struct {
	writer  io.Writer
	keys    []string
	values  []string
	noColor bool
}

// NewKeyValueTable creates a key-value table
func NewKeyValueTable(w io.Writer, noColor bool) *KeyValueTable {
	return &KeyValueTable{writer: w, noColor: noColor}
}

// AddRow adds a key-value pair
func (t *KeyValueTable) AddRow(key, value string) {
	t.keys = append(t.keys, key)
	t.values = append(t.values, value)
}

// Render writes the table
func (t *KeyValueTable) Render() {
	width := 0
	for _, k := range t.keys {
		width = max(width, utf8.RuneCountInString(k)+1)
	}

	cyan := color.New(color.FgCyan, color.Bold)
	if t.noColor {
		cyan.DisableColor()
	}
	for i, k := range t.keys {
		cyan.Fprint(t.writer, cell(k+":", width, false))
		fmt.Fprintf(t.writer, " %s\n", t.values[i])
	}
}

// Header writes a bold title underlined to its width
func Header(w io.Writer, title string, noColor bool) {
	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	if noColor {
		bold.DisableColor()
		gray.DisableColor()
	}
	bold.Fprintln(w, title)
	gray.Fprintln(w, strings.Repeat("─", utf8.RuneCountInString(title)))
}
