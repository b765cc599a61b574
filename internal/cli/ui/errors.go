// Package ui formats the command line's human-facing messages
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// ErrorLevel is the severity of a message and picks its symbol and color
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

type levelStyle struct {
	symbol string
	attr   color.Attribute
}

var levelStyles = map[ErrorLevel]levelStyle{
	ErrorLevelError:   {"❌", color.FgRed},
	ErrorLevelWarning: {"⚠️", color.FgYellow},
	ErrorLevelInfo:    {"ℹ️", color.FgCyan},
}

// ErrorOptions describes a message. Only Problem is required.
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

func (o ErrorOptions) paint(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if o.NoColor {
		c.DisableColor()
	}
	return c
}

// FormatError renders a message like:
//
//	❌ MIGRATION FAILED: constraint violation
//
//	   The database was left at version 2.
//
//	   Try: check for duplicate rows
//
//	   → Check migration status: habitnation migrate status
func FormatError(opts ErrorOptions) string {
	style, ok := levelStyles[opts.Level]
	if !ok {
		style = levelStyles[ErrorLevelError]
	}

	headline := style.symbol + " " + opts.Problem
	if opts.Context != "" {
		headline = fmt.Sprintf("%s %s: %s", style.symbol, strings.ToUpper(opts.Context), opts.Problem)
	}

	var b strings.Builder
	opts.paint(style.attr, color.Bold).Fprintln(&b, headline)

	section := func(c *color.Color, prefix string, lines []string) {
		if len(lines) == 0 {
			return
		}
		b.WriteByte('\n')
		for _, line := range lines {
			c.Fprintf(&b, "   %s%s\n", prefix, line)
		}
	}
	if opts.Consequence != "" {
		section(opts.paint(style.attr), "", []string{opts.Consequence})
	}
	section(opts.paint(color.FgYellow), "Try: ", opts.Suggestions)
	section(opts.paint(color.FgCyan), "→ ", opts.HelpCommands)

	return b.String()
}

// WriteError writes FormatError(opts) to w
func WriteError(w io.Writer, opts ErrorOptions) {
	io.WriteString(w, FormatError(opts))
}

// FormatSuccess renders a one-line confirmation
func FormatSuccess(message string, noColor bool) string {
	return ErrorOptions{NoColor: noColor}.paint(color.FgGreen, color.Bold).Sprint("✓ " + message)
}

// WriteSuccess writes FormatSuccess and a newline to w
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// DatabaseError explains a failure to reach the configured database
func DatabaseError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context: "database unavailable",
		Problem: message,
		Suggestions: []string{
			"set HABITNATION_DATABASE_URL (or DATABASE_URL)",
			"use database.driver sqlite3 for a local file database",
		},
		HelpCommands: []string{"Get help: habitnation --help"},
		NoColor:      noColor,
	})
}

// MigrationError reports a failed migrate up or down. consequence says
// what state the schema was left in.
func MigrationError(message, consequence string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context:     "migration failed",
		Problem:     message,
		Consequence: consequence,
		HelpCommands: []string{
			"Check migration status: habitnation migrate status",
			"Roll back: habitnation migrate down",
			"Show details: habitnation migrate up --verbose",
		},
		NoColor: noColor,
	})
}

// ConfigError reports a configuration file or environment problem
func ConfigError(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Context: "configuration error",
		Problem: message,
		HelpCommands: []string{
			"View config: cat habitnation.yml",
			"Get help: habitnation --help",
		},
		NoColor: noColor,
	})
}
