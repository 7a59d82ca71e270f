package printer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
)

func init() {
	// Force color output even when not connected to TTY
	// Users can disable with NO_COLOR environment variable
	if os.Getenv("NO_COLOR") == "" {
		color.NoColor = false
	}
}

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	red    = color.New(color.FgRed, color.Bold)
	cyan   = color.New(color.FgCyan)
)

// Printer writes CLI messages. Regular output goes to Out, errors to Err.
type Printer struct {
	Out io.Writer
	Err io.Writer
}

// New creates a printer over the given writers.
func New(out, errOut io.Writer) *Printer {
	return &Printer{Out: out, Err: errOut}
}

// Success prints a success message in green with a checkmark prefix
func (p *Printer) Success(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "✓") {
		msg = "✓ " + msg
	}
	green.Fprint(p.Out, msg)
}

// Info prints an informational message in the default color
func (p *Printer) Info(format string, a ...any) {
	fmt.Fprintf(p.Out, format, a...)
}

// Warning prints a warning message in yellow to Err
func (p *Printer) Warning(format string, a ...any) {
	msg := fmt.Sprintf(format, a...)
	if !strings.HasPrefix(msg, "⚠️") {
		msg = "⚠️  " + msg
	}
	yellow.Fprint(p.Err, msg)
}

// Step prints a step message with emphasis (used in multi-step operations)
func (p *Printer) Step(format string, a ...any) {
	cyan.Fprintf(p.Out, "→ %s", fmt.Sprintf(format, a...))
}

// Error prints a formatted error with title, explanation and suggestions to
// Err, and returns a simple error for Cobra.
func (p *Printer) Error(title string, explanation string, suggestions []string) error {
	return p.ErrorWithContext(title, explanation, nil, suggestions)
}

// ErrorWithContext is Error with key/value context details, printed in key order.
func (p *Printer) ErrorWithContext(title string, explanation string, context map[string]string, suggestions []string) error {
	red.Fprintf(p.Err, "%s\n\n", title)

	if explanation != "" {
		fmt.Fprintf(p.Err, "%s\n", explanation)
	}

	if len(context) > 0 {
		keys := make([]string, 0, len(context))
		for k := range context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(p.Err)
		for _, k := range keys {
			fmt.Fprintf(p.Err, "  %s: %s\n", k, context[k])
		}
	}

	if len(suggestions) > 0 {
		fmt.Fprintln(p.Err)
		if len(suggestions) == 1 {
			fmt.Fprintf(p.Err, "%s\n", suggestions[0])
		} else {
			fmt.Fprintf(p.Err, "Either:\n")
			for i, suggestion := range suggestions {
				fmt.Fprintf(p.Err, "  %d. %s\n", i+1, suggestion)
			}
		}
	}

	// Won't be printed again due to SilenceErrors
	return fmt.Errorf("%s", title)
}
