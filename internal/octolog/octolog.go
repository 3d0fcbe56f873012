// Package octolog is the CLI's output log. It is the teacher's Logger
// (logger.go: an append-only []string buffer with a scroll position for a
// GUI scrollback) repurposed for a one-shot command-line invocation: there
// is no window to scroll, so what the teacher uses for pos/Window/ScrollUp
// is replaced here with grouping by diag.Severity and a final drain to an
// io.Writer, but the buffer-of-lines shape is unchanged.
package octolog

import (
	"fmt"
	"io"
	"strings"

	"github.com/chiplet-go/octoasm/internal/diag"
)

// Log collects lines to print at the end of a compile, grouped by the
// severity they were recorded at. Like the teacher's Logger, it is just an
// append-only buffer; nothing here is safe for concurrent use, matching
// the rest of this toolchain's one-compile-per-Assembler rule.
type Log struct {
	info []string
	warn []string
	err  []string
}

// New creates an empty Log.
func New() *Log {
	return &Log{}
}

// Info records an informational line.
func (l *Log) Info(s ...string) {
	l.info = append(l.info, strings.Join(s, " "))
}

// Warning records a warning line.
func (l *Log) Warning(s ...string) {
	l.warn = append(l.warn, strings.Join(s, " "))
}

// Error records an error line.
func (l *Log) Error(s ...string) {
	l.err = append(l.err, strings.Join(s, " "))
}

// CaptureDiagnostics appends every diag.Result to the matching severity
// bucket, formatted the way diag.Result.Error already renders a single
// diagnostic (file:line:col: severity: message).
func (l *Log) CaptureDiagnostics(results []diag.Result) {
	for _, r := range results {
		line := r.Error()
		switch r.Severity {
		case diag.Warning:
			l.warn = append(l.warn, line)
		case diag.Error:
			l.err = append(l.err, line)
		default:
			l.info = append(l.info, line)
		}
	}
}

// Empty reports whether nothing has been logged at any severity.
func (l *Log) Empty() bool {
	return len(l.info) == 0 && len(l.warn) == 0 && len(l.err) == 0
}

// WriteTo drains the log to w, errors last so they're the last thing a
// terminal scrollback shows.
func (l *Log) WriteTo(w io.Writer) {
	for _, s := range l.info {
		fmt.Fprintln(w, s)
	}
	for _, s := range l.warn {
		fmt.Fprintln(w, "warning:", s)
	}
	for _, s := range l.err {
		fmt.Fprintln(w, "error:", s)
	}
}
