// Package diag carries the structured diagnostic state shared by the
// preprocessor and the assembler: a severity, a message, and a stack of
// source locations that lets a single error message be traced back through
// every `:include` and macro expansion that was active when it fired.
//
// The error model is the teacher's: a dedicated "is this broken" flag plus
// a single-shot message, checked by the caller rather than unwound through
// Go's error return values. Internally that flag is Go's own panic/recover,
// which is the idiomatic equivalent for "abort the current compile, but
// never during anything else".
package diag

import "fmt"

// Severity orders the four outcomes a compile step can report.
type Severity int

const (
	Ok Severity = iota
	Info
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "ok"
	}
}

// Role names why a Frame is on the location stack.
type Role int

const (
	// Root is the frame for the file that was passed to Assemble/Preprocess.
	Root Role = iota
	// Included marks a frame pushed by resolving a `:include`.
	Included
	// Instantiated marks a frame pushed by expanding a macro or string-mode.
	Instantiated
)

func (r Role) String() string {
	switch r {
	case Included:
		return "included"
	case Instantiated:
		return "instantiated"
	default:
		return "root"
	}
}

// Frame is one entry of a location stack.
type Frame struct {
	File   string
	Line   int
	Column int
	Role   Role
}

// Result is a single, fully formed diagnostic: a severity, a message, and
// the ordered stack of locations active when it was raised. Locations[0]
// is innermost (where the problem actually is); the last entry is the Root
// frame of the compile.
type Result struct {
	Severity  Severity
	Message   string
	Locations []Frame
}

func (r Result) Error() string {
	if len(r.Locations) == 0 {
		return r.Message
	}
	top := r.Locations[0]
	return fmt.Sprintf("%s:%d:%d: %s: %s", top.File, top.Line, top.Column, r.Severity, r.Message)
}

// Sink accumulates non-fatal Results (Info/Warning) as compilation proceeds
// and tracks the current include/macro-expansion location stack so that a
// fatal error raised deep inside a nested expansion can be reported with
// full context.
//
// A Sink is owned exclusively by one Assembler/Preprocessor instance; it is
// never shared between concurrent compiles (spec.md §5).
type Sink struct {
	stack   []Frame
	results []Result
}

// New creates a Sink rooted at the given file.
func New(file string) *Sink {
	s := &Sink{}
	s.stack = append(s.stack, Frame{File: file, Line: 1, Column: 1, Role: Root})
	return s
}

// Push enters a new include or macro-expansion frame.
func (s *Sink) Push(file string, line, col int, role Role) {
	s.stack = append(s.stack, Frame{File: file, Line: line, Column: col, Role: role})
}

// Pop leaves the most recently pushed frame.
func (s *Sink) Pop() {
	if len(s.stack) > 1 {
		s.stack = s.stack[:len(s.stack)-1]
	}
}

// SetPosition updates the line/column of the current (innermost) frame -
// called by the preprocessor as it advances through a file, and by
// Assemble with the failing statement's position, so that a panic reports
// where it happened.
func (s *Sink) SetPosition(line, col int) {
	s.stack[len(s.stack)-1].Line = line
	s.stack[len(s.stack)-1].Column = col
}

// locations returns the current stack, innermost first.
func (s *Sink) locations() []Frame {
	out := make([]Frame, len(s.stack))
	for i, f := range s.stack {
		out[len(s.stack)-1-i] = f
	}
	return out
}

// Record appends a non-fatal diagnostic (Info or Warning) at the current
// location.
func (s *Sink) Record(sev Severity, format string, args ...interface{}) {
	s.results = append(s.results, Result{
		Severity:  sev,
		Message:   fmt.Sprintf(format, args...),
		Locations: s.locations(),
	})
}

// Results returns every non-fatal diagnostic recorded so far.
func (s *Sink) Results() []Result {
	return s.results
}

// Fatalf panics with a formatted message. The panic is expected to be
// recovered by the top-level Assemble/Preprocess call, which turns it into
// a Result via Capture. No emission may happen after Fatalf is called -
// that invariant is enforced by the caller never returning normally.
func (s *Sink) Fatalf(format string, args ...interface{}) {
	panic(fmt.Errorf(format, args...))
}

// Capture turns a recovered panic value into a final, fatal Result using
// the Sink's current location stack.
func (s *Sink) Capture(r interface{}) Result {
	msg := fmt.Sprintf("%v", r)
	return Result{
		Severity:  Error,
		Message:   msg,
		Locations: s.locations(),
	}
}
