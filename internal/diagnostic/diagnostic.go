package diagnostic

import (
	"fmt"
	"strings"
)

// Severity represents the severity level of a diagnostic message
type Severity int

const (
	Error Severity = iota
	Warning
)

// String returns the string representation of the severity level
func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic represents a single error or warning with its source position
type Diagnostic struct {
	Severity Severity
	Message  string
	File     string
	Line     int
	Column   int
}

// String renders one diagnostic as severity[file:line:col]: message
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s[%s:%d:%d]: %s", d.Severity, d.File, d.Line, d.Column, d.Message)
}

// Diagnostics manages a collection of diagnostic messages
type Diagnostics struct {
	file  string
	items []Diagnostic
}

// New creates an empty Diagnostics collection for the given file
func New(file string) *Diagnostics {
	return &Diagnostics{file: file}
}

// Errorf adds an error diagnostic with formatted message
func (d *Diagnostics) Errorf(line, col int, format string, args ...interface{}) {
	d.items = append(d.items, Diagnostic{
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		File:     d.file,
		Line:     line,
		Column:   col,
	})
}

// Warningf adds a warning diagnostic with formatted message
func (d *Diagnostics) Warningf(line, col int, format string, args ...interface{}) {
	d.items = append(d.items, Diagnostic{
		Severity: Warning,
		Message:  fmt.Sprintf(format, args...),
		File:     d.file,
		Line:     line,
		Column:   col,
	})
}

// HasErrors returns true if there are any error-level diagnostics
func (d *Diagnostics) HasErrors() bool {
	for _, item := range d.items {
		if item.Severity == Error {
			return true
		}
	}
	return false
}

// All returns all diagnostics regardless of severity
func (d *Diagnostics) All() []Diagnostic {
	return d.items
}

// Count returns the total number of diagnostics
func (d *Diagnostics) Count() int {
	return len(d.items)
}

// Format returns the collected diagnostics as newline-separated messages
func (d *Diagnostics) Format() string {
	if len(d.items) == 0 {
		return ""
	}
	lines := make([]string, len(d.items))
	for i, item := range d.items {
		lines[i] = item.String()
	}
	return strings.Join(lines, "\n")
}
