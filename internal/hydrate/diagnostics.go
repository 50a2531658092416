package hydrate

import (
	"fmt"
	"strings"
)

// Severity grades a decode diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota + 1
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// Diagnostic records one decode-time warning or error.
type Diagnostic struct {
	Severity Severity
	Path     string
	Message  string
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s: %s", d.Severity, d.Message)
	}
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Path, d.Message)
}

// Diagnostics is the ordered set of events produced by a single decode.
type Diagnostics []Diagnostic

// HasErrors reports whether any event has error severity.
func (d Diagnostics) HasErrors() bool {
	for _, diag := range d {
		if diag.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error-severity events.
func (d Diagnostics) Errors() Diagnostics {
	var out Diagnostics
	for _, diag := range d {
		if diag.Severity == SeverityError {
			out = append(out, diag)
		}
	}
	return out
}

// String formats the events one per line.
func (d Diagnostics) String() string {
	lines := make([]string, 0, len(d))
	for _, diag := range d {
		lines = append(lines, diag.String())
	}
	return strings.Join(lines, "\n")
}
