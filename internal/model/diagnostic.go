// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
package model

import (
	"fmt"
	"strings"
)

// Severity is the level of a diagnostic.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// ParseSeverity maps the severity strings used by logic compilers. Unknown
// values are treated as errors.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info", "information":
		return SeverityInfo
	case "warning", "warn":
		return SeverityWarning
	default:
		return SeverityError
	}
}

// Diagnostic is a severity-tagged message about one artifact.
type Diagnostic struct {
	Severity Severity
	// Source names the stage that produced the message, e.g. "compiler".
	Source  string
	Library string
	Message string
	// Line is the 1-based source line, 0 when unknown.
	Line int
}

// String formats the diagnostic for logs and reports.
func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("[%s] %s:%d %s", d.Severity, d.Library, d.Line, d.Message)
	}
	if d.Library != "" {
		return fmt.Sprintf("[%s] %s: %s", d.Severity, d.Library, d.Message)
	}
	return fmt.Sprintf("[%s] %s", d.Severity, d.Message)
}

// HasErrors reports whether any diagnostic has Error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}
