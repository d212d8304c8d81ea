// Package screening detects injection patterns in stored display text.
//
// Workspace, project, model, and material names and descriptions are stored
// verbatim and echoed into other users' clients. Screening rejects
// script-bearing or SQL-shaped text at the API boundary instead of trusting
// output encoding alone.
package screening

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// Kinds of flagged input.
const (
	KindSQLi = "sqli"
	KindXSS  = "xss"
)

// Result contains the details of a flagged field value.
type Result struct {
	Field       string // name of the screened field
	Value       string // the flagged text
	Kind        string // KindSQLi or KindXSS
	Fingerprint string // libinjection fingerprint of the detected pattern (sqli only)
}

// CheckText screens one field of display text for SQL injection and XSS
// payloads. Returns nil if the text is clean.
//
// Example:
//
//	// Safe value - no hit
//	result := CheckText("name", "Living room draft")
//	// result == nil
//
//	// Injection attempt detected
//	result := CheckText("name", "'; DROP TABLE workspaces--")
//	// result.Kind == "sqli"
//	// result.Fingerprint == "s&1c" (or similar)
func CheckText(field, value string) *Result {
	if value == "" {
		return nil
	}

	if isSQLi, fingerprint := libinjection.IsSQLi(value); isSQLi {
		return &Result{
			Field:       field,
			Value:       value,
			Kind:        KindSQLi,
			Fingerprint: string(fingerprint),
		}
	}

	if libinjection.IsXSS(value) {
		return &Result{
			Field: field,
			Value: value,
			Kind:  KindXSS,
		}
	}

	return nil
}
