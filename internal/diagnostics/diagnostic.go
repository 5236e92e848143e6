package diagnostics

import (
	"encoding/json"
	"fmt"

	"github.com/nominalang/check/internal/ast"
)

// Severity distinguishes fatal diagnostics from advisories.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	default:
		return "error"
	}
}

// Diagnostic is one reported finding, modeled on the teacher's
// TypeCheckError (internal/types/errors.go) and Report (internal/errors/report.go).
type Diagnostic struct {
	Code     Code
	Severity Severity
	Message  string
	Site     ast.Pos
	Notes    []string // attached notes, e.g. conformance-failure detail
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Site, d.Code, d.Message)
}

// jsonDiagnostic mirrors the teacher's JSON encoder convention
// (internal/errors/json_encoder.go): stable field names, omitempty for
// optional data, schema-versioned for downstream consumers.
type jsonDiagnostic struct {
	Schema   string   `json:"schema"`
	Code     string   `json:"code"`
	Severity string   `json:"severity"`
	Message  string   `json:"message"`
	Site     string   `json:"site,omitempty"`
	Notes    []string `json:"notes,omitempty"`
}

func (d Diagnostic) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonDiagnostic{
		Schema:   "nominalcheck.diagnostic/v1",
		Code:     string(d.Code),
		Severity: d.Severity.String(),
		Message:  d.Message,
		Site:     d.Site.String(),
		Notes:    d.Notes,
	})
}
