package preprocessor

import (
	"fmt"

	"github.com/1604042736/c/internal/lexer"
)

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// MarshalText lets encoders print the severity by name.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText is the inverse of MarshalText.
func (s *Severity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "error":
		*s = SeverityError
	case "warning":
		*s = SeverityWarning
	default:
		return fmt.Errorf("unknown severity %q", text)
	}
	return nil
}

// Diagnostic is a recoverable problem found in the source. The offending
// logical line has been skipped; preprocessing went on after it.
type Diagnostic struct {
	Severity Severity       `json:"severity"`
	Pos      lexer.Position `json:"pos"`
	Message  string         `json:"message"`
}

// Error formats the diagnostic as "file:line:col: severity: message".
func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s: %s", d.Pos, d.Severity, d.Message)
}
