package optimization

import "fmt"

// Severity tags a non-fatal diagnostic so callers can tell it apart from errors.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// Diagnostic codes.
const (
	CodeHesseFailed       = "hesse_failed"
	CodeMinosFixedParam   = "minos_fixed_parameter"
	CodeMinosNewMinimum   = "minos_new_minimum"
	CodeMinosInvalid      = "minos_invalid"
	CodeValueClamped      = "value_clamped"
	CodeCallLimit         = "call_limit_reached"
	CodeMadePosDef        = "covariance_made_posdef"
	CodeContourIncomplete = "contour_incomplete"
)

// Diagnostic is a non-fatal condition reported by an operation that still
// completed, usually with a degraded result.
type Diagnostic struct {
	Severity Severity
	Code     string
	Op       string
	Param    string
	Message  string
}

func (d Diagnostic) String() string {
	if d.Param != "" {
		return fmt.Sprintf("%s: %s: %s (parameter %q)", d.Severity, d.Op, d.Message, d.Param)
	}
	return fmt.Sprintf("%s: %s: %s", d.Severity, d.Op, d.Message)
}

// AsError promotes the diagnostic to a fatal *Error of KindDiagnostic.
func (d Diagnostic) AsError() *Error {
	return &Error{
		Kind:    KindDiagnostic,
		Op:      d.Op,
		Param:   d.Param,
		Message: fmt.Sprintf("%s: %s", d.Code, d.Message),
	}
}
