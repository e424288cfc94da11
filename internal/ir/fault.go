package ir

import "fmt"

// FaultKind separates degraded analysis from findings.
type FaultKind string

const (
	FaultParse     FaultKind = "parse"
	FaultEngine    FaultKind = "engine"
	FaultMalformed FaultKind = "malformed"
)

// Fault is a diagnostic about the analysis itself, never about the code.
type Fault struct {
	Kind    FaultKind `json:"kind"`
	Unit    string    `json:"unit"`
	Rule    string    `json:"rule,omitempty"`
	Line    int       `json:"line,omitempty"`
	Message string    `json:"message"`
}

// ParseFault means a unit could not be turned into a Syntax Model and was
// excluded from analysis.
type ParseFault struct {
	Unit string
	Err  error
}

func (e *ParseFault) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Unit, e.Err)
}

func (e *ParseFault) Unwrap() error { return e.Err }

func (e *ParseFault) Fault() Fault {
	return Fault{Kind: FaultParse, Unit: e.Unit, Message: e.Error()}
}

// EngineFault is a rule that panicked on one unit.
type EngineFault struct {
	Unit  string
	Rule  string
	Cause any
}

func (e *EngineFault) Error() string {
	return fmt.Sprintf("rule %s failed on %s: %v", e.Rule, e.Unit, e.Cause)
}

func (e *EngineFault) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

func (e *EngineFault) Fault() Fault {
	return Fault{Kind: FaultEngine, Unit: e.Unit, Rule: e.Rule, Message: e.Error()}
}
