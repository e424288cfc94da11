package ir

import (
	"fmt"
	"strings"
)

// Version tags every serialized report.
const Version = "factlint.report/v1"

// Severity is ordered: INFO < WARNING < ERROR.
type Severity int

const (
	SeverityInfo Severity = iota + 1
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity accepts the names above in any case, plus WARN.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "INFO":
		return SeverityInfo, nil
	case "WARNING", "WARN":
		return SeverityWarning, nil
	case "ERROR":
		return SeverityError, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Category groups rules. The set is open; custom rules may use any name.
type Category string

const (
	CategoryNullSafety      Category = "NULL_SAFETY"
	CategoryResourceLeak    Category = "RESOURCE_LEAK"
	CategoryInjection       Category = "INJECTION"
	CategoryWeakCrypto      Category = "WEAK_CRYPTO"
	CategoryConcurrency     Category = "CONCURRENCY"
	CategoryReflection      Category = "REFLECTION"
	CategoryInfoDisclosure  Category = "INFO_DISCLOSURE"
	CategoryDeserialization Category = "DESERIALIZATION"
	CategoryErrorHandling   Category = "ERROR_HANDLING"
	CategoryCorrectness     Category = "CORRECTNESS"
)

// Location points at a byte range inside a unit.
type Location struct {
	Unit   string `json:"unit"`
	Offset int    `json:"offset"`
	End    int    `json:"end"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Finding is one rule firing.
type Finding struct {
	ID         string   `json:"id"`
	RuleID     string   `json:"rule_id"`
	Severity   Severity `json:"severity"`
	Category   Category `json:"category"`
	Location   Location `json:"location"`
	Message    string   `json:"message"`
	Suggestion string   `json:"suggestion,omitempty"`
}

// Key identifies a finding site for deduplication.
type Key struct {
	RuleID string
	Unit   string
	Offset int
}

func (f Finding) Key() Key {
	return Key{RuleID: f.RuleID, Unit: f.Location.Unit, Offset: f.Location.Offset}
}

// Less orders findings by unit, offset and rule identifier.
func Less(a, b Finding) bool {
	if a.Location.Unit != b.Location.Unit {
		return a.Location.Unit < b.Location.Unit
	}
	if a.Location.Offset != b.Location.Offset {
		return a.Location.Offset < b.Location.Offset
	}
	return a.RuleID < b.RuleID
}

// Record is the flat interchange form of a finding.
type Record struct {
	Unit     string `json:"unit"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	RuleID   string `json:"ruleId"`
	Severity string `json:"severity"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

func (f Finding) Record() Record {
	return Record{
		Unit:     f.Location.Unit,
		Line:     f.Location.Line,
		Column:   f.Location.Column,
		RuleID:   f.RuleID,
		Severity: f.Severity.String(),
		Category: string(f.Category),
		Message:  f.Message,
	}
}
