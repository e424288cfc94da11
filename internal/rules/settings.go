package rules

import (
	"fmt"

	"factlint/internal/ir"
)

// Settings tunes a registry: which rules run and at what severity.
type Settings struct {
	Disabled map[string]bool
	Severity map[string]ir.Severity
}

// ParseSettings builds Settings from config values.
func ParseSettings(disabled []string, severity map[string]string) (Settings, error) {
	s := Settings{
		Disabled: map[string]bool{},
		Severity: map[string]ir.Severity{},
	}
	for _, id := range disabled {
		s.Disabled[normalize(id)] = true
	}
	for id, name := range severity {
		sev, err := ir.ParseSeverity(name)
		if err != nil {
			return Settings{}, fmt.Errorf("rule %s: %w", id, err)
		}
		s.Severity[normalize(id)] = sev
	}
	return s, nil
}

func (s Settings) disabled(id string) bool {
	return s.Disabled[normalize(id)]
}
