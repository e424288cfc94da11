package rules

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"factlint/internal/ir"
)

// builtin holds the rules compiled into the binary. rule_*.go files append to
// it from init; it is read-only afterwards.
var builtin []Rule

func register(r Rule) {
	builtin = append(builtin, r)
}

// Builtin returns a copy of the compiled-in rules sorted by ID.
func Builtin() []Rule {
	out := append([]Rule(nil), builtin...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

var ErrFrozen = errors.New("rule registry is frozen")

// Registry maps rule IDs to rules. It is populated by NewRegistry and never
// changes afterwards, so it may be shared by concurrent evaluations.
type Registry struct {
	rules    []Rule
	index    map[string]int // normalized ID -> rules index
	settings Settings
	frozen   bool
}

// Option configures a registry before it is frozen.
type Option func(*Registry) error

// WithRules registers extra rules, e.g. compiled rule packs.
func WithRules(rs ...Rule) Option {
	return func(r *Registry) error {
		for _, rule := range rs {
			if err := r.Register(rule); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithSettings applies enablement and severity settings.
func WithSettings(s Settings) Option {
	return func(r *Registry) error {
		r.settings = Settings{Disabled: map[string]bool{}, Severity: map[string]ir.Severity{}}
		for id, off := range s.Disabled {
			r.settings.Disabled[normalize(id)] = off
		}
		for id, sev := range s.Severity {
			r.settings.Severity[normalize(id)] = sev
		}
		return nil
	}
}

// WithoutBuiltins starts from an empty registry.
func WithoutBuiltins() Option {
	return func(r *Registry) error {
		r.rules = nil
		r.index = map[string]int{}
		return nil
	}
}

// NewRegistry builds a frozen registry from the built-in rules and opts.
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{index: map[string]int{}}
	for _, b := range builtin {
		if err := r.Register(b); err != nil {
			return nil, fmt.Errorf("builtin rule: %w", err)
		}
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	if err := r.applySettings(); err != nil {
		return nil, err
	}
	r.frozen = true
	return r, nil
}

// Register adds a rule. It fails once the registry is frozen, on duplicate
// IDs and on incomplete rules.
func (r *Registry) Register(rule Rule) error {
	if r.frozen {
		return ErrFrozen
	}
	rule.ID = strings.TrimSpace(rule.ID)
	switch {
	case rule.ID == "":
		return errors.New("rule without id")
	case rule.Check == nil:
		return fmt.Errorf("rule %s: no check function", rule.ID)
	case rule.Category == "":
		return fmt.Errorf("rule %s: no category", rule.ID)
	case rule.Severity.String() == "UNKNOWN":
		return fmt.Errorf("rule %s: invalid severity %d", rule.ID, rule.Severity)
	}
	key := normalize(rule.ID)
	if _, dup := r.index[key]; dup {
		return fmt.Errorf("rule %s registered twice", rule.ID)
	}
	r.rules = append(r.rules, rule)
	r.index[key] = len(r.rules) - 1
	return nil
}

func (r *Registry) applySettings() error {
	for id, off := range r.settings.Disabled {
		if !off {
			continue
		}
		if _, ok := r.index[normalize(id)]; !ok {
			return fmt.Errorf("disable unknown rule %q", id)
		}
	}
	for id, sev := range r.settings.Severity {
		i, ok := r.index[normalize(id)]
		if !ok {
			return fmt.Errorf("severity for unknown rule %q", id)
		}
		r.rules[i].Severity = sev
	}
	return nil
}

// Enabled reports whether the rule is registered and not disabled.
func (r *Registry) Enabled(id string) bool {
	if _, ok := r.index[normalize(id)]; !ok {
		return false
	}
	return !r.settings.disabled(id)
}

// List returns the enabled rules sorted by ID.
func (r *Registry) List() []Rule {
	out := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		if r.settings.disabled(rule.ID) {
			continue
		}
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// All returns every registered rule, enabled or not, sorted by ID.
func (r *Registry) All() []Rule {
	out := append([]Rule(nil), r.rules...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns a rule by ID, case-insensitively.
func (r *Registry) Get(id string) (Rule, bool) {
	i, ok := r.index[normalize(id)]
	if !ok {
		return Rule{}, false
	}
	return r.rules[i], true
}

func normalize(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
