// Package rulesdsl compiles YAML rule packs into rules.Rule records. A pack
// rule matches call sites or constructor invocations by name pattern and can
// further require a literal or a runtime-built argument.
package rulesdsl

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"factlint/internal/facts"
	"factlint/internal/ir"
	"factlint/internal/rules"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed pack.schema.json
var packSchemaJSON string

// packSchema rejects unknown keys and mistyped values before compilation.
var packSchema = jsonschema.MustCompileString("pack.schema.json", packSchemaJSON)

type dslPack struct {
	Rules []dslRule `yaml:"rules"`
}

type dslRule struct {
	ID         string `yaml:"id"`
	Summary    string `yaml:"summary"`
	Category   string `yaml:"category"`
	Severity   string `yaml:"severity"` // INFO|WARNING|ERROR
	Message    string `yaml:"message"`
	Suggestion string `yaml:"suggestion"`

	Where struct {
		Call         string `yaml:"call"`          // regex on the called method name
		ReceiverType string `yaml:"receiver_type"` // regex on the receiver's static type
		New          string `yaml:"new"`           // regex on the constructed type
		Arg          *int   `yaml:"arg"`           // argument index the checks below apply to, default 0
		ArgLiteral   string `yaml:"arg_literal"`   // regex on a string literal argument
		ArgBuilt     bool   `yaml:"arg_built"`     // argument concatenates a non-literal value
		Discarded    bool   `yaml:"discarded"`     // call result is not used
	} `yaml:"where"`
}

type compiled struct {
	rule       dslRule
	reCall     *regexp.Regexp
	reReceiver *regexp.Regexp
	reNew      *regexp.Regexp
	reLiteral  *regexp.Regexp
	arg        int
}

// Load reads one pack file.
func Load(path string) ([]rules.Rule, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules pack: %w", err)
	}
	out, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return out, nil
}

// LoadAll reads several packs, keeping their order.
func LoadAll(paths []string) ([]rules.Rule, error) {
	var out []rules.Rule
	for _, p := range paths {
		rs, err := Load(p)
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}
	return out, nil
}

// Parse compiles the rules of a pack document.
func Parse(b []byte) ([]rules.Rule, error) {
	if err := validate(b); err != nil {
		return nil, err
	}
	var pack dslPack
	if err := yaml.Unmarshal(b, &pack); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	out := make([]rules.Rule, 0, len(pack.Rules))
	for _, r := range pack.Rules {
		rule, err := compile(r)
		if err != nil {
			return nil, fmt.Errorf("compile rule %q: %w", r.ID, err)
		}
		out = append(out, rule)
	}
	return out, nil
}

// validate checks the document against packSchema. The schema works on JSON
// values, so the YAML tree is converted first.
func validate(b []byte) error {
	var doc any
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	j, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("convert pack: %w", err)
	}
	var inst any
	if err := json.Unmarshal(j, &inst); err != nil {
		return fmt.Errorf("convert pack: %w", err)
	}
	if err := packSchema.Validate(inst); err != nil {
		return fmt.Errorf("validate schema: %w", err)
	}
	return nil
}

func compile(r dslRule) (rules.Rule, error) {
	if r.ID == "" || r.Category == "" || r.Severity == "" || r.Message == "" {
		return rules.Rule{}, errors.New("missing required fields (id/category/severity/message)")
	}
	sev, err := ir.ParseSeverity(r.Severity)
	if err != nil {
		return rules.Rule{}, err
	}

	c := &compiled{rule: r}
	if r.Where.Arg != nil {
		if *r.Where.Arg < 0 {
			return rules.Rule{}, fmt.Errorf("arg index %d is negative", *r.Where.Arg)
		}
		c.arg = *r.Where.Arg
	}
	patterns := []struct {
		name string
		src  string
		dst  **regexp.Regexp
	}{
		{"call", r.Where.Call, &c.reCall},
		{"receiver_type", r.Where.ReceiverType, &c.reReceiver},
		{"new", r.Where.New, &c.reNew},
		{"arg_literal", r.Where.ArgLiteral, &c.reLiteral},
	}
	for _, p := range patterns {
		if p.src == "" {
			continue
		}
		re, err := anchored(p.src)
		if err != nil {
			return rules.Rule{}, fmt.Errorf("%s: %w", p.name, err)
		}
		*p.dst = re
	}
	switch {
	case c.reCall == nil && c.reNew == nil:
		return rules.Rule{}, errors.New("where needs call or new")
	case c.reCall != nil && c.reNew != nil:
		return rules.Rule{}, errors.New("where takes call or new, not both")
	case c.reNew != nil && (c.reReceiver != nil || r.Where.Discarded):
		return rules.Rule{}, errors.New("receiver_type and discarded apply to call rules only")
	}

	summary := r.Summary
	if summary == "" {
		summary = r.Message
	}
	return rules.Rule{
		ID:       strings.ToUpper(strings.TrimSpace(r.ID)),
		Summary:  summary,
		Category: ir.Category(strings.ToUpper(strings.TrimSpace(r.Category))),
		Severity: sev,
		Check:    c.check,
	}, nil
}

// anchored compiles a name pattern that must match the whole name.
func anchored(expr string) (*regexp.Regexp, error) {
	return regexp.Compile("^(?:" + expr + ")$")
}

func (c *compiled) check(in *rules.Input) []rules.Hit {
	var out []rules.Hit
	if c.reCall != nil {
		for _, call := range facts.All[facts.CallSite](in.Facts) {
			if !c.reCall.MatchString(call.Callee) {
				continue
			}
			if c.reReceiver != nil && !c.reReceiver.MatchString(call.ReceiverType) {
				continue
			}
			if c.rule.Where.Discarded && call.ResultUsed {
				continue
			}
			if !c.argMatches(in, call.Args, call.Site) {
				continue
			}
			out = append(out, c.hit(call.Site, call.Callee))
		}
		return out
	}
	for _, n := range facts.All[facts.NewObject](in.Facts) {
		if c.reNew.MatchString(n.Type) && c.argMatches(in, n.Args, n.Site) {
			out = append(out, c.hit(n.Site, n.Type))
		}
	}
	return out
}

func (c *compiled) argMatches(in *rules.Input, args []facts.Value, site facts.Site) bool {
	if c.reLiteral == nil && !c.rule.Where.ArgBuilt {
		return true
	}
	if c.arg >= len(args) {
		return false
	}
	v := in.ValueAt(args[c.arg], site)
	if c.reLiteral != nil && !(v.IsStringLiteral() && c.reLiteral.MatchString(v.Text)) {
		return false
	}
	if c.rule.Where.ArgBuilt && !rules.Built(v) {
		return false
	}
	return true
}

// hit expands {name} in the message and suggestion to the matched method or
// type name.
func (c *compiled) hit(site facts.Site, name string) rules.Hit {
	expand := strings.NewReplacer("{name}", name)
	return rules.Hit{
		Site:       site,
		Message:    expand.Replace(c.rule.Message),
		Suggestion: expand.Replace(c.rule.Suggestion),
	}
}
