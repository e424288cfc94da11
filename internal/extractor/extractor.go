package extractor

import (
	"fmt"

	"factlint/internal/facts"
	"factlint/internal/syntax"
)

// Extractor turns a unit's Syntax Model into a frozen fact table. It is
// immutable and safe for concurrent use.
type Extractor struct {
	resources nameSet
	acquires  nameSet
	releases  nameSet
	helpers   nameSet
	taskTypes nameSet
	spawners  nameSet
	mutators  nameSet
}

// New creates an extractor from cfg.
func New(cfg Config) *Extractor {
	return &Extractor{
		resources: newNameSet(cfg.ResourceTypes),
		acquires:  newNameSet(cfg.AcquireCalls),
		releases:  newNameSet(cfg.ReleaseCalls),
		helpers:   newNameSet(cfg.ReleaseHelpers),
		taskTypes: newNameSet(cfg.TaskTypes),
		spawners:  newNameSet(cfg.TaskSpawners),
		mutators:  newNameSet(cfg.MutatingCalls),
	}
}

// Extract walks u once, depth-first in source order. Malformed subtrees are
// recorded as facts.Malformed and skipped; the rest of the unit is still
// extracted.
func (e *Extractor) Extract(u *syntax.Unit) *facts.Table {
	b := facts.NewBuilder(u.ID, u.Span())
	w := &walker{e: e, b: b, known: declaredClasses(u.Root)}
	w.visit(u.Root)
	return b.Freeze()
}

type binding struct {
	sym  facts.Symbol
	typ  string
	mods syntax.Modifier
}

type frame map[string]binding

type classInfo struct {
	name   string
	task   bool
	fields frame
}

type walker struct {
	e       *Extractor
	b       *facts.Builder
	scope   facts.Scope
	frames  []frame
	classes []*classInfo
	known   map[string]*classInfo
	ids     int

	// discarded is the expression of the statement being visited; its value
	// is thrown away.
	discarded *syntax.Node
	// spawn marks the next lambda as a concurrent task body.
	spawn bool

	finally     finallyClause
	resourceTry syntax.Span
	// pending classifies the next block opened inside a finally clause.
	pending *pendingBlock
}

// finallyClause tracks which blocks of the finally clause being visited run
// whenever the clause runs.
type finallyClause struct {
	try    syntax.Span
	always map[int]bool
	// guarded blocks run only when the symbol is non-null.
	guarded map[int]facts.Symbol
}

func (f finallyClause) releases(scope facts.Scope, sym facts.Symbol) bool {
	if f.always[scope.Block] {
		return true
	}
	g, ok := f.guarded[scope.Block]
	return ok && g == sym
}

type pendingBlock struct {
	guard facts.Symbol
}

func (w *walker) next() int {
	w.ids++
	return w.ids
}

func (w *walker) add(f facts.Fact) { w.b.Add(f) }

// newBlock opens a block scope and files it under the finally clause when
// one is pending.
func (w *walker) newBlock() {
	w.scope.Block = w.next()
	p := w.pending
	if p == nil {
		return
	}
	w.pending = nil
	if p.guard.Valid() {
		w.finally.guarded[w.scope.Block] = p.guard
	} else {
		w.finally.always[w.scope.Block] = true
	}
}

// release records a release of sym at n.
func (w *walker) release(n *syntax.Node, sym facts.Symbol) {
	r := facts.ResourceReleased{Site: w.site(n), Symbol: sym}
	if w.finally.releases(w.scope, sym) {
		r.Always = w.finally.try
	}
	w.add(r)
}

func (w *walker) site(n *syntax.Node) facts.Site {
	return facts.Site{Span: n.Span, Scope: w.scope}
}

func (w *walker) visit(n *syntax.Node) {
	if n == nil {
		return
	}
	if err := syntax.Validate(n); err != nil {
		w.add(facts.Malformed{Site: w.site(n), Kind: n.Kind, Reason: err.Error()})
		return
	}
	if t, ok := transforms[n.Kind]; ok {
		t(w, n)
		return
	}
	w.children(n)
}

func (w *walker) children(n *syntax.Node) {
	for _, c := range n.Children {
		w.visit(c)
	}
}

func (w *walker) push(f frame) { w.frames = append(w.frames, f) }

func (w *walker) pop() { w.frames = w.frames[:len(w.frames)-1] }

func (w *walker) bind(name string, b binding) {
	if len(w.frames) == 0 {
		w.push(frame{})
	}
	w.frames[len(w.frames)-1][name] = b
}

func (w *walker) lookup(name string) (binding, bool) {
	for i := len(w.frames) - 1; i >= 0; i-- {
		if b, ok := w.frames[i][name]; ok {
			return b, true
		}
	}
	return binding{}, false
}

func (w *walker) class() *classInfo {
	if len(w.classes) == 0 {
		return nil
	}
	return w.classes[len(w.classes)-1]
}

func (w *walker) classNamed(name string) *classInfo {
	for i := len(w.classes) - 1; i >= 0; i-- {
		if w.classes[i].name == name {
			return w.classes[i]
		}
	}
	return w.known[name]
}

// declaredClasses indexes the named classes of a unit so Other.field
// resolves before and after Other's declaration.
func declaredClasses(root *syntax.Node) map[string]*classInfo {
	known := map[string]*classInfo{}
	syntax.Walk(root, func(n *syntax.Node) bool {
		if n.Kind != syntax.KindClass || n.Name == "" || n.Type == "anonymous" {
			return true
		}
		if _, dup := known[n.Name]; !dup {
			known[n.Name] = newClassInfo(n.Name, n)
		}
		return true
	})
	return known
}

func newClassInfo(name string, n *syntax.Node) *classInfo {
	info := &classInfo{name: name, fields: frame{}}
	for _, f := range n.ChildrenOf(syntax.KindField) {
		info.fields[f.Name] = binding{
			sym:  facts.Symbol{Name: f.Name, Kind: facts.SymField, Class: name},
			typ:  f.Type,
			mods: f.Mods,
		}
	}
	return info
}

// resolve maps an identifier, this.x or Outer.x to its binding.
func (w *walker) resolve(n *syntax.Node) (binding, bool) {
	switch n.Kind {
	case syntax.KindIdent:
		if n.Name == "this" || n.Name == "super" {
			return binding{}, false
		}
		return w.lookup(n.Name)
	case syntax.KindFieldAccess:
		obj := n.Child(0)
		if obj.Kind != syntax.KindIdent {
			return binding{}, false
		}
		var owner *classInfo
		if obj.Name == "this" {
			owner = w.class()
		} else if local, shadowed := w.lookup(obj.Name); !shadowed {
			owner = w.classNamed(obj.Name)
		} else if !local.sym.IsField() && local.typ != "" {
			// other.name through a local typed as a class of this unit.
			owner = w.classNamed(syntax.SimpleType(local.typ))
		}
		if owner == nil {
			return binding{}, false
		}
		b, ok := owner.fields[n.Name]
		return b, ok
	}
	return binding{}, false
}

func localSymbol(n *syntax.Node, kind facts.SymbolKind) facts.Symbol {
	return facts.Symbol{Name: n.Name, Kind: kind, Decl: n.Span.Start}
}

func literalType(lit string) string {
	switch lit {
	case syntax.LitString:
		return "String"
	case syntax.LitChar:
		return "char"
	case syntax.LitBool:
		return "boolean"
	case syntax.LitClass:
		return "Class"
	}
	return ""
}

// value describes the expression n.
func (w *walker) value(n *syntax.Node) facts.Value {
	v := facts.Value{Span: n.Span}
	switch n.Kind {
	case syntax.KindLiteral:
		if n.IsNullLiteral() {
			v.Kind = facts.ValNull
			return v
		}
		v.Kind = facts.ValLiteral
		v.Text, v.Lit, v.Type = n.Value, n.Name, literalType(n.Name)
	case syntax.KindIdent, syntax.KindFieldAccess:
		if b, ok := w.resolve(n); ok {
			v.Kind = facts.ValIdent
			v.Text, v.Symbol, v.Type = b.sym.Name, b.sym, syntax.SimpleType(b.typ)
			return v
		}
		if n.Kind == syntax.KindIdent {
			v.Kind = facts.ValIdent
			v.Text = n.Name
			if n.Name == "this" {
				if c := w.class(); c != nil {
					v.Type = c.name
				}
			}
			return v
		}
		v.Text = n.Name
	case syntax.KindNew:
		v.Kind = facts.ValNew
		v.Text = syntax.SimpleType(n.Type)
		v.Type = v.Text
	case syntax.KindCall:
		v.Kind = facts.ValCall
		v.Text = n.Name
	case syntax.KindLambda:
		v.Kind = facts.ValLambda
	case syntax.KindCast:
		v = w.value(n.Child(0))
		v.Type = syntax.SimpleType(n.Type)
		v.Span = n.Span
	case syntax.KindArrayInit:
		v.Kind = facts.ValArray
		v.Type = syntax.SimpleType(n.Type)
		for _, c := range n.Children {
			part := w.value(c)
			if part.Dynamic || (part.Kind != facts.ValLiteral && part.Kind != facts.ValNull) {
				v.Dynamic = true
			}
			v.Parts = append(v.Parts, part)
		}
	case syntax.KindBinary:
		if n.Name != "+" {
			return v
		}
		var stringy bool
		for _, operand := range flattenConcat(n) {
			part := w.value(operand)
			if part.IsStringLiteral() || part.Type == "String" {
				stringy = true
			}
			if part.Kind != facts.ValLiteral && part.Kind != facts.ValNull {
				v.Dynamic = true
			}
			v.Parts = append(v.Parts, part)
		}
		if !stringy {
			return facts.Value{Span: n.Span}
		}
		v.Kind = facts.ValConcat
		v.Type = "String"
	}
	return v
}

func flattenConcat(n *syntax.Node) []*syntax.Node {
	if n.Kind != syntax.KindBinary || n.Name != "+" || len(n.Children) != 2 {
		return []*syntax.Node{n}
	}
	return append(flattenConcat(n.Children[0]), flattenConcat(n.Children[1])...)
}

// acquire records a resource bound to sym when v creates or opens one.
// Bindings made by try-with-resources are always scoped acquisitions.
func (w *walker) acquire(n *syntax.Node, sym facts.Symbol, typ string, v facts.Value, scoped bool) {
	var via string
	switch {
	case v.Kind == facts.ValNew && w.e.resources.has(v.Type):
		via = v.Type
	case v.Kind == facts.ValCall && w.e.acquires.has(v.Text):
		via = v.Text
	case scoped:
		via = v.Text
	default:
		return
	}
	w.add(facts.ResourceAcquired{Site: w.site(n), Symbol: sym, Type: typ, Via: via, Scoped: scoped})
}

func (w *walker) fieldWrite(n *syntax.Node, b binding, via string) {
	w.add(facts.FieldWrite{
		Site:     w.site(n),
		Field:    b.sym,
		Type:     syntax.SimpleType(b.typ),
		Static:   b.mods.Has(syntax.ModStatic),
		Volatile: b.mods.Has(syntax.ModVolatile),
		Via:      via,
	})
}

func methodKey(class, name string, arity int) string {
	return fmt.Sprintf("%s.%s/%d", class, name, arity)
}
