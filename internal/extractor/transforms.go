package extractor

import (
	"strconv"

	"factlint/internal/facts"
	"factlint/internal/syntax"
)

// transform extracts the facts of one node kind and decides how to descend.
// Kinds without an entry just visit their children.
type transform func(w *walker, n *syntax.Node)

var transforms map[syntax.Kind]transform

func init() {
	transforms = map[syntax.Kind]transform{
		syntax.KindClass:        visitClass,
		syntax.KindField:        visitField,
		syntax.KindMethod:       visitMethod,
		syntax.KindBlock:        visitBlock,
		syntax.KindLocal:        visitLocal,
		syntax.KindTry:          visitTry,
		syntax.KindResource:     visitResource,
		syntax.KindCatch:        visitCatch,
		syntax.KindSynchronized: visitSynchronized,
		syntax.KindIf:           branching("if"),
		syntax.KindLoop:         branching("loop"),
		syntax.KindSwitch:       branching("switch"),
		syntax.KindTernary:      branching("ternary"),
		syntax.KindReturn:       visitReturn,
		syntax.KindThrow:        visitThrow,
		syntax.KindExprStmt:     visitExprStmt,
		syntax.KindAssign:       visitAssign,
		syntax.KindUnary:        visitUnary,
		syntax.KindBinary:       visitBinary,
		syntax.KindCall:         visitCall,
		syntax.KindNew:          visitNew,
		syntax.KindFieldAccess:  visitFieldAccess,
		syntax.KindIndex:        visitIndex,
		syntax.KindLambda:       visitLambda,
	}
}

func visitClass(w *walker, n *syntax.Node) {
	name := n.Name
	anonymous := n.Type == "anonymous" || name == ""
	if anonymous {
		name = w.scope.Class + "$" + strconv.Itoa(w.next())
	}

	info := newClassInfo(name, n)
	info.task = w.e.taskTypes.any(n.Bases)

	saved := w.scope
	w.scope = facts.Scope{Class: name}
	w.add(facts.ClassDecl{Site: w.site(n), Name: name, Bases: n.Bases, Anonymous: anonymous})

	w.classes = append(w.classes, info)
	w.push(info.fields)
	w.children(n)
	w.pop()
	w.classes = w.classes[:len(w.classes)-1]
	w.scope = saved
}

func visitField(w *walker, n *syntax.Node) {
	b, ok := binding{}, false
	if c := w.class(); c != nil {
		b, ok = c.fields[n.Name]
	}
	if !ok {
		b = binding{sym: facts.Symbol{Name: n.Name, Kind: facts.SymField, Class: w.scope.Class}, typ: n.Type, mods: n.Mods}
	}

	var init *facts.Value
	if c := n.Child(0); c != nil {
		v := w.value(c)
		init = &v
	}
	w.add(facts.FieldDecl{Site: w.site(n), Symbol: b.sym, Type: syntax.SimpleType(n.Type), Mods: n.Mods, Init: init})
	if init != nil {
		w.add(facts.Assign{Site: w.site(n), Target: b.sym, Op: "=", Value: *init, Decl: true})
		w.visit(n.Child(0))
	}
}

func visitMethod(w *walker, n *syntax.Node) {
	params := n.ChildrenOf(syntax.KindParam)
	body := n.FirstOf(syntax.KindBlock)

	saved := w.scope
	w.scope = facts.Scope{
		Class:   saved.Class,
		Method:  methodKey(saved.Class, n.Name, len(params)),
		Guarded: n.Mods.Has(syntax.ModSynchronized),
	}
	if c := w.class(); c != nil && c.task && len(params) == 0 && (n.Name == "run" || n.Name == "call") {
		w.scope.Task = w.next()
	}

	f := frame{}
	syms := make([]facts.Symbol, 0, len(params))
	for _, p := range params {
		sym := localSymbol(p, facts.SymParam)
		f[p.Name] = binding{sym: sym, typ: p.Type, mods: p.Mods}
		syms = append(syms, sym)
	}

	w.add(facts.MethodDecl{
		Site:        w.site(n),
		Key:         w.scope.Method,
		Name:        n.Name,
		Class:       saved.Class,
		Params:      syms,
		Mods:        n.Mods,
		HasBody:     body != nil,
		EmptyBody:   body != nil && len(body.Children) == 0,
		Constructor: n.Mods.Has(syntax.ModConstructor),
	})
	for i, p := range params {
		w.add(facts.VarDecl{Site: w.site(p), Symbol: syms[i], Type: syntax.SimpleType(p.Type)})
	}

	w.push(f)
	for _, c := range n.Children {
		if c.Kind != syntax.KindParam {
			w.visit(c)
		}
	}
	w.pop()
	w.scope = saved
}

func visitBlock(w *walker, n *syntax.Node) {
	saved := w.scope
	w.newBlock()
	w.push(frame{})
	for i, stmt := range n.Children {
		w.scope.Stmt = i
		w.visit(stmt)
		switch lockCall(stmt) {
		case "lock":
			w.scope.Guarded = true
		case "unlock":
			w.scope.Guarded = saved.Guarded
		}
	}
	w.pop()
	w.scope = saved
}

// lockCall reports whether stmt is a bare x.lock() or x.unlock() call. A try
// whose finally clause unlocks counts as an unlock.
func lockCall(stmt *syntax.Node) string {
	if stmt.Kind == syntax.KindTry {
		if fin := stmt.FirstOf(syntax.KindFinally); fin != nil && fin.Child(0) != nil {
			for _, s := range fin.Child(0).Children {
				if lockCall(s) == "unlock" {
					return "unlock"
				}
			}
		}
		return ""
	}
	if stmt.Kind != syntax.KindExprStmt || len(stmt.Children) != 1 {
		return ""
	}
	call := stmt.Children[0]
	if call.Kind != syntax.KindCall || len(call.Children) != 1 || call.Children[0].Kind == syntax.KindEmpty {
		return ""
	}
	switch call.Name {
	case "lock", "lockInterruptibly":
		return "lock"
	case "unlock":
		return "unlock"
	}
	return ""
}

func visitLocal(w *walker, n *syntax.Node) {
	sym := localSymbol(n, facts.SymLocal)
	typ := n.Type

	var init *facts.Value
	if c := n.Child(0); c != nil {
		v := w.value(c)
		init = &v
		if typ == "var" && v.Type != "" {
			typ = v.Type
		}
	}

	w.bind(n.Name, binding{sym: sym, typ: typ, mods: n.Mods})
	w.add(facts.VarDecl{Site: w.site(n), Symbol: sym, Type: syntax.SimpleType(typ), Init: init})
	if init == nil {
		return
	}
	w.add(facts.Assign{Site: w.site(n), Target: sym, Op: "=", Value: *init, Decl: true})
	w.acquire(n, sym, syntax.SimpleType(typ), *init, false)
	w.visit(n.Child(0))
}

func visitTry(w *walker, n *syntax.Node) {
	id := w.next()
	saved := w.scope
	w.add(facts.Branch{Site: w.site(n), Kind: "try"})

	savedFinally, savedResource := w.finally, w.resourceTry
	// A try statement directly in a finally body runs its body whenever the
	// finally does.
	nested := w.finally.always[saved.Block]
	w.resourceTry = n.Span

	w.push(frame{})
	for _, c := range n.Children {
		w.scope = saved
		w.finally = savedFinally
		switch c.Kind {
		case syntax.KindResource:
			w.scope.Try = id
		case syntax.KindBlock:
			w.scope.Try = id
			if nested {
				w.pending = &pendingBlock{}
			}
		case syntax.KindFinally:
			w.scope.Finally = id
			w.finally = finallyClause{try: n.Span, always: map[int]bool{}, guarded: map[int]facts.Symbol{}}
			w.pending = &pendingBlock{}
		}
		w.visit(c)
		w.pending = nil
	}
	w.pop()
	w.scope = saved
	w.finally, w.resourceTry = savedFinally, savedResource
}

func visitResource(w *walker, n *syntax.Node) {
	if n.Type == "" {
		// try (existing) closes a variable declared earlier.
		if c := n.Child(0); c != nil {
			if b, ok := w.resolve(c); ok {
				site := w.site(n)
				site.Scope.Finally = w.scope.Try
				w.add(facts.ResourceReleased{Site: site, Symbol: b.sym, Always: w.resourceTry})
			}
		}
		w.children(n)
		return
	}

	sym := localSymbol(n, facts.SymLocal)
	w.bind(n.Name, binding{sym: sym, typ: n.Type, mods: n.Mods})

	var init *facts.Value
	if c := n.Child(0); c != nil {
		v := w.value(c)
		init = &v
	}
	w.add(facts.VarDecl{Site: w.site(n), Symbol: sym, Type: syntax.SimpleType(n.Type), Init: init})
	if init != nil {
		w.add(facts.Assign{Site: w.site(n), Target: sym, Op: "=", Value: *init, Decl: true})
		w.acquire(n, sym, syntax.SimpleType(n.Type), *init, true)
	}
	w.children(n)
}

func visitCatch(w *walker, n *syntax.Node) {
	body := n.Child(0)
	w.add(facts.CatchBlock{
		Site:          w.site(n),
		ExceptionType: n.Type,
		Param:         n.Name,
		BodyEmpty:     len(body.Children) == 0,
	})

	w.push(frame{})
	if n.Name != "" {
		sym := localSymbol(n, facts.SymLocal)
		w.bind(n.Name, binding{sym: sym, typ: n.Type})
		w.add(facts.VarDecl{Site: w.site(n), Symbol: sym, Type: syntax.SimpleType(n.Type)})
	}
	w.visit(body)
	w.pop()
}

func visitSynchronized(w *walker, n *syntax.Node) {
	w.visit(n.Child(0))
	saved := w.scope
	w.scope.Guarded = true
	w.visit(n.Child(1))
	w.scope = saved
}

// branching emits a Branch fact. Statement children that are not blocks get a
// block of their own so they never share a basic block with their siblings.
func branching(kind string) transform {
	return func(w *walker, n *syntax.Node) {
		w.add(facts.Branch{Site: w.site(n), Kind: kind})
		var guard facts.Symbol
		if kind == "if" && w.finally.always[w.scope.Block] {
			guard = w.nullGuard(n.Child(0))
		}
		w.push(frame{})
		for i, c := range n.Children {
			if i == 1 && guard.Valid() {
				w.pending = &pendingBlock{guard: guard}
			}
			if c.Kind.Class() != syntax.ClassStatement || c.Kind == syntax.KindBlock {
				w.visit(c)
				w.pending = nil
				continue
			}
			saved := w.scope
			w.newBlock()
			w.scope.Stmt = 0
			w.visit(c)
			w.scope = saved
			w.pending = nil
		}
		w.pop()
	}
}

// nullGuard returns the local tested by a `x != null` condition.
func (w *walker) nullGuard(cond *syntax.Node) facts.Symbol {
	if cond == nil || cond.Kind != syntax.KindBinary || cond.Name != "!=" {
		return facts.Symbol{}
	}
	l, r := cond.Child(0), cond.Child(1)
	if l.IsNullLiteral() {
		l, r = r, l
	}
	if !r.IsNullLiteral() || l == nil || l.Kind != syntax.KindIdent {
		return facts.Symbol{}
	}
	b, ok := w.resolve(l)
	if !ok || b.sym.IsField() {
		return facts.Symbol{}
	}
	return b.sym
}

func visitReturn(w *walker, n *syntax.Node) {
	var val *facts.Value
	if c := n.Child(0); c != nil {
		v := w.value(c)
		val = &v
		if v.Kind == facts.ValIdent && v.Symbol.Kind == facts.SymLocal {
			w.add(facts.ResourceEscaped{Site: w.site(n), Symbol: v.Symbol, How: "return"})
		}
	}
	w.add(facts.Exit{Site: w.site(n), Kind: "return", Value: val})
	w.children(n)
}

func visitThrow(w *walker, n *syntax.Node) {
	v := w.value(n.Child(0))
	w.add(facts.Exit{Site: w.site(n), Kind: "throw", Value: &v})
	w.children(n)
}

func visitExprStmt(w *walker, n *syntax.Node) {
	saved := w.discarded
	w.discarded = n.Child(0)
	w.children(n)
	w.discarded = saved
}

func visitAssign(w *walker, n *syntax.Node) {
	target, rhs := n.Child(0), n.Child(1)
	v := w.value(rhs)

	if b, ok := w.resolve(target); ok {
		w.add(facts.Assign{Site: w.site(n), Target: b.sym, Op: n.Name, Value: v})
		if b.sym.IsField() {
			w.fieldWrite(n, b, "assign")
			if v.Kind == facts.ValIdent && v.Symbol.Kind == facts.SymLocal {
				w.add(facts.ResourceEscaped{Site: w.site(n), Symbol: v.Symbol, How: "field"})
			}
		} else if n.Name == "=" {
			w.acquire(n, b.sym, syntax.SimpleType(b.typ), v, false)
		}
	} else if target.Kind == syntax.KindIndex {
		if b, ok := w.resolve(target.Child(0)); ok && b.sym.IsField() {
			w.fieldWrite(n, b, "index")
		}
	}

	if target.Kind != syntax.KindIdent {
		w.visit(target)
	}
	w.visit(rhs)
}

func visitUnary(w *walker, n *syntax.Node) {
	if n.Name == "++" || n.Name == "--" {
		if b, ok := w.resolve(n.Child(0)); ok {
			w.add(facts.Assign{Site: w.site(n), Target: b.sym, Op: n.Name, Value: facts.Value{Span: n.Span}})
			if b.sym.IsField() {
				w.fieldWrite(n, b, n.Name)
			}
		}
	}
	w.children(n)
}

func visitBinary(w *walker, n *syntax.Node) {
	if n.Name == "==" || n.Name == "!=" {
		w.add(facts.Compare{
			Site:  w.site(n),
			Op:    n.Name,
			Left:  w.value(n.Child(0)),
			Right: w.value(n.Child(1)),
		})
	}
	w.children(n)
}

func visitCall(w *walker, n *syntax.Node) {
	recv := n.Child(0)
	args := n.Children[1:]

	call := facts.CallSite{Site: w.site(n), Callee: n.Name, ResultUsed: w.discarded != n}
	var target binding
	var resolved bool
	if recv.Kind != syntax.KindEmpty {
		rv := w.value(recv)
		call.Receiver = &rv
		call.ReceiverType = rv.Type
		if call.ReceiverType == "" && rv.Kind == facts.ValIdent && !rv.Symbol.Valid() {
			// Unbound identifiers in receiver position are class names.
			call.ReceiverType = rv.Text
		}
		target, resolved = w.resolve(recv)
		if resolved {
			w.add(facts.Deref{Site: w.site(n), Symbol: target.sym, Member: n.Name})
		}
	}
	for _, a := range args {
		call.Args = append(call.Args, w.value(a))
	}
	w.add(call)

	if resolved {
		if w.e.releases.has(n.Name) {
			w.release(n, target.sym)
		}
		if target.sym.IsField() && w.e.mutators.has(n.Name) {
			w.fieldWrite(n, target, n.Name)
		}
	}
	if w.e.helpers.has(n.Name) && len(args) > 0 {
		if b, ok := w.resolve(args[0]); ok {
			w.release(n, b.sym)
		}
	}

	w.visit(recv)
	spawner := w.e.spawners.has(n.Name)
	for _, a := range args {
		w.visitArg(a, spawner)
	}
}

// visitArg visits a call or constructor argument; lambdas handed to a task
// spawner become task bodies.
func (w *walker) visitArg(a *syntax.Node, spawner bool) {
	if spawner && a.Kind == syntax.KindLambda {
		w.spawn = true
	}
	w.visit(a)
	w.spawn = false
}

func visitNew(w *walker, n *syntax.Node) {
	typ := syntax.SimpleType(n.Type)

	var args []*syntax.Node
	var anon *syntax.Node
	for _, c := range n.Children {
		if c.Kind == syntax.KindClass {
			anon = c
			continue
		}
		args = append(args, c)
	}

	created := facts.NewObject{Site: w.site(n), Type: typ, Anonymous: anon != nil}
	for _, a := range args {
		created.Args = append(created.Args, w.value(a))
	}
	w.add(created)

	if w.e.resources.has(typ) {
		for _, v := range created.Args {
			if v.Kind == facts.ValIdent && v.Symbol.Kind == facts.SymLocal {
				w.add(facts.ResourceEscaped{Site: w.site(n), Symbol: v.Symbol, How: "wrap"})
			}
		}
	}

	spawner := w.e.taskTypes.has(typ)
	for _, a := range args {
		w.visitArg(a, spawner)
	}
	if anon != nil {
		w.visit(anon)
	}
}

func visitFieldAccess(w *walker, n *syntax.Node) {
	if obj := n.Child(0); obj.Kind == syntax.KindIdent {
		if b, ok := w.resolve(obj); ok {
			w.add(facts.Deref{Site: w.site(n), Symbol: b.sym, Member: n.Name})
		}
	}
	w.children(n)
}

func visitIndex(w *walker, n *syntax.Node) {
	if b, ok := w.resolve(n.Child(0)); ok {
		w.add(facts.Deref{Site: w.site(n), Symbol: b.sym, Member: "[]"})
	}
	w.children(n)
}

func visitLambda(w *walker, n *syntax.Node) {
	saved, savedFinally := w.scope, w.finally
	w.scope.Lambda = w.next()
	w.scope.Guarded = false
	w.finally = finallyClause{}
	if w.spawn {
		w.scope.Task = w.next()
		w.spawn = false
	}
	savedDiscard := w.discarded
	w.discarded = nil

	w.push(frame{})
	for _, c := range n.Children {
		if c.Kind != syntax.KindParam {
			w.visit(c)
			continue
		}
		sym := localSymbol(c, facts.SymParam)
		w.bind(c.Name, binding{sym: sym, typ: c.Type, mods: c.Mods})
		w.add(facts.VarDecl{Site: w.site(c), Symbol: sym, Type: syntax.SimpleType(c.Type)})
	}
	w.pop()

	w.discarded = savedDiscard
	w.scope, w.finally = saved, savedFinally
}
