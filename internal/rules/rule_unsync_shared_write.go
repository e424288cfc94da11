package rules

import (
	"strings"

	"factlint/internal/facts"
	"factlint/internal/ir"
)

func init() {
	register(Rule{
		ID:       "UNSYNC-SHARED-WRITE",
		Summary:  "Static field written without a lock from several concurrent tasks.",
		Category: ir.CategoryConcurrency,
		Severity: ir.SeverityError,
		Check:    checkUnsyncSharedWrite,
	})
}

// checkUnsyncSharedWrite reports a static field once, at its first
// unguarded task write, when unguarded writes come from at least two
// distinct task contexts.
func checkUnsyncSharedWrite(in *Input) []Hit {
	decls := fieldDecls(in)

	type shared struct {
		first facts.FieldWrite
		tasks map[int]bool
	}
	var order []facts.Symbol
	fields := map[facts.Symbol]*shared{}

	for _, w := range facts.All[facts.FieldWrite](in.Facts) {
		if !w.Static || w.Scope.Guarded || w.Scope.Task == 0 || threadSafe(w.Type) {
			continue
		}
		if d, ok := decls[w.Field]; ok && synchronizedWrapper(d) {
			continue
		}
		s, ok := fields[w.Field]
		if !ok {
			s = &shared{first: w, tasks: map[int]bool{}}
			fields[w.Field] = s
			order = append(order, w.Field)
		}
		s.tasks[w.Scope.Task] = true
	}

	var out []Hit
	for _, sym := range order {
		s := fields[sym]
		if len(s.tasks) < 2 {
			continue
		}
		out = append(out, hit(s.first.Site,
			"Guard the writes with synchronized or a lock, or use a concurrent type.",
			"static field %s is modified by %d concurrent tasks without synchronization", sym.Name, len(s.tasks)))
	}
	return out
}

// synchronizedWrapper reports a field initialized with
// Collections.synchronizedX(...).
func synchronizedWrapper(d facts.FieldDecl) bool {
	return d.Init != nil && d.Init.Kind == facts.ValCall && strings.HasPrefix(d.Init.Text, "synchronized")
}
