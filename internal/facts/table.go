package facts

import (
	"fmt"
	"slices"
	"sort"

	"factlint/internal/syntax"
)

// Table holds the facts of one unit grouped by category, each group in source
// order. A Table is read-only; build one with a Builder.
type Table struct {
	unit  string
	span  syntax.Span
	cats  map[Category][]Fact
	count int
}

// Unit returns the identifier of the unit the facts describe.
func (t *Table) Unit() string { return t.unit }

// Span returns the unit span every fact lies within.
func (t *Table) Span() syntax.Span { return t.span }

// Len is the total number of facts.
func (t *Table) Len() int { return t.count }

// Facts returns the facts of one category. The slice is clipped so appending
// to it never writes into the table.
func (t *Table) Facts(c Category) []Fact {
	return slices.Clip(t.cats[c])
}

// Categories lists the non-empty categories in name order.
func (t *Table) Categories() []Category {
	out := make([]Category, 0, len(t.cats))
	for c := range t.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// All returns every fact of type T in source order.
func All[T Fact](t *Table) []T {
	var zero T
	src := t.cats[zero.Category()]
	out := make([]T, 0, len(src))
	for _, f := range src {
		if v, ok := f.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Builder accumulates facts for one unit.
type Builder struct {
	t *Table
}

// NewBuilder starts a table for the unit with the given span.
func NewBuilder(unit string, span syntax.Span) *Builder {
	return &Builder{t: &Table{unit: unit, span: span, cats: map[Category][]Fact{}}}
}

// Add appends f to its category. A fact outside the unit span is recorded as
// Malformed instead. Add after Freeze panics.
func (b *Builder) Add(f Fact) {
	if b.t == nil {
		panic("facts: Add after Freeze")
	}
	if site := f.Where(); !b.t.span.Contains(site.Span) {
		f = Malformed{
			Site:   Site{Span: clamp(site.Span, b.t.span), Scope: site.Scope},
			Kind:   syntax.KindOther,
			Reason: fmt.Sprintf("%s fact at %d-%d lies outside the unit", f.Category(), site.Span.Start, site.Span.End),
		}
	}
	b.t.cats[f.Category()] = append(b.t.cats[f.Category()], f)
	b.t.count++
}

// Freeze returns the finished table. The builder cannot be used afterwards.
func (b *Builder) Freeze() *Table {
	t := b.t
	b.t = nil
	return t
}

func clamp(s, bounds syntax.Span) syntax.Span {
	if s.Start < bounds.Start || s.Start > bounds.End {
		s.Start = bounds.Start
		s.Line, s.Column = bounds.Line, bounds.Column
	}
	s.End = s.Start
	return s
}
