package graph

import "factlint/internal/syntax"

type UnresolvedReason string

const (
	ReasonNoCandidate UnresolvedReason = "no_candidate"
	ReasonAmbiguous   UnresolvedReason = "ambiguous"
	ReasonNoReceiver  UnresolvedReason = "untyped_receiver"
)

// Node is one method or constructor of a unit.
type Node struct {
	Unit  string
	Key   string // Class.name/arity
	Class string
	Name  string
	Arity int
	Span  syntax.Span
}

// Edge is a call from one method to another.
type Edge struct {
	From string
	To   string
	Site syntax.Span
}

// Unresolved is a call whose target is not a method of the unit.
type Unresolved struct {
	From   string
	Callee string
	Reason UnresolvedReason
}
