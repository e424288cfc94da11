package syntax

import "strings"

// Kind is the node-kind tag of the Syntax Model.
type Kind string

const (
	KindUnit         Kind = "unit"
	KindClass        Kind = "class"
	KindMethod       Kind = "method"
	KindField        Kind = "field"
	KindParam        Kind = "param"
	KindLocal        Kind = "local"
	KindBlock        Kind = "block"
	KindIf           Kind = "if"
	KindLoop         Kind = "loop"
	KindSwitch       Kind = "switch"
	KindTry          Kind = "try"
	KindResource     Kind = "resource"
	KindCatch        Kind = "catch"
	KindFinally      Kind = "finally"
	KindSynchronized Kind = "synchronized"
	KindReturn       Kind = "return"
	KindThrow        Kind = "throw"
	KindExprStmt     Kind = "expr_stmt"
	KindAssign       Kind = "assign"
	KindBinary       Kind = "binary"
	KindUnary        Kind = "unary"
	KindTernary      Kind = "ternary"
	KindCall         Kind = "call"
	KindNew          Kind = "new"
	KindFieldAccess  Kind = "field_access"
	KindIndex        Kind = "index"
	KindIdent        Kind = "ident"
	KindLiteral      Kind = "literal"
	KindLambda       Kind = "lambda"
	KindArrayInit    Kind = "array_init"
	KindCast         Kind = "cast"
	KindEmpty        Kind = "empty"
	KindError        Kind = "error"
	KindOther        Kind = "other"
)

// Class is the coarse tag a Kind belongs to.
type Class int

const (
	ClassOther Class = iota
	ClassDeclaration
	ClassStatement
	ClassExpression
	ClassLiteral
)

func (c Class) String() string {
	switch c {
	case ClassDeclaration:
		return "Declaration"
	case ClassStatement:
		return "Statement"
	case ClassExpression:
		return "Expression"
	case ClassLiteral:
		return "Literal"
	default:
		return "Other"
	}
}

var kindClass = map[Kind]Class{
	KindClass:        ClassDeclaration,
	KindMethod:       ClassDeclaration,
	KindField:        ClassDeclaration,
	KindParam:        ClassDeclaration,
	KindLocal:        ClassDeclaration,
	KindResource:     ClassDeclaration,
	KindBlock:        ClassStatement,
	KindIf:           ClassStatement,
	KindLoop:         ClassStatement,
	KindSwitch:       ClassStatement,
	KindTry:          ClassStatement,
	KindCatch:        ClassStatement,
	KindFinally:      ClassStatement,
	KindSynchronized: ClassStatement,
	KindReturn:       ClassStatement,
	KindThrow:        ClassStatement,
	KindExprStmt:     ClassStatement,
	KindAssign:       ClassExpression,
	KindBinary:       ClassExpression,
	KindUnary:        ClassExpression,
	KindTernary:      ClassExpression,
	KindCall:         ClassExpression,
	KindNew:          ClassExpression,
	KindFieldAccess:  ClassExpression,
	KindIndex:        ClassExpression,
	KindIdent:        ClassExpression,
	KindLambda:       ClassExpression,
	KindArrayInit:    ClassExpression,
	KindCast:         ClassExpression,
	KindLiteral:      ClassLiteral,
}

// Class reports the coarse tag of k.
func (k Kind) Class() Class {
	return kindClass[k]
}

// Literal kinds, stored in Node.Name for KindLiteral nodes.
const (
	LitString = "string"
	LitChar   = "char"
	LitNumber = "number"
	LitBool   = "bool"
	LitNull   = "null"
	LitClass  = "class"
)

// Modifier is a bitset of declaration modifiers.
type Modifier uint16

const (
	ModStatic Modifier = 1 << iota
	ModFinal
	ModVolatile
	ModSynchronized
	ModPublic
	ModPrivate
	ModProtected
	ModAbstract
	ModConstructor
)

func (m Modifier) Has(f Modifier) bool { return m&f != 0 }

var modifierNames = map[string]Modifier{
	"static":       ModStatic,
	"final":        ModFinal,
	"volatile":     ModVolatile,
	"synchronized": ModSynchronized,
	"public":       ModPublic,
	"private":      ModPrivate,
	"protected":    ModProtected,
	"abstract":     ModAbstract,
}

// ParseModifier maps a source keyword to its Modifier bit, or 0.
func ParseModifier(word string) Modifier {
	return modifierNames[word]
}

// Span is a half-open byte range plus the 1-based line and column of Start.
type Span struct {
	Start  int `json:"start"`
	End    int `json:"end"`
	Line   int `json:"line"`
	Column int `json:"column"`
	// EndLine is the last line of the node; zero when unknown.
	EndLine int `json:"end_line,omitempty"`
}

// Contains reports whether o lies entirely within s.
func (s Span) Contains(o Span) bool {
	return o.Start >= s.Start && o.End <= s.End && o.Start <= o.End
}

// Node is one element of the Syntax Model. A Node and its children must not be
// modified once the owning Unit is handed to the engine.
//
// Field usage by kind:
//   - Name: declared name, callee, operator (binary/assign/unary), loop flavor,
//     literal kind, or field name of a field access.
//   - Type: declared, created, cast or caught type.
//   - Value: literal text (string literals without their quotes).
//
// Call nodes keep the receiver in Children[0] (KindEmpty when absent) followed
// by the arguments.
type Node struct {
	Kind     Kind
	Name     string
	Type     string
	Value    string
	Mods     Modifier
	Bases    []string
	Children []*Node
	Span     Span
}

// Child returns the i-th child or nil when out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// FirstOf returns the first direct child of kind k.
func (n *Node) FirstOf(k Kind) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == k {
			return c
		}
	}
	return nil
}

// ChildrenOf returns every direct child of kind k, in order.
func (n *Node) ChildrenOf(k Kind) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// IsNullLiteral reports whether n is the null literal.
func (n *Node) IsNullLiteral() bool {
	return n != nil && n.Kind == KindLiteral && n.Name == LitNull
}

// Walk visits n and its descendants depth-first in source order. Returning
// false from fn skips the children of the node just visited.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// SimpleType strips generics, array dimensions and package qualifiers:
// "java.util.List<String>[]" becomes "List".
func SimpleType(t string) string {
	t = strings.TrimSpace(t)
	if i := strings.IndexByte(t, '<'); i >= 0 {
		t = t[:i]
	}
	if i := strings.IndexByte(t, '['); i >= 0 {
		t = t[:i]
	}
	if i := strings.LastIndexByte(t, '.'); i >= 0 {
		t = t[i+1:]
	}
	return strings.TrimSpace(t)
}
