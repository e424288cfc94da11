package syntax

import "fmt"

// Arity is the child-count contract of a node kind. Max < 0 means unbounded.
type Arity struct {
	Min, Max int
}

var arities = map[Kind]Arity{
	KindUnit:         {0, -1},
	KindClass:        {0, -1},
	KindMethod:       {0, -1},
	KindField:        {0, 1},
	KindParam:        {0, 0},
	KindLocal:        {0, 1},
	KindBlock:        {0, -1},
	KindIf:           {2, 3},
	KindLoop:         {1, -1},
	KindSwitch:       {1, -1},
	KindTry:          {1, -1},
	KindResource:     {0, 1},
	KindCatch:        {1, 1},
	KindFinally:      {1, 1},
	KindSynchronized: {2, 2},
	KindReturn:       {0, 1},
	KindThrow:        {1, 1},
	KindExprStmt:     {1, 1},
	KindAssign:       {2, 2},
	KindBinary:       {2, 2},
	KindUnary:        {1, 1},
	KindTernary:      {3, 3},
	KindCall:         {1, -1},
	KindNew:          {0, -1},
	KindFieldAccess:  {1, 1},
	KindIndex:        {2, 2},
	KindIdent:        {0, 0},
	KindLiteral:      {0, 0},
	KindLambda:       {1, -1},
	KindArrayInit:    {0, -1},
	KindCast:         {1, 1},
	KindEmpty:        {0, 0},
	KindOther:        {0, -1},
}

// shapes hold structural constraints beyond child counts.
var shapes = map[Kind]func(*Node) string{
	KindCatch:        lastIsBlock,
	KindFinally:      lastIsBlock,
	KindSynchronized: lastIsBlock,
	KindTry: func(n *Node) string {
		if len(n.ChildrenOf(KindBlock)) != 1 {
			return "try must have exactly one body block"
		}
		return ""
	},
	KindIdent: func(n *Node) string {
		if n.Name == "" {
			return "identifier without a name"
		}
		return ""
	},
}

func lastIsBlock(n *Node) string {
	if n.Child(len(n.Children)-1).Kind != KindBlock {
		return fmt.Sprintf("%s body is not a block", n.Kind)
	}
	return ""
}

// ArityError describes a node that violates its kind's contract.
type ArityError struct {
	Kind   Kind
	Span   Span
	Reason string
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("malformed %s node at %d:%d: %s", e.Kind, e.Span.Line, e.Span.Column, e.Reason)
}

// Validate checks n (not its descendants) against the arity contract of its
// kind. Error nodes and kinds outside the vocabulary are always malformed.
func Validate(n *Node) error {
	if n.Kind == KindError {
		return &ArityError{Kind: n.Kind, Span: n.Span, Reason: "parser reported a syntax error"}
	}
	a, ok := arities[n.Kind]
	if !ok {
		return &ArityError{Kind: n.Kind, Span: n.Span, Reason: "unknown node kind"}
	}
	count := len(n.Children)
	if count < a.Min || (a.Max >= 0 && count > a.Max) {
		return &ArityError{
			Kind:   n.Kind,
			Span:   n.Span,
			Reason: fmt.Sprintf("has %d children, want %s", count, a),
		}
	}
	for _, c := range n.Children {
		if c == nil {
			return &ArityError{Kind: n.Kind, Span: n.Span, Reason: "nil child"}
		}
	}
	if shape, ok := shapes[n.Kind]; ok {
		if reason := shape(n); reason != "" {
			return &ArityError{Kind: n.Kind, Span: n.Span, Reason: reason}
		}
	}
	return nil
}

func (a Arity) String() string {
	switch {
	case a.Max < 0:
		return fmt.Sprintf("at least %d", a.Min)
	case a.Min == a.Max:
		return fmt.Sprintf("exactly %d", a.Min)
	default:
		return fmt.Sprintf("%d to %d", a.Min, a.Max)
	}
}
