package graph

import (
	"strconv"
	"testing"

	"factlint/internal/facts"
	"factlint/internal/syntax"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func method(class, name string, arity, line, endLine, start int) facts.MethodDecl {
	params := make([]facts.Symbol, arity)
	return facts.MethodDecl{
		Site:   facts.Site{Span: syntax.Span{Start: start, End: start + 10, Line: line, EndLine: endLine}},
		Key:    class + "." + name + "/" + strconv.Itoa(arity),
		Name:   name,
		Class:  class,
		Params: params,
	}
}

func call(from, class, callee string, args int, recv *facts.Value, recvType string) facts.CallSite {
	return facts.CallSite{
		Site:         facts.Site{Scope: facts.Scope{Class: class, Method: from}},
		Callee:       callee,
		Receiver:     recv,
		ReceiverType: recvType,
		Args:         make([]facts.Value, args),
	}
}

func TestGraph_Link(t *testing.T) {
	g := NewGraph("A.java")
	g.AddMethod(method("A", "fact", 1, 2, 4, 10))
	g.AddMethod(method("A", "helper", 0, 5, 7, 50))
	g.AddMethod(method("B", "helper", 0, 9, 11, 90))
	g.AddMethod(method("B", "run", 0, 12, 20, 120))
	g.AddMethod(method("B$1", "go", 0, 14, 16, 140))

	self := &facts.Value{Kind: facts.ValIdent, Text: "this"}
	other := &facts.Value{Kind: facts.ValIdent, Text: "b"}
	g.Link([]facts.CallSite{
		call("A.fact/1", "A", "fact", 1, nil, ""),
		call("A.fact/1", "A", "helper", 0, self, "A"),
		call("B.run/0", "B", "helper", 0, other, "A"),
		call("B$1.go/0", "B$1", "run", 0, nil, ""),
		call("B$1.go/0", "B$1", "helper", 0, nil, ""),
		call("B.run/0", "B", "println", 1, other, ""),
		call("", "A", "fact", 1, nil, ""),
	})

	t.Run("Self recursion", func(t *testing.T) {
		callees := g.Callees("A.fact/1")
		require.Len(t, callees, 2)
		keys := []string{callees[0].Key, callees[1].Key}
		assert.ElementsMatch(t, []string{"A.fact/1", "A.helper/0"}, keys)
	})

	t.Run("Typed receiver", func(t *testing.T) {
		callees := g.Callees("B.run/0")
		require.Len(t, callees, 1)
		assert.Equal(t, "A.helper/0", callees[0].Key)
	})

	t.Run("Outer method from inner class", func(t *testing.T) {
		callees := g.Callees("B$1.go/0")
		require.Len(t, callees, 1)
		assert.Equal(t, "B.run/0", callees[0].Key)
	})

	t.Run("Callers", func(t *testing.T) {
		callers := g.Callers("A.helper/0")
		assert.Len(t, callers, 2)
	})

	t.Run("Unresolved reasons", func(t *testing.T) {
		counts := g.UnresolvedReasonCounts()
		assert.Equal(t, 1, counts[ReasonAmbiguous])
		assert.Equal(t, 1, counts[ReasonNoReceiver])
	})

	t.Run("Enclosing", func(t *testing.T) {
		require.NotNil(t, g.Enclosing(15))
		assert.Equal(t, "B$1.go/0", g.Enclosing(15).Key)
		assert.Equal(t, "B.run/0", g.Enclosing(19).Key)
		assert.Nil(t, g.Enclosing(8))
	})
}
