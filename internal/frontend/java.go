package frontend

import (
	"strings"

	"factlint/internal/syntax"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
)

// Java implements Language for Java sources.
type Java struct{}

func (j *Java) Name() string { return "java" }

func (j *Java) Grammar() *sitter.Language {
	return java.GetLanguage()
}

func (j *Java) Extensions() []string { return []string{".java"} }

func (j *Java) Convert(root *sitter.Node, src []byte) *syntax.Node {
	c := &javaConverter{src: src}
	return &syntax.Node{
		Kind:     syntax.KindUnit,
		Children: c.all(root),
		Span:     c.span(root),
	}
}

type javaConverter struct {
	src []byte
}

var skipped = map[string]bool{
	"line_comment":        true,
	"block_comment":       true,
	"comment":             true,
	"package_declaration": true,
	"import_declaration":  true,
	"modifiers":           true,
	"marker_annotation":   true,
	"annotation":          true,
	"type_parameters":     true,
	"type_arguments":      true,
	"throws":              true,
	"dimensions":          true,
}

var literalKinds = map[string]string{
	"string_literal":                 syntax.LitString,
	"text_block":                     syntax.LitString,
	"character_literal":              syntax.LitChar,
	"decimal_integer_literal":        syntax.LitNumber,
	"hex_integer_literal":            syntax.LitNumber,
	"octal_integer_literal":          syntax.LitNumber,
	"binary_integer_literal":         syntax.LitNumber,
	"decimal_floating_point_literal": syntax.LitNumber,
	"hex_floating_point_literal":     syntax.LitNumber,
	"true":                           syntax.LitBool,
	"false":                          syntax.LitBool,
	"null_literal":                   syntax.LitNull,
	"class_literal":                  syntax.LitClass,
}

func (c *javaConverter) span(n *sitter.Node) syntax.Span {
	p := n.StartPoint()
	return syntax.Span{
		Start:   int(n.StartByte()),
		End:     int(n.EndByte()),
		Line:    int(p.Row) + 1,
		Column:  int(p.Column) + 1,
		EndLine: int(n.EndPoint().Row) + 1,
	}
}

func (c *javaConverter) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(c.src)
}

// named returns the named children of n, minus comments.
func (c *javaConverter) named(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	var out []*sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		switch ch.Type() {
		case "line_comment", "block_comment", "comment":
			continue
		}
		out = append(out, ch)
	}
	return out
}

func (c *javaConverter) all(n *sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for _, ch := range c.named(n) {
		out = append(out, c.convert(ch)...)
	}
	return out
}

// convert maps one tree-sitter node to zero or more model nodes. Declarations
// with several declarators expand into one node each.
func (c *javaConverter) convert(n *sitter.Node) []*syntax.Node {
	if n == nil {
		return nil
	}
	if n.Type() == "ERROR" || n.IsMissing() {
		return []*syntax.Node{{Kind: syntax.KindError, Value: c.text(n), Span: c.span(n)}}
	}
	if skipped[n.Type()] {
		return nil
	}
	if lit, ok := literalKinds[n.Type()]; ok {
		return one(c.literal(n, lit))
	}

	switch n.Type() {
	case "class_declaration", "interface_declaration", "enum_declaration", "record_declaration", "annotation_type_declaration":
		return one(c.class(n))
	case "field_declaration", "constant_declaration":
		return c.variables(n, syntax.KindField)
	case "local_variable_declaration":
		return c.variables(n, syntax.KindLocal)
	case "method_declaration", "constructor_declaration", "compact_constructor_declaration":
		return one(c.method(n))
	case "block", "constructor_body":
		return one(c.node(n, syntax.KindBlock, c.all(n)))
	case "expression_statement":
		return one(c.node(n, syntax.KindExprStmt, c.all(n)))
	case "if_statement":
		children := c.convert(n.ChildByFieldName("condition"))
		children = append(children, c.convert(n.ChildByFieldName("consequence"))...)
		children = append(children, c.convert(n.ChildByFieldName("alternative"))...)
		return one(c.node(n, syntax.KindIf, children))
	case "while_statement", "do_statement", "for_statement":
		loop := c.node(n, syntax.KindLoop, c.all(n))
		loop.Name = strings.TrimSuffix(n.Type(), "_statement")
		return one(loop)
	case "enhanced_for_statement":
		return one(c.foreach(n))
	case "return_statement":
		return one(c.node(n, syntax.KindReturn, c.all(n)))
	case "throw_statement":
		return one(c.node(n, syntax.KindThrow, c.all(n)))
	case "try_statement", "try_with_resources_statement":
		return one(c.try(n))
	case "synchronized_statement":
		return one(c.node(n, syntax.KindSynchronized, c.all(n)))
	case "switch_expression", "switch_statement":
		return one(c.node(n, syntax.KindSwitch, c.all(n)))
	case "break_statement", "continue_statement":
		return one(c.node(n, syntax.KindOther, nil))
	case "explicit_constructor_invocation":
		call := c.node(n, syntax.KindCall, []*syntax.Node{c.empty(n)})
		call.Name = c.text(n.ChildByFieldName("constructor"))
		call.Children = append(call.Children, c.all(n.ChildByFieldName("arguments"))...)
		return one(call)
	case "assignment_expression", "binary_expression":
		kind := syntax.KindBinary
		if n.Type() == "assignment_expression" {
			kind = syntax.KindAssign
		}
		children := c.convert(n.ChildByFieldName("left"))
		children = append(children, c.convert(n.ChildByFieldName("right"))...)
		out := c.node(n, kind, children)
		out.Name = c.text(n.ChildByFieldName("operator"))
		return one(out)
	case "unary_expression":
		out := c.node(n, syntax.KindUnary, c.convert(n.ChildByFieldName("operand")))
		out.Name = c.text(n.ChildByFieldName("operator"))
		return one(out)
	case "update_expression":
		out := c.node(n, syntax.KindUnary, c.all(n))
		out.Name = c.anonymous(n)
		return one(out)
	case "ternary_expression":
		children := c.convert(n.ChildByFieldName("condition"))
		children = append(children, c.convert(n.ChildByFieldName("consequence"))...)
		children = append(children, c.convert(n.ChildByFieldName("alternative"))...)
		return one(c.node(n, syntax.KindTernary, children))
	case "method_invocation":
		return one(c.call(n))
	case "object_creation_expression":
		return one(c.creation(n))
	case "field_access":
		out := c.node(n, syntax.KindFieldAccess, c.convert(n.ChildByFieldName("object")))
		out.Name = c.text(n.ChildByFieldName("field"))
		return one(out)
	case "array_access":
		children := c.convert(n.ChildByFieldName("array"))
		children = append(children, c.convert(n.ChildByFieldName("index"))...)
		return one(c.node(n, syntax.KindIndex, children))
	case "identifier", "this", "super":
		out := c.node(n, syntax.KindIdent, nil)
		out.Name = c.text(n)
		return one(out)
	case "parenthesized_expression":
		return c.all(n)
	case "cast_expression":
		out := c.node(n, syntax.KindCast, c.convert(n.ChildByFieldName("value")))
		out.Type = c.text(n.ChildByFieldName("type"))
		return one(out)
	case "lambda_expression":
		return one(c.lambda(n))
	case "array_creation_expression":
		out := c.node(n, syntax.KindArrayInit, c.all(n.ChildByFieldName("value")))
		out.Type = c.text(n.ChildByFieldName("type"))
		return one(out)
	case "array_initializer":
		return one(c.node(n, syntax.KindArrayInit, c.all(n)))
	}

	return one(c.node(n, syntax.KindOther, c.all(n)))
}

func one(n *syntax.Node) []*syntax.Node {
	return []*syntax.Node{n}
}

func (c *javaConverter) empty(n *sitter.Node) *syntax.Node {
	s := c.span(n)
	s.End = s.Start
	return &syntax.Node{Kind: syntax.KindEmpty, Span: s}
}

func (c *javaConverter) node(n *sitter.Node, kind syntax.Kind, children []*syntax.Node) *syntax.Node {
	return &syntax.Node{Kind: kind, Children: children, Span: c.span(n)}
}

// anonymous returns the text of the first unnamed token of n, e.g. "++".
func (c *javaConverter) anonymous(n *sitter.Node) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		ch := n.Child(i)
		if !ch.IsNamed() {
			return ch.Type()
		}
	}
	return ""
}

func (c *javaConverter) literal(n *sitter.Node, kind string) *syntax.Node {
	out := c.node(n, syntax.KindLiteral, nil)
	out.Name = kind
	out.Value = c.text(n)
	if kind == syntax.LitString {
		out.Value = unquote(out.Value)
	}
	return out
}

func unquote(s string) string {
	for _, q := range []string{`"""`, `"`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

func (c *javaConverter) modifiers(n *sitter.Node) syntax.Modifier {
	var mods syntax.Modifier
	for _, ch := range c.named(n) {
		if ch.Type() != "modifiers" {
			continue
		}
		for i := 0; i < int(ch.ChildCount()); i++ {
			mods |= syntax.ParseModifier(ch.Child(i).Type())
		}
	}
	return mods
}

func (c *javaConverter) class(n *sitter.Node) *syntax.Node {
	out := c.node(n, syntax.KindClass, nil)
	out.Name = c.text(n.ChildByFieldName("name"))
	out.Type = strings.TrimSuffix(n.Type(), "_declaration")
	out.Mods = c.modifiers(n)

	if sc := n.ChildByFieldName("superclass"); sc != nil {
		for _, t := range c.named(sc) {
			out.Bases = append(out.Bases, syntax.SimpleType(c.text(t)))
		}
	}
	for _, ch := range c.named(n) {
		switch ch.Type() {
		case "super_interfaces", "extends_interfaces":
			for _, list := range c.named(ch) {
				for _, t := range c.named(list) {
					out.Bases = append(out.Bases, syntax.SimpleType(c.text(t)))
				}
			}
		}
	}

	out.Children = c.members(n.ChildByFieldName("body"))
	return out
}

func (c *javaConverter) members(body *sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for _, ch := range c.named(body) {
		if ch.Type() == "enum_body_declarations" {
			out = append(out, c.members(ch)...)
			continue
		}
		out = append(out, c.convert(ch)...)
	}
	return out
}

func (c *javaConverter) variables(n *sitter.Node, kind syntax.Kind) []*syntax.Node {
	typ := c.text(n.ChildByFieldName("type"))
	mods := c.modifiers(n)

	var declarators []*sitter.Node
	for _, ch := range c.named(n) {
		if ch.Type() == "variable_declarator" {
			declarators = append(declarators, ch)
		}
	}

	out := make([]*syntax.Node, 0, len(declarators))
	for _, d := range declarators {
		v := &syntax.Node{
			Kind: kind,
			Name: c.text(d.ChildByFieldName("name")),
			Type: typ,
			Mods: mods,
			Span: c.span(d),
		}
		if len(declarators) == 1 {
			v.Span = c.span(n)
		}
		v.Children = c.convert(d.ChildByFieldName("value"))
		v.Children = append(v.Children, c.errors(d)...)
		out = append(out, v)
	}
	return append(out, c.errors(n)...)
}

// errors converts the error children of n, which field lookups would skip.
func (c *javaConverter) errors(n *sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for _, ch := range c.named(n) {
		if ch.Type() == "ERROR" || ch.IsMissing() {
			out = append(out, c.convert(ch)...)
		}
	}
	return out
}

func (c *javaConverter) method(n *sitter.Node) *syntax.Node {
	out := c.node(n, syntax.KindMethod, nil)
	out.Name = c.text(n.ChildByFieldName("name"))
	out.Type = c.text(n.ChildByFieldName("type"))
	out.Mods = c.modifiers(n)
	if n.Type() != "method_declaration" {
		out.Mods |= syntax.ModConstructor
	}

	out.Children = c.params(n.ChildByFieldName("parameters"))
	if body := n.ChildByFieldName("body"); body != nil {
		out.Children = append(out.Children, c.convert(body)...)
	}
	return out
}

func (c *javaConverter) params(list *sitter.Node) []*syntax.Node {
	var out []*syntax.Node
	for _, p := range c.named(list) {
		switch p.Type() {
		case "formal_parameter", "spread_parameter":
		case "identifier":
			param := c.node(p, syntax.KindParam, nil)
			param.Name = c.text(p)
			out = append(out, param)
			continue
		default:
			continue
		}

		param := c.node(p, syntax.KindParam, nil)
		param.Mods = c.modifiers(p)
		param.Type = c.text(p.ChildByFieldName("type"))
		name := p.ChildByFieldName("name")
		for _, ch := range c.named(p) {
			switch ch.Type() {
			case "variable_declarator":
				name = ch.ChildByFieldName("name")
			case "type_identifier", "generic_type", "scoped_type_identifier", "array_type", "integral_type", "floating_point_type", "boolean_type":
				if param.Type == "" {
					param.Type = c.text(ch)
				}
			}
		}
		param.Name = c.text(name)
		out = append(out, param)
	}
	return out
}

func (c *javaConverter) foreach(n *sitter.Node) *syntax.Node {
	out := c.node(n, syntax.KindLoop, nil)
	out.Name = "foreach"

	v := c.node(n, syntax.KindLocal, nil)
	v.Name = c.text(n.ChildByFieldName("name"))
	v.Type = c.text(n.ChildByFieldName("type"))
	out.Children = append(out.Children, v)
	out.Children = append(out.Children, c.convert(n.ChildByFieldName("value"))...)
	out.Children = append(out.Children, c.convert(n.ChildByFieldName("body"))...)
	return out
}

func (c *javaConverter) try(n *sitter.Node) *syntax.Node {
	out := c.node(n, syntax.KindTry, nil)

	for _, r := range c.named(n.ChildByFieldName("resources")) {
		if r.Type() != "resource" {
			continue
		}
		res := c.node(r, syntax.KindResource, nil)
		if name := r.ChildByFieldName("name"); name != nil {
			res.Name = c.text(name)
			res.Type = c.text(r.ChildByFieldName("type"))
			res.Mods = c.modifiers(r)
			res.Children = c.convert(r.ChildByFieldName("value"))
		} else {
			res.Children = c.all(r)
			if len(res.Children) == 1 && res.Children[0].Kind == syntax.KindIdent {
				res.Name = res.Children[0].Name
			}
		}
		out.Children = append(out.Children, res)
	}

	out.Children = append(out.Children, c.convert(n.ChildByFieldName("body"))...)

	for _, ch := range c.named(n) {
		switch ch.Type() {
		case "catch_clause":
			out.Children = append(out.Children, c.catch(ch))
		case "finally_clause":
			out.Children = append(out.Children, c.node(ch, syntax.KindFinally, c.all(ch)))
		}
	}
	return out
}

func (c *javaConverter) catch(n *sitter.Node) *syntax.Node {
	out := c.node(n, syntax.KindCatch, nil)
	for _, ch := range c.named(n) {
		if ch.Type() != "catch_formal_parameter" {
			continue
		}
		name := ch.ChildByFieldName("name")
		for _, part := range c.named(ch) {
			switch part.Type() {
			case "catch_type":
				out.Type = c.text(part)
			case "identifier":
				if name == nil {
					name = part
				}
			}
		}
		out.Name = c.text(name)
	}
	out.Children = c.convert(n.ChildByFieldName("body"))
	return out
}

func (c *javaConverter) call(n *sitter.Node) *syntax.Node {
	out := c.node(n, syntax.KindCall, nil)
	out.Name = c.text(n.ChildByFieldName("name"))

	receiver := c.convert(n.ChildByFieldName("object"))
	if len(receiver) == 0 {
		receiver = one(c.empty(n))
	}
	out.Children = append(receiver, c.all(n.ChildByFieldName("arguments"))...)
	return out
}

func (c *javaConverter) creation(n *sitter.Node) *syntax.Node {
	out := c.node(n, syntax.KindNew, c.all(n.ChildByFieldName("arguments")))
	out.Type = c.text(n.ChildByFieldName("type"))

	for _, ch := range c.named(n) {
		if ch.Type() != "class_body" {
			continue
		}
		anon := c.node(ch, syntax.KindClass, c.members(ch))
		anon.Type = "anonymous"
		anon.Bases = []string{syntax.SimpleType(out.Type)}
		out.Children = append(out.Children, anon)
	}
	return out
}

func (c *javaConverter) lambda(n *sitter.Node) *syntax.Node {
	out := c.node(n, syntax.KindLambda, nil)

	params := n.ChildByFieldName("parameters")
	switch {
	case params == nil:
	case params.Type() == "identifier":
		p := c.node(params, syntax.KindParam, nil)
		p.Name = c.text(params)
		out.Children = append(out.Children, p)
	default:
		out.Children = append(out.Children, c.params(params)...)
	}

	out.Children = append(out.Children, c.convert(n.ChildByFieldName("body"))...)
	return out
}
