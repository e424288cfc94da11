package facts

import "factlint/internal/syntax"

// Category names a fact family in the table.
type Category string

const (
	CatClass      Category = "class"
	CatMethod     Category = "method"
	CatField      Category = "field"
	CatLocal      Category = "local"
	CatAssign     Category = "assign"
	CatDeref      Category = "deref"
	CatCall       Category = "call"
	CatNew        Category = "new"
	CatCompare    Category = "compare"
	CatAcquire    Category = "resource.acquired"
	CatRelease    Category = "resource.released"
	CatEscape     Category = "resource.escaped"
	CatCatch      Category = "catch"
	CatFieldWrite Category = "field.write"
	CatExit       Category = "exit"
	CatBranch     Category = "branch"
	CatMalformed  Category = "malformed"
)

// Fact is an immutable observation about one unit.
type Fact interface {
	Category() Category
	Where() Site
}

// Scope is the structural position a fact was observed in. Zero IDs mean
// "not inside one".
type Scope struct {
	Class   string
	Method  string // Class.name/arity, empty for field initializers
	Block   int
	Stmt    int // index of the enclosing statement within Block
	Lambda  int
	Try     int // innermost try body
	Finally int // try whose finally clause encloses the fact
	Guarded bool
	Task    int // concurrent-task context
}

// Site is embedded by every fact.
type Site struct {
	Span  syntax.Span
	Scope Scope
}

func (s Site) Where() Site { return s }

// SymbolKind tells locals, parameters and fields apart.
type SymbolKind int

const (
	SymUnknown SymbolKind = iota
	SymLocal
	SymParam
	SymField
)

// Symbol identifies a variable. Locals are distinguished by the offset of
// their declaration so shadowed names never collide.
type Symbol struct {
	Name  string
	Kind  SymbolKind
	Class string // owning class for fields
	Decl  int
}

func (s Symbol) Valid() bool { return s.Kind != SymUnknown && s.Name != "" }

func (s Symbol) IsField() bool { return s.Kind == SymField }

// ValueKind is the shape of an expression as seen by rules.
type ValueKind int

const (
	ValOther ValueKind = iota
	ValNull
	ValLiteral
	ValIdent
	ValNew
	ValCall
	ValConcat
	ValArray
	ValLambda
)

// Value describes an expression without retaining its syntax node.
type Value struct {
	Kind    ValueKind
	Text    string // literal text, identifier, callee or created type
	Lit     string // literal kind for ValLiteral
	Type    string // static type when known, simple name
	Symbol  Symbol
	Dynamic bool    // concat or array with a non-literal part
	Parts   []Value // flattened concat operands or array elements
	Span    syntax.Span
}

// IsStringLiteral reports a plain string literal.
func (v Value) IsStringLiteral() bool {
	return v.Kind == ValLiteral && v.Lit == syntax.LitString
}

// ClassDecl is a class, interface, enum or anonymous class body.
type ClassDecl struct {
	Site
	Name      string
	Bases     []string
	Anonymous bool
}

// MethodDecl is a method or constructor.
type MethodDecl struct {
	Site
	Key         string
	Name        string
	Class       string
	Params      []Symbol
	Mods        syntax.Modifier
	HasBody     bool
	EmptyBody   bool
	Constructor bool
}

// FieldDecl is one declared field.
type FieldDecl struct {
	Site
	Symbol Symbol
	Type   string
	Mods   syntax.Modifier
	Init   *Value
}

// VarDecl is a local, parameter, catch parameter or resource.
type VarDecl struct {
	Site
	Symbol Symbol
	Type   string
	Init   *Value
}

// Assign records a symbol receiving a value, either by initializer or by an
// assignment or update expression.
type Assign struct {
	Site
	Target Symbol
	Op     string
	Value  Value
	Decl   bool
}

// Deref is a member access through a variable.
type Deref struct {
	Site
	Symbol Symbol
	Member string
}

// CallSite is a method invocation.
type CallSite struct {
	Site
	Callee       string
	Receiver     *Value // nil for unqualified calls
	ReceiverType string
	Args         []Value
	ResultUsed   bool
}

// OnSelf reports an unqualified call or one through this.
func (c CallSite) OnSelf() bool {
	return c.Receiver == nil || (c.Receiver.Kind == ValIdent && c.Receiver.Text == "this")
}

// NewObject is a constructor invocation.
type NewObject struct {
	Site
	Type      string
	Args      []Value
	Anonymous bool
}

// Compare is an == or != comparison.
type Compare struct {
	Site
	Op          string
	Left, Right Value
}

// ResourceAcquired is a closeable value bound to a symbol.
type ResourceAcquired struct {
	Site
	Symbol Symbol
	Type   string
	Via    string
	Scoped bool
}

// ResourceReleased is a release call on a symbol.
type ResourceReleased struct {
	Site
	Symbol Symbol
	// Always is the try statement that runs this release on every exit,
	// from its resource list or an unconditional finally statement. Zero
	// when the release may be skipped.
	Always syntax.Span
}

// ResourceEscaped is ownership of a symbol moving elsewhere.
type ResourceEscaped struct {
	Site
	Symbol Symbol
	How    string // return, field or wrap
}

// CatchBlock is one catch clause.
type CatchBlock struct {
	Site
	ExceptionType string
	Param         string
	BodyEmpty     bool
}

// FieldWrite is a store into a field, directly or through a mutating call.
type FieldWrite struct {
	Site
	Field    Symbol
	Type     string
	Static   bool
	Volatile bool
	Via      string
}

// Exit is a return or throw.
type Exit struct {
	Site
	Kind  string
	Value *Value
}

// Branch is a control-flow split.
type Branch struct {
	Site
	Kind string
}

// Malformed marks a subtree that could not be extracted.
type Malformed struct {
	Site
	Kind   syntax.Kind
	Reason string
}

func (ClassDecl) Category() Category        { return CatClass }
func (MethodDecl) Category() Category       { return CatMethod }
func (FieldDecl) Category() Category        { return CatField }
func (VarDecl) Category() Category          { return CatLocal }
func (Assign) Category() Category           { return CatAssign }
func (Deref) Category() Category            { return CatDeref }
func (CallSite) Category() Category         { return CatCall }
func (NewObject) Category() Category        { return CatNew }
func (Compare) Category() Category          { return CatCompare }
func (ResourceAcquired) Category() Category { return CatAcquire }
func (ResourceReleased) Category() Category { return CatRelease }
func (ResourceEscaped) Category() Category  { return CatEscape }
func (CatchBlock) Category() Category       { return CatCatch }
func (FieldWrite) Category() Category       { return CatFieldWrite }
func (Exit) Category() Category             { return CatExit }
func (Branch) Category() Category           { return CatBranch }
func (Malformed) Category() Category        { return CatMalformed }
