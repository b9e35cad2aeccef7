// Package ast defines the tree shape handed to the front end by the lexer,
// parser and name resolver. Those stages are external collaborators — this
// package only fixes the contract: every node carries a source span, and
// every name reference already carries a resolved definition id (or the
// unresolved sentinel) plus the impl scope visible at that point.
package ast

import "fmt"

// Pos is a single source location.
type Pos struct {
	File   string
	Line   int
	Column int
	Offset int
}

func (p Pos) String() string { return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column) }

// Span is a half-open source range.
type Span struct {
	Start Pos
	End   Pos
}

// DefId is a DefinitionInfoId minted by name resolution. Unresolved is the
// sentinel used for names the resolver could not bind (already diagnosed
// upstream); later passes must not treat it as a real definition.
type DefId int32

const Unresolved DefId = -1

// ImplScopeRef is the ImplScopeId attached to a variable site by name
// resolution, naming the impls visible at that program point.
type ImplScopeRef int32

// Node is the base interface implemented by every AST node.
type Node interface {
	Span() Span
}

// Expr is any expression-position node.
type Expr interface {
	Node
	exprNode()
}

// Pattern is any pattern-position node (match arms, let-bindings, params).
type Pattern interface {
	Node
	patternNode()
}

// TypeExpr is a surface type annotation (unresolved to a types.Type until C4
// or C2 processes it).
type TypeExpr interface {
	Node
	typeExprNode()
}

type baseNode struct{ Sp Span }

func (n baseNode) Span() Span { return n.Sp }

// ---- Expressions ----

// LitKind tags the literal kind of a Lit node.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitChar
	LitBool
	LitUnit
)

// Lit is a literal expression.
type Lit struct {
	baseNode
	Kind  LitKind
	Value interface{}
}

func (*Lit) exprNode() {}

// Var is a name reference, already resolved (or Unresolved) by the name
// resolver, with the impl scope visible at this site.
type Var struct {
	baseNode
	Name  string
	Def   DefId
	Scope ImplScopeRef
}

func (*Var) exprNode() {}

// Lambda is `fn params -> body` (or `\xs. e`); EffectAnn is the surface
// effect annotation, if any (may be nil and inferred).
type Lambda struct {
	baseNode
	Params    []Pattern
	Body      Expr
	EffectAnn []string
}

func (*Lambda) exprNode() {}

// App is function application `f(args...)`.
type App struct {
	baseNode
	Func Expr
	Args []Expr
}

func (*App) exprNode() {}

// Let is `let pat = value in body` (or `let pat = value; body` as a
// statement-position form when Body is nil, meaning "rest of the block").
type Let struct {
	baseNode
	Pattern   Pattern
	Value     Expr
	Body      Expr
	Recursive bool
	Mutable   bool
}

func (*Let) exprNode() {}

// If is a conditional expression.
type If struct {
	baseNode
	Cond Expr
	Then Expr
	Else Expr
}

func (*If) exprNode() {}

// MatchArm is one arm of a Match.
type MatchArm struct {
	Pattern Pattern
	Guard   Expr // optional
	Body    Expr
}

// Match is a pattern-match expression over a scrutinee.
type Match struct {
	baseNode
	Scrutinee Expr
	Arms      []MatchArm
}

func (*Match) exprNode() {}

// RecordField is one field initializer in a RecordLit.
type RecordField struct {
	Name  string
	Value Expr
}

// RecordLit constructs an anonymous-struct (record) value.
type RecordLit struct {
	baseNode
	Fields []RecordField
	Base   Expr // optional `{ ...base, field: v }` update syntax
}

func (*RecordLit) exprNode() {}

// FieldAccess is `expr.field`.
type FieldAccess struct {
	baseNode
	Target Expr
	Field  string
}

func (*FieldAccess) exprNode() {}

// Sequence is `e1; e2; ...; en`; only the final expression's value escapes.
type Sequence struct {
	baseNode
	Exprs []Expr
}

func (*Sequence) exprNode() {}

// Return is an early return from the enclosing function.
type Return struct {
	baseNode
	Value Expr
}

func (*Return) exprNode() {}

// HandlerCase is one `effect.op resume -> body` arm of a Handle expression.
type HandlerCase struct {
	Effect   string
	Op       string
	Params   []Pattern
	Resume   string // name bound to the resumption continuation
	Body     Expr
}

// Handle installs effect handlers around Body, discharging the named
// effects from Body's inferred row (spec.md §4.5).
type Handle struct {
	baseNode
	Body  Expr
	Cases []HandlerCase
}

func (*Handle) exprNode() {}

// Assign is `target := value` against a mutable (`var`) binding.
type Assign struct {
	baseNode
	Target Expr
	Value  Expr
}

func (*Assign) exprNode() {}

// ---- Patterns ----

// WildcardPattern matches anything and binds nothing.
type WildcardPattern struct{ baseNode }

func (*WildcardPattern) patternNode() {}

// VarPattern binds the scrutinee (or a specialised sub-value) to a name.
type VarPattern struct {
	baseNode
	Name string
	Def  DefId
}

func (*VarPattern) patternNode() {}

// LitPattern matches an exact literal value.
type LitPattern struct {
	baseNode
	Kind  LitKind
	Value interface{}
}

func (*LitPattern) patternNode() {}

// ConstructorPattern matches a sum-type variant, binding its fields.
type ConstructorPattern struct {
	baseNode
	Constructor string
	Def         DefId // the constructor's DefinitionInfoId
	Args        []Pattern
}

func (*ConstructorPattern) patternNode() {}

// StructPattern matches an anonymous-struct/record value field-by-field.
type StructPattern struct {
	baseNode
	Fields map[string]Pattern
	Rest   bool // `{ x, .. }` open pattern
}

func (*StructPattern) patternNode() {}

// TuplePattern matches a fixed-arity tuple.
type TuplePattern struct {
	baseNode
	Elems []Pattern
}

func (*TuplePattern) patternNode() {}

// ---- surface type annotations ----

// NamedType is `Name<args...>`.
type NamedType struct {
	baseNode
	Name string
	Args []TypeExpr
}

func (*NamedType) typeExprNode() {}

// FuncType is a surface function type annotation.
type FuncType struct {
	baseNode
	Params  []TypeExpr
	Return  TypeExpr
	Effects []string
}

func (*FuncType) typeExprNode() {}

// VarType is a surface rigid/generic type variable reference (`a`, `b`, ...).
type VarType struct {
	baseNode
	Name string
}

func (*VarType) typeExprNode() {}

// ---- top level ----

// Definition is a top-level or let-bound definition as delivered by the
// resolver: a name, its DefinitionInfoId, and its body.
type Definition struct {
	baseNode
	Name   string
	Def    DefId
	Params []Pattern
	Body   Expr
	Ann    TypeExpr // optional surface type signature
}

// NewSpan is a convenience constructor used by tests building synthetic
// trees without a real parser.
func NewSpan(file string, line int) Span {
	p := Pos{File: file, Line: line, Column: 1}
	return Span{Start: p, End: p}
}
