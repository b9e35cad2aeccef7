// Package hir implements C7 (spec.md §4.7): monomorphisation and lowering
// from the fully type-annotated surface AST to a representation with no
// type variables, traits or source-language sugar left in it. Every
// generic definition is specialised on demand, keyed by the concrete
// monotype each reference instantiates it at; sum-type constructors lower
// to an explicit (tag, payload) pair; closures lower to a (function
// pointer, environment tuple) pair that collapses to the bare pointer when
// nothing is captured; and `let` over a compound pattern desugars to a
// temporary plus one field projection per leaf.
package hir

import (
	"github.com/antec-lang/antec/internal/cache"
	"github.com/antec-lang/antec/internal/types"
)

// Expr is the lowered form of an expression: every node here stands for a
// fully concrete, dictionary-free computation.
type Expr interface{ hirExpr() }

// LitKind mirrors ast.LitKind, repeated here so hir has no dependency on
// the surface lexical representation of literals.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitString
	LitChar
	LitBool
	LitUnit
)

// Lit is a literal value of a concrete primitive type.
type Lit struct {
	Kind  LitKind
	Value interface{}
	Type  types.Type
}

func (*Lit) hirExpr() {}

// Local is a reference to a value bound earlier in the same definition (a
// parameter, a Let, or a field unpacked from a closure's environment).
type Local struct {
	Name string
	Type types.Type
}

func (*Local) hirExpr() {}

// GlobalRef refers to one monomorphic specialisation of a top-level or
// let-bound definition, addressed by its HIRDefinitionId.
type GlobalRef struct {
	Def  cache.HIRDefinitionId
	Type types.Type
}

func (*GlobalRef) hirExpr() {}

// Closure pairs a specialised function with the environment it closes
// over. Env is nil when the function captures nothing, collapsing the
// pair to the bare function pointer (spec.md §4.7 "Closures").
type Closure struct {
	Func cache.HIRDefinitionId
	Env  []Expr
	Type types.Type
}

func (*Closure) hirExpr() {}

// App is function application; Func evaluates to either a GlobalRef (a
// direct, non-capturing call) or a Closure (an indirect call through its
// function pointer, with the environment passed as the implicit last
// argument).
type App struct {
	Func Expr
	Args []Expr
	Type types.Type
}

func (*App) hirExpr() {}

// Let binds Value to Name for the extent of Body.
type Let struct {
	Name  string
	Value Expr
	Body  Expr
	Type  types.Type
}

func (*Let) hirExpr() {}

// If is a concrete conditional.
type If struct {
	Cond, Then, Else Expr
	Type             types.Type
}

func (*If) hirExpr() {}

// Match walks an executable decision tree built over already-lowered
// expressions. Unlike C6's dtree.Tree (which only ever needs to answer
// exhaustiveness/redundancy questions at typecheck time and is discarded
// right after), C7's own tree carries concrete Proj chains and per-arm
// bindings, since a runtime actually has to extract pattern variables and
// evaluate guards, not just decide which arm wins.
type Match struct {
	Tree MTree
	Type types.Type
}

func (*Match) hirExpr() {}

// MTree is C7's own executable counterpart of dtree.Tree (spec.md §4.7,
// grounded on the same Maranget matrix algorithm as C6's dtree package, but
// producing runtime projections and bindings instead of a yes/no verdict).
type MTree interface{ isMTree() }

// MLeaf is a matched arm; Body is already wrapped in the Let/Proj chain
// that binds every pattern variable this arm introduced.
type MLeaf struct{ Body Expr }

func (*MLeaf) isMTree() {}

// MFail marks a branch that spec.md's exhaustiveness check (MAT001) already
// proved unreachable at typecheck time; reaching it at runtime is a bug
// elsewhere in the pipeline, not a user-facing case.
type MFail struct{}

func (*MFail) isMTree() {}

// MGuard re-tests a row whose pattern matched but whose guard may still
// fail. Cond and Then are both pre-wrapped with this arm's binding chain;
// Else is evaluated fresh, with none of those bindings in scope.
type MGuard struct {
	Cond Expr
	Then Expr
	Else MTree
}

func (*MGuard) isMTree() {}

// MCase is one arm of an MSwitch over a sum type's tag.
type MCase struct {
	Tag uint8
	Sub MTree
}

// MSwitch dispatches on Scrutinee's runtime tag (a sum type) or its literal
// value (bool, int, string, char); Lits holds the compared value for the
// latter kind, one per Cases entry in the same order, and is nil for a
// sum-type switch where Cases' Tag is authoritative.
type MSwitch struct {
	Scrutinee Expr
	Cases     []MCase
	Lits      []interface{}
	Default   MTree
}

func (*MSwitch) isMTree() {}

// Proj extracts one flat slot from a compound value: element Index of a
// tuple, payload slot Index of a variant's fields, or field Index of a
// record in its canonical (sorted-by-name) order.
type Proj struct {
	Target Expr
	Index  int
	Type   types.Type
}

func (*Proj) hirExpr() {}

// MakeTuple builds a fixed-arity product value.
type MakeTuple struct {
	Elems []Expr
	Type  types.Type
}

func (*MakeTuple) hirExpr() {}

// MakeRecord builds a record value; Fields is already sorted by name so
// two records of the same row type always lay out identically.
type MakeRecord struct {
	Fields []Expr
	Type   types.Type
}

func (*MakeRecord) hirExpr() {}

// MakeVariant constructs a sum-type value as an explicit (tag, payload)
// pair (spec.md §4.7 "Sum types"). Payload carries only this variant's own
// fields; it is not padded to the widest sibling variant.
type MakeVariant struct {
	Tag     uint8
	Payload []Expr
	Type    types.Type
}

func (*MakeVariant) hirExpr() {}

// Sequence evaluates Exprs in order for effect; only the last value escapes.
type Sequence struct {
	Exprs []Expr
	Type  types.Type
}

func (*Sequence) hirExpr() {}

// Return is an early return carrying Value.
type Return struct {
	Value Expr
	Type  types.Type
}

func (*Return) hirExpr() {}

// Assign stores Value through Target (itself a Local or Proj chain
// resolving to a mutable slot).
type Assign struct {
	Target Expr
	Value  Expr
	Type   types.Type
}

func (*Assign) hirExpr() {}

// HandledCase is one `effect.op` arm of a Handle, its Resume name bound to
// the (unlowered, structural) resumption continuation.
type HandledCase struct {
	Effect, Op string
	Params     []string
	Resume     string
	Body       Expr
}

// Handle installs handlers around Body. C7 lowers it structurally rather
// than performing the further CPS/beta-reduction pass spec.md §4.7
// describes (see DESIGN.md: no codegen backend in this repo consumes that
// transform, so there is nothing to beta-reduce against); a runtime or a
// later backend walks Cases directly to install and invoke handlers.
type Handle struct {
	Body  Expr
	Cases []HandledCase
	Type  types.Type
}

func (*Handle) hirExpr() {}

// Definition is one monomorphic specialisation of a source definition:
// either a plain function (EnvParam == "") or a closure body, where
// Captures names the environment tuple's fields in the order Env is built
// at every non-recursive call site.
type Definition struct {
	Id       cache.HIRDefinitionId
	Name     string
	Params   []string
	EnvParam string
	Captures []string
	Body     Expr
	Type     *types.Func
}

// Program is every specialisation C7 produced, in the order they were
// first demanded, plus which one is the entry point.
type Program struct {
	Definitions []*Definition
	Main        cache.HIRDefinitionId
}
