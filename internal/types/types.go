// Package types implements the shared data model of spec.md §3 and the
// type representation plus unification engine of C2 (§4.2), the trait/impl
// data model that C3's resolution algorithm (package traits) operates over,
// and effect row inference (C5, §4.5). They share this package, the way the
// teacher repo keeps its own type system, instance table and effect rows
// side by side in one `types` package, because unification, generalisation
// and row handling are too tightly coupled to separate cleanly.
package types

import (
	"fmt"
	"strings"

	"github.com/antec-lang/antec/internal/cache"
)

// IntKind names an integer primitive's width and signedness.
type IntKind int

const (
	I8 IntKind = iota
	I16
	I32
	I64
	U8
	U16
	U32
	U64
)

func (k IntKind) String() string {
	return [...]string{"i8", "i16", "i32", "i64", "u8", "u16", "u32", "u64"}[k]
}

// FloatKind names a float primitive's width.
type FloatKind int

const (
	F32 FloatKind = iota
	F64
)

func (k FloatKind) String() string { return [...]string{"f32", "f64"}[k] }

// Type is the sum type of every kind a type can take (spec.md §3).
type Type interface {
	fmt.Stringer
	typeNode()
}

// Int is a primitive integer of a specific width/signedness, or the
// `Inferred` bridge: an integer literal whose concrete kind has not yet
// been chosen (tracked through a TypeVariableId so unification and
// defaulting can pin it down later).
type Int struct {
	Kind     IntKind
	Inferred cache.TypeVariableId
	IsVar    bool
}

func (*Int) typeNode() {}
func (t *Int) String() string {
	if t.IsVar {
		return fmt.Sprintf("Int(%s)", cache.TypeVariableId(t.Inferred))
	}
	return t.Kind.String()
}

// Float is a primitive float of a specific width.
type Float struct{ Kind FloatKind }

func (*Float) typeNode()      {}
func (t *Float) String() string { return t.Kind.String() }

// Char, Bool and Unit are the remaining scalar primitives.
type Char struct{}

func (*Char) typeNode()      {}
func (*Char) String() string { return "char" }

type Bool struct{}

func (*Bool) typeNode()      {}
func (*Bool) String() string { return "bool" }

type Unit struct{}

func (*Unit) typeNode()      {}
func (*Unit) String() string { return "()" }

// Pointer is a raw pointer to another type (used by HIR lowering, §4.7).
type Pointer struct{ Elem Type }

func (*Pointer) typeNode()      {}
func (t *Pointer) String() string { return "*" + t.Elem.String() }

// Var is a type variable: an id into the ModuleCache's binding table. Two
// Var values with the same Id are the same variable by identity.
type Var struct{ Id cache.TypeVariableId }

func (*Var) typeNode()      {}
func (t *Var) String() string { return t.Id.String() }

// UserDefined names a TypeInfoId, optionally applied to type arguments
// (e.g. `List[int]` is UserDefined{Id: listId, Args: [int]}).
type UserDefined struct {
	Id   cache.TypeInfoId
	Name string // kept for diagnostics only; Id is the source of truth
	Args []Type
}

func (*UserDefined) typeNode() {}
func (t *UserDefined) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s[%s]", t.Name, strings.Join(parts, ", "))
}

// Func is a function type: params, return, an optional captured-environment
// type (nil for a bare top-level function), the effect row it performs when
// called, and whether it accepts a variable argument count.
type Func struct {
	Params     []Type
	Return     Type
	Env        Type // nil unless this is a closure's function component
	Effects    *Row
	IsVarargs  bool
}

func (*Func) typeNode() {}
func (t *Func) String() string {
	parts := make([]string, len(t.Params))
	for i, p := range t.Params {
		parts[i] = p.String()
	}
	sig := fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), t.Return.String())
	if eff := FormatEffectRow(t.Effects); eff != "" {
		sig += " " + eff
	}
	return sig
}

// App is a type application `Ctor arg1 arg2 ...` where Ctor is itself a
// type (usually a Var standing for a higher-kinded parameter).
type App struct {
	Ctor Type
	Args []Type
}

func (*App) typeNode() {}
func (t *App) String() string {
	parts := make([]string, len(t.Args))
	for i, a := range t.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s %s", t.Ctor.String(), strings.Join(parts, " "))
}

// Tuple is a fixed-arity product type `(T1, T2, ...)`.
type Tuple struct{ Elems []Type }

func (*Tuple) typeNode() {}
func (t *Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// String is the primitive text type.
type String struct{}

func (*String) typeNode()      {}
func (*String) String() string { return "string" }

// Sharedness distinguishes unique references from shared (aliasable) ones.
type Sharedness int

const (
	Unique Sharedness = iota
	Shared
	PolySharedness // unresolved; unifies with either concrete sharedness
)

// Ref is a reference `&T` / `&mut T`, carrying mutability, sharedness and a
// lifetime variable.
type Ref struct {
	Mutable    bool
	PolyMut    bool // unresolved mutability; unifies with either
	Shared     Sharedness
	Lifetime   cache.TypeVariableId
	Elem       Type
}

func (*Ref) typeNode() {}
func (t *Ref) String() string {
	m := ""
	if t.Mutable {
		m = "mut "
	}
	return fmt.Sprintf("&%s%s", m, t.Elem.String())
}

// RowKind distinguishes a record (struct) row from an effect row; both
// share the same open/closed-row machinery (spec.md §3, §4.2, §4.5).
type RowKind int

const (
	RecordRow RowKind = iota
	EffectRow
)

// Row is `{ field: T, ... | rest }` for records, or `{ Eff(args), ... | rho }`
// for effect sets. Tail is nil for a closed row, or a type variable id for
// an open one.
type Row struct {
	Kind   RowKind
	Labels map[string]Type
	Tail   *cache.TypeVariableId
}

func (*Row) typeNode() {}
func (t *Row) String() string {
	names := make([]string, 0, len(t.Labels))
	for k := range t.Labels {
		names = append(names, k)
	}
	sortStrings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		if t.Kind == RecordRow {
			parts[i] = fmt.Sprintf("%s: %s", n, t.Labels[n].String())
		} else {
			parts[i] = n
		}
	}
	body := strings.Join(parts, ", ")
	if t.Tail != nil {
		if body != "" {
			body += " | " + t.Tail.String()
		} else {
			body = t.Tail.String()
		}
	}
	return "{" + body + "}"
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// Scheme is `forall vars. T` plus the required-trait obligations attached
// by generalisation (spec.md §3 "Definitions", §4.2 "Generalisation"). A
// monotype (no forall) is represented as Vars == nil.
type Scheme struct {
	Vars     []cache.TypeVariableId
	Body     Type
	Required []RequiredTrait
}

func (s *Scheme) String() string {
	if len(s.Vars) == 0 {
		return s.Body.String()
	}
	names := make([]string, len(s.Vars))
	for i, v := range s.Vars {
		names[i] = v.String()
	}
	return fmt.Sprintf("forall %s. %s", strings.Join(names, " "), s.Body.String())
}

// MonoScheme wraps a monotype as a trivial (ungeneralised) scheme.
func MonoScheme(t Type) *Scheme { return &Scheme{Body: t} }
