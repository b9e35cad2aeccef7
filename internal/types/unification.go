package types

import (
	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/cache"
	"github.com/antec-lang/antec/internal/errors"
)

// Follow walks bound variables until it reaches a non-variable type or an
// unbound variable (spec.md C2 "follow_bindings").
func Follow(mc *ModuleCache, t Type) Type {
	for {
		v, ok := t.(*Var)
		if !ok {
			return t
		}
		b := mc.Binding(v.Id)
		if !b.Bound {
			return t
		}
		t = b.Type
	}
}

// OccursResult is the outcome of the occurs check: either t does not
// contain v (Ok), or it does and unifying would build an infinite type.
type OccursResult int

const (
	OccursOK OccursResult = iota
	OccursCycle
)

// Occurs checks whether v occurs free in t, lowering the level of every
// free unbound variable encountered along the way to at most level
// (spec.md C2: "lower level of every free variable in the type to at most
// the variable's level"), extending their lifetime past the let scope they
// would otherwise be generalised at.
func Occurs(mc *ModuleCache, v cache.TypeVariableId, level Level, t Type) OccursResult {
	t = Follow(mc, t)
	switch n := t.(type) {
	case *Var:
		if n.Id == v {
			return OccursCycle
		}
		b := mc.Binding(n.Id)
		if !b.Bound && b.Level > level {
			b.Level = level
		}
		return OccursOK
	case *Func:
		for _, p := range n.Params {
			if Occurs(mc, v, level, p) == OccursCycle {
				return OccursCycle
			}
		}
		if Occurs(mc, v, level, n.Return) == OccursCycle {
			return OccursCycle
		}
		if n.Effects != nil {
			if occursRow(mc, v, level, n.Effects) == OccursCycle {
				return OccursCycle
			}
		}
		return OccursOK
	case *UserDefined:
		for _, a := range n.Args {
			if Occurs(mc, v, level, a) == OccursCycle {
				return OccursCycle
			}
		}
		return OccursOK
	case *App:
		if Occurs(mc, v, level, n.Ctor) == OccursCycle {
			return OccursCycle
		}
		for _, a := range n.Args {
			if Occurs(mc, v, level, a) == OccursCycle {
				return OccursCycle
			}
		}
		return OccursOK
	case *Ref:
		return Occurs(mc, v, level, n.Elem)
	case *Row:
		return occursRow(mc, v, level, n)
	case *Pointer:
		return Occurs(mc, v, level, n.Elem)
	case *Tuple:
		for _, el := range n.Elems {
			if Occurs(mc, v, level, el) == OccursCycle {
				return OccursCycle
			}
		}
		return OccursOK
	default:
		return OccursOK
	}
}

func occursRow(mc *ModuleCache, v cache.TypeVariableId, level Level, r *Row) OccursResult {
	for _, t := range r.Labels {
		if Occurs(mc, v, level, t) == OccursCycle {
			return OccursCycle
		}
	}
	if r.Tail != nil {
		if *r.Tail == v {
			return OccursCycle
		}
		b := mc.Binding(*r.Tail)
		if !b.Bound && b.Level > level {
			b.Level = level
		}
	}
	return OccursOK
}

// Unify makes t1 and t2 equal, destructively binding type variables in mc,
// per the rules of spec.md §4.2.
func Unify(mc *ModuleCache, t1, t2 Type, span ast.Span) error {
	t1 = Follow(mc, t1)
	t2 = Follow(mc, t2)

	if v1, ok := t1.(*Var); ok {
		if v2, ok2 := t2.(*Var); ok2 {
			return unifyVars(mc, v1.Id, v2.Id)
		}
		return bindVar(mc, v1.Id, t2, span)
	}
	if v2, ok := t2.(*Var); ok {
		return bindVar(mc, v2.Id, t1, span)
	}

	switch a := t1.(type) {
	case *Int:
		b, ok := t2.(*Int)
		if !ok || a.IsVar || b.IsVar {
			return unifyInferredInt(mc, a, t2, span)
		}
		if a.Kind != b.Kind {
			return mismatch(span, t1, t2)
		}
		return nil

	case *Float:
		b, ok := t2.(*Float)
		if !ok || a.Kind != b.Kind {
			return mismatch(span, t1, t2)
		}
		return nil

	case *Char:
		if _, ok := t2.(*Char); !ok {
			return mismatch(span, t1, t2)
		}
		return nil

	case *String:
		if _, ok := t2.(*String); !ok {
			return mismatch(span, t1, t2)
		}
		return nil

	case *Tuple:
		b, ok := t2.(*Tuple)
		if !ok || len(a.Elems) != len(b.Elems) {
			return errors.New(errors.TYP003, span, "tuple arity mismatch").Err()
		}
		for i := range a.Elems {
			if err := Unify(mc, a.Elems[i], b.Elems[i], span); err != nil {
				return err
			}
		}
		return nil

	case *Bool:
		if _, ok := t2.(*Bool); !ok {
			return mismatch(span, t1, t2)
		}
		return nil

	case *Unit:
		if _, ok := t2.(*Unit); !ok {
			return mismatch(span, t1, t2)
		}
		return nil

	case *Pointer:
		b, ok := t2.(*Pointer)
		if !ok {
			return mismatch(span, t1, t2)
		}
		return Unify(mc, a.Elem, b.Elem, span)

	case *Func:
		b, ok := t2.(*Func)
		if !ok {
			return mismatch(span, t1, t2)
		}
		if len(a.Params) != len(b.Params) && !a.IsVarargs && !b.IsVarargs {
			return errors.New(errors.TYP003, span, "function arity mismatch").Err()
		}
		n := len(a.Params)
		if len(b.Params) < n {
			n = len(b.Params)
		}
		for i := 0; i < n; i++ {
			if err := Unify(mc, a.Params[i], b.Params[i], span); err != nil {
				return err
			}
		}
		if err := Unify(mc, a.Return, b.Return, span); err != nil {
			return err
		}
		return UnifyEffectRows(mc, a.Effects, b.Effects, span)

	case *App:
		b, ok := t2.(*App)
		if !ok {
			return mismatch(span, t1, t2)
		}
		if err := Unify(mc, a.Ctor, b.Ctor, span); err != nil {
			return err
		}
		if len(a.Args) != len(b.Args) {
			return errors.New(errors.TYP003, span, "type application arity mismatch").Err()
		}
		for i := range a.Args {
			if err := Unify(mc, a.Args[i], b.Args[i], span); err != nil {
				return err
			}
		}
		return nil

	case *UserDefined:
		b, ok := t2.(*UserDefined)
		if !ok || a.Id != b.Id {
			return mismatch(span, t1, t2)
		}
		for i := range a.Args {
			if err := Unify(mc, a.Args[i], b.Args[i], span); err != nil {
				return err
			}
		}
		return nil

	case *Ref:
		b, ok := t2.(*Ref)
		if !ok {
			return mismatch(span, t1, t2)
		}
		if !a.PolyMut && !b.PolyMut && a.Mutable != b.Mutable {
			return errors.New(errors.TYP005, span, "reference mutability mismatch").Err()
		}
		if a.Shared != PolySharedness && b.Shared != PolySharedness && a.Shared != b.Shared {
			return errors.New(errors.TYP005, span, "reference sharedness mismatch").Err()
		}
		if err := unifyVars(mc, a.Lifetime, b.Lifetime); err != nil {
			return err
		}
		return Unify(mc, a.Elem, b.Elem, span)

	case *Row:
		b, ok := t2.(*Row)
		if !ok {
			return mismatch(span, t1, t2)
		}
		return unifyRows(mc, a, b, span)

	default:
		return mismatch(span, t1, t2)
	}
}

func unifyVars(mc *ModuleCache, a, b cache.TypeVariableId) error {
	if a == b {
		return nil
	}
	ba, bb := mc.Binding(a), mc.Binding(b)
	lvl := ba.Level
	if bb.Level < lvl {
		lvl = bb.Level
	}
	ba.Level, bb.Level = lvl, lvl
	*ba = TypeBinding{Bound: true, Type: &Var{Id: b}}
	return nil
}

func bindVar(mc *ModuleCache, v cache.TypeVariableId, t Type, span ast.Span) error {
	b := mc.Binding(v)
	if Occurs(mc, v, b.Level, t) == OccursCycle {
		return errors.New(errors.TYP002, span, "recursive type: "+t.String()+" contains "+v.String()).Err()
	}
	*b = TypeBinding{Bound: true, Type: t}
	return nil
}

// unifyInferredInt bridges an as-yet-undetermined integer literal (the
// `Inferred` case of spec.md §3) with either a concrete Int kind or another
// undetermined literal, by unifying their backing type variables.
func unifyInferredInt(mc *ModuleCache, a *Int, t2 Type, span ast.Span) error {
	if !a.IsVar {
		b, ok := t2.(*Int)
		if !ok || !b.IsVar {
			return mismatch(span, a, t2)
		}
		return bindVar(mc, b.Inferred, a, span)
	}
	return bindVar(mc, a.Inferred, t2, span)
}

func unifyRows(mc *ModuleCache, a, b *Row, span ast.Span) error {
	if a.Kind != b.Kind {
		return mismatch(span, a, b)
	}
	common := map[string]bool{}
	for k := range a.Labels {
		if _, ok := b.Labels[k]; ok {
			common[k] = true
		}
	}
	for k := range common {
		if err := Unify(mc, a.Labels[k], b.Labels[k], span); err != nil {
			return err
		}
	}

	var onlyA, onlyB []string
	for k := range a.Labels {
		if !common[k] {
			onlyA = append(onlyA, k)
		}
	}
	for k := range b.Labels {
		if !common[k] {
			onlyB = append(onlyB, k)
		}
	}

	switch {
	case len(onlyA) == 0 && len(onlyB) == 0:
		if a.Tail == nil || b.Tail == nil {
			return nil
		}
		return unifyVars(mc, *a.Tail, *b.Tail)

	case a.Tail != nil && len(onlyB) >= 0:
		// The extra fields on B's side attach to A's tail variable.
		extra := map[string]Type{}
		for _, k := range onlyB {
			extra[k] = b.Labels[k]
		}
		return bindVar(mc, *a.Tail, &Row{Kind: a.Kind, Labels: extra, Tail: b.Tail}, span)

	case b.Tail != nil:
		extra := map[string]Type{}
		for _, k := range onlyA {
			extra[k] = a.Labels[k]
		}
		return bindVar(mc, *b.Tail, &Row{Kind: a.Kind, Labels: extra, Tail: a.Tail}, span)

	default:
		return errors.New(errors.TYP001, span, "rows have disjoint closed fields").Err()
	}
}

func mismatch(span ast.Span, a, b Type) error {
	return errors.New(errors.TYP001, span, "cannot unify "+a.String()+" with "+b.String()).
		WithData("expected", a.String()).WithData("actual", b.String()).Err()
}
