package types

import (
	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/cache"
)

// IsSyntacticValue implements the value restriction of spec.md §4.2:
// generalisation only applies to a variable reference or a lambda whose
// closure environment is empty (no free variables captured by reference);
// every other expression form keeps its monotype. A nil freeNonGlobals
// skips the environment check, so every lambda counts as a value; infer's
// inferLet passes nil, so a let-bound lambda is generalised whether or not
// it captures locals. Top-level definitions are generalised by
// infer.inferGroup without calling this function.
func IsSyntacticValue(e ast.Expr, freeNonGlobals func(*ast.Lambda) bool) bool {
	switch n := e.(type) {
	case *ast.Var:
		return true
	case *ast.Lambda:
		if freeNonGlobals == nil {
			return true
		}
		return !freeNonGlobals(n)
	default:
		return false
	}
}

// freeVars collects every free, unbound type variable in t whose level is
// strictly greater than atLevel (spec.md §4.2 "Generalisation").
func freeVars(mc *ModuleCache, t Type, atLevel Level, seen map[cache.TypeVariableId]bool, out *[]cache.TypeVariableId) {
	t = Follow(mc, t)
	switch n := t.(type) {
	case *Var:
		b := mc.Binding(n.Id)
		if b.Bound {
			return
		}
		if b.Level > atLevel && !seen[n.Id] {
			seen[n.Id] = true
			*out = append(*out, n.Id)
		}
	case *Int:
		if n.IsVar {
			freeVars(mc, &Var{Id: n.Inferred}, atLevel, seen, out)
		}
	case *Func:
		for _, p := range n.Params {
			freeVars(mc, p, atLevel, seen, out)
		}
		freeVars(mc, n.Return, atLevel, seen, out)
		if n.Effects != nil {
			freeVarsRow(mc, n.Effects, atLevel, seen, out)
		}
	case *UserDefined:
		for _, a := range n.Args {
			freeVars(mc, a, atLevel, seen, out)
		}
	case *App:
		freeVars(mc, n.Ctor, atLevel, seen, out)
		for _, a := range n.Args {
			freeVars(mc, a, atLevel, seen, out)
		}
	case *Ref:
		freeVars(mc, n.Elem, atLevel, seen, out)
	case *Row:
		freeVarsRow(mc, n, atLevel, seen, out)
	case *Pointer:
		freeVars(mc, n.Elem, atLevel, seen, out)
	case *Tuple:
		for _, el := range n.Elems {
			freeVars(mc, el, atLevel, seen, out)
		}
	}
}

func freeVarsRow(mc *ModuleCache, r *Row, atLevel Level, seen map[cache.TypeVariableId]bool, out *[]cache.TypeVariableId) {
	for _, t := range r.Labels {
		freeVars(mc, t, atLevel, seen, out)
	}
	if r.Tail != nil {
		b := mc.Binding(*r.Tail)
		if !b.Bound && b.Level > atLevel && !seen[*r.Tail] {
			seen[*r.Tail] = true
			*out = append(*out, *r.Tail)
		}
	}
}

// FreeVars exposes freeVars to other packages: every free, unbound type
// variable in t whose level is strictly greater than atLevel.
func FreeVars(mc *ModuleCache, t Type, atLevel Level) []cache.TypeVariableId {
	var out []cache.TypeVariableId
	freeVars(mc, t, atLevel, map[cache.TypeVariableId]bool{}, &out)
	return out
}

// Generalize quantifies every free variable deeper than currentLevel,
// attaching the given required-trait obligations. It is the caller's
// responsibility to first check IsSyntacticValue; Generalize itself just
// performs the quantification.
func Generalize(mc *ModuleCache, t Type, currentLevel Level, obligations []RequiredTrait) *Scheme {
	var vars []cache.TypeVariableId
	freeVars(mc, t, currentLevel, map[cache.TypeVariableId]bool{}, &vars)
	return &Scheme{Vars: vars, Body: t, Required: obligations}
}

// Instantiate replaces each quantified variable in scheme with a fresh
// unbound variable at level, and rewrites the scheme's required-trait
// obligations through the same substitution, returning them as constraints
// to enqueue for resolution at the callsite (spec.md §4.2 "Instantiation").
func Instantiate(mc *ModuleCache, scheme *Scheme, level Level) (Type, []RequiredTrait) {
	t, reqs, _ := InstantiateSub(mc, scheme, level)
	return t, reqs
}

// InstantiateSub is Instantiate plus the scheme-variable-to-fresh-variable
// substitution it used. C7 keeps this mapping per callsite (spec.md §4.7):
// once inference finishes and every fresh variable is bound to something
// concrete, Follow-ing it back through this map recovers exactly which
// monotype this occurrence instantiated the generic definition's own body
// at, without re-type-checking that body.
func InstantiateSub(mc *ModuleCache, scheme *Scheme, level Level) (Type, []RequiredTrait, map[cache.TypeVariableId]cache.TypeVariableId) {
	if len(scheme.Vars) == 0 {
		return scheme.Body, nil, nil
	}
	sub := make(map[cache.TypeVariableId]cache.TypeVariableId, len(scheme.Vars))
	for _, v := range scheme.Vars {
		sub[v] = mc.NextTypeVariable(level)
	}
	body := substitute(sub, scheme.Body)
	reqs := make([]RequiredTrait, len(scheme.Required))
	for i, r := range scheme.Required {
		args := make([]Type, len(r.Args))
		for j, a := range r.Args {
			args[j] = substitute(sub, a)
		}
		reqs[i] = RequiredTrait{Trait: r.Trait, Args: args}
	}
	return body, reqs, sub
}

// SubstituteVars replaces every Var whose Id is a key of sub with the
// concrete Type it maps to, recursing through every compound type. Unlike
// substitute (which renames scheme variables to fresh ones at
// instantiation), this rewrites a generic definition's own recorded node
// types into the concrete monotype a specific C7 specialisation needs
// (spec.md §4.7: recovering "the monomorphising dispatch path" for a
// generic body from a single inference pass over it).
func SubstituteVars(mc *ModuleCache, sub map[cache.TypeVariableId]Type, t Type) Type {
	t = Follow(mc, t)
	switch n := t.(type) {
	case *Var:
		if repl, ok := sub[n.Id]; ok {
			return repl
		}
		return n
	case *Func:
		params := make([]Type, len(n.Params))
		for i, p := range n.Params {
			params[i] = SubstituteVars(mc, sub, p)
		}
		var eff *Row
		if n.Effects != nil {
			eff = substituteVarsRow(mc, sub, n.Effects)
		}
		return &Func{Params: params, Return: SubstituteVars(mc, sub, n.Return), Env: n.Env, Effects: eff, IsVarargs: n.IsVarargs}
	case *UserDefined:
		args := make([]Type, len(n.Args))
		for i, a := range n.Args {
			args[i] = SubstituteVars(mc, sub, a)
		}
		return &UserDefined{Id: n.Id, Name: n.Name, Args: args}
	case *App:
		args := make([]Type, len(n.Args))
		for i, a := range n.Args {
			args[i] = SubstituteVars(mc, sub, a)
		}
		return &App{Ctor: SubstituteVars(mc, sub, n.Ctor), Args: args}
	case *Ref:
		return &Ref{Mutable: n.Mutable, PolyMut: n.PolyMut, Shared: n.Shared, Lifetime: n.Lifetime, Elem: SubstituteVars(mc, sub, n.Elem)}
	case *Row:
		return substituteVarsRow(mc, sub, n)
	case *Pointer:
		return &Pointer{Elem: SubstituteVars(mc, sub, n.Elem)}
	case *Tuple:
		elems := make([]Type, len(n.Elems))
		for i, e := range n.Elems {
			elems[i] = SubstituteVars(mc, sub, e)
		}
		return &Tuple{Elems: elems}
	default:
		return t
	}
}

func substituteVarsRow(mc *ModuleCache, sub map[cache.TypeVariableId]Type, r *Row) *Row {
	r = FollowRow(mc, r)
	labels := make(map[string]Type, len(r.Labels))
	for k, v := range r.Labels {
		labels[k] = SubstituteVars(mc, sub, v)
	}
	if r.Tail != nil {
		if repl, ok := sub[*r.Tail]; ok {
			if rr, ok := repl.(*Row); ok {
				for k, v := range rr.Labels {
					labels[k] = v
				}
				return &Row{Kind: r.Kind, Labels: labels, Tail: rr.Tail}
			}
			return &Row{Kind: r.Kind, Labels: labels}
		}
	}
	return &Row{Kind: r.Kind, Labels: labels, Tail: r.Tail}
}

func substitute(sub map[cache.TypeVariableId]cache.TypeVariableId, t Type) Type {
	switch n := t.(type) {
	case *Var:
		if fresh, ok := sub[n.Id]; ok {
			return &Var{Id: fresh}
		}
		return n
	case *Func:
		params := make([]Type, len(n.Params))
		for i, p := range n.Params {
			params[i] = substitute(sub, p)
		}
		var eff *Row
		if n.Effects != nil {
			eff = substituteRow(sub, n.Effects)
		}
		return &Func{Params: params, Return: substitute(sub, n.Return), Env: n.Env, Effects: eff, IsVarargs: n.IsVarargs}
	case *UserDefined:
		args := make([]Type, len(n.Args))
		for i, a := range n.Args {
			args[i] = substitute(sub, a)
		}
		return &UserDefined{Id: n.Id, Name: n.Name, Args: args}
	case *App:
		args := make([]Type, len(n.Args))
		for i, a := range n.Args {
			args[i] = substitute(sub, a)
		}
		return &App{Ctor: substitute(sub, n.Ctor), Args: args}
	case *Ref:
		lt := n.Lifetime
		if fresh, ok := sub[n.Lifetime]; ok {
			lt = fresh
		}
		return &Ref{Mutable: n.Mutable, PolyMut: n.PolyMut, Shared: n.Shared, Lifetime: lt, Elem: substitute(sub, n.Elem)}
	case *Row:
		return substituteRow(sub, n)
	case *Pointer:
		return &Pointer{Elem: substitute(sub, n.Elem)}
	case *Tuple:
		elems := make([]Type, len(n.Elems))
		for i, el := range n.Elems {
			elems[i] = substitute(sub, el)
		}
		return &Tuple{Elems: elems}
	default:
		return t
	}
}

func substituteRow(sub map[cache.TypeVariableId]cache.TypeVariableId, r *Row) *Row {
	labels := make(map[string]Type, len(r.Labels))
	for k, v := range r.Labels {
		labels[k] = substitute(sub, v)
	}
	tail := r.Tail
	if tail != nil {
		if fresh, ok := sub[*tail]; ok {
			tail = &fresh
		}
	}
	return &Row{Kind: r.Kind, Labels: labels, Tail: tail}
}
