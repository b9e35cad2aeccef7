// Package traits implements trait and impl resolution (C3, spec.md §4.3):
// partitioning the pending constraint queue into propagated, integer
// literal, field-access and ordinary obligations, and resolving the
// ordinary ones by searching an ImplScope with functional-dependency
// enforcement.
package traits

import (
	"fmt"
	"sort"

	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/cache"
	"github.com/antec-lang/antec/internal/errors"
	"github.com/antec-lang/antec/internal/types"
)

// IntTraitName is the reserved trait name C4 uses for integer-literal
// obligations (spec.md §4.3 "Integer literal").
const IntTraitName = "Int"

// Resolver holds the configuration resolution needs beyond the module
// cache: the default integer kind for defaulted literals, and an
// accumulator to report into without aborting (spec.md §7 propagation
// policy).
type Resolver struct {
	MC         *types.ModuleCache
	DefaultInt types.IntKind
	Diags      *errors.Accumulator
}

// New builds a Resolver over mc, defaulting undetermined integer literals
// to defaultInt.
func New(mc *types.ModuleCache, defaultInt types.IntKind, diags *errors.Accumulator) *Resolver {
	return &Resolver{MC: mc, DefaultInt: defaultInt, Diags: diags}
}

// Partition splits the pending queue in two: the propagated obligations,
// and the rest, which ResolveAll then handles as integer-literal,
// field-access or ordinary obligations (spec.md §4.3's other three
// buckets). generalizedVars names the type variables the enclosing
// definition will quantify; a constraint mentioning one of them is
// propagated onto that definition's scheme rather than resolved now. An
// integer literal's Inferred variable and a function's effect row are not
// searched for mentions.
func (r *Resolver) Partition(queue []cache.TraitConstraintId, generalizedVars []cache.TypeVariableId) (propagated []types.RequiredTrait, rest []cache.TraitConstraintId) {
	generalized := map[cache.TypeVariableId]bool{}
	for _, v := range generalizedVars {
		generalized[v] = true
	}
	for _, id := range queue {
		c := r.MC.Constraint(id)
		if mentionsAny(r.MC, c.Args, generalized) {
			propagated = append(propagated, types.RequiredTrait{Trait: c.Trait, Args: c.Args})
			continue
		}
		rest = append(rest, id)
	}
	return propagated, rest
}

func mentionsAny(mc *types.ModuleCache, args []types.Type, vars map[cache.TypeVariableId]bool) bool {
	for _, a := range args {
		if typeMentions(mc, a, vars) {
			return true
		}
	}
	return false
}

func typeMentions(mc *types.ModuleCache, t types.Type, vars map[cache.TypeVariableId]bool) bool {
	t = types.Follow(mc, t)
	switch n := t.(type) {
	case *types.Var:
		return vars[n.Id]
	case *types.Func:
		for _, p := range n.Params {
			if typeMentions(mc, p, vars) {
				return true
			}
		}
		return typeMentions(mc, n.Return, vars)
	case *types.UserDefined:
		for _, a := range n.Args {
			if typeMentions(mc, a, vars) {
				return true
			}
		}
	case *types.App:
		if typeMentions(mc, n.Ctor, vars) {
			return true
		}
		for _, a := range n.Args {
			if typeMentions(mc, a, vars) {
				return true
			}
		}
	case *types.Tuple:
		return mentionsAny(mc, n.Elems, vars)
	case *types.Ref:
		return typeMentions(mc, n.Elem, vars)
	case *types.Pointer:
		return typeMentions(mc, n.Elem, vars)
	case *types.Row:
		for _, l := range n.Labels {
			if typeMentions(mc, l, vars) {
				return true
			}
		}
		return n.Tail != nil && vars[*n.Tail]
	}
	return false
}

// ResolveAll drives resolution of every non-propagated constraint in queue
// after Partition has removed the ones deferred to the enclosing scheme.
// It never aborts on an individual failure: a poisoned ImplBindingId is
// left unresolved and a diagnostic is recorded, per spec.md §7.
func (r *Resolver) ResolveAll(queue []cache.TraitConstraintId) {
	for _, id := range queue {
		r.resolveOne(id)
	}
}

func (r *Resolver) resolveOne(id cache.TraitConstraintId) {
	c := r.MC.Constraint(id)
	trait := r.MC.Trait(c.Trait)

	switch {
	case trait.Name == IntTraitName:
		r.resolveIntLiteral(c)
	case len(trait.Name) > 0 && trait.Name[0] == '.':
		r.resolveFieldAccess(c, trait.Name[1:])
	default:
		r.resolveOrdinary(c)
	}
}

// resolveIntLiteral accepts a concrete Int argument outright, or defaults
// an unbound variable to Resolver.DefaultInt (spec.md §4.3).
func (r *Resolver) resolveIntLiteral(c *types.TraitConstraint) {
	arg := types.Follow(r.MC, c.Args[0])
	if i, ok := arg.(*types.Int); ok {
		if !i.IsVar {
			return // already concrete
		}
		_ = types.Unify(r.MC, arg, &types.Int{Kind: r.DefaultInt}, c.Span)
		return
	}
	if _, ok := arg.(*types.Var); ok {
		_ = types.Unify(r.MC, arg, &types.Int{Kind: r.DefaultInt}, c.Span)
	}
}

// resolveFieldAccess looks field up on the concrete record type carried as
// the constraint's first argument and unifies the field's type with the
// second argument, when present (spec.md §4.3 "Field access").
func (r *Resolver) resolveFieldAccess(c *types.TraitConstraint, field string) {
	recv := types.Follow(r.MC, c.Args[0])
	row, ok := recv.(*types.Row)
	if !ok || row.Kind != types.RecordRow {
		r.Diags.Add(errors.New(errors.TRT004, c.Span, fmt.Sprintf("cannot access field %q on non-record type %s", field, recv)))
		return
	}
	ft, ok := row.Labels[field]
	if !ok {
		r.Diags.Add(errors.New(errors.TRT004, c.Span, fmt.Sprintf("unknown field %q", field)))
		return
	}
	if len(c.Args) > 1 {
		_ = types.Unify(r.MC, ft, c.Args[1], c.Span)
	}
}

// resolveOrdinary implements the procedure of spec.md §4.3 "Ordinary
// resolution": try every candidate in scope, recursively resolving `given`
// obligations, and commit iff exactly one candidate succeeds end to end.
func (r *Resolver) resolveOrdinary(c *types.TraitConstraint) {
	impls := r.MC.ImplScope(c.Scope)

	var succeeded []cache.ImplInfoId
	for _, implID := range impls {
		impl := r.MC.Impl(implID)
		if impl.Trait != c.Trait {
			continue
		}
		if r.tryCandidate(impl, implID, c) {
			succeeded = append(succeeded, implID)
		}
	}

	switch len(succeeded) {
	case 0:
		r.Diags.Add(errors.New(errors.TRT001, c.Span, fmt.Sprintf("no impl found for %s", traitHead(r.MC, c))))
	case 1:
		r.MC.BindImpl(c.Binding, succeeded[0])
	default:
		rep := errors.New(errors.TRT002, c.Span, fmt.Sprintf("overlapping impls for %s", traitHead(r.MC, c)))
		names := make([]string, len(succeeded))
		for i, id := range succeeded {
			names[i] = fmt.Sprintf("impl#%d", id)
		}
		sort.Strings(names)
		rep.WithData("candidates", names)
		r.Diags.Add(rep)
	}
}

func traitHead(mc *types.ModuleCache, c *types.TraitConstraint) string {
	name := mc.Trait(c.Trait).Name
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = types.Follow(mc, a).String()
	}
	return fmt.Sprintf("%s%v", name, parts)
}

// tryCandidate attempts to unify candidate's argument types with the
// constraint's, enforcing functional dependencies, then recursively
// resolves the candidate's `given` clauses. It commits bindings on success
// and reports nothing itself — the caller decides uniqueness.
func (r *Resolver) tryCandidate(impl *types.ImplInfo, implID cache.ImplInfoId, c *types.TraitConstraint) bool {
	trait := r.MC.Trait(c.Trait)
	if len(impl.Args) != len(c.Args) {
		return false
	}

	// Functional-dependency inputs must unify before outputs are forced
	// (spec.md §4.3 "Functional dependencies").
	fundep := map[int]bool{}
	for _, out := range trait.FunDeps {
		for i, p := range trait.TypeParams {
			if p == out {
				fundep[i] = true
			}
		}
	}

	for i := range impl.Args {
		if fundep[i] {
			continue
		}
		if err := types.Unify(r.MC, impl.Args[i], c.Args[i], c.Span); err != nil {
			return false
		}
	}
	for i := range impl.Args {
		if !fundep[i] {
			continue
		}
		if err := types.Unify(r.MC, impl.Args[i], c.Args[i], c.Span); err != nil {
			return false
		}
	}

	for _, given := range impl.Given {
		if !r.silentlyResolvable(given, c.Scope, c.Span) {
			return false
		}
	}
	return true
}

// silentlyResolvable checks a `given` obligation the same way resolveOrdinary
// does, but never writes a diagnostic: a failed `given` only disqualifies
// the candidate it belongs to, it is not itself a user-facing error.
func (r *Resolver) silentlyResolvable(req types.RequiredTrait, scope cache.ImplScopeId, span ast.Span) bool {
	for _, implID := range r.MC.ImplScope(scope) {
		impl := r.MC.Impl(implID)
		if impl.Trait != req.Trait || len(impl.Args) != len(req.Args) {
			continue
		}
		ok := true
		for i, p := range impl.Args {
			if err := types.Unify(r.MC, p, req.Args[i], span); err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		allGiven := true
		for _, g := range impl.Given {
			if !r.silentlyResolvable(g, scope, span) {
				allGiven = false
				break
			}
		}
		if allGiven {
			return true
		}
	}
	return false
}
