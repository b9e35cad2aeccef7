package types

import "github.com/antec-lang/antec/internal/cache"

// Concretize follows every binding in t and defaults whatever is left: an
// undetermined integer literal becomes defaultInt (spec.md §4.7 "unknown
// integer literals default to a fixed kind"), and any variable that somehow
// survived inference unbound (dead code the resolver never forced a default
// onto) becomes Unit so C7 never has to represent a type variable.
func Concretize(mc *ModuleCache, t Type, defaultInt IntKind) Type {
	t = Follow(mc, t)
	switch n := t.(type) {
	case *Var:
		return &Unit{}
	case *Int:
		seen := map[cache.TypeVariableId]bool{}
		for n.IsVar && !seen[n.Inferred] && mc.Binding(n.Inferred).Bound {
			seen[n.Inferred] = true
			next, ok := Follow(mc, mc.Binding(n.Inferred).Type).(*Int)
			if !ok {
				break
			}
			n = next
		}
		if n.IsVar {
			return &Int{Kind: defaultInt}
		}
		return n
	case *Func:
		params := make([]Type, len(n.Params))
		for i, p := range n.Params {
			params[i] = Concretize(mc, p, defaultInt)
		}
		var eff *Row
		if n.Effects != nil {
			eff = concretizeRow(mc, n.Effects, defaultInt)
		}
		return &Func{Params: params, Return: Concretize(mc, n.Return, defaultInt), Env: n.Env, Effects: eff, IsVarargs: n.IsVarargs}
	case *UserDefined:
		args := make([]Type, len(n.Args))
		for i, a := range n.Args {
			args[i] = Concretize(mc, a, defaultInt)
		}
		return &UserDefined{Id: n.Id, Name: n.Name, Args: args}
	case *App:
		args := make([]Type, len(n.Args))
		for i, a := range n.Args {
			args[i] = Concretize(mc, a, defaultInt)
		}
		return &App{Ctor: Concretize(mc, n.Ctor, defaultInt), Args: args}
	case *Ref:
		return &Ref{Mutable: n.Mutable, PolyMut: n.PolyMut, Shared: n.Shared, Lifetime: n.Lifetime, Elem: Concretize(mc, n.Elem, defaultInt)}
	case *Row:
		return concretizeRow(mc, n, defaultInt)
	case *Pointer:
		return &Pointer{Elem: Concretize(mc, n.Elem, defaultInt)}
	case *Tuple:
		elems := make([]Type, len(n.Elems))
		for i, e := range n.Elems {
			elems[i] = Concretize(mc, e, defaultInt)
		}
		return &Tuple{Elems: elems}
	default:
		return t
	}
}

func concretizeRow(mc *ModuleCache, r *Row, defaultInt IntKind) *Row {
	r = FollowRow(mc, r)
	labels := make(map[string]Type, len(r.Labels))
	for k, v := range r.Labels {
		labels[k] = Concretize(mc, v, defaultInt)
	}
	// An open tail left dangling at C7 time never gets more fields; treat it
	// as closed so the HIR layout is fully determined.
	return &Row{Kind: r.Kind, Labels: labels}
}

// MonoKey renders a canonical string for t: the String of its concretized
// form, so two types get the same key iff they concretize identically.
// C7's monomorphisation cache (spec.md §4.7) does not call it; hir builds
// its key in Lowerer.siteTypeKey.
func MonoKey(mc *ModuleCache, t Type, defaultInt IntKind) string {
	return Concretize(mc, t, defaultInt).String()
}
