package hir

import "github.com/antec-lang/antec/internal/ast"

// freeVariables returns every ast.DefId referenced inside n.Body that n's
// own parameters and internal bindings do not shadow, in first-occurrence
// order, with each one's surface name and its first occurrence node (so a
// caller can recover its type via Checker.TypeOf, which is keyed by node
// identity rather than DefId). This is the capture set C7's closure
// conversion packs into a lambda's environment tuple (spec.md §4.7
// "Closures"): a lambda whose capture set is empty collapses to a bare
// function pointer.
func freeVariables(n *ast.Lambda) ([]ast.DefId, map[ast.DefId]string, map[ast.DefId]*ast.Var) {
	bound := map[ast.DefId]bool{}
	for _, p := range n.Params {
		bindNames(p, bound)
	}
	var out []ast.DefId
	seen := map[ast.DefId]bool{}
	names := map[ast.DefId]string{}
	occ := map[ast.DefId]*ast.Var{}
	collectFree(n.Body, bound, seen, &out, names, occ)
	return out, names, occ
}

func bindNames(p ast.Pattern, bound map[ast.DefId]bool) {
	switch pp := p.(type) {
	case *ast.VarPattern:
		bound[pp.Def] = true
	case *ast.ConstructorPattern:
		for _, a := range pp.Args {
			bindNames(a, bound)
		}
	case *ast.TuplePattern:
		for _, e := range pp.Elems {
			bindNames(e, bound)
		}
	case *ast.StructPattern:
		for _, sub := range pp.Fields {
			bindNames(sub, bound)
		}
	}
}

func collectFree(e ast.Expr, bound map[ast.DefId]bool, seen map[ast.DefId]bool, out *[]ast.DefId, names map[ast.DefId]string, occ map[ast.DefId]*ast.Var) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.Lit:
	case *ast.Var:
		if n.Def != ast.Unresolved && !bound[n.Def] && !seen[n.Def] {
			seen[n.Def] = true
			names[n.Def] = n.Name
			occ[n.Def] = n
			*out = append(*out, n.Def)
		}
	case *ast.Lambda:
		inner := copyBound(bound)
		for _, p := range n.Params {
			bindNames(p, inner)
		}
		collectFree(n.Body, inner, seen, out, names, occ)
	case *ast.App:
		collectFree(n.Func, bound, seen, out, names, occ)
		for _, a := range n.Args {
			collectFree(a, bound, seen, out, names, occ)
		}
	case *ast.Let:
		collectFree(n.Value, bound, seen, out, names, occ)
		inner := copyBound(bound)
		bindNames(n.Pattern, inner)
		collectFree(n.Body, inner, seen, out, names, occ)
	case *ast.If:
		collectFree(n.Cond, bound, seen, out, names, occ)
		collectFree(n.Then, bound, seen, out, names, occ)
		collectFree(n.Else, bound, seen, out, names, occ)
	case *ast.Match:
		collectFree(n.Scrutinee, bound, seen, out, names, occ)
		for _, arm := range n.Arms {
			inner := copyBound(bound)
			bindNames(arm.Pattern, inner)
			collectFree(arm.Guard, inner, seen, out, names, occ)
			collectFree(arm.Body, inner, seen, out, names, occ)
		}
	case *ast.RecordLit:
		collectFree(n.Base, bound, seen, out, names, occ)
		for _, f := range n.Fields {
			collectFree(f.Value, bound, seen, out, names, occ)
		}
	case *ast.FieldAccess:
		collectFree(n.Target, bound, seen, out, names, occ)
	case *ast.Sequence:
		for _, s := range n.Exprs {
			collectFree(s, bound, seen, out, names, occ)
		}
	case *ast.Return:
		collectFree(n.Value, bound, seen, out, names, occ)
	case *ast.Handle:
		collectFree(n.Body, bound, seen, out, names, occ)
		for _, cs := range n.Cases {
			inner := copyBound(bound)
			for _, p := range cs.Params {
				bindNames(p, inner)
			}
			collectFree(cs.Body, inner, seen, out, names, occ)
		}
	case *ast.Assign:
		collectFree(n.Target, bound, seen, out, names, occ)
		collectFree(n.Value, bound, seen, out, names, occ)
	}
}

func copyBound(b map[ast.DefId]bool) map[ast.DefId]bool {
	out := make(map[ast.DefId]bool, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
