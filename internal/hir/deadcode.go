package hir

import "github.com/antec-lang/antec/internal/cache"

// Reachable walks prog starting from Main and returns the set of
// HIRDefinitionIds actually referenced, transitively, through GlobalRef and
// Closure nodes. Lower's own demand-driven monomorphisation cache already
// never materialises a definition nothing calls, so in practice this set
// equals every id in prog.Definitions; Reachable exists as a standalone,
// independently-checkable pass over an already-built Program rather than a
// trust assumption about how Lower happened to build it (spec.md §4.7 "dead
// code: reachability sweep from main").
func Reachable(prog *Program) map[cache.HIRDefinitionId]bool {
	byId := make(map[cache.HIRDefinitionId]*Definition, len(prog.Definitions))
	for _, d := range prog.Definitions {
		byId[d.Id] = d
	}

	seen := map[cache.HIRDefinitionId]bool{}
	var walk func(id cache.HIRDefinitionId)
	walk = func(id cache.HIRDefinitionId) {
		if seen[id] {
			return
		}
		seen[id] = true
		d, ok := byId[id]
		if !ok {
			return
		}
		walkExpr(d.Body, walk)
	}
	walk(prog.Main)
	return seen
}

func walkExpr(e Expr, visit func(cache.HIRDefinitionId)) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *Lit, *Local:
	case *GlobalRef:
		visit(n.Def)
	case *Closure:
		visit(n.Func)
		for _, c := range n.Env {
			walkExpr(c, visit)
		}
	case *App:
		walkExpr(n.Func, visit)
		for _, a := range n.Args {
			walkExpr(a, visit)
		}
	case *Let:
		walkExpr(n.Value, visit)
		walkExpr(n.Body, visit)
	case *If:
		walkExpr(n.Cond, visit)
		walkExpr(n.Then, visit)
		walkExpr(n.Else, visit)
	case *Match:
		walkTree(n.Tree, visit)
	case *Proj:
		walkExpr(n.Target, visit)
	case *MakeTuple:
		for _, el := range n.Elems {
			walkExpr(el, visit)
		}
	case *MakeRecord:
		for _, f := range n.Fields {
			walkExpr(f, visit)
		}
	case *MakeVariant:
		for _, p := range n.Payload {
			walkExpr(p, visit)
		}
	case *Sequence:
		for _, s := range n.Exprs {
			walkExpr(s, visit)
		}
	case *Return:
		walkExpr(n.Value, visit)
	case *Assign:
		walkExpr(n.Target, visit)
		walkExpr(n.Value, visit)
	case *Handle:
		walkExpr(n.Body, visit)
		for _, cs := range n.Cases {
			walkExpr(cs.Body, visit)
		}
	}
}

func walkTree(t MTree, visit func(cache.HIRDefinitionId)) {
	if t == nil {
		return
	}
	switch n := t.(type) {
	case *MLeaf:
		walkExpr(n.Body, visit)
	case *MFail:
	case *MGuard:
		walkExpr(n.Cond, visit)
		walkExpr(n.Then, visit)
		walkTree(n.Else, visit)
	case *MSwitch:
		walkExpr(n.Scrutinee, visit)
		for _, c := range n.Cases {
			walkTree(c.Sub, visit)
		}
		walkTree(n.Default, visit)
	}
}
