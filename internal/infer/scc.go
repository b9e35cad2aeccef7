package infer

import "github.com/antec-lang/antec/internal/ast"

// callGraph is a dependency graph between DefIds, used to find the
// strongly-connected components that must be generalised together
// (spec.md §4.2 "Mutual recursion"). InferProgram builds one graph over
// every top-level definition of the program.
type callGraph struct {
	nodes []ast.DefId
	edges map[ast.DefId][]ast.DefId
	seen  map[ast.DefId]bool
}

func newCallGraph() *callGraph {
	return &callGraph{edges: map[ast.DefId][]ast.DefId{}, seen: map[ast.DefId]bool{}}
}

func (g *callGraph) addNode(id ast.DefId) {
	if !g.seen[id] {
		g.nodes = append(g.nodes, id)
		g.seen[id] = true
	}
}

func (g *callGraph) addEdge(from, to ast.DefId) {
	g.addNode(from)
	g.addNode(to)
	g.edges[from] = append(g.edges[from], to)
}

// sccs computes strongly connected components via Tarjan's algorithm,
// returned in reverse topological order (a component's dependencies appear
// in earlier slices), matching the order C4 must type-check them in.
func (g *callGraph) sccs() [][]ast.DefId {
	index := 0
	var stack []ast.DefId
	indices := map[ast.DefId]int{}
	lowlink := map[ast.DefId]int{}
	onStack := map[ast.DefId]bool{}
	var out [][]ast.DefId

	var connect func(ast.DefId)
	connect = func(v ast.DefId) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g.edges[v] {
			if !g.seen[w] {
				continue // not a node; addEdge registers both endpoints, so edges never lead here
			}
			if _, ok := indices[w]; !ok {
				connect(w)
				if lowlink[w] < lowlink[v] {
					lowlink[v] = lowlink[w]
				}
			} else if onStack[w] {
				if indices[w] < lowlink[v] {
					lowlink[v] = indices[w]
				}
			}
		}

		if lowlink[v] == indices[v] {
			var comp []ast.DefId
			for {
				n := len(stack) - 1
				w := stack[n]
				stack = stack[:n]
				onStack[w] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			out = append(out, comp)
		}
	}

	for _, n := range g.nodes {
		if _, ok := indices[n]; !ok {
			connect(n)
		}
	}
	return out
}

// DependencyGraph builds the call graph across every definition in defs,
// keyed by each definition's own DefId, for C8's TypeCheckDependencyGraph
// query (spec.md §4.8). Like the graph InferProgram builds, it spans the
// whole program; unlike that one, it keeps only edges whose target is one
// of defs, so references to parameters, locals or names outside the
// program add no nodes.
func DependencyGraph(defs []*ast.Definition) map[ast.DefId][]ast.DefId {
	return buildProgramGraph(defs).edges
}

// SCCs returns defs's strongly connected components in reverse topological
// order (dependencies before dependents), for C8's TypeCheckSCC query.
func SCCs(defs []*ast.Definition) [][]ast.DefId {
	return buildProgramGraph(defs).sccs()
}

func buildProgramGraph(defs []*ast.Definition) *callGraph {
	g := newCallGraph()
	known := map[ast.DefId]bool{}
	for _, d := range defs {
		g.addNode(d.Def)
		known[d.Def] = true
	}
	for _, d := range defs {
		var refs []ast.DefId
		collectRefs(d.Body, &refs)
		for _, r := range refs {
			if known[r] {
				g.addEdge(d.Def, r)
			}
		}
	}
	return g
}

// collectRefs walks e, appending every ast.Var's resolved DefId that is not
// Unresolved. C4 uses this to build the program's call graph before
// type-checking any definition.
func collectRefs(e ast.Expr, out *[]ast.DefId) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.Var:
		if n.Def != ast.Unresolved {
			*out = append(*out, n.Def)
		}
	case *ast.Lambda:
		collectRefs(n.Body, out)
	case *ast.App:
		collectRefs(n.Func, out)
		for _, a := range n.Args {
			collectRefs(a, out)
		}
	case *ast.Let:
		collectRefs(n.Value, out)
		collectRefs(n.Body, out)
	case *ast.If:
		collectRefs(n.Cond, out)
		collectRefs(n.Then, out)
		collectRefs(n.Else, out)
	case *ast.Match:
		collectRefs(n.Scrutinee, out)
		for _, a := range n.Arms {
			collectRefs(a.Guard, out)
			collectRefs(a.Body, out)
		}
	case *ast.RecordLit:
		collectRefs(n.Base, out)
		for _, f := range n.Fields {
			collectRefs(f.Value, out)
		}
	case *ast.FieldAccess:
		collectRefs(n.Target, out)
	case *ast.Sequence:
		for _, s := range n.Exprs {
			collectRefs(s, out)
		}
	case *ast.Return:
		collectRefs(n.Value, out)
	case *ast.Handle:
		collectRefs(n.Body, out)
		for _, c := range n.Cases {
			collectRefs(c.Body, out)
		}
	case *ast.Assign:
		collectRefs(n.Target, out)
		collectRefs(n.Value, out)
	}
}
