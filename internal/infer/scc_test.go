package infer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antec-lang/antec/internal/ast"
)

func defNoRefs(id ast.DefId, name string) *ast.Definition {
	return &ast.Definition{Name: name, Def: id, Body: &ast.Lit{Kind: ast.LitInt, Value: int64(0)}}
}

func defCalling(id ast.DefId, name string, callee ast.DefId) *ast.Definition {
	return &ast.Definition{Name: name, Def: id, Body: &ast.Var{Name: "callee", Def: callee}}
}

func TestDependencyGraph_LinearChainHasNoCycles(t *testing.T) {
	const (
		leaf ast.DefId = 1
		mid  ast.DefId = 2
		top  ast.DefId = 3
	)
	defs := []*ast.Definition{
		defNoRefs(leaf, "leaf"),
		defCalling(mid, "mid", leaf),
		defCalling(top, "top", mid),
	}

	g := DependencyGraph(defs)
	assert.Equal(t, []ast.DefId{leaf}, g[mid])
	assert.Equal(t, []ast.DefId{mid}, g[top])
	assert.Empty(t, g[leaf])
}

func TestDependencyGraph_IgnoresReferencesOutsideTheProgram(t *testing.T) {
	const onlyDef ast.DefId = 1
	const external ast.DefId = 99

	defs := []*ast.Definition{defCalling(onlyDef, "only", external)}
	g := DependencyGraph(defs)
	assert.Empty(t, g[onlyDef], "a reference to a DefId outside defs must not appear as an edge")
}

func TestSCCs_LinearChainIsOneGroupPerDef(t *testing.T) {
	const (
		leaf ast.DefId = 1
		mid  ast.DefId = 2
		top  ast.DefId = 3
	)
	defs := []*ast.Definition{
		defNoRefs(leaf, "leaf"),
		defCalling(mid, "mid", leaf),
		defCalling(top, "top", mid),
	}

	sccs := SCCs(defs)
	require.Len(t, sccs, 3)
	for _, group := range sccs {
		assert.Len(t, group, 1, "no mutual recursion here, every group is a singleton")
	}
	// reverse topological order: leaf's group must appear before top's.
	leafIdx, topIdx := -1, -1
	for i, group := range sccs {
		if group[0] == leaf {
			leafIdx = i
		}
		if group[0] == top {
			topIdx = i
		}
	}
	require.NotEqual(t, -1, leafIdx)
	require.NotEqual(t, -1, topIdx)
	assert.Less(t, leafIdx, topIdx, "leaf has no dependencies, so it must be type-checked first")
}

func TestSCCs_MutualRecursionCollapsesToOneGroup(t *testing.T) {
	const (
		evenDef ast.DefId = 1
		oddDef  ast.DefId = 2
	)
	even := &ast.Definition{Name: "isEven", Def: evenDef, Body: &ast.Var{Name: "isOdd", Def: oddDef}}
	odd := &ast.Definition{Name: "isOdd", Def: oddDef, Body: &ast.Var{Name: "isEven", Def: evenDef}}

	sccs := SCCs([]*ast.Definition{even, odd})
	require.Len(t, sccs, 1)
	assert.ElementsMatch(t, []ast.DefId{evenDef, oddDef}, sccs[0])
}
