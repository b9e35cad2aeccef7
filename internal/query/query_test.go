package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/types"
)

func simpleProgram() []*ast.Definition {
	const (
		helperDef ast.DefId = 1
		mainDef   ast.DefId = 2
	)
	helper := &ast.Definition{
		Name: "helper", Def: helperDef,
		Body: &ast.Lit{Kind: ast.LitInt, Value: int64(1)},
	}
	main := &ast.Definition{
		Name: "main", Def: mainDef,
		Body: &ast.Var{Name: "helper", Def: helperDef},
	}
	return []*ast.Definition{helper, main}
}

func TestTable_TypeCheckIsMemoised(t *testing.T) {
	table := NewTable(types.I32)
	pr := table.Parse("prog.antec", simpleProgram())

	first := table.TypeCheck(pr, 2)
	require.True(t, first.OK, "expected a clean type check: %+v", first.Diagnostics)

	second := table.TypeCheck(pr, 2)
	assert.Same(t, first, second, "a second TypeCheck over the same program must be a cache hit")
}

func TestTable_ParseReturnsSameResultForSameInput(t *testing.T) {
	table := NewTable(types.I32)
	defs := simpleProgram()

	a := table.Parse("prog.antec", defs)
	b := table.Parse("prog.antec", defs)
	assert.Same(t, a, b, "Parse must memoise on (file, item DefIds)")

	other := table.Parse("other.antec", defs)
	assert.NotSame(t, a, other, "a different file id must be a different cache entry")
}

func TestTable_GetItemFindsAndMissesByDefId(t *testing.T) {
	table := NewTable(types.I32)
	pr := table.Parse("prog.antec", simpleProgram())

	item, ok := table.GetItem(pr, 1)
	require.True(t, ok)
	assert.Equal(t, "helper", item.Def.Name)

	_, ok = table.GetItem(pr, 99)
	assert.False(t, ok, "an id absent from the program must miss")
}

func TestTable_ResolveFlagsUnresolvedNames(t *testing.T) {
	table := NewTable(types.I32)
	bad := &ast.Definition{
		Name: "bad", Def: 1,
		Body: &ast.Var{Name: "nowhere", Def: ast.Unresolved},
	}
	pr := table.Parse("prog.antec", []*ast.Definition{bad})
	item, ok := table.GetItem(pr, 1)
	require.True(t, ok)

	res := table.Resolve(item)
	assert.False(t, res.Resolved)
	assert.NotEmpty(t, table.Diagnostics())
}

func TestTable_GetTypeReturnsTopLevelType(t *testing.T) {
	table := NewTable(types.I32)
	pr := table.Parse("prog.antec", simpleProgram())

	typ, ok := table.GetType(pr, "helper")
	require.True(t, ok)
	i, ok := typ.(*types.Int)
	require.True(t, ok, "expected helper's type to be a concrete int, got %T", typ)
	assert.Equal(t, types.I32, i.Kind)

	_, ok = table.GetType(pr, "nonexistent")
	assert.False(t, ok)
}

func TestTable_DependencyGraphAndSCCAgreeOnEdges(t *testing.T) {
	table := NewTable(types.I32)
	pr := table.Parse("prog.antec", simpleProgram())

	g := table.TypeCheckDependencyGraph(pr)
	assert.Contains(t, g.Edges[2], ast.DefId(1), "main calls helper")

	scc, ok := table.TypeCheckSCC(pr, 0)
	require.True(t, ok)
	assert.Len(t, scc.Members, 1, "helper and main are not mutually recursive")
}

func TestTable_CodegenLlvmIsMemoisedAndNamesMain(t *testing.T) {
	table := NewTable(types.I32)
	pr := table.Parse("prog.antec", simpleProgram())

	frag, err := table.CodegenLlvm(pr, "main")
	require.NoError(t, err)
	assert.Contains(t, frag.Text, "module fragment")

	again, err := table.CodegenLlvm(pr, "main")
	require.NoError(t, err)
	assert.Same(t, frag, again, "a second CodegenLlvm over the same program must be a cache hit")
}
