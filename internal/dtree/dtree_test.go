package dtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/cache"
	"github.com/antec-lang/antec/internal/types"
)

// optionType builds a two-variant sum type (None, Some(int)) directly in a
// fresh ModuleCache, the same way hir_test.go's TestLowerMatchSumType does:
// there is no parser in this repo to produce one from source.
func optionType(t *testing.T) (*types.ModuleCache, *types.UserDefined, cache.DefinitionInfoId, cache.DefinitionInfoId) {
	t.Helper()
	mc := types.New()
	noneCid := mc.ReserveDefinition("None", ast.Span{})
	mc.FillDefinition(noneCid, types.KindTypeConstructor)
	someCid := mc.ReserveDefinition("Some", ast.Span{})
	mc.FillDefinition(someCid, types.KindTypeConstructor)

	ti := types.TypeInfo{
		Name: "Option",
		Variants: []types.Variant{
			{Name: "None", Def: noneCid, Fields: nil},
			{Name: "Some", Def: someCid, Fields: []types.Type{&types.Int{Kind: types.I64}}},
		},
	}
	id := mc.PushTypeInfo(ti)
	return mc, &types.UserDefined{Id: id, Name: "Option"}, noneCid, someCid
}

func TestCompile_ExhaustiveSumMatchHasNoMissingOrUnreachable(t *testing.T) {
	mc, opt, noneCid, someCid := optionType(t)

	arms := []ast.MatchArm{
		{Pattern: &ast.ConstructorPattern{Constructor: "None", Def: 1}, Body: &ast.Lit{Kind: ast.LitInt, Value: int64(0)}},
		{
			Pattern: &ast.ConstructorPattern{
				Constructor: "Some", Def: 2,
				Args: []ast.Pattern{&ast.VarPattern{Name: "x", Def: 3}},
			},
			Body: &ast.Var{Name: "x", Def: 3},
		},
	}
	_ = noneCid
	_ = someCid

	res := Compile(mc, opt, arms)
	assert.Empty(t, res.Missing, "both variants are covered")
	assert.Empty(t, res.Unreachable)

	sw, ok := res.Tree.(*Switch)
	require.True(t, ok, "expected the tree to compile to a Switch, got %T", res.Tree)
	assert.Len(t, sw.Cases, 2)
}

func TestCompile_MissingVariantIsReportedByName(t *testing.T) {
	mc, opt, _, _ := optionType(t)

	arms := []ast.MatchArm{
		{Pattern: &ast.ConstructorPattern{Constructor: "None", Def: 1}, Body: &ast.Lit{Kind: ast.LitInt, Value: int64(0)}},
	}

	res := Compile(mc, opt, arms)
	require.NotEmpty(t, res.Missing)
	assert.Contains(t, res.Missing, "Some(_)")
}

func TestCompile_RedundantArmAfterWildcardIsUnreachable(t *testing.T) {
	mc, opt, _, _ := optionType(t)

	arms := []ast.MatchArm{
		{Pattern: &ast.WildcardPattern{}, Body: &ast.Lit{Kind: ast.LitInt, Value: int64(0)}},
		{Pattern: &ast.ConstructorPattern{Constructor: "Some", Def: 2, Args: []ast.Pattern{&ast.WildcardPattern{}}}, Body: &ast.Lit{Kind: ast.LitInt, Value: int64(1)}},
	}

	res := Compile(mc, opt, arms)
	assert.Empty(t, res.Missing, "the leading wildcard already covers every shape")
	assert.Equal(t, []int{1}, res.Unreachable, "the Some arm can never be selected after a leading wildcard")
}

func TestCompile_BoolMatchCoversBothValues(t *testing.T) {
	mc := types.New()
	arms := []ast.MatchArm{
		{Pattern: &ast.LitPattern{Value: true}, Body: &ast.Lit{Kind: ast.LitInt, Value: int64(1)}},
		{Pattern: &ast.LitPattern{Value: false}, Body: &ast.Lit{Kind: ast.LitInt, Value: int64(0)}},
	}

	res := Compile(mc, &types.Bool{}, arms)
	assert.Empty(t, res.Missing)
	assert.Empty(t, res.Unreachable)
}
