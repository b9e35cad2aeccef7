package traits

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/cache"
	"github.com/antec-lang/antec/internal/errors"
	"github.com/antec-lang/antec/internal/types"
)

func newResolver() (*Resolver, *types.ModuleCache, *errors.Accumulator) {
	mc := types.New()
	diags := errors.NewAccumulator()
	return New(mc, types.I32, diags), mc, diags
}

func pushShowTrait(mc *types.ModuleCache) cache.TraitInfoId {
	return mc.PushTrait(types.TraitInfo{Name: "Show"})
}

func TestResolveOrdinary_SingleMatchingImplBinds(t *testing.T) {
	r, mc, diags := newResolver()
	showId := pushShowTrait(mc)
	implId := mc.PushImpl(types.ImplInfo{Trait: showId, Args: []types.Type{&types.Bool{}}})
	scope := mc.PushImplScope([]cache.ImplInfoId{implId})
	binding := mc.NewImplBinding()

	cid := mc.PushConstraint(types.TraitConstraint{
		Trait: showId, Args: []types.Type{&types.Bool{}}, Scope: scope, Binding: binding,
	})

	r.ResolveAll([]cache.TraitConstraintId{cid})

	require.False(t, diags.HasErrors())
	got, ok := mc.ResolvedImpl(binding)
	require.True(t, ok)
	assert.Equal(t, implId, got)
}

func TestResolveOrdinary_NoCandidateReportsTRT001(t *testing.T) {
	r, mc, diags := newResolver()
	showId := pushShowTrait(mc)
	scope := mc.PushImplScope(nil)
	binding := mc.NewImplBinding()

	cid := mc.PushConstraint(types.TraitConstraint{
		Trait: showId, Args: []types.Type{&types.Bool{}}, Scope: scope, Binding: binding,
	})

	r.ResolveAll([]cache.TraitConstraintId{cid})

	require.True(t, diags.HasErrors())
	reports := diags.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, errors.TRT001, reports[0].Code)
	_, ok := mc.ResolvedImpl(binding)
	assert.False(t, ok)
}

func TestResolveOrdinary_OverlappingImplsReportTRT002(t *testing.T) {
	r, mc, diags := newResolver()
	showId := pushShowTrait(mc)
	impl1 := mc.PushImpl(types.ImplInfo{Trait: showId, Args: []types.Type{&types.Bool{}}})
	impl2 := mc.PushImpl(types.ImplInfo{Trait: showId, Args: []types.Type{&types.Bool{}}})
	scope := mc.PushImplScope([]cache.ImplInfoId{impl1, impl2})
	binding := mc.NewImplBinding()

	cid := mc.PushConstraint(types.TraitConstraint{
		Trait: showId, Args: []types.Type{&types.Bool{}}, Scope: scope, Binding: binding,
	})

	r.ResolveAll([]cache.TraitConstraintId{cid})

	require.True(t, diags.HasErrors())
	assert.Equal(t, errors.TRT002, diags.Reports()[0].Code)
}

// TestResolveOrdinary_FunctionalDependencyPicksOutputFromInput checks that a
// constraint leaving its functional-dependency output unbound still resolves
// against an impl whose input argument matches, and that resolution binds
// the output rather than treating it as a mismatch (spec.md §4.3).
func TestResolveOrdinary_FunctionalDependencyPicksOutputFromInput(t *testing.T) {
	r, mc, diags := newResolver()
	v := mc.NextTypeVariable(0)

	collectId := mc.PushTrait(types.TraitInfo{
		Name:       "Collect",
		TypeParams: []cache.TypeVariableId{0, 1},
		FunDeps:    []cache.TypeVariableId{1},
	})
	implId := mc.PushImpl(types.ImplInfo{
		Trait: collectId,
		Args:  []types.Type{&types.Bool{}, &types.Int{Kind: types.I32}},
	})
	scope := mc.PushImplScope([]cache.ImplInfoId{implId})
	binding := mc.NewImplBinding()

	cid := mc.PushConstraint(types.TraitConstraint{
		Trait:   collectId,
		Args:    []types.Type{&types.Bool{}, &types.Var{Id: v}},
		Scope:   scope,
		Binding: binding,
	})

	r.ResolveAll([]cache.TraitConstraintId{cid})

	require.False(t, diags.HasErrors())
	got, ok := mc.ResolvedImpl(binding)
	require.True(t, ok)
	assert.Equal(t, implId, got)

	resolved := types.Follow(mc, &types.Var{Id: v})
	i, ok := resolved.(*types.Int)
	require.True(t, ok, "expected the fundep output to unify to int, got %T", resolved)
	assert.Equal(t, types.I32, i.Kind)
}

func TestPartition_SeparatesGeneralizedConstraints(t *testing.T) {
	r, mc, _ := newResolver()
	showId := pushShowTrait(mc)
	v := mc.NextTypeVariable(1)
	scope := mc.PushImplScope(nil)

	generalizedCid := mc.PushConstraint(types.TraitConstraint{
		Trait: showId, Args: []types.Type{&types.Var{Id: v}}, Scope: scope, Binding: mc.NewImplBinding(),
	})
	concreteCid := mc.PushConstraint(types.TraitConstraint{
		Trait: showId, Args: []types.Type{&types.Bool{}}, Scope: scope, Binding: mc.NewImplBinding(),
	})

	propagated, rest := r.Partition(
		[]cache.TraitConstraintId{generalizedCid, concreteCid},
		[]cache.TypeVariableId{v},
	)

	require.Len(t, propagated, 1)
	assert.Equal(t, showId, propagated[0].Trait)
	require.Len(t, rest, 1)
	assert.Equal(t, concreteCid, rest[0])
}

func TestResolveFieldAccess_UnknownFieldReportsTRT004(t *testing.T) {
	r, mc, diags := newResolver()
	row := &types.Row{Kind: types.RecordRow, Labels: map[string]types.Type{"name": &types.String{}}}

	trait := mc.PushTrait(types.TraitInfo{Name: ".age"})
	scope := mc.PushImplScope(nil)
	cid := mc.PushConstraint(types.TraitConstraint{
		Trait: trait, Args: []types.Type{row}, Scope: scope, Binding: mc.NewImplBinding(),
		Span: ast.Span{},
	})

	r.ResolveAll([]cache.TraitConstraintId{cid})

	require.True(t, diags.HasErrors())
	assert.Equal(t, errors.TRT004, diags.Reports()[0].Code)
}
