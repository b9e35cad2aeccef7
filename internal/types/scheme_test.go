package types

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/cache"
)

// TestSubstituteVars_ReplacesFreeVariablesStructurally checks the whole
// substituted tree at once with go-cmp rather than field-by-field
// assertions, the way a shape this deep (Func wrapping a Tuple wrapping
// Vars) invites mistakes in partial checks to hide.
func TestSubstituteVars_ReplacesFreeVariablesStructurally(t *testing.T) {
	mc := New()
	a := mc.NextTypeVariable(0)
	b := mc.NextTypeVariable(0)

	generic := &Func{
		Params: []Type{&Tuple{Elems: []Type{&Var{Id: a}, &Var{Id: b}}}},
		Return: &Var{Id: a},
	}

	sub := map[cache.TypeVariableId]Type{
		a: &Int{Kind: I32},
		b: &Bool{},
	}
	got := SubstituteVars(mc, sub, generic)

	want := &Func{
		Params: []Type{&Tuple{Elems: []Type{&Int{Kind: I32}, &Bool{}}}},
		Return: &Int{Kind: I32},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SubstituteVars result mismatch (-want +got):\n%s", diff)
	}
}

// TestGeneralizeThenInstantiate_RoundTripsViaFollow generalises a type
// containing a variable above the current level, instantiates the
// resulting scheme at a fresh level, and checks (via Follow, since
// Instantiate leaves the result as bound type variables rather than
// concrete types) that the shape survived the round trip.
func TestGeneralizeThenInstantiate_RoundTripsViaFollow(t *testing.T) {
	mc := New()
	const outerLevel Level = 0
	const innerLevel Level = 1

	v := mc.NextTypeVariable(innerLevel)
	body := &Func{Params: []Type{&Var{Id: v}}, Return: &Var{Id: v}}

	scheme := Generalize(mc, body, outerLevel, nil)
	require.NotNil(t, scheme)
	require.NotEmpty(t, scheme.Vars, "the inner-level variable must have been generalised")

	instantiated, _ := Instantiate(mc, scheme, outerLevel)
	fn, ok := instantiated.(*Func)
	require.True(t, ok, "expected instantiation to preserve the Func shape, got %T", instantiated)

	require.NoError(t, Unify(mc, fn.Params[0], &Int{Kind: I64}, ast.Span{}))
	got := Follow(mc, fn.Return)

	want := &Int{Kind: I64}
	if diff := cmp.Diff(want, got, cmp.Comparer(func(a, b *Int) bool {
		return a.Kind == b.Kind && a.IsVar == b.IsVar
	})); diff != "" {
		t.Errorf("instantiated scheme's param/return identification broke (-want +got):\n%s", diff)
	}
}
