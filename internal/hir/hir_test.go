package hir

import (
	"testing"

	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/errors"
	"github.com/antec-lang/antec/internal/infer"
	"github.com/antec-lang/antec/internal/traits"
	"github.com/antec-lang/antec/internal/types"
)

// checkProgram runs C4 inference over defs the way the front end would
// after name resolution, failing the test on any diagnostic.
func checkProgram(t *testing.T, defs []*ast.Definition) (*types.ModuleCache, *infer.Checker) {
	t.Helper()
	mc := types.New()
	diags := errors.NewAccumulator()
	resolver := traits.New(mc, types.I64, diags)
	checker := infer.New(mc, resolver, diags)
	checker.InferProgram(defs)
	if diags.HasErrors() {
		for _, r := range diags.Reports() {
			t.Errorf("unexpected diagnostic: %s: %s", r.Code, r.Message)
		}
		t.FailNow()
	}
	return mc, checker
}

// TestLowerClosureCapture checks that a closure referencing an enclosing
// parameter lowers to a Closure whose environment tuple carries that
// parameter's own concrete type, not a fallback Unit (capture.go's occ map
// is what makes this possible: freeVariables keeps the first occurrence
// node alive so Checker.TypeOf, keyed by node identity, can still find it).
func TestLowerClosureCapture(t *testing.T) {
	const (
		makeConstDef ast.DefId = 1
		nParamDef    ast.DefId = 2
		mainDef      ast.DefId = 3
		unusedDef    ast.DefId = 4
	)

	inner := &ast.Lambda{
		Params: []ast.Pattern{&ast.WildcardPattern{}},
		Body:   &ast.Var{Name: "n", Def: nParamDef},
	}
	makeConst := &ast.Definition{
		Name:   "makeConst",
		Def:    makeConstDef,
		Params: []ast.Pattern{&ast.VarPattern{Name: "n", Def: nParamDef}},
		Body:   inner,
	}

	mainBody := &ast.App{
		Func: &ast.App{
			Func: &ast.Var{Name: "makeConst", Def: makeConstDef},
			Args: []ast.Expr{&ast.Lit{Kind: ast.LitInt, Value: int64(42)}},
		},
		Args: []ast.Expr{&ast.Lit{Kind: ast.LitInt, Value: int64(99)}},
	}
	main := &ast.Definition{Name: "main", Def: mainDef, Body: mainBody}

	unused := &ast.Definition{
		Name: "unused", Def: unusedDef,
		Body: &ast.Lit{Kind: ast.LitInt, Value: int64(7)},
	}

	defs := []*ast.Definition{makeConst, main, unused}
	mc, checker := checkProgram(t, defs)

	l := NewLowerer(mc, checker, types.I64)
	prog, err := l.Lower(defs, "main")
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	var lambdaDef *Definition
	for _, d := range prog.Definitions {
		if d.EnvParam != "" {
			lambdaDef = d
		}
	}
	if lambdaDef == nil {
		t.Fatalf("expected a closure-converted definition with a non-empty EnvParam")
	}
	if len(lambdaDef.Captures) != 1 {
		t.Fatalf("expected exactly one capture, got %d", len(lambdaDef.Captures))
	}
	if lambdaDef.Type == nil || len(lambdaDef.Type.Params) != 1 {
		t.Fatalf("expected the closure body to carry a concrete function type")
	}

	// The env-unpacking Let around the body must bind to int, not Unit:
	// that's exactly what the occ-tracked typeOf lookup exists to guarantee.
	let, ok := lambdaDef.Body.(*Let)
	if !ok {
		t.Fatalf("expected the lowered body to start with the env-unpack Let, got %T", lambdaDef.Body)
	}
	proj, isProj := let.Value.(*Proj)
	if !isProj {
		t.Fatalf("expected the env unpack to be a Proj, got %T", let.Value)
	}
	if _, isUnit := proj.Type.(*types.Unit); isUnit {
		t.Fatalf("env-unpack Let resolved to Unit: capture type lookup regressed to the unbound-node bug")
	}

	// unused is never reachable from main, so Lower's Reachable pass must
	// have dropped it from the final program.
	for _, d := range prog.Definitions {
		if d.Name == "unused" {
			t.Fatalf("unreachable definition %q survived Lower's reachability filter", d.Name)
		}
	}
}

// TestLowerMatchSumType checks that a two-variant match compiles to an
// MSwitch keyed by the constructors' declared tag order, and that each
// arm's bound field is reachable as a Proj off the scrutinee.
func TestLowerMatchSumType(t *testing.T) {
	const (
		noneDef ast.DefId = 10
		someDef ast.DefId = 11
		xDef    ast.DefId = 12
		mainDef ast.DefId = 20
	)

	mc := types.New()
	diags := errors.NewAccumulator()
	resolver := traits.New(mc, types.I64, diags)
	checker := infer.New(mc, resolver, diags)

	intVar := cacheIntVar(mc)
	optTI := types.TypeInfo{Name: "Option"}
	noneCid := mc.ReserveDefinition("None", ast.Span{})
	mc.FillDefinition(noneCid, types.KindTypeConstructor)
	someCid := mc.ReserveDefinition("Some", ast.Span{})
	mc.FillDefinition(someCid, types.KindTypeConstructor)
	optTI.Variants = []types.Variant{
		{Name: "None", Def: noneCid, Fields: nil},
		{Name: "Some", Def: someCid, Fields: []types.Type{intVar}},
	}
	tiID := mc.PushTypeInfo(optTI)
	optType := &types.UserDefined{Id: tiID, Name: "Option"}

	// None's scheme is a zero-param Func rather than a bare optType: C4's
	// bindConstructorPattern (infer.go) only takes the exact-arity-match
	// branch when Instantiate's result type-asserts to *types.Func, even
	// for a nullary constructor pattern.
	noneScheme := types.MonoScheme(&types.Func{Params: nil, Return: optType})
	mc.Definition(noneCid).Scheme = noneScheme
	someScheme := types.MonoScheme(&types.Func{Params: []types.Type{intVar}, Return: optType})
	mc.Definition(someCid).Scheme = someScheme

	scrutinee := &ast.App{
		Func: &ast.Var{Name: "Some", Def: someDef},
		Args: []ast.Expr{&ast.Lit{Kind: ast.LitInt, Value: int64(5)}},
	}
	match := &ast.Match{
		Scrutinee: scrutinee,
		Arms: []ast.MatchArm{
			{Pattern: &ast.ConstructorPattern{Constructor: "None", Def: noneDef}, Body: &ast.Lit{Kind: ast.LitInt, Value: int64(0)}},
			{
				Pattern: &ast.ConstructorPattern{
					Constructor: "Some", Def: someDef,
					Args: []ast.Pattern{&ast.VarPattern{Name: "x", Def: xDef}},
				},
				Body: &ast.Var{Name: "x", Def: xDef},
			},
		},
	}
	main := &ast.Definition{Name: "main", Def: mainDef, Body: match}

	// Wire the synthetic constructor DefIds straight to their
	// DefinitionInfoIds, bypassing name resolution (there is no parser in
	// this repo; tests stand in for it, per the same hand-built-data
	// convention the dtree and traits tests already use).
	checker.BindDef(someDef, someCid)
	checker.BindDef(noneDef, noneCid)

	checker.InferProgram([]*ast.Definition{main})
	if diags.HasErrors() {
		for _, r := range diags.Reports() {
			t.Errorf("unexpected diagnostic: %s: %s", r.Code, r.Message)
		}
		t.FailNow()
	}

	l := NewLowerer(mc, checker, types.I64)
	prog, err := l.Lower([]*ast.Definition{main}, "main")
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}

	mainHid := prog.Main
	var mainDefH *Definition
	for _, d := range prog.Definitions {
		if d.Id == mainHid {
			mainDefH = d
		}
	}
	if mainDefH == nil {
		t.Fatalf("main definition missing from lowered program")
	}
	m, ok := mainDefH.Body.(*Match)
	if !ok {
		t.Fatalf("expected main's body to lower to a Match, got %T", mainDefH.Body)
	}
	sw, ok := m.Tree.(*MSwitch)
	if !ok {
		t.Fatalf("expected the match's tree to compile to an MSwitch, got %T", m.Tree)
	}
	if len(sw.Cases) != 2 {
		t.Fatalf("expected two cases (None, Some), got %d", len(sw.Cases))
	}
	var someCase *MCase
	for i := range sw.Cases {
		if sw.Cases[i].Tag == 1 {
			someCase = &sw.Cases[i]
		}
	}
	if someCase == nil {
		t.Fatalf("expected a case tagged 1 for Some (declared second in Variants)")
	}
	leaf, ok := someCase.Sub.(*MLeaf)
	if !ok {
		t.Fatalf("expected Some's arm to compile to a leaf, got %T", someCase.Sub)
	}
	bound, ok := leaf.Body.(*Let)
	if !ok {
		t.Fatalf("expected x's binding to wrap the arm body in a Let, got %T", leaf.Body)
	}
	if _, ok := bound.Value.(*Proj); !ok {
		t.Fatalf("expected x to bind to a Proj off the variant's payload, got %T", bound.Value)
	}
}

func cacheIntVar(mc *types.ModuleCache) types.Type {
	return &types.Int{Kind: types.I64}
}
