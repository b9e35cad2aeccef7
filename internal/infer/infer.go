// Package infer implements C4, the syntax-directed type and effect
// inference pass (spec.md §4.4): a variant of Algorithm J that threads a
// let-depth "level" through the tree for generalisation, emits
// TraitConstraints at every polymorphic use site instead of resolving them
// inline, and combines the effect rows of a call's callee and arguments
// into its own ambient row (C5, spec.md §4.5). Mutually-recursive groups of
// top-level definitions are discovered with Tarjan's algorithm and
// type-checked (and generalised) one component at a time, dependencies
// first.
package infer

import (
	"fmt"

	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/cache"
	"github.com/antec-lang/antec/internal/dtree"
	"github.com/antec-lang/antec/internal/errors"
	"github.com/antec-lang/antec/internal/traits"
	"github.com/antec-lang/antec/internal/types"
)

// Checker carries the mutable state one inference run threads through the
// tree: the module cache every Type and DefinitionInfo lives in, the C3
// resolver obligations are hand off to, the current let-level, and the
// per-generalisation-unit queue of pending TraitConstraintIds.
type Checker struct {
	MC       *types.ModuleCache
	Resolver *traits.Resolver
	Diags    *errors.Accumulator

	level types.Level

	// defs bridges the name resolver's DefIds to this run's
	// DefinitionInfoIds; reserved lazily the first time a binding site
	// (parameter, let, match arm, top-level definition) is seen.
	defs map[ast.DefId]cache.DefinitionInfoId

	// recGroup holds the placeholder monotype for every definition in the
	// mutually-recursive group currently being inferred; a Var reference to
	// one of these names resolves directly to the placeholder instead of
	// instantiating a (not yet complete) scheme.
	recGroup map[ast.DefId]types.Type

	// pendingStack is a stack of constraint batches, one per in-flight
	// generalisation unit (a let-binding or a recursive group); emit always
	// appends to the innermost.
	pendingStack [][]cache.TraitConstraintId

	// returnStack holds the declared return slot of every function
	// currently being checked, innermost last, so a `return e` inside
	// nested lambdas unifies against the right enclosing function.
	returnStack []types.Type

	intTraitID  cache.TraitInfoId
	intTraitSet bool

	// exprTypes and patternTypes decorate the AST with the type Infer/
	// bindPattern computed for each node, keyed by node identity; C7 needs
	// this because the checker itself never rewrites the AST in place.
	exprTypes    map[ast.Expr]types.Type
	patternTypes map[ast.Pattern]types.Type

	// varConstraints records, per *ast.Var occurrence, the TraitConstraintIds
	// inferVar emitted for it, so C7's trait dispatch can look up which impl
	// each occurrence resolved to (spec.md §4.7 "Trait dispatch").
	varConstraints map[*ast.Var][]cache.TraitConstraintId

	// varInstSub records, per generalized-reference occurrence, the
	// scheme-variable-to-fresh-variable map InstantiateSub produced, so C7
	// can recover the concrete monotype this occurrence instantiated the
	// referenced definition's own body at (spec.md §4.7 "Keyed cache").
	varInstSub map[*ast.Var]map[cache.TypeVariableId]cache.TypeVariableId
}

// New builds a Checker over an already-constructed module cache and
// resolver, reporting into diags.
func New(mc *types.ModuleCache, resolver *traits.Resolver, diags *errors.Accumulator) *Checker {
	return &Checker{
		MC:             mc,
		Resolver:       resolver,
		Diags:          diags,
		defs:           map[ast.DefId]cache.DefinitionInfoId{},
		recGroup:       map[ast.DefId]types.Type{},
		exprTypes:      map[ast.Expr]types.Type{},
		patternTypes:   map[ast.Pattern]types.Type{},
		varConstraints: map[*ast.Var][]cache.TraitConstraintId{},
		varInstSub:     map[*ast.Var]map[cache.TypeVariableId]cache.TypeVariableId{},
	}
}

// TypeOf returns the type Infer computed for e, or nil if e was never
// visited (e.g. dead code the checker never reached).
func (c *Checker) TypeOf(e ast.Expr) types.Type { return c.exprTypes[e] }

// PatternType returns the type bindPattern matched p against.
func (c *Checker) PatternType(p ast.Pattern) types.Type { return c.patternTypes[p] }

// ConstraintsForVar returns the TraitConstraintIds inferVar emitted for this
// occurrence of a polymorphic reference, in scheme order.
func (c *Checker) ConstraintsForVar(n *ast.Var) []cache.TraitConstraintId { return c.varConstraints[n] }

// InstantiationOf returns the scheme-variable-to-fresh-variable map this
// occurrence of n was instantiated with, or nil for a monomorphic reference.
func (c *Checker) InstantiationOf(n *ast.Var) map[cache.TypeVariableId]cache.TypeVariableId {
	return c.varInstSub[n]
}

// ResolvedDef returns the DefinitionInfoId the resolver's id was reserved
// as, if any binding site has been visited yet.
func (c *Checker) ResolvedDef(id ast.DefId) (cache.DefinitionInfoId, bool) {
	cid, ok := c.defs[id]
	return cid, ok
}

// BindDef pre-registers id as already resolved to cid, the way a real name
// resolver would have before inference ever runs. There is no parser in
// this repo (spec.md's front end starts at C2); tests build pre-resolved
// synthetic trees directly, the same convention ast.NewSpan exists for, and
// a sum type's constructors need this to link a ConstructorPattern/Var's
// DefId to a DefinitionInfo a test set up by hand (Scheme, ConstructorTag,
// TypeInfo.Variants) rather than one ensureDef would otherwise fabricate.
func (c *Checker) BindDef(id ast.DefId, cid cache.DefinitionInfoId) {
	c.defs[id] = cid
}

func (c *Checker) intTrait() cache.TraitInfoId {
	if !c.intTraitSet {
		c.intTraitID = c.MC.PushTrait(types.TraitInfo{Name: traits.IntTraitName})
		c.intTraitSet = true
	}
	return c.intTraitID
}

func (c *Checker) pushScope() { c.pendingStack = append(c.pendingStack, nil) }

func (c *Checker) popScope() []cache.TraitConstraintId {
	n := len(c.pendingStack) - 1
	top := c.pendingStack[n]
	c.pendingStack = c.pendingStack[:n]
	return top
}

func (c *Checker) emit(id cache.TraitConstraintId) {
	n := len(c.pendingStack) - 1
	if n < 0 {
		return
	}
	c.pendingStack[n] = append(c.pendingStack[n], id)
}

func (c *Checker) report(err error) {
	if err == nil {
		return
	}
	if rep, ok := errors.AsReport(err); ok {
		c.Diags.Add(rep)
	}
}

// ensureDef returns the DefinitionInfoId reserved for id, reserving one with
// kind on first sight (spec.md §5 two-phase reservation).
func (c *Checker) ensureDef(id ast.DefId, name string, span ast.Span, kind types.DefinitionKind) cache.DefinitionInfoId {
	if cid, ok := c.defs[id]; ok {
		return cid
	}
	cid := c.MC.ReserveDefinition(name, span)
	c.MC.FillDefinition(cid, kind)
	c.defs[id] = cid
	return cid
}

// InferProgram type-checks every top-level definition, discovering mutually
// recursive groups via their call graph and generalising each group once
// its whole body (including, for a group of size > 1, every sibling) has
// been checked (spec.md §4.2 "Mutual recursion").
func (c *Checker) InferProgram(defs []*ast.Definition) {
	g := newCallGraph()
	byID := map[ast.DefId]*ast.Definition{}
	for _, d := range defs {
		g.addNode(d.Def)
		byID[d.Def] = d
		var refs []ast.DefId
		collectRefs(d.Body, &refs)
		for _, r := range refs {
			g.addEdge(d.Def, r)
		}
	}
	for _, comp := range g.sccs() {
		c.inferGroup(comp, byID)
	}
}

func (c *Checker) inferGroup(comp []ast.DefId, byID map[ast.DefId]*ast.Definition) {
	var group []*ast.Definition
	for _, id := range comp {
		if d, ok := byID[id]; ok {
			group = append(group, d)
		}
	}
	if len(group) == 0 {
		return
	}

	c.level++
	c.pushScope()

	placeholders := make(map[ast.DefId]types.Type, len(group))
	for _, d := range group {
		v := &types.Var{Id: c.MC.NextTypeVariable(c.level)}
		placeholders[d.Def] = v
		c.recGroup[d.Def] = v
	}
	for _, d := range group {
		fnT, _ := c.inferFunctionDef(d)
		c.report(types.Unify(c.MC, placeholders[d.Def], fnT, d.Span()))
	}
	for _, d := range group {
		delete(c.recGroup, d.Def)
	}

	constraints := c.popScope()
	c.level--

	seen := map[cache.TypeVariableId]bool{}
	var genVars []cache.TypeVariableId
	for _, d := range group {
		for _, v := range types.FreeVars(c.MC, placeholders[d.Def], c.level) {
			if !seen[v] {
				seen[v] = true
				genVars = append(genVars, v)
			}
		}
	}
	propagated, rest := c.Resolver.Partition(constraints, genVars)
	c.Resolver.ResolveAll(rest)

	for _, d := range group {
		scheme := types.Generalize(c.MC, placeholders[d.Def], c.level, propagated)
		cid := c.ensureDef(d.Def, d.Name, d.Span(), types.KindUserDefinition)
		c.MC.Definition(cid).Scheme = scheme
	}
}

func (c *Checker) inferFunctionDef(d *ast.Definition) (types.Type, *types.Row) {
	if len(d.Params) == 0 {
		return c.Infer(d.Body)
	}
	paramTypes := make([]types.Type, len(d.Params))
	for i, p := range d.Params {
		pv := &types.Var{Id: c.MC.NextTypeVariable(c.level)}
		paramTypes[i] = pv
		c.bindPattern(p, pv)
	}
	retSlot := &types.Var{Id: c.MC.NextTypeVariable(c.level)}
	c.returnStack = append(c.returnStack, retSlot)
	bodyT, bodyEff := c.Infer(d.Body)
	c.returnStack = c.returnStack[:len(c.returnStack)-1]
	c.report(types.Unify(c.MC, retSlot, bodyT, d.Span()))
	return &types.Func{Params: paramTypes, Return: retSlot, Effects: bodyEff}, nil
}

// Infer is the syntax-directed core: it returns the type and effect row of
// e, emitting diagnostics and trait constraints along the way rather than
// aborting on the first failure (spec.md §7 propagation policy).
func (c *Checker) Infer(e ast.Expr) (types.Type, *types.Row) {
	t, eff := c.inferDispatch(e)
	c.exprTypes[e] = t
	return t, eff
}

func (c *Checker) inferDispatch(e ast.Expr) (types.Type, *types.Row) {
	switch n := e.(type) {
	case *ast.Lit:
		return c.literalType(n.Kind, n.Value, n.Span()), nil
	case *ast.Var:
		return c.inferVar(n)
	case *ast.Lambda:
		return c.inferLambda(n)
	case *ast.App:
		return c.inferApp(n)
	case *ast.Let:
		return c.inferLet(n)
	case *ast.If:
		return c.inferIf(n)
	case *ast.Match:
		return c.inferMatch(n)
	case *ast.RecordLit:
		return c.inferRecordLit(n)
	case *ast.FieldAccess:
		return c.inferFieldAccess(n)
	case *ast.Sequence:
		return c.inferSequence(n)
	case *ast.Return:
		return c.inferReturn(n)
	case *ast.Handle:
		return c.inferHandle(n)
	case *ast.Assign:
		return c.inferAssign(n)
	default:
		return &types.Unit{}, nil
	}
}

func (c *Checker) literalType(kind ast.LitKind, value interface{}, span ast.Span) types.Type {
	switch kind {
	case ast.LitInt:
		v := c.MC.NextTypeVariable(c.level)
		t := &types.Int{IsVar: true, Inferred: v}
		id := c.MC.PushConstraint(types.TraitConstraint{
			Trait:   c.intTrait(),
			Args:    []types.Type{t},
			Span:    span,
			Binding: c.MC.NewImplBinding(),
		})
		c.emit(id)
		return t
	case ast.LitFloat:
		return &types.Float{Kind: types.F64}
	case ast.LitString:
		return &types.String{}
	case ast.LitChar:
		return &types.Char{}
	case ast.LitBool:
		return &types.Bool{}
	default:
		return &types.Unit{}
	}
}

func (c *Checker) inferVar(n *ast.Var) (types.Type, *types.Row) {
	if n.Def == ast.Unresolved {
		return &types.Var{Id: c.MC.NextTypeVariable(c.level)}, nil
	}
	if t, ok := c.recGroup[n.Def]; ok {
		return t, nil
	}
	cid, ok := c.defs[n.Def]
	if !ok {
		cid = c.ensureDef(n.Def, n.Name, n.Span(), types.KindParameter)
		c.MC.Definition(cid).Scheme = types.MonoScheme(&types.Var{Id: c.MC.NextTypeVariable(c.level)})
	}
	def := c.MC.Definition(cid)
	if def.Scheme == nil {
		return &types.Var{Id: c.MC.NextTypeVariable(c.level)}, nil
	}
	t, reqs, sub := types.InstantiateSub(c.MC, def.Scheme, c.level)
	if sub != nil {
		c.varInstSub[n] = sub
	}
	scope := cache.ImplScopeId(n.Scope)
	for _, r := range reqs {
		id := c.MC.PushConstraint(types.TraitConstraint{
			Trait: r.Trait, Args: r.Args, Scope: scope,
			OriginVar: cid, Binding: c.MC.NewImplBinding(), Span: n.Span(),
		})
		c.emit(id)
		c.varConstraints[n] = append(c.varConstraints[n], id)
	}
	return t, nil
}

func (c *Checker) inferLambda(n *ast.Lambda) (types.Type, *types.Row) {
	paramTypes := make([]types.Type, len(n.Params))
	for i, p := range n.Params {
		pv := &types.Var{Id: c.MC.NextTypeVariable(c.level)}
		paramTypes[i] = pv
		c.bindPattern(p, pv)
	}
	retSlot := &types.Var{Id: c.MC.NextTypeVariable(c.level)}
	c.returnStack = append(c.returnStack, retSlot)
	bodyT, bodyEff := c.Infer(n.Body)
	c.returnStack = c.returnStack[:len(c.returnStack)-1]
	c.report(types.Unify(c.MC, retSlot, bodyT, n.Span()))
	return &types.Func{Params: paramTypes, Return: retSlot, Effects: bodyEff}, nil
}

func (c *Checker) inferApp(n *ast.App) (types.Type, *types.Row) {
	ft, funcEff := c.Infer(n.Func)
	argTypes := make([]types.Type, len(n.Args))
	var argsEff *types.Row
	for i, a := range n.Args {
		at, ae := c.Infer(a)
		argTypes[i] = at
		argsEff = types.UnionEffectRows(argsEff, ae)
	}
	retT := &types.Var{Id: c.MC.NextTypeVariable(c.level)}
	callEff := types.OpenEffectRow(c.MC, c.level)
	expected := &types.Func{Params: argTypes, Return: retT, Effects: callEff}
	c.report(types.Unify(c.MC, ft, expected, n.Span()))

	total := types.UnionEffectRows(funcEff, argsEff)
	total = types.UnionEffectRows(total, types.FollowRow(c.MC, callEff))
	return retT, total
}

func (c *Checker) inferLet(n *ast.Let) (types.Type, *types.Row) {
	c.level++
	c.pushScope()

	var valueT types.Type
	var valueEff *types.Row
	vp, isVarPattern := n.Pattern.(*ast.VarPattern)
	usingRec := n.Recursive && isVarPattern

	if usingRec {
		placeholder := &types.Var{Id: c.MC.NextTypeVariable(c.level)}
		c.recGroup[vp.Def] = placeholder
		valueT, valueEff = c.Infer(n.Value)
		c.report(types.Unify(c.MC, placeholder, valueT, n.Span()))
		valueT = placeholder
		delete(c.recGroup, vp.Def)
	} else {
		valueT, valueEff = c.Infer(n.Value)
	}

	constraints := c.popScope()
	c.level--

	var scheme *types.Scheme
	if isVarPattern && types.IsSyntacticValue(n.Value, nil) {
		generalized := types.FreeVars(c.MC, valueT, c.level)
		propagated, rest := c.Resolver.Partition(constraints, generalized)
		c.Resolver.ResolveAll(rest)
		scheme = types.Generalize(c.MC, valueT, c.level, propagated)
	} else {
		c.Resolver.ResolveAll(constraints)
		scheme = types.MonoScheme(valueT)
	}

	if isVarPattern {
		cid := c.ensureDef(vp.Def, vp.Name, vp.Span(), types.KindUserDefinition)
		c.MC.Definition(cid).Scheme = scheme
	} else {
		c.bindPattern(n.Pattern, valueT)
	}

	if n.Body == nil {
		return &types.Unit{}, valueEff
	}
	bodyT, bodyEff := c.Infer(n.Body)
	return bodyT, types.UnionEffectRows(valueEff, bodyEff)
}

func (c *Checker) inferIf(n *ast.If) (types.Type, *types.Row) {
	condT, condEff := c.Infer(n.Cond)
	c.report(types.Unify(c.MC, condT, &types.Bool{}, n.Cond.Span()))

	thenT, thenEff := c.Infer(n.Then)
	var elseT types.Type = &types.Unit{}
	var elseEff *types.Row
	if n.Else != nil {
		elseT, elseEff = c.Infer(n.Else)
		c.report(types.Unify(c.MC, thenT, elseT, n.Span()))
	}
	eff := types.UnionEffectRows(condEff, types.UnionEffectRows(thenEff, elseEff))
	return thenT, eff
}

func (c *Checker) inferSequence(n *ast.Sequence) (types.Type, *types.Row) {
	var last types.Type = &types.Unit{}
	var eff *types.Row
	for _, e := range n.Exprs {
		t, ee := c.Infer(e)
		last = t
		eff = types.UnionEffectRows(eff, ee)
	}
	return last, eff
}

func (c *Checker) inferReturn(n *ast.Return) (types.Type, *types.Row) {
	var t types.Type = &types.Unit{}
	var eff *types.Row
	if n.Value != nil {
		t, eff = c.Infer(n.Value)
	}
	if len(c.returnStack) > 0 {
		c.report(types.Unify(c.MC, c.returnStack[len(c.returnStack)-1], t, n.Span()))
	}
	return &types.Var{Id: c.MC.NextTypeVariable(c.level)}, eff
}

func (c *Checker) inferAssign(n *ast.Assign) (types.Type, *types.Row) {
	targetT, targetEff := c.Infer(n.Target)
	valueT, valueEff := c.Infer(n.Value)
	c.report(types.Unify(c.MC, targetT, valueT, n.Span()))
	return &types.Unit{}, types.UnionEffectRows(targetEff, valueEff)
}

func (c *Checker) inferRecordLit(n *ast.RecordLit) (types.Type, *types.Row) {
	labels := map[string]types.Type{}
	var eff *types.Row
	for _, f := range n.Fields {
		ft, fe := c.Infer(f.Value)
		labels[f.Name] = ft
		eff = types.UnionEffectRows(eff, fe)
	}
	var tail *cache.TypeVariableId
	if n.Base != nil {
		baseT, baseEff := c.Infer(n.Base)
		eff = types.UnionEffectRows(eff, baseEff)
		v := c.MC.NextTypeVariable(c.level)
		tail = &v
		c.report(types.Unify(c.MC, baseT, &types.Row{Kind: types.RecordRow, Labels: map[string]types.Type{}, Tail: tail}, n.Span()))
	}
	return &types.Row{Kind: types.RecordRow, Labels: labels, Tail: tail}, eff
}

// inferFieldAccess emits a `.field` trait obligation instead of looking the
// field up against a concrete row directly, so a field access on a
// still-unresolved record type can be deferred exactly like any other trait
// constraint (spec.md §4.3 "Field access").
func (c *Checker) inferFieldAccess(n *ast.FieldAccess) (types.Type, *types.Row) {
	targetT, eff := c.Infer(n.Target)
	fieldT := &types.Var{Id: c.MC.NextTypeVariable(c.level)}
	trait := c.MC.FieldTrait(n.Field)
	id := c.MC.PushConstraint(types.TraitConstraint{
		Trait: trait, Args: []types.Type{targetT, fieldT},
		Span: n.Span(), Binding: c.MC.NewImplBinding(),
	})
	c.emit(id)
	return fieldT, eff
}

func (c *Checker) inferMatch(n *ast.Match) (types.Type, *types.Row) {
	scrutT, eff := c.Infer(n.Scrutinee)
	resultT := &types.Var{Id: c.MC.NextTypeVariable(c.level)}

	for _, arm := range n.Arms {
		c.bindPattern(arm.Pattern, scrutT)
		if arm.Guard != nil {
			gt, ge := c.Infer(arm.Guard)
			c.report(types.Unify(c.MC, gt, &types.Bool{}, arm.Guard.Span()))
			eff = types.UnionEffectRows(eff, ge)
		}
		bodyT, bodyEff := c.Infer(arm.Body)
		c.report(types.Unify(c.MC, resultT, bodyT, arm.Body.Span()))
		eff = types.UnionEffectRows(eff, bodyEff)
	}

	result := dtree.Compile(c.MC, types.Follow(c.MC, scrutT), n.Arms)
	if len(result.Missing) > 0 {
		rep := errors.New(errors.MAT001, n.Span(), errors.CasesNote(len(result.Missing)))
		rep.WithData("missing", result.Missing)
		c.Diags.Add(rep)
	}
	for _, idx := range result.Unreachable {
		c.Diags.Add(errors.New(errors.MAT002, n.Arms[idx].Body.Span(),
			fmt.Sprintf("arm %d is unreachable: an earlier arm already covers every value it matches", idx)))
	}

	return resultT, eff
}

func (c *Checker) inferHandle(n *ast.Handle) (types.Type, *types.Row) {
	bodyT, bodyEff := c.Infer(n.Body)

	var handled []string
	handlerEff := types.EmptyEffects()
	for _, cs := range n.Cases {
		handled = append(handled, cs.Effect)
		for _, p := range cs.Params {
			c.bindPattern(p, &types.Var{Id: c.MC.NextTypeVariable(c.level)})
		}
		caseT, caseEff := c.Infer(cs.Body)
		c.report(types.Unify(c.MC, bodyT, caseT, cs.Body.Span()))
		handlerEff = types.UnionEffectRows(handlerEff, caseEff)
	}

	resultEff := types.SubtractHandledEffects(types.FollowRow(c.MC, bodyEff), handled, handlerEff)
	return bodyT, resultEff
}

// bindPattern binds every name a pattern introduces against t, unifying
// literal and structural sub-patterns against the pieces of t they pick
// apart (spec.md §3 "Patterns").
func (c *Checker) bindPattern(p ast.Pattern, t types.Type) {
	c.patternTypes[p] = t
	switch pp := p.(type) {
	case *ast.WildcardPattern:

	case *ast.VarPattern:
		cid := c.ensureDef(pp.Def, pp.Name, pp.Span(), types.KindMatchVariable)
		c.MC.Definition(cid).Scheme = types.MonoScheme(t)

	case *ast.LitPattern:
		lt := c.literalType(pp.Kind, pp.Value, pp.Span())
		c.report(types.Unify(c.MC, t, lt, pp.Span()))

	case *ast.TuplePattern:
		elemTypes := make([]types.Type, len(pp.Elems))
		for i := range elemTypes {
			elemTypes[i] = &types.Var{Id: c.MC.NextTypeVariable(c.level)}
		}
		c.report(types.Unify(c.MC, t, &types.Tuple{Elems: elemTypes}, pp.Span()))
		for i, sub := range pp.Elems {
			c.bindPattern(sub, elemTypes[i])
		}

	case *ast.ConstructorPattern:
		c.bindConstructorPattern(pp, t)

	case *ast.StructPattern:
		labels := make(map[string]types.Type, len(pp.Fields))
		for name, sub := range pp.Fields {
			ft := &types.Var{Id: c.MC.NextTypeVariable(c.level)}
			labels[name] = ft
			c.bindPattern(sub, ft)
		}
		var tail *cache.TypeVariableId
		if pp.Rest {
			v := c.MC.NextTypeVariable(c.level)
			tail = &v
		}
		c.report(types.Unify(c.MC, t, &types.Row{Kind: types.RecordRow, Labels: labels, Tail: tail}, pp.Span()))
	}
}

func (c *Checker) bindConstructorPattern(pp *ast.ConstructorPattern, t types.Type) {
	cid, ok := c.defs[pp.Def]
	if !ok {
		cid = c.ensureDef(pp.Def, pp.Constructor, pp.Span(), types.KindTypeConstructor)
	}
	def := c.MC.Definition(cid)
	if def.Scheme == nil {
		for _, a := range pp.Args {
			c.bindPattern(a, &types.Var{Id: c.MC.NextTypeVariable(c.level)})
		}
		return
	}
	ctorT, _ := types.Instantiate(c.MC, def.Scheme, c.level)
	fn, ok := ctorT.(*types.Func)
	if !ok || len(fn.Params) != len(pp.Args) {
		c.Diags.Add(errors.New(errors.TYP003, pp.Span(),
			fmt.Sprintf("constructor %q applied to the wrong number of arguments", pp.Constructor)))
		for _, a := range pp.Args {
			c.bindPattern(a, &types.Var{Id: c.MC.NextTypeVariable(c.level)})
		}
		return
	}
	c.report(types.Unify(c.MC, t, fn.Return, pp.Span()))
	for i, a := range pp.Args {
		c.bindPattern(a, fn.Params[i])
	}
}
