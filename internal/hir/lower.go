package hir

import (
	"fmt"
	"sort"

	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/cache"
	"github.com/antec-lang/antec/internal/infer"
	"github.com/antec-lang/antec/internal/types"
)

// defSite is where a definition's parameters and body live, whichever of
// the two surface forms introduced it: a top-level Definition, or a
// let-bound value (itself a Lambda, or a bare zero-arity value).
type defSite struct {
	params []ast.Pattern
	body   ast.Expr
}

// frame tracks one definition currently being lowered, so a reference to
// its own DefId anywhere in its body — directly recursive or through a
// nested closure — rebinds to the current call's own environment instead
// of rebuilding captures from the original definition site (spec.md §4.7
// "Closures": "recursive calls ... rebind the environment parameter to the
// current parameter").
type frame struct {
	defId    ast.DefId
	hirId    cache.HIRDefinitionId
	envParam string
	captures []string
}

// Lowerer implements C7: monomorphisation plus lowering to hir.Program
// (spec.md §4.7), grounded on original_source/src/hir/monomorphisation.rs's
// Context, adapted from its explicit TypeBindings stack to this repo's
// mutable unification table (see DESIGN.md).
type Lowerer struct {
	MC         *types.ModuleCache
	Checker    *infer.Checker
	DefaultInt types.IntKind

	topLevel map[ast.DefId]*ast.Definition
	letSites map[ast.DefId]ast.Expr

	cache       map[monoKey]cache.HIRDefinitionId
	lambdaCache map[*ast.Lambda]map[string]cache.HIRDefinitionId
	defs        []*Definition

	frames []*frame

	substStack []map[cache.TypeVariableId]types.Type

	localCounter int

	reverseDefsCache map[ast.DefId]cache.DefinitionInfoId
}

type monoKey struct {
	def ast.DefId
	key string
}

// NewLowerer builds a Lowerer over a module cache and checker that have
// already run inference to completion.
func NewLowerer(mc *types.ModuleCache, checker *infer.Checker, defaultInt types.IntKind) *Lowerer {
	l := &Lowerer{
		MC:          mc,
		Checker:     checker,
		DefaultInt:  defaultInt,
		topLevel:    map[ast.DefId]*ast.Definition{},
		letSites:    map[ast.DefId]ast.Expr{},
		cache:       map[monoKey]cache.HIRDefinitionId{},
		lambdaCache: map[*ast.Lambda]map[string]cache.HIRDefinitionId{},
	}
	return l
}

// indexDefSites walks every top-level definition once, recording where
// every let-bound name's value expression lives, so a reference to it from
// anywhere in the program can later be materialised on demand.
func (l *Lowerer) indexDefSites(defs []*ast.Definition) {
	for _, d := range defs {
		l.topLevel[d.Def] = d
		indexLetSites(d.Body, l.letSites)
	}
}

func indexLetSites(e ast.Expr, out map[ast.DefId]ast.Expr) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.Lambda:
		indexLetSites(n.Body, out)
	case *ast.App:
		indexLetSites(n.Func, out)
		for _, a := range n.Args {
			indexLetSites(a, out)
		}
	case *ast.Let:
		if vp, ok := n.Pattern.(*ast.VarPattern); ok {
			out[vp.Def] = n.Value
		}
		indexLetSites(n.Value, out)
		indexLetSites(n.Body, out)
	case *ast.If:
		indexLetSites(n.Cond, out)
		indexLetSites(n.Then, out)
		indexLetSites(n.Else, out)
	case *ast.Match:
		indexLetSites(n.Scrutinee, out)
		for _, arm := range n.Arms {
			indexLetSites(arm.Guard, out)
			indexLetSites(arm.Body, out)
		}
	case *ast.RecordLit:
		indexLetSites(n.Base, out)
		for _, f := range n.Fields {
			indexLetSites(f.Value, out)
		}
	case *ast.FieldAccess:
		indexLetSites(n.Target, out)
	case *ast.Sequence:
		for _, s := range n.Exprs {
			indexLetSites(s, out)
		}
	case *ast.Return:
		indexLetSites(n.Value, out)
	case *ast.Handle:
		indexLetSites(n.Body, out)
		for _, cs := range n.Cases {
			indexLetSites(cs.Body, out)
		}
	case *ast.Assign:
		indexLetSites(n.Target, out)
		indexLetSites(n.Value, out)
	}
}

// Lower materialises mainName's definition and everything it reaches,
// producing a complete hir.Program. Because every reference goes through
// the same on-demand monomorphisation cache, a definition that main's
// transitive closure never calls is simply never materialised — this
// achieves spec.md §4.7's "dead code: reachability sweep from main" without
// a separate eager-then-sweep pass (see DESIGN.md and deadcode.go, which
// still offers Reachable as a standalone check over an already-built
// Program).
func (l *Lowerer) Lower(defs []*ast.Definition, mainName string) (*Program, error) {
	l.indexDefSites(defs)
	var mainDef *ast.Definition
	for _, d := range defs {
		if d.Name == mainName {
			mainDef = d
			break
		}
	}
	if mainDef == nil {
		return nil, fmt.Errorf("hir: no definition named %q", mainName)
	}
	mainId, err := l.materializeDefId(mainDef.Def, nil)
	if err != nil {
		return nil, err
	}
	prog := &Program{Definitions: l.defs, Main: mainId}
	reachable := Reachable(prog)
	kept := make([]*Definition, 0, len(reachable))
	for _, d := range prog.Definitions {
		if reachable[d.Id] {
			kept = append(kept, d)
		}
	}
	prog.Definitions = kept
	return prog, nil
}

// frameFor returns the active frame whose defId is id, searching from the
// innermost outward, so a nested closure calling an enclosing recursive
// function also rebinds to that function's current environment rather than
// recapturing it.
func (l *Lowerer) frameFor(id ast.DefId) *frame {
	for i := len(l.frames) - 1; i >= 0; i-- {
		if l.frames[i].defId == id {
			return l.frames[i]
		}
	}
	return nil
}

func (l *Lowerer) currentSubst() map[cache.TypeVariableId]types.Type {
	if len(l.substStack) == 0 {
		return nil
	}
	return l.substStack[len(l.substStack)-1]
}

// concrete resolves t through the module cache's bindings, then through
// whichever substitution the Lowerer is currently specialising under, then
// defaults whatever is left (spec.md §4.7).
func (l *Lowerer) concrete(t types.Type) types.Type {
	t = types.Follow(l.MC, t)
	if sub := l.currentSubst(); sub != nil {
		t = types.SubstituteVars(l.MC, sub, t)
	}
	return types.Concretize(l.MC, t, l.DefaultInt)
}

func (l *Lowerer) typeOf(e ast.Expr) types.Type {
	t := l.Checker.TypeOf(e)
	if t == nil {
		return &types.Unit{}
	}
	return l.concrete(t)
}

func (l *Lowerer) patternType(p ast.Pattern) types.Type {
	t := l.Checker.PatternType(p)
	if t == nil {
		return &types.Unit{}
	}
	return l.concrete(t)
}

func (l *Lowerer) freshLocal(base string) string {
	l.localCounter++
	return fmt.Sprintf("%s$%d", base, l.localCounter)
}

func copyScope(s map[ast.DefId]string) map[ast.DefId]string {
	out := make(map[ast.DefId]string, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func exprType(e Expr) types.Type {
	switch n := e.(type) {
	case *Lit:
		return n.Type
	case *Local:
		return n.Type
	case *GlobalRef:
		return n.Type
	case *Closure:
		return n.Type
	case *App:
		return n.Type
	case *Let:
		return n.Type
	case *If:
		return n.Type
	case *Match:
		return n.Type
	case *Proj:
		return n.Type
	case *MakeTuple:
		return n.Type
	case *MakeRecord:
		return n.Type
	case *MakeVariant:
		return n.Type
	case *Sequence:
		return n.Type
	case *Return:
		return n.Type
	case *Assign:
		return n.Type
	case *Handle:
		return n.Type
	default:
		return &types.Unit{}
	}
}

// siteFor resolves id's defining site, whether a top-level Definition or a
// let-bound value expression (a Lambda, or a bare zero-arity value).
func (l *Lowerer) siteFor(id ast.DefId) (defSite, bool) {
	if d, ok := l.topLevel[id]; ok {
		return defSite{params: d.Params, body: d.Body}, true
	}
	if v, ok := l.letSites[id]; ok {
		if lam, ok := v.(*ast.Lambda); ok {
			return defSite{params: lam.Params, body: lam.Body}, true
		}
		return defSite{body: v}, true
	}
	return defSite{}, false
}

// materializeDefId monomorphises id's definition under concreteSub (nil
// for a monomorphic reference), returning the HIRDefinitionId of its
// cached specialisation, lowering it for the first time if this is a new
// (def, monotype) pair.
func (l *Lowerer) materializeDefId(id ast.DefId, concreteSub map[cache.TypeVariableId]types.Type) (cache.HIRDefinitionId, error) {
	site, ok := l.siteFor(id)
	if !ok {
		return 0, fmt.Errorf("hir: no definition site for %v", id)
	}

	l.substStack = append(l.substStack, concreteSub)
	defer func() { l.substStack = l.substStack[:len(l.substStack)-1] }()

	key := monoKey{def: id, key: l.siteTypeKey(id, site)}
	if hid, ok := l.cache[key]; ok {
		return hid, nil
	}

	hid := cache.HIRDefinitionId(len(l.defs))
	def := &Definition{Id: hid, Name: siteName(id, l, site)}
	l.defs = append(l.defs, def)
	l.cache[key] = hid

	return hid, l.fillDefinition(def, id, site)
}

func siteName(id ast.DefId, l *Lowerer, site defSite) string {
	if d, ok := l.topLevel[id]; ok {
		return d.Name
	}
	return fmt.Sprintf("let$%d", id)
}

// siteTypeKey renders the monomorphisation cache key for id's current
// specialisation: the concretised type its own body currently resolves to,
// under whatever substitution is active.
func (l *Lowerer) siteTypeKey(id ast.DefId, site defSite) string {
	if len(site.params) == 0 {
		return l.typeOf(site.body).String()
	}
	paramTypes := make([]string, len(site.params))
	for i, p := range site.params {
		paramTypes[i] = l.patternType(p).String()
	}
	return fmt.Sprintf("(%v)->%s", paramTypes, l.typeOf(site.body).String())
}

func (l *Lowerer) fillDefinition(def *Definition, id ast.DefId, site defSite) error {
	paramNames := make([]string, len(site.params))
	scope := map[ast.DefId]string{}
	paramTypes := make([]types.Type, len(site.params))
	var binds []bind
	for i, p := range site.params {
		name, typ := l.bindParam(p, scope, &binds)
		paramNames[i] = name
		paramTypes[i] = typ
	}
	def.Params = paramNames

	fr := &frame{defId: id, hirId: def.Id}
	l.frames = append(l.frames, fr)
	body := wrapBinds(binds, l.lowerExpr(site.body, scope, fr))
	l.frames = l.frames[:len(l.frames)-1]

	def.Body = body
	retType := exprType(body)
	def.Type = &types.Func{Params: paramTypes, Return: retType}
	if len(site.params) == 0 {
		def.Type = nil
	}
	return nil
}

// bindParam binds a top-level parameter pattern directly (no runtime
// matching needed: a function's own parameters are irrefutable by
// construction). A simple VarPattern/Wildcard becomes the parameter's own
// name; a compound pattern gets a synthesised parameter name plus one
// projection bind per leaf, appended to out for the caller to wrap the
// eventually-lowered body in (spec.md §4.7 "Pattern let" applies the same
// way to parameter patterns as to a `let`).
func (l *Lowerer) bindParam(p ast.Pattern, scope map[ast.DefId]string, out *[]bind) (string, types.Type) {
	t := l.patternType(p)
	switch pp := p.(type) {
	case *ast.VarPattern:
		name := l.freshLocal(pp.Name)
		scope[pp.Def] = name
		return name, t
	case *ast.WildcardPattern:
		return l.freshLocal("_"), t
	default:
		name := l.freshLocal("arg")
		l.collectParamBinds(p, &Local{Name: name, Type: t}, scope, out)
		return name, t
	}
}

// collectParamBinds recursively unpacks a compound parameter pattern into
// projection binds from target, without building any Let nodes itself —
// the caller wraps the whole function body in them once, via wrapBinds,
// after lowering it.
func (l *Lowerer) collectParamBinds(p ast.Pattern, target Expr, scope map[ast.DefId]string, out *[]bind) {
	switch pp := p.(type) {
	case *ast.WildcardPattern:
	case *ast.VarPattern:
		name := l.freshLocal(pp.Name)
		scope[pp.Def] = name
		*out = append(*out, bind{name: name, value: target})
	case *ast.TuplePattern:
		for i, sub := range pp.Elems {
			l.collectParamBinds(sub, &Proj{Target: target, Index: i, Type: l.patternType(sub)}, scope, out)
		}
	case *ast.ConstructorPattern:
		for i, sub := range pp.Args {
			l.collectParamBinds(sub, &Proj{Target: target, Index: i, Type: l.patternType(sub)}, scope, out)
		}
	case *ast.StructPattern:
		names := sortedFieldKeys(pp.Fields)
		for i, name := range names {
			sub := pp.Fields[name]
			l.collectParamBinds(sub, &Proj{Target: target, Index: i, Type: l.patternType(sub)}, scope, out)
		}
	}
}

func (l *Lowerer) lowerExpr(e ast.Expr, scope map[ast.DefId]string, fr *frame) Expr {
	if e == nil {
		return &Lit{Kind: LitUnit, Type: &types.Unit{}}
	}
	switch n := e.(type) {
	case *ast.Lit:
		return l.lowerLit(n)
	case *ast.Var:
		return l.lowerVar(n, scope, fr)
	case *ast.Lambda:
		return l.lowerLambda(n, scope)
	case *ast.App:
		return l.lowerApp(n, scope, fr)
	case *ast.Let:
		return l.lowerLet(n, scope, fr)
	case *ast.If:
		return &If{
			Cond: l.lowerExpr(n.Cond, scope, fr),
			Then: l.lowerExpr(n.Then, scope, fr),
			Else: l.lowerExpr(n.Else, scope, fr),
			Type: l.typeOf(n),
		}
	case *ast.Match:
		return l.lowerMatch(n, scope, fr)
	case *ast.RecordLit:
		return l.lowerRecordLit(n, scope, fr)
	case *ast.FieldAccess:
		return l.lowerFieldAccess(n, scope, fr)
	case *ast.Sequence:
		exprs := make([]Expr, len(n.Exprs))
		for i, s := range n.Exprs {
			exprs[i] = l.lowerExpr(s, scope, fr)
		}
		return &Sequence{Exprs: exprs, Type: l.typeOf(n)}
	case *ast.Return:
		var v Expr = &Lit{Kind: LitUnit, Type: &types.Unit{}}
		if n.Value != nil {
			v = l.lowerExpr(n.Value, scope, fr)
		}
		return &Return{Value: v, Type: l.typeOf(n)}
	case *ast.Handle:
		return l.lowerHandle(n, scope, fr)
	case *ast.Assign:
		return &Assign{
			Target: l.lowerExpr(n.Target, scope, fr),
			Value:  l.lowerExpr(n.Value, scope, fr),
			Type:   l.typeOf(n),
		}
	default:
		return &Lit{Kind: LitUnit, Type: &types.Unit{}}
	}
}

func (l *Lowerer) lowerLit(n *ast.Lit) Expr {
	kind := LitKind(n.Kind)
	return &Lit{Kind: kind, Value: n.Value, Type: l.typeOf(n)}
}

// lowerVar resolves a name reference to one of: a local/parameter, a
// self-or-enclosing-recursive reference (reusing the active frame's
// environment rather than rebuilding it), a sum-type constructor (lowered
// straight to MakeVariant for the zero-arity case), an ordinary
// monomorphic/generic global (routed through the monomorphisation cache),
// or a trait method (dispatched to its resolved impl first).
func (l *Lowerer) lowerVar(n *ast.Var, scope map[ast.DefId]string, fr *frame) Expr {
	if name, ok := scope[n.Def]; ok {
		return &Local{Name: name, Type: l.typeOf(n)}
	}
	if target := l.frameFor(n.Def); target != nil {
		if target.envParam == "" {
			return &GlobalRef{Def: target.hirId, Type: l.typeOf(n)}
		}
		return &Closure{Func: target.hirId, Env: []Expr{&Local{Name: target.envParam}}, Type: l.typeOf(n)}
	}

	cid, ok := l.Checker.ResolvedDef(n.Def)
	if ok {
		info := l.MC.Definition(cid)
		if info.Kind == types.KindTypeConstructor {
			return l.lowerConstructorRef(n, cid)
		}
		if info.Kind == types.KindTraitMethodDecl {
			if target, sub := l.dispatchTraitMethod(n, cid); target != ast.Unresolved {
				return l.globalOrClosureRef(target, sub, n)
			}
		}
	}
	return l.globalOrClosureRef(n.Def, l.instantiationSub(n), n)
}

// instantiationSub turns InstantiationOf's scheme-var -> fresh-var map into
// a scheme-var -> concrete-type map by following each fresh variable to
// whatever it was unified with over the whole inference run (spec.md §4.7
// "Keyed cache").
func (l *Lowerer) instantiationSub(n *ast.Var) map[cache.TypeVariableId]types.Type {
	instSub := l.Checker.InstantiationOf(n)
	if instSub == nil {
		return nil
	}
	sub := make(map[cache.TypeVariableId]types.Type, len(instSub))
	for schemeVar, fresh := range instSub {
		sub[schemeVar] = l.concrete(&types.Var{Id: fresh})
	}
	return sub
}

func (l *Lowerer) globalOrClosureRef(id ast.DefId, sub map[cache.TypeVariableId]types.Type, n *ast.Var) Expr {
	hid, err := l.materializeDefId(id, sub)
	if err != nil {
		return &Lit{Kind: LitUnit, Type: &types.Unit{}}
	}
	return &GlobalRef{Def: hid, Type: l.typeOf(n)}
}

// dispatchTraitMethod resolves a trait method reference to the concrete
// impl method chosen for it by C3 (spec.md §4.7 "Trait dispatch"):
// TraitInfo.Methods and ImplInfo.Methods are parallel, declaration-ordered
// lists, so the method at the same index in the resolved impl is the
// concrete implementation to call instead of the abstract declaration.
func (l *Lowerer) dispatchTraitMethod(n *ast.Var, declCid cache.DefinitionInfoId) (ast.DefId, map[cache.TypeVariableId]types.Type) {
	constraints := l.Checker.ConstraintsForVar(n)
	for _, cid := range constraints {
		constraint := l.MC.Constraint(cid)
		implId, ok := l.MC.ResolvedImpl(constraint.Binding)
		if !ok {
			continue
		}
		trait := l.MC.Trait(constraint.Trait)
		for i, m := range trait.Methods {
			if m != declCid {
				continue
			}
			impl := l.MC.Impl(implId)
			if i >= len(impl.Methods) {
				continue
			}
			methodCid := impl.Methods[i]
			return l.astDefFor(methodCid), l.instantiationSub(n)
		}
	}
	return ast.Unresolved, nil
}

// astDefFor finds the ast.DefId a resolved DefinitionInfoId corresponds
// to, by scanning reverseDefs: the inverse of Checker.ResolvedDef over every
// top-level and let-bound DefId, built once on first use.
func (l *Lowerer) astDefFor(cid cache.DefinitionInfoId) ast.DefId {
	for id, c := range l.reverseDefs() {
		if c == cid {
			return id
		}
	}
	return ast.Unresolved
}

func (l *Lowerer) reverseDefs() map[ast.DefId]cache.DefinitionInfoId {
	// Every binding site the checker ever reserved is reachable through
	// ResolvedDef by ast.DefId; impl methods are registered the same way
	// as any other top-level definition, identified by iterating the
	// program's own topLevel table, which ResolvedDef's inverse is built
	// from lazily here.
	if l.reverseDefsCache != nil {
		return l.reverseDefsCache
	}
	out := map[ast.DefId]cache.DefinitionInfoId{}
	for id := range l.topLevel {
		if cid, ok := l.Checker.ResolvedDef(id); ok {
			out[id] = cid
		}
	}
	for id := range l.letSites {
		if cid, ok := l.Checker.ResolvedDef(id); ok {
			out[id] = cid
		}
	}
	l.reverseDefsCache = out
	return out
}

// lowerConstructorRef lowers a bare (unapplied) constructor reference. A
// zero-arity variant builds its MakeVariant directly; an arity > 0
// constructor used as a value (not immediately applied — App has its own
// fast path for that case) needs an eta-expanded wrapper function so it
// can still be passed around as a closure.
func (l *Lowerer) lowerConstructorRef(n *ast.Var, cid cache.DefinitionInfoId) Expr {
	t := l.typeOf(n)
	if fn, ok := t.(*types.Func); ok {
		hid := l.etaExpandConstructor(n.Def, cid, fn)
		return &Closure{Func: hid, Type: t}
	}
	tag := l.variantTag(t, cid)
	return &MakeVariant{Tag: tag, Type: t}
}

func (l *Lowerer) variantTag(t types.Type, cid cache.DefinitionInfoId) uint8 {
	ud, ok := t.(*types.UserDefined)
	if !ok {
		return 0
	}
	ti := l.MC.TypeInfoByID(ud.Id)
	for i, v := range ti.Variants {
		if v.Def == cid {
			tag := uint8(i)
			info := l.MC.Definition(cid)
			if info.ConstructorTag == nil {
				info.ConstructorTag = &tag
			}
			return tag
		}
	}
	return 0
}

func (l *Lowerer) etaExpandConstructor(id ast.DefId, cid cache.DefinitionInfoId, fn *types.Func) cache.HIRDefinitionId {
	key := monoKey{def: id, key: fn.String()}
	if hid, ok := l.cache[key]; ok {
		return hid
	}
	hid := cache.HIRDefinitionId(len(l.defs))
	def := &Definition{Id: hid, Name: "ctor"}
	l.defs = append(l.defs, def)
	l.cache[key] = hid

	tag := l.variantTag(fn.Return, cid)
	params := make([]string, len(fn.Params))
	args := make([]Expr, len(fn.Params))
	for i, pt := range fn.Params {
		params[i] = l.freshLocal("f")
		args[i] = &Local{Name: params[i], Type: pt}
	}
	def.Params = params
	def.Type = fn
	def.Body = &MakeVariant{Tag: tag, Payload: args, Type: fn.Return}
	return hid
}

func (l *Lowerer) lowerApp(n *ast.App, scope map[ast.DefId]string, fr *frame) Expr {
	if v, ok := n.Func.(*ast.Var); ok {
		if cid, ok2 := l.Checker.ResolvedDef(v.Def); ok2 {
			if l.MC.Definition(cid).Kind == types.KindTypeConstructor {
				return l.lowerConstructorApp(n, v, cid, scope, fr)
			}
		}
	}
	args := make([]Expr, len(n.Args))
	for i, a := range n.Args {
		args[i] = l.lowerExpr(a, scope, fr)
	}
	return &App{Func: l.lowerExpr(n.Func, scope, fr), Args: args, Type: l.typeOf(n)}
}

func (l *Lowerer) lowerConstructorApp(n *ast.App, v *ast.Var, cid cache.DefinitionInfoId, scope map[ast.DefId]string, fr *frame) Expr {
	resultT := l.typeOf(n)
	tag := l.variantTag(resultT, cid)
	payload := make([]Expr, len(n.Args))
	for i, a := range n.Args {
		payload[i] = l.lowerExpr(a, scope, fr)
	}
	return &MakeVariant{Tag: tag, Payload: payload, Type: resultT}
}

// lowerLambda performs closure conversion: freeVariables finds the capture
// set, each captured name is read from the current scope's Local, and the
// lambda's own body is lowered in a fresh frame whose EnvParam unpacks
// those captures back out (spec.md §4.7 "Closures").
func (l *Lowerer) lowerLambda(n *ast.Lambda, scope map[ast.DefId]string) Expr {
	t := l.typeOf(n)
	key := l.siteKeyFor(n, t)
	if byKey, ok := l.lambdaCache[n]; ok {
		if hid, ok := byKey[key]; ok {
			return l.closureFor(hid, n, scope, t)
		}
	} else {
		l.lambdaCache[n] = map[string]cache.HIRDefinitionId{}
	}

	captureIds, names, occ := freeVariables(n)
	hid := cache.HIRDefinitionId(len(l.defs))
	def := &Definition{Id: hid, Name: "lambda"}
	l.defs = append(l.defs, def)
	l.lambdaCache[n][key] = hid

	envParam := ""
	captureNames := make([]string, len(captureIds))
	for i, id := range captureIds {
		captureNames[i] = names[id]
	}
	if len(captureIds) > 0 {
		envParam = l.freshLocal("env")
	}

	bodyScope := map[ast.DefId]string{}
	paramTypes := make([]types.Type, len(n.Params))
	paramNames := make([]string, len(n.Params))
	var paramBinds []bind
	for i, p := range n.Params {
		name, pt := l.bindParam(p, bodyScope, &paramBinds)
		paramNames[i] = name
		paramTypes[i] = pt
	}
	for i, id := range captureIds {
		projName := l.freshLocal(names[id])
		bodyScope[id] = projName
	}

	def.Params = paramNames
	def.EnvParam = envParam
	def.Captures = captureNames

	fr := &frame{defId: ast.Unresolved, hirId: hid, envParam: envParam, captures: captureNames}
	l.frames = append(l.frames, fr)

	body := wrapBinds(paramBinds, l.lowerExpr(n.Body, bodyScope, fr))
	if envParam != "" {
		envType := &types.Tuple{}
		for i, id := range captureIds {
			pname := bodyScope[id]
			envType.Elems = append(envType.Elems, l.typeOf(occ[id]))
			body = &Let{
				Name:  pname,
				Value: &Proj{Target: &Local{Name: envParam, Type: envType}, Index: i, Type: envType.Elems[i]},
				Body:  body,
				Type:  exprType(body),
			}
		}
	}
	l.frames = l.frames[:len(l.frames)-1]

	def.Body = body
	def.Type = &types.Func{Params: paramTypes, Return: exprType(body)}

	return l.closureFor(hid, n, scope, t)
}

func (l *Lowerer) closureFor(hid cache.HIRDefinitionId, n *ast.Lambda, scope map[ast.DefId]string, t types.Type) Expr {
	captureIds, _, occ := freeVariables(n)
	if len(captureIds) == 0 {
		return &GlobalRef{Def: hid, Type: t}
	}
	env := make([]Expr, len(captureIds))
	for i, id := range captureIds {
		if name, ok := scope[id]; ok {
			env[i] = &Local{Name: name, Type: l.typeOf(occ[id])}
			continue
		}
		if target := l.frameFor(id); target != nil && target.envParam != "" {
			env[i] = &Local{Name: target.envParam}
			continue
		}
		env[i] = &Lit{Kind: LitUnit, Type: &types.Unit{}}
	}
	return &Closure{Func: hid, Env: env, Type: t}
}

func (l *Lowerer) siteKeyFor(n *ast.Lambda, t types.Type) string { return t.String() }

// lowerLet handles both a simple binding (desugars straight to hir.Let)
// and a compound pattern (desugars to a temporary plus one field
// projection per leaf, spec.md §4.7 "Pattern let").
func (l *Lowerer) lowerLet(n *ast.Let, scope map[ast.DefId]string, fr *frame) Expr {
	value := l.lowerExpr(n.Value, scope, fr)
	if vp, ok := n.Pattern.(*ast.VarPattern); ok {
		name := l.freshLocal(vp.Name)
		inner := copyScope(scope)
		inner[vp.Def] = name
		body := l.restOf(n, inner, fr)
		return &Let{Name: name, Value: value, Body: body, Type: exprType(body)}
	}
	tmp := l.freshLocal("pat")
	inner := copyScope(scope)
	body := l.desugarPatternLet(n.Pattern, &Local{Name: tmp, Type: l.patternType(n.Pattern)}, inner, func(s map[ast.DefId]string) Expr {
		return l.restOf(n, s, fr)
	})
	return &Let{Name: tmp, Value: value, Body: body, Type: exprType(body)}
}

func (l *Lowerer) restOf(n *ast.Let, scope map[ast.DefId]string, fr *frame) Expr {
	if n.Body == nil {
		return &Lit{Kind: LitUnit, Type: &types.Unit{}}
	}
	return l.lowerExpr(n.Body, scope, fr)
}

// desugarPatternLet recursively unpacks a compound pattern into nested
// Let+Proj bindings, calling cont once every leaf is bound.
func (l *Lowerer) desugarPatternLet(p ast.Pattern, target Expr, scope map[ast.DefId]string, cont func(map[ast.DefId]string) Expr) Expr {
	switch pp := p.(type) {
	case *ast.WildcardPattern:
		return cont(scope)
	case *ast.VarPattern:
		name := l.freshLocal(pp.Name)
		scope[pp.Def] = name
		return &Let{Name: name, Value: target, Body: cont(scope), Type: l.patternType(p)}
	case *ast.TuplePattern:
		return l.desugarSeq(pp.Elems, func(i int) Expr {
			et := l.patternType(pp.Elems[i])
			return &Proj{Target: target, Index: i, Type: et}
		}, scope, cont)
	case *ast.ConstructorPattern:
		return l.desugarSeq(pp.Args, func(i int) Expr {
			et := l.patternType(pp.Args[i])
			return &Proj{Target: target, Index: i, Type: et}
		}, scope, cont)
	case *ast.StructPattern:
		names := sortedFieldKeys(pp.Fields)
		pats := make([]ast.Pattern, len(names))
		for i, name := range names {
			pats[i] = pp.Fields[name]
		}
		return l.desugarSeq(pats, func(i int) Expr {
			return &Proj{Target: target, Index: i, Type: l.patternType(pats[i])}
		}, scope, cont)
	default:
		return cont(scope)
	}
}

func (l *Lowerer) desugarSeq(pats []ast.Pattern, projFor func(int) Expr, scope map[ast.DefId]string, cont func(map[ast.DefId]string) Expr) Expr {
	var rec func(i int) Expr
	rec = func(i int) Expr {
		if i >= len(pats) {
			return cont(scope)
		}
		return l.desugarPatternLet(pats[i], projFor(i), scope, func(s map[ast.DefId]string) Expr {
			return rec(i + 1)
		})
	}
	return rec(0)
}

func sortedFieldKeys(m map[string]ast.Pattern) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (l *Lowerer) lowerMatch(n *ast.Match, scope map[ast.DefId]string, fr *frame) Expr {
	scrutinee := l.lowerExpr(n.Scrutinee, scope, fr)
	scrutT := l.typeOf(n.Scrutinee)
	tree := l.compileMatch(n, scrutinee, scrutT, scope, fr)
	return &Match{Tree: tree, Type: l.typeOf(n)}
}

func (l *Lowerer) lowerRecordLit(n *ast.RecordLit, scope map[ast.DefId]string, fr *frame) Expr {
	t := l.typeOf(n)
	row, ok := t.(*types.Row)
	if !ok {
		row = &types.Row{Kind: types.RecordRow, Labels: map[string]types.Type{}}
	}
	names := make([]string, 0, len(row.Labels))
	for k := range row.Labels {
		names = append(names, k)
	}
	sort.Strings(names)

	valueByName := map[string]Expr{}
	for _, f := range n.Fields {
		valueByName[f.Name] = l.lowerExpr(f.Value, scope, fr)
	}
	var baseExpr Expr
	if n.Base != nil {
		baseExpr = l.lowerExpr(n.Base, scope, fr)
	}

	fields := make([]Expr, len(names))
	for i, name := range names {
		if v, ok := valueByName[name]; ok {
			fields[i] = v
			continue
		}
		fields[i] = &Proj{Target: baseExpr, Index: i, Type: row.Labels[name]}
	}
	return &MakeRecord{Fields: fields, Type: t}
}

func (l *Lowerer) lowerFieldAccess(n *ast.FieldAccess, scope map[ast.DefId]string, fr *frame) Expr {
	target := l.lowerExpr(n.Target, scope, fr)
	targetT := l.typeOf(n.Target)
	row, ok := targetT.(*types.Row)
	if !ok {
		return &Proj{Target: target, Index: 0, Type: l.typeOf(n)}
	}
	names := make([]string, 0, len(row.Labels))
	for k := range row.Labels {
		names = append(names, k)
	}
	sort.Strings(names)
	idx := 0
	for i, name := range names {
		if name == n.Field {
			idx = i
			break
		}
	}
	return &Proj{Target: target, Index: idx, Type: l.typeOf(n)}
}

// lowerHandle lowers structurally rather than performing spec.md §4.7's
// full CPS/beta-reduction transform (see hir.Handle's own doc comment and
// DESIGN.md): Body and every case's Body are lowered in place, with each
// case's resume name bound into scope as an ordinary (uninterpreted)
// closure value a later backend would have to supply meaning for.
func (l *Lowerer) lowerHandle(n *ast.Handle, scope map[ast.DefId]string, fr *frame) Expr {
	body := l.lowerExpr(n.Body, scope, fr)
	cases := make([]HandledCase, len(n.Cases))
	for i, cs := range n.Cases {
		inner := copyScope(scope)
		params := make([]string, len(cs.Params))
		var caseBinds []bind
		for j, p := range cs.Params {
			name, _ := l.bindParam(p, inner, &caseBinds)
			params[j] = name
		}
		resumeName := l.freshLocal(cs.Resume)
		cases[i] = HandledCase{
			Effect: cs.Effect, Op: cs.Op, Params: params, Resume: resumeName,
			Body: wrapBinds(caseBinds, l.lowerExpr(cs.Body, inner, fr)),
		}
	}
	return &Handle{Body: body, Cases: cases, Type: l.typeOf(n)}
}
