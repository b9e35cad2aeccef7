package types

import (
	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/cache"
)

// Level tags a type variable with the let-depth at which it was introduced
// (spec.md glossary "Level"); generalisation quantifies every unbound
// variable whose level is deeper than the current let-depth.
type Level int

// TypeBinding is either Unbound(level) or Bound(Type) (spec.md §3).
type TypeBinding struct {
	Bound bool
	Level Level // meaningful only when !Bound
	Type  Type  // meaningful only when Bound
}

// DefinitionKind narrows what kind of name a DefinitionInfo denotes
// (spec.md §3 "Definitions").
type DefinitionKind int

const (
	KindUserDefinition DefinitionKind = iota
	KindTraitMethodDecl
	KindExtern
	KindTypeConstructor
	KindParameter
	KindMatchVariable
	KindImplMethod
)

// DefinitionInfo records everything known about one named entity.
type DefinitionInfo struct {
	Name           string
	Span           ast.Span
	Kind           DefinitionKind
	ConstructorTag *uint8 // set when Kind == KindTypeConstructor and the type is a tagged union
	Scheme         *Scheme
	Required       []RequiredTrait
	SCCId          int // -1 if this definition is not part of a mutual-recursion group
}

// RequiredTrait is the generalised form of a TraitConstraint attached to a
// definition's scheme once its enclosing let/def is generalised.
type RequiredTrait struct {
	Trait cache.TraitInfoId
	Args  []Type
}

// TraitInfo records a trait declaration.
type TraitInfo struct {
	Name        string
	TypeParams  []cache.TypeVariableId
	FunDeps     []cache.TypeVariableId // subset of TypeParams that are functional-dependency outputs
	Methods     []cache.DefinitionInfoId
	Span        ast.Span
}

// ImplInfo records one `impl Trait(args) given ... { methods }`.
type ImplInfo struct {
	Trait   cache.TraitInfoId
	Args    []Type
	Given   []RequiredTrait
	Methods []cache.DefinitionInfoId
	Span    ast.Span
}

// TraitConstraint is a pending obligation emitted at a callsite
// (spec.md §3 "Constraints").
type TraitConstraint struct {
	Trait     cache.TraitInfoId
	Args      []Type
	Scope     cache.ImplScopeId
	OriginVar cache.DefinitionInfoId
	Binding   cache.ImplBindingId
	Span      ast.Span
}

// ModuleCache (C1, spec.md §4.1) owns every arena. It hands out fresh ids
// and never invalidates a previously-returned one; all mutation through its
// methods is either an append or filling a previously-empty slot.
type ModuleCache struct {
	definitions  cache.Arena[DefinitionInfo]
	typeBindings cache.Arena[TypeBinding]
	typeInfos    cache.Arena[TypeInfo]
	traitInfos   cache.Arena[TraitInfo]
	implInfos    cache.Arena[ImplInfo]
	implScopes   cache.Arena[[]cache.ImplInfoId]
	implBindings cache.Arena[cache.ImplInfoId]
	constraints  cache.Arena[TraitConstraint]

	// memberAccessTraits maps a field name to the auto-generated `.field`
	// trait id for it, created lazily the first time the field is accessed
	// anywhere in the program (spec.md §4.3 "Field access").
	memberAccessTraits map[string]cache.TraitInfoId
}

// TypeInfo records a user-defined type's shape (spec.md §3); kept minimal
// here since the surface ADT/struct declaration grammar is out of scope —
// C7 only needs the variant/field layout to size and tag values.
type TypeInfo struct {
	Name      string
	Params    []cache.TypeVariableId
	Variants  []Variant // nil for a plain struct
	Fields    map[string]Type // non-nil for a plain struct
}

// Variant is one constructor of a sum type.
type Variant struct {
	Name   string
	Def    cache.DefinitionInfoId
	Fields []Type
}

// New creates an empty ModuleCache.
func New() *ModuleCache { return &ModuleCache{memberAccessTraits: map[string]cache.TraitInfoId{}} }

// FieldTrait returns the `.field` trait id for field, minting a new
// single-method TraitInfo the first time field is seen.
func (mc *ModuleCache) FieldTrait(field string) cache.TraitInfoId {
	if id, ok := mc.memberAccessTraits[field]; ok {
		return id
	}
	id := mc.PushTrait(TraitInfo{Name: "." + field})
	mc.memberAccessTraits[field] = id
	return id
}

// PushDefinition appends a DefinitionInfo and returns its id.
func (mc *ModuleCache) PushDefinition(d DefinitionInfo) cache.DefinitionInfoId {
	return cache.DefinitionInfoId(mc.definitions.Push(d))
}

// Definition returns a pointer to the DefinitionInfo for id, so callers can
// fill in its Scheme once inference completes (spec.md §3 invariant: "Every
// DefinitionInfo that survives type inference has a Some type scheme").
func (mc *ModuleCache) Definition(id cache.DefinitionInfoId) *DefinitionInfo {
	return mc.definitions.Get(int(id))
}

// NextTypeVariable allocates a fresh type variable bound to Unbound(level).
func (mc *ModuleCache) NextTypeVariable(level Level) cache.TypeVariableId {
	return cache.TypeVariableId(mc.typeBindings.Push(TypeBinding{Bound: false, Level: level}))
}

// Binding returns a pointer to the binding slot for v.
func (mc *ModuleCache) Binding(v cache.TypeVariableId) *TypeBinding {
	return mc.typeBindings.Get(int(v))
}

// PushTypeInfo appends a TypeInfo and returns its id.
func (mc *ModuleCache) PushTypeInfo(t TypeInfo) cache.TypeInfoId {
	return cache.TypeInfoId(mc.typeInfos.Push(t))
}

// TypeInfoByID returns the TypeInfo for id.
func (mc *ModuleCache) TypeInfoByID(id cache.TypeInfoId) *TypeInfo {
	return mc.typeInfos.Get(int(id))
}

// PushTrait appends a TraitInfo and returns its id.
func (mc *ModuleCache) PushTrait(t TraitInfo) cache.TraitInfoId {
	return cache.TraitInfoId(mc.traitInfos.Push(t))
}

// Trait returns the TraitInfo for id.
func (mc *ModuleCache) Trait(id cache.TraitInfoId) *TraitInfo { return mc.traitInfos.Get(int(id)) }

// PushImpl appends an ImplInfo and returns its id.
func (mc *ModuleCache) PushImpl(i ImplInfo) cache.ImplInfoId {
	return cache.ImplInfoId(mc.implInfos.Push(i))
}

// Impl returns the ImplInfo for id.
func (mc *ModuleCache) Impl(id cache.ImplInfoId) *ImplInfo { return mc.implInfos.Get(int(id)) }

// PushImplScope appends an ordered impl list and returns its id.
func (mc *ModuleCache) PushImplScope(impls []cache.ImplInfoId) cache.ImplScopeId {
	return cache.ImplScopeId(mc.implScopes.Push(impls))
}

// ImplScope returns the impls visible in scope id, in declared order —
// resolution iterates this order so selection is deterministic (spec.md §5).
func (mc *ModuleCache) ImplScope(id cache.ImplScopeId) []cache.ImplInfoId {
	return *mc.implScopes.Get(int(id))
}

// NewImplBinding reserves an unfilled callsite slot.
func (mc *ModuleCache) NewImplBinding() cache.ImplBindingId {
	return cache.ImplBindingId(mc.implBindings.Push(cache.NoImplBinding))
}

// BindImpl fills binding with impl. Per spec.md §3 invariant, this must
// happen at most once per binding and is never reverted.
func (mc *ModuleCache) BindImpl(binding cache.ImplBindingId, impl cache.ImplInfoId) {
	*mc.implBindings.Get(int(binding)) = impl
}

// ResolvedImpl returns the impl bound to binding, or (0, false) if it has
// not been resolved (or was poisoned after a resolution failure).
func (mc *ModuleCache) ResolvedImpl(binding cache.ImplBindingId) (cache.ImplInfoId, bool) {
	v := *mc.implBindings.Get(int(binding))
	if v == cache.NoImplBinding {
		return 0, false
	}
	return v, true
}

// PushConstraint appends a pending trait obligation.
func (mc *ModuleCache) PushConstraint(c TraitConstraint) cache.TraitConstraintId {
	return cache.TraitConstraintId(mc.constraints.Push(c))
}

// Constraint returns the TraitConstraint for id.
func (mc *ModuleCache) Constraint(id cache.TraitConstraintId) *TraitConstraint {
	return mc.constraints.Get(int(id))
}

// ReserveDefinition allocates a DefinitionInfo slot with a placeholder name
// before its body is known, returning the id to be filled later via
// FillDefinition. This is the two-phase id reservation SPEC_FULL.md adds
// for mutually-recursive definitions (supplemented from
// original_source/src/cache/mod.rs, where DefinitionInfoIds for an SCC are
// all allocated before any member is type-checked).
func (mc *ModuleCache) ReserveDefinition(name string, span ast.Span) cache.DefinitionInfoId {
	return mc.PushDefinition(DefinitionInfo{Name: name, Span: span, SCCId: -1})
}

// FillDefinition completes a reserved slot once the definition's kind and
// (later) scheme are known.
func (mc *ModuleCache) FillDefinition(id cache.DefinitionInfoId, kind DefinitionKind) {
	mc.Definition(id).Kind = kind
}
