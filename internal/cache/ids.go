// Package cache implements the module cache and id arenas (spec.md §4.1,
// C1): every long-lived compiler entity — definitions, type variables, type
// infos, traits, impls, impl scopes and impl bindings — is addressed by a
// dense integer id into an arena vector here, never by a pointer. Entries
// are appended, never removed, so any id handed out earlier stays valid for
// the rest of the run (spec.md §3 "Lifecycle").
package cache

import "fmt"

// DefinitionInfoId addresses a DefinitionInfo.
type DefinitionInfoId uint32

func (id DefinitionInfoId) String() string { return fmt.Sprintf("$%d", id) }

// TypeVariableId addresses a slot in the type-binding table.
type TypeVariableId uint32

func (id TypeVariableId) String() string { return fmt.Sprintf("'t%d", id) }

// TypeInfoId addresses a user-defined type's TypeInfo.
type TypeInfoId uint32

// TraitInfoId addresses a TraitInfo.
type TraitInfoId uint32

// ImplInfoId addresses an ImplInfo.
type ImplInfoId uint32

// ImplScopeId addresses an ordered list of ImplInfoIds visible at a program
// point.
type ImplScopeId uint32

// ImplBindingId addresses a callsite slot later filled with the ImplInfoId
// selected for it by trait resolution (C3). Unlike the other ids this one's
// backing slot starts out holding the NoImplBinding sentinel and is filled
// at most once; a slot whose resolution failed keeps the sentinel.
type ImplBindingId uint32

// TraitConstraintId addresses a pending trait obligation emitted during
// inference (spec.md §3 "Constraints").
type TraitConstraintId uint32

// ModuleId addresses a parsed source file.
type ModuleId uint32

// HIRDefinitionId addresses one monomorphic specialisation in C7's HIR
// definition arena, keyed during lowering by (DefinitionInfoId, Monotype)
// (spec.md §4.7 "Keyed cache").
type HIRDefinitionId uint32

func (id HIRDefinitionId) String() string { return fmt.Sprintf("@%d", id) }

// NoImplBinding is the sentinel stored in an unfilled ImplBindingId slot.
// It has every bit set rather than being zero, since 0 is a valid
// ImplInfoId.
const NoImplBinding ImplInfoId = ^ImplInfoId(0)
