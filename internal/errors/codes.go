// Package errors provides the structured diagnostic type shared by every
// front-end component (C2–C8) and the accumulator that lets one failure
// report and continue instead of aborting the whole compilation.
package errors

// Code is a stable, documented error code. Each maps to exactly one of the
// error kinds in spec.md §7.
type Code string

const (
	// TYP### — unification and generalisation (C2/C4)
	TYP001 Code = "TYP001" // unification failure
	TYP002 Code = "TYP002" // recursive type (occurs check)
	TYP003 Code = "TYP003" // arity mismatch
	TYP004 Code = "TYP004" // escaped skolem / rigid variable
	TYP005 Code = "TYP005" // mutability / sharedness mismatch on a reference

	// TRT### — trait and impl resolution (C3)
	TRT001 Code = "TRT001" // no impl found
	TRT002 Code = "TRT002" // overlapping impls
	TRT003 Code = "TRT003" // functional dependency conflict
	TRT004 Code = "TRT004" // unknown field (auto field-access trait)

	// MAT### — pattern match compilation (C6)
	MAT001 Code = "MAT001" // missing cases (non-exhaustive match)
	MAT002 Code = "MAT002" // unreachable arm (redundant pattern)

	// EFF### — effect row inference (C5)
	EFF001 Code = "EFF001" // effect not handled at its use site

	// QRY### — incremental query layer (C8)
	QRY001 Code = "QRY001" // dependency cycle in the query graph
	QRY002 Code = "QRY002" // unresolved name reached the query layer
)

// Kind groups codes into the taxonomy named by spec.md §7, independent of
// the exact code — useful for tests that only care about the category.
type Kind string

const (
	KindUnification     Kind = "unification"
	KindRecursiveType   Kind = "recursive_type"
	KindArity           Kind = "arity"
	KindNoImpl          Kind = "no_impl"
	KindOverlapping     Kind = "overlapping_impls"
	KindMissingCases    Kind = "missing_cases"
	KindUnreachable     Kind = "unreachable_arm"
	KindUnknownField    Kind = "unknown_field"
	KindEscapedSkolem   Kind = "escaped_skolem"
	KindEffectUnhandled Kind = "effect_unhandled"
	KindMutability      Kind = "mutability_mismatch"
	KindCycle           Kind = "dependency_cycle"
	KindUnresolvedName  Kind = "unresolved_name"
)

var codeKind = map[Code]Kind{
	TYP001: KindUnification,
	TYP002: KindRecursiveType,
	TYP003: KindArity,
	TYP004: KindEscapedSkolem,
	TYP005: KindMutability,
	TRT001: KindNoImpl,
	TRT002: KindOverlapping,
	TRT003: KindOverlapping,
	TRT004: KindUnknownField,
	MAT001: KindMissingCases,
	MAT002: KindUnreachable,
	EFF001: KindEffectUnhandled,
	QRY001: KindCycle,
	QRY002: KindUnresolvedName,
}

// KindOf returns the taxonomy kind for a code, or "" if unknown.
func KindOf(c Code) Kind { return codeKind[c] }
