package types

import (
	"sort"

	"github.com/antec-lang/antec/internal/ast"
	"github.com/antec-lang/antec/internal/cache"
)

// EmptyEffects is the pure sentinel: a closed row with no labels. A nil
// *Row is also treated as pure everywhere in this file, mirroring the
// teacher's "nil means pure" convention, so callers that never touch
// effects don't have to allocate one.
func EmptyEffects() *Row { return &Row{Kind: EffectRow, Labels: map[string]Type{}} }

// NewEffectRow builds a closed effect row from a set of distinct labels.
func NewEffectRow(labels ...string) *Row {
	m := make(map[string]Type, len(labels))
	for _, l := range labels {
		m[l] = &Unit{}
	}
	return &Row{Kind: EffectRow, Labels: m}
}

// OpenEffectRow builds an effect row with a row variable tail, used as the
// ambient ("ρ") ambient ambient row threaded through C4's effectful call
// rule (spec.md §4.4 "effectful call").
func OpenEffectRow(mc *ModuleCache, level Level, labels ...string) *Row {
	r := NewEffectRow(labels...)
	v := mc.NextTypeVariable(level)
	r.Tail = &v
	return r
}

func isPure(r *Row) bool { return r == nil || (len(r.Labels) == 0 && r.Tail == nil) }

// FollowRow flattens a row whose tail variable has since been bound to
// another row (the way unifyRows attaches extra fields to an open tail),
// merging labels down to the first unbound or absent tail. Needed wherever a
// *Row value captured before a later unification must reflect what that
// unification actually bound it to.
func FollowRow(mc *ModuleCache, r *Row) *Row {
	if r == nil || r.Tail == nil {
		return r
	}
	b := mc.Binding(*r.Tail)
	if !b.Bound {
		return r
	}
	bound, ok := b.Type.(*Row)
	if !ok {
		return r
	}
	inner := FollowRow(mc, bound)
	merged := make(map[string]Type, len(r.Labels)+len(inner.Labels))
	for k, v := range r.Labels {
		merged[k] = v
	}
	for k, v := range inner.Labels {
		merged[k] = v
	}
	return &Row{Kind: r.Kind, Labels: merged, Tail: inner.Tail}
}

// UnifyEffectRows unifies two effect sets so that both sides end up equal
// (spec.md §4.5): row variables are bound to the symmetric difference so
// that the shared effects are preserved on both sides.
func UnifyEffectRows(mc *ModuleCache, a, b *Row, span ast.Span) error {
	if isPure(a) && isPure(b) {
		return nil
	}
	if a == nil {
		a = EmptyEffects()
	}
	if b == nil {
		b = EmptyEffects()
	}
	return unifyRows(mc, a, b, span)
}

// UnionEffectRows computes the union of two (already-followed) effect rows;
// nil is the identity element. Used by C4's application rule to combine a
// callee's and its arguments' effect rows into the caller's ambient row.
func UnionEffectRows(a, b *Row) *Row {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	merged := map[string]Type{}
	for k, v := range a.Labels {
		merged[k] = v
	}
	for k, v := range b.Labels {
		merged[k] = v
	}
	tail := a.Tail
	if tail == nil {
		tail = b.Tail
	}
	return &Row{Kind: EffectRow, Labels: merged, Tail: tail}
}

// SubtractHandledEffects removes the labels a handler discharges from the
// body's inferred row and adds the handler's own effects (spec.md §4.5,
// "A handle-expression subtracts the handled labels ... and adds the
// handler's own effects").
func SubtractHandledEffects(body *Row, handled []string, handlerEffects *Row) *Row {
	remaining := map[string]Type{}
	handledSet := map[string]bool{}
	for _, h := range handled {
		handledSet[h] = true
	}
	if body != nil {
		for k, v := range body.Labels {
			if !handledSet[k] {
				remaining[k] = v
			}
		}
	}
	var tail *cache.TypeVariableId
	if body != nil {
		tail = body.Tail
	}
	result := &Row{Kind: EffectRow, Labels: remaining, Tail: tail}
	return UnionEffectRows(result, handlerEffects)
}

// SubsumeEffectRows reports whether every effect in a is also present in b;
// a pure row is subsumed by anything.
func SubsumeEffectRows(a, b *Row) bool {
	if isPure(a) {
		return true
	}
	if isPure(b) {
		return false
	}
	for k := range a.Labels {
		if _, ok := b.Labels[k]; !ok {
			return false
		}
	}
	return true
}

// EffectRowDifference returns, sorted, the labels present in a but absent
// from b — used to build the "effect not handled" diagnostic (EFF001).
func EffectRowDifference(a, b *Row) []string {
	if isPure(a) {
		return nil
	}
	var diff []string
	for k := range a.Labels {
		if b == nil || b.Labels[k] == nil {
			diff = append(diff, k)
		}
	}
	sort.Strings(diff)
	return diff
}

// FormatEffectRow renders "! {A, B}" for a non-empty row, "" for pure.
func FormatEffectRow(r *Row) string {
	if isPure(r) {
		return ""
	}
	names := make([]string, 0, len(r.Labels))
	for k := range r.Labels {
		names = append(names, k)
	}
	sort.Strings(names)
	out := "! {"
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	if r.Tail != nil {
		if len(names) > 0 {
			out += " | "
		}
		out += r.Tail.String()
	}
	return out + "}"
}
