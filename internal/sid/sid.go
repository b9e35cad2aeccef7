// Package sid computes stable content-hash identifiers. C8's query table
// (internal/query, spec.md §4.8) keys every memoised result on one of these:
// the hash is built from the same ordered-parts-then-sha256 recipe this
// package always used for stable ids, just retargeted from "identify this
// AST node across edits" to "identify this query invocation's content."
package sid

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// SID is a stable identifier: the first 16 hex characters of a sha256 over
// its input parts. No separator is used: each part is written with a
// "<length>:" prefix, so two different part sequences never produce the
// same hashed byte stream.
type SID string

// Of hashes kind together with parts, in order. Equal (kind, parts) always
// yields the same SID; this is the only property query.Table relies on.
func Of(kind string, parts ...string) SID {
	h := sha256.New()
	write := func(s string) {
		h.Write([]byte(strconv.Itoa(len(s))))
		h.Write([]byte{':'})
		h.Write([]byte(s))
	}
	write(kind)
	for _, p := range parts {
		write(p)
	}
	return SID(hex.EncodeToString(h.Sum(nil))[:16])
}

// OfInts is a convenience for hashing a kind against a list of integer ids
// (e.g. ast.DefId values), the common key shape for GetType/TypeCheck.
func OfInts(kind string, ids ...int) SID {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return Of(kind, parts...)
}

// String returns the SID's 16 hex characters unchanged.
func (s SID) String() string { return string(s) }

// Join concatenates SIDs into one combined SID, for a query whose key is
// itself derived from several other keys (e.g. query's programKey folds
// together one SID per item DefId of the program).
func Join(kind string, sids ...SID) SID {
	strs := make([]string, len(sids))
	for i, s := range sids {
		strs[i] = string(s)
	}
	return Of(kind, strings.Join(strs, ","))
}
