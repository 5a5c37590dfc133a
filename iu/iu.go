// Package iu implements information units: the typed, identity-stable
// handles suboperators use to name the values flowing through a
// pipeline (spec §3 "IU"). An IU never compares by value — two IUs of
// the same type and name are still distinct identities — so every IU
// is created once, on the heap, and referenced afterwards by pointer.
package iu

import (
	"fmt"

	"github.com/inkfuse/inkfuse/ir"
)

// IU is one information unit: a type plus an optional debug name. Two
// *IU values are the same IU iff they are the same pointer; callers
// must never compare IUs structurally.
type IU struct {
	Type ir.Type
	Name string
}

// New allocates a fresh IU of the given type and optional debug name.
func New(ty ir.Type, name string) *IU {
	return &IU{Type: ty, Name: name}
}

// Pseudo allocates a void-typed IU used purely to encode an ordering
// edge between suboperators that otherwise don't exchange data (spec
// §3: "pseudo-IUs ... carry no data, only ordering").
func Pseudo(name string) *IU {
	return &IU{Type: ir.Void, Name: name}
}

// IsPseudo reports whether id is a void-typed ordering-only IU.
func (id *IU) IsPseudo() bool { return ir.IsVoid(id.Type) }

// DebugName renders a stable human-readable label for diagnostics and
// identifier-string construction: the given name if set, else a
// pointer-derived placeholder.
func (id *IU) DebugName() string {
	if id.Name != "" {
		return id.Name
	}
	return fmt.Sprintf("iu_%p", id)
}

// Set is a small identity-keyed IU set, used throughout subop/relalg
// to track in/out IU collections without relying on slice order for
// membership tests.
type Set map[*IU]struct{}

// NewSet builds a Set from the given IUs.
func NewSet(ids ...*IU) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id into the set.
func (s Set) Add(id *IU) { s[id] = struct{}{} }

// Has reports whether id is a member.
func (s Set) Has(id *IU) bool {
	_, ok := s[id]
	return ok
}

// Slice returns the set's members in unspecified order; callers that
// need a stable order should sort by DebugName or carry a separate
// ordered slice alongside the set.
func (s Set) Slice() []*IU {
	out := make([]*IU, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}
