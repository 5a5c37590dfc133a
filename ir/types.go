// Package ir implements the small typed intermediate representation
// shared by the fused and interpreted backends (spec §4.1). Both the C
// backend and the pre-compiled fragment cache consume the same Program
// shape; nothing in this package knows how to generate C or load a
// shared object, it only models the IR itself.
package ir

import "fmt"

// Type is any value type the IR can express. Types compare by their
// stable identifier string, not by Go identity, so two independently
// constructed Types with the same Id() are interchangeable everywhere
// the IR is concerned with type equality (cast validation, struct
// field lookup, C lowering).
type Type interface {
	// Id returns the stable identifier string used for type equality
	// and as the basis for C type names ("UI4", "I8", "F8", "Bool",
	// "Char", "Ptr_<inner>", "ByteArray_<n>", "Struct_<name>").
	Id() string
	// Size returns the in-memory size in bytes, as laid out in both
	// generated C structs and the runtime's own struct definitions.
	Size() int
	// String renders a human-readable type name for diagnostics.
	String() string
}

// Kind distinguishes the fixed set of scalar kinds from the compound
// ones (pointer, struct, byte array).
type Kind uint8

const (
	KindVoid Kind = iota
	KindBool
	KindChar
	KindI1
	KindI2
	KindI4
	KindI8
	KindUI1
	KindUI2
	KindUI4
	KindUI8
	KindF4
	KindF8
	KindDate
	KindPtr
	KindByteArray
	KindStruct
)

var scalarNames = map[Kind]string{
	KindVoid: "Void", KindBool: "Bool", KindChar: "Char",
	KindI1: "I1", KindI2: "I2", KindI4: "I4", KindI8: "I8",
	KindUI1: "UI1", KindUI2: "UI2", KindUI4: "UI4", KindUI8: "UI8",
	KindF4: "F4", KindF8: "F8", KindDate: "Date",
}

var scalarSizes = map[Kind]int{
	KindVoid: 0, KindBool: 1, KindChar: 1,
	KindI1: 1, KindI2: 2, KindI4: 4, KindI8: 8,
	KindUI1: 1, KindUI2: 2, KindUI4: 4, KindUI8: 8,
	KindF4: 4, KindF8: 8, KindDate: 4,
}

// scalar is the concrete Type for every non-compound kind.
type scalar struct{ kind Kind }

func (s scalar) Id() string     { return scalarNames[s.kind] }
func (s scalar) Size() int      { return scalarSizes[s.kind] }
func (s scalar) String() string { return s.Id() }
func (s scalar) Kind() Kind     { return s.kind }

var (
	Void = scalar{KindVoid}
	Bool = scalar{KindBool}
	Char = scalar{KindChar}
	I1   = scalar{KindI1}
	I2   = scalar{KindI2}
	I4   = scalar{KindI4}
	I8   = scalar{KindI8}
	UI1  = scalar{KindUI1}
	UI2  = scalar{KindUI2}
	UI4  = scalar{KindUI4}
	UI8  = scalar{KindUI8}
	F4   = scalar{KindF4}
	F8   = scalar{KindF8}
	Date = scalar{KindDate}
)

// IsVoid reports whether t is the void pseudo-type used for ordering
// edges between suboperators (spec §3).
func IsVoid(t Type) bool { return t.Id() == Void.Id() }

// IsNumeric reports whether t is one of the fixed-width integer or
// floating point scalar kinds, i.e. eligible for arithmetic opcodes.
func IsNumeric(t Type) bool {
	s, ok := t.(scalar)
	if !ok {
		return false
	}
	switch s.kind {
	case KindI1, KindI2, KindI4, KindI8, KindUI1, KindUI2, KindUI4, KindUI8, KindF4, KindF8:
		return true
	}
	return false
}

// IsFloat reports whether t is F4 or F8.
func IsFloat(t Type) bool {
	s, ok := t.(scalar)
	return ok && (s.kind == KindF4 || s.kind == KindF8)
}

// IsSigned reports whether t is a signed integer kind.
func IsSigned(t Type) bool {
	s, ok := t.(scalar)
	if !ok {
		return false
	}
	switch s.kind {
	case KindI1, KindI2, KindI4, KindI8:
		return true
	}
	return false
}

// Ptr is a pointer-to-Type. Two Ptr values with the same Inner.Id()
// compare equal by Id().
type Ptr struct{ Inner Type }

func (p Ptr) Id() string     { return "Ptr_" + p.Inner.Id() }
func (p Ptr) Size() int      { return 8 }
func (p Ptr) String() string { return "*" + p.Inner.String() }
func (p Ptr) Kind() Kind     { return KindPtr }

// ByteArray is a fixed-length byte buffer, used for packed keys and
// comparator payloads.
type ByteArray struct{ N int }

func (b ByteArray) Id() string     { return fmt.Sprintf("ByteArray_%d", b.N) }
func (b ByteArray) Size() int      { return b.N }
func (b ByteArray) String() string { return fmt.Sprintf("byte[%d]", b.N) }
func (b ByteArray) Kind() Kind     { return KindByteArray }

// StructField is one member of a Struct type, in declaration order
// (also the in-memory layout order, no reordering for padding beyond
// natural alignment of the member type).
type StructField struct {
	Name string
	Type Type
}

// Struct is a named aggregate of fields, declared once in a Program
// and referenced by name afterwards. Struct state layout must match
// byte-for-byte between the generated C source and the runtime
// library's own definition of the same struct (spec §6, "State
// structs ... laid out identically").
type Struct struct {
	Name   string
	Fields []StructField
}

func (s *Struct) Id() string { return "Struct_" + s.Name }
func (s *Struct) Size() int {
	total := 0
	for _, f := range s.Fields {
		total += alignUp(total, alignOf(f.Type)) - total + f.Type.Size()
	}
	return alignUp(total, s.Align())
}
func (s *Struct) String() string { return "struct " + s.Name }

// Align returns the struct's own alignment requirement: the maximum
// alignment of any member.
func (s *Struct) Align() int {
	max := 1
	for _, f := range s.Fields {
		if a := alignOf(f.Type); a > max {
			max = a
		}
	}
	return max
}

// FieldOffset returns the byte offset of the named field within the
// struct, honoring natural alignment the way the C backend's emitted
// struct declaration would.
func (s *Struct) FieldOffset(name string) (int, Type, bool) {
	off := 0
	for _, f := range s.Fields {
		off = alignUp(off, alignOf(f.Type))
		if f.Name == name {
			return off, f.Type, true
		}
		off += f.Type.Size()
	}
	return 0, nil, false
}

func alignOf(t Type) int {
	if st, ok := t.(*Struct); ok {
		return st.Align()
	}
	n := t.Size()
	switch {
	case n >= 8:
		return 8
	case n >= 4:
		return 4
	case n >= 2:
		return 2
	default:
		return 1
	}
}

func alignUp(off, align int) int {
	if align <= 1 {
		return off
	}
	return (off + align - 1) &^ (align - 1)
}
