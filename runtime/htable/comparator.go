package htable

import (
	"unsafe"

	"github.com/inkfuse/inkfuse/runtime"
)

// Comparator abstracts key hashing and equality over a fixed-size key
// region so the table implementations below never need to know
// whether a key is a flat byte blob or a tuple of string pointers
// (spec §4.5).
type Comparator interface {
	// KeySize is the total byte size of the key region within a slot.
	KeySize() int
	// Hash hashes the key region starting at key.
	Hash(key unsafe.Pointer) uint64
	// Equal compares the key regions starting at a and b.
	Equal(a, b unsafe.Pointer) bool
}

// SimpleKeyComparator compares fixed-length byte keys with memcmp
// semantics and hashes them directly.
type SimpleKeyComparator struct {
	K int // key length in bytes
}

func (c SimpleKeyComparator) KeySize() int { return c.K }

func (c SimpleKeyComparator) Hash(key unsafe.Pointer) uint64 {
	return runtime.HashPtr(key, c.K)
}

func (c SimpleKeyComparator) Equal(a, b unsafe.Pointer) bool {
	pa := unsafe.Slice((*byte)(a), c.K)
	pb := unsafe.Slice((*byte)(b), c.K)
	for i := range pa {
		if pa[i] != pb[i] {
			return false
		}
	}
	return true
}

// ComplexKeyComparator compares keys where the first Slots 8-byte
// words hold pointers to null-terminated variable-length data
// (strings), optionally followed by SimpleBytes of fixed trailing key
// material. Equality and hashing dereference the indirection slots
// (spec §4.5).
type ComplexKeyComparator struct {
	Slots       int
	SimpleBytes int
}

func (c ComplexKeyComparator) KeySize() int { return c.Slots*8 + c.SimpleBytes }

func (c ComplexKeyComparator) slot(key unsafe.Pointer, i int) *unsafe.Pointer {
	base := uintptr(key) + uintptr(i*8)
	return (*unsafe.Pointer)(unsafe.Pointer(base))
}

func cStrLen(p unsafe.Pointer) int {
	n := 0
	for {
		b := *(*byte)(unsafe.Pointer(uintptr(p) + uintptr(n)))
		if b == 0 {
			return n
		}
		n++
	}
}

func (c ComplexKeyComparator) Hash(key unsafe.Pointer) uint64 {
	h := uint64(0xcbf29ce484222325) // seed; combined with each slot's hash below
	for i := 0; i < c.Slots; i++ {
		p := *c.slot(key, i)
		n := cStrLen(p)
		h ^= runtime.HashPtr(p, n)
		h *= 1099511628211
	}
	if c.SimpleBytes > 0 {
		tail := unsafe.Pointer(uintptr(key) + uintptr(c.Slots*8))
		h ^= runtime.HashPtr(tail, c.SimpleBytes)
	}
	return h
}

func (c ComplexKeyComparator) Equal(a, b unsafe.Pointer) bool {
	for i := 0; i < c.Slots; i++ {
		pa, pb := *c.slot(a, i), *c.slot(b, i)
		na, nb := cStrLen(pa), cStrLen(pb)
		if na != nb {
			return false
		}
		sa := unsafe.Slice((*byte)(pa), na)
		sb := unsafe.Slice((*byte)(pb), nb)
		for j := range sa {
			if sa[j] != sb[j] {
				return false
			}
		}
	}
	if c.SimpleBytes > 0 {
		ta := unsafe.Pointer(uintptr(a) + uintptr(c.Slots*8))
		tb := unsafe.Pointer(uintptr(b) + uintptr(c.Slots*8))
		sa := unsafe.Slice((*byte)(ta), c.SimpleBytes)
		sb := unsafe.Slice((*byte)(tb), c.SimpleBytes)
		for j := range sa {
			if sa[j] != sb[j] {
				return false
			}
		}
	}
	return true
}
