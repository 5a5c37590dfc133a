// Package runtime implements the per-process runtime library exposed
// to generated code via stable C ABI symbol names (spec §4.1, §6):
// hashing, the arena allocator, and the tuple materializer. The hash
// table family lives in the htable subpackage.
package runtime

import (
	"unsafe"

	"github.com/dchest/siphash"
)

// fixed key/iv used for every hash call in the process. Unlike a
// security hash, InkFuse's hash only needs to be stable within one
// process run (hash tables are never persisted), so a fixed key is
// sufficient and keeps hash() deterministic for tests (spec §8
// property 4 depends on repeatable hashing of the same bytes).
const (
	hashK0 uint64 = 0x736e656c6c65726a
	hashK1 uint64 = 0x696e6b66757365ff
)

// Hash hashes an arbitrary byte slice. This is the Go-side
// implementation backing the `hash(ptr, len)` C ABI symbol (spec §6).
func Hash(b []byte) uint64 {
	return siphash.Hash(hashK0, hashK1, b)
}

// Hash4 hashes a 4-byte value, backing the `hash4(ptr)` C ABI symbol.
func Hash4(v uint32) uint64 {
	var buf [4]byte
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
	buf[3] = byte(v >> 24)
	return Hash(buf[:])
}

// Hash8 hashes an 8-byte value, backing the `hash8(ptr)` C ABI symbol.
func Hash8(v uint64) uint64 {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	return Hash(buf[:])
}

// HashPtr hashes n bytes starting at an unsafe.Pointer, for use by
// code that already has a raw pointer into a fuse-chunk or arena
// (the shape the generated-code ABI actually calls with).
func HashPtr(ptr unsafe.Pointer, n int) uint64 {
	return Hash(unsafe.Slice((*byte)(ptr), n))
}
