package htable

import (
	"testing"
	"unsafe"
)

func bytesPtr(b []byte) unsafe.Pointer {
	return unsafe.Pointer(&b[0])
}

func cStringBytes(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

func TestSimpleKeyComparatorKeySize(t *testing.T) {
	c := SimpleKeyComparator{K: 8}
	if c.KeySize() != 8 {
		t.Errorf("KeySize()=%d, want 8", c.KeySize())
	}
}

func TestSimpleKeyComparatorEqual(t *testing.T) {
	c := SimpleKeyComparator{K: 4}
	a := []byte{1, 2, 3, 4}
	b := []byte{1, 2, 3, 4}
	d := []byte{1, 2, 3, 5}
	if !c.Equal(bytesPtr(a), bytesPtr(b)) {
		t.Error("identical byte keys should be Equal")
	}
	if c.Equal(bytesPtr(a), bytesPtr(d)) {
		t.Error("differing byte keys should not be Equal")
	}
}

func TestSimpleKeyComparatorHashDeterministic(t *testing.T) {
	c := SimpleKeyComparator{K: 4}
	a := []byte{9, 8, 7, 6}
	if c.Hash(bytesPtr(a)) != c.Hash(bytesPtr(a)) {
		t.Error("Hash should be deterministic for the same key bytes")
	}
}

func TestComplexKeyComparatorKeySize(t *testing.T) {
	c := ComplexKeyComparator{Slots: 2, SimpleBytes: 4}
	if want := 2*8 + 4; c.KeySize() != want {
		t.Errorf("KeySize()=%d, want %d", c.KeySize(), want)
	}
}

func TestComplexKeyComparatorEqualAndHash(t *testing.T) {
	c := ComplexKeyComparator{Slots: 1, SimpleBytes: 0}

	s1 := cStringBytes("hello")
	s2 := cStringBytes("hello")
	s3 := cStringBytes("world")

	keyA := make([]byte, 8)
	keyB := make([]byte, 8)
	keyC := make([]byte, 8)
	*(*unsafe.Pointer)(unsafe.Pointer(&keyA[0])) = bytesPtr(s1)
	*(*unsafe.Pointer)(unsafe.Pointer(&keyB[0])) = bytesPtr(s2)
	*(*unsafe.Pointer)(unsafe.Pointer(&keyC[0])) = bytesPtr(s3)

	pa, pb, pc := bytesPtr(keyA), bytesPtr(keyB), bytesPtr(keyC)

	if !c.Equal(pa, pb) {
		t.Error("keys pointing at equal strings should be Equal")
	}
	if c.Equal(pa, pc) {
		t.Error("keys pointing at different strings should not be Equal")
	}
	if c.Hash(pa) != c.Hash(pb) {
		t.Error("Hash should be equal for keys pointing at equal strings")
	}
}

func TestComplexKeyComparatorWithTrailingSimpleBytes(t *testing.T) {
	c := ComplexKeyComparator{Slots: 1, SimpleBytes: 4}

	s := cStringBytes("k")
	keyA := make([]byte, 8+4)
	keyB := make([]byte, 8+4)
	*(*unsafe.Pointer)(unsafe.Pointer(&keyA[0])) = bytesPtr(s)
	*(*unsafe.Pointer)(unsafe.Pointer(&keyB[0])) = bytesPtr(s)
	copy(keyA[8:], []byte{1, 2, 3, 4})
	copy(keyB[8:], []byte{1, 2, 3, 4})

	if !c.Equal(bytesPtr(keyA), bytesPtr(keyB)) {
		t.Error("equal string slot and equal trailing bytes should compare Equal")
	}

	copy(keyB[8:], []byte{1, 2, 3, 5})
	if c.Equal(bytesPtr(keyA), bytesPtr(keyB)) {
		t.Error("differing trailing bytes should make the keys unequal")
	}
}
