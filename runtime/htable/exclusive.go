package htable

import (
	"math/bits"
	"unsafe"

	"github.com/inkfuse/inkfuse/runtime"
)

// loadFactorCap is the maximum fraction of slots that may be filled
// before a resize is forced (spec §4.5: "load factor cap is 50%").
const loadFactorCap = 0.5

// Exclusive is the single-threaded hash table: a power-of-two-sized
// array of 1-byte tags parallel to an array of key+payload slots,
// linear probing on hash & (n-1), doubling when the load factor cap
// is exceeded (spec §4.5).
type Exclusive struct {
	cmp         Comparator
	payloadSize int
	slotSize    int

	tags  []Tag
	slots []byte
	count int
}

// NewExclusive creates a table with the given comparator and payload
// size, sized to hold at least initialCapacity entries at 50% load
// factor (rounded up to the next power of two, minimum 16).
func NewExclusive(cmp Comparator, payloadSize, initialCapacity int) *Exclusive {
	n := nextPow2(maxInt(16, doubleForLoadFactor(initialCapacity)))
	t := &Exclusive{
		cmp:         cmp,
		payloadSize: payloadSize,
		slotSize:    cmp.KeySize() + payloadSize,
	}
	t.alloc(n)
	return t
}

func doubleForLoadFactor(want int) int {
	// enough slots so `want` entries stay under the 50% load factor.
	return int(float64(want)/loadFactorCap) + 1
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	return 1 << bits.Len(uint(n-1))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (t *Exclusive) alloc(n int) {
	t.tags = make([]Tag, n)
	t.slots = make([]byte, n*t.slotSize)
}

// Capacity returns the current number of slots.
func (t *Exclusive) Capacity() int { return len(t.tags) }

// Count returns the number of occupied slots.
func (t *Exclusive) Count() int { return t.count }

func (t *Exclusive) slotAt(i int) unsafe.Pointer {
	return unsafe.Pointer(&t.slots[i*t.slotSize])
}

func (t *Exclusive) mask() uint64 { return uint64(len(t.tags) - 1) }

// Lookup returns the slot matching key, if any.
func (t *Exclusive) Lookup(key unsafe.Pointer) (unsafe.Pointer, bool) {
	hash := t.cmp.Hash(key)
	tag := MakeTag(hash)
	i := hash & t.mask()
	for {
		cur := t.tags[i]
		if cur == Empty {
			return nil, false
		}
		if cur.Fingerprint() == tag.Fingerprint() {
			slot := t.slotAt(int(i))
			if t.cmp.Equal(slot, key) {
				return slot, true
			}
		}
		i = (i + 1) & t.mask()
	}
}

// LookupOrInsert returns the existing slot for key, or inserts a new
// one and returns it with inserted=true. If the insert would exceed
// the load factor cap, the table is doubled first; in that case
// needRestart is true, no insertion happened, region's restart flag
// (if region is non-nil) is set, and the caller must retry the same
// operation — guaranteed to succeed without a further resize (spec §4.5,
// §8 property 8).
func (t *Exclusive) LookupOrInsert(key unsafe.Pointer, region *runtime.MemoryRegion) (slot unsafe.Pointer, inserted bool, needRestart bool) {
	if existing, ok := t.Lookup(key); ok {
		return existing, false, false
	}
	if float64(t.count+1) > loadFactorCap*float64(len(t.tags)) {
		t.resize()
		if region != nil {
			region.SetRestart()
		}
		return nil, false, true
	}
	hash := t.cmp.Hash(key)
	tag := MakeTag(hash)
	i := hash & t.mask()
	for t.tags[i] != Empty {
		i = (i + 1) & t.mask()
	}
	t.tags[i] = tag
	s := t.slotAt(int(i))
	copyBytes(s, key, t.cmp.KeySize())
	t.count++
	return s, true, false
}

// Insert unconditionally inserts key (assumed absent), following the
// same resize-then-restart contract as LookupOrInsert.
func (t *Exclusive) Insert(key unsafe.Pointer, region *runtime.MemoryRegion) (slot unsafe.Pointer, needRestart bool) {
	s, _, needRestart := t.LookupOrInsert(key, region)
	return s, needRestart
}

func (t *Exclusive) resize() {
	old := *t
	t.alloc(len(old.tags) * 2)
	t.count = 0
	for i, tag := range old.tags {
		if tag == Empty {
			continue
		}
		oldSlot := old.slotAt(i)
		hash := t.cmp.Hash(oldSlot)
		newTag := MakeTag(hash)
		j := hash & t.mask()
		for t.tags[j] != Empty {
			j = (j + 1) & t.mask()
		}
		t.tags[j] = newTag
		copyBytes(t.slotAt(int(j)), oldSlot, t.slotSize)
		t.count++
	}
}

// At returns the slot at index i and whether it is filled, for
// callers that drive their own morsel-indexed iteration over the
// table (e.g. a hash-table-source suboperator's read pipeline, spec
// §4.4 "Hash-table sources advance a shared slot index").
func (t *Exclusive) At(i int) (slot unsafe.Pointer, filled bool) {
	if t.tags[i] == Empty {
		return nil, false
	}
	return t.slotAt(i), true
}

// Iterate calls fn for every filled slot, in storage order.
func (t *Exclusive) Iterate(fn func(slot unsafe.Pointer)) {
	for i, tag := range t.tags {
		if tag.Filled() {
			fn(t.slotAt(i))
		}
	}
}

func copyBytes(dst, src unsafe.Pointer, n int) {
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}
