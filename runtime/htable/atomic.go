package htable

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// busy is a transient tag value distinct from every real tag (which
// fit in a byte): the CAS winner parks it here while writing the
// key/payload, then publishes the real tag with a Store. A reader
// that observes busy spins until the real tag appears, rather than
// treating the slot as a probing-chain gap — this is what gives
// Lookup the "data slot written by winner before any read can
// observe a matching tag" guarantee from spec §5 without a second
// side channel: Go's atomic Store/Load pair already establishes the
// happens-before edge the spec's release/acquire wording calls for.
const busy uint32 = 1 << 16

// Atomic is the multi-threaded hash table: fixed capacity, never
// resizes, a tag array of atomic<u8>, CAS-based insertion and
// release/acquire-ordered publication of the key (and optional
// payload) written into a slot after the CAS wins (spec §4.5, §5).
type Atomic struct {
	cmp         Comparator
	payloadSize int
	slotSize    int

	tags  []atomic.Uint32 // only the low byte is meaningful; atomic.Uint32 gives us a portable CAS primitive
	slots []byte
	mask  uint64

	// marker, when non-nil, is one atomic word per slot used by the
	// outer-join variant's "seen" bit (spec §4.5 "outer-join marker").
	marker []atomic.Uint32
}

// NewAtomic creates a fixed-size atomic table of capacity slots,
// rounded up to a power of two (minimum 2) (callers are responsible for pre-sizing to the
// expected load, e.g. 2x the total materialized row count rounded up
// to the next power of two per spec §4.3's PK-join runtime task).
func NewAtomic(cmp Comparator, payloadSize, capacity int) *Atomic {
	n := nextPow2(maxInt(2, capacity))
	return &Atomic{
		cmp:         cmp,
		payloadSize: payloadSize,
		slotSize:    cmp.KeySize() + payloadSize,
		tags:        make([]atomic.Uint32, n),
		slots:       make([]byte, n*cmp.KeySize()+n*payloadSize),
		mask:        uint64(n - 1),
	}
}

// WithOuterMarker allocates the outer-join "seen" marker array
// alongside the table; only needed for LEFT OUTER join probing.
func (t *Atomic) WithOuterMarker() *Atomic {
	t.marker = make([]atomic.Uint32, len(t.tags))
	return t
}

// Capacity returns the fixed slot count.
func (t *Atomic) Capacity() int { return len(t.tags) }

func (t *Atomic) slotAt(i uint64) unsafe.Pointer {
	return unsafe.Pointer(&t.slots[i*uint64(t.slotSize)])
}

// ComputeHashAndPrefetch hashes key and issues a (best-effort) memory
// prefetch of the tag and data cache lines for the slot the hash maps
// to, backing the `ht_at_sk_compute_hash_and_prefetch` / `_ck_`
// ABI symbols (spec §4.5). Go has no portable prefetch intrinsic
// without assembly support per architecture, so this touches the tag
// byte to pull the cache line in rather than issuing a true
// non-blocking PREFETCHT0; still avoids a second random access later
// in SlotPrefetch/LookupWithHash for the common case where the tag
// line is cold.
func (t *Atomic) ComputeHashAndPrefetch(key unsafe.Pointer) uint64 {
	hash := t.cmp.Hash(key)
	t.SlotPrefetch(hash)
	return hash
}

// SlotPrefetch prefetches the slot hash maps to, for use when the
// hash was already computed elsewhere (e.g. a join key shared with a
// group-by key).
func (t *Atomic) SlotPrefetch(hash uint64) {
	i := hash & t.mask
	_ = t.tags[i].Load()
}

// LookupWithHash probes for key using a previously computed hash,
// returning the matching slot if present.
func (t *Atomic) LookupWithHash(key unsafe.Pointer, hash uint64) (unsafe.Pointer, bool) {
	tag := uint32(MakeTag(hash))
	i := hash & t.mask
	for {
		cur := t.tags[i].Load()
		if cur == busy {
			runtime.Gosched()
			continue
		}
		if cur == 0 {
			return nil, false
		}
		if Tag(cur).Fingerprint() == Tag(tag).Fingerprint() {
			slot := t.slotAt(i)
			if t.cmp.Equal(slot, key) {
				return slot, true
			}
		}
		i = (i + 1) & t.mask
	}
}

// LookupWithHashDisable behaves like LookupWithHash, but on a match it
// atomically disables the slot's fingerprint (XORing the low 7 bits,
// spec §4.5 "disabled-slot trick") so a subsequent lookup for the same
// key returns nil while the linear-probing chain through the slot
// stays intact. Used for LEFT SEMI join: each build-side key is
// returned to at most one probe row.
func (t *Atomic) LookupWithHashDisable(key unsafe.Pointer, hash uint64) (unsafe.Pointer, bool) {
	tag := uint32(MakeTag(hash))
	i := hash & t.mask
	for {
		cur := t.tags[i].Load()
		if cur == busy {
			runtime.Gosched()
			continue
		}
		if cur == 0 {
			return nil, false
		}
		if Tag(cur).Fingerprint() == Tag(tag).Fingerprint() {
			slot := t.slotAt(i)
			if t.cmp.Equal(slot, key) {
				disabled := uint32(Tag(cur).Disable())
				t.tags[i].CompareAndSwap(cur, disabled)
				return slot, true
			}
		}
		i = (i + 1) & t.mask
	}
}

// LookupOuter behaves like LookupWithHash but additionally marks the
// slot "seen" the first time it is returned to a probe row (the
// outer-join marker variant, spec §4.5). The first caller to observe a
// match gets matched=true, firstSeen=true; subsequent callers for
// the same key get firstSeen=false. Requires WithOuterMarker.
func (t *Atomic) LookupOuter(key unsafe.Pointer, hash uint64) (slot unsafe.Pointer, matched bool, firstSeen bool) {
	slot, matched = t.LookupWithHash(key, hash)
	if !matched {
		return nil, false, false
	}
	i := hash & t.mask
	for {
		cur := t.tags[i].Load()
		if cur == busy {
			runtime.Gosched()
			continue
		}
		if Tag(cur).Fingerprint() == Tag(MakeTag(hash)).Fingerprint() {
			candidate := t.slotAt(i)
			if t.cmp.Equal(candidate, key) {
				first := t.marker[i].CompareAndSwap(0, 1)
				return candidate, true, first
			}
		}
		i = (i + 1) & t.mask
	}
}

// UnmatchedOuter calls fn for every filled slot whose outer-join
// marker was never set (the LEFT OUTER join's unmatched build rows),
// to be emitted once probing is complete.
func (t *Atomic) UnmatchedOuter(fn func(slot unsafe.Pointer)) {
	for i := range t.tags {
		if t.tags[i].Load() == 0 {
			continue
		}
		if t.marker[i].Load() == 0 {
			fn(t.slotAt(uint64(i)))
		}
	}
}

// Insert CAS-es a zero tag to the fingerprint|fill value for key's
// hash, then (only on the thread that won the CAS) writes the key and
// payload non-atomically into the slot; key points at a full slot-sized
// row, the key followed by payloadSize bytes of payload (spec §4.5, §5: "the thread
// then writes the key ... into the slot" after the CAS succeeds, with
// release ordering on the tag write so a concurrent reader observing
// a matching tag with acquire ordering always sees the written key).
// Returns the slot and whether this call performed the insertion (a
// concurrent duplicate key insert returns the existing slot with
// inserted=false).
func (t *Atomic) Insert(key unsafe.Pointer, hash uint64) (slot unsafe.Pointer, inserted bool) {
	tag := uint32(MakeTag(hash))
	i := hash & t.mask
	for {
		cur := t.tags[i].Load()
		if cur == busy {
			runtime.Gosched()
			continue
		}
		if cur == 0 {
			if t.tags[i].CompareAndSwap(0, busy) {
				// won the reservation: we alone may write this slot's
				// key/payload, then publish the real tag.
				s := t.slotAt(i)
				copyBytes(s, key, t.slotSize)
				t.tags[i].Store(tag)
				return s, true
			}
			continue // lost the race; re-read the same index
		}
		if Tag(cur).Fingerprint() == Tag(tag).Fingerprint() {
			s := t.slotAt(i)
			if t.cmp.Equal(s, key) {
				return s, false
			}
		}
		i = (i + 1) & t.mask
	}
}
