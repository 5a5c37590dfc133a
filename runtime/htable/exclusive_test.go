package htable

import (
	"testing"
	"unsafe"

	"github.com/inkfuse/inkfuse/runtime"
)

func key4(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func TestExclusiveLookupOrInsertThenLookup(t *testing.T) {
	tbl := NewExclusive(SimpleKeyComparator{K: 4}, 8, 4)
	region := runtime.NewMemoryRegion(0)

	k := key4(42)
	slot, inserted, needRestart := tbl.LookupOrInsert(bytesPtr(k), region)
	if !inserted || needRestart {
		t.Fatalf("first insert: inserted=%v needRestart=%v, want true,false", inserted, needRestart)
	}
	if slot == nil {
		t.Fatal("LookupOrInsert should return a non-nil slot")
	}

	got, ok := tbl.Lookup(bytesPtr(k))
	if !ok || got != slot {
		t.Errorf("Lookup after insert: got=%v ok=%v, want %v,true", got, ok, slot)
	}
}

func TestExclusiveLookupOrInsertIsIdempotentForSameKey(t *testing.T) {
	tbl := NewExclusive(SimpleKeyComparator{K: 4}, 0, 4)
	region := runtime.NewMemoryRegion(0)
	k := key4(7)

	s1, inserted1, _ := tbl.LookupOrInsert(bytesPtr(k), region)
	s2, inserted2, _ := tbl.LookupOrInsert(bytesPtr(k), region)
	if !inserted1 {
		t.Fatal("first LookupOrInsert for a new key should insert")
	}
	if inserted2 {
		t.Error("second LookupOrInsert for the same key should not insert again")
	}
	if s1 != s2 {
		t.Error("second LookupOrInsert should return the same slot as the first")
	}
	if tbl.Count() != 1 {
		t.Errorf("Count()=%d, want 1", tbl.Count())
	}
}

func TestExclusiveLookupMissingKeyReturnsFalse(t *testing.T) {
	tbl := NewExclusive(SimpleKeyComparator{K: 4}, 0, 4)
	if _, ok := tbl.Lookup(bytesPtr(key4(99))); ok {
		t.Error("Lookup for a never-inserted key should return false")
	}
}

func TestExclusiveResizeWhenLoadFactorExceeded(t *testing.T) {
	tbl := NewExclusive(SimpleKeyComparator{K: 4}, 0, 4)
	region := runtime.NewMemoryRegion(0)

	before := tbl.Capacity()
	sawRestart := false
	for i := 0; i < before; i++ {
		_, _, needRestart := tbl.LookupOrInsert(bytesPtr(key4(uint32(i))), region)
		if needRestart {
			sawRestart = true
			// caller contract: retry the same key, guaranteed to succeed.
			_, inserted, needRestart2 := tbl.LookupOrInsert(bytesPtr(key4(uint32(i))), region)
			if needRestart2 {
				t.Fatalf("retry after resize should not need a second restart")
			}
			if !inserted {
				t.Errorf("retry after resize should insert key %d", i)
			}
		}
	}
	if !sawRestart {
		t.Error("inserting past the 50%% load factor should trigger at least one resize/restart")
	}
	if tbl.Capacity() <= before {
		t.Errorf("Capacity() after resize=%d, want > %d", tbl.Capacity(), before)
	}
	if !region.TakeRestart() {
		t.Error("SetRestart should have been called on the region during a resize")
	}
}

func TestExclusiveResizePreservesExistingEntries(t *testing.T) {
	tbl := NewExclusive(SimpleKeyComparator{K: 4}, 0, 4)
	region := runtime.NewMemoryRegion(0)

	const n = 20
	for i := 0; i < n; i++ {
		for {
			_, _, needRestart := tbl.LookupOrInsert(bytesPtr(key4(uint32(i))), region)
			if !needRestart {
				break
			}
		}
	}
	for i := 0; i < n; i++ {
		if _, ok := tbl.Lookup(bytesPtr(key4(uint32(i)))); !ok {
			t.Errorf("key %d should still be found after resizes", i)
		}
	}
	if tbl.Count() != n {
		t.Errorf("Count()=%d, want %d", tbl.Count(), n)
	}
}

func TestExclusiveIterateVisitsEveryFilledSlot(t *testing.T) {
	tbl := NewExclusive(SimpleKeyComparator{K: 4}, 0, 8)
	region := runtime.NewMemoryRegion(0)
	want := map[uint32]bool{1: true, 2: true, 3: true}
	for k := range want {
		tbl.LookupOrInsert(bytesPtr(key4(k)), region)
	}

	seen := map[uint32]bool{}
	tbl.Iterate(func(slot unsafe.Pointer) {
		b := unsafe.Slice((*byte)(slot), 4)
		v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
		seen[v] = true
	})
	for k := range want {
		if !seen[k] {
			t.Errorf("Iterate did not visit key %d", k)
		}
	}
	if len(seen) != len(want) {
		t.Errorf("Iterate visited %d slots, want %d", len(seen), len(want))
	}
}

func TestExclusiveAtReflectsFilledState(t *testing.T) {
	tbl := NewExclusive(SimpleKeyComparator{K: 4}, 0, 8)
	region := runtime.NewMemoryRegion(0)
	tbl.LookupOrInsert(bytesPtr(key4(5)), region)

	foundFilled := false
	for i := 0; i < tbl.Capacity(); i++ {
		if _, filled := tbl.At(i); filled {
			foundFilled = true
		}
	}
	if !foundFilled {
		t.Error("At should report at least one filled slot after an insert")
	}
}
