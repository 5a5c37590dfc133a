package relalg

import (
	"math"
	"sync"
	"unsafe"

	"github.com/inkfuse/inkfuse/column"
	"github.com/inkfuse/inkfuse/ierrors"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/iu"
	"github.com/inkfuse/inkfuse/runtime"
	"github.com/inkfuse/inkfuse/runtime/htable"
	"github.com/inkfuse/inkfuse/subop"
)

// JoinType selects the probe-side semantics (spec §6 builder API and
// §4.5's disabled-slot / outer-marker primitives).
type JoinType uint8

const (
	Inner JoinType = iota
	LeftSemi
	Outer
)

// insertBatch is the "hash-and-prefetch batches of 256" build-side
// insertion granularity (spec §4.3's PK-join runtime task).
const insertBatch = 256

// Join decays both children, then builds a PK join: a build pipeline
// materializing the right (build) side's keys and payload into a
// thread-local TupleMaterializer, a runtime task between pipelines
// that sizes an Atomic hash table to 2x the materialized row count
// rounded to the next power of two and inserts every row in parallel
// using hash-and-prefetch batches, and a probe pipeline over the left
// (probe) side that packs the key, looks it up, and unpacks build-side
// payload columns alongside the probe-side's own (spec §4.3's "PK
// Join" row).
//
// Only primary-key joins are supported (is_pk == true in the spec's
// builder signature): the build side is assumed key-unique, so a
// matching slot always carries exactly the row that would otherwise
// require an explicit first-match/next-match chain. Non-PK joins are
// an explicit Non-goal (spec §6, §7 ErrUnsupported feature list).
type Join struct {
	Left, Right Op
	Tag         string
	KeysLeft    []*iu.IU
	PayloadLeft []*iu.IU

	KeysRight    []*iu.IU
	PayloadRight []*iu.IU

	Type JoinType
}

func (j *Join) Decay(dag *subop.PipelineDAG) ([]*iu.IU, error) {
	if len(j.KeysLeft) != len(j.KeysRight) {
		return nil, ierrors.Internal("join: key count mismatch (%d left, %d right)", len(j.KeysLeft), len(j.KeysRight))
	}
	for _, k := range j.KeysRight {
		if k.Type.Size() == 0 || k.Type.Size() > 8 {
			return nil, ierrors.Unsupported("join key wider than 8 bytes or variable-length")
		}
	}
	keySize := len(j.KeysRight) * 8
	payloadRightSize := rowWidth(j.PayloadRight)

	// Every key slot holds a fixed-width numeric value (variable-length
	// keys are rejected above), so the packed key compares as plain bytes.
	var cmp htable.Comparator = htable.SimpleKeyComparator{K: keySize}

	var mu sync.Mutex
	var table *htable.Atomic
	var materializers []*runtime.TupleMaterializer

	// --- build pipeline: materialize right-side rows ---
	if _, err := j.Right.Decay(dag); err != nil {
		return nil, err
	}
	buildPipe := dag.Current()

	matDoneIU := iu.Pseudo(j.Tag + "_join_build_done")
	matSub := &subop.Suboperator{
		Kind:     subop.KindMaterialize,
		Sources:  append(append([]*iu.IU{}, j.KeysRight...), j.PayloadRight...),
		Provided: []*iu.IU{matDoneIU},
		SetupState: func() any {
			m := runtime.NewTupleMaterializer(keySize + payloadRightSize)
			mu.Lock()
			materializers = append(materializers, m)
			mu.Unlock()
			return m
		},
	}
	matSub.Interpret = func(rt *subop.Runtime, chunk *column.FuseChunk, start, end int) (subop.RunResult, error) {
		keyCols := make([]*column.Column, len(j.KeysRight))
		for i, k := range j.KeysRight {
			c, err := chunk.Column(k)
			if err != nil {
				return subop.Done, err
			}
			keyCols[i] = c
		}
		payCols := make([]*column.Column, len(j.PayloadRight))
		for i, p := range j.PayloadRight {
			c, err := chunk.Column(p)
			if err != nil {
				return subop.Done, err
			}
			payCols[i] = c
		}
		mat := subop.StateFor[*runtime.TupleMaterializer](rt, matSub)
		for row := start; row < end; row++ {
			dst := mat.Materialize()
			off := 0
			for c, col := range keyCols {
				writeKeySlot(dst, off, j.KeysRight[c].Type, col, row)
				off += 8
			}
			for _, col := range payCols {
				writePayloadSlot(dst, off, col, row)
				off += col.Type().Size()
			}
		}
		return subop.Done, nil
	}
	buildPipe.Add(matSub)

	// --- runtime task: size the atomic table, parallel-insert ---
	dag.SetTaskAfter(len(dag.Pipelines)-1, &subop.RuntimeTask{
		Name: j.Tag + "_join_build_table",
		Run: func(numThreads int) error {
			total := 0
			for _, m := range materializers {
				total += m.NumRows()
			}
			capacity := nextPow2(maxInt(2, total*2))
			table = htable.NewAtomic(cmp, payloadRightSize, capacity)
			if j.Type == Outer {
				table = table.WithOuterMarker()
			}
			handle := runtime.OpenReadHandle(materializers)

			var wg sync.WaitGroup
			for t := 0; t < numThreads; t++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for {
						ch, ok := handle.Next()
						if !ok {
							return
						}
						for i := 0; i < ch.NumRows(); i += insertBatch {
							hi := i + insertBatch
							if hi > ch.NumRows() {
								hi = ch.NumRows()
							}
							hashes := make([]uint64, hi-i)
							for r := i; r < hi; r++ {
								hashes[r-i] = table.ComputeHashAndPrefetch(ch.Row(r))
							}
							for r := i; r < hi; r++ {
								table.Insert(ch.Row(r), hashes[r-i])
							}
						}
					}
				}()
			}
			wg.Wait()
			return nil
		},
	})

	// --- probe pipeline ---
	if _, err := j.Left.Decay(dag); err != nil {
		return nil, err
	}
	probePipe := dag.Current()

	matchIU := iu.New(ir.Bool, j.Tag+".matched")

	joinedPayload := make([]*iu.IU, len(j.PayloadRight))
	for i, p := range j.PayloadRight {
		joinedPayload[i] = iu.New(p.Type, j.Tag+".right")
	}

	probeSub := &subop.Suboperator{
		Kind:           subop.KindHtLookup,
		Sources:        append(append([]*iu.IU{}, j.KeysLeft...), j.PayloadLeft...),
		Provided:       append([]*iu.IU{matchIU}, joinedPayload...),
		DiscreteParams: []string{joinTypeLabel(j.Type)},
		Interpret: func(rt *subop.Runtime, chunk *column.FuseChunk, start, end int) (subop.RunResult, error) {
			keyCols := make([]*column.Column, len(j.KeysLeft))
			for i, k := range j.KeysLeft {
				c, err := chunk.Column(k)
				if err != nil {
					return subop.Done, err
				}
				keyCols[i] = c
			}
			payDst := make([]*column.Column, len(joinedPayload))
			for i, id := range joinedPayload {
				payDst[i] = chunk.Provide(id)
			}
			matchDst := chunk.Provide(matchIU)

			keyBuf := make([]byte, keySize)
			for row := start; row < end; row++ {
				off := 0
				for c, col := range keyCols {
					writeKeySlot(unsafe.Pointer(&keyBuf[0]), off, j.KeysLeft[c].Type, col, row)
					off += 8
				}
				hash := table.ComputeHashAndPrefetch(unsafe.Pointer(&keyBuf[0]))

				var slot unsafe.Pointer
				var matched bool
				switch j.Type {
				case LeftSemi:
					slot, matched = table.LookupWithHashDisable(unsafe.Pointer(&keyBuf[0]), hash)
				case Outer:
					slot, matched, _ = table.LookupOuter(unsafe.Pointer(&keyBuf[0]), hash)
				default:
					slot, matched = table.LookupWithHash(unsafe.Pointer(&keyBuf[0]), hash)
				}
				matchDst.SetBoolAt(matchDst.Len(), matched)
				matchDst.SetLen(matchDst.Len() + 1)

				payOff := keySize
				for i, dst := range payDst {
					if matched {
						readPayloadSlot(dst, unsafe.Pointer(uintptr(slot)+uintptr(payOff)))
					} else {
						writeZero(dst)
					}
					payOff += joinedPayload[i].Type.Size()
				}
			}
			return subop.Done, nil
		},
	}
	probePipe.Add(probeSub)

	out := append(append([]*iu.IU{matchIU}, j.PayloadLeft...), joinedPayload...)
	if j.Type != Outer {
		return out, nil
	}

	// Outer: a final single-morsel pipeline walks the build table's
	// unmatched-outer marker (spec §4.5) and emits every build row no
	// probe row ever looked up, with the probe (left) side's payload
	// filled by writeZero (0, or NaN for float columns); this pipeline
	// writes no match value. This is what
	// makes a build-side row survive the join even when nothing on
	// the probe side ever referenced its key.
	tailPipe := dag.BuildNewPipeline()
	tailMatchIU := iu.Pseudo(j.Tag + "_join_unmatched_match")
	tailPayload := make([]*iu.IU, len(j.PayloadRight))
	for i, p := range j.PayloadRight {
		tailPayload[i] = iu.New(p.Type, j.Tag+".unmatched_right")
	}
	tailLeftPayload := make([]*iu.IU, len(j.PayloadLeft))
	for i, p := range j.PayloadLeft {
		tailLeftPayload[i] = iu.New(p.Type, j.Tag+".unmatched_left_null")
	}

	emitted := false
	tailSource := &subop.Suboperator{
		Kind:     subop.KindHtSource,
		IsSource: true,
		Provided: []*iu.IU{tailMatchIU},
		// Pipelines already run strictly in DAG order (spec §5), so no
		// explicit cross-pipeline Sources edge is needed to sequence
		// this after the probe pipeline that fills the marker bits.
		PickMorsel: func() (int, int, bool) {
			if emitted {
				return 0, 0, false
			}
			emitted = true
			return 0, 1, true
		},
	}
	tailPipe.Add(tailSource)

	tailProject := &subop.Suboperator{
		Kind:     subop.KindGranuleCompute,
		Sources:  []*iu.IU{tailMatchIU},
		Provided: append(append([]*iu.IU{}, tailPayload...), tailLeftPayload...),
		Interpret: func(rt *subop.Runtime, chunk *column.FuseChunk, start, end int) (subop.RunResult, error) {
			payDst := make([]*column.Column, len(tailPayload))
			for i, id := range tailPayload {
				payDst[i] = chunk.Provide(id)
			}
			leftDst := make([]*column.Column, len(tailLeftPayload))
			for i, id := range tailLeftPayload {
				leftDst[i] = chunk.Provide(id)
			}
			table.UnmatchedOuter(func(slot unsafe.Pointer) {
				payOff := keySize
				for i, dst := range payDst {
					readPayloadSlot(dst, unsafe.Pointer(uintptr(slot)+uintptr(payOff)))
					payOff += tailPayload[i].Type.Size()
				}
				for _, dst := range leftDst {
					writeZero(dst)
				}
			})
			return subop.Done, nil
		},
	}
	tailPipe.Add(tailProject)

	out = append(out, tailPayload...)
	out = append(out, tailLeftPayload...)
	return out, nil
}

func joinTypeLabel(t JoinType) string {
	switch t {
	case LeftSemi:
		return "left_semi"
	case Outer:
		return "outer"
	default:
		return "inner"
	}
}

func rowWidth(ius []*iu.IU) int {
	w := 0
	for _, id := range ius {
		sz := id.Type.Size()
		if sz == 0 {
			sz = 8
		}
		w += sz
	}
	return w
}

func writeKeySlot(dst unsafe.Pointer, off int, ty ir.Type, col *column.Column, row int) {
	bits := numericValueBits(ty, col, row)
	buf := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(dst)+uintptr(off))), 8)
	for b := 0; b < 8; b++ {
		buf[b] = byte(bits >> (8 * b))
	}
}

func writePayloadSlot(dst unsafe.Pointer, off int, col *column.Column, row int) {
	sz := col.Type().Size()
	if sz == 0 {
		sz = 8
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(dst)+uintptr(off))), sz)
	copy(buf, unsafe.Slice((*byte)(col.Raw(row)), sz))
}

func readPayloadSlot(dst *column.Column, src unsafe.Pointer) {
	sz := dst.Type().Size()
	if sz == 0 {
		sz = 8
	}
	i := dst.Len()
	copy(unsafe.Slice((*byte)(dst.Raw(i)), sz), unsafe.Slice((*byte)(src), sz))
	dst.SetLen(i + 1)
}

func writeZero(dst *column.Column) {
	i := dst.Len()
	switch {
	case ir.IsFloat(dst.Type()):
		dst.SetFloat64At(i, math.NaN())
	default:
		dst.SetUint64At(i, 0)
	}
	dst.SetLen(i + 1)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
