package relalg

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/inkfuse/inkfuse/column"
	"github.com/inkfuse/inkfuse/ierrors"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/iu"
	"github.com/inkfuse/inkfuse/runtime/htable"
	"github.com/inkfuse/inkfuse/subop"
)

// AggOpcode enumerates the aggregate functions the builder API accepts
// (spec §6 `Description{iu, opcode, distinct}`; Median is a
// supplemented feature, see DESIGN.md).
type AggOpcode uint8

const (
	Count AggOpcode = iota
	Sum
	Avg
	Min
	Max
	Median
)

// Description is one requested aggregate: IU is nil for count(*).
type Description struct {
	IU         *iu.IU
	Op         AggOpcode
	Distinct   bool
	OutputName string
}

// granuleKind identifies which update/merge primitive a granule slot
// uses (spec §4.3 "Per-granule merge primitives are dispatched by the
// granule's type identifier").
type granuleKind uint8

const (
	granuleCount granuleKind = iota
	granuleSum
	granuleMin
	granuleMax
)

type granule struct {
	kind   granuleKind
	src    *iu.IU // nil for count
	offset int    // byte offset within the payload region, after the key
}

// Aggregation decays into a build pipeline (hash-key, materialize
// key+payload, lookup-or-insert, per-granule update) and a read
// pipeline (hash-table source, per-granule compute, project) — spec
// §4.3's Aggregation row, with the aggregate planner choosing the
// minimal granule set described in the same section.
type Aggregation struct {
	Children []Op
	Tag      string
	GroupBy  []*iu.IU
	Descs    []Description
}

// plan is the result of the aggregate planner: the minimal granule
// list plus, for every requested Description, which granule(s) its
// final value is computed from.
type plan struct {
	granules  []granule
	keySize   int
	payload   int
	countOff  int // offset of the always-present count granule, used by Avg
	sumOffFor map[*iu.IU]int
	minOffFor map[*iu.IU]int
	maxOffFor map[*iu.IU]int
}

// buildPlan implements the aggregate planner (spec §4.3: "chooses the
// minimal set of state granules ... count(*) + sum(x) + avg(x) share
// a single sum granule and a single count granule").
func buildPlan(keyIUs []*iu.IU, descs []Description) (*plan, error) {
	p := &plan{sumOffFor: map[*iu.IU]int{}, minOffFor: map[*iu.IU]int{}, maxOffFor: map[*iu.IU]int{}}
	for _, k := range keyIUs {
		if k.Type.Size() == 0 || k.Type.Size() > 8 {
			return nil, ierrors.Unsupported("group-by over non-fixed-width or >8-byte key column")
		}
		p.keySize += 8 // every group-by column occupies one 8-byte key slot, simple-key comparator
	}

	needCount := false
	for _, d := range descs {
		if d.Distinct {
			return nil, ierrors.Unsupported("distinct aggregate")
		}
		switch d.Op {
		case Count, Avg:
			needCount = true
		}
	}
	off := 0
	if needCount {
		p.countOff = off
		p.granules = append(p.granules, granule{kind: granuleCount, offset: off})
		off += 8
	}
	for _, d := range descs {
		switch d.Op {
		case Sum, Avg:
			if _, ok := p.sumOffFor[d.IU]; !ok {
				p.sumOffFor[d.IU] = off
				p.granules = append(p.granules, granule{kind: granuleSum, src: d.IU, offset: off})
				off += 8
			}
		case Min:
			if _, ok := p.minOffFor[d.IU]; !ok {
				p.minOffFor[d.IU] = off
				p.granules = append(p.granules, granule{kind: granuleMin, src: d.IU, offset: off})
				off += 8
			}
		case Max:
			if _, ok := p.maxOffFor[d.IU]; !ok {
				p.maxOffFor[d.IU] = off
				p.granules = append(p.granules, granule{kind: granuleMax, src: d.IU, offset: off})
				off += 8
			}
		}
	}
	p.payload = off
	return p, nil
}

// buildKey packs the group-by IUs' row i values into an 8-byte-per-
// column key buffer.
func buildKey(keyIUs []*iu.IU, cols []*column.Column, i int, buf []byte) {
	for c, col := range cols {
		v := numericValueBits(keyIUs[c].Type, col, i)
		off := c * 8
		for b := 0; b < 8; b++ {
			buf[off+b] = byte(v >> (8 * b))
		}
	}
}

func numericValueBits(ty ir.Type, col *column.Column, i int) uint64 {
	switch {
	case ir.IsFloat(ty):
		return math.Float64bits(col.Float64At(i))
	default:
		return col.Uint64At(i)
	}
}

func initGranules(payload []byte, p *plan) {
	for _, g := range p.granules {
		switch g.kind {
		case granuleMin:
			writeF64(payload, g.offset, math.Inf(1))
		case granuleMax:
			writeF64(payload, g.offset, math.Inf(-1))
		default:
			writeF64(payload, g.offset, 0)
		}
	}
}

func writeF64(buf []byte, off int, v float64) {
	bits := math.Float64bits(v)
	for b := 0; b < 8; b++ {
		buf[off+b] = byte(bits >> (8 * b))
	}
}

func readF64(buf []byte, off int) float64 {
	var bits uint64
	for b := 0; b < 8; b++ {
		bits |= uint64(buf[off+b]) << (8 * b)
	}
	return math.Float64frombits(bits)
}

func updateGranules(payload []byte, p *plan, cols map[*iu.IU]*column.Column, row int) {
	for _, g := range p.granules {
		switch g.kind {
		case granuleCount:
			writeF64(payload, g.offset, readF64(payload, g.offset)+1)
		case granuleSum:
			v := numericValue(g.src.Type, cols[g.src], row)
			writeF64(payload, g.offset, readF64(payload, g.offset)+v)
		case granuleMin:
			v := numericValue(g.src.Type, cols[g.src], row)
			if cur := readF64(payload, g.offset); v < cur {
				writeF64(payload, g.offset, v)
			}
		case granuleMax:
			v := numericValue(g.src.Type, cols[g.src], row)
			if cur := readF64(payload, g.offset); v > cur {
				writeF64(payload, g.offset, v)
			}
		}
	}
}

// mergeGranules combines a source thread's partial payload into the
// final shard's payload for the same key, using each granule's own
// combination rule (count/sum add, min/max take the extreme) rather
// than updateGranules' single-row update rule (spec §4.3 "Aggregation
// merger" combines partial per-thread state, it doesn't replay rows).
func mergeGranules(dst, src []byte, p *plan) {
	for _, g := range p.granules {
		switch g.kind {
		case granuleCount, granuleSum:
			writeF64(dst, g.offset, readF64(dst, g.offset)+readF64(src, g.offset))
		case granuleMin:
			if v := readF64(src, g.offset); v < readF64(dst, g.offset) {
				writeF64(dst, g.offset, v)
			}
		case granuleMax:
			if v := readF64(src, g.offset); v > readF64(dst, g.offset) {
				writeF64(dst, g.offset, v)
			}
		}
	}
}

// granulePtr casts a byte offset within a native payload buffer to a
// double pointer; every granule is stored as an 8-byte float64 slot in
// fused mode regardless of its source column's width, mirroring
// writeF64/readF64's float64-everywhere payload encoding above.
func granulePtr(base ir.Expr, offset int) ir.Expr {
	raw := subop.RowPtr(base, ir.ConstI(ir.I8, int64(offset)))
	return &ir.Cast{Target: ir.Ptr{Inner: ir.F8}, Inner: raw}
}

// aggThreadState is one worker thread's pre-aggregation state: its own
// hash table (spec §4.3 "Aggregation merger": "per-thread
// pre-aggregation tables ... merged by an N-way runtime task") plus
// its own median accumulator, both built lock-free since no other
// thread ever touches them during the build pipeline.
type aggThreadState struct {
	table  *htable.Exclusive
	median map[*iu.IU]map[string][]float64
}

// Decay builds the two-pipeline aggregation (spec §4.3). Median
// aggregates bypass the granule/hash-table path entirely: they are
// accumulated into a per-thread map keyed by the same packed key
// bytes and merged by concatenation + sort at read time (see
// DESIGN.md — medians have no bounded streaming update rule, so they
// cannot share the granule payload's fixed-size slot design).
//
// The build side gives each worker thread its own htable.Exclusive
// (SetupState, same deferred-per-thread-state mechanism Join uses for
// its TupleMaterializer) rather than one table shared across threads:
// no build-phase lock contention. Between the build and read
// pipelines, a RuntimeTask (spec §4.3 "Aggregation merger") shards the
// per-thread tables N ways by key hash and merges each shard's rows
// into its own upfront-sized final table in parallel, so the read
// pipeline's morsel source is itself sharded the same way.
func (a *Aggregation) Decay(dag *subop.PipelineDAG) ([]*iu.IU, error) {
	for _, c := range a.Children {
		if _, err := c.Decay(dag); err != nil {
			return nil, err
		}
	}
	buildPipe := dag.Current()

	nonMedian := make([]Description, 0, len(a.Descs))
	medianIUSet := make(map[*iu.IU]bool)
	for _, d := range a.Descs {
		if d.Op == Median {
			medianIUSet[d.IU] = true
			continue
		}
		nonMedian = append(nonMedian, d)
	}
	var medianIUs []*iu.IU
	for id := range medianIUSet {
		medianIUs = append(medianIUs, id)
	}

	pl, err := buildPlan(a.GroupBy, nonMedian)
	if err != nil {
		return nil, err
	}
	sk := htable.SimpleKeyComparator{K: pl.keySize}

	var threadStatesMu sync.Mutex
	var threadStates []*aggThreadState

	buildDoneIU := iu.Pseudo(a.Tag + "_build_done")
	build := &subop.Suboperator{
		Kind:           subop.KindHtLookupOrInsert,
		Sources:        append(append([]*iu.IU{}, a.GroupBy...), medianIUs...),
		Provided:       []*iu.IU{buildDoneIU},
		DiscreteParams: []string{"exclusive"},
		SetupState: func() any {
			st := &aggThreadState{
				table:  htable.NewExclusive(sk, pl.payload, 256),
				median: make(map[*iu.IU]map[string][]float64, len(medianIUs)),
			}
			for _, id := range medianIUs {
				st.median[id] = make(map[string][]float64)
			}
			threadStatesMu.Lock()
			threadStates = append(threadStates, st)
			threadStatesMu.Unlock()
			return st
		},
	}
	build.Interpret = func(rt *subop.Runtime, chunk *column.FuseChunk, start, end int) (subop.RunResult, error) {
		keyCols := make([]*column.Column, len(a.GroupBy))
		for i, k := range a.GroupBy {
			c, err := chunk.Column(k)
			if err != nil {
				return subop.Done, err
			}
			keyCols[i] = c
		}
		srcCols := make(map[*iu.IU]*column.Column)
		for _, g := range pl.granules {
			if g.src == nil {
				continue
			}
			c, err := chunk.Column(g.src)
			if err != nil {
				return subop.Done, err
			}
			srcCols[g.src] = c
		}
		medCols := make(map[*iu.IU]*column.Column)
		for _, id := range medianIUs {
			c, err := chunk.Column(id)
			if err != nil {
				return subop.Done, err
			}
			medCols[id] = c
		}

		st := subop.StateFor[*aggThreadState](rt, build)
		keyBuf := make([]byte, pl.keySize)
		for row := start; row < end; row++ {
			buildKey(a.GroupBy, keyCols, row, keyBuf)
			slot, inserted, needRestart := st.table.LookupOrInsert(unsafe.Pointer(&keyBuf[0]), nil)
			if needRestart {
				// st.table is exclusive to this thread and has just
				// doubled, so the restart contract (spec §4.5, §8
				// property 8) guarantees the retried call succeeds
				// without a further resize. Only this row is retried:
				// replaying the morsel would aggregate earlier rows twice.
				slot, inserted, _ = st.table.LookupOrInsert(unsafe.Pointer(&keyBuf[0]), nil)
			}
			payload := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(slot)+uintptr(pl.keySize))), pl.payload)
			if inserted {
				initGranules(payload, pl)
			}
			updateGranules(payload, pl, srcCols, row)

			if len(medianIUs) > 0 {
				k := string(keyBuf)
				for _, id := range medianIUs {
					st.median[id][k] = append(st.median[id][k], numericValue(id.Type, medCols[id], row))
				}
			}
		}
		return subop.Done, nil
	}
	// Fused mode backs the same per-thread pre-aggregation table with a
	// native inkfuse_ht instead of htable.Exclusive, lazily created in
	// this suboperator's thread_params slot on first use (spec §4.3
	// "Build"); the N-way merger above only ever walks Go-side
	// htable.Exclusive tables, and nothing in exec merges or reads back
	// the per-thread native tables a Fused-mode run fills. Median
	// descriptors have no native counterpart (they accumulate into a
	// Go-side map no generated C can reach) and are left for the
	// Interpreted/Hybrid paths; see DESIGN.md.
	keyStruct := &ir.Struct{Name: cIdent(a.Tag) + "_agg_key"}
	for i := range a.GroupBy {
		keyStruct.Fields = append(keyStruct.Fields, ir.StructField{Name: fmt.Sprintf("k%d", i), Type: ir.I8})
	}
	build.ExtraStructs = []*ir.Struct{keyStruct}
	build.Emit = func(b *ir.FunctionBuilder, rows *ir.VarRef) {
		htVar := b.Var(emitVar{build, "ht"}, ir.Ptr{Inner: ir.Void}, "agg_ht")
		b.Assign(htVar, subop.RawThreadSlot(b, build.Slot))
		_, thenG := b.BuildIf(&ir.BinOp{Op: ir.Eq, Left: htVar, Right: ir.ConstI(ir.I8, 0)})
		created := &ir.Invoke{
			Func:    "inkfuse_ht_create",
			Args:    []ir.Expr{ir.ConstI(ir.I8, int64(pl.keySize)), ir.ConstI(ir.I8, int64(pl.payload))},
			RetType: ir.Ptr{Inner: ir.Void},
		}
		b.Assign(htVar, created)
		subop.AssignSlot(b, subop.ThreadParamsParam(b), build.Slot, htVar)
		thenG.Close()

		keyVar := b.Var(emitVar{build, "key"}, keyStruct, "agg_key")
		for i, k := range a.GroupBy {
			src := b.Var(k, k.Type, k.DebugName())
			b.Assign(&ir.FieldAccess{Base: keyVar, Field: fmt.Sprintf("k%d", i)}, &ir.Cast{Target: ir.I8, Inner: src})
		}

		insertedVar := b.Var(emitVar{build, "inserted"}, ir.Bool, "agg_inserted")
		lookup := &ir.Invoke{
			Func: "inkfuse_ht_lookup_or_insert",
			Args: []ir.Expr{
				htVar,
				&ir.Unary{Op: ir.AddrOf, Inner: keyVar},
				&ir.Unary{Op: ir.AddrOf, Inner: insertedVar},
			},
			RetType: ir.Ptr{Inner: ir.UI1},
		}
		payloadVar := b.Var(emitVar{build, "payload"}, ir.Ptr{Inner: ir.UI1}, "agg_payload")
		b.Assign(payloadVar, lookup)

		_, initG := b.BuildIf(insertedVar)
		for _, g := range pl.granules {
			ptr := granulePtr(payloadVar, g.offset)
			init := ir.ConstF(ir.F8, 0)
			switch g.kind {
			case granuleMin:
				init = ir.ConstF(ir.F8, math.Inf(1))
			case granuleMax:
				init = ir.ConstF(ir.F8, math.Inf(-1))
			}
			b.Assign(subop.Load(ptr), init)
		}
		initG.Close()

		for _, g := range pl.granules {
			ptr := granulePtr(payloadVar, g.offset)
			switch g.kind {
			case granuleCount:
				b.Assign(subop.Load(ptr), &ir.BinOp{Op: ir.Add, Left: subop.Load(ptr), Right: ir.ConstF(ir.F8, 1)})
			case granuleSum:
				src := &ir.Cast{Target: ir.F8, Inner: b.Var(g.src, g.src.Type, g.src.DebugName())}
				b.Assign(subop.Load(ptr), &ir.BinOp{Op: ir.Add, Left: subop.Load(ptr), Right: src})
			case granuleMin:
				src := &ir.Cast{Target: ir.F8, Inner: b.Var(g.src, g.src.Type, g.src.DebugName())}
				_, g2 := b.BuildIf(&ir.BinOp{Op: ir.Lt, Left: src, Right: subop.Load(ptr)})
				b.Assign(subop.Load(ptr), src)
				g2.Close()
			case granuleMax:
				src := &ir.Cast{Target: ir.F8, Inner: b.Var(g.src, g.src.Type, g.src.DebugName())}
				_, g2 := b.BuildIf(&ir.BinOp{Op: ir.Gt, Left: src, Right: subop.Load(ptr)})
				b.Assign(subop.Load(ptr), src)
				g2.Close()
			}
		}
	}
	buildPipe.Add(build)

	// Aggregation merger: shard the per-thread tables N ways by key
	// hash and merge each shard in its own goroutine into its own
	// upfront-sized final htable.Exclusive (spec §4.3, §7). finalTables
	// and finalMedian are parallel, indexed by shard.
	var finalTables []*htable.Exclusive
	var finalMedian []map[*iu.IU]map[string][]float64
	var shardOffsets []int // shardOffsets[s] is the first virtual row index of shard s

	dag.SetTaskAfter(len(dag.Pipelines)-1, &subop.RuntimeTask{
		Name: a.Tag + "_aggregation_merge",
		Run: func(numThreads int) error {
			n := maxInt(1, numThreads)
			total := 0
			for _, st := range threadStates {
				total += st.table.Count()
			}
			finalTables = make([]*htable.Exclusive, n)
			finalMedian = make([]map[*iu.IU]map[string][]float64, n)
			perShardCap := maxInt(256, (total/n)*4+16) // generously oversized: a mid-merge resize is treated as an error, not retried
			for s := 0; s < n; s++ {
				finalTables[s] = htable.NewExclusive(sk, pl.payload, perShardCap)
				finalMedian[s] = make(map[*iu.IU]map[string][]float64, len(medianIUs))
				for _, id := range medianIUs {
					finalMedian[s][id] = make(map[string][]float64)
				}
			}

			errs := make([]error, n)
			var wg sync.WaitGroup
			for s := 0; s < n; s++ {
				s := s
				wg.Add(1)
				go func() {
					defer wg.Done()
					dst := finalTables[s]
					for _, st := range threadStates {
						st.table.Iterate(func(srcSlot unsafe.Pointer) {
							if errs[s] != nil {
								return
							}
							key := unsafe.Pointer(srcSlot)
							if sk.Hash(key)%uint64(n) != uint64(s) {
								return
							}
							dstSlot, inserted, needRestart := dst.LookupOrInsert(key, nil)
							if needRestart {
								errs[s] = fmt.Errorf("%w: aggregation shard %d", ierrors.ErrResizeDuringMerge, s)
								return
							}
							dstPayload := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(dstSlot)+uintptr(pl.keySize))), pl.payload)
							if inserted {
								initGranules(dstPayload, pl)
							}
							srcPayload := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(srcSlot)+uintptr(pl.keySize))), pl.payload)
							mergeGranules(dstPayload, srcPayload, pl)
						})
						for _, id := range medianIUs {
							for k, vals := range st.median[id] {
								if sk.Hash(unsafe.Pointer(&[]byte(k)[0]))%uint64(n) != uint64(s) {
									continue
								}
								finalMedian[s][id][k] = append(finalMedian[s][id][k], vals...)
							}
						}
					}
				}()
			}
			wg.Wait()
			for _, e := range errs {
				if e != nil {
					return e
				}
			}

			shardOffsets = make([]int, n+1)
			for s := 0; s < n; s++ {
				shardOffsets[s+1] = shardOffsets[s] + finalTables[s].Capacity()
			}
			return nil
		},
	})

	// read pipeline: a single virtual index space spans every shard's
	// table back to back; a hash-table source advances a shared cursor
	// over it, and the granule-compute suboperator resolves each
	// virtual index back to (shard, local index) to read the matching
	// final table and median accumulator.
	readPipe := dag.BuildNewPipeline()
	var cursor atomic.Int64
	slotIU := iu.Pseudo(a.Tag + "_slot")
	source := &subop.Suboperator{
		Kind:     subop.KindHtSource,
		IsSource: true,
		Provided: []*iu.IU{slotIU},
		Sources:  []*iu.IU{buildDoneIU},
		PickMorsel: func() (int, int, bool) {
			total := shardOffsets[len(shardOffsets)-1]
			for {
				cur := cursor.Load()
				if cur >= int64(total) {
					return 0, 0, false
				}
				next := cur + column.DefaultCapacity
				if next > int64(total) {
					next = int64(total)
				}
				// a morsel never straddles a shard boundary, so the
				// project suboperator can resolve a whole [start,end)
				// range against a single final table.
				for s := 1; s < len(shardOffsets); s++ {
					if int64(shardOffsets[s]) > cur && int64(shardOffsets[s]) < next {
						next = int64(shardOffsets[s])
						break
					}
				}
				if cursor.CompareAndSwap(cur, next) {
					return int(cur), int(next), true
				}
			}
		},
	}
	readPipe.Add(source)

	groupOutIUs := make([]*iu.IU, len(a.GroupBy))
	for i := range a.GroupBy {
		groupOutIUs[i] = iu.New(a.GroupBy[i].Type, a.Tag+".group")
	}
	outIUs := make([]*iu.IU, len(a.Descs))
	for i, d := range a.Descs {
		ty := ir.F8
		if d.Op == Count {
			ty = ir.I8
		}
		outIUs[i] = iu.New(ty, a.Tag+"."+d.OutputName)
	}

	provided := append(append([]*iu.IU{}, groupOutIUs...), outIUs...)
	project := &subop.Suboperator{
		Kind:     subop.KindGranuleCompute,
		Sources:  []*iu.IU{slotIU},
		Provided: provided,
		Interpret: func(rt *subop.Runtime, chunk *column.FuseChunk, start, end int) (subop.RunResult, error) {
			groupDst := make([]*column.Column, len(groupOutIUs))
			for i, id := range groupOutIUs {
				groupDst[i] = chunk.Provide(id)
			}
			outDst := make([]*column.Column, len(outIUs))
			for i, id := range outIUs {
				outDst[i] = chunk.Provide(id)
			}
			shard := shardFor(shardOffsets, start)
			for slotIdx := start; slotIdx < end; slotIdx++ {
				local := slotIdx - shardOffsets[shard]
				slot, filled := finalTables[shard].At(local)
				if !filled {
					continue
				}
				keyBuf := unsafe.Slice((*byte)(slot), pl.keySize)
				for c := range a.GroupBy {
					writeKeyColumn(groupDst[c], keyBuf, c)
				}
				payload := unsafe.Slice((*byte)(unsafe.Pointer(uintptr(slot)+uintptr(pl.keySize))), pl.payload)
				key := string(keyBuf)
				for i, d := range a.Descs {
					switch d.Op {
					case Count:
						outDst[i].SetInt64At(outDst[i].Len(), int64(readF64(payload, pl.countOff)))
						outDst[i].SetLen(outDst[i].Len() + 1)
					case Sum:
						writeAppendF64(outDst[i], readF64(payload, pl.sumOffFor[d.IU]))
					case Avg:
						cnt := readF64(payload, pl.countOff)
						sum := readF64(payload, pl.sumOffFor[d.IU])
						avg := 0.0
						if cnt != 0 {
							avg = sum / cnt
						}
						writeAppendF64(outDst[i], avg)
					case Min:
						writeAppendF64(outDst[i], readF64(payload, pl.minOffFor[d.IU]))
					case Max:
						writeAppendF64(outDst[i], readF64(payload, pl.maxOffFor[d.IU]))
					case Median:
						writeAppendF64(outDst[i], median(finalMedian[shard][d.IU][key]))
					}
				}
			}
			return subop.Done, nil
		},
	}
	readPipe.Add(project)

	return provided, nil
}

func writeKeyColumn(dst *column.Column, keyBuf []byte, col int) {
	var bits uint64
	for b := 0; b < 8; b++ {
		bits |= uint64(keyBuf[col*8+b]) << (8 * b)
	}
	i := dst.Len()
	if ir.IsFloat(dst.Type()) {
		dst.SetFloat64At(i, math.Float64frombits(bits))
	} else if dst.Type().Size() == 4 {
		dst.SetInt32At(i, int32(int64(bits)))
	} else {
		dst.SetUint64At(i, bits)
	}
	dst.SetLen(i + 1)
}

func writeAppendF64(dst *column.Column, v float64) {
	i := dst.Len()
	dst.SetFloat64At(i, v)
	dst.SetLen(i + 1)
}

// shardFor returns the shard index whose virtual range contains idx,
// given shardOffsets[s] is the first virtual index of shard s.
func shardFor(shardOffsets []int, idx int) int {
	for s := len(shardOffsets) - 2; s >= 0; s-- {
		if shardOffsets[s] <= idx {
			return s
		}
	}
	return 0
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	cp := append([]float64(nil), vals...)
	sort.Float64s(cp)
	mid := len(cp) / 2
	if len(cp)%2 == 1 {
		return cp[mid]
	}
	return (cp[mid-1] + cp[mid]) / 2
}
