package relalg

import (
	"sync/atomic"
	"unsafe"

	"github.com/inkfuse/inkfuse/column"
	"github.com/inkfuse/inkfuse/ierrors"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/iu"
	"github.com/inkfuse/inkfuse/subop"
)

// ScanMorselSize is the default row span a table-scan driver hands to
// one worker per PickMorsel call (spec §4.3 "loop source picking
// morsels of up to 8192 rows").
const ScanMorselSize = 8192

// TableScan decays into a new pipeline: one tscan driver (a source
// that advances a shared [start, end) cursor) followed by one
// indexed-IU-provider suboperator per requested column, each reading
// `column_base[row_idx]` — implemented here as a zero-copy swap of the
// fuse-chunk column's backing storage onto the relation column's
// backing storage for the picked row range (spec §4.3).
type TableScan struct {
	Relation    *Relation
	ColumnNames []string
	Tag         string
}

// Decay builds the scan pipeline and returns the IUs produced for
// each requested column, in the same order as ColumnNames.
func (t *TableScan) Decay(dag *subop.PipelineDAG) ([]*iu.IU, error) {
	p := dag.BuildNewPipeline()

	var cursor atomic.Uint64
	total := uint64(t.Relation.NumRows)

	driverIU := iu.Pseudo(t.Tag + "_scan_driver")
	driver := &subop.Suboperator{
		Kind:     subop.KindTableScanDriver,
		IsSource: true,
		Provided: []*iu.IU{driverIU},
		PickMorsel: func() (int, int, bool) {
			for {
				cur := cursor.Load()
				if cur >= total {
					return 0, 0, false
				}
				next := cur + ScanMorselSize
				if next > total {
					next = total
				}
				if cursor.CompareAndSwap(cur, next) {
					return int(cur), int(next), true
				}
			}
		},
	}
	// The driver's Emit contributes nothing to the fused function.
	// FusedRunner.Prepare does not wrap the pipeline in a row loop
	// either (nothing calls subop.EmitBounds), so the fused path does
	// not walk [start, end).
	driver.Emit = func(b *ir.FunctionBuilder, rows *ir.VarRef) {}
	p.Add(driver)

	ids := make([]*iu.IU, len(t.ColumnNames))
	for i, name := range t.ColumnNames {
		name := name
		ty, isString := t.columnType(name)
		id := iu.New(ty, t.Tag+"."+name)
		ids[i] = id

		sub := &subop.Suboperator{
			Kind:           subop.KindIndexedIUProvider,
			Sources:        []*iu.IU{driverIU},
			Provided:       []*iu.IU{id},
			DiscreteParams: []string{name, ty.Id()},
			Interpret: func(rt *subop.Runtime, chunk *column.FuseChunk, start, end int) (subop.RunResult, error) {
				if isString {
					return subop.Done, ierrors.Unsupported("zero-copy scan of variable-length string columns")
				}
				relCol, ok := t.Relation.Columns[name]
				if !ok {
					return subop.Done, ierrors.Internal("tablescan: unknown column %q", name)
				}
				dst := chunk.Provide(id)
				// alias rows [0, end) so downstream primitives can index
				// the morsel's rows by their absolute positions [start, end).
				dst.SwapData(relCol.DataSlice(0, end), end)
				return subop.Done, nil
			},
			// GlobalState exposes the relation column's base pointer once
			// per query; in fused mode a row read is then just pointer
			// arithmetic off this slot (column_base[row_idx]), so unlike
			// the interpreted path above this works uniformly for both
			// fixed-width and string columns (both store fixed-width
			// values inline, strings as arena pointers).
			GlobalState: func() unsafe.Pointer {
				if isString {
					return t.Relation.Strings[name].PtrColumn().Raw(0)
				}
				return t.Relation.Columns[name].Raw(0)
			},
		}
		sub.Emit = func(b *ir.FunctionBuilder, rows *ir.VarRef) {
			base := subop.GlobalSlot(b, sub.Slot, ty)
			out := b.Var(id, ty, id.DebugName())
			b.Assign(out, subop.Load(subop.RowPtr(base, rows)))
		}
		p.Add(sub)
	}
	return ids, nil
}

func (t *TableScan) columnType(name string) (ty ir.Type, isString bool) {
	if c, ok := t.Relation.Columns[name]; ok {
		return c.Type(), false
	}
	if _, ok := t.Relation.Strings[name]; ok {
		// string columns are exposed as a Ptr(Char) IU; the producing
		// suboperator loads the pointer, not the fixed-width payload.
		return ir.Ptr{Inner: ir.Char}, true
	}
	panic("relalg: tablescan: unknown column " + name)
}
