package exec

import (
	"sync/atomic"

	"github.com/inkfuse/inkfuse/column"
	"github.com/inkfuse/inkfuse/iu"
	"github.com/inkfuse/inkfuse/subop"
)

// countingPipeline builds a minimal one-pipeline DAG: a source that
// hands out [start,end) morsels over totalRows in chunks of morselSize,
// and a sink whose Interpret adds (end-start) to rowsSeen every time
// it runs. No suboperator in it carries an Emit, so FusedRunner.Prepare
// always reports ierrors.ErrUnsupported for it — exercising the hybrid
// arbiter's interpreted-only fallback without needing a real compiler.
func countingPipeline(totalRows, morselSize int, rowsSeen *atomic.Int64) *subop.PipelineDAG {
	dag := subop.NewPipelineDAG()
	p := dag.BuildNewPipeline()

	var cursor atomic.Uint64
	total := uint64(totalRows)
	driverIU := iu.Pseudo("driver")
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
				next := cur + uint64(morselSize)
				if next > total {
					next = total
				}
				if cursor.CompareAndSwap(cur, next) {
					return int(cur), int(next), true
				}
			}
		},
	}
	p.Add(driver)

	sink := &subop.Suboperator{
		Kind:     subop.KindFuseChunkSink,
		Sources:  []*iu.IU{driverIU},
		IsSink:   true,
		Provided: nil,
		Interpret: func(rt *subop.Runtime, chunk *column.FuseChunk, start, end int) (subop.RunResult, error) {
			rowsSeen.Add(int64(end - start))
			return subop.Done, nil
		},
	}
	p.Add(sink)

	return dag
}
