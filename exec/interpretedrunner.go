package exec

import (
	"github.com/inkfuse/inkfuse/metrics"
	"github.com/inkfuse/inkfuse/subop"
)

// InterpretedRunner drives one pipeline by invoking every
// suboperator's Interpret closure morsel by morsel, entirely in Go
// (spec §4.4 "Interpreted runner... the pipeline becomes a sequence of
// fragment invocations over the fuse-chunk"). The "pre-compiled
// fragment" each primitive is documented as looking up is, in this
// engine, simply its own Interpret closure; there is no second,
// separately-compiled interpreted fragment library.
type InterpretedRunner struct {
	NumThreads    int
	ChunkCapacity int
	ArenaSlabSize int
	Metrics       metrics.Recorder
}

func (r *InterpretedRunner) numThreads() int {
	if r.NumThreads > 0 {
		return r.NumThreads
	}
	return 1
}

func (r *InterpretedRunner) metrics() metrics.Recorder {
	if r.Metrics != nil {
		return r.Metrics
	}
	return metrics.Noop{}
}

// Run executes pipe to completion across r.NumThreads workers. label
// identifies the pipeline for metrics only.
func (r *InterpretedRunner) Run(pipe *subop.Pipeline, label string) error {
	sources := pipe.Sources()
	if len(sources) == 0 {
		return nil
	}
	driver := sources[0]
	m := r.metrics()

	return runWorkers(r.numThreads(), func(idx int) error {
		tc := newThreadContext(idx, r.ChunkCapacity, r.ArenaSlabSize)
		setUpState(tc, pipe)
		for {
			start, end, ok := driver.PickMorsel()
			if !ok {
				return nil
			}
			tc.Chunk.Reset()
			if err := runMorsel(tc.RT, tc.Chunk, pipe, start, end); err != nil {
				return err
			}
			m.MorselProcessed(label)
		}
	})
}
