package exec

import (
	"github.com/inkfuse/inkfuse/column"
	"github.com/inkfuse/inkfuse/runtime"
	"github.com/inkfuse/inkfuse/subop"
)

// ThreadContext is one worker thread's private state while running a
// pipeline: its columnar batch, its bump-pointer arena, and the
// per-suboperator state map populated by setUpState before the first
// morsel (spec §4.4 "per-thread execution context", §3 "MemoryRegion").
type ThreadContext struct {
	Idx   int
	Arena *runtime.MemoryRegion
	Chunk *column.FuseChunk
	RT    *subop.Runtime
}

func newThreadContext(idx, chunkCapacity, slabSize int) *ThreadContext {
	return &ThreadContext{
		Idx:   idx,
		Arena: runtime.NewMemoryRegion(slabSize),
		Chunk: column.NewFuseChunk(chunkCapacity),
		RT:    &subop.Runtime{State: make(map[*subop.Suboperator]any)},
	}
}

// setUpState calls every suboperator's SetupState hook in pipe once
// for this thread and installs the result into the thread's Runtime
// (spec §4.4 "setUpState walks the suboperators and asks each to
// populate its per-thread state structures").
func setUpState(tc *ThreadContext, pipe *subop.Pipeline) {
	for _, s := range pipe.Subs {
		if s.SetupState != nil {
			tc.RT.State[s] = s.SetupState()
		}
	}
}
