package exec

import (
	"sync/atomic"
	"testing"

	"github.com/inkfuse/inkfuse/codegen"
)

func TestHybridRunnerForceInterpretedNeverTouchesFused(t *testing.T) {
	var rowsSeen atomic.Int64
	dag := countingPipeline(500, 64, &rowsSeen)

	h := &HybridRunner{
		Interp:           &InterpretedRunner{NumThreads: 2, ChunkCapacity: 64, ArenaSlabSize: 4096},
		Fused:            nil, // would panic if ForceInterpreted ever reached for it
		ForceInterpreted: true,
	}
	if err := h.Run(dag.Pipelines[0], "p0", "sym0"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rowsSeen.Load() != 500 {
		t.Errorf("rowsSeen=%d, want 500", rowsSeen.Load())
	}
}

func TestHybridRunnerFallsBackWhenNoFusedImplementation(t *testing.T) {
	var rowsSeen atomic.Int64
	// No suboperator in countingPipeline carries an Emit hook, so
	// FusedRunner.Prepare reports ierrors.ErrUnsupported immediately
	// and arbitration must stay on the interpreted result.
	dag := countingPipeline(500, 64, &rowsSeen)

	h := &HybridRunner{
		Interp: &InterpretedRunner{NumThreads: 2, ChunkCapacity: 64, ArenaSlabSize: 4096},
		Fused:  &FusedRunner{Compiler: codegen.CompilerOptions{}},
	}
	if err := h.Run(dag.Pipelines[0], "p0", "sym0"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rowsSeen.Load() != 500 {
		t.Errorf("rowsSeen=%d, want 500", rowsSeen.Load())
	}
}

func TestHybridRunnerReturnsNilForSourcelessPipeline(t *testing.T) {
	var rowsSeen atomic.Int64
	dag := countingPipeline(0, 64, &rowsSeen)
	empty := dag.Pipelines[0]
	empty.Subs = nil

	h := &HybridRunner{
		Interp: &InterpretedRunner{NumThreads: 1},
		Fused:  &FusedRunner{},
	}
	if err := h.Run(empty, "p0", "sym0"); err != nil {
		t.Fatalf("Run: %v", err)
	}
}
