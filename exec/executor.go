// Package exec is the morsel-driven, multi-threaded execution engine:
// per-pipeline executor, fused runner, interpreted runner, hybrid
// arbitration, morsel scheduling and thread pooling (spec §4.4).
package exec

import (
	"fmt"

	"github.com/inkfuse/inkfuse/codegen"
	"github.com/inkfuse/inkfuse/config"
	"github.com/inkfuse/inkfuse/metrics"
	"github.com/inkfuse/inkfuse/subop"
)

// Executor runs a whole PipelineDAG to completion: each pipeline
// through a HybridRunner, in order, with any attached RuntimeTask run
// in between (spec §3 "an optional runtime task may run"; §4.4
// "Pipeline executor. Owns the pipeline, the execution context, and a
// mode tag in {Fused, Interpreted, Hybrid, ROF}").
type Executor struct {
	Config  config.Engine
	Metrics metrics.Recorder
}

// Run executes every pipeline in dag in order. Pipeline i's label and
// fused-mode symbol name are derived from its index; callers that need
// stable names across repeated runs of the same query (for the
// fragment cache) should use Run via a fixed dag built once.
func (e *Executor) Run(dag *subop.PipelineDAG) error {
	if err := dag.Validate(); err != nil {
		return fmt.Errorf("exec: %w", err)
	}

	interp := &InterpretedRunner{
		NumThreads:    e.Config.NumThreads,
		ChunkCapacity: e.Config.MorselSize,
		ArenaSlabSize: e.Config.ArenaSlabSize,
		Metrics:       e.Metrics,
	}
	fused := &FusedRunner{Compiler: codegen.CompilerOptions{
		Binary:     e.Config.CompilerBinary,
		ExtraFlags: e.Config.CompilerFlags,
		TempDir:    e.Config.FragmentCacheDir,
	}}
	hybrid := &HybridRunner{
		Interp:           interp,
		Fused:            fused,
		ForceInterpreted: e.Config.ForceInterpreted,
		ForceFused:       e.Config.ForceFused,
	}

	for i, pipe := range dag.Pipelines {
		label := fmt.Sprintf("pipeline-%d", i)
		symbol := fmt.Sprintf("inkfuse_pipeline_%d", i)
		if err := hybrid.Run(pipe, label, symbol); err != nil {
			return fmt.Errorf("exec: %s: %w", label, err)
		}
		if task := dag.TasksAfter[i]; task != nil {
			if err := task.Run(interp.numThreads()); err != nil {
				return fmt.Errorf("exec: runtime task %s: %w", task.Name, err)
			}
		}
	}
	return nil
}
