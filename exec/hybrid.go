package exec

import (
	"log"
	"unsafe"

	"github.com/inkfuse/inkfuse/procjob"
	"github.com/inkfuse/inkfuse/subop"
)

// HybridRunner arbitrates between InterpretedRunner and FusedRunner for
// one pipeline (spec §4.4 "Hybrid arbitration"): the interpreter starts
// immediately while the fused runner compiles in the background; if the
// compile wins, remaining morsels move to the fused runner, and if the
// interpreter finishes first the compile job is interrupted.
type HybridRunner struct {
	Interp *InterpretedRunner
	Fused  *FusedRunner
	Logger *log.Logger

	// GlobalState and ThreadParams feed the fused ABI's first two
	// slots, if and when a compile wins the race; nil is fine for
	// pipelines with no global/per-thread state to pass.
	GlobalState  []unsafe.Pointer
	ThreadParams func(threadIdx int) []unsafe.Pointer

	// ForceInterpreted and ForceFused pin the pipeline to one runner,
	// bypassing arbitration entirely (spec SPEC_FULL.md §A.1 "hybrid-
	// mode ... overrides used by tests").
	ForceInterpreted bool
	ForceFused       bool
}

func (h *HybridRunner) logf(format string, args ...any) {
	if h.Logger != nil {
		h.Logger.Printf(format, args...)
	}
}

// Run executes pipe under pipeline. symbol names the fused entry
// point to compile/resolve if hybrid arbitration (or ForceFused)
// reaches for the compiler.
func (h *HybridRunner) Run(pipe *subop.Pipeline, label, symbol string) error {
	sources := pipe.Sources()
	if len(sources) == 0 {
		return nil
	}
	driver := sources[0]

	if h.ForceInterpreted {
		return h.Interp.Run(pipe, label)
	}
	if h.ForceFused {
		job, soPath, err := h.Fused.Prepare(symbol, pipe)
		if err != nil {
			return err
		}
		res := job.Wait()
		if res.Err != nil {
			return res.Err
		}
		prepared, err := h.Fused.Resolve(soPath, symbol)
		if err != nil {
			return err
		}
		return prepared.Run(h.Interp.numThreads(), driver, h.GlobalState, h.ThreadParams)
	}

	interpDone := make(chan error, 1)
	go func() { interpDone <- h.Interp.Run(pipe, label) }()

	job, soPath, err := h.Fused.Prepare(symbol, pipe)
	if err != nil {
		h.logf("hybrid: %s: no fused implementation, staying interpreted: %v", label, err)
		return <-interpDone
	}

	jobDone := make(chan procjob.Result, 1)
	go func() { jobDone <- job.Wait() }()

	select {
	case res := <-jobDone:
		if res.Err != nil {
			h.logf("hybrid: %s: compile failed, continuing interpreted: %v", label, res.Err)
			return <-interpDone
		}
		select {
		case ierr := <-interpDone:
			// pipeline already finished in the interpreter; the
			// compiled artifact arrived too late to matter.
			return ierr
		default:
		}
		prepared, err := h.Fused.Resolve(soPath, symbol)
		if err != nil {
			h.logf("hybrid: %s: resolving compiled fragment failed, continuing interpreted: %v", label, err)
			return <-interpDone
		}
		fusedDone := make(chan error, 1)
		go func() {
			fusedDone <- prepared.Run(h.Interp.numThreads(), driver, h.GlobalState, h.ThreadParams)
		}()
		ierr := <-interpDone
		ferr := <-fusedDone
		if ierr != nil {
			return ierr
		}
		return ferr
	case ierr := <-interpDone:
		job.Interrupt()
		return ierr
	}
}
