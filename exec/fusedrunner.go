package exec

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/google/uuid"

	"github.com/inkfuse/inkfuse/codegen"
	"github.com/inkfuse/inkfuse/ierrors"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/procjob"
	"github.com/inkfuse/inkfuse/subop"
)

// FusedRunner compiles an entire repiped pipeline into one C function
// and repeatedly invokes it, one morsel per call (spec §4.4 "Fused
// runner"). Preparing the function is the expensive step, so Prepare
// launches the external compiler as a procjob.InterruptableJob the
// caller can wait on or cancel.
type FusedRunner struct {
	Compiler codegen.CompilerOptions
}

func (r *FusedRunner) binary() string {
	if r.Compiler.Binary == "" {
		return "cc"
	}
	return r.Compiler.Binary
}

func (r *FusedRunner) tempDir() string {
	if r.Compiler.TempDir == "" {
		return os.TempDir()
	}
	return r.Compiler.TempDir
}

// PreparedPipeline is the resolved, callable fused form of a pipeline,
// returned once a FusedRunner.Prepare job completes successfully.
type PreparedPipeline struct {
	handle *codegen.Handle
	fn     codegen.PipelineFn
}

// Prepare emits IR for every suboperator in pipe via its Emit hook and
// starts the external C compiler on the result as a background job.
// Returns ierrors.ErrUnsupported immediately, with no job started, if
// any suboperator in pipe carries no Emit implementation — this
// engine only gave Emit bodies to a subset of suboperators (see
// DESIGN.md); callers should fall back to InterpretedRunner in that
// case rather than treat it as a hard failure.
//
// job.Wait() blocks for compiler completion; once it reports a nil
// Err, call Resolve with the returned soPath to load the artifact and
// bind symbol.
func (r *FusedRunner) Prepare(symbol string, pipe *subop.Pipeline) (job *procjob.InterruptableJob, soPath string, err error) {
	for _, s := range pipe.Subs {
		if s.Emit == nil {
			return nil, "", ierrors.Unsupported(fmt.Sprintf("suboperator %s has no fused-mode implementation", s.Kind))
		}
	}

	sig := ir.Signature{Ret: ir.UI1}
	b := ir.NewFunctionBuilder(symbol, sig)
	rowsDecl := b.Declare("rows", ir.I8)
	rows := &ir.VarRef{Decl: rowsDecl}
	for _, s := range pipe.Subs {
		s.Emit(b, rows)
	}
	b.Return(ir.ConstI(ir.UI1, 0))
	fn := b.Build()

	source := codegen.Lower(&ir.Program{Functions: []*ir.Function{fn}})

	dir := filepath.Join(r.tempDir(), "inkfuse-fused-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("exec: creating fused-compile dir: %w", err)
	}
	if err := codegen.WriteRuntimeHeader(dir); err != nil {
		return nil, "", err
	}
	srcPath := filepath.Join(dir, "pipeline.c")
	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		return nil, "", fmt.Errorf("exec: writing fused source: %w", err)
	}
	soPath = filepath.Join(dir, "pipeline.so")

	args := append([]string{"-O3", "-fPIC", "-shared", "-o", soPath, srcPath}, r.Compiler.ExtraFlags...)
	j, err := procjob.Start(r.binary(), args, dir)
	if err != nil {
		return nil, "", err
	}
	return j, soPath, nil
}

// Resolve loads the compiled shared object at soPath and binds symbol,
// to be called once the Prepare job's Wait() reports success.
func (r *FusedRunner) Resolve(soPath, symbol string) (*PreparedPipeline, error) {
	handle, err := codegen.Load(&codegen.Artifact{Path: soPath})
	if err != nil {
		return nil, err
	}
	fn, err := handle.Resolve(symbol)
	if err != nil {
		return nil, err
	}
	return &PreparedPipeline{handle: handle, fn: fn}, nil
}

// Run executes the prepared pipeline to completion across numThreads
// workers, calling the compiled entry point once per morsel picked
// from driver (spec §4.4 "Each runMorsel call invokes the compiled
// function with the pipeline's state array; the morsel is picked by
// the source sub-operator"). The picked bounds are not handed to the
// compiled function: it is called with a nil resumption_state.
// globalState is shared across every worker, threadParams builds each
// worker's own per-thread scratch slot array.
func (p *PreparedPipeline) Run(numThreads int, driver *subop.Suboperator, globalState []unsafe.Pointer, threadParams func(threadIdx int) []unsafe.Pointer) error {
	return runWorkers(numThreads, func(idx int) error {
		var tp []unsafe.Pointer
		if threadParams != nil {
			tp = threadParams(idx)
		}
		for {
			_, _, ok := driver.PickMorsel()
			if !ok {
				return nil
			}
			p.fn.Call(globalState, tp, nil)
		}
	})
}
