package codegen

/*
#cgo LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdint.h>
#include <stdlib.h>

// PipelineFn is the shape of every generated pipeline entry point
// (spec §4.1, §6): a status byte, given the three-slot ABI prefix.
typedef uint8_t (*inkfuse_pipeline_fn)(void**, void**, void*);

static inkfuse_pipeline_fn inkfuse_cast_sym(void *sym) {
    return (inkfuse_pipeline_fn)sym;
}

static uint8_t inkfuse_call(inkfuse_pipeline_fn fn, void **global_state, void **thread_params, void *resumption_state) {
    return fn(global_state, thread_params, resumption_state);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/inkfuse/inkfuse/ierrors"
)

// Handle is a loaded shared object, kept open for the lifetime of the
// process (fragments and fused pipelines are never unloaded once
// resolved, matching the fragment cache's "immutable afterward"
// contract in spec §6).
type Handle struct {
	handle unsafe.Pointer
	path   string
}

// Load dlopen()s the artifact's shared object. The handle remains
// open until the process exits; InkFuse never dlclose()s a pipeline
// or fragment library once loaded.
func Load(a *Artifact) (*Handle, error) {
	cpath := C.CString(a.Path)
	defer C.free(unsafe.Pointer(cpath))

	h := C.dlopen(cpath, C.RTLD_NOW|C.RTLD_LOCAL)
	if h == nil {
		return nil, fmt.Errorf("codegen: dlopen %s: %s", a.Path, C.GoString(C.dlerror()))
	}
	return &Handle{handle: h, path: a.Path}, nil
}

// PipelineFn is the resolved, callable form of a generated pipeline
// entry point.
type PipelineFn struct {
	sym C.inkfuse_pipeline_fn
}

// Call invokes the resolved function with the three-slot ABI
// parameters, returning the morsel status byte (0 = end of input,
// non-zero = more morsels).
func (f PipelineFn) Call(globalState, threadParams []unsafe.Pointer, resumptionState unsafe.Pointer) uint8 {
	var gsp, tpp *unsafe.Pointer
	if len(globalState) > 0 {
		gsp = &globalState[0]
	}
	if len(threadParams) > 0 {
		tpp = &threadParams[0]
	}
	return uint8(C.inkfuse_call(f.sym, gsp, tpp, resumptionState))
}

// Resolve looks up symbol in h, returning an *ierrors.LinkError
// (wrapping ierrors.ErrLink) if it is absent.
func (h *Handle) Resolve(symbol string) (PipelineFn, error) {
	csym := C.CString(symbol)
	defer C.free(unsafe.Pointer(csym))

	C.dlerror() // clear any existing error
	sym := C.dlsym(h.handle, csym)
	if errstr := C.dlerror(); errstr != nil {
		return PipelineFn{}, ierrors.Link(symbol)
	}
	return PipelineFn{sym: C.inkfuse_cast_sym(sym)}, nil
}
