// Package fragcache implements the pre-compiled fragment cache (spec
// §6 "Pre-compiled fragment cache"): at process startup, every valid
// discrete-parameter combination of every fused primitive is compiled
// once into a single shared object, and the fused runner resolves a
// suboperator's generated function by its identifier string rather
// than compiling per-query.
package fragcache

import (
	"fmt"
	"sync"

	"github.com/inkfuse/inkfuse/codegen"
	"github.com/inkfuse/inkfuse/ir"
)

// Entry is one fragment to be compiled into the shared cache: a
// suboperator identifier string (spec §3 "deterministic identifier
// string") paired with the IR function implementing it. Build ignores
// the function's own name and compiles it under mangle(Identifier):
// "inkfuse_frag_" followed by Identifier with every character outside
// [A-Za-z0-9] ('/' from Suboperator.Identifier among them) mapped to
// '_', since C symbol names cannot contain '/'.
type Entry struct {
	Identifier string
	Function   *ir.Function
}

// Cache is the process-wide fragment cache: initialize-once via
// Build, after which the identifier-to-symbol map never changes.
// Lookup resolves symbols lazily into a cache guarded by an RWMutex,
// so concurrent Lookup calls from every worker thread are safe.
type Cache struct {
	handle  *codegen.Handle
	symbols map[string]string // identifier -> mangled C symbol

	mu       sync.RWMutex
	resolved map[string]codegen.PipelineFn
}

// Build compiles every entry into a single shared object and opens it.
// Returns the populated Cache, or on failure an error wrapping
// codegen.Compile's error (an *ierrors.CompilerError for a compiler
// failure) or codegen.Load's error. Symbols are not resolved here, so
// a missing symbol only shows up as a failed Lookup. Intended to run once at
// process startup, before any query executes.
func Build(entries []Entry, opts codegen.CompilerOptions) (*Cache, error) {
	prog := &ir.Program{}
	symbols := make(map[string]string, len(entries))
	for _, e := range entries {
		sym := mangle(e.Identifier)
		symbols[e.Identifier] = sym
		fn := *e.Function
		fn.Name = sym
		prog.Functions = append(prog.Functions, &fn)
	}

	source := codegen.Lower(prog)
	artifact, err := codegen.Compile(source, opts)
	if err != nil {
		return nil, fmt.Errorf("fragcache: compiling %d fragments: %w", len(entries), err)
	}
	handle, err := codegen.Load(artifact)
	if err != nil {
		return nil, fmt.Errorf("fragcache: loading compiled fragments: %w", err)
	}

	return &Cache{
		handle:   handle,
		symbols:  symbols,
		resolved: make(map[string]codegen.PipelineFn),
	}, nil
}

// Lookup resolves identifier to its compiled entry point, resolving
// (and caching) the dlsym handle on first use. ok is false if
// identifier was never registered with Build.
func (c *Cache) Lookup(identifier string) (codegen.PipelineFn, bool) {
	c.mu.RLock()
	if fn, ok := c.resolved[identifier]; ok {
		c.mu.RUnlock()
		return fn, true
	}
	c.mu.RUnlock()

	sym, ok := c.symbols[identifier]
	if !ok {
		return codegen.PipelineFn{}, false
	}
	fn, err := c.handle.Resolve(sym)
	if err != nil {
		return codegen.PipelineFn{}, false
	}

	c.mu.Lock()
	c.resolved[identifier] = fn
	c.mu.Unlock()
	return fn, true
}

// mangle turns a suboperator identifier ("expression/Add/I4/I4/I4")
// into a valid C symbol name.
func mangle(id string) string {
	b := make([]byte, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			b[i] = c
		default:
			b[i] = '_'
		}
	}
	return "inkfuse_frag_" + string(b)
}
