// Package subop implements the suboperator DAG: the fine-grained
// dataflow IR that relational operators decay into (spec §3, §4.2,
// §9 "deep inheritance"). Rather than a virtual base-class hierarchy,
// every suboperator is one tagged Kind plus shared plain-data
// bookkeeping (sources, provided IUs, link discipline); per-kind
// behavior for the interpreted backend lives in the Interpret
// function attached at construction, for the fused backend in Emit.
package subop

import (
	"fmt"
	"unsafe"

	"github.com/inkfuse/inkfuse/column"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/iu"
)

// Kind names a suboperator's class, independent of its discrete type
// parameters; it is the stable part of the identifier string (spec
// §3 "deterministic identifier string").
type Kind string

const (
	KindTableScanDriver   Kind = "tscan_driver"
	KindIndexedIUProvider Kind = "indexed_iu"
	KindExpression        Kind = "expression"
	KindRuntimeExpression Kind = "runtime_expression"
	KindFilterScope       Kind = "filter_scope"
	KindFilterLogic       Kind = "filter_logic"
	KindHashKey           Kind = "hash_key"
	KindMaterialize       Kind = "materialize"
	KindHtLookupOrInsert  Kind = "ht_lookup_or_insert"
	KindHtInsert          Kind = "ht_insert"
	KindHtLookup          Kind = "ht_lookup"
	KindHtSource          Kind = "ht_source"
	KindTupleReaderSource Kind = "tuple_reader_source"
	KindFuseChunkSource   Kind = "fuse_chunk_source"
	KindFuseChunkSink     Kind = "fuse_chunk_sink"
	KindGranuleUpdate     Kind = "granule_update"
	KindGranuleCompute    Kind = "granule_compute"
	KindPrint             Kind = "print"
)

// ExecMode distinguishes the two code paths a Suboperator's behavior
// hooks are invoked from.
type ExecMode uint8

const (
	ModeInterpreted ExecMode = iota
	ModeFused
)

// RunResult is the interpreted primitive's outcome (spec §9 "restart
// flag back-channel": modeled as a return value rather than a side
// channel read back out of the arena).
type RunResult uint8

const (
	Done RunResult = iota
	Retry
)

// Suboperator is one node of the DAG: an ordered list of source IUs it
// reads, an ordered list of IUs it produces, link discipline, and the
// source/sink booleans (spec §3).
type Suboperator struct {
	Kind Kind

	Sources  []*iu.IU
	Provided []*iu.IU

	// IncomingStrong forces the consumer's code into this producer's
	// scope; OutgoingStrong forces the consumer into the producer's
	// scope regardless of who the consumer is (spec §3 link discipline).
	IncomingStrong bool
	OutgoingStrong bool

	IsSource bool
	IsSink   bool

	// DiscreteParams is the finite-design-space parameter tuple (types,
	// opcodes) this instance was built with; together with Kind it
	// forms the fragment-cache identifier (spec §3, §7).
	DiscreteParams []string

	// RuntimeParams carries query-specific values (offsets, constants)
	// that in fused mode are baked into generated IR as constants and
	// in interpreted mode are read from a per-suboperator state struct
	// (spec §3 "two orthogonal parameter vectors").
	RuntimeParams any

	// Interpret executes one morsel's worth of work against chunk,
	// over the row range [start, end). Nil for pure scoping nodes that
	// only exist to carry a strong link (e.g. a bare FilterScope with
	// no per-row logic of its own beyond opening the `if`).
	Interpret func(rt *Runtime, chunk *column.FuseChunk, start, end int) (RunResult, error)

	// Emit appends this suboperator's IR to a whole-pipeline function
	// under construction by the fused runner (spec §4.4 "fused
	// runner... emits IR for the whole repiped pipeline").
	Emit func(b *ir.FunctionBuilder, rows *ir.VarRef)

	// PickMorsel claims the next unit of work for an isSource
	// suboperator: a table-scan driver advances a shared [start, end)
	// cursor by atomic fetch-add, a hash-table source advances a
	// shared slot index, a tuple-materializer reader pops a chunk from
	// a ReadHandle (spec §4.4 "Morsel picking"). Safe for concurrent
	// use by every worker thread sharing this suboperator instance.
	// ok is false once the source is exhausted.
	PickMorsel func() (start, end int, ok bool)

	// SetupState builds this suboperator's deferred per-thread state
	// object (spec §5 "deferred state initialization": a thread-local
	// hash table or tuple materializer constructed once worker count
	// is known). Called once per worker thread before the pipeline
	// runs; the result is installed into that thread's Runtime.State
	// under this suboperator, retrievable with StateFor. Nil for
	// suboperators with no thread-local state of their own.
	SetupState func() any

	// GlobalState returns the one raw pointer this suboperator needs
	// shared, read-only, across every worker thread once per query —
	// e.g. a table scan's relation column base pointer (spec §4.1
	// "global_state"). Nil for suboperators needing no global slot.
	GlobalState func() unsafe.Pointer

	// Slot is this suboperator's index into global_state/thread_params;
	// Emit closures read it via their own *Suboperator (by capturing
	// the variable holding themselves). Nothing in this engine assigns
	// it, FusedRunner.Prepare included, so every Emit reads slot 0.
	Slot int

	// ExtraStructs are struct types this suboperator's Emit references
	// (e.g. a packed group-by key or an output row layout) beyond the
	// runtime library's fixed BoundsStruct/VecStruct/HtStruct.
	// FusedRunner.Prepare does not collect these into the generated
	// ir.Program's Structs list.
	ExtraStructs []*ir.Struct
}

// Runtime is the set of collaborators an interpreted primitive may
// need beyond the fuse chunk itself: the thread's arena and whatever
// per-suboperator state (hash tables, materializers) was installed by
// setUpState. It is intentionally a grab-bag rather than a typed
// struct per suboperator, mirroring the state-struct-by-pointer
// indirection the fused ABI uses (spec §4.1 `void** global_state`).
type Runtime struct {
	State map[*Suboperator]any
}

// StateFor returns the per-thread state object previously installed
// for sub in rt (each worker thread has its own Runtime), panicking
// with a descriptive message if setUpState never populated it — this
// always indicates an engine bug, not a data error.
func StateFor[T any](rt *Runtime, sub *Suboperator) T {
	v, ok := rt.State[sub]
	if !ok {
		panic(fmt.Sprintf("subop: no state installed for %s", sub.Kind))
	}
	t, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("subop: state for %s has wrong type", sub.Kind))
	}
	return t
}

// Identifier derives the deterministic fragment-cache key for this
// suboperator: its Kind plus its discrete parameter tuple, joined
// stably (spec §3, §6 "Pre-compiled fragment cache").
func (s *Suboperator) Identifier() string {
	id := string(s.Kind)
	for _, p := range s.DiscreteParams {
		id += "/" + p
	}
	return id
}

// ProducesVoidOnly reports whether every provided IU is the void
// pseudo-IU, i.e. this suboperator exists only to encode an ordering
// constraint (spec §3).
func (s *Suboperator) ProducesVoidOnly() bool {
	for _, p := range s.Provided {
		if !p.IsPseudo() {
			return false
		}
	}
	return len(s.Provided) > 0
}
