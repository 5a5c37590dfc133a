package subop

import "github.com/inkfuse/inkfuse/ir"

// abiPtrPtr is the type of the fixed global_state/thread_params
// parameters: a pointer to an array of void pointers (spec §4.1).
var abiPtrPtr = ir.Ptr{Inner: ir.Ptr{Inner: ir.Void}}

// GlobalStateParam and ThreadParamsParam reference the fused pipeline
// function's fixed ABI prefix slots by name (spec §4.1); every Emit
// that needs a global or per-thread slot calls these rather than
// receiving the array as an argument, since Emit's own signature only
// carries the builder and the current row index.
func GlobalStateParam(b *ir.FunctionBuilder) *ir.VarRef {
	return b.Param("global_state", abiPtrPtr)
}

func ThreadParamsParam(b *ir.FunctionBuilder) *ir.VarRef {
	return b.Param("thread_params", abiPtrPtr)
}

func ResumptionParam(b *ir.FunctionBuilder) *ir.VarRef {
	return b.Param("resumption_state", ir.Ptr{Inner: ir.Void})
}

// slotPtr reads arr[slot] (a void*) from one of the two ABI arrays,
// expressed as pointer arithmetic plus a dereference since the IR has
// no array-subscript node (spec §4.1).
func slotPtr(arr ir.Expr, slot int) ir.Expr {
	addr := &ir.BinOp{Op: ir.Add, Left: arr, Right: ir.ConstI(ir.I8, int64(slot))}
	return &ir.Unary{Op: ir.Deref, Inner: addr}
}

// GlobalSlot casts global_state[slot] to a pointer of type ty.
func GlobalSlot(b *ir.FunctionBuilder, slot int, ty ir.Type) ir.Expr {
	return &ir.Cast{Target: ir.Ptr{Inner: ty}, Inner: slotPtr(GlobalStateParam(b), slot)}
}

// ThreadSlot casts thread_params[slot] to a pointer of type ty.
func ThreadSlot(b *ir.FunctionBuilder, slot int, ty ir.Type) ir.Expr {
	return &ir.Cast{Target: ir.Ptr{Inner: ty}, Inner: slotPtr(ThreadParamsParam(b), slot)}
}

// RawGlobalSlot and RawThreadSlot return the slot's raw void* value,
// for suboperators (like the native hash table) that manage the
// pointed-to memory themselves via runtime-library Invoke calls
// rather than reading/writing typed IR locals through it.
func RawGlobalSlot(b *ir.FunctionBuilder, slot int) ir.Expr {
	return slotPtr(GlobalStateParam(b), slot)
}

func RawThreadSlot(b *ir.FunctionBuilder, slot int) ir.Expr {
	return slotPtr(ThreadParamsParam(b), slot)
}

// AssignSlot writes val into global_state[slot] or thread_params[slot]
// (the array expression passed as arr), used to lazily install
// runtime-allocated native state back into the slot on first use.
func AssignSlot(b *ir.FunctionBuilder, arr ir.Expr, slot int, val ir.Expr) {
	b.Assign(slotPtr(arr, slot), val)
}

// RowPtr advances basePtr (already typed to the element it points at)
// by row positions of C pointer arithmetic, scaled by the pointee's
// size — the `column_base[row_idx]` access pattern (spec §4.3).
func RowPtr(basePtr, row ir.Expr) ir.Expr {
	return &ir.BinOp{Op: ir.Add, Left: basePtr, Right: row}
}

// Load dereferences ptr.
func Load(ptr ir.Expr) ir.Expr { return &ir.Unary{Op: ir.Deref, Inner: ptr} }

// BoundsStruct is the struct resumption_state points at: the
// [start, end) row range of the morsel this call processes (spec
// §4.4). Its layout must match runtime's inkfuse_bounds C struct byte
// for byte; exec has no Go-side mirror of it.
var BoundsStruct = &ir.Struct{
	Name: "inkfuse_bounds",
	Fields: []ir.StructField{
		{Name: "start", Type: ir.I8},
		{Name: "end", Type: ir.I8},
	},
}

// VecStruct describes a native growable output buffer (e.g. a fused
// print sink's accumulated rows); must match runtime's inkfuse_vec C
// struct byte for byte (spec §4.4 "print sink"). exec has no Go-side
// mirror of it and does not read such buffers back.
var VecStruct = &ir.Struct{
	Name: "inkfuse_vec",
	Fields: []ir.StructField{
		{Name: "data", Type: ir.Ptr{Inner: ir.UI1}},
		{Name: "len", Type: ir.I8},
		{Name: "cap", Type: ir.I8},
		{Name: "elem_size", Type: ir.I8},
	},
}

// HtStruct mirrors runtime's inkfuse_ht C struct: an open-addressing,
// fixed key/payload-width hash table used by fused ht-probe/insert
// suboperators (spec §4.3 "Build").
var HtStruct = &ir.Struct{
	Name: "inkfuse_ht",
	Fields: []ir.StructField{
		{Name: "slots", Type: ir.Ptr{Inner: ir.UI1}},
		{Name: "filled", Type: ir.Ptr{Inner: ir.UI1}},
		{Name: "capacity", Type: ir.I8},
		{Name: "count", Type: ir.I8},
		{Name: "keylen", Type: ir.I8},
		{Name: "payloadlen", Type: ir.I8},
	},
}

// EmitBounds declares and returns a VarRef to the current row index
// "i", initialized from resumption_state's start field, plus the
// parsed end-of-morsel expression, for a loop over one morsel's rows
// (spec §4.4 "fused runner"). Suboperators never build this loop
// themselves, and FusedRunner.Prepare does not call EmitBounds either:
// nothing in this engine calls it.
func EmitBounds(b *ir.FunctionBuilder) (i *ir.VarRef, end ir.Expr) {
	resumption := ResumptionParam(b)
	boundsPtr := &ir.Cast{Target: ir.Ptr{Inner: BoundsStruct}, Inner: resumption}
	start := &ir.FieldAccess{Base: boundsPtr, Field: "start"}
	end = &ir.FieldAccess{Base: boundsPtr, Field: "end"}
	decl := b.Declare("i", ir.I8)
	i = &ir.VarRef{Decl: decl}
	b.Assign(i, start)
	return i, end
}
