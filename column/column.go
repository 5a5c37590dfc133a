// Package column implements InkFuse's columnar storage: typed columns
// of contiguous POD data, the fuse-chunk columnar batch suboperators
// stage values in, and the row-store column API external scan
// collaborators load text data through (spec §3, §6).
package column

import (
	"unsafe"

	"github.com/inkfuse/inkfuse/ir"
)

// DefaultCapacity is the default number of rows a Column/FuseChunk
// holds (spec §3).
const DefaultCapacity = 8192

// Column is a typed, contiguous, fixed-capacity buffer plus a current
// row count. Non-string columns store POD values inline; the
// variable-length string column (StringColumn, in rowstore.go) stores arena
// pointers instead.
type Column struct {
	ty       ir.Type
	elemSize int
	cap      int
	count    int
	data     []byte
}

// NewColumn allocates a column of the given type and capacity.
func NewColumn(ty ir.Type, capacity int) *Column {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	size := ty.Size()
	if size == 0 {
		size = 8 // Ptr-sized slot for e.g. string arena pointers represented as Ptr(Char)
	}
	return &Column{ty: ty, elemSize: size, cap: capacity, data: make([]byte, capacity*size)}
}

// Type returns the column's element type.
func (c *Column) Type() ir.Type { return c.ty }

// Len returns the number of valid rows currently held.
func (c *Column) Len() int { return c.count }

// Cap returns the column's fixed row capacity.
func (c *Column) Cap() int { return c.cap }

// Reset clears the row count without reallocating the backing buffer.
func (c *Column) Reset() { c.count = 0 }

// Raw returns a pointer to row i's storage; callers index it with the
// knowledge of the column's element type (matching the generated
// code's `column_base[row_idx]` access pattern, spec §4.3).
func (c *Column) Raw(i int) unsafe.Pointer {
	return unsafe.Pointer(&c.data[i*c.elemSize])
}

// Append appends one element, copying elemSize bytes from src, and
// returns the index the element was written at. Panics if the column
// is at capacity — callers (fuse-chunk sinks) are expected to flush
// or resize before exceeding it, since a single morsel never exceeds
// the pipeline's fuse-chunk capacity.
func (c *Column) Append(src unsafe.Pointer) int {
	if c.count >= c.cap {
		panic("column: append beyond capacity")
	}
	i := c.count
	copy(c.data[i*c.elemSize:(i+1)*c.elemSize], unsafe.Slice((*byte)(src), c.elemSize))
	c.count++
	return i
}

// SetLen forcibly sets the row count, used by zero-copy scan (spec
// §4.2) which swaps the backing data pointer directly rather than
// appending row by row.
func (c *Column) SetLen(n int) { c.count = n }

// SwapData replaces the backing buffer wholesale (used by zero-copy
// scan to alias a morsel's backing storage instead of copying it) and
// returns the previous buffer so the caller can restore it afterwards.
func (c *Column) SwapData(data []byte, count int) (prevData []byte, prevCount int) {
	prevData, prevCount = c.data, c.count
	c.data, c.count = data, count
	return
}

// RestoreData restores a buffer previously captured by SwapData. Used
// by the zero-copy scan's destructor-equivalent cleanup.
func (c *Column) RestoreData(data []byte, count int) {
	c.data, c.count = data, count
}

// DataSlice returns the raw backing bytes for rows [start, end),
// aliasing the column's own storage (no copy). Used by the zero-copy
// table scan to hand a fuse-chunk column a direct view into the
// relation's backing column for one morsel (spec §4.2 "Special
// optimized path: zero-copy scan").
func (c *Column) DataSlice(start, end int) []byte {
	return c.data[start*c.elemSize : end*c.elemSize]
}

// Int64At reads an 8-byte signed integer row (I8) — a convenience
// accessor for tests and simple primitives.
func (c *Column) Int64At(i int) int64 {
	return int64(*(*uint64)(c.Raw(i)))
}

// SetInt64At writes an 8-byte signed integer row.
func (c *Column) SetInt64At(i int, v int64) {
	*(*int64)(c.Raw(i)) = v
}

// Uint64At reads an 8-byte unsigned integer row (UI8).
func (c *Column) Uint64At(i int) uint64 {
	return *(*uint64)(c.Raw(i))
}

// SetUint64At writes an 8-byte unsigned integer row.
func (c *Column) SetUint64At(i int, v uint64) {
	*(*uint64)(c.Raw(i)) = v
}

// Float64At reads an 8-byte float row (F8).
func (c *Column) Float64At(i int) float64 {
	return *(*float64)(c.Raw(i))
}

// SetFloat64At writes an 8-byte float row.
func (c *Column) SetFloat64At(i int, v float64) {
	*(*float64)(c.Raw(i)) = v
}

// Int32At reads a 4-byte signed integer row (I4) or Date row.
func (c *Column) Int32At(i int) int32 {
	return *(*int32)(c.Raw(i))
}

// SetInt32At writes a 4-byte signed integer row.
func (c *Column) SetInt32At(i int, v int32) {
	*(*int32)(c.Raw(i)) = v
}

// BoolAt reads a Bool row.
func (c *Column) BoolAt(i int) bool {
	return *(*byte)(c.Raw(i)) != 0
}

// SetBoolAt writes a Bool row.
func (c *Column) SetBoolAt(i int, v bool) {
	b := byte(0)
	if v {
		b = 1
	}
	*(*byte)(c.Raw(i)) = b
}
