package column

import (
	"fmt"

	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/iu"
)

// FuseChunk is the columnar batch suboperators within one pipeline
// repipe interval exchange data through: a map from IU identity to the
// Column backing that IU's values, all sharing a common row capacity
// (spec §3 "FuseChunk", §4.3).
type FuseChunk struct {
	capacity int
	cols     map[*iu.IU]*Column
}

// NewFuseChunk creates an empty fuse chunk with the given row capacity.
func NewFuseChunk(capacity int) *FuseChunk {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &FuseChunk{capacity: capacity, cols: make(map[*iu.IU]*Column)}
}

// Capacity returns the fuse chunk's row capacity.
func (f *FuseChunk) Capacity() int { return f.capacity }

// Provide registers backing storage for producedIU, allocating a fresh
// column of the IU's type if one isn't already present. Idempotent:
// calling Provide twice for the same IU returns the existing column.
func (f *FuseChunk) Provide(id *iu.IU) *Column {
	if c, ok := f.cols[id]; ok {
		return c
	}
	c := NewColumn(id.Type, f.capacity)
	f.cols[id] = c
	return c
}

// Column returns the backing column for id, or a plain (unwrapped)
// error naming id if id was never provided — a repipe bug would
// surface this way rather than a nil pointer.
func (f *FuseChunk) Column(id *iu.IU) (*Column, error) {
	c, ok := f.cols[id]
	if !ok {
		return nil, fmt.Errorf("fusechunk: no column provided for iu %s", id.DebugName())
	}
	return c, nil
}

// Has reports whether id has backing storage in this chunk.
func (f *FuseChunk) Has(id *iu.IU) bool {
	_, ok := f.cols[id]
	return ok
}

// NumRows returns the row count of any one of the chunk's columns (by
// invariant, every live column in a fuse chunk holds the same row
// count at a consistent repipe boundary); 0 if the chunk has no
// columns yet.
func (f *FuseChunk) NumRows() int {
	for _, c := range f.cols {
		return c.Len()
	}
	return 0
}

// Reset clears every column's row count (but keeps their backing
// storage) ahead of reuse by the next morsel.
func (f *FuseChunk) Reset() {
	for _, c := range f.cols {
		c.Reset()
	}
}

// StructType derives the C struct layout a fuse chunk's row would take
// when materialized (used by the tuple materializer and by
// compiled-pipeline struct generation, spec §4.3/§4.4): one field per
// IU, in the stable order ids is given.
func StructType(name string, ids []*iu.IU) *ir.Struct {
	fields := make([]ir.StructField, len(ids))
	for i, id := range ids {
		fields[i] = ir.StructField{Name: fmt.Sprintf("iu_%p", id), Type: id.Type}
	}
	return &ir.Struct{Name: name, Fields: fields}
}
