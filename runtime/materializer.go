package runtime

import (
	"unsafe"

	"code.hybscloud.com/lfq"
)

// chunkBytes is the size of one tuple-materializer chunk (spec §4.6).
const chunkBytes = 16 * 1024

// chunk is one immutable-once-finalized slab of materialized rows.
type chunk struct {
	data    []byte
	rowSize int
	count   int // rows written so far
	cap     int // rows this chunk can hold
}

func newChunk(rowSize int) *chunk {
	cap := chunkBytes / rowSize
	if cap < 1 {
		cap = 1
	}
	return &chunk{data: make([]byte, cap*rowSize), rowSize: rowSize, cap: cap}
}

func (c *chunk) reserve() (unsafe.Pointer, bool) {
	if c.count >= c.cap {
		return nil, false
	}
	p := unsafe.Pointer(&c.data[c.count*c.rowSize])
	c.count++
	return p, true
}

// Row returns a pointer to the i-th row in the chunk.
func (c *chunk) Row(i int) unsafe.Pointer {
	return unsafe.Pointer(&c.data[i*c.rowSize])
}

// TupleMaterializer is a thread-local row buffer feeding
// multi-threaded hash table build (spec §4.6). Materialize() is only
// ever called by the single worker thread that owns the instance; no
// synchronization is needed until chunks are handed off to a
// ReadHandle for cross-thread consumption.
type TupleMaterializer struct {
	rowSize int
	chunks  []*chunk
}

// NewTupleMaterializer creates a thread-local materializer for
// fixed-size rows of rowSize bytes.
func NewTupleMaterializer(rowSize int) *TupleMaterializer {
	return &TupleMaterializer{rowSize: rowSize}
}

// Materialize returns a pointer to a freshly reserved row-sized slot,
// appending a new chunk on overflow.
func (m *TupleMaterializer) Materialize() unsafe.Pointer {
	if len(m.chunks) > 0 {
		if p, ok := m.chunks[len(m.chunks)-1].reserve(); ok {
			return p
		}
	}
	c := newChunk(m.rowSize)
	m.chunks = append(m.chunks, c)
	p, _ := c.reserve()
	return p
}

// NumRows returns the total number of rows materialized so far by
// this thread-local instance.
func (m *TupleMaterializer) NumRows() int {
	total := 0
	for _, c := range m.chunks {
		total += c.count
	}
	return total
}

// NumChunks returns the number of chunks allocated so far.
func (m *TupleMaterializer) NumChunks() int { return len(m.chunks) }

// ChunkHandle is one materialized chunk as seen from a ReadHandle:
// row count and a row accessor, with the owning chunk kept alive by
// the ReadHandle's queue.
type ChunkHandle struct {
	c *chunk
}

// NumRows returns the number of rows in this chunk.
func (h ChunkHandle) NumRows() int { return h.c.count }

// Row returns a pointer to the i-th row in this chunk.
func (h ChunkHandle) Row(i int) unsafe.Pointer { return h.c.Row(i) }

// ReadHandle serves the chunks materialized across every worker's
// thread-local TupleMaterializer to a pool of concurrent readers. It
// is backed by an FAA-based bounded MPMC queue (spec §4.6: "chunks are
// held ... readers take chunks by atomic fetch-add"); sized exactly to
// the number of chunks present when the handle is opened, since no
// further materialization happens once a ReadHandle exists.
type ReadHandle struct {
	queue *lfq.MPMC[chunk]
	total int
}

// OpenReadHandle finalizes every materializer's chunks into a single
// shared queue available to concurrent readers. Called once all
// build-pipeline workers have finished materializing their rows.
func OpenReadHandle(materializers []*TupleMaterializer) *ReadHandle {
	totalChunks := 0
	for _, m := range materializers {
		totalChunks += len(m.chunks)
	}
	cap := totalChunks
	if cap < 2 {
		cap = 2
	}
	q := lfq.NewMPMC[chunk](cap)
	for _, m := range materializers {
		for _, c := range m.chunks {
			_ = q.Enqueue(*c)
		}
	}
	q.Drain()
	return &ReadHandle{queue: q, total: totalChunks}
}

// TotalChunks returns the number of chunks available through this
// handle.
func (h *ReadHandle) TotalChunks() int { return h.total }

// Next pops one chunk from the shared queue. Safe to call
// concurrently from any number of reader goroutines. Returns
// ok == false once every chunk has been consumed.
func (h *ReadHandle) Next() (ChunkHandle, bool) {
	c, err := h.queue.Dequeue()
	if err != nil {
		return ChunkHandle{}, false
	}
	return ChunkHandle{c: &c}, true
}
