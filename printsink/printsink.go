// Package printsink is the reference pretty-printing callback for
// relalg.Print: the relational Print operator treats its output
// destination as an external collaborator reached only through the
// relalg.Sink interface (spec §6), so this package supplies a
// concrete, table-rendering default rather than leaving Print
// unexercisable outside a hand-rolled test stub.
package printsink

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
)

// TableWriter renders every WriteRows call as a go-pretty table
// appended to Out (os.Stdout if unset). Rows are written incrementally
// morsel by morsel rather than buffered and rendered once, matching
// the streaming nature of a print pipeline; the header is rendered
// once, on the first call.
type TableWriter struct {
	Out io.Writer

	mu      sync.Mutex
	tbl     table.Writer
	started bool
}

// WriteRows implements relalg.Sink.
func (w *TableWriter) WriteRows(columnNames []string, rows [][]string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		w.started = true
		w.tbl = table.NewWriter()
		w.tbl.SetStyle(table.StyleLight)
		w.tbl.Style().Options.SeparateRows = false
		header := make(table.Row, len(columnNames))
		for i, name := range columnNames {
			header[i] = name
		}
		w.tbl.AppendHeader(header)
	}
	for _, r := range rows {
		row := make(table.Row, len(r))
		for i, cell := range r {
			row[i] = cell
		}
		w.tbl.AppendRow(row)
	}
}

// Flush renders the accumulated table to Out. Call once after the
// print pipeline's morsels have all completed.
func (w *TableWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	out := w.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, w.tbl.Render())
}

// CollectingSink accumulates rows without rendering anything, for use
// in tests that want to assert on exact output rows rather than
// rendered table text.
type CollectingSink struct {
	mu          sync.Mutex
	ColumnNames []string
	Rows        [][]string
}

// WriteRows implements relalg.Sink.
func (s *CollectingSink) WriteRows(columnNames []string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ColumnNames = columnNames
	s.Rows = append(s.Rows, rows...)
}
