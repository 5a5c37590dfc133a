// Package relalg implements the relational operators and their decay
// into the suboperator DAG (spec §4.3): table scan, expression,
// filter, aggregation, primary-key hash join, and print.
package relalg

import (
	"github.com/inkfuse/inkfuse/column"
	"github.com/inkfuse/inkfuse/ir"
	"github.com/inkfuse/inkfuse/runtime"
)

// Relation is a fully-materialized base table: fixed-width typed
// columns plus variable-length string columns, all sized to the
// relation's row count. It is the external-collaborator boundary the
// spec calls out (§1 "text/TSV ingest... treated as an external
// collaborator"): something upstream (not part of this package) loads
// rows into a Relation via the column package's row-store loaders,
// and TableScan below reads from it.
type Relation struct {
	NumRows int
	Columns map[string]*column.Column
	Strings map[string]*column.StringColumn
	region  *runtime.MemoryRegion
}

// NewRelation allocates an empty relation sized to hold numRows rows
// per column once populated.
func NewRelation(numRows int) *Relation {
	return &Relation{
		NumRows: numRows,
		Columns: make(map[string]*column.Column),
		Strings: make(map[string]*column.StringColumn),
		region:  runtime.NewMemoryRegion(0),
	}
}

// AddColumn allocates a fixed-width column of the given type sized to
// the relation's row count.
func (r *Relation) AddColumn(name string, ty ir.Type) *column.Column {
	c := column.NewColumn(ty, r.NumRows)
	r.Columns[name] = c
	return c
}

// AddStringColumn allocates a variable-length string column backed by
// the relation's own arena (the string data outlives any individual
// scan/morsel, matching a base relation's lifetime).
func (r *Relation) AddStringColumn(name string) *column.StringColumn {
	sc := column.NewStringColumn(r.NumRows, r.region)
	r.Strings[name] = sc
	return sc
}

// ColumnNames returns every fixed-width column name, for building
// loader chains ahead of TSV ingest.
func (r *Relation) ColumnNames() []string {
	out := make([]string, 0, len(r.Columns))
	for name := range r.Columns {
		out = append(out, name)
	}
	return out
}
