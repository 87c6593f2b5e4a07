// Package sandbox executes generated analysis scripts against a setup
// snapshot inside a Starlark interpreter. Scripts must define
// main(Line_Items, Campaigns, Insertion_orders) and return a table
// (list of dicts), a list of tables, or a string-keyed mapping of
// tables. Anything else is a shape violation the caller may retry on.
package sandbox

import "github.com/adam-setup/server/internal/dataset"

// Kind tags the shape of an execution result.
type Kind int

const (
	// KindTable is a single result table.
	KindTable Kind = iota
	// KindList is an ordered list of result tables.
	KindList
	// KindNamed is a mapping of label to result table, insertion ordered.
	KindNamed
)

// NamedTable pairs a result table with its mapping key.
type NamedTable struct {
	Name  string
	Table *dataset.Table
}

// Result is the normalized output of a script run. Exactly one of
// Table, Tables or Named is populated according to Kind.
type Result struct {
	Kind   Kind
	Table  *dataset.Table
	Tables []*dataset.Table
	Named  []NamedTable
}

// TableResult wraps a single table, used by callers that synthesize
// results outside the interpreter (detection runs, error markers).
func TableResult(t *dataset.Table) *Result {
	return &Result{Kind: KindTable, Table: t}
}

// NamedResult wraps an ordered set of labeled tables.
func NamedResult(named []NamedTable) *Result {
	return &Result{Kind: KindNamed, Named: named}
}

// ErrorResult wraps an execution failure as a single-column error table
// so it can travel the same path as real results.
func ErrorResult(message string) *Result {
	return TableResult(dataset.ErrorMarker(message))
}

// IsError reports whether the result is an error marker.
func (r *Result) IsError() bool {
	return r != nil && r.Kind == KindTable && dataset.IsErrorMarker(r.Table)
}
