// Package dataset provides the in-memory tabular model shared by the
// detection checks, the sandbox runtime and the result pipeline.
//
// A Table keeps column order stable and tolerates missing cells: getters
// distinguish "absent or blank" from a real value the way setup snapshot
// exports do (empty CSV cells mean not configured, not zero).
package dataset

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Table is an ordered-column collection of rows. Cells hold string,
// float64, bool or nil.
type Table struct {
	cols  []string
	index map[string]int
	cells [][]any
}

// New creates an empty table with the given column order.
func New(columns ...string) *Table {
	t := &Table{
		cols:  append([]string(nil), columns...),
		index: make(map[string]int, len(columns)),
	}
	for i, c := range t.cols {
		t.index[c] = i
	}
	return t
}

// Columns returns the column names in their stable order.
func (t *Table) Columns() []string {
	return append([]string(nil), t.cols...)
}

// HasColumn reports whether the column exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.cells)
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.cols)
}

// CellCount returns rows times columns.
func (t *Table) CellCount() int {
	return t.Len() * t.NumColumns()
}

// AppendRow adds a row from a column-name keyed map. Columns absent from
// the map are left nil so getters report them as unset.
func (t *Table) AppendRow(values map[string]any) {
	row := make([]any, len(t.cols))
	for name, v := range values {
		if i, ok := t.index[name]; ok {
			row[i] = v
		}
	}
	t.cells = append(t.cells, row)
}

// appendRaw adds a pre-ordered row without copying. The slice must have
// exactly one cell per column.
func (t *Table) appendRaw(row []any) {
	t.cells = append(t.cells, row)
}

// Row returns a view over row i. The view stays valid while the table is
// not mutated.
func (t *Table) Row(i int) Row {
	return Row{t: t, i: i}
}

// Cell returns the raw value at (row, column), nil when the column does
// not exist.
func (t *Table) Cell(row int, column string) any {
	i, ok := t.index[column]
	if !ok {
		return nil
	}
	return t.cells[row][i]
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := New(t.cols...)
	for _, row := range t.cells {
		out.appendRaw(append([]any(nil), row...))
	}
	return out
}

// WithColumn returns a copy of the table with one extra column appended.
// values must have one entry per row.
func (t *Table) WithColumn(name string, values []any) (*Table, error) {
	if len(values) != t.Len() {
		return nil, fmt.Errorf("column %q: %d values for %d rows", name, len(values), t.Len())
	}
	out := New(append(t.Columns(), name)...)
	for i, row := range t.cells {
		next := make([]any, 0, len(row)+1)
		next = append(next, row...)
		next = append(next, values[i])
		out.appendRaw(next)
	}
	return out, nil
}

// Filter returns a new table containing the rows for which keep returns
// true, preserving the original order.
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := New(t.cols...)
	for i := range t.cells {
		if keep(t.Row(i)) {
			out.appendRaw(append([]any(nil), t.cells[i]...))
		}
	}
	return out
}

// Head returns a copy limited to the first n rows.
func (t *Table) Head(n int) *Table {
	if n > t.Len() {
		n = t.Len()
	}
	out := New(t.cols...)
	for i := 0; i < n; i++ {
		out.appendRaw(append([]any(nil), t.cells[i]...))
	}
	return out
}

// SelectColumns returns a copy limited to the first n columns.
func (t *Table) SelectColumns(n int) *Table {
	if n > len(t.cols) {
		n = len(t.cols)
	}
	out := New(t.cols[:n]...)
	for _, row := range t.cells {
		out.appendRaw(append([]any(nil), row[:n]...))
	}
	return out
}

// Row is a read-only view over a single table row.
type Row struct {
	t *Table
	i int
}

// Get returns the raw cell value, nil when the column is unknown.
func (r Row) Get(column string) any {
	return r.t.Cell(r.i, column)
}

// Str returns the cell as a string. Missing cells and nil become "".
func (r Row) Str(column string) string {
	v := r.Get(column)
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

// Float returns the cell as a float64. ok is false when the cell is
// absent, blank, NaN or not numeric.
func (r Row) Float(column string) (float64, bool) {
	switch x := r.Get(column).(type) {
	case float64:
		if math.IsNaN(x) {
			return 0, false
		}
		return x, true
	case int:
		return float64(x), true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Bool returns the cell as a boolean. String cells match "true"
// case-insensitively.
func (r Row) Bool(column string) bool {
	switch x := r.Get(column).(type) {
	case bool:
		return x
	case string:
		return strings.EqualFold(strings.TrimSpace(x), "true")
	case float64:
		return x != 0
	default:
		return false
	}
}

// Empty reports whether the cell is absent, nil, NaN or a blank string.
// It mirrors missing-value handling in snapshot exports.
func (r Row) Empty(column string) bool {
	switch x := r.Get(column).(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return math.IsNaN(x)
	default:
		return false
	}
}

// Values returns the row as a column-keyed map.
func (r Row) Values() map[string]any {
	out := make(map[string]any, len(r.t.cols))
	for _, c := range r.t.cols {
		out[c] = r.Get(c)
	}
	return out
}

// ErrorMarker builds the single-column error table used to carry an
// execution failure through the result pipeline.
func ErrorMarker(message string) *Table {
	t := New("error")
	t.AppendRow(map[string]any{"error": message})
	return t
}

// IsErrorMarker reports whether the table is an error marker.
func IsErrorMarker(t *Table) bool {
	return t != nil && t.NumColumns() == 1 && t.cols[0] == "error"
}
