package sandbox

import (
	"fmt"

	"go.starlark.net/starlark"

	errx "github.com/adam-setup/server/internal/core/error"
	"github.com/adam-setup/server/internal/dataset"
)

// tableToStarlark renders a table as a list of string-keyed dicts, the
// record shape scripts iterate over.
func tableToStarlark(t *dataset.Table) (*starlark.List, error) {
	rows := make([]starlark.Value, 0, t.Len())
	cols := t.Columns()
	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		d := starlark.NewDict(len(cols))
		for _, c := range cols {
			if err := d.SetKey(starlark.String(c), cellToStarlark(row.Get(c))); err != nil {
				return nil, err
			}
		}
		rows = append(rows, d)
	}
	return starlark.NewList(rows), nil
}

func cellToStarlark(v any) starlark.Value {
	switch x := v.(type) {
	case nil:
		return starlark.None
	case string:
		return starlark.String(x)
	case float64:
		return starlark.Float(x)
	case int:
		return starlark.MakeInt(x)
	case bool:
		return starlark.Bool(x)
	default:
		return starlark.String(fmt.Sprint(x))
	}
}

func starlarkToCell(v starlark.Value) any {
	switch x := v.(type) {
	case starlark.NoneType:
		return nil
	case starlark.String:
		return string(x)
	case starlark.Float:
		return float64(x)
	case starlark.Int:
		f, _ := starlark.AsFloat(x)
		return f
	case starlark.Bool:
		return bool(x)
	default:
		return x.String()
	}
}

// convertResult normalizes the value returned by main into a Result.
// Accepted shapes: a list of dicts (one table), a list whose members
// are tables (list of tables), or a string-keyed dict of tables.
// Scalar members inside a list or mapping are coerced to a single-cell
// table so nothing downstream ever sees a raw scalar. A scalar at the
// top level is a shape violation.
func convertResult(v starlark.Value) (*Result, error) {
	switch x := v.(type) {
	case *starlark.List:
		return convertSequence(x)
	case starlark.Tuple:
		return convertSequence(x)
	case *starlark.Dict:
		return convertMapping(x)
	default:
		return nil, fmt.Errorf("%w: main returned %s", errx.ErrBadResultShape, v.Type())
	}
}

type indexable interface {
	Len() int
	Index(i int) starlark.Value
}

func convertSequence(seq indexable) (*Result, error) {
	if seq.Len() == 0 {
		return TableResult(dataset.New()), nil
	}

	// A sequence of dicts is a single table of records.
	if _, ok := seq.Index(0).(*starlark.Dict); ok {
		t, err := recordsToTable(seq)
		if err != nil {
			return nil, err
		}
		return TableResult(t), nil
	}

	// Otherwise each member is its own table, with scalars coerced.
	tables := make([]*dataset.Table, 0, seq.Len())
	for i := 0; i < seq.Len(); i++ {
		t, err := memberToTable(seq.Index(i), fmt.Sprintf("result_%d", i+1))
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return &Result{Kind: KindList, Tables: tables}, nil
}

func convertMapping(d *starlark.Dict) (*Result, error) {
	named := make([]NamedTable, 0, d.Len())
	for _, kv := range d.Items() {
		key, ok := starlark.AsString(kv[0])
		if !ok {
			return nil, fmt.Errorf("%w: mapping key %s is not a string", errx.ErrBadResultShape, kv[0].Type())
		}
		t, err := memberToTable(kv[1], key)
		if err != nil {
			return nil, err
		}
		named = append(named, NamedTable{Name: key, Table: t})
	}
	return NamedResult(named), nil
}

// memberToTable converts one list or mapping member. Tables pass
// through, dicts of scalars become a one-row table, and scalars become
// a single cell under the member's label.
func memberToTable(v starlark.Value, label string) (*dataset.Table, error) {
	switch x := v.(type) {
	case *starlark.List:
		return sequenceToTable(x, label)
	case starlark.Tuple:
		return sequenceToTable(x, label)
	case *starlark.Dict:
		return scalarDictToTable(x)
	default:
		t := dataset.New(label)
		t.AppendRow(map[string]any{label: starlarkToCell(v)})
		return t, nil
	}
}

func sequenceToTable(seq indexable, label string) (*dataset.Table, error) {
	if seq.Len() == 0 {
		return dataset.New(), nil
	}
	if _, ok := seq.Index(0).(*starlark.Dict); ok {
		return recordsToTable(seq)
	}
	// A list of scalars becomes a one-column table.
	t := dataset.New(label)
	for i := 0; i < seq.Len(); i++ {
		t.AppendRow(map[string]any{label: starlarkToCell(seq.Index(i))})
	}
	return t, nil
}

// recordsToTable builds a table from a sequence of dicts. Columns are
// the union of keys in first-seen order.
func recordsToTable(seq indexable) (*dataset.Table, error) {
	var cols []string
	seen := make(map[string]bool)
	records := make([]map[string]any, 0, seq.Len())

	for i := 0; i < seq.Len(); i++ {
		d, ok := seq.Index(i).(*starlark.Dict)
		if !ok {
			return nil, fmt.Errorf("%w: mixed record and non-record members", errx.ErrBadResultShape)
		}
		rec := make(map[string]any, d.Len())
		for _, kv := range d.Items() {
			key, ok := starlark.AsString(kv[0])
			if !ok {
				return nil, fmt.Errorf("%w: record key %s is not a string", errx.ErrBadResultShape, kv[0].Type())
			}
			if !seen[key] {
				seen[key] = true
				cols = append(cols, key)
			}
			rec[key] = starlarkToCell(kv[1])
		}
		records = append(records, rec)
	}

	t := dataset.New(cols...)
	for _, rec := range records {
		t.AppendRow(rec)
	}
	return t, nil
}

func scalarDictToTable(d *starlark.Dict) (*dataset.Table, error) {
	var cols []string
	rec := make(map[string]any, d.Len())
	for _, kv := range d.Items() {
		key, ok := starlark.AsString(kv[0])
		if !ok {
			return nil, fmt.Errorf("%w: record key %s is not a string", errx.ErrBadResultShape, kv[0].Type())
		}
		cols = append(cols, key)
		rec[key] = starlarkToCell(kv[1])
	}
	t := dataset.New(cols...)
	t.AppendRow(rec)
	return t, nil
}
