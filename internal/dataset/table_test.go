package dataset

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowGettersDistinguishMissingFromZero(t *testing.T) {
	tbl := New("Name", "Kpi Value", "Frequency Enabled")
	tbl.AppendRow(map[string]any{"Name": "IO A", "Kpi Value": 0.0, "Frequency Enabled": "True"})
	tbl.AppendRow(map[string]any{"Name": "IO B"})

	withValue := tbl.Row(0)
	v, ok := withValue.Float("Kpi Value")
	require.True(t, ok)
	assert.Equal(t, 0.0, v)
	assert.False(t, withValue.Empty("Kpi Value"))
	assert.True(t, withValue.Bool("Frequency Enabled"))

	unset := tbl.Row(1)
	_, ok = unset.Float("Kpi Value")
	assert.False(t, ok)
	assert.True(t, unset.Empty("Kpi Value"))
	assert.False(t, unset.Bool("Frequency Enabled"))
}

func TestFilterPreservesOrder(t *testing.T) {
	tbl := New("Name", "Status")
	for _, r := range []map[string]any{
		{"Name": "a", "Status": "Active"},
		{"Name": "b", "Status": "Paused"},
		{"Name": "c", "Status": "Active"},
	} {
		tbl.AppendRow(r)
	}

	active := tbl.Filter(func(r Row) bool { return r.Str("Status") == "Active" })
	require.Equal(t, 2, active.Len())
	assert.Equal(t, "a", active.Row(0).Str("Name"))
	assert.Equal(t, "c", active.Row(1).Str("Name"))
}

func TestWithColumnAppendsAtEnd(t *testing.T) {
	tbl := New("Name")
	tbl.AppendRow(map[string]any{"Name": "li-1"})
	tbl.AppendRow(map[string]any{"Name": "li-2"})

	out, err := tbl.WithColumn("anomalies_description", []any{"x;", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"Name", "anomalies_description"}, out.Columns())
	assert.Equal(t, "x;", out.Row(0).Str("anomalies_description"))

	_, err = tbl.WithColumn("bad", []any{"only-one"})
	assert.Error(t, err)
}

func TestReadCSVCoercesCells(t *testing.T) {
	src := "Name,Kpi Value,Frequency Enabled,Note\nIO A,0.3,True,\nIO B,,False,hello\n"
	tbl, err := ReadCSV(strings.NewReader(src))
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	first := tbl.Row(0)
	v, ok := first.Float("Kpi Value")
	require.True(t, ok)
	assert.InDelta(t, 0.3, v, 1e-9)
	assert.True(t, first.Bool("Frequency Enabled"))
	assert.True(t, first.Empty("Note"))

	second := tbl.Row(1)
	assert.True(t, second.Empty("Kpi Value"))
	assert.Equal(t, "hello", second.Str("Note"))
}

func TestErrorMarker(t *testing.T) {
	m := ErrorMarker("boom")
	assert.True(t, IsErrorMarker(m))
	assert.Equal(t, "boom", m.Row(0).Str("error"))

	plain := New("Name")
	assert.False(t, IsErrorMarker(plain))
	assert.False(t, IsErrorMarker(nil))
}

func TestHeadAndSelectColumns(t *testing.T) {
	tbl := New("a", "b", "c")
	for i := 0; i < 5; i++ {
		tbl.AppendRow(map[string]any{"a": float64(i), "b": "x", "c": "y"})
	}

	head := tbl.Head(2)
	assert.Equal(t, 2, head.Len())

	slim := tbl.SelectColumns(2)
	assert.Equal(t, []string{"a", "b"}, slim.Columns())
	assert.Equal(t, 5, slim.Len())

	// Bounds are clamped rather than panicking.
	assert.Equal(t, 5, tbl.Head(100).Len())
	assert.Equal(t, 3, tbl.SelectColumns(100).NumColumns())
}
