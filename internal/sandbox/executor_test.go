package sandbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errx "github.com/adam-setup/server/internal/core/error"
	"github.com/adam-setup/server/internal/dataset"
)

func snapshotFixture() *dataset.Snapshot {
	lineItems := dataset.New("Name", "Status", "Budget")
	lineItems.AppendRow(map[string]any{"Name": "li-1", "Status": "Active", "Budget": 100.0})
	lineItems.AppendRow(map[string]any{"Name": "li-2", "Status": "Paused", "Budget": 50.0})

	campaigns := dataset.New("Name", "Campaign Goal")
	campaigns.AppendRow(map[string]any{"Name": "c-1", "Campaign Goal": "Drive online action or visits"})

	insertionOrders := dataset.New("Name", "Kpi Type")
	insertionOrders.AppendRow(map[string]any{"Name": "io-1", "Kpi Type": "CPM"})

	return &dataset.Snapshot{LineItems: lineItems, Campaigns: campaigns, InsertionOrders: insertionOrders}
}

func TestRunReturnsTable(t *testing.T) {
	code := `
def main(Line_Items, Campaigns, Insertion_orders):
    return [li for li in Line_Items if li["Status"] == "Active"]
`
	res, err := NewExecutor(0).Run(context.Background(), code, snapshotFixture())
	require.NoError(t, err)
	require.Equal(t, KindTable, res.Kind)
	require.Equal(t, 1, res.Table.Len())
	assert.Equal(t, "li-1", res.Table.Row(0).Str("Name"))
	v, ok := res.Table.Row(0).Float("Budget")
	require.True(t, ok)
	assert.Equal(t, 100.0, v)
}

func TestRunReturnsMapping(t *testing.T) {
	code := `
def main(Line_Items, Campaigns, Insertion_orders):
    total = 0.0
    for li in Line_Items:
        total += li["Budget"]
    return {
        "line_items": [li for li in Line_Items],
        "total_budget": total,
    }
`
	res, err := NewExecutor(0).Run(context.Background(), code, snapshotFixture())
	require.NoError(t, err)
	require.Equal(t, KindNamed, res.Kind)
	require.Len(t, res.Named, 2)

	// Mapping order is preserved, scalars are coerced to one-cell tables.
	assert.Equal(t, "line_items", res.Named[0].Name)
	assert.Equal(t, 2, res.Named[0].Table.Len())
	assert.Equal(t, "total_budget", res.Named[1].Name)
	total, ok := res.Named[1].Table.Row(0).Float("total_budget")
	require.True(t, ok)
	assert.Equal(t, 150.0, total)
}

func TestRunReturnsListOfTables(t *testing.T) {
	code := `
def main(Line_Items, Campaigns, Insertion_orders):
    return [[c for c in Campaigns], [io for io in Insertion_orders]]
`
	res, err := NewExecutor(0).Run(context.Background(), code, snapshotFixture())
	require.NoError(t, err)
	require.Equal(t, KindList, res.Kind)
	require.Len(t, res.Tables, 2)
	assert.Equal(t, "c-1", res.Tables[0].Row(0).Str("Name"))
	assert.Equal(t, "io-1", res.Tables[1].Row(0).Str("Name"))
}

func TestRunScalarReturnIsShapeViolation(t *testing.T) {
	code := `
def main(Line_Items, Campaigns, Insertion_orders):
    return 42
`
	_, err := NewExecutor(0).Run(context.Background(), code, snapshotFixture())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errx.ErrBadResultShape))
}

func TestRunMissingMain(t *testing.T) {
	_, err := NewExecutor(0).Run(context.Background(), "x = 1", snapshotFixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"main" is not defined`)
}

func TestRunScriptErrorCarriesBacktrace(t *testing.T) {
	code := `
def main(Line_Items, Campaigns, Insertion_orders):
    return [li["No Such Column"] for li in Line_Items]
`
	_, err := NewExecutor(0).Run(context.Background(), code, snapshotFixture())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "script error")
}

func TestRunTimeout(t *testing.T) {
	code := `
def main(Line_Items, Campaigns, Insertion_orders):
    while True:
        pass
`
	ex := NewExecutor(50 * time.Millisecond)
	_, err := ex.Run(context.Background(), code, snapshotFixture())
	require.Error(t, err)
}

func TestRunWhitelistedModules(t *testing.T) {
	code := `
def main(Line_Items, Campaigns, Insertion_orders):
    return [{"rounded": math.floor(li["Budget"]), "encoded": json.encode(li["Name"])} for li in Line_Items]
`
	res, err := NewExecutor(0).Run(context.Background(), code, snapshotFixture())
	require.NoError(t, err)
	require.Equal(t, KindTable, res.Kind)
	assert.Equal(t, 2, res.Table.Len())
}

func TestRunEmptyResult(t *testing.T) {
	code := `
def main(Line_Items, Campaigns, Insertion_orders):
    return [li for li in Line_Items if li["Status"] == "Archived"]
`
	res, err := NewExecutor(0).Run(context.Background(), code, snapshotFixture())
	require.NoError(t, err)
	require.Equal(t, KindTable, res.Kind)
	assert.Equal(t, 0, res.Table.Len())
}

func TestErrorResultRoundTrip(t *testing.T) {
	res := ErrorResult("KeyError: 'Budget'")
	assert.True(t, res.IsError())
	assert.Equal(t, "KeyError: 'Budget'", res.Table.Row(0).Str("error"))

	ok := TableResult(dataset.New("Name"))
	assert.False(t, ok.IsError())
}
