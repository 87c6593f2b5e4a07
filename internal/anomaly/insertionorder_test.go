package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/adam-setup/server/internal/dataset"
)

var ioColumns = []string{
	"Name", "Kpi Type", "Kpi Value", "Io Objective",
	"Bid Strategy Unit", "Insertion Order Optimization",
}

func ioRow(t *testing.T, values map[string]any) dataset.Row {
	t.Helper()
	tbl := dataset.New(ioColumns...)
	tbl.AppendRow(values)
	return tbl.Row(0)
}

func TestCheckIONamingKPI(t *testing.T) {
	// No funnel keyword in the name means nothing to validate.
	bad, _ := checkIONamingKPI(ioRow(t, map[string]any{"Name": "Brand - Generic - Display", "Kpi Type": "CPA"}), nil)
	assert.False(t, bad)

	bad, desc := checkIONamingKPI(ioRow(t, map[string]any{"Name": "Brand - Awareness - Display"}), nil)
	assert.True(t, bad)
	assert.Contains(t, desc, "KPI type is missing")

	bad, desc = checkIONamingKPI(ioRow(t, map[string]any{
		"Name": "Brand - Awareness - Display", "Kpi Type": "CPA",
	}), nil)
	assert.True(t, bad)
	assert.Contains(t, desc, "Name suggests Awareness (expects CPM/CTR) but KPI is CPA")

	// Consideration CTR outside 0.2-0.4.
	bad, desc = checkIONamingKPI(ioRow(t, map[string]any{
		"Name": "Brand - Consideration - Display", "Kpi Type": "CTR", "Kpi Value": 0.5,
	}), nil)
	assert.True(t, bad)
	assert.Contains(t, desc, "outside typical range (0.2%-0.4%)")

	bad, _ = checkIONamingKPI(ioRow(t, map[string]any{
		"Name": "Brand - Consideration - Display", "Kpi Type": "CTR", "Kpi Value": 0.3,
	}), nil)
	assert.False(t, bad)
}

func TestCheckIOKPIObjective(t *testing.T) {
	bad, _ := checkIOKPIObjective(ioRow(t, map[string]any{}), nil)
	assert.False(t, bad)

	bad, desc := checkIOKPIObjective(ioRow(t, map[string]any{"Kpi Type": "CPM"}), nil)
	assert.True(t, bad)
	assert.Contains(t, desc, "IO Objective is not set")

	bad, desc = checkIOKPIObjective(ioRow(t, map[string]any{
		"Kpi Type": "CPM", "Io Objective": "Conversions",
	}), nil)
	assert.True(t, bad)
	assert.Contains(t, desc, "IO KPI/Objective Mismatch")

	// Substring match against the acceptable objectives.
	bad, _ = checkIOKPIObjective(ioRow(t, map[string]any{
		"Kpi Type": "CPM", "Io Objective": "Brand awareness and reach",
	}), nil)
	assert.False(t, bad)

	bad, _ = checkIOKPIObjective(ioRow(t, map[string]any{
		"Kpi Type": "CPA", "Io Objective": "No Objective",
	}), nil)
	assert.False(t, bad)
}

func TestCheckIOKPIOptimizationGating(t *testing.T) {
	// Optimization disabled: check never fires.
	bad, _ := checkIOKPIOptimization(ioRow(t, map[string]any{
		"Name": "Brand - Awareness - Display", "Kpi Type": "CPA",
		"Bid Strategy Unit": "CPA", "Insertion Order Optimization": "False",
	}), nil)
	assert.False(t, bad)

	// Unparseable funnel segment: skipped.
	bad, _ = checkIOKPIOptimization(ioRow(t, map[string]any{
		"Name": "SingleSegmentName", "Kpi Type": "CPA",
		"Bid Strategy Unit": "CPA", "Insertion Order Optimization": "True",
	}), nil)
	assert.False(t, bad)
}

func TestCheckIOKPIOptimizationIncompatibleKPI(t *testing.T) {
	bad, desc := checkIOKPIOptimization(ioRow(t, map[string]any{
		"Name": "Brand - Awareness - Display", "Kpi Type": "CPA",
		"Bid Strategy Unit": "CPA", "Insertion Order Optimization": "True",
	}), nil)
	assert.True(t, bad)
	assert.Contains(t, desc, "Funnel-KPI-Optimization Compatibility Issues")
	assert.Contains(t, desc, "not compatible with funnel 'awareness'")
	assert.Contains(t, desc, "HIGH SEVERITY: Using conversion-focused KPI 'CPA' with awareness funnel")
}

func TestCheckIOKPIOptimizationBidStrategy(t *testing.T) {
	bad, desc := checkIOKPIOptimization(ioRow(t, map[string]any{
		"Name": "Brand - Awareness - Display", "Kpi Type": "CPM",
		"Bid Strategy Unit": "CPC", "Insertion Order Optimization": "True",
	}), nil)
	assert.True(t, bad)
	assert.Contains(t, desc, "Bid strategy 'CPC' is not compatible with KPI 'CPM'")
	assert.Contains(t, desc, "MEDIUM SEVERITY: CPC bid strategy with awareness funnel")
}

func TestCheckIOKPIOptimizationLineItemTypes(t *testing.T) {
	lineItems := dataset.New("Name", "Insertion order", "Type")
	lineItems.AppendRow(map[string]any{"Name": "li-1", "Insertion order": "Brand - Awareness - Display", "Type": "Demand Gen"})
	lineItems.AppendRow(map[string]any{"Name": "li-2", "Insertion order": "Brand - Awareness - Display", "Type": "Display"})
	tables := &Tables{LineItems: lineItems}

	bad, desc := checkIOKPIOptimization(ioRow(t, map[string]any{
		"Name": "Brand - Awareness - Display", "Kpi Type": "CPM",
		"Bid Strategy Unit": "CIVA", "Insertion Order Optimization": "True",
	}), tables)
	assert.True(t, bad)
	assert.Contains(t, desc, "Line item type(s) 'Demand Gen' not supported for funnel 'awareness'")
}

func TestCPMCappingCheck(t *testing.T) {
	check := newCPMCappingCheck(5.0)

	// Only CPM KPIs are checked.
	bad, _ := check(ioRow(t, map[string]any{"Kpi Type": "CTR"}), nil)
	assert.False(t, bad)

	bad, desc := check(ioRow(t, map[string]any{"Kpi Type": "CPM"}), nil)
	assert.True(t, bad)
	assert.Contains(t, desc, "no CPM cap is set")

	bad, desc = check(ioRow(t, map[string]any{"Kpi Type": "CPM", "Kpi Value": "n/a"}), nil)
	assert.True(t, bad)
	assert.Contains(t, desc, "is invalid")

	bad, desc = check(ioRow(t, map[string]any{"Kpi Type": "CPM", "Kpi Value": 0.0}), nil)
	assert.True(t, bad)
	assert.Contains(t, desc, "set to 0 (no cap)")

	bad, desc = check(ioRow(t, map[string]any{"Kpi Type": "CPM", "Kpi Value": 7.5}), nil)
	assert.True(t, bad)
	assert.Contains(t, desc, "exceeds agreed ceiling (5)")

	bad, _ = check(ioRow(t, map[string]any{"Kpi Type": "CPM", "Kpi Value": 4.0}), nil)
	assert.False(t, bad)
}
