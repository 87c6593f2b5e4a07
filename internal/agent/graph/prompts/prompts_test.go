package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/adam-setup/server/internal/agent/model"
	"github.com/adam-setup/server/internal/anomaly"
	"github.com/adam-setup/server/internal/dataset"
	"github.com/adam-setup/server/internal/results"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderClassifierSystem(t *testing.T) {
	got, err := RenderClassifierSystem(context.Background(), "partner-42",
		[]string{"Acme Corp", "Globex"}, "prefers EUR", "def main(a, b, c):\n    return a")
	require.NoError(t, err)
	assert.Contains(t, got, "partner-42")
	assert.Contains(t, got, "- Acme Corp")
	assert.Contains(t, got, "prefers EUR")
	assert.Contains(t, got, "def main(a, b, c):")
	// The JSON contract braces survive rendering untouched.
	assert.Contains(t, got, `{"intent_category":`)
	assert.NotContains(t, got, "{partner_id}")
}

func TestRenderClassifierSystemEmptyContext(t *testing.T) {
	got, err := RenderClassifierSystem(context.Background(), "p", nil, "", "")
	require.NoError(t, err)
	assert.Contains(t, got, "(no setup data loaded)")
	assert.Contains(t, got, "(nothing yet)")
	assert.Contains(t, got, "(none)")
}

func TestRenderClassifierSystemBounds(t *testing.T) {
	names := make([]string, 80)
	for i := range names {
		names[i] = "Advertiser " + string(rune('A'+i%26))
	}
	long := make([]byte, 4000)
	for i := range long {
		long[i] = 'x'
	}
	got, err := RenderClassifierSystem(context.Background(), "p", names, "", string(long))
	require.NoError(t, err)
	assert.Contains(t, got, "... (truncated)")
	assert.LessOrEqual(t, strings.Count(got, "- Advertiser"), maxRosterNames)
}

func TestInstructionBlocks(t *testing.T) {
	assert.Contains(t, InstructionBlock(model.IntentTargetingCheck), "Geography Targeting")
	assert.Contains(t, InstructionBlock(model.IntentBudgetCheck), "Partner Revenue Amount")
	assert.Contains(t, InstructionBlock(model.IntentQualityCheck), "Campaign Goal KPI")
	// Unknown categories use the free-form guidance.
	assert.Contains(t, InstructionBlock("whatever"), "Free-form analysis")
}

func TestSchemaBlock(t *testing.T) {
	li := dataset.New("Line Item", "Budget")
	li.AppendRow(map[string]any{"Line Item": "LI Alpha", "Budget": 100.0})
	snap := &dataset.Snapshot{
		LineItems:       li,
		Campaigns:       dataset.New("Campaign Name", "Campaign Goal"),
		InsertionOrders: dataset.New("Io Name"),
	}
	got := SchemaBlock(snap)
	assert.Contains(t, got, `Line_Items (1 rows): "Line Item", "Budget"`)
	assert.Contains(t, got, `Campaigns (0 rows): "Campaign Name", "Campaign Goal"`)
	assert.Contains(t, got, `Insertion_orders (0 rows): "Io Name"`)
}

func TestRenderAnalyserSystem(t *testing.T) {
	got, err := RenderAnalyserSystem(context.Background(), model.IntentBudgetCheck,
		"Check pacing on Acme line items", "", `Line_Items (2 rows): "Line Item", "Budget"`)
	require.NoError(t, err)
	assert.Contains(t, got, "Check pacing on Acme line items")
	assert.Contains(t, got, "Partner Revenue Amount")
	assert.Contains(t, got, `"Line Item", "Budget"`)
	assert.Contains(t, got, "<briefing>")
	assert.NotContains(t, got, "{schema_block}")
}

func TestRenderCodeGenSystem(t *testing.T) {
	got, err := RenderCodeGenSystem(context.Background(), "Sum budgets per advertiser.",
		`Line_Items (2 rows): "Line Item", "Budget"`)
	require.NoError(t, err)
	assert.Contains(t, got, "Sum budgets per advertiser.")
	assert.Contains(t, got, `"Line Item", "Budget"`)
	assert.Contains(t, got, "Do not invent column names")
	assert.Contains(t, got, "def main(Line_Items, Campaigns, Insertion_orders):")
	assert.Contains(t, got, "no sum() builtin")

	// A missing snapshot still renders a complete prompt.
	got, err = RenderCodeGenSystem(context.Background(), "Sum budgets.", "")
	require.NoError(t, err)
	assert.Contains(t, got, "(snapshot columns unavailable)")
}

func TestCodeRetryMessage(t *testing.T) {
	msg := CodeRetryMessage("def main(a, b, c):\n    return x", `undefined: x`)
	assert.Contains(t, msg, "undefined: x")
	assert.Contains(t, msg, "```python\ndef main(a, b, c):")
}

func TestRenderDetectionSystem(t *testing.T) {
	got, err := RenderDetectionSystem(context.Background(), "p-7", "full audit")
	require.NoError(t, err)
	assert.Contains(t, got, "p-7")
	assert.Contains(t, got, "detect_line_item_anomalies")
}

func TestRenderFinalResponseSystem(t *testing.T) {
	got, err := RenderFinalResponseSystem(context.Background(), FinalResponseArgs{
		IntentSummary: "budget review",
		ResultSummary: "## result\n3 rows",
		Links:         []results.Link{{Label: "result", URL: "/artifacts/a.csv"}},
	})
	require.NoError(t, err)
	assert.Contains(t, got, "budget review")
	assert.Contains(t, got, "[result](/artifacts/a.csv)")
	assert.Contains(t, got, "(none)") // no long-term memory
	assert.Contains(t, got, "Reply in English")

	got, err = RenderFinalResponseSystem(context.Background(), FinalResponseArgs{
		IntentSummary: "budget review",
		ResultSummary: "ok",
		UserLanguage:  "Thai",
	})
	require.NoError(t, err)
	assert.Contains(t, got, "Reply in Thai")
}

func TestRenderNamingPrompts(t *testing.T) {
	got, err := RenderNamingFormat(context.Background(),
		[]string{"BE/FR - Display - Mobile"}, "Country/Language - Channel - Device")
	require.NoError(t, err)
	assert.Contains(t, got, "- BE/FR - Display - Mobile")
	assert.Contains(t, got, "Country/Language - Channel - Device")

	got, err = RenderNamingSetup(context.Background(), []anomaly.SetupItem{
		{Name: "BE/FR - Display - Mobile", Fields: []anomaly.SetupField{
			{Column: "Device Targeting - Include", Value: "Smart Phone"},
		}},
	}, "Country/Language - Channel - Device")
	require.NoError(t, err)
	assert.Contains(t, got, "### BE/FR - Display - Mobile")
	assert.Contains(t, got, "Device Targeting - Include: Smart Phone")
}

func TestRenderMemoryUpdate(t *testing.T) {
	got, err := RenderMemoryUpdate(context.Background(), "", "user: hi\nassistant: hello")
	require.NoError(t, err)
	assert.Contains(t, got, "(empty)")
	assert.Contains(t, got, "user: hi")
}
