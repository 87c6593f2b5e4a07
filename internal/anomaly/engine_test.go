package anomaly

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adam-setup/server/internal/dataset"
)

type stubAnalyst struct {
	formatResult map[string]string
	setupResult  map[string]string
	formatErr    error
	setupErr     error

	gotNames []string
	gotItems []SetupItem
}

func (s *stubAnalyst) CheckNamingFormat(_ context.Context, names []string, _ string) (map[string]string, error) {
	s.gotNames = names
	return s.formatResult, s.formatErr
}

func (s *stubAnalyst) CheckNamingVsSetup(_ context.Context, items []SetupItem, _ string) (map[string]string, error) {
	s.gotItems = items
	return s.setupResult, s.setupErr
}

func campaignFixture() *Tables {
	campaigns := dataset.New(
		"Name", "Campaign Goal", "Campaign Goal KPI", "Campaign Goal KPI Value",
		"Frequency Enabled", "Frequency Exposures", "Frequency Amount", "Frequency Period",
	)
	campaigns.AppendRow(map[string]any{
		"Name": "Healthy", "Campaign Goal": "Drive online action or visits",
		"Campaign Goal KPI": "CTR", "Campaign Goal KPI Value": 0.3,
		"Frequency Enabled": "True", "Frequency Exposures": 5.0,
		"Frequency Amount": 1.0, "Frequency Period": "Days",
	})
	campaigns.AppendRow(map[string]any{
		"Name": "Broken", "Campaign Goal": "Wrong goal",
		"Frequency Enabled": "False",
	})
	return &Tables{Campaigns: campaigns, LineItems: dataset.New("Name"), InsertionOrders: dataset.New("Name")}
}

func TestDetectCampaignAnomaliesFiltersAndAggregates(t *testing.T) {
	engine := NewEngine(nil)
	out, err := engine.DetectCampaignAnomalies(context.Background(), campaignFixture(), Options{})
	require.NoError(t, err)

	// Only the abnormal row survives, with all findings joined.
	require.Equal(t, 1, out.Len())
	row := out.Row(0)
	assert.Equal(t, "Broken", row.Str("Name"))
	desc := row.Str(DescriptionColumn)
	assert.Contains(t, desc, "Campaign Goal Mismatch")
	assert.Contains(t, desc, "Campaign KPI type is missing;")
	assert.Contains(t, desc, "Frequency capping is disabled;")
	// Findings are joined with "; " in canonical check order.
	assert.Regexp(t, `Campaign Goal Mismatch.*; Campaign KPI type is missing;; Frequency capping is disabled;`, desc)
}

func TestDetectCampaignAnomaliesHealthySnapshot(t *testing.T) {
	tables := campaignFixture()
	tables.Campaigns = tables.Campaigns.Head(1)

	engine := NewEngine(nil)
	out, err := engine.DetectCampaignAnomalies(context.Background(), tables, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Len())
	assert.Contains(t, out.Columns(), DescriptionColumn)
}

func TestSelectChecksSkipsUnknownIDs(t *testing.T) {
	engine := NewEngine(nil)
	tables := campaignFixture()

	out, err := engine.DetectCampaignAnomalies(context.Background(), tables, Options{
		CheckIDs: []string{CheckCampaignGoal, "bogus_check"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	desc := out.Row(0).Str(DescriptionColumn)
	assert.Contains(t, desc, "Campaign Goal Mismatch")
	assert.NotContains(t, desc, "Frequency")
}

func TestDetectPreservesRowOrder(t *testing.T) {
	campaigns := dataset.New("Name", "Campaign Goal")
	for _, name := range []string{"c1", "c2", "c3"} {
		campaigns.AppendRow(map[string]any{"Name": name})
	}
	tables := &Tables{Campaigns: campaigns}

	engine := NewEngine(nil)
	out, err := engine.DetectCampaignAnomalies(context.Background(), tables, Options{
		CheckIDs: []string{CheckCampaignGoal},
	})
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())
	for i, want := range []string{"c1", "c2", "c3"} {
		assert.Equal(t, want, out.Row(i).Str("Name"))
	}
}

func lineItemFixture() *Tables {
	lineItems := dataset.New(
		"Name", "Io Name", "Status",
		"Inventory Source Targeting - Include", "Private Deal Group Targeting Include",
		"Geography Targeting - Include", "Device Targeting - Include",
	)
	lineItems.AppendRow(map[string]any{
		"Name": "BE-FR - Pub - Mobile", "Io Name": "Brand - Awareness - Premium Display",
		"Status": "Paused", "Inventory Source Targeting - Include": "Open Exchange",
		"Geography Targeting - Include": "Belgium", "Device Targeting - Include": "Smart Phone",
	})
	lineItems.AppendRow(map[string]any{
		"Name": "weird name", "Io Name": "Brand - Awareness - Display", "Status": "Paused",
	})
	return &Tables{LineItems: lineItems, Campaigns: dataset.New("Name"), InsertionOrders: dataset.New("Name")}
}

func TestDetectLineItemAnomaliesMergesBatchResults(t *testing.T) {
	analyst := &stubAnalyst{
		formatResult: map[string]string{"weird name": "Naming Convention Non-Compliance: too few segments;"},
		setupResult:  map[string]string{"BE-FR - Pub - Mobile": "Naming vs Setup Mismatch: Device: name implies 'Mobile' but actual is 'Desktop';"},
	}
	engine := NewEngine(analyst)

	out, err := engine.DetectLineItemAnomalies(context.Background(), lineItemFixture(), Options{
		CheckIDs: []string{CheckLIInventory, CheckLINaming, CheckLINamingSetup},
	})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	first := out.Row(0)
	assert.Equal(t, "BE-FR - Pub - Mobile", first.Str("Name"))
	desc := first.Str(DescriptionColumn)
	assert.Contains(t, desc, "Premium IO Uses Public Inventory")
	assert.Contains(t, desc, "Naming vs Setup Mismatch")

	second := out.Row(1)
	assert.Contains(t, second.Str(DescriptionColumn), "Naming Convention Non-Compliance")

	// The analyst saw the unique names and the populated setup columns.
	assert.Equal(t, []string{"BE-FR - Pub - Mobile", "weird name"}, analyst.gotNames)
	require.Len(t, analyst.gotItems, 2)
	assert.Equal(t, "Geography Targeting - Include", analyst.gotItems[0].Fields[0].Column)
}

func TestDetectLineItemAnomaliesAnalystFailureDegrades(t *testing.T) {
	analyst := &stubAnalyst{formatErr: assert.AnError, setupErr: assert.AnError}
	engine := NewEngine(analyst)

	out, err := engine.DetectLineItemAnomalies(context.Background(), lineItemFixture(), Options{
		CheckIDs: []string{CheckLIInventory, CheckLINaming, CheckLINamingSetup},
	})
	require.NoError(t, err)
	// The inventory finding still comes through.
	require.Equal(t, 1, out.Len())
	assert.Contains(t, out.Row(0).Str(DescriptionColumn), "Premium IO Uses Public Inventory")
}

func TestDetectDispatch(t *testing.T) {
	engine := NewEngine(nil)
	tables := campaignFixture()

	out, err := engine.Detect(context.Background(), EntityCampaigns, tables, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Len())

	_, err = engine.Detect(context.Background(), "widgets", tables, Options{})
	assert.Error(t, err)
}
