// Package anomaly implements the preset setup checks that run against
// account snapshots: campaign goal/KPI/frequency validation, line item
// safeguards and consistency checks, and insertion order KPI coherence.
package anomaly

import (
	"context"

	"github.com/adam-setup/server/internal/dataset"
)

// Entity identifiers accepted by Engine.Detect.
const (
	EntityCampaigns       = "campaigns"
	EntityLineItems       = "line_items"
	EntityInsertionOrders = "insertion_orders"
)

// Check identifiers. Empty Options.CheckIDs selects the per-entity
// default set.
const (
	CheckCampaignGoal      = "goal"
	CheckCampaignKPI       = "kpi"
	CheckCampaignFrequency = "frequency"

	CheckLISafeguards  = "safeguards"
	CheckLIInventory   = "inventory"
	CheckLIMarkup      = "markup"
	CheckLINaming      = "naming"
	CheckLINamingSetup = "naming_setup"

	CheckIONamingKPI       = "naming_kpi"
	CheckIOKPIObjective    = "kpi_objective"
	CheckIOKPIOptimization = "kpi_optimization"
	CheckIOCPMCapping      = "cpm_capping"
)

// DefaultCPMCap is the agreed CPM ceiling applied when no override is
// supplied with the request.
const DefaultCPMCap = 5.0

// DefaultLINamingConvention is the partner default pattern for line
// item names.
const DefaultLINamingConvention = "Country/Language - Targeting/Publisher - Device (Opt)"

// DescriptionColumn is appended to every detection result table.
const DescriptionColumn = "anomalies_description"

// Tables bundles the three entity tables every check can consult.
type Tables struct {
	LineItems       *dataset.Table
	Campaigns       *dataset.Table
	InsertionOrders *dataset.Table
}

// Options carries the per-request detection parameters.
type Options struct {
	// CheckIDs selects specific checks. Empty means the entity default set.
	CheckIDs []string
	// NamingConvention overrides the partner default pattern for the
	// LLM naming checks.
	NamingConvention string
	// ExpectedMarkup enables the line item markup consistency check.
	ExpectedMarkup *float64
	// CPMCap overrides DefaultCPMCap for the insertion order CPM check.
	CPMCap float64
}

func (o Options) namingConvention() string {
	if o.NamingConvention != "" {
		return o.NamingConvention
	}
	return DefaultLINamingConvention
}

func (o Options) cpmCap() float64 {
	if o.CPMCap > 0 {
		return o.CPMCap
	}
	return DefaultCPMCap
}

// CheckFunc evaluates one row. It returns whether the row is abnormal
// and the description to surface when it is.
type CheckFunc func(row dataset.Row, tables *Tables) (bool, string)

// SetupField is one configuration column of a line item presented to the
// naming-vs-setup analyst.
type SetupField struct {
	Column string
	Value  string
}

// SetupItem is a line item name plus its populated targeting columns.
type SetupItem struct {
	Name   string
	Fields []SetupField
}

// NamingAnalyst performs the batched LLM naming checks. Both methods
// return a name-to-description map covering only the flagged names.
type NamingAnalyst interface {
	CheckNamingFormat(ctx context.Context, names []string, convention string) (map[string]string, error)
	CheckNamingVsSetup(ctx context.Context, items []SetupItem, convention string) (map[string]string, error)
}
