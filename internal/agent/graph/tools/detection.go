// Package tools exposes the graph's Eino tools: the three per-entity
// anomaly detection tools and the DV360 knowledge base search used by
// the support agent.
package tools

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"

	"github.com/adam-setup/server/internal/agent/model"
	"github.com/adam-setup/server/internal/anomaly"
	"github.com/adam-setup/server/internal/dataset"
	logx "github.com/adam-setup/server/pkg/logger"
)

// Tool names bound to the detection agent.
const (
	ToolDetectCampaigns       = "detect_campaign_anomalies"
	ToolDetectLineItems       = "detect_line_item_anomalies"
	ToolDetectInsertionOrders = "detect_insertion_order_anomalies"
)

// DetectionCollector gathers the full anomaly tables produced by tool
// calls during one detection run. The model only sees compact counts;
// the capture node reads the tables from here afterwards.
type DetectionCollector struct {
	mu      sync.Mutex
	order   []string
	results map[string]*dataset.Table
}

func NewDetectionCollector() *DetectionCollector {
	return &DetectionCollector{results: make(map[string]*dataset.Table)}
}

func (c *DetectionCollector) put(entity string, t *dataset.Table) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, seen := c.results[entity]; !seen {
		c.order = append(c.order, entity)
	}
	c.results[entity] = t
}

// Entities returns the entities detected so far, in call order.
func (c *DetectionCollector) Entities() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Table returns the anomaly table collected for an entity.
func (c *DetectionCollector) Table(entity string) (*dataset.Table, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.results[entity]
	return t, ok
}

// DetectionOutput is the compact tool result shown to the model.
type DetectionOutput struct {
	Entity        string `json:"entity"`
	RowsChecked   int    `json:"rows_checked"`
	AnomalousRows int    `json:"anomalous_rows"`
	Note          string `json:"note,omitempty"`
}

var detectionParams = map[string]*schema.ParameterInfo{
	"check_types": {
		Type:     "array",
		ElemInfo: &schema.ParameterInfo{Type: "string"},
		Desc:     "Specific check ids to run. Omit to run the entity's default set.",
	},
	"naming_convention": {
		Type: "string",
		Desc: "Partner naming convention pattern; enables the naming compliance check on line items.",
	},
	"expected_markup": {
		Type: "number",
		Desc: "Expected partner markup fraction, e.g. 0.15; enables the markup consistency check.",
	},
	"cpm_cap": {
		Type: "number",
		Desc: "CPM ceiling in USD for the insertion order capping check. Default 5.0.",
	},
}

// DetectionTools builds the three entity tools bound to one snapshot
// and one collector. Build a fresh set per turn.
func DetectionTools(engine *anomaly.Engine, snap *dataset.Snapshot, collector *DetectionCollector) []tool.BaseTool {
	tables := &anomaly.Tables{
		LineItems:       snap.LineItems,
		Campaigns:       snap.Campaigns,
		InsertionOrders: snap.InsertionOrders,
	}
	return []tool.BaseTool{
		newDetectionTool(ToolDetectCampaigns, anomaly.EntityCampaigns,
			"Run the preset campaign checks: goal completeness, KPI sanity and frequency cap configuration. Returns anomaly counts; full findings are attached to the reply automatically.",
			engine, tables, collector),
		newDetectionTool(ToolDetectLineItems, anomaly.EntityLineItems,
			"Run the preset line item checks: safeguard coverage, public inventory on premium insertion orders, partner markup and naming. Returns anomaly counts; full findings are attached to the reply automatically.",
			engine, tables, collector),
		newDetectionTool(ToolDetectInsertionOrders, anomaly.EntityInsertionOrders,
			"Run the preset insertion order checks: naming vs KPI, KPI vs campaign objective, KPI vs optimization strategy and CPM capping. Returns anomaly counts; full findings are attached to the reply automatically.",
			engine, tables, collector),
	}
}

func newDetectionTool(name, entity, desc string, engine *anomaly.Engine, tables *anomaly.Tables, collector *DetectionCollector) tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name:        name,
			Desc:        desc,
			ParamsOneOf: schema.NewParamsOneOfByParams(detectionParams),
		},
		func(ctx context.Context, in *model.DetectionArgs) (*DetectionOutput, error) {
			opts := anomaly.Options{
				CheckIDs:         in.CheckTypes,
				NamingConvention: in.NamingConvention,
				ExpectedMarkup:   in.ExpectedMarkup,
			}
			if in.CPMCap != nil {
				opts.CPMCap = *in.CPMCap
			}

			source := entityTable(tables, entity)
			if source == nil || source.Len() == 0 {
				return &DetectionOutput{Entity: entity, Note: "no rows in snapshot"}, nil
			}

			found, err := engine.Detect(ctx, entity, tables, opts)
			if err != nil {
				logx.Error().Err(err).Str("entity", entity).Msg("detection tool failed")
				return nil, fmt.Errorf("detect %s: %w", entity, err)
			}
			collector.put(entity, found)

			return &DetectionOutput{
				Entity:        entity,
				RowsChecked:   source.Len(),
				AnomalousRows: found.Len(),
			}, nil
		},
	)
}

func entityTable(tables *anomaly.Tables, entity string) *dataset.Table {
	switch entity {
	case anomaly.EntityCampaigns:
		return tables.Campaigns
	case anomaly.EntityLineItems:
		return tables.LineItems
	case anomaly.EntityInsertionOrders:
		return tables.InsertionOrders
	}
	return nil
}
