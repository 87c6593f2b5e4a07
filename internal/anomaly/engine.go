package anomaly

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/adam-setup/server/internal/dataset"
	logx "github.com/adam-setup/server/pkg/logger"
)

// maxNamingFormatNames bounds the batched naming format prompt.
const maxNamingFormatNames = 100

// maxNamingSetupItems bounds the batched naming-vs-setup prompt.
const maxNamingSetupItems = 50

// defaultRowConcurrency bounds the per-row check fan-out.
const defaultRowConcurrency = 8

// namingSetupColumns are the configuration columns presented to the
// naming-vs-setup analyst, in prompt order.
var namingSetupColumns = []string{
	"Geography Targeting - Include",
	"Geography Targeting - Exclude",
	"Device Targeting - Include",
	"Device Targeting - Exclude",
	"Language Targeting - Include",
	"Audience Targeting - Include",
	"Affinity & In Market Targeting - Include",
	"Combined Audience Targeting",
	"Channel Targeting - Include",
	"Site Targeting - Include",
	"Environment Targeting",
	"Demographic Targeting Age",
	"Demographic Targeting Gender",
	"Content Genre Targeting - Include",
	"Category Targeting - Include",
}

// Engine runs the preset detection checks over a snapshot.
type Engine struct {
	analyst     NamingAnalyst
	concurrency int
}

// NewEngine creates an Engine. analyst may be nil, in which case the
// LLM naming checks are skipped.
func NewEngine(analyst NamingAnalyst) *Engine {
	return &Engine{analyst: analyst, concurrency: defaultRowConcurrency}
}

// Detect dispatches to the entity specific detection. It returns a copy
// of the entity table reduced to abnormal rows with an appended
// anomalies_description column.
func (e *Engine) Detect(ctx context.Context, entity string, tables *Tables, opts Options) (*dataset.Table, error) {
	switch entity {
	case EntityCampaigns:
		return e.DetectCampaignAnomalies(ctx, tables, opts)
	case EntityLineItems:
		return e.DetectLineItemAnomalies(ctx, tables, opts)
	case EntityInsertionOrders:
		return e.DetectInsertionOrderAnomalies(ctx, tables, opts)
	default:
		return nil, fmt.Errorf("unknown entity %q", entity)
	}
}

type namedCheck struct {
	id string
	fn CheckFunc
}

// DetectCampaignAnomalies runs the campaign checks.
func (e *Engine) DetectCampaignAnomalies(ctx context.Context, tables *Tables, opts Options) (*dataset.Table, error) {
	available := []namedCheck{
		{CheckCampaignGoal, checkCampaignGoal},
		{CheckCampaignKPI, checkCampaignKPI},
		{CheckCampaignFrequency, checkCampaignFrequency},
	}
	checks := selectChecks(available, opts.CheckIDs, EntityCampaigns)
	return e.runRowChecks(ctx, tables.Campaigns, tables, checks, nil)
}

// DetectInsertionOrderAnomalies runs the insertion order checks.
func (e *Engine) DetectInsertionOrderAnomalies(ctx context.Context, tables *Tables, opts Options) (*dataset.Table, error) {
	available := []namedCheck{
		{CheckIONamingKPI, checkIONamingKPI},
		{CheckIOKPIObjective, checkIOKPIObjective},
		{CheckIOKPIOptimization, checkIOKPIOptimization},
		{CheckIOCPMCapping, newCPMCappingCheck(opts.cpmCap())},
	}
	checks := selectChecks(available, opts.CheckIDs, EntityInsertionOrders)
	return e.runRowChecks(ctx, tables.InsertionOrders, tables, checks, nil)
}

// DetectLineItemAnomalies runs the per-row line item checks plus the
// batched LLM naming checks, then merges both result sets.
func (e *Engine) DetectLineItemAnomalies(ctx context.Context, tables *Tables, opts Options) (*dataset.Table, error) {
	available := []namedCheck{
		{CheckLISafeguards, checkLISafeguards},
		{CheckLIInventory, checkLIInventory},
	}
	if opts.ExpectedMarkup != nil {
		available = append(available, namedCheck{CheckLIMarkup, newMarkupCheck(*opts.ExpectedMarkup)})
	}

	requested := opts.CheckIDs
	wantNaming := len(requested) == 0 && opts.NamingConvention != ""
	wantNamingSetup := len(requested) == 0
	for _, id := range requested {
		switch id {
		case CheckLINaming:
			wantNaming = true
		case CheckLINamingSetup:
			wantNamingSetup = true
		}
	}

	// Row checks resolve against the non-batch set only.
	rowIDs := make([]string, 0, len(requested))
	for _, id := range requested {
		if id != CheckLINaming && id != CheckLINamingSetup {
			rowIDs = append(rowIDs, id)
		}
	}
	if len(requested) > 0 && len(rowIDs) == 0 {
		// Only batch checks were requested; no per-row checks run.
		available = nil
	}
	checks := selectChecks(available, rowIDs, EntityLineItems)

	batch := e.runNamingChecks(ctx, tables.LineItems, opts, wantNaming, wantNamingSetup)
	return e.runRowChecks(ctx, tables.LineItems, tables, checks, batch)
}

// runNamingChecks executes the batched analyst checks and returns the
// ordered name-to-description maps to merge after the row loop. Analyst
// failures degrade to empty maps so the row checks still produce output.
func (e *Engine) runNamingChecks(ctx context.Context, lineItems *dataset.Table, opts Options, wantNaming, wantSetup bool) []map[string]string {
	if e.analyst == nil || lineItems == nil {
		return nil
	}
	convention := opts.namingConvention()
	var batch []map[string]string

	if wantNaming {
		names := uniqueNames(lineItems, maxNamingFormatNames)
		if len(names) > 0 {
			found, err := e.analyst.CheckNamingFormat(ctx, names, convention)
			if err != nil {
				logx.Warn().Err(err).Msg("Naming format check failed, skipping")
				found = nil
			}
			batch = append(batch, found)
		}
	}

	if wantSetup {
		items := setupItems(lineItems, maxNamingSetupItems)
		if len(items) > 0 {
			found, err := e.analyst.CheckNamingVsSetup(ctx, items, convention)
			if err != nil {
				logx.Warn().Err(err).Msg("Naming vs setup check failed, skipping")
				found = nil
			}
			batch = append(batch, found)
		}
	}
	return batch
}

// runRowChecks evaluates every check for every row, merges batch
// results keyed by the Name column, and returns the abnormal rows with
// their joined descriptions in the original row order.
func (e *Engine) runRowChecks(ctx context.Context, table *dataset.Table, tables *Tables, checks []namedCheck, batch []map[string]string) (*dataset.Table, error) {
	if table == nil {
		return nil, fmt.Errorf("entity table is nil")
	}

	descriptions := make([]any, table.Len())
	abnormal := make([]bool, table.Len())

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := 0; i < table.Len(); i++ {
		g.Go(func() error {
			row := table.Row(i)
			var found []string
			for _, c := range checks {
				bad, desc := e.safeCheck(c, row, tables, i)
				if bad {
					found = append(found, desc)
				}
			}
			name := row.Str("Name")
			for _, m := range batch {
				if desc, ok := m[name]; ok {
					found = append(found, desc)
				}
			}
			abnormal[i] = len(found) > 0
			descriptions[i] = strings.Join(found, "; ")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	annotated, err := table.WithColumn(DescriptionColumn, descriptions)
	if err != nil {
		return nil, err
	}
	idx := 0
	out := annotated.Filter(func(dataset.Row) bool {
		keep := abnormal[idx]
		idx++
		return keep
	})
	return out, nil
}

// safeCheck isolates a single check so one misbehaving predicate cannot
// take down the whole detection run.
func (e *Engine) safeCheck(c namedCheck, row dataset.Row, tables *Tables, rowIdx int) (bad bool, desc string) {
	defer func() {
		if r := recover(); r != nil {
			logx.Warn().
				Str("check", c.id).
				Int("row", rowIdx).
				Interface("panic", r).
				Msg("Check panicked, skipping for this row")
			bad, desc = false, ""
		}
	}()
	return c.fn(row, tables)
}

// selectChecks resolves requested check ids against the available set,
// preserving the canonical check order. Unknown ids are logged and
// skipped so one bad id does not abort the run. Empty ids select all.
func selectChecks(available []namedCheck, ids []string, entity string) []namedCheck {
	if len(ids) == 0 {
		return available
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []namedCheck
	for _, c := range available {
		if want[c.id] {
			out = append(out, c)
			delete(want, c.id)
		}
	}
	for id := range want {
		logx.Warn().Str("entity", entity).Str("check", id).Msg("Unknown check id, skipping")
	}
	return out
}

func uniqueNames(table *dataset.Table, limit int) []string {
	seen := make(map[string]bool)
	var names []string
	for i := 0; i < table.Len() && len(names) < limit; i++ {
		row := table.Row(i)
		if row.Empty("Name") {
			continue
		}
		name := row.Str("Name")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

func setupItems(table *dataset.Table, limit int) []SetupItem {
	var items []SetupItem
	for i := 0; i < table.Len() && len(items) < limit; i++ {
		row := table.Row(i)
		if row.Empty("Name") {
			continue
		}
		item := SetupItem{Name: row.Str("Name")}
		for _, col := range namingSetupColumns {
			if table.HasColumn(col) && !row.Empty(col) {
				item.Fields = append(item.Fields, SetupField{Column: col, Value: row.Str(col)})
			}
		}
		items = append(items, item)
	}
	return items
}
