package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/adam-setup/server/internal/agent/model"
	"github.com/adam-setup/server/internal/dataset"
)

//go:embed template/analyser_prompt.txt
var analyserSystemPrompt string

//go:embed template/codegen_prompt.txt
var codegenSystemPrompt string

//go:embed template/instruction_targeting.txt
var instructionTargeting string

//go:embed template/instruction_budget.txt
var instructionBudget string

//go:embed template/instruction_quality.txt
var instructionQuality string

//go:embed template/instruction_other.txt
var instructionOther string

// InstructionBlock returns the category-specific analysis guidance
// injected into the analyser prompt. Unknown categories fall back to
// the free-form block.
func InstructionBlock(category string) string {
	switch category {
	case model.IntentTargetingCheck:
		return strings.TrimSpace(instructionTargeting)
	case model.IntentBudgetCheck:
		return strings.TrimSpace(instructionBudget)
	case model.IntentQualityCheck:
		return strings.TrimSpace(instructionQuality)
	default:
		return strings.TrimSpace(instructionOther)
	}
}

// SchemaBlock renders the per-table column inventory of a loaded
// snapshot. The analyser and the code generator both consume it, so
// briefings and scripts agree on the column names that actually exist.
func SchemaBlock(snap *dataset.Snapshot) string {
	var b strings.Builder
	tables := []struct {
		name  string
		table *dataset.Table
	}{
		{"Line_Items", snap.LineItems},
		{"Campaigns", snap.Campaigns},
		{"Insertion_orders", snap.InsertionOrders},
	}
	for _, t := range tables {
		fmt.Fprintf(&b, "%s (%d rows):", t.name, t.table.Len())
		cols := t.table.Columns()
		if len(cols) == 0 {
			b.WriteString(" (no columns)")
		}
		for i, c := range cols {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, " %q", c)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

const schemaUnavailable = "(snapshot columns unavailable)"

// RenderAnalyserSystem renders the briefing planner system prompt.
func RenderAnalyserSystem(ctx context.Context, category, summary, instructionBlock, schemaBlock string) (string, error) {
	if instructionBlock == "" {
		instructionBlock = InstructionBlock(category)
	}
	if strings.TrimSpace(schemaBlock) == "" {
		schemaBlock = schemaUnavailable
	}
	content := strings.NewReplacer(
		"{intent_category}", category,
		"{intent_summary}", summary,
		"{instruction_block}", instructionBlock,
		"{schema_block}", schemaBlock,
	).Replace(analyserSystemPrompt)
	return emit(ctx, "analyser", content)
}

// RenderCodeGenSystem renders the script generator system prompt for a
// briefing and the snapshot schema the script may reference.
func RenderCodeGenSystem(ctx context.Context, briefing, schemaBlock string) (string, error) {
	if strings.TrimSpace(schemaBlock) == "" {
		schemaBlock = schemaUnavailable
	}
	content := strings.NewReplacer(
		"{briefing}", briefing,
		"{schema_block}", schemaBlock,
	).Replace(codegenSystemPrompt)
	return emit(ctx, "codegen", content)
}

// CodeRetryMessage builds the user-role correction message sent back to
// the code generator after a failed execution.
func CodeRetryMessage(previousCode, execError string) string {
	var b strings.Builder
	b.WriteString("The previous script failed. Fix it and reply with the complete corrected script in one fenced code block.\n\n")
	fmt.Fprintf(&b, "Error:\n%s\n\n", strings.TrimSpace(execError))
	fmt.Fprintf(&b, "Previous script:\n```python\n%s\n```\n", strings.TrimSpace(previousCode))
	return b.String()
}
