package prompts

import (
	"context"
	_ "embed"
	"strings"
)

//go:embed template/classifier_prompt.txt
var classifierSystemPrompt string

// maxRosterNames bounds how many advertiser names enter the prompt.
const maxRosterNames = 50

// maxPreviousCodeChars bounds the prior-script context in the prompt.
const maxPreviousCodeChars = 1500

// RenderClassifierSystem renders the intent classifier system prompt
// with the partner's advertiser roster, the user's long-term notes and
// the previous turn's generated script for follow-up resolution.
func RenderClassifierSystem(ctx context.Context, partner string, advertisers []string, longTermMemory, previousCode string) (string, error) {
	roster := "(no setup data loaded)"
	if len(advertisers) > 0 {
		names := advertisers
		if len(names) > maxRosterNames {
			names = names[:maxRosterNames]
		}
		roster = "- " + strings.Join(names, "\n- ")
	}
	if strings.TrimSpace(longTermMemory) == "" {
		longTermMemory = "(nothing yet)"
	}
	previousCode = strings.TrimSpace(previousCode)
	if previousCode == "" {
		previousCode = "(none)"
	} else if len(previousCode) > maxPreviousCodeChars {
		previousCode = previousCode[:maxPreviousCodeChars] + "\n... (truncated)"
	}

	content := strings.NewReplacer(
		"{partner_id}", partner,
		"{advertisers}", roster,
		"{long_term_memory}", longTermMemory,
		"{previous_code}", previousCode,
	).Replace(classifierSystemPrompt)

	return emit(ctx, "classifier", content)
}
