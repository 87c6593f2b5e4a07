package prompts

import (
	"context"
	_ "embed"
	"strings"
)

//go:embed template/detection_prompt.txt
var detectionSystemPrompt string

//go:embed template/dsp_prompt.txt
var dspSystemPrompt string

// RenderDetectionSystem renders the anomaly detection operator prompt.
func RenderDetectionSystem(ctx context.Context, partner, intentSummary string) (string, error) {
	content := strings.NewReplacer(
		"{partner_id}", partner,
		"{intent_summary}", intentSummary,
	).Replace(detectionSystemPrompt)
	return emit(ctx, "detection", content)
}

// RenderDSPSystem renders the product support agent prompt.
func RenderDSPSystem(ctx context.Context) (string, error) {
	return emit(ctx, "dsp", dspSystemPrompt)
}
