package prompts

import (
	"context"
	_ "embed"
	"strings"
)

//go:embed template/memory_prompt.txt
var memorySystemPrompt string

// RenderMemoryUpdate renders the preference distillation prompt from
// the existing notes and the finished turn's transcript.
func RenderMemoryUpdate(ctx context.Context, existingNotes, transcript string) (string, error) {
	if strings.TrimSpace(existingNotes) == "" {
		existingNotes = "(empty)"
	}
	content := strings.NewReplacer(
		"{existing_notes}", existingNotes,
		"{transcript}", transcript,
	).Replace(memorySystemPrompt)
	return emit(ctx, "memory", content)
}
