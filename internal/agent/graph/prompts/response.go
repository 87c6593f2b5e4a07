package prompts

import (
	"context"
	_ "embed"
	"strings"

	"github.com/adam-setup/server/internal/results"
)

//go:embed template/final_response_prompt.txt
var finalResponseSystemPrompt string

// FinalResponseArgs carries everything the responder needs to write
// the closing message of an analysis turn.
type FinalResponseArgs struct {
	IntentSummary  string
	ResultSummary  string
	Links          []results.Link
	LongTermMemory string
	UserLanguage   string
}

// RenderFinalResponseSystem renders the responder system prompt.
func RenderFinalResponseSystem(ctx context.Context, args FinalResponseArgs) (string, error) {
	links := "(none)"
	if len(args.Links) > 0 {
		var b strings.Builder
		for _, l := range args.Links {
			b.WriteString("- [")
			b.WriteString(l.Label)
			b.WriteString("](")
			b.WriteString(l.URL)
			b.WriteString(")\n")
		}
		links = strings.TrimRight(b.String(), "\n")
	}
	memory := args.LongTermMemory
	if strings.TrimSpace(memory) == "" {
		memory = "(none)"
	}
	language := args.UserLanguage
	if strings.TrimSpace(language) == "" {
		language = "English"
	}

	content := strings.NewReplacer(
		"{intent_summary}", args.IntentSummary,
		"{result_summary}", args.ResultSummary,
		"{download_links}", links,
		"{long_term_memory}", memory,
		"{user_language}", language,
	).Replace(finalResponseSystemPrompt)
	return emit(ctx, "final_response", content)
}
