package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/adam-setup/server/internal/anomaly"
)

//go:embed template/naming_format_prompt.txt
var namingFormatSystemPrompt string

//go:embed template/naming_setup_prompt.txt
var namingSetupSystemPrompt string

// RenderNamingFormat renders the batched naming compliance prompt.
func RenderNamingFormat(ctx context.Context, names []string, convention string) (string, error) {
	var b strings.Builder
	for _, n := range names {
		b.WriteString("- ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	content := strings.NewReplacer(
		"{naming_convention}", convention,
		"{names}", strings.TrimRight(b.String(), "\n"),
	).Replace(namingFormatSystemPrompt)
	return emit(ctx, "naming_format", content)
}

// RenderNamingSetup renders the name-versus-setup consistency prompt.
func RenderNamingSetup(ctx context.Context, items []anomaly.SetupItem, convention string) (string, error) {
	var b strings.Builder
	for _, item := range items {
		fmt.Fprintf(&b, "### %s\n", item.Name)
		for _, f := range item.Fields {
			fmt.Fprintf(&b, "%s: %s\n", f.Column, f.Value)
		}
	}
	content := strings.NewReplacer(
		"{naming_convention}", convention,
		"{items}", strings.TrimRight(b.String(), "\n"),
	).Replace(namingSetupSystemPrompt)
	return emit(ctx, "naming_setup", content)
}
