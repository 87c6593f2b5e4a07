// Package prompts holds the embedded prompt templates and their render
// functions. Templates contain literal JSON braces, so rendering uses
// strings.NewReplacer over known tokens and pushes the finished text
// through an Eino prompt component so prompt callbacks still fire.
package prompts

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

// emit wraps the rendered text in an Eino prompt component using a
// messages placeholder, which emits prompt callbacks without another
// round of template substitution.
func emit(ctx context.Context, name, content string) (string, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("%s prompt callbacks: %w", name, err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("%s prompt callbacks: empty result", name)
	}
	return msgs[0].Content, nil
}
