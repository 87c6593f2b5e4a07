package tools

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/adam-setup/server/internal/agent/graph/parsers"
	"github.com/adam-setup/server/internal/agent/graph/prompts"
	"github.com/adam-setup/server/internal/agent/llm"
	"github.com/adam-setup/server/internal/anomaly"
)

// LLMNamingAnalyst performs the batched naming checks with the utility
// model. It satisfies anomaly.NamingAnalyst.
type LLMNamingAnalyst struct {
	client llm.Client
}

func NewLLMNamingAnalyst(client llm.Client) *LLMNamingAnalyst {
	return &LLMNamingAnalyst{client: client}
}

func (a *LLMNamingAnalyst) CheckNamingFormat(ctx context.Context, names []string, convention string) (map[string]string, error) {
	if len(names) == 0 {
		return map[string]string{}, nil
	}
	system, err := prompts.RenderNamingFormat(ctx, names, convention)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, system, "Audit the listed names against the convention.")
}

func (a *LLMNamingAnalyst) CheckNamingVsSetup(ctx context.Context, items []anomaly.SetupItem, convention string) (map[string]string, error) {
	if len(items) == 0 {
		return map[string]string{}, nil
	}
	system, err := prompts.RenderNamingSetup(ctx, items, convention)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, system, "Audit the listed line items for name versus setup contradictions.")
}

func (a *LLMNamingAnalyst) run(ctx context.Context, system, instruction string) (map[string]string, error) {
	reply, err := a.client.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(instruction),
	})
	if err != nil {
		return nil, fmt.Errorf("naming analyst: %w", err)
	}
	return parsers.ParseNameMap(reply.Content)
}

var _ anomaly.NamingAnalyst = (*LLMNamingAnalyst)(nil)
