// Package llm wraps the Gemini chat models behind a narrow interface so
// graph nodes and tests do not depend on a concrete provider.
package llm

import (
	"context"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/adam-setup/server/internal/agent/model"
	logx "github.com/adam-setup/server/pkg/logger"
)

// Client is the single-call surface the agent nodes use.
type Client interface {
	Generate(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.Message, error)
}

// UsageFunc receives the computed USD cost of one model call.
type UsageFunc func(totalUSD float64)

type usageAccumulatorKey struct{}

// UsageAccumulator sums per-call USD costs across one conversational
// turn. It is carried on the context so every cost-logged model call
// inside the turn contributes to one total.
type UsageAccumulator struct {
	mu    sync.Mutex
	total float64
}

func (a *UsageAccumulator) add(v float64) {
	a.mu.Lock()
	a.total += v
	a.mu.Unlock()
}

// TotalUSD returns the accumulated cost so far.
func (a *UsageAccumulator) TotalUSD() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.total
}

// WithUsageAccumulator attaches acc to ctx.
func WithUsageAccumulator(ctx context.Context, acc *UsageAccumulator) context.Context {
	return context.WithValue(ctx, usageAccumulatorKey{}, acc)
}

func accumulatorFrom(ctx context.Context) *UsageAccumulator {
	acc, _ := ctx.Value(usageAccumulatorKey{}).(*UsageAccumulator)
	return acc
}

// costLogger wraps a Client and logs token usage and cost per call.
type costLogger struct {
	inner     Client
	modelName string
	onUsage   UsageFunc
}

// WithCostLogging wraps client so every call logs its token usage and
// reports the USD cost through onUsage (which may be nil).
func WithCostLogging(client Client, modelName string, onUsage UsageFunc) Client {
	return &costLogger{inner: client, modelName: modelName, onUsage: onUsage}
}

func (c *costLogger) Generate(ctx context.Context, in []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	out, err := c.inner.Generate(ctx, in, opts...)
	if err != nil {
		return nil, err
	}
	if model.CostEnabled() && out != nil && out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		usage := out.ResponseMeta.Usage
		pricing := model.ResolvePricing(c.modelName)
		inC, outC, totalC := model.ComputeCost(usage, pricing)
		logx.Debug().
			Str("model", c.modelName).
			Int("prompt_tokens", usage.PromptTokens).
			Int("completion_tokens", usage.CompletionTokens).
			Int("total_tokens", usage.TotalTokens).
			Float64("input_cost_usd", inC).
			Float64("output_cost_usd", outC).
			Float64("total_cost_usd", totalC).
			Msg("LLM usage")
		if acc := accumulatorFrom(ctx); acc != nil {
			acc.add(totalC)
		}
		if c.onUsage != nil {
			c.onUsage(totalC)
		}
	}
	return out, nil
}
