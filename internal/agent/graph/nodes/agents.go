package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/adam-setup/server/internal/agent/graph/prompts"
	graphtools "github.com/adam-setup/server/internal/agent/graph/tools"
	"github.com/adam-setup/server/internal/agent/llm"
	"github.com/adam-setup/server/internal/agent/model"
	errx "github.com/adam-setup/server/internal/core/error"
	"github.com/adam-setup/server/internal/sandbox"
	logx "github.com/adam-setup/server/pkg/logger"
)

// maxAgentToolCalls bounds the tool loop of the detection and support
// agents per turn.
const maxAgentToolCalls = 6

// NewAnomalyDetectionNode runs the preset detection tools under the
// operator model and converts the collected findings into a result the
// capture pipeline understands.
func NewAnomalyDetectionNode(deps Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		var summary string
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			summary = s.IntentSummary
			return nil
		})
		if err != nil {
			return in, err
		}

		snap, err := deps.Loader.LoadSnapshot(ctx, in.User, in.Partner)
		if err != nil {
			if errx.IsDataNotFound(err) {
				return in, compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
					s.DataMissing = true
					s.DetectionComplete = true
					s.ExecResult = sandbox.ErrorResult(errx.DataNotFoundMessage)
					return nil
				})
			}
			return in, fmt.Errorf("load snapshot: %w", err)
		}

		collector := graphtools.NewDetectionCollector()
		toolSet := graphtools.DetectionTools(deps.Engine, snap, collector)
		client, err := bindTools(ctx, deps.Models, toolSet)
		if err != nil {
			return in, err
		}

		system, err := prompts.RenderDetectionSystem(ctx, in.Partner, summary)
		if err != nil {
			return in, fmt.Errorf("render detection prompt: %w", err)
		}

		reply, trace, err := runToolLoop(ctx, client, toolSet, []*schema.Message{
			schema.SystemMessage(system),
			schema.UserMessage(in.Query),
		})
		if err != nil {
			return in, fmt.Errorf("detection agent: %w", err)
		}

		return in, compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			s.InternalMessages = append(s.InternalMessages, trace...)

			entities := collector.Entities()
			if len(entities) == 0 {
				// The model chose not to run any checks; relay its reply.
				s.DetectionComplete = false
				content := strings.TrimSpace(reply.Content)
				if content == "" {
					content = fallbackReply
				}
				s.Messages = append(s.Messages, schema.AssistantMessage(content, nil))
				return nil
			}

			named := make([]sandbox.NamedTable, 0, len(entities))
			for _, entity := range entities {
				if t, ok := collector.Table(entity); ok {
					named = append(named, sandbox.NamedTable{Name: entity + "_anomalies", Table: t})
				}
			}
			s.ExecResult = sandbox.NamedResult(named)
			s.DetectionComplete = true
			logx.Info().
				Str("conversation_id", s.ConversationID).
				Int("entities", len(named)).
				Msg("Detection run complete")
			return nil
		})
	})
}

// NewAnomalyCondition routes completed detections into the result
// pipeline and tool-less replies straight to the user.
func NewAnomalyCondition() func(context.Context, model.TurnInput) (string, error) {
	return func(ctx context.Context, _ model.TurnInput) (string, error) {
		var complete bool
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			complete = s.DetectionComplete
			return nil
		})
		if err != nil {
			return "", err
		}
		if complete {
			return NodeCaptureResult, nil
		}
		return NodeRespond, nil
	}
}

// NewDSPSupportNode answers product questions with the knowledge base
// tool. No account data is touched.
func NewDSPSupportNode(deps Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		toolSet := []tool.BaseTool{graphtools.SearchKnowledgeTool()}
		client, err := bindTools(ctx, deps.Models, toolSet)
		if err != nil {
			return in, err
		}

		system, err := prompts.RenderDSPSystem(ctx)
		if err != nil {
			return in, fmt.Errorf("render dsp prompt: %w", err)
		}

		reply, trace, err := runToolLoop(ctx, client, toolSet, []*schema.Message{
			schema.SystemMessage(system),
			schema.UserMessage(in.Query),
		})
		if err != nil {
			return in, fmt.Errorf("support agent: %w", err)
		}

		return in, compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			s.InternalMessages = append(s.InternalMessages, trace...)
			content := strings.TrimSpace(reply.Content)
			if content == "" {
				content = fallbackReply
			}
			s.Messages = append(s.Messages, schema.AssistantMessage(content, nil))
			return nil
		})
	})
}

func bindTools(ctx context.Context, models *llm.Models, toolSet []tool.BaseTool) (llm.Client, error) {
	infos := make([]*schema.ToolInfo, 0, len(toolSet))
	for _, bt := range toolSet {
		info, err := bt.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("tool info: %w", err)
		}
		infos = append(infos, info)
	}
	client, err := models.BindResponderTools(ctx, infos)
	if err != nil {
		return nil, fmt.Errorf("bind tools: %w", err)
	}
	return client, nil
}

// runToolLoop drives a bounded call-tools-then-answer loop. Tool calls
// execute sequentially; unknown tools feed an error message back to the
// model instead of failing the turn. Returns the final assistant reply
// and the internal transcript.
func runToolLoop(ctx context.Context, client llm.Client, toolSet []tool.BaseTool, msgs []*schema.Message) (*schema.Message, []*schema.Message, error) {
	byName := make(map[string]tool.InvokableTool, len(toolSet))
	for _, bt := range toolSet {
		info, err := bt.Info(ctx)
		if err != nil {
			return nil, nil, err
		}
		if inv, ok := bt.(tool.InvokableTool); ok {
			byName[info.Name] = inv
		}
	}

	var trace []*schema.Message
	callSeq := 0
	calls := 0

	for {
		reply, err := client.Generate(ctx, msgs)
		if err != nil {
			return nil, trace, err
		}
		if len(reply.ToolCalls) == 0 {
			return reply, trace, nil
		}

		// Gemini sometimes omits tool call ids.
		for i := range reply.ToolCalls {
			if strings.TrimSpace(reply.ToolCalls[i].ID) == "" {
				callSeq++
				reply.ToolCalls[i].ID = fmt.Sprintf("call_%d", callSeq)
			}
		}
		msgs = append(msgs, reply)
		trace = append(trace, reply)

		for _, call := range reply.ToolCalls {
			calls++
			out := invokeTool(ctx, byName, call)
			toolMsg := schema.ToolMessage(out, call.ID, schema.WithToolName(call.Function.Name))
			msgs = append(msgs, toolMsg)
			trace = append(trace, toolMsg)
		}

		if calls >= maxAgentToolCalls {
			notice := schema.SystemMessage(fmt.Sprintf(
				"You have reached the tool call limit (%d). Answer now with what you have gathered.",
				maxAgentToolCalls))
			msgs = append(msgs, notice)
			reply, err := client.Generate(ctx, msgs)
			if err != nil {
				return nil, trace, err
			}
			return reply, trace, nil
		}
	}
}

func invokeTool(ctx context.Context, byName map[string]tool.InvokableTool, call schema.ToolCall) string {
	name := call.Function.Name
	inv, ok := byName[name]
	if !ok {
		logx.Warn().Str("tool", name).Msg("Unknown tool call")
		return fmt.Sprintf("{\"error\":\"unknown_tool\",\"name\":%q}", name)
	}
	out, err := inv.InvokableRun(ctx, call.Function.Arguments)
	if err != nil {
		logx.Error().Err(err).Str("tool", name).Msg("Tool call failed")
		return fmt.Sprintf("{\"error\":%q}", err.Error())
	}
	return out
}
