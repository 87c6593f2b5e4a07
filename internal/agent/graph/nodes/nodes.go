// Package nodes implements the lambda nodes and branch conditions of
// the conversation graph. Every node threads the turn input through and
// communicates via the graph-local ConversationState, which Eino
// serializes access to inside state handlers and ProcessState.
package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/adam-setup/server/internal/agent/graph/conversations"
	"github.com/adam-setup/server/internal/agent/graph/parsers"
	"github.com/adam-setup/server/internal/agent/graph/prompts"
	"github.com/adam-setup/server/internal/agent/llm"
	"github.com/adam-setup/server/internal/agent/model"
	"github.com/adam-setup/server/internal/anomaly"
	"github.com/adam-setup/server/internal/dataset"
	"github.com/adam-setup/server/internal/results"
	"github.com/adam-setup/server/internal/sandbox"
	logx "github.com/adam-setup/server/pkg/logger"
)

// Graph node names.
const (
	NodeMemory              = "memory"
	NodeClassifyIntent      = "classify_intent"
	NodeRetrieveInstruction = "retrieve_instruction"
	NodeAnalyser            = "analyser"
	NodeCodeGenerator       = "code_generator"
	NodeExecCode            = "exec_code"
	NodeCaptureResult       = "capture_result"
	NodeSummarizeResult     = "summarize_result"
	NodeFinalResponse       = "final_response"
	NodeAnomalyDetection    = "anomaly_detection"
	NodeDSPSupport          = "dsp_support"
	NodeRespond             = "respond"
)

// Extra keys on the terminal message, read back by the graph runner.
const (
	ExtraConversationID = "conversation_id"
	ExtraDownloadLinks  = "download_links"
)

const fallbackReply = "I could not produce an answer for this request. Please try rephrasing it."

// Deps bundles everything the nodes need.
type Deps struct {
	Models    *llm.Models
	Manager   *conversations.Manager
	Loader    dataset.Loader
	Engine    *anomaly.Engine
	Executor  *sandbox.Executor
	Processor *results.Processor
	Config    model.ConversationConfig
}

// NewMemoryNode loads the stored conversation context and seeds the
// graph state for this turn.
func NewMemoryNode(deps Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		key := model.ConversationKey{User: in.User, Partner: in.Partner}
		tc, err := deps.Manager.LoadContext(ctx, key)
		if err != nil {
			return in, fmt.Errorf("load conversation context: %w", err)
		}

		var (
			advertisers []string
			schemaBlock string
		)
		if snap, err := deps.Loader.LoadSnapshot(ctx, in.User, in.Partner); err != nil {
			// Roster and schema only enrich prompts; the exec node
			// reports missing data to the user.
			logx.Warn().Err(err).Str("partner", in.Partner).Msg("setup snapshot unavailable")
		} else {
			advertisers = dataset.AdvertiserNames(snap)
			schemaBlock = prompts.SchemaBlock(snap)
		}

		err = compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			s.ConversationID = tc.Meta.ConversationID
			s.User = in.User
			s.Partner = in.Partner
			s.UseMemory = in.UseMemory
			s.History = tc.History
			s.Messages = []*schema.Message{schema.UserMessage(in.Query)}
			s.AdvertiserNames = advertisers
			s.SchemaBlock = schemaBlock
			s.UserLanguage = parsers.DetectLanguage(in.Query)
			s.MaxRetries = deps.Config.Execution.MaxRetries

			if in.UseMemory {
				s.LongTermMemory = tc.Preferences
			}

			// Resume a pending analysis clarification from the last turn.
			s.InAnalysis = tc.Meta.InAnalysis
			s.Briefing = tc.Meta.Briefing
			s.IntentCategory = tc.Meta.IntentCategory
			s.IntentSummary = tc.Meta.IntentSummary
			s.PreviousCode = tc.Meta.LastCode
			return nil
		})
		if err != nil {
			return in, fmt.Errorf("seed state: %w", err)
		}
		return in, nil
	})
}

// NewEntryCondition routes a resumed analysis clarification straight to
// the analyser; everything else gets classified first.
func NewEntryCondition() func(context.Context, model.TurnInput) (string, error) {
	return func(ctx context.Context, _ model.TurnInput) (string, error) {
		var resume bool
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			resume = s.InAnalysis
			return nil
		})
		if err != nil {
			return "", err
		}
		if resume {
			logx.Debug().Msg("Resuming pending analysis clarification")
			return NodeAnalyser, nil
		}
		return NodeClassifyIntent, nil
	}
}

// NewClassifyIntentNode calls the classifier and records either a
// structured intent or the model's clarifying question.
func NewClassifyIntentNode(deps Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		var (
			history     []*schema.Message
			memory      string
			advertisers []string
			prevCode    string
		)
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			history = s.History
			memory = s.LongTermMemory
			advertisers = s.AdvertiserNames
			prevCode = s.PreviousCode
			return nil
		})
		if err != nil {
			return in, err
		}

		system, err := prompts.RenderClassifierSystem(ctx, in.Partner, advertisers, memory, prevCode)
		if err != nil {
			return in, fmt.Errorf("render classifier prompt: %w", err)
		}
		userContext := deps.Manager.BuildClassifierContext(history, in.Query)

		reply, err := deps.Models.Classifier.Generate(ctx, []*schema.Message{
			schema.SystemMessage(system),
			schema.UserMessage(userContext),
		})
		if err != nil {
			return in, fmt.Errorf("classifier call: %w", err)
		}

		intent, perr := parsers.ParseIntent(reply.Content)
		return in, compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			s.InternalMessages = append(s.InternalMessages, reply)
			if perr != nil {
				if !errors.Is(perr, parsers.ErrNotStructured) {
					return perr
				}
				// The classifier asked for clarification in prose.
				s.IntentCleared = false
				s.Messages = append(s.Messages, schema.AssistantMessage(reply.Content, nil))
				return nil
			}
			s.IntentCategory = intent.IntentCategory
			s.IntentSummary = intent.IntentSummary
			s.IntentCleared = true
			// A fresh intent supersedes any stale analysis carry-over.
			s.InAnalysis = false
			s.Briefing = ""
			s.BriefingReady = false
			logx.Info().
				Str("conversation_id", s.ConversationID).
				Str("category", intent.IntentCategory).
				Msg("Intent classified")
			return nil
		})
	})
}

// NewClassifyCondition sends cleared intents onward and clarification
// questions back to the user.
func NewClassifyCondition() func(context.Context, model.TurnInput) (string, error) {
	return func(ctx context.Context, _ model.TurnInput) (string, error) {
		var cleared bool
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			cleared = s.IntentCleared
			return nil
		})
		if err != nil {
			return "", err
		}
		if !cleared {
			return NodeRespond, nil
		}
		return NodeRetrieveInstruction, nil
	}
}

// NewRetrieveInstructionNode resolves the category's analysis guidance
// and sets the routing flags for the specialised agents.
func NewRetrieveInstructionNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		return in, compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			s.InstructionBlock = prompts.InstructionBlock(s.IntentCategory)
			s.RunDetection = s.IntentCategory == model.IntentAnomalyDetRun
			s.RunSupport = s.IntentCategory == model.IntentDSPSupport
			return nil
		})
	})
}

// NewRouteCondition dispatches to the preset detection run, the support
// agent or the custom analysis pipeline.
func NewRouteCondition() func(context.Context, model.TurnInput) (string, error) {
	return func(ctx context.Context, _ model.TurnInput) (string, error) {
		var detection, support bool
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			detection = s.RunDetection
			support = s.RunSupport
			return nil
		})
		if err != nil {
			return "", err
		}
		switch {
		case detection:
			return NodeAnomalyDetection, nil
		case support:
			return NodeDSPSupport, nil
		default:
			return NodeAnalyser, nil
		}
	}
}

// NewRespondNode closes the turn: it picks the outgoing reply, persists
// the turn in the background and triggers memory distillation.
func NewRespondNode(deps Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (*schema.Message, error) {
		var (
			reply *schema.Message
			meta  model.TurnMeta
			links []results.Link
			turn  []*schema.Message
			mem   string
			useMy bool
		)
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			reply = s.LastAssistantMessage()
			if reply == nil {
				reply = schema.AssistantMessage(fallbackReply, nil)
				s.Messages = append(s.Messages, reply)
			}
			meta = model.TurnMeta{
				ConversationID: s.ConversationID,
				InAnalysis:     s.InAnalysis,
				Briefing:       s.Briefing,
				IntentCategory: s.IntentCategory,
				IntentSummary:  s.IntentSummary,
				LastCode:       s.Code,
			}
			links = s.DownloadLinks
			turn = s.Messages
			mem = s.LongTermMemory
			useMy = s.UseMemory
			return nil
		})
		if err != nil {
			return nil, err
		}

		key := model.ConversationKey{User: in.User, Partner: in.Partner}
		deps.Manager.SaveTurn(ctx, key, in.Query, reply.Content, meta)
		if useMy {
			deps.Manager.DistillMemory(ctx, key, mem, turn)
		}

		out := schema.AssistantMessage(reply.Content, nil)
		out.Extra = map[string]any{
			ExtraConversationID: meta.ConversationID,
		}
		if len(links) > 0 {
			out.Extra[ExtraDownloadLinks] = links
		}
		return out, nil
	})
}
