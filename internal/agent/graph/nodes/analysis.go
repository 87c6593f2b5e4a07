package nodes

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/adam-setup/server/internal/agent/graph/parsers"
	"github.com/adam-setup/server/internal/agent/graph/prompts"
	"github.com/adam-setup/server/internal/agent/model"
	errx "github.com/adam-setup/server/internal/core/error"
	"github.com/adam-setup/server/internal/results"
	"github.com/adam-setup/server/internal/sandbox"
	logx "github.com/adam-setup/server/pkg/logger"
)

// NewAnalyserNode turns a classified request into a code briefing, or
// asks the user for the missing details.
func NewAnalyserNode(deps Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		var (
			category    string
			summary     string
			instruction string
			schemaBlock string
			history     []*schema.Message
		)
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			category = s.IntentCategory
			summary = s.IntentSummary
			instruction = s.InstructionBlock
			schemaBlock = s.SchemaBlock
			history = s.History
			return nil
		})
		if err != nil {
			return in, err
		}

		system, err := prompts.RenderAnalyserSystem(ctx, category, summary, instruction, schemaBlock)
		if err != nil {
			return in, fmt.Errorf("render analyser prompt: %w", err)
		}

		msgs := make([]*schema.Message, 0, len(history)+2)
		msgs = append(msgs, schema.SystemMessage(system))
		msgs = append(msgs, history...)
		msgs = append(msgs, schema.UserMessage(in.Query))

		reply, err := deps.Models.Analyser.Generate(ctx, msgs)
		if err != nil {
			return in, fmt.Errorf("analyser call: %w", err)
		}

		briefing, ok := parsers.ExtractTagged(reply.Content, "briefing")
		return in, compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			s.InternalMessages = append(s.InternalMessages, reply)
			if !ok || briefing == "" {
				// Clarifying question goes back to the user; the
				// analysis resumes next turn.
				s.InAnalysis = true
				s.BriefingReady = false
				s.Messages = append(s.Messages, schema.AssistantMessage(reply.Content, nil))
				return nil
			}
			s.Briefing = briefing
			s.BriefingReady = true
			s.InAnalysis = false
			s.RetryCount = 0
			logx.Debug().Str("conversation_id", s.ConversationID).Msg("Briefing ready")
			return nil
		})
	})
}

// NewAnalyserCondition continues to code generation once a briefing
// exists, otherwise relays the clarifying question.
func NewAnalyserCondition() func(context.Context, model.TurnInput) (string, error) {
	return func(ctx context.Context, _ model.TurnInput) (string, error) {
		var ready bool
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			ready = s.BriefingReady
			return nil
		})
		if err != nil {
			return "", err
		}
		if ready {
			return NodeCodeGenerator, nil
		}
		return NodeRespond, nil
	}
}

// NewCodeGeneratorNode asks the coder model for the analysis script.
// On retry it feeds the failed script and its error back in.
func NewCodeGeneratorNode(deps Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		var (
			briefing    string
			schemaBlock string
			prevCode    string
			execError   string
			retryCount  int
		)
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			briefing = s.Briefing
			schemaBlock = s.SchemaBlock
			prevCode = s.PreviousCode
			execError = s.ExecutionError
			retryCount = s.RetryCount
			return nil
		})
		if err != nil {
			return in, err
		}

		system, err := prompts.RenderCodeGenSystem(ctx, briefing, schemaBlock)
		if err != nil {
			return in, fmt.Errorf("render codegen prompt: %w", err)
		}

		msgs := []*schema.Message{schema.SystemMessage(system)}
		if retryCount > 0 && execError != "" {
			msgs = append(msgs, schema.UserMessage(prompts.CodeRetryMessage(prevCode, execError)))
		} else {
			msgs = append(msgs, schema.UserMessage("Write the script."))
		}

		reply, err := deps.Models.Coder.Generate(ctx, msgs)
		if err != nil {
			return in, fmt.Errorf("coder call: %w", err)
		}

		code := parsers.ExtractFencedBlock(reply.Content, "python")
		return in, compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			s.InternalMessages = append(s.InternalMessages, reply)
			s.Code = code
			if strings.TrimSpace(code) == "" {
				s.ExecutionError = "the model returned no script"
			}
			logx.Debug().
				Str("conversation_id", s.ConversationID).
				Int("attempt", retryCount+1).
				Int("code_chars", len(code)).
				Msg("Script generated")
			return nil
		})
	})
}

// NewExecCodeNode runs the generated script in the sandbox. Failures
// are recorded for the retry loop; a missing snapshot is terminal.
func NewExecCodeNode(deps Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		var code string
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			code = s.Code
			return nil
		})
		if err != nil {
			return in, err
		}

		snap, err := deps.Loader.LoadSnapshot(ctx, in.User, in.Partner)
		if err != nil {
			if errx.IsDataNotFound(err) {
				logx.Warn().Str("partner", in.Partner).Msg("setup snapshot missing")
				return in, compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
					s.DataMissing = true
					s.ExecutionError = ""
					s.ExecResult = sandbox.ErrorResult(errx.DataNotFoundMessage)
					return nil
				})
			}
			return in, fmt.Errorf("load snapshot: %w", err)
		}

		res, runErr := deps.Executor.Run(ctx, code, snap)
		return in, compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			if runErr != nil {
				s.ExecutionError = runErr.Error()
				s.PreviousCode = s.Code
				s.RetryCount++
				logx.Warn().
					Str("conversation_id", s.ConversationID).
					Int("retry_count", s.RetryCount).
					Str("error", clipError(s.ExecutionError)).
					Msg("Script execution failed")
				if s.RetryCount > s.MaxRetries {
					// Out of retries; surface the failure as a result.
					s.ExecResult = sandbox.ErrorResult(s.ExecutionError)
				}
				return nil
			}
			s.ExecutionError = ""
			s.ExecResult = res
			return nil
		})
	})
}

// NewExecCondition loops back to the code generator while retries
// remain, otherwise proceeds to result capture.
func NewExecCondition() func(context.Context, model.TurnInput) (string, error) {
	return func(ctx context.Context, _ model.TurnInput) (string, error) {
		var retry bool
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			retry = s.ExecutionError != "" && s.RetryCount <= s.MaxRetries && !s.DataMissing
			return nil
		})
		if err != nil {
			return "", err
		}
		if retry {
			return NodeCodeGenerator, nil
		}
		return NodeCaptureResult, nil
	}
}

// NewCaptureResultNode normalizes the execution result: truncation for
// display, offload to the artifact store, link collection.
func NewCaptureResultNode(deps Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		var res *sandbox.Result
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			res = s.ExecResult
			return nil
		})
		if err != nil {
			return in, err
		}
		if res == nil {
			res = sandbox.ErrorResult("no result produced")
		}

		processed := deps.Processor.Process(ctx, res, "result")
		return in, compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			s.Processed = processed
			s.DownloadLinks = processed.AllLinks()
			return nil
		})
	})
}

// NewSummarizeResultNode renders the processed result as the markdown
// block the responder prompt consumes. Retry exhaustion is stated up
// front so the responder cannot miss it.
func NewSummarizeResultNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		return in, compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			if s.Processed == nil {
				s.ResultSummary = "No result was produced."
				return nil
			}
			summary := results.FormatSummary(s.Processed)
			if s.Processed.Status == results.StatusError && s.RetryCount > s.MaxRetries {
				summary = fmt.Sprintf(
					"The analysis could not complete: the generated script failed after %d attempts.\n\n%s",
					s.RetryCount, summary)
			}
			s.ResultSummary = summary
			return nil
		})
	})
}

// NewFinalResponseNode writes the user-facing answer from the result
// summary.
func NewFinalResponseNode(deps Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, in model.TurnInput) (model.TurnInput, error) {
		var args prompts.FinalResponseArgs
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			args = prompts.FinalResponseArgs{
				IntentSummary:  s.IntentSummary,
				ResultSummary:  s.ResultSummary,
				Links:          s.DownloadLinks,
				LongTermMemory: s.LongTermMemory,
				UserLanguage:   s.UserLanguage,
			}
			return nil
		})
		if err != nil {
			return in, err
		}

		system, err := prompts.RenderFinalResponseSystem(ctx, args)
		if err != nil {
			return in, fmt.Errorf("render final response prompt: %w", err)
		}

		reply, err := deps.Models.Responder.Generate(ctx, []*schema.Message{
			schema.SystemMessage(system),
			schema.UserMessage(in.Query),
		})
		if err != nil {
			return in, fmt.Errorf("responder call: %w", err)
		}

		return in, compose.ProcessState(ctx, func(_ context.Context, s *model.ConversationState) error {
			s.Messages = append(s.Messages, schema.AssistantMessage(reply.Content, nil))
			return nil
		})
	})
}

func clipError(s string) string {
	const max = 300
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
