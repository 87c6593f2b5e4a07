package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/tool"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/adam-setup/server/pkg/logger"
)

func newToolHandler() *callbackHelper.ToolCallbackHandler {
	logger := logx.Component("tool")
	return &callbackHelper.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *tool.CallbackInput) context.Context {
			ev := logger.Info().Str("tool", info.Name)
			if input != nil {
				ev = ev.Str("args", clip(input.ArgumentsInJSON))
			}
			ev.Msg("Tool invoked")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *tool.CallbackOutput) context.Context {
			ev := logger.Info().Str("tool", info.Name)
			if output != nil {
				ev = ev.Str("response", clip(output.Response))
			}
			ev.Msg("Tool finished")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logger.Error().Err(err).Str("tool", info.Name).Msg("Tool failed")
			return ctx
		},
	}
}
