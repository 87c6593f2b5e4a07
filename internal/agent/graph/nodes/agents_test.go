package nodes

import (
	"context"
	"fmt"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type loopClient struct {
	mu      sync.Mutex
	replies []*schema.Message
	calls   [][]*schema.Message
}

func (c *loopClient) Generate(_ context.Context, in []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, in)
	if len(c.replies) == 0 {
		return nil, fmt.Errorf("no scripted reply")
	}
	next := c.replies[0]
	c.replies = c.replies[1:]
	return next, nil
}

type echoArgs struct {
	Text string `json:"text"`
}

type echoOut struct {
	Echo string `json:"echo"`
}

func echoTool() tool.BaseTool {
	return utils.NewTool(
		&schema.ToolInfo{
			Name: "echo",
			Desc: "Echoes the input back.",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"text": {Type: schema.String, Required: true},
			}),
		},
		func(_ context.Context, in *echoArgs) (*echoOut, error) {
			return &echoOut{Echo: in.Text}, nil
		},
	)
}

func toolCallMsg(name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func TestRunToolLoopInvokesAndReturns(t *testing.T) {
	client := &loopClient{replies: []*schema.Message{
		toolCallMsg("echo", `{"text":"hello"}`),
		schema.AssistantMessage("final answer", nil),
	}}

	reply, trace, err := runToolLoop(context.Background(), client, []tool.BaseTool{echoTool()},
		[]*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "final answer", reply.Content)

	// Trace holds the tool-calling turn and the tool result.
	require.Len(t, trace, 2)
	assert.Equal(t, schema.Tool, trace[1].Role)
	assert.Contains(t, trace[1].Content, `"echo":"hello"`)

	// The omitted tool call id was filled in before the result was sent.
	assert.Equal(t, "call_1", trace[1].ToolCallID)
}

func TestRunToolLoopUnknownToolFedBack(t *testing.T) {
	client := &loopClient{replies: []*schema.Message{
		toolCallMsg("does_not_exist", `{}`),
		schema.AssistantMessage("recovered", nil),
	}}

	reply, trace, err := runToolLoop(context.Background(), client, []tool.BaseTool{echoTool()},
		[]*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "recovered", reply.Content)
	require.Len(t, trace, 2)
	assert.Contains(t, trace[1].Content, "unknown_tool")
}

func TestRunToolLoopCallLimit(t *testing.T) {
	// The model keeps demanding tools; every scripted reply is a call.
	replies := make([]*schema.Message, 0, maxAgentToolCalls+1)
	for i := 0; i < maxAgentToolCalls; i++ {
		replies = append(replies, toolCallMsg("echo", `{"text":"again"}`))
	}
	replies = append(replies, schema.AssistantMessage("forced summary", nil))
	client := &loopClient{replies: replies}

	reply, _, err := runToolLoop(context.Background(), client, []tool.BaseTool{echoTool()},
		[]*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, "forced summary", reply.Content)

	// The final request carried the limit notice.
	last := client.calls[len(client.calls)-1]
	notice := last[len(last)-1]
	assert.Equal(t, schema.System, notice.Role)
	assert.Contains(t, notice.Content, "tool call limit")
}

func TestClipError(t *testing.T) {
	assert.Equal(t, "short", clipError("short"))
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	clipped := clipError(string(long))
	assert.LessOrEqual(t, len(clipped), 304)
	assert.Contains(t, clipped, "...")
}
