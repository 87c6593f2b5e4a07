// Package graph assembles the conversation graph: intent
// classification, the clarify-brief-generate-execute analysis loop with
// bounded retry, the preset anomaly detection run and the product
// support agent, all converging on one responder.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/adam-setup/server/internal/agent/graph/conversations"
	"github.com/adam-setup/server/internal/agent/graph/nodes"
	"github.com/adam-setup/server/internal/agent/graph/observers"
	"github.com/adam-setup/server/internal/agent/graph/tools"
	"github.com/adam-setup/server/internal/agent/llm"
	"github.com/adam-setup/server/internal/agent/model"
	"github.com/adam-setup/server/internal/anomaly"
	"github.com/adam-setup/server/internal/dataset"
	"github.com/adam-setup/server/internal/results"
	"github.com/adam-setup/server/internal/sandbox"
	logx "github.com/adam-setup/server/pkg/logger"
)

// Runner executes one conversational turn against the compiled graph.
type Runner interface {
	ProcessTurn(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error)
}

// Config holds everything needed to compose the turn graph end-to-end.
type Config struct {
	Models           *llm.Models
	ConversationRepo model.ConversationRepository
	MemoryStore      model.MemoryStore
	ArtifactStore    results.ArtifactStore
	Loader           dataset.Loader
	Conversation     model.ConversationConfig
}

// GraphBuilder constructs the turn graph node by node.
type GraphBuilder struct {
	deps  nodes.Deps
	graph *compose.Graph[model.TurnInput, *schema.Message]
}

type graphRunner struct {
	runnable compose.Runnable[model.TurnInput, *schema.Message]
}

func (r *graphRunner) ProcessTurn(ctx context.Context, in model.TurnInput) (*model.TurnOutput, error) {
	if in.User == "" || in.Partner == "" {
		return nil, fmt.Errorf("user and partner are required")
	}
	if in.Query == "" {
		return nil, fmt.Errorf("query is empty")
	}

	usage := &llm.UsageAccumulator{}
	ctx = llm.WithUsageAccumulator(ctx, usage)

	out, err := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("graph produced no output")
	}

	result := &model.TurnOutput{Response: out.Content, TotalCostUSD: usage.TotalUSD()}
	if id, ok := out.Extra[nodes.ExtraConversationID].(string); ok {
		result.ConversationID = id
	}
	if links, ok := out.Extra[nodes.ExtraDownloadLinks].([]results.Link); ok {
		result.DownloadLinks = links
	}
	return result, nil
}

// BuildTurnGraph wires the dependencies, builds the graph and returns a
// Runner.
func BuildTurnGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.Models == nil {
		return nil, fmt.Errorf("models are nil")
	}
	if cfg.ConversationRepo == nil {
		return nil, fmt.Errorf("conversation repo is nil")
	}
	if cfg.Loader == nil {
		return nil, fmt.Errorf("snapshot loader is nil")
	}
	if cfg.ArtifactStore == nil {
		return nil, fmt.Errorf("artifact store is nil")
	}

	manager := conversations.NewManager(cfg.ConversationRepo, cfg.MemoryStore, cfg.Models.Utility, cfg.Conversation)
	analyst := tools.NewLLMNamingAnalyst(cfg.Models.Utility)

	execTimeout := time.Duration(cfg.Conversation.Execution.TimeoutSeconds) * time.Second

	deps := nodes.Deps{
		Models:    cfg.Models,
		Manager:   manager,
		Loader:    cfg.Loader,
		Engine:    anomaly.NewEngine(analyst),
		Executor:  sandbox.NewExecutor(execTimeout),
		Processor: results.NewProcessor(cfg.ArtifactStore, cfg.Conversation.Results.OffloadCellThreshold),
		Config:    cfg.Conversation,
	}

	runnable, err := buildGraph(ctx, deps)
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("Turn graph built successfully")
	return &graphRunner{runnable: runnable}, nil
}

func buildGraph(ctx context.Context, deps nodes.Deps) (compose.Runnable[model.TurnInput, *schema.Message], error) {
	builder := &GraphBuilder{
		deps: deps,
		graph: compose.NewGraph[model.TurnInput, *schema.Message](
			compose.WithGenLocalState(func(ctx context.Context) *model.ConversationState {
				return &model.ConversationState{}
			}),
		),
	}

	builder.addNodes()
	builder.addEdges()
	if err := builder.addBranches(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeMemory, nodes.NewMemoryNode(b.deps))
	b.graph.AddLambdaNode(nodes.NodeClassifyIntent, nodes.NewClassifyIntentNode(b.deps))
	b.graph.AddLambdaNode(nodes.NodeRetrieveInstruction, nodes.NewRetrieveInstructionNode())
	b.graph.AddLambdaNode(nodes.NodeAnalyser, nodes.NewAnalyserNode(b.deps))
	b.graph.AddLambdaNode(nodes.NodeCodeGenerator, nodes.NewCodeGeneratorNode(b.deps))
	b.graph.AddLambdaNode(nodes.NodeExecCode, nodes.NewExecCodeNode(b.deps))
	b.graph.AddLambdaNode(nodes.NodeCaptureResult, nodes.NewCaptureResultNode(b.deps))
	b.graph.AddLambdaNode(nodes.NodeSummarizeResult, nodes.NewSummarizeResultNode())
	b.graph.AddLambdaNode(nodes.NodeFinalResponse, nodes.NewFinalResponseNode(b.deps))
	b.graph.AddLambdaNode(nodes.NodeAnomalyDetection, nodes.NewAnomalyDetectionNode(b.deps))
	b.graph.AddLambdaNode(nodes.NodeDSPSupport, nodes.NewDSPSupportNode(b.deps))
	b.graph.AddLambdaNode(nodes.NodeRespond, nodes.NewRespondNode(b.deps))
}

// addEdges creates the unconditional flow connections.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, nodes.NodeMemory},
		{nodes.NodeCodeGenerator, nodes.NodeExecCode},
		{nodes.NodeCaptureResult, nodes.NodeSummarizeResult},
		{nodes.NodeSummarizeResult, nodes.NodeFinalResponse},
		{nodes.NodeFinalResponse, nodes.NodeRespond},
		{nodes.NodeDSPSupport, nodes.NodeRespond},
		{nodes.NodeRespond, compose.END},
	}
	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates the conditional routing, including the execution
// retry cycle back into the code generator.
func (b *GraphBuilder) addBranches() error {
	branches := []struct {
		from      string
		condition func(context.Context, model.TurnInput) (string, error)
		targets   map[string]bool
	}{
		{
			from:      nodes.NodeMemory,
			condition: nodes.NewEntryCondition(),
			targets: map[string]bool{
				nodes.NodeAnalyser:       true,
				nodes.NodeClassifyIntent: true,
			},
		},
		{
			from:      nodes.NodeClassifyIntent,
			condition: nodes.NewClassifyCondition(),
			targets: map[string]bool{
				nodes.NodeRetrieveInstruction: true,
				nodes.NodeRespond:             true,
			},
		},
		{
			from:      nodes.NodeRetrieveInstruction,
			condition: nodes.NewRouteCondition(),
			targets: map[string]bool{
				nodes.NodeAnomalyDetection: true,
				nodes.NodeDSPSupport:       true,
				nodes.NodeAnalyser:         true,
			},
		},
		{
			from:      nodes.NodeAnalyser,
			condition: nodes.NewAnalyserCondition(),
			targets: map[string]bool{
				nodes.NodeCodeGenerator: true,
				nodes.NodeRespond:       true,
			},
		},
		{
			from:      nodes.NodeExecCode,
			condition: nodes.NewExecCondition(),
			targets: map[string]bool{
				nodes.NodeCodeGenerator: true,
				nodes.NodeCaptureResult: true,
			},
		},
		{
			from:      nodes.NodeAnomalyDetection,
			condition: nodes.NewAnomalyCondition(),
			targets: map[string]bool{
				nodes.NodeCaptureResult: true,
				nodes.NodeRespond:       true,
			},
		},
	}

	for _, br := range branches {
		if err := b.graph.AddBranch(br.from, compose.NewGraphBranch(br.condition, br.targets)); err != nil {
			logx.Error().Err(err).Str("from", br.from).Msg("Error adding branch")
			return fmt.Errorf("add branch from %s: %w", br.from, err)
		}
	}
	return nil
}

// compile finalizes the graph. The step ceiling covers the longest path
// including a full retry cycle without allowing runaway loops.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *schema.Message], error) {
	maxSteps := 12 + 2*(b.deps.Config.Execution.MaxRetries+1)
	if maxSteps < 20 {
		maxSteps = 20
	}

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
