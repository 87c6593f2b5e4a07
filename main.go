package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	repo "github.com/adam-setup/server/internal"
	"github.com/adam-setup/server/internal/agent/graph"
	"github.com/adam-setup/server/internal/agent/llm"
	"github.com/adam-setup/server/internal/agent/model"
	"github.com/adam-setup/server/internal/core"
	"github.com/adam-setup/server/internal/dataset"
	logx "github.com/adam-setup/server/pkg/logger"
	pkgredis "github.com/adam-setup/server/pkg/redis"
)

// AppConfig defines all configurable parameters for the orchestrator,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Redis           pkgredis.Config
	ArtifactBaseURL string `envconfig:"ARTIFACT_BASE_URL" default:"http://localhost:8080"`

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Classifier   model.ClassifierModelConfig
	Analyser     model.AnalyserModelConfig
	Coder        model.CoderModelConfig
	Responder    model.ResponderModelConfig
	Utility      model.UtilityModelConfig
	Conversation model.ConversationConfig
}

func main() {
	ctx := context.Background()

	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	logx.Init(logx.LoggerOpts{Environment: core.ParseEnvironment(os.Getenv("ENVIRONMENT"))})

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	conversationTTL, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}
	artifactTTL, err := time.ParseDuration(envCfg.Conversation.Results.ArtifactTTL)
	if err != nil {
		log.Fatalf("Invalid RESULTS_ARTIFACT_TTL '%s': %v", envCfg.Conversation.Results.ArtifactTTL, err)
	}

	models, err := llm.NewModels(ctx, llm.Config{
		APIKey:     envCfg.APIKey,
		BaseURL:    envCfg.BaseURL,
		Classifier: envCfg.Classifier,
		Analyser:   envCfg.Analyser,
		Coder:      envCfg.Coder,
		Responder:  envCfg.Responder,
		Utility:    envCfg.Utility,
	})
	if err != nil {
		log.Fatalf("Failed to initialise chat models: %v", err)
	}

	runner, err := graph.BuildTurnGraph(ctx, graph.Config{
		Models:           models,
		ConversationRepo: repo.NewRedisConversationRepository(rdb, conversationTTL),
		MemoryStore:      repo.NewRedisMemoryStore(rdb),
		ArtifactStore:    repo.NewRedisArtifactStore(rdb, envCfg.ArtifactBaseURL, artifactTTL),
		Loader:           dataset.NewDirLoader(envCfg.Conversation.Execution.DataRoot),
		Conversation:     envCfg.Conversation,
	})
	if err != nil {
		log.Fatalf("Failed to build turn graph: %v", err)
	}

	turns := []struct {
		description string
		query       string
	}{
		{
			description: "Preset anomaly sweep",
			query:       "Run the standard setup checks on this partner account",
		},
		{
			description: "Ad-hoc budget analysis",
			query:       "Which insertion orders are pacing above their planned budget?",
		},
		{
			description: "Product question",
			query:       "How do I attach a Floodlight activity to a campaign?",
		},
	}

	const (
		user    = "demo-user"
		partner = "demo-partner"
	)

	for i, turn := range turns {
		fmt.Printf("\nTurn %d: %s\n", i+1, turn.description)
		fmt.Printf("Query: %q\n", turn.query)

		out, err := runner.ProcessTurn(ctx, model.TurnInput{
			User:      user,
			Partner:   partner,
			Query:     turn.query,
			UseMemory: envCfg.Conversation.Memory.Enabled,
		})
		if err != nil {
			log.Fatalf("Turn %d failed: %v", i+1, err)
		}

		fmt.Printf("Response: %s\n", out.Response)
		for _, link := range out.DownloadLinks {
			fmt.Printf("Download: %s (%s)\n", link.URL, link.Label)
		}
		fmt.Printf("Conversation: %s\n", out.ConversationID)
		fmt.Println("------------------------------------------------")

		time.Sleep(500 * time.Millisecond)
	}
}
