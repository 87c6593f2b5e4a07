package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/adam-setup/server/internal/agent/model"
	logx "github.com/adam-setup/server/pkg/logger"
)

// Config holds what is needed to construct the role models.
type Config struct {
	APIKey  string
	BaseURL string

	Classifier model.ClassifierModelConfig
	Analyser   model.AnalyserModelConfig
	Coder      model.CoderModelConfig
	Responder  model.ResponderModelConfig
	Utility    model.UtilityModelConfig
}

// Models holds one chat model per agent role. Detector and Support are
// tool-bound variants of the responder model.
type Models struct {
	Classifier Client
	Analyser   Client
	Coder      Client
	Responder  Client
	Utility    Client

	// BindToolsFunc, when set, overrides the provider tool binding.
	// Tests use it to substitute scripted clients.
	BindToolsFunc func(ctx context.Context, tools []*schema.ToolInfo) (Client, error)

	responderRaw *gemini.ChatModel

	ClassifierModelName string
	ResponderModelName  string
}

// NewModels creates the Gemini chat models for every agent role.
func NewModels(ctx context.Context, cfg Config) (*Models, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	classifier, err := newChatModel(ctx, client, cfg.Classifier.Model, cfg.Classifier.Temperature, cfg.Classifier.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("classifier model: %w", err)
	}
	analyser, err := newChatModel(ctx, client, cfg.Analyser.Model, cfg.Analyser.Temperature, cfg.Analyser.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("analyser model: %w", err)
	}
	coder, err := newChatModel(ctx, client, cfg.Coder.Model, cfg.Coder.Temperature, cfg.Coder.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("coder model: %w", err)
	}
	responder, err := newChatModel(ctx, client, cfg.Responder.Model, cfg.Responder.Temperature, cfg.Responder.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("responder model: %w", err)
	}
	utility, err := newChatModel(ctx, client, cfg.Utility.Model, cfg.Utility.Temperature, cfg.Utility.MaxTokens)
	if err != nil {
		return nil, fmt.Errorf("utility model: %w", err)
	}

	return &Models{
		Classifier:          WithCostLogging(classifier, cfg.Classifier.Model, nil),
		Analyser:            WithCostLogging(analyser, cfg.Analyser.Model, nil),
		Coder:               WithCostLogging(coder, cfg.Coder.Model, nil),
		Responder:           WithCostLogging(responder, cfg.Responder.Model, nil),
		Utility:             WithCostLogging(utility, cfg.Utility.Model, nil),
		responderRaw:        responder,
		ClassifierModelName: cfg.Classifier.Model,
		ResponderModelName:  cfg.Responder.Model,
	}, nil
}

func newChatModel(ctx context.Context, client *genai.Client, modelName string, temperature float32, maxTokens int) (*gemini.ChatModel, error) {
	return gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       modelName,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(2000)),
		},
	})
}

// BindResponderTools binds a tool set to the responder model, returning
// the tool-calling client the detection and support agents use.
func (m *Models) BindResponderTools(ctx context.Context, tools []*schema.ToolInfo) (Client, error) {
	if m.BindToolsFunc != nil {
		return m.BindToolsFunc(ctx, tools)
	}
	if m.responderRaw == nil {
		return nil, fmt.Errorf("responder model not initialised")
	}
	bound, err := m.responderRaw.WithTools(tools)
	if err != nil {
		logx.Error().Err(err).Msg("Failed to bind tools")
		return nil, fmt.Errorf("failed to bind tools: %w", err)
	}
	return WithCostLogging(bound, m.ResponderModelName, nil), nil
}
