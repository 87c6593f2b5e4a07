// Package conversations mediates between the graph and conversation
// storage: it loads the per-turn context, persists finished turns and
// distills long-term user preferences.
package conversations

import (
	"context"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/adam-setup/server/internal/agent/graph/prompts"
	"github.com/adam-setup/server/internal/agent/llm"
	"github.com/adam-setup/server/internal/agent/model"
	logx "github.com/adam-setup/server/pkg/logger"
)

type Manager struct {
	conversationRepo model.ConversationRepository
	memoryStore      model.MemoryStore
	utility          llm.Client
	maxTurns         int
	memoryEnabled    bool
}

func NewManager(conversationRepo model.ConversationRepository, memoryStore model.MemoryStore, utility llm.Client, config model.ConversationConfig) *Manager {
	return &Manager{
		conversationRepo: conversationRepo,
		memoryStore:      memoryStore,
		utility:          utility,
		maxTurns:         config.History.MaxTurns,
		memoryEnabled:    config.Memory.Enabled,
	}
}

// TurnContext is everything loaded from storage at the start of a turn.
type TurnContext struct {
	History     []*schema.Message
	Meta        model.TurnMeta
	Preferences string
}

// LoadContext loads the trimmed history, the cross-turn metadata and
// the user's long-term preferences. A conversation seen for the first
// time gets a fresh conversation id.
func (m *Manager) LoadContext(ctx context.Context, key model.ConversationKey) (*TurnContext, error) {
	history, err := m.conversationRepo.LoadHistory(ctx, key)
	if err != nil {
		return nil, err
	}
	meta, err := m.conversationRepo.LoadTurnMeta(ctx, key)
	if err != nil {
		return nil, err
	}
	if meta.ConversationID == "" {
		meta.ConversationID = uuid.NewString()
	}

	tc := &TurnContext{
		History: trimTail(history.Messages, m.maxTurns),
		Meta:    meta,
	}
	if m.memoryEnabled && m.memoryStore != nil {
		prefs, err := m.memoryStore.LoadPreferences(ctx, key.User)
		if err != nil {
			// Preferences are an enrichment, not a dependency.
			logx.Warn().Err(err).Str("user", key.User).Msg("failed to load preferences, continuing without")
		} else {
			tc.Preferences = prefs
		}
	}
	return tc, nil
}

// BuildClassifierContext renders the recent history plus the incoming
// query in the tagged form the classifier prompt expects.
func (m *Manager) BuildClassifierContext(history []*schema.Message, query string) string {
	var b strings.Builder
	b.WriteString("<conversation_context>\n")
	for _, msg := range trimTail(history, m.maxTurns) {
		if msg == nil || msg.Content == "" {
			continue
		}
		switch msg.Role {
		case schema.User:
			b.WriteString("UserMessage(" + msg.Content + ")\n")
		case schema.Assistant:
			b.WriteString("AssistantMessage(" + msg.Content + ")\n")
		}
	}
	b.WriteString("</conversation_context>\n")
	b.WriteString("<current_message_to_analyze>\n")
	b.WriteString("UserMessage(" + query + ")\n")
	b.WriteString("</current_message_to_analyze>")
	return b.String()
}

// SaveTurn persists the finished turn in the background. The graph has
// already produced its response, so a storage failure must not fail the
// turn; the write is detached from the request context and retried once.
func (m *Manager) SaveTurn(ctx context.Context, key model.ConversationKey, query, response string, meta model.TurnMeta) {
	detached := context.WithoutCancel(ctx)
	go func() {
		msgs := []*schema.Message{
			schema.UserMessage(query),
			schema.AssistantMessage(response, nil),
		}
		meta.UpdatedAt = time.Now().UTC()

		save := func() error {
			if err := m.conversationRepo.AddMessages(detached, key, msgs); err != nil {
				return err
			}
			return m.conversationRepo.SaveTurnMeta(detached, key, meta)
		}
		if err := save(); err != nil {
			logx.Warn().Err(err).Str("user", key.User).Msg("turn save failed, retrying once")
			time.Sleep(200 * time.Millisecond)
			if err := save(); err != nil {
				logx.Error().Err(err).Str("user", key.User).Msg("turn save failed permanently")
			}
		}
	}()
}

// Reset clears the stored history and metadata for a conversation.
func (m *Manager) Reset(ctx context.Context, key model.ConversationKey) error {
	return m.conversationRepo.ClearHistory(ctx, key)
}

// DistillMemory folds the finished turn into the user's long-term
// preference notes with the utility model. Best effort; disabled via
// config or when no utility model is wired.
func (m *Manager) DistillMemory(ctx context.Context, key model.ConversationKey, existing string, turn []*schema.Message) {
	if !m.memoryEnabled || m.memoryStore == nil || m.utility == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		system, err := prompts.RenderMemoryUpdate(detached, existing, renderTranscript(turn))
		if err != nil {
			logx.Warn().Err(err).Msg("memory prompt render failed")
			return
		}
		reply, err := m.utility.Generate(detached, []*schema.Message{
			schema.SystemMessage(system),
			schema.UserMessage("Update the notes."),
		})
		if err != nil {
			logx.Warn().Err(err).Str("user", key.User).Msg("memory distillation failed")
			return
		}
		notes := strings.TrimSpace(reply.Content)
		if notes == "" || notes == strings.TrimSpace(existing) {
			return
		}
		if err := m.memoryStore.SavePreferences(detached, key.User, notes); err != nil {
			logx.Warn().Err(err).Str("user", key.User).Msg("failed to save preferences")
		}
	}()
}

func renderTranscript(msgs []*schema.Message) string {
	var b strings.Builder
	for _, m := range msgs {
		if m == nil || m.Content == "" {
			continue
		}
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func trimTail(messages []*schema.Message, maxTurns int) []*schema.Message {
	if len(messages) <= maxTurns {
		result := make([]*schema.Message, len(messages))
		copy(result, messages)
		return result
	}
	source := messages[len(messages)-maxTurns:]
	result := make([]*schema.Message, len(source))
	copy(result, source)
	return result
}
