package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// ConversationKey scopes a conversation to one user on one partner
// account. Both parts participate in every storage key.
type ConversationKey struct {
	User    string
	Partner string
}

// TurnMeta is the cross-turn state persisted alongside the message
// history so a follow-up message resumes where the previous turn ended.
type TurnMeta struct {
	ConversationID string    `json:"conversation_id"`
	InAnalysis     bool      `json:"in_analysis"`
	Briefing       string    `json:"briefing,omitempty"`
	IntentCategory string    `json:"intent_category,omitempty"`
	IntentSummary  string    `json:"intent_summary,omitempty"`
	LastCode       string    `json:"last_code,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type ConversationRepository interface {
	// AddMessages appends messages to the conversation history.
	AddMessages(ctx context.Context, key ConversationKey, messages []*schema.Message) error

	// LoadHistory retrieves the conversation history.
	LoadHistory(ctx context.Context, key ConversationKey) (*ConversationHistory, error)

	// ClearHistory removes all history and turn metadata.
	ClearHistory(ctx context.Context, key ConversationKey) error

	// SaveTurnMeta persists the cross-turn state.
	SaveTurnMeta(ctx context.Context, key ConversationKey, meta TurnMeta) error

	// LoadTurnMeta retrieves the cross-turn state. A conversation with
	// no prior turns returns a zero TurnMeta and no error.
	LoadTurnMeta(ctx context.Context, key ConversationKey) (TurnMeta, error)
}

// MemoryStore keeps the distilled long-term preferences per user.
type MemoryStore interface {
	LoadPreferences(ctx context.Context, user string) (string, error)
	SavePreferences(ctx context.Context, user string, preferences string) error
}

// ConversationHistory represents loaded conversation data with metadata.
type ConversationHistory struct {
	Key      ConversationKey
	Messages []*schema.Message
}
