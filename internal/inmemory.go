package repo

import (
	"context"
	"fmt"
	"sync"

	"github.com/adam-setup/server/internal/agent/model"
	"github.com/adam-setup/server/internal/dataset"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

// In-memory implementations for tests and for running without Redis.

type InMemoryConversationRepository struct {
	mu       sync.Mutex
	messages map[model.ConversationKey][]*schema.Message
	meta     map[model.ConversationKey]model.TurnMeta
}

func NewInMemoryConversationRepository() *InMemoryConversationRepository {
	return &InMemoryConversationRepository{
		messages: make(map[model.ConversationKey][]*schema.Message),
		meta:     make(map[model.ConversationKey]model.TurnMeta),
	}
}

func (r *InMemoryConversationRepository) AddMessages(_ context.Context, key model.ConversationKey, messages []*schema.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[key] = append(r.messages[key], messages...)
	return nil
}

func (r *InMemoryConversationRepository) LoadHistory(_ context.Context, key model.ConversationKey) (*model.ConversationHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := make([]*schema.Message, len(r.messages[key]))
	copy(msgs, r.messages[key])
	return &model.ConversationHistory{Key: key, Messages: msgs}, nil
}

func (r *InMemoryConversationRepository) ClearHistory(_ context.Context, key model.ConversationKey) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, key)
	delete(r.meta, key)
	return nil
}

func (r *InMemoryConversationRepository) SaveTurnMeta(_ context.Context, key model.ConversationKey, meta model.TurnMeta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.meta[key] = meta
	return nil
}

func (r *InMemoryConversationRepository) LoadTurnMeta(_ context.Context, key model.ConversationKey) (model.TurnMeta, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meta[key], nil
}

var _ model.ConversationRepository = (*InMemoryConversationRepository)(nil)

type InMemoryMemoryStore struct {
	mu    sync.Mutex
	prefs map[string]string
}

func NewInMemoryMemoryStore() *InMemoryMemoryStore {
	return &InMemoryMemoryStore{prefs: make(map[string]string)}
}

func (s *InMemoryMemoryStore) LoadPreferences(_ context.Context, user string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prefs[user], nil
}

func (s *InMemoryMemoryStore) SavePreferences(_ context.Context, user string, preferences string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[user] = preferences
	return nil
}

var _ model.MemoryStore = (*InMemoryMemoryStore)(nil)

// InMemoryArtifactStore keeps uploaded tables in a map. Links use the
// same path shape as the Redis store so rendered summaries look alike.
type InMemoryArtifactStore struct {
	mu     sync.Mutex
	tables map[string]*dataset.Table
}

func NewInMemoryArtifactStore() *InMemoryArtifactStore {
	return &InMemoryArtifactStore{tables: make(map[string]*dataset.Table)}
}

func (s *InMemoryArtifactStore) Upload(_ context.Context, t *dataset.Table, label string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.tables[id] = t
	return fmt.Sprintf("/artifacts/%s.csv", id), nil
}

// Get returns the stored table for an id, for assertions in tests.
func (s *InMemoryArtifactStore) Get(id string) (*dataset.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[id]
	return t, ok
}

// Len reports how many artifacts were uploaded.
func (s *InMemoryArtifactStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tables)
}
