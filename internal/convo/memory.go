package convo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store. Used in tests and single-process
// deployments without a database.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[uuid.UUID]*Conversation
}

// NewMemoryStore creates an empty in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[uuid.UUID]*Conversation)}
}

// AppendTurn appends a turn, creating the conversation on first use.
func (s *MemoryStore) AppendTurn(_ context.Context, conversationID uuid.UUID, userID string, turn Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		now := time.Now().UTC()
		title := "New Conversation"
		if turn.Role == RoleUser {
			title = deriveTitle(turn.Content)
		}
		conv = &Conversation{
			Summary: Summary{
				ID:        conversationID,
				UserID:    userID,
				Title:     title,
				CreatedAt: now,
				UpdatedAt: now,
			},
		}
		s.conversations[conversationID] = conv
	}
	if conv.UserID != userID {
		return ErrNotFound
	}

	conv.Turns = append(conv.Turns, turn)
	conv.MessageCount = len(conv.Turns)
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns the user's conversations, most recently updated first.
func (s *MemoryStore) List(_ context.Context, userID string, limit int) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := []Summary{}
	for _, conv := range s.conversations {
		if conv.UserID == userID {
			summaries = append(summaries, conv.Summary)
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].UpdatedAt.After(summaries[j].UpdatedAt)
	})
	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

// Get returns the full conversation, enforcing ownership.
func (s *MemoryStore) Get(_ context.Context, conversationID uuid.UUID, userID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return nil, ErrNotFound
	}

	out := &Conversation{Summary: conv.Summary}
	out.Turns = append([]Turn(nil), conv.Turns...)
	return out, nil
}

// Delete removes a conversation, enforcing ownership.
func (s *MemoryStore) Delete(_ context.Context, conversationID uuid.UUID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return ErrNotFound
	}
	delete(s.conversations, conversationID)
	return nil
}
