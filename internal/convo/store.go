// Package convo persists conversation history. Conversations are append-only
// logs of turns owned by exactly one user; the ownership check lives at this
// boundary, not in the reasoning loop.
package convo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a conversation does not exist or belongs to a
// different user. The two cases are deliberately indistinguishable.
var ErrNotFound = errors.New("conversation not found")

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolCallRecord captures one tool invocation that contributed to an
// assistant turn.
type ToolCallRecord struct {
	Tool        string         `json:"tool"`
	Args        map[string]any `json:"args,omitempty"`
	ResultCount int            `json:"result_count"`
	Error       string         `json:"error,omitempty"`
}

// Turn is one unit of conversation history.
type Turn struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ToolCallRecord `json:"tool_calls,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Summary is a conversation without its turn history, for listings.
type Summary struct {
	ID           uuid.UUID `json:"conversation_id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Conversation is a full conversation record.
type Conversation struct {
	Summary
	Turns []Turn `json:"turns"`
}

// Store persists conversations. AppendTurn creates the conversation on first
// use, deriving its title from the first user turn; the title is never
// recomputed afterwards.
type Store interface {
	AppendTurn(ctx context.Context, conversationID uuid.UUID, userID string, turn Turn) error
	List(ctx context.Context, userID string, limit int) ([]Summary, error)
	Get(ctx context.Context, conversationID uuid.UUID, userID string) (*Conversation, error)
	Delete(ctx context.Context, conversationID uuid.UUID, userID string) error
}

// NewStore creates a Store implementation based on the configured type.
func NewStore(storeType string, pool *pgxpool.Pool) (Store, error) {
	switch storeType {
	case "", "postgres":
		if pool == nil {
			return nil, fmt.Errorf("postgres conversation store requires a database connection")
		}
		return NewPostgresStore(pool), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown conversation store type: %s", storeType)
	}
}

const maxTitleLength = 50

// deriveTitle builds a conversation title from the first user query.
func deriveTitle(query string) string {
	title := strings.ToLower(strings.TrimSpace(query))
	for _, prefix := range []string{"show me", "find", "get", "what", "where", "how", "can you"} {
		title = strings.TrimSpace(strings.TrimPrefix(title, prefix))
	}
	if title == "" {
		return "New Conversation"
	}
	first, size := utf8.DecodeRuneInString(title)
	title = string(unicode.ToUpper(first)) + title[size:]
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength-3]) + "..."
	}
	return title
}
