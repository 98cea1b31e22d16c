package convo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps conversations in a JSONB-backed table so history lives
// next to the catalog.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a conversation store on the given pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// AppendTurn appends a turn, creating the conversation row on first use. The
// ownership predicate on the update path means a conflicting id owned by a
// different user updates nothing, which surfaces as ErrNotFound.
func (s *PostgresStore) AppendTurn(ctx context.Context, conversationID uuid.UUID, userID string, turn Turn) error {
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	encoded, err := json.Marshal([]Turn{turn})
	if err != nil {
		return fmt.Errorf("failed to encode turn: %w", err)
	}

	title := "New Conversation"
	if turn.Role == RoleUser {
		title = deriveTitle(turn.Content)
	}

	tag, err := s.pool.Exec(ctx, `
		INSERT INTO conversations (id, user_id, title, turns, message_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, now(), now())
		ON CONFLICT (id) DO UPDATE SET
			turns = conversations.turns || excluded.turns,
			message_count = conversations.message_count + 1,
			updated_at = now()
		WHERE conversations.user_id = excluded.user_id
	`, conversationID, userID, title, encoded)
	if err != nil {
		return fmt.Errorf("failed to append turn: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns the user's conversations, most recently updated first.
func (s *PostgresStore) List(ctx context.Context, userID string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, title, message_count, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	summaries := []Summary{}
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.UserID, &sum.Title, &sum.MessageCount, &sum.CreatedAt, &sum.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// Get returns the full conversation, enforcing ownership.
func (s *PostgresStore) Get(ctx context.Context, conversationID uuid.UUID, userID string) (*Conversation, error) {
	var conv Conversation
	var turns []byte
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, message_count, created_at, updated_at, turns
		FROM conversations
		WHERE id = $1 AND user_id = $2
	`, conversationID, userID).Scan(
		&conv.ID, &conv.UserID, &conv.Title, &conv.MessageCount,
		&conv.CreatedAt, &conv.UpdatedAt, &turns,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	if err := json.Unmarshal(turns, &conv.Turns); err != nil {
		return nil, fmt.Errorf("failed to decode turns: %w", err)
	}
	return &conv, nil
}

// Delete removes a conversation, enforcing ownership.
func (s *PostgresStore) Delete(ctx context.Context, conversationID uuid.UUID, userID string) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM conversations WHERE id = $1 AND user_id = $2
	`, conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
