// AngelaMos | 2026
// repository.go

package chat

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/saathi-labs/companion-api/internal/core"
)

type Repository interface {
	CreateConversation(ctx context.Context, conv *Conversation) error
	GetConversation(ctx context.Context, id int64) (*Conversation, error)
	// AddMessages stores msgs and bumps the conversation's counter in one
	// transaction. It returns the counter after the insert.
	AddMessages(ctx context.Context, conversationID int64, msgs ...*Message) (int, error)
	// RecentMessages returns up to limit of the newest messages, oldest
	// first.
	RecentMessages(ctx context.Context, conversationID int64, limit int) ([]Message, error)
	EndConversation(ctx context.Context, id int64) error
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const conversationColumns = `id, user_id, character_id, message_count, language,
		       is_active, last_message_at, created_at, ended_at`

func (r *repository) CreateConversation(ctx context.Context, conv *Conversation) error {
	query := `
		INSERT INTO conversations (user_id, character_id, language)
		VALUES ($1, $2, $3)
		RETURNING ` + conversationColumns

	if err := r.db.GetContext(ctx, conv, query,
		conv.UserID,
		conv.CharacterID,
		conv.Language,
	); err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}

	return nil
}

func (r *repository) GetConversation(ctx context.Context, id int64) (*Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	var conv Conversation
	err := r.db.GetContext(ctx, &conv, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get conversation %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation %d: %w", id, err)
	}

	return &conv, nil
}

func (r *repository) AddMessages(
	ctx context.Context,
	conversationID int64,
	msgs ...*Message,
) (int, error) {
	insert := `
		INSERT INTO messages (conversation_id, content, sender, language)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	bump := `
		UPDATE conversations
		SET message_count = message_count + $2, last_message_at = NOW()
		WHERE id = $1
		RETURNING message_count`

	var count int
	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		for _, m := range msgs {
			m.ConversationID = conversationID
			if err := tx.QueryRowxContext(ctx, insert,
				conversationID,
				m.Content,
				m.Sender,
				m.Language,
			).Scan(&m.ID, &m.CreatedAt); err != nil {
				return fmt.Errorf("insert message: %w", err)
			}
		}

		err := tx.GetContext(ctx, &count, bump, conversationID, len(msgs))
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("bump message count: %w", core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("bump message count: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("add messages: %w", err)
	}

	return count, nil
}

func (r *repository) RecentMessages(
	ctx context.Context,
	conversationID int64,
	limit int,
) ([]Message, error) {
	query := `
		SELECT id, conversation_id, content, sender, language, created_at
		FROM (
			SELECT id, conversation_id, content, sender, language, created_at
			FROM messages
			WHERE conversation_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC`

	var msgs []Message
	if err := r.db.SelectContext(ctx, &msgs, query, conversationID, limit); err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}

	return msgs, nil
}

func (r *repository) EndConversation(ctx context.Context, id int64) error {
	query := `
		UPDATE conversations
		SET is_active = FALSE, ended_at = COALESCE(ended_at, NOW())
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("end conversation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("end conversation: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("end conversation: %w", core.ErrNotFound)
	}

	return nil
}
