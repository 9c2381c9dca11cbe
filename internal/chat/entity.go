// AngelaMos | 2026
// entity.go

package chat

import (
	"time"

	"github.com/saathi-labs/companion-api/internal/language"
)

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
)

type Conversation struct {
	ID            int64             `db:"id"`
	UserID        string            `db:"user_id"`
	CharacterID   int64             `db:"character_id"`
	MessageCount  int               `db:"message_count"`
	Language      language.Language `db:"language"`
	IsActive      bool              `db:"is_active"`
	LastMessageAt *time.Time        `db:"last_message_at"`
	CreatedAt     time.Time         `db:"created_at"`
	EndedAt       *time.Time        `db:"ended_at"`
}

type Message struct {
	ID             int64             `db:"id"`
	ConversationID int64             `db:"conversation_id"`
	Content        string            `db:"content"`
	Sender         Sender            `db:"sender"`
	Language       language.Language `db:"language"`
	CreatedAt      time.Time         `db:"created_at"`
}
