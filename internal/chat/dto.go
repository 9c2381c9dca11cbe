// AngelaMos | 2026
// dto.go

package chat

import (
	"time"

	"github.com/saathi-labs/companion-api/internal/character"
)

type StartRequest struct {
	CharacterKey string `json:"characterKey" validate:"required,max=64"`
	Language     string `json:"language"     validate:"omitempty,oneof=english hinglish hindi chinese"`
}

type MessageRequest struct {
	ConversationID int64  `json:"conversationId" validate:"required,gt=0"`
	Content        string `json:"content"        validate:"required,max=4000"`
	Language       string `json:"language"       validate:"omitempty,oneof=english hinglish hindi chinese"`
}

type EndRequest struct {
	ConversationID int64 `json:"conversationId" validate:"required,gt=0"`
}

type ConversationResponse struct {
	ID            int64      `json:"id"`
	UserID        string     `json:"userId"`
	CharacterID   int64      `json:"characterId"`
	MessageCount  int        `json:"messageCount"`
	Language      string     `json:"language"`
	IsActive      bool       `json:"isActive"`
	LastMessageAt *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	EndedAt       *time.Time `json:"endedAt,omitempty"`
}

type MessageResponse struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversationId"`
	Content        string    `json:"content"`
	Sender         string    `json:"sender"`
	Language       string    `json:"language"`
	CreatedAt      time.Time `json:"createdAt"`
}

type StartResponse struct {
	Conversation ConversationResponse `json:"conversation"`
	Character    character.Response   `json:"character"`
	Messages     []MessageResponse    `json:"messages"`
}

type ExchangeResponse struct {
	UserMessage  MessageResponse `json:"userMessage"`
	AIMessage    MessageResponse `json:"aiMessage"`
	UserCoins    int             `json:"userCoins"`
	MessageCount int             `json:"messageCount"`
}

func ToConversationResponse(c *Conversation) ConversationResponse {
	return ConversationResponse{
		ID:            c.ID,
		UserID:        c.UserID,
		CharacterID:   c.CharacterID,
		MessageCount:  c.MessageCount,
		Language:      c.Language.String(),
		IsActive:      c.IsActive,
		LastMessageAt: c.LastMessageAt,
		CreatedAt:     c.CreatedAt,
		EndedAt:       c.EndedAt,
	}
}

func ToMessageResponse(m *Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Content:        m.Content,
		Sender:         string(m.Sender),
		Language:       m.Language.String(),
		CreatedAt:      m.CreatedAt,
	}
}
