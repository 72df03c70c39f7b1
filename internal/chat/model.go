package chat

import (
	"time"

	"barter_backend/internal/message"

	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200

	systemSenderName  = "System"
	unknownSenderName = "Unknown"
)

type SendMessageRequest struct {
	Content string              `json:"content" binding:"required,max=2000"`
	Type    message.MessageType `json:"type" binding:"omitempty,oneof=text image"`
}

// MessageResponse is a message with its sender's display name.
type MessageResponse struct {
	ID         uuid.UUID           `json:"id"`
	MatchID    uuid.UUID           `json:"match_id"`
	SenderID   uuid.UUID           `json:"sender_id"`
	SenderName string              `json:"sender_name"`
	Content    string              `json:"content"`
	Type       message.MessageType `json:"type"`
	CreatedAt  time.Time           `json:"created_at"`
}

type ChatHistory struct {
	MatchID  uuid.UUID         `json:"match_id"`
	Messages []MessageResponse `json:"messages"`
	Total    int64             `json:"total"`
}

// clientFrame is what a WebSocket client sends.
type clientFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type errorData struct {
	Message string `json:"message"`
}
