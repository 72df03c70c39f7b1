package message

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageType distinguishes user text, uploaded images and system notices.
type MessageType string

const (
	TypeText   MessageType = "text"
	TypeSystem MessageType = "system"
	TypeImage  MessageType = "image"
)

// SystemSenderID is the sender of every system message.
var SystemSenderID = uuid.Nil

// MaxContentLength is the longest message body accepted from a user.
const MaxContentLength = 2000

// Message is a chat line inside a match. Messages are append-only.
type Message struct {
	ID        uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	MatchID   uuid.UUID   `gorm:"type:uuid;not null;index:idx_messages_match_created,priority:1" json:"match_id"`
	SenderID  uuid.UUID   `gorm:"type:uuid;not null" json:"sender_id"`
	Content   string      `gorm:"type:varchar(2000);not null" json:"content"`
	Type      MessageType `gorm:"type:varchar(10);not null;default:'text'" json:"type"`
	CreatedAt time.Time   `gorm:"not null;index:idx_messages_match_created,priority:2" json:"created_at"`
}

// TableName specifies the table name for GORM.
func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(_ *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// IsSystem reports whether the message was written by the server.
func (m *Message) IsSystem() bool {
	return m.SenderID == SystemSenderID
}

// NewSystemMessage builds a system notice for a match.
func NewSystemMessage(matchID uuid.UUID, content string) *Message {
	return &Message{
		MatchID:  matchID,
		SenderID: SystemSenderID,
		Content:  content,
		Type:     TypeSystem,
	}
}
