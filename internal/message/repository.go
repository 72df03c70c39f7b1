package message

import (
	"context"
	"fmt"

	"barter_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository stores chat messages. Every method joins the transaction carried
// by ctx, if any.
type Repository interface {
	Create(ctx context.Context, msg *Message) error
	// ListByMatch returns one page of a match's messages, oldest first, and
	// the total number of messages in the match.
	ListByMatch(ctx context.Context, matchID uuid.UUID, limit, offset int) ([]Message, int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM message repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, msg *Message) error {
	if err := database.Conn(ctx, r.db).Create(msg).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

func (r *gormRepository) ListByMatch(ctx context.Context, matchID uuid.UUID, limit, offset int) ([]Message, int64, error) {
	var total int64
	err := database.Conn(ctx, r.db).Model(&Message{}).
		Where("match_id = ?", matchID).
		Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("counting messages for match %s failed: %w", matchID, err)
	}

	var messages []Message
	err = database.Conn(ctx, r.db).
		Where("match_id = ?", matchID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, 0, fmt.Errorf("fetching messages for match %s failed: %w", matchID, err)
	}
	return messages, total, nil
}
