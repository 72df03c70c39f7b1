package swipe

import (
	"context"
	"errors"
	"fmt"

	"barter_backend/internal/common"
	"barter_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository defines the interface for swipe data operations.
type Repository interface {
	// InsertIfAbsent stores s unless the same triple was already swiped and
	// reports whether a row was written.
	InsertIfAbsent(ctx context.Context, s *Swipe) (bool, error)
	FindByTriple(ctx context.Context, swiperID, swiperListingID, targetListingID uuid.UUID) (*Swipe, error)
	HasRightSwipe(ctx context.Context, swiperID, swiperListingID, targetListingID uuid.UUID) (bool, error)
	// SwipedTargetIDs lists every target the user has swiped on while
	// offering swiperListingID, in either direction.
	SwipedTargetIDs(ctx context.Context, swiperID, swiperListingID uuid.UUID) ([]uuid.UUID, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM swipe repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) InsertIfAbsent(ctx context.Context, s *Swipe) (bool, error) {
	result := database.Conn(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "swiper_id"}, {Name: "swiper_listing_id"}, {Name: "target_listing_id"}},
			DoNothing: true,
		}).
		Create(s)
	if result.Error != nil {
		return false, fmt.Errorf("failed to record swipe: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) FindByTriple(ctx context.Context, swiperID, swiperListingID, targetListingID uuid.UUID) (*Swipe, error) {
	var s Swipe
	err := database.Conn(ctx, r.db).
		Where("swiper_id = ? AND swiper_listing_id = ? AND target_listing_id = ?", swiperID, swiperListingID, targetListingID).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrNotFound.WithDetails("Swipe not found.")
		}
		return nil, fmt.Errorf("failed to find swipe: %w", err)
	}
	return &s, nil
}

func (r *gormRepository) HasRightSwipe(ctx context.Context, swiperID, swiperListingID, targetListingID uuid.UUID) (bool, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&Swipe{}).
		Where("swiper_id = ? AND swiper_listing_id = ? AND target_listing_id = ? AND direction = ?",
			swiperID, swiperListingID, targetListingID, DirectionRight).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("failed to look up mirror swipe: %w", err)
	}
	return n > 0, nil
}

func (r *gormRepository) SwipedTargetIDs(ctx context.Context, swiperID, swiperListingID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := database.Conn(ctx, r.db).Model(&Swipe{}).
		Where("swiper_id = ? AND swiper_listing_id = ?", swiperID, swiperListingID).
		Pluck("target_listing_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load swiped targets: %w", err)
	}
	return ids, nil
}
