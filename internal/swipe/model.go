package swipe

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Direction of a swipe. right means interested.
type Direction string

const (
	DirectionRight Direction = "right"
	DirectionLeft  Direction = "left"
)

func (d Direction) IsValid() bool {
	return d == DirectionRight || d == DirectionLeft
}

// Swipe records one user's decision on a target listing while offering one of
// their own. The (swiper, offered listing, target listing) triple is unique.
type Swipe struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	SwiperID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_swipes_triple,priority:1"`
	SwiperListingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_swipes_triple,priority:2"`
	TargetListingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_swipes_triple,priority:3;index"`
	Direction       Direction `gorm:"type:varchar(5);not null"`
	CreatedAt       time.Time `gorm:"not null"`
}

func (Swipe) TableName() string {
	return "swipes"
}

func (s *Swipe) BeforeCreate(_ *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// --- DTOs for API ---

type SwipeRequest struct {
	SwiperListingID uuid.UUID `json:"swiper_listing_id" binding:"required"`
	TargetListingID uuid.UUID `json:"target_listing_id" binding:"required"`
	Direction       Direction `json:"direction" binding:"required,oneof=right left"`
}

type SwipeResult struct {
	SwipeID      uuid.UUID  `json:"swipe_id"`
	Direction    Direction  `json:"direction"`
	MatchCreated bool       `json:"match_created"`
	MatchID      *uuid.UUID `json:"match_id,omitempty"`
	Message      string     `json:"message"`
}

const (
	messageRecorded      = "Swipe recorded"
	messageAlreadySwiped = "Already swiped"
	messageMatch         = "It's a match!"
)
