package match

import (
	"time"

	"barter_backend/internal/common"
	"barter_backend/internal/listing"
	"barter_backend/internal/shared"

	"github.com/google/uuid"
)

// MatchStatus is the lifecycle state of a match. active moves to confirmed
// or cancelled; both are terminal. expired is stored but never assigned.
type MatchStatus string

const (
	StatusActive    MatchStatus = "active"
	StatusConfirmed MatchStatus = "confirmed"
	StatusCancelled MatchStatus = "cancelled"
	StatusExpired   MatchStatus = "expired"
)

// AllowsMessages reports whether participants may still chat.
func (s MatchStatus) AllowsMessages() bool {
	return s == StatusActive || s == StatusConfirmed
}

// Side identifies which half of the pair a participant is on.
type Side string

const (
	SideA Side = "a"
	SideB Side = "b"
)

// Match pairs two listings whose owners swiped right on each other.
type Match struct {
	common.BaseModel
	ListingAID   uuid.UUID   `gorm:"type:uuid;not null"`
	ListingBID   uuid.UUID   `gorm:"type:uuid;not null"`
	UserAID      uuid.UUID   `gorm:"type:uuid;not null;index"`
	UserBID      uuid.UUID   `gorm:"type:uuid;not null;index"`
	PairKey      string      `gorm:"type:varchar(73);not null;uniqueIndex"`
	Status       MatchStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	ConfirmedByA bool        `gorm:"not null;default:false"`
	ConfirmedByB bool        `gorm:"not null;default:false"`
	ExpiresAt    time.Time   `gorm:"not null;index"`
}

func (Match) TableName() string {
	return "matches"
}

// PairKey is the order-independent key of a listing pair.
func PairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if x > y {
		x, y = y, x
	}
	return x + ":" + y
}

// NewMatch builds an active match between listing a (owned by userA) and
// listing b (owned by userB) that expires ttl after now.
func NewMatch(listingA, userA, listingB, userB uuid.UUID, now time.Time, ttl time.Duration) *Match {
	return &Match{
		BaseModel:  common.BaseModel{CreatedAt: now, UpdatedAt: now},
		ListingAID: listingA,
		ListingBID: listingB,
		UserAID:    userA,
		UserBID:    userB,
		PairKey:    PairKey(listingA, listingB),
		Status:     StatusActive,
		ExpiresAt:  now.Add(ttl),
	}
}

func (m *Match) IsParticipant(userID uuid.UUID) bool {
	return userID == m.UserAID || userID == m.UserBID
}

// SideOf returns the side of a participant. Callers check IsParticipant first.
func (m *Match) SideOf(userID uuid.UUID) Side {
	if userID == m.UserAID {
		return SideA
	}
	return SideB
}

// OtherUser returns the participant that is not userID.
func (m *Match) OtherUser(userID uuid.UUID) uuid.UUID {
	if userID == m.UserAID {
		return m.UserBID
	}
	return m.UserAID
}

func (m *Match) UserIDs() []uuid.UUID {
	return []uuid.UUID{m.UserAID, m.UserBID}
}

func (m *Match) ListingIDs() []uuid.UUID {
	return []uuid.UUID{m.ListingAID, m.ListingBID}
}

func (m *Match) FullyConfirmed() bool {
	return m.ConfirmedByA && m.ConfirmedByB
}

// --- Event payloads ---

// NewMatchEvent is pushed to both participants when a match is created.
type NewMatchEvent struct {
	MatchID    uuid.UUID `json:"match_id"`
	ListingAID uuid.UUID `json:"listing_a_id"`
	ListingBID uuid.UUID `json:"listing_b_id"`
}

type TradeConfirmedEvent struct {
	MatchID uuid.UUID   `json:"match_id"`
	Status  MatchStatus `json:"status"`
}

type ConfirmationPendingEvent struct {
	MatchID     uuid.UUID `json:"match_id"`
	ConfirmedBy uuid.UUID `json:"confirmed_by"`
}

type MatchCancelledEvent struct {
	MatchID     uuid.UUID `json:"match_id"`
	CancelledBy uuid.UUID `json:"cancelled_by"`
}

// --- DTOs for API ---

// MatchResponse is a match hydrated with both listings and both owners, plus
// the same data arranged from the caller's point of view.
type MatchResponse struct {
	ID           uuid.UUID               `json:"id"`
	Status       MatchStatus             `json:"status"`
	ConfirmedByA bool                    `json:"confirmed_by_a"`
	ConfirmedByB bool                    `json:"confirmed_by_b"`
	CreatedAt    time.Time               `json:"created_at"`
	ExpiresAt    time.Time               `json:"expires_at"`
	ListingA     listing.ListingResponse `json:"listing_a"`
	ListingB     listing.ListingResponse `json:"listing_b"`
	UserA        shared.PublicProfile    `json:"user_a"`
	UserB        shared.PublicProfile    `json:"user_b"`

	MyListing    *listing.ListingResponse `json:"my_listing"`
	TheirListing *listing.ListingResponse `json:"their_listing"`
	TheirUser    *shared.PublicProfile    `json:"their_user"`
}

type ConfirmTradeResponse struct {
	MatchID        uuid.UUID   `json:"match_id"`
	Status         MatchStatus `json:"status"`
	FullyConfirmed bool        `json:"fully_confirmed"`
	Message        string      `json:"message"`
}

// unknownProfile stands in for an owner whose account no longer exists.
func unknownProfile(id uuid.UUID) shared.PublicProfile {
	return shared.PublicProfile{ID: id, DisplayName: "Unknown"}
}

