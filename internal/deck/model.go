package deck

import (
	"barter_backend/internal/listing"

	"github.com/google/uuid"
)

// MaxRadiusKM caps the search radius a client may ask for.
const MaxRadiusKM = 500

// DeckQuery selects which listing the user is offering and optionally narrows
// the deck. Nil fields fall back to the offering listing and the user's profile.
type DeckQuery struct {
	OfferingListingID uuid.UUID
	Category          *listing.Category
	RadiusKM          *float64
}

// deckParams is the query-string form of DeckQuery.
type deckParams struct {
	OfferingListingID string            `form:"offering_listing_id" binding:"required,uuid"`
	Category          *listing.Category `form:"category" binding:"omitempty,oneof=electronics clothing books furniture sports instruments gaming outdoor art other"`
	RadiusKM          *float64          `form:"radius_km" binding:"omitempty,gt=0,lte=500"`
}

// DeckItem is a listing card with a snapshot of its owner.
type DeckItem struct {
	listing.ListingResponse
	OwnerName       string  `json:"owner_name"`
	OwnerAvatar     *string `json:"owner_avatar"`
	OwnerRating     float64 `json:"owner_rating"`
	OwnerTradeCount int     `json:"owner_trade_count"`
}

// ValueRange returns the inclusive bounds of values tradeable against base.
func ValueRange(base, tolerance float64) (low, high float64) {
	return base * (1 - tolerance), base * (1 + tolerance)
}
