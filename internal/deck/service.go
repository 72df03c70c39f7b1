package deck

import (
	"context"
	"errors"
	"sort"

	"barter_backend/internal/common"
	"barter_backend/internal/config"
	"barter_backend/internal/geo"
	"barter_backend/internal/listing"
	"barter_backend/internal/shared"
	"barter_backend/internal/swipe"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service builds the ranked swipe deck for one of the user's listings.
type Service interface {
	BuildDeck(ctx context.Context, userID uuid.UUID, q DeckQuery) ([]DeckItem, error)
}

// ServiceImplementation implements the deck Service interface.
type ServiceImplementation struct {
	listings listing.Repository
	swipes   swipe.Repository
	users    shared.UserReader
	cfg      *config.Config
	logger   *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new deck service.
func NewService(
	listings listing.Repository,
	swipes swipe.Repository,
	users shared.UserReader,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		listings: listings,
		swipes:   swipes,
		users:    users,
		cfg:      cfg,
		logger:   logger.Named("DeckService"),
	}
}

type candidate struct {
	listing  *listing.Listing
	distance *float64
}

// BuildDeck returns same-category listings of other users whose value is
// within the configured tolerance of the offering listing, that the user has
// not yet swiped on with it, and that lie inside the radius. Nearest first;
// listings without a distance come last.
func (s *ServiceImplementation) BuildDeck(ctx context.Context, userID uuid.UUID, q DeckQuery) ([]DeckItem, error) {
	if q.Category != nil && !q.Category.IsValid() {
		return nil, common.NewValidationAPIError(map[string]string{"category": "Unknown category."})
	}
	if q.RadiusKM != nil && (*q.RadiusKM <= 0 || *q.RadiusKM > MaxRadiusKM) {
		return nil, common.NewValidationAPIError(map[string]string{"radius_km": "Radius must be greater than 0 and at most 500."})
	}

	offering, err := s.listings.FindActiveOwned(ctx, q.OfferingListingID, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound.WithDetails("Offering listing not found or inactive")
		}
		return nil, err
	}
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	radius := s.cfg.DefaultRadiusKM
	switch {
	case q.RadiusKM != nil:
		radius = *q.RadiusKM
	case user.TradeRadiusKM > 0:
		radius = user.TradeRadiusKM
	}
	category := offering.Category
	if q.Category != nil {
		category = *q.Category
	}
	low, high := ValueRange(offering.EstimatedValue, s.cfg.ValueTolerancePercent)

	swiped, err := s.swipes.SwipedTargetIDs(ctx, userID, offering.ID)
	if err != nil {
		return nil, err
	}
	found, err := s.listings.FindDeckCandidates(ctx, listing.DeckFilter{
		ExcludeOwnerID: userID,
		Category:       category,
		MinValue:       low,
		MaxValue:       high,
		ExcludeIDs:     swiped,
	})
	if err != nil {
		return nil, err
	}

	origin := geo.PointFrom(offering.Latitude, offering.Longitude)
	if origin == nil {
		origin = geo.PointFrom(user.Latitude, user.Longitude)
	}
	kept := make([]candidate, 0, len(found))
	for i := range found {
		d := geo.DistanceKM(origin, geo.PointFrom(found[i].Latitude, found[i].Longitude))
		if d != nil && *d > radius {
			continue
		}
		kept = append(kept, candidate{listing: &found[i], distance: d})
	}
	rankByDistance(kept)
	if len(kept) > s.cfg.MaxSwipeDeckSize {
		kept = kept[:s.cfg.MaxSwipeDeckSize]
	}

	return s.enrich(ctx, kept)
}

// rankByDistance sorts nearest first and moves unknown distances to the end,
// keeping the input order among equals.
func rankByDistance(cs []candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		di, dj := cs[i].distance, cs[j].distance
		if di == nil || dj == nil {
			return di != nil && dj == nil
		}
		return *di < *dj
	})
}

func (s *ServiceImplementation) enrich(ctx context.Context, cs []candidate) ([]DeckItem, error) {
	items := make([]DeckItem, 0, len(cs))
	if len(cs) == 0 {
		return items, nil
	}

	ownerIDs := make([]uuid.UUID, 0, len(cs))
	seen := make(map[uuid.UUID]struct{}, len(cs))
	for _, c := range cs {
		if _, ok := seen[c.listing.UserID]; !ok {
			seen[c.listing.UserID] = struct{}{}
			ownerIDs = append(ownerIDs, c.listing.UserID)
		}
	}
	profiles, err := s.users.GetPublicProfiles(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}

	for _, c := range cs {
		item := DeckItem{ListingResponse: listing.ToListingResponse(c.listing), OwnerName: "Unknown"}
		item.DistanceKM = c.distance
		if p, ok := profiles[c.listing.UserID]; ok {
			item.OwnerName = p.DisplayName
			item.OwnerAvatar = p.AvatarURL
			item.OwnerRating = p.RatingAvg
			item.OwnerTradeCount = p.RatingCount
		}
		items = append(items, item)
	}
	return items, nil
}
