package swipe

import (
	"context"
	"errors"
	"time"

	"barter_backend/internal/common"
	"barter_backend/internal/config"
	"barter_backend/internal/listing"
	"barter_backend/internal/match"
	"barter_backend/internal/message"
	"barter_backend/internal/platform/database"
	"barter_backend/internal/presence"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service records swipes and turns mutual right swipes into matches.
type Service interface {
	RecordSwipe(ctx context.Context, swiperID uuid.UUID, req SwipeRequest) (*SwipeResult, error)
}

// ServiceImplementation implements the swipe Service interface.
type ServiceImplementation struct {
	swipes   Repository
	listings listing.Repository
	matches  match.Repository
	messages message.Repository
	notifier presence.Notifier
	index    listing.IndexSyncer
	tx       database.Transactor
	cfg      *config.Config
	logger   *zap.Logger
	now      func() time.Time
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new swipe service.
func NewService(
	swipes Repository,
	listings listing.Repository,
	matches match.Repository,
	messages message.Repository,
	notifier presence.Notifier,
	index listing.IndexSyncer,
	tx database.Transactor,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		swipes:   swipes,
		listings: listings,
		matches:  matches,
		messages: messages,
		notifier: notifier,
		index:    index,
		tx:       tx,
		cfg:      cfg,
		logger:   logger.Named("SwipeService"),
		now:      time.Now,
	}
}

// RecordSwipe stores the swipe once per (swiper, offered, target) triple.
// A repeat is answered with the stored swipe rather than an error.
func (s *ServiceImplementation) RecordSwipe(ctx context.Context, swiperID uuid.UUID, req SwipeRequest) (*SwipeResult, error) {
	if !req.Direction.IsValid() {
		return nil, common.NewValidationAPIError(map[string]string{"Direction": "Direction must be right or left."})
	}

	offered, err := s.listings.FindActiveOwned(ctx, req.SwiperListingID, swiperID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound.WithDetails("Your listing not found or inactive")
		}
		return nil, err
	}
	target, err := s.listings.FindByID(ctx, req.TargetListingID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if target == nil || target.Status != listing.StatusActive {
		return nil, common.ErrNotFound.WithDetails("Target listing not found or inactive")
	}
	if target.UserID == swiperID {
		return nil, common.NewValidationAPIError(map[string]string{"TargetListingID": "Cannot swipe on your own listing"})
	}

	sw := &Swipe{
		SwiperID:        swiperID,
		SwiperListingID: offered.ID,
		TargetListingID: target.ID,
		Direction:       req.Direction,
		CreatedAt:       s.now(),
	}
	inserted, err := s.swipes.InsertIfAbsent(ctx, sw)
	if err != nil {
		return nil, err
	}
	if !inserted {
		existing, err := s.swipes.FindByTriple(ctx, swiperID, offered.ID, target.ID)
		if err != nil {
			return nil, err
		}
		return &SwipeResult{SwipeID: existing.ID, Direction: existing.Direction, Message: messageAlreadySwiped}, nil
	}

	result := &SwipeResult{SwipeID: sw.ID, Direction: sw.Direction, Message: messageRecorded}
	if sw.Direction != DirectionRight {
		return result, nil
	}

	mutual, err := s.swipes.HasRightSwipe(ctx, target.UserID, target.ID, offered.ID)
	if err != nil {
		return nil, err
	}
	if !mutual {
		return result, nil
	}

	matchID, err := s.matchListings(ctx, offered, target)
	if err != nil {
		return nil, err
	}
	result.MatchCreated = true
	result.MatchID = &matchID
	result.Message = messageMatch
	return result, nil
}

// matchListings returns the match for the pair, creating it if this call is
// the first to see the mutual swipe. The pair_key unique index settles races:
// the loser rolls back and returns the winner's match.
func (s *ServiceImplementation) matchListings(ctx context.Context, offered, target *listing.Listing) (uuid.UUID, error) {
	key := match.PairKey(offered.ID, target.ID)
	existing, err := s.matches.FindByPairKey(ctx, key)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return uuid.Nil, err
	}

	m := match.NewMatch(offered.ID, offered.UserID, target.ID, target.UserID, s.now(), s.cfg.MatchTTL())
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.matches.Create(ctx, m); err != nil {
			return err
		}
		if err := s.messages.Create(ctx, message.NewSystemMessage(m.ID, match.MatchCreatedMessage)); err != nil {
			return err
		}
		return s.listings.SetStatus(ctx, listing.StatusActive, listing.StatusMatched, offered.ID, target.ID)
	})
	if err != nil {
		if !database.IsUniqueViolation(err) {
			return uuid.Nil, err
		}
		winner, ferr := s.matches.FindByPairKey(ctx, key)
		if ferr != nil {
			return uuid.Nil, ferr
		}
		s.logger.Info("Lost match creation race", zap.String("matchID", winner.ID.String()))
		return winner.ID, nil
	}

	s.logger.Info("Match created",
		zap.String("matchID", m.ID.String()),
		zap.String("listingA", m.ListingAID.String()),
		zap.String("listingB", m.ListingBID.String()))
	s.index.SyncIndex(ctx, m.ListingIDs()...)
	s.notifier.BroadcastToUsers(m.UserIDs(), presence.EventNewMatch, match.NewMatchEvent{
		MatchID:    m.ID,
		ListingAID: m.ListingAID,
		ListingBID: m.ListingBID,
	})
	return m.ID, nil
}
