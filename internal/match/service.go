package match

import (
	"context"
	"fmt"

	"barter_backend/internal/common"
	"barter_backend/internal/listing"
	"barter_backend/internal/message"
	"barter_backend/internal/platform/database"
	"barter_backend/internal/presence"
	"barter_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	matchListLimit = 50

	MatchCreatedMessage   = "It's a match! You can now chat to arrange your trade."
	TradeConfirmedMessage = "Trade confirmed by both parties"
	tradeCancelledFormat  = "%s cancelled the trade"
)

// Service is the confirm/cancel state machine plus read access to matches.
type Service interface {
	ListMatches(ctx context.Context, userID uuid.UUID) ([]MatchResponse, error)
	GetMatch(ctx context.Context, matchID, userID uuid.UUID) (*MatchResponse, error)
	ConfirmTrade(ctx context.Context, matchID, userID uuid.UUID) (*ConfirmTradeResponse, error)
	CancelMatch(ctx context.Context, matchID, userID uuid.UUID) error
}

// ServiceImplementation implements the match Service interface.
type ServiceImplementation struct {
	matches  Repository
	listings listing.Repository
	messages message.Repository
	users    shared.UserReader
	notifier presence.Notifier
	index    listing.IndexSyncer
	tx       database.Transactor
	logger   *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new match service.
func NewService(
	matches Repository,
	listings listing.Repository,
	messages message.Repository,
	users shared.UserReader,
	notifier presence.Notifier,
	index listing.IndexSyncer,
	tx database.Transactor,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		matches:  matches,
		listings: listings,
		messages: messages,
		users:    users,
		notifier: notifier,
		index:    index,
		tx:       tx,
		logger:   logger.Named("MatchService"),
	}
}

// ForParticipant loads a match and checks that userID takes part in it.
// A missing match is NotFound; an outsider gets Forbidden.
func ForParticipant(ctx context.Context, repo Repository, matchID, userID uuid.UUID) (*Match, error) {
	m, err := repo.FindByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.IsParticipant(userID) {
		return nil, common.ErrForbidden.WithDetails("You are not a participant in this match.")
	}
	return m, nil
}

func (s *ServiceImplementation) ListMatches(ctx context.Context, userID uuid.UUID) ([]MatchResponse, error) {
	matches, err := s.matches.ListForUser(ctx, userID, []MatchStatus{StatusActive, StatusConfirmed}, matchListLimit)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, userID, matches)
}

func (s *ServiceImplementation) GetMatch(ctx context.Context, matchID, userID uuid.UUID) (*MatchResponse, error) {
	m, err := ForParticipant(ctx, s.matches, matchID, userID)
	if err != nil {
		return nil, err
	}
	out, err := s.hydrate(ctx, userID, []Match{*m})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		// Listings are only soft deleted, so a missing row means it was
		// removed outside the service. The match itself still exists.
		return nil, common.ErrInvalidState.WithDetails("A listing of this match no longer exists.")
	}
	return &out[0], nil
}

// hydrate loads every listing and owner profile for matches in two batched
// queries. Matches whose listings are gone are skipped.
func (s *ServiceImplementation) hydrate(ctx context.Context, viewerID uuid.UUID, matches []Match) ([]MatchResponse, error) {
	out := make([]MatchResponse, 0, len(matches))
	if len(matches) == 0 {
		return out, nil
	}

	listingIDs := make([]uuid.UUID, 0, 2*len(matches))
	userIDs := make([]uuid.UUID, 0, 2*len(matches))
	for i := range matches {
		listingIDs = append(listingIDs, matches[i].ListingIDs()...)
		userIDs = append(userIDs, matches[i].UserIDs()...)
	}

	found, err := s.listings.FindByIDs(ctx, listingIDs)
	if err != nil {
		return nil, err
	}
	listings := make(map[uuid.UUID]listing.ListingResponse, len(found))
	for i := range found {
		listings[found[i].ID] = listing.ToListingResponse(&found[i])
	}
	profiles, err := s.users.GetPublicProfiles(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	profile := func(id uuid.UUID) shared.PublicProfile {
		if p, ok := profiles[id]; ok {
			return p
		}
		return unknownProfile(id)
	}

	for i := range matches {
		m := &matches[i]
		la, okA := listings[m.ListingAID]
		lb, okB := listings[m.ListingBID]
		if !okA || !okB {
			s.logger.Warn("Skipping match with missing listing", zap.String("matchID", m.ID.String()))
			continue
		}
		ua, ub := profile(m.UserAID), profile(m.UserBID)
		resp := MatchResponse{
			ID:           m.ID,
			Status:       m.Status,
			ConfirmedByA: m.ConfirmedByA,
			ConfirmedByB: m.ConfirmedByB,
			CreatedAt:    m.CreatedAt,
			ExpiresAt:    m.ExpiresAt,
			ListingA:     la,
			ListingB:     lb,
			UserA:        ua,
			UserB:        ub,
		}
		switch viewerID {
		case m.UserAID:
			resp.MyListing, resp.TheirListing, resp.TheirUser = &la, &lb, &ub
		case m.UserBID:
			resp.MyListing, resp.TheirListing, resp.TheirUser = &lb, &la, &ua
		}
		out = append(out, resp)
	}
	return out, nil
}

// ConfirmTrade raises the caller's confirmation flag. The second flag moves
// the match to confirmed and both listings to traded in one transaction.
func (s *ServiceImplementation) ConfirmTrade(ctx context.Context, matchID, userID uuid.UUID) (*ConfirmTradeResponse, error) {
	m, err := ForParticipant(ctx, s.matches, matchID, userID)
	if err != nil {
		return nil, err
	}
	switch m.Status {
	case StatusConfirmed:
		return confirmResponse(m.ID, true), nil
	case StatusActive:
	default:
		return nil, common.ErrInvalidState.WithDetails(fmt.Sprintf("Match is %s and can no longer be confirmed.", m.Status))
	}

	var completed, fully bool
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.matches.SetConfirmed(ctx, m.ID, m.SideOf(userID))
		if err != nil {
			return err
		}
		if !ok {
			return common.ErrInvalidState.WithDetails("Match can no longer be confirmed.")
		}
		current, err := s.matches.FindByID(ctx, m.ID)
		if err != nil {
			return err
		}
		if !current.FullyConfirmed() {
			return nil
		}
		fully = true

		moved, err := s.matches.TransitionStatus(ctx, m.ID, []MatchStatus{StatusActive}, StatusConfirmed)
		if err != nil || !moved {
			// Not moved means a concurrent confirm already finished the trade.
			return err
		}
		if err := s.listings.SetStatus(ctx, listing.StatusMatched, listing.StatusTraded, m.ListingIDs()...); err != nil {
			return err
		}
		if err := s.messages.Create(ctx, message.NewSystemMessage(m.ID, TradeConfirmedMessage)); err != nil {
			return err
		}
		completed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch {
	case completed:
		s.logger.Info("Trade confirmed", zap.String("matchID", m.ID.String()))
		s.index.SyncIndex(ctx, m.ListingIDs()...)
		s.notifier.BroadcastToUsers(m.UserIDs(), presence.EventTradeConfirmed,
			TradeConfirmedEvent{MatchID: m.ID, Status: StatusConfirmed})
	case !fully:
		s.notifier.SendToUser(m.OtherUser(userID), presence.EventTradeConfirmationPending,
			ConfirmationPendingEvent{MatchID: m.ID, ConfirmedBy: userID})
	}
	return confirmResponse(m.ID, fully), nil
}

func confirmResponse(matchID uuid.UUID, fully bool) *ConfirmTradeResponse {
	if fully {
		return &ConfirmTradeResponse{
			MatchID:        matchID,
			Status:         StatusConfirmed,
			FullyConfirmed: true,
			Message:        TradeConfirmedMessage,
		}
	}
	return &ConfirmTradeResponse{
		MatchID: matchID,
		Status:  StatusActive,
		Message: "Waiting for the other party to confirm",
	}
}

// CancelMatch ends an active match and puts both listings back on offer.
func (s *ServiceImplementation) CancelMatch(ctx context.Context, matchID, userID uuid.UUID) error {
	m, err := ForParticipant(ctx, s.matches, matchID, userID)
	if err != nil {
		return err
	}
	switch m.Status {
	case StatusActive:
	case StatusConfirmed:
		return common.ErrInvalidState.WithDetails("A confirmed trade cannot be cancelled.")
	default:
		return common.ErrInvalidState.WithDetails(fmt.Sprintf("Match is already %s.", m.Status))
	}

	name := s.displayName(ctx, userID)
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		moved, err := s.matches.TransitionStatus(ctx, m.ID, []MatchStatus{StatusActive}, StatusCancelled)
		if err != nil {
			return err
		}
		if !moved {
			return common.ErrInvalidState.WithDetails("Match is no longer active.")
		}
		if err := s.listings.SetStatus(ctx, listing.StatusMatched, listing.StatusActive, m.ListingIDs()...); err != nil {
			return err
		}
		return s.messages.Create(ctx, message.NewSystemMessage(m.ID, fmt.Sprintf(tradeCancelledFormat, name)))
	})
	if err != nil {
		return err
	}

	s.logger.Info("Match cancelled", zap.String("matchID", m.ID.String()), zap.String("userID", userID.String()))
	s.index.SyncIndex(ctx, m.ListingIDs()...)
	s.notifier.SendToUser(m.OtherUser(userID), presence.EventMatchCancelled,
		MatchCancelledEvent{MatchID: m.ID, CancelledBy: userID})
	return nil
}

func (s *ServiceImplementation) displayName(ctx context.Context, userID uuid.UUID) string {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Could not load user for cancel message", zap.Error(err), zap.String("userID", userID.String()))
		return "Unknown"
	}
	return u.DisplayName
}
