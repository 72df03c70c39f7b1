package chat

import (
	"context"
	"fmt"
	"strings"

	"barter_backend/internal/common"
	"barter_backend/internal/match"
	"barter_backend/internal/message"
	"barter_backend/internal/presence"
	"barter_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service is the conversation inside a match. The REST and WebSocket
// transports both send through it.
type Service interface {
	History(ctx context.Context, matchID, requesterID uuid.UUID, limit, offset int) (*ChatHistory, error)
	Send(ctx context.Context, matchID, senderID uuid.UUID, content string, msgType message.MessageType) (*MessageResponse, error)
}

// ServiceImplementation implements the chat Service interface.
type ServiceImplementation struct {
	matches  match.Repository
	messages message.Repository
	users    shared.UserReader
	notifier presence.Notifier
	logger   *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new chat service.
func NewService(
	matches match.Repository,
	messages message.Repository,
	users shared.UserReader,
	notifier presence.Notifier,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		matches:  matches,
		messages: messages,
		users:    users,
		notifier: notifier,
		logger:   logger.Named("ChatService"),
	}
}

// History returns one page of the conversation, oldest first.
func (s *ServiceImplementation) History(ctx context.Context, matchID, requesterID uuid.UUID, limit, offset int) (*ChatHistory, error) {
	if _, err := match.ForParticipant(ctx, s.matches, matchID, requesterID); err != nil {
		return nil, err
	}
	window := common.ClampLimitOffset(limit, offset, defaultHistoryLimit, maxHistoryLimit)

	msgs, total, err := s.messages.ListByMatch(ctx, matchID, window.Limit, window.Offset)
	if err != nil {
		return nil, err
	}
	enriched, err := s.enrich(ctx, msgs)
	if err != nil {
		return nil, err
	}
	return &ChatHistory{MatchID: matchID, Messages: enriched, Total: total}, nil
}

// Send stores a participant's message and pushes it to both participants.
func (s *ServiceImplementation) Send(ctx context.Context, matchID, senderID uuid.UUID, content string, msgType message.MessageType) (*MessageResponse, error) {
	m, err := match.ForParticipant(ctx, s.matches, matchID, senderID)
	if err != nil {
		return nil, err
	}
	if !m.Status.AllowsMessages() {
		return nil, common.ErrInvalidState.WithDetails(fmt.Sprintf("Match is %s; messaging is closed.", m.Status))
	}

	content = strings.TrimSpace(content)
	if msgType == "" {
		msgType = message.TypeText
	}
	switch {
	case content == "":
		return nil, common.NewValidationAPIError(map[string]string{"content": "Message content must not be empty."})
	case len([]rune(content)) > message.MaxContentLength:
		return nil, common.NewValidationAPIError(map[string]string{"content": fmt.Sprintf("Message content may not be longer than %d characters.", message.MaxContentLength)})
	case msgType != message.TypeText && msgType != message.TypeImage:
		return nil, common.NewValidationAPIError(map[string]string{"type": "Message type must be text or image."})
	}

	msg := &message.Message{MatchID: m.ID, SenderID: senderID, Content: content, Type: msgType}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	enriched, err := s.enrich(ctx, []message.Message{*msg})
	if err != nil {
		return nil, err
	}
	out := enriched[0]

	s.notifier.BroadcastToUsers(m.UserIDs(), presence.EventNewMessage, out)
	return &out, nil
}

// enrich resolves sender names with one profile lookup for the whole batch.
func (s *ServiceImplementation) enrich(ctx context.Context, msgs []message.Message) ([]MessageResponse, error) {
	out := make([]MessageResponse, 0, len(msgs))
	if len(msgs) == 0 {
		return out, nil
	}

	var senderIDs []uuid.UUID
	seen := make(map[uuid.UUID]struct{})
	for _, msg := range msgs {
		if msg.IsSystem() {
			continue
		}
		if _, ok := seen[msg.SenderID]; !ok {
			seen[msg.SenderID] = struct{}{}
			senderIDs = append(senderIDs, msg.SenderID)
		}
	}
	profiles := map[uuid.UUID]shared.PublicProfile{}
	if len(senderIDs) > 0 {
		var err error
		if profiles, err = s.users.GetPublicProfiles(ctx, senderIDs); err != nil {
			return nil, err
		}
	}

	for _, msg := range msgs {
		name := unknownSenderName
		if msg.IsSystem() {
			name = systemSenderName
		} else if p, ok := profiles[msg.SenderID]; ok {
			name = p.DisplayName
		}
		out = append(out, MessageResponse{
			ID:         msg.ID,
			MatchID:    msg.MatchID,
			SenderID:   msg.SenderID,
			SenderName: name,
			Content:    msg.Content,
			Type:       msg.Type,
			CreatedAt:  msg.CreatedAt,
		})
	}
	return out, nil
}
