package auth

import (
	"context"
	"errors"

	"barter_backend/internal/common"
	"barter_backend/internal/shared"

	"go.uber.org/zap"
)

// TokenAuthenticator checks a bearer token, the logout blocklist and that the
// account behind the token is still active.
type TokenAuthenticator struct {
	tokens    shared.TokenService
	blocklist TokenBlocklistService
	users     shared.UserReader
	logger    *zap.Logger
}

var _ shared.Authenticator = (*TokenAuthenticator)(nil)

func NewTokenAuthenticator(
	tokens shared.TokenService,
	blocklist TokenBlocklistService,
	users shared.UserReader,
	logger *zap.Logger,
) *TokenAuthenticator {
	return &TokenAuthenticator{
		tokens:    tokens,
		blocklist: blocklist,
		users:     users,
		logger:    logger.Named("Authenticator"),
	}
}

// Authenticate returns common.ErrUnauthorized for every rejected token.
func (a *TokenAuthenticator) Authenticate(ctx context.Context, token string) (*shared.Claims, error) {
	if token == "" {
		return nil, common.ErrUnauthorized.WithDetails("Missing token.")
	}
	claims, err := a.tokens.ValidateToken(token)
	if err != nil {
		return nil, common.ErrUnauthorized.WithDetails("Invalid or expired token.")
	}

	revoked, err := a.blocklist.IsBlocklisted(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, common.ErrUnauthorized.WithDetails("Token has been revoked.")
	}

	u, err := a.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized.WithDetails("User not found.")
		}
		return nil, err
	}
	if !u.IsActive {
		a.logger.Debug("Rejected token of inactive user", zap.String("userID", u.ID.String()))
		return nil, common.ErrUnauthorized.WithDetails("User is inactive.")
	}
	return claims, nil
}
