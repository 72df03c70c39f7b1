// File: internal/auth/service.go
package auth

import (
	"errors"
	"fmt"
	"time"

	"barter_backend/internal/config"
	"barter_backend/internal/shared"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const tokenIssuer = "barter_backend"

var errInvalidToken = errors.New("invalid token claims")

type JWTService struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewJWTService creates a new JWT service.
func NewJWTService(cfg *config.Config, logger *zap.Logger) shared.TokenService {
	return &JWTService{cfg: cfg, logger: logger.Named("JWTService")}
}

// GenerateAccessToken signs an HS256 token whose subject is the user id. Every
// token carries a unique jti so a single token can be revoked on logout.
func (s *JWTService) GenerateAccessToken(userID uuid.UUID, email string) (string, time.Time, error) {
	now := time.Now()
	expirationTime := now.Add(s.cfg.JWTAccessTokenExpiry)

	claims := &shared.Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.cfg.JWTSecretKey))
	if err != nil {
		s.logger.Error("Failed to sign access token", zap.Error(err))
		return "", time.Time{}, fmt.Errorf("could not sign access token: %w", err)
	}
	return tokenString, expirationTime, nil
}

// ValidateToken validates a JWT token and returns its claims.
func (s *JWTService) ValidateToken(tokenString string) (*shared.Claims, error) {
	claims := &shared.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(tokenIssuer))
	if err != nil {
		s.logger.Debug("Failed to validate token", zap.Error(err))
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, errInvalidToken
	}

	// The subject is authoritative for the user id.
	subjectID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, errInvalidToken
	}
	claims.UserID = subjectID
	return claims, nil
}
