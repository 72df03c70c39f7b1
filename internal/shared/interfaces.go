package shared

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// User is the private view of an account, shared across domain packages.
type User struct {
	ID            uuid.UUID
	Email         string
	DisplayName   string
	AvatarURL     *string
	Bio           *string
	City          *string
	Latitude      *float64
	Longitude     *float64
	TradeRadiusKM float64
	RatingAvg     float64
	RatingCount   int
	IsActive      bool
	IsVerified    bool
	CreatedAt     time.Time
}

// HasLocation reports whether both coordinates are set.
func (u *User) HasLocation() bool {
	return u != nil && u.Latitude != nil && u.Longitude != nil
}

// PublicProfile is the snapshot of a user that other users may see.
type PublicProfile struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url"`
	Bio         *string   `json:"bio"`
	City        *string   `json:"city"`
	RatingAvg   float64   `json:"rating_avg"`
	RatingCount int       `json:"rating_count"`
	IsVerified  bool      `json:"is_verified"`
}

// UserReader is the user collaborator consumed by the matching, deck and chat packages.
type UserReader interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetPublicProfiles returns the profiles it could find; missing ids are
	// simply absent from the map.
	GetPublicProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]PublicProfile, error)
}

// TokenResponse represents the response containing an access token.
type TokenResponse struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	TokenType   string    `json:"token_type"`
}

// TokenService defines the interface for JWT operations.
type TokenService interface {
	GenerateAccessToken(userID uuid.UUID, email string) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims represents the JWT claims structure. The subject carries the user id.
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	jwt.RegisteredClaims
}

// Authenticator resolves a bearer token into the claims of an active user.
// It is shared by the HTTP middleware and the WebSocket handshake.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Claims, error)
}
