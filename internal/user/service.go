package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barter_backend/internal/common"
	"barter_backend/internal/config"
	"barter_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Service defines user-related business logic.
type Service interface {
	shared.UserReader
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*shared.User, error)
	GetPublicProfile(ctx context.Context, id uuid.UUID) (*shared.PublicProfile, error)
}

// ServiceImplementation implements Service.
type ServiceImplementation struct {
	repo         Repository
	tokenService shared.TokenService
	profiles     *cache.Cache // nil when PROFILE_CACHE_TTL_SECONDS is 0
	cfg          *config.Config
	logger       *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new user service.
func NewService(
	repo Repository,
	tokenService shared.TokenService,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	var profiles *cache.Cache
	if cfg.ProfileCacheTTL > 0 {
		profiles = cache.New(cfg.ProfileCacheTTL, 2*cfg.ProfileCacheTTL)
	}
	return &ServiceImplementation{
		repo:         repo,
		tokenService: tokenService,
		profiles:     profiles,
		cfg:          cfg,
		logger:       logger.Named("UserService"),
	}
}

// Register creates a new account and returns an access token for it.
func (s *ServiceImplementation) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	_, err := s.repo.FindByEmail(ctx, req.Email)
	if err == nil {
		return nil, common.ErrConflict.WithDetails("Email already registered.")
	}
	if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check existing user by email: %w", err)
	}

	hashedPassword, err := common.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", zap.Error(err))
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	dbUser := &User{
		Email:         req.Email,
		PasswordHash:  hashedPassword,
		DisplayName:   req.DisplayName,
		TradeRadiusKM: s.cfg.DefaultRadiusKM,
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, dbUser); err != nil {
		s.logger.Error("Failed to create user in repository", zap.Error(err), zap.String("email", req.Email))
		return nil, err
	}

	s.logger.Info("User registered successfully", zap.String("userID", dbUser.ID.String()))
	return s.authResponse(dbUser)
}

// Login verifies credentials and returns an access token.
func (s *ServiceImplementation) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	dbUser, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized.WithDetails("Invalid email or password.")
		}
		s.logger.Error("Error finding user by email during login", zap.Error(err))
		return nil, err
	}
	if !common.CheckPasswordHash(req.Password, dbUser.PasswordHash) {
		s.logger.Warn("Invalid password attempt", zap.String("userID", dbUser.ID.String()))
		return nil, common.ErrUnauthorized.WithDetails("Invalid email or password.")
	}
	if !dbUser.IsActive {
		return nil, common.ErrForbidden.WithDetails("Account is disabled.")
	}

	now := time.Now()
	dbUser.LastLoginAt = &now
	if err := s.repo.Update(ctx, dbUser); err != nil {
		s.logger.Error("Failed to update last login time", zap.Error(err), zap.String("userID", dbUser.ID.String()))
	}

	return s.authResponse(dbUser)
}

func (s *ServiceImplementation) authResponse(dbUser *User) (*AuthResponse, error) {
	accessToken, expiresAt, err := s.tokenService.GenerateAccessToken(dbUser.ID, dbUser.Email)
	if err != nil {
		s.logger.Error("Failed to generate access token", zap.Error(err), zap.String("userID", dbUser.ID.String()))
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	return &AuthResponse{
		TokenResponse: shared.TokenResponse{
			AccessToken: accessToken,
			ExpiresAt:   expiresAt,
			TokenType:   "bearer",
		},
		User: ToPrivateUserResponse(ToShared(dbUser)),
	}, nil
}

// UpdateProfile applies a partial update to the caller's own profile.
func (s *ServiceImplementation) UpdateProfile(ctx context.Context, id uuid.UUID, req UpdateProfileRequest) (*shared.User, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyUpdate(req, dbUser)
	if err := s.repo.Update(ctx, dbUser); err != nil {
		return nil, err
	}
	if s.profiles != nil {
		s.profiles.Delete(id.String())
	}
	return ToShared(dbUser), nil
}

func (s *ServiceImplementation) GetUserByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	dbUser, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			s.logger.Error("Error finding user by ID", zap.Error(err), zap.String("userID", id.String()))
		}
		return nil, err
	}
	return ToShared(dbUser), nil
}

func (s *ServiceImplementation) GetPublicProfile(ctx context.Context, id uuid.UUID) (*shared.PublicProfile, error) {
	profiles, err := s.GetPublicProfiles(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	p, ok := profiles[id]
	if !ok {
		return nil, common.ErrNotFound.WithDetails("User not found.")
	}
	return &p, nil
}

// GetPublicProfiles serves what it can from the profile cache and loads the
// rest in a single query.
func (s *ServiceImplementation) GetPublicProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]shared.PublicProfile, error) {
	out := make(map[uuid.UUID]shared.PublicProfile, len(ids))
	var missing []uuid.UUID
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		if s.profiles != nil {
			if cached, ok := s.profiles.Get(id.String()); ok {
				out[id] = cached.(shared.PublicProfile)
				continue
			}
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}

	users, err := s.repo.FindByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for i := range users {
		p := ToPublicProfile(ToShared(&users[i]))
		out[p.ID] = p
		if s.profiles != nil {
			s.profiles.SetDefault(p.ID.String(), p)
		}
	}
	return out, nil
}
