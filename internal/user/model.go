// File: internal/user/model.go
package user

import (
	"time"

	"barter_backend/internal/common"
	"barter_backend/internal/shared"
)

// User represents the user model in the database.
type User struct {
	common.BaseModel
	Email         string   `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash  string   `gorm:"type:varchar(255);not null"`
	DisplayName   string   `gorm:"type:varchar(50);not null"`
	AvatarURL     *string  `gorm:"type:text"`
	Bio           *string  `gorm:"type:varchar(280)"`
	City          *string  `gorm:"type:varchar(100)"`
	Latitude      *float64 `gorm:"type:double precision"`
	Longitude     *float64 `gorm:"type:double precision"`
	TradeRadiusKM float64  `gorm:"not null;default:25"`
	RatingAvg     float64  `gorm:"not null;default:0"`
	RatingCount   int      `gorm:"not null;default:0"`
	IsActive      bool     `gorm:"not null;default:true"`
	IsVerified    bool     `gorm:"not null;default:false"`
	LastLoginAt   *time.Time
}

// TableName specifies the table name for the User model.
func (User) TableName() string {
	return "users"
}

// --- DTOs ---

// RegisterRequest defines the structure for creating a new account.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6,max=72"` // bcrypt max is 72 bytes
	DisplayName string `json:"display_name" binding:"required,min=1,max=50"`
}

// LoginRequest defines the structure for login requests.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// UpdateProfileRequest carries the fields a user may change on their own profile.
type UpdateProfileRequest struct {
	DisplayName   *string  `json:"display_name" binding:"omitempty,min=1,max=50"`
	Bio           *string  `json:"bio" binding:"omitempty,max=280"`
	AvatarURL     *string  `json:"avatar_url" binding:"omitempty,max=2048"`
	Latitude      *float64 `json:"latitude" binding:"omitempty,latitude"`
	Longitude     *float64 `json:"longitude" binding:"omitempty,longitude"`
	City          *string  `json:"city" binding:"omitempty,max=100"`
	TradeRadiusKM *float64 `json:"trade_radius_km" binding:"omitempty,gte=1,lte=500"`
}

// PrivateUserResponse is what a user sees about themselves.
type PrivateUserResponse struct {
	shared.PublicProfile
	Email         string   `json:"email"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	TradeRadiusKM float64  `json:"trade_radius_km"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	shared.TokenResponse
	User PrivateUserResponse `json:"user"`
}

// ToShared converts a GORM user into the cross-package view.
func ToShared(u *User) *shared.User {
	if u == nil {
		return nil
	}
	return &shared.User{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   u.DisplayName,
		AvatarURL:     u.AvatarURL,
		Bio:           u.Bio,
		City:          u.City,
		Latitude:      u.Latitude,
		Longitude:     u.Longitude,
		TradeRadiusKM: u.TradeRadiusKM,
		RatingAvg:     u.RatingAvg,
		RatingCount:   u.RatingCount,
		IsActive:      u.IsActive,
		IsVerified:    u.IsVerified,
		CreatedAt:     u.CreatedAt,
	}
}

// ToPublicProfile strips everything but the public fields.
func ToPublicProfile(u *shared.User) shared.PublicProfile {
	return shared.PublicProfile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Bio:         u.Bio,
		City:        u.City,
		RatingAvg:   u.RatingAvg,
		RatingCount: u.RatingCount,
		IsVerified:  u.IsVerified,
	}
}

// ToPrivateUserResponse builds the self-view of a user.
func ToPrivateUserResponse(u *shared.User) PrivateUserResponse {
	return PrivateUserResponse{
		PublicProfile: ToPublicProfile(u),
		Email:         u.Email,
		Latitude:      u.Latitude,
		Longitude:     u.Longitude,
		TradeRadiusKM: u.TradeRadiusKM,
	}
}

// applyUpdate copies the set fields of req onto u.
func applyUpdate(req UpdateProfileRequest, u *User) {
	if req.DisplayName != nil {
		u.DisplayName = *req.DisplayName
	}
	if req.Bio != nil {
		u.Bio = req.Bio
	}
	if req.AvatarURL != nil {
		u.AvatarURL = req.AvatarURL
	}
	if req.Latitude != nil {
		u.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		u.Longitude = req.Longitude
	}
	if req.City != nil {
		u.City = req.City
	}
	if req.TradeRadiusKM != nil {
		u.TradeRadiusKM = *req.TradeRadiusKM
	}
}
