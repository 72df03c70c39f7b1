// File: internal/listing/model.go
package listing

import (
	"database/sql/driver"
	"time"

	"barter_backend/internal/common"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Category is the closed set of listing categories.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryBooks       Category = "books"
	CategoryFurniture   Category = "furniture"
	CategorySports      Category = "sports"
	CategoryInstruments Category = "instruments"
	CategoryGaming      Category = "gaming"
	CategoryOutdoor     Category = "outdoor"
	CategoryArt         Category = "art"
	CategoryOther       Category = "other"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryElectronics, CategoryClothing, CategoryBooks, CategoryFurniture, CategorySports,
	CategoryInstruments, CategoryGaming, CategoryOutdoor, CategoryArt, CategoryOther,
}

func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Condition describes the physical state of an item.
type Condition string

const (
	ConditionNew     Condition = "new"
	ConditionLikeNew Condition = "like_new"
	ConditionGood    Condition = "good"
	ConditionFair    Condition = "fair"
	ConditionPoor    Condition = "poor"
)

func (c Condition) IsValid() bool {
	switch c {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// ListingStatus only moves through the swipe and match services. The owner
// may soft delete a listing while it is still active.
type ListingStatus string

const (
	StatusActive  ListingStatus = "active"
	StatusMatched ListingStatus = "matched"
	StatusTraded  ListingStatus = "traded"
	StatusDeleted ListingStatus = "deleted"
)

// ImageURLs is stored as a text[] on Postgres and as its array literal on sqlite.
type ImageURLs pq.StringArray

func (a ImageURLs) Value() (driver.Value, error) {
	return pq.StringArray(a).Value()
}

func (a *ImageURLs) Scan(src interface{}) error {
	return (*pq.StringArray)(a).Scan(src)
}

// GormDBDataType picks the column type per dialect.
func (ImageURLs) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

type Listing struct {
	common.BaseModel
	UserID         uuid.UUID     `gorm:"type:uuid;not null;index"`
	Title          string        `gorm:"type:varchar(100);not null"`
	Description    *string       `gorm:"type:varchar(500)"`
	Category       Category      `gorm:"type:varchar(20);not null;index:idx_listings_status_category,priority:2"`
	Condition      Condition     `gorm:"type:varchar(20);not null"`
	EstimatedValue float64       `gorm:"not null"`
	AIValueLow     *float64      `gorm:"column:ai_value_low"`
	AIValueHigh    *float64      `gorm:"column:ai_value_high"`
	Images         ImageURLs
	Latitude       *float64      `gorm:"type:double precision"`
	Longitude      *float64      `gorm:"type:double precision"`
	Status         ListingStatus `gorm:"type:varchar(20);not null;default:'active';index:idx_listings_status_category,priority:1"`
	ViewCount      int           `gorm:"not null;default:0"`
}

func (Listing) TableName() string {
	return "listings"
}

// IsOwnedBy reports whether userID owns the listing.
func (l *Listing) IsOwnedBy(userID uuid.UUID) bool {
	return l.UserID == userID
}

// --- DTOs for API ---

type CreateListingRequest struct {
	Title          string    `json:"title" binding:"required,min=1,max=100"`
	Description    *string   `json:"description,omitempty" binding:"omitempty,max=500"`
	Category       Category  `json:"category" binding:"required,oneof=electronics clothing books furniture sports instruments gaming outdoor art other"`
	Condition      Condition `json:"condition" binding:"required,oneof=new like_new good fair poor"`
	EstimatedValue float64   `json:"estimated_value" binding:"required,gt=0"`
	AIValueLow     *float64  `json:"ai_value_low,omitempty" binding:"omitempty,gte=0"`
	AIValueHigh    *float64  `json:"ai_value_high,omitempty" binding:"omitempty,gte=0"`
	Images         []string  `json:"images,omitempty" binding:"omitempty,max=6,dive,max=2048"`
	Latitude       *float64  `json:"latitude,omitempty" binding:"omitempty,latitude"`
	Longitude      *float64  `json:"longitude,omitempty" binding:"omitempty,longitude"`
}

// UpdateListingRequest carries the content fields an owner may edit. Nil
// fields are left unchanged.
type UpdateListingRequest struct {
	Title          *string    `json:"title,omitempty" binding:"omitempty,min=1,max=100"`
	Description    *string    `json:"description,omitempty" binding:"omitempty,max=500"`
	Category       *Category  `json:"category,omitempty" binding:"omitempty,oneof=electronics clothing books furniture sports instruments gaming outdoor art other"`
	Condition      *Condition `json:"condition,omitempty" binding:"omitempty,oneof=new like_new good fair poor"`
	EstimatedValue *float64   `json:"estimated_value,omitempty" binding:"omitempty,gt=0"`
	Images         []string   `json:"images,omitempty" binding:"omitempty,max=6,dive,max=2048"`
}

// IsEmpty reports whether the patch changes nothing.
func (r UpdateListingRequest) IsEmpty() bool {
	return r.Title == nil && r.Description == nil && r.Category == nil &&
		r.Condition == nil && r.EstimatedValue == nil && r.Images == nil
}

type ListingResponse struct {
	ID             uuid.UUID     `json:"id"`
	UserID         uuid.UUID     `json:"user_id"`
	Title          string        `json:"title"`
	Description    *string       `json:"description"`
	Category       Category      `json:"category"`
	Condition      Condition     `json:"condition"`
	EstimatedValue float64       `json:"estimated_value"`
	AIValueLow     *float64      `json:"ai_value_low"`
	AIValueHigh    *float64      `json:"ai_value_high"`
	Images         []string      `json:"images"`
	Latitude       *float64      `json:"latitude"`
	Longitude      *float64      `json:"longitude"`
	Status         ListingStatus `json:"status"`
	ViewCount      int           `json:"view_count"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
	DistanceKM     *float64      `json:"distance_km"`
}

func ToListingResponse(l *Listing) ListingResponse {
	images := make([]string, len(l.Images))
	copy(images, l.Images)
	return ListingResponse{
		ID:             l.ID,
		UserID:         l.UserID,
		Title:          l.Title,
		Description:    l.Description,
		Category:       l.Category,
		Condition:      l.Condition,
		EstimatedValue: l.EstimatedValue,
		AIValueLow:     l.AIValueLow,
		AIValueHigh:    l.AIValueHigh,
		Images:         images,
		Latitude:       l.Latitude,
		Longitude:      l.Longitude,
		Status:         l.Status,
		ViewCount:      l.ViewCount,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

// ListingSearchQuery is bound from the search endpoint's query string.
type ListingSearchQuery struct {
	Query    string    `form:"q" binding:"omitempty,max=200"`
	Category *Category `form:"category" binding:"omitempty,oneof=electronics clothing books furniture sports instruments gaming outdoor art other"`
	Limit    int       `form:"limit"`
	Offset   int       `form:"offset"`
}

type SearchResult struct {
	Listings []ListingResponse `json:"listings"`
	Total    int64             `json:"total"`
}

// DeckFilter is the database side of deck building: everything except the
// geo post-filter.
type DeckFilter struct {
	ExcludeOwnerID uuid.UUID
	Category       Category
	MinValue       float64
	MaxValue       float64
	ExcludeIDs     []uuid.UUID
}
