// File: internal/listing/repository.go
package listing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"barter_backend/internal/common"
	"barter_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for listing data operations. Every method
// joins the transaction carried by ctx, if any.
type Repository interface {
	Create(ctx context.Context, listing *Listing) error
	FindByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Listing, error)
	// FindActiveOwned returns the listing only if ownerID owns it and it is active.
	FindActiveOwned(ctx context.Context, id, ownerID uuid.UUID) (*Listing, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]Listing, error)
	Update(ctx context.Context, listing *Listing) error
	IncrementViewCount(ctx context.Context, id uuid.UUID) error
	// SetStatus moves listings that are currently in from to to.
	SetStatus(ctx context.Context, from, to ListingStatus, ids ...uuid.UUID) error
	// SoftDelete marks an active listing deleted. Matched and traded
	// listings belong to their match and are refused.
	SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error
	FindDeckCandidates(ctx context.Context, filter DeckFilter) ([]Listing, error)
	SearchText(ctx context.Context, query ListingSearchQuery) ([]Listing, int64, error)
	FindActiveBatch(ctx context.Context, offset, limit int) ([]Listing, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM listing repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.ErrNotFound.WithDetails("Listing not found.")
	}
	return err
}

func (r *gormRepository) Create(ctx context.Context, listing *Listing) error {
	if listing.Images == nil {
		listing.Images = ImageURLs{}
	}
	if err := database.Conn(ctx, r.db).Create(listing).Error; err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	var listing Listing
	if err := database.Conn(ctx, r.db).First(&listing, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &listing, nil
}

func (r *gormRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Listing, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var listings []Listing
	if err := database.Conn(ctx, r.db).Where("id IN ?", ids).Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to find listings by ids: %w", err)
	}
	return listings, nil
}

func (r *gormRepository) FindActiveOwned(ctx context.Context, id, ownerID uuid.UUID) (*Listing, error) {
	var listing Listing
	err := database.Conn(ctx, r.db).
		Where("id = ? AND user_id = ? AND status = ?", id, ownerID, StatusActive).
		First(&listing).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &listing, nil
}

// FindByOwner returns the owner's listings that are not deleted, newest first.
func (r *gormRepository) FindByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]Listing, error) {
	var listings []Listing
	err := database.Conn(ctx, r.db).
		Where("user_id = ? AND status <> ?", ownerID, StatusDeleted).
		Order("created_at DESC").
		Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list listings of %s: %w", ownerID, err)
	}
	return listings, nil
}

func (r *gormRepository) Update(ctx context.Context, listing *Listing) error {
	if err := database.Conn(ctx, r.db).Save(listing).Error; err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return nil
}

func (r *gormRepository) IncrementViewCount(ctx context.Context, id uuid.UUID) error {
	return database.Conn(ctx, r.db).Model(&Listing{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
}

// SetStatus moves every listing in ids from one status to another. A listing
// that is missing or no longer in from fails the call so a half-applied
// transition rolls back.
func (r *gormRepository) SetStatus(ctx context.Context, from, to ListingStatus, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	result := database.Conn(ctx, r.db).Model(&Listing{}).
		Where("id IN ? AND status = ?", ids, from).
		Update("status", to)
	if result.Error != nil {
		return fmt.Errorf("failed to set listing status: %w", result.Error)
	}
	if result.RowsAffected != int64(len(ids)) {
		return common.ErrInvalidState.WithDetails(fmt.Sprintf("Listing is no longer %s.", from))
	}
	return nil
}

func (r *gormRepository) SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error {
	result := database.Conn(ctx, r.db).Model(&Listing{}).
		Where("id = ? AND user_id = ? AND status = ?", id, ownerID, StatusActive).
		Update("status", StatusDeleted)
	if result.Error != nil {
		return fmt.Errorf("failed to delete listing: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var locked int64
	err := database.Conn(ctx, r.db).Model(&Listing{}).
		Where("id = ? AND user_id = ? AND status IN ?", id, ownerID, []ListingStatus{StatusMatched, StatusTraded}).
		Count(&locked).Error
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	if locked > 0 {
		return common.ErrInvalidState.WithDetails("A matched or traded listing cannot be deleted.")
	}
	return common.ErrNotFound.WithDetails("Listing not found.")
}

// FindDeckCandidates applies the owner, status, category, value and
// already-swiped filters in one query.
func (r *gormRepository) FindDeckCandidates(ctx context.Context, filter DeckFilter) ([]Listing, error) {
	query := database.Conn(ctx, r.db).
		Where("user_id <> ?", filter.ExcludeOwnerID).
		Where("status = ?", StatusActive).
		Where("category = ?", filter.Category).
		Where("estimated_value >= ? AND estimated_value <= ?", filter.MinValue, filter.MaxValue)
	if len(filter.ExcludeIDs) > 0 {
		query = query.Where("id NOT IN ?", filter.ExcludeIDs)
	}

	var listings []Listing
	if err := query.Order("created_at DESC").Find(&listings).Error; err != nil {
		return nil, fmt.Errorf("failed to query deck candidates: %w", err)
	}
	return listings, nil
}

// SearchText is the database fallback for search when no index is configured.
func (r *gormRepository) SearchText(ctx context.Context, q ListingSearchQuery) ([]Listing, int64, error) {
	query := database.Conn(ctx, r.db).Model(&Listing{}).Where("status = ?", StatusActive)
	if term := strings.TrimSpace(q.Query); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if q.Category != nil {
		query = query.Where("category = ?", *q.Category)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count listings: %w", err)
	}
	var listings []Listing
	if err := query.Order("created_at DESC").Offset(q.Offset).Limit(q.Limit).Find(&listings).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to search listings: %w", err)
	}
	return listings, total, nil
}

// FindActiveBatch pages through active listings in a stable order.
func (r *gormRepository) FindActiveBatch(ctx context.Context, offset, limit int) ([]Listing, error) {
	var listings []Listing
	err := database.Conn(ctx, r.db).
		Where("status = ?", StatusActive).
		Order("created_at ASC, id ASC").
		Offset(offset).
		Limit(limit).
		Find(&listings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active listings: %w", err)
	}
	return listings, nil
}
