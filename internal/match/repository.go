package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"barter_backend/internal/common"
	"barter_backend/internal/platform/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines the interface for match data operations. Every method
// joins the transaction carried by ctx, if any.
type Repository interface {
	// Create inserts m. A second match for the same listing pair fails the
	// pair_key unique index; see database.IsUniqueViolation.
	Create(ctx context.Context, m *Match) error
	FindByID(ctx context.Context, id uuid.UUID) (*Match, error)
	FindByPairKey(ctx context.Context, pairKey string) (*Match, error)
	ListForUser(ctx context.Context, userID uuid.UUID, statuses []MatchStatus, limit int) ([]Match, error)
	// SetConfirmed raises one side's flag while the match is still active or
	// confirmed. It reports false when the status did not allow it.
	SetConfirmed(ctx context.Context, id uuid.UUID, side Side) (bool, error)
	// TransitionStatus moves the match to `to` only if its current status is
	// one of from, and reports whether it did.
	TransitionStatus(ctx context.Context, id uuid.UUID, from []MatchStatus, to MatchStatus) (bool, error)
	CountOverdue(ctx context.Context, now time.Time) (int64, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewGORMRepository creates a new GORM match repository.
func NewGORMRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.ErrNotFound.WithDetails("Match not found.")
	}
	return err
}

func (r *gormRepository) Create(ctx context.Context, m *Match) error {
	if err := database.Conn(ctx, r.db).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

func (r *gormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Match, error) {
	var m Match
	if err := database.Conn(ctx, r.db).First(&m, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (r *gormRepository) FindByPairKey(ctx context.Context, pairKey string) (*Match, error) {
	var m Match
	if err := database.Conn(ctx, r.db).Where("pair_key = ?", pairKey).First(&m).Error; err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

// ListForUser returns the user's matches in the given statuses, newest first.
func (r *gormRepository) ListForUser(ctx context.Context, userID uuid.UUID, statuses []MatchStatus, limit int) ([]Match, error) {
	var matches []Match
	err := database.Conn(ctx, r.db).
		Where("(user_a_id = ? OR user_b_id = ?) AND status IN ?", userID, userID, statuses).
		Order("created_at DESC").
		Limit(limit).
		Find(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list matches of %s: %w", userID, err)
	}
	return matches, nil
}

func (r *gormRepository) SetConfirmed(ctx context.Context, id uuid.UUID, side Side) (bool, error) {
	column := "confirmed_by_a"
	if side == SideB {
		column = "confirmed_by_b"
	}
	result := database.Conn(ctx, r.db).Model(&Match{}).
		Where("id = ? AND status IN ?", id, []MatchStatus{StatusActive, StatusConfirmed}).
		Updates(map[string]interface{}{column: true, "updated_at": time.Now()})
	if result.Error != nil {
		return false, fmt.Errorf("failed to confirm match %s: %w", id, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from []MatchStatus, to MatchStatus) (bool, error) {
	result := database.Conn(ctx, r.db).Model(&Match{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if result.Error != nil {
		return false, fmt.Errorf("failed to move match %s to %s: %w", id, to, result.Error)
	}
	return result.RowsAffected > 0, nil
}

// CountOverdue counts active matches whose expiry has passed.
func (r *gormRepository) CountOverdue(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := database.Conn(ctx, r.db).Model(&Match{}).
		Where("status = ? AND expires_at < ?", StatusActive, now).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count overdue matches: %w", err)
	}
	return n, nil
}
