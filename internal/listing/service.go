// File: internal/listing/service.go
package listing

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"barter_backend/internal/common"
	"barter_backend/internal/config"
	"barter_backend/internal/geo"
	"barter_backend/internal/shared"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	myListingsLimit     = 100
	defaultSearchLimit  = 20
	maxSearchLimit      = 100
	defaultReindexBatch = 500
)

// ImageStore saves uploaded listing photos.
type ImageStore interface {
	SaveImage(fileHeader *multipart.FileHeader, subDir, baseName string) (string, error)
	DeleteFile(relativePath string) error
}

// IndexSyncer refreshes the search documents of listings whose status was
// changed outside this package.
type IndexSyncer interface {
	SyncIndex(ctx context.Context, ids ...uuid.UUID)
}

// Service defines the interface for listing-related business logic.
type Service interface {
	IndexSyncer
	CreateListing(ctx context.Context, userID uuid.UUID, req CreateListingRequest) (*ListingResponse, error)
	GetListing(ctx context.Context, id, viewerID uuid.UUID) (*ListingResponse, error)
	GetMyListings(ctx context.Context, userID uuid.UUID) ([]ListingResponse, error)
	UpdateListing(ctx context.Context, id, userID uuid.UUID, req UpdateListingRequest) (*ListingResponse, error)
	DeleteListing(ctx context.Context, id, userID uuid.UUID) error
	AddImages(ctx context.Context, id, userID uuid.UUID, files []*multipart.FileHeader) (*ListingResponse, error)
	SearchListings(ctx context.Context, query ListingSearchQuery) (*SearchResult, error)
	ReindexAll(ctx context.Context, batchSize int) (int, error)
}

// ServiceImplementation implements the listing Service interface.
type ServiceImplementation struct {
	repo    Repository
	users   shared.UserReader
	indexer SearchIndexer
	images  ImageStore
	cfg     *config.Config
	logger  *zap.Logger
}

var _ Service = (*ServiceImplementation)(nil)

// NewService creates a new listing service.
func NewService(
	repo Repository,
	users shared.UserReader,
	indexer SearchIndexer,
	images ImageStore,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceImplementation {
	return &ServiceImplementation{
		repo:    repo,
		users:   users,
		indexer: indexer,
		images:  images,
		cfg:     cfg,
		logger:  logger.Named("ListingService"),
	}
}

// CreateListing stores a new active listing. Missing coordinates are taken
// from the owner's profile.
func (s *ServiceImplementation) CreateListing(ctx context.Context, userID uuid.UUID, req CreateListingRequest) (*ListingResponse, error) {
	if len(req.Images) > s.cfg.MaxImagesPerListing {
		return nil, common.NewValidationAPIError(map[string]string{
			"Images": fmt.Sprintf("A listing may have at most %d images.", s.cfg.MaxImagesPerListing),
		})
	}

	listing := &Listing{
		UserID:         userID,
		Title:          req.Title,
		Description:    req.Description,
		Category:       req.Category,
		Condition:      req.Condition,
		EstimatedValue: req.EstimatedValue,
		AIValueLow:     req.AIValueLow,
		AIValueHigh:    req.AIValueHigh,
		Images:         ImageURLs(req.Images),
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Status:         StatusActive,
	}

	if listing.Latitude == nil || listing.Longitude == nil {
		owner, err := s.users.GetUserByID(ctx, userID)
		if err != nil {
			return nil, err
		}
		if listing.Latitude == nil {
			listing.Latitude = owner.Latitude
		}
		if listing.Longitude == nil {
			listing.Longitude = owner.Longitude
		}
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		s.logger.Error("Failed to create listing", zap.Error(err), zap.String("userID", userID.String()))
		return nil, err
	}
	s.index(ctx, listing)

	s.logger.Info("Listing created", zap.String("listingID", listing.ID.String()), zap.String("userID", userID.String()))
	resp := ToListingResponse(listing)
	return &resp, nil
}

// GetListing returns a non-deleted listing. Views by anyone but the owner are
// counted, and the distance from the viewer is filled in when both sides have
// coordinates.
func (s *ServiceImplementation) GetListing(ctx context.Context, id, viewerID uuid.UUID) (*ListingResponse, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if listing.Status == StatusDeleted {
		return nil, common.ErrNotFound.WithDetails("Listing not found.")
	}

	if !listing.IsOwnedBy(viewerID) {
		if err := s.repo.IncrementViewCount(ctx, id); err != nil {
			s.logger.Warn("Failed to increment view count", zap.Error(err), zap.String("listingID", id.String()))
		} else {
			listing.ViewCount++
		}
	}

	resp := ToListingResponse(listing)
	viewer, err := s.users.GetUserByID(ctx, viewerID)
	if err == nil {
		resp.DistanceKM = geo.DistanceKM(
			geo.PointFrom(viewer.Latitude, viewer.Longitude),
			geo.PointFrom(listing.Latitude, listing.Longitude),
		)
	}
	return &resp, nil
}

func (s *ServiceImplementation) GetMyListings(ctx context.Context, userID uuid.UUID) ([]ListingResponse, error) {
	listings, err := s.repo.FindByOwner(ctx, userID, myListingsLimit)
	if err != nil {
		return nil, err
	}
	out := make([]ListingResponse, len(listings))
	for i := range listings {
		out[i] = ToListingResponse(&listings[i])
	}
	return out, nil
}

// ownedLive loads a listing that userID owns and has not deleted.
func (s *ServiceImplementation) ownedLive(ctx context.Context, id, userID uuid.UUID) (*Listing, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !listing.IsOwnedBy(userID) || listing.Status == StatusDeleted {
		return nil, common.ErrNotFound.WithDetails("Listing not found.")
	}
	return listing, nil
}

// UpdateListing applies an owner's content edit. Status is never touched here.
func (s *ServiceImplementation) UpdateListing(ctx context.Context, id, userID uuid.UUID, req UpdateListingRequest) (*ListingResponse, error) {
	listing, err := s.ownedLive(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if req.IsEmpty() {
		resp := ToListingResponse(listing)
		return &resp, nil
	}
	if req.Images != nil && len(req.Images) > s.cfg.MaxImagesPerListing {
		return nil, common.NewValidationAPIError(map[string]string{
			"Images": fmt.Sprintf("A listing may have at most %d images.", s.cfg.MaxImagesPerListing),
		})
	}

	if req.Title != nil {
		listing.Title = *req.Title
	}
	if req.Description != nil {
		listing.Description = req.Description
	}
	if req.Category != nil {
		listing.Category = *req.Category
	}
	if req.Condition != nil {
		listing.Condition = *req.Condition
	}
	if req.EstimatedValue != nil {
		listing.EstimatedValue = *req.EstimatedValue
	}
	if req.Images != nil {
		listing.Images = ImageURLs(req.Images)
	}

	if err := s.repo.Update(ctx, listing); err != nil {
		return nil, err
	}
	s.index(ctx, listing)

	resp := ToListingResponse(listing)
	return &resp, nil
}

// DeleteListing soft-deletes the listing.
func (s *ServiceImplementation) DeleteListing(ctx context.Context, id, userID uuid.UUID) error {
	if err := s.repo.SoftDelete(ctx, id, userID); err != nil {
		return err
	}
	if err := s.indexer.RemoveListing(ctx, id); err != nil {
		s.logger.Warn("Failed to remove listing from search index", zap.Error(err), zap.String("listingID", id.String()))
	}
	s.logger.Info("Listing deleted", zap.String("listingID", id.String()), zap.String("userID", userID.String()))
	return nil
}

// AddImages stores uploaded photos and appends their public URLs.
func (s *ServiceImplementation) AddImages(ctx context.Context, id, userID uuid.UUID, files []*multipart.FileHeader) (*ListingResponse, error) {
	if len(files) == 0 {
		return nil, common.ErrBadRequest.WithDetails("No images were uploaded.")
	}
	listing, err := s.ownedLive(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if len(listing.Images)+len(files) > s.cfg.MaxImagesPerListing {
		return nil, common.NewValidationAPIError(map[string]string{
			"images": fmt.Sprintf("A listing may have at most %d images; it already has %d.", s.cfg.MaxImagesPerListing, len(listing.Images)),
		})
	}

	saved := make([]string, 0, len(files))
	rollback := func() {
		for _, p := range saved {
			if err := s.images.DeleteFile(p); err != nil {
				s.logger.Warn("Failed to clean up image", zap.String("path", p), zap.Error(err))
			}
		}
	}
	for _, fh := range files {
		rel, err := s.images.SaveImage(fh, "listings/"+listing.ID.String(), listing.Title)
		if err != nil {
			rollback()
			return nil, common.ErrBadRequest.WithDetails(err.Error())
		}
		saved = append(saved, rel)
	}

	base := strings.TrimSuffix(s.cfg.ImagePublicBaseURL, "/")
	for _, rel := range saved {
		listing.Images = append(listing.Images, base+"/"+rel)
	}
	if err := s.repo.Update(ctx, listing); err != nil {
		rollback()
		return nil, err
	}
	s.index(ctx, listing)

	resp := ToListingResponse(listing)
	return &resp, nil
}

// SearchListings runs a full-text search over active listings, through the
// search index when one is configured and the database otherwise.
func (s *ServiceImplementation) SearchListings(ctx context.Context, query ListingSearchQuery) (*SearchResult, error) {
	window := common.ClampLimitOffset(query.Limit, query.Offset, defaultSearchLimit, maxSearchLimit)
	query.Limit, query.Offset = window.Limit, window.Offset

	var (
		listings []Listing
		total    int64
		err      error
	)
	if s.indexer.Enabled() {
		listings, total, err = s.searchIndex(ctx, query)
	} else {
		listings, total, err = s.repo.SearchText(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Listings: make([]ListingResponse, 0, len(listings)), Total: total}
	for i := range listings {
		result.Listings = append(result.Listings, ToListingResponse(&listings[i]))
	}
	return result, nil
}

func (s *ServiceImplementation) searchIndex(ctx context.Context, query ListingSearchQuery) ([]Listing, int64, error) {
	ids, total, err := s.indexer.SearchListingIDs(ctx, query)
	if err != nil {
		s.logger.Error("Search index query failed", zap.Error(err))
		return nil, 0, common.ErrBadGateway.WithDetails("Search is temporarily unavailable.")
	}
	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, 0, err
	}

	// Keep the index's ranking and drop anything that stopped being active
	// since it was indexed.
	byID := make(map[uuid.UUID]Listing, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	ordered := make([]Listing, 0, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok && l.Status == StatusActive {
			ordered = append(ordered, l)
		}
	}
	return ordered, total, nil
}

// SyncIndex is best effort: failures are logged, never returned.
func (s *ServiceImplementation) SyncIndex(ctx context.Context, ids ...uuid.UUID) {
	if !s.indexer.Enabled() || len(ids) == 0 {
		return
	}
	listings, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to load listings for index sync", zap.Error(err))
		return
	}
	for i := range listings {
		s.index(ctx, &listings[i])
	}
}

func (s *ServiceImplementation) index(ctx context.Context, listing *Listing) {
	if err := s.indexer.IndexListing(ctx, listing); err != nil {
		s.logger.Warn("Failed to index listing", zap.Error(err), zap.String("listingID", listing.ID.String()))
	}
}

// ReindexAll bulk-indexes every active listing and returns how many were indexed.
func (s *ServiceImplementation) ReindexAll(ctx context.Context, batchSize int) (int, error) {
	if !s.indexer.Enabled() {
		return 0, common.ErrServiceUnavailable.WithDetails("ELASTICSEARCH_URL is not configured.")
	}
	if batchSize <= 0 {
		batchSize = defaultReindexBatch
	}

	indexed := 0
	for offset := 0; ; offset += batchSize {
		batch, err := s.repo.FindActiveBatch(ctx, offset, batchSize)
		if err != nil {
			return indexed, err
		}
		if len(batch) == 0 {
			break
		}
		n, err := s.indexer.BulkIndex(ctx, batch)
		indexed += n
		if err != nil {
			return indexed, err
		}
		s.logger.Info("Indexed listing batch", zap.Int("offset", offset), zap.Int("count", n))
		if len(batch) < batchSize {
			break
		}
	}
	return indexed, nil
}
