package listing

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http/httptest"
	"testing"

	"barter_backend/internal/common"
	"barter_backend/internal/config"
	"barter_backend/internal/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockUserReader is a mock type for shared.UserReader
type MockUserReader struct {
	mock.Mock
}

func (m *MockUserReader) GetUserByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.User), args.Error(1)
}

func (m *MockUserReader) GetPublicProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]shared.PublicProfile, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]shared.PublicProfile), args.Error(1)
}

// fakeIndexer records what was pushed to it and answers searches with a
// fixed id list.
type fakeIndexer struct {
	enabled   bool
	indexed   []uuid.UUID
	removed   []uuid.UUID
	searchIDs []uuid.UUID
	searchErr error
}

func (f *fakeIndexer) Enabled() bool { return f.enabled }

func (f *fakeIndexer) IndexListing(_ context.Context, l *Listing) error {
	f.indexed = append(f.indexed, l.ID)
	return nil
}

func (f *fakeIndexer) RemoveListing(_ context.Context, id uuid.UUID) error {
	f.removed = append(f.removed, id)
	return nil
}

func (f *fakeIndexer) SearchListingIDs(context.Context, ListingSearchQuery) ([]uuid.UUID, int64, error) {
	return f.searchIDs, int64(len(f.searchIDs)), f.searchErr
}

func (f *fakeIndexer) BulkIndex(_ context.Context, listings []Listing) (int, error) {
	for _, l := range listings {
		f.indexed = append(f.indexed, l.ID)
	}
	return len(listings), nil
}

type fakeImageStore struct {
	saved   []string
	deleted []string
	failOn  int
}

func (f *fakeImageStore) SaveImage(fh *multipart.FileHeader, subDir, baseName string) (string, error) {
	if f.failOn > 0 && len(f.saved)+1 == f.failOn {
		return "", errors.New("unsupported file type")
	}
	rel := subDir + "/" + fh.Filename
	f.saved = append(f.saved, rel)
	return rel, nil
}

func (f *fakeImageStore) DeleteFile(rel string) error {
	f.deleted = append(f.deleted, rel)
	return nil
}

type listingServiceFixture struct {
	service *ServiceImplementation
	repo    Repository
	users   *MockUserReader
	indexer *fakeIndexer
	images  *fakeImageStore
}

func newListingServiceFixture(t *testing.T) *listingServiceFixture {
	t.Helper()
	f := &listingServiceFixture{
		repo:    newTestRepository(t),
		users:   new(MockUserReader),
		indexer: &fakeIndexer{enabled: true},
		images:  &fakeImageStore{},
	}
	cfg := &config.Config{MaxImagesPerListing: 6, ImagePublicBaseURL: "/uploads/"}
	f.service = NewService(f.repo, f.users, f.indexer, f.images, cfg, zap.NewNop())
	return f
}

func ptr[T any](v T) *T { return &v }

func fileHeaders(t *testing.T, names ...string) []*multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, name := range names {
		part, err := w.CreateFormFile("images", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("data"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File["images"]
}

func TestCreateListing_FallsBackToOwnerCoordinates(t *testing.T) {
	f := newListingServiceFixture(t)
	ctx := context.Background()
	owner := uuid.New()
	f.users.On("GetUserByID", mock.Anything, owner).
		Return(&shared.User{ID: owner, Latitude: ptr(47.6), Longitude: ptr(-122.3)}, nil).Once()

	resp, err := f.service.CreateListing(ctx, owner, CreateListingRequest{
		Title:          "Road bike",
		Category:       CategorySports,
		Condition:      ConditionGood,
		EstimatedValue: 250,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, resp.Status)
	require.NotNil(t, resp.Latitude)
	assert.Equal(t, 47.6, *resp.Latitude)
	assert.Equal(t, -122.3, *resp.Longitude)
	assert.Equal(t, []uuid.UUID{resp.ID}, f.indexer.indexed)
	f.users.AssertExpectations(t)
}

func TestCreateListing_OwnCoordinatesSkipUserLookup(t *testing.T) {
	f := newListingServiceFixture(t)

	resp, err := f.service.CreateListing(context.Background(), uuid.New(), CreateListingRequest{
		Title:          "Road bike",
		Category:       CategorySports,
		Condition:      ConditionGood,
		EstimatedValue: 250,
		Latitude:       ptr(45.5),
		Longitude:      ptr(-122.6),
	})
	require.NoError(t, err)
	assert.Equal(t, 45.5, *resp.Latitude)
	f.users.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
}

func TestGetListing(t *testing.T) {
	t.Run("non-owner view is counted and distance reported", func(t *testing.T) {
		f := newListingServiceFixture(t)
		owner, viewer := uuid.New(), uuid.New()
		l := seedListing(t, f.repo, owner, func(l *Listing) {
			l.Latitude = ptr(47.6062)
			l.Longitude = ptr(-122.3321)
		})
		f.users.On("GetUserByID", mock.Anything, viewer).
			Return(&shared.User{ID: viewer, Latitude: ptr(45.5152), Longitude: ptr(-122.6784)}, nil)

		resp, err := f.service.GetListing(context.Background(), l.ID, viewer)
		require.NoError(t, err)
		assert.Equal(t, 1, resp.ViewCount)
		require.NotNil(t, resp.DistanceKM)
		assert.InDelta(t, 234.0, *resp.DistanceKM, 1.0)
	})

	t.Run("owner view is not counted", func(t *testing.T) {
		f := newListingServiceFixture(t)
		owner := uuid.New()
		l := seedListing(t, f.repo, owner, nil)
		f.users.On("GetUserByID", mock.Anything, owner).Return(&shared.User{ID: owner}, nil)

		resp, err := f.service.GetListing(context.Background(), l.ID, owner)
		require.NoError(t, err)
		assert.Equal(t, 0, resp.ViewCount)
		assert.Nil(t, resp.DistanceKM)
	})

	t.Run("deleted listing is not found", func(t *testing.T) {
		f := newListingServiceFixture(t)
		l := seedListing(t, f.repo, uuid.New(), func(l *Listing) { l.Status = StatusDeleted })

		_, err := f.service.GetListing(context.Background(), l.ID, uuid.New())
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestUpdateListing(t *testing.T) {
	t.Run("empty patch returns the listing unchanged", func(t *testing.T) {
		f := newListingServiceFixture(t)
		owner := uuid.New()
		l := seedListing(t, f.repo, owner, nil)

		resp, err := f.service.UpdateListing(context.Background(), l.ID, owner, UpdateListingRequest{})
		require.NoError(t, err)
		assert.Equal(t, l.Title, resp.Title)
		assert.Empty(t, f.indexer.indexed)
	})

	t.Run("content fields change and status does not", func(t *testing.T) {
		f := newListingServiceFixture(t)
		owner := uuid.New()
		l := seedListing(t, f.repo, owner, func(l *Listing) { l.Status = StatusMatched })

		resp, err := f.service.UpdateListing(context.Background(), l.ID, owner, UpdateListingRequest{
			Title:          ptr("Electric guitar"),
			EstimatedValue: ptr(140.0),
		})
		require.NoError(t, err)
		assert.Equal(t, "Electric guitar", resp.Title)
		assert.Equal(t, 140.0, resp.EstimatedValue)
		assert.Equal(t, StatusMatched, resp.Status)
	})

	t.Run("someone else's listing is not found", func(t *testing.T) {
		f := newListingServiceFixture(t)
		l := seedListing(t, f.repo, uuid.New(), nil)

		_, err := f.service.UpdateListing(context.Background(), l.ID, uuid.New(), UpdateListingRequest{Title: ptr("x")})
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestDeleteListing_RemovesFromIndex(t *testing.T) {
	f := newListingServiceFixture(t)
	owner := uuid.New()
	l := seedListing(t, f.repo, owner, nil)

	require.NoError(t, f.service.DeleteListing(context.Background(), l.ID, owner))
	assert.Equal(t, []uuid.UUID{l.ID}, f.indexer.removed)

	mine, err := f.service.GetMyListings(context.Background(), owner)
	require.NoError(t, err)
	assert.Empty(t, mine)
}

func TestAddImages(t *testing.T) {
	t.Run("appends public urls", func(t *testing.T) {
		f := newListingServiceFixture(t)
		owner := uuid.New()
		l := seedListing(t, f.repo, owner, func(l *Listing) { l.Images = ImageURLs{"/uploads/old.jpg"} })

		resp, err := f.service.AddImages(context.Background(), l.ID, owner, fileHeaders(t, "a.jpg", "b.png"))
		require.NoError(t, err)
		prefix := "/uploads/listings/" + l.ID.String() + "/"
		assert.Equal(t, []string{"/uploads/old.jpg", prefix + "a.jpg", prefix + "b.png"}, resp.Images)
	})

	t.Run("rejects uploads past the limit", func(t *testing.T) {
		f := newListingServiceFixture(t)
		owner := uuid.New()
		l := seedListing(t, f.repo, owner, func(l *Listing) {
			l.Images = ImageURLs{"1", "2", "3", "4", "5"}
		})

		_, err := f.service.AddImages(context.Background(), l.ID, owner, fileHeaders(t, "a.jpg", "b.jpg"))
		assert.ErrorIs(t, err, common.ErrValidation)
		assert.Empty(t, f.images.saved)
	})

	t.Run("cleans up saved files when one fails", func(t *testing.T) {
		f := newListingServiceFixture(t)
		f.images.failOn = 2
		owner := uuid.New()
		l := seedListing(t, f.repo, owner, nil)

		_, err := f.service.AddImages(context.Background(), l.ID, owner, fileHeaders(t, "a.jpg", "b.txt"))
		assert.ErrorIs(t, err, common.ErrBadRequest)
		assert.Equal(t, f.images.saved, f.images.deleted)
	})
}

func TestSearchListings(t *testing.T) {
	t.Run("index order is kept and stale hits dropped", func(t *testing.T) {
		f := newListingServiceFixture(t)
		owner := uuid.New()
		first := seedListing(t, f.repo, owner, func(l *Listing) { l.Title = "first" })
		second := seedListing(t, f.repo, owner, func(l *Listing) { l.Title = "second" })
		stale := seedListing(t, f.repo, owner, func(l *Listing) { l.Status = StatusTraded })
		f.indexer.searchIDs = []uuid.UUID{second.ID, stale.ID, first.ID}

		result, err := f.service.SearchListings(context.Background(), ListingSearchQuery{Query: "anything"})
		require.NoError(t, err)
		require.Len(t, result.Listings, 2)
		assert.Equal(t, second.ID, result.Listings[0].ID)
		assert.Equal(t, first.ID, result.Listings[1].ID)
	})

	t.Run("index failure is a bad gateway", func(t *testing.T) {
		f := newListingServiceFixture(t)
		f.indexer.searchErr = errors.New("connection refused")

		_, err := f.service.SearchListings(context.Background(), ListingSearchQuery{Query: "bike"})
		assert.ErrorIs(t, err, common.ErrBadGateway)
	})

	t.Run("database fallback without an index", func(t *testing.T) {
		f := newListingServiceFixture(t)
		f.indexer.enabled = false
		seedListing(t, f.repo, uuid.New(), func(l *Listing) { l.Title = "Mountain bike" })
		seedListing(t, f.repo, uuid.New(), func(l *Listing) { l.Title = "Desk lamp" })

		result, err := f.service.SearchListings(context.Background(), ListingSearchQuery{Query: "bike"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, result.Total)
		require.Len(t, result.Listings, 1)
		assert.Equal(t, "Mountain bike", result.Listings[0].Title)
	})
}

func TestSyncIndexAndReindexAll(t *testing.T) {
	f := newListingServiceFixture(t)
	owner := uuid.New()
	a := seedListing(t, f.repo, owner, nil)
	b := seedListing(t, f.repo, owner, nil)
	seedListing(t, f.repo, owner, nil)
	seedListing(t, f.repo, owner, func(l *Listing) { l.Status = StatusDeleted })

	f.service.SyncIndex(context.Background(), a.ID, b.ID)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, f.indexer.indexed)

	f.indexer.indexed = nil
	n, err := f.service.ReindexAll(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, f.indexer.indexed, 3)

	f.indexer.enabled = false
	_, err = f.service.ReindexAll(context.Background(), 2)
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
}
