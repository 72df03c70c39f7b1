package swipe

import (
	"context"
	"sync"
	"testing"
	"time"

	"barter_backend/internal/common"
	"barter_backend/internal/config"
	"barter_backend/internal/listing"
	"barter_backend/internal/match"
	"barter_backend/internal/message"
	"barter_backend/internal/platform/database"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type pushed struct {
	userID uuid.UUID
	event  string
	data   interface{}
}

type recordingNotifier struct {
	mu     sync.Mutex
	pushes []pushed
}

func (n *recordingNotifier) SendToUser(userID uuid.UUID, event string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushes = append(n.pushes, pushed{userID: userID, event: event, data: data})
}

func (n *recordingNotifier) BroadcastToUsers(userIDs []uuid.UUID, event string, data interface{}) {
	for _, id := range userIDs {
		n.SendToUser(id, event, data)
	}
}

type noopSyncer struct{}

func (noopSyncer) SyncIndex(context.Context, ...uuid.UUID) {}

// racingMatchRepo hides existing matches from the pre-check so the service
// goes on to insert a duplicate, as a request that lost the race would.
type racingMatchRepo struct {
	match.Repository
	hidden int
}

func (r *racingMatchRepo) FindByPairKey(ctx context.Context, key string) (*match.Match, error) {
	if r.hidden > 0 {
		r.hidden--
		return nil, common.ErrNotFound
	}
	return r.Repository.FindByPairKey(ctx, key)
}

type swipeFixture struct {
	db       *gorm.DB
	service  *ServiceImplementation
	swipes   Repository
	listings listing.Repository
	matches  *racingMatchRepo
	messages message.Repository
	notifier *recordingNotifier

	alice, bob  uuid.UUID
	guitar, amp *listing.Listing
}

func newSwipeFixture(t *testing.T) *swipeFixture {
	t.Helper()
	db, err := database.NewTestDB(&listing.Listing{}, &Swipe{}, &match.Match{}, &message.Message{})
	require.NoError(t, err)

	f := &swipeFixture{
		db:       db,
		swipes:   NewGORMRepository(db),
		listings: listing.NewGORMRepository(db),
		matches:  &racingMatchRepo{Repository: match.NewGORMRepository(db)},
		messages: message.NewGORMRepository(db),
		notifier: &recordingNotifier{},
		alice:    uuid.New(),
		bob:      uuid.New(),
	}
	f.service = NewService(f.swipes, f.listings, f.matches, f.messages, f.notifier, noopSyncer{},
		database.NewTransactor(db), &config.Config{MatchExpiryDays: 7}, zap.NewNop())

	f.guitar = f.addListing(t, f.alice, "Guitar", 200)
	f.amp = f.addListing(t, f.bob, "Amp", 180)
	return f
}

func (f *swipeFixture) addListing(t *testing.T, owner uuid.UUID, title string, value float64) *listing.Listing {
	t.Helper()
	l := &listing.Listing{
		UserID:         owner,
		Title:          title,
		Category:       listing.CategoryInstruments,
		Condition:      listing.ConditionGood,
		EstimatedValue: value,
		Status:         listing.StatusActive,
	}
	require.NoError(t, f.listings.Create(context.Background(), l))
	return l
}

func (f *swipeFixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func (f *swipeFixture) status(t *testing.T, id uuid.UUID) listing.ListingStatus {
	t.Helper()
	l, err := f.listings.FindByID(context.Background(), id)
	require.NoError(t, err)
	return l.Status
}

func right(offered, target uuid.UUID) SwipeRequest {
	return SwipeRequest{SwiperListingID: offered, TargetListingID: target, Direction: DirectionRight}
}

func TestRecordSwipe_MutualRightSwipeCreatesMatch(t *testing.T) {
	f := newSwipeFixture(t)
	ctx := context.Background()

	first, err := f.service.RecordSwipe(ctx, f.alice, right(f.guitar.ID, f.amp.ID))
	require.NoError(t, err)
	assert.False(t, first.MatchCreated)
	assert.Nil(t, first.MatchID)
	assert.Equal(t, "Swipe recorded", first.Message)

	second, err := f.service.RecordSwipe(ctx, f.bob, right(f.amp.ID, f.guitar.ID))
	require.NoError(t, err)
	assert.True(t, second.MatchCreated)
	require.NotNil(t, second.MatchID)
	assert.Equal(t, "It's a match!", second.Message)

	m, err := f.matches.FindByID(ctx, *second.MatchID)
	require.NoError(t, err)
	assert.Equal(t, match.StatusActive, m.Status)
	assert.False(t, m.ConfirmedByA)
	assert.False(t, m.ConfirmedByB)
	assert.WithinDuration(t, m.CreatedAt.Add(7*24*time.Hour), m.ExpiresAt, time.Second)

	assert.Equal(t, listing.StatusMatched, f.status(t, f.guitar.ID))
	assert.Equal(t, listing.StatusMatched, f.status(t, f.amp.ID))

	msgs, total, err := f.messages.ListByMatch(ctx, m.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.True(t, msgs[0].IsSystem())
	assert.Equal(t, match.MatchCreatedMessage, msgs[0].Content)

	require.Len(t, f.notifier.pushes, 2)
	var recipients []uuid.UUID
	for _, p := range f.notifier.pushes {
		assert.Equal(t, "new_match", p.event)
		assert.Equal(t, m.ID, p.data.(match.NewMatchEvent).MatchID)
		recipients = append(recipients, p.userID)
	}
	assert.ElementsMatch(t, []uuid.UUID{f.alice, f.bob}, recipients)
}

func TestRecordSwipe_DuplicateIsIdempotent(t *testing.T) {
	f := newSwipeFixture(t)
	ctx := context.Background()

	first, err := f.service.RecordSwipe(ctx, f.alice, right(f.guitar.ID, f.amp.ID))
	require.NoError(t, err)
	again, err := f.service.RecordSwipe(ctx, f.alice, right(f.guitar.ID, f.amp.ID))
	require.NoError(t, err)

	assert.False(t, again.MatchCreated)
	assert.Equal(t, "Already swiped", again.Message)
	assert.Equal(t, first.SwipeID, again.SwipeID)
	assert.EqualValues(t, 1, f.count(t, &Swipe{}))
}

func TestRecordSwipe_LeftSwipeNeverMatches(t *testing.T) {
	f := newSwipeFixture(t)
	ctx := context.Background()

	_, err := f.service.RecordSwipe(ctx, f.alice, right(f.guitar.ID, f.amp.ID))
	require.NoError(t, err)
	res, err := f.service.RecordSwipe(ctx, f.bob, SwipeRequest{
		SwiperListingID: f.amp.ID, TargetListingID: f.guitar.ID, Direction: DirectionLeft,
	})
	require.NoError(t, err)
	assert.False(t, res.MatchCreated)
	assert.EqualValues(t, 0, f.count(t, &match.Match{}))
}

func TestRecordSwipe_Validation(t *testing.T) {
	f := newSwipeFixture(t)
	ctx := context.Background()
	mine := f.addListing(t, f.alice, "Drum", 150)

	_, err := f.service.RecordSwipe(ctx, f.alice, right(f.guitar.ID, mine.ID))
	assert.ErrorIs(t, err, common.ErrValidation, "self-swipe")

	_, err = f.service.RecordSwipe(ctx, f.alice, right(f.amp.ID, f.guitar.ID))
	assert.ErrorIs(t, err, common.ErrNotFound, "offering someone else's listing")

	_, err = f.service.RecordSwipe(ctx, f.alice, right(f.guitar.ID, uuid.New()))
	assert.ErrorIs(t, err, common.ErrNotFound, "missing target")

	require.NoError(t, f.listings.SetStatus(ctx, listing.StatusActive, listing.StatusTraded, f.amp.ID))
	_, err = f.service.RecordSwipe(ctx, f.alice, right(f.guitar.ID, f.amp.ID))
	assert.ErrorIs(t, err, common.ErrNotFound, "inactive target")

	_, err = f.service.RecordSwipe(ctx, f.alice, SwipeRequest{
		SwiperListingID: f.guitar.ID, TargetListingID: f.amp.ID, Direction: "up",
	})
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.EqualValues(t, 0, f.count(t, &Swipe{}))
}

func TestRecordSwipe_RaceLoserReturnsWinnersMatch(t *testing.T) {
	f := newSwipeFixture(t)
	ctx := context.Background()

	_, err := f.service.RecordSwipe(ctx, f.alice, right(f.guitar.ID, f.amp.ID))
	require.NoError(t, err)
	winner := match.NewMatch(f.guitar.ID, f.alice, f.amp.ID, f.bob, time.Now(), time.Hour)
	require.NoError(t, f.matches.Create(ctx, winner))
	f.matches.hidden = 1

	res, err := f.service.RecordSwipe(ctx, f.bob, right(f.amp.ID, f.guitar.ID))
	require.NoError(t, err)
	require.NotNil(t, res.MatchID)
	assert.Equal(t, winner.ID, *res.MatchID)
	assert.EqualValues(t, 1, f.count(t, &match.Match{}))
	assert.EqualValues(t, 0, f.count(t, &message.Message{}), "loser's transaction rolled back")
	assert.Empty(t, f.notifier.pushes)
}

func TestRecordSwipe_ConcurrentMutualSwipesYieldOneMatch(t *testing.T) {
	for i := 0; i < 5; i++ {
		f := newSwipeFixture(t)
		ctx := context.Background()

		var wg sync.WaitGroup
		results := make([]*SwipeResult, 2)
		errs := make([]error, 2)
		wg.Add(2)
		go func() {
			defer wg.Done()
			results[0], errs[0] = f.service.RecordSwipe(ctx, f.alice, right(f.guitar.ID, f.amp.ID))
		}()
		go func() {
			defer wg.Done()
			results[1], errs[1] = f.service.RecordSwipe(ctx, f.bob, right(f.amp.ID, f.guitar.ID))
		}()
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])
		assert.EqualValues(t, 1, f.count(t, &match.Match{}))
		assert.True(t, results[0].MatchCreated || results[1].MatchCreated)
	}
}
