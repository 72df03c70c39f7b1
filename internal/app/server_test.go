package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"barter_backend/internal/ai"
	"barter_backend/internal/auth"
	"barter_backend/internal/chat"
	"barter_backend/internal/config"
	"barter_backend/internal/deck"
	"barter_backend/internal/filestorage"
	"barter_backend/internal/jobs"
	"barter_backend/internal/listing"
	"barter_backend/internal/match"
	"barter_backend/internal/message"
	"barter_backend/internal/platform/database"
	"barter_backend/internal/presence"
	"barter_backend/internal/swipe"
	"barter_backend/internal/user"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		GinMode:                  "test",
		ServerHost:               "127.0.0.1",
		ServerPort:               "0",
		WSAllowedOrigins:         []string{"*"},
		JWTSecretKey:             "test-secret",
		JWTAccessTokenExpiry:     time.Hour,
		DefaultRadiusKM:          25,
		ValueTolerancePercent:    0.30,
		MaxSwipeDeckSize:         50,
		MatchExpiryDays:          7,
		MaxImagesPerListing:      6,
		ImageStoragePath:         t.TempDir(),
		ImagePublicBaseURL:       "/uploads",
		MatchExpiryAuditSchedule: "",
	}
}

// newTestServer assembles the whole application on an in-memory database,
// the same way the injector does with search and AI disabled.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := testConfig(t)
	logger := zap.NewNop()

	db, err := database.NewTestDB(Models()...)
	require.NoError(t, err)
	tx := database.NewTransactor(db)

	tokens := auth.NewJWTService(cfg, logger)
	blocklist := auth.NewInMemoryBlocklistService(cfg)
	users := user.NewService(user.NewGORMRepository(db), tokens, cfg, logger)
	authenticator := auth.NewTokenAuthenticator(tokens, blocklist, users, logger)
	hub := presence.NewHub(logger)

	images, err := filestorage.NewFileStorageService(cfg, logger)
	require.NoError(t, err)
	listingRepo := listing.NewGORMRepository(db)
	listings := listing.NewService(listingRepo, users, listing.NewSearchIndexer(nil, logger), images, cfg, logger)
	swipeRepo := swipe.NewGORMRepository(db)
	matchRepo := match.NewGORMRepository(db)
	messageRepo := message.NewGORMRepository(db)

	chatService := chat.NewService(matchRepo, messageRepo, users, hub, logger)
	aiClient := ai.NewHTTPClient(cfg)
	handlers := Handlers{
		Auth:    auth.NewHandler(users, blocklist, logger),
		User:    user.NewHandler(users, logger),
		Deck:    deck.NewHandler(deck.NewService(listingRepo, swipeRepo, users, cfg, logger), logger),
		Listing: listing.NewHandler(listings, logger),
		Swipe:   swipe.NewHandler(swipe.NewService(swipeRepo, listingRepo, matchRepo, messageRepo, hub, listings, tx, cfg, logger), logger),
		Match:   match.NewHandler(match.NewService(matchRepo, listingRepo, messageRepo, users, hub, listings, tx, logger), logger),
		Chat:    chat.NewHandler(chatService, matchRepo, authenticator, hub, cfg, logger),
		AI:      ai.NewHandler(ai.NewService(ai.NewGeminiClient(cfg, aiClient), ai.NewVisionClient(cfg, aiClient), logger), logger),
	}
	audit := jobs.NewMatchExpiryAuditJob(matchRepo, logger, cfg)

	server := NewServer(cfg, logger, handlers, authenticator, hub, audit, nil)
	ts := httptest.NewServer(server.Router())
	t.Cleanup(ts.Close)
	return ts
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body interface{}, wantStatus int) envelope {
	c.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	require.Equal(c.t, wantStatus, resp.StatusCode, "%s %s", method, path)

	var env envelope
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func register(t *testing.T, base, email, name string) *client {
	t.Helper()
	anon := &client{t: t, base: base}
	env := anon.do(http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": email, "password": "hunter22", "display_name": name,
	}, http.StatusCreated)
	tokens := decode[struct {
		AccessToken string `json:"access_token"`
	}](t, env.Data)
	require.NotEmpty(t, tokens.AccessToken)
	return &client{t: t, base: base, token: tokens.AccessToken}
}

func createListing(c *client, title string, value, lat float64) listing.ListingResponse {
	c.t.Helper()
	env := c.do(http.MethodPost, "/api/v1/listings", map[string]interface{}{
		"title": title, "category": "instruments", "condition": "good",
		"estimated_value": value, "latitude": lat, "longitude": -122.33,
	}, http.StatusCreated)
	return decode[listing.ListingResponse](c.t, env.Data)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["online_users"])
}

func TestUnauthenticatedRequestsAreRejected(t *testing.T) {
	ts := newTestServer(t)
	anon := &client{t: t, base: ts.URL}
	anon.do(http.MethodGet, "/api/v1/matches", nil, http.StatusUnauthorized)
	anon.do(http.MethodGet, "/api/v1/listings/mine", nil, http.StatusUnauthorized)
}

func TestTradeFlow(t *testing.T) {
	ts := newTestServer(t)
	ana := register(t, ts.URL, "ana@example.com", "Ana")
	ben := register(t, ts.URL, "ben@example.com", "Ben")

	guitar := createListing(ana, "Guitar", 200, 47.60)
	amp := createListing(ben, "Amp", 180, 47.61)

	env := ana.do(http.MethodGet, "/api/v1/listings/deck?offering_listing_id="+guitar.ID.String(), nil, http.StatusOK)
	cards := decode[[]deck.DeckItem](t, env.Data)
	require.Len(t, cards, 1)
	assert.Equal(t, amp.ID, cards[0].ID)
	assert.Equal(t, "Ben", cards[0].OwnerName)

	env = ana.do(http.MethodPost, "/api/v1/swipes", map[string]string{
		"swiper_listing_id": guitar.ID.String(), "target_listing_id": amp.ID.String(), "direction": "right",
	}, http.StatusOK)
	first := decode[swipe.SwipeResult](t, env.Data)
	assert.False(t, first.MatchCreated)

	// The swiped card is gone from Ana's deck.
	env = ana.do(http.MethodGet, "/api/v1/listings/deck?offering_listing_id="+guitar.ID.String(), nil, http.StatusOK)
	assert.Empty(t, decode[[]deck.DeckItem](t, orEmptyArray(env.Data)))

	env = ben.do(http.MethodPost, "/api/v1/swipes", map[string]string{
		"swiper_listing_id": amp.ID.String(), "target_listing_id": guitar.ID.String(), "direction": "right",
	}, http.StatusOK)
	second := decode[swipe.SwipeResult](t, env.Data)
	require.True(t, second.MatchCreated)
	require.NotNil(t, second.MatchID)
	matchID := *second.MatchID

	env = ben.do(http.MethodGet, "/api/v1/matches", nil, http.StatusOK)
	matches := decode[[]match.MatchResponse](t, env.Data)
	require.Len(t, matches, 1)
	assert.Equal(t, matchID, matches[0].ID)

	chatPath := fmt.Sprintf("/api/v1/chat/%s/messages", matchID)
	ana.do(http.MethodPost, chatPath, map[string]string{"content": "Swap on Saturday?"}, http.StatusCreated)
	env = ben.do(http.MethodGet, chatPath, nil, http.StatusOK)
	history := decode[chat.ChatHistory](t, env.Data)
	require.EqualValues(t, 2, history.Total)
	assert.Equal(t, "System", history.Messages[0].SenderName)
	assert.Equal(t, "Ana", history.Messages[1].SenderName)

	confirmPath := fmt.Sprintf("/api/v1/matches/%s/confirm", matchID)
	env = ana.do(http.MethodPost, confirmPath, nil, http.StatusOK)
	assert.False(t, decode[match.ConfirmTradeResponse](t, env.Data).FullyConfirmed)
	env = ben.do(http.MethodPost, confirmPath, nil, http.StatusOK)
	assert.True(t, decode[match.ConfirmTradeResponse](t, env.Data).FullyConfirmed)

	env = ana.do(http.MethodGet, "/api/v1/listings/"+guitar.ID.String(), nil, http.StatusOK)
	assert.Equal(t, listing.StatusTraded, decode[listing.ListingResponse](t, env.Data).Status)

	ben.do(http.MethodPost, fmt.Sprintf("/api/v1/matches/%s/cancel", matchID), nil, http.StatusConflict)
}

// orEmptyArray stands in for a data field omitted from an empty result.
func orEmptyArray(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("[]")
	}
	return raw
}
