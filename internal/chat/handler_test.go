package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"barter_backend/internal/common"
	"barter_backend/internal/config"
	"barter_backend/internal/presence"
	"barter_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// tokenTable authenticates a token by looking it up.
type tokenTable map[string]uuid.UUID

func (t tokenTable) Authenticate(_ context.Context, token string) (*shared.Claims, error) {
	id, ok := t[token]
	if !ok {
		return nil, common.ErrUnauthorized
	}
	return &shared.Claims{UserID: id}, nil
}

type wsFixture struct {
	*chatFixture
	hub    *presence.Hub
	server *httptest.Server
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newChatFixture(t)
	f.knowsEveryone()
	hub := presence.NewHub(zap.NewNop())
	// Sends from the socket fan out over the real hub.
	f.service = NewService(f.matches, f.messages, f.users, hub, zap.NewNop())

	tokens := tokenTable{"ana-token": f.ana, "ben-token": f.ben, "eve-token": uuid.New()}
	h := NewHandler(f.service, f.matches, tokens, hub, &config.Config{WSAllowedOrigins: []string{"*"}}, zap.NewNop())

	router := gin.New()
	authMW := func(c *gin.Context) {
		claims, err := tokens.Authenticate(c.Request.Context(), common.GetTokenFromContext(c))
		if err != nil {
			common.RespondWithError(c, err)
			c.Abort()
			return
		}
		c.Set(common.UserIDKey, claims.UserID)
		c.Next()
	}
	h.RegisterRoutes(router.Group("/api/v1"), authMW)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &wsFixture{chatFixture: f, hub: hub, server: server}
}

func (f *wsFixture) dial(t *testing.T, matchID uuid.UUID, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/v1/chat/ws/" + matchID.String() + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) map[string]json.RawMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var env map[string]json.RawMessage
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func expectClose(t *testing.T, conn *websocket.Conn, code int) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, code), "expected close code %d, got %v", code, err)
}

func TestServeWS_RefusesWithCloseCodes(t *testing.T) {
	f := newWSFixture(t)

	t.Run("bad token", func(t *testing.T) {
		expectClose(t, f.dial(t, f.match.ID, "forged"), CloseUnauthorized)
	})
	t.Run("unknown match", func(t *testing.T) {
		expectClose(t, f.dial(t, uuid.New(), "ana-token"), CloseMatchNotFound)
	})
	t.Run("not a participant", func(t *testing.T) {
		expectClose(t, f.dial(t, f.match.ID, "eve-token"), CloseForbidden)
	})
	assert.Zero(t, f.hub.OnlineUsers())
}

func TestServeWS_PingPong(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, f.match.ID, "ana-token")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	env := readEnvelope(t, conn)
	assert.JSONEq(t, `"pong"`, string(env["event"]))
	_, hasData := env["data"]
	assert.False(t, hasData)
}

func TestServeWS_MessageReachesBothParticipants(t *testing.T) {
	f := newWSFixture(t)
	ana := f.dial(t, f.match.ID, "ana-token")
	ben := f.dial(t, f.match.ID, "ben-token")

	// A ping round trip proves each socket is registered with the hub.
	for _, conn := range []*websocket.Conn{ana, ben} {
		require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
		readEnvelope(t, conn)
	}

	require.NoError(t, ana.WriteJSON(map[string]string{"type": "message", "content": "   "}))
	require.NoError(t, ana.WriteJSON(map[string]string{"type": "message", "content": "Deal?"}))

	for _, conn := range []*websocket.Conn{ana, ben} {
		env := readEnvelope(t, conn)
		assert.JSONEq(t, `"new_message"`, string(env["event"]))
		var msg MessageResponse
		require.NoError(t, json.Unmarshal(env["data"], &msg))
		assert.Equal(t, "Deal?", msg.Content)
		assert.Equal(t, "Ana", msg.SenderName)
		assert.Equal(t, f.ana, msg.SenderID)
	}

	_, total, err := f.messages.ListByMatch(context.Background(), f.match.ID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total, "blank frames are ignored")
}

func TestServeWS_ErrorsStayOnTheSocket(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, f.match.ID, "ben-token")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	env := readEnvelope(t, conn)
	assert.JSONEq(t, `"error"`, string(env["event"]))

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "message", "content": strings.Repeat("x", 2001)}))
	env = readEnvelope(t, conn)
	assert.JSONEq(t, `"error"`, string(env["event"]))
	assert.Contains(t, string(env["data"]), "message")

	// The connection survives both errors.
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	env = readEnvelope(t, conn)
	assert.JSONEq(t, `"pong"`, string(env["event"]))
}

func TestServeWS_DisconnectLeavesHub(t *testing.T) {
	f := newWSFixture(t)
	conn := f.dial(t, f.match.ID, "ana-token")
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	readEnvelope(t, conn)
	assert.True(t, f.hub.IsOnline(f.ana))

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return !f.hub.IsOnline(f.ana) }, 5*time.Second, 10*time.Millisecond)
}

func TestREST_SendAndHistory(t *testing.T) {
	f := newWSFixture(t)
	base := f.server.URL + "/api/v1/chat/" + f.match.ID.String() + "/messages"

	req, err := http.NewRequest(http.MethodPost, base, strings.NewReader(`{"content":"Can you do Sunday?"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer ben-token")
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	req, err = http.NewRequest(http.MethodGet, base+"?limit=10", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer ana-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Data ChatHistory `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.EqualValues(t, 1, body.Data.Total)
	require.Len(t, body.Data.Messages, 1)
	assert.Equal(t, "Ben", body.Data.Messages[0].SenderName)

	req, err = http.NewRequest(http.MethodGet, base, nil)
	require.NoError(t, err)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}

func TestMakeCheckOrigin(t *testing.T) {
	check := makeCheckOrigin([]string{"https://app.example.com"})
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}
	assert.True(t, check(req("")))
	assert.True(t, check(req("https://APP.example.com")))
	assert.False(t, check(req("https://evil.example.com")))
	assert.True(t, makeCheckOrigin([]string{"*"})(req("https://anything.test")))
}
