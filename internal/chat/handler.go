package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"barter_backend/internal/common"
	"barter_backend/internal/config"
	"barter_backend/internal/match"
	"barter_backend/internal/message"
	"barter_backend/internal/presence"
	"barter_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Close codes sent to a WebSocket client that may not join a match.
const (
	CloseUnauthorized   = 4001
	CloseForbidden      = 4003
	CloseMatchNotFound  = 4004
	maxClientFrameBytes = 16 << 10
)

// Registry is the part of the presence hub the WebSocket endpoint needs.
type Registry interface {
	Connect(conn presence.Conn, userID uuid.UUID) presence.Conn
	Disconnect(conn presence.Conn, userID uuid.UUID)
}

// Handler serves the chat REST routes and the real-time channel.
type Handler struct {
	service  Service
	matches  match.Repository
	auth     shared.Authenticator
	registry Registry
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler creates a new chat handler.
func NewHandler(
	service Service,
	matches match.Repository,
	auth shared.Authenticator,
	registry Registry,
	cfg *config.Config,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		service:  service,
		matches:  matches,
		auth:     auth,
		registry: registry,
		upgrader: websocket.Upgrader{CheckOrigin: makeCheckOrigin(cfg.WSAllowedOrigins)},
		logger:   logger,
	}
}

// RegisterRoutes sets up the chat routes. The WebSocket route authenticates
// from its ?token= query parameter instead of the auth middleware.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	chatGroup := router.Group("/chat")
	{
		chatGroup.GET("/:matchId/messages", authMW, h.getHistory)
		chatGroup.POST("/:matchId/messages", authMW, h.sendMessage)
		chatGroup.GET("/ws/:matchId", h.serveWS)
	}
}

// makeCheckOrigin accepts requests without an Origin header, any origin when
// the list contains "*", and otherwise only the listed scheme://host pairs.
func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		if o := strings.TrimSpace(strings.ToLower(origin)); o != "" {
			allowed[o] = struct{}{}
		}
	}
	_, allowAll := allowed["*"]

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" || allowAll {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		_, ok := allowed[u.Scheme+"://"+u.Host]
		return ok
	}
}

func (h *Handler) getHistory(c *gin.Context) {
	matchID, err := common.ParseUUIDParam(c, "matchId")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	window := common.GetLimitOffsetParams(c, defaultHistoryLimit, maxHistoryLimit)

	history, err := h.service.History(c.Request.Context(), matchID, common.GetUserIDFromContext(c), window.Limit, window.Offset)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Messages retrieved successfully.", history)
}

func (h *Handler) sendMessage(c *gin.Context) {
	matchID, err := common.ParseUUIDParam(c, "matchId")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	msg, err := h.service.Send(c.Request.Context(), matchID, common.GetUserIDFromContext(c), req.Content, req.Type)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Message sent.", msg)
}

// serveWS upgrades first and then checks, in order, the token, the match and
// membership, so a refused client receives a close code it can act on.
func (h *Handler) serveWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Debug("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	ctx := c.Request.Context()

	claims, err := h.auth.Authenticate(ctx, c.Query("token"))
	if err != nil {
		closeWith(conn, CloseUnauthorized, "Unauthorized")
		return
	}
	userID := claims.UserID

	matchID, err := uuid.Parse(c.Param("matchId"))
	if err != nil {
		closeWith(conn, CloseMatchNotFound, "Match not found")
		return
	}
	m, err := h.matches.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			closeWith(conn, CloseMatchNotFound, "Match not found")
		} else {
			h.logger.Error("WebSocket match lookup failed", zap.Error(err))
			closeWith(conn, websocket.CloseInternalServerErr, "Internal error")
		}
		return
	}
	if !m.IsParticipant(userID) {
		closeWith(conn, CloseForbidden, "Not a participant")
		return
	}

	handle := h.registry.Connect(conn, userID)
	defer h.registry.Disconnect(handle, userID)
	log := h.logger.With(zap.String("userID", userID.String()), zap.String("matchID", matchID.String()))
	log.Debug("WebSocket connected")

	conn.SetReadLimit(maxClientFrameBytes)
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("WebSocket closed unexpectedly", zap.Error(err))
			}
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			writeEvent(handle, presence.EventError, errorData{Message: "Frames must be JSON objects."})
			continue
		}
		switch frame.Type {
		case "message":
			if strings.TrimSpace(frame.Content) == "" {
				continue
			}
			if _, err := h.service.Send(ctx, matchID, userID, frame.Content, message.TypeText); err != nil {
				writeEvent(handle, presence.EventError, errorData{Message: clientMessage(err)})
			}
		case "ping":
			writeEvent(handle, presence.EventPong, nil)
		default:
			writeEvent(handle, presence.EventError, errorData{Message: "Unknown frame type."})
		}
	}
}

func closeWith(conn *websocket.Conn, code int, text string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, text), time.Now().Add(time.Second))
}

func writeEvent(conn presence.Conn, event string, data interface{}) {
	payload, err := json.Marshal(presence.Envelope{Event: event, Data: data})
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}

// clientMessage picks the most specific text of an error for a frame.
func clientMessage(err error) string {
	apiErr, ok := common.IsAPIError(err)
	if !ok {
		return "Failed to send message."
	}
	if details, ok := apiErr.Details.(string); ok && details != "" {
		return details
	}
	return apiErr.Message
}
