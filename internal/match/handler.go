package match

import (
	"barter_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for match handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new match handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes sets up the routes for match operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	matchGroup := router.Group("/matches")
	matchGroup.Use(authMW)
	{
		matchGroup.GET("", h.listMatches)
		matchGroup.GET("/:id", h.getMatch)
		matchGroup.POST("/:id/confirm", h.confirmTrade)
		matchGroup.POST("/:id/cancel", h.cancelMatch)
	}
}

func (h *Handler) listMatches(c *gin.Context) {
	matches, err := h.service.ListMatches(c.Request.Context(), common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Matches retrieved successfully.", matches)
}

func (h *Handler) getMatch(c *gin.Context) {
	matchID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	m, err := h.service.GetMatch(c.Request.Context(), matchID, common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Match retrieved successfully.", m)
}

func (h *Handler) confirmTrade(c *gin.Context) {
	matchID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	resp, err := h.service.ConfirmTrade(c.Request.Context(), matchID, common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, resp.Message, resp)
}

func (h *Handler) cancelMatch(c *gin.Context) {
	matchID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	userID := common.GetUserIDFromContext(c)
	if err := h.service.CancelMatch(c.Request.Context(), matchID, userID); err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.logger.Debug("Cancel handled", zap.String("matchID", matchID.String()), zap.String("userID", userID.String()))
	common.RespondNoContent(c)
}
