package deck

import (
	"barter_backend/internal/common"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for deck handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new deck handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts the deck under /listings/deck.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	router.GET("/listings/deck", authMW, h.getDeck)
}

func (h *Handler) getDeck(c *gin.Context) {
	var params deckParams
	if err := c.ShouldBindQuery(&params); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	offeringID, err := uuid.Parse(params.OfferingListingID)
	if err != nil {
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid offering_listing_id format."))
		return
	}

	items, err := h.service.BuildDeck(c.Request.Context(), common.GetUserIDFromContext(c), DeckQuery{
		OfferingListingID: offeringID,
		Category:          params.Category,
		RadiusKM:          params.RadiusKM,
	})
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	h.logger.Debug("Deck built", zap.Int("size", len(items)))
	common.RespondOK(c, "Deck retrieved successfully.", items)
}
