// File: internal/listing/handler.go
package listing

import (
	"barter_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// maxUploadMemory bounds the in-memory part of a multipart upload; larger
// parts spill to temporary files.
const maxUploadMemory = 32 << 20

// Handler struct holds dependencies for listing handlers.
type Handler struct {
	service Service
	logger  *zap.Logger
}

// NewHandler creates a new listing handler.
func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for listing operations. Every route
// requires an authenticated user.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	listingGroup := router.Group("/listings")
	listingGroup.Use(authMW)
	{
		listingGroup.POST("", h.createListing)
		listingGroup.GET("/mine", h.getMyListings)
		listingGroup.GET("/search", h.searchListings)
		listingGroup.GET("/:id", h.getListingByID)
		listingGroup.PATCH("/:id", h.updateListing)
		listingGroup.DELETE("/:id", h.deleteListing)
		listingGroup.POST("/:id/images", h.uploadImages)
	}
}

func (h *Handler) createListing(c *gin.Context) {
	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Create listing: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	resp, err := h.service.CreateListing(c.Request.Context(), common.GetUserIDFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Listing created successfully.", resp)
}

func (h *Handler) getMyListings(c *gin.Context) {
	listings, err := h.service.GetMyListings(c.Request.Context(), common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listings retrieved successfully.", listings)
}

func (h *Handler) searchListings(c *gin.Context) {
	var query ListingSearchQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	result, err := h.service.SearchListings(c.Request.Context(), query)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listings retrieved successfully.", result)
}

func (h *Handler) getListingByID(c *gin.Context) {
	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	resp, err := h.service.GetListing(c.Request.Context(), listingID, common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing retrieved successfully.", resp)
}

func (h *Handler) updateListing(c *gin.Context) {
	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	var req UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	resp, err := h.service.UpdateListing(c.Request.Context(), listingID, common.GetUserIDFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Listing updated successfully.", resp)
}

func (h *Handler) deleteListing(c *gin.Context) {
	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	if err := h.service.DeleteListing(c.Request.Context(), listingID, common.GetUserIDFromContext(c)); err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondNoContent(c)
}

func (h *Handler) uploadImages(c *gin.Context) {
	listingID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.RespondWithError(c, err)
		return
	}

	if err := c.Request.ParseMultipartForm(maxUploadMemory); err != nil {
		h.logger.Warn("Upload images: Failed to parse multipart form", zap.Error(err))
		common.RespondWithError(c, common.ErrBadRequest.WithDetails("Invalid multipart form: "+err.Error()))
		return
	}
	files := c.Request.MultipartForm.File["images"]

	resp, err := h.service.AddImages(c.Request.Context(), listingID, common.GetUserIDFromContext(c), files)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Images uploaded successfully.", resp)
}
