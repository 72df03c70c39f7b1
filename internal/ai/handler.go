package ai

import (
	"barter_backend/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler serves the AI helper endpoints.
type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes sets up the routes for AI helpers. All of them require auth.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	aiGroup := router.Group("/ai", authMW)
	{
		aiGroup.POST("/estimate-value", h.estimateValue)
		aiGroup.POST("/generate-desc", h.generateDescription)
		aiGroup.POST("/classify-image", h.classifyImage)
	}
}

func (h *Handler) estimateValue(c *gin.Context) {
	var req EstimateValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	estimate, err := h.service.EstimateValue(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Value estimated.", estimate)
}

func (h *Handler) generateDescription(c *gin.Context) {
	var req DescriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	desc, err := h.service.GenerateDescription(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Description generated.", desc)
}

func (h *Handler) classifyImage(c *gin.Context) {
	var req ClassifyImageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}
	result, err := h.service.ClassifyImage(c.Request.Context(), req.ImageB64)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Image classified.", result)
}
