// File: internal/auth/handler.go
package auth

import (
	"barter_backend/internal/common"
	"barter_backend/internal/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler struct holds dependencies for auth handlers.
type Handler struct {
	userService user.Service
	blocklist   TokenBlocklistService
	logger      *zap.Logger
}

// NewHandler creates a new auth handler.
func NewHandler(
	userService user.Service,
	blocklist TokenBlocklistService,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		userService: userService,
		blocklist:   blocklist,
		logger:      logger,
	}
}

// RegisterRoutes sets up the routes for authentication operations.
func (h *Handler) RegisterRoutes(router *gin.RouterGroup, authMW gin.HandlerFunc) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", h.register)
		authGroup.POST("/login", h.login)
		authGroup.GET("/me", authMW, h.me)
		authGroup.PATCH("/me", authMW, h.updateMe)
		authGroup.POST("/logout", authMW, h.logout)
	}
}

func (h *Handler) register(c *gin.Context) {
	var req user.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Register: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	resp, err := h.userService.Register(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondCreated(c, "Registration successful.", resp)
}

func (h *Handler) login(c *gin.Context) {
	var req user.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Login: Invalid request body", zap.Error(err))
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	resp, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Login successful.", resp)
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.userService.GetUserByID(c.Request.Context(), common.GetUserIDFromContext(c))
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "User retrieved successfully.", user.ToPrivateUserResponse(u))
}

func (h *Handler) updateMe(c *gin.Context) {
	var req user.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.RespondWithError(c, common.BindingError(err))
		return
	}

	u, err := h.userService.UpdateProfile(c.Request.Context(), common.GetUserIDFromContext(c), req)
	if err != nil {
		common.RespondWithError(c, err)
		return
	}
	common.RespondOK(c, "Profile updated successfully.", user.ToPrivateUserResponse(u))
}

func (h *Handler) logout(c *gin.Context) {
	claims := common.GetUserClaimsFromContext(c)
	if claims == nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}

	if claims.ExpiresAt != nil {
		if err := h.blocklist.AddToBlocklist(c.Request.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
			common.RespondWithError(c, err)
			return
		}
	}
	h.logger.Info("User logged out", zap.String("userID", claims.UserID.String()))
	common.RespondOK(c, "Logged out successfully.", nil)
}
