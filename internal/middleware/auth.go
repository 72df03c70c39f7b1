// File: internal/middleware/auth.go
package middleware

import (
	"barter_backend/internal/common"
	"barter_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(authenticator shared.Authenticator, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader(common.AuthorizationHeader) == "" {
			logger.Debug("Authorization header missing")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header is required."))
			return
		}

		tokenString := common.GetTokenFromContext(c)
		if tokenString == "" {
			logger.Debug("Authorization header format invalid")
			common.RespondWithError(c, common.ErrUnauthorized.WithDetails("Authorization header format must be 'Bearer <token>'."))
			return
		}

		claims, err := authenticator.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			logger.Debug("Token authentication failed", zap.Error(err))
			common.RespondWithError(c, err)
			return
		}

		// Set user information in context for downstream handlers
		c.Set(common.UserIDKey, claims.UserID)
		c.Set(common.UserEmailKey, claims.Email)
		c.Set(common.UserClaimsKey, claims)

		c.Next()
	}
}
