package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/shrinkray/image-optimizer-backend/internal/auth"
	apperrors "github.com/shrinkray/image-optimizer-backend/internal/pkg/errors"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/logger"
	"github.com/shrinkray/image-optimizer-backend/internal/pkg/response"
	"go.uber.org/zap"
)

// ContextUserID is the gin context key carrying the authenticated user id
const ContextUserID = "user_id"

// JWTAuth rejects requests without a valid bearer token
func JWTAuth(jwtManager *auth.JWTManager, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Error(c, apperrors.GetHTTPStatus(apperrors.ErrUnauthenticated),
				apperrors.GetMessage(apperrors.ErrUnauthenticated))
			c.Abort()
			return
		}

		token, err := auth.ExtractTokenFromHeader(authHeader)
		if err != nil {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.VerifyAccessToken(token)
		if err != nil {
			log.Warn("invalid access token",
				zap.Error(err),
				zap.String("ip", c.ClientIP()))
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}

// OptionalJWTAuth attaches the user identity when a valid bearer token
// is present and lets anonymous requests through untouched. Requests
// carrying a malformed or expired token are rejected rather than being
// silently downgraded to anonymous.
func OptionalJWTAuth(jwtManager *auth.JWTManager, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		token, err := auth.ExtractTokenFromHeader(authHeader)
		if err != nil {
			response.Unauthorized(c, "invalid authorization header format")
			c.Abort()
			return
		}

		claims, err := jwtManager.VerifyAccessToken(token)
		if err != nil {
			log.Warn("invalid access token on optional route",
				zap.Error(err),
				zap.String("ip", c.ClientIP()))
			response.Unauthorized(c, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Next()
	}
}
