package middleware

import (
	"context"
	"net/http"
	"strings"

	"committee-live/internal/services"
	"committee-live/internal/transport/httpdto"
	committee_errors "committee-live/pkg/errors"
	"committee-live/pkg/logger"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware requires a valid bearer token and stores the caller's SAPIN in the request context.
func AuthMiddleware(tokens *services.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractBearer(c)
		claims, err := tokens.ParseAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", committee_errors.CodeUnauthorized))
			c.Abort()
			return
		}

		ctx := services.WithSAPIN(c.Request.Context(), claims.SAPIN)
		ctx = context.WithValue(ctx, logger.SAPINKey, claims.SAPIN)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func extractBearer(c *gin.Context) string {
	value := c.GetHeader("Authorization")
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
