package middleware

import (
	"committee-live/internal/transport/httpdto"
	committee_errors "committee-live/pkg/errors"
	"committee-live/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorHandler renders errors attached with c.Error when the handler wrote no body.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.WithContext(c.Request.Context()).Error("request error", zap.Error(err))
		}
		if c.Writer.Written() {
			return
		}
		c.JSON(committee_errors.HTTPStatus(err), httpdto.NewErrorResponse(err.Error(), committee_errors.Code(err)))
	}
}
