package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minsukim/fitlog-backend/internal/http/response"
	"github.com/minsukim/fitlog-backend/internal/platform/apierr"
	"github.com/minsukim/fitlog-backend/internal/platform/logger"
)

// ErrorHandler is the single place domain errors become HTTP responses.
// Handlers attach typed errors with c.Error and never write failure bodies
// themselves, so the status mapping and the envelope shape live here only.
func ErrorHandler(log *logger.Logger, production bool) gin.HandlerFunc {
	handlerLog := log.With("middleware", "ErrorHandler")
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		if ae, ok := apierr.From(last.Err); ok {
			msg := ae.Error()
			if production && ae.Status >= http.StatusInternalServerError {
				msg = "internal server error"
			}
			if ae.Status >= http.StatusInternalServerError {
				handlerLog.Error("Request failed", "status", ae.Status, "code", ae.Code, "error", last.Err)
			}
			response.RespondError(c, ae.Status, ae.Code, msg)
			return
		}

		handlerLog.Error("Unhandled error", "error", last.Err)
		msg := last.Err.Error()
		if production {
			msg = "internal server error"
		}
		response.RespondError(c, http.StatusInternalServerError, apierr.CodeInternal, msg)
	}
}
