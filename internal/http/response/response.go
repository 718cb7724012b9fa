package response

import (
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorEnvelope is the single error body shape: every failed request,
// whatever the layer it failed in, renders as {success:false, error:{...}}.
type ErrorEnvelope struct {
	Success bool     `json:"success"`
	Error   APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code, message string) {
	if message == "" {
		message = "unknown error"
	}
	c.JSON(status, ErrorEnvelope{
		Success: false,
		Error: APIError{
			Message: message,
			Code:    code,
		},
	})
}

func Respond(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}
