package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minsukim/fitlog-backend/internal/http/response"
	"github.com/minsukim/fitlog-backend/internal/platform/apierr"
	"github.com/minsukim/fitlog-backend/internal/platform/ctxutil"
	"github.com/minsukim/fitlog-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// GET /user
func (uh *UserHandler) GetMe(c *gin.Context) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		_ = c.Error(apierr.Unauthorized(apierr.CodeTokenInvalid, "no authenticated user in request context"))
		return
	}

	user, err := uh.userService.GetByID(c.Request.Context(), rd.UserID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	response.Respond(c, http.StatusOK, gin.H{"user": user.Public()})
}
