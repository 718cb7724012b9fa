package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/minsukim/fitlog-backend/internal/platform/apierr"
	"github.com/minsukim/fitlog-backend/internal/platform/ctxutil"
	"github.com/minsukim/fitlog-backend/internal/platform/logger"
	"github.com/minsukim/fitlog-backend/internal/services"
)

const bearerPrefix = "Bearer "

type AuthMiddleware struct {
	log    *logger.Logger
	tokens services.TokenService
}

func NewAuthMiddleware(log *logger.Logger, tokens services.TokenService) *AuthMiddleware {
	return &AuthMiddleware{
		log:    log.With("middleware", "AuthMiddleware"),
		tokens: tokens,
	}
}

// RequireAuth gates protected routes on a bearer access token. Verification
// is a pure signature check: no cache or store round trip on the hot path.
// Expired and invalid tokens keep their distinct error kinds all the way to
// the client.
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) || strings.TrimSpace(header[len(bearerPrefix):]) == "" {
			_ = c.Error(apierr.Unauthorized(apierr.CodeAuthHeaderMissing, "authorization header missing or malformed"))
			c.Abort()
			return
		}
		tokenString := strings.TrimSpace(header[len(bearerPrefix):])

		userID, err := am.tokens.VerifyAccess(c.Request.Context(), tokenString)
		if err != nil {
			_ = c.Error(err)
			c.Abort()
			return
		}

		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			UserID:      userID,
			TokenString: tokenString,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
