package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/minsukim/fitlog-backend/internal/http/response"
	"github.com/minsukim/fitlog-backend/internal/platform/apierr"
	"github.com/minsukim/fitlog-backend/internal/platform/ctxutil"
	"github.com/minsukim/fitlog-backend/internal/platform/logger"
	"github.com/minsukim/fitlog-backend/internal/services"
)

// fakeTokens verifies exactly one access token and fails everything else
// with a configurable error.
type fakeTokens struct {
	acceptToken string
	userID      uuid.UUID
	verifyErr   error
}

func (f *fakeTokens) Issue(ctx context.Context, userID uuid.UUID) (*services.TokenPair, error) {
	return nil, nil
}

func (f *fakeTokens) VerifyAccess(ctx context.Context, token string) (uuid.UUID, error) {
	if f.verifyErr != nil {
		return uuid.Nil, f.verifyErr
	}
	if token != f.acceptToken {
		return uuid.Nil, apierr.Unauthorized(apierr.CodeTokenInvalid, "invalid token")
	}
	return f.userID, nil
}

func (f *fakeTokens) VerifyRefresh(ctx context.Context, token string) (uuid.UUID, error) {
	return uuid.Nil, nil
}

func (f *fakeTokens) RevokeRefresh(ctx context.Context, token string) (bool, error) {
	return false, nil
}

func (f *fakeTokens) AccessTTL() time.Duration  { return time.Hour }
func (f *fakeTokens) RefreshTTL() time.Duration { return 24 * time.Hour }

func newAuthTestRouter(t *testing.T, tokens services.TokenService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	r := gin.New()
	r.Use(ErrorHandler(log, false))

	am := NewAuthMiddleware(log, tokens)
	r.GET("/protected", am.RequireAuth(), func(c *gin.Context) {
		rd := ctxutil.GetRequestData(c.Request.Context())
		if rd == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no request data"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": rd.UserID.String()})
	})
	return r
}

func doProtected(r *gin.Engine, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeErrorEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.ErrorEnvelope {
	t.Helper()
	var env response.ErrorEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode error envelope: %v (body %q)", err, w.Body.String())
	}
	return env
}

func TestRequireAuthMissingOrMalformedHeader(t *testing.T) {
	r := newAuthTestRouter(t, &fakeTokens{acceptToken: "good", userID: uuid.New()})

	cases := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Basic abc"},
		{"bare bearer", "Bearer "},
		{"lowercase scheme", "bearer good"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doProtected(r, tc.header)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
			env := decodeErrorEnvelope(t, w)
			if env.Success {
				t.Fatalf("expected success=false")
			}
			if env.Error.Code != apierr.CodeAuthHeaderMissing {
				t.Fatalf("expected code %q, got %q", apierr.CodeAuthHeaderMissing, env.Error.Code)
			}
		})
	}
}

func TestRequireAuthPreservesTokenErrorKind(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"expired", apierr.Unauthorized(apierr.CodeTokenExpired, "token expired"), apierr.CodeTokenExpired},
		{"invalid", apierr.Unauthorized(apierr.CodeTokenInvalid, "invalid token"), apierr.CodeTokenInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newAuthTestRouter(t, &fakeTokens{verifyErr: tc.err})
			w := doProtected(r, "Bearer whatever")
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
			env := decodeErrorEnvelope(t, w)
			if env.Error.Code != tc.code {
				t.Fatalf("expected code %q, got %q", tc.code, env.Error.Code)
			}
		})
	}
}

func TestRequireAuthInjectsRequestData(t *testing.T) {
	userID := uuid.New()
	r := newAuthTestRouter(t, &fakeTokens{acceptToken: "good", userID: userID})

	w := doProtected(r, "Bearer good")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body %q)", w.Code, w.Body.String())
	}
	var body struct {
		UserID string `json:"userId"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.UserID != userID.String() {
		t.Fatalf("expected user %s, got %s", userID, body.UserID)
	}
}
