package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	rediscl "github.com/minsukim/fitlog-backend/internal/clients/redis"
	"github.com/minsukim/fitlog-backend/internal/platform/apierr"
	"github.com/minsukim/fitlog-backend/internal/platform/logger"
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// TokenService owns both JWT classes. Access tokens are self-contained and
// verified without a store lookup; refresh tokens are additionally mirrored
// into the token cache, which is the source of truth for their liveness.
type TokenService interface {
	Issue(ctx context.Context, userID uuid.UUID) (*TokenPair, error)
	VerifyAccess(ctx context.Context, token string) (uuid.UUID, error)
	VerifyRefresh(ctx context.Context, token string) (uuid.UUID, error)
	// RevokeRefresh reports whether the token was still live. Deleting an
	// absent token is not an error.
	RevokeRefresh(ctx context.Context, token string) (bool, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

type tokenService struct {
	log           *logger.Logger
	cache         rediscl.TokenCache
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenService(
	log *logger.Logger,
	cache rediscl.TokenCache,
	accessSecret string,
	refreshSecret string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) (TokenService, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required")
	}
	if cache == nil {
		return nil, fmt.Errorf("token cache is required")
	}
	return &tokenService{
		log:           log.With("service", "TokenService"),
		cache:         cache,
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

func (ts *tokenService) Issue(ctx context.Context, userID uuid.UUID) (*TokenPair, error) {
	now := time.Now()

	accessToken, err := ts.sign(ts.accessSecret, userID, now, ts.accessTTL, "")
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	// The jti keeps two refresh tokens for the same user distinct even when
	// issued within the same second.
	refreshToken, err := ts.sign(ts.refreshSecret, userID, now, ts.refreshTTL, uuid.New().String())
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	// The pair is not issued until the refresh token is revocable: the cache
	// write has to complete before the tokens leave this function.
	if err := ts.cache.Set(ctx, refreshToken, userID.String(), ts.refreshTTL); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (ts *tokenService) VerifyAccess(ctx context.Context, token string) (uuid.UUID, error) {
	return ts.verify(token, ts.accessSecret)
}

func (ts *tokenService) VerifyRefresh(ctx context.Context, token string) (uuid.UUID, error) {
	userID, err := ts.verify(token, ts.refreshSecret)
	if err != nil {
		return uuid.Nil, err
	}

	cachedID, ok, err := ts.cache.Get(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, apierr.Unauthorized(apierr.CodeTokenRevoked, "refresh token revoked")
	}
	if cachedID != userID.String() {
		ts.log.Warn("Refresh token user mismatch between signature and cache", "user_id", userID.String())
		return uuid.Nil, apierr.Unauthorized(apierr.CodeTokenRevoked, "refresh token revoked")
	}
	return userID, nil
}

func (ts *tokenService) RevokeRefresh(ctx context.Context, token string) (bool, error) {
	return ts.cache.Del(ctx, token)
}

func (ts *tokenService) AccessTTL() time.Duration  { return ts.accessTTL }
func (ts *tokenService) RefreshTTL() time.Duration { return ts.refreshTTL }

func (ts *tokenService) sign(secret []byte, userID uuid.UUID, now time.Time, ttl time.Duration, jti string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        jti,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// verify distinguishes expiry from every other failure so middleware and
// clients can react differently (expired prompts a refresh, invalid forces
// a re-login).
func (ts *tokenService) verify(token string, secret []byte) (uuid.UUID, error) {
	if token == "" {
		return uuid.Nil, apierr.Unauthorized(apierr.CodeTokenInvalid, "token is empty")
	}

	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, apierr.Unauthorized(apierr.CodeTokenExpired, "token expired")
		}
		return uuid.Nil, apierr.Unauthorized(apierr.CodeTokenInvalid, "invalid token")
	}
	if parsed == nil || !parsed.Valid {
		return uuid.Nil, apierr.Unauthorized(apierr.CodeTokenInvalid, "invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, apierr.Unauthorized(apierr.CodeTokenInvalid, "invalid token subject")
	}
	return userID, nil
}
