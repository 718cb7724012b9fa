package services

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/minsukim/fitlog-backend/internal/platform/apierr"
	"github.com/minsukim/fitlog-backend/internal/platform/logger"
	"github.com/minsukim/fitlog-backend/internal/types"
)

// AuthService orchestrates the login and registration flows. It owns the
// "one account, one provider" rule: an account created through a provider
// authenticates through that provider for its whole lifetime.
type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*types.User, error)
	LoginLocal(ctx context.Context, email, password string) (*TokenPair, *types.User, error)
	LoginOAuth(ctx context.Context, provider types.Provider, idToken string) (*TokenPair, *types.User, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

type authService struct {
	log      *logger.Logger
	users    UserService
	tokens   TokenService
	verifier OAuthVerifier
}

func NewAuthService(
	log *logger.Logger,
	users UserService,
	tokens TokenService,
	verifier OAuthVerifier,
) AuthService {
	return &authService{
		log:      log.With("service", "AuthService"),
		users:    users,
		tokens:   tokens,
		verifier: verifier,
	}
}

func (as *authService) Register(ctx context.Context, email, password, name string) (*types.User, error) {
	return as.users.Register(ctx, email, password, name)
}

func (as *authService) LoginLocal(ctx context.Context, email, password string) (*TokenPair, *types.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, nil, apierr.Validation("email and password are required")
	}

	user, err := as.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, nil, err
	}
	if user.Provider != types.ProviderLocal {
		// Naming the stored provider lets the client redirect to the right
		// flow instead of dead-ending on a generic 401.
		return nil, nil, apierr.Unauthorized(apierr.CodeWrongProvider, "use %s sign-in for this account", user.Provider)
	}
	if user.PasswordHash == nil {
		return nil, nil, apierr.Unauthorized(apierr.CodeBadCredentials, "invalid password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, apierr.Unauthorized(apierr.CodeBadCredentials, "invalid password")
	}

	pair, err := as.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	as.log.Info("Local login", "user_id", user.ID.String())
	return pair, user, nil
}

func (as *authService) LoginOAuth(ctx context.Context, provider types.Provider, idToken string) (*TokenPair, *types.User, error) {
	identity, err := as.verifier.Verify(ctx, provider, idToken)
	if err != nil {
		return nil, nil, err
	}

	user, err := as.users.GetByEmail(ctx, identity.Email)
	if err != nil {
		if !apierr.IsCode(err, apierr.CodeNotFound) {
			return nil, nil, err
		}
		// First login for this email: provision the account.
		user, err = as.users.RegisterOAuth(ctx, identity)
		if err != nil {
			return nil, nil, err
		}
	} else if user.Provider != provider {
		// Deliberately no account linking: accepting the token here would
		// let a provider-side account takeover become an app-side one.
		return nil, nil, apierr.Unauthorized(apierr.CodeWrongProvider, "use %s sign-in for this account", user.Provider)
	}

	pair, err := as.tokens.Issue(ctx, user.ID)
	if err != nil {
		return nil, nil, err
	}
	as.log.Info("OAuth login", "user_id", user.ID.String(), "provider", provider)
	return pair, user, nil
}

// Refresh rotates the presented refresh token. The delete of the old cache
// entry arbitrates concurrent calls: the DEL count is atomic, so of two
// callers presenting the same token exactly one observes it live, and a
// rotated token can never be replayed.
func (as *authService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := as.tokens.VerifyRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	existed, err := as.tokens.RevokeRefresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if !existed {
		return nil, apierr.Unauthorized(apierr.CodeTokenRevoked, "refresh token revoked")
	}

	pair, err := as.tokens.Issue(ctx, userID)
	if err != nil {
		return nil, err
	}
	as.log.Info("Refresh token rotated", "user_id", userID.String())
	return pair, nil
}

func (as *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return apierr.Validation("refresh token is required")
	}
	// Idempotent: revoking an already-absent token is a success.
	if _, err := as.tokens.RevokeRefresh(ctx, refreshToken); err != nil {
		return err
	}
	return nil
}
