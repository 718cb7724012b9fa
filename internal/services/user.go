package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/minsukim/fitlog-backend/internal/platform/apierr"
	"github.com/minsukim/fitlog-backend/internal/platform/logger"
	"github.com/minsukim/fitlog-backend/internal/repos"
	"github.com/minsukim/fitlog-backend/internal/types"
)

type UserService interface {
	Register(ctx context.Context, email, password, name string) (*types.User, error)
	RegisterOAuth(ctx context.Context, identity *ExternalIdentity) (*types.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		db:       db,
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

// Register creates a local account. The pre-insert existence check gives a
// friendly error on the common path; the unique constraint (translated by
// the repo) stays the safety mechanism under concurrent registration.
func (us *userService) Register(ctx context.Context, email, password, name string) (*types.User, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	if email == "" {
		return nil, apierr.Validation("email is required")
	}
	if password == "" {
		return nil, apierr.Validation("password is required")
	}

	exists, err := us.userRepo.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, fmt.Errorf("check user email: %w", err)
	}
	if exists {
		return nil, apierr.Duplicate("this email is already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	hashStr := string(hash)

	user := &types.User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: &hashStr,
		Provider:     types.ProviderLocal,
		Name:         name,
	}
	if _, err := us.userRepo.Create(ctx, nil, []*types.User{user}); err != nil {
		return nil, err
	}
	us.log.Info("Registered local user", "user_id", user.ID.String())
	return user, nil
}

// RegisterOAuth creates an account for a previously-unseen verified external
// identity. Pure-OAuth accounts carry no password hash.
func (us *userService) RegisterOAuth(ctx context.Context, identity *ExternalIdentity) (*types.User, error) {
	if identity == nil || identity.Email == "" {
		return nil, apierr.Validation("external identity is missing an email")
	}
	subject := identity.Subject
	user := &types.User{
		ID:         uuid.New(),
		Email:      identity.Email,
		Provider:   identity.Provider,
		ProviderID: &subject,
		Name:       identity.Name,
	}
	if _, err := us.userRepo.Create(ctx, nil, []*types.User{user}); err != nil {
		return nil, err
	}
	us.log.Info("Registered oauth user", "user_id", user.ID.String(), "provider", identity.Provider)
	return user, nil
}

func (us *userService) GetByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	users, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{id})
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	if len(users) == 0 {
		return nil, apierr.NotFound("user not found")
	}
	return users[0], nil
}

func (us *userService) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	users, err := us.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if len(users) == 0 {
		return nil, apierr.NotFound("user with email not found")
	}
	return users[0], nil
}
