package types

import (
	"time"

	"github.com/google/uuid"
)

// Provider is the identity source a user account is bound to. An account
// authenticates through exactly one provider for its whole lifetime.
type Provider string

const (
	ProviderLocal  Provider = "local"
	ProviderGoogle Provider = "google"
	ProviderApple  Provider = "apple"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderLocal, ProviderGoogle, ProviderApple:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PasswordHash *string   `gorm:"column:password_hash" json:"-"`
	Provider     Provider  `gorm:"type:varchar(16);not null;default:'local';column:provider;uniqueIndex:idx_user_provider_subject" json:"provider"`
	ProviderID   *string   `gorm:"column:provider_id;uniqueIndex:idx_user_provider_subject" json:"-"`
	Name         string    `gorm:"column:name" json:"name"`
	CreatedAt    time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string {
	return "user"
}

// PublicUser is the response shape for a user; it never carries the
// password hash or the external subject id.
type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	Name     string    `json:"name"`
	Provider Provider  `json:"provider"`
}

func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		Provider: u.Provider,
	}
}
