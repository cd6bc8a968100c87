// Package users implements the credential store: persisted user accounts
// with their verification and lockout fields.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gims/internal/server/models"
)

// Repository is the credential store. Lookups of missing users return
// common.ErrorNotFound; unique username/email collisions on Create return
// common.ErrDuplicateAccount.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByIdentifier matches either the username or the email.
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*models.User, error)
	ExistsByUsernameOrEmail(ctx context.Context, username, email string) (bool, error)
	List(ctx context.Context) ([]*models.User, error)

	// UpdateLockout stores the failure counter and lock expiry (nil clears it).
	UpdateLockout(ctx context.Context, id int64, failedAttempts int, lockedUntil *time.Time) error
	// MarkEmailVerified sets the verified flag and clears the verification token.
	MarkEmailVerified(ctx context.Context, id int64) error
	SetVerificationToken(ctx context.Context, id int64, token string, expires time.Time) error
	// UpdatePassword replaces the hash and clears the failure counter and lock.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateRole(ctx context.Context, id int64, role models.Role) error
	Delete(ctx context.Context, id int64) error
}
