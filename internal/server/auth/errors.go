package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gims/internal/common"
)

// LockedError reports a locked account. It matches common.ErrAccountLocked.
type LockedError struct {
	Until   time.Time
	Minutes int
	// Tripped is set on the failure that caused the lock.
	Tripped bool
}

func (e *LockedError) Error() string {
	if e.Tripped {
		return fmt.Sprintf("Too many failed login attempts. Account locked for %d minutes.", e.Minutes)
	}
	return fmt.Sprintf("Account locked. Try again in %d minutes.", e.Minutes)
}

func (e *LockedError) Unwrap() error { return common.ErrAccountLocked }

// CredentialsError reports a wrong password on an existing account. It
// matches common.ErrInvalidCredentials.
type CredentialsError struct {
	AttemptsRemaining int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("Invalid credentials. %d attempts remaining.", e.AttemptsRemaining)
}

func (e *CredentialsError) Unwrap() error { return common.ErrInvalidCredentials }
