// Package models holds the persisted records of the GIMS server.
package models

import "time"

// Role is the authorization level of a user.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleStaff
}

// User is an account record. PasswordHash and the verification token never
// leave the server.
type User struct {
	ID                       int64      `json:"id"`
	Username                 string     `json:"username"`
	Email                    string     `json:"email"`
	PasswordHash             string     `json:"-"`
	EmailVerified            bool       `json:"email_verified"`
	VerificationToken        *string    `json:"-"`
	VerificationTokenExpires *time.Time `json:"-"`
	FailedLoginAttempts      int        `json:"failed_login_attempts"`
	LockedUntil              *time.Time `json:"locked_until,omitempty"`
	Role                     Role       `json:"role"`
	CreatedAt                time.Time  `json:"created_at"`
}

// LockoutState is the part of a user record the lockout policy works on.
func (u *User) LockoutState() LockoutState {
	return LockoutState{FailedAttempts: u.FailedLoginAttempts, LockedUntil: u.LockedUntil}
}

// LockoutState is the failure counter and lock expiry of an account.
type LockoutState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}
