package auth

import (
	"math"
	"time"

	"github.com/dmitrijs2005/gims/internal/server/models"
)

// LockoutPolicy locks an account for Duration once Threshold consecutive
// failures are recorded. Expiry is lazy: a lock whose time has passed is
// reported by Expired and cleared by the caller on the next attempt.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// NewLockoutPolicy builds a policy.
func NewLockoutPolicy(threshold int, duration time.Duration) LockoutPolicy {
	return LockoutPolicy{Threshold: threshold, Duration: duration}
}

// Locked reports whether the account is locked at now.
func (p LockoutPolicy) Locked(s models.LockoutState, now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

// Expired reports whether the account carries a lock that has run out.
func (p LockoutPolicy) Expired(s models.LockoutState, now time.Time) bool {
	return s.LockedUntil != nil && !now.Before(*s.LockedUntil)
}

// Check returns a *LockedError while the account is locked, nil otherwise.
func (p LockoutPolicy) Check(s models.LockoutState, now time.Time) error {
	if !p.Locked(s, now) {
		return nil
	}
	return &LockedError{Until: *s.LockedUntil, Minutes: RemainingMinutes(*s.LockedUntil, now)}
}

// RegisterFailure records one failed attempt. It returns the state to store
// and either a *CredentialsError with the attempts left or, when the
// threshold is reached, a *LockedError.
func (p LockoutPolicy) RegisterFailure(s models.LockoutState, now time.Time) (models.LockoutState, error) {
	next := models.LockoutState{FailedAttempts: s.FailedAttempts + 1}

	if next.FailedAttempts >= p.Threshold {
		until := now.Add(p.Duration)
		next.LockedUntil = &until
		return next, &LockedError{Until: until, Minutes: RemainingMinutes(until, now), Tripped: true}
	}

	return next, &CredentialsError{AttemptsRemaining: p.Threshold - next.FailedAttempts}
}

// RemainingMinutes rounds the time left until until up to whole minutes,
// never reporting less than one.
func RemainingMinutes(until, now time.Time) int {
	m := int(math.Ceil(until.Sub(now).Minutes()))
	if m < 1 {
		return 1
	}
	return m
}
