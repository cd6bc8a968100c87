// Package auth holds the account-security primitives of the server: password
// hashing, the lockout policy, session tokens and verification tokens.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// Password hash algorithms accepted by NewPasswordHasher.
const (
	HashBcrypt   = "bcrypt"
	HashArgon2id = "argon2id"
)

// ErrUnknownDigest is returned when a stored digest matches no supported format.
var ErrUnknownDigest = errors.New("unknown password digest format")

// PasswordHasher produces salted one-way digests and checks passwords
// against them. Verify returns (false, nil) on a mismatch; a non-nil error
// means the digest could not be checked at all.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, digest string) (bool, error)
}

// BcryptHasher hashes with bcrypt at the given cost.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.Cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(b), nil
}

func (h BcryptHasher) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("bcrypt: %w", err)
}

// Argon2idHasher hashes with argon2id; nil Params means argon2id.DefaultParams.
type Argon2idHasher struct {
	Params *argon2id.Params
}

func (h Argon2idHasher) Hash(password string) (string, error) {
	params := h.Params
	if params == nil {
		params = argon2id.DefaultParams
	}
	digest, err := argon2id.CreateHash(password, params)
	if err != nil {
		return "", fmt.Errorf("argon2id: %w", err)
	}
	return digest, nil
}

func (h Argon2idHasher) Verify(password, digest string) (bool, error) {
	ok, err := argon2id.ComparePasswordAndHash(password, digest)
	if err != nil {
		return false, fmt.Errorf("argon2id: %w", err)
	}
	return ok, nil
}

// multiHasher hashes with one algorithm and verifies digests of every
// supported family, so changing the configured algorithm keeps existing
// passwords usable.
type multiHasher struct {
	primary  PasswordHasher
	bcrypt   BcryptHasher
	argon2id Argon2idHasher
}

// NewPasswordHasher returns a hasher producing digests with algorithm
// (HashBcrypt or HashArgon2id).
func NewPasswordHasher(algorithm string, bcryptCost int) (PasswordHasher, error) {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
	}

	m := &multiHasher{bcrypt: BcryptHasher{Cost: bcryptCost}, argon2id: Argon2idHasher{}}
	switch algorithm {
	case HashBcrypt, "":
		m.primary = m.bcrypt
	case HashArgon2id:
		m.primary = m.argon2id
	default:
		return nil, fmt.Errorf("unknown password hash algorithm %q", algorithm)
	}
	return m, nil
}

func (m *multiHasher) Hash(password string) (string, error) {
	return m.primary.Hash(password)
}

func (m *multiHasher) Verify(password, digest string) (bool, error) {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return m.argon2id.Verify(password, digest)
	case strings.HasPrefix(digest, "$2a$"), strings.HasPrefix(digest, "$2b$"), strings.HasPrefix(digest, "$2y$"):
		return m.bcrypt.Verify(password, digest)
	default:
		return false, ErrUnknownDigest
	}
}
