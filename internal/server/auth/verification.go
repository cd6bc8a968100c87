package auth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gims/internal/common"
)

// randHex is a seam for tests.
var randHex = common.MakeRandHexString

// NewVerificationToken returns an email verification token: 32 bytes from
// crypto/rand, hex encoded to 64 characters.
func NewVerificationToken() (string, error) {
	token, err := randHex(common.VerificationTokenBytes)
	if err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}
	return token, nil
}

// VerificationExpired reports whether a token with the given expiry is no
// longer usable at now. A missing expiry counts as expired.
func VerificationExpired(expires *time.Time, now time.Time) bool {
	return expires == nil || now.After(*expires)
}
