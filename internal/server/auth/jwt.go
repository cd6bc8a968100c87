package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gims/internal/clock"
	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the session token payload: the standard claims plus the user
// id and username.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"id"`
	Username string `json:"username"`
}

// TokenIssuer signs and verifies HS256 session tokens.
type TokenIssuer struct {
	secret   []byte
	validity time.Duration
	clock    clock.Clock
}

// NewTokenIssuer builds an issuer; a nil clock means the wall clock.
func NewTokenIssuer(secretKey string, validity time.Duration, clk clock.Clock) *TokenIssuer {
	if clk == nil {
		clk = clock.Real{}
	}
	return &TokenIssuer{secret: []byte(secretKey), validity: validity, clock: clk}
}

// Issue returns a signed token for the user and its expiry time.
func (i *TokenIssuer) Issue(userID int64, username string) (string, time.Time, error) {
	now := i.clock.Now()
	expires := now.Add(i.validity)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
		UserID:   userID,
		Username: username,
	})

	tokenString, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	return tokenString, expires, nil
}

// Parse checks the signature and expiry of tokenString. Every failure is
// reported as common.ErrInvalidToken.
func (i *TokenIssuer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.clock.Now),
	)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
