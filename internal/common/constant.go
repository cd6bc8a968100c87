package common

// AuthorizationHeaderName carries the session token as "Bearer <token>".
const AuthorizationHeaderName = "Authorization"

// BearerPrefix is the scheme prefix of the Authorization header value.
const BearerPrefix = "Bearer "

// VerificationTokenBytes is the number of random bytes in an email
// verification token before hex encoding.
const VerificationTokenBytes = 32
