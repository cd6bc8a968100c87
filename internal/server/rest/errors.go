package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/gims/internal/common"
	"github.com/dmitrijs2005/gims/internal/server/auth"
	"github.com/gin-gonic/gin"
)

// writeError maps service errors to a status code and JSON body. Unknown
// errors are logged and reported as a generic server error.
func (s *Server) writeError(c *gin.Context, err error) {
	var (
		verr   *common.ValidationError
		lerr   *auth.LockedError
		cerr   *auth.CredentialsError
		status int
		body   gin.H
	)

	switch {
	case errors.As(err, &verr):
		status, body = http.StatusBadRequest, gin.H{"error": "Validation failed", "errors": verr.Fields}
	case errors.As(err, &lerr):
		status, body = http.StatusForbidden, gin.H{"error": lerr.Error(), "locked": true, "lockedUntil": lerr.Until}
	case errors.As(err, &cerr):
		status, body = http.StatusBadRequest, gin.H{"error": cerr.Error(), "attemptsRemaining": cerr.AttemptsRemaining}
	case errors.Is(err, common.ErrDuplicateAccount):
		status, body = http.StatusBadRequest, gin.H{"error": "User already exists"}
	case errors.Is(err, common.ErrInvalidCredentials):
		status, body = http.StatusBadRequest, gin.H{"error": "Invalid credentials"}
	case errors.Is(err, common.ErrEmailNotVerified):
		status, body = http.StatusForbidden, gin.H{"error": "Please verify your email before logging in", "emailNotVerified": true}
	case errors.Is(err, common.ErrTokenNotFound):
		status, body = http.StatusBadRequest, gin.H{"error": "Invalid or expired verification token"}
	case errors.Is(err, common.ErrTokenExpired):
		status, body = http.StatusBadRequest, gin.H{"error": "Verification token has expired. Please request a new one."}
	case errors.Is(err, common.ErrAlreadyVerified):
		status, body = http.StatusBadRequest, gin.H{"error": "Email is already verified"}
	case errors.Is(err, common.ErrSelfModification):
		status, body = http.StatusBadRequest, gin.H{"error": "Cannot modify your own account"}
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrorUnauthorized):
		status, body = http.StatusUnauthorized, gin.H{"error": "Invalid token"}
	case errors.Is(err, common.ErrForbidden):
		status, body = http.StatusForbidden, gin.H{"error": "Admin access required"}
	case errors.Is(err, common.ErrorNotFound):
		status, body = http.StatusNotFound, gin.H{"error": "Not found"}
	default:
		if !errors.Is(err, common.ErrorInternal) {
			s.logger.Error(c.Request.Context(), "unhandled error", "path", c.FullPath(), "error", err)
		}
		status, body = http.StatusInternalServerError, gin.H{"error": "Server error"}
	}

	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

// bindFailed answers a request whose body could not be read: 413 when the
// body limit was hit, 400 with msg otherwise.
func bindFailed(c *gin.Context, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
		return
	}
	badRequest(c, msg)
}
