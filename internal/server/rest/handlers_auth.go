package rest

import (
	"net/http"

	"github.com/dmitrijs2005/gims/internal/server/services"
	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	Identifier string `json:"identifier"`
	// Username is accepted as an alias of Identifier.
	Username string `json:"username"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

func (s *Server) ping(c *gin.Context) {
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate, private")
	c.String(http.StatusOK, "Server is running.")
}

func (s *Server) register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		bindFailed(c, err, "Invalid request body")
		return
	}

	user, err := s.auth.Register(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful! Please check your email to verify your account.",
		"email":   user.Email,
	})
}

func (s *Server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, "Invalid request body")
		return
	}
	if req.Identifier == "" {
		req.Identifier = req.Username
	}

	session, err := s.auth.Login(c.Request.Context(), req.Identifier, req.Password)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
		"user": gin.H{
			"id":       session.User.ID,
			"username": session.User.Username,
			"email":    session.User.Email,
			"role":     session.User.Role,
		},
	})
}

func (s *Server) verifyEmail(c *gin.Context) {
	already, err := s.auth.VerifyEmail(c.Request.Context(), c.Param("token"))
	if err != nil {
		s.writeError(c, err)
		return
	}

	if already {
		c.JSON(http.StatusOK, gin.H{"message": "Email already verified. You can now login."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Email verified successfully! You can now login.", "success": true})
}

func (s *Server) resendVerification(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, "Invalid request body")
		return
	}

	if err := s.auth.ResendVerification(c.Request.Context(), req.Email); err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "If that email is registered, a verification email has been sent."})
}

func (s *Server) me(c *gin.Context) {
	user, err := s.auth.Me(c.Request.Context(), c.GetInt64(ctxUserID))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) devVerificationLink(c *gin.Context) {
	email := c.Param("email")
	link, err := s.auth.VerificationLink(c.Request.Context(), email)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":            email,
		"verificationLink": link,
		"message":          "Click the link below to verify your email",
	})
}
