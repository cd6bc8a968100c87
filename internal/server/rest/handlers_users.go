package rest

import (
	"net/http"

	"github.com/dmitrijs2005/gims/internal/server/models"
	"github.com/gin-gonic/gin"
)

type roleRequest struct {
	Role models.Role `json:"role"`
}

func (s *Server) listUsers(c *gin.Context) {
	list, err := s.admin.ListUsers(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (s *Server) deleteUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := s.admin.DeleteUser(c.Request.Context(), c.GetInt64(ctxUserID), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted successfully"})
}

func (s *Server) updateRole(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFailed(c, err, "Invalid request body")
		return
	}
	if err := s.admin.UpdateRole(c.Request.Context(), c.GetInt64(ctxUserID), id, req.Role); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User role updated successfully"})
}

func (s *Server) unlockUser(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := s.admin.Unlock(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User unlocked successfully"})
}
