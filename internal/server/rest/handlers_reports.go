package rest

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/gims/internal/server/services"
	"github.com/gin-gonic/gin"
)

func sendFile(c *gin.Context, f *services.File) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	c.Data(http.StatusOK, f.ContentType, f.Data)
}

func (s *Server) exportAssets(c *gin.Context) {
	f, err := s.reports.Export(c.Request.Context(), c.DefaultQuery("format", services.FormatXLSX))
	if err != nil {
		s.writeError(c, err)
		return
	}
	sendFile(c, f)
}

func (s *Server) importTemplate(c *gin.Context) {
	f, err := s.reports.ImportTemplate(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	sendFile(c, f)
}

func (s *Server) importAssets(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		bindFailed(c, err, "No file uploaded")
		return
	}
	if fh.Size > s.maxUploadSize {
		badRequest(c, "File is too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		badRequest(c, "Could not read "+fh.Filename)
		return
	}
	defer f.Close()

	res, err := s.reports.Import(c.Request.Context(), fh.Filename, f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) summary(c *gin.Context) {
	sum, err := s.reports.Summary(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
